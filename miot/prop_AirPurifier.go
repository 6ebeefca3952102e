package miot

// Mi Air Purifier 3C (zhimi.airpurifier.mb4) のプロパティ定義

const (
	AirPurifierType = "miio:air-purifier"

	ModeAuto     = "auto"
	ModeSilent   = "silent"
	ModeFavorite = "favorite"
	ModeIdle     = "idle"

	LEDBright = "bright"
	LEDDim    = "dim"
	LEDOff    = "off"

	LEDUnknown = "unknown"

	FavoriteRPMMin = 300
	FavoriteRPMMax = 2200
)

var (
	// ModeValues は mode (siid 2, piid 4) の値テーブルです。
	// "sleep" は旧来の名前で、エンコード時のみ silent と同じコードになります。
	ModeValues = NewValueTable(
		ValueEntry{ModeAuto, 0},
		ValueEntry{ModeSilent, 1},
		ValueEntry{ModeFavorite, 2},
		ValueEntry{ModeIdle, 3},
	).WithAliases(map[string]int{
		"sleep": 1,
	})

	// LEDBrightnessValues は led_brightness_level (siid 7, piid 2) の値テーブルです。
	LEDBrightnessValues = NewValueTable(
		ValueEntry{LEDBright, 0},
		ValueEntry{LEDDim, 1},
		ValueEntry{LEDOff, 2},
	)
)

// ModeFallbackCode は未知のモード名を書き込むときに使われるコード (auto) です。
const ModeFallbackCode = 0

// EncodeMode は mode の論理値をワイヤコードに変換します。
// 未知のモード名は ModeFallbackCode になります。
func EncodeMode(v any) any {
	if s, ok := v.(string); ok {
		if code, ok := ModeValues.Encode(s); ok {
			return code
		}
	}
	return ModeFallbackCode
}

// DecodeMode は mode のワイヤコードを論理値に変換します。未知のコードは nil です。
func DecodeMode(v any) any {
	if code, ok := v.(int); ok {
		if name, ok := ModeValues.Decode(code); ok {
			return name
		}
	}
	return nil
}

// DecodeLEDBrightness は LED 明るさのワイヤコードを論理値に変換します。
func DecodeLEDBrightness(v any) any {
	if code, ok := v.(int); ok {
		if name, ok := LEDBrightnessValues.Decode(code); ok {
			return name
		}
	}
	return LEDUnknown
}

// AirPurifierServiceMap は 3C のプロトコルスキーマです。
func AirPurifierServiceMap() ServiceMap {
	return ServiceMap{
		PropPower:               {Address: Address{2, 1}},
		PropMode:                {Address: Address{2, 4}, Encode: EncodeMode},
		PropAQI:                 {Address: Address{3, 4}},
		PropFavoriteRPM:         {Address: Address{9, 3}},
		PropFilterLifeRemaining: {Address: Address{4, 1}},
		PropFilterHoursUsed:     {Address: Address{4, 3}},
		PropLEDBrightnessLevel:  {Address: Address{7, 2}},
		PropBuzzer:              {Address: Address{6, 1}},
	}
}

// AirPurifierModes はデバイスが公開するモードの一覧です。
func AirPurifierModes() []string {
	return []string{ModeIdle, ModeAuto, ModeSilent, ModeFavorite}
}

// AirPurifierDefinitions は 3C のプロパティ定義を登録した PropertyDefinitions を返します。
func AirPurifierDefinitions() *PropertyDefinitions {
	defs := NewPropertyDefinitions()
	defs.Define(PropertyDefinition{Name: PropPower, Kind: KindBool})
	defs.Define(PropertyDefinition{Name: PropMode, Kind: KindInt, Decode: DecodeMode})
	// PM2.5
	defs.Define(PropertyDefinition{Name: PropAQI, Kind: KindInt})
	defs.Define(PropertyDefinition{Name: PropFavoriteRPM, DisplayName: "favoriteRPM", Kind: KindInt})
	defs.Define(PropertyDefinition{Name: PropFilterLifeRemaining, DisplayName: "filterLifeRemaining", Kind: KindInt})
	defs.Define(PropertyDefinition{Name: PropFilterHoursUsed, DisplayName: "filterHoursUsed", Kind: KindInt})
	defs.Define(PropertyDefinition{
		Name:        PropLEDBrightnessLevel,
		DisplayName: "ledBrightness",
		Kind:        KindInt,
		Decode:      DecodeLEDBrightness,
	})
	defs.Define(PropertyDefinition{Name: PropBuzzer, Kind: KindBool})
	return defs
}
