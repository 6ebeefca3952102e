package miot

import (
	"encoding/json"
	"fmt"
)

// PropertyName は MIoT デバイスの論理プロパティ名を表します。
// 文字列によるプロパティ参照を閉じた列挙型に置き換えるためのものです。
type PropertyName int

const (
	PropertyUnknown PropertyName = iota
	PropPower
	PropMode
	PropAQI
	PropFavoriteRPM
	PropFilterLifeRemaining
	PropFilterHoursUsed
	PropLEDBrightnessLevel
	PropBuzzer
)

// ワイヤ上(デバイス内部)のプロパティ名
var propertyWireNames = map[PropertyName]string{
	PropPower:               "power",
	PropMode:                "mode",
	PropAQI:                 "aqi",
	PropFavoriteRPM:         "favorite_rpm",
	PropFilterLifeRemaining: "filter_life_remaining",
	PropFilterHoursUsed:     "filter_hours_used",
	PropLEDBrightnessLevel:  "led_brightness_level",
	PropBuzzer:              "buzzer",
}

var propertyByWireName = func() map[string]PropertyName {
	m := make(map[string]PropertyName, len(propertyWireNames))
	for name, wire := range propertyWireNames {
		m[wire] = name
	}
	return m
}()

// ParsePropertyName はワイヤ名から PropertyName を求めます。
// 未知の名前の場合は (PropertyUnknown, false) を返します。
func ParsePropertyName(s string) (PropertyName, bool) {
	if p, ok := propertyByWireName[s]; ok {
		return p, true
	}
	return PropertyUnknown, false
}

func (p PropertyName) String() string {
	if s, ok := propertyWireNames[p]; ok {
		return s
	}
	return fmt.Sprintf("PropertyName(%d)", int(p))
}

func (p PropertyName) IsKnown() bool {
	_, ok := propertyWireNames[p]
	return ok
}

// MarshalJSON は PropertyName をワイヤ名の文字列としてエンコードします。
func (p PropertyName) MarshalJSON() ([]byte, error) {
	if !p.IsKnown() {
		return nil, &UnknownPropertyError{Name: p.String()}
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON はワイヤ名の文字列から PropertyName をデコードします。
func (p *PropertyName) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("PropertyName should be a string, got %s: %w", data, err)
	}
	name, ok := ParsePropertyName(s)
	if !ok {
		return &UnknownPropertyError{Name: s}
	}
	*p = name
	return nil
}
