package device

import "context"

// PowerControllable は電源の操作を提供します。
type PowerControllable interface {
	Power() (bool, bool)
	ChangePower(ctx context.Context, on bool) error
}

// ModeControllable は運転モードの操作を提供します。
type ModeControllable interface {
	Mode() (string, bool)
	Modes() []string
	ChangeMode(ctx context.Context, mode string) error
}

// AQISensor は PM2.5 の値を提供します。
type AQISensor interface {
	AQI() (int, bool)
}

// LEDBrightnessControllable は表示 LED の明るさの操作を提供します。
type LEDBrightnessControllable interface {
	LEDBrightness() (string, bool)
	ChangeLEDBrightness(ctx context.Context, level string) error
}

// BuzzerControllable はブザーの操作を提供します。
type BuzzerControllable interface {
	Buzzer() (bool, bool)
	ChangeBuzzer(ctx context.Context, on bool) error
}

// PropertyLoader はプロパティの一括取得とキャッシュの参照を提供します。
type PropertyLoader interface {
	PropertyNames() []string
	LoadProperties(ctx context.Context, names []string) (map[string]any, error)
	Property(name string) (any, bool)
	Properties() map[string]any
}

// AirPurifierDevice は空気清浄機が持つ機能の合成です。
type AirPurifierDevice interface {
	PropertyLoader
	PowerControllable
	ModeControllable
	AQISensor
	LEDBrightnessControllable
	BuzzerControllable

	Type() string
	ID() string
	FavoriteRPM(ctx context.Context, level *int) (int, error)
	SetFavoriteRPM(ctx context.Context, value int) error
	FilterLifeRemaining() (int, bool)
	FilterHoursUsed() (int, bool)
}

var _ AirPurifierDevice = (*AirPurifier)(nil)
