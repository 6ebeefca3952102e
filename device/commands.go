package device

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/salamwaddah/mi-api/miot"
)

// 電源断の前に書き込む mode のコード
var idleModeCode, _ = miot.ModeValues.Encode(miot.ModeIdle)

func (d *AirPurifier) setRequest(name miot.PropertyName, value any) (miot.SetRequest, error) {
	addr, err := d.services.AddressOf(name, d.did)
	if err != nil {
		return miot.SetRequest{}, err
	}
	return miot.SetRequest{PropertyAddress: addr, Value: value}, nil
}

// refreshOptions は power と mode を再取得する呼び出しオプションを返します。
func (d *AirPurifier) refreshOptions() *miot.CallOptions {
	return &miot.CallOptions{
		Refresh: &miot.RefreshSpec{
			Properties: []string{miot.PropPower.String(), miot.PropMode.String()},
			Delay:      d.refreshDelay,
		},
	}
}

// call は caller を呼び出し、成功したらオプションに従って再取得を予約します。
func (d *AirPurifier) call(ctx context.Context, method string, params any, opts *miot.CallOptions) (json.RawMessage, error) {
	slog.Debug("Calling device", "device", d.did, "method", method)
	raw, err := d.caller.Call(ctx, method, params, opts)
	if err != nil {
		slog.Debug("Device call failed", "device", d.did, "method", method, "err", err)
		return nil, err
	}
	if opts != nil && opts.Refresh != nil {
		d.scheduleRefresh(*opts.Refresh)
	}
	return raw, nil
}

// ChangePower は電源を切り替えます。
// 電源を切るときは同じバッチの先頭で mode を idle に書き込みます。
func (d *AirPurifier) ChangePower(ctx context.Context, on bool) error {
	items := make([]miot.SetRequest, 0, 2)
	if !on {
		item, err := d.setRequest(miot.PropMode, idleModeCode)
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	item, err := d.setRequest(miot.PropPower, on)
	if err != nil {
		return err
	}
	items = append(items, item)

	_, err = d.call(ctx, miot.MethodSetProperties, items, d.refreshOptions())
	return err
}

// ChangeMode は運転モードを変更します。
// 未知のモード名は auto (コード 0) として書き込まれます。
// デバイスが -5001 で拒否した場合は ModeNotSupportedError を返します。
func (d *AirPurifier) ChangeMode(ctx context.Context, mode string) error {
	if !miot.ModeValues.Contains(mode) {
		slog.Warn("Unknown mode, falling back to default code", "device", d.did, "mode", mode, "code", miot.ModeFallbackCode)
	}
	value := d.services.EncodeFor(miot.PropMode)(mode)
	item, err := d.setRequest(miot.PropMode, value)
	if err != nil {
		return err
	}

	raw, err := d.call(ctx, miot.MethodSetProperties, []miot.SetRequest{item}, d.refreshOptions())
	if err == nil {
		err = miot.CheckOK(raw)
	}
	if err != nil {
		return translateModeError(mode, err)
	}
	return nil
}

// translateModeError は -5001 を ModeNotSupportedError に置き換えます。
// それ以外のエラーはそのまま返します。
func translateModeError(mode string, err error) error {
	if code, ok := miot.ErrorCode(err); ok && code == miot.CodeUnsupportedValue {
		return &miot.ModeNotSupportedError{Mode: mode, Err: err}
	}
	return err
}

// FavoriteRPM は level が nil のときはキャッシュされた favorite モードの回転数を返し、
// そうでなければ SetFavoriteRPM で書き込みます。
func (d *AirPurifier) FavoriteRPM(ctx context.Context, level *int) (int, error) {
	if level == nil {
		v, ok := d.intProperty(miot.PropFavoriteRPM)
		if !ok {
			return 0, ErrNotLoaded
		}
		return v, nil
	}
	if err := d.SetFavoriteRPM(ctx, *level); err != nil {
		return 0, err
	}
	return *level, nil
}

// SetFavoriteRPM は favorite モードの回転数を書き込みます。
// 300 から 2200 の範囲は呼び出し側が守る前提で、ここでは検証しません。
func (d *AirPurifier) SetFavoriteRPM(ctx context.Context, value int) error {
	item, err := d.setRequest(miot.PropFavoriteRPM, value)
	if err != nil {
		return err
	}
	_, err = d.call(ctx, miot.MethodSetProperties, []miot.SetRequest{item}, nil)
	return err
}

// ChangeLEDBrightness は LED の明るさを bright, dim, off のいずれかに変更します。
func (d *AirPurifier) ChangeLEDBrightness(ctx context.Context, level string) error {
	code, ok := miot.LEDBrightnessValues.Encode(level)
	if !ok {
		return &miot.ValidationError{Field: "LED brightness", Value: level}
	}
	item, err := d.setRequest(miot.PropLEDBrightnessLevel, code)
	if err != nil {
		return err
	}
	_, err = d.call(ctx, miot.MethodSetProperties, []miot.SetRequest{item}, nil)
	return err
}

// ChangeBuzzer はブザーの有効/無効を切り替えます。
func (d *AirPurifier) ChangeBuzzer(ctx context.Context, on bool) error {
	item, err := d.setRequest(miot.PropBuzzer, on)
	if err != nil {
		return err
	}
	_, err = d.call(ctx, miot.MethodSetProperties, []miot.SetRequest{item}, nil)
	return err
}
