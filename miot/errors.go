package miot

import (
	"errors"
	"fmt"
)

// MIoT プロトコルのエラーコード
const (
	CodeOK                  = 0
	CodePropertyNotReadable = -4001
	CodePropertyNotWritable = -4002
	CodePropertyNotFound    = -4003
	CodeUnsupportedValue    = -5001 // 値がサポートされていない
)

// ProtocolError はデバイスまたはトランスポートが返したコード付きのエラーです。
type ProtocolError struct {
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("miot error %d", e.Code)
	}
	return fmt.Sprintf("miot error %d: %s", e.Code, e.Message)
}

// ErrorCode は err のチェーンに含まれる ProtocolError のコードを返します。
func ErrorCode(err error) (int, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return 0, false
}

// UnknownPropertyError は Service Map に存在しないプロパティが指定されたことを表します。
type UnknownPropertyError struct {
	Name string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("unknown property: %s", e.Name)
}

// ValidationError はデバイスに送信する前に検出された不正な値を表します。
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Value)
}

// ModeNotSupportedError はデバイスがモード変更を拒否したことを表します。
type ModeNotSupportedError struct {
	Mode string
	Err  error // デバイスが返した元のエラー
}

func (e *ModeNotSupportedError) Error() string {
	return fmt.Sprintf("mode `%s` not supported", e.Mode)
}

func (e *ModeNotSupportedError) Unwrap() error {
	return e.Err
}
