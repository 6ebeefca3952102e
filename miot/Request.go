package miot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RPC メソッド名
const (
	MethodGetProperties = "get_properties"
	MethodSetProperties = "set_properties"
)

// GetRequest は get_properties の1項目です。
type GetRequest struct {
	PropertyAddress
}

// SetRequest は set_properties の1項目です。
type SetRequest struct {
	PropertyAddress
	Value any `json:"value"`
}

// PropertyResult は get_properties / set_properties のレスポンスの1項目です。
// 応答の並びはリクエストの並びと一致します。
type PropertyResult struct {
	PropertyAddress
	Code  int             `json:"code"`
	Value json.RawMessage `json:"value,omitempty"`
}

// RefreshSpec は書き込み後に再取得すべきプロパティと待ち時間です。
type RefreshSpec struct {
	Properties []string
	Delay      time.Duration
}

// CallOptions は Caller.Call の付加情報です。
type CallOptions struct {
	Refresh *RefreshSpec
}

// Caller はデバイスへの RPC 呼び出しを行うトランスポートです。
// 接続、認証、タイムアウト、再送は実装側の責務です。
type Caller interface {
	Call(ctx context.Context, method string, params any, opts *CallOptions) (json.RawMessage, error)
}

// CallerFunc は関数を Caller として扱うためのアダプタです。
type CallerFunc func(ctx context.Context, method string, params any, opts *CallOptions) (json.RawMessage, error)

func (f CallerFunc) Call(ctx context.Context, method string, params any, opts *CallOptions) (json.RawMessage, error) {
	return f(ctx, method, params, opts)
}

// ParseResults は get/set_properties のレスポンスをデコードします。
func ParseResults(raw json.RawMessage) ([]PropertyResult, error) {
	var results []PropertyResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("invalid property response: %w", err)
	}
	return results, nil
}

// CheckOK は書き込みレスポンスが成功を示しているか検証します。
// "ok" / ["ok"] と、すべての項目の code が 0 の配列を成功とみなします。
func CheckOK(raw json.RawMessage) error {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(s, "ok") {
			return nil
		}
		return &ProtocolError{Code: -1, Message: "could not perform operation: " + s}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return &ProtocolError{Code: -1, Message: "could not perform operation"}
	}
	for i, item := range items {
		var str string
		if err := json.Unmarshal(item, &str); err == nil {
			if strings.EqualFold(str, "ok") {
				continue
			}
			return &ProtocolError{Code: -1, Message: fmt.Sprintf("item %d: %q", i, str)}
		}
		var r PropertyResult
		if err := json.Unmarshal(item, &r); err != nil {
			return &ProtocolError{Code: -1, Message: fmt.Sprintf("item %d: malformed result", i)}
		}
		if r.Code != CodeOK {
			return &ProtocolError{
				Code:    r.Code,
				Message: fmt.Sprintf("siid %d piid %d rejected", r.ServiceID, r.PropertyID),
			}
		}
	}
	return nil
}
