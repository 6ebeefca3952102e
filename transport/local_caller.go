package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/salamwaddah/mi-api/miot"
	"github.com/salamwaddah/mi-api/protocol"
)

// LocalCaller は protocol.Handler をプロセス内で呼び出す miot.Caller です。
// リクエストと応答は websocket と同じく JSON を経由します。
type LocalCaller struct {
	handler protocol.Handler
}

var _ miot.Caller = (*LocalCaller)(nil)

func NewLocalCaller(handler protocol.Handler) *LocalCaller {
	return &LocalCaller{handler: handler}
}

func (c *LocalCaller) Call(ctx context.Context, method string, params any, opts *miot.CallOptions) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("error encoding params: %w", err)
		}
		raw = b
	}

	result, err := c.handler.Handle(ctx, method, raw)
	if err != nil {
		return nil, protocol.ToError(err).ProtocolError()
	}
	b, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("error encoding result: %w", err)
	}
	return b, nil
}
