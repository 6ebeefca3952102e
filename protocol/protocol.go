package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/salamwaddah/mi-api/miot"
)

// ErrorCode はサーバー側で発生したエラーのコードです。
// デバイス由来のコード (-4001 など) はそのまま Error.Code に入ります。
const (
	ErrorCodeParseError     = -32700
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternalError  = -32603
)

// Request はクライアントからサーバーへの RPC リクエストです。
type Request struct {
	ID     int             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response はリクエストに対する応答です。Result と Error はどちらか一方だけが入ります。
type Response struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error は応答に含まれるエラーです。
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ProtocolError は Error を miot.ProtocolError に変換します。
func (e *Error) ProtocolError() *miot.ProtocolError {
	return &miot.ProtocolError{Code: e.Code, Message: e.Message}
}

// Handler はサーバーが受け取ったメソッド呼び出しを処理します。
// 返された値は JSON にエンコードされて Result になります。
type Handler interface {
	Handle(ctx context.Context, method string, params json.RawMessage) (any, error)
}

// HandlerFunc は関数を Handler として扱うためのアダプタです。
type HandlerFunc func(ctx context.Context, method string, params json.RawMessage) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	return f(ctx, method, params)
}

// CreateRequest は params をエンコードしてリクエストを作成します。
func CreateRequest(id int, method string, params any) ([]byte, error) {
	req := Request{ID: id, Method: method}
	if params != nil {
		paramBytes, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		req.Params = paramBytes
	}
	return json.Marshal(req)
}

// ParseRequest は JSON をリクエストにデコードします。
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if req.Method == "" {
		return nil, errors.New("missing method")
	}
	return &req, nil
}

// CreateResponse は result または err から応答を作成します。
// err が *Error または *miot.ProtocolError ならそのコードを使い、
// それ以外は ErrorCodeInternalError になります。
func CreateResponse(id int, result any, err error) ([]byte, error) {
	resp := Response{ID: id}
	if err != nil {
		resp.Error = ToError(err)
		return json.Marshal(resp)
	}

	resultBytes, mErr := json.Marshal(result)
	if mErr != nil {
		resp.Error = &Error{Code: ErrorCodeInternalError, Message: mErr.Error()}
		return json.Marshal(resp)
	}
	resp.Result = resultBytes
	return json.Marshal(resp)
}

// ParseResponse は JSON を応答にデコードします。
func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ToError は任意のエラーを応答用の Error に変換します。
func ToError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	if code, ok := miot.ErrorCode(err); ok {
		var pe *miot.ProtocolError
		errors.As(err, &pe)
		return &Error{Code: code, Message: pe.Message}
	}
	return &Error{Code: ErrorCodeInternalError, Message: err.Error()}
}

// Errorf は code のエラーを作成します。
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
