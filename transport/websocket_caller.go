// Package transport は miot.Caller の実装を提供します。
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/salamwaddah/mi-api/miot"
	"github.com/salamwaddah/mi-api/protocol"
)

const DefaultCallTimeout = 10 * time.Second

// ErrClosed は接続が閉じられた後の呼び出しで返されます。
var ErrClosed = errors.New("transport closed")

// WebSocketCallerOptions は WebSocketCaller の設定です。
type WebSocketCallerOptions struct {
	CallTimeout time.Duration // ctx に期限がないときのタイムアウト (0 なら DefaultCallTimeout)
	Retry       RetryConfig
	Dialer      *websocket.Dialer // nil なら websocket.DefaultDialer
}

// WebSocketCaller は RPC サーバーに websocket で接続する miot.Caller です。
// 応答はリクエスト ID で対応付けられるので、複数の Call を同時に行えます。
type WebSocketCaller struct {
	ctx    context.Context
	cancel context.CancelFunc
	url    string
	opts   WebSocketCallerOptions

	conn    *websocket.Conn
	writeMu sync.Mutex

	requestID   int
	requestIDMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[int]chan *protocol.Response
	done      chan struct{}
	closeErr  error
}

var _ miot.Caller = (*WebSocketCaller)(nil)

// NewWebSocketCaller は serverURL に接続する WebSocketCaller を作成します。接続は Connect で行います。
func NewWebSocketCaller(ctx context.Context, serverURL string, opts WebSocketCallerOptions) (*WebSocketCaller, error) {
	if _, err := url.Parse(serverURL); err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	callerCtx, cancel := context.WithCancel(ctx)
	return &WebSocketCaller{
		ctx:     callerCtx,
		cancel:  cancel,
		url:     serverURL,
		opts:    opts,
		pending: make(map[int]chan *protocol.Response),
		done:    make(chan struct{}),
	}, nil
}

// Connect はサーバーに接続し、受信ループを開始します。失敗した接続は Retry に従って再試行します。
func (c *WebSocketCaller) Connect(ctx context.Context) error {
	var conn *websocket.Conn
	attempt := 0
	err := WithRetry(ctx, c.opts.Retry, func() error {
		attempt++
		var dialErr error
		conn, _, dialErr = c.opts.Dialer.DialContext(ctx, c.url, nil)
		if dialErr != nil {
			slog.Debug("WebSocket dial failed", "url", c.url, "attempt", attempt, "err", dialErr)
		}
		return dialErr
	})
	if err != nil {
		return fmt.Errorf("error connecting to %s: %w", c.url, err)
	}
	c.conn = conn
	slog.Info("Connected", "url", c.url)

	go c.listenForMessages()
	return nil
}

// Close は接続を閉じ、応答待ちの呼び出しを ErrClosed で終了させます。
func (c *WebSocketCaller) Close() error {
	c.cancel()
	if c.conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *WebSocketCaller) nextID() int {
	c.requestIDMu.Lock()
	defer c.requestIDMu.Unlock()
	c.requestID++
	return c.requestID
}

// Call は method を呼び出して応答の result を返します。
// 応答にエラーがあれば *miot.ProtocolError を返します。
func (c *WebSocketCaller) Call(ctx context.Context, method string, params any, opts *miot.CallOptions) (json.RawMessage, error) {
	if c.conn == nil {
		return nil, errors.New("not connected")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()
	}

	id := c.nextID()
	data, err := protocol.CreateRequest(id, method, params)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	responseCh := make(chan *protocol.Response, 1)
	c.pendingMu.Lock()
	if c.closeErr != nil {
		c.pendingMu.Unlock()
		return nil, c.closeErr
	}
	c.pending[id] = responseCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	select {
	case resp := <-responseCh:
		if resp.Error != nil {
			return nil, resp.Error.ProtocolError()
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", method, ctx.Err())
	case <-c.done:
		return nil, c.closeErr
	}
}

func (c *WebSocketCaller) listenForMessages() {
	defer c.fail(ErrClosed)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				slog.Warn("Error reading message", "url", c.url, "err", err)
			}
			return
		}

		resp, err := protocol.ParseResponse(message)
		if err != nil {
			slog.Warn("Error parsing response", "err", err)
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			ch <- resp
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()
		if !ok {
			slog.Debug("Response for unknown request", "id", resp.ID)
		}
	}
}

// fail は以降の呼び出しと応答待ちの呼び出しを err で終了させます。
func (c *WebSocketCaller) fail(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if c.closeErr != nil {
		return
	}
	c.closeErr = err
	close(c.done)
}
