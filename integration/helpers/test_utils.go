//go:build integration

package helpers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/salamwaddah/mi-api/protocol"
)

// WebSocketConnection はWebSocket接続のテスト用ラッパー
type WebSocketConnection struct {
	conn   *websocket.Conn
	url    string
	closed bool
	nextID int
}

// NewWebSocketConnection は新しいWebSocket接続を作成する
func NewWebSocketConnection(serverURL string) (*WebSocketConnection, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	return &WebSocketConnection{
		conn: conn,
		url:  serverURL,
	}, nil
}

// SendRaw はテキストメッセージをそのまま送信する
func (wsc *WebSocketConnection) SendRaw(message []byte) error {
	if wsc.closed {
		return fmt.Errorf("connection already closed")
	}
	return wsc.conn.WriteMessage(websocket.TextMessage, message)
}

// ReceiveResponse は応答を1つ受信する
func (wsc *WebSocketConnection) ReceiveResponse(timeout time.Duration) (*protocol.Response, error) {
	if wsc.closed {
		return nil, fmt.Errorf("connection already closed")
	}

	// タイムアウトを設定
	if timeout > 0 {
		_ = wsc.conn.SetReadDeadline(time.Now().Add(timeout))
	}

	_, data, err := wsc.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to receive message: %w", err)
	}
	return protocol.ParseResponse(data)
}

// Call はリクエストを送信して応答を待つ
func (wsc *WebSocketConnection) Call(method string, params any, timeout time.Duration) (*protocol.Response, error) {
	wsc.nextID++
	data, err := protocol.CreateRequest(wsc.nextID, method, params)
	if err != nil {
		return nil, err
	}
	if err := wsc.SendRaw(data); err != nil {
		return nil, err
	}
	return wsc.ReceiveResponse(timeout)
}

// Close はWebSocket接続を閉じる
func (wsc *WebSocketConnection) Close() error {
	if wsc.closed {
		return nil
	}

	wsc.closed = true
	return wsc.conn.Close()
}

// DecodeResult は応答の result を v にデコードする
func DecodeResult(t *testing.T, res *protocol.Response, v any) {
	t.Helper()

	if res.Error != nil {
		t.Fatalf("unexpected error response: %v", res.Error)
	}
	if err := json.Unmarshal(res.Result, v); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
}
