package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
)

// StartOptions は WebSocketTransport の起動オプションを表す
type StartOptions struct {
	// 待ち受けを開始したときに close される (nil なら通知しない)
	Ready chan struct{}
	// 実際に待ち受けたアドレスを受け取る (":0" で起動したとき用)。受信側がいないとブロックする
	Addr chan<- net.Addr
}

// WebSocketTransport はWebSocketサーバーのネットワーク層を抽象化するインターフェース
type WebSocketTransport interface {
	// Start は待ち受けを開始し、Stop されるまでブロックする
	Start(options StartOptions) error

	Stop() error

	// SetMessageHandler は受信したメッセージを渡すハンドラを設定する。
	// connID は接続ごとに一意で、SendMessage の宛先に使う
	SetMessageHandler(handler func(connID string, message []byte) error)

	SendMessage(connID string, message []byte) error
}

// wsClient は1つの接続と、その書き込みを直列化するロック
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) write(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// ErrClientNotFound は SendMessage の宛先が既に切断されていることを表す
var ErrClientNotFound = errors.New("client not found")

// DefaultWebSocketTransport は WebSocketTransport インターフェースのデフォルト実装
type DefaultWebSocketTransport struct {
	ctx      context.Context
	cancel   context.CancelFunc
	server   *http.Server
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient
	handler func(connID string, message []byte) error
}

// NewDefaultWebSocketTransport は addr の /ws で待ち受ける DefaultWebSocketTransport を作成する
func NewDefaultWebSocketTransport(ctx context.Context, addr string) *DefaultWebSocketTransport {
	transportCtx, cancel := context.WithCancel(ctx)

	t := &DefaultWebSocketTransport{
		ctx:    transportCtx,
		cancel: cancel,
		upgrader: websocket.Upgrader{
			// ローカルのツールから使うので Origin は検査しない
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*wsClient),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", t.handleWebSocket)
	t.server = &http.Server{
		Addr:        addr,
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return transportCtx },
	}
	return t
}

// Handler は /ws を含む http.Handler を返す (httptest 用)
func (t *DefaultWebSocketTransport) Handler() http.Handler {
	return t.server.Handler
}

func (t *DefaultWebSocketTransport) Start(options StartOptions) error {
	listener, err := net.Listen("tcp", t.server.Addr)
	if err != nil {
		return err
	}
	if options.Addr != nil {
		options.Addr <- listener.Addr()
	}
	if options.Ready != nil {
		close(options.Ready)
	}
	slog.Info("WebSocket server listening", "addr", listener.Addr().String())

	if err := t.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (t *DefaultWebSocketTransport) Stop() error {
	slog.Info("Stopping WebSocket server", "addr", t.server.Addr)
	t.cancel()
	err := t.server.Shutdown(context.Background())
	if err != nil {
		slog.Warn("Error shutting down WebSocket server", "err", err)
	}

	// Shutdown は hijack された接続を閉じないので、ここで閉じる
	t.mu.Lock()
	for id, c := range t.clients {
		_ = c.conn.Close()
		delete(t.clients, id)
	}
	t.mu.Unlock()
	return err
}

func (t *DefaultWebSocketTransport) SetMessageHandler(handler func(connID string, message []byte) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

func (t *DefaultWebSocketTransport) SendMessage(connID string, message []byte) error {
	t.mu.RLock()
	c, ok := t.clients[connID]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrClientNotFound, connID)
	}

	if err := c.write(message); err != nil {
		if isConnectionClosedError(err) {
			t.removeClient(connID)
		}
		return fmt.Errorf("failed to send message to client %s: %w", connID, err)
	}
	return nil
}

// isConnectionClosedError は err が切断済みの接続によるものかどうかを返す
func isConnectionClosedError(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) ||
		errors.Is(err, websocket.ErrCloseSent) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}

func (t *DefaultWebSocketTransport) addClient(conn *websocket.Conn) string {
	connID := fmt.Sprintf("%p", conn)
	t.mu.Lock()
	t.clients[connID] = &wsClient{conn: conn}
	t.mu.Unlock()
	return connID
}

func (t *DefaultWebSocketTransport) removeClient(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.clients, connID)
}

func (t *DefaultWebSocketTransport) messageHandler() func(connID string, message []byte) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.handler
}

func (t *DefaultWebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Error upgrading to WebSocket", "err", err, "remote_addr", r.RemoteAddr)
		return
	}
	defer conn.Close()

	connID := t.addClient(conn)
	defer t.removeClient(connID)
	slog.Debug("WebSocket connection established", "connID", connID, "remote_addr", r.RemoteAddr)

	// 1接続のリクエストは受信順に処理する
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !isConnectionClosedError(err) {
				slog.Warn("WebSocket read failed", "connID", connID, "err", err)
			}
			break
		}

		handler := t.messageHandler()
		if handler == nil {
			continue
		}
		if err := handler(connID, message); err != nil &&
			!isConnectionClosedError(err) && !errors.Is(err, ErrClientNotFound) {
			slog.Error("Error in message handler", "connID", connID, "err", err)
		}
	}
	slog.Debug("WebSocket connection closed", "connID", connID)
}
