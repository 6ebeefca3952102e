package server

import (
	"context"
	"log/slog"

	"github.com/salamwaddah/mi-api/protocol"
)

// RPCServer は websocket で受け取ったリクエストを protocol.Handler に渡して応答します。
type RPCServer struct {
	ctx       context.Context
	cancel    context.CancelFunc
	transport WebSocketTransport
	handler   protocol.Handler
}

// NewRPCServer は addr で待ち受ける RPCServer を作成します。
func NewRPCServer(ctx context.Context, addr string, handler protocol.Handler) *RPCServer {
	serverCtx, cancel := context.WithCancel(ctx)
	return newRPCServer(serverCtx, cancel, NewDefaultWebSocketTransport(serverCtx, addr), handler)
}

func newRPCServer(ctx context.Context, cancel context.CancelFunc, transport WebSocketTransport, handler protocol.Handler) *RPCServer {
	s := &RPCServer{
		ctx:       ctx,
		cancel:    cancel,
		transport: transport,
		handler:   handler,
	}
	transport.SetMessageHandler(s.handleClientMessage)
	return s
}

// Start はサーバーを起動し、Stop されるまでブロックします。
func (s *RPCServer) Start(options StartOptions) error {
	return s.transport.Start(options)
}

func (s *RPCServer) Stop() error {
	s.cancel()
	return s.transport.Stop()
}

// handleClientMessage is called when a message is received from a client
func (s *RPCServer) handleClientMessage(connID string, message []byte) error {
	return s.transport.SendMessage(connID, s.dispatch(message))
}

// dispatch は1つのリクエストを処理して応答を返します。
func (s *RPCServer) dispatch(message []byte) []byte {
	req, err := protocol.ParseRequest(message)
	if err != nil {
		slog.Warn("Error parsing request", "err", err)
		return mustResponse(0, nil, protocol.Errorf(protocol.ErrorCodeParseError, "error parsing request: %v", err))
	}

	slog.Debug("Handling request", "id", req.ID, "method", req.Method)
	result, err := s.handler.Handle(s.ctx, req.Method, req.Params)
	if err != nil {
		slog.Debug("Request failed", "id", req.ID, "method", req.Method, "err", err)
	}
	return mustResponse(req.ID, result, err)
}

func mustResponse(id int, result any, err error) []byte {
	data, mErr := protocol.CreateResponse(id, result, err)
	if mErr != nil {
		// Error のエンコードは失敗しない
		slog.Error("Error encoding response", "id", id, "err", mErr)
		data, _ = protocol.CreateResponse(id, nil, protocol.Errorf(protocol.ErrorCodeInternalError, "%v", mErr))
	}
	return data
}
