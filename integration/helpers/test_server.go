//go:build integration

package helpers

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/salamwaddah/mi-api/server"
	"github.com/salamwaddah/mi-api/simulator"
)

// TestDeviceID は統合テストで使うデバイスID
const TestDeviceID = 12345

// TestServer は統合テスト用に、シミュレーターを公開する RPC サーバーを管理する
type TestServer struct {
	Server    *server.RPCServer
	Simulator *simulator.Simulator
	Addr      net.Addr
	mu        sync.Mutex
	running   bool
	stopped   chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewTestServer は新しいテストサーバーを作成する
func NewTestServer() *TestServer {
	ctx, cancel := context.WithCancel(context.Background())
	return &TestServer{
		Simulator: simulator.New(fmt.Sprint(TestDeviceID)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start はテストサーバーを空いているポートで起動する
func (ts *TestServer) Start() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.running {
		return fmt.Errorf("server already running")
	}

	ts.Server = server.NewRPCServer(ts.ctx, "localhost:0", ts.Simulator)

	readyChan := make(chan struct{})
	addrChan := make(chan net.Addr, 1)
	errChan := make(chan error, 1)
	ts.stopped = make(chan struct{})
	go func() {
		defer close(ts.stopped)
		if err := ts.Server.Start(server.StartOptions{Ready: readyChan, Addr: addrChan}); err != nil {
			errChan <- err
		}
	}()

	// サーバーが起動するまで待機
	select {
	case <-readyChan:
		ts.Addr = <-addrChan
		ts.running = true
		return nil
	case err := <-errChan:
		return fmt.Errorf("failed to start server: %w", err)
	case <-time.After(10 * time.Second):
		return fmt.Errorf("server start timed out")
	}
}

// Stop はテストサーバーを停止する
func (ts *TestServer) Stop() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.running {
		return nil
	}

	err := ts.Server.Stop()
	<-ts.stopped
	ts.cancel()
	ts.running = false
	return err
}

// GetWebSocketURL はWebSocketのURLを返す
func (ts *TestServer) GetWebSocketURL() string {
	return fmt.Sprintf("ws://%s/ws", ts.Addr.String())
}

// IsRunning はサーバーが実行中かどうかを返す
func (ts *TestServer) IsRunning() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.running
}
