//go:build integration

package tests

import (
	"testing"
	"time"

	"github.com/salamwaddah/mi-api/integration/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerStartupAndShutdown(t *testing.T) {
	server := helpers.NewTestServer()

	// サーバー開始前は実行中でないことを確認
	assert.False(t, server.IsRunning(), "サーバー開始前の状態確認")

	err := server.Start()
	require.NoError(t, err, "サーバーの起動")
	assert.True(t, server.IsRunning(), "サーバー起動後の状態確認")

	wsURL := server.GetWebSocketURL()
	t.Logf("WebSocket URL: %s", wsURL)

	// 接続できることを確認
	wsConn, err := helpers.NewWebSocketConnection(wsURL)
	require.NoError(t, err, "WebSocket接続の作成")
	_ = wsConn.Close()

	err = server.Stop()
	require.NoError(t, err, "サーバーの停止")
	assert.False(t, server.IsRunning(), "サーバー停止後の状態確認")

	// 停止後は接続できない
	assert.Eventually(t, func() bool {
		conn, err := helpers.NewWebSocketConnection(wsURL)
		if err == nil {
			_ = conn.Close()
		}
		return err != nil
	}, 5*time.Second, 100*time.Millisecond, "停止後の接続拒否")
}
