package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salamwaddah/mi-api/config"
	"github.com/salamwaddah/mi-api/console"
	"github.com/salamwaddah/mi-api/device"
	"github.com/salamwaddah/mi-api/log"
	"github.com/salamwaddah/mi-api/miot"
	"github.com/salamwaddah/mi-api/server"
	"github.com/salamwaddah/mi-api/simulator"
	"github.com/salamwaddah/mi-api/transport"
)

// serverStartTimeout はRPCサーバーの待ち受け開始を待つ時間
const serverStartTimeout = 5 * time.Second

func main() {
	// コマンドライン引数の解析
	args, err := config.ParseCommandLineArgs()
	if err != nil {
		// エラーとヘルプは flag パッケージが表示済み
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	// 設定ファイルの読み込み
	cfg, err := config.LoadConfig(args.ConfigFile)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "設定ファイルの読み込みエラー: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyCommandLineArgs(args)
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "設定エラー: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// ロガーのセットアップ
	logger, err := log.NewLogger(cfg.Log.Filename)
	if err != nil {
		return fmt.Errorf("ログ設定エラー: %w", err)
	}
	log.SetLogger(logger)
	defer log.SetLogger(nil)

	level := log.NewLevel(cfg.Debug)
	slog.SetDefault(slog.New(log.NewSlogHandler(logger, level)))

	// ルートコンテキストの作成
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリングの設定 (SIGINT, SIGTERM)
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	go func() {
		select {
		case <-signalCh:
			fmt.Println("\nシグナルを受信しました。終了します...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// ログローテーション用のシグナルハンドリング (SIGHUP)
	rotateSignalCh := make(chan os.Signal, 1)
	signal.Notify(rotateSignalCh, syscall.SIGHUP)
	defer signal.Stop(rotateSignalCh)
	go func() {
		for {
			select {
			case <-rotateSignalCh:
				slog.Info("SIGHUP received, rotating log file")
				if err := log.GetLogger().Rotate(); err != nil {
					_, _ = fmt.Fprintf(os.Stderr, "ログローテーションエラー: %v\n", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// RPCサーバー (シミュレーターを公開する)
	var sim *simulator.Simulator
	if cfg.Server.Enabled || cfg.Simulator.Enabled {
		sim, err = newSimulator(cfg)
		if err != nil {
			return err
		}
	}
	if cfg.Server.Enabled {
		rpcServer := server.NewRPCServer(ctx, cfg.ServerAddr(), sim)
		if err := startServer(rpcServer); err != nil {
			return err
		}
		defer func() {
			if err := rpcServer.Stop(); err != nil {
				slog.Warn("Error stopping RPC server", "err", err)
			}
		}()
		fmt.Printf("RPCサーバーを起動しました: ws://%s/ws\n", cfg.ServerAddr())
	}

	caller, closeCaller, err := newCaller(ctx, cfg, sim)
	if err != nil {
		return err
	}
	defer closeCaller()

	dev, err := newDevice(ctx, cfg, caller)
	if err != nil {
		return err
	}
	defer func() {
		_ = dev.Close()
	}()

	err = console.ConsoleProcess(ctx, dev, level)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newSimulator(cfg *config.Config) (*simulator.Simulator, error) {
	did := ""
	if cfg.Device.ID != 0 {
		did = fmt.Sprint(cfg.Device.ID)
	}
	sim := simulator.New(did)
	if err := sim.SetUnsupportedModes(cfg.Simulator.UnsupportedModes...); err != nil {
		return nil, fmt.Errorf("simulator.unsupported_modes: %w", err)
	}
	return sim, nil
}

// startServer はサーバーを別のgoroutineで起動し、待ち受けが始まるまで待つ
func startServer(s *server.RPCServer) error {
	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(server.StartOptions{Ready: ready}); err != nil {
			slog.Error("RPC server stopped", "err", err)
			errCh <- err
		}
	}()

	select {
	case <-ready:
		return nil
	case err := <-errCh:
		return fmt.Errorf("RPCサーバーの起動に失敗しました: %w", err)
	case <-time.After(serverStartTimeout):
		return errors.New("RPCサーバーの起動がタイムアウトしました")
	}
}

// newCaller はシミュレーターを直接呼ぶか、websocket で接続する miot.Caller を作成する
func newCaller(ctx context.Context, cfg *config.Config, sim *simulator.Simulator) (miot.Caller, func(), error) {
	if cfg.Simulator.Enabled && !cfg.Server.Enabled {
		slog.Info("Using in-process simulator")
		return transport.NewLocalCaller(sim), func() {}, nil
	}

	callTimeout, err := cfg.CallTimeout()
	if err != nil {
		return nil, nil, err
	}
	retry := transport.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Transport.ConnectRetries + 1

	caller, err := transport.NewWebSocketCaller(ctx, cfg.ConnectURL(), transport.WebSocketCallerOptions{
		CallTimeout: callTimeout,
		Retry:       retry,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := caller.Connect(ctx); err != nil {
		return nil, nil, err
	}
	return caller, func() {
		if err := caller.Close(); err != nil {
			slog.Debug("Error closing connection", "err", err)
		}
	}, nil
}

func newDevice(ctx context.Context, cfg *config.Config, caller miot.Caller) (*device.AirPurifier, error) {
	delay, err := cfg.RefreshDelay()
	if err != nil {
		return nil, err
	}
	opts := []device.Option{device.WithRefreshDelay(delay)}
	if delay == 0 {
		opts = append(opts, device.WithoutRefresh())
	}
	return device.NewAirPurifier(ctx, cfg.Device.ID, caller, opts...), nil
}
