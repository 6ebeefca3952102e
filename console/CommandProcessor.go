package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/salamwaddah/mi-api/device"
	"github.com/salamwaddah/mi-api/miot"
)

// CommandProcessor は、コマンド処理を担当する構造体
type CommandProcessor struct {
	device  device.AirPurifierDevice
	out     io.Writer
	level   *slog.LevelVar // nil なら debug コマンドは使えない
	cmdChan chan *Command
	done    chan struct{}
	ctx     context.Context    // コンテキスト
	cancel  context.CancelFunc // コンテキストのキャンセル関数
}

// NewCommandProcessor は、CommandProcessor の新しいインスタンスを作成する
func NewCommandProcessor(ctx context.Context, dev device.AirPurifierDevice, out io.Writer, level *slog.LevelVar) *CommandProcessor {
	// コマンドプロセッサ用のコンテキストを作成
	processorCtx, cancel := context.WithCancel(ctx)

	return &CommandProcessor{
		device:  dev,
		out:     out,
		level:   level,
		cmdChan: make(chan *Command),
		done:    make(chan struct{}),
		ctx:     processorCtx,
		cancel:  cancel,
	}
}

// Start は、コマンド処理を開始する
func (p *CommandProcessor) Start() {
	go p.processCommands()
}

// Stop は、コマンド処理を停止する
func (p *CommandProcessor) Stop() {
	p.cancel()
	<-p.done // コマンド処理goroutineの終了を待つ
}

// SendCommand は、コマンドを送信し、結果のエラーを返す
func (p *CommandProcessor) SendCommand(cmd *Command) error {
	select {
	case p.cmdChan <- cmd:
	case <-p.done:
		return errors.New("command processor stopped")
	}
	<-cmd.Done       // コマンドの実行が完了するまで待つ
	return cmd.Error // コマンド実行中のエラーを返す
}

// processCommands は、コマンドを処理するgoroutine
func (p *CommandProcessor) processCommands() {
	defer close(p.done)

	for {
		select {
		case <-p.ctx.Done():
			return
		case cmd := <-p.cmdChan:
			cmd.Error = p.execute(cmd)
			close(cmd.Done)
		}
	}
}

func (p *CommandProcessor) execute(cmd *Command) error {
	switch cmd.Type {
	case CmdHelp:
		PrintUsage(p.out, cmd.HelpTopic)
		return nil
	case CmdGet:
		return p.processGetCommand(cmd)
	case CmdProps:
		p.printProperties(p.device.Properties())
		return nil
	case CmdPower:
		if err := p.device.ChangePower(p.ctx, *cmd.OnOff); err != nil {
			return err
		}
		fmt.Fprintf(p.out, "power: %s\n", onOffString(*cmd.OnOff))
		return nil
	case CmdMode:
		if err := p.device.ChangeMode(p.ctx, cmd.Mode); err != nil {
			var unsupported *miot.ModeNotSupportedError
			if errors.As(err, &unsupported) {
				return fmt.Errorf("このデバイスは %s モードに対応していません", unsupported.Mode)
			}
			return err
		}
		fmt.Fprintf(p.out, "mode: %s\n", cmd.Mode)
		return nil
	case CmdFavoriteRPM:
		rpm, err := p.device.FavoriteRPM(p.ctx, cmd.RPM)
		if err != nil {
			if errors.Is(err, device.ErrNotLoaded) {
				return fmt.Errorf("回転数はまだ取得されていません。'get favoriteRPM' を実行してください")
			}
			return err
		}
		fmt.Fprintf(p.out, "favoriteRPM: %d\n", rpm)
		return nil
	case CmdLED:
		if err := p.device.ChangeLEDBrightness(p.ctx, cmd.LEDLevel); err != nil {
			return err
		}
		fmt.Fprintf(p.out, "led: %s\n", cmd.LEDLevel)
		return nil
	case CmdBuzzer:
		if err := p.device.ChangeBuzzer(p.ctx, *cmd.OnOff); err != nil {
			return err
		}
		fmt.Fprintf(p.out, "buzzer: %s\n", onOffString(*cmd.OnOff))
		return nil
	case CmdDebug:
		return p.processDebugCommand(cmd)
	default:
		return fmt.Errorf("未実装のコマンド: %d", cmd.Type)
	}
}

func (p *CommandProcessor) processGetCommand(cmd *Command) error {
	if len(cmd.Unknown) > 0 {
		_, _ = hintColor.Fprintf(p.out, "不明なプロパティを無視します: %s\n", strings.Join(cmd.Unknown, ", "))
	}
	names := cmd.Properties
	if len(names) == 0 {
		names = p.device.PropertyNames()
	}
	values, err := p.device.LoadProperties(p.ctx, names)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		fmt.Fprintln(p.out, "取得できるプロパティがありません")
		return nil
	}
	p.printProperties(values)
	return nil
}

// printProperties はプロパティを名前順に表示する
func (p *CommandProcessor) printProperties(values map[string]any) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := values[name]
		if v == nil {
			fmt.Fprintf(p.out, "  %s: (unavailable)\n", name)
			continue
		}
		fmt.Fprintf(p.out, "  %s: %v\n", name, v)
	}
}

func (p *CommandProcessor) processDebugCommand(cmd *Command) error {
	if p.level == nil {
		return errors.New("debug level is not configurable")
	}
	if cmd.DebugMode == nil {
		fmt.Fprintf(p.out, "debug: %s\n", onOffString(p.level.Level() <= slog.LevelDebug))
		return nil
	}
	if *cmd.DebugMode == "on" {
		p.level.Set(slog.LevelDebug)
	} else {
		p.level.Set(slog.LevelInfo)
	}
	fmt.Fprintf(p.out, "debug: %s\n", *cmd.DebugMode)
	return nil
}

func onOffString(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
