package console

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/fatih/color"
	"github.com/salamwaddah/mi-api/device"
	"golang.org/x/term"
)

// 端末でなければ color が自動的に無効にする
var (
	errorColor = color.New(color.FgRed)
	hintColor  = color.New(color.Faint)
)

// session は1つのコンソールの入力行を処理する
type session struct {
	parser    *CommandParser
	processor *CommandProcessor
	out       io.Writer
	quit      bool
}

func newSession(ctx context.Context, dev device.AirPurifierDevice, out io.Writer, level *slog.LevelVar) *session {
	processor := NewCommandProcessor(ctx, dev, out, level)
	processor.Start()
	return &session{
		parser:    NewCommandParser(dev.PropertyNames(), dev.Modes()),
		processor: processor,
		out:       out,
	}
}

// executeLine は1行をパースして実行する。quit のときは true を返す
func (s *session) executeLine(line string) bool {
	cmd, err := s.parser.ParseCommand(line)
	if err != nil {
		s.printError(err)
		return false
	}
	if cmd == nil {
		return false
	}

	if cmd.Type == CmdQuit {
		// quitコマンドはコマンドチャネル経由で送信せず、直接終了処理を行う
		close(cmd.Done)
		s.quit = true
		return true
	}

	if err := s.processor.SendCommand(cmd); err != nil {
		s.printError(err)
	}
	return false
}

func (s *session) printError(err error) {
	_, _ = errorColor.Fprintf(s.out, "エラー: %v\n", err)
}

func (s *session) close() {
	s.processor.Stop()
}

// ConsoleProcess は標準入力からコマンドを読み込んで dev を操作する。
// 端末なら補完と履歴付きのプロンプトを、そうでなければ1行ずつ読み込む。
// level は debug コマンドで切り替えるログレベル (nil 可)。
func ConsoleProcess(ctx context.Context, dev device.AirPurifierDevice, level *slog.LevelVar) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return RunLines(ctx, dev, level, os.Stdin, os.Stdout)
	}

	s := newSession(ctx, dev, os.Stdout, level)
	defer s.close()

	// コマンドの使用方法を表示
	_, _ = hintColor.Println("help for usage, quit to exit")

	historyFile := getHistoryFilePath()
	history := loadHistory(historyFile)
	saveHistory(historyFile, history)

	c := &completer{parser: *s.parser}
	p := prompt.New(
		func(line string) {
			if strings.TrimSpace(line) == "" {
				return
			}
			appendHistory(historyFile, line)
			s.executeLine(line)
		},
		c.Complete,
		prompt.OptionPrefix("> "),
		prompt.OptionTitle("mi-api"),
		prompt.OptionHistory(history),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && (s.quit || ctx.Err() != nil)
		}),
	)
	p.Run()
	return nil
}

// RunLines は in から1行ずつコマンドを読み込んで実行し、結果を out に書き込む。
// quit、入力の終わり、ctx のキャンセルのいずれかで終了する。
func RunLines(ctx context.Context, dev device.AirPurifierDevice, level *slog.LevelVar, in io.Reader, out io.Writer) error {
	s := newSession(ctx, dev, out, level)
	defer s.close()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.executeLine(scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}
