package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/salamwaddah/mi-api/miot"
	"golang.org/x/exp/slices"
)

// コマンドの種類を表す型
type CommandType int

const (
	CmdUnknown CommandType = iota
	CmdQuit
	CmdHelp
	CmdGet
	CmdProps
	CmdPower
	CmdMode
	CmdFavoriteRPM
	CmdLED
	CmdBuzzer
	CmdDebug
)

// コマンドを表す構造体
type Command struct {
	Type       CommandType
	Properties []string      // get コマンドのプロパティ名 (空なら全て)
	Unknown    []string      // get コマンドの未知のプロパティ名 (取得時に無視される)
	OnOff      *bool         // power/buzzer コマンドの値
	Mode       string        // mode コマンドのモード名
	RPM        *int          // rpm コマンドの値 (nil なら現在値を表示)
	LEDLevel   string        // led コマンドの明るさ
	HelpTopic  *string       // help コマンドの対象
	DebugMode  *string       // debugコマンドのモード ("on" または "off")
	Done       chan struct{} // コマンド実行完了を通知するチャネル
	Error      error         // コマンド実行中に発生したエラー
}

// CommandParser は入力行を Command に変換する
type CommandParser struct {
	propertyNames []string
	modes         []string
}

// NewCommandParser は propertyNames と modes を補完と検証に使う CommandParser を作成する
func NewCommandParser(propertyNames, modes []string) *CommandParser {
	return &CommandParser{
		propertyNames: propertyNames,
		modes:         modes,
	}
}

// 基本的なコマンドオブジェクトを作成するヘルパー関数
func newCommand(cmdType CommandType) *Command {
	return &Command{
		Done: make(chan struct{}),
		Type: cmdType,
	}
}

type InvalidArgument struct {
	Argument string
}

func (e *InvalidArgument) Error() string {
	return fmt.Sprintf("無効な引数: %s", e.Argument)
}

// parseOnOff は on/off の値をパースする
func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, &InvalidArgument{Argument: s}
}

// parseRPM は回転数をパースする。範囲外の値はエラー
func parseRPM(s string) (int, error) {
	rpm, err := strconv.Atoi(s)
	if err != nil {
		return 0, &InvalidArgument{Argument: s}
	}
	if rpm < miot.FavoriteRPMMin || rpm > miot.FavoriteRPMMax {
		return 0, fmt.Errorf("回転数は %d から %d の範囲で指定してください: %d", miot.FavoriteRPMMin, miot.FavoriteRPMMax, rpm)
	}
	return rpm, nil
}

// isPropertyName は s が表示名かワイヤ名のどちらかなら true を返す
func (p CommandParser) isPropertyName(s string) bool {
	if slices.Contains(p.propertyNames, s) {
		return true
	}
	_, ok := miot.ParsePropertyName(s)
	return ok
}

// コマンドをパースする
func (p CommandParser) ParseCommand(input string) (*Command, error) {
	parts := splitWords(strings.TrimSpace(input))
	// splitWords は末尾の空白を空文字列で表すので取り除く
	parts = slices.DeleteFunc(parts, func(s string) bool { return s == "" })
	if len(parts) == 0 {
		return nil, nil
	}

	commandName := parts[0]

	// テーブルから一致するコマンドを探す
	if cmdDef, ok := FindCommand(commandName); ok {
		if cmdDef.ParseFunc != nil {
			return cmdDef.ParseFunc(p, parts)
		}
		return newCommand(CmdUnknown), nil
	}

	return nil, fmt.Errorf("unknown command: %s", commandName)
}
