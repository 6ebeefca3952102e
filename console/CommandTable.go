package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/salamwaddah/mi-api/miot"
	"golang.org/x/exp/slices"
)

// CommandDefinition はコマンドの定義を保持する構造体
type CommandDefinition struct {
	Name              string                                                   // コマンド名
	Aliases           []string                                                 // 別名（例: propsとlistなど）
	Summary           string                                                   // 概要（短い説明）
	Syntax            string                                                   // 構文
	Description       []string                                                 // 詳細説明（各行が1つの要素）
	ParseFunc         func(p CommandParser, parts []string) (*Command, error)  // パース関数
	GetCandidatesFunc func(p CommandParser, d prompt.Document) []prompt.Suggest // 補完候補生成関数
}

func onOffCandidates(p CommandParser, d prompt.Document) []prompt.Suggest {
	if len(splitWords(d.TextBeforeCursor())) > 2 {
		return []prompt.Suggest{}
	}
	return []prompt.Suggest{{Text: "on"}, {Text: "off"}}
}

func parseOnOffCommand(cmdType CommandType, name string) func(p CommandParser, parts []string) (*Command, error) {
	return func(p CommandParser, parts []string) (*Command, error) {
		if len(parts) != 2 {
			return nil, fmt.Errorf("%s コマンドには on または off が必要です", name)
		}
		on, err := parseOnOff(parts[1])
		if err != nil {
			return nil, err
		}
		cmd := newCommand(cmdType)
		cmd.OnOff = &on
		return cmd, nil
	}
}

// CommandTable はコマンドの定義を格納するテーブル
var CommandTable = []CommandDefinition{
	{
		Name:    "get",
		Summary: "プロパティ値の取得",
		Syntax:  "get [property1 property2...]",
		Description: []string{
			"デバイスからプロパティを取得して表示します。",
			"property: プロパティ名（例: power, mode, favoriteRPM）。省略時は全てのプロパティ",
			"未知のプロパティ名は無視されます。",
		},
		GetCandidatesFunc: func(p CommandParser, d prompt.Document) []prompt.Suggest {
			words := splitWords(d.TextBeforeCursor())
			suggests := make([]prompt.Suggest, 0, len(p.propertyNames))
			for _, name := range p.propertyNames {
				if slices.Contains(words[:len(words)-1], name) {
					continue
				}
				suggests = append(suggests, prompt.Suggest{Text: name})
			}
			return suggests
		},
		ParseFunc: func(p CommandParser, parts []string) (*Command, error) {
			cmd := newCommand(CmdGet)
			cmd.Properties = append(cmd.Properties, parts[1:]...)
			for _, name := range cmd.Properties {
				if !p.isPropertyName(name) {
					cmd.Unknown = append(cmd.Unknown, name)
				}
			}
			return cmd, nil
		},
	},
	{
		Name:    "props",
		Aliases: []string{"list"},
		Summary: "キャッシュされたプロパティの表示",
		Syntax:  "props, list",
		Description: []string{
			"最後に取得したプロパティの値を、デバイスに問い合わせずに表示します。",
		},
		ParseFunc: func(p CommandParser, parts []string) (*Command, error) {
			return newCommand(CmdProps), nil
		},
	},
	{
		Name:    "power",
		Summary: "電源の切り替え",
		Syntax:  "power on|off",
		Description: []string{
			"off のときは mode を idle にしてから電源を切ります。",
		},
		GetCandidatesFunc: onOffCandidates,
		ParseFunc:         parseOnOffCommand(CmdPower, "power"),
	},
	{
		Name:    "mode",
		Summary: "運転モードの変更",
		Syntax:  "mode <mode>",
		Description: []string{
			"mode: idle, auto, silent, favorite のいずれか",
			"デバイスが対応していないモードはエラーになります。",
		},
		GetCandidatesFunc: func(p CommandParser, d prompt.Document) []prompt.Suggest {
			if len(splitWords(d.TextBeforeCursor())) > 2 {
				return []prompt.Suggest{}
			}
			suggests := make([]prompt.Suggest, 0, len(p.modes))
			for _, m := range p.modes {
				suggests = append(suggests, prompt.Suggest{Text: m})
			}
			return suggests
		},
		ParseFunc: func(p CommandParser, parts []string) (*Command, error) {
			if len(parts) != 2 {
				return nil, fmt.Errorf("mode コマンドにはモード名が必要です")
			}
			cmd := newCommand(CmdMode)
			cmd.Mode = parts[1]
			return cmd, nil
		},
	},
	{
		Name:    "rpm",
		Summary: "favorite モードの回転数",
		Syntax:  "rpm [value]",
		Description: []string{
			fmt.Sprintf("value: %d から %d の回転数。省略時は現在の値を表示", miot.FavoriteRPMMin, miot.FavoriteRPMMax),
		},
		ParseFunc: func(p CommandParser, parts []string) (*Command, error) {
			cmd := newCommand(CmdFavoriteRPM)
			switch len(parts) {
			case 1:
			case 2:
				rpm, err := parseRPM(parts[1])
				if err != nil {
					return nil, err
				}
				cmd.RPM = &rpm
			default:
				return nil, &InvalidArgument{Argument: parts[2]}
			}
			return cmd, nil
		},
	},
	{
		Name:    "led",
		Summary: "表示 LED の明るさ",
		Syntax:  "led bright|dim|off",
		GetCandidatesFunc: func(p CommandParser, d prompt.Document) []prompt.Suggest {
			if len(splitWords(d.TextBeforeCursor())) > 2 {
				return []prompt.Suggest{}
			}
			names := miot.LEDBrightnessValues.Names()
			suggests := make([]prompt.Suggest, 0, len(names))
			for _, name := range names {
				suggests = append(suggests, prompt.Suggest{Text: name})
			}
			return suggests
		},
		ParseFunc: func(p CommandParser, parts []string) (*Command, error) {
			if len(parts) != 2 {
				return nil, fmt.Errorf("led コマンドには明るさが必要です")
			}
			cmd := newCommand(CmdLED)
			cmd.LEDLevel = parts[1]
			return cmd, nil
		},
	},
	{
		Name:              "buzzer",
		Summary:           "ブザーの有効/無効",
		Syntax:            "buzzer on|off",
		GetCandidatesFunc: onOffCandidates,
		ParseFunc:         parseOnOffCommand(CmdBuzzer, "buzzer"),
	},
	{
		Name:    "debug",
		Summary: "デバッグログの切り替え",
		Syntax:  "debug [on|off]",
		Description: []string{
			"引数無しの場合は現在の状態を表示します。",
		},
		GetCandidatesFunc: onOffCandidates,
		ParseFunc: func(p CommandParser, parts []string) (*Command, error) {
			cmd := newCommand(CmdDebug)
			if len(parts) > 2 {
				return nil, &InvalidArgument{Argument: parts[2]}
			}
			if len(parts) == 2 {
				mode := parts[1]
				if mode != "on" && mode != "off" {
					return nil, &InvalidArgument{Argument: mode}
				}
				cmd.DebugMode = &mode
			}
			return cmd, nil
		},
	},
	{
		Name:    "help",
		Summary: "ヘルプの表示",
		Syntax:  "help [command]",
		// GetCandidatesFunc は CommandTable を参照するので init で設定する
		ParseFunc: func(p CommandParser, parts []string) (*Command, error) {
			cmd := newCommand(CmdHelp)
			if len(parts) > 1 {
				cmd.HelpTopic = &parts[1]
			}
			return cmd, nil
		},
	},
	{
		Name:    "quit",
		Aliases: []string{"exit"},
		Summary: "終了",
		Syntax:  "quit",
		Description: []string{
			"プログラムを終了します。",
		},
		ParseFunc: func(p CommandParser, parts []string) (*Command, error) {
			return newCommand(CmdQuit), nil
		},
	},
}

// FindCommand は名前または別名でコマンドの定義を探す
func FindCommand(name string) (CommandDefinition, bool) {
	i := slices.IndexFunc(CommandTable, func(def CommandDefinition) bool {
		return def.Name == name || slices.Contains(def.Aliases, name)
	})
	if i < 0 {
		return CommandDefinition{}, false
	}
	return CommandTable[i], true
}

func init() {
	i := slices.IndexFunc(CommandTable, func(def CommandDefinition) bool { return def.Name == "help" })
	CommandTable[i].GetCandidatesFunc = helpCandidates
}

func helpCandidates(p CommandParser, d prompt.Document) []prompt.Suggest {
	if len(splitWords(d.TextBeforeCursor())) > 2 {
		return []prompt.Suggest{}
	}
	return commandSuggestions()
}

func commandSuggestions() []prompt.Suggest {
	suggests := make([]prompt.Suggest, 0, len(CommandTable))
	for _, cmd := range CommandTable {
		suggests = append(suggests, prompt.Suggest{Text: cmd.Name, Description: cmd.Summary})
	}
	return suggests
}

// PrintCommandSummary は、全コマンドの簡単なサマリーを表示する
func PrintCommandSummary(w io.Writer) {
	fmt.Fprintln(w, "コマンド:")

	for _, cmd := range CommandTable {
		aliases := ""
		if len(cmd.Aliases) > 0 {
			aliases = fmt.Sprintf(", %s", strings.Join(cmd.Aliases, ", "))
		}
		fmt.Fprintf(w, "  %-12s: %s\n", cmd.Name+aliases, cmd.Summary)
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "詳細は 'help <コマンド名>' で確認できます。例: 'help mode'")
}

// PrintCommandDetail は、特定のコマンドの詳細情報を表示する
func PrintCommandDetail(w io.Writer, commandName string) {
	cmd, ok := FindCommand(commandName)
	if !ok {
		fmt.Fprintf(w, "不明なコマンド: %s\n", commandName)
		fmt.Fprintln(w, "利用可能なコマンドを確認するには 'help' を入力してください")
		return
	}

	fmt.Fprintf(w, "  %s: %s\n", cmd.Name, cmd.Summary)
	fmt.Fprintf(w, "  構文: %s\n", cmd.Syntax)
	if len(cmd.Description) > 0 {
		fmt.Fprintln(w, "  詳細:")
		for _, line := range cmd.Description {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}

// コマンドの使用方法を表示する
func PrintUsage(w io.Writer, commandName *string) {
	if commandName == nil {
		fmt.Fprintln(w, "Mi Air Purifier コンソール")
		PrintCommandSummary(w)
	} else {
		PrintCommandDetail(w, *commandName)
	}
}
