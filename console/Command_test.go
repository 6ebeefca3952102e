package console

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/salamwaddah/mi-api/miot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParser() *CommandParser {
	return NewCommandParser(miot.AirPurifierDefinitions().DisplayNames(), miot.AirPurifierModes())
}

func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *Command
	}{
		{name: "get 全て", input: "get", want: &Command{Type: CmdGet}},
		{name: "get 指定", input: "get power  mode", want: &Command{Type: CmdGet, Properties: []string{"power", "mode"}}},
		{name: "get ワイヤ名", input: "get favorite_rpm", want: &Command{Type: CmdGet, Properties: []string{"favorite_rpm"}}},
		{name: "get 未知の名前", input: "get power humidity", want: &Command{Type: CmdGet, Properties: []string{"power", "humidity"}, Unknown: []string{"humidity"}}},
		{name: "props", input: "props", want: &Command{Type: CmdProps}},
		{name: "list は props の別名", input: "list", want: &Command{Type: CmdProps}},
		{name: "power on", input: "power on", want: &Command{Type: CmdPower, OnOff: boolPtr(true)}},
		{name: "power off", input: "power OFF", want: &Command{Type: CmdPower, OnOff: boolPtr(false)}},
		{name: "mode", input: "mode favorite", want: &Command{Type: CmdMode, Mode: "favorite"}},
		{name: "rpm 表示", input: "rpm", want: &Command{Type: CmdFavoriteRPM}},
		{name: "rpm 設定", input: "rpm 1200", want: &Command{Type: CmdFavoriteRPM, RPM: intPtr(1200)}},
		{name: "led", input: "led dim", want: &Command{Type: CmdLED, LEDLevel: "dim"}},
		{name: "buzzer", input: "buzzer off", want: &Command{Type: CmdBuzzer, OnOff: boolPtr(false)}},
		{name: "debug 表示", input: "debug", want: &Command{Type: CmdDebug}},
		{name: "debug on", input: "debug on", want: &Command{Type: CmdDebug, DebugMode: strPtr("on")}},
		{name: "help", input: "help", want: &Command{Type: CmdHelp}},
		{name: "help mode", input: "help mode", want: &Command{Type: CmdHelp, HelpTopic: strPtr("mode")}},
		{name: "quit", input: "quit", want: &Command{Type: CmdQuit}},
		{name: "exit", input: "  exit  ", want: &Command{Type: CmdQuit}},
	}
	p := testParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseCommand(tt.input)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.NotNil(t, got.Done)
			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreFields(Command{}, "Done")); diff != "" {
				t.Errorf("ParseCommand(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseCommand_Empty(t *testing.T) {
	cmd, err := testParser().ParseCommand("   ")
	assert.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestParseCommand_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"未知のコマンド", "reboot"},
		{"power 引数無し", "power"},
		{"power 不正な値", "power maybe"},
		{"mode 引数無し", "mode"},
		{"rpm 数値でない", "rpm fast"},
		{"rpm 範囲外(下)", "rpm 299"},
		{"rpm 範囲外(上)", "rpm 2201"},
		{"rpm 引数が多い", "rpm 300 400"},
		{"led 引数無し", "led"},
		{"debug 不正な値", "debug maybe"},
	}
	p := testParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := p.ParseCommand(tt.input)
			assert.Error(t, err)
			assert.Nil(t, cmd)
		})
	}
}

func TestParseCommand_RPMBoundaries(t *testing.T) {
	p := testParser()
	for _, v := range []string{"300", "2200"} {
		cmd, err := p.ParseCommand("rpm " + v)
		require.NoError(t, err, v)
		require.NotNil(t, cmd.RPM)
	}
}

func TestInvalidArgument(t *testing.T) {
	_, err := testParser().ParseCommand("buzzer loud")
	var invalid *InvalidArgument
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "loud", invalid.Argument)
}

func TestFindCommand(t *testing.T) {
	def, ok := FindCommand("exit")
	require.True(t, ok)
	assert.Equal(t, "quit", def.Name)

	_, ok = FindCommand("nope")
	assert.False(t, ok)
}
