package console

import (
	"testing"

	"github.com/c-bata/go-prompt"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSplitWords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"空文字列", "", []string{}},
		{"1単語", "get", []string{"get"}},
		{"末尾に空白", "get ", []string{"get", ""}},
		{"複数の空白", "get  power   mode", []string{"get", "power", "mode"}},
		{"末尾に複数の空白", "mode  ", []string{"mode", ""}},
		{"空白のみ", "   ", []string{""}},
		{"タブ区切り", "led\tdim", []string{"led", "dim"}},
		{"クォート", `get "a b" c`, []string{"get", "a b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitWords(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("splitWords(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func documentOf(text string) prompt.Document {
	buf := prompt.NewBuffer()
	buf.InsertText(text, false, true)
	return *buf.Document()
}

func suggestTexts(suggests []prompt.Suggest) []string {
	texts := make([]string, 0, len(suggests))
	for _, s := range suggests {
		texts = append(texts, s.Text)
	}
	return texts
}

func TestCompleter(t *testing.T) {
	c := &completer{parser: *testParser()}

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"コマンド名", "p", []string{"props", "power"}},
		{"モード", "mode ", []string{"idle", "auto", "silent", "favorite"}},
		{"モードの前方一致", "mode s", []string{"silent"}},
		{"on/off", "buzzer o", []string{"on", "off"}},
		{"LED", "led ", []string{"bright", "dim", "off"}},
		{"入力済みのプロパティは除く", "get power mode ", []string{"aqi", "favoriteRPM", "filterLifeRemaining", "filterHoursUsed", "ledBrightness", "buzzer"}},
		{"2つ目以降の引数は無し", "mode auto ", []string{}},
		{"未知のコマンド", "reboot ", []string{}},
		{"help はコマンド名を補完", "help m", []string{"mode"}},
		{"help の2つ目以降は無し", "help mode ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := suggestTexts(c.Complete(documentOf(tt.input)))
			assert.Equal(t, tt.want, got)
		})
	}
}
