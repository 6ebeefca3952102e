package console

import (
	"strings"

	"github.com/c-bata/go-prompt"
)

// completer は go-prompt の補完関数を CommandParser から作る
type completer struct {
	parser CommandParser
}

// Complete は入力中の行に対する補完候補を返す
func (c *completer) Complete(d prompt.Document) []prompt.Suggest {
	words := splitWords(d.TextBeforeCursor())
	if len(words) <= 1 {
		// コマンド名を補完
		return prompt.FilterHasPrefix(commandSuggestions(), d.GetWordBeforeCursor(), true)
	}

	cmdDef, ok := FindCommand(words[0])
	if !ok || cmdDef.GetCandidatesFunc == nil {
		return []prompt.Suggest{}
	}
	return prompt.FilterHasPrefix(cmdDef.GetCandidatesFunc(c.parser, d), d.GetWordBeforeCursor(), true)
}

// splitWords は入力行を空白で単語に分割する。クォートで囲まれた空白は単語の一部になる。
// 末尾が空白のときは、次の単語を入力中であることを表す空文字列を最後に1つ追加する
func splitWords(line string) []string {
	words := []string{}
	var word strings.Builder
	inQuote := false
	trailingSpace := false

	for _, r := range line {
		if (r == ' ' || r == '\t') && !inQuote {
			if word.Len() > 0 {
				words = append(words, word.String())
				word.Reset()
			}
			trailingSpace = true
			continue
		}
		trailingSpace = false
		if r == '"' || r == '\'' {
			inQuote = !inQuote
			continue
		}
		word.WriteRune(r)
	}

	if word.Len() > 0 {
		words = append(words, word.String())
	}
	if trailingSpace {
		words = append(words, "")
	}
	return words
}
