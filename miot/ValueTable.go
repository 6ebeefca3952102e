package miot

import "fmt"

// ValueEntry は論理値とワイヤ上の数値コードの組です。
type ValueEntry struct {
	Name string
	Code int
}

// ValueTable は列挙型プロパティの論理値 <-> ワイヤコードの双方向テーブルです。
// エンコードとデコードの両方向で同じテーブルを参照するため、片方だけ値が
// ずれることがありません。
type ValueTable struct {
	entries []ValueEntry
	byName  map[string]int
	byCode  map[int]string
	aliases map[string]int // エンコード専用の別名 (デコード結果には現れない)
}

// NewValueTable は ValueTable を作成します。
// 名前かコードが重複している場合は panic します。
func NewValueTable(entries ...ValueEntry) ValueTable {
	t := ValueTable{
		entries: append([]ValueEntry(nil), entries...),
		byName:  make(map[string]int, len(entries)),
		byCode:  make(map[int]string, len(entries)),
	}
	for _, e := range entries {
		if _, dup := t.byName[e.Name]; dup {
			panic(fmt.Sprintf("miot: duplicate value name %q", e.Name))
		}
		if _, dup := t.byCode[e.Code]; dup {
			panic(fmt.Sprintf("miot: duplicate value code %d", e.Code))
		}
		t.byName[e.Name] = e.Code
		t.byCode[e.Code] = e.Name
	}
	return t
}

// WithAliases はエンコード専用の別名を追加したテーブルを返します。
// 別名は既存のコードを指していなければならず、正規の名前と衝突してはいけません。
func (t ValueTable) WithAliases(aliases map[string]int) ValueTable {
	result := t
	result.aliases = make(map[string]int, len(t.aliases)+len(aliases))
	for k, v := range t.aliases {
		result.aliases[k] = v
	}
	for alias, code := range aliases {
		if _, ok := t.byName[alias]; ok {
			panic(fmt.Sprintf("miot: alias %q shadows a value name", alias))
		}
		if _, ok := t.byCode[code]; !ok {
			panic(fmt.Sprintf("miot: alias %q points to unknown code %d", alias, code))
		}
		result.aliases[alias] = code
	}
	return result
}

// Encode は論理値をワイヤコードに変換します。
func (t ValueTable) Encode(name string) (int, bool) {
	if code, ok := t.byName[name]; ok {
		return code, true
	}
	if code, ok := t.aliases[name]; ok {
		return code, true
	}
	return 0, false
}

// Decode はワイヤコードを論理値に変換します。
func (t ValueTable) Decode(code int) (string, bool) {
	name, ok := t.byCode[code]
	return name, ok
}

// Names は正規の論理値を定義順に返します。
func (t ValueTable) Names() []string {
	names := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		names = append(names, e.Name)
	}
	return names
}

func (t ValueTable) Contains(name string) bool {
	_, ok := t.Encode(name)
	return ok
}
