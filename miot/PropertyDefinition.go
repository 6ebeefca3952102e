package miot

import (
	"encoding/json"
	"fmt"
	"math"
)

// ValueKind はワイヤ上の値の型を表します。
type ValueKind int

const (
	KindAny ValueKind = iota // JSON をそのままデコードする
	KindBool
	KindInt
)

// Parse は JSON の値を Kind に応じた Go の値に変換します。
// 数値は int、真偽値は bool になります。
func (k ValueKind) Parse(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch k {
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("expected boolean, got %s: %w", raw, err)
		}
		return b, nil
	case KindInt:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("expected number, got %s: %w", raw, err)
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("expected integer, got %s", raw)
		}
		// int への変換は範囲外だと値が壊れる
		if f > math.MaxInt || f < math.MinInt {
			return nil, fmt.Errorf("integer out of range: %s", raw)
		}
		return int(f), nil
	default:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// PropertyDefinition はデバイス構築時に登録されるプロパティの定義です。
type PropertyDefinition struct {
	Name        PropertyName
	DisplayName string // 呼び出し側に見せる名前 (空なら Name のワイヤ名)
	Kind        ValueKind
	Decode      func(value any) any // nil なら値をそのまま返す
}

func (d PropertyDefinition) displayName() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.Name.String()
}

// DecodeValue はワイヤ上の値を論理値に変換します。
func (d PropertyDefinition) DecodeValue(raw json.RawMessage) (any, error) {
	v, err := d.Kind.Parse(raw)
	if err != nil {
		return nil, err
	}
	// null はどのプロパティでも値なし
	if v == nil {
		return nil, nil
	}
	if d.Decode != nil {
		return d.Decode(v), nil
	}
	return v, nil
}

// PropertyDefinitions は登録済みのプロパティ定義の集合です。
type PropertyDefinitions struct {
	defs      map[PropertyName]PropertyDefinition
	byDisplay map[string]PropertyName
	order     []PropertyName
}

func NewPropertyDefinitions() *PropertyDefinitions {
	return &PropertyDefinitions{
		defs:      make(map[PropertyName]PropertyDefinition),
		byDisplay: make(map[string]PropertyName),
	}
}

// Define はプロパティ定義を登録します。同じ名前を再登録すると上書きします。
func (p *PropertyDefinitions) Define(def PropertyDefinition) {
	if old, ok := p.defs[def.Name]; ok {
		delete(p.byDisplay, old.displayName())
	} else {
		p.order = append(p.order, def.Name)
	}
	p.defs[def.Name] = def
	p.byDisplay[def.displayName()] = def.Name
}

func (p *PropertyDefinitions) Lookup(name PropertyName) (PropertyDefinition, bool) {
	def, ok := p.defs[name]
	return def, ok
}

// DisplayName は name の表示名を返します。未登録ならワイヤ名です。
func (p *PropertyDefinitions) DisplayName(name PropertyName) string {
	if def, ok := p.defs[name]; ok {
		return def.displayName()
	}
	return name.String()
}

// Canonical は表示名をワイヤ名に書き換えます。表示名でなければそのまま返します。
func (p *PropertyDefinitions) Canonical(s string) string {
	if name, ok := p.byDisplay[s]; ok {
		return name.String()
	}
	return s
}

// Resolve は表示名またはワイヤ名から PropertyName を求めます。
func (p *PropertyDefinitions) Resolve(s string) (PropertyName, bool) {
	return ParsePropertyName(p.Canonical(s))
}

// Names は登録順のプロパティ名を返します。
func (p *PropertyDefinitions) Names() []PropertyName {
	return append([]PropertyName(nil), p.order...)
}

// DisplayNames は登録順の表示名を返します。
func (p *PropertyDefinitions) DisplayNames() []string {
	names := make([]string, 0, len(p.order))
	for _, n := range p.order {
		names = append(names, p.defs[n].displayName())
	}
	return names
}
