package miot

import (
	"reflect"
	"testing"
)

func TestValueTable_EncodeDecode(t *testing.T) {
	table := NewValueTable(
		ValueEntry{"on", 1},
		ValueEntry{"off", 0},
	)
	code, ok := table.Encode("on")
	if !ok || code != 1 {
		t.Errorf("Encode(on) = (%d, %v), want (1, true)", code, ok)
	}
	name, ok := table.Decode(0)
	if !ok || name != "off" {
		t.Errorf("Decode(0) = (%q, %v), want (off, true)", name, ok)
	}
	if _, ok := table.Encode("maybe"); ok {
		t.Error("Expected Encode to fail for unknown name")
	}
	if _, ok := table.Decode(7); ok {
		t.Error("Expected Decode to fail for unknown code")
	}
	if got := table.Names(); !reflect.DeepEqual(got, []string{"on", "off"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestValueTable_Aliases(t *testing.T) {
	table := NewValueTable(ValueEntry{"silent", 1}).WithAliases(map[string]int{"sleep": 1})

	code, ok := table.Encode("sleep")
	if !ok || code != 1 {
		t.Errorf("Encode(sleep) = (%d, %v), want (1, true)", code, ok)
	}
	// 別名はデコード結果には現れない
	if name, _ := table.Decode(1); name != "silent" {
		t.Errorf("Decode(1) = %q, want silent", name)
	}
	if !table.Contains("sleep") || !table.Contains("silent") {
		t.Error("Expected Contains to accept both the name and the alias")
	}
}

func TestValueTable_DuplicatePanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"duplicate name", func() { NewValueTable(ValueEntry{"idle", 3}, ValueEntry{"idle", 4}) }},
		{"duplicate code", func() { NewValueTable(ValueEntry{"idle", 3}, ValueEntry{"idle:", 3}) }},
		{"alias shadows name", func() { NewValueTable(ValueEntry{"a", 1}).WithAliases(map[string]int{"a": 1}) }},
		{"alias to unknown code", func() { NewValueTable(ValueEntry{"a", 1}).WithAliases(map[string]int{"b": 2}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: expected panic", tt.name)
				}
			}()
			tt.fn()
		})
	}
}
