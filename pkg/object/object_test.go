package object

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewZeroPadded(t *testing.T) {
	o := New(16)
	if len(o.Mem) != 16 {
		t.Fatalf("len(Mem) = %d, want 16", len(o.Mem))
	}
	for i, b := range o.Mem {
		if b != 0 {
			t.Fatalf("Mem[%d] = %#x, want 0", i, b)
		}
	}
}

func TestLineForAddress(t *testing.T) {
	addr := uint64(0x10)
	o := New(32)
	o.Source = []SourceLine{
		{Text: "main:"},
		{Address: &addr, Instruction: "halt", Text: "    halt"},
	}
	line, ok := o.LineForAddress(0x10)
	if !ok {
		t.Fatal("expected a line at 0x10")
	}
	if line.Instruction != "halt" {
		t.Errorf("Instruction = %q, want halt", line.Instruction)
	}
	if _, ok := o.LineForAddress(0x20); ok {
		t.Error("expected no line at 0x20")
	}
}

func TestWriteReadJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.json")

	addr := uint64(4)
	o := New(8)
	o.Mem[0] = 0x30
	o.Symbols["main"] = 0
	o.Source = []SourceLine{{Address: &addr, Text: "main:"}}

	if err := o.WriteJSON(path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if len(got.Mem) != 8 || got.Mem[0] != 0x30 {
		t.Errorf("Mem = %v", got.Mem)
	}
	if got.Symbols["main"] != 0 {
		t.Errorf("Symbols[main] = %d, want 0", got.Symbols["main"])
	}
	if len(got.Source) != 1 || got.Source[0].Address == nil || *got.Source[0].Address != 4 {
		t.Errorf("Source = %+v", got.Source)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}
