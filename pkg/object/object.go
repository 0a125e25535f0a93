// Package object holds the assembler's output shape: a memory image, a
// symbol table, and source-line records for debugging (spec.md §6's
// assembler contract). pkg/asm produces an Object; cmd/y86sim and pkg/dap
// consume one; tests run its Mem through pkg/isaref as a correctness oracle.
package object

import (
	"encoding/json"
	"fmt"
	"os"
)

// SourceLine is one line of source-level debugging metadata: an address
// when the line emitted code or data, the mnemonic text for an instruction
// line, a label name when the line declared one, and a short display text
// (the mnemonic, the directive name, or "label:").
// At least Text is always populated; the rest are filled in as they apply.
type SourceLine struct {
	Address     *uint64 `json:"address,omitempty"`
	Instruction string  `json:"instruction,omitempty"`
	Label       string  `json:"label,omitempty"`
	Data        bool    `json:"data,omitempty"`
	Text        string  `json:"text"`
	Line        int     `json:"line,omitempty"` // 1-based source line, for pkg/dap's breakpoint-by-line mapping
}

// Object is the assembler's output: a zero-padded byte image plus the
// bookkeeping needed to run and debug it.
type Object struct {
	Mem     []byte            `json:"mem"`
	Symbols map[string]uint64 `json:"symbols"`
	Source  []SourceLine      `json:"source"`
}

// New returns an Object whose memory image is size bytes, zero-padded.
func New(size uint64) *Object {
	return &Object{
		Mem:     make([]byte, size),
		Symbols: make(map[string]uint64),
	}
}

// LoadBytes copies src into Mem starting at addr. It reports false without
// mutating Mem if src doesn't fit (pkg/asm's code generator uses this to
// turn an out-of-range instruction into an ordinary assembly error rather
// than a panic).
func (o *Object) LoadBytes(addr uint64, src []byte) bool {
	if addr+uint64(len(src)) > uint64(len(o.Mem)) {
		return false
	}
	copy(o.Mem[addr:], src)
	return true
}

// LineForAddress returns the source line whose Address matches addr, for
// the DAP layer's pc-to-line mapping in stack traces. Ok is
// false if no source line recorded that address.
func (o *Object) LineForAddress(addr uint64) (line SourceLine, ok bool) {
	for _, l := range o.Source {
		if l.Address != nil && *l.Address == addr {
			return l, true
		}
	}
	return SourceLine{}, false
}

// AddressForLine returns the address of the first source record emitted
// for 1-based source line n, for pkg/dap's "set breakpoints by line"
// request. Ok is false if no code or data was emitted on that line.
func (o *Object) AddressForLine(n int) (addr uint64, ok bool) {
	for _, l := range o.Source {
		if l.Line == n && l.Address != nil {
			return *l.Address, true
		}
	}
	return 0, false
}

// WriteJSON dumps the object to path as JSON (parity with the teacher's
// result.Table JSON dump, used here so `y86sim assemble` can produce a
// file pkg/dap or a later `y86sim run` invocation can reload).
func (o *Object) WriteJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("object: write %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(o); err != nil {
		return fmt.Errorf("object: write %s: %w", path, err)
	}
	return nil
}

// ReadJSON loads an object previously written by WriteJSON.
func ReadJSON(path string) (*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("object: read %s: %w", path, err)
	}
	defer f.Close()
	var o Object
	if err := json.NewDecoder(f).Decode(&o); err != nil {
		return nil, fmt.Errorf("object: read %s: %w", path, err)
	}
	return &o, nil
}
