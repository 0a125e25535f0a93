package asm

import (
	"fmt"

	"github.com/oisee/y86sim/pkg/object"
)

// DefaultMemSize is the object image size Assemble allocates when the
// caller doesn't need a specific size (matches pkg/mem.DefaultSize without
// importing pkg/mem, which this package has no other reason to depend on).
const DefaultMemSize = 1 << 20

// UndefinedSymbolError reports a label referenced but never declared.
type UndefinedSymbolError struct {
	Symbol string
	Line   int
}

func (e *UndefinedSymbolError) Error() string {
	return fmt.Sprintf("asm: line %d: undefined symbol %q", e.Line, e.Symbol)
}

// Assemble compiles Y86-64 assembly source into an Object sized size bytes
// (DefaultMemSize if size is 0). It is a two-pass assembler: the first
// pass resolves every label to an address, the second emits bytes and
// source-line records against the completed symbol table.
func Assemble(src string, size uint64) (*object.Object, error) {
	if size == 0 {
		size = DefaultMemSize
	}
	stmts, err := parseSource(src)
	if err != nil {
		return nil, err
	}

	symbols, err := resolveSymbols(stmts)
	if err != nil {
		return nil, err
	}

	obj := object.New(size)
	for k, v := range symbols {
		obj.Symbols[k] = v
	}

	addr := uint64(0)
	for _, st := range stmts {
		switch st.kind {
		case stmtLabel:
			obj.Source = append(obj.Source, object.SourceLine{Label: st.label, Text: st.label + ":", Line: st.line})

		case stmtDirective:
			next, err := emitDirective(obj, addr, st, symbols)
			if err != nil {
				return nil, err
			}
			addr = next

		case stmtInstr:
			def, ok := instrTable[st.mnemonic]
			if !ok {
				return nil, fmt.Errorf("asm: line %d: unknown mnemonic %q", st.line, st.mnemonic)
			}
			bytes, err := encodeInstr(def, st, symbols)
			if err != nil {
				return nil, err
			}
			a := addr
			if !obj.LoadBytes(a, bytes) {
				return nil, fmt.Errorf("asm: line %d: instruction at %#x exceeds memory size %d", st.line, a, size)
			}
			obj.Source = append(obj.Source, object.SourceLine{Address: &a, Instruction: st.mnemonic, Text: st.mnemonic, Line: st.line})
			addr += uint64(len(bytes))
		}
	}
	return obj, nil
}

// resolveSymbols runs the address-tracking pass only, without emitting any
// bytes: every label's final address, independent of forward references.
func resolveSymbols(stmts []statement) (map[string]uint64, error) {
	symbols := make(map[string]uint64)
	addr := uint64(0)
	for _, st := range stmts {
		switch st.kind {
		case stmtLabel:
			symbols[st.label] = addr

		case stmtDirective:
			next, err := directiveSize(addr, st)
			if err != nil {
				return nil, err
			}
			addr = next

		case stmtInstr:
			def, ok := instrTable[st.mnemonic]
			if !ok {
				return nil, fmt.Errorf("asm: line %d: unknown mnemonic %q", st.line, st.mnemonic)
			}
			addr += uint64(instrLen[def.icode])
		}
	}
	return symbols, nil
}
