package asm

import (
	"fmt"

	"github.com/oisee/y86sim/pkg/object"
)

// directiveSize advances addr for one directive during the address-
// resolution pass, without resolving or emitting any symbol values yet.
func directiveSize(addr uint64, st statement) (uint64, error) {
	switch st.directive {
	case ".pos":
		if len(st.args) != 1 || !st.args[0].isImm {
			return 0, fmt.Errorf("asm: line %d: .pos wants one literal address", st.line)
		}
		return st.args[0].imm, nil

	case ".align":
		if len(st.args) != 1 || !st.args[0].isImm {
			return 0, fmt.Errorf("asm: line %d: .align wants one literal alignment", st.line)
		}
		n := st.args[0].imm
		if n == 0 {
			return 0, fmt.Errorf("asm: line %d: .align 0 is meaningless", st.line)
		}
		if addr%n == 0 {
			return addr, nil
		}
		return addr + (n - addr%n), nil

	case ".quad":
		if len(st.args) != 1 {
			return 0, fmt.Errorf("asm: line %d: .quad wants one value", st.line)
		}
		return addr + 8, nil

	case ".byte":
		if len(st.args) != 1 {
			return 0, fmt.Errorf("asm: line %d: .byte wants one value", st.line)
		}
		return addr + 1, nil

	default:
		return 0, fmt.Errorf("asm: line %d: unknown directive %q", st.line, st.directive)
	}
}

// emitDirective performs the same position tracking as directiveSize,
// plus actually writing bytes into obj where the directive produces data.
func emitDirective(obj *object.Object, addr uint64, st statement, symbols map[string]uint64) (uint64, error) {
	switch st.directive {
	case ".pos":
		return st.args[0].imm, nil

	case ".align":
		return directiveSize(addr, st)

	case ".quad":
		v, err := resolveValue(st.args[0], symbols, st.line)
		if err != nil {
			return 0, err
		}
		buf := make([]byte, 8)
		putLE64(buf, v)
		if !obj.LoadBytes(addr, buf) {
			return 0, fmt.Errorf("asm: line %d: .quad at %#x exceeds memory size", st.line, addr)
		}
		a := addr
		obj.Source = append(obj.Source, object.SourceLine{Address: &a, Data: true, Text: ".quad", Line: st.line})
		return addr + 8, nil

	case ".byte":
		v, err := resolveValue(st.args[0], symbols, st.line)
		if err != nil {
			return 0, err
		}
		if !obj.LoadBytes(addr, []byte{byte(v)}) {
			return 0, fmt.Errorf("asm: line %d: .byte at %#x exceeds memory size", st.line, addr)
		}
		a := addr
		obj.Source = append(obj.Source, object.SourceLine{Address: &a, Data: true, Text: ".byte", Line: st.line})
		return addr + 1, nil

	default:
		return 0, fmt.Errorf("asm: line %d: unknown directive %q", st.line, st.directive)
	}
}

// resolveValue reads an operand's literal value or looks up its symbol.
func resolveValue(op operand, symbols map[string]uint64, line int) (uint64, error) {
	if op.immSym != "" {
		v, ok := symbols[op.immSym]
		if !ok {
			return 0, &UndefinedSymbolError{Symbol: op.immSym, Line: line}
		}
		return v, nil
	}
	return op.imm, nil
}

func putLE64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}
