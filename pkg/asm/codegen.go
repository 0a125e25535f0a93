package asm

import "fmt"

const rnone = 0xf

// encodeInstr renders one parsed instruction to its bit-exact byte
// encoding (the same layout as pkg/isa.Encode, duplicated here so the
// assembler's code generator has no dependency on pkg/isa — it never
// constructs an isa.Instruction, only the raw bytes the decoder expects).
func encodeInstr(def instrDef, st statement, symbols map[string]uint64) ([]byte, error) {
	switch def.shape {
	case shapeNone:
		if len(st.operands) != 0 {
			return nil, fmt.Errorf("asm: line %d: %s takes no operands", st.line, st.mnemonic)
		}
		return []byte{def.icode<<4 | def.ifun}, nil

	case shapeRegReg:
		ra, rb, err := regReg(st)
		if err != nil {
			return nil, err
		}
		return []byte{def.icode<<4 | def.ifun, ra<<4 | rb}, nil

	case shapeReg:
		if len(st.operands) != 1 || !st.operands[0].isReg {
			return nil, fmt.Errorf("asm: line %d: %s takes one register operand", st.line, st.mnemonic)
		}
		return []byte{def.icode<<4 | def.ifun, st.operands[0].reg<<4 | rnone}, nil

	case shapeImmReg:
		if len(st.operands) != 2 || !st.operands[1].isReg {
			return nil, fmt.Errorf("asm: line %d: %s wants imm, reg", st.line, st.mnemonic)
		}
		v, err := resolveValue(st.operands[0], symbols, st.line)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 10)
		buf[0] = def.icode<<4 | def.ifun
		buf[1] = rnone<<4 | st.operands[1].reg
		putLE64(buf[2:], v)
		return buf, nil

	case shapeRegMem:
		if len(st.operands) != 2 || !st.operands[0].isReg || !st.operands[1].isMem {
			return nil, fmt.Errorf("asm: line %d: %s wants reg, disp(reg)", st.line, st.mnemonic)
		}
		disp, err := memDisp(st.operands[1], symbols, st.line)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 10)
		buf[0] = def.icode<<4 | def.ifun
		buf[1] = st.operands[0].reg<<4 | st.operands[1].memReg
		putLE64(buf[2:], disp)
		return buf, nil

	case shapeMemReg:
		if len(st.operands) != 2 || !st.operands[0].isMem || !st.operands[1].isReg {
			return nil, fmt.Errorf("asm: line %d: %s wants disp(reg), reg", st.line, st.mnemonic)
		}
		disp, err := memDisp(st.operands[0], symbols, st.line)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 10)
		buf[0] = def.icode<<4 | def.ifun
		buf[1] = st.operands[1].reg<<4 | st.operands[0].memReg
		putLE64(buf[2:], disp)
		return buf, nil

	case shapeDest:
		if len(st.operands) != 1 {
			return nil, fmt.Errorf("asm: line %d: %s wants one destination", st.line, st.mnemonic)
		}
		v, err := resolveValue(st.operands[0], symbols, st.line)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 9)
		buf[0] = def.icode<<4 | def.ifun
		putLE64(buf[1:], v)
		return buf, nil

	default:
		return nil, fmt.Errorf("asm: line %d: unhandled operand shape for %s", st.line, st.mnemonic)
	}
}

func regReg(st statement) (ra, rb uint8, err error) {
	if len(st.operands) != 2 || !st.operands[0].isReg || !st.operands[1].isReg {
		return 0, 0, fmt.Errorf("asm: line %d: %s wants reg, reg", st.line, st.mnemonic)
	}
	return st.operands[0].reg, st.operands[1].reg, nil
}

func memDisp(op operand, symbols map[string]uint64, line int) (uint64, error) {
	if op.dispSym != "" {
		v, ok := symbols[op.dispSym]
		if !ok {
			return 0, &UndefinedSymbolError{Symbol: op.dispSym, Line: line}
		}
		return v, nil
	}
	return uint64(op.disp), nil
}
