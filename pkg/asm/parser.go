package asm

import (
	"fmt"
	"strings"
)

// parseSource splits src into statements: one stmtLabel per "label:" and
// at most one stmtInstr/stmtDirective per line, both carrying the source
// line number for error messages.
func parseSource(src string) ([]statement, error) {
	var out []statement
	for i, line := range strings.Split(src, "\n") {
		lineNum := i + 1
		toks, err := tokenizeLine(line, lineNum)
		if err != nil {
			return nil, err
		}
		if len(toks) == 0 {
			continue
		}

		pos := 0
		if toks[0].kind == tokIdent && pos+1 < len(toks) && toks[pos+1].kind == tokColon {
			out = append(out, statement{kind: stmtLabel, line: lineNum, label: toks[0].text})
			pos += 2
		}
		if pos >= len(toks) {
			continue
		}
		if toks[pos].kind != tokIdent {
			return nil, fmt.Errorf("line %d: expected mnemonic or directive, got %q", lineNum, toks[pos].text)
		}
		name := toks[pos].text
		pos++

		if strings.HasPrefix(name, ".") {
			args, err := parseOperandList(toks[pos:], lineNum)
			if err != nil {
				return nil, err
			}
			out = append(out, statement{kind: stmtDirective, line: lineNum, directive: name, args: args})
			continue
		}

		operands, err := parseOperandList(toks[pos:], lineNum)
		if err != nil {
			return nil, err
		}
		out = append(out, statement{kind: stmtInstr, line: lineNum, mnemonic: name, operands: operands})
	}
	return out, nil
}

// parseOperandList parses a comma-separated operand list from a token
// slice already past the mnemonic/directive name.
func parseOperandList(toks []token, lineNum int) ([]operand, error) {
	var ops []operand
	i := 0
	for i < len(toks) {
		op, next, err := parseOperand(toks, i, lineNum)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		i = next
		if i < len(toks) {
			if toks[i].kind != tokComma {
				return nil, fmt.Errorf("line %d: expected ',' between operands", lineNum)
			}
			i++
		}
	}
	return ops, nil
}

func parseOperand(toks []token, i int, lineNum int) (operand, int, error) {
	if i >= len(toks) {
		return operand{}, i, fmt.Errorf("line %d: expected an operand", lineNum)
	}

	switch toks[i].kind {
	case tokRegister:
		return operand{isReg: true, reg: registerNames[toks[i].text]}, i + 1, nil

	case tokDollar:
		if i+1 >= len(toks) {
			return operand{}, i, fmt.Errorf("line %d: expected a value after '$'", lineNum)
		}
		return parseImmValue(toks, i+1, lineNum)

	case tokLParen:
		return parseMemOperand(toks, i, 0, "", lineNum)

	case tokNumber:
		if i+1 < len(toks) && toks[i+1].kind == tokLParen {
			return parseMemOperand(toks, i+1, int64(toks[i].num), "", lineNum)
		}
		return operand{isImm: true, imm: toks[i].num}, i + 1, nil

	case tokIdent:
		if i+1 < len(toks) && toks[i+1].kind == tokLParen {
			return parseMemOperand(toks, i+1, 0, toks[i].text, lineNum)
		}
		return operand{isImm: true, immSym: toks[i].text}, i + 1, nil

	default:
		return operand{}, i, fmt.Errorf("line %d: unexpected token in operand position", lineNum)
	}
}

// parseImmValue reads the value after a '$': a number or a label name.
func parseImmValue(toks []token, i int, lineNum int) (operand, int, error) {
	switch toks[i].kind {
	case tokNumber:
		return operand{isImm: true, imm: toks[i].num}, i + 1, nil
	case tokIdent:
		return operand{isImm: true, immSym: toks[i].text}, i + 1, nil
	default:
		return operand{}, i, fmt.Errorf("line %d: expected a number or label after '$'", lineNum)
	}
}

// parseMemOperand reads "(%reg)" starting at the '(' token, with a
// displacement already consumed by the caller (disp/dispSym).
func parseMemOperand(toks []token, lparenIdx int, disp int64, dispSym string, lineNum int) (operand, int, error) {
	if lparenIdx >= len(toks) || toks[lparenIdx].kind != tokLParen {
		return operand{}, lparenIdx, fmt.Errorf("line %d: expected '('", lineNum)
	}
	i := lparenIdx + 1
	if i >= len(toks) || toks[i].kind != tokRegister {
		return operand{}, i, fmt.Errorf("line %d: expected a register inside '(...)'", lineNum)
	}
	reg := registerNames[toks[i].text]
	i++
	if i >= len(toks) || toks[i].kind != tokRParen {
		return operand{}, i, fmt.Errorf("line %d: expected ')'", lineNum)
	}
	i++
	return operand{isMem: true, memReg: reg, disp: disp, dispSym: dispSym}, i, nil
}
