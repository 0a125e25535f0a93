package hcl

import (
	"fmt"
	"strings"
)

type parser struct {
	lex *lexer
	tok token
}

// Parse compiles HCL source text into a Program AST (spec.md §4.2).
func Parse(src string) (*Program, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	prog := &Program{StageAliases: map[string]string{}}
	for p.tok.kind != tokEOF {
		if p.tok.kind == tokDirective {
			if err := applyDirective(prog, p.tok.text); err != nil {
				return nil, err
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		decl, err := p.parseSignalDecl()
		if err != nil {
			return nil, err
		}
		prog.Signals = append(prog.Signals, decl)
	}
	return prog, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("hcl: line %d: %s", p.tok.line, fmt.Sprintf(format, args...))
}

func (p *parser) expectPunct(s string) error {
	if p.tok.kind != tokPunct || p.tok.text != s {
		return p.errorf("expected %q, got %q", s, p.tok.text)
	}
	return p.advance()
}

func (p *parser) isPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

// maybeTunnel consumes an optional tunnel tag, written `@name` before the
// tagged item (case arm, source, or destination) — spec.md §4.2's tunnel
// attribute given ASCII-friendly surface syntax. The `#[tunnel(name)]`
// attribute form is not accepted by the lexer.
func (p *parser) maybeTunnel() (string, error) {
	if p.tok.kind == tokPunct && p.tok.text == "@" {
		if err := p.advance(); err != nil {
			return "", err
		}
		if p.tok.kind != tokIdent {
			return "", p.errorf("expected tunnel tag name after @")
		}
		name := p.tok.text
		if err := p.advance(); err != nil {
			return "", err
		}
		return name, nil
	}
	return "", nil
}

func (p *parser) parseSignalDecl() (*SignalDecl, error) {
	if p.tok.kind != tokIdent {
		return nil, p.errorf("expected a signal type, got %q", p.tok.text)
	}
	typ := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind != tokIdent {
		return nil, p.errorf("expected a signal name, got %q", p.tok.text)
	}
	decl := &SignalDecl{Type: typ, Name: p.tok.text, Line: p.tok.line}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("="); err != nil {
		return nil, err
	}

	src, err := p.parseSource()
	if err != nil {
		return nil, err
	}
	decl.Source = src

	if p.isPunct("->") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		dests, err := p.parseDestList()
		if err != nil {
			return nil, err
		}
		decl.Dests = dests
	}

	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *parser) parseSource() (Source, error) {
	if p.isPunct("[") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		var arms []CaseArm
		for !p.isPunct("]") {
			tag, err := p.maybeTunnel()
			if err != nil {
				return nil, err
			}
			cond, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(":"); err != nil {
				return nil, err
			}
			val, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(";"); err != nil {
				return nil, err
			}
			arms = append(arms, CaseArm{Cond: cond, Value: val, Tunnel: tag})
		}
		if err := p.advance(); err != nil { // consume ']'
			return nil, err
		}
		return &CaseSource{Cases: arms}, nil
	}

	tag, err := p.maybeTunnel()
	if err != nil {
		return nil, err
	}
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ExprSource{Expr: expr, Tunnel: tag}, nil
}

func (p *parser) parseDestList() ([]Dest, error) {
	if p.isPunct("(") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		var dests []Dest
		for {
			d, err := p.parseDest()
			if err != nil {
				return nil, err
			}
			dests = append(dests, d)
			if p.isPunct(",") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return dests, nil
	}
	d, err := p.parseDest()
	if err != nil {
		return nil, err
	}
	return []Dest{d}, nil
}

func (p *parser) parseDest() (Dest, error) {
	tag, err := p.maybeTunnel()
	if err != nil {
		return Dest{}, err
	}
	name, err := p.parseQualifiedName()
	if err != nil {
		return Dest{}, err
	}
	return Dest{Name: name, Tunnel: tag}, nil
}

func (p *parser) parseQualifiedName() (string, error) {
	if p.tok.kind != tokIdent {
		return "", p.errorf("expected an identifier, got %q", p.tok.text)
	}
	name := p.tok.text
	if err := p.advance(); err != nil {
		return "", err
	}
	if p.isPunct(".") {
		if err := p.advance(); err != nil {
			return "", err
		}
		if p.tok.kind != tokIdent {
			return "", p.errorf("expected a field name after '.'")
		}
		name = name + "." + p.tok.text
		if err := p.advance(); err != nil {
			return "", err
		}
	}
	return name, nil
}

// Operator precedence, low to high.
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"|": 5,
	"^": 6,
	"&": 7,
	"+": 8, "-": 8,
}

func (p *parser) parseExpr(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokPunct {
		prec, ok := precedence[p.tok.text]
		if !ok || prec < minPrec {
			break
		}
		op := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.isPunct("!") || p.isPunct("-") {
		op := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	switch {
	case p.tok.kind == tokInt:
		v := p.tok.ival
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &IntLit{Value: v}, nil
	case p.tok.kind == tokBool:
		v := p.tok.bval
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &BoolLit{Value: v}, nil
	case p.tok.kind == tokIdent:
		name, err := p.parseQualifiedName()
		if err != nil {
			return nil, err
		}
		return &Ident{Name: name}, nil
	case p.isPunct("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, p.errorf("unexpected token %q", p.tok.text)
	}
}

// applyDirective parses the body of a `#![...]` directive and merges it
// into prog.
func applyDirective(prog *Program, body string) error {
	if strings.HasPrefix(body, "stage_alias(") && strings.HasSuffix(body, ")") {
		inner := strings.TrimSuffix(strings.TrimPrefix(body, "stage_alias("), ")")
		if strings.TrimSpace(inner) == "" {
			return nil
		}
		for _, pair := range strings.Split(inner, ",") {
			parts := strings.SplitN(pair, "=>", 2)
			if len(parts) != 2 {
				return fmt.Errorf("hcl: malformed stage_alias entry %q", pair)
			}
			long := strings.TrimSpace(parts[0])
			short := strings.TrimSpace(parts[1])
			prog.StageAliases[long] = short
		}
		return nil
	}

	parts := strings.SplitN(body, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("hcl: malformed directive %q", body)
	}
	key := strings.TrimSpace(parts[0])
	val := strings.TrimSpace(parts[1])
	switch key {
	case "hardware":
		prog.Hardware = val
	case "program_counter":
		prog.ProgramCounter = val
	case "termination":
		prog.Termination = val
	default:
		return fmt.Errorf("hcl: unknown directive %q", key)
	}
	return nil
}
