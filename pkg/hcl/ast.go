package hcl

// Program is a parsed HCL source file: the architecture-level directives
// plus the ordered list of signal declarations (spec.md §4.2).
type Program struct {
	Hardware       string
	ProgramCounter string
	Termination    string
	StageAliases   map[string]string // long stage name -> short alias
	Signals        []*SignalDecl
}

// SignalDecl is one `<type> <sig> = <source> [-> dest, ...];` declaration.
type SignalDecl struct {
	Type   string
	Name   string
	Source Source
	Dests  []Dest
	Line   int
}

// Dest is one fan-out destination, with an optional tunnel tag.
type Dest struct {
	Name   string
	Tunnel string
}

// Source is either a single Expr or a priority-ordered case table.
type Source interface {
	sourceNode()
	// idents appends every identifier referenced anywhere in this source
	// (conditions and values alike) to out.
	idents(out map[string]struct{})
}

// ExprSource is a source that is a single expression.
type ExprSource struct {
	Expr   Expr
	Tunnel string
}

func (*ExprSource) sourceNode() {}
func (s *ExprSource) idents(out map[string]struct{}) { s.Expr.idents(out) }

// CaseArm is one `cond : value;` arm of a case table.
type CaseArm struct {
	Cond   Expr
	Value  Expr
	Tunnel string
}

// CaseSource is a priority-ordered multiplexer: the first true Cond selects
// its Value; if none matches, the signal keeps its zero value.
type CaseSource struct {
	Cases []CaseArm
}

func (*CaseSource) sourceNode() {}
func (s *CaseSource) idents(out map[string]struct{}) {
	for _, arm := range s.Cases {
		arm.Cond.idents(out)
		arm.Value.idents(out)
	}
}

// Expr is an HCL expression node.
type Expr interface {
	exprNode()
	idents(out map[string]struct{})
}

// Ident is a bare or qualified ("unit.field") identifier reference.
type Ident struct{ Name string }

func (*Ident) exprNode() {}
func (e *Ident) idents(out map[string]struct{}) { out[e.Name] = struct{}{} }

// IntLit is an integer literal.
type IntLit struct{ Value uint64 }

func (*IntLit) exprNode()                       {}
func (*IntLit) idents(out map[string]struct{})  {}

// BoolLit is a boolean literal.
type BoolLit struct{ Value bool }

func (*BoolLit) exprNode()                      {}
func (*BoolLit) idents(out map[string]struct{}) {}

// UnaryExpr is a prefix operator expression: "!" or "-".
type UnaryExpr struct {
	Op string
	X  Expr
}

func (*UnaryExpr) exprNode() {}
func (e *UnaryExpr) idents(out map[string]struct{}) { e.X.idents(out) }

// BinaryExpr is an infix operator expression.
type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

func (*BinaryExpr) exprNode() {}
func (e *BinaryExpr) idents(out map[string]struct{}) {
	e.Left.idents(out)
	e.Right.idents(out)
}
