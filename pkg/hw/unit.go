// Package hw is the functional-unit framework (spec.md §4.1): a uniform
// declaration shape for every piece of hardware and a uniform Run dispatch
// from the propagation engine's scheduler.
//
// The source language (Rust, via hcl_macro) dispatches units by name through
// a single `run(name, input, output)` entry point built at macro-expansion
// time. Go has no compile-time macro expansion, and a name-keyed dynamic
// dispatch would need reflection to stay type-safe per unit. Since every
// architecture wires its units once, at construction, a plain Unit
// interface with a no-argument Run() closing over that unit's own typed
// input/output records gives the same "one call per scheduled item"
// property the spec requires, without reflection. See DESIGN.md.
package hw

// Unit is one scheduled item backed by a functional unit: a named,
// pure-per-cycle body that reads its own inputs (and owned state) and
// writes its own outputs. Run never aborts a cycle for a unit-level
// fault (address fault, invalid instruction, ...); those are reported via
// the unit's own output fields. A non-nil error from Run signals a
// programmer error — a construction-time invariant violated at runtime
// (currently only StageReg's bubble∧stall conflict) — and aborts the
// cycle (spec.md §4.5, §7).
type Unit interface {
	Name() string
	Run() error
}

// Func adapts a plain combinational body to the Unit interface. It holds
// only the unit's name and its body; the body closes over whatever
// input/output records the unit reads and writes.
type Func struct {
	UnitName string
	Body     func() error
}

func (f *Func) Name() string { return f.UnitName }
func (f *Func) Run() error   { return f.Body() }
