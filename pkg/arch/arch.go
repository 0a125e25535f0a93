// Package arch assembles the built-in processor organizations: concrete
// hw.Unit/hw.StageReg instances wired together by an hcl.Env and an HCL
// program, scheduled by pkg/graph (spec.md §3, §4, §5).
//
// Every architecture shares the same construction shape: allocate the
// owned hardware state (register file, condition-code register, memory
// handles), allocate the stage registers, build the combinational units
// that read/write those stages' ports, register every port/stage field in
// an hcl.Env, compile the architecture's HCL program against that Env, and
// finally feed units + stage registers + compiled updaters into a
// pkg/graph.Graph to produce one fixed topological schedule. pkg/sim then
// drives that schedule once per cycle.
package arch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oisee/y86sim/pkg/graph"
	"github.com/oisee/y86sim/pkg/hcl"
	"github.com/oisee/y86sim/pkg/hw"
	"github.com/oisee/y86sim/pkg/mem"
)

// StageLatcher is the subset of hw.StageReg[T]'s behavior pkg/sim needs
// without knowing T: Run (already part of hw.Unit) plus Latch.
type StageLatcher interface {
	hw.Unit
	Latch()
}

// Architecture is the fully wired, fully scheduled result of building one
// of the named organizations below.
type Architecture struct {
	Name string

	Mem      *mem.Image
	RegFile  *RegFile
	CC       *CCReg
	StageRegs []StageLatcher

	Env      *hcl.Env
	Compiled *hcl.Compiled

	// Schedule is the cycle-body execution order: the subset of the
	// dataflow graph's topological order that corresponds to an actual
	// runnable (a unit or an HCL updater). Port/field bookkeeping nodes
	// are filtered out — they exist only to carry dependency edges.
	Schedule []Runnable

	ProgramCounter func() uint64
	Terminated     func() bool
	StageSnapshot  func() []StageInfo
}

// StageInfo is one stage's field values, formatted for display (pkg/sim's
// stage_info operation, spec.md §5).
type StageInfo struct {
	Name   string
	Fields []FieldValue
}

type FieldValue struct {
	Name  string
	Value string
}

type Runnable struct {
	Name string
	Run  func() error
}

// builder accumulates nodes and edges while an architecture wires its
// units; Finish() runs the toposort and produces the final Schedule.
type builder struct {
	g        *graph.Graph
	byNode   map[string]Runnable
	stageSet map[string]bool // stage-qualified name prefixes, e.g. "D", "E"

	// requiredInputs lists every unit input port wireUnitPorts declared, in
	// the order declared. finish verifies each one has an actual producer
	// before accepting the schedule (spec.md invariant 11).
	requiredInputs []string
}

func newBuilder() *builder {
	return &builder{
		g:        graph.New(),
		byNode:   make(map[string]Runnable),
		stageSet: make(map[string]bool),
	}
}

// UnwiredInputError reports that a unit declared an input port the
// architecture's HCL program never produces a value for.
type UnwiredInputError struct {
	Port string
}

func (e *UnwiredInputError) Error() string {
	return fmt.Sprintf("arch: input port %q has no producer in the HCL program", e.Port)
}

// declareStage registers a stage register unit under the given short name
// (its StageName, e.g. "D") so later port-name lookups know "D.icode" is
// stage-qualified rather than a plain unit port.
func (b *builder) declareStage(name string, s StageLatcher) {
	b.stageSet[name] = true
	b.g.AddNode(name, true)
	b.byNode[name] = Runnable{Name: name, Run: s.Run}
}

// declareUnit registers a plain combinational unit.
func (b *builder) declareUnit(u hw.Unit) {
	b.g.AddNode(u.Name(), false)
	b.byNode[u.Name()] = Runnable{Name: u.Name(), Run: u.Run}
}

// isStageQualified reports whether name has the shape "Stage.field" for a
// declared stage.
func (b *builder) isStageQualified(name string) (stage, rest string, ok bool) {
	idx := strings.IndexByte(name, '.')
	if idx < 0 {
		return "", "", false
	}
	prefix := name[:idx]
	if b.stageSet[prefix] {
		return prefix, name[idx+1:], true
	}
	return "", "", false
}

// readNode and writeNode give a stage-qualified name its correct graph
// identity: reading "D.icode" observes the stage's current (already
// latched) value, with no in-cycle producer; writing "D.icode" is a
// candidate for the *next* value and must be ready before the stage
// register's own Run (the bubble/stall/latch resolution). Plain unit ports
// have no such duality and use the same node for both directions.
func (b *builder) readNode(name string) string {
	if stage, rest, ok := b.isStageQualified(name); ok {
		n := stage + ".cur." + rest
		b.g.AddNode(n, false)
		return n
	}
	return name
}

func (b *builder) writeNode(name string) string {
	if stage, rest, ok := b.isStageQualified(name); ok {
		n := stage + ".next." + rest
		b.g.AddNode(n, false)
		b.g.AddEdge(n, stage) // the stage register depends on every next-field write
		return n
	}
	b.g.AddNode(name, false)
	return name
}

// wireUnitPorts adds, for a plain unit (not a stage register), an edge
// from each input port to the unit and from the unit to each output port.
// Non-stage-qualified inputs are recorded as required: finish rejects any
// architecture whose HCL program never produces a value for one (spec.md
// invariant 11). A stage-qualified input (a unit reading a stage's cur
// field directly) is exempt — that value comes from the previous cycle's
// Latch, not from this cycle's graph, so it has no producer by design.
func (b *builder) wireUnitPorts(u hw.Unit, inputs, outputs []string) {
	b.declareUnit(u)
	for _, in := range inputs {
		b.g.AddNode(in, false)
		b.g.AddEdge(in, u.Name())
		if _, _, ok := b.isStageQualified(in); !ok {
			b.requiredInputs = append(b.requiredInputs, in)
		}
	}
	for _, out := range outputs {
		b.g.AddNode(out, false)
		b.g.AddEdge(u.Name(), out)
	}
}

// wireCompiled adds one node and the dep/dest edges per spec.md §4.3 for
// every updater in c.
func (b *builder) wireCompiled(c *hcl.Compiled) {
	for _, u := range c.Updaters {
		b.g.AddNode(u.Name, false)
		b.byNode[u.Name] = Runnable{Name: u.Name, Run: u.Run}
	}
	for _, u := range c.Updaters {
		for _, dep := range u.Deps {
			b.g.AddEdge(b.readNode(dep), u.Name)
		}
		for _, dest := range u.Dests {
			b.g.AddEdge(u.Name, b.writeNode(dest))
		}
	}
}

// finish topologically sorts the accumulated graph and filters it down to
// the runnable schedule.
func (b *builder) finish() ([]Runnable, error) {
	for _, in := range b.requiredInputs {
		if b.g.InDegree(in) == 0 {
			return nil, &UnwiredInputError{Port: in}
		}
	}
	order, err := b.g.Toposort()
	if err != nil {
		return nil, err
	}
	var out []Runnable
	for _, n := range order {
		if r, ok := b.byNode[n]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// isUnitName reports (for hcl.Compile) whether name is a bare unit/stage
// name rather than a qualified port. None of the built-in architectures'
// HCL programs reference bare unit names — every reference is
// dot-qualified — so this always returns false; kept as a named function
// rather than a literal nil to document the decision.
func isUnitName(name string) bool { return false }

// hex64 formats a value for StageInfo display, matching the teacher's
// plain fmt-based formatting style rather than a structured encoder.
func hex64(v uint64) string { return fmt.Sprintf("0x%016x", v) }

func sortedFieldValues(m map[string]string) []FieldValue {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]FieldValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, FieldValue{Name: k, Value: m[k]})
	}
	return out
}
