package hcl

import "fmt"

// Env is the runtime environment a compiled HCL program evaluates against.
// Every identifier an HCL expression can reference — a unit port, a stage
// field, or another intermediate signal — resolves to a Getter (when read)
// and, for destinations only, a Setter (when written). Architectures
// (pkg/arch) build one Env per architecture, once, wiring each entry to a
// closure over the architecture's own concrete Go structs; the compiled
// updaters (see Compiled) then run purely against this table, cycle after
// cycle, with no further type switching.
//
// Values are carried as uint64 throughout: booleans are 0/1, and signed
// quantities are reinterpreted by the caller (the ALU/flags live in
// pkg/isa, not here). This mirrors the HCL source's own convention of
// representing every signal as a bit vector.
type Env struct {
	Getters map[string]func() uint64
	Setters map[string]func(uint64)
	Tracer  *Tracer
}

// NewEnv returns an empty Env ready for an architecture to populate.
func NewEnv() *Env {
	return &Env{
		Getters: make(map[string]func() uint64),
		Setters: make(map[string]func(uint64)),
		Tracer:  &Tracer{},
	}
}

// Get resolves a read of the named signal/port/field.
func (e *Env) Get(name string) (uint64, error) {
	g, ok := e.Getters[name]
	if !ok {
		return 0, fmt.Errorf("hcl: unknown identifier %q", name)
	}
	return g(), nil
}

// Set resolves a write to the named destination.
func (e *Env) Set(name string, v uint64) error {
	s, ok := e.Setters[name]
	if !ok {
		return fmt.Errorf("hcl: unknown destination %q", name)
	}
	s(v)
	return nil
}

// Tracer is a per-cycle, append-only set of tunnel tags an HCL program
// attaches to cases, sources, or destinations for visualization
// (spec.md §3). It has no effect on simulation.
type Tracer struct {
	tags []string
}

// Mark records that a tunnel-tagged edge fired this cycle. A blank tag is a
// no-op (most cases/sources/destinations carry none).
func (t *Tracer) Mark(tag string) {
	if tag != "" {
		t.tags = append(t.tags, tag)
	}
}

// Tags returns the tags recorded so far this cycle.
func (t *Tracer) Tags() []string {
	out := make([]string, len(t.tags))
	copy(out, t.tags)
	return out
}

// Reset clears the tag list at the start of a new cycle.
func (t *Tracer) Reset() { t.tags = t.tags[:0] }
