package arch

import (
	"fmt"

	"github.com/oisee/y86sim/pkg/hcl"
)

// probeUnit is a minimal hw.Unit used only by the fixtures below: it has no
// behavior of its own, just a name and a fixed set of ports to wire.
type probeUnit struct {
	name string
}

func (p *probeUnit) Name() string { return p.name }
func (p *probeUnit) Run() error   { return nil }

// BuildPipeInvalid constructs a deliberately cyclic two-signal HCL program
// (`a` reads `b`, `b` reads `a`) and confirms construction fails rather than
// silently picking an order (spec.md invariant 10). Test-only fixture; no
// cmd/y86sim entry point names this architecture.
func BuildPipeInvalid() (*Architecture, error) {
	env := hcl.NewEnv()
	scratch := map[string]uint64{}

	const src = `
u64 a = b;
u64 b = a;
`
	prog, err := hcl.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("arch: pipe_invalid: %w", err)
	}
	for _, decl := range prog.Signals {
		name := decl.Name
		env.Getters[name] = func() uint64 { return scratch[name] }
		env.Setters[name] = func(v uint64) { scratch[name] = v }
	}
	compiled, err := hcl.Compile(prog, env, isUnitName)
	if err != nil {
		return nil, fmt.Errorf("arch: pipe_invalid: %w", err)
	}

	b := newBuilder()
	b.wireCompiled(compiled)
	schedule, err := b.finish()
	if err != nil {
		return nil, err
	}
	return &Architecture{Name: "pipe_invalid", Schedule: schedule, Env: env, Compiled: compiled}, nil
}

// BuildUnusedUnitIn constructs an architecture whose sole unit declares an
// input port ("probe.missing") that the HCL program never assigns, and
// confirms construction fails rather than silently running the unit with a
// zero-valued input (spec.md invariant 11). Test-only fixture.
func BuildUnusedUnitIn() (*Architecture, error) {
	env := hcl.NewEnv()
	scratch := map[string]uint64{}

	const src = `
u64 unrelated = 1;
`
	prog, err := hcl.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("arch: unused_unit_in: %w", err)
	}
	for _, decl := range prog.Signals {
		name := decl.Name
		env.Getters[name] = func() uint64 { return scratch[name] }
		env.Setters[name] = func(v uint64) { scratch[name] = v }
	}
	compiled, err := hcl.Compile(prog, env, isUnitName)
	if err != nil {
		return nil, fmt.Errorf("arch: unused_unit_in: %w", err)
	}

	b := newBuilder()
	probe := &probeUnit{name: "probe"}
	b.wireUnitPorts(probe, []string{"probe.missing"}, nil)
	b.wireCompiled(compiled)

	schedule, err := b.finish()
	if err != nil {
		return nil, err
	}
	return &Architecture{Name: "unused_unit_in", Schedule: schedule, Env: env, Compiled: compiled}, nil
}
