// Package sim is the simulator driver: it owns one built pkg/arch
// Architecture and advances it one cycle at a time, exposing the
// operations spec.md §4.5 names (step, propagate_signals,
// initiate_next_cycle, program_counter, is_terminate, cycle_count,
// registers, stage_info) plus the cycle-budget enforcement spec.md §7
// calls out as a fatal runtime error.
package sim

import (
	"fmt"

	"github.com/oisee/y86sim/pkg/arch"
)

// DefaultMaxCycles is the cycle budget a Simulator enforces unless told
// otherwise (spec.md §7: "exceeded cycle budget" is a fatal runtime error).
const DefaultMaxCycles = 100_000

// BudgetExceededError reports that Run hit its cycle budget before the
// architecture reached a terminal state.
type BudgetExceededError struct {
	Budget uint64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("sim: exceeded cycle budget of %d cycles without terminating", e.Budget)
}

// Simulator drives one Architecture. It carries no state of its own beyond
// the cycle counter and tunnel-tag log; all architectural state (registers,
// memory, stage registers) lives in the wrapped Architecture, per spec.md
// §5's "simulators never share state".
type Simulator struct {
	Arch      *arch.Architecture
	MaxCycles uint64

	cycle   uint64
	tunnels []string
}

// New wraps a already-built Architecture for stepping.
func New(a *arch.Architecture) *Simulator {
	return &Simulator{Arch: a, MaxCycles: DefaultMaxCycles}
}

// CycleCount is the number of completed cycles (spec.md §4.5 cycle_count).
func (s *Simulator) CycleCount() uint64 { return s.cycle }

// ProgramCounter is the architecture's current program_counter signal.
func (s *Simulator) ProgramCounter() uint64 { return s.Arch.ProgramCounter() }

// IsTerminate reports whether the architecture's termination signal fired
// on the most recently completed cycle.
func (s *Simulator) IsTerminate() bool { return s.Arch.Terminated() }

// Registers is a snapshot of the 15 addressable registers.
func (s *Simulator) Registers() []uint64 { return s.Arch.RegFile.Snapshot() }

// StageInfo is the per-stage field dump used for source-level debugging
// and the CLI's verbose trace (spec.md §4.5 stage_info).
func (s *Simulator) StageInfo() []arch.StageInfo { return s.Arch.StageSnapshot() }

// Tunnels returns every tunnel tag marked so far, in mark order (spec.md
// §3/§9's append-only visualization log; no semantic effect on simulation).
func (s *Simulator) Tunnels() []string {
	out := make([]string, len(s.tunnels))
	copy(out, s.tunnels)
	return out
}

// PropagateSignals runs every unit and HCL updater in the architecture's
// fixed topological schedule exactly once — one fixed-point pass, not an
// iterate-to-convergence loop (spec.md §4.4).
func (s *Simulator) PropagateSignals() error {
	for _, r := range s.Arch.Schedule {
		if err := r.Run(); err != nil {
			return fmt.Errorf("sim: cycle %d: node %s: %w", s.cycle, r.Name, err)
		}
	}
	s.tunnels = append(s.tunnels, s.Arch.Env.Tracer.Tags()...)
	s.Arch.Env.Tracer.Reset()
	return nil
}

// InitiateNextCycle latches every stage register's pending next value into
// Cur and advances the cycle counter (spec.md §4.5 initiate_next_cycle).
func (s *Simulator) InitiateNextCycle() {
	for _, sr := range s.Arch.StageRegs {
		sr.Latch()
	}
	s.cycle++
}

// Step runs one full cycle: propagate, then latch. It does not check the
// cycle budget itself — Run does, so a single Step can always be called
// directly by a caller (e.g. pkg/dap's "next" request) that manages its own
// pacing.
func (s *Simulator) Step() error {
	if err := s.PropagateSignals(); err != nil {
		return err
	}
	s.InitiateNextCycle()
	return nil
}

// Run steps the simulator until IsTerminate reports true or the cycle
// budget is exhausted, whichever comes first.
func (s *Simulator) Run() error {
	budget := s.MaxCycles
	if budget == 0 {
		budget = DefaultMaxCycles
	}
	for s.cycle < budget {
		if err := s.Step(); err != nil {
			return err
		}
		if s.IsTerminate() {
			return nil
		}
	}
	return &BudgetExceededError{Budget: budget}
}
