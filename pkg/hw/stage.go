package hw

import "fmt"

// StageConflictError reports that a stage register saw bubble and stall
// asserted simultaneously in the same cycle — a construction/HCL-program
// bug, fatal per spec.md §3's stage invariant and §7's taxonomy.
type StageConflictError struct {
	Stage string
}

func (e *StageConflictError) Error() string {
	return fmt.Sprintf("stage %s: bubble and stall asserted simultaneously", e.Stage)
}

// StageReg is a pipeline stage register holding one typed tuple of fields,
// current and next (spec.md §3, §9: "do not attempt in-place update"). T is
// the stage's field-tuple type, e.g. a struct{ Stat isa.Stat; ICode isa.ICode; ... }.
//
// In is written by HCL updaters during propagation: "what the stage's
// contents would become if no bubble/stall override applies". Cur is the
// read-only, cycle-entry value every other unit/updater observes. Run
// resolves the bubble/stall/latch policy from spec.md §4.1 into the pending
// next value; Latch makes it current at the cycle boundary.
type StageReg[T any] struct {
	StageName string
	Default   T // the stage's bubble (NOP-equivalent) value

	Cur T // current-cycle value, read-only during propagation
	In  T // candidate next value, written by HCL updaters this cycle

	Bubble bool
	Stall  bool

	next T
}

func (s *StageReg[T]) Name() string { return s.StageName }

// Run implements the four-way bubble/stall/latch/fatal table (spec.md §4.1).
func (s *StageReg[T]) Run() error {
	switch {
	case s.Bubble && s.Stall:
		return &StageConflictError{Stage: s.StageName}
	case s.Bubble:
		s.next = s.Default
	case s.Stall:
		s.next = s.Cur
	default:
		s.next = s.In
	}
	return nil
}

// Latch copies the pending next value into Cur, atomically from the
// caller's point of view (spec.md §4.5 initiate_next_cycle). It also resets
// In to the stage's default so a cycle that writes nothing to this stage
// (no HCL updater targets it) does not accidentally latch stale data from
// two cycles ago.
func (s *StageReg[T]) Latch() {
	s.Cur = s.next
	s.In = s.Default
}
