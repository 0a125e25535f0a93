package sim

import (
	"errors"
	"testing"

	"github.com/oisee/y86sim/pkg/arch"
	"github.com/oisee/y86sim/pkg/isa"
	"github.com/oisee/y86sim/pkg/mem"
)

// loadHalt writes a single halt instruction (icode 0, ifun 0) at address 0
// so a driver test can run to termination without pkg/asm.
func loadHalt(t *testing.T, m *mem.Image) {
	t.Helper()
	h := mem.NewHandle(m)
	if !h.LoadAt(0, []byte{0x00}) {
		t.Fatal("LoadAt failed")
	}
}

func TestSimulatorRunsToHaltOnPipe(t *testing.T) {
	a, err := arch.BuildPipe(1 << 16)
	if err != nil {
		t.Fatalf("BuildPipe: %v", err)
	}
	loadHalt(t, a.Mem)

	s := New(a)
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !s.IsTerminate() {
		t.Error("expected IsTerminate() after a halt reaches writeback")
	}
	if s.CycleCount() == 0 {
		t.Error("CycleCount() should advance past 0")
	}
}

func TestSimulatorRunsToHaltOnSeq(t *testing.T) {
	a, err := arch.BuildSeq(1 << 16)
	if err != nil {
		t.Fatalf("BuildSeq: %v", err)
	}
	loadHalt(t, a.Mem)

	s := New(a)
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !s.IsTerminate() {
		t.Error("expected IsTerminate() after the halt instruction executes")
	}
	if s.CycleCount() != 1 {
		t.Errorf("CycleCount() = %d, want 1 (single-cycle organization halts on its first cycle)", s.CycleCount())
	}
}

func TestSimulatorRunBudgetExceeded(t *testing.T) {
	a, err := arch.BuildSeq(1 << 16)
	if err != nil {
		t.Fatalf("BuildSeq: %v", err)
	}
	// A memory image that starts with 64 nops (icode 1): no halt is reached
	// within the 8-cycle budget, so the budget fires.
	h := mem.NewHandle(a.Mem)
	nops := make([]byte, 64)
	for i := range nops {
		nops[i] = 0x10 // nop, ifun 0
	}
	h.LoadAt(0, nops)

	s := New(a)
	s.MaxCycles = 8
	err = s.Run()
	if err == nil {
		t.Fatal("expected a budget-exceeded error")
	}
	var budgetErr *BudgetExceededError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("expected *BudgetExceededError, got %T: %v", err, err)
	}
	if s.CycleCount() != 8 {
		t.Errorf("CycleCount() = %d, want 8", s.CycleCount())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	a, err := arch.BuildSeq(1 << 16)
	if err != nil {
		t.Fatalf("BuildSeq: %v", err)
	}
	mem.NewHandle(a.Mem).LoadAt(0, []byte{0x00})

	s := New(a)
	a.RegFile.Write(isa.RAX, 0x2a)
	snap := s.TakeSnapshot()
	if snap.Regs[isa.RAX] != 0x2a {
		t.Errorf("snapshot Regs[RAX] = %#x, want 0x2a", snap.Regs[isa.RAX])
	}

	b, err := arch.BuildSeq(1 << 16)
	if err != nil {
		t.Fatalf("BuildSeq: %v", err)
	}
	s2 := New(b)
	s2.Restore(snap)
	if got := b.RegFile.Read(isa.RAX); got != 0x2a {
		t.Errorf("restored RAX = %#x, want 0x2a", got)
	}
}
