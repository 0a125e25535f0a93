package arch

import "testing"

func TestBuildPipeConstructsAValidSchedule(t *testing.T) {
	arc, err := BuildPipe(1 << 16)
	if err != nil {
		t.Fatalf("BuildPipe: %v", err)
	}
	if len(arc.StageRegs) != 5 {
		t.Errorf("StageRegs = %d, want 5", len(arc.StageRegs))
	}
	if len(arc.Schedule) == 0 {
		t.Fatal("Schedule is empty")
	}

	seen := map[string]bool{}
	for _, r := range arc.Schedule {
		if seen[r.Name] {
			t.Errorf("node %q scheduled twice", r.Name)
		}
		seen[r.Name] = true
		if r.Run == nil {
			t.Errorf("node %q has a nil run func", r.Name)
		}
	}

	// The stage registers must be the last five entries (spec.md §4.3's
	// ordering refinement: stage registers run after every combinational
	// updater that feeds their In tuple this cycle).
	tail := arc.Schedule[len(arc.Schedule)-5:]
	wantTail := map[string]bool{"F": true, "D": true, "E": true, "M": true, "W": true}
	for _, r := range tail {
		if !wantTail[r.Name] {
			t.Errorf("expected a stage register in the schedule tail, found %q", r.Name)
		}
	}
}

func TestBuildPipeResetState(t *testing.T) {
	arc, err := BuildPipe(1 << 16)
	if err != nil {
		t.Fatalf("BuildPipe: %v", err)
	}
	if arc.ProgramCounter() != 0 {
		t.Errorf("initial ProgramCounter = %#x, want 0", arc.ProgramCounter())
	}
	if arc.Terminated() {
		t.Error("a freshly built architecture must not report terminated before any cycle runs")
	}
	if got := len(arc.RegFile.Snapshot()); got == 0 {
		t.Error("RegFile.Snapshot() returned no registers")
	}
	info := arc.StageSnapshot()
	if len(info) != 5 {
		t.Errorf("StageSnapshot returned %d stages, want 5", len(info))
	}
}
