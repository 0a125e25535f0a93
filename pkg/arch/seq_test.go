package arch

import "testing"

func TestBuildSeqConstructsAValidSchedule(t *testing.T) {
	arc, err := BuildSeq(1 << 16)
	if err != nil {
		t.Fatalf("BuildSeq: %v", err)
	}
	if len(arc.StageRegs) != 1 {
		t.Errorf("StageRegs = %d, want 1 (just PC)", len(arc.StageRegs))
	}
	if len(arc.Schedule) == 0 {
		t.Fatal("Schedule is empty")
	}
	if arc.Schedule[len(arc.Schedule)-1].Name != "PC" {
		t.Errorf("last scheduled node = %q, want PC", arc.Schedule[len(arc.Schedule)-1].Name)
	}
	if arc.ProgramCounter() != 0 {
		t.Errorf("initial ProgramCounter = %#x, want 0", arc.ProgramCounter())
	}
	if arc.Terminated() {
		t.Error("a freshly built architecture must not report terminated before any cycle runs")
	}
}
