package hw

import "testing"

type fields struct {
	X int
}

func TestStageRegLatchPolicy(t *testing.T) {
	s := &StageReg[fields]{StageName: "D", Default: fields{X: -1}}

	// Plain latch: neither bubble nor stall.
	s.In = fields{X: 42}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	s.Latch()
	if s.Cur.X != 42 {
		t.Errorf("latch: got %d, want 42", s.Cur.X)
	}

	// Bubble: next cycle reverts to the default regardless of In.
	s.In = fields{X: 99}
	s.Bubble = true
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	s.Latch()
	if s.Cur.X != -1 {
		t.Errorf("bubble: got %d, want -1", s.Cur.X)
	}
	s.Bubble = false

	// Stall: Cur holds its previous value even though In changed.
	s.Cur = fields{X: 7}
	s.In = fields{X: 123}
	s.Stall = true
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	s.Latch()
	if s.Cur.X != 7 {
		t.Errorf("stall: got %d, want 7 (held)", s.Cur.X)
	}
	s.Stall = false
}

func TestStageRegBubbleStallConflictIsFatal(t *testing.T) {
	s := &StageReg[fields]{StageName: "E", Bubble: true, Stall: true}
	err := s.Run()
	if err == nil {
		t.Fatal("expected an error when bubble and stall are both set")
	}
	var conflict *StageConflictError
	if !asStageConflict(err, &conflict) {
		t.Fatalf("expected *StageConflictError, got %T", err)
	}
	if conflict.Stage != "E" {
		t.Errorf("Stage = %q, want E", conflict.Stage)
	}
}

func asStageConflict(err error, target **StageConflictError) bool {
	if e, ok := err.(*StageConflictError); ok {
		*target = e
		return true
	}
	return false
}

func TestFuncRunDispatchesBody(t *testing.T) {
	called := false
	f := &Func{UnitName: "probe", Body: func() error {
		called = true
		return nil
	}}
	if f.Name() != "probe" {
		t.Errorf("Name() = %q", f.Name())
	}
	if err := f.Run(); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("Body was not invoked")
	}
}
