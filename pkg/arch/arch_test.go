package arch

import (
	"errors"
	"testing"

	"github.com/oisee/y86sim/pkg/graph"
)

func TestBuildPipeInvalidFailsOnCycle(t *testing.T) {
	_, err := BuildPipeInvalid()
	if err == nil {
		t.Fatal("expected a cycle error, got nil")
	}
	var cycleErr *graph.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *graph.CycleError, got %T: %v", err, err)
	}
}

func TestBuildUnusedUnitInFailsConstruction(t *testing.T) {
	_, err := BuildUnusedUnitIn()
	if err == nil {
		t.Fatal("expected an unwired-input error, got nil")
	}
	var unwired *UnwiredInputError
	if !errors.As(err, &unwired) {
		t.Fatalf("expected *UnwiredInputError, got %T: %v", err, err)
	}
	if unwired.Port != "probe.missing" {
		t.Errorf("Port = %q, want probe.missing", unwired.Port)
	}
}
