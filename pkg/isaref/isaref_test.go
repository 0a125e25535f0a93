package isaref

import (
	"errors"
	"testing"

	"github.com/oisee/y86sim/pkg/isa"
)

func encodeAll(instrs ...isa.Instruction) []byte {
	var out []byte
	for _, in := range instrs {
		out = append(out, isa.Encode(in)...)
	}
	return out
}

func TestRunHaltsImmediately(t *testing.T) {
	mem := make([]byte, 64)
	res, err := Run(mem)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stat != isa.StatHlt {
		t.Fatalf("Stat = %v, want StatHlt", res.Stat)
	}
	if res.NumInstrs != 1 {
		t.Errorf("NumInstrs = %d, want 1", res.NumInstrs)
	}
}

func TestIRMovQAndOPq(t *testing.T) {
	mem := make([]byte, 64)
	prog := encodeAll(
		isa.Instruction{ICode: isa.IIRMovQ, RB: isa.RAX, Valc: 10},
		isa.Instruction{ICode: isa.IIRMovQ, RB: isa.RCX, Valc: 3},
		isa.Instruction{ICode: isa.IOPq, IFun: uint8(isa.ALUSub), RA: isa.RCX, RB: isa.RAX},
		isa.Instruction{ICode: isa.IHalt},
	)
	copy(mem, prog)

	res, err := Run(mem)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// subq: rax -= rcx -> 10 - 3 = 7
	if got := res.Regs[isa.RAX]; got != 7 {
		t.Errorf("RAX = %d, want 7", got)
	}
	if res.CC.ZF {
		t.Error("ZF should be clear (result nonzero)")
	}
}

func TestIOPqUpdatesConditionCodes(t *testing.T) {
	mem := make([]byte, 64)
	prog := encodeAll(
		isa.Instruction{ICode: isa.IIRMovQ, RB: isa.RBX, Valc: 5},
		isa.Instruction{ICode: isa.IIOPq, IFun: uint8(isa.ALUSub), RB: isa.RBX, Valc: 5},
		isa.Instruction{ICode: isa.IHalt},
	)
	copy(mem, prog)

	res, err := Run(mem)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// iopq sub: rbx = rbx - imm = 5 - 5 = 0
	if got := res.Regs[isa.RBX]; got != 0 {
		t.Errorf("RBX = %d, want 0", got)
	}
	if !res.CC.ZF {
		t.Error("ZF should be set (result zero)")
	}
}

func TestPushqPopqRoundTrip(t *testing.T) {
	mem := make([]byte, 256)
	prog := encodeAll(
		isa.Instruction{ICode: isa.IIRMovQ, RB: isa.RSP, Valc: 128},
		isa.Instruction{ICode: isa.IIRMovQ, RB: isa.RAX, Valc: 0xdead},
		isa.Instruction{ICode: isa.IPushQ, RA: isa.RAX},
		isa.Instruction{ICode: isa.IIRMovQ, RB: isa.RAX, Valc: 0},
		isa.Instruction{ICode: isa.IPopQ, RA: isa.RAX},
		isa.Instruction{ICode: isa.IHalt},
	)
	copy(mem, prog)

	res, err := Run(mem)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := res.Regs[isa.RAX]; got != 0xdead {
		t.Errorf("RAX = %#x, want 0xdead", got)
	}
	if got := res.Regs[isa.RSP]; got != 128 {
		t.Errorf("RSP = %d, want 128 (restored)", got)
	}
}

func TestCallRetRoundTrip(t *testing.T) {
	mem := make([]byte, 256)
	// layout: call target; halt; target: ret
	call := isa.Instruction{ICode: isa.ICall, Valc: 9 /* placeholder, patched below */}
	halt := isa.Instruction{ICode: isa.IHalt}
	irmovq := isa.Instruction{ICode: isa.IIRMovQ, RB: isa.RSP, Valc: 128}

	setup := isa.Encode(irmovq)
	callBytes := isa.Encode(call)
	haltBytes := isa.Encode(halt)
	target := uint64(len(setup) + len(callBytes) + len(haltBytes))
	call.Valc = target
	callBytes = isa.Encode(call)

	prog := append(append(setup, callBytes...), haltBytes...)
	prog = append(prog, isa.Encode(isa.Instruction{ICode: isa.IRet})...)
	copy(mem, prog)

	res, err := Run(mem)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stat != isa.StatHlt {
		t.Fatalf("Stat = %v, want StatHlt", res.Stat)
	}
	// ret should have popped the return address back to the halt, so the
	// interpreter retired exactly 4 instructions: irmovq, call, ret, halt.
	if res.NumInstrs != 4 {
		t.Errorf("NumInstrs = %d, want 4", res.NumInstrs)
	}
}

func TestInvalidOpcodeFaults(t *testing.T) {
	mem := []byte{0xf0}
	_, err := Run(mem)
	if err == nil {
		t.Fatal("expected a fault error")
	}
	var faultErr *FaultError
	if !errors.As(err, &faultErr) {
		t.Fatalf("expected *FaultError, got %T: %v", err, err)
	}
	if faultErr.Stat != isa.StatIns {
		t.Errorf("Stat = %v, want StatIns", faultErr.Stat)
	}
}

func TestAddressFaultOnTruncatedFetch(t *testing.T) {
	mem := []byte{} // empty image, any pc faults immediately
	_, err := Run(mem)
	var faultErr *FaultError
	if !errors.As(err, &faultErr) {
		t.Fatalf("expected *FaultError, got %T: %v", err, err)
	}
	if faultErr.Stat != isa.StatAdr {
		t.Errorf("Stat = %v, want StatAdr", faultErr.Stat)
	}
}
