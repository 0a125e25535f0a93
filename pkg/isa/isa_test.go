package isa

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Instruction{
		{ICode: IHalt},
		{ICode: INop},
		{ICode: ICMovXX, IFun: uint8(CondE), RA: RAX, RB: RCX},
		{ICode: IIRMovQ, RB: RDX, Valc: 0xdeadbeef},
		{ICode: IRMMovQ, RA: RAX, RB: RSP, Valc: 0x10},
		{ICode: IMRMovQ, RA: RBX, RB: RBP, Valc: 0xfffffffffffffff8},
		{ICode: IOPq, IFun: uint8(ALUSub), RA: RAX, RB: RBX},
		{ICode: IJXX, IFun: uint8(CondNE), Valc: 0x100},
		{ICode: ICall, Valc: 0x200},
		{ICode: IRet},
		{ICode: IPushQ, RA: RAX},
		{ICode: IPopQ, RA: RBX},
		{ICode: IIOPq, IFun: uint8(ALUAdd), RB: RCX, Valc: 7},
	}
	for _, want := range cases {
		enc := Encode(want)
		if len(enc) != want.Len() {
			t.Fatalf("Encode(%+v): got %d bytes, want %d", want, len(enc), want.Len())
		}
		// Pad to MaxInstrLen so Decode never sees a truncated window here.
		window := make([]byte, MaxInstrLen)
		copy(window, enc)

		got, ok := Decode(window)
		if !ok {
			t.Fatalf("Decode(%v) failed for %+v", enc, want)
		}
		if got != want {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestDecodeInvalidICode(t *testing.T) {
	window := make([]byte, MaxInstrLen)
	window[0] = 0xf0 // icode 0xf is not defined
	if _, ok := Decode(window); ok {
		t.Fatal("Decode should reject icode 0xf")
	}
}

func TestDecodeTruncatedWindow(t *testing.T) {
	// irmovq needs 10 bytes; give it 3.
	window := []byte{byte(IIRMovQ) << 4, byte(RNONE)<<4 | byte(RAX), 0x01}
	if _, ok := Decode(window); ok {
		t.Fatal("Decode should reject a truncated window")
	}
}

func TestCondFunTest(t *testing.T) {
	tests := []struct {
		f    CondFun
		cc   CC
		want bool
	}{
		{CondYes, CC{}, true},
		{CondLE, CC{ZF: true}, true},
		{CondLE, CC{SF: true, OF: false}, true},
		{CondLE, CC{}, false},
		{CondL, CC{SF: true}, true},
		{CondL, CC{}, false},
		{CondE, CC{ZF: true}, true},
		{CondNE, CC{ZF: true}, false},
		{CondNE, CC{}, true},
		{CondGE, CC{SF: true, OF: true}, true},
		{CondG, CC{SF: true, OF: true}, true},
		{CondG, CC{ZF: true, SF: true, OF: true}, false},
	}
	for _, tc := range tests {
		if got := tc.f.Test(tc.cc); got != tc.want {
			t.Errorf("%v.Test(%+v) = %v, want %v", tc.f, tc.cc, got, tc.want)
		}
	}
}

func TestALUFunCompute(t *testing.T) {
	if got := ALUAdd.Compute(2, 3); got != 5 {
		t.Errorf("ADD(2,3) = %d, want 5", got)
	}
	if got := ALUSub.Compute(2, 5); got != 3 {
		t.Errorf("SUB: 5-2 = %d, want 3", got)
	}
	if got := ALUAnd.Compute(0xf0, 0xff); got != 0xf0 {
		t.Errorf("AND = %#x, want 0xf0", got)
	}
	if got := ALUXor.Compute(0xff, 0x0f); got != 0xf0 {
		t.Errorf("XOR = %#x, want 0xf0", got)
	}
	if got := ALUFun(0xf).Compute(1, 2); got != 0 {
		t.Errorf("invalid ALU func should yield 0, got %d", got)
	}
}

func TestComputeFlagsAddOverflow(t *testing.T) {
	// 0x7fffffffffffffff + 1 overflows into the sign bit.
	a, b := uint64(1), uint64(0x7fffffffffffffff)
	e := a + b
	cc := ComputeFlags(ALUAdd, a, b, e)
	if !cc.SF {
		t.Error("expected SF set")
	}
	if !cc.OF {
		t.Error("expected OF set on signed overflow")
	}
	if cc.ZF {
		t.Error("expected ZF clear")
	}
}

func TestComputeFlagsSubZero(t *testing.T) {
	cc := ComputeFlags(ALUSub, 5, 5, 0)
	if !cc.ZF {
		t.Error("expected ZF set for a-a")
	}
	if cc.OF {
		t.Error("expected OF clear")
	}
}

func TestRNoneRegisterName(t *testing.T) {
	if RNONE.Valid() {
		t.Error("RNONE should not be Valid")
	}
	if RAX.String() != "%rax" {
		t.Errorf("RAX.String() = %q", RAX.String())
	}
}
