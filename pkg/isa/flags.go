package isa

// CC is the three-bit condition-code register: sign, overflow, zero.
type CC struct {
	SF, OF, ZF bool
}

// ComputeFlags derives the provisional condition codes for an ALU result e,
// given the two operands a (aluA) and b (aluB) that produced it under
// function f. Per spec.md §6: SF = bit63(e); ZF = (e == 0); OF is defined
// only for ADD and SUB (false otherwise).
func ComputeFlags(f ALUFun, a, b, e uint64) CC {
	cc := CC{
		SF: e>>63 != 0,
		ZF: e == 0,
	}
	switch f {
	case ALUAdd:
		cc.OF = (^(a^b)&(a^e))>>63 != 0
	case ALUSub:
		cc.OF = ((a^b)&(b^e))>>63 != 0
	}
	return cc
}
