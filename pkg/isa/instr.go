package isa

// MaxInstrLen is the longest encoded instruction (irmovq/rmmovq/mrmovq/iopq):
// 1 opcode byte + 1 register byte + 8-byte immediate.
const MaxInstrLen = 10

// Instruction is the decoded form of one Y86-64 instruction. Valc carries
// whichever 64-bit field the instruction class defines: an immediate
// (irmovq, iopq), a displacement (rmmovq, mrmovq), or a branch/call
// destination (jXX, call). IFun is the raw low nibble of byte 0; callers
// interpret it as a CondFun or ALUFun depending on ICode.
type Instruction struct {
	ICode ICode
	IFun  uint8
	RA    RegID
	RB    RegID
	Valc  uint64
}

// Cond interprets IFun as a condition function (valid for ICMovXX, IJXX).
func (in Instruction) Cond() CondFun { return CondFun(in.IFun) }

// Alu interprets IFun as an ALU function (valid for IOPq, IIOPq).
func (in Instruction) Alu() ALUFun { return ALUFun(in.IFun) }

// Len returns the encoded length of this instruction.
func (in Instruction) Len() int { return in.ICode.Len() }

// Encode renders the instruction to its bit-exact byte encoding
// (spec.md §6). The returned slice has length in.Len().
func Encode(in Instruction) []byte {
	buf := make([]byte, in.Len())
	buf[0] = byte(in.ICode)<<4 | (in.IFun & 0xf)

	switch in.ICode {
	case IHalt, INop, IRet:
		// no further bytes

	case ICMovXX:
		buf[1] = byte(in.RA)<<4 | byte(in.RB)

	case IIRMovQ:
		buf[1] = byte(RNONE)<<4 | byte(in.RB)
		putLE64(buf[2:], in.Valc)

	case IRMMovQ, IMRMovQ:
		buf[1] = byte(in.RA)<<4 | byte(in.RB)
		putLE64(buf[2:], in.Valc)

	case IOPq:
		buf[1] = byte(in.RA)<<4 | byte(in.RB)

	case IJXX, ICall:
		putLE64(buf[1:], in.Valc)

	case IPushQ, IPopQ:
		buf[1] = byte(in.RA)<<4 | byte(RNONE)

	case IIOPq:
		buf[1] = byte(RNONE)<<4 | byte(in.RB)
		putLE64(buf[2:], in.Valc)
	}
	return buf
}

// Decode reads one instruction starting at the beginning of window. window
// must contain at least MaxInstrLen bytes if available (the caller, usually
// an instruction-memory unit, zero-pads or truncates at the end of memory);
// Decode only reads as many bytes as the decoded ICode's length requires.
//
// ok is false when byte 0's high nibble is not a defined ICode (spec.md §7:
// invalid instruction code, surfaced by the caller as StatIns — Decode
// itself never faults, it only reports).
func Decode(window []byte) (in Instruction, ok bool) {
	if len(window) == 0 {
		return Instruction{}, false
	}
	icode := ICode(window[0] >> 4)
	ifun := window[0] & 0xf
	if !icode.Valid() {
		return Instruction{}, false
	}
	in = Instruction{ICode: icode, IFun: ifun}

	need := icode.Len()
	if len(window) < need {
		// Truncated window (near end of memory); report bytes we have as
		// faulting. Caller (instruction-memory unit) decides address fault.
		return in, false
	}

	switch icode {
	case IHalt, INop, IRet:
		// no register/immediate bytes

	case ICMovXX:
		in.RA, in.RB = splitRegs(window[1])

	case IIRMovQ:
		_, in.RB = splitRegs(window[1])
		in.Valc = getLE64(window[2:])

	case IRMMovQ, IMRMovQ:
		in.RA, in.RB = splitRegs(window[1])
		in.Valc = getLE64(window[2:])

	case IOPq:
		in.RA, in.RB = splitRegs(window[1])

	case IJXX, ICall:
		in.Valc = getLE64(window[1:])

	case IPushQ, IPopQ:
		in.RA, _ = splitRegs(window[1])

	case IIOPq:
		_, in.RB = splitRegs(window[1])
		in.Valc = getLE64(window[2:])
	}
	return in, true
}

func splitRegs(b byte) (ra, rb RegID) {
	return RegID(b >> 4), RegID(b & 0xf)
}

func putLE64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

func getLE64(src []byte) uint64 {
	var v uint64
	n := len(src)
	if n > 8 {
		n = 8
	}
	for i := 0; i < n; i++ {
		v |= uint64(src[i]) << (8 * i)
	}
	return v
}
