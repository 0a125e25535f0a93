package isa

import "fmt"

// RegID identifies one of the sixteen Y86-64 registers. RNONE (0xF) is the
// sentinel used throughout the encoding and the pipeline to mean "no
// register": reads of RNONE yield 0, writes to RNONE are discarded.
type RegID uint8

const (
	RAX RegID = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	RNONE // 0xF: "no register"
)

// RegCount is the number of addressable registers (RNONE excluded from storage).
const RegCount = 15

var regNames = [16]string{
	"%rax", "%rcx", "%rdx", "%rbx", "%rsp", "%rbp", "%rsi", "%rdi",
	"%r8", "%r9", "%r10", "%r11", "%r12", "%r13", "%r14", "",
}

// String renders the register's assembly mnemonic, or "" for RNONE.
func (r RegID) String() string {
	if r > RNONE {
		return fmt.Sprintf("%%badreg%d", uint8(r))
	}
	return regNames[r]
}

// Valid reports whether r names a real register (not RNONE, not out of range).
func (r RegID) Valid() bool {
	return r < RNONE
}
