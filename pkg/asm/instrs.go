package asm

// operandShape names the operand grammar a mnemonic expects, used both to
// validate a parsed instruction and to drive code generation.
type operandShape int

const (
	shapeNone    operandShape = iota // halt, nop, ret
	shapeRegReg                      // rrmovq/cmovXX ra, rb  |  OPq ra, rb
	shapeImmReg                      // irmovq/iopq imm, rb
	shapeRegMem                      // rmmovq ra, disp(rb)
	shapeMemReg                      // mrmovq disp(rb), ra
	shapeDest                        // jXX/call dest
	shapeReg                         // pushq/popq ra
)

type instrDef struct {
	icode uint8
	ifun  uint8
	shape operandShape
}

// y86 instruction classes, mirrored from pkg/isa.ICode so this package
// doesn't import pkg/isa merely to re-derive the same thirteen constants.
const (
	icodeHalt   = 0x0
	icodeNop    = 0x1
	icodeCMovXX = 0x2
	icodeIRMovQ = 0x3
	icodeRMMovQ = 0x4
	icodeMRMovQ = 0x5
	icodeOPq    = 0x6
	icodeJXX    = 0x7
	icodeCall   = 0x8
	icodeRet    = 0x9
	icodePushQ  = 0xa
	icodePopQ   = 0xb
	icodeIOPq   = 0xc
)

var instrTable = map[string]instrDef{
	"halt": {icodeHalt, 0, shapeNone},
	"nop":  {icodeNop, 0, shapeNone},
	"ret":  {icodeRet, 0, shapeNone},

	"rrmovq": {icodeCMovXX, 0, shapeRegReg},
	"cmovle": {icodeCMovXX, 1, shapeRegReg},
	"cmovl":  {icodeCMovXX, 2, shapeRegReg},
	"cmove":  {icodeCMovXX, 3, shapeRegReg},
	"cmovne": {icodeCMovXX, 4, shapeRegReg},
	"cmovge": {icodeCMovXX, 5, shapeRegReg},
	"cmovg":  {icodeCMovXX, 6, shapeRegReg},

	"irmovq": {icodeIRMovQ, 0, shapeImmReg},
	"rmmovq": {icodeRMMovQ, 0, shapeRegMem},
	"mrmovq": {icodeMRMovQ, 0, shapeMemReg},

	"addq": {icodeOPq, 0, shapeRegReg},
	"subq": {icodeOPq, 1, shapeRegReg},
	"andq": {icodeOPq, 2, shapeRegReg},
	"xorq": {icodeOPq, 3, shapeRegReg},

	"jmp": {icodeJXX, 0, shapeDest},
	"jle": {icodeJXX, 1, shapeDest},
	"jl":  {icodeJXX, 2, shapeDest},
	"je":  {icodeJXX, 3, shapeDest},
	"jne": {icodeJXX, 4, shapeDest},
	"jge": {icodeJXX, 5, shapeDest},
	"jg":  {icodeJXX, 6, shapeDest},

	"call": {icodeCall, 0, shapeDest},

	"pushq": {icodePushQ, 0, shapeReg},
	"popq":  {icodePopQ, 0, shapeReg},

	"iaddq": {icodeIOPq, 0, shapeImmReg},
	"isubq": {icodeIOPq, 1, shapeImmReg},
	"iandq": {icodeIOPq, 2, shapeImmReg},
	"ixorq": {icodeIOPq, 3, shapeImmReg},
}

// instrLen mirrors pkg/isa.ICode.Len without importing pkg/isa (the
// assembler's address-resolution pass runs before any Instruction value
// exists to call .Len() on).
var instrLen = map[uint8]int{
	icodeHalt:   1,
	icodeNop:    1,
	icodeCMovXX: 2,
	icodeIRMovQ: 10,
	icodeRMMovQ: 10,
	icodeMRMovQ: 10,
	icodeOPq:    2,
	icodeJXX:    9,
	icodeCall:   9,
	icodeRet:    1,
	icodePushQ:  2,
	icodePopQ:   2,
	icodeIOPq:   10,
}
