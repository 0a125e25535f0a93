// Package isaref is a straight-line, non-pipelined Y86-64 interpreter used
// only as a correctness oracle in tests (spec.md §8 invariant 6). It shares
// no code with pkg/arch's dataflow architectures — this is the independent
// "obviously correct" implementation their cycle-by-cycle behavior is
// checked against. Supports the same opcode set as pkg/isa plus the
// extended immediate-arithmetic opcode IOPq.
package isaref

import (
	"fmt"

	"github.com/oisee/y86sim/pkg/isa"
)

// Result is the final architectural state after Run halts or faults.
type Result struct {
	Mem       []byte
	Regs      [isa.RegCount]uint64
	CC        isa.CC
	PC        uint64
	NumInstrs uint64
	Stat      isa.Stat
}

// FaultError reports that execution stopped on an address fault or an
// invalid instruction, rather than a halt. Stat distinguishes the two
// (isa.StatAdr, isa.StatIns); Result is the state at the moment of fault.
type FaultError struct {
	Stat   isa.Stat
	Result Result
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("isaref: %s at pc %#x", e.Stat, e.Result.PC)
}

// MaxInstrs bounds a Run call against a program that loops forever without
// halting or faulting (spec.md §7's cycle-budget discipline, applied here
// to instruction count instead of cycles since this interpreter has no
// notion of a cycle).
const MaxInstrs = 10_000_000

// Run executes mem from address 0 until a halt, a fault, or MaxInstrs
// instructions have retired. mem is copied; the caller's slice is never
// mutated.
func Run(mem []byte) (Result, error) {
	bin := make([]byte, len(mem))
	copy(bin, mem)

	var regs [isa.RegCount]uint64
	var cc isa.CC
	var pc uint64
	var n uint64

	fault := func(stat isa.Stat) (Result, error) {
		r := Result{Mem: bin, Regs: regs, CC: cc, PC: pc, NumInstrs: n, Stat: stat}
		return r, &FaultError{Stat: stat, Result: r}
	}

	read := func(id isa.RegID) uint64 {
		if !id.Valid() {
			return 0
		}
		return regs[id]
	}
	write := func(id isa.RegID, v uint64) {
		if !id.Valid() {
			return
		}
		regs[id] = v
	}
	readMem := func(addr uint64) (uint64, bool) {
		if addr+8 > uint64(len(bin)) || addr+8 < addr {
			return 0, false
		}
		var v uint64
		for i := 0; i < 8; i++ {
			v |= uint64(bin[addr+uint64(i)]) << (8 * i)
		}
		return v, true
	}
	writeMem := func(addr uint64, v uint64) bool {
		if addr+8 > uint64(len(bin)) || addr+8 < addr {
			return false
		}
		for i := 0; i < 8; i++ {
			bin[addr+uint64(i)] = byte(v >> (8 * i))
		}
		return true
	}

	for n = 0; n < MaxInstrs; n++ {
		window := windowAt(bin, pc, isa.MaxInstrLen)
		if len(window) == 0 {
			return fault(isa.StatAdr)
		}
		instr, ok := isa.Decode(window)
		if !ok {
			if !isa.ICode(window[0] >> 4).Valid() {
				return fault(isa.StatIns)
			}
			return fault(isa.StatAdr)
		}

		switch instr.ICode {
		case isa.IHalt:
			n++
			return Result{Mem: bin, Regs: regs, CC: cc, PC: pc, NumInstrs: n, Stat: isa.StatHlt}, nil

		case isa.INop:
			pc += uint64(instr.Len())

		case isa.ICMovXX:
			if instr.Cond().Test(cc) {
				write(instr.RB, read(instr.RA))
			}
			pc += uint64(instr.Len())

		case isa.IIRMovQ:
			write(instr.RB, instr.Valc)
			pc += uint64(instr.Len())

		case isa.IRMMovQ:
			addr := read(instr.RB) + instr.Valc
			if !writeMem(addr, read(instr.RA)) {
				return fault(isa.StatAdr)
			}
			pc += uint64(instr.Len())

		case isa.IMRMovQ:
			addr := read(instr.RB) + instr.Valc
			v, ok := readMem(addr)
			if !ok {
				return fault(isa.StatAdr)
			}
			write(instr.RA, v)
			pc += uint64(instr.Len())

		case isa.IOPq:
			va, vb := read(instr.RA), read(instr.RB)
			ve := instr.Alu().Compute(va, vb)
			cc = isa.ComputeFlags(instr.Alu(), va, vb, ve)
			write(instr.RB, ve)
			pc += uint64(instr.Len())

		case isa.IJXX:
			if instr.Cond().Test(cc) {
				pc = instr.Valc
			} else {
				pc += uint64(instr.Len())
			}

		case isa.ICall:
			ret := pc + uint64(instr.Len())
			sp := read(isa.RSP) - 8
			if !writeMem(sp, ret) {
				return fault(isa.StatAdr)
			}
			write(isa.RSP, sp)
			pc = instr.Valc

		case isa.IRet:
			sp := read(isa.RSP)
			v, ok := readMem(sp)
			if !ok {
				return fault(isa.StatAdr)
			}
			write(isa.RSP, sp+8)
			pc = v

		case isa.IPushQ:
			va := read(instr.RA)
			sp := read(isa.RSP) - 8
			if !writeMem(sp, va) {
				return fault(isa.StatAdr)
			}
			write(isa.RSP, sp)
			pc += uint64(instr.Len())

		case isa.IPopQ:
			sp := read(isa.RSP)
			v, ok := readMem(sp)
			if !ok {
				return fault(isa.StatAdr)
			}
			write(isa.RSP, sp+8)
			write(instr.RA, v)
			pc += uint64(instr.Len())

		case isa.IIOPq:
			vb := read(instr.RB)
			ve := instr.Alu().Compute(instr.Valc, vb)
			cc = isa.ComputeFlags(instr.Alu(), instr.Valc, vb, ve)
			write(instr.RB, ve)
			pc += uint64(instr.Len())

		default:
			return fault(isa.StatIns)
		}
	}

	return Result{Mem: bin, Regs: regs, CC: cc, PC: pc, NumInstrs: n, Stat: isa.StatAok},
		fmt.Errorf("isaref: exceeded %d instructions without halting", MaxInstrs)
}

// windowAt returns up to n bytes of bin starting at addr, truncated at the
// end of the image (mirrors mem.Handle.ReadWindow without needing a
// mem.Image — this interpreter owns a plain byte slice, not a shared
// Handle).
func windowAt(bin []byte, addr uint64, n int) []byte {
	if addr >= uint64(len(bin)) {
		return nil
	}
	end := addr + uint64(n)
	if end > uint64(len(bin)) {
		end = uint64(len(bin))
	}
	return bin[addr:end]
}
