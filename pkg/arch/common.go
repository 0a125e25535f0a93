package arch

import (
	"github.com/oisee/y86sim/pkg/isa"
	"github.com/oisee/y86sim/pkg/mem"
)

// RegFile is the owned register-file state, shared (via pointer) by
// whichever read/write units an architecture wires around it. RNONE reads
// as 0 and discards writes, per spec.md §3.
type RegFile struct {
	vals [isa.RegCount]uint64
}

func (r *RegFile) Read(id isa.RegID) uint64 {
	if !id.Valid() {
		return 0
	}
	return r.vals[id]
}

func (r *RegFile) Write(id isa.RegID, v uint64) {
	if !id.Valid() {
		return
	}
	r.vals[id] = v
}

// Snapshot returns every addressable register's current value, in
// increasing RegID order (pkg/sim's registers operation).
func (r *RegFile) Snapshot() []uint64 {
	out := make([]uint64, isa.RegCount)
	copy(out, r.vals[:])
	return out
}

// CCReg is the owned condition-code register.
type CCReg struct {
	cur isa.CC
}

func (c *CCReg) Read() isa.CC     { return c.cur }
func (c *CCReg) Write(cc isa.CC)  { c.cur = cc }

// FetchUnit decodes one instruction starting at PC. A fetch that runs off
// the end of memory, or lands on a truncated instruction, reports StatAdr;
// an undefined opcode reports StatIns (spec.md §6, §7). Neither kind of
// fault is a Go error — both are ordinary output data.
type FetchUnit struct {
	UnitName string
	IMem     mem.Handle

	PC uint64 // input

	Stat  isa.Stat // output
	ICode isa.ICode
	IFun  uint8
	RA    isa.RegID
	RB    isa.RegID
	ValC  uint64
	ValP  uint64
}

func (u *FetchUnit) Name() string { return u.UnitName }

func (u *FetchUnit) Run() error {
	window := u.IMem.ReadWindow(u.PC, isa.MaxInstrLen)
	if len(window) == 0 {
		u.Stat, u.ICode, u.IFun, u.RA, u.RB = isa.StatAdr, isa.IHalt, 0, isa.RNONE, isa.RNONE
		u.ValC, u.ValP = 0, u.PC
		return nil
	}

	instr, ok := isa.Decode(window)
	if !ok {
		if !isa.ICode(window[0] >> 4).Valid() {
			u.Stat = isa.StatIns
		} else {
			u.Stat = isa.StatAdr
		}
		u.ICode, u.IFun, u.RA, u.RB = isa.IHalt, 0, isa.RNONE, isa.RNONE
		u.ValC, u.ValP = 0, u.PC
		return nil
	}

	if instr.ICode == isa.IHalt {
		u.Stat = isa.StatHlt
	} else {
		u.Stat = isa.StatAok
	}
	u.ICode, u.IFun, u.RA, u.RB, u.ValC = instr.ICode, instr.IFun, instr.RA, instr.RB, instr.Valc
	u.ValP = u.PC + uint64(instr.Len())
	return nil
}

// RegReadUnit performs a standalone register-file read, used by the
// single-cycle organization's split read unit (spec.md §3: "splits it into
// independent read and write units").
type RegReadUnit struct {
	UnitName string
	RF       *RegFile

	SrcA, SrcB isa.RegID // inputs
	ValA, ValB uint64    // outputs
}

func (u *RegReadUnit) Name() string { return u.UnitName }
func (u *RegReadUnit) Run() error {
	u.ValA = u.RF.Read(u.SrcA)
	u.ValB = u.RF.Read(u.SrcB)
	return nil
}

// RegWriteUnit performs a standalone register-file write.
type RegWriteUnit struct {
	UnitName string
	RF       *RegFile

	DstE, DstM isa.RegID // inputs
	ValE, ValM uint64
}

func (u *RegWriteUnit) Name() string { return u.UnitName }
func (u *RegWriteUnit) Run() error {
	u.RF.Write(u.DstE, u.ValE)
	u.RF.Write(u.DstM, u.ValM)
	return nil
}

// RegFileUnit is the combined, write-before-read register file the
// pipelined organization uses (spec.md §3: "the register file is one unit
// that performs writes before reads in the same cycle" — a structural
// hazard resolution, not a bug): the writeback stage's retiring
// instruction is visible to the decode stage's read in the very same
// cycle.
type RegFileUnit struct {
	UnitName string
	RF       *RegFile

	WDstE, WDstM isa.RegID // write inputs, from the W stage
	WValE, WValM uint64

	SrcA, SrcB isa.RegID // read inputs, from the decode-stage selection logic
	ValA, ValB uint64    // read outputs
}

func (u *RegFileUnit) Name() string { return u.UnitName }
func (u *RegFileUnit) Run() error {
	u.RF.Write(u.WDstE, u.WValE)
	u.RF.Write(u.WDstM, u.WValM)
	u.ValA = u.RF.Read(u.SrcA)
	u.ValB = u.RF.Read(u.SrcB)
	return nil
}

// ExecuteUnit is the ALU plus the condition-code register it owns.
// Cnd reads the condition-code register as it stood at the start of the
// cycle; a SetCC write this same cycle becomes visible to the next
// instruction to reach Execute, never to this one (spec.md §6).
type ExecuteUnit struct {
	UnitName string
	CC       *CCReg

	AluA, AluB uint64 // inputs
	AluFun     isa.ALUFun
	SetCC      bool
	CondFun    isa.CondFun

	ValE uint64 // output
	Cnd  bool   // output
}

func (u *ExecuteUnit) Name() string { return u.UnitName }
func (u *ExecuteUnit) Run() error {
	u.Cnd = u.CondFun.Test(u.CC.Read())
	u.ValE = u.AluFun.Compute(u.AluA, u.AluB)
	if u.SetCC {
		u.CC.Write(isa.ComputeFlags(u.AluFun, u.AluA, u.AluB, u.ValE))
	}
	return nil
}

// MemoryUnit is the data-memory access stage: at most one read and one
// write per cycle, matching Y86-64's instruction set (no instruction both
// reads and writes data memory).
type MemoryUnit struct {
	UnitName string
	DMem     mem.Handle

	Addr              uint64 // inputs
	Data              uint64
	MemRead, MemWrite bool

	ValM  uint64 // output
	Fault bool   // output
}

func (u *MemoryUnit) Name() string { return u.UnitName }
func (u *MemoryUnit) Run() error {
	u.ValM, u.Fault = 0, false
	if u.MemRead {
		v, ok := u.DMem.Read8(u.Addr)
		u.ValM = v
		if !ok {
			u.Fault = true
		}
	}
	if u.MemWrite {
		if !u.DMem.Write8(u.Addr, u.Data) {
			u.Fault = true
		}
	}
	return nil
}
