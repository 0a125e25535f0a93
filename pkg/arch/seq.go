package arch

import (
	"fmt"
	"strings"

	"github.com/oisee/y86sim/pkg/hcl"
	"github.com/oisee/y86sim/pkg/hw"
	"github.com/oisee/y86sim/pkg/isa"
	"github.com/oisee/y86sim/pkg/mem"
)

// PCReg is the only state the single-cycle organization carries across
// cycles: the program counter. Every other quantity (decoded fields, ALU
// result, memory data) is fully recomputed from scratch each cycle, since
// exactly one instruction is in flight at a time (spec.md §3: "the
// single-cycle organization splits [the register file] into independent
// read and write units" — no pipeline registers besides the PC).
type PCReg struct {
	Value uint64
}

// BuildSeq wires the single-cycle sequential organization.
func BuildSeq(memSize uint64) (*Architecture, error) {
	image := mem.New(memSize)

	rf := &RegFile{}
	cc := &CCReg{}

	PC := &hw.StageReg[PCReg]{StageName: "PC", Default: PCReg{Value: 0}}

	fetch := &FetchUnit{UnitName: "fetch", IMem: mem.NewHandle(image)}
	regread := &RegReadUnit{UnitName: "regread", RF: rf}
	regwrite := &RegWriteUnit{UnitName: "regwrite", RF: rf}
	execute := &ExecuteUnit{UnitName: "execute", CC: cc}
	memory := &MemoryUnit{UnitName: "memory", DMem: mem.NewHandle(image)}

	env := hcl.NewEnv()
	scratch := map[string]uint64{}

	env.Getters["PC.value"] = func() uint64 { return PC.Cur.Value }
	env.Setters["PC.value"] = func(v uint64) { PC.In.Value = v }

	env.Setters["fetch.pc"] = func(v uint64) { fetch.PC = v }
	env.Getters["fetch.stat"] = func() uint64 { return uint64(fetch.Stat) }
	env.Getters["fetch.icode"] = func() uint64 { return uint64(fetch.ICode) }
	env.Getters["fetch.ifun"] = func() uint64 { return uint64(fetch.IFun) }
	env.Getters["fetch.ra"] = func() uint64 { return uint64(fetch.RA) }
	env.Getters["fetch.rb"] = func() uint64 { return uint64(fetch.RB) }
	env.Getters["fetch.valc"] = func() uint64 { return fetch.ValC }
	env.Getters["fetch.valp"] = func() uint64 { return fetch.ValP }

	env.Setters["regread.srca"] = func(v uint64) { regread.SrcA = isa.RegID(v) }
	env.Setters["regread.srcb"] = func(v uint64) { regread.SrcB = isa.RegID(v) }
	env.Getters["regread.vala"] = func() uint64 { return regread.ValA }
	env.Getters["regread.valb"] = func() uint64 { return regread.ValB }

	env.Setters["regwrite.dste"] = func(v uint64) { regwrite.DstE = isa.RegID(v) }
	env.Setters["regwrite.dstm"] = func(v uint64) { regwrite.DstM = isa.RegID(v) }
	env.Setters["regwrite.vale"] = func(v uint64) { regwrite.ValE = v }
	env.Setters["regwrite.valm"] = func(v uint64) { regwrite.ValM = v }

	env.Setters["execute.alua"] = func(v uint64) { execute.AluA = v }
	env.Setters["execute.alub"] = func(v uint64) { execute.AluB = v }
	env.Setters["execute.alufun"] = func(v uint64) { execute.AluFun = isa.ALUFun(v) }
	env.Setters["execute.setcc"] = func(v uint64) { execute.SetCC = v != 0 }
	env.Setters["execute.condfun"] = func(v uint64) { execute.CondFun = isa.CondFun(v) }
	env.Getters["execute.vale"] = func() uint64 { return execute.ValE }
	env.Getters["execute.cnd"] = func() uint64 { return boolU64(execute.Cnd) }

	env.Setters["memory.addr"] = func(v uint64) { memory.Addr = v }
	env.Setters["memory.data"] = func(v uint64) { memory.Data = v }
	env.Setters["memory.memread"] = func(v uint64) { memory.MemRead = v != 0 }
	env.Setters["memory.memwrite"] = func(v uint64) { memory.MemWrite = v != 0 }
	env.Getters["memory.valm"] = func() uint64 { return memory.ValM }
	env.Getters["memory.fault"] = func() uint64 { return boolU64(memory.Fault) }

	src := buildSeqHCL()
	prog, err := hcl.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("arch: seq: %w", err)
	}
	for _, decl := range prog.Signals {
		name := decl.Name
		env.Getters[name] = func() uint64 { return scratch[name] }
		env.Setters[name] = func(v uint64) { scratch[name] = v }
	}
	compiled, err := hcl.Compile(prog, env, isUnitName)
	if err != nil {
		return nil, fmt.Errorf("arch: seq: %w", err)
	}

	b := newBuilder()
	b.declareStage("PC", PC)
	b.wireUnitPorts(fetch, []string{"fetch.pc"}, []string{"fetch.stat", "fetch.icode", "fetch.ifun", "fetch.ra", "fetch.rb", "fetch.valc", "fetch.valp"})
	b.wireUnitPorts(regread, []string{"regread.srca", "regread.srcb"}, []string{"regread.vala", "regread.valb"})
	b.wireUnitPorts(regwrite, []string{"regwrite.dste", "regwrite.dstm", "regwrite.vale", "regwrite.valm"}, nil)
	b.wireUnitPorts(execute, []string{"execute.alua", "execute.alub", "execute.alufun", "execute.setcc", "execute.condfun"}, []string{"execute.vale", "execute.cnd"})
	b.wireUnitPorts(memory, []string{"memory.addr", "memory.data", "memory.memread", "memory.memwrite"}, []string{"memory.valm", "memory.fault"})
	b.wireCompiled(compiled)

	schedule, err := b.finish()
	if err != nil {
		return nil, fmt.Errorf("arch: seq: %w", err)
	}
	runnables := make([]Runnable, len(schedule))
	copy(runnables, schedule)

	arc := &Architecture{
		Name:      "seq",
		Mem:       image,
		RegFile:   rf,
		CC:        cc,
		StageRegs: []StageLatcher{PC},
		Env:       env,
		Compiled:  compiled,
		Schedule:  runnables,
		ProgramCounter: func() uint64 { return scratch[prog.ProgramCounter] },
		Terminated:     func() bool { return scratch[prog.Termination] != 0 },
		StageSnapshot: func() []StageInfo {
			return []StageInfo{
				{Name: "PC", Fields: sortedFieldValues(map[string]string{"value": hex64(PC.Cur.Value)})},
				{Name: "instr", Fields: sortedFieldValues(map[string]string{
					"stat":  isa.Stat(scratch["stat_final"]).String(),
					"icode": isa.ICode(fetch.ICode).String(),
				})},
			}
		},
	}
	return arc, nil
}

func buildSeqHCL() string {
	var b strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&b, format+"\n", args...) }

	w("#![hardware = y86seq]")
	w("#![program_counter = cur_pc]")
	w("#![termination = prog_term]")
	w("")
	w("u64 cur_pc = PC.value -> fetch.pc;")
	w("")
	w("u64 srcA = [")
	w("    %s : fetch.ra;", oneOf("fetch.icode", isa.ICMovXX, isa.IRMMovQ, isa.IOPq, isa.IPushQ))
	w("    %s : %d;", oneOf("fetch.icode", isa.IPopQ, isa.IRet), int(isa.RSP))
	w("    true : %d;", int(isa.RNONE))
	w("] -> regread.srca;")
	w("")
	w("u64 srcB = [")
	w("    %s : fetch.rb;", oneOf("fetch.icode", isa.IRMMovQ, isa.IMRMovQ, isa.IOPq, isa.IIOPq))
	w("    %s : %d;", oneOf("fetch.icode", isa.IPushQ, isa.ICall, isa.IRet, isa.IPopQ), int(isa.RSP))
	w("    true : %d;", int(isa.RNONE))
	w("] -> regread.srcb;")
	w("")
	w("u64 dstE_raw = [")
	w("    %s : fetch.rb;", oneOf("fetch.icode", isa.ICMovXX, isa.IIRMovQ, isa.IOPq, isa.IIOPq))
	w("    %s : %d;", oneOf("fetch.icode", isa.IPushQ, isa.IPopQ, isa.ICall, isa.IRet), int(isa.RSP))
	w("    true : %d;", int(isa.RNONE))
	w("];")
	w("u64 dstE_eff = [")
	w("    (fetch.icode == %d) && !execute.cnd : %d;", int(isa.ICMovXX), int(isa.RNONE))
	w("    true : dstE_raw;")
	w("] -> regwrite.dste;")
	w("u64 dstM = [")
	w("    %s : fetch.ra;", oneOf("fetch.icode", isa.IMRMovQ, isa.IPopQ))
	w("    true : %d;", int(isa.RNONE))
	w("] -> regwrite.dstm;")
	w("")
	w("u64 alua = [")
	w("    %s : regread.vala;", oneOf("fetch.icode", isa.ICMovXX, isa.IOPq))
	w("    %s : fetch.valc;", oneOf("fetch.icode", isa.IIRMovQ, isa.IRMMovQ, isa.IMRMovQ, isa.IIOPq))
	w("    %s : -8;", oneOf("fetch.icode", isa.ICall, isa.IPushQ))
	w("    %s : 8;", oneOf("fetch.icode", isa.IRet, isa.IPopQ))
	w("    true : 0;")
	w("] -> execute.alua;")
	w("")
	w("u64 alub = [")
	w("    %s : regread.valb;", oneOf("fetch.icode", isa.IRMMovQ, isa.IMRMovQ, isa.IOPq, isa.IIOPq, isa.ICall, isa.IPushQ, isa.IRet, isa.IPopQ))
	w("    true : 0;")
	w("] -> execute.alub;")
	w("")
	w("u64 alufun = [")
	w("    %s : fetch.ifun;", oneOf("fetch.icode", isa.IOPq, isa.IIOPq))
	w("    true : 0;")
	w("] -> execute.alufun;")
	w("bool setcc = %s -> execute.setcc;", oneOf("fetch.icode", isa.IOPq, isa.IIOPq))
	w("u64 condfun = [")
	w("    %s : fetch.ifun;", oneOf("fetch.icode", isa.ICMovXX, isa.IJXX))
	w("    true : 0;")
	w("] -> execute.condfun;")
	w("")
	w("u64 mem_addr = [")
	w("    %s : execute.vale;", oneOf("fetch.icode", isa.IRMMovQ, isa.IPushQ, isa.ICall, isa.IMRMovQ))
	w("    %s : regread.valb;", oneOf("fetch.icode", isa.IPopQ, isa.IRet))
	w("    true : 0;")
	w("] -> memory.addr;")
	w("u64 mem_data = [")
	w("    %s : regread.vala;", oneOf("fetch.icode", isa.IRMMovQ, isa.IPushQ))
	w("    %s : fetch.valp;", oneOf("fetch.icode", isa.ICall))
	w("    true : 0;")
	w("] -> memory.data;")
	w("bool mem_read = %s -> memory.memread;", oneOf("fetch.icode", isa.IMRMovQ, isa.IPopQ, isa.IRet))
	w("bool mem_write = %s -> memory.memwrite;", oneOf("fetch.icode", isa.IRMMovQ, isa.IPushQ, isa.ICall))
	w("")
	w("u64 rw_vale = execute.vale -> regwrite.vale;")
	w("u64 rw_valm = memory.valm -> regwrite.valm;")
	w("")
	w("u64 next_pc = [")
	w("    %s : fetch.valc;", oneOf("fetch.icode", isa.ICall))
	w("    (fetch.icode == %d) && execute.cnd : fetch.valc;", int(isa.IJXX))
	w("    %s : memory.valm;", oneOf("fetch.icode", isa.IRet))
	w("    true : fetch.valp;")
	w("] -> PC.value;")
	w("")
	w("u64 stat_final = [")
	w("    fetch.stat != %d : fetch.stat;", int(isa.StatAok))
	w("    memory.fault : %d;", int(isa.StatAdr))
	w("    true : %d;", int(isa.StatAok))
	w("];")
	w("bool prog_term = (stat_final == %d) || (stat_final == %d) || (stat_final == %d);",
		int(isa.StatHlt), int(isa.StatAdr), int(isa.StatIns))

	return b.String()
}
