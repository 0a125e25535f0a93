package arch

import (
	"fmt"
	"strings"

	"github.com/oisee/y86sim/pkg/hcl"
	"github.com/oisee/y86sim/pkg/hw"
	"github.com/oisee/y86sim/pkg/isa"
	"github.com/oisee/y86sim/pkg/mem"
)

// The five-stage pipelined organization: the reference workload this
// package is built around. Stage tuples and hazard logic follow the
// classic forwarding pipeline (fetch/decode/execute/memory/writeback,
// branch misprediction resolved at Execute, load/use hazard stalled one
// cycle, ret stalled until it clears the pipe) — the textbook Y86-64
// design the whole simulator exists to express, rendered here as units
// plus an HCL program instead of a fixed Rust match statement.

// FReg is the only state the fetch boundary needs to carry between
// cycles: the predicted PC.
type FReg struct {
	PredPC uint64
}

// DReg is the fetch→decode pipeline register.
type DReg struct {
	Stat  isa.Stat
	ICode isa.ICode
	IFun  uint8
	RA    isa.RegID
	RB    isa.RegID
	ValC  uint64
	ValP  uint64
}

// EReg is the decode→execute pipeline register. ValA doubles as the
// call/jXX fallthrough PC (spec.md §6): decode routes D.valP into ValA for
// those two classes instead of a register read.
type EReg struct {
	Stat  isa.Stat
	ICode isa.ICode
	IFun  uint8
	ValC  uint64
	ValA  uint64
	ValB  uint64
	DstE  isa.RegID
	DstM  isa.RegID
}

// MReg is the execute→memory pipeline register. Cnd carries the branch
// condition computed at Execute forward one stage, so the fetch-redirect
// decision can be made at Memory instead of Execute (see buildPipeHCL's
// m_mispredict).
type MReg struct {
	Stat isa.Stat
	ICode isa.ICode
	ValE  uint64
	ValA  uint64
	ValB  uint64
	DstE  isa.RegID
	DstM  isa.RegID
	Cnd   bool
}

// WReg is the memory→writeback pipeline register.
type WReg struct {
	Stat  isa.Stat
	ICode isa.ICode
	ValE  uint64
	ValM  uint64
	DstE  isa.RegID
	DstM  isa.RegID
}

// oneOf renders an HCL OR-chain testing ident against each code, using the
// numeric isa constant directly so the generated program can never drift
// out of sync with the encoding table.
func oneOf(ident string, codes ...isa.ICode) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprintf("(%s == %d)", ident, int(c))
	}
	return "(" + strings.Join(parts, " || ") + ")"
}

// BuildPipe wires the five-stage pipelined organization around a memory
// image of the given size and returns the scheduled Architecture.
func BuildPipe(memSize uint64) (*Architecture, error) {
	image := mem.New(memSize)

	rf := &RegFile{}
	cc := &CCReg{}

	F := &hw.StageReg[FReg]{StageName: "F", Default: FReg{PredPC: 0}}
	D := &hw.StageReg[DReg]{StageName: "D", Default: DReg{Stat: isa.StatBub, ICode: isa.INop, RA: isa.RNONE, RB: isa.RNONE}}
	E := &hw.StageReg[EReg]{StageName: "E", Default: EReg{Stat: isa.StatBub, ICode: isa.INop, DstE: isa.RNONE, DstM: isa.RNONE}}
	M := &hw.StageReg[MReg]{StageName: "M", Default: MReg{Stat: isa.StatBub, ICode: isa.INop, DstE: isa.RNONE, DstM: isa.RNONE}}
	W := &hw.StageReg[WReg]{StageName: "W", Default: WReg{Stat: isa.StatBub, ICode: isa.INop, DstE: isa.RNONE, DstM: isa.RNONE}}

	fetch := &FetchUnit{UnitName: "fetch", IMem: mem.NewHandle(image)}
	regfile := &RegFileUnit{UnitName: "regfile", RF: rf}
	execute := &ExecuteUnit{UnitName: "execute", CC: cc}
	memory := &MemoryUnit{UnitName: "memory", DMem: mem.NewHandle(image)}

	env := hcl.NewEnv()
	scratch := map[string]uint64{}

	// --- stage port bindings -------------------------------------------------
	env.Getters["F.predpc"] = func() uint64 { return F.Cur.PredPC }
	env.Setters["F.predpc"] = func(v uint64) { F.In.PredPC = v }
	env.Setters["F.stall"] = func(v uint64) { F.Stall = v != 0 }

	env.Getters["D.stat"] = func() uint64 { return uint64(D.Cur.Stat) }
	env.Setters["D.stat"] = func(v uint64) { D.In.Stat = isa.Stat(v) }
	env.Getters["D.icode"] = func() uint64 { return uint64(D.Cur.ICode) }
	env.Setters["D.icode"] = func(v uint64) { D.In.ICode = isa.ICode(v) }
	env.Getters["D.ifun"] = func() uint64 { return uint64(D.Cur.IFun) }
	env.Setters["D.ifun"] = func(v uint64) { D.In.IFun = uint8(v) }
	env.Getters["D.ra"] = func() uint64 { return uint64(D.Cur.RA) }
	env.Setters["D.ra"] = func(v uint64) { D.In.RA = isa.RegID(v) }
	env.Getters["D.rb"] = func() uint64 { return uint64(D.Cur.RB) }
	env.Setters["D.rb"] = func(v uint64) { D.In.RB = isa.RegID(v) }
	env.Getters["D.valc"] = func() uint64 { return D.Cur.ValC }
	env.Setters["D.valc"] = func(v uint64) { D.In.ValC = v }
	env.Getters["D.valp"] = func() uint64 { return D.Cur.ValP }
	env.Setters["D.valp"] = func(v uint64) { D.In.ValP = v }
	env.Setters["D.stall"] = func(v uint64) { D.Stall = v != 0 }
	env.Setters["D.bubble"] = func(v uint64) { D.Bubble = v != 0 }

	env.Getters["E.stat"] = func() uint64 { return uint64(E.Cur.Stat) }
	env.Setters["E.stat"] = func(v uint64) { E.In.Stat = isa.Stat(v) }
	env.Getters["E.icode"] = func() uint64 { return uint64(E.Cur.ICode) }
	env.Setters["E.icode"] = func(v uint64) { E.In.ICode = isa.ICode(v) }
	env.Getters["E.ifun"] = func() uint64 { return uint64(E.Cur.IFun) }
	env.Setters["E.ifun"] = func(v uint64) { E.In.IFun = uint8(v) }
	env.Getters["E.valc"] = func() uint64 { return E.Cur.ValC }
	env.Setters["E.valc"] = func(v uint64) { E.In.ValC = v }
	env.Getters["E.vala"] = func() uint64 { return E.Cur.ValA }
	env.Setters["E.vala"] = func(v uint64) { E.In.ValA = v }
	env.Getters["E.valb"] = func() uint64 { return E.Cur.ValB }
	env.Setters["E.valb"] = func(v uint64) { E.In.ValB = v }
	env.Getters["E.dste"] = func() uint64 { return uint64(E.Cur.DstE) }
	env.Setters["E.dste"] = func(v uint64) { E.In.DstE = isa.RegID(v) }
	env.Getters["E.dstm"] = func() uint64 { return uint64(E.Cur.DstM) }
	env.Setters["E.dstm"] = func(v uint64) { E.In.DstM = isa.RegID(v) }
	env.Setters["E.bubble"] = func(v uint64) { E.Bubble = v != 0 }

	env.Getters["M.stat"] = func() uint64 { return uint64(M.Cur.Stat) }
	env.Setters["M.stat"] = func(v uint64) { M.In.Stat = isa.Stat(v) }
	env.Getters["M.icode"] = func() uint64 { return uint64(M.Cur.ICode) }
	env.Setters["M.icode"] = func(v uint64) { M.In.ICode = isa.ICode(v) }
	env.Getters["M.vale"] = func() uint64 { return M.Cur.ValE }
	env.Setters["M.vale"] = func(v uint64) { M.In.ValE = v }
	env.Getters["M.vala"] = func() uint64 { return M.Cur.ValA }
	env.Setters["M.vala"] = func(v uint64) { M.In.ValA = v }
	env.Getters["M.valb"] = func() uint64 { return M.Cur.ValB }
	env.Setters["M.valb"] = func(v uint64) { M.In.ValB = v }
	env.Getters["M.dste"] = func() uint64 { return uint64(M.Cur.DstE) }
	env.Setters["M.dste"] = func(v uint64) { M.In.DstE = isa.RegID(v) }
	env.Getters["M.dstm"] = func() uint64 { return uint64(M.Cur.DstM) }
	env.Setters["M.dstm"] = func(v uint64) { M.In.DstM = isa.RegID(v) }
	env.Getters["M.cnd"] = func() uint64 { return boolU64(M.Cur.Cnd) }
	env.Setters["M.cnd"] = func(v uint64) { M.In.Cnd = v != 0 }

	env.Getters["W.stat"] = func() uint64 { return uint64(W.Cur.Stat) }
	env.Setters["W.stat"] = func(v uint64) { W.In.Stat = isa.Stat(v) }
	env.Getters["W.icode"] = func() uint64 { return uint64(W.Cur.ICode) }
	env.Setters["W.icode"] = func(v uint64) { W.In.ICode = isa.ICode(v) }
	env.Getters["W.vale"] = func() uint64 { return W.Cur.ValE }
	env.Setters["W.vale"] = func(v uint64) { W.In.ValE = v }
	env.Getters["W.valm"] = func() uint64 { return W.Cur.ValM }
	env.Setters["W.valm"] = func(v uint64) { W.In.ValM = v }
	env.Getters["W.dste"] = func() uint64 { return uint64(W.Cur.DstE) }
	env.Setters["W.dste"] = func(v uint64) { W.In.DstE = isa.RegID(v) }
	env.Getters["W.dstm"] = func() uint64 { return uint64(W.Cur.DstM) }
	env.Setters["W.dstm"] = func(v uint64) { W.In.DstM = isa.RegID(v) }

	// --- unit port bindings ---------------------------------------------------
	env.Setters["fetch.pc"] = func(v uint64) { fetch.PC = v }
	env.Getters["fetch.stat"] = func() uint64 { return uint64(fetch.Stat) }
	env.Getters["fetch.icode"] = func() uint64 { return uint64(fetch.ICode) }
	env.Getters["fetch.ifun"] = func() uint64 { return uint64(fetch.IFun) }
	env.Getters["fetch.ra"] = func() uint64 { return uint64(fetch.RA) }
	env.Getters["fetch.rb"] = func() uint64 { return uint64(fetch.RB) }
	env.Getters["fetch.valc"] = func() uint64 { return fetch.ValC }
	env.Getters["fetch.valp"] = func() uint64 { return fetch.ValP }

	env.Setters["regfile.srca"] = func(v uint64) { regfile.SrcA = isa.RegID(v) }
	env.Setters["regfile.srcb"] = func(v uint64) { regfile.SrcB = isa.RegID(v) }
	env.Setters["regfile.wdste"] = func(v uint64) { regfile.WDstE = isa.RegID(v) }
	env.Setters["regfile.wdstm"] = func(v uint64) { regfile.WDstM = isa.RegID(v) }
	env.Setters["regfile.wvale"] = func(v uint64) { regfile.WValE = v }
	env.Setters["regfile.wvalm"] = func(v uint64) { regfile.WValM = v }
	env.Getters["regfile.vala"] = func() uint64 { return regfile.ValA }
	env.Getters["regfile.valb"] = func() uint64 { return regfile.ValB }

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

	src := buildPipeHCL()
	prog, err := hcl.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("arch: pipe: %w", err)
	}
	for _, decl := range prog.Signals {
		name := decl.Name
		env.Getters[name] = func() uint64 { return scratch[name] }
		env.Setters[name] = func(v uint64) { scratch[name] = v }
	}
	compiled, err := hcl.Compile(prog, env, isUnitName)
	if err != nil {
		return nil, fmt.Errorf("arch: pipe: %w", err)
	}

	b := newBuilder()
	b.declareStage("F", F)
	b.declareStage("D", D)
	b.declareStage("E", E)
	b.declareStage("M", M)
	b.declareStage("W", W)
	b.wireUnitPorts(fetch, []string{"fetch.pc"}, []string{"fetch.stat", "fetch.icode", "fetch.ifun", "fetch.ra", "fetch.rb", "fetch.valc", "fetch.valp"})
	b.wireUnitPorts(regfile, []string{"regfile.srca", "regfile.srcb", "regfile.wdste", "regfile.wdstm", "regfile.wvale", "regfile.wvalm"}, []string{"regfile.vala", "regfile.valb"})
	b.wireUnitPorts(execute, []string{"execute.alua", "execute.alub", "execute.alufun", "execute.setcc", "execute.condfun"}, []string{"execute.vale", "execute.cnd"})
	b.wireUnitPorts(memory, []string{"memory.addr", "memory.data", "memory.memread", "memory.memwrite"}, []string{"memory.valm", "memory.fault"})
	b.wireCompiled(compiled)

	schedule, err := b.finish()
	if err != nil {
		return nil, fmt.Errorf("arch: pipe: %w", err)
	}

	runnables := make([]Runnable, len(schedule))
	copy(runnables, schedule)

	arc := &Architecture{
		Name:      "pipe",
		Mem:       image,
		RegFile:   rf,
		CC:        cc,
		StageRegs: []StageLatcher{F, D, E, M, W},
		Env:       env,
		Compiled:  compiled,
		Schedule:  runnables,
		ProgramCounter: func() uint64 { return scratch[prog.ProgramCounter] },
		Terminated:     func() bool { return scratch[prog.Termination] != 0 },
		StageSnapshot: func() []StageInfo {
			return []StageInfo{
				{Name: "F", Fields: sortedFieldValues(map[string]string{"predPC": hex64(F.Cur.PredPC)})},
				{Name: "D", Fields: sortedFieldValues(map[string]string{"stat": D.Cur.Stat.String(), "icode": D.Cur.ICode.String(), "valC": hex64(D.Cur.ValC), "valP": hex64(D.Cur.ValP)})},
				{Name: "E", Fields: sortedFieldValues(map[string]string{"stat": E.Cur.Stat.String(), "icode": E.Cur.ICode.String(), "valA": hex64(E.Cur.ValA), "valB": hex64(E.Cur.ValB), "dstE": E.Cur.DstE.String(), "dstM": E.Cur.DstM.String()})},
				{Name: "M", Fields: sortedFieldValues(map[string]string{"stat": M.Cur.Stat.String(), "icode": M.Cur.ICode.String(), "valE": hex64(M.Cur.ValE), "dstE": M.Cur.DstE.String(), "dstM": M.Cur.DstM.String()})},
				{Name: "W", Fields: sortedFieldValues(map[string]string{"stat": W.Cur.Stat.String(), "icode": W.Cur.ICode.String(), "valE": hex64(W.Cur.ValE), "valM": hex64(W.Cur.ValM)})},
			}
		},
	}
	return arc, nil
}

func boolU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// buildPipeHCL renders the control/wiring program for the pipelined
// organization: PC selection, hazard detection, operand forwarding, and
// the combinational selects feeding the execute and memory units.
func buildPipeHCL() string {
	var b strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&b, format+"\n", args...) }

	w("#![hardware = y86pipe]")
	w("#![program_counter = f_pc]")
	w("#![termination = prog_term]")
	w("")

	// Decode-side source/destination register selection.
	w("u64 d_srcA = [")
	w("    %s : D.ra;", oneOf("D.icode", isa.ICMovXX, isa.IRMMovQ, isa.IOPq, isa.IPushQ))
	w("    %s : %d;", oneOf("D.icode", isa.IPopQ, isa.IRet), int(isa.RSP))
	w("    true : %d;", int(isa.RNONE))
	w("] -> regfile.srca;")
	w("")
	w("u64 d_srcB = [")
	w("    %s : D.rb;", oneOf("D.icode", isa.IRMMovQ, isa.IMRMovQ, isa.IOPq, isa.IIOPq))
	w("    %s : %d;", oneOf("D.icode", isa.IPushQ, isa.ICall, isa.IRet, isa.IPopQ), int(isa.RSP))
	w("    true : %d;", int(isa.RNONE))
	w("] -> regfile.srcb;")
	w("")
	w("u64 d_dstE = [")
	w("    %s : D.rb;", oneOf("D.icode", isa.ICMovXX, isa.IIRMovQ, isa.IOPq, isa.IIOPq))
	w("    %s : %d;", oneOf("D.icode", isa.IPushQ, isa.IPopQ, isa.ICall, isa.IRet), int(isa.RSP))
	w("    true : %d;", int(isa.RNONE))
	w("] -> E.dste;")
	w("")
	w("u64 d_dstM = [")
	w("    %s : D.ra;", oneOf("D.icode", isa.IMRMovQ, isa.IPopQ))
	w("    true : %d;", int(isa.RNONE))
	w("] -> E.dstm;")
	w("")

	// Forwarding. e_dste_eff is the condition-suppressed effective dstE: a
	// failed cmovXX/rrmovq writes nothing (spec.md §6's RNONE-discard rule
	// applied one cycle early, at the forwarding source itself).
	w("u64 e_dste_eff = [")
	w("    (E.icode == %d) && !execute.cnd : %d;", int(isa.ICMovXX), int(isa.RNONE))
	w("    true : E.dste;")
	w("];")
	w("")
	w("u64 d_valA = [")
	w("    %s : D.valp;", oneOf("D.icode", isa.ICall, isa.IJXX))
	w("    (d_srcA != %d) && (d_srcA == e_dste_eff) : execute.vale;", int(isa.RNONE))
	w("    (d_srcA != %d) && (d_srcA == M.dstm) : memory.valm;", int(isa.RNONE))
	w("    (d_srcA != %d) && (d_srcA == M.dste) : M.vale;", int(isa.RNONE))
	w("    (d_srcA != %d) && (d_srcA == W.dstm) : W.valm;", int(isa.RNONE))
	w("    (d_srcA != %d) && (d_srcA == W.dste) : W.vale;", int(isa.RNONE))
	w("    true : regfile.vala;")
	w("] -> E.vala;")
	w("")
	w("u64 d_valB = [")
	w("    (d_srcB != %d) && (d_srcB == e_dste_eff) : execute.vale;", int(isa.RNONE))
	w("    (d_srcB != %d) && (d_srcB == M.dstm) : memory.valm;", int(isa.RNONE))
	w("    (d_srcB != %d) && (d_srcB == M.dste) : M.vale;", int(isa.RNONE))
	w("    (d_srcB != %d) && (d_srcB == W.dstm) : W.valm;", int(isa.RNONE))
	w("    (d_srcB != %d) && (d_srcB == W.dste) : W.vale;", int(isa.RNONE))
	w("    true : regfile.valb;")
	w("] -> E.valb;")
	w("")

	// Hazard control.
	w("bool loaduse = %s && (((E.dstm != %d) && (E.dstm == d_srcA)) || ((E.dstm != %d) && (E.dstm == d_srcB)));",
		oneOf("E.icode", isa.IMRMovQ, isa.IPopQ), int(isa.RNONE), int(isa.RNONE))
	w("bool rethazard = %s;", oneOf("D.icode", isa.IRet)+" || "+oneOf("E.icode", isa.IRet)+" || "+oneOf("M.icode", isa.IRet))
	// mispredict fires one cycle before the redirect: while the jXX is in
	// E, so D/E are squashed the same cycle the mispredicted fall-through
	// is still in F, never squashing the fetch the redirect depends on.
	w("bool mispredict = (E.icode == %d) && !execute.cnd;", int(isa.IJXX))
	w("bool f_stall = loaduse || rethazard -> F.stall;")
	w("bool d_stall = loaduse -> D.stall;")
	w("bool d_bubble = mispredict || (!loaduse && rethazard) -> D.bubble;")
	w("bool e_bubble = mispredict || loaduse -> E.bubble;")
	w("")

	// PC selection and the predicted-PC carried forward. The redirect
	// itself waits until the jXX reaches M (m_mispredict, driven off
	// M.cnd carried forward from execute), one cycle after mispredict
	// already squashed D/E — so the fall-through instruction fetched in
	// between never gets bubbled out from under the redirect.
	w("u64 f_pc = [")
	w("    m_mispredict : M.vala;")
	w("    (W.icode == %d) : W.valm;", int(isa.IRet))
	w("    true : F.predpc;")
	w("] -> fetch.pc;")
	w("")
	w("u64 f_predpc = [")
	w("    %s : fetch.valc;", oneOf("fetch.icode", isa.ICall, isa.IJXX))
	w("    true : fetch.valp;")
	w("] -> F.predpc;")
	w("")

	// D <- fetch passthrough.
	w("u64 d_in_stat = fetch.stat -> D.stat;")
	w("u64 d_in_icode = fetch.icode -> D.icode;")
	w("u64 d_in_ifun = fetch.ifun -> D.ifun;")
	w("u64 d_in_ra = fetch.ra -> D.ra;")
	w("u64 d_in_rb = fetch.rb -> D.rb;")
	w("u64 d_in_valc = fetch.valc -> D.valc;")
	w("u64 d_in_valp = fetch.valp -> D.valp;")
	w("")

	// E <- D passthrough (vala/valb/dste/dstm wired above).
	w("u64 e_in_stat = D.stat -> E.stat;")
	w("u64 e_in_icode = D.icode -> E.icode;")
	w("u64 e_in_ifun = D.ifun -> E.ifun;")
	w("u64 e_in_valc = D.valc -> E.valc;")
	w("")

	// Execute-stage ALU control.
	w("u64 alua = [")
	w("    %s : E.vala;", oneOf("E.icode", isa.ICMovXX, isa.IOPq))
	w("    %s : E.valc;", oneOf("E.icode", isa.IIRMovQ, isa.IRMMovQ, isa.IMRMovQ, isa.IIOPq))
	w("    %s : -8;", oneOf("E.icode", isa.ICall, isa.IPushQ))
	w("    %s : 8;", oneOf("E.icode", isa.IRet, isa.IPopQ))
	w("    true : 0;")
	w("] -> execute.alua;")
	w("")
	w("u64 alub = [")
	w("    %s : E.valb;", oneOf("E.icode", isa.IRMMovQ, isa.IMRMovQ, isa.IOPq, isa.IIOPq, isa.ICall, isa.IPushQ, isa.IRet, isa.IPopQ))
	w("    true : 0;")
	w("] -> execute.alub;")
	w("")
	w("u64 alufun = [")
	w("    %s : E.ifun;", oneOf("E.icode", isa.IOPq, isa.IIOPq))
	w("    true : 0;")
	w("] -> execute.alufun;")
	w("")
	w("bool setcc = %s -> execute.setcc;", oneOf("E.icode", isa.IOPq, isa.IIOPq))
	w("")
	w("u64 condfun = [")
	w("    %s : E.ifun;", oneOf("E.icode", isa.ICMovXX, isa.IJXX))
	w("    true : 0;")
	w("] -> execute.condfun;")
	w("")

	// M <- execute passthrough.
	w("u64 m_in_stat = E.stat -> M.stat;")
	w("u64 m_in_icode = E.icode -> M.icode;")
	w("u64 m_in_vale = execute.vale -> M.vale;")
	w("u64 m_in_vala = E.vala -> M.vala;")
	w("u64 m_in_valb = E.valb -> M.valb;")
	w("u64 m_in_dste = e_dste_eff -> M.dste;")
	w("u64 m_in_dstm = E.dstm -> M.dstm;")
	w("bool m_in_cnd = execute.cnd -> M.cnd;")
	w("bool m_mispredict = (M.icode == %d) && !M.cnd;", int(isa.IJXX))
	w("")

	// Memory-stage address/data/control selects.
	w("u64 mem_addr = [")
	w("    %s : M.vale;", oneOf("M.icode", isa.IRMMovQ, isa.IPushQ, isa.ICall, isa.IMRMovQ))
	w("    %s : M.valb;", oneOf("M.icode", isa.IPopQ, isa.IRet))
	w("    true : 0;")
	w("] -> memory.addr;")
	w("")
	w("u64 mem_data = [")
	w("    %s : M.vala;", oneOf("M.icode", isa.IRMMovQ, isa.IPushQ, isa.ICall))
	w("    true : 0;")
	w("] -> memory.data;")
	w("")
	w("bool mem_read = %s -> memory.memread;", oneOf("M.icode", isa.IMRMovQ, isa.IPopQ, isa.IRet))
	w("bool mem_write = %s -> memory.memwrite;", oneOf("M.icode", isa.IRMMovQ, isa.IPushQ, isa.ICall))
	w("")

	// W <- memory passthrough, with the fault-aware status merge.
	w("u64 w_in_icode = M.icode -> W.icode;")
	w("u64 w_in_vale = M.vale -> W.vale;")
	w("u64 w_in_valm = memory.valm -> W.valm;")
	w("u64 w_in_dste = M.dste -> W.dste;")
	w("u64 w_in_dstm = M.dstm -> W.dstm;")
	w("u64 w_stat = [")
	w("    M.stat != %d : M.stat;", int(isa.StatAok))
	w("    memory.fault : %d;", int(isa.StatAdr))
	w("    true : %d;", int(isa.StatAok))
	w("] -> W.stat;")
	w("")

	// Register file write ports, straight from the retiring W instruction.
	w("u64 rf_wdste = W.dste -> regfile.wdste;")
	w("u64 rf_wdstm = W.dstm -> regfile.wdstm;")
	w("u64 rf_wvale = W.vale -> regfile.wvale;")
	w("u64 rf_wvalm = W.valm -> regfile.wvalm;")
	w("")

	w("bool prog_term = (W.stat == %d) || (W.stat == %d) || (W.stat == %d);",
		int(isa.StatHlt), int(isa.StatAdr), int(isa.StatIns))

	return b.String()
}
