package dap

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/oisee/y86sim/pkg/arch"
	"github.com/oisee/y86sim/pkg/isa"
	"github.com/oisee/y86sim/pkg/mem"
	"github.com/oisee/y86sim/pkg/object"
	"github.com/oisee/y86sim/pkg/sim"
)

// StopReason names why a "continue" or "next" request returned control to
// the client (spec.md §6's three stop reasons).
type StopReason string

const (
	StopPause      StopReason = "Pause"      // the program terminated
	StopBreakpoint StopReason = "Breakpoint" // pc landed on a breakpoint after propagation
	StopStep       StopReason = "Step"       // one cycle advanced on a "next" request
)

// session is the per-connection state: its own simulator and object, never
// shared with another connection.
type session struct {
	sim         *sim.Simulator
	obj         *object.Object
	breakpoints map[uint64]bool
}

func newSession() *session {
	return &session{breakpoints: make(map[uint64]bool)}
}

// dispatch runs one request against the session and returns the response
// body (or an error, turned into a failed Response by the caller).
func (s *session) dispatch(cmd string, args json.RawMessage) (interface{}, error) {
	switch cmd {
	case "initialize":
		return map[string]interface{}{"supportsConfigurationDoneRequest": true}, nil
	case "loadImage":
		return s.loadImage(args)
	case "setBreakpoints":
		return s.setBreakpoints(args)
	case "threads":
		return s.threads()
	case "stackTrace":
		return s.stackTrace()
	case "scopes":
		return s.scopes()
	case "variables":
		return s.variables()
	case "continue":
		return s.doContinue()
	case "next":
		return s.next()
	case "pause":
		return s.pause()
	case "disconnect":
		return map[string]interface{}{}, nil
	default:
		return nil, fmt.Errorf("dap: unknown command %q", cmd)
	}
}

type loadImageArgs struct {
	Arch     string `json:"arch"`
	Path     string `json:"path"`
	MemSize  uint64 `json:"memSize"`
	MaxCycle uint64 `json:"maxCycle"`
}

func (s *session) loadImage(raw json.RawMessage) (interface{}, error) {
	var args loadImageArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("dap: loadImage: %w", err)
	}
	size := args.MemSize
	if size == 0 {
		size = mem.DefaultSize
	}

	var a *arch.Architecture
	var err error
	switch args.Arch {
	case "", "pipe":
		a, err = arch.BuildPipe(size)
	case "seq":
		a, err = arch.BuildSeq(size)
	default:
		return nil, fmt.Errorf("dap: unknown architecture %q", args.Arch)
	}
	if err != nil {
		return nil, fmt.Errorf("dap: build %s: %w", args.Arch, err)
	}

	if args.Path != "" {
		obj, err := object.ReadJSON(args.Path)
		if err != nil {
			return nil, fmt.Errorf("dap: load image: %w", err)
		}
		if !mem.NewHandle(a.Mem).LoadAt(0, obj.Mem) {
			return nil, fmt.Errorf("dap: image of %d bytes exceeds memory size %d", len(obj.Mem), size)
		}
		s.obj = obj
	}

	s.sim = sim.New(a)
	if args.MaxCycle != 0 {
		s.sim.MaxCycles = args.MaxCycle
	}
	s.breakpoints = make(map[uint64]bool)
	return map[string]interface{}{}, nil
}

type setBreakpointsArgs struct {
	Lines []int `json:"lines"`
}

func (s *session) setBreakpoints(raw json.RawMessage) (interface{}, error) {
	var args setBreakpointsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("dap: setBreakpoints: %w", err)
	}
	s.breakpoints = make(map[uint64]bool)

	type verified struct {
		Line     int  `json:"line"`
		Verified bool `json:"verified"`
	}
	var out []verified
	for _, ln := range args.Lines {
		if s.obj == nil {
			out = append(out, verified{Line: ln, Verified: false})
			continue
		}
		addr, ok := s.obj.AddressForLine(ln)
		if ok {
			s.breakpoints[addr] = true
		}
		out = append(out, verified{Line: ln, Verified: ok})
	}
	return map[string]interface{}{"breakpoints": out}, nil
}

func (s *session) threads() (interface{}, error) {
	return map[string]interface{}{
		"threads": []map[string]interface{}{{"id": 1, "name": "y86sim"}},
	}, nil
}

func (s *session) requireSim() error {
	if s.sim == nil {
		return fmt.Errorf("dap: no image loaded")
	}
	return nil
}

func (s *session) stackTrace() (interface{}, error) {
	if err := s.requireSim(); err != nil {
		return nil, err
	}
	pc := s.sim.ProgramCounter()
	frame := map[string]interface{}{
		"id":   0,
		"name": fmt.Sprintf("pc=%#x", pc),
		"line": 0,
	}
	if s.obj != nil {
		if line, ok := s.obj.LineForAddress(pc); ok {
			frame["line"] = line.Line
			frame["name"] = line.Text
		}
	}
	return map[string]interface{}{"stackFrames": []map[string]interface{}{frame}, "totalFrames": 1}, nil
}

func (s *session) scopes() (interface{}, error) {
	return map[string]interface{}{
		"scopes": []map[string]interface{}{
			{"name": "Registers", "variablesReference": 1, "expensive": false},
		},
	}, nil
}

func (s *session) variables() (interface{}, error) {
	if err := s.requireSim(); err != nil {
		return nil, err
	}
	regs := s.sim.Registers()
	type v struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	out := make([]v, 0, len(regs))
	for id := 0; id < len(regs); id++ {
		out = append(out, v{Name: isa.RegID(id).String(), Value: fmt.Sprintf("%#016x", regs[id])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return map[string]interface{}{"variables": out}, nil
}

// doContinue steps the simulator until termination or a breakpoint, per
// spec.md §6: breakpoints are tested after propagate_signals and before
// the next latch, so the reported pc is the about-to-execute instruction.
func (s *session) doContinue() (interface{}, error) {
	if err := s.requireSim(); err != nil {
		return nil, err
	}
	for {
		if err := s.sim.PropagateSignals(); err != nil {
			return nil, err
		}
		if s.sim.IsTerminate() {
			return map[string]interface{}{"reason": StopPause}, nil
		}
		if s.breakpoints[s.sim.ProgramCounter()] {
			s.sim.InitiateNextCycle()
			return map[string]interface{}{"reason": StopBreakpoint}, nil
		}
		s.sim.InitiateNextCycle()
	}
}

func (s *session) next() (interface{}, error) {
	if err := s.requireSim(); err != nil {
		return nil, err
	}
	if err := s.sim.Step(); err != nil {
		return nil, err
	}
	reason := StopStep
	if s.sim.IsTerminate() {
		reason = StopPause
	}
	return map[string]interface{}{"reason": reason}, nil
}

func (s *session) pause() (interface{}, error) {
	if err := s.requireSim(); err != nil {
		return nil, err
	}
	return map[string]interface{}{"reason": StopPause}, nil
}
