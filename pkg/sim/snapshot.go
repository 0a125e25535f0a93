package sim

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/oisee/y86sim/pkg/isa"
	"github.com/oisee/y86sim/pkg/mem"
)

// Snapshot is a point-in-time dump of everything needed to resume a
// simulation: the owned memory image, every register, the condition
// codes, and the cycle counter. It does not capture in-flight stage
// register contents — a snapshot is only valid to take (and restore) at a
// cycle boundary, after InitiateNextCycle and before the next
// PropagateSignals (teacher's result.Checkpoint plays the same role for a
// long-running search: resumable state at a well-defined boundary, not a
// mid-step freeze-frame).
type Snapshot struct {
	Mem     []byte
	Regs    [isa.RegCount]uint64
	CC      CCSnapshot
	Cycle   uint64
	Tunnels []string
}

// CCSnapshot is the condition-code register's three flags, gob-encoded
// directly rather than through pkg/isa.CC so this package doesn't need to
// register that type with gob.
type CCSnapshot struct {
	SF, OF, ZF bool
}

// TakeSnapshot captures the simulator's current state.
func (s *Simulator) TakeSnapshot() Snapshot {
	var regs [isa.RegCount]uint64
	copy(regs[:], s.Arch.RegFile.Snapshot())
	cc := s.Arch.CC.Read()
	h := mem.NewHandle(s.Arch.Mem)
	return Snapshot{
		Mem:     h.Bytes(),
		Regs:    regs,
		CC:      CCSnapshot{SF: cc.SF, OF: cc.OF, ZF: cc.ZF},
		Cycle:   s.cycle,
		Tunnels: s.Tunnels(),
	}
}

// Restore overwrites the simulator's memory, registers, condition codes,
// cycle counter, and tunnel log from a snapshot taken earlier in this
// process or loaded from disk. The wrapped Architecture's stage registers
// are left at their construction-time defaults — Restore is only valid
// immediately after New, before any Step.
func (s *Simulator) Restore(snap Snapshot) {
	mem.NewHandle(s.Arch.Mem).LoadAt(0, snap.Mem)
	for id, v := range snap.Regs {
		s.Arch.RegFile.Write(isa.RegID(id), v)
	}
	s.Arch.CC.Write(isa.CC{SF: snap.CC.SF, OF: snap.CC.OF, ZF: snap.CC.ZF})
	s.cycle = snap.Cycle
	s.tunnels = append([]string(nil), snap.Tunnels...)
}

// SaveSnapshot gob-encodes TakeSnapshot() to path.
func (s *Simulator) SaveSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sim: save snapshot: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(s.TakeSnapshot()); err != nil {
		return fmt.Errorf("sim: save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot decodes a gob-encoded Snapshot from path.
func LoadSnapshot(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("sim: load snapshot: %w", err)
	}
	defer f.Close()
	var snap Snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("sim: load snapshot: %w", err)
	}
	return snap, nil
}
