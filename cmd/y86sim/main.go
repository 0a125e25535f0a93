// Command y86sim is the command-line front end for the simulator core:
// assemble a .ys source file, run an assembled image against one of the
// built-in processor organizations, print architecture info, or serve the
// debug-adapter protocol (spec.md §6's CLI surface, listed there for
// behavioral parity though it sits outside the simulator core itself).
package main

import (
	"fmt"
	"os"

	"github.com/oisee/y86sim/pkg/arch"
	"github.com/oisee/y86sim/pkg/asm"
	"github.com/oisee/y86sim/pkg/dap"
	"github.com/oisee/y86sim/pkg/isa"
	"github.com/oisee/y86sim/pkg/mem"
	"github.com/oisee/y86sim/pkg/object"
	"github.com/oisee/y86sim/pkg/sim"
	"github.com/spf13/cobra"
)

func buildArchitecture(name string, memSize uint64) (*arch.Architecture, error) {
	switch name {
	case "", "pipe":
		return arch.BuildPipe(memSize)
	case "seq":
		return arch.BuildSeq(memSize)
	default:
		return nil, fmt.Errorf("unknown architecture %q (want \"pipe\" or \"seq\")", name)
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "y86sim",
		Short: "Y86-64 cycle-accurate simulator",
	}

	var asmOutput string
	var asmMemSize uint64
	assembleCmd := &cobra.Command{
		Use:   "assemble <source.ys>",
		Short: "Assemble a Y86-64 source file into a JSON object file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			obj, err := asm.Assemble(string(src), asmMemSize)
			if err != nil {
				return fmt.Errorf("assemble: %w", err)
			}
			if asmOutput == "" {
				return fmt.Errorf("--output is required")
			}
			if err := obj.WriteJSON(asmOutput); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d bytes, %d symbols)\n", asmOutput, len(obj.Mem), len(obj.Symbols))
			return nil
		},
	}
	assembleCmd.Flags().StringVarP(&asmOutput, "output", "o", "", "output object JSON path")
	assembleCmd.Flags().Uint64Var(&asmMemSize, "mem-size", asm.DefaultMemSize, "assembled image size in bytes")

	var runArchName string
	var maxCycle uint64
	var verbosity int
	runCmd := &cobra.Command{
		Use:   "run <object.json>",
		Short: "Run an assembled object file to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := object.ReadJSON(args[0])
			if err != nil {
				return err
			}
			a, err := buildArchitecture(runArchName, uint64(len(obj.Mem)))
			if err != nil {
				return err
			}
			if !mem.NewHandle(a.Mem).LoadAt(0, obj.Mem) {
				return fmt.Errorf("image of %d bytes exceeds architecture memory", len(obj.Mem))
			}

			s := sim.New(a)
			if maxCycle != 0 {
				s.MaxCycles = maxCycle
			}
			budget := s.MaxCycles
			if budget == 0 {
				budget = sim.DefaultMaxCycles
			}

			for {
				if err := s.Step(); err != nil {
					return err
				}
				if verbosity >= 2 {
					printStageInfo(s)
				} else if verbosity >= 1 {
					fmt.Printf("cycle %d: pc=%#x\n", s.CycleCount(), s.ProgramCounter())
				}
				if s.IsTerminate() {
					break
				}
				if s.CycleCount() >= budget {
					return &sim.BudgetExceededError{Budget: budget}
				}
			}

			fmt.Printf("halted after %d cycles at pc=%#x\n", s.CycleCount(), s.ProgramCounter())
			printRegisters(s)
			return nil
		},
	}
	runCmd.Flags().StringVar(&runArchName, "arch", "pipe", "processor organization: pipe or seq")
	runCmd.Flags().Uint64Var(&maxCycle, "max-cpu-cycle", 0, "cycle budget (0 = sim.DefaultMaxCycles)")
	runCmd.Flags().CountVarP(&verbosity, "verbose", "v", "-v prints pc per cycle, -vv prints full stage state")

	var infoArchName string
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Print the schedule and stage layout of an architecture",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildArchitecture(infoArchName, mem.DefaultSize)
			if err != nil {
				return err
			}
			fmt.Printf("architecture: %s\n", a.Name)
			fmt.Printf("stages: %d\n", len(a.StageRegs))
			fmt.Printf("schedule: %d nodes\n", len(a.Schedule))
			for _, r := range a.Schedule {
				fmt.Printf("  %s\n", r.Name)
			}
			return nil
		},
	}
	infoCmd.Flags().StringVar(&infoArchName, "arch", "pipe", "processor organization: pipe or seq")

	var dapListen string
	dapCmd := &cobra.Command{
		Use:   "dap",
		Short: "Serve the debug-adapter protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := dap.NewServer()
			fmt.Printf("y86sim dap: listening on %s\n", dapListen)
			return srv.ListenAndServe(dapListen)
		},
	}
	dapCmd.Flags().StringVar(&dapListen, "listen", "127.0.0.1:4711", "address to listen on")

	rootCmd.AddCommand(assembleCmd, runCmd, infoCmd, dapCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printRegisters(s *sim.Simulator) {
	regs := s.Registers()
	for id, v := range regs {
		fmt.Printf("  %-5s %#016x\n", isa.RegID(id).String(), v)
	}
}

func printStageInfo(s *sim.Simulator) {
	fmt.Printf("cycle %d:\n", s.CycleCount())
	for _, st := range s.StageInfo() {
		fmt.Printf("  %s:", st.Name)
		for _, f := range st.Fields {
			fmt.Printf(" %s=%s", f.Name, f.Value)
		}
		fmt.Println()
	}
}
