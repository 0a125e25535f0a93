package sim

import (
	"testing"

	"github.com/oisee/y86sim/pkg/arch"
	"github.com/oisee/y86sim/pkg/asm"
	"github.com/oisee/y86sim/pkg/isaref"
	"github.com/oisee/y86sim/pkg/mem"
)

// runScenario assembles src, runs it to completion on both the pipelined
// and single-cycle organizations, and cross-checks the final register file
// of each against pkg/isaref's oracle result (invariant 6: every built-in
// architecture must agree with the reference interpreter on every test
// program).
func runScenario(t *testing.T, src string) {
	t.Helper()

	obj, err := asm.Assemble(src, 1<<16)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	want, err := isaref.Run(obj.Mem)
	if err != nil {
		t.Fatalf("isaref.Run: %v", err)
	}

	for _, archName := range []string{"pipe", "seq"} {
		var a *arch.Architecture
		var buildErr error
		if archName == "pipe" {
			a, buildErr = arch.BuildPipe(1 << 16)
		} else {
			a, buildErr = arch.BuildSeq(1 << 16)
		}
		if buildErr != nil {
			t.Fatalf("%s: build: %v", archName, buildErr)
		}
		if !mem.NewHandle(a.Mem).LoadAt(0, obj.Mem) {
			t.Fatalf("%s: LoadAt failed", archName)
		}

		s := New(a)
		if err := s.Run(); err != nil {
			t.Fatalf("%s: Run: %v", archName, err)
		}

		got := s.Registers()
		for i := range want.Regs {
			if got[i] != want.Regs[i] {
				t.Errorf("%s: register %d = %#x, want %#x (isaref)", archName, i, got[i], want.Regs[i])
			}
		}
	}
}

// S1: recursive sum of 1..4 via call/ret, exercising a non-trivial call
// depth and the return-address stack discipline under both organizations.
func TestScenarioRecursiveSum(t *testing.T) {
	src := `
irmovq stack, %rsp
irmovq $4, %rdi
call rsum
halt

rsum:
irmovq $0, %rax
andq %rdi, %rdi
je base
rrmovq %rdi, %rbx
irmovq $-1, %r10
addq %r10, %rdi
pushq %rbx
call rsum
popq %rbx
addq %rbx, %rax
ret
base:
ret

.pos 0x400
stack:
.quad 0
`
	runScenario(t, src)
}

// S2: a load-use hazard — the value mrmovq just fetched is consumed by the
// very next instruction, forcing PIPE to stall/forward and SEQ to simply
// recompute from scratch.
func TestScenarioLoadUseHazard(t *testing.T) {
	src := `
irmovq $100, %rbx
irmovq $7, %rax
rmmovq %rax, 0(%rbx)
mrmovq 0(%rbx), %rcx
addq %rcx, %rcx
halt
`
	runScenario(t, src)
}

// S3: a mispredicted not-taken branch — PIPE always predicts taken, so
// this forces a fetch-stage squash when the branch resolves as not taken.
func TestScenarioMispredictedBranch(t *testing.T) {
	src := `
irmovq $1, %rax
irmovq $2, %rbx
subq %rax, %rbx
jle skip
irmovq $7, %rcx
skip:
halt
`
	runScenario(t, src)
}

// S4: call immediately followed by ret, stressing the return-address
// round trip through the stack with the shortest possible callee body.
func TestScenarioRetStall(t *testing.T) {
	src := `
irmovq stack, %rsp
call adder
halt
adder:
irmovq $5, %rax
ret

.pos 0x400
stack:
.quad 0
`
	runScenario(t, src)
}

// S5: pushq/popq round trip through a non-trivial stack pointer.
func TestScenarioPushPopRoundTrip(t *testing.T) {
	src := `
irmovq $1024, %rsp
irmovq $99, %rax
pushq %rax
irmovq $0, %rax
popq %rax
halt
`
	runScenario(t, src)
}

// S6: cmovXX whose condition is false, a no-op move that must still clear
// any in-flight hazard bookkeeping for the untaken destination register.
func TestScenarioCmovNotTaken(t *testing.T) {
	src := `
irmovq $1, %rax
irmovq $2, %rbx
subq %rax, %rbx
cmove %rax, %rcx
halt
`
	runScenario(t, src)
}
