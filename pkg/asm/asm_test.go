package asm

import (
	"testing"

	"github.com/oisee/y86sim/pkg/isaref"
)

func runSrc(t *testing.T, src string) isaref.Result {
	t.Helper()
	obj, err := Assemble(src, 1<<16)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	res, err := isaref.Run(obj.Mem)
	if err != nil {
		t.Fatalf("isaref.Run: %v", err)
	}
	return res
}

func TestAssembleArithmeticAndMemory(t *testing.T) {
	// mirrors the "S2 memory forward" scenario from the spec: store then
	// load the same address, then add.
	src := `
irmovq $100, %rbx
irmovq $42, %rdx
rmmovq %rdx, 0(%rbx)
mrmovq 0(%rbx), %rax
addq %rax, %rcx
halt
`
	res := runSrc(t, src)
	if got := res.Regs[1]; got != 42 { // %rcx = 0 + 42
		t.Errorf("RCX = %d, want 42", got)
	}
}

func TestAssembleMispredictedBranch(t *testing.T) {
	// irmovq $1,%rax; irmovq $2,%rbx; subq %rax,%rbx (rbx=1, not <=0); jle
	// skip (not taken); irmovq $7,%rcx; skip: halt
	src := `
irmovq $1, %rax
irmovq $2, %rbx
subq %rax, %rbx
jle skip
irmovq $7, %rcx
skip:
halt
`
	res := runSrc(t, src)
	if got := res.Regs[1]; got != 7 { // %rcx = 7 (branch not taken)
		t.Errorf("RCX = %d, want 7", got)
	}
}

func TestAssembleCmovNotTaken(t *testing.T) {
	src := `
irmovq $1, %rax
irmovq $2, %rbx
subq %rax, %rbx
cmove %rax, %rcx
halt
`
	res := runSrc(t, src)
	if got := res.Regs[1]; got != 0 {
		t.Errorf("RCX = %d, want 0 (condition not met, cmove is a no-op)", got)
	}
}

func TestAssemblePushPopRoundTrip(t *testing.T) {
	src := `
irmovq $1024, %rsp
irmovq $99, %rax
pushq %rax
irmovq $0, %rax
popq %rax
halt
`
	res := runSrc(t, src)
	if got := res.Regs[0]; got != 99 {
		t.Errorf("RAX = %d, want 99", got)
	}
}

func TestAssembleCallRet(t *testing.T) {
	src := `
irmovq $1024, %rsp
call adder
halt
adder:
irmovq $5, %rax
ret
`
	res := runSrc(t, src)
	if got := res.Regs[0]; got != 5 {
		t.Errorf("RAX = %d, want 5", got)
	}
}

func TestAssembleDirectives(t *testing.T) {
	src := `
.pos 0
irmovq stack, %rsp
call main
halt
.align 8
stack:
.quad 0
main:
irmovq $3, %rax
ret
`
	obj, err := Assemble(src, 1<<16)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if _, ok := obj.Symbols["stack"]; !ok {
		t.Error("expected symbol \"stack\"")
	}
	res, err := isaref.Run(obj.Mem)
	if err != nil {
		t.Fatalf("isaref.Run: %v", err)
	}
	if got := res.Regs[0]; got != 3 {
		t.Errorf("RAX = %d, want 3", got)
	}
}

func TestAssembleUndefinedSymbol(t *testing.T) {
	_, err := Assemble("jmp nowhere\nhalt\n", 1<<16)
	if err == nil {
		t.Fatal("expected an undefined-symbol error")
	}
}
