// Package hcl implements the frontend for the Hardware Control Language
// described in spec.md §4.2: a small declarative language for describing
// intermediate signals, their priority-ordered case tables or single
// expressions, and their fan-out destinations.
//
// The original source embeds HCL via a compile-time Rust macro that expands
// straight into Rust closures. Go has no such macro facility, so this
// package follows spec.md §9's strategy (b): parse the HCL source once, at
// architecture-construction time, into an AST, then compile that AST into a
// dependency-annotated set of updater closures. Every cycle thereafter runs
// the already-compiled closures — no parsing happens per cycle.
package hcl
