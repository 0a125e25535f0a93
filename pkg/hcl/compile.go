package hcl

import (
	"fmt"
	"sort"
	"strings"
)

// Updater is one compiled signal: a closure ready to run every cycle, plus
// the static dependency and fan-out sets the graph builder needs
// (spec.md §4.2's three output obligations).
type Updater struct {
	Name  string
	Deps  []string
	Dests []string
	Run   func() error
}

// Compiled is an architecture's fully compiled HCL program: one Updater per
// declared signal, in declaration order, plus the resolved directives.
type Compiled struct {
	Program  *Program
	Updaters []*Updater
}

// Compile resolves stage aliases, extracts each signal's dependency set by
// walking its parsed expression tree (not by scanning source text — this
// is the fix for the "latent bug" spec.md §9's Design Notes flags in the
// original source), and produces one Updater per signal.
//
// isUnitName reports whether a bare identifier names a unit as a whole
// (spec.md §4.3: "identifiers that match unit *whole* names are skipped,
// the unit-level edge already carries the dependency"). Architectures that
// never reference a bare unit name may pass a func that always returns
// false.
func Compile(prog *Program, env *Env, isUnitName func(string) bool) (*Compiled, error) {
	shortToLong := make(map[string]string, len(prog.StageAliases))
	for long, short := range prog.StageAliases {
		shortToLong[short] = long
	}

	for _, decl := range prog.Signals {
		rewriteSource(decl.Source, shortToLong)
		for i := range decl.Dests {
			decl.Dests[i].Name = resolveAlias(decl.Dests[i].Name, shortToLong)
		}
	}

	c := &Compiled{Program: prog}
	for _, decl := range prog.Signals {
		decl := decl
		idents := map[string]struct{}{}
		decl.Source.idents(idents)

		var deps []string
		for name := range idents {
			if name == decl.Name {
				continue
			}
			if isUnitName != nil && !strings.Contains(name, ".") && isUnitName(name) {
				continue
			}
			deps = append(deps, name)
		}
		sort.Strings(deps)

		var destNames []string
		for _, d := range decl.Dests {
			destNames = append(destNames, d.Name)
		}

		u := &Updater{
			Name:  decl.Name,
			Deps:  deps,
			Dests: destNames,
			Run:   compileRun(decl, env),
		}
		c.Updaters = append(c.Updaters, u)
	}
	return c, nil
}

func compileRun(decl *SignalDecl, env *Env) func() error {
	return func() error {
		val, tag, ok, err := EvalSource(decl.Source, env)
		if err != nil {
			return fmt.Errorf("hcl: signal %s: %w", decl.Name, err)
		}
		if !ok {
			val = 0
		}
		if err := env.Set(decl.Name, val); err != nil {
			return fmt.Errorf("hcl: signal %s: %w", decl.Name, err)
		}
		env.Tracer.Mark(tag)
		for _, d := range decl.Dests {
			if err := env.Set(d.Name, val); err != nil {
				return fmt.Errorf("hcl: signal %s -> %s: %w", decl.Name, d.Name, err)
			}
			env.Tracer.Mark(d.Tunnel)
		}
		return nil
	}
}

func resolveAlias(name string, shortToLong map[string]string) string {
	idx := strings.IndexByte(name, '.')
	if idx < 0 {
		return name
	}
	prefix, rest := name[:idx], name[idx:]
	if long, ok := shortToLong[prefix]; ok {
		return long + rest
	}
	return name
}

func rewriteSource(src Source, shortToLong map[string]string) {
	switch s := src.(type) {
	case *ExprSource:
		rewriteExpr(s.Expr, shortToLong)
	case *CaseSource:
		for i := range s.Cases {
			rewriteExpr(s.Cases[i].Cond, shortToLong)
			rewriteExpr(s.Cases[i].Value, shortToLong)
		}
	}
}

func rewriteExpr(e Expr, shortToLong map[string]string) {
	switch x := e.(type) {
	case *Ident:
		x.Name = resolveAlias(x.Name, shortToLong)
	case *UnaryExpr:
		rewriteExpr(x.X, shortToLong)
	case *BinaryExpr:
		rewriteExpr(x.Left, shortToLong)
		rewriteExpr(x.Right, shortToLong)
	}
}
