// Package sema implements semantic analysis: symbol resolution, signature
// hierarchy validation, type checking, and temporal/priming checks over a
// parsed module (§4.3).
package sema

import (
	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
)

// ScopeKind distinguishes the kinds of lexical scope a name can be bound in.
type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeSignature
	ScopePredicate
	ScopeFunction
	ScopeQuantifier
	ScopeLet
	ScopeComprehension
)

// varSymbol is one name bound within a Scope: a predicate/function
// parameter, a quantifier/comprehension/let-bound variable, or (inside a
// signature's own fact block) one of its fields.
type varSymbol struct {
	Name string
	Type laminar.Type
	Span laminar.Span
}

// Scope is one link in the lexical scope chain active while type-checking
// a formula or expression. Scopes nest: a quantifier inside a predicate
// inside the module scope.
type Scope struct {
	Kind   ScopeKind
	Parent *Scope
	Vars   map[string]*varSymbol

	// Owner is set for ScopeSignature/ScopePredicate/ScopeFunction scopes
	// whose body may refer to the receiver's fields and to `this`.
	Owner *laminar.SigInfo
}

func newScope(kind ScopeKind, parent *Scope) *Scope {
	return &Scope{Kind: kind, Parent: parent, Vars: make(map[string]*varSymbol)}
}

func (s *Scope) define(name string, typ laminar.Type, span laminar.Span) {
	s.Vars[name] = &varSymbol{Name: name, Type: typ, Span: span}
}

// lookup walks the scope chain outward, returning the nearest binding.
func (s *Scope) lookup(name string) (*varSymbol, *Scope) {
	for sc := s; sc != nil; sc = sc.Parent {
		if v, ok := sc.Vars[name]; ok {
			return v, sc
		}
	}

	return nil, nil
}

// owner returns the nearest enclosing signature/predicate/function receiver,
// used to resolve bare field names and `this`.
func (s *Scope) owner() *laminar.SigInfo {
	for sc := s; sc != nil; sc = sc.Parent {
		if sc.Owner != nil {
			return sc.Owner
		}
	}

	return nil
}

// inVarContext reports whether priming (§4.1, `e'`) is allowed here: false
// when the chain crosses a ScopeFunction scope, since functions have no
// notion of "next state" of their own, and true otherwise.
func (s *Scope) inVarContext() bool {
	for sc := s; sc != nil; sc = sc.Parent {
		if sc.Kind == ScopeFunction {
			return false
		}
	}

	return true
}

// SymbolTable is the analyzer's arena of module-level declarations,
// populated by the collect pass and consulted by every later pass and by
// the translator. Unlike the AST's SigDecl (which can name several
// signatures in one declaration), each entry here names exactly one
// resolved signature/predicate/function/fact/assert/enum.
type SymbolTable struct {
	Sigs    map[string]*laminar.SigInfo
	Preds   map[string]*laminar.PredDecl
	Funcs   map[string]*laminar.FunDecl
	Asserts map[string]*laminar.AssertDecl
	Facts   []*laminar.FactDecl
	Enums   map[string]*laminar.EnumDecl
	Commands []*laminar.Command

	// SigOrder preserves declaration order, used by the universe builder
	// for deterministic atom allocation (§4.4).
	SigOrder []string
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{
		Sigs:    make(map[string]*laminar.SigInfo),
		Preds:   make(map[string]*laminar.PredDecl),
		Funcs:   make(map[string]*laminar.FunDecl),
		Asserts: make(map[string]*laminar.AssertDecl),
		Enums:   make(map[string]*laminar.EnumDecl),
	}
}

// Sig looks up a resolved signature by name, also checking enum-value
// names (each enum value is itself a singleton one-sig, §4.1).
func (st *SymbolTable) Sig(name string) (*laminar.SigInfo, bool) {
	s, ok := st.Sigs[name]

	return s, ok
}
