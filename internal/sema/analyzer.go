package sema

import (
	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
)

// Analyzer runs the four semantic passes over a parsed Module: declaration
// collection, hierarchy resolution, type checking, and temporal/priming
// validation. Grounded on the teacher's rule-driven analysis.Analyzer,
// generalized from a flat rule list to passes that must run in order
// (hierarchy resolution depends on collection; type checking depends on
// hierarchy).
type Analyzer struct {
	diags *laminar.Diagnostics
	st    *SymbolTable
	mod   *laminar.Module
}

// Analyze performs full semantic analysis on mod, returning the resolved
// symbol table and every diagnostic found. It never stops early: a pass
// that finds an error still runs to completion, and later passes still run
// over whatever partial information the table holds, so a single mistake
// doesn't hide the rest of the file's problems.
func Analyze(mod *laminar.Module) (*SymbolTable, *laminar.Diagnostics) {
	a := &Analyzer{diags: &laminar.Diagnostics{}, st: newSymbolTable(), mod: mod}

	a.collectDeclarations()
	a.resolveHierarchy()
	a.checkBodies()

	return a.st, a.diags
}

// collectDeclarations is pass 1: register every signature, enum,
// predicate, function, fact, assertion, and command, flagging duplicates
// (E305) without attempting to resolve any type yet; fields are attached
// later, in resolveHierarchy.
func (a *Analyzer) collectDeclarations() {
	for _, p := range a.mod.Paragraphs {
		switch decl := p.(type) {
		case *laminar.SigDecl:
			for _, name := range decl.Names {
				a.defineSig(name, decl)
			}
		case *laminar.EnumDecl:
			a.defineEnum(decl)
		case *laminar.FactDecl:
			a.st.Facts = append(a.st.Facts, decl)
		case *laminar.PredDecl:
			a.definePred(decl)
		case *laminar.FunDecl:
			a.defineFun(decl)
		case *laminar.AssertDecl:
			a.defineAssert(decl)
		case *laminar.Command:
			a.st.Commands = append(a.st.Commands, decl)
		}
	}
}

func (a *Analyzer) defineSig(name string, decl *laminar.SigDecl) {
	if _, dup := a.st.Sigs[name]; dup {
		a.diags.Errorf(decl.Span(), laminar.CodeDuplicateDefn, "signature %q already declared", name)

		return
	}

	info := &laminar.SigInfo{
		Name:     name,
		Decl:     decl,
		Abstract: decl.Mods.Abstract,
		Mult:     decl.Mods.Mult,
		Var:      decl.Mods.Var,
		Private:  decl.Mods.Private,
	}
	a.st.Sigs[name] = info
	a.st.SigOrder = append(a.st.SigOrder, name)
}

func (a *Analyzer) defineEnum(decl *laminar.EnumDecl) {
	if _, dup := a.st.Sigs[decl.Name]; dup {
		a.diags.Errorf(decl.Span(), laminar.CodeDuplicateDefn, "signature %q already declared", decl.Name)

		return
	}

	a.st.Enums[decl.Name] = decl

	parent := &laminar.SigInfo{Name: decl.Name, IsEnum: true, Abstract: true}
	a.st.Sigs[decl.Name] = parent
	a.st.SigOrder = append(a.st.SigOrder, decl.Name)

	for i, v := range decl.Values {
		if _, dup := a.st.Sigs[v]; dup {
			a.diags.Errorf(decl.Span(), laminar.CodeDuplicateDefn, "enum value %q already declared", v)

			continue
		}

		value := &laminar.SigInfo{
			Name: v, Mult: laminar.MultOne, Parent: parent, IsEnum: true, EnumOrder: i,
		}
		parent.Children = append(parent.Children, value)
		a.st.Sigs[v] = value
		a.st.SigOrder = append(a.st.SigOrder, v)
	}
}

func (a *Analyzer) definePred(decl *laminar.PredDecl) {
	key := predKey(decl.Receiver, decl.Name)
	if _, dup := a.st.Preds[key]; dup {
		a.diags.Errorf(decl.Span(), laminar.CodeDuplicateDefn, "predicate %q already declared", decl.Name)

		return
	}

	a.st.Preds[key] = decl
}

func (a *Analyzer) defineFun(decl *laminar.FunDecl) {
	key := predKey(decl.Receiver, decl.Name)
	if _, dup := a.st.Funcs[key]; dup {
		a.diags.Errorf(decl.Span(), laminar.CodeDuplicateDefn, "function %q already declared", decl.Name)

		return
	}

	a.st.Funcs[key] = decl
}

func (a *Analyzer) defineAssert(decl *laminar.AssertDecl) {
	if _, dup := a.st.Asserts[decl.Name]; dup {
		a.diags.Errorf(decl.Span(), laminar.CodeDuplicateDefn, "assertion %q already declared", decl.Name)

		return
	}

	a.st.Asserts[decl.Name] = decl
}

// predKey namespaces a predicate/function's lookup key by receiver, so a
// bare pred Foo and a Recv.Foo can coexist.
func predKey(receiver, name string) string {
	if receiver == "" {
		return name
	}

	return receiver + "." + name
}

// resolveHierarchy is pass 2: link each SigInfo's Parent/SubsetOf/Children
// from its SigDecl's extends/in clauses, detecting cycles (E306) and
// undefined signature references (E302) along the way, then resolves each
// field's type and attaches it to its owning SigInfo(s).
func (a *Analyzer) resolveHierarchy() {
	for _, p := range a.mod.Paragraphs {
		decl, ok := p.(*laminar.SigDecl)
		if !ok {
			continue
		}

		for _, name := range decl.Names {
			info := a.st.Sigs[name]
			if info == nil {
				continue
			}

			if decl.Extends != nil {
				parent, ok := a.st.Sig(decl.Extends.Name)
				if !ok {
					a.diags.Errorf(decl.Extends.Span(), laminar.CodeUndefinedSignature,
						"undefined signature %q in extends clause", decl.Extends.Name)

					continue
				}

				info.Parent = parent
				parent.Children = append(parent.Children, info)
			}

			for _, q := range decl.In {
				parent, ok := a.st.Sig(q.Name)
				if !ok {
					a.diags.Errorf(q.Span(), laminar.CodeUndefinedSignature,
						"undefined signature %q in in-clause", q.Name)

					continue
				}

				info.SubsetOf = append(info.SubsetOf, parent)
			}
		}
	}

	for name, info := range a.st.Sigs {
		if hasCycle(info, make(map[*laminar.SigInfo]bool)) {
			a.diags.Errorf(info.Decl.Span(), laminar.CodeCyclicInheritance,
				"cyclic inheritance involving signature %q", name)
		}
	}

	for _, p := range a.mod.Paragraphs {
		decl, ok := p.(*laminar.SigDecl)
		if !ok {
			continue
		}

		a.resolveFields(decl)
	}
}

func hasCycle(info *laminar.SigInfo, seen map[*laminar.SigInfo]bool) bool {
	if seen[info] {
		return true
	}
	seen[info] = true
	defer delete(seen, info)

	if info.Parent != nil && hasCycle(info.Parent, seen) {
		return true
	}

	for _, s := range info.SubsetOf {
		if hasCycle(s, seen) {
			return true
		}
	}

	return false
}

func (a *Analyzer) resolveFields(decl *laminar.SigDecl) {
	for _, fd := range decl.Fields {
		typ := a.typeOfExpr(a.moduleScope(), fd.Type)

		for _, sigName := range decl.Names {
			owner := a.st.Sigs[sigName]
			if owner == nil {
				continue
			}

			fi := &laminar.FieldInfo{
				Name:  fd.Names[0],
				Owner: owner,
				Disj:  fd.Disj,
				Var:   fd.Var,
				Type:  laminar.TypeRelation(append([]laminar.Type{laminar.TypeSig(owner)}, columnsOf(typ)...)...),
				Decl:  fd,
			}

			for _, fieldName := range fd.Names {
				f := *fi
				f.Name = fieldName
				owner.Fields = append(owner.Fields, &f)
			}
		}
	}
}

func columnsOf(t laminar.Type) []laminar.Type {
	if t.Kind == laminar.KindRelation {
		return t.Cols
	}

	return []laminar.Type{t}
}

// moduleScope is the outermost scope: no local variables, no owning
// signature. Every predicate/function/fact/assert body-check starts from a
// scope chained off of this one.
func (a *Analyzer) moduleScope() *Scope {
	return newScope(ScopeModule, nil)
}

// findSig looks up a resolved signature, recording E302 if it does not
// exist.
func (a *Analyzer) findSig(span laminar.Span, name string) (*laminar.SigInfo, bool) {
	s, ok := a.st.Sig(name)
	if !ok {
		a.diags.Errorf(span, laminar.CodeUndefinedSignature, "undefined signature %q", name)
	}

	return s, ok
}
