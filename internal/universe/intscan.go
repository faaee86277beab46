package universe

import laminar "github.com/AlchemicalChef/MacAlloy-sub001"

// referencesIntegers reports whether any paragraph in mod ever touches the
// Int domain: a field typed Int, a cardinality operator, an integer
// literal, or a relational integer comparison (§4.4's integer-atom gate).
func referencesIntegers(mod *laminar.Module) bool {
	for _, p := range mod.Paragraphs {
		if paragraphReferencesIntegers(p) {
			return true
		}
	}

	return false
}

func paragraphReferencesIntegers(p laminar.Paragraph) bool {
	switch n := p.(type) {
	case *laminar.SigDecl:
		for _, f := range n.Fields {
			if exprRefsInt(f.Type) {
				return true
			}
		}

		for _, f := range n.Facts {
			if formulaRefsInt(f) {
				return true
			}
		}
	case *laminar.FactDecl:
		return formulaRefsInt(n.Body)
	case *laminar.PredDecl:
		if paramsRefInt(n.Params) {
			return true
		}

		return formulaRefsInt(n.Body)
	case *laminar.FunDecl:
		if paramsRefInt(n.Params) {
			return true
		}

		return exprRefsInt(n.RetType) || exprRefsInt(n.Body)
	case *laminar.AssertDecl:
		return formulaRefsInt(n.Body)
	case *laminar.Command:
		for _, a := range n.Args {
			if exprRefsInt(a) {
				return true
			}
		}

		if n.Inline != nil {
			return formulaRefsInt(n.Inline)
		}
	}

	return false
}

func paramsRefInt(params []*laminar.ParamDecl) bool {
	for _, p := range params {
		if exprRefsInt(p.Type) {
			return true
		}
	}

	return false
}

func declsRefInt(decls []*laminar.Decl) bool {
	for _, d := range decls {
		if exprRefsInt(d.Type) {
			return true
		}
	}

	return false
}

func exprRefsInt(e laminar.Expr) bool {
	if e == nil {
		return false
	}

	switch n := e.(type) {
	case *laminar.NameExpr:
		return n.Name == laminar.BuiltinInt
	case *laminar.BuiltinExpr:
		return n.Name == laminar.BuiltinInt
	case *laminar.IntLitExpr:
		return true
	case *laminar.BinaryExpr:
		return exprRefsInt(n.Left) || exprRefsInt(n.Right)
	case *laminar.UnaryExpr:
		if n.Op == "#" {
			return true
		}

		return exprRefsInt(n.X)
	case *laminar.MultExpr:
		return exprRefsInt(n.X)
	case *laminar.PrimeExpr:
		return exprRefsInt(n.X)
	case *laminar.BoxJoinExpr:
		if exprRefsInt(n.Fn) {
			return true
		}

		for _, a := range n.Args {
			if exprRefsInt(a) {
				return true
			}
		}
	case *laminar.ComprehensionExpr:
		if declsRefInt(n.Decls) {
			return true
		}

		return formulaRefsInt(n.Body)
	case *laminar.LetExpr:
		for _, bnd := range n.Bindings {
			if exprRefsInt(bnd.Value) {
				return true
			}
		}

		return exprRefsInt(n.Body)
	case *laminar.IfExpr:
		return formulaRefsInt(n.Cond) || exprRefsInt(n.Then) || exprRefsInt(n.Else)
	case *laminar.BlockExpr:
		for _, f := range n.Formulas {
			if formulaRefsInt(f) {
				return true
			}
		}
	}

	return false
}

func formulaRefsInt(f laminar.Formula) bool {
	if f == nil {
		return false
	}

	switch n := f.(type) {
	case *laminar.BinaryFormula:
		return formulaRefsInt(n.Left) || formulaRefsInt(n.Right)
	case *laminar.NotFormula:
		return formulaRefsInt(n.X)
	case *laminar.TemporalUnaryFormula:
		return formulaRefsInt(n.X)
	case *laminar.TemporalBinaryFormula:
		return formulaRefsInt(n.Left) || formulaRefsInt(n.Right)
	case *laminar.QuantFormula:
		if declsRefInt(n.Decls) {
			return true
		}

		return formulaRefsInt(n.Body)
	case *laminar.LetFormula:
		for _, bnd := range n.Bindings {
			if exprRefsInt(bnd.Value) {
				return true
			}
		}

		return formulaRefsInt(n.Body)
	case *laminar.IfFormula:
		return formulaRefsInt(n.Cond) || formulaRefsInt(n.Then) || formulaRefsInt(n.Else)
	case *laminar.CompareFormula:
		switch n.Op {
		case "<", "<=", ">", ">=":
			return true
		}

		return exprRefsInt(n.Left) || exprRefsInt(n.Right)
	case *laminar.MultFormula:
		return exprRefsInt(n.X)
	case *laminar.CallFormula:
		if n.Receiver != nil && exprRefsInt(n.Receiver) {
			return true
		}

		for _, a := range n.Args {
			if exprRefsInt(a) {
				return true
			}
		}
	case *laminar.BlockFormula:
		for _, inner := range n.Formulas {
			if formulaRefsInt(inner) {
				return true
			}
		}
	case *laminar.ExprFormula:
		return exprRefsInt(n.X)
	}

	return false
}
