package translate

import (
	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/kernel"
)

// EncodeFormula walks a formula AST node at trace state s and returns the
// BooleanFormula it denotes (§4.8).
func (ctx *Context) EncodeFormula(s int, f laminar.Formula) *cnf.BooleanFormula {
	switch n := f.(type) {
	case *laminar.BinaryFormula:
		return ctx.encodeBinaryFormula(s, n)

	case *laminar.NotFormula:
		return cnf.Not(ctx.EncodeFormula(s, n.X))

	case *laminar.TemporalUnaryFormula:
		return ctx.encodeTemporalUnary(s, n)

	case *laminar.TemporalBinaryFormula:
		return ctx.encodeTemporalBinary(s, n)

	case *laminar.QuantFormula:
		return ctx.encodeQuant(s, n)

	case *laminar.LetFormula:
		return ctx.encodeLetFormula(s, n)

	case *laminar.IfFormula:
		cond := ctx.EncodeFormula(s, n.Cond)
		return cnf.Ite(cond, ctx.EncodeFormula(s, n.Then), ctx.EncodeFormula(s, n.Else))

	case *laminar.CompareFormula:
		return ctx.encodeCompare(s, n)

	case *laminar.MultFormula:
		return ctx.encodeMultFormula(s, n)

	case *laminar.CallFormula:
		return ctx.encodeCall(s, n)

	case *laminar.BlockFormula:
		var conj []*cnf.BooleanFormula
		for _, inner := range n.Formulas {
			conj = append(conj, ctx.EncodeFormula(s, inner))
		}

		return cnf.And(conj...)

	case *laminar.ExprFormula:
		return kernel.Some(ctx.EncodeExpr(s, n.X))

	default:
		return cnf.True
	}
}

func (ctx *Context) encodeBinaryFormula(s int, n *laminar.BinaryFormula) *cnf.BooleanFormula {
	left := ctx.EncodeFormula(s, n.Left)
	right := ctx.EncodeFormula(s, n.Right)

	switch n.Op {
	case "and":
		return cnf.And(left, right)
	case "or":
		return cnf.Or(left, right)
	case "implies":
		return cnf.Implies(left, right)
	case "iff":
		return cnf.Iff(left, right)
	default:
		return cnf.True
	}
}

func (ctx *Context) encodeMultFormula(s int, n *laminar.MultFormula) *cnf.BooleanFormula {
	m := ctx.EncodeExpr(s, n.X)

	switch n.Mult {
	case laminar.MultSome:
		return kernel.Some(m)
	case laminar.MultNo:
		return kernel.No(m)
	case laminar.MultOne:
		return kernel.One(m)
	case laminar.MultLone:
		return kernel.Lone(m)
	default:
		return cnf.True
	}
}

// encodeCompare dispatches `=`/`!=`/`in`/`not in` to relational matrix
// predicates, and the ordering operators through the implicit-sum bridge
// to signed BitVector comparison (§4.6, §4.8).
func (ctx *Context) encodeCompare(s int, n *laminar.CompareFormula) *cnf.BooleanFormula {
	switch n.Op {
	case "=":
		return kernel.Equal(ctx.EncodeExpr(s, n.Left), ctx.EncodeExpr(s, n.Right))
	case "!=":
		return cnf.Not(kernel.Equal(ctx.EncodeExpr(s, n.Left), ctx.EncodeExpr(s, n.Right)))
	case "in":
		return kernel.Subset(ctx.EncodeExpr(s, n.Left), ctx.EncodeExpr(s, n.Right))
	case "not in":
		return cnf.Not(kernel.Subset(ctx.EncodeExpr(s, n.Left), ctx.EncodeExpr(s, n.Right)))
	}

	a := ctx.sumInts(ctx.EncodeExpr(s, n.Left))
	b := ctx.sumInts(ctx.EncodeExpr(s, n.Right))

	switch n.Op {
	case "<":
		return kernel.Lt(ctx.B, a, b)
	case "<=":
		return kernel.Lte(ctx.B, a, b)
	case ">":
		return kernel.Gt(ctx.B, a, b)
	case ">=":
		return kernel.Gte(ctx.B, a, b)
	default:
		return cnf.True
	}
}

// encodeQuant enumerates Decls' full cartesian product over the universe
// and applies the combinator matching Quant (§4.8): all → conjunction of
// implications, some/one/lone → disjunction/cardinality test over
// conjunctions, no → conjunction of implications with negated bodies
// (the negation of the some-disjunction).
func (ctx *Context) encodeQuant(s int, n *laminar.QuantFormula) *cnf.BooleanFormula {
	vars := flattenDecls(ctx, s, n.Decls)

	var implications, conjunctions []*cnf.BooleanFormula

	enumerate(ctx, vars, func(assignment []assignedVar) {
		member := membershipAll(assignment)

		prev := ctx.pushLexical(bindingsFor(assignment))
		body := ctx.EncodeFormula(s, n.Body)
		ctx.pop(prev)

		implications = append(implications, cnf.Implies(member, body))
		conjunctions = append(conjunctions, cnf.And(member, body))
	})

	switch n.Quant {
	case laminar.MultAll:
		return cnf.And(implications...)
	case laminar.MultNo:
		return cnf.Not(cnf.Or(conjunctions...))
	case laminar.MultSome:
		return cnf.Or(conjunctions...)
	case laminar.MultOne:
		return cnf.And(cnf.Or(conjunctions...), kernel.AtMostOne(conjunctions))
	case laminar.MultLone:
		return kernel.AtMostOne(conjunctions)
	default:
		return cnf.True
	}
}

func (ctx *Context) encodeLetFormula(s int, n *laminar.LetFormula) *cnf.BooleanFormula {
	vars := make(map[string]binding, len(n.Bindings))
	for _, b := range n.Bindings {
		vars[b.Name] = binding{Type: ctx.typeOf(b.Value), Matrix: ctx.EncodeExpr(s, b.Value)}
	}

	prev := ctx.pushLexical(vars)
	result := ctx.EncodeFormula(s, n.Body)
	ctx.pop(prev)

	return result
}

// predKey mirrors sema's receiver-namespaced predicate/function lookup key.
func predKey(receiver, name string) string {
	if receiver == "" {
		return name
	}

	return receiver + "." + name
}

// encodeCall inlines a predicate call: its body is translated in a fresh
// scope rooted at the module scope (never the caller's), with `this` bound
// to the receiver (if any) and each parameter bound to its argument's
// matrix, mirroring sema's paramScope/checkCall.
func (ctx *Context) encodeCall(s int, n *laminar.CallFormula) *cnf.BooleanFormula {
	key := n.Name
	if n.Receiver != nil {
		if recv, ok := n.Receiver.(*laminar.NameExpr); ok {
			if _, isSig := ctx.St.Sig(recv.Name); isSig {
				key = predKey(recv.Name, n.Name)
			}
		}
	}

	pred, ok := ctx.St.Preds[key]
	if !ok {
		pred, ok = ctx.St.Preds[n.Name]
	}

	if !ok {
		return cnf.True
	}

	var owner *laminar.SigInfo

	vars := make(map[string]binding)

	if n.Receiver != nil {
		recvType := ctx.typeOf(n.Receiver)
		vars[laminar.BuiltinThis] = binding{Type: recvType, Matrix: ctx.EncodeExpr(s, n.Receiver)}
		owner = recvType.Sig
	} else if pred.Receiver != "" {
		if sig, ok := ctx.St.Sig(pred.Receiver); ok {
			owner = sig
		}
	}

	argIdx := 0
	for _, p := range pred.Params {
		for _, name := range p.Names {
			if argIdx >= len(n.Args) {
				break
			}

			arg := n.Args[argIdx]
			vars[name] = binding{Type: ctx.typeOf(arg), Matrix: ctx.EncodeExpr(s, arg)}
			argIdx++
		}
	}

	prev := ctx.pushCall(owner, vars)
	result := ctx.EncodeFormula(s, pred.Body)
	ctx.pop(prev)

	return result
}
