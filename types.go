package laminar

import "strings"

// TypeKind distinguishes the lattice's atomic and composite type shapes.
type TypeKind int

const (
	KindBool TypeKind = iota
	KindInt
	KindUniv
	KindNone
	KindIden
	KindSig
	KindRelation
	KindUnknown
	KindError
)

// Type is the static type of an expression or formula, per §3's lattice.
// Sig, Relation, Unknown and Error carry extra data; the rest are
// singleton-shaped.
type Type struct {
	Kind    TypeKind
	Sig     *SigInfo // set iff Kind == KindSig
	Cols    []Type   // set iff Kind == KindRelation; len(Cols) == Arity
	Arity   int      // set iff Kind == KindUnknown
	ErrMsg  string   // set iff Kind == KindError
}

var (
	TypeBool = Type{Kind: KindBool}
	TypeInt  = Type{Kind: KindInt}
	TypeUniv = Type{Kind: KindUniv}
	TypeNone = Type{Kind: KindNone}
	TypeIden = Type{Kind: KindIden}
)

func TypeUnknown(arity int) Type { return Type{Kind: KindUnknown, Arity: arity} }
func TypeError(msg string) Type  { return Type{Kind: KindError, ErrMsg: msg} }
func TypeSig(s *SigInfo) Type    { return Type{Kind: KindSig, Sig: s} }
func TypeRelation(cols ...Type) Type {
	if len(cols) == 1 {
		return cols[0]
	}

	return Type{Kind: KindRelation, Cols: cols}
}

// Arity returns the number of columns: 0 for Bool, 1 for Int/Univ/None/Sig,
// 2 for Iden, len(Cols) for Relation, t.Arity for Unknown, -1 for Error.
func (t Type) Arity() int {
	switch t.Kind {
	case KindBool:
		return 0
	case KindInt, KindUniv, KindNone, KindSig:
		return 1
	case KindIden:
		return 2
	case KindRelation:
		return len(t.Cols)
	case KindUnknown:
		return t.Arity
	default:
		return -1
	}
}

func (t Type) IsError() bool { return t.Kind == KindError }

// Column returns the type of column i (0-based), treating arity-1 types as
// their own sole column.
func (t Type) Column(i int) Type {
	if t.Kind == KindRelation {
		return t.Cols[i]
	}

	return t
}

func (t Type) String() string {
	switch t.Kind {
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindUniv:
		return "univ"
	case KindNone:
		return "none"
	case KindIden:
		return "iden"
	case KindSig:
		if t.Sig != nil {
			return t.Sig.Name
		}

		return "Sig"
	case KindRelation:
		parts := make([]string, len(t.Cols))
		for i, c := range t.Cols {
			parts[i] = c.String()
		}

		return strings.Join(parts, "->")
	case KindUnknown:
		return "unknown"
	default:
		return "error(" + t.ErrMsg + ")"
	}
}

// SigInfo is the resolved, analyzer-owned description of a signature's
// place in the inheritance DAG. It is intentionally decoupled from the
// AST's SigDecl so that a single multi-name declaration
// (`sig A, B extends C`) yields two distinct SigInfo nodes.
type SigInfo struct {
	Name      string
	Decl      *SigDecl
	Abstract  bool
	Mult      string
	Var       bool
	Private   bool
	Parent    *SigInfo   // extends; nil for top-level or `in`-only sigs
	SubsetOf  []*SigInfo // `in P1 + P2 + ...`
	Children  []*SigInfo
	IsEnum    bool
	EnumOrder int
	Fields    []*FieldInfo
}

// FieldInfo is the resolved description of a field, independent of which
// of its declaration's sibling names it was.
type FieldInfo struct {
	Name  string
	Owner *SigInfo
	Disj  bool
	Var   bool
	Type  Type // the field's full relation type, first column == Owner
	Decl  *FieldDecl
}

// joinArity implements the join-arity rule of §3/§4.3: arities sum to at
// least 3, so the result arity (m+n-2) is at least 1.
func joinArity(m, n int) (int, bool) {
	if m < 1 || n < 1 || m+n < 3 {
		return 0, false
	}

	return m + n - 2, true
}

// isSubSig reports whether `child` is equal to, or a descendant (via
// extends or in) of, `parent` in the signature DAG.
func isSubSig(child, parent *SigInfo) bool {
	if child == parent {
		return true
	}

	for p := child.Parent; p != nil; p = p.Parent {
		if p == parent {
			return true
		}
	}

	for _, s := range child.SubsetOf {
		if isSubSig(s, parent) {
			return true
		}
	}

	return false
}
