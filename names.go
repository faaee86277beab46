package laminar

// Built-in atom/relation names recognized by the parser and expression
// encoder (§4.1, §4.7).
const (
	BuiltinUniv = "univ"
	BuiltinNone = "none"
	BuiltinIden = "iden"
	BuiltinInt  = "Int"
	BuiltinThis = "this"
)

func isBuiltinName(name string) bool {
	switch name {
	case BuiltinUniv, BuiltinNone, BuiltinIden, BuiltinInt, BuiltinThis:
		return true
	default:
		return false
	}
}

// Multiplicity keywords, arity-independent cardinality qualifiers (GLOSSARY).
const (
	MultSet  = "set"
	MultOne  = "one"
	MultLone = "lone"
	MultSome = "some"
	MultNo   = "no"
	MultAll  = "all"
)

// Quantifier keywords usable at formula precedence level 7 (§4.2).
var quantifierKeywords = map[string]bool{
	MultAll: true, MultSome: true, MultNo: true, MultOne: true, MultLone: true,
}

// BuiltinIntFuncs names the built-in two's-complement arithmetic functions
// callable via box join with every argument in the brackets (`mul[a, b]`;
// the dot-join form `a.mul[b]` is checked as a one-argument call and
// rejected), mirroring
// how Alloy's util/integer library exposes multiplication, division, and
// shifts as ordinary functions rather than dedicated operator syntax
// (§4.6): the core grammar only gives `+`/`-` infix operators to integers,
// so the rest of the bit-vector arithmetic surfaces this way instead. The
// int value is each function's argument count. A user declaration of the
// same bare name shadows the built-in.
var BuiltinIntFuncs = map[string]int{
	"add": 2, "sub": 2, "mul": 2, "div": 2, "rem": 2,
	"shl": 2, "shr": 2, "sha": 2, "abs": 1,
}

// Temporal future/past operator keywords (§4.1 GLOSSARY).
var temporalUnaryFuture = map[string]bool{"always": true, "eventually": true, "after": true}
var temporalUnaryPast = map[string]bool{"historically": true, "once": true, "before": true}
var temporalBinary = map[string]bool{"until": true, "releases": true, "since": true, "triggered": true}
