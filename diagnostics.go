package laminar

import (
	"fmt"
	"sort"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}

	return "error"
}

// Diagnostic codes, grouped per §7 of the specification. Codes are stable
// identifiers surfaced in the `LINE:COL: severity: [CODE] message` format.
const (
	// Lexical.
	CodeInvalidCharacter    = "E101"
	CodeUnterminatedComment = "E102"
	CodeInvalidNumber       = "E103"

	// Syntactic.
	CodeUnexpectedToken = "E201"
	CodeMissingCloser   = "E202"

	// Naming.
	CodeUndefinedName      = "E301"
	CodeUndefinedSignature = "E302"
	CodeUndefinedField     = "E303"
	CodeUndefinedPredicate = "E304"
	CodeUndefinedFunction  = "E309"
	CodeDuplicateDefn      = "E305"
	CodeCyclicInheritance  = "E306"
	CodeAmbiguousRef       = "E307"
	CodePrivateAccess      = "E308"

	// Typing.
	CodeTypeMismatch    = "E401"
	CodeArityMismatch   = "E402"
	CodeInvalidJoin     = "E403"
	CodeInvalidUnion    = "E404"
	CodeInvalidIsect    = "E405"
	CodeInvalidProduct  = "E406"
	CodeInvalidCompare  = "E407"
	CodeExpectRelation  = "E408"
	CodeExpectSet       = "E409"
	CodeExpectFormula   = "E410"
	CodeExpectInteger   = "E411"
	CodeArgCountMismatch = "E412"

	// Multiplicity.
	CodeInvalidMultiplicity   = "E501"
	CodeMultiplicityViolation = "E502"

	// Temporal.
	CodePrimedNonVariable  = "E601"
	CodeTemporalMisuse     = "E602"
	CodeMissingSteps       = "E603"

	// Scope.
	CodeInvalidScope = "E701"
	CodeScopeTooSmall = "E702"

	// Warnings.
	CodeUnusedSymbol        = "W201"
	CodeShadowedName        = "W202"
	CodeRedundantConstraint = "W203"
	CodeEmptySignature      = "W204"
)

// RelatedSpan is a secondary source location attached to a Diagnostic, e.g.
// "previous definition here".
type RelatedSpan struct {
	Span    Span
	Message string
}

// Diagnostic is a single analyzer/lexer/parser-level finding.
type Diagnostic struct {
	Span     Span
	Severity Severity
	Code     string
	Message  string
	Related  []RelatedSpan
	Fix      string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s: [%s] %s", d.Span.Start.Line, d.Span.Start.Column, d.Severity, d.Code, d.Message)
}

// Diagnostics accumulates findings across all phases of the pipeline. No
// phase aborts on a single error; the driver refuses to advance from
// analysis to translation only once all passes have run and at least one
// error-severity diagnostic was recorded.
type Diagnostics struct {
	items []Diagnostic
}

// Add records a diagnostic.
func (d *Diagnostics) Add(diag Diagnostic) {
	d.items = append(d.items, diag)
}

// Errorf records an error-severity diagnostic at span.
func (d *Diagnostics) Errorf(span Span, code, format string, args ...any) {
	d.Add(Diagnostic{Span: span, Severity: SeverityError, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Warnf records a warning-severity diagnostic at span.
func (d *Diagnostics) Warnf(span Span, code, format string, args ...any) {
	d.Add(Diagnostic{Span: span, Severity: SeverityWarning, Code: code, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (d *Diagnostics) HasErrors() bool {
	for _, it := range d.items {
		if it.Severity == SeverityError {
			return true
		}
	}

	return false
}

// All returns every diagnostic sorted by source position, per §7's
// user-visible ordering requirement.
func (d *Diagnostics) All() []Diagnostic {
	sorted := make([]Diagnostic, len(d.items))
	copy(sorted, d.items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Span.Start, sorted[j].Span.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}

		return a.Column < b.Column
	})

	return sorted
}

// Merge appends another collector's items into d.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}

	d.items = append(d.items, other.items...)
}
