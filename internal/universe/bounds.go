package universe

import (
	"strconv"
	"strings"

	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
)

// Tuple is one row of a relation, as atom indices into Universe.Atoms.
type Tuple []int32

func (t Tuple) key() string {
	var b strings.Builder
	for i, v := range t {
		if i > 0 {
			b.WriteByte(',')
		}

		b.WriteString(strconv.FormatInt(int64(v), 10))
	}

	return b.String()
}

// TupleSet is an insertion-ordered set of same-arity tuples. Bounds store
// TupleSets sparsely; the relational kernel (§4.5) expands them into full
// |U|^k matrices.
type TupleSet struct {
	Arity   int
	index   map[string]int
	tuples  []Tuple
}

// NewTupleSet returns an empty set of tuples of the given arity.
func NewTupleSet(arity int) *TupleSet {
	return &TupleSet{Arity: arity, index: make(map[string]int)}
}

// Add inserts t if not already present.
func (s *TupleSet) Add(t Tuple) {
	k := t.key()
	if _, ok := s.index[k]; ok {
		return
	}

	s.index[k] = len(s.tuples)
	s.tuples = append(s.tuples, t)
}

// Contains reports whether t is a member.
func (s *TupleSet) Contains(t Tuple) bool {
	_, ok := s.index[t.key()]
	return ok
}

// Tuples returns the set's members in insertion order.
func (s *TupleSet) Tuples() []Tuple { return s.tuples }

// Len is the number of tuples.
func (s *TupleSet) Len() int { return len(s.tuples) }

// RelationBounds is the lower/upper tuple-set pair for one relation (a
// signature's atom set, arity 1, or a field's tuple set, arity >= 2).
type RelationBounds struct {
	Arity int
	Lower *TupleSet
	Upper *TupleSet
}

func exactBounds(arity int, tuples []Tuple) *RelationBounds {
	set := NewTupleSet(arity)
	for _, t := range tuples {
		set.Add(t)
	}

	upper := NewTupleSet(arity)
	for _, t := range set.Tuples() {
		upper.Add(t)
	}

	return &RelationBounds{Arity: arity, Lower: set, Upper: upper}
}

// Bounds collects every signature's and field's RelationBounds for one
// command (§4.4).
type Bounds struct {
	Sigs   map[*laminar.SigInfo]*RelationBounds
	Fields map[*laminar.FieldInfo]*RelationBounds
}

func newBounds() *Bounds {
	return &Bounds{
		Sigs:   make(map[*laminar.SigInfo]*RelationBounds),
		Fields: make(map[*laminar.FieldInfo]*RelationBounds),
	}
}
