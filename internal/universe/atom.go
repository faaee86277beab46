// Package universe builds the fixed universe of atoms and the lower/upper
// bounds on every signature and field for one run/check command (§4.4).
package universe

import (
	"fmt"

	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
)

// Atom is one element of the universe: either a signature atom
// (Sig$0, Sig$1, ...) or an integer atom (Int$v).
type Atom struct {
	Name  string
	Index int32 // position in Universe.Atoms; also the 1-based SAT-ish index minus one
	Sig   *laminar.SigInfo // nil for integer atoms
	IsInt bool
	Value int64 // meaningful iff IsInt
}

func (a *Atom) String() string { return a.Name }

// Universe is the full fixed set of atoms a command's bounds range over,
// plus the per-signature membership computed by union-of-descendants.
type Universe struct {
	Atoms []*Atom
	bySig map[*laminar.SigInfo][]*Atom
	Ints  *IntegerFactory // nil if the model never references integers
}

// Size is |U|.
func (u *Universe) Size() int { return len(u.Atoms) }

// AtomsOf returns sig's atoms: its own allocated atoms (if concrete) unioned
// with every descendant's, per §4.4's "identity fixes double counting" rule.
func (u *Universe) AtomsOf(sig *laminar.SigInfo) []*Atom {
	return u.bySig[sig]
}

// IntAtoms returns every integer atom, in ascending value order, or nil if
// the model never allocated any.
func (u *Universe) IntAtoms() []*Atom {
	if u.Ints == nil {
		return nil
	}

	atoms := make([]*Atom, 0, 1<<uint(u.Ints.BitWidth))
	for _, a := range u.Atoms {
		if a.IsInt {
			atoms = append(atoms, a)
		}
	}

	return atoms
}

func newAtom(name string, idx int32, sig *laminar.SigInfo) *Atom {
	return &Atom{Name: name, Index: idx, Sig: sig}
}

func sigAtomName(sigName string, i int) string {
	return fmt.Sprintf("%s$%d", sigName, i)
}

func intAtomName(v int64) string {
	return fmt.Sprintf("Int$%d", v)
}
