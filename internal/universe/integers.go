package universe

// IntegerFactory maps two's-complement integer values to their atoms and
// back, for a fixed bit width (§4.6).
type IntegerFactory struct {
	BitWidth int
	byValue  map[int64]*Atom
}

func newIntegerFactory(bitWidth int) *IntegerFactory {
	return &IntegerFactory{BitWidth: bitWidth, byValue: make(map[int64]*Atom)}
}

// Min is the smallest representable value, -2^(bw-1).
func (f *IntegerFactory) Min() int64 { return -(int64(1) << uint(f.BitWidth-1)) }

// Max is the largest representable value, 2^(bw-1)-1.
func (f *IntegerFactory) Max() int64 { return (int64(1) << uint(f.BitWidth-1)) - 1 }

// Atom returns the atom representing v, if v is in range.
func (f *IntegerFactory) Atom(v int64) (*Atom, bool) {
	a, ok := f.byValue[v]
	return a, ok
}

// InRange reports whether v fits in BitWidth bits, two's complement.
func (f *IntegerFactory) InRange(v int64) bool {
	return v >= f.Min() && v <= f.Max()
}

func (f *IntegerFactory) register(a *Atom) { f.byValue[a.Value] = a }
