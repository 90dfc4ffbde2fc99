package il

// Stream is a read-only, randomly indexable view over one method body.
type Stream struct {
	instrs []Instruction
}

func NewStream(instrs []Instruction) Stream {
	return Stream{instrs: instrs}
}

func (s Stream) Len() int {
	return len(s.instrs)
}

// At returns the instruction at i, or nil when i is out of range.
func (s Stream) At(i int) *Instruction {
	if i < 0 || i >= len(s.instrs) {
		return nil
	}
	return &s.instrs[i]
}

func (s Stream) Is(i int, op Code) bool {
	in := s.At(i)
	return in != nil && in.Op == op
}

func (s Stream) IsLdloc(i int) bool  { return s.Is(i, Ldloc) }
func (s Stream) IsStloc(i int) bool  { return s.Is(i, Stloc) }
func (s Stream) IsLdcI4(i int) bool  { return s.Is(i, LdcI4) }
func (s Stream) IsXor(i int) bool    { return s.Is(i, Xor) }
func (s Stream) IsAdd(i int) bool    { return s.Is(i, Add) }
func (s Stream) IsMul(i int) bool    { return s.Is(i, Mul) }
func (s Stream) IsCallAt(i int) bool { in := s.At(i); return in != nil && in.Op.IsCall() }

// LocalAt returns the local slot referenced by a ldloc/stloc at i.
func (s Stream) LocalAt(i int) *Local {
	in := s.At(i)
	if in == nil || (in.Op != Ldloc && in.Op != Stloc) {
		return nil
	}
	return in.Local
}

// IntAt returns the operand of a ldc.i4 at i.
func (s Stream) IntAt(i int) (int32, bool) {
	in := s.At(i)
	if in == nil || in.Op != LdcI4 {
		return 0, false
	}
	return in.Int, true
}

// FindCall returns the index of the first call or callvirt at or after start
// whose target full name is fullName, or -1.
func (s Stream) FindCall(start int, fullName string) int {
	if start < 0 {
		start = 0
	}
	for i := start; i < len(s.instrs); i++ {
		in := &s.instrs[i]
		if !in.Op.IsCall() || in.Method == nil {
			continue
		}
		if in.Method.FullName() == fullName {
			return i
		}
	}
	return -1
}
