// Package matcher recognizes the fixed instruction idioms the protector emits
// when it materializes keys and resource lookups.
package matcher

import "haruki-const-decrypter/il"

// Match is the result of matching a Pattern at Start. End is the index just
// past the last matched instruction.
type Match struct {
	Start  int
	End    int
	Values []uint32

	locals map[string]*il.Local
}

// Step matches the instruction at index i of s.
type Step func(s il.Stream, i int, m *Match) bool

// Pattern is a contiguous sequence of steps.
type Pattern []Step

// MatchAt tries the pattern at exactly index i.
func (p Pattern) MatchAt(s il.Stream, i int) (Match, bool) {
	if i < 0 || i+len(p) > s.Len() {
		return Match{}, false
	}
	m := Match{Start: i}
	for j, step := range p {
		if !step(s, i+j, &m) {
			return Match{}, false
		}
	}
	m.End = i + len(p)
	m.locals = nil
	return m, true
}

// Find returns the first match at or after start. There is no backtracking:
// the protector emits each idiom once per routine.
func (p Pattern) Find(s il.Stream, start int) (Match, bool) {
	for i := max(start, 0); i+len(p) <= s.Len(); i++ {
		if m, ok := p.MatchAt(s, i); ok {
			return m, true
		}
	}
	return Match{}, false
}

// Op matches any instruction with the given opcode.
func Op(op il.Code) Step {
	return func(s il.Stream, i int, _ *Match) bool {
		return s.Is(i, op)
	}
}

// Const matches a ldc.i4 and captures its operand.
func Const() Step {
	return func(s il.Stream, i int, m *Match) bool {
		v, ok := s.IntAt(i)
		if !ok {
			return false
		}
		m.Values = append(m.Values, uint32(v))
		return true
	}
}

// Ldloc matches a local load. A non-empty name binds the slot: every later
// step using the same name must reference the identical slot.
func Ldloc(name string) Step {
	return local(il.Ldloc, name)
}

// Stloc is the store counterpart of Ldloc.
func Stloc(name string) Step {
	return local(il.Stloc, name)
}

func local(op il.Code, name string) Step {
	return func(s il.Stream, i int, m *Match) bool {
		if !s.Is(i, op) {
			return false
		}
		if name == "" {
			return true
		}
		slot := s.LocalAt(i)
		if slot == nil {
			return false
		}
		if m.locals == nil {
			m.locals = make(map[string]*il.Local)
		}
		if bound, ok := m.locals[name]; ok {
			return bound == slot
		}
		m.locals[name] = slot
		return true
	}
}

// CallTo matches a call or callvirt of the named target.
func CallTo(fullName string) Step {
	return func(s il.Stream, i int, _ *Match) bool {
		in := s.At(i)
		return in != nil && in.Op.IsCall() && in.Method != nil && in.Method.FullName() == fullName
	}
}

// Is matches any instruction accepted by pred.
func Is(pred func(in *il.Instruction) bool) Step {
	return func(s il.Stream, i int, _ *Match) bool {
		in := s.At(i)
		return in != nil && pred(in)
	}
}
