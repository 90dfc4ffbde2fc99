package matcher

import "haruki-const-decrypter/il"

var (
	// XorStore is "stloc L; ldc K; ldloc L; xor; stloc".
	XorStore = Pattern{Stloc("x"), Const(), Ldloc("x"), Op(il.Xor), Op(il.Stloc)}

	// MixStore is "ldloc; ldloc; add; ldc K; mul; stloc".
	MixStore = Pattern{Op(il.Ldloc), Op(il.Ldloc), Op(il.Add), Const(), Op(il.Mul), Op(il.Stloc)}

	// OrXorAdd is "ldloc; or; ldc K; xor; add; stloc".
	OrXorAdd = Pattern{Op(il.Ldloc), Op(il.Or), Const(), Op(il.Xor), Op(il.Add), Op(il.Stloc)}

	// PairedConstStore is "ldc K1; stloc A; ldc K2; stloc B" with A and B
	// distinct slots.
	PairedConstStore = Pattern{Const(), Stloc("a"), Const(), distinctStloc("a")}

	// ConstCall is a protected constant load "ldc a0; ldc a1; call".
	ConstCall = Pattern{Const(), Const(), Is(func(in *il.Instruction) bool {
		return in.Op == il.Call && in.Method != nil
	})}
)

func distinctStloc(other string) Step {
	return func(s il.Stream, i int, m *Match) bool {
		if !s.IsStloc(i) {
			return false
		}
		slot := s.LocalAt(i)
		return slot != nil && m.locals[other] != slot
	}
}

// FindConst runs p from the start of s and returns its first captured value.
func FindConst(s il.Stream, p Pattern) (uint32, bool) {
	m, ok := p.Find(s, 0)
	if !ok || len(m.Values) == 0 {
		return 0, false
	}
	return m.Values[0], true
}

// FindConstPair runs p from the start of s and returns its first two
// captured values.
func FindConstPair(s il.Stream, p Pattern) (uint32, uint32, bool) {
	m, ok := p.Find(s, 0)
	if !ok || len(m.Values) < 2 {
		return 0, 0, false
	}
	return m.Values[0], m.Values[1], true
}

// PostCallConstant finds a call to fullName directly followed by a ldc.i4
// and returns that constant. Calls not followed by a constant are skipped.
func PostCallConstant(s il.Stream, fullName string) (uint32, bool) {
	for i := 0; i < s.Len(); i++ {
		i = s.FindCall(i, fullName)
		if i < 0 || i+1 >= s.Len() {
			break
		}
		if v, ok := s.IntAt(i + 1); ok {
			return uint32(v), true
		}
	}
	return 0, false
}

// ConstBeforeCall finds a call to fullName directly preceded by a ldc.i4 and
// returns that constant.
func ConstBeforeCall(s il.Stream, fullName string) (uint32, bool) {
	for i := 0; i < s.Len(); i++ {
		i = s.FindCall(i, fullName)
		if i < 0 {
			break
		}
		if v, ok := s.IntAt(i - 1); ok {
			return uint32(v), true
		}
	}
	return 0, false
}

// StringBeforeCall finds a call to fullName directly preceded by a ldstr and
// returns the string operand.
func StringBeforeCall(s il.Stream, fullName string) (string, bool) {
	for i := 0; i < s.Len(); i++ {
		i = s.FindCall(i, fullName)
		if i < 0 {
			break
		}
		if s.Is(i-1, il.Ldstr) {
			return s.At(i - 1).Str, true
		}
	}
	return "", false
}

// HasInteger reports whether s loads the constant v anywhere.
func HasInteger(s il.Stream, v uint32) bool {
	for i := 0; i < s.Len(); i++ {
		if c, ok := s.IntAt(i); ok && uint32(c) == v {
			return true
		}
	}
	return false
}

// CallsMethod reports whether s calls fullName anywhere.
func CallsMethod(s il.Stream, fullName string) bool {
	return s.FindCall(0, fullName) >= 0
}
