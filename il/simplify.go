package il

// Simplifier normalizes a method body before pattern matching. It must not
// modify the method it is given.
type Simplifier interface {
	Simplify(m *MethodDef) *MethodDef
}

// Peephole drops nops and folds constant arithmetic on adjacent ldc.i4
// operands, which is enough to expose idioms hidden behind the protector's
// constant splitting.
type Peephole struct{}

func (Peephole) Simplify(m *MethodDef) *MethodDef {
	body := make([]Instruction, 0, len(m.Body))
	for _, in := range m.Body {
		if in.Op == Nop {
			continue
		}
		body = append(body, in)
		for fold(&body) {
		}
	}
	return m.WithBody(body)
}

func fold(body *[]Instruction) bool {
	b := *body
	n := len(b)
	if n < 3 || b[n-3].Op != LdcI4 || b[n-2].Op != LdcI4 {
		return false
	}
	x, y := uint32(b[n-3].Int), uint32(b[n-2].Int)
	var v uint32
	switch b[n-1].Op {
	case Xor:
		v = x ^ y
	case Add:
		v = x + y
	case Mul:
		v = x * y
	case Or:
		v = x | y
	default:
		return false
	}
	b[n-3] = Instruction{Op: LdcI4, Int: int32(v)}
	*body = b[:n-2]
	return true
}

// NopSimplifier returns methods unchanged.
type NopSimplifier struct{}

func (NopSimplifier) Simplify(m *MethodDef) *MethodDef {
	return m
}
