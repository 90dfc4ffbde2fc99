package il

import (
	"fmt"
	"strings"
)

// Local is a declared local variable of a method body. Two instructions refer
// to the same slot only if they hold the same *Local.
type Local struct {
	Index int
	Type  string
}

// MethodRef is a normalized call target.
type MethodRef struct {
	ReturnType    string
	DeclaringType string
	Name          string
	Params        []string
}

// FullName renders the reference as "Ret Decl::Name(P1,P2)".
func (r *MethodRef) FullName() string {
	return fmt.Sprintf("%s %s::%s(%s)", r.ReturnType, r.DeclaringType, r.Name, strings.Join(r.Params, ","))
}

// HasShape reports whether the reference returns ret and takes exactly params.
func (r *MethodRef) HasShape(ret string, params ...string) bool {
	if r.ReturnType != ret || len(r.Params) != len(params) {
		return false
	}
	for i, p := range params {
		if r.Params[i] != p {
			return false
		}
	}
	return true
}

type FieldRef struct {
	Type          string
	DeclaringType string
	Name          string
}

func (r *FieldRef) FullName() string {
	return fmt.Sprintf("%s %s::%s", r.Type, r.DeclaringType, r.Name)
}

// Instruction is one decoded instruction. Only the operand matching Op is set.
type Instruction struct {
	Op     Code
	Int    int32
	Local  *Local
	Method *MethodRef
	Field  *FieldRef
	Str    string
}

func (in *Instruction) String() string {
	switch {
	case in.Op == LdcI4:
		return fmt.Sprintf("%s 0x%08X", in.Op, uint32(in.Int))
	case in.Local != nil:
		return fmt.Sprintf("%s V_%d", in.Op, in.Local.Index)
	case in.Method != nil:
		return fmt.Sprintf("%s %s", in.Op, in.Method.FullName())
	case in.Field != nil:
		return fmt.Sprintf("%s %s", in.Op, in.Field.FullName())
	case in.Op == Ldstr:
		return fmt.Sprintf("%s %q", in.Op, in.Str)
	default:
		return in.Op.String()
	}
}
