// Package il models the decoded instruction stream and metadata of a
// protected module, as handed over by an external bytecode loader.
package il

import "fmt"

// Code is the opcode category of a decoded instruction. Loaders collapse the
// short and long encodings of an opcode (ldloc.0, ldloc.s, ldloc) into one
// category.
type Code uint8

const (
	Other Code = iota
	Nop
	Ldloc
	Stloc
	LdcI4
	Ldstr
	Call
	Callvirt
	Newobj
	Stsfld
	Ldsfld
	Xor
	Add
	Mul
	Or
	Ret
)

var codeNames = map[Code]string{
	Other:    "other",
	Nop:      "nop",
	Ldloc:    "ldloc",
	Stloc:    "stloc",
	LdcI4:    "ldc.i4",
	Ldstr:    "ldstr",
	Call:     "call",
	Callvirt: "callvirt",
	Newobj:   "newobj",
	Stsfld:   "stsfld",
	Ldsfld:   "ldsfld",
	Xor:      "xor",
	Add:      "add",
	Mul:      "mul",
	Or:       "or",
	Ret:      "ret",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", uint8(c))
}

// IsCall reports whether the opcode invokes a method.
func (c Code) IsCall() bool {
	return c == Call || c == Callvirt
}

func ParseCode(s string) (Code, error) {
	for code, name := range codeNames {
		if name == s {
			return code, nil
		}
	}
	return Other, fmt.Errorf("invalid opcode: %s", s)
}
