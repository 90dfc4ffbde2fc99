// Package loader reads decoded module dumps produced by an external bytecode
// reader and turns them into il.Module values.
package loader

import (
	"fmt"

	"haruki-const-decrypter/il"
	"haruki-const-decrypter/utils"
)

type ModuleDump struct {
	Name      string         `json:"name" msgpack:"name"`
	Types     []TypeDump     `json:"types" msgpack:"types"`
	Resources []ResourceDump `json:"resources,omitempty" msgpack:"resources,omitempty"`
	Blobs     []BlobDump     `json:"blobs,omitempty" msgpack:"blobs,omitempty"`
}

type TypeDump struct {
	Token      uint32       `json:"token" msgpack:"token"`
	Namespace  string       `json:"namespace,omitempty" msgpack:"namespace,omitempty"`
	Name       string       `json:"name" msgpack:"name"`
	Attributes uint32       `json:"attributes" msgpack:"attributes"`
	Fields     []FieldDump  `json:"fields,omitempty" msgpack:"fields,omitempty"`
	Methods    []MethodDump `json:"methods,omitempty" msgpack:"methods,omitempty"`
}

type FieldDump struct {
	Token uint32 `json:"token" msgpack:"token"`
	Name  string `json:"name" msgpack:"name"`
	Type  string `json:"type" msgpack:"type"`
}

type MethodDump struct {
	Token          uint32            `json:"token" msgpack:"token"`
	Name           string            `json:"name" msgpack:"name"`
	Attributes     uint16            `json:"attributes" msgpack:"attributes"`
	ImplAttributes uint16            `json:"impl_attributes,omitempty" msgpack:"impl_attributes,omitempty"`
	ReturnType     string            `json:"return_type" msgpack:"return_type"`
	Params         []string          `json:"params,omitempty" msgpack:"params,omitempty"`
	Locals         []string          `json:"locals,omitempty" msgpack:"locals,omitempty"`
	Body           []InstructionDump `json:"body,omitempty" msgpack:"body,omitempty"`
}

// InstructionDump carries one operand at most. Local indexes the method's
// locals; indexes past the declared list are undeclared slots. StrUTF16 is
// the raw #US heap entry and wins over Str when present.
type InstructionDump struct {
	Op       string `json:"op" msgpack:"op"`
	Int      int32  `json:"int,omitempty" msgpack:"int,omitempty"`
	Local    *int   `json:"local,omitempty" msgpack:"local,omitempty"`
	Method   string `json:"method,omitempty" msgpack:"method,omitempty"`
	Field    string `json:"field,omitempty" msgpack:"field,omitempty"`
	Str      string `json:"str,omitempty" msgpack:"str,omitempty"`
	StrUTF16 []byte `json:"str_utf16,omitempty" msgpack:"str_utf16,omitempty"`
}

type ResourceDump struct {
	Name string `json:"name" msgpack:"name"`
	Data []byte `json:"data" msgpack:"data"`
}

type BlobDump struct {
	Token uint32 `json:"token" msgpack:"token"`
	Data  []byte `json:"data" msgpack:"data"`
}

// ToModule validates the dump and links it into a module.
func (d *ModuleDump) ToModule() (*il.Module, error) {
	types := make([]*il.TypeDef, 0, len(d.Types))
	for _, td := range d.Types {
		t := &il.TypeDef{
			Token:      td.Token,
			Namespace:  td.Namespace,
			Name:       td.Name,
			Attributes: il.TypeAttributes(td.Attributes),
		}
		for _, fd := range td.Fields {
			t.Fields = append(t.Fields, &il.FieldDef{Token: fd.Token, Name: fd.Name, Type: fd.Type})
		}
		for _, md := range td.Methods {
			m, err := md.toMethod()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", t.FullName(), err)
			}
			t.Methods = append(t.Methods, m)
		}
		types = append(types, t)
	}
	var resources []*il.Resource
	for _, r := range d.Resources {
		resources = append(resources, &il.Resource{Name: r.Name, Data: r.Data})
	}
	blobs := make(map[uint32][]byte, len(d.Blobs))
	for _, b := range d.Blobs {
		blobs[b.Token] = b.Data
	}
	return il.NewModule(d.Name, types, resources, blobs), nil
}

func (md *MethodDump) toMethod() (*il.MethodDef, error) {
	m := &il.MethodDef{
		Token:          md.Token,
		Name:           md.Name,
		Attributes:     il.MethodAttributes(md.Attributes),
		ImplAttributes: il.MethodImplAttributes(md.ImplAttributes),
		ReturnType:     md.ReturnType,
		Params:         md.Params,
	}
	slots := make(map[int]*il.Local)
	for i, typ := range md.Locals {
		l := &il.Local{Index: i, Type: typ}
		m.Locals = append(m.Locals, l)
		slots[i] = l
	}
	for n, id := range md.Body {
		in, err := id.toInstruction(slots)
		if err != nil {
			return nil, fmt.Errorf("%s instruction %d: %w", md.Name, n, err)
		}
		m.Body = append(m.Body, in)
	}
	return m, nil
}

func (id *InstructionDump) toInstruction(slots map[int]*il.Local) (il.Instruction, error) {
	op, err := il.ParseCode(id.Op)
	if err != nil {
		return il.Instruction{}, err
	}
	in := il.Instruction{Op: op, Int: id.Int, Str: id.Str}
	if id.Local == nil && (op == il.Ldloc || op == il.Stloc) {
		return il.Instruction{}, fmt.Errorf("%s without local index", op)
	}
	if id.Local != nil {
		if *id.Local < 0 {
			return il.Instruction{}, fmt.Errorf("negative local index %d", *id.Local)
		}
		l, ok := slots[*id.Local]
		if !ok {
			l = &il.Local{Index: *id.Local}
			slots[*id.Local] = l
		}
		in.Local = l
	}
	if id.Method != "" {
		if in.Method, err = il.ParseMethodRef(id.Method); err != nil {
			return il.Instruction{}, err
		}
	}
	if id.Field != "" {
		if in.Field, err = il.ParseFieldRef(id.Field); err != nil {
			return il.Instruction{}, err
		}
	}
	if len(id.StrUTF16) > 0 {
		if in.Str, err = utils.DecodeUTF16LE(id.StrUTF16); err != nil {
			return il.Instruction{}, err
		}
	}
	return in, nil
}

// FromModule dumps module. Undeclared local slots keep their index.
func FromModule(module *il.Module) *ModuleDump {
	d := &ModuleDump{Name: module.Name}
	for _, t := range module.Types {
		td := TypeDump{Token: t.Token, Namespace: t.Namespace, Name: t.Name, Attributes: uint32(t.Attributes)}
		for _, f := range t.Fields {
			td.Fields = append(td.Fields, FieldDump{Token: f.Token, Name: f.Name, Type: f.Type})
		}
		for _, m := range t.Methods {
			td.Methods = append(td.Methods, dumpMethod(m))
		}
		d.Types = append(d.Types, td)
	}
	for _, r := range module.Resources {
		d.Resources = append(d.Resources, ResourceDump{Name: r.Name, Data: r.Data})
	}
	for token, data := range module.Blobs {
		d.Blobs = append(d.Blobs, BlobDump{Token: token, Data: data})
	}
	return d
}

func dumpMethod(m *il.MethodDef) MethodDump {
	md := MethodDump{
		Token:          m.Token,
		Name:           m.Name,
		Attributes:     uint16(m.Attributes),
		ImplAttributes: uint16(m.ImplAttributes),
		ReturnType:     m.ReturnType,
		Params:         m.Params,
	}
	declared := make(map[*il.Local]int, len(m.Locals))
	for i, l := range m.Locals {
		md.Locals = append(md.Locals, l.Type)
		declared[l] = i
	}
	next := len(m.Locals)
	for _, in := range m.Body {
		id := InstructionDump{Op: in.Op.String(), Int: in.Int, Str: in.Str}
		if in.Local != nil {
			idx, ok := declared[in.Local]
			if !ok {
				idx = next
				declared[in.Local] = idx
				next++
			}
			id.Local = &idx
		}
		if in.Method != nil {
			id.Method = in.Method.FullName()
		}
		if in.Field != nil {
			id.Field = in.Field.FullName()
		}
		md.Body = append(md.Body, id)
	}
	return md
}
