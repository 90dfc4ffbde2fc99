package il

import (
	"errors"
	"fmt"
)

var ErrBlobNotFound = errors.New("signature blob not found")

type TypeAttributes uint32

const (
	TypeAbstract TypeAttributes = 0x00000080
	TypeSealed   TypeAttributes = 0x00000100
)

type MethodAttributes uint16

const (
	MethodCompilerControlled MethodAttributes = 0x0000
	MethodStatic             MethodAttributes = 0x0010
	MethodHideBySig          MethodAttributes = 0x0080
)

type MethodImplAttributes uint16

const (
	ImplNative    MethodImplAttributes = 0x0001
	ImplUnmanaged MethodImplAttributes = 0x0004
)

const ModuleTypeName = "<Module>"

type TypeDef struct {
	Token      uint32
	Namespace  string
	Name       string
	Attributes TypeAttributes
	Fields     []*FieldDef
	Methods    []*MethodDef
}

func (t *TypeDef) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// Field returns the field of t that ref points at, or nil.
func (t *TypeDef) Field(ref *FieldRef) *FieldDef {
	if ref == nil || ref.DeclaringType != t.FullName() {
		return nil
	}
	for _, f := range t.Fields {
		if f.Name == ref.Name && f.Type == ref.Type {
			return f
		}
	}
	return nil
}

type FieldDef struct {
	Token         uint32
	Name          string
	Type          string
	DeclaringType *TypeDef
}

type MethodDef struct {
	Token          uint32
	Name           string
	Attributes     MethodAttributes
	ImplAttributes MethodImplAttributes
	ReturnType     string
	Params         []string
	Locals         []*Local
	Body           []Instruction
	DeclaringType  *TypeDef
}

func (m *MethodDef) Ref() *MethodRef {
	decl := ""
	if m.DeclaringType != nil {
		decl = m.DeclaringType.FullName()
	}
	return &MethodRef{ReturnType: m.ReturnType, DeclaringType: decl, Name: m.Name, Params: m.Params}
}

func (m *MethodDef) FullName() string {
	return m.Ref().FullName()
}

func (m *MethodDef) Stream() Stream {
	return NewStream(m.Body)
}

func (m *MethodDef) IsStatic() bool {
	return m.Attributes&MethodStatic != 0
}

func (m *MethodDef) IsNative() bool {
	return m.ImplAttributes&ImplNative != 0
}

func (m *MethodDef) IsConstructor() bool {
	return m.Name == ".ctor" || m.Name == ".cctor"
}

// HasShape reports whether m returns ret and takes exactly params.
func (m *MethodDef) HasShape(ret string, params ...string) bool {
	return m.Ref().HasShape(ret, params...)
}

// WithBody returns a shallow copy of m that uses body instead of m.Body.
func (m *MethodDef) WithBody(body []Instruction) *MethodDef {
	c := *m
	c.Body = body
	return &c
}

// LocalTypes is the set of declared local variable types of a method.
type LocalTypes map[string]int

func NewLocalTypes(m *MethodDef) LocalTypes {
	types := make(LocalTypes)
	for _, l := range m.Locals {
		types[l.Type]++
	}
	return types
}

// All reports whether every one of types is declared at least once.
func (lt LocalTypes) All(types ...string) bool {
	for _, t := range types {
		if lt[t] == 0 {
			return false
		}
	}
	return true
}

type Resource struct {
	Name string
	Data []byte
}

// Module is the analysis context for one target binary. It is built once by
// a loader and never mutated afterwards.
type Module struct {
	Name      string
	Types     []*TypeDef
	Resources []*Resource
	Blobs     map[uint32][]byte

	methods map[string]*MethodDef
}

// NewModule links declaring types and indexes methods for call resolution.
func NewModule(name string, types []*TypeDef, resources []*Resource, blobs map[uint32][]byte) *Module {
	m := &Module{
		Name:      name,
		Types:     types,
		Resources: resources,
		Blobs:     blobs,
		methods:   make(map[string]*MethodDef),
	}
	for _, t := range types {
		for _, f := range t.Fields {
			f.DeclaringType = t
		}
		for _, md := range t.Methods {
			md.DeclaringType = t
			m.methods[md.FullName()] = md
		}
	}
	return m
}

// ModuleType returns the global <Module> type, or nil.
func (m *Module) ModuleType() *TypeDef {
	for _, t := range m.Types {
		if t.Name == ModuleTypeName && t.Namespace == "" {
			return t
		}
	}
	return nil
}

// TypeInitializer returns the static constructor of the <Module> type.
func (m *Module) TypeInitializer() *MethodDef {
	t := m.ModuleType()
	if t == nil {
		return nil
	}
	for _, md := range t.Methods {
		if md.Name == ".cctor" && md.IsStatic() {
			return md
		}
	}
	return nil
}

// ResolveMethod maps a call target to its definition inside this module.
func (m *Module) ResolveMethod(ref *MethodRef) *MethodDef {
	if ref == nil {
		return nil
	}
	return m.methods[ref.FullName()]
}

func (m *Module) Method(token uint32) *MethodDef {
	for _, md := range m.methods {
		if md.Token == token {
			return md
		}
	}
	return nil
}

func (m *Module) Resource(name string) *Resource {
	for _, r := range m.Resources {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// SignatureBlob returns the blob addressed by a metadata token.
func (m *Module) SignatureBlob(token uint32) ([]byte, error) {
	blob, ok := m.Blobs[token]
	if !ok {
		return nil, fmt.Errorf("token 0x%08X: %w", token, ErrBlobNotFound)
	}
	return blob, nil
}
