// Package classifier recognizes the constants protection and decides which
// protector revision produced it.
package classifier

import (
	"errors"
	"fmt"

	"haruki-const-decrypter/il"
	"haruki-const-decrypter/matcher"
	"haruki-const-decrypter/utils"
	harukiLogger "haruki-const-decrypter/utils/logger"
	"haruki-const-decrypter/version"
)

// ErrNotDetected is a negative detection result, not a failure.
var ErrNotDetected = errors.New("constants protection not detected")

var logger = harukiLogger.NewLogger("ConstantsClassifier", "INFO", nil)

var requiredInitializerLocals = []string{
	il.TypeAssembly,
	il.TypeDeflate,
	il.TypeByteArray,
	il.TypeInt32,
}

// Sentinels of the 16-bit keystream generator inlined by normal mode.
var normalModeIntegers = []uint32{0x100, 0x10000, 0xFFFF}

const holderAttributes = il.TypeAbstract | il.TypeSealed

const decryptAttributes = il.MethodStatic | il.MethodHideBySig | il.MethodCompilerControlled

// Detection is the fingerprint of one protected module.
type Detection struct {
	Version       version.Version
	Initializer   *il.MethodDef
	CacheField    *il.FieldDef
	StreamField   *il.FieldDef
	DecryptMethod *il.MethodDef
	ResourceName  string
	NativeMethod  *il.MethodDef
}

// Detect fingerprints module. The initializer is normalized with simplifier
// before field probes run. A module that is not protected yields
// ErrNotDetected.
func Detect(module *il.Module, simplifier il.Simplifier) (*Detection, error) {
	cctor := module.TypeInitializer()
	if cctor == nil {
		return nil, fmt.Errorf("no module initializer: %w", ErrNotDetected)
	}
	if !il.NewLocalTypes(cctor).All(requiredInitializerLocals...) {
		return nil, fmt.Errorf("initializer locals do not match: %w", ErrNotDetected)
	}
	if simplifier == nil {
		simplifier = il.NopSimplifier{}
	}
	cctor = simplifier.Simplify(cctor)

	d := &Detection{Initializer: cctor}
	if d.CacheField = findCacheField(cctor); d.CacheField == nil {
		return nil, fmt.Errorf("no constants cache field: %w", ErrNotDetected)
	}
	if d.StreamField = findStreamField(cctor); d.StreamField == nil {
		return nil, fmt.Errorf("no resource stream field: %w", ErrNotDetected)
	}
	if d.DecryptMethod = findDecryptMethod(module); d.DecryptMethod == nil {
		return nil, fmt.Errorf("no decrypt routine: %w", ErrNotDetected)
	}
	d.ResourceName = findResourceName(cctor)

	epoch := detectEpoch(d.DecryptMethod, d.ResourceName)
	mode := version.Dynamic
	if hasAllIntegers(d.DecryptMethod.Stream(), normalModeIntegers) {
		mode = version.Normal
	} else if d.NativeMethod = findNativeMethod(module, d.DecryptMethod); d.NativeMethod != nil {
		mode = version.Native
	}

	v, err := version.Compose(epoch, mode)
	if err != nil {
		return nil, err
	}
	d.Version = v
	logger.Debugf("detected %s in %s (decrypt routine %s)", v, module.Name, d.DecryptMethod.FullName())
	return d, nil
}

func detectEpoch(decrypt *il.MethodDef, resourceName string) version.Epoch {
	s := decrypt.Stream()
	switch {
	case resourceName != "":
		return version.R75056
	case matcher.CallsMethod(s, il.ModuleGetScopeName):
		return version.R74816
	case matcher.CallsMethod(s, il.AssemblyGetModule):
		return version.R74788
	default:
		return version.R74708
	}
}

func hasAllIntegers(s il.Stream, values []uint32) bool {
	for _, v := range values {
		if !matcher.HasInteger(s, v) {
			return false
		}
	}
	return true
}

var cacheFieldPattern = matcher.Pattern{
	matcher.Is(func(in *il.Instruction) bool {
		return in.Op == il.Newobj && in.Method != nil && in.Method.FullName() == il.ConstsCacheCtor
	}),
	matcher.Op(il.Stsfld),
}

var streamFieldPattern = matcher.Pattern{
	matcher.Is(func(in *il.Instruction) bool {
		return (in.Op == il.Newobj || in.Op.IsCall()) && in.Method != nil
	}),
	matcher.Is(func(in *il.Instruction) bool {
		return in.Op == il.Stsfld && in.Field != nil && in.Field.Type == il.TypeStream
	}),
}

func findCacheField(cctor *il.MethodDef) *il.FieldDef {
	return findStoredField(cctor, cacheFieldPattern, il.TypeConstsCache)
}

func findStreamField(cctor *il.MethodDef) *il.FieldDef {
	return findStoredField(cctor, streamFieldPattern, il.TypeStream)
}

// findStoredField returns the first field of the initializer's own type that
// p stores into and whose type is fieldType.
func findStoredField(cctor *il.MethodDef, p matcher.Pattern, fieldType string) *il.FieldDef {
	s := cctor.Stream()
	for i := 0; ; i++ {
		m, ok := p.Find(s, i)
		if !ok {
			return nil
		}
		i = m.Start
		field := cctor.DeclaringType.Field(s.At(m.End - 1).Field)
		if field != nil && field.Type == fieldType {
			return field
		}
	}
}

// findDecryptMethod returns the first decrypt-shaped method on a holder type.
func findDecryptMethod(module *il.Module) *il.MethodDef {
	for _, t := range HolderTypes(module) {
		for _, m := range t.Methods {
			if IsDecryptShape(m) {
				return m
			}
		}
	}
	return nil
}

// HolderTypes lists every type that is abstract and sealed with nothing but
// decrypt routines declared on it.
func HolderTypes(module *il.Module) []*il.TypeDef {
	var types []*il.TypeDef
	for _, t := range module.Types {
		if t.Attributes != holderAttributes || !checkMethods(t.Methods) {
			continue
		}
		types = append(types, t)
	}
	return types
}

func checkMethods(methods []*il.MethodDef) bool {
	for _, m := range methods {
		if m.IsConstructor() || m.Attributes != decryptAttributes || !IsDecryptShape(m) {
			return false
		}
	}
	return len(methods) > 0
}

// IsDecryptShape reports whether m is "object m(uint32, uint32)".
func IsDecryptShape(m *il.MethodDef) bool {
	return m.HasShape(il.TypeObject, il.TypeUInt32, il.TypeUInt32)
}

// findResourceName decodes the literal handed to BitConverter.GetBytes(int):
// its little-endian bytes, read as UTF-8, are the resource name.
func findResourceName(cctor *il.MethodDef) string {
	v, ok := matcher.ConstBeforeCall(cctor.Stream(), il.BitConverterGetBytes)
	if !ok {
		return ""
	}
	return utils.DecodeUTF8([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

// findNativeMethod returns the static native int(int) helper called by the
// decrypt routine, if any.
func findNativeMethod(module *il.Module, decrypt *il.MethodDef) *il.MethodDef {
	for _, in := range decrypt.Body {
		if in.Op != il.Call {
			continue
		}
		m := module.ResolveMethod(in.Method)
		if m == nil || !m.IsStatic() || !m.IsNative() {
			continue
		}
		if !m.HasShape(il.TypeInt32, il.TypeInt32) {
			continue
		}
		return m
	}
	return nil
}

// FindResourceName returns the resource the initializer opens by name, for
// revisions that do not derive the name from a literal.
func FindResourceName(cctor *il.MethodDef) (string, bool) {
	return matcher.StringBeforeCall(cctor.Stream(), il.GetManifestResourceStream)
}
