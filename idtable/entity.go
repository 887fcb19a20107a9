package idtable

import "github.com/gogpu/spirvm/value"

// Variable is a module-level or local declared storage location: a
// POINTER-typed Type, a lazily materialised pointee Value, a storage
// class, an optional debug name, and a spec-constant flag (set when
// the variable's initial value is meant to be resolved from external
// configuration at load time rather than baked into the module).
type Variable struct {
	Name      string
	SpecConst bool
	Storage   value.StorageClass

	typ     *value.Type
	pointee value.Value
}

// NewVariable constructs a Variable of pointer type t (t.Base() must
// be BasePointer) targeting storage.
func NewVariable(name string, t *value.Type, storage value.StorageClass) *Variable {
	return &Variable{Name: name, typ: t, Storage: storage}
}

// Type returns the Variable's pointer Type.
func (va *Variable) Type() *value.Type { return va.typ }

// Pointee returns the materialised pointee Value, or nil if InitValue
// has not yet been called.
func (va *Variable) Pointee() value.Value { return va.pointee }

// SetPointee overwrites the pointee directly, used when a variable is
// bound from an external input document.
func (va *Variable) SetPointee(v value.Value) { va.pointee = v }

// InitValue dereferences the pointer type and materialises the
// pointee if it hasn't been already, then walks the resulting value
// tree marking every CoopMatrix found as unsized (its size is only
// known once a specific invocation calls EnforceSize on it).
func (va *Variable) InitValue(undef bool) value.Value {
	if va.pointee == nil {
		va.pointee = va.typ.Element().Construct(undef)
		va.pointee.RecursiveApply(func(v value.Value) bool {
			if cm, ok := v.(*value.CoopMatrix); ok {
				cm.SetUnsized()
			}
			return false
		})
	}
	return va.pointee
}

func (va *Variable) clone() *Variable {
	c := &Variable{Name: va.Name, SpecConst: va.SpecConst, Storage: va.Storage, typ: va.typ}
	if va.pointee != nil {
		c.pointee = va.pointee.Type().MustConstruct()
		_ = c.pointee.CopyFrom(va.pointee)
	}
	return c
}

var variableFieldNames = []string{"name", "value", "storage-class"}

// AsValue emits the external Variable form: {name?, value, storage-class}.
func (va *Variable) AsValue() value.Value {
	var elems []value.Value
	var names []string
	if va.Name != "" {
		elems = append(elems, value.NewStringValue(va.Name))
		names = append(names, variableFieldNames[0])
	}
	var v value.Value = value.NewStringValue("<uninitialized>")
	if va.pointee != nil {
		v = va.pointee
	}
	elems = append(elems, v, value.NewUint32(uint32(va.Storage)))
	names = append(names, variableFieldNames[1], variableFieldNames[2])
	return value.NewStructFromElements(elems, names)
}

// Function is a module-level function declaration: a debug name, its
// Function-base Type, and the InstList index its body begins at.
type Function struct {
	Name     string
	Location int

	typ *value.Type
}

// NewFunction constructs a Function of function type t, whose body
// begins at instruction index location.
func NewFunction(name string, t *value.Type, location int) *Function {
	return &Function{Name: name, Location: location, typ: t}
}

// Type returns the Function's function Type.
func (f *Function) Type() *value.Type { return f.typ }

var functionFieldNames = []string{"name", "types", "location"}

// AsValue emits the external Function form: {name?, types, location}.
func (f *Function) AsValue() value.Value {
	var elems []value.Value
	var names []string
	if f.Name != "" {
		elems = append(elems, value.NewStringValue(f.Name))
		names = append(names, functionFieldNames[0])
	}
	typeDescs := make([]value.Value, 0, 1+len(f.typ.Params()))
	typeDescs = append(typeDescs, value.NewStringValue(f.typ.Return().Base().String()))
	for _, p := range f.typ.Params() {
		typeDescs = append(typeDescs, value.NewStringValue(p.Base().String()))
	}
	elems = append(elems, value.NewArrayFromElements(typeDescs), value.NewUint32(uint32(f.Location)))
	names = append(names, functionFieldNames[1], functionFieldNames[2])
	return value.NewStructFromElements(elems, names)
}

// EntryPoint names a Function and the ids of the Variables forming its
// interface (both inputs and outputs), the set the executor binds
// external input Values into and reads output Values back out of.
type EntryPoint struct {
	Name         string
	FunctionID   uint32
	Interface    []uint32
	ExecModel    uint32
}

// NewEntryPoint constructs an EntryPoint.
func NewEntryPoint(name string, functionID uint32, execModel uint32, iface []uint32) *EntryPoint {
	return &EntryPoint{Name: name, FunctionID: functionID, ExecModel: execModel, Interface: append([]uint32(nil), iface...)}
}
