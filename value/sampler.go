package value

import "github.com/gogpu/spirvm/ierr"

// Sampler carries an LOD hint used by sampling opcodes.
type Sampler struct {
	typ         *Type
	defaultLod  uint32
}

func newSampler(t *Type) *Sampler { return &Sampler{typ: t} }

// NewSamplerValue constructs a Sampler with the given default LOD.
func NewSamplerValue(defaultLod uint32) *Sampler {
	return &Sampler{typ: NewSampler(), defaultLod: defaultLod}
}

func (s *Sampler) Type() *Type          { return s.typ }
func (s *Sampler) ImplicitLod() uint32  { return s.defaultLod }
func (s *Sampler) SetImplicitLod(v uint32) { s.defaultLod = v }

func (s *Sampler) CopyFrom(other Value) error {
	if str, ok := other.(*Struct); ok {
		return s.CopyFromStruct(str)
	}
	o, ok := other.(*Sampler)
	if !ok {
		return ierr.NewShapeMismatch("cannot copy sampler from %T", other)
	}
	s.defaultLod = o.defaultLod
	return nil
}

func (s *Sampler) CopyReinterp(other Value) error { return s.CopyFrom(other) }

func (s *Sampler) Equals(other Value) bool {
	o, ok := other.(*Sampler)
	return ok && s.defaultLod == o.defaultLod
}

func (s *Sampler) RecursiveApply(fn func(Value) bool) { fn(s) }

// samplerFieldNames is the fixed, ordered external-form field list (§6/§4.9).
var samplerFieldNames = []string{"lod"}

// ToStruct produces the external Sampler form: {lod}.
func (s *Sampler) ToStruct() *Struct {
	return NewStructFromElements([]Value{NewUint32(s.defaultLod)}, samplerFieldNames)
}

// CopyFromStruct populates the Sampler from its external Struct form.
func (s *Sampler) CopyFromStruct(str *Struct) error {
	lodField := fieldByName(str, samplerFieldNames, 0)
	if lodField == nil {
		return ierr.NewShapeMismatch("sampler struct missing field %q", samplerFieldNames[0])
	}
	lod, ok := lodField.(*Primitive)
	if !ok || lod.typ.base != BaseUint {
		return ierr.NewShapeMismatch("sampler field %q must be a uint", samplerFieldNames[0])
	}
	s.defaultLod = lod.Uint()
	return nil
}

// fieldByName looks up the field named names[idx] anywhere in str,
// returning nil when absent. Matching by name rather than position
// tolerates documents whose decoder did not preserve map key order.
func fieldByName(str *Struct, names []string, idx int) Value {
	want := names[idx]
	for i, n := range str.Type().FieldNames() {
		if n == want {
			return str.At(i)
		}
	}
	return nil
}
