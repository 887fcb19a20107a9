package value

import "github.com/gogpu/spirvm/ierr"

// SampledImage pairs a Sampler with the Image it samples, the runtime
// value of SPIR-V's OpTypeSampledImage.
type SampledImage struct {
	typ     *Type
	sampler Sampler
	image   Image
}

func newSampledImage(t *Type) *SampledImage {
	return &SampledImage{typ: t, image: *newImage(t.Element())}
}

// NewSampledImageValue constructs a SampledImage from an existing
// sampler and image pair.
func NewSampledImageValue(sampler *Sampler, image *Image) *SampledImage {
	return &SampledImage{typ: NewSampledImage(image.Type()), sampler: *sampler, image: *image}
}

func (si *SampledImage) Type() *Type      { return si.typ }
func (si *SampledImage) Image() *Image    { return &si.image }
func (si *SampledImage) Sampler() *Sampler { return &si.sampler }

// ImplicitLod returns the wrapped sampler's default LOD.
func (si *SampledImage) ImplicitLod() uint32 { return si.sampler.ImplicitLod() }

func (si *SampledImage) CopyFrom(other Value) error {
	if s, ok := other.(*Struct); ok {
		return si.CopyFromStruct(s)
	}
	o, ok := other.(*SampledImage)
	if !ok {
		return ierr.NewShapeMismatch("cannot copy sampled-image from %T", other)
	}
	if err := si.sampler.CopyFrom(&o.sampler); err != nil {
		return err
	}
	return si.image.CopyFrom(&o.image)
}

func (si *SampledImage) CopyReinterp(other Value) error { return si.CopyFrom(other) }

func (si *SampledImage) Equals(other Value) bool {
	o, ok := other.(*SampledImage)
	if !ok {
		return false
	}
	return si.sampler.Equals(&o.sampler) && si.image.Equals(&o.image)
}

func (si *SampledImage) RecursiveApply(fn func(Value) bool) { fn(si) }

var sampledImageFieldNames = []string{"sampler", "image"}

// ToStruct produces the external SampledImage form: {sampler, image}.
func (si *SampledImage) ToStruct() *Struct {
	return NewStructFromElements([]Value{si.sampler.ToStruct(), si.image.ToStruct()}, sampledImageFieldNames)
}

// CopyFromStruct populates the SampledImage from its external Struct form.
func (si *SampledImage) CopyFromStruct(str *Struct) error {
	samplerField := fieldByName(str, sampledImageFieldNames, 0)
	imageField := fieldByName(str, sampledImageFieldNames, 1)
	if samplerField == nil || imageField == nil {
		return ierr.NewShapeMismatch("sampled-image struct missing %q/%q fields", sampledImageFieldNames[0], sampledImageFieldNames[1])
	}
	samplerStruct, ok := samplerField.(*Struct)
	if !ok {
		return ierr.NewShapeMismatch("sampled-image field %q must be a struct", sampledImageFieldNames[0])
	}
	if err := si.sampler.CopyFromStruct(samplerStruct); err != nil {
		return err
	}
	imageStruct, ok := imageField.(*Struct)
	if !ok {
		return ierr.NewShapeMismatch("sampled-image field %q must be a struct", sampledImageFieldNames[1])
	}
	return si.image.CopyFromStruct(imageStruct)
}
