package value

import "github.com/gogpu/spirvm/ierr"

// Image stores a packed uint32 pixel buffer plus the shape metadata
// needed to address it: dimensions, mipmap count, and component
// layout. Reads accept (x, y, z, lod) and return an all-zero texel for
// out-of-bounds coordinates (the one place the interpreter recovers
// locally instead of raising); writes accept integer (x, y, z) and
// return whether the write landed in bounds.
//
// The buffer holds raw 32-bit words; the numeric interpretation
// (float/uint/int) of a texel is a property of how the caller
// reinterprets it; Image itself is agnostic, mirroring how little the
// original interpreter's Image class assumes about pixel format.
type Image struct {
	typ *Type

	width, height, depth uint32
	mipmaps              uint32
	comps                Components

	data []uint32

	// Ref is an optional path/identifier carried through the external
	// form for round-tripping; the interpreter never reads image files
	// itself (that is front-end territory, out of the core's scope).
	Ref string
}

func newImage(t *Type) *Image {
	return &Image{typ: t, mipmaps: t.Mipmaps(), comps: t.Comps()}
}

// NewImageValue constructs an Image with explicit dimensions and data.
func NewImageValue(t *Type, width, height, depth, mipmaps uint32, comps Components, data []uint32) *Image {
	return &Image{typ: t, width: width, height: height, depth: depth, mipmaps: mipmaps, comps: comps, data: data}
}

func (im *Image) Type() *Type     { return im.typ }
func (im *Image) Dim() ImageDim   { return im.typ.Dim() }
func (im *Image) Mipmaps() uint32 { return im.mipmaps }
func (im *Image) Comps() Components { return im.comps }

// Size returns (width, height, depth, arrayElements) at the given LOD
// level (0 = most detailed). Array elements are not currently
// supported and are always reported as 1. Dimensions beyond what
// Dim() specifies are reported as 1 rather than left undefined.
func (im *Image) Size(lod uint32) [4]uint32 {
	shrink := func(v uint32) uint32 {
		for i := uint32(0); i < lod; i++ {
			if v <= 1 {
				return 1
			}
			v /= 2
		}
		if v == 0 {
			return 1
		}
		return v
	}
	w, h, d := shrink(im.width), uint32(1), uint32(1)
	switch im.typ.Dim() {
	case Dim2D, DimCube:
		h = shrink(im.height)
	case Dim3D:
		h = shrink(im.height)
		d = shrink(im.depth)
	}
	return [4]uint32{w, h, d, 1}
}

func (im *Image) outOfBoundsTexel() *Array {
	elems := make([]Value, im.comps.Count)
	for i := range elems {
		elems[i] = NewUint32(0)
	}
	return NewArrayFromElements(elems)
}

func (im *Image) pixelIndex(x, y, z int, lod uint32) (int, bool) {
	size := im.Size(lod)
	if x < 0 || y < 0 || z < 0 || uint32(x) >= size[0] || uint32(y) >= size[1] || uint32(z) >= size[2] {
		return 0, false
	}
	idx := (uint32(z)*size[1]+uint32(y))*size[0] + uint32(x)
	return int(idx) * int(im.comps.Count), true
}

// Read fetches the texel at (x, y, z) for the given LOD, returning an
// Array of im.Comps().Count raw uint32 components. Coordinates (and
// lod) are supplied as floats because sampling opcodes compute them
// from interpolated vectors; they are truncated toward zero here.
// Out-of-bounds coordinates return an all-zero texel.
func (im *Image) Read(x, y, z, lod float32) *Array {
	base, ok := im.pixelIndex(int(x), int(y), int(z), uint32(lod))
	if !ok || base+int(im.comps.Count) > len(im.data) {
		return im.outOfBoundsTexel()
	}
	elems := make([]Value, im.comps.Count)
	for i := range elems {
		elems[i] = NewUint32(im.data[base+i])
	}
	return NewArrayFromElements(elems)
}

// Write stores texel (an Array of raw uint32/int32/float32-bit
// components) at integer coordinates (x, y, z) in the base mipmap.
// Returns false (no write performed) for out-of-bounds coordinates.
func (im *Image) Write(x, y, z int, texel *Array) bool {
	base, ok := im.pixelIndex(x, y, z, 0)
	if !ok {
		return false
	}
	if base+texel.Len() > len(im.data) {
		grown := make([]uint32, base+texel.Len())
		copy(grown, im.data)
		im.data = grown
	}
	for i := 0; i < texel.Len(); i++ {
		p, ok := texel.At(i).(*Primitive)
		if !ok {
			return false
		}
		im.data[base+i] = p.Bits()
	}
	return true
}

// ExtractCoords splits a coordinate Value (an Array of up to 4 floats)
// into (x, y, z, w) per dim, optionally dividing by the last component
// for projective ("Proj"-suffixed) sampling opcodes.
func ExtractCoords(coords Value, dim ImageDim, proj bool) (x, y, z, w float32, err error) {
	arr, ok := coords.(*Array)
	if !ok {
		return 0, 0, 0, 0, ierr.NewShapeMismatch("image coordinates must be an array, got %T", coords)
	}
	vals := make([]float32, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		p, ok := arr.At(i).(*Primitive)
		if !ok {
			return 0, 0, 0, 0, ierr.NewShapeMismatch("image coordinate component %d is not a primitive", i)
		}
		vals[i] = p.Float()
	}
	get := func(i int) float32 {
		if i < len(vals) {
			return vals[i]
		}
		return 0
	}
	x, y, z, w = get(0), get(1), get(2), get(3)
	if proj {
		divisor := vals[len(vals)-1]
		if divisor != 0 {
			x, y, z = x/divisor, y/divisor, z/divisor
		}
	}
	return x, y, z, w, nil
}

// Decompose splits val into an unsigned integer base and the
// fractional ratio toward the next integer of larger magnitude, e.g.
// Decompose(3.4) == (3, 0.4).
func Decompose(val float32) (uint32, float32) {
	base := uint32(val)
	return base, val - float32(base)
}

func (im *Image) CopyFrom(other Value) error {
	if s, ok := other.(*Struct); ok {
		return im.CopyFromStruct(s)
	}
	o, ok := other.(*Image)
	if !ok {
		return ierr.NewShapeMismatch("cannot copy image from %T", other)
	}
	im.width, im.height, im.depth = o.width, o.height, o.depth
	im.mipmaps = o.mipmaps
	im.comps = o.comps
	im.data = append([]uint32(nil), o.data...)
	im.Ref = o.Ref
	return nil
}

func (im *Image) CopyReinterp(other Value) error { return im.CopyFrom(other) }

func (im *Image) Equals(other Value) bool {
	o, ok := other.(*Image)
	if !ok || !im.typ.Equals(o.typ) {
		return false
	}
	if im.width != o.width || im.height != o.height || im.depth != o.depth || im.mipmaps != o.mipmaps || im.comps != o.comps {
		return false
	}
	if len(im.data) != len(o.data) {
		return false
	}
	for i := range im.data {
		if im.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

func (im *Image) RecursiveApply(fn func(Value) bool) { fn(im) }

var imageFieldNames = []string{"ref", "dim", "mipmaps", "comps", "data"}

func componentsToWord(c Components) uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24
}

func componentsFromWord(w uint32) Components {
	c := Components{R: uint8(w), G: uint8(w >> 8), B: uint8(w >> 16), A: uint8(w >> 24)}
	for _, v := range []uint8{c.R, c.G, c.B, c.A} {
		if v != 0 {
			c.Count++
		}
	}
	return c
}

// ToStruct produces the external Image form: {ref, dim, mipmaps, comps, data}.
func (im *Image) ToStruct() *Struct {
	dimWords := []Value{NewUint32(im.width)}
	switch im.typ.Dim() {
	case Dim2D, DimCube:
		dimWords = append(dimWords, NewUint32(im.height))
	case Dim3D:
		dimWords = append(dimWords, NewUint32(im.height), NewUint32(im.depth))
	}
	var dimVal Value
	if len(dimWords) == 1 {
		dimVal = dimWords[0]
	} else {
		dimVal = NewArrayFromElements(dimWords)
	}
	dataElems := make([]Value, len(im.data))
	for i, w := range im.data {
		dataElems[i] = NewUint32(w)
	}
	var dataVal Value
	if len(dataElems) == 0 {
		dataVal = NewArray(0, NewUint(32)).MustConstruct()
	} else {
		dataVal = NewArrayFromElements(dataElems)
	}
	return NewStructFromElements([]Value{
		NewStringValue(im.Ref),
		dimVal,
		NewUint32(im.mipmaps),
		NewUint32(componentsToWord(im.comps)),
		dataVal,
	}, imageFieldNames)
}

// CopyFromStruct populates the Image from its external Struct form.
func (im *Image) CopyFromStruct(str *Struct) error {
	ref := fieldByName(str, imageFieldNames, 0)
	if s, ok := ref.(*String); ok {
		im.Ref = s.Get()
	}

	dimField := fieldByName(str, imageFieldNames, 1)
	if dimField == nil {
		return ierr.NewShapeMismatch("image struct missing field %q", imageFieldNames[1])
	}
	// Dimensions the document omits (height of a 1D image, depth of a
	// 2D one) are 1, matching how explicitly constructed images carry
	// them.
	im.width, im.height, im.depth = 1, 1, 1
	switch d := dimField.(type) {
	case *Primitive:
		im.width = d.Uint()
	case *Array:
		if d.Len() > 0 {
			im.width = d.At(0).(*Primitive).Uint()
		}
		if d.Len() > 1 {
			im.height = d.At(1).(*Primitive).Uint()
		}
		if d.Len() > 2 {
			im.depth = d.At(2).(*Primitive).Uint()
		}
	default:
		return ierr.NewShapeMismatch("image field %q has unsupported shape", imageFieldNames[1])
	}

	if mm := fieldByName(str, imageFieldNames, 2); mm != nil {
		if p, ok := mm.(*Primitive); ok {
			im.mipmaps = p.Uint()
		}
	}
	if cm := fieldByName(str, imageFieldNames, 3); cm != nil {
		if p, ok := cm.(*Primitive); ok {
			im.comps = componentsFromWord(p.Uint())
		}
	}
	dataField := fieldByName(str, imageFieldNames, 4)
	if dataField == nil {
		return ierr.NewShapeMismatch("image struct missing field %q", imageFieldNames[4])
	}
	arr, ok := dataField.(*Array)
	if !ok {
		return ierr.NewShapeMismatch("image field %q must be an array", imageFieldNames[4])
	}
	im.data = make([]uint32, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		p, ok := arr.At(i).(*Primitive)
		if !ok {
			return ierr.NewShapeMismatch("image data element %d is not numeric", i)
		}
		im.data[i] = p.Bits()
	}
	return nil
}
