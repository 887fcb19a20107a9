package codec

import (
	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/value"
)

// Extraction helpers shared by the front end and the concrete value
// codecs: each pulls one shape out of an abstract Value and fails with
// a ShapeMismatch naming what was expected.

// ExtractUint reads v as an unsigned 32-bit integer.
func ExtractUint(v value.Value) (uint32, error) {
	p, ok := v.(*value.Primitive)
	if !ok {
		return 0, ierr.NewShapeMismatch("expected a uint, got %T", v)
	}
	switch p.Type().Base() {
	case value.BaseUint:
		return p.Uint(), nil
	case value.BaseInt:
		if p.Int() < 0 {
			return 0, ierr.NewShapeMismatch("expected a non-negative integer, got %d", p.Int())
		}
		return uint32(p.Int()), nil
	default:
		return 0, ierr.NewShapeMismatch("expected a uint, got a %s", p.Type().Base())
	}
}

// ExtractString reads v as a string.
func ExtractString(v value.Value) (string, error) {
	s, ok := v.(*value.String)
	if !ok {
		return "", ierr.NewShapeMismatch("expected a string, got %T", v)
	}
	return s.Get(), nil
}

// ExtractArray reads v as an Array.
func ExtractArray(v value.Value) (*value.Array, error) {
	a, ok := v.(*value.Array)
	if !ok {
		return nil, ierr.NewShapeMismatch("expected an array, got %T", v)
	}
	return a, nil
}

// ExtractStruct reads v as a Struct.
func ExtractStruct(v value.Value) (*value.Struct, error) {
	s, ok := v.(*value.Struct)
	if !ok {
		return nil, ierr.NewShapeMismatch("expected a struct, got %T", v)
	}
	return s, nil
}

// ExtractVec reads v as an n-component float vector.
func ExtractVec(v value.Value, n int) ([]float32, error) {
	a, err := ExtractArray(v)
	if err != nil {
		return nil, err
	}
	if a.Len() != n {
		return nil, ierr.NewShapeMismatch("expected a %d-component vector, got %d components", n, a.Len())
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		p, ok := a.At(i).(*value.Primitive)
		if !ok {
			return nil, ierr.NewShapeMismatch("vector component %d is not numeric", i)
		}
		out[i] = p.Float()
	}
	return out, nil
}

// ExtractUvec reads v as an n-component unsigned integer vector.
func ExtractUvec(v value.Value, n int) ([]uint32, error) {
	a, err := ExtractArray(v)
	if err != nil {
		return nil, err
	}
	if a.Len() != n {
		return nil, ierr.NewShapeMismatch("expected a %d-component uvec, got %d components", n, a.Len())
	}
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		u, err := ExtractUint(a.At(i))
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}
