// Package codec converts between the abstract structured form of a
// runtime value (nested Structs, Arrays, and Primitives with named
// fields) and (a) the Go document trees produced by YAML/JSON
// decoders, and (b) the concrete Image/Sampler/SampledImage/
// AccelStruct value kinds, which round-trip through fixed field-named
// Struct shapes.
package codec

import (
	"math"
	"sort"
	"strconv"

	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/value"
)

// Decode converts a Go document tree (the `any` shapes yaml.v3 and
// encoding/json produce: bool, int, int64, uint64, float64, float32,
// string, []any, map[string]any) into an abstract Value. Integers become Uint when
// non-negative and Int otherwise; floats become 32-bit Floats; maps
// become Structs with fields in sorted key order (YAML maps carry no
// order once decoded).
func Decode(doc any) (value.Value, error) {
	switch d := doc.(type) {
	case bool:
		return value.NewBoolValue(d), nil
	case int:
		return decodeInt(int64(d)), nil
	case int64:
		return decodeInt(d), nil
	case uint64:
		return value.NewUint32(uint32(d)), nil
	case float64:
		return value.NewFloat32(float32(d)), nil
	case float32:
		return value.NewFloat32(d), nil
	case string:
		return value.NewStringValue(d), nil
	case []any:
		if len(d) == 0 {
			return value.NewArray(0, value.NewUint(32)).MustConstruct(), nil
		}
		elems := make([]value.Value, len(d))
		for i, e := range d {
			v, err := Decode(e)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return value.NewArrayFromElements(elems), nil
	case map[string]any:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		elems := make([]value.Value, 0, len(keys))
		for _, k := range keys {
			v, err := Decode(d[k])
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return value.NewStructFromElements(elems, keys), nil
	case nil:
		return nil, ierr.NewShapeMismatch("cannot decode a null document node")
	default:
		return nil, ierr.NewShapeMismatch("cannot decode document node of type %T", doc)
	}
}

func decodeInt(i int64) value.Value {
	if i >= 0 {
		return value.NewUint32(uint32(i))
	}
	return value.NewInt32(int32(i))
}

// DecodeInto decodes doc and deep-copies the result into dst. Because
// the concrete value kinds accept their own external Struct forms in
// CopyFrom, this is how an input document binds an Image, Sampler,
// SampledImage, or AccelStruct as well as plain numeric trees.
func DecodeInto(doc any, dst value.Value) error {
	v, err := Decode(doc)
	if err != nil {
		return err
	}
	return dst.CopyFrom(coerce(v, dst))
}

// coerce re-types a freshly decoded numeric tree to match the
// destination's primitive bases, so a document literal `3` can bind a
// float or signed-int slot. Aggregates recurse; everything else passes
// through untouched.
func coerce(src value.Value, dst value.Value) value.Value {
	switch d := dst.(type) {
	case *value.Primitive:
		s, ok := src.(*value.Primitive)
		if !ok {
			return src
		}
		return coercePrimitive(s, d.Type())
	case *value.Array:
		s, ok := src.(*value.Array)
		if !ok || d.Len() == 0 && d.Type().Count() == 0 {
			return coerceRuntimeArray(src, d)
		}
		if s.Len() != d.Len() {
			return src
		}
		elems := make([]value.Value, s.Len())
		for i := 0; i < s.Len(); i++ {
			elems[i] = coerce(s.At(i), d.At(i))
		}
		return value.NewArrayFromElements(elems)
	default:
		return src
	}
}

// coerceRuntimeArray handles a destination runtime array with no
// elements yet: every source element is coerced against a prototype
// constructed from the destination's element type.
func coerceRuntimeArray(src value.Value, dst *value.Array) value.Value {
	s, ok := src.(*value.Array)
	if !ok || dst.Type().Element() == nil {
		return src
	}
	proto := dst.Type().Element().MustConstruct()
	elems := make([]value.Value, s.Len())
	for i := 0; i < s.Len(); i++ {
		elems[i] = coerce(s.At(i), proto)
	}
	if len(elems) == 0 {
		return src
	}
	return value.NewArrayFromElements(elems)
}

func coercePrimitive(src *value.Primitive, want *value.Type) *value.Primitive {
	if src.Type().Base() == want.Base() {
		return src
	}
	out := want.MustConstruct().(*value.Primitive)
	switch want.Base() {
	case value.BaseFloat:
		switch src.Type().Base() {
		case value.BaseUint:
			out.SetBits(math.Float32bits(float32(src.Uint())))
		case value.BaseInt:
			out.SetBits(math.Float32bits(float32(src.Int())))
		case value.BaseBool:
			if src.Bool() {
				out.SetBits(math.Float32bits(1))
			} else {
				out.SetBits(0)
			}
		default:
			out.SetBits(src.Bits())
		}
	case value.BaseInt:
		switch src.Type().Base() {
		case value.BaseFloat:
			out.SetBits(uint32(int32(src.Float())))
		default:
			out.SetBits(src.Bits())
		}
	case value.BaseUint:
		switch src.Type().Base() {
		case value.BaseFloat:
			out.SetBits(uint32(src.Float()))
		default:
			out.SetBits(src.Bits())
		}
	case value.BaseBool:
		if src.Bits() != 0 {
			out.SetBits(1)
		} else {
			out.SetBits(0)
		}
	default:
		out.SetBits(src.Bits())
	}
	return out
}

// Encode converts a Value back into a Go document tree suitable for a
// YAML/JSON encoder. Concrete value kinds are first projected through
// their external Struct forms.
func Encode(v value.Value) any {
	switch c := v.(type) {
	case *value.Primitive:
		switch c.Type().Base() {
		case value.BaseBool:
			return c.Bool()
		case value.BaseFloat:
			return float64(c.Float())
		case value.BaseInt:
			return int64(c.Int())
		default:
			return uint64(c.Uint())
		}
	case *value.String:
		return c.Get()
	case *value.CoopMatrix:
		return encodeAggregate(&c.Aggregate)
	case *value.Array:
		return encodeAggregate(&c.Aggregate)
	case *value.Struct:
		out := make(map[string]any, c.Len())
		names := c.Type().FieldNames()
		for i := 0; i < c.Len(); i++ {
			name := names[i]
			if name == "" {
				name = "field" + strconv.Itoa(i)
			}
			out[name] = Encode(c.At(i))
		}
		return out
	case *value.Image:
		return Encode(c.ToStruct())
	case *value.Sampler:
		return Encode(c.ToStruct())
	case *value.SampledImage:
		return Encode(c.ToStruct())
	case *value.AccelStruct:
		return Encode(c.ToStruct())
	default:
		return nil
	}
}

func encodeAggregate(a *value.Aggregate) any {
	out := make([]any, a.Len())
	for i := 0; i < a.Len(); i++ {
		out[i] = Encode(a.At(i))
	}
	return out
}
