package value

import (
	"math"

	"github.com/gogpu/spirvm/ierr"
)

// undefPattern is the dummy bit pattern non-float primitives are filled
// with when constructed "undefined" (sign-extended to stay representable
// across widths, and deliberately not zero or NaN so a stray
// undefined read is easy to spot while debugging); undefined floats are
// filled with NaN instead.
const undefPattern uint32 = 0x1ABC2DEF

// Primitive is a 32-bit word interpreted as float/uint/int/bool per
// its Type. Wider precisions (16-bit, 64-bit) are emulated by
// promoting to 32-bit and tracking the original width in the Type.
type Primitive struct {
	typ  *Type
	bits uint32 // the raw 32-bit word, reinterpreted per typ.Base()
}

func newPrimitive(t *Type, undef bool) *Primitive {
	p := &Primitive{typ: t}
	if !undef {
		return p // zero value, per OpConstantNull
	}
	if t.base == BaseFloat {
		p.bits = math.Float32bits(float32(math.NaN()))
	} else {
		p.bits = undefPattern
	}
	return p
}

// NewBoolValue constructs a Bool Primitive.
func NewBoolValue(b bool) *Primitive {
	p := &Primitive{typ: NewBool()}
	if b {
		p.bits = 1
	}
	return p
}

// NewFloat32 constructs a 32-bit Float Primitive.
func NewFloat32(f float32) *Primitive {
	return &Primitive{typ: NewFloat(32), bits: math.Float32bits(f)}
}

// NewUint32 constructs a 32-bit Uint Primitive.
func NewUint32(u uint32) *Primitive {
	return &Primitive{typ: NewUint(32), bits: u}
}

// NewInt32 constructs a 32-bit Int Primitive.
func NewInt32(i int32) *Primitive {
	return &Primitive{typ: NewInt(32), bits: uint32(i)}
}

func (p *Primitive) Type() *Type { return p.typ }

// Bits returns the raw 32-bit word.
func (p *Primitive) Bits() uint32 { return p.bits }

// SetBits overwrites the raw 32-bit word without changing the Type.
func (p *Primitive) SetBits(bits uint32) { p.bits = bits }

// Float returns the word reinterpreted as a 32-bit float.
func (p *Primitive) Float() float32 { return math.Float32frombits(p.bits) }

// Uint returns the word reinterpreted as a 32-bit unsigned integer.
func (p *Primitive) Uint() uint32 { return p.bits }

// Int returns the word reinterpreted as a 32-bit signed integer.
func (p *Primitive) Int() int32 { return int32(p.bits) }

// Bool returns the word reinterpreted as a boolean (nonzero is true).
func (p *Primitive) Bool() bool { return p.bits != 0 }

// Cast changes the Primitive's Type without changing its underlying
// 32-bit word. Primitive is the sole Value that allows this mutation.
func (p *Primitive) Cast(t *Type) {
	if !IsPrimitive(t.base) {
		panic("Cast: target type is not primitive")
	}
	p.typ = t
}

func (p *Primitive) CopyFrom(other Value) error {
	o, ok := other.(*Primitive)
	if !ok || o.typ.base != p.typ.base {
		return ierr.NewShapeMismatch("cannot copy %s primitive from %T", p.typ.base, other)
	}
	p.bits = o.bits
	return nil
}

func (p *Primitive) CopyReinterp(other Value) error {
	o, ok := other.(*Primitive)
	if !ok {
		return ierr.NewShapeMismatch("cannot reinterp-copy primitive from non-primitive %T", other)
	}
	p.bits = o.bits
	return nil
}

func (p *Primitive) Equals(other Value) bool {
	o, ok := other.(*Primitive)
	if !ok || !p.typ.Equals(o.typ) {
		return false
	}
	switch p.typ.base {
	case BaseFloat:
		return EqFloat(p.Float(), o.Float(), 6)
	default:
		return p.bits == o.bits
	}
}

func (p *Primitive) RecursiveApply(fn func(Value) bool) { fn(p) }

// FPConvertTypeToEmu promotes a bit pattern of the given precision
// (16 or 32) into the equivalent 32-bit float bit pattern the
// interpreter emulates all floats at. 64-bit and other precisions are
// not supported and are passed through bit-for-bit with a soft warning
// left to the caller (the conversion itself does not have a warn sink).
func FPConvertTypeToEmu(input uint32, precision uint) (uint32, error) {
	if precision == 32 {
		return input, nil
	}
	if precision != 16 {
		return input, ierr.NewUnsupportedFeature("float precision %d is not supported", precision)
	}
	sign := ((input >> 15) & 1) << 31
	mantissa := (input & 0b1111111111) << 13
	exponent := (input >> 10) & 0b11111
	// The exponent acts like a signed int within the fp bitfield:
	// 10001 -> 10000001, 01110 -> 01111110.
	exponent = ((exponent & 0b10000) << 3) |
		func() uint32 {
			if exponent&0b01000 > 0 {
				return 0b01111000
			}
			return 0
		}() |
		(exponent & 0b00111)
	return sign | (exponent << 23) | mantissa, nil
}
