package vm

import (
	"math"

	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/spv"
	"github.com/gogpu/spirvm/value"
)

// GLSL.std.450 extended instruction numbers (the subset the
// interpreter implements).
const (
	glslRound       = 1
	glslRoundEven   = 2
	glslTrunc       = 3
	glslFAbs        = 4
	glslSAbs        = 5
	glslFSign       = 6
	glslSSign       = 7
	glslFloor       = 8
	glslCeil        = 9
	glslFract       = 10
	glslRadians     = 11
	glslDegrees     = 12
	glslSin         = 13
	glslCos         = 14
	glslTan         = 15
	glslAsin        = 16
	glslAcos        = 17
	glslAtan        = 18
	glslAtan2       = 25
	glslPow         = 26
	glslExp         = 27
	glslLog         = 28
	glslExp2        = 29
	glslLog2        = 30
	glslSqrt        = 31
	glslInverseSqrt = 32
	glslDeterminant = 33
	glslFMin        = 37
	glslUMin        = 38
	glslSMin        = 39
	glslFMax        = 40
	glslUMax        = 41
	glslSMax        = 42
	glslFClamp      = 43
	glslUClamp      = 44
	glslSClamp      = 45
	glslFMix        = 46
	glslStep        = 48
	glslSmoothStep  = 49
	glslFma         = 50
	glslLength      = 66
	glslDistance    = 67
	glslCross       = 68
	glslNormalize   = 69
	glslReflect     = 71
)

// opExtInst dispatches an extended-instruction-set call. Only
// GLSL.std.450 is recognized; the set id operand names the
// OpExtInstImport whose literal the load phase stashed as a String.
func (inv *Invocation) opExtInst(frame *Frame, inst spv.Instruction) error {
	setName, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	name, ok := setName.(*value.String)
	if !ok || name.Get() != "GLSL.std.450" {
		return ierr.NewUnsupportedFeature("extended instruction set %v is not supported", setName)
	}
	op := inst.Operand(1)
	arg := func(i int) uint32 { return inst.Operand(2 + i) }

	floatUn := func(f func(float32) float32) error {
		return inv.extUnary(frame, inst, arg(0), func(out, a *value.Primitive) error {
			setFloat(out, f(a.Float()))
			return nil
		})
	}
	floatBinF := func(f func(a, b float32) float32) error {
		return inv.extBinary(frame, inst, arg(0), arg(1), floatBin(f))
	}

	switch op {
	case glslRound:
		return floatUn(func(x float32) float32 { return float32(math.Round(float64(x))) })
	case glslRoundEven:
		return floatUn(func(x float32) float32 { return float32(math.RoundToEven(float64(x))) })
	case glslTrunc:
		return floatUn(func(x float32) float32 { return float32(math.Trunc(float64(x))) })
	case glslFAbs:
		return floatUn(func(x float32) float32 { return float32(math.Abs(float64(x))) })
	case glslSAbs:
		return inv.extUnary(frame, inst, arg(0), func(out, a *value.Primitive) error {
			v := a.Int()
			if v < 0 {
				v = -v
			}
			out.SetBits(uint32(v))
			return nil
		})
	case glslFSign:
		return floatUn(func(x float32) float32 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			default:
				return 0
			}
		})
	case glslSSign:
		return inv.extUnary(frame, inst, arg(0), func(out, a *value.Primitive) error {
			switch {
			case a.Int() > 0:
				out.SetBits(1)
			case a.Int() < 0:
				negOne := int32(-1)
				out.SetBits(uint32(negOne))
			default:
				out.SetBits(0)
			}
			return nil
		})
	case glslFloor:
		return floatUn(func(x float32) float32 { return float32(math.Floor(float64(x))) })
	case glslCeil:
		return floatUn(func(x float32) float32 { return float32(math.Ceil(float64(x))) })
	case glslFract:
		return floatUn(func(x float32) float32 { return x - float32(math.Floor(float64(x))) })
	case glslRadians:
		return floatUn(func(x float32) float32 { return x * math.Pi / 180 })
	case glslDegrees:
		return floatUn(func(x float32) float32 { return x * 180 / math.Pi })
	case glslSin:
		return floatUn(func(x float32) float32 { return float32(math.Sin(float64(x))) })
	case glslCos:
		return floatUn(func(x float32) float32 { return float32(math.Cos(float64(x))) })
	case glslTan:
		return floatUn(func(x float32) float32 { return float32(math.Tan(float64(x))) })
	case glslAsin:
		return floatUn(func(x float32) float32 { return float32(math.Asin(float64(x))) })
	case glslAcos:
		return floatUn(func(x float32) float32 { return float32(math.Acos(float64(x))) })
	case glslAtan:
		return floatUn(func(x float32) float32 { return float32(math.Atan(float64(x))) })
	case glslAtan2:
		return floatBinF(func(y, x float32) float32 { return float32(math.Atan2(float64(y), float64(x))) })
	case glslPow:
		return floatBinF(func(x, y float32) float32 { return float32(math.Pow(float64(x), float64(y))) })
	case glslExp:
		return floatUn(func(x float32) float32 { return float32(math.Exp(float64(x))) })
	case glslLog:
		return floatUn(func(x float32) float32 { return float32(math.Log(float64(x))) })
	case glslExp2:
		return floatUn(func(x float32) float32 { return float32(math.Exp2(float64(x))) })
	case glslLog2:
		return floatUn(func(x float32) float32 { return float32(math.Log2(float64(x))) })
	case glslSqrt:
		return floatUn(func(x float32) float32 { return float32(math.Sqrt(float64(x))) })
	case glslInverseSqrt:
		return floatUn(func(x float32) float32 { return float32(1 / math.Sqrt(float64(x))) })
	case glslDeterminant:
		return inv.extDeterminant(frame, inst, arg(0))
	case glslFMin:
		return floatBinF(func(a, b float32) float32 { return float32(math.Min(float64(a), float64(b))) })
	case glslUMin:
		return inv.extBinary(frame, inst, arg(0), arg(1), intBin(func(a, b uint32) uint32 { return min(a, b) }))
	case glslSMin:
		return inv.extBinary(frame, inst, arg(0), arg(1), intBin(func(a, b uint32) uint32 {
			return uint32(min(int32(a), int32(b)))
		}))
	case glslFMax:
		return floatBinF(func(a, b float32) float32 { return float32(math.Max(float64(a), float64(b))) })
	case glslUMax:
		return inv.extBinary(frame, inst, arg(0), arg(1), intBin(func(a, b uint32) uint32 { return max(a, b) }))
	case glslSMax:
		return inv.extBinary(frame, inst, arg(0), arg(1), intBin(func(a, b uint32) uint32 {
			return uint32(max(int32(a), int32(b)))
		}))
	case glslFClamp:
		return inv.extTernary(frame, inst, func(out, x, lo, hi *value.Primitive) error {
			setFloat(out, float32(math.Min(math.Max(float64(x.Float()), float64(lo.Float())), float64(hi.Float()))))
			return nil
		})
	case glslUClamp:
		return inv.extTernary(frame, inst, func(out, x, lo, hi *value.Primitive) error {
			out.SetBits(min(max(x.Uint(), lo.Uint()), hi.Uint()))
			return nil
		})
	case glslSClamp:
		return inv.extTernary(frame, inst, func(out, x, lo, hi *value.Primitive) error {
			out.SetBits(uint32(min(max(x.Int(), lo.Int()), hi.Int())))
			return nil
		})
	case glslFMix:
		return inv.extTernary(frame, inst, func(out, x, y, a *value.Primitive) error {
			setFloat(out, x.Float()*(1-a.Float())+y.Float()*a.Float())
			return nil
		})
	case glslStep:
		return floatBinF(func(edge, x float32) float32 {
			if x < edge {
				return 0
			}
			return 1
		})
	case glslSmoothStep:
		return inv.extTernary(frame, inst, func(out, e0, e1, x *value.Primitive) error {
			t := (x.Float() - e0.Float()) / (e1.Float() - e0.Float())
			t = float32(math.Min(math.Max(float64(t), 0), 1))
			setFloat(out, t*t*(3-2*t))
			return nil
		})
	case glslFma:
		return inv.extTernary(frame, inst, func(out, a, b, c *value.Primitive) error {
			setFloat(out, a.Float()*b.Float()+c.Float())
			return nil
		})
	case glslLength:
		return inv.extLength(frame, inst, arg(0))
	case glslDistance:
		return inv.extDistance(frame, inst, arg(0), arg(1))
	case glslCross:
		return inv.extCross(frame, inst, arg(0), arg(1))
	case glslNormalize:
		return inv.extNormalize(frame, inst, arg(0))
	case glslReflect:
		return inv.extReflect(frame, inst, arg(0), arg(1))
	default:
		return ierr.NewUnsupportedFeature("GLSL.std.450 instruction %d is not implemented", op)
	}
}

func (inv *Invocation) extUnary(frame *Frame, inst spv.Instruction, id uint32, f unFn) error {
	a, err := inv.val(frame, id)
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return applyUnary(res, a, f)
}

func (inv *Invocation) extBinary(frame *Frame, inst spv.Instruction, idA, idB uint32, f binFn) error {
	a, err := inv.val(frame, idA)
	if err != nil {
		return err
	}
	b, err := inv.val(frame, idB)
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return applyBinary(res, a, b, f)
}

type ternFn func(out, a, b, c *value.Primitive) error

func (inv *Invocation) extTernary(frame *Frame, inst spv.Instruction, f ternFn) error {
	a, err := inv.val(frame, inst.Operand(2))
	if err != nil {
		return err
	}
	b, err := inv.val(frame, inst.Operand(3))
	if err != nil {
		return err
	}
	c, err := inv.val(frame, inst.Operand(4))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return applyTernary(res, a, b, c, f)
}

func applyTernary(res, a, b, c value.Value, f ternFn) error {
	if r, ok := res.(*value.Primitive); ok {
		pa, ok1 := a.(*value.Primitive)
		pb, ok2 := b.(*value.Primitive)
		pc, ok3 := c.(*value.Primitive)
		if !ok1 || !ok2 || !ok3 {
			return ierr.NewShapeMismatch("expected scalar operands")
		}
		return f(r, pa, pb, pc)
	}
	out, err := elementsOf(res)
	if err != nil {
		return err
	}
	ae, err := elementsOf(a)
	if err != nil {
		return err
	}
	be, err := elementsOf(b)
	if err != nil {
		return err
	}
	ce, err := elementsOf(c)
	if err != nil {
		return err
	}
	if len(ae) != len(out) || len(be) != len(out) || len(ce) != len(out) {
		return ierr.NewShapeMismatch("operand component counts do not match the result's")
	}
	for i := range out {
		if err := applyTernary(out[i], ae[i], be[i], ce[i], f); err != nil {
			return err
		}
	}
	return nil
}

func (inv *Invocation) extDeterminant(frame *Frame, inst spv.Instruction, id uint32) error {
	m, err := inv.vector(frame, id)
	if err != nil {
		return err
	}
	d, err := value.Determinant(m)
	if err != nil {
		return err
	}
	return inv.storeScalarFloat(frame, inst, d)
}

func (inv *Invocation) extLength(frame *Frame, inst spv.Instruction, id uint32) error {
	v, err := inv.vector(frame, id)
	if err != nil {
		return err
	}
	d, err := value.Dot(v, v)
	if err != nil {
		return err
	}
	return inv.storeScalarFloat(frame, inst, float32(math.Sqrt(float64(d))))
}

func (inv *Invocation) extDistance(frame *Frame, inst spv.Instruction, idA, idB uint32) error {
	a, err := inv.vector(frame, idA)
	if err != nil {
		return err
	}
	b, err := inv.vector(frame, idB)
	if err != nil {
		return err
	}
	af, err := vectorFloats(a)
	if err != nil {
		return err
	}
	bf, err := vectorFloats(b)
	if err != nil {
		return err
	}
	if len(af) != len(bf) {
		return ierr.NewShapeMismatch("distance operands have different lengths")
	}
	var sum float64
	for i := range af {
		d := float64(af[i] - bf[i])
		sum += d * d
	}
	return inv.storeScalarFloat(frame, inst, float32(math.Sqrt(sum)))
}

func (inv *Invocation) extCross(frame *Frame, inst spv.Instruction, idA, idB uint32) error {
	a, err := inv.vector(frame, idA)
	if err != nil {
		return err
	}
	b, err := inv.vector(frame, idB)
	if err != nil {
		return err
	}
	af, err := vectorFloats(a)
	if err != nil {
		return err
	}
	bf, err := vectorFloats(b)
	if err != nil {
		return err
	}
	if len(af) != 3 || len(bf) != 3 {
		return ierr.NewShapeMismatch("cross product operands must be 3-component vectors")
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return storeVectorFloats(res, []float32{
		af[1]*bf[2] - af[2]*bf[1],
		af[2]*bf[0] - af[0]*bf[2],
		af[0]*bf[1] - af[1]*bf[0],
	})
}

func (inv *Invocation) extNormalize(frame *Frame, inst spv.Instruction, id uint32) error {
	v, err := inv.vector(frame, id)
	if err != nil {
		return err
	}
	vf, err := vectorFloats(v)
	if err != nil {
		return err
	}
	var sum float64
	for _, x := range vf {
		sum += float64(x) * float64(x)
	}
	length := float32(math.Sqrt(sum))
	out := make([]float32, len(vf))
	for i, x := range vf {
		out[i] = x / length
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return storeVectorFloats(res, out)
}

func (inv *Invocation) extReflect(frame *Frame, inst spv.Instruction, idI, idN uint32) error {
	iv, err := inv.vector(frame, idI)
	if err != nil {
		return err
	}
	nv, err := inv.vector(frame, idN)
	if err != nil {
		return err
	}
	d, err := value.Dot(nv, iv)
	if err != nil {
		return err
	}
	ifl, err := vectorFloats(iv)
	if err != nil {
		return err
	}
	nfl, err := vectorFloats(nv)
	if err != nil {
		return err
	}
	out := make([]float32, len(ifl))
	for i := range ifl {
		out[i] = ifl[i] - 2*d*nfl[i]
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return storeVectorFloats(res, out)
}

func (inv *Invocation) storeScalarFloat(frame *Frame, inst spv.Instruction, f float32) error {
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	p, ok := res.(*value.Primitive)
	if !ok {
		return ierr.NewShapeMismatch("result type is not a scalar")
	}
	setFloat(p, f)
	return nil
}
