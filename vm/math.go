package vm

import (
	"math"
	"math/bits"

	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/spv"
	"github.com/gogpu/spirvm/value"
)

type binFn func(out, a, b *value.Primitive) error
type unFn func(out, a *value.Primitive) error

// applyBinary applies f componentwise: scalar against scalar, or
// elementwise across equally shaped aggregates (arbitrarily nested, so
// matrix-by-matrix addition falls out of the same recursion).
func applyBinary(res, a, b value.Value, f binFn) error {
	switch r := res.(type) {
	case *value.Primitive:
		pa, ok1 := a.(*value.Primitive)
		pb, ok2 := b.(*value.Primitive)
		if !ok1 || !ok2 {
			return ierr.NewShapeMismatch("expected scalar operands, got %T and %T", a, b)
		}
		return f(r, pa, pb)
	case *value.Array:
		return applyBinaryElems(r.Elements(), a, b, f)
	case *value.CoopMatrix:
		return applyBinaryElems(r.Elements(), a, b, f)
	default:
		return ierr.NewShapeMismatch("cannot apply a numeric operation to a %T", res)
	}
}

func applyBinaryElems(out []value.Value, a, b value.Value, f binFn) error {
	ae, err := elementsOf(a)
	if err != nil {
		return err
	}
	be, err := elementsOf(b)
	if err != nil {
		return err
	}
	if len(ae) != len(out) || len(be) != len(out) {
		return ierr.NewShapeMismatch("operand component counts %d/%d do not match result's %d", len(ae), len(be), len(out))
	}
	for i := range out {
		if err := applyBinary(out[i], ae[i], be[i], f); err != nil {
			return err
		}
	}
	return nil
}

func applyUnary(res, a value.Value, f unFn) error {
	switch r := res.(type) {
	case *value.Primitive:
		pa, ok := a.(*value.Primitive)
		if !ok {
			return ierr.NewShapeMismatch("expected a scalar operand, got %T", a)
		}
		return f(r, pa)
	case *value.Array:
		ae, err := elementsOf(a)
		if err != nil {
			return err
		}
		if len(ae) != r.Len() {
			return ierr.NewShapeMismatch("operand component count %d does not match result's %d", len(ae), r.Len())
		}
		for i := 0; i < r.Len(); i++ {
			if err := applyUnary(r.At(i), ae[i], f); err != nil {
				return err
			}
		}
		return nil
	case *value.CoopMatrix:
		return applyUnary(&r.Array, a, f)
	default:
		return ierr.NewShapeMismatch("cannot apply a numeric operation to a %T", res)
	}
}

func elementsOf(v value.Value) ([]value.Value, error) {
	switch c := v.(type) {
	case *value.Array:
		return c.Elements(), nil
	case *value.CoopMatrix:
		return c.Elements(), nil
	case *value.Struct:
		return c.Elements(), nil
	default:
		return nil, ierr.NewShapeMismatch("expected an aggregate, got %T", v)
	}
}

func (inv *Invocation) binaryOp(frame *Frame, inst spv.Instruction, f binFn) error {
	a, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	b, err := inv.val(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return applyBinary(res, a, b, f)
}

func (inv *Invocation) unaryOp(frame *Frame, inst spv.Instruction, f unFn) error {
	a, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return applyUnary(res, a, f)
}

func setFloat(out *value.Primitive, f float32)  { out.SetBits(math.Float32bits(f)) }
func setBool(out *value.Primitive, b bool) {
	if b {
		out.SetBits(1)
	} else {
		out.SetBits(0)
	}
}

func floatBin(op func(a, b float32) float32) binFn {
	return func(out, a, b *value.Primitive) error {
		setFloat(out, op(a.Float(), b.Float()))
		return nil
	}
}

func intBin(op func(a, b uint32) uint32) binFn {
	return func(out, a, b *value.Primitive) error {
		out.SetBits(op(a.Bits(), b.Bits()))
		return nil
	}
}

func cmpBin(op func(a, b *value.Primitive) bool) binFn {
	return func(out, a, b *value.Primitive) error {
		setBool(out, op(a, b))
		return nil
	}
}

// dispatchMath handles the arithmetic, logical, comparison, bitwise,
// and conversion opcodes (the remainder of the dispatch table).
func (inv *Invocation) dispatchMath(frame *Frame, inst spv.Instruction) error {
	switch inst.Op {
	case spv.OpSNegate:
		return inv.unaryOp(frame, inst, func(out, a *value.Primitive) error {
			out.SetBits(uint32(-a.Int()))
			return nil
		})
	case spv.OpFNegate:
		return inv.unaryOp(frame, inst, func(out, a *value.Primitive) error {
			setFloat(out, -a.Float())
			return nil
		})
	case spv.OpIAdd:
		return inv.binaryOp(frame, inst, intBin(func(a, b uint32) uint32 { return a + b }))
	case spv.OpISub:
		return inv.binaryOp(frame, inst, intBin(func(a, b uint32) uint32 { return a - b }))
	case spv.OpIMul:
		return inv.binaryOp(frame, inst, intBin(func(a, b uint32) uint32 { return a * b }))
	case spv.OpFAdd:
		return inv.binaryOp(frame, inst, floatBin(func(a, b float32) float32 { return a + b }))
	case spv.OpFSub:
		return inv.binaryOp(frame, inst, floatBin(func(a, b float32) float32 { return a - b }))
	case spv.OpFMul:
		return inv.binaryOp(frame, inst, floatBin(func(a, b float32) float32 { return a * b }))
	case spv.OpFDiv:
		return inv.binaryOp(frame, inst, floatBin(func(a, b float32) float32 { return a / b }))
	case spv.OpUDiv:
		return inv.binaryOp(frame, inst, inv.intDiv(func(a, b uint32) uint32 { return a / b }))
	case spv.OpSDiv:
		return inv.binaryOp(frame, inst, inv.intDiv(func(a, b uint32) uint32 {
			return uint32(int32(a) / int32(b))
		}))
	case spv.OpUMod:
		return inv.binaryOp(frame, inst, inv.intDiv(func(a, b uint32) uint32 { return a % b }))
	case spv.OpSRem:
		return inv.binaryOp(frame, inst, inv.intDiv(func(a, b uint32) uint32 {
			return uint32(int32(a) % int32(b))
		}))
	case spv.OpSMod:
		return inv.binaryOp(frame, inst, inv.intDiv(func(a, b uint32) uint32 {
			m := int32(a) % int32(b)
			if m != 0 && (m < 0) != (int32(b) < 0) {
				m += int32(b)
			}
			return uint32(m)
		}))
	case spv.OpFRem:
		return inv.binaryOp(frame, inst, floatBin(func(a, b float32) float32 {
			return float32(math.Mod(float64(a), float64(b)))
		}))
	case spv.OpFMod:
		return inv.binaryOp(frame, inst, floatBin(func(a, b float32) float32 {
			m := float32(math.Mod(float64(a), float64(b)))
			if m != 0 && (m < 0) != (b < 0) {
				m += b
			}
			return m
		}))

	case spv.OpDot:
		return inv.opDot(frame, inst)
	case spv.OpVectorTimesScalar:
		return inv.opVectorTimesScalar(frame, inst)
	case spv.OpMatrixTimesScalar:
		return inv.opMatrixTimesScalar(frame, inst)
	case spv.OpVectorTimesMatrix:
		return inv.opVectorTimesMatrix(frame, inst)
	case spv.OpMatrixTimesVector:
		return inv.opMatrixTimesVector(frame, inst)
	case spv.OpMatrixTimesMatrix:
		return inv.opMatrixTimesMatrix(frame, inst)
	case spv.OpOuterProduct:
		return inv.opOuterProduct(frame, inst)

	case spv.OpIAddCarry:
		return inv.extendedOp(frame, inst, func(a, b uint32) (uint32, uint32) { return value.UAdd(a, b) })
	case spv.OpISubBorrow:
		return inv.extendedOp(frame, inst, func(a, b uint32) (uint32, uint32) { return value.USub(a, b) })
	case spv.OpUMulExtended:
		return inv.extendedOp(frame, inst, func(a, b uint32) (uint32, uint32) { return value.UMul(a, b) })
	case spv.OpSMulExtended:
		return inv.extendedOp(frame, inst, func(a, b uint32) (uint32, uint32) {
			return value.SMul(int32(a), int32(b))
		})

	case spv.OpAny:
		return inv.boolReduce(frame, inst, func(acc, x bool) bool { return acc || x }, false)
	case spv.OpAll:
		return inv.boolReduce(frame, inst, func(acc, x bool) bool { return acc && x }, true)
	case spv.OpIsNan:
		return inv.unaryOp(frame, inst, func(out, a *value.Primitive) error {
			setBool(out, math.IsNaN(float64(a.Float())))
			return nil
		})
	case spv.OpIsInf:
		return inv.unaryOp(frame, inst, func(out, a *value.Primitive) error {
			setBool(out, math.IsInf(float64(a.Float()), 0))
			return nil
		})

	case spv.OpLogicalEqual:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Bool() == b.Bool() }))
	case spv.OpLogicalNotEqual:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Bool() != b.Bool() }))
	case spv.OpLogicalOr:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Bool() || b.Bool() }))
	case spv.OpLogicalAnd:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Bool() && b.Bool() }))
	case spv.OpLogicalNot:
		return inv.unaryOp(frame, inst, func(out, a *value.Primitive) error {
			setBool(out, !a.Bool())
			return nil
		})
	case spv.OpSelect:
		return inv.opSelect(frame, inst)

	case spv.OpIEqual:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Bits() == b.Bits() }))
	case spv.OpINotEqual:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Bits() != b.Bits() }))
	case spv.OpUGreaterThan:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Uint() > b.Uint() }))
	case spv.OpSGreaterThan:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Int() > b.Int() }))
	case spv.OpUGreaterThanEqual:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Uint() >= b.Uint() }))
	case spv.OpSGreaterThanEqual:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Int() >= b.Int() }))
	case spv.OpULessThan:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Uint() < b.Uint() }))
	case spv.OpSLessThan:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Int() < b.Int() }))
	case spv.OpULessThanEqual:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Uint() <= b.Uint() }))
	case spv.OpSLessThanEqual:
		return inv.binaryOp(frame, inst, cmpBin(func(a, b *value.Primitive) bool { return a.Int() <= b.Int() }))

	case spv.OpFOrdEqual:
		return inv.binaryOp(frame, inst, fcmp(func(a, b float32) bool { return a == b }, false))
	case spv.OpFUnordEqual:
		return inv.binaryOp(frame, inst, fcmp(func(a, b float32) bool { return a == b }, true))
	case spv.OpFOrdNotEqual:
		return inv.binaryOp(frame, inst, fcmp(func(a, b float32) bool { return a != b }, false))
	case spv.OpFUnordNotEqual:
		return inv.binaryOp(frame, inst, fcmp(func(a, b float32) bool { return a != b }, true))
	case spv.OpFOrdLessThan:
		return inv.binaryOp(frame, inst, fcmp(func(a, b float32) bool { return a < b }, false))
	case spv.OpFUnordLessThan:
		return inv.binaryOp(frame, inst, fcmp(func(a, b float32) bool { return a < b }, true))
	case spv.OpFOrdGreaterThan:
		return inv.binaryOp(frame, inst, fcmp(func(a, b float32) bool { return a > b }, false))
	case spv.OpFUnordGreaterThan:
		return inv.binaryOp(frame, inst, fcmp(func(a, b float32) bool { return a > b }, true))
	case spv.OpFOrdLessThanEqual:
		return inv.binaryOp(frame, inst, fcmp(func(a, b float32) bool { return a <= b }, false))
	case spv.OpFUnordLessThanEqual:
		return inv.binaryOp(frame, inst, fcmp(func(a, b float32) bool { return a <= b }, true))
	case spv.OpFOrdGreaterThanEqual:
		return inv.binaryOp(frame, inst, fcmp(func(a, b float32) bool { return a >= b }, false))
	case spv.OpFUnordGreaterThanEqual:
		return inv.binaryOp(frame, inst, fcmp(func(a, b float32) bool { return a >= b }, true))

	case spv.OpShiftRightLogical:
		return inv.binaryOp(frame, inst, intBin(func(a, b uint32) uint32 { return a >> (b & 31) }))
	case spv.OpShiftRightArithmetic:
		return inv.binaryOp(frame, inst, intBin(func(a, b uint32) uint32 { return uint32(int32(a) >> (b & 31)) }))
	case spv.OpShiftLeftLogical:
		return inv.binaryOp(frame, inst, intBin(func(a, b uint32) uint32 { return a << (b & 31) }))
	case spv.OpBitwiseOr:
		return inv.binaryOp(frame, inst, intBin(func(a, b uint32) uint32 { return a | b }))
	case spv.OpBitwiseXor:
		return inv.binaryOp(frame, inst, intBin(func(a, b uint32) uint32 { return a ^ b }))
	case spv.OpBitwiseAnd:
		return inv.binaryOp(frame, inst, intBin(func(a, b uint32) uint32 { return a & b }))
	case spv.OpNot:
		return inv.unaryOp(frame, inst, func(out, a *value.Primitive) error {
			out.SetBits(^a.Bits())
			return nil
		})
	case spv.OpBitReverse:
		return inv.unaryOp(frame, inst, func(out, a *value.Primitive) error {
			out.SetBits(bits.Reverse32(a.Bits()))
			return nil
		})
	case spv.OpBitCount:
		return inv.unaryOp(frame, inst, func(out, a *value.Primitive) error {
			out.SetBits(uint32(bits.OnesCount32(a.Bits())))
			return nil
		})
	case spv.OpBitFieldInsert:
		return inv.opBitFieldInsert(frame, inst)
	case spv.OpBitFieldSExtract, spv.OpBitFieldUExtract:
		return inv.opBitFieldExtract(frame, inst)

	case spv.OpConvertFToU:
		return inv.unaryOp(frame, inst, func(out, a *value.Primitive) error {
			f := a.Float()
			if f < 0 || math.IsNaN(float64(f)) {
				out.SetBits(0)
			} else {
				out.SetBits(uint32(f))
			}
			return nil
		})
	case spv.OpConvertFToS:
		return inv.unaryOp(frame, inst, func(out, a *value.Primitive) error {
			out.SetBits(uint32(int32(a.Float())))
			return nil
		})
	case spv.OpConvertSToF:
		return inv.unaryOp(frame, inst, func(out, a *value.Primitive) error {
			setFloat(out, float32(a.Int()))
			return nil
		})
	case spv.OpConvertUToF:
		return inv.unaryOp(frame, inst, func(out, a *value.Primitive) error {
			setFloat(out, float32(a.Uint()))
			return nil
		})
	case spv.OpUConvert, spv.OpSConvert, spv.OpFConvert:
		// Width conversions are identity: every primitive is already
		// emulated at 32 bits and the result type carries the new width.
		return inv.unaryOp(frame, inst, func(out, a *value.Primitive) error {
			out.SetBits(a.Bits())
			return nil
		})
	case spv.OpBitcast:
		return inv.opBitcast(frame, inst)

	default:
		return ierr.NewUnsupportedFeature("opcode %d is not implemented", inst.Op)
	}
}

func fcmp(op func(a, b float32) bool, unordTrue bool) binFn {
	return cmpBin(func(a, b *value.Primitive) bool {
		fa, fb := a.Float(), b.Float()
		if math.IsNaN(float64(fa)) || math.IsNaN(float64(fb)) {
			return unordTrue
		}
		return op(fa, fb)
	})
}

// intDiv wraps an integer division so a zero divisor yields zero with
// a warning instead of trapping: division by zero has no single
// defined result on real hardware, and halting the shader over it
// would make the interpreter stricter than any device.
func (inv *Invocation) intDiv(op func(a, b uint32) uint32) binFn {
	return func(out, a, b *value.Primitive) error {
		if b.Bits() == 0 {
			inv.prog.warn("integer division by zero; the result is defined to be zero")
			out.SetBits(0)
			return nil
		}
		out.SetBits(op(a.Bits(), b.Bits()))
		return nil
	}
}

func (inv *Invocation) opDot(frame *Frame, inst spv.Instruction) error {
	a, err := inv.vector(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	b, err := inv.vector(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	d, err := value.Dot(a, b)
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	p, ok := res.(*value.Primitive)
	if !ok {
		return ierr.NewShapeMismatch("dot product result type is not a scalar")
	}
	setFloat(p, d)
	return nil
}

func (inv *Invocation) vector(frame *Frame, id uint32) (*value.Array, error) {
	v, err := inv.val(frame, id)
	if err != nil {
		return nil, err
	}
	a, ok := v.(*value.Array)
	if !ok {
		return nil, ierr.NewShapeMismatch("id %d is not a vector", id)
	}
	return a, nil
}

func (inv *Invocation) opSelect(frame *Frame, inst spv.Instruction) error {
	cond, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	obj1, err := inv.val(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	obj2, err := inv.val(frame, inst.Operand(2))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	if c, ok := cond.(*value.Primitive); ok {
		if c.Bool() {
			return res.CopyFrom(obj1)
		}
		return res.CopyFrom(obj2)
	}
	// Component-wise select over a bool vector.
	conds, err := elementsOf(cond)
	if err != nil {
		return err
	}
	out, err := elementsOf(res)
	if err != nil {
		return err
	}
	e1, err := elementsOf(obj1)
	if err != nil {
		return err
	}
	e2, err := elementsOf(obj2)
	if err != nil {
		return err
	}
	if len(out) != len(conds) || len(out) != len(e1) || len(out) != len(e2) {
		return ierr.NewShapeMismatch("select operand component counts do not match")
	}
	for i := range out {
		c, ok := conds[i].(*value.Primitive)
		if !ok {
			return ierr.NewShapeMismatch("select condition component %d is not a bool", i)
		}
		src := e2[i]
		if c.Bool() {
			src = e1[i]
		}
		if err := out[i].CopyFrom(src); err != nil {
			return err
		}
	}
	return nil
}

func (inv *Invocation) boolReduce(frame *Frame, inst spv.Instruction, fold func(acc, x bool) bool, init bool) error {
	v, err := inv.vector(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	acc := init
	for i := 0; i < v.Len(); i++ {
		p, ok := v.At(i).(*value.Primitive)
		if !ok {
			return ierr.NewShapeMismatch("component %d is not a bool", i)
		}
		acc = fold(acc, p.Bool())
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	p, ok := res.(*value.Primitive)
	if !ok {
		return ierr.NewShapeMismatch("reduction result type is not a scalar")
	}
	setBool(p, acc)
	return nil
}

// extendedOp produces the {low, high} two-member struct the extended
// integer arithmetic opcodes return, componentwise over vectors.
func (inv *Invocation) extendedOp(frame *Frame, inst spv.Instruction, op func(a, b uint32) (uint32, uint32)) error {
	a, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	b, err := inv.val(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	st, ok := res.(*value.Struct)
	if !ok || st.Len() != 2 {
		return ierr.NewShapeMismatch("extended arithmetic result type must be a two-member struct")
	}
	lowFn := func(out, x, y *value.Primitive) error {
		lo, _ := op(x.Bits(), y.Bits())
		out.SetBits(lo)
		return nil
	}
	highFn := func(out, x, y *value.Primitive) error {
		_, hi := op(x.Bits(), y.Bits())
		out.SetBits(hi)
		return nil
	}
	if err := applyBinary(st.At(0), a, b, lowFn); err != nil {
		return err
	}
	return applyBinary(st.At(1), a, b, highFn)
}

func (inv *Invocation) opBitFieldInsert(frame *Frame, inst spv.Instruction) error {
	base, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	insert, err := inv.val(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	offset, err := inv.primitive(frame, inst.Operand(2))
	if err != nil {
		return err
	}
	count, err := inv.primitive(frame, inst.Operand(3))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	off, cnt := offset.Uint()&31, count.Uint()
	if cnt > 32 {
		cnt = 32
	}
	mask := uint32(0)
	if cnt > 0 {
		mask = (uint32(0xffffffff) >> (32 - cnt)) << off
	}
	return applyBinary(res, base, insert, func(out, b, ins *value.Primitive) error {
		out.SetBits((b.Bits() &^ mask) | ((ins.Bits() << off) & mask))
		return nil
	})
}

func (inv *Invocation) opBitFieldExtract(frame *Frame, inst spv.Instruction) error {
	base, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	offset, err := inv.primitive(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	count, err := inv.primitive(frame, inst.Operand(2))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	off, cnt := offset.Uint()&31, count.Uint()
	if cnt > 32 {
		cnt = 32
	}
	signed := inst.Op == spv.OpBitFieldSExtract
	return applyUnary(res, base, func(out, b *value.Primitive) error {
		if cnt == 0 {
			out.SetBits(0)
			return nil
		}
		field := (b.Bits() >> off) & (uint32(0xffffffff) >> (32 - cnt))
		if signed && field&(1<<(cnt-1)) != 0 {
			field |= uint32(0xffffffff) << cnt
		}
		out.SetBits(field)
		return nil
	})
}

// opBitcast is CopyReinterp id-table-side: the raw words carry over
// unchanged and only the result type's interpretation differs.
func (inv *Invocation) opBitcast(frame *Frame, inst spv.Instruction) error {
	src, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return res.CopyReinterp(src)
}
