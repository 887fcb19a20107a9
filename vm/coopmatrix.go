package vm

import (
	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/spv"
	"github.com/gogpu/spirvm/value"
)

func (inv *Invocation) dispatchCoopMatrix(frame *Frame, inst spv.Instruction) error {
	switch inst.Op {
	case spv.OpCooperativeMatrixLengthKHR:
		return inv.opCoopMatrixLength(frame, inst)
	case spv.OpCooperativeMatrixLoadKHR:
		return inv.opCoopMatrixLoad(frame, inst)
	case spv.OpCooperativeMatrixStoreKHR:
		return inv.opCoopMatrixStore(frame, inst)
	case spv.OpCooperativeMatrixMulAddKHR:
		return inv.opCoopMatrixMulAdd(frame, inst)
	default:
		return ierr.NewUnsupportedFeature("cooperative matrix opcode %d is not implemented", inst.Op)
	}
}

// share returns this invocation's [beg, fin) slice of a matrix's total
// element count, the same partition EnforceSize applies.
func (inv *Invocation) share(total uint32) (beg, fin int) {
	beg = int(uint64(inv.index) * uint64(total) / uint64(inv.count))
	fin = int(uint64(inv.index+1) * uint64(total) / uint64(inv.count))
	return beg, fin
}

func (inv *Invocation) opCoopMatrixLength(frame *Frame, inst spv.Instruction) error {
	t, err := inv.typ(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	beg, fin := inv.share(t.Count())
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	p, ok := res.(*value.Primitive)
	if !ok {
		return ierr.NewShapeMismatch("matrix length result type is not a scalar")
	}
	p.SetBits(uint32(fin - beg))
	return nil
}

// opCoopMatrixLoad fills this invocation's slice from the backing
// array: element i of the slice comes from the flat backing store at
// beg+i. The layout and stride operands are accepted but the backing
// store is addressed element-linearly (the interpreter's arrays carry
// no padding for a stride to skip).
func (inv *Invocation) opCoopMatrixLoad(frame *Frame, inst spv.Instruction) error {
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	cm, ok := res.(*value.CoopMatrix)
	if !ok {
		return ierr.NewShapeMismatch("cooperative matrix load result type is not a matrix")
	}
	cm.SetUnsized()
	cm.EnforceSize(inv.index, inv.count)
	backing, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	src, err := elementsOf(backing)
	if err != nil {
		return err
	}
	beg, _ := inv.share(cm.Type().Count())
	for i := 0; i < cm.Len(); i++ {
		if beg+i >= len(src) {
			return ierr.NewOutOfBounds("matrix load reads element %d of a %d-element store", beg+i, len(src))
		}
		if err := cm.At(i).CopyFrom(src[beg+i]); err != nil {
			return err
		}
	}
	return nil
}

func (inv *Invocation) opCoopMatrixStore(frame *Frame, inst spv.Instruction) error {
	backing, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	obj, err := inv.val(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	cm, ok := obj.(*value.CoopMatrix)
	if !ok {
		return ierr.NewShapeMismatch("cooperative matrix store object is not a matrix")
	}
	dst, err := elementsOf(backing)
	if err != nil {
		return err
	}
	beg, _ := inv.share(cm.Type().Count())
	for i := 0; i < cm.Len(); i++ {
		if beg+i >= len(dst) {
			return ierr.NewOutOfBounds("matrix store writes element %d of a %d-element store", beg+i, len(dst))
		}
		if err := dst[beg+i].CopyFrom(cm.At(i)); err != nil {
			return err
		}
	}
	return nil
}

// opCoopMatrixMulAdd computes A*B+C. With a single invocation holding
// every element the full row-major matrix product is computed; with
// the elements partitioned across a workgroup the product would need
// cross-invocation exchange, so the slice-local fused multiply-add is
// used instead, with a warning.
func (inv *Invocation) opCoopMatrixMulAdd(frame *Frame, inst spv.Instruction) error {
	a, err := inv.coopMatrix(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	b, err := inv.coopMatrix(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	c, err := inv.coopMatrix(frame, inst.Operand(2))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	out, ok := res.(*value.CoopMatrix)
	if !ok {
		return ierr.NewShapeMismatch("matrix multiply result type is not a cooperative matrix")
	}
	out.SetUnsized()
	out.EnforceSize(inv.index, inv.count)

	if inv.count == 1 {
		return coopMatMul(out, a, b, c)
	}
	inv.prog.warn("cooperative matrix multiply across a partitioned workgroup degrades to a slice-local multiply-add")
	if a.Len() != out.Len() || b.Len() != out.Len() || c.Len() != out.Len() {
		return ierr.NewShapeMismatch("partitioned matrix slices have unequal lengths")
	}
	for i := 0; i < out.Len(); i++ {
		pa, ok1 := a.At(i).(*value.Primitive)
		pb, ok2 := b.At(i).(*value.Primitive)
		pc, ok3 := c.At(i).(*value.Primitive)
		po, ok4 := out.At(i).(*value.Primitive)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return ierr.NewShapeMismatch("matrix element %d is not numeric", i)
		}
		setFloat(po, pa.Float()*pb.Float()+pc.Float())
	}
	return nil
}

// coopMatMul is the single-invocation full product: row-major MxK
// times KxN plus MxN.
func coopMatMul(out, a, b, c *value.CoopMatrix) error {
	m := int(a.Type().Rows())
	n := int(b.Type().Cols())
	if m == 0 || n == 0 {
		return ierr.NewShapeMismatch("matrix extents must be non-zero")
	}
	k := a.Len() / m
	if k == 0 || k*m != a.Len() || k*n != b.Len() || m*n != c.Len() || m*n != out.Len() {
		return ierr.NewShapeMismatch("matrix extents %dx%d * %dx%d do not agree with element counts", m, k, k, n)
	}
	fl := func(cm *value.CoopMatrix, i int) (float32, error) {
		p, ok := cm.At(i).(*value.Primitive)
		if !ok {
			return 0, ierr.NewShapeMismatch("matrix element %d is not numeric", i)
		}
		return p.Float(), nil
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			acc, err := fl(c, i*n+j)
			if err != nil {
				return err
			}
			for x := 0; x < k; x++ {
				av, err := fl(a, i*k+x)
				if err != nil {
					return err
				}
				bv, err := fl(b, x*n+j)
				if err != nil {
					return err
				}
				acc += av * bv
			}
			p, ok := out.At(i*n + j).(*value.Primitive)
			if !ok {
				return ierr.NewShapeMismatch("result element %d is not numeric", i*n+j)
			}
			setFloat(p, acc)
		}
	}
	return nil
}

func (inv *Invocation) coopMatrix(frame *Frame, id uint32) (*value.CoopMatrix, error) {
	v, err := inv.val(frame, id)
	if err != nil {
		return nil, err
	}
	cm, ok := v.(*value.CoopMatrix)
	if !ok {
		return nil, ierr.NewShapeMismatch("id %d is not a cooperative matrix", id)
	}
	return cm, nil
}
