package vm

import (
	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/spv"
	"github.com/gogpu/spirvm/value"
)

// Matrices are Arrays of column vectors, as OpTypeMatrix declares
// them: m.At(j) is column j, itself an Array of row components.

func matrixFloats(m *value.Array) ([][]float32, error) {
	cols := make([][]float32, m.Len())
	for j := 0; j < m.Len(); j++ {
		col, ok := m.At(j).(*value.Array)
		if !ok {
			return nil, ierr.NewShapeMismatch("matrix column %d is not a vector", j)
		}
		cols[j] = make([]float32, col.Len())
		for i := 0; i < col.Len(); i++ {
			p, ok := col.At(i).(*value.Primitive)
			if !ok {
				return nil, ierr.NewShapeMismatch("matrix element (%d,%d) is not numeric", i, j)
			}
			cols[j][i] = p.Float()
		}
	}
	return cols, nil
}

func vectorFloats(v *value.Array) ([]float32, error) {
	out := make([]float32, v.Len())
	for i := 0; i < v.Len(); i++ {
		p, ok := v.At(i).(*value.Primitive)
		if !ok {
			return nil, ierr.NewShapeMismatch("vector component %d is not numeric", i)
		}
		out[i] = p.Float()
	}
	return out, nil
}

func storeVectorFloats(dst value.Value, src []float32) error {
	arr, ok := dst.(*value.Array)
	if !ok || arr.Len() != len(src) {
		return ierr.NewShapeMismatch("result vector shape does not match %d components", len(src))
	}
	for i, f := range src {
		p, ok := arr.At(i).(*value.Primitive)
		if !ok {
			return ierr.NewShapeMismatch("result component %d is not numeric", i)
		}
		setFloat(p, f)
	}
	return nil
}

func storeMatrixFloats(dst value.Value, cols [][]float32) error {
	arr, ok := dst.(*value.Array)
	if !ok || arr.Len() != len(cols) {
		return ierr.NewShapeMismatch("result matrix shape does not match %d columns", len(cols))
	}
	for j, col := range cols {
		if err := storeVectorFloats(arr.At(j), col); err != nil {
			return err
		}
	}
	return nil
}

func (inv *Invocation) opVectorTimesScalar(frame *Frame, inst spv.Instruction) error {
	v, err := inv.vector(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	s, err := inv.primitive(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return applyUnary(res, v, func(out, a *value.Primitive) error {
		setFloat(out, a.Float()*s.Float())
		return nil
	})
}

func (inv *Invocation) opMatrixTimesScalar(frame *Frame, inst spv.Instruction) error {
	m, err := inv.vector(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	s, err := inv.primitive(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return applyUnary(res, m, func(out, a *value.Primitive) error {
		setFloat(out, a.Float()*s.Float())
		return nil
	})
}

func (inv *Invocation) opVectorTimesMatrix(frame *Frame, inst spv.Instruction) error {
	v, err := inv.vector(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	m, err := inv.vector(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	vf, err := vectorFloats(v)
	if err != nil {
		return err
	}
	cols, err := matrixFloats(m)
	if err != nil {
		return err
	}
	out := make([]float32, len(cols))
	for j, col := range cols {
		if len(col) != len(vf) {
			return ierr.NewShapeMismatch("vector length %d does not match matrix row count %d", len(vf), len(col))
		}
		var sum float32
		for i := range col {
			sum += vf[i] * col[i]
		}
		out[j] = sum
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return storeVectorFloats(res, out)
}

func (inv *Invocation) opMatrixTimesVector(frame *Frame, inst spv.Instruction) error {
	m, err := inv.vector(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	v, err := inv.vector(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	cols, err := matrixFloats(m)
	if err != nil {
		return err
	}
	vf, err := vectorFloats(v)
	if err != nil {
		return err
	}
	if len(cols) != len(vf) {
		return ierr.NewShapeMismatch("matrix column count %d does not match vector length %d", len(cols), len(vf))
	}
	rows := len(cols[0])
	out := make([]float32, rows)
	for j, col := range cols {
		for i := 0; i < rows; i++ {
			out[i] += col[i] * vf[j]
		}
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return storeVectorFloats(res, out)
}

func (inv *Invocation) opMatrixTimesMatrix(frame *Frame, inst spv.Instruction) error {
	a, err := inv.vector(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	b, err := inv.vector(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	ac, err := matrixFloats(a)
	if err != nil {
		return err
	}
	bc, err := matrixFloats(b)
	if err != nil {
		return err
	}
	rows := len(ac[0])
	out := make([][]float32, len(bc))
	for j, bcol := range bc {
		if len(bcol) != len(ac) {
			return ierr.NewShapeMismatch("inner matrix dimensions %d and %d do not agree", len(ac), len(bcol))
		}
		out[j] = make([]float32, rows)
		for i := 0; i < rows; i++ {
			var sum float32
			for k := range bcol {
				sum += ac[k][i] * bcol[k]
			}
			out[j][i] = sum
		}
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return storeMatrixFloats(res, out)
}

func (inv *Invocation) opOuterProduct(frame *Frame, inst spv.Instruction) error {
	a, err := inv.vector(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	b, err := inv.vector(frame, inst.Operand(1))
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
	out := make([][]float32, len(bf))
	for j, y := range bf {
		out[j] = make([]float32, len(af))
		for i, x := range af {
			out[j][i] = x * y
		}
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return storeMatrixFloats(res, out)
}

func (inv *Invocation) opTranspose(frame *Frame, inst spv.Instruction) error {
	m, err := inv.vector(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	cols, err := matrixFloats(m)
	if err != nil {
		return err
	}
	rows := len(cols[0])
	out := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float32, len(cols))
		for j := range cols {
			out[i][j] = cols[j][i]
		}
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return storeMatrixFloats(res, out)
}
