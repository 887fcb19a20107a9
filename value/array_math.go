package value

import "github.com/gogpu/spirvm/ierr"

// Dot computes the dot product of two equal-length numeric Arrays,
// backing OpDot and the vector-reduction step of matrix multiplication.
func Dot(a, b *Array) (float32, error) {
	if a.Len() != b.Len() {
		return 0, ierr.NewShapeMismatch("dot product requires equal-length vectors, got %d and %d", a.Len(), b.Len())
	}
	var sum float32
	for i := 0; i < a.Len(); i++ {
		pa, ok := a.At(i).(*Primitive)
		if !ok {
			return 0, ierr.NewShapeMismatch("dot product operand element %d is not numeric", i)
		}
		pb, ok := b.At(i).(*Primitive)
		if !ok {
			return 0, ierr.NewShapeMismatch("dot product operand element %d is not numeric", i)
		}
		sum += pa.Float() * pb.Float()
	}
	return sum, nil
}

// Determinant computes the determinant of a square matrix represented
// as an Array of row Arrays, by cofactor expansion along the first
// row. Supports the 2x2/3x3/4x4 sizes the matrix-inverse opcodes need.
func Determinant(m *Array) (float32, error) {
	n := m.Len()
	rows := make([][]float32, n)
	for i := 0; i < n; i++ {
		row, ok := m.At(i).(*Array)
		if !ok || row.Len() != n {
			return 0, ierr.NewShapeMismatch("determinant requires a square matrix, row %d has wrong shape", i)
		}
		rows[i] = make([]float32, n)
		for j := 0; j < n; j++ {
			p, ok := row.At(j).(*Primitive)
			if !ok {
				return 0, ierr.NewShapeMismatch("determinant operand element (%d,%d) is not numeric", i, j)
			}
			rows[i][j] = p.Float()
		}
	}
	return determinantOf(rows), nil
}

func determinantOf(m [][]float32) float32 {
	n := len(m)
	switch n {
	case 1:
		return m[0][0]
	case 2:
		return m[0][0]*m[1][1] - m[0][1]*m[1][0]
	default:
		var det float32
		sign := float32(1)
		for col := 0; col < n; col++ {
			minor := make([][]float32, n-1)
			for i := 1; i < n; i++ {
				r := make([]float32, 0, n-1)
				for j := 0; j < n; j++ {
					if j == col {
						continue
					}
					r = append(r, m[i][j])
				}
				minor[i-1] = r
			}
			det += sign * m[0][col] * determinantOf(minor)
			sign = -sign
		}
		return det
	}
}
