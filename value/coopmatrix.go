package value

import "github.com/gogpu/spirvm/ierr"

// CoopMatrix is a matrix-typed value whose elements are partitioned
// across the invocations of a workgroup; each invocation holds only
// its own slice. It specializes Array with a row count and a lazy
// sizing protocol: a CoopMatrix may be left unsized at construction,
// and its local element vector is only populated once EnforceSize is
// called for a specific invocation.
type CoopMatrix struct {
	Array
	unsized bool
}

func newCoopMatrix(t *Type) *CoopMatrix {
	return &CoopMatrix{Array: Array{Aggregate{typ: t}}}
}

// Rows returns the CoopMatrix's row extent.
func (c *CoopMatrix) Rows() uint32 { return c.typ.Rows() }

// IsUnsized reports whether EnforceSize has not yet been called.
func (c *CoopMatrix) IsUnsized() bool { return c.unsized }

// SetUnsized marks the matrix unsized, as done when a Variable's
// pointee tree is walked at initialization (idtable.Variable.InitValue).
func (c *CoopMatrix) SetUnsized() { c.unsized = true }

// EnforceSize partitions the matrix's totalElements across
// numInvocations, giving invocation its share
// [invocation*N/K, (invocation+1)*N/K). The local element vector is
// extended with copies of the last known element (or freshly
// constructed values if none exist yet). Once enforced, IsUnsized
// becomes false; calling it again is a no-op.
func (c *CoopMatrix) EnforceSize(invocation, numInvocations uint32) {
	if !c.unsized {
		return
	}
	c.unsized = false

	total := c.typ.Count()
	beg := uint64(invocation) * uint64(total) / uint64(numInvocations)
	fin := uint64(invocation+1) * uint64(total) / uint64(numInvocations)
	needed := int(fin - beg)

	elemType := c.typ.Element()
	partialFilled := len(c.elements) > 0
	for len(c.elements) < needed {
		v := elemType.MustConstruct()
		if partialFilled {
			_ = v.CopyFrom(c.elements[len(c.elements)-1])
		}
		c.elements = append(c.elements, v)
	}
}

func (c *CoopMatrix) CopyFrom(other Value) error {
	o, ok := other.(*CoopMatrix)
	if !ok {
		return ierr.NewShapeMismatch("cannot copy coop-matrix from %T", other)
	}
	// An unsized source broadcasts its single element to every slot
	// this matrix already holds.
	if o.unsized {
		c.unsized = c.unsized && o.unsized
		if len(c.elements) == 0 {
			return nil
		}
		if len(o.elements) < 1 {
			return ierr.NewShapeMismatch("cannot copy non-empty coop-matrix from empty")
		}
		src := o.elements[0]
		for i := range c.elements {
			if err := c.elements[i].CopyFrom(src); err != nil {
				return err
			}
		}
		return nil
	}
	c.unsized = c.unsized && o.unsized
	return c.Array.CopyFrom(&o.Array)
}

func (c *CoopMatrix) Equals(other Value) bool {
	o, ok := other.(*CoopMatrix)
	if !ok {
		return false
	}
	return c.equals(&o.Aggregate)
}

func (c *CoopMatrix) RecursiveApply(fn func(Value) bool) { c.recursiveApply(c, fn) }
