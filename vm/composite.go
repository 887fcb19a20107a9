package vm

import (
	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/spv"
	"github.com/gogpu/spirvm/value"
)

func (inv *Invocation) dispatchComposite(frame *Frame, inst spv.Instruction) error {
	switch inst.Op {
	case spv.OpVectorExtractDynamic:
		return inv.opVectorExtractDynamic(frame, inst)
	case spv.OpVectorInsertDynamic:
		return inv.opVectorInsertDynamic(frame, inst)
	case spv.OpVectorShuffle:
		return inv.opVectorShuffle(frame, inst)
	case spv.OpCompositeConstruct:
		return inv.opCompositeConstruct(frame, inst)
	case spv.OpCompositeExtract:
		return inv.opCompositeExtract(frame, inst)
	case spv.OpCompositeInsert:
		return inv.opCompositeInsert(frame, inst)
	case spv.OpTranspose:
		return inv.opTranspose(frame, inst)
	default:
		return ierr.NewUnsupportedFeature("composite opcode %d is not implemented", inst.Op)
	}
}

func (inv *Invocation) opVectorExtractDynamic(frame *Frame, inst spv.Instruction) error {
	v, err := inv.vector(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	idx, err := inv.primitive(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	elem, err := indexInto(v, int(idx.Int()))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return res.CopyFrom(elem)
}

func (inv *Invocation) opVectorInsertDynamic(frame *Frame, inst spv.Instruction) error {
	v, err := inv.vector(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	component, err := inv.val(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	idx, err := inv.primitive(frame, inst.Operand(2))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	if err := res.CopyFrom(v); err != nil {
		return err
	}
	slot, err := indexInto(res, int(idx.Int()))
	if err != nil {
		return err
	}
	return slot.CopyFrom(component)
}

func (inv *Invocation) opVectorShuffle(frame *Frame, inst spv.Instruction) error {
	v1, err := inv.vector(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	v2, err := inv.vector(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	out, ok := res.(*value.Array)
	if !ok {
		return ierr.NewShapeMismatch("shuffle result type is not a vector")
	}
	components := inst.Operands[2:]
	if len(components) != out.Len() {
		return ierr.NewShapeMismatch("shuffle selects %d components but the result has %d", len(components), out.Len())
	}
	const undefComponent = 0xffffffff
	for i, sel := range components {
		if sel == undefComponent {
			continue // result component stays undefined
		}
		var src value.Value
		if int(sel) < v1.Len() {
			src = v1.At(int(sel))
		} else if int(sel)-v1.Len() < v2.Len() {
			src = v2.At(int(sel) - v1.Len())
		} else {
			return ierr.NewOutOfBounds("shuffle component %d outside both operands", sel)
		}
		if err := out.At(i).CopyFrom(src); err != nil {
			return err
		}
	}
	return nil
}

// opCompositeConstruct fills the result from its constituents,
// flattening scalar/vector mixes the way vector constructors allow
// (vec4(vec2, float, float)).
func (inv *Invocation) opCompositeConstruct(frame *Frame, inst spv.Instruction) error {
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	parts := make([]value.Value, inst.Arity())
	for i := range parts {
		v, err := inv.val(frame, inst.Operand(i))
		if err != nil {
			return err
		}
		parts[i] = v
	}
	out, err := elementsOf(res)
	if err != nil {
		return err
	}
	if _, isStruct := res.(*value.Struct); isStruct || len(parts) == len(out) {
		if len(parts) != len(out) {
			return ierr.NewShapeMismatch("composite construct needs %d constituents, got %d", len(out), len(parts))
		}
		for i := range out {
			if err := out[i].CopyFrom(parts[i]); err != nil {
				return err
			}
		}
		return nil
	}
	// Vector construction flattens vector constituents componentwise.
	pos := 0
	for _, part := range parts {
		switch p := part.(type) {
		case *value.Primitive:
			if pos >= len(out) {
				return ierr.NewShapeMismatch("too many constituent components for the result vector")
			}
			if err := out[pos].CopyFrom(p); err != nil {
				return err
			}
			pos++
		case *value.Array:
			for i := 0; i < p.Len(); i++ {
				if pos >= len(out) {
					return ierr.NewShapeMismatch("too many constituent components for the result vector")
				}
				if err := out[pos].CopyFrom(p.At(i)); err != nil {
					return err
				}
				pos++
			}
		default:
			return ierr.NewShapeMismatch("cannot construct a vector from a %T constituent", part)
		}
	}
	if pos != len(out) {
		return ierr.NewShapeMismatch("constituents fill %d of %d result components", pos, len(out))
	}
	return nil
}

func (inv *Invocation) opCompositeExtract(frame *Frame, inst spv.Instruction) error {
	cur, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	for i := 1; i < inst.Arity(); i++ {
		cur, err = indexInto(cur, int(inst.Operand(i)))
		if err != nil {
			return err
		}
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return res.CopyFrom(cur)
}

func (inv *Invocation) opCompositeInsert(frame *Frame, inst spv.Instruction) error {
	object, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	composite, err := inv.val(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	if err := res.CopyFrom(composite); err != nil {
		return err
	}
	cur := res
	for i := 2; i < inst.Arity(); i++ {
		cur, err = indexInto(cur, int(inst.Operand(i)))
		if err != nil {
			return err
		}
	}
	return cur.CopyFrom(object)
}
