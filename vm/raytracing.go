package vm

import (
	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/raytrace"
	"github.com/gogpu/spirvm/spv"
	"github.com/gogpu/spirvm/value"
)

func (inv *Invocation) dispatchRayTracing(frame *Frame, inst spv.Instruction) error {
	switch inst.Op {
	case spv.OpTraceRayKHR:
		return inv.opTraceRay(frame, inst)
	case spv.OpExecuteCallableKHR:
		inv.prog.warn("callable shader invocation skipped; the callable stage is not simulated")
		return nil
	case spv.OpRayQueryInitializeKHR:
		return inv.opRayQueryInitialize(frame, inst)
	case spv.OpRayQueryProceedKHR:
		return inv.opRayQueryProceed(frame, inst)
	case spv.OpRayQueryConfirmIntersectionKHR:
		rq, err := inv.rayQuery(frame, inst.Operand(0))
		if err != nil {
			return err
		}
		rq.Trace().Confirm(rq.BVH())
		return nil
	case spv.OpRayQueryGenerateIntersectionKHR:
		return inv.opRayQueryGenerate(frame, inst)
	case spv.OpRayQueryTerminateKHR:
		rq, err := inv.rayQuery(frame, inst.Operand(0))
		if err != nil {
			return err
		}
		rq.Trace().Active = false
		return nil
	case spv.OpRayQueryGetIntersectionTypeKHR:
		return inv.opRayQueryIntersectionType(frame, inst)
	default:
		return ierr.NewUnsupportedFeature("ray tracing opcode %d is not implemented", inst.Op)
	}
}

func (inv *Invocation) accelStruct(frame *Frame, id uint32) (*value.AccelStruct, error) {
	v, err := inv.val(frame, id)
	if err != nil {
		return nil, err
	}
	as, ok := v.(*value.AccelStruct)
	if !ok {
		return nil, ierr.NewShapeMismatch("id %d is not an acceleration structure", id)
	}
	return as, nil
}

// rayQuery is accelStruct plus the requirement that a trace is in
// progress.
func (inv *Invocation) rayQuery(frame *Frame, id uint32) (*value.AccelStruct, error) {
	rq, err := inv.accelStruct(frame, id)
	if err != nil {
		return nil, err
	}
	if rq.Trace() == nil {
		return nil, ierr.NewMalformedModule("ray query used before OpRayQueryInitializeKHR")
	}
	return rq, nil
}

func (inv *Invocation) rayParams(frame *Frame, originID, dirID, tMinID, tMaxID, flagsID uint32) (origin, dir [3]float32, tMin, tMax float32, flags raytrace.RayFlags, err error) {
	o, err := inv.vector(frame, originID)
	if err != nil {
		return
	}
	d, err := inv.vector(frame, dirID)
	if err != nil {
		return
	}
	of, err := vectorFloats(o)
	if err != nil {
		return
	}
	df, err := vectorFloats(d)
	if err != nil {
		return
	}
	if len(of) < 3 || len(df) < 3 {
		err = ierr.NewShapeMismatch("ray origin and direction must be 3-component vectors")
		return
	}
	copy(origin[:], of)
	copy(dir[:], df)
	tMinP, err := inv.primitive(frame, tMinID)
	if err != nil {
		return
	}
	tMaxP, err := inv.primitive(frame, tMaxID)
	if err != nil {
		return
	}
	flagsP, err := inv.primitive(frame, flagsID)
	if err != nil {
		return
	}
	return origin, dir, tMinP.Float(), tMaxP.Float(), raytrace.RayFlags(flagsP.Uint()), nil
}

// opTraceRay runs the whole traversal inline. The hit and miss shader
// stages are not simulated; instead the committed hit (or a miss) is
// written into the payload when its shape allows, which covers the
// common "did I hit, and how far" payloads.
func (inv *Invocation) opTraceRay(frame *Frame, inst spv.Instruction) error {
	as, err := inv.accelStruct(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	origin, dir, tMin, tMax, flags, err := inv.rayParams(frame,
		inst.Operand(6), inst.Operand(8), inst.Operand(7), inst.Operand(9), inst.Operand(1))
	if err != nil {
		return err
	}
	if err := as.BeginTrace(origin, dir, tMin, tMax, flags); err != nil {
		return err
	}
	result := as.Trace().TraceRay(as.BVH(), false)
	if result == raytrace.MAYBE {
		inv.prog.warn("procedural intersection requires an intersection shader; treating as a miss")
	}
	payload, err := inv.val(frame, inst.Operand(10))
	if err != nil {
		return err
	}
	return inv.writePayload(payload, as, result == raytrace.YES)
}

func (inv *Invocation) writePayload(payload value.Value, as *value.AccelStruct, hit bool) error {
	switch p := payload.(type) {
	case *value.Primitive:
		switch p.Type().Base() {
		case value.BaseFloat:
			var t float32
			if hit && as.Trace().Committed != nil {
				t = as.Trace().Committed.HitT
			}
			setFloat(p, t)
		default:
			setBool(p, hit)
		}
		return nil
	case *value.Array:
		// (hit, t [, u, v]) in declaration order, as far as the
		// payload's length allows.
		vals := []float32{0, 0, 0, 0}
		if hit && as.Trace().Committed != nil {
			c := as.Trace().Committed
			vals = []float32{1, c.HitT, c.U, c.V}
		}
		for i := 0; i < p.Len() && i < len(vals); i++ {
			prim, ok := p.At(i).(*value.Primitive)
			if !ok {
				break
			}
			if prim.Type().Base() == value.BaseFloat {
				setFloat(prim, vals[i])
			} else {
				prim.SetBits(uint32(vals[i]))
			}
		}
		return nil
	default:
		inv.prog.warn("ray payload shape is not writable by the inline traversal; payload left unchanged")
		return nil
	}
}

func (inv *Invocation) opRayQueryInitialize(frame *Frame, inst spv.Instruction) error {
	rq, err := inv.accelStruct(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	as, err := inv.accelStruct(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	if err := rq.CopyFrom(as); err != nil {
		return err
	}
	origin, dir, tMin, tMax, flags, err := inv.rayParams(frame,
		inst.Operand(4), inst.Operand(6), inst.Operand(5), inst.Operand(7), inst.Operand(2))
	if err != nil {
		return err
	}
	return rq.BeginTrace(origin, dir, tMin, tMax, flags)
}

// opRayQueryProceed steps the traversal once: the result is true while
// a candidate (triangle or procedural) awaits the shader's decision.
func (inv *Invocation) opRayQueryProceed(frame *Frame, inst spv.Instruction) error {
	rq, err := inv.rayQuery(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	step := rq.Trace().StepTrace(rq.BVH())
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	p, ok := res.(*value.Primitive)
	if !ok {
		return ierr.NewShapeMismatch("ray query proceed result type is not a bool")
	}
	setBool(p, step != raytrace.NO)
	return nil
}

func (inv *Invocation) opRayQueryGenerate(frame *Frame, inst spv.Instruction) error {
	rq, err := inv.rayQuery(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	hitT, err := inv.primitive(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	rq.Trace().Generate(rq.BVH(), hitT.Float())
	return nil
}

// Committed/candidate intersection-type enumerants, per the ray query
// instruction set.
const (
	committedNone     = 0
	committedTriangle = 1
	committedGenerated = 2

	candidateTriangle = 0
	candidateAABB     = 1
)

func (inv *Invocation) opRayQueryIntersectionType(frame *Frame, inst spv.Instruction) error {
	rq, err := inv.rayQuery(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	committed, err := inv.primitive(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	var kind uint32
	if committed.Uint() != 0 {
		switch {
		case rq.Trace().Committed == nil:
			kind = committedNone
		case rq.Trace().Committed.Type == raytrace.IntersectionTriangle:
			kind = committedTriangle
		default:
			kind = committedGenerated
		}
	} else {
		switch rq.Trace().CandidateNode(rq.BVH()).(type) {
		case *raytrace.ProceduralNode:
			kind = candidateAABB
		default:
			kind = candidateTriangle
		}
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	p, ok := res.(*value.Primitive)
	if !ok {
		return ierr.NewShapeMismatch("intersection type result is not a scalar")
	}
	p.SetBits(kind)
	return nil
}
