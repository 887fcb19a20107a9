package vm

import (
	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/spv"
	"github.com/gogpu/spirvm/value"
)

// Image-operand bitmask bits (the optional trailing words of sampling
// and fetch opcodes).
const (
	imageOperandBias = 0x1
	imageOperandLod  = 0x2
)

func (inv *Invocation) dispatchImage(frame *Frame, inst spv.Instruction) error {
	switch inst.Op {
	case spv.OpImageSampleImplicitLod:
		return inv.opImageSample(frame, inst, false)
	case spv.OpImageSampleExplicitLod:
		return inv.opImageSample(frame, inst, true)
	case spv.OpImageFetch, spv.OpImageRead:
		return inv.opImageFetch(frame, inst)
	case spv.OpImageWrite:
		return inv.opImageWrite(frame, inst)
	case spv.OpImageQuerySize:
		return inv.opImageQuerySize(frame, inst, 0)
	case spv.OpImageQuerySizeLod:
		lod, err := inv.primitive(frame, inst.Operand(1))
		if err != nil {
			return err
		}
		return inv.opImageQuerySize(frame, inst, lod.Uint())
	default:
		return ierr.NewUnsupportedFeature("image opcode %d is not implemented", inst.Op)
	}
}

func (inv *Invocation) imageOf(frame *Frame, id uint32) (*value.Image, *value.Sampler, error) {
	v, err := inv.val(frame, id)
	if err != nil {
		return nil, nil, err
	}
	switch c := v.(type) {
	case *value.Image:
		return c, nil, nil
	case *value.SampledImage:
		return c.Image(), c.Sampler(), nil
	default:
		return nil, nil, ierr.NewShapeMismatch("id %d is not an image", id)
	}
}

// explicitLod pulls the Lod operand out of the optional image-operand
// words beginning at operand index start, or falls back to def.
func (inv *Invocation) explicitLod(frame *Frame, inst spv.Instruction, start int, def float32) (float32, error) {
	if inst.Arity() <= start {
		return def, nil
	}
	mask := inst.Operand(start)
	pos := start + 1
	if mask&imageOperandBias != 0 {
		pos++ // bias is accepted and ignored: the interpreter has no mip chain filtering
	}
	if mask&imageOperandLod != 0 {
		lod, err := inv.primitive(frame, inst.Operand(pos))
		if err != nil {
			return 0, err
		}
		if lod.Type().Base() == value.BaseFloat {
			return lod.Float(), nil
		}
		return float32(lod.Uint()), nil
	}
	return def, nil
}

func (inv *Invocation) opImageSample(frame *Frame, inst spv.Instruction, explicit bool) error {
	img, sampler, err := inv.imageOf(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	coords, err := inv.val(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	x, y, z, _, err := value.ExtractCoords(coords, img.Dim(), false)
	if err != nil {
		return err
	}
	var lod float32
	if sampler != nil {
		lod = float32(sampler.ImplicitLod())
	}
	if explicit {
		lod, err = inv.explicitLod(frame, inst, 2, lod)
		if err != nil {
			return err
		}
	}
	// Sampling coordinates are normalized; scale to texel space at the
	// chosen level before the point read.
	size := img.Size(uint32(lod))
	texel := img.Read(x*float32(size[0]), y*float32(size[1]), z*float32(size[2]), lod)
	return inv.storeTexel(frame, inst, texel)
}

func (inv *Invocation) opImageFetch(frame *Frame, inst spv.Instruction) error {
	img, _, err := inv.imageOf(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	x, y, z, err := inv.intCoords(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	lod, err := inv.explicitLod(frame, inst, 2, 0)
	if err != nil {
		return err
	}
	texel := img.Read(float32(x), float32(y), float32(z), lod)
	return inv.storeTexel(frame, inst, texel)
}

func (inv *Invocation) opImageWrite(frame *Frame, inst spv.Instruction) error {
	img, _, err := inv.imageOf(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	x, y, z, err := inv.intCoords(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	texelVal, err := inv.val(frame, inst.Operand(2))
	if err != nil {
		return err
	}
	texel, err := texelArray(texelVal, int(img.Comps().Count))
	if err != nil {
		return err
	}
	if !img.Write(x, y, z, texel) {
		inv.prog.warn("image write out of bounds; no texel was written")
	}
	return nil
}

func (inv *Invocation) opImageQuerySize(frame *Frame, inst spv.Instruction, lod uint32) error {
	img, _, err := inv.imageOf(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	size := img.Size(lod)
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	dims := 1
	switch img.Dim() {
	case value.Dim2D, value.DimCube:
		dims = 2
	case value.Dim3D:
		dims = 3
	}
	switch out := res.(type) {
	case *value.Primitive:
		out.SetBits(size[0])
		return nil
	case *value.Array:
		if out.Len() < dims {
			return ierr.NewShapeMismatch("size query result has %d components, image has %d dimensions", out.Len(), dims)
		}
		for i := 0; i < out.Len() && i < 4; i++ {
			p, ok := out.At(i).(*value.Primitive)
			if !ok {
				return ierr.NewShapeMismatch("size query result component %d is not numeric", i)
			}
			p.SetBits(size[i])
		}
		return nil
	default:
		return ierr.NewShapeMismatch("size query result type is not numeric")
	}
}

// intCoords reads an integer coordinate operand: a scalar for 1D, a
// vector otherwise.
func (inv *Invocation) intCoords(frame *Frame, id uint32) (x, y, z int, err error) {
	v, err := inv.val(frame, id)
	if err != nil {
		return 0, 0, 0, err
	}
	switch c := v.(type) {
	case *value.Primitive:
		return int(c.Int()), 0, 0, nil
	case *value.Array:
		get := func(i int) int {
			if i >= c.Len() {
				return 0
			}
			p, ok := c.At(i).(*value.Primitive)
			if !ok {
				return 0
			}
			return int(p.Int())
		}
		return get(0), get(1), get(2), nil
	default:
		return 0, 0, 0, ierr.NewShapeMismatch("image coordinates must be an integer scalar or vector")
	}
}

// storeTexel copies a raw texel (comps.Count words) into the result,
// reinterpreting bits into the result's component type and padding
// missing trailing channels with (0, 0, 0, 1).
func (inv *Invocation) storeTexel(frame *Frame, inst spv.Instruction, texel *value.Array) error {
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	out, ok := res.(*value.Array)
	if !ok {
		// A one-component image may produce a scalar result.
		p, ok := res.(*value.Primitive)
		if !ok || texel.Len() < 1 {
			return ierr.NewShapeMismatch("texel result type is neither vector nor scalar")
		}
		return p.CopyReinterp(texel.At(0))
	}
	for i := 0; i < out.Len(); i++ {
		p, ok := out.At(i).(*value.Primitive)
		if !ok {
			return ierr.NewShapeMismatch("texel result component %d is not numeric", i)
		}
		if i < texel.Len() {
			if err := p.CopyReinterp(texel.At(i)); err != nil {
				return err
			}
			continue
		}
		// Missing channels read as 0, except alpha which reads as 1.
		if i == 3 {
			if p.Type().Base() == value.BaseFloat {
				setFloat(p, 1)
			} else {
				p.SetBits(1)
			}
		} else {
			p.SetBits(0)
		}
	}
	return nil
}

func texelArray(v value.Value, comps int) (*value.Array, error) {
	arr, ok := v.(*value.Array)
	if !ok {
		return nil, ierr.NewShapeMismatch("texel to write must be a vector, got %T", v)
	}
	if arr.Len() < comps {
		return nil, ierr.NewShapeMismatch("texel has %d components, image stores %d", arr.Len(), comps)
	}
	if arr.Len() == comps {
		return arr, nil
	}
	trimmed := make([]value.Value, comps)
	for i := 0; i < comps; i++ {
		trimmed[i] = arr.At(i)
	}
	return value.NewArrayFromElements(trimmed), nil
}
