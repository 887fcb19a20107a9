package vm

import (
	"sync/atomic"

	"github.com/gogpu/spirvm/idtable"
	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/spv"
	"github.com/gogpu/spirvm/value"
)

// Status is an invocation's scheduling state.
type Status uint8

const (
	// StatusActive means the invocation has instructions left to run.
	StatusActive Status = iota
	// StatusAtBarrier means the invocation is suspended at a control
	// barrier, waiting for its workgroup siblings.
	StatusAtBarrier
	// StatusDone means the frame stack emptied (or the invocation was
	// killed) and no further instructions will run.
	StatusDone
)

// Invocation is one cooperative execution of an entry point: its own
// frame stack and its own DataView layered over the program's globals.
// Multiple invocations of the same program may be interleaved by a
// Workgroup; they share the globals and write into them only through
// variables in shared storage classes.
type Invocation struct {
	prog   *Program
	view   *idtable.DataView
	frames FrameStack
	status Status

	index, count uint32

	stop *atomic.Bool
}

// NewInvocation prepares one invocation of ep: a fresh DataView layer
// over the globals, with the entry point's non-shared interface
// variables (inputs, outputs, privates) shadowed by deep copies so
// sibling invocations do not observe each other's writes. index and
// count position the invocation within its workgroup (used by
// cooperative-matrix partitioning); a solo run is (0, 1).
func (p *Program) NewInvocation(ep *idtable.EntryPoint, index, count uint32) (*Invocation, error) {
	fnData, err := p.Globals.At(ep.FunctionID)
	if err != nil {
		return nil, err
	}
	fn := fnData.Function()
	if fn == nil {
		return nil, ierr.NewMalformedModule("entry point %q names id %d, which is not a function", ep.Name, ep.FunctionID)
	}
	view := p.Globals.Layer()
	for _, id := range ep.Interface {
		d, err := p.Globals.At(id)
		if err != nil {
			return nil, err
		}
		va := d.Variable()
		if va == nil || sharedStorage(va.Storage) {
			continue
		}
		view.Set(id, d.Clone())
	}
	inv := &Invocation{prog: p, view: view, index: index, count: count, stop: &atomic.Bool{}}
	inv.frames.Push(newFrame(fn.Location+1, nil, 0, view.Layer()))
	return inv, nil
}

// sharedStorage reports whether a storage class is shared across the
// invocations of a workgroup rather than copied per invocation.
func sharedStorage(sc value.StorageClass) bool {
	switch sc {
	case value.StorageUniform, value.StorageUniformConstant,
		value.StorageStorageBuffer, value.StorageWorkgroup, value.StoragePushConstant:
		return true
	default:
		return false
	}
}

// Status returns the invocation's scheduling state.
func (inv *Invocation) Status() Status { return inv.status }

// View returns the invocation's DataView layer (the one shadowing the
// globals, beneath any call-frame layers).
func (inv *Invocation) View() *idtable.DataView { return inv.view }

// Cancel requests a cooperative stop; the next Step returns a
// Cancelled error.
func (inv *Invocation) Cancel() { inv.stop.Store(true) }

// Variable resolves an interface variable by name through the
// invocation's own view, so a shadowed per-invocation output is the
// invocation's copy, not the global one.
func (inv *Invocation) Variable(ep *idtable.EntryPoint, name string) (*idtable.Variable, error) {
	for _, id := range ep.Interface {
		d, err := inv.view.At(id)
		if err != nil {
			return nil, err
		}
		if va := d.Variable(); va != nil && va.Name == name {
			return va, nil
		}
	}
	return nil, ierr.NewOutOfBounds("no interface variable named %q", name)
}

// Step dispatches exactly one instruction. The cancellation flag is
// checked before any dispatch; a stop surfaces as a Cancelled error
// with no partial opcode effects.
func (inv *Invocation) Step() error {
	if inv.stop.Load() {
		return &ierr.CancelledError{}
	}
	if inv.frames.Empty() {
		inv.status = StatusDone
		return nil
	}
	frame := inv.frames.Top()
	pc := frame.PC()
	if pc < 0 || pc >= inv.prog.Module.Insts.Len() {
		return ierr.NewOutOfBounds("program counter %d outside the instruction list", pc)
	}
	inst := inv.prog.Module.Insts.At(pc)
	advanced, err := inv.dispatch(frame, inst)
	if err != nil {
		return ierr.AtInstruction(pc, err)
	}
	if !advanced {
		if err := frame.IncPC(); err != nil {
			return ierr.AtInstruction(pc, err)
		}
	}
	if inv.frames.Empty() {
		inv.status = StatusDone
	}
	return nil
}

// Run steps the invocation until it terminates or suspends at a
// barrier.
func (inv *Invocation) Run() error {
	for inv.status == StatusActive {
		if err := inv.Step(); err != nil {
			inv.status = StatusDone
			return err
		}
	}
	return nil
}

// --- id-table access helpers ---

func (inv *Invocation) data(frame *Frame, id uint32) (*idtable.Data, error) {
	return frame.View().At(id)
}

// val resolves id to the runtime Value it names: a plain Value slot
// directly, a Variable via its pointee.
func (inv *Invocation) val(frame *Frame, id uint32) (value.Value, error) {
	d, err := inv.data(frame, id)
	if err != nil {
		return nil, err
	}
	switch d.Kind() {
	case idtable.KindValue:
		return d.Value(), nil
	case idtable.KindVariable:
		return d.Variable().InitValue(true), nil
	default:
		return nil, ierr.NewMalformedModule("id %d names a %s, not a value", id, d.Kind())
	}
}

func (inv *Invocation) primitive(frame *Frame, id uint32) (*value.Primitive, error) {
	v, err := inv.val(frame, id)
	if err != nil {
		return nil, err
	}
	p, ok := v.(*value.Primitive)
	if !ok {
		return nil, ierr.NewShapeMismatch("id %d is not a scalar", id)
	}
	return p, nil
}

func (inv *Invocation) typ(frame *Frame, id uint32) (*value.Type, error) {
	d, err := inv.data(frame, id)
	if err != nil {
		return nil, err
	}
	if d.Kind() != idtable.KindType || d.Type() == nil {
		return nil, ierr.NewMalformedModule("id %d does not name a type", id)
	}
	return d.Type(), nil
}

// makeResult constructs a fresh Value of the instruction's result type
// and installs it at the result id in the frame's view.
func (inv *Invocation) makeResult(frame *Frame, inst spv.Instruction) (value.Value, error) {
	t, err := inv.typ(frame, inst.ResultType)
	if err != nil {
		return nil, err
	}
	v := t.Construct(true)
	frame.View().Set(inst.Result, idtable.NewValue(v))
	return v, nil
}

// setResult installs an existing Value (e.g. an access-chain alias) at
// the result id.
func (inv *Invocation) setResult(frame *Frame, inst spv.Instruction, v value.Value) {
	frame.View().Set(inst.Result, idtable.NewValue(v))
}

// dispatch applies one opcode. It returns true when the handler
// already advanced (or replaced) the program counter.
func (inv *Invocation) dispatch(frame *Frame, inst spv.Instruction) (bool, error) {
	switch inst.Op {
	// Declarations already handled during load are passed over.
	case spv.OpNop, spv.OpSource, spv.OpSourceContinued, spv.OpSourceExtension,
		spv.OpName, spv.OpMemberName, spv.OpLine, spv.OpExtension, spv.OpMemoryModel,
		spv.OpExecutionMode, spv.OpCapability, spv.OpDecorate, spv.OpMemberDecorate,
		spv.OpSelectionMerge, spv.OpLoopMerge, spv.OpFunction, spv.OpMemoryBarrier,
		spv.OpString, spv.OpExtInstImport:
		return false, nil

	case spv.OpLabel:
		frame.EnterBlock(inst.Result)
		return false, nil

	case spv.OpUndef:
		_, err := inv.makeResult(frame, inst)
		return false, err

	case spv.OpFunctionParameter:
		arg, err := frame.GetArg()
		if err != nil {
			return true, err
		}
		inv.setResult(frame, inst, arg)
		return true, nil

	case spv.OpFunctionCall:
		return inv.opFunctionCall(frame, inst)
	case spv.OpReturn:
		return inv.opReturn(frame, nil)
	case spv.OpReturnValue:
		v, err := inv.val(frame, inst.Operand(0))
		if err != nil {
			return true, err
		}
		return inv.opReturn(frame, v)
	case spv.OpFunctionEnd:
		return true, ierr.NewMalformedModule("fell off the end of a function without a return")

	case spv.OpBranch:
		return inv.branchTo(frame, inst.Operand(0))
	case spv.OpBranchConditional:
		cond, err := inv.primitive(frame, inst.Operand(0))
		if err != nil {
			return true, err
		}
		if cond.Bool() {
			return inv.branchTo(frame, inst.Operand(1))
		}
		return inv.branchTo(frame, inst.Operand(2))
	case spv.OpSwitch:
		return inv.opSwitch(frame, inst)
	case spv.OpPhi:
		return false, inv.opPhi(frame, inst)

	case spv.OpKill, spv.OpTerminateInvocation:
		inv.frames.Clear()
		inv.status = StatusDone
		return true, nil
	case spv.OpUnreachable:
		return true, ierr.NewMalformedModule("reached an OpUnreachable block")

	case spv.OpControlBarrier:
		inv.status = StatusAtBarrier
		return false, nil

	case spv.OpVariable:
		return false, inv.opLocalVariable(frame, inst)
	case spv.OpLoad, spv.OpAtomicLoad:
		return false, inv.opLoad(frame, inst)
	case spv.OpStore, spv.OpAtomicStore:
		return false, inv.opStore(frame, inst)
	case spv.OpCopyMemory:
		return false, inv.opCopyMemory(frame, inst)
	case spv.OpAccessChain, spv.OpImageTexelPointer:
		return false, inv.opAccessChain(frame, inst)
	case spv.OpCopyObject:
		return false, inv.opCopyObject(frame, inst)
	case spv.OpAtomicExchange, spv.OpAtomicIAdd, spv.OpAtomicISub:
		return false, inv.opAtomicRMW(frame, inst)

	case spv.OpVectorExtractDynamic, spv.OpVectorInsertDynamic, spv.OpVectorShuffle,
		spv.OpCompositeConstruct, spv.OpCompositeExtract, spv.OpCompositeInsert,
		spv.OpTranspose:
		return false, inv.dispatchComposite(frame, inst)

	case spv.OpExtInst:
		return false, inv.opExtInst(frame, inst)

	case spv.OpImageSampleImplicitLod, spv.OpImageSampleExplicitLod, spv.OpImageFetch,
		spv.OpImageRead, spv.OpImageWrite, spv.OpImageQuerySize, spv.OpImageQuerySizeLod:
		return false, inv.dispatchImage(frame, inst)

	case spv.OpTraceRayKHR, spv.OpExecuteCallableKHR,
		spv.OpRayQueryInitializeKHR, spv.OpRayQueryTerminateKHR,
		spv.OpRayQueryGenerateIntersectionKHR, spv.OpRayQueryConfirmIntersectionKHR,
		spv.OpRayQueryProceedKHR, spv.OpRayQueryGetIntersectionTypeKHR:
		return false, inv.dispatchRayTracing(frame, inst)

	case spv.OpCooperativeMatrixLoadKHR, spv.OpCooperativeMatrixStoreKHR,
		spv.OpCooperativeMatrixMulAddKHR, spv.OpCooperativeMatrixLengthKHR:
		return false, inv.dispatchCoopMatrix(frame, inst)

	case spv.OpGroupNonUniformBallot:
		return false, ierr.NewUnsupportedFeature("group ballot operations are not implemented")

	default:
		return false, inv.dispatchMath(frame, inst)
	}
}

func (inv *Invocation) opFunctionCall(frame *Frame, inst spv.Instruction) (bool, error) {
	fnData, err := inv.data(frame, inst.Operand(0))
	if err != nil {
		return true, err
	}
	fn := fnData.Function()
	if fn == nil {
		return true, ierr.NewMalformedModule("call target id %d is not a function", inst.Operand(0))
	}
	args := make([]value.Value, 0, inst.Arity()-1)
	for i := 1; i < inst.Arity(); i++ {
		v, err := inv.val(frame, inst.Operand(i))
		if err != nil {
			return true, err
		}
		args = append(args, v)
	}
	// The caller resumes past the call once the callee returns.
	if err := frame.IncPC(); err != nil {
		return true, err
	}
	inv.frames.Push(newFrame(fn.Location+1, args, inst.Result, frame.View().Layer()))
	return true, nil
}

func (inv *Invocation) opReturn(frame *Frame, retVal value.Value) (bool, error) {
	popped := inv.frames.Pop()
	if popped.RetAt() != 0 && retVal != nil && !inv.frames.Empty() {
		caller := inv.frames.Top()
		out := retVal.Type().MustConstruct()
		if err := out.CopyFrom(retVal); err != nil {
			return true, err
		}
		caller.View().Set(popped.RetAt(), idtable.NewValue(out))
	}
	return true, nil
}

func (inv *Invocation) branchTo(frame *Frame, label uint32) (bool, error) {
	target, ok := inv.prog.labels[label]
	if !ok {
		return true, ierr.NewMalformedModule("branch to unknown label id %d", label)
	}
	return true, frame.SetPC(target)
}

func (inv *Invocation) opSwitch(frame *Frame, inst spv.Instruction) (bool, error) {
	sel, err := inv.primitive(frame, inst.Operand(0))
	if err != nil {
		return true, err
	}
	target := inst.Operand(1)
	for i := 2; i+1 < inst.Arity(); i += 2 {
		if inst.Operand(i) == sel.Uint() {
			target = inst.Operand(i + 1)
			break
		}
	}
	return inv.branchTo(frame, target)
}

func (inv *Invocation) opPhi(frame *Frame, inst spv.Instruction) error {
	for i := 0; i+1 < inst.Arity(); i += 2 {
		if inst.Operand(i+1) != frame.prevBlock {
			continue
		}
		src, err := inv.val(frame, inst.Operand(i))
		if err != nil {
			return err
		}
		res, err := inv.makeResult(frame, inst)
		if err != nil {
			return err
		}
		return res.CopyFrom(src)
	}
	return ierr.NewMalformedModule("phi has no incoming edge from block %d", frame.prevBlock)
}

func (inv *Invocation) opLocalVariable(frame *Frame, inst spv.Instruction) error {
	t, err := inv.typ(frame, inst.ResultType)
	if err != nil {
		return err
	}
	if t.Base() != value.BasePointer {
		return ierr.NewMalformedModule("variable result type must be a pointer, got %s", t.Base())
	}
	va := idtable.NewVariable(inv.prog.names[inst.Result], t, translateStorage(spv.StorageClass(inst.Operand(0))))
	va.InitValue(true)
	if inst.Arity() > 1 {
		init, err := inv.val(frame, inst.Operand(1))
		if err != nil {
			return err
		}
		if err := va.Pointee().CopyFrom(init); err != nil {
			return err
		}
	}
	frame.View().Set(inst.Result, idtable.NewVariableData(va))
	return nil
}

func (inv *Invocation) opLoad(frame *Frame, inst spv.Instruction) error {
	src, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return res.CopyFrom(src)
}

func (inv *Invocation) opStore(frame *Frame, inst spv.Instruction) error {
	dst, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	var srcID uint32
	if inst.Op == spv.OpAtomicStore {
		srcID = inst.Operand(3)
	} else {
		srcID = inst.Operand(1)
	}
	src, err := inv.val(frame, srcID)
	if err != nil {
		return err
	}
	return dst.CopyFrom(src)
}

func (inv *Invocation) opCopyMemory(frame *Frame, inst spv.Instruction) error {
	dst, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	src, err := inv.val(frame, inst.Operand(1))
	if err != nil {
		return err
	}
	return dst.CopyFrom(src)
}

func (inv *Invocation) opCopyObject(frame *Frame, inst spv.Instruction) error {
	src, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	return res.CopyFrom(src)
}

// opAccessChain walks the base pointer's value tree by the chain of
// index ids (each resolved to a scalar) and installs the reached sub-value, aliased rather than
// copied, at the result id: loads read through it and stores write
// through it into the variable's tree.
func (inv *Invocation) opAccessChain(frame *Frame, inst spv.Instruction) error {
	cur, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	for i := 1; i < inst.Arity(); i++ {
		idx, err := inv.primitive(frame, inst.Operand(i))
		if err != nil {
			return err
		}
		cur, err = indexInto(cur, int(idx.Int()))
		if err != nil {
			return err
		}
	}
	inv.setResult(frame, inst, cur)
	return nil
}

func indexInto(v value.Value, i int) (value.Value, error) {
	switch c := v.(type) {
	case *value.Array:
		if i < 0 || i >= c.Len() {
			return nil, ierr.NewOutOfBounds("index %d outside array of %d elements", i, c.Len())
		}
		return c.At(i), nil
	case *value.CoopMatrix:
		if i < 0 || i >= c.Len() {
			return nil, ierr.NewOutOfBounds("index %d outside matrix slice of %d elements", i, c.Len())
		}
		return c.At(i), nil
	case *value.Struct:
		if i < 0 || i >= c.Len() {
			return nil, ierr.NewOutOfBounds("member %d outside struct of %d fields", i, c.Len())
		}
		return c.At(i), nil
	default:
		return nil, ierr.NewShapeMismatch("cannot index into a %T", v)
	}
}

// opAtomicRMW covers exchange/add/sub. The executor is cooperative and
// single-threaded between barriers, so the read-modify-write is
// trivially atomic; the scope and semantics operands are accepted and
// ignored.
func (inv *Invocation) opAtomicRMW(frame *Frame, inst spv.Instruction) error {
	ptr, err := inv.val(frame, inst.Operand(0))
	if err != nil {
		return err
	}
	target, ok := ptr.(*value.Primitive)
	if !ok {
		return ierr.NewShapeMismatch("atomic target is not a scalar")
	}
	operand, err := inv.primitive(frame, inst.Operand(3))
	if err != nil {
		return err
	}
	old := target.Bits()
	res, err := inv.makeResult(frame, inst)
	if err != nil {
		return err
	}
	resPrim, ok := res.(*value.Primitive)
	if !ok {
		return ierr.NewShapeMismatch("atomic result type is not a scalar")
	}
	resPrim.SetBits(old)
	switch inst.Op {
	case spv.OpAtomicExchange:
		target.SetBits(operand.Bits())
	case spv.OpAtomicIAdd:
		target.SetBits(old + operand.Bits())
	case spv.OpAtomicISub:
		target.SetBits(old - operand.Bits())
	}
	return nil
}
