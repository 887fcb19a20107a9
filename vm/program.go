package vm

import (
	"github.com/gogpu/spirvm/console"
	"github.com/gogpu/spirvm/idtable"
	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/spv"
	"github.com/gogpu/spirvm/value"
)

// Program is a loaded module: the decoded instruction list plus the
// global id table populated from its declarations. The global table's
// bindings are built once here and never rebound during execution:
// each invocation's results and shadowed variables go to its own
// DataView layer, while variables in shared storage classes (see
// sharedStorage) are written in place through their global binding.
type Program struct {
	Module  *spv.Module
	Globals *idtable.DataView
	Entries []*idtable.EntryPoint

	labels map[uint32]int
	names  map[uint32]string
	cons   console.Sink
}

// Load runs the load phase over every instruction: type, constant, and
// module-scope variable declarations populate the global table,
// functions and entry points are recorded, and labels are indexed for
// branching. specConsts supplies externally resolved values for
// spec constants, keyed by their debug (OpName) names.
func Load(m *spv.Module, sink console.Sink, specConsts map[string]value.Value) (*Program, error) {
	p := &Program{
		Module:  m,
		Globals: idtable.NewDataView(m.Header.Bound),
		labels:  make(map[uint32]int),
		names:   make(map[uint32]string),
		cons:    sink,
	}

	// Debug names come lexically before the declarations they name.
	memberNames := make(map[uint32][]string)
	for _, inst := range m.Insts.Insts {
		switch inst.Op {
		case spv.OpName:
			s, _ := spv.DecodeString(inst.Operands[1:])
			p.names[inst.Operand(0)] = s
		case spv.OpMemberName:
			id := inst.Operand(0)
			idx := int(inst.Operand(1))
			s, _ := spv.DecodeString(inst.Operands[2:])
			for len(memberNames[id]) <= idx {
				memberNames[id] = append(memberNames[id], "")
			}
			memberNames[id][idx] = s
		}
	}

	inFunction := false
	for i, inst := range m.Insts.Insts {
		if inFunction {
			switch inst.Op {
			case spv.OpLabel:
				p.labels[inst.Result] = i
			case spv.OpFunctionEnd:
				inFunction = false
			}
			continue
		}
		if err := p.loadInst(i, inst, memberNames, specConsts); err != nil {
			return nil, ierr.AtInstruction(i, err)
		}
		if inst.Op == spv.OpFunction {
			inFunction = true
		}
	}
	return p, nil
}

// Console returns the diagnostic sink the program was loaded with.
func (p *Program) Console() console.Sink { return p.cons }

// Name returns the debug name recorded for id, or "".
func (p *Program) Name(id uint32) string { return p.names[id] }

func (p *Program) warn(msg string) {
	if p.cons != nil {
		p.cons.Warn(msg)
	}
}

func (p *Program) typeAt(id uint32) (*value.Type, error) {
	d, err := p.Globals.At(id)
	if err != nil {
		return nil, err
	}
	if d.Kind() != idtable.KindType || d.Type() == nil {
		return nil, ierr.NewMalformedModule("id %d does not name a type (it is a %s)", id, d.Kind())
	}
	return d.Type(), nil
}

func (p *Program) constUint(id uint32) (uint32, error) {
	d, err := p.Globals.At(id)
	if err != nil {
		return 0, err
	}
	prim, ok := d.Value().(*value.Primitive)
	if d.Kind() != idtable.KindValue || !ok {
		return 0, ierr.NewMalformedModule("id %d does not name an integer constant", id)
	}
	return prim.Uint(), nil
}

func (p *Program) setType(id uint32, t *value.Type) {
	p.Globals.Set(id, idtable.NewType(t))
}

func (p *Program) loadInst(idx int, inst spv.Instruction, memberNames map[uint32][]string, specConsts map[string]value.Value) error {
	switch inst.Op {
	case spv.OpTypeVoid:
		p.setType(inst.Result, value.NewVoid())
	case spv.OpTypeBool:
		p.setType(inst.Result, value.NewBool())
	case spv.OpTypeInt:
		width := inst.Operand(0)
		if width > 32 {
			p.warn("64-bit integers are emulated at 32 bits; upper words are dropped")
		}
		if inst.Operand(1) != 0 {
			p.setType(inst.Result, value.NewInt(uint8(width)))
		} else {
			p.setType(inst.Result, value.NewUint(uint8(width)))
		}
	case spv.OpTypeFloat:
		width := inst.Operand(0)
		if width > 32 {
			p.warn("64-bit floats are emulated at 32 bits; precision is reduced")
		}
		p.setType(inst.Result, value.NewFloat(uint8(width)))
	case spv.OpTypeVector, spv.OpTypeMatrix:
		elem, err := p.typeAt(inst.Operand(0))
		if err != nil {
			return err
		}
		p.setType(inst.Result, value.NewArray(inst.Operand(1), elem))
	case spv.OpTypeArray:
		elem, err := p.typeAt(inst.Operand(0))
		if err != nil {
			return err
		}
		count, err := p.constUint(inst.Operand(1))
		if err != nil {
			return err
		}
		p.setType(inst.Result, value.NewArray(count, elem))
	case spv.OpTypeRuntimeArray:
		elem, err := p.typeAt(inst.Operand(0))
		if err != nil {
			return err
		}
		p.setType(inst.Result, value.NewArray(0, elem))
	case spv.OpTypeStruct:
		fields := make([]*value.Type, inst.Arity())
		for i := range fields {
			t, err := p.typeAt(inst.Operand(i))
			if err != nil {
				return err
			}
			fields[i] = t
		}
		names := memberNames[inst.Result]
		for len(names) < len(fields) {
			names = append(names, "")
		}
		p.setType(inst.Result, value.NewStruct(fields, names))
	case spv.OpTypePointer:
		pointee, err := p.typeAt(inst.Operand(1))
		if err != nil {
			return err
		}
		p.setType(inst.Result, value.NewPointer(translateStorage(spv.StorageClass(inst.Operand(0))), pointee))
	case spv.OpTypeFunction:
		ret, err := p.typeAt(inst.Operand(0))
		if err != nil {
			return err
		}
		params := make([]*value.Type, inst.Arity()-1)
		for i := range params {
			t, err := p.typeAt(inst.Operand(i + 1))
			if err != nil {
				return err
			}
			params[i] = t
		}
		p.setType(inst.Result, value.NewFunction(ret, params))
	case spv.OpTypeImage:
		p.setType(inst.Result, imageTypeFrom(inst, p))
	case spv.OpTypeSampler:
		p.setType(inst.Result, value.NewSampler())
	case spv.OpTypeSampledImage:
		img, err := p.typeAt(inst.Operand(0))
		if err != nil {
			return err
		}
		p.setType(inst.Result, value.NewSampledImage(img))
	case spv.OpTypeAccelerationStructureKHR, spv.OpTypeRayQueryKHR:
		p.setType(inst.Result, value.NewAccelStruct())
	case spv.OpTypeCooperativeMatrixKHR:
		elem, err := p.typeAt(inst.Operand(0))
		if err != nil {
			return err
		}
		rows, err := p.constUint(inst.Operand(2))
		if err != nil {
			return err
		}
		cols, err := p.constUint(inst.Operand(3))
		if err != nil {
			return err
		}
		p.setType(inst.Result, value.NewCoopMatrix(rows*cols, rows, cols, elem))
	case spv.OpTypeOpaque:
		p.warn("opaque type declarations have no runtime representation")
		p.setType(inst.Result, value.NewVoid())

	case spv.OpConstant, spv.OpSpecConstant:
		return p.loadConstant(inst, specConsts)
	case spv.OpConstantTrue, spv.OpSpecConstantTrue:
		return p.loadBoolConstant(inst, true, specConsts)
	case spv.OpConstantFalse, spv.OpSpecConstantFalse:
		return p.loadBoolConstant(inst, false, specConsts)
	case spv.OpConstantComposite, spv.OpSpecConstantComposite:
		t, err := p.typeAt(inst.ResultType)
		if err != nil {
			return err
		}
		v := t.Construct(false)
		for i := 0; i < inst.Arity(); i++ {
			elem, err := p.Globals.At(inst.Operand(i))
			if err != nil {
				return err
			}
			if err := compositeElement(v, i).CopyFrom(elem.Value()); err != nil {
				return err
			}
		}
		p.Globals.Set(inst.Result, idtable.NewValue(v))
	case spv.OpConstantNull:
		t, err := p.typeAt(inst.ResultType)
		if err != nil {
			return err
		}
		p.Globals.Set(inst.Result, idtable.NewValue(t.Construct(false)))
	case spv.OpSpecConstantOp:
		t, err := p.typeAt(inst.ResultType)
		if err != nil {
			return err
		}
		p.warn("spec-constant operations are not evaluated; the result is left undefined")
		p.Globals.Set(inst.Result, idtable.NewValue(t.Construct(true)))

	case spv.OpVariable:
		return p.loadVariable(inst)
	case spv.OpFunction:
		t, err := p.typeAt(inst.Operand(1))
		if err != nil {
			return err
		}
		fn := idtable.NewFunction(p.names[inst.Result], t, idx)
		p.Globals.Set(inst.Result, idtable.NewFunctionData(fn))
	case spv.OpEntryPoint:
		name, consumed := spv.DecodeString(inst.Operands[2:])
		iface := inst.Operands[2+consumed:]
		ep := idtable.NewEntryPoint(name, inst.Operand(1), inst.Operand(0), iface)
		p.Entries = append(p.Entries, ep)
		p.Globals.Set(inst.Operand(1), mergeEntryPoint(p.Globals, inst.Operand(1), ep))
	case spv.OpString:
		s, _ := spv.DecodeString(inst.Operands)
		p.Globals.Set(inst.Result, idtable.NewValue(value.NewStringValue(s)))
	case spv.OpExtInstImport:
		s, _ := spv.DecodeString(inst.Operands)
		p.Globals.Set(inst.Result, idtable.NewValue(value.NewStringValue(s)))

	case spv.OpNop, spv.OpSource, spv.OpSourceContinued, spv.OpSourceExtension,
		spv.OpName, spv.OpMemberName, spv.OpLine, spv.OpExtension, spv.OpMemoryModel,
		spv.OpExecutionMode, spv.OpCapability, spv.OpDecorate, spv.OpMemberDecorate,
		spv.OpFunctionEnd:
		// Load phase passes these over; they carry no runtime state.
	case spv.OpUndef:
		t, err := p.typeAt(inst.ResultType)
		if err != nil {
			return err
		}
		p.Globals.Set(inst.Result, idtable.NewValue(t.Construct(true)))
	default:
		return ierr.NewMalformedModule("opcode %d is not valid outside a function body", inst.Op)
	}
	return nil
}

// mergeEntryPoint keeps the function binding when OpEntryPoint names a
// function declared later in the stream (the entry-point declaration
// comes first in the physical layout, so the slot is usually still
// undefined here).
func mergeEntryPoint(view *idtable.DataView, id uint32, ep *idtable.EntryPoint) *idtable.Data {
	if view.Contains(id) {
		if d := view.Ref(id); d.Kind() == idtable.KindFunction {
			return d
		}
	}
	return idtable.NewEntryPointData(ep)
}

func (p *Program) loadConstant(inst spv.Instruction, specConsts map[string]value.Value) error {
	t, err := p.typeAt(inst.ResultType)
	if err != nil {
		return err
	}
	prim, ok := t.Construct(false).(*value.Primitive)
	if !ok {
		return ierr.NewMalformedModule("constant result type must be a numeric scalar, got %s", t.Base())
	}
	bits := inst.Operand(0)
	switch {
	case t.Base() == value.BaseFloat && t.Width() == 16:
		promoted, err := value.FPConvertTypeToEmu(bits, 16)
		if err != nil {
			return err
		}
		bits = promoted
	case t.Width() > 32:
		p.warn("64-bit constant truncated to its low word")
	}
	prim.SetBits(bits)
	if inst.Op == spv.OpSpecConstant {
		p.applySpecOverride(inst.Result, prim, specConsts)
	}
	p.Globals.Set(inst.Result, idtable.NewValue(prim))
	return nil
}

func (p *Program) loadBoolConstant(inst spv.Instruction, val bool, specConsts map[string]value.Value) error {
	prim := value.NewBoolValue(val)
	if inst.Op == spv.OpSpecConstantTrue || inst.Op == spv.OpSpecConstantFalse {
		p.applySpecOverride(inst.Result, prim, specConsts)
	}
	p.Globals.Set(inst.Result, idtable.NewValue(prim))
	return nil
}

func (p *Program) applySpecOverride(id uint32, prim *value.Primitive, specConsts map[string]value.Value) {
	name := p.names[id]
	if name == "" {
		return
	}
	override, ok := specConsts[name]
	if !ok {
		return
	}
	if err := prim.CopyReinterp(override); err != nil {
		p.warn("spec constant " + name + " override ignored: " + err.Error())
	}
}

func (p *Program) loadVariable(inst spv.Instruction) error {
	t, err := p.typeAt(inst.ResultType)
	if err != nil {
		return err
	}
	if t.Base() != value.BasePointer {
		return ierr.NewMalformedModule("variable result type must be a pointer, got %s", t.Base())
	}
	va := idtable.NewVariable(p.names[inst.Result], t, translateStorage(spv.StorageClass(inst.Operand(0))))
	va.InitValue(true)
	if inst.Arity() > 1 {
		init, err := p.Globals.At(inst.Operand(1))
		if err != nil {
			return err
		}
		if init.Value() != nil {
			if err := va.Pointee().CopyFrom(init.Value()); err != nil {
				return err
			}
		}
	}
	p.Globals.Set(inst.Result, idtable.NewVariableData(va))
	return nil
}

// compositeElement indexes into an aggregate the way composite
// constants are filled: Arrays and Structs by element, CoopMatrix via
// its embedded Array.
func compositeElement(v value.Value, i int) value.Value {
	switch c := v.(type) {
	case *value.Array:
		return c.At(i)
	case *value.CoopMatrix:
		return c.At(i)
	case *value.Struct:
		return c.At(i)
	default:
		return v
	}
}

func translateStorage(sc spv.StorageClass) value.StorageClass {
	switch sc {
	case spv.StorageClassUniformConstant:
		return value.StorageUniformConstant
	case spv.StorageClassInput:
		return value.StorageInput
	case spv.StorageClassUniform:
		return value.StorageUniform
	case spv.StorageClassOutput:
		return value.StorageOutput
	case spv.StorageClassWorkgroup:
		return value.StorageWorkgroup
	case spv.StorageClassCrossWorkgroup:
		return value.StorageCrossWorkgroup
	case spv.StorageClassPrivate:
		return value.StoragePrivate
	case spv.StorageClassGeneric:
		return value.StorageGeneric
	case spv.StorageClassPushConstant:
		return value.StoragePushConstant
	case spv.StorageClassAtomicCounter:
		return value.StorageAtomicCounter
	case spv.StorageClassImage:
		return value.StorageImage
	case spv.StorageClassStorageBuffer:
		return value.StorageStorageBuffer
	default:
		return value.StorageFunction
	}
}

// imageTypeFrom maps OpTypeImage's dim and format enumerants onto the
// interpreter's Image shape. Unlisted formats default to four packed
// channels.
func imageTypeFrom(inst spv.Instruction, p *Program) *value.Type {
	var dim value.ImageDim
	switch inst.Operand(1) {
	case 0:
		dim = value.Dim1D
	case 1:
		dim = value.Dim2D
	case 2:
		dim = value.Dim3D
	case 3:
		dim = value.DimCube
	default:
		p.warn("unsupported image dimensionality; treating as 2D")
		dim = value.Dim2D
	}
	comps := value.Components{R: 1, G: 2, B: 3, A: 4, Count: 4}
	switch inst.Operand(6) {
	case 3, 15, 9, 33: // R32f, R8, R16f, R32ui collapse to one channel
		comps = value.Components{R: 1, Count: 1}
	case 6, 7, 12: // Rg32f, Rg16f, Rg16
		comps = value.Components{R: 1, G: 2, Count: 2}
	}
	return value.NewImage(dim, 1, comps)
}

// EntryPoint selects an entry point by name; with name == "" a module
// exporting exactly one entry point selects it implicitly.
func (p *Program) EntryPoint(name string) (*idtable.EntryPoint, error) {
	if name == "" {
		if len(p.Entries) == 1 {
			return p.Entries[0], nil
		}
		return nil, ierr.NewMalformedModule("module has %d entry points; one must be named", len(p.Entries))
	}
	for _, ep := range p.Entries {
		if ep.Name == name {
			return ep, nil
		}
	}
	return nil, ierr.NewMalformedModule("no entry point named %q", name)
}

// InterfaceVariable finds the entry point's interface Variable with
// the given debug name.
func (p *Program) InterfaceVariable(ep *idtable.EntryPoint, name string) (*idtable.Variable, error) {
	for _, id := range ep.Interface {
		d, err := p.Globals.At(id)
		if err != nil {
			return nil, err
		}
		if va := d.Variable(); va != nil && va.Name == name {
			return va, nil
		}
	}
	return nil, ierr.NewOutOfBounds("entry point %q has no interface variable named %q", ep.Name, name)
}

// InputVariables returns the entry point's input-facing interface
// variables (storage classes an external document may bind).
func (p *Program) InputVariables(ep *idtable.EntryPoint) []*idtable.Variable {
	return p.interfaceByStorage(ep, value.StorageInput, value.StorageUniform,
		value.StorageUniformConstant, value.StoragePushConstant, value.StorageStorageBuffer)
}

// OutputVariables returns the entry point's externally observable
// output variables.
func (p *Program) OutputVariables(ep *idtable.EntryPoint) []*idtable.Variable {
	return p.interfaceByStorage(ep, value.StorageOutput, value.StorageStorageBuffer)
}

func (p *Program) interfaceByStorage(ep *idtable.EntryPoint, classes ...value.StorageClass) []*idtable.Variable {
	var out []*idtable.Variable
	for _, id := range ep.Interface {
		d, err := p.Globals.At(id)
		if err != nil {
			continue
		}
		va := d.Variable()
		if va == nil {
			continue
		}
		for _, sc := range classes {
			if va.Storage == sc {
				out = append(out, va)
				break
			}
		}
	}
	return out
}
