package vm

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/spirvm/idtable"
	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/spv"
	"github.com/gogpu/spirvm/value"
)

func words(bound uint32, insts ...[]uint32) []uint32 {
	out := []uint32{spv.MagicNumber, 0x00010600, 0, bound, 0}
	for _, inst := range insts {
		out = append(out, inst...)
	}
	return out
}

func op(code spv.OpCode, operands ...uint32) []uint32 {
	out := []uint32{uint32(len(operands)+1)<<16 | uint32(code)}
	return append(out, operands...)
}

func str(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

func f32(f float32) uint32 { return math.Float32bits(f) }

func cat(parts ...[]uint32) []uint32 {
	var out []uint32
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func loadProgram(t *testing.T, stream []uint32) *Program {
	t.Helper()
	m, err := spv.DecodeWords(stream)
	if err != nil {
		t.Fatalf("DecodeWords failed: %v", err)
	}
	prog, err := Load(m, nil, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return prog
}

func runEntry(t *testing.T, prog *Program) (*Invocation, *idtable.EntryPoint) {
	t.Helper()
	ep, err := prog.EntryPoint("")
	if err != nil {
		t.Fatalf("EntryPoint failed: %v", err)
	}
	inv, err := prog.NewInvocation(ep, 0, 1)
	if err != nil {
		t.Fatalf("NewInvocation failed: %v", err)
	}
	if err := inv.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return inv, ep
}

func outputFloat(t *testing.T, inv *Invocation, ep *idtable.EntryPoint, name string) float32 {
	t.Helper()
	va, err := inv.Variable(ep, name)
	if err != nil {
		t.Fatalf("Variable(%q) failed: %v", name, err)
	}
	p, ok := va.Pointee().(*value.Primitive)
	if !ok {
		t.Fatalf("output %q is not a scalar", name)
	}
	return p.Float()
}

func outputUint(t *testing.T, inv *Invocation, ep *idtable.EntryPoint, name string) uint32 {
	t.Helper()
	va, err := inv.Variable(ep, name)
	if err != nil {
		t.Fatalf("Variable(%q) failed: %v", name, err)
	}
	p, ok := va.Pointee().(*value.Primitive)
	if !ok {
		t.Fatalf("output %q is not a scalar", name)
	}
	return p.Uint()
}

// floatAddModule stores 1.5 + 2.25 into an Output float.
//
//	%1 void  %2 fn-type  %3 float  %4 ptr  %5/%6 consts  %7 out  %8 main
func floatAddModule() []uint32 {
	return words(12,
		op(spv.OpCapability, 1),
		op(spv.OpMemoryModel, 0, 1),
		op(spv.OpEntryPoint, cat([]uint32{5, 8}, str("main"), []uint32{7})...),
		op(spv.OpName, cat([]uint32{7}, str("out"))...),
		op(spv.OpTypeVoid, 1),
		op(spv.OpTypeFunction, 2, 1),
		op(spv.OpTypeFloat, 3, 32),
		op(spv.OpTypePointer, 4, 3, 3),
		op(spv.OpConstant, 3, 5, f32(1.5)),
		op(spv.OpConstant, 3, 6, f32(2.25)),
		op(spv.OpVariable, 4, 7, 3),
		op(spv.OpFunction, 1, 8, 0, 2),
		op(spv.OpLabel, 9),
		op(spv.OpFAdd, 3, 10, 5, 6),
		op(spv.OpStore, 7, 10),
		op(spv.OpReturn),
		op(spv.OpFunctionEnd),
	)
}

func TestExecuteFloatAdd(t *testing.T) {
	prog := loadProgram(t, floatAddModule())
	inv, ep := runEntry(t, prog)
	if got := outputFloat(t, inv, ep, "out"); got != 3.75 {
		t.Errorf("out = %v, want 3.75", got)
	}
}

func TestExecuteFunctionCall(t *testing.T) {
	// double(x) { return x + x } called with 3.0.
	stream := words(20,
		op(spv.OpEntryPoint, cat([]uint32{5, 8}, str("main"), []uint32{7})...),
		op(spv.OpName, cat([]uint32{7}, str("out"))...),
		op(spv.OpTypeVoid, 1),
		op(spv.OpTypeFunction, 2, 1),
		op(spv.OpTypeFloat, 3, 32),
		op(spv.OpTypePointer, 4, 3, 3),
		op(spv.OpTypeFunction, 11, 3, 3),
		op(spv.OpConstant, 3, 5, f32(3.0)),
		op(spv.OpVariable, 4, 7, 3),
		op(spv.OpFunction, 1, 8, 0, 2),
		op(spv.OpLabel, 9),
		op(spv.OpFunctionCall, 3, 12, 13, 5),
		op(spv.OpStore, 7, 12),
		op(spv.OpReturn),
		op(spv.OpFunctionEnd),
		op(spv.OpFunction, 3, 13, 0, 11),
		op(spv.OpFunctionParameter, 3, 14),
		op(spv.OpLabel, 15),
		op(spv.OpFAdd, 3, 16, 14, 14),
		op(spv.OpReturnValue, 16),
		op(spv.OpFunctionEnd),
	)
	prog := loadProgram(t, stream)
	inv, ep := runEntry(t, prog)
	if got := outputFloat(t, inv, ep, "out"); got != 6.0 {
		t.Errorf("out = %v, want 6.0", got)
	}
}

func TestExecuteLoop(t *testing.T) {
	// acc = 0; for (i = 0; i < 5; i++) acc += i; out = acc.
	stream := words(45,
		op(spv.OpEntryPoint, cat([]uint32{5, 8}, str("main"), []uint32{7})...),
		op(spv.OpName, cat([]uint32{7}, str("out"))...),
		op(spv.OpTypeVoid, 1),
		op(spv.OpTypeFunction, 2, 1),
		op(spv.OpTypeInt, 20, 32, 0),
		op(spv.OpTypeBool, 21),
		op(spv.OpTypePointer, 22, 7, 20),
		op(spv.OpTypePointer, 4, 3, 20),
		op(spv.OpConstant, 20, 23, 0),
		op(spv.OpConstant, 20, 24, 1),
		op(spv.OpConstant, 20, 25, 5),
		op(spv.OpVariable, 4, 7, 3),
		op(spv.OpFunction, 1, 8, 0, 2),
		op(spv.OpLabel, 9),
		op(spv.OpVariable, 22, 26, 7),
		op(spv.OpVariable, 22, 27, 7),
		op(spv.OpStore, 26, 23),
		op(spv.OpStore, 27, 23),
		op(spv.OpBranch, 30),
		op(spv.OpLabel, 30),
		op(spv.OpLoad, 20, 31, 26),
		op(spv.OpULessThan, 21, 32, 31, 25),
		op(spv.OpBranchConditional, 32, 33, 34),
		op(spv.OpLabel, 33),
		op(spv.OpLoad, 20, 35, 27),
		op(spv.OpLoad, 20, 36, 26),
		op(spv.OpIAdd, 20, 37, 35, 36),
		op(spv.OpStore, 27, 37),
		op(spv.OpIAdd, 20, 38, 36, 24),
		op(spv.OpStore, 26, 38),
		op(spv.OpBranch, 30),
		op(spv.OpLabel, 34),
		op(spv.OpLoad, 20, 39, 27),
		op(spv.OpStore, 7, 39),
		op(spv.OpReturn),
		op(spv.OpFunctionEnd),
	)
	prog := loadProgram(t, stream)
	inv, ep := runEntry(t, prog)
	if got := outputUint(t, inv, ep, "out"); got != 10 {
		t.Errorf("out = %d, want 0+1+2+3+4 = 10", got)
	}
}

func TestExecutePhiSelectsByPredecessor(t *testing.T) {
	stream := words(50,
		op(spv.OpEntryPoint, cat([]uint32{5, 8}, str("main"), []uint32{7})...),
		op(spv.OpName, cat([]uint32{7}, str("out"))...),
		op(spv.OpTypeVoid, 1),
		op(spv.OpTypeFunction, 2, 1),
		op(spv.OpTypeFloat, 3, 32),
		op(spv.OpTypeBool, 21),
		op(spv.OpTypePointer, 4, 3, 3),
		op(spv.OpConstant, 3, 5, f32(1.5)),
		op(spv.OpConstant, 3, 6, f32(2.5)),
		op(spv.OpConstantTrue, 21, 28),
		op(spv.OpVariable, 4, 7, 3),
		op(spv.OpFunction, 1, 8, 0, 2),
		op(spv.OpLabel, 9),
		op(spv.OpBranchConditional, 28, 40, 41),
		op(spv.OpLabel, 40),
		op(spv.OpBranch, 42),
		op(spv.OpLabel, 41),
		op(spv.OpBranch, 42),
		op(spv.OpLabel, 42),
		op(spv.OpPhi, 3, 43, 5, 40, 6, 41),
		op(spv.OpStore, 7, 43),
		op(spv.OpReturn),
		op(spv.OpFunctionEnd),
	)
	prog := loadProgram(t, stream)
	inv, ep := runEntry(t, prog)
	if got := outputFloat(t, inv, ep, "out"); got != 1.5 {
		t.Errorf("out = %v, want 1.5 (the true branch's phi value)", got)
	}
}

func TestExecuteAccessChain(t *testing.T) {
	// out = vec3(1.5, 2.25, 1.5); out[2] = 2.25.
	stream := words(60,
		op(spv.OpEntryPoint, cat([]uint32{5, 8}, str("main"), []uint32{7})...),
		op(spv.OpName, cat([]uint32{7}, str("out"))...),
		op(spv.OpTypeVoid, 1),
		op(spv.OpTypeFunction, 2, 1),
		op(spv.OpTypeFloat, 3, 32),
		op(spv.OpTypeInt, 20, 32, 0),
		op(spv.OpTypeVector, 50, 3, 3),
		op(spv.OpTypePointer, 51, 3, 50),
		op(spv.OpTypePointer, 4, 3, 3),
		op(spv.OpConstant, 3, 5, f32(1.5)),
		op(spv.OpConstant, 3, 6, f32(2.25)),
		op(spv.OpConstant, 20, 24, 2),
		op(spv.OpVariable, 51, 7, 3),
		op(spv.OpFunction, 1, 8, 0, 2),
		op(spv.OpLabel, 9),
		op(spv.OpCompositeConstruct, 50, 52, 5, 6, 5),
		op(spv.OpStore, 7, 52),
		op(spv.OpAccessChain, 4, 53, 7, 24),
		op(spv.OpStore, 53, 6),
		op(spv.OpReturn),
		op(spv.OpFunctionEnd),
	)
	prog := loadProgram(t, stream)
	inv, ep := runEntry(t, prog)
	va, err := inv.Variable(ep, "out")
	if err != nil {
		t.Fatalf("Variable failed: %v", err)
	}
	vec, ok := va.Pointee().(*value.Array)
	if !ok {
		t.Fatalf("output is not a vector")
	}
	want := []float32{1.5, 2.25, 2.25}
	for i := range want {
		if got := vec.At(i).(*value.Primitive).Float(); got != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, got, want[i])
		}
	}
}

func TestWorkgroupBarrierRendezvous(t *testing.T) {
	stream := words(30,
		op(spv.OpEntryPoint, cat([]uint32{5, 8}, str("main"), []uint32{7})...),
		op(spv.OpName, cat([]uint32{7}, str("out"))...),
		op(spv.OpTypeVoid, 1),
		op(spv.OpTypeFunction, 2, 1),
		op(spv.OpTypeInt, 20, 32, 0),
		op(spv.OpTypePointer, 4, 3, 20),
		op(spv.OpConstant, 20, 23, 0),
		op(spv.OpConstant, 20, 25, 5),
		op(spv.OpVariable, 4, 7, 3),
		op(spv.OpFunction, 1, 8, 0, 2),
		op(spv.OpLabel, 9),
		op(spv.OpControlBarrier, 23, 23, 23),
		op(spv.OpStore, 7, 25),
		op(spv.OpReturn),
		op(spv.OpFunctionEnd),
	)
	prog := loadProgram(t, stream)
	ep, err := prog.EntryPoint("main")
	if err != nil {
		t.Fatalf("EntryPoint failed: %v", err)
	}
	wg, err := prog.NewWorkgroup(ep, 2)
	if err != nil {
		t.Fatalf("NewWorkgroup failed: %v", err)
	}
	if err := wg.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, inv := range wg.Invocations() {
		if got := outputUint(t, inv, ep, "out"); got != 5 {
			t.Errorf("invocation %d out = %d, want 5", i, got)
		}
		if inv.Status() != StatusDone {
			t.Errorf("invocation %d status = %v, want done", i, inv.Status())
		}
	}
}

func TestInvocationCancellation(t *testing.T) {
	prog := loadProgram(t, floatAddModule())
	ep, err := prog.EntryPoint("")
	if err != nil {
		t.Fatal(err)
	}
	inv, err := prog.NewInvocation(ep, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	inv.Cancel()
	var cancelled *ierr.CancelledError
	if err := inv.Run(); !errors.As(err, &cancelled) {
		t.Errorf("Expected a Cancelled error, got %v", err)
	}
}

func TestSpecConstantOverrideByName(t *testing.T) {
	stream := words(30,
		op(spv.OpEntryPoint, cat([]uint32{5, 8}, str("main"), []uint32{7})...),
		op(spv.OpName, cat([]uint32{7}, str("out"))...),
		op(spv.OpName, cat([]uint32{29}, str("K"))...),
		op(spv.OpTypeVoid, 1),
		op(spv.OpTypeFunction, 2, 1),
		op(spv.OpTypeInt, 20, 32, 0),
		op(spv.OpTypePointer, 4, 3, 20),
		op(spv.OpSpecConstant, 20, 29, 3),
		op(spv.OpVariable, 4, 7, 3),
		op(spv.OpFunction, 1, 8, 0, 2),
		op(spv.OpLabel, 9),
		op(spv.OpStore, 7, 29),
		op(spv.OpReturn),
		op(spv.OpFunctionEnd),
	)
	m, err := spv.DecodeWords(stream)
	if err != nil {
		t.Fatal(err)
	}
	prog, err := Load(m, nil, map[string]value.Value{"K": value.NewUint32(9)})
	if err != nil {
		t.Fatal(err)
	}
	inv, ep := runEntry(t, prog)
	if got := outputUint(t, inv, ep, "out"); got != 9 {
		t.Errorf("out = %d, want the overridden 9", got)
	}
}

func TestInvocationsShadowOutputs(t *testing.T) {
	prog := loadProgram(t, floatAddModule())
	ep, err := prog.EntryPoint("")
	if err != nil {
		t.Fatal(err)
	}
	wg, err := prog.NewWorkgroup(ep, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := wg.Run(); err != nil {
		t.Fatal(err)
	}
	// Each invocation wrote its own copy; the global pointee is untouched.
	globalVar, err := prog.InterfaceVariable(ep, "out")
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := globalVar.Pointee().(*value.Primitive); ok && p.Float() == 3.75 {
		t.Error("Expected the global variable to keep its undefined value; invocation writes leaked")
	}
	for i, inv := range wg.Invocations() {
		if got := outputFloat(t, inv, ep, "out"); got != 3.75 {
			t.Errorf("invocation %d out = %v, want 3.75", i, got)
		}
	}
}
