package value

import "testing"

func floatArray(vals ...float32) *Array {
	elems := make([]Value, len(vals))
	for i, v := range vals {
		elems[i] = NewFloat32(v)
	}
	return NewArrayFromElements(elems)
}

func TestRuntimeArrayAdoptsLengthOnFirstCopy(t *testing.T) {
	dst := NewArray(0, NewFloat(32)).MustConstruct().(*Array)
	if dst.Len() != 0 {
		t.Fatalf("runtime array should start empty, has %d elements", dst.Len())
	}
	src := floatArray(1, 2, 3)
	if err := dst.CopyFrom(src); err != nil {
		t.Fatalf("first copy failed: %v", err)
	}
	if dst.Len() != 3 {
		t.Fatalf("Expected adopted length 3, got %d", dst.Len())
	}
	for i, want := range []float32{1, 2, 3} {
		if got := dst.At(i).(*Primitive).Float(); got != want {
			t.Errorf("element %d = %v, want %v", i, got, want)
		}
	}
	// Subsequent copies must match the adopted length.
	if err := dst.CopyFrom(floatArray(1, 2)); err == nil {
		t.Error("Expected copy with mismatched length to fail after adoption")
	}
}

func TestArrayEqualsElementwise(t *testing.T) {
	a := floatArray(1, 2, 3)
	b := floatArray(1, 2, 3)
	if !a.Equals(b) {
		t.Error("Expected equal arrays")
	}
	c := floatArray(1, 2, 4)
	if a.Equals(c) {
		t.Error("Expected arrays differing in one element to be unequal")
	}
	d := floatArray(1, 2)
	if a.Equals(d) {
		t.Error("Expected arrays of different length to be unequal")
	}
}

func TestArrayCopyReinterpElementwise(t *testing.T) {
	src := floatArray(1.0)
	dst := NewArrayFromElements([]Value{NewUint32(0)})
	if err := dst.CopyReinterp(src); err != nil {
		t.Fatalf("CopyReinterp failed: %v", err)
	}
	if got := dst.At(0).(*Primitive).Uint(); got != 0x3F800000 {
		t.Errorf("Expected 0x3F800000, got 0x%08X", got)
	}
}

func TestStructCopyFromAndEquals(t *testing.T) {
	mk := func() *Struct {
		return NewStructFromElements([]Value{NewFloat32(1.5), NewUint32(7)}, []string{"a", "b"})
	}
	s1, s2 := mk(), mk()
	if !s1.Equals(s2) {
		t.Error("Expected identical structs to be equal")
	}
	s2.At(1).(*Primitive).SetBits(8)
	if s1.Equals(s2) {
		t.Error("Expected structs differing in a field to be unequal")
	}
	if err := s1.CopyFrom(s2); err != nil {
		t.Fatalf("CopyFrom failed: %v", err)
	}
	if !s1.Equals(s2) {
		t.Error("Expected structs to be equal after CopyFrom")
	}
}

func TestStructFieldLookup(t *testing.T) {
	s := NewStructFromElements([]Value{NewFloat32(1), NewUint32(2)}, []string{"x", "y"})
	if f := s.Field("y"); f == nil {
		t.Fatal("Expected to find field y")
	} else if f.(*Primitive).Uint() != 2 {
		t.Errorf("field y = %d, want 2", f.(*Primitive).Uint())
	}
	if s.Field("z") != nil {
		t.Error("Expected missing field to return nil")
	}
}

// Struct type inference deliberately stamps every field with the type
// of element 0; the uniform result below pins that behavior down.
func TestStructInferTypeUsesFirstElement(t *testing.T) {
	s := NewStructFromElements([]Value{NewFloat32(1), NewUint32(2)}, []string{"a", "b"})
	s.InferType()
	fields := s.Type().Fields()
	for i, f := range fields {
		if f.Base() != BaseFloat {
			t.Errorf("field %d inferred as %s, want float (the first element's base)", i, f.Base())
		}
	}
}

func TestRecursiveApplyPostOrder(t *testing.T) {
	inner := floatArray(1, 2)
	outer := NewStructFromElements([]Value{inner, NewUint32(3)}, []string{"v", "n"})
	var order []Value
	outer.RecursiveApply(func(v Value) bool {
		order = append(order, v)
		return false
	})
	// Post-order: inner's leaves, inner, the uint, then the struct itself.
	if len(order) != 5 {
		t.Fatalf("Expected 5 visits, got %d", len(order))
	}
	if order[2] != Value(inner) {
		t.Error("Expected the inner array to be visited after its elements")
	}
	if order[4] != Value(outer) {
		t.Error("Expected the root to be visited last")
	}
}
