package value

import (
	"math"
	"testing"
)

func TestPrimitiveReinterpPreservesBits(t *testing.T) {
	f := NewFloat32(1.0)
	u := NewUint32(0)
	if err := u.CopyReinterp(f); err != nil {
		t.Fatalf("CopyReinterp failed: %v", err)
	}
	if u.Uint() != 0x3F800000 {
		t.Errorf("Expected reinterpreted 1.0f to be 0x3F800000, got 0x%08X", u.Uint())
	}
	// The result must not depend on the source's numeric interpretation.
	i := NewInt32(0)
	if err := i.CopyReinterp(f); err != nil {
		t.Fatalf("CopyReinterp failed: %v", err)
	}
	if uint32(i.Int()) != 0x3F800000 {
		t.Errorf("Expected same word regardless of target type, got 0x%08X", uint32(i.Int()))
	}
}

func TestPrimitiveCopyFromRequiresSameBase(t *testing.T) {
	f := NewFloat32(2.5)
	u := NewUint32(7)
	if err := u.CopyFrom(f); err == nil {
		t.Error("Expected copying a float into a uint to fail")
	}
	f2 := NewFloat32(0)
	if err := f2.CopyFrom(f); err != nil {
		t.Fatalf("CopyFrom failed: %v", err)
	}
	if f2.Float() != 2.5 {
		t.Errorf("Expected 2.5, got %v", f2.Float())
	}
}

func TestFPConvertTypeToEmu(t *testing.T) {
	tests := []struct {
		name      string
		input     uint32
		precision uint
		want      uint32
		wantErr   bool
	}{
		{name: "half 1.0", input: 0x3C00, precision: 16, want: 0x3F800000},
		{name: "half -2.0", input: 0xC000, precision: 16, want: 0xC0000000},
		{name: "half 0.5", input: 0x3800, precision: 16, want: 0x3F000000},
		{name: "half zero", input: 0x0000, precision: 16, want: 0x00000000},
		{name: "already 32-bit", input: 0x3F800000, precision: 32, want: 0x3F800000},
		{name: "unsupported 64-bit", input: 0xDEADBEEF, precision: 64, want: 0xDEADBEEF, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FPConvertTypeToEmu(tt.input, tt.precision)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FPConvertTypeToEmu(0x%04X, %d) = 0x%08X, want 0x%08X", tt.input, tt.precision, got, tt.want)
			}
		})
	}
}

func TestPrimitiveCastKeepsBits(t *testing.T) {
	p := NewFloat32(1.0)
	p.Cast(NewUint(32))
	if p.Uint() != 0x3F800000 {
		t.Errorf("Cast changed the underlying word: got 0x%08X", p.Uint())
	}
	if p.Type().Base() != BaseUint {
		t.Errorf("Cast did not change the type, got %s", p.Type().Base())
	}
}

func TestEqFloat(t *testing.T) {
	tests := []struct {
		name    string
		x, y    float32
		sigfigs int
		want    bool
	}{
		{name: "identical", x: 1.5, y: 1.5, sigfigs: 6, want: true},
		{name: "agree to 4 figures", x: 1.23456, y: 1.23459, sigfigs: 4, want: true},
		{name: "disagree at 6 figures", x: 1.23456, y: 1.23459, sigfigs: 6, want: false},
		{name: "zero vs tiny", x: 0, y: 1e-30, sigfigs: 6, want: false},
		{name: "nan never equal", x: float32(math.NaN()), y: float32(math.NaN()), sigfigs: 6, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EqFloat(tt.x, tt.y, tt.sigfigs); got != tt.want {
				t.Errorf("EqFloat(%v, %v, %d) = %v, want %v", tt.x, tt.y, tt.sigfigs, got, tt.want)
			}
			// Symmetry must hold for every pair.
			if EqFloat(tt.x, tt.y, tt.sigfigs) != EqFloat(tt.y, tt.x, tt.sigfigs) {
				t.Error("EqFloat is not symmetric")
			}
		})
	}
}

func TestEqFloatReflexiveOnFinite(t *testing.T) {
	for _, v := range []float32{0, 1, -1, 0.1, 1e20, -3.25e-12} {
		if !EqFloat(v, v, 6) {
			t.Errorf("EqFloat(%v, %v) should be reflexive", v, v)
		}
	}
}

func TestUintArithmeticHelpers(t *testing.T) {
	if sum, carry := UAdd(0xFFFFFFFF, 1); sum != 0 || carry != 1 {
		t.Errorf("UAdd overflow: got (%d, %d), want (0, 1)", sum, carry)
	}
	if sum, carry := UAdd(2, 3); sum != 5 || carry != 0 {
		t.Errorf("UAdd: got (%d, %d), want (5, 0)", sum, carry)
	}
	if diff, borrow := USub(0, 1); diff != 0xFFFFFFFF || borrow != 1 {
		t.Errorf("USub underflow: got (0x%08X, %d), want (0xFFFFFFFF, 1)", diff, borrow)
	}
	if low, high := UMul(0x10000, 0x10000); low != 0 || high != 1 {
		t.Errorf("UMul: got (%d, %d), want (0, 1)", low, high)
	}
	if low, high := SMul(-2, 3); int32(low) != -6 || high != 0xFFFFFFFF {
		t.Errorf("SMul: got (%d, 0x%08X)", int32(low), high)
	}
}
