package value

import "testing"

func testImage(t *testing.T) *Image {
	t.Helper()
	comps := Components{R: 1, G: 2, B: 3, Count: 3}
	typ := NewImage(Dim2D, 1, comps)
	im := NewImageValue(typ, 2, 2, 1, 1, comps, []uint32{
		255, 0, 0,
		0, 255, 0,
		0, 0, 255,
		255, 255, 255,
	})
	return im
}

func TestImageReadInBounds(t *testing.T) {
	im := testImage(t)
	texel := im.Read(1, 0, 0, 0)
	if texel.Len() != 3 {
		t.Fatalf("Expected 3 components, got %d", texel.Len())
	}
	want := []uint32{0, 255, 0}
	for i := range want {
		if got := texel.At(i).(*Primitive).Uint(); got != want[i] {
			t.Errorf("component %d = %d, want %d", i, got, want[i])
		}
	}
}

func TestImageReadOutOfBoundsReturnsZero(t *testing.T) {
	im := testImage(t)
	for _, coords := range [][3]float32{{2, 0, 0}, {0, 2, 0}, {-1, 0, 0}} {
		texel := im.Read(coords[0], coords[1], coords[2], 0)
		for i := 0; i < texel.Len(); i++ {
			if got := texel.At(i).(*Primitive).Uint(); got != 0 {
				t.Errorf("out-of-bounds read at %v component %d = %d, want 0", coords, i, got)
			}
		}
	}
}

func TestImageWrite(t *testing.T) {
	im := testImage(t)
	texel := NewArrayFromElements([]Value{NewUint32(9), NewUint32(8), NewUint32(7)})
	if !im.Write(0, 1, 0, texel) {
		t.Fatal("Expected in-bounds write to succeed")
	}
	got := im.Read(0, 1, 0, 0)
	for i, want := range []uint32{9, 8, 7} {
		if g := got.At(i).(*Primitive).Uint(); g != want {
			t.Errorf("component %d = %d, want %d", i, g, want)
		}
	}
	if im.Write(5, 5, 0, texel) {
		t.Error("Expected out-of-bounds write to report failure")
	}
}

func TestImageStructRoundTrip(t *testing.T) {
	im := testImage(t)
	im.Ref = "textures/rgb.png"
	st := im.ToStruct()

	clone := NewImage(Dim2D, 1, Components{R: 1, G: 2, B: 3, Count: 3}).MustConstruct().(*Image)
	if err := clone.CopyFromStruct(st); err != nil {
		t.Fatalf("CopyFromStruct failed: %v", err)
	}
	if !clone.Equals(im) {
		t.Error("Expected struct round trip to reproduce an equal image")
	}
	if clone.Ref != im.Ref {
		t.Errorf("ref = %q, want %q", clone.Ref, im.Ref)
	}
}

func TestExtractCoordsProjective(t *testing.T) {
	coords := NewArrayFromElements([]Value{NewFloat32(4), NewFloat32(6), NewFloat32(2)})
	x, y, _, _, err := ExtractCoords(coords, Dim2D, true)
	if err != nil {
		t.Fatalf("ExtractCoords failed: %v", err)
	}
	if x != 2 || y != 3 {
		t.Errorf("Expected projected coords (2, 3), got (%v, %v)", x, y)
	}
}

func TestDecompose(t *testing.T) {
	base, frac := Decompose(3.25)
	if base != 3 {
		t.Errorf("base = %d, want 3", base)
	}
	if !EqFloat(frac, 0.25, 6) {
		t.Errorf("frac = %v, want 0.25", frac)
	}
}

func TestSamplerStructRoundTrip(t *testing.T) {
	s := NewSamplerValue(2)
	clone := NewSampler().MustConstruct().(*Sampler)
	if err := clone.CopyFromStruct(s.ToStruct()); err != nil {
		t.Fatalf("CopyFromStruct failed: %v", err)
	}
	if !clone.Equals(s) {
		t.Error("Expected sampler round trip to reproduce an equal sampler")
	}
}

func TestSampledImageStructRoundTrip(t *testing.T) {
	si := NewSampledImageValue(NewSamplerValue(1), testImage(t))
	clone := NewSampledImage(si.Image().Type()).MustConstruct().(*SampledImage)
	if err := clone.CopyFromStruct(si.ToStruct()); err != nil {
		t.Fatalf("CopyFromStruct failed: %v", err)
	}
	if !clone.Equals(si) {
		t.Error("Expected sampled-image round trip to reproduce an equal value")
	}
}
