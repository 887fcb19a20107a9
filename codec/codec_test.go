package codec

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/spirvm/value"
)

func TestDecodeScalars(t *testing.T) {
	tests := []struct {
		name string
		doc  any
		want value.Base
	}{
		{name: "bool", doc: true, want: value.BaseBool},
		{name: "positive int", doc: 3, want: value.BaseUint},
		{name: "negative int", doc: -3, want: value.BaseInt},
		{name: "float", doc: 1.5, want: value.BaseFloat},
		{name: "string", doc: "ref.png", want: value.BaseString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode(tt.doc)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got := v.Type().Base(); got != tt.want {
				t.Errorf("base = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeNestedDocument(t *testing.T) {
	doc := map[string]any{
		"position": []any{1.0, 2.0, 3.0},
		"enabled":  true,
	}
	v, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	st, ok := v.(*value.Struct)
	if !ok {
		t.Fatalf("Expected a struct, got %T", v)
	}
	pos := st.Field("position")
	if pos == nil {
		t.Fatal("missing field position")
	}
	arr, ok := pos.(*value.Array)
	if !ok || arr.Len() != 3 {
		t.Fatalf("position should be a 3-element array")
	}
}

func TestDecodeIntoCoercesNumericBases(t *testing.T) {
	dst := value.NewFloat(32).MustConstruct()
	if err := DecodeInto(3, dst); err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}
	if got := dst.(*value.Primitive).Float(); got != 3 {
		t.Errorf("Expected the integer literal to coerce to 3.0, got %v", got)
	}
}

func TestDecodeIntoRuntimeArray(t *testing.T) {
	dst := value.NewArray(0, value.NewFloat(32)).MustConstruct()
	if err := DecodeInto([]any{1, 2.5, 3}, dst); err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}
	arr := dst.(*value.Array)
	if arr.Len() != 3 {
		t.Fatalf("Expected adopted length 3, got %d", arr.Len())
	}
	want := []float32{1, 2.5, 3}
	for i := range want {
		if got := arr.At(i).(*value.Primitive).Float(); got != want[i] {
			t.Errorf("element %d = %v, want %v", i, got, want[i])
		}
	}
}

func TestDecodeIntoImage(t *testing.T) {
	comps := value.Components{R: 1, G: 2, B: 3, A: 4, Count: 4}
	img := value.NewImage(value.Dim2D, 1, comps).MustConstruct().(*value.Image)
	doc := map[string]any{
		"ref":     "tex.png",
		"dim":     []any{2, 1},
		"mipmaps": 1,
		"comps":   0x04030201,
		"data":    []any{1, 2, 3, 4, 5, 6, 7, 8},
	}
	if err := DecodeInto(doc, img); err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}
	if img.Ref != "tex.png" {
		t.Errorf("ref = %q, want tex.png", img.Ref)
	}
	texel := img.Read(1, 0, 0, 0)
	if got := texel.At(0).(*value.Primitive).Uint(); got != 5 {
		t.Errorf("texel(1,0) first component = %d, want 5", got)
	}
}

func TestEncodeRoundTripsDocumentShapes(t *testing.T) {
	v := value.NewStructFromElements([]value.Value{
		value.NewFloat32(1.5),
		value.NewArrayFromElements([]value.Value{value.NewUint32(1), value.NewUint32(2)}),
		value.NewStringValue("hi"),
	}, []string{"f", "v", "s"})

	got := Encode(v)
	want := map[string]any{
		"f": float64(1.5),
		"v": []any{uint64(1), uint64(2)},
		"s": "hi",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Encode mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractHelpers(t *testing.T) {
	if _, err := ExtractUint(value.NewFloat32(1)); err == nil {
		t.Error("Expected ExtractUint of a float to fail")
	}
	if u, err := ExtractUint(value.NewUint32(6)); err != nil || u != 6 {
		t.Errorf("ExtractUint = (%d, %v), want (6, nil)", u, err)
	}
	if s, err := ExtractString(value.NewStringValue("x")); err != nil || s != "x" {
		t.Errorf("ExtractString = (%q, %v)", s, err)
	}
	vec, err := ExtractVec(value.NewArrayFromElements([]value.Value{
		value.NewFloat32(1), value.NewFloat32(2), value.NewFloat32(3),
	}), 3)
	if err != nil || vec[2] != 3 {
		t.Errorf("ExtractVec = (%v, %v)", vec, err)
	}
	if _, err := ExtractVec(value.NewArrayFromElements([]value.Value{value.NewFloat32(1)}), 3); err == nil {
		t.Error("Expected ExtractVec with the wrong arity to fail")
	}
	uv, err := ExtractUvec(value.NewArrayFromElements([]value.Value{
		value.NewUint32(4), value.NewUint32(5),
	}), 2)
	if err != nil || uv[0] != 4 || uv[1] != 5 {
		t.Errorf("ExtractUvec = (%v, %v)", uv, err)
	}
}

func TestValueCodecRoundTripInvariant(t *testing.T) {
	// construct(v.type) -> copyFrom(v.toStruct()) -> equals(v) holds for
	// the concrete value kinds.
	comps := value.Components{R: 1, G: 2, B: 3, Count: 3}
	img := value.NewImageValue(value.NewImage(value.Dim2D, 1, comps), 2, 2, 1, 1, comps,
		[]uint32{255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 255})

	sampler := value.NewSamplerValue(3)

	tests := []struct {
		name string
		v    interface {
			value.Value
			ToStruct() *value.Struct
		}
	}{
		{name: "image", v: img},
		{name: "sampler", v: sampler},
		{name: "sampled image", v: value.NewSampledImageValue(sampler, img)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fresh := tt.v.Type().MustConstruct()
			if err := fresh.CopyFrom(tt.v.ToStruct()); err != nil {
				t.Fatalf("CopyFrom(ToStruct()) failed: %v", err)
			}
			if !fresh.Equals(tt.v) {
				t.Error("round trip did not reproduce an equal value")
			}
		})
	}
}
