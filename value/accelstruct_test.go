package value

import (
	"testing"

	"github.com/gogpu/spirvm/raytrace"
)

// buildAccelStructDoc authors the external form of a BVH with one box
// containing one triangle, the shape a document author would write.
func buildAccelStructDoc() *Struct {
	tri := NewStructFromElements([]Value{
		floatsToArray(0, -1, 1), // v0
		floatsToArray(1, 1, 1),  // v1
		floatsToArray(-1, 1, 1), // v2
		NewUint32(0),
		NewUint32(0),
		NewBoolValue(true),
	}, []string{"v0", "v1", "v2", "geometry_index", "primitive_index", "opaque"})

	box := NewStructFromElements([]Value{
		floatsToArray(-1, -1, 0),
		floatsToArray(1, 1, 2),
		NewArrayFromElements([]Value{nodeRefToUvec(raytrace.NodeReference{Kind: raytrace.KindTriangle, Index: 0})}),
	}, []string{"min", "max", "children"})

	return NewStructFromElements([]Value{
		nodeRefToUvec(raytrace.NodeReference{Kind: raytrace.KindBox, Index: 0}),
		NewArrayFromElements([]Value{box}),
		NewArray(0, NewVoid()).MustConstruct(),
		NewArrayFromElements([]Value{tri}),
		NewArray(0, NewVoid()).MustConstruct(),
	}, []string{"tlas", "box_nodes", "instance_nodes", "triangle_nodes", "procedural_nodes"})
}

func TestAccelStructCopyFromStruct(t *testing.T) {
	as := NewAccelStruct().MustConstruct().(*AccelStruct)
	if err := as.CopyFromStruct(buildAccelStructDoc()); err != nil {
		t.Fatalf("CopyFromStruct failed: %v", err)
	}
	if as.BVH() == nil {
		t.Fatal("Expected a bound BVH after CopyFromStruct")
	}
	if got := len(as.BVH().Nodes); got != 2 {
		t.Errorf("Expected 2 pool nodes, got %d", got)
	}
}

func TestAccelStructRoundTrip(t *testing.T) {
	as := NewAccelStruct().MustConstruct().(*AccelStruct)
	if err := as.CopyFromStruct(buildAccelStructDoc()); err != nil {
		t.Fatalf("CopyFromStruct failed: %v", err)
	}
	clone := NewAccelStruct().MustConstruct().(*AccelStruct)
	if err := clone.CopyFrom(as.ToStruct()); err != nil {
		t.Fatalf("round trip CopyFrom failed: %v", err)
	}
	if !clone.Equals(as) {
		t.Error("Expected round-tripped acceleration structure to be equal")
	}
}

func TestAccelStructTraceThroughBVH(t *testing.T) {
	as := NewAccelStruct().MustConstruct().(*AccelStruct)
	if err := as.CopyFromStruct(buildAccelStructDoc()); err != nil {
		t.Fatalf("CopyFromStruct failed: %v", err)
	}
	err := as.BeginTrace([3]float32{0, 0, -1}, [3]float32{0, 0, 1}, 0.01, 100, raytrace.RayFlagTerminateOnFirstHit)
	if err != nil {
		t.Fatalf("BeginTrace failed: %v", err)
	}
	res := as.Trace().TraceRay(as.BVH(), false)
	if res != raytrace.YES {
		t.Fatalf("Expected the ray to hit the triangle, got %v", res)
	}
	if as.Trace().Active {
		t.Error("Expected the trace to go inactive with TerminateOnFirstHit")
	}
	if as.Trace().Committed == nil {
		t.Fatal("Expected a committed intersection")
	}
	if got := as.Trace().Committed.HitT; !EqFloat(got, 2, 6) {
		t.Errorf("hit distance = %v, want 2", got)
	}
}

func TestAccelStructEqualityIgnoresTraceState(t *testing.T) {
	a := NewAccelStruct().MustConstruct().(*AccelStruct)
	b := NewAccelStruct().MustConstruct().(*AccelStruct)
	for _, as := range []*AccelStruct{a, b} {
		if err := as.CopyFromStruct(buildAccelStructDoc()); err != nil {
			t.Fatalf("CopyFromStruct failed: %v", err)
		}
	}
	if err := a.BeginTrace([3]float32{0, 0, -1}, [3]float32{0, 0, 1}, 0.01, 100, 0); err != nil {
		t.Fatalf("BeginTrace failed: %v", err)
	}
	if !a.Equals(b) {
		t.Error("Expected structures loaded from the same document to stay equal after one begins a trace")
	}
}
