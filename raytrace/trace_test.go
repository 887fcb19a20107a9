package raytrace

import "testing"

// boxWithTriangle builds the minimal hierarchy of one box node holding
// one triangle, with the ray-facing triangle spanning z=1.
func boxWithTriangle() *BVH {
	box := &BoxNode{
		Bounds:   AABB{Min: [3]float32{-1, -1, 0}, Max: [3]float32{1, 1, 2}},
		Children: []NodeReference{{Kind: KindTriangle, Index: 0}},
	}
	tri := &TriangleNode{Vertices: [3][3]float32{{0, -1, 1}, {1, 1, 1}, {-1, 1, 1}}, Opaque: true}
	bvh := NewBVH([]*BoxNode{box}, nil, []*TriangleNode{tri}, nil)
	if err := bvh.Resolve(); err != nil {
		panic(err)
	}
	return bvh
}

func TestNodeReferenceResolveBands(t *testing.T) {
	tests := []struct {
		name    string
		ref     NodeReference
		want    uint32
		wantErr bool
	}{
		{name: "box", ref: NodeReference{Kind: KindBox, Index: 0}, want: 0},
		{name: "box out of range", ref: NodeReference{Kind: KindBox, Index: 2}, wantErr: true},
		{name: "instance", ref: NodeReference{Kind: KindInstance, Index: 0}, want: 2},
		{name: "triangle", ref: NodeReference{Kind: KindTriangle, Index: 1}, want: 4},
		{name: "procedural", ref: NodeReference{Kind: KindProcedural, Index: 0}, want: 5},
		{name: "procedural out of range", ref: NodeReference{Kind: KindProcedural, Index: 1}, wantErr: true},
	}
	// Bands: 2 boxes, 1 instance, 2 triangles, 1 procedural.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.ref.Resolve(2, 3, 5, 6)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Resolve = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAABBIntersect(t *testing.T) {
	box := AABB{Min: [3]float32{-1, -1, -1}, Max: [3]float32{1, 1, 1}}
	if _, hit := box.Intersect([3]float32{0, 0, -5}, [3]float32{0, 0, 1}, 0, 100); !hit {
		t.Error("Expected a ray aimed at the box to hit")
	}
	if _, hit := box.Intersect([3]float32{0, 5, -5}, [3]float32{0, 0, 1}, 0, 100); hit {
		t.Error("Expected a ray missing the box to miss")
	}
	if tNear, hit := box.Intersect([3]float32{0, 0, -5}, [3]float32{0, 0, 1}, 0, 100); !hit || tNear != 4 {
		t.Errorf("entry distance = %v, want 4", tNear)
	}
}

func TestStepTraceWalksBoxThenTriangle(t *testing.T) {
	bvh := boxWithTriangle()
	tr := NewTrace([3]float32{0, 0, -1}, [3]float32{0, 0, 1}, 0.01, 100, 0, 0)

	// First step consumes the box: it queues the triangle and reports NO,
	// then iteration continues straight into the triangle, which hits.
	res := tr.StepTrace(bvh)
	if res != YES {
		t.Fatalf("Expected the walk to end on the triangle with YES, got %v", res)
	}
	if len(tr.Candidates) != 2 {
		t.Errorf("Expected the box to queue 1 extra candidate, have %d total", len(tr.Candidates))
	}
	// The cursor now rests on the last candidate, so the trace is done.
	if tr.StepTrace(bvh) != NO {
		t.Error("Expected a further step to report NO")
	}
	if tr.Active {
		t.Error("Expected the trace to be inactive after exhausting candidates")
	}
}

func TestStepTraceMissReportsNo(t *testing.T) {
	bvh := boxWithTriangle()
	tr := NewTrace([3]float32{5, 5, -1}, [3]float32{0, 0, 1}, 0.01, 100, 0, 0)
	if res := tr.StepTrace(bvh); res != NO {
		t.Errorf("Expected a miss, got %v", res)
	}
	if tr.Active {
		t.Error("Expected the trace to be inactive after the box rejected the ray")
	}
}

func TestTraceRayTerminateOnFirstHit(t *testing.T) {
	bvh := boxWithTriangle()
	tr := NewTrace([3]float32{0, 0, -1}, [3]float32{0, 0, 1}, 0.01, 100, RayFlagTerminateOnFirstHit, 0)
	if res := tr.TraceRay(bvh, false); res != YES {
		t.Fatalf("Expected YES, got %v", res)
	}
	if tr.Active {
		t.Error("Expected the trace to end inactive under TerminateOnFirstHit")
	}
	if tr.Committed == nil || tr.Committed.Type != IntersectionTriangle {
		t.Fatal("Expected a committed triangle intersection")
	}
}

func TestTraceRayExhaustedReturnsNo(t *testing.T) {
	bvh := boxWithTriangle()
	tr := NewTrace([3]float32{5, 5, -1}, [3]float32{0, 0, 1}, 0.01, 100, 0, 0)
	if res := tr.TraceRay(bvh, false); res != NO {
		t.Errorf("Expected NO for a ray that misses everything, got %v", res)
	}
}

func TestProceduralCandidateReportsMaybe(t *testing.T) {
	proc := &ProceduralNode{Bounds: AABB{Min: [3]float32{-1, -1, 0}, Max: [3]float32{1, 1, 2}}, Opaque: true}
	bvh := NewBVH(nil, nil, nil, []*ProceduralNode{proc})
	if err := bvh.Resolve(); err != nil {
		t.Fatal(err)
	}
	tr := NewTrace([3]float32{0, 0, -1}, [3]float32{0, 0, 1}, 0.01, 100, 0, 0)
	if res := tr.StepTrace(bvh); res != MAYBE {
		t.Fatalf("Expected MAYBE from a procedural candidate, got %v", res)
	}
	// The shader-side decision arrives via Generate.
	if !tr.Generate(bvh, 1.25) {
		t.Fatal("Expected Generate to commit on the procedural candidate")
	}
	if tr.Committed == nil || tr.Committed.Type != IntersectionAABB {
		t.Fatal("Expected a committed generated intersection")
	}
	if tr.Committed.HitT != 1.25 {
		t.Errorf("hit distance = %v, want the generated 1.25", tr.Committed.HitT)
	}
}

func TestRayFlagCulling(t *testing.T) {
	bvh := boxWithTriangle()
	tr := NewTrace([3]float32{0, 0, -1}, [3]float32{0, 0, 1}, 0.01, 100, RayFlagSkipTriangles, 0)
	if res := tr.TraceRay(bvh, false); res != NO {
		t.Errorf("Expected SkipTriangles to cull the only primitive, got %v", res)
	}
}

func TestInstanceTransformsRayIntoObjectSpace(t *testing.T) {
	// The triangle sits at z=1 in object space; the instance translates
	// object space +10 on x, so only a ray fired at x=10 can hit it.
	tri := &TriangleNode{Vertices: [3][3]float32{{0, -1, 1}, {1, 1, 1}, {-1, 1, 1}}, Opaque: true}
	inst := &InstanceNode{
		Transform: [3][4]float32{{1, 0, 0, 10}, {0, 1, 0, 0}, {0, 0, 1, 0}},
		Child:     NodeReference{Kind: KindTriangle, Index: 0},
	}
	bvh := NewBVH(nil, []*InstanceNode{inst}, []*TriangleNode{tri}, nil)
	if err := bvh.Resolve(); err != nil {
		t.Fatal(err)
	}
	tr := NewTrace([3]float32{10, 0, -1}, [3]float32{0, 0, 1}, 0.01, 100, 0, 0)
	if res := tr.TraceRay(bvh, false); res != YES {
		t.Errorf("Expected the translated instance to be hit at x=10, got %v", res)
	}
	tr2 := NewTrace([3]float32{0, 0, -1}, [3]float32{0, 0, 1}, 0.01, 100, 0, 0)
	if res := tr2.TraceRay(bvh, false); res != NO {
		t.Errorf("Expected a ray at the untransformed position to miss, got %v", res)
	}
}
