package raytrace

// RayFlags mirrors SPIR-V's RayFlagsKHR mask, controlling culling and
// early-termination behavior during traversal.
type RayFlags uint32

const (
	RayFlagNone                    RayFlags = 0x0000
	RayFlagOpaque                  RayFlags = 0x0001
	RayFlagNoOpaque                RayFlags = 0x0002
	RayFlagTerminateOnFirstHit     RayFlags = 0x0004
	RayFlagSkipClosestHitShader    RayFlags = 0x0008
	RayFlagCullBackFacingTriangles RayFlags = 0x0010
	RayFlagCullFrontFacingTriangles RayFlags = 0x0020
	RayFlagCullOpaque              RayFlags = 0x0040
	RayFlagCullNoOpaque            RayFlags = 0x0080
	RayFlagSkipTriangles           RayFlags = 0x0100
	RayFlagSkipAABBs               RayFlags = 0x0200
)

func (f RayFlags) has(bit RayFlags) bool { return f&bit != 0 }

// TerminateOnFirstHit reports whether traversal should stop searching
// as soon as any hit is found, rather than continuing to look for a
// closer one.
func (f RayFlags) TerminateOnFirstHit() bool { return f.has(RayFlagTerminateOnFirstHit) }
func (f RayFlags) SkipTriangles() bool       { return f.has(RayFlagSkipTriangles) }
func (f RayFlags) SkipAABBs() bool           { return f.has(RayFlagSkipAABBs) }

func (f RayFlags) acceptsOpaque(opaque bool) bool {
	if opaque {
		return !f.has(RayFlagCullOpaque) && !f.has(RayFlagNoOpaque)
	}
	return !f.has(RayFlagCullNoOpaque) && !f.has(RayFlagOpaque)
}

// IntersectionType distinguishes a committed triangle hit from a
// committed procedural (AABB) hit.
type IntersectionType uint8

const (
	IntersectionTriangle IntersectionType = iota
	IntersectionAABB
)

// Intersection records one committed or pending hit.
type Intersection struct {
	Type           IntersectionType
	HitT           float32
	U, V           float32
	InstanceIndex  uint32
	GeometryIndex  uint32
	PrimitiveIndex uint32
	PoolIndex      uint32
	Opaque         bool
	// FrontFace is true when the triangle winding faces the ray origin.
	FrontFace bool
}

// Candidate is a queued node to visit, carrying the ray expressed in
// whatever space that node expects (world space at the top level,
// object space once descended through an InstanceNode).
type Candidate struct {
	PoolIndex     uint32
	Origin, Dir   [3]float32
	InstanceIndex uint32 // sentinel noInstance if not nested under an instance
}

const noInstance = ^uint32(0)

// Trace is the per-ray traversal state: an active flag, the ordered
// candidate list built up as boxes and instances are descended, a
// cursor into that list, the ray's flags, and the accumulated
// committed hit (if any).
type Trace struct {
	Active      bool
	Candidates  []Candidate
	CandidateIdx int // -1 before the first step

	RayFlags RayFlags
	TMin, TMax float32

	Committed *Intersection
}

// NewTrace begins a traversal from the BVH's root (TLAS) with the
// given world-space ray.
func NewTrace(origin, dir [3]float32, tMin, tMax float32, flags RayFlags, rootPoolIndex uint32) *Trace {
	return &Trace{
		Active:       true,
		Candidates:   []Candidate{{PoolIndex: rootPoolIndex, Origin: origin, Dir: dir, InstanceIndex: noInstance}},
		CandidateIdx: -1,
		RayFlags:     flags,
		TMin:         tMin,
		TMax:         tMax,
	}
}

func (tr *Trace) getCandidate() *Candidate { return &tr.Candidates[tr.CandidateIdx] }

// StepTrace advances the candidate cursor by one and, while the trace
// remains active and no primitive has yet been found, asks each
// successive candidate's node for a step result. The trace goes
// inactive once the cursor reaches the last candidate slot.
func (tr *Trace) StepTrace(bvh *BVH) Ternary {
	if !tr.Active {
		return NO
	}
	found := NO
	for tr.Active && found == NO {
		tr.CandidateIdx++
		if tr.CandidateIdx >= len(tr.Candidates) {
			break
		}
		cand := tr.Candidates[tr.CandidateIdx]
		node := bvh.Nodes[cand.PoolIndex]
		found = node.step(tr, bvh)
	}
	if tr.CandidateIdx >= len(tr.Candidates)-1 {
		tr.Active = false
	}
	return found
}

// TraceRay repeatedly steps the trace, committing every triangle
// candidate and generating every procedural candidate a step reports,
// until a step yields NO (candidates exhausted) or MAYBE (suspended).
// It returns YES if anything was committed, else that last step's
// result. skipTrace re-confirms the
// current candidate without advancing, used to resume after a
// hit/miss shader invocation outside this package reports back.
func (tr *Trace) TraceRay(bvh *BVH, skipTrace bool) Ternary {
	intersectedOnce := false
	found := NO
	for {
		if !skipTrace {
			found = tr.StepTrace(bvh)
			if found == YES && tr.RayFlags.TerminateOnFirstHit() {
				tr.Active = false
			}
		} else {
			found = YES
			skipTrace = false
		}

		if found == YES {
			intersectedOnce = true
			cand := tr.getCandidate()
			node := bvh.Nodes[cand.PoolIndex]
			switch n := node.(type) {
			case *TriangleNode:
				tr.confirmIntersection(*cand, n)
			case *ProceduralNode:
				tr.generateIntersection(*cand, n)
			}
		}
		if found != YES {
			break
		}
	}
	if intersectedOnce {
		return YES
	}
	return found
}

// CandidateNode returns the node the candidate cursor currently rests
// on, or nil if the cursor is before the first candidate or past the
// last one.
func (tr *Trace) CandidateNode(bvh *BVH) Node {
	if tr.CandidateIdx < 0 || tr.CandidateIdx >= len(tr.Candidates) {
		return nil
	}
	return bvh.Nodes[tr.getCandidate().PoolIndex]
}

// Confirm commits the candidate the cursor currently rests on as a
// triangle hit (OpRayQueryConfirmIntersectionKHR). Returns false when
// the cursor is not on a triangle candidate.
func (tr *Trace) Confirm(bvh *BVH) bool {
	if tr.CandidateIdx < 0 || tr.CandidateIdx >= len(tr.Candidates) {
		return false
	}
	cand := tr.getCandidate()
	n, ok := bvh.Nodes[cand.PoolIndex].(*TriangleNode)
	if !ok {
		return false
	}
	tr.confirmIntersection(*cand, n)
	if tr.RayFlags.TerminateOnFirstHit() {
		tr.Active = false
	}
	return true
}

// Generate commits the candidate the cursor currently rests on as a
// generated AABB hit at the caller-supplied distance
// (OpRayQueryGenerateIntersectionKHR, where the intersection shader
// reports the hit distance itself). Returns false when the cursor is
// not on a procedural candidate.
func (tr *Trace) Generate(bvh *BVH, hitT float32) bool {
	if tr.CandidateIdx < 0 || tr.CandidateIdx >= len(tr.Candidates) {
		return false
	}
	cand := tr.getCandidate()
	n, ok := bvh.Nodes[cand.PoolIndex].(*ProceduralNode)
	if !ok {
		return false
	}
	tr.Committed = &Intersection{
		Type:           IntersectionAABB,
		HitT:           hitT,
		InstanceIndex:  cand.InstanceIndex,
		GeometryIndex:  n.GeometryIndex,
		PrimitiveIndex: n.PrimitiveIndex,
		PoolIndex:      cand.PoolIndex,
		Opaque:         n.Opaque,
	}
	if tr.RayFlags.TerminateOnFirstHit() {
		tr.Active = false
	}
	return true
}

func (tr *Trace) confirmIntersection(cand Candidate, n *TriangleNode) {
	t, u, v, _ := intersectTriangle(cand.Origin, cand.Dir, n.Vertices)
	tr.Committed = &Intersection{
		Type:           IntersectionTriangle,
		HitT:           t,
		U:              u,
		V:              v,
		InstanceIndex:  cand.InstanceIndex,
		GeometryIndex:  n.GeometryIndex,
		PrimitiveIndex: n.PrimitiveIndex,
		PoolIndex:      cand.PoolIndex,
		Opaque:         n.Opaque,
		FrontFace:      dot3(cand.Dir, cross3(sub3(n.Vertices[1], n.Vertices[0]), sub3(n.Vertices[2], n.Vertices[0]))) < 0,
	}
}

func (tr *Trace) generateIntersection(cand Candidate, n *ProceduralNode) {
	hitT, _ := n.Bounds.Intersect(cand.Origin, cand.Dir, tr.TMin, tr.TMax)
	tr.Committed = &Intersection{
		Type:           IntersectionAABB,
		HitT:           hitT,
		InstanceIndex:  cand.InstanceIndex,
		GeometryIndex:  n.GeometryIndex,
		PrimitiveIndex: n.PrimitiveIndex,
		PoolIndex:      cand.PoolIndex,
		Opaque:         n.Opaque,
	}
}

// --- Node.step implementations ---

func (b *BoxNode) step(tr *Trace, bvh *BVH) Ternary {
	cand := tr.getCandidate()
	if _, ok := b.Bounds.Intersect(cand.Origin, cand.Dir, tr.TMin, tr.TMax); !ok {
		return NO
	}
	for _, child := range b.resolved {
		tr.Candidates = append(tr.Candidates, Candidate{PoolIndex: child, Origin: cand.Origin, Dir: cand.Dir, InstanceIndex: cand.InstanceIndex})
	}
	return NO
}

func (in *InstanceNode) step(tr *Trace, bvh *BVH) Ternary {
	cand := tr.getCandidate()
	objOrigin := invTransform(in.Transform, cand.Origin, true)
	objDir := invTransform(in.Transform, cand.Dir, false)
	instIdx, err := bvh.poolIndexOf(in)
	if err != nil {
		return NO
	}
	tr.Candidates = append(tr.Candidates, Candidate{PoolIndex: in.resolved, Origin: objOrigin, Dir: objDir, InstanceIndex: instIdx})
	return NO
}

func (t *TriangleNode) step(tr *Trace, bvh *BVH) Ternary {
	if tr.RayFlags.SkipTriangles() {
		return NO
	}
	cand := tr.getCandidate()
	if !tr.RayFlags.acceptsOpaque(t.Opaque) {
		return NO
	}
	hitT, _, _, hit := intersectTriangle(cand.Origin, cand.Dir, t.Vertices)
	if !hit || hitT < tr.TMin || hitT > tr.TMax {
		return NO
	}
	return YES
}

func (p *ProceduralNode) step(tr *Trace, bvh *BVH) Ternary {
	if tr.RayFlags.SkipAABBs() {
		return NO
	}
	cand := tr.getCandidate()
	if !tr.RayFlags.acceptsOpaque(p.Opaque) {
		return NO
	}
	if _, ok := p.Bounds.Intersect(cand.Origin, cand.Dir, tr.TMin, tr.TMax); !ok {
		return NO
	}
	return MAYBE
}
