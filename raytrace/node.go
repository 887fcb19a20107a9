package raytrace

import "github.com/gogpu/spirvm/ierr"

// Kind tags which of the four bands a NodeReference's index falls in.
type Kind uint8

const (
	KindBox Kind = iota
	KindInstance
	KindTriangle
	KindProcedural
)

// NodeReference is a (kind, index-within-kind) pair as authored in the
// external form (a uvec2); Resolve turns it into a direct index into
// the BVH's single flat pool, done once at load time.
type NodeReference struct {
	Kind  Kind
	Index uint32
}

// Resolve converts the (kind, index-within-kind) pair into an absolute
// index into the pool, given the band boundaries.
func (r NodeReference) Resolve(boxIndex, instanceIndex, triangleIndex, proceduralIndex uint32) (uint32, error) {
	switch r.Kind {
	case KindBox:
		if r.Index >= boxIndex {
			return 0, ierr.NewOutOfBounds("box node index %d out of range [0,%d)", r.Index, boxIndex)
		}
		return r.Index, nil
	case KindInstance:
		if instanceIndex-boxIndex <= r.Index {
			return 0, ierr.NewOutOfBounds("instance node index %d out of range", r.Index)
		}
		return boxIndex + r.Index, nil
	case KindTriangle:
		if triangleIndex-instanceIndex <= r.Index {
			return 0, ierr.NewOutOfBounds("triangle node index %d out of range", r.Index)
		}
		return instanceIndex + r.Index, nil
	case KindProcedural:
		if proceduralIndex-triangleIndex <= r.Index {
			return 0, ierr.NewOutOfBounds("procedural node index %d out of range", r.Index)
		}
		return triangleIndex + r.Index, nil
	default:
		return 0, ierr.NewMalformedModule("unknown node reference kind %d", r.Kind)
	}
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max [3]float32
}

// Intersect tests ray (origin o, direction d) against the box, within
// [tMin, tMax]. Returns the entry distance and whether it intersects.
func (b AABB) Intersect(o, d [3]float32, tMin, tMax float32) (float32, bool) {
	tNear, tFar := tMin, tMax
	for axis := 0; axis < 3; axis++ {
		if d[axis] == 0 {
			if o[axis] < b.Min[axis] || o[axis] > b.Max[axis] {
				return 0, false
			}
			continue
		}
		inv := 1 / d[axis]
		t1 := (b.Min[axis] - o[axis]) * inv
		t2 := (b.Max[axis] - o[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tNear {
			tNear = t1
		}
		if t2 < tFar {
			tFar = t2
		}
		if tNear > tFar {
			return 0, false
		}
	}
	return tNear, true
}

// BoxNode groups child references with a bounding AABB. Stepping a box
// tests the ray against its own bounds and, on a hit, queues every
// child as a new candidate; it never itself resolves as a primitive.
type BoxNode struct {
	Bounds   AABB
	Children []NodeReference

	// resolved is populated once by BVH.Resolve from Children.
	resolved []uint32
}

// InstanceNode carries an affine object-to-world transform and a
// reference to the BLAS root (another node in the same pool) this
// instance draws geometry from.
type InstanceNode struct {
	// Transform is a row-major 3x4 affine matrix (object space -> world space).
	Transform   [3][4]float32
	Child       NodeReference
	CustomIndex uint32
	Mask        uint32
	SBTOffset   uint32
	Opaque      bool
	InstanceID  uint32

	resolved uint32
}

// TriangleNode is a leaf holding one triangle's three vertices.
type TriangleNode struct {
	Vertices      [3][3]float32
	GeometryIndex uint32
	PrimitiveIndex uint32
	Opaque        bool
}

// ProceduralNode is a leaf bounded by an AABB whose intersection is
// resolved by an intersection shader invocation outside this package;
// stepping it reports MAYBE when the ray meets its bounds, deferring
// the actual hit/miss decision to that shader.
type ProceduralNode struct {
	Bounds         AABB
	Opaque         bool
	GeometryIndex  uint32
	PrimitiveIndex uint32
}

// invTransform applies the inverse of an affine 3x4 transform to a
// point (asPoint=true, translation applies) or a direction
// (asPoint=false, translation is ignored). The transform is assumed
// orthogonal-free-scale (general affine), so the inverse is computed
// by straightforward linear solve rather than assuming orthonormality.
func invTransform(m [3][4]float32, v [3]float32, asPoint bool) [3]float32 {
	// Subtract translation before solving the linear system, if this
	// is a point; directions have no translation component.
	var rhs [3]float32
	if asPoint {
		rhs = [3]float32{v[0] - m[0][3], v[1] - m[1][3], v[2] - m[2][3]}
	} else {
		rhs = v
	}
	a := [3][3]float32{
		{m[0][0], m[0][1], m[0][2]},
		{m[1][0], m[1][1], m[1][2]},
		{m[2][0], m[2][1], m[2][2]},
	}
	det := a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
	if det == 0 {
		return v
	}
	inv := 1 / det
	adj := [3][3]float32{
		{(a[1][1]*a[2][2] - a[1][2]*a[2][1]) * inv, (a[0][2]*a[2][1] - a[0][1]*a[2][2]) * inv, (a[0][1]*a[1][2] - a[0][2]*a[1][1]) * inv},
		{(a[1][2]*a[2][0] - a[1][0]*a[2][2]) * inv, (a[0][0]*a[2][2] - a[0][2]*a[2][0]) * inv, (a[0][2]*a[1][0] - a[0][0]*a[1][2]) * inv},
		{(a[1][0]*a[2][1] - a[1][1]*a[2][0]) * inv, (a[0][1]*a[2][0] - a[0][0]*a[2][1]) * inv, (a[0][0]*a[1][1] - a[0][1]*a[1][0]) * inv},
	}
	return [3]float32{
		adj[0][0]*rhs[0] + adj[0][1]*rhs[1] + adj[0][2]*rhs[2],
		adj[1][0]*rhs[0] + adj[1][1]*rhs[1] + adj[1][2]*rhs[2],
		adj[2][0]*rhs[0] + adj[2][1]*rhs[1] + adj[2][2]*rhs[2],
	}
}

func sub3(a, b [3]float32) [3]float32 { return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func add3(a, b [3]float32) [3]float32 { return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func scale3(a [3]float32, s float32) [3]float32 { return [3]float32{a[0] * s, a[1] * s, a[2] * s} }
func cross3(a, b [3]float32) [3]float32 {
	return [3]float32{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}
func dot3(a, b [3]float32) float32 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

// intersectTriangle implements the Moller-Trumbore ray-triangle test,
// returning (t, u, v, hit).
func intersectTriangle(o, d [3]float32, tri [3][3]float32) (t, u, v float32, hit bool) {
	const epsilon = 1e-7
	e1 := sub3(tri[1], tri[0])
	e2 := sub3(tri[2], tri[0])
	pvec := cross3(d, e2)
	det := dot3(e1, pvec)
	if det > -epsilon && det < epsilon {
		return 0, 0, 0, false
	}
	inv := 1 / det
	tvec := sub3(o, tri[0])
	u = dot3(tvec, pvec) * inv
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}
	qvec := cross3(tvec, e1)
	v = dot3(d, qvec) * inv
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}
	t = dot3(e2, qvec) * inv
	return t, u, v, t > epsilon
}
