package value

import (
	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/raytrace"
)

// AccelStruct is the runtime value of OpTypeAccelerationStructureKHR:
// a bounding-volume hierarchy plus, once a ray query has begun against
// it, the per-ray Trace state machine from package raytrace. Bundling
// both in one Value mirrors the original interpreter's monolithic
// AccelStruct class; the traversal mechanics
// themselves live in package raytrace.
type AccelStruct struct {
	typ *Type

	bvh  *raytrace.BVH
	tlas raytrace.NodeReference

	boxes       []*raytrace.BoxNode
	instances   []*raytrace.InstanceNode
	triangles   []*raytrace.TriangleNode
	procedurals []*raytrace.ProceduralNode

	trace *raytrace.Trace
}

func newAccelStruct(t *Type) *AccelStruct { return &AccelStruct{typ: t} }

func (a *AccelStruct) Type() *Type { return a.typ }

// BVH returns the loaded bounding-volume hierarchy, or nil if none has
// been bound yet via CopyFromStruct.
func (a *AccelStruct) BVH() *raytrace.BVH { return a.bvh }

// BeginTrace starts a new per-ray Trace against this AccelStruct's BVH
// rooted at its TLAS reference, replacing any trace already in
// progress.
func (a *AccelStruct) BeginTrace(origin, dir [3]float32, tMin, tMax float32, flags raytrace.RayFlags) error {
	if a.bvh == nil {
		return ierr.NewMalformedModule("acceleration structure has no bound geometry")
	}
	root, err := a.bvh.Root(a.tlas)
	if err != nil {
		return err
	}
	a.trace = raytrace.NewTrace(origin, dir, tMin, tMax, flags, root)
	return nil
}

// Trace returns the in-progress traversal state, or nil if BeginTrace
// has not been called (or the trace already completed and was cleared).
func (a *AccelStruct) Trace() *raytrace.Trace { return a.trace }

func (a *AccelStruct) CopyFrom(other Value) error {
	if s, ok := other.(*Struct); ok {
		return a.CopyFromStruct(s)
	}
	o, ok := other.(*AccelStruct)
	if !ok {
		return ierr.NewShapeMismatch("cannot copy acceleration structure from %T", other)
	}
	a.bvh = o.bvh
	a.tlas = o.tlas
	a.boxes, a.instances, a.triangles, a.procedurals = o.boxes, o.instances, o.triangles, o.procedurals
	a.trace = nil
	return nil
}

func (a *AccelStruct) CopyReinterp(other Value) error { return a.CopyFrom(other) }

func (a *AccelStruct) Equals(other Value) bool {
	o, ok := other.(*AccelStruct)
	if !ok {
		return false
	}
	// Equality compares the authored geometry, not any in-flight trace:
	// two AccelStructs loaded from the same document are equal even if
	// one has begun a ray query and the other hasn't.
	return a.ToStruct().Equals(o.ToStruct())
}

func (a *AccelStruct) RecursiveApply(fn func(Value) bool) { fn(a) }

var accelStructFieldNames = []string{"tlas", "box_nodes", "instance_nodes", "triangle_nodes", "procedural_nodes"}

func nodeRefToUvec(r raytrace.NodeReference) Value {
	return NewArrayFromElements([]Value{NewUint32(uint32(r.Kind)), NewUint32(r.Index)})
}

func nodeRefFromUvec(v Value) (raytrace.NodeReference, error) {
	arr, ok := v.(*Array)
	if !ok || arr.Len() != 2 {
		return raytrace.NodeReference{}, ierr.NewShapeMismatch("node reference must be a uvec2")
	}
	kind, ok := arr.At(0).(*Primitive)
	if !ok {
		return raytrace.NodeReference{}, ierr.NewShapeMismatch("node reference kind must be numeric")
	}
	idx, ok := arr.At(1).(*Primitive)
	if !ok {
		return raytrace.NodeReference{}, ierr.NewShapeMismatch("node reference index must be numeric")
	}
	return raytrace.NodeReference{Kind: raytrace.Kind(kind.Uint()), Index: idx.Uint()}, nil
}

func floatsToArray(vs ...float32) Value {
	elems := make([]Value, len(vs))
	for i, v := range vs {
		elems[i] = NewFloat32(v)
	}
	return NewArrayFromElements(elems)
}

func arrayToFloats(v Value, n int) ([]float32, error) {
	arr, ok := v.(*Array)
	if !ok || arr.Len() != n {
		return nil, ierr.NewShapeMismatch("expected a %d-element float array", n)
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		p, ok := arr.At(i).(*Primitive)
		if !ok {
			return nil, ierr.NewShapeMismatch("array element %d is not numeric", i)
		}
		out[i] = p.Float()
	}
	return out, nil
}

var boxNodeFieldNames = []string{"min", "max", "children"}

func boxNodeToStruct(n *raytrace.BoxNode) *Struct {
	refs := make([]Value, len(n.Children))
	for i, c := range n.Children {
		refs[i] = nodeRefToUvec(c)
	}
	var childrenVal Value
	if len(refs) == 0 {
		childrenVal = NewArray(0, NewUint(32)).MustConstruct()
	} else {
		childrenVal = NewArrayFromElements(refs)
	}
	return NewStructFromElements([]Value{
		floatsToArray(n.Bounds.Min[0], n.Bounds.Min[1], n.Bounds.Min[2]),
		floatsToArray(n.Bounds.Max[0], n.Bounds.Max[1], n.Bounds.Max[2]),
		childrenVal,
	}, boxNodeFieldNames)
}

func boxNodeFromStruct(s *Struct) (*raytrace.BoxNode, error) {
	min, err := arrayToFloats(fieldByName(s, boxNodeFieldNames, 0), 3)
	if err != nil {
		return nil, err
	}
	max, err := arrayToFloats(fieldByName(s, boxNodeFieldNames, 1), 3)
	if err != nil {
		return nil, err
	}
	childrenField := fieldByName(s, boxNodeFieldNames, 2)
	arr, ok := childrenField.(*Array)
	if !ok {
		return nil, ierr.NewShapeMismatch("box node %q must be an array", boxNodeFieldNames[2])
	}
	children := make([]raytrace.NodeReference, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		ref, err := nodeRefFromUvec(arr.At(i))
		if err != nil {
			return nil, err
		}
		children[i] = ref
	}
	return &raytrace.BoxNode{
		Bounds:   raytrace.AABB{Min: [3]float32{min[0], min[1], min[2]}, Max: [3]float32{max[0], max[1], max[2]}},
		Children: children,
	}, nil
}

var instanceNodeFieldNames = []string{"transform", "child", "custom_index", "mask", "sbt_offset", "opaque", "id"}

func instanceNodeToStruct(n *raytrace.InstanceNode) *Struct {
	rowElems := make([]Value, 3)
	for r := 0; r < 3; r++ {
		rowElems[r] = floatsToArray(n.Transform[r][0], n.Transform[r][1], n.Transform[r][2], n.Transform[r][3])
	}
	return NewStructFromElements([]Value{
		NewArrayFromElements(rowElems),
		nodeRefToUvec(n.Child),
		NewUint32(n.CustomIndex),
		NewUint32(n.Mask),
		NewUint32(n.SBTOffset),
		NewBoolValue(n.Opaque),
		NewUint32(n.InstanceID),
	}, instanceNodeFieldNames)
}

func instanceNodeFromStruct(s *Struct) (*raytrace.InstanceNode, error) {
	transformField := fieldByName(s, instanceNodeFieldNames, 0)
	rows, ok := transformField.(*Array)
	if !ok || rows.Len() != 3 {
		return nil, ierr.NewShapeMismatch("instance node %q must be a 3x4 matrix", instanceNodeFieldNames[0])
	}
	var transform [3][4]float32
	for r := 0; r < 3; r++ {
		row, err := arrayToFloats(rows.At(r), 4)
		if err != nil {
			return nil, err
		}
		copy(transform[r][:], row)
	}
	child, err := nodeRefFromUvec(fieldByName(s, instanceNodeFieldNames, 1))
	if err != nil {
		return nil, err
	}
	custom, _ := fieldByName(s, instanceNodeFieldNames, 2).(*Primitive)
	mask, _ := fieldByName(s, instanceNodeFieldNames, 3).(*Primitive)
	sbt, _ := fieldByName(s, instanceNodeFieldNames, 4).(*Primitive)
	opaque, _ := fieldByName(s, instanceNodeFieldNames, 5).(*Primitive)
	id, _ := fieldByName(s, instanceNodeFieldNames, 6).(*Primitive)
	n := &raytrace.InstanceNode{Transform: transform, Child: child}
	if custom != nil {
		n.CustomIndex = custom.Uint()
	}
	if mask != nil {
		n.Mask = mask.Uint()
	}
	if sbt != nil {
		n.SBTOffset = sbt.Uint()
	}
	if opaque != nil {
		n.Opaque = opaque.Bool()
	}
	if id != nil {
		n.InstanceID = id.Uint()
	}
	return n, nil
}

var triangleNodeFieldNames = []string{"v0", "v1", "v2", "geometry_index", "primitive_index", "opaque"}

func triangleNodeToStruct(n *raytrace.TriangleNode) *Struct {
	return NewStructFromElements([]Value{
		floatsToArray(n.Vertices[0][0], n.Vertices[0][1], n.Vertices[0][2]),
		floatsToArray(n.Vertices[1][0], n.Vertices[1][1], n.Vertices[1][2]),
		floatsToArray(n.Vertices[2][0], n.Vertices[2][1], n.Vertices[2][2]),
		NewUint32(n.GeometryIndex),
		NewUint32(n.PrimitiveIndex),
		NewBoolValue(n.Opaque),
	}, triangleNodeFieldNames)
}

func triangleNodeFromStruct(s *Struct) (*raytrace.TriangleNode, error) {
	var verts [3][3]float32
	for i := 0; i < 3; i++ {
		v, err := arrayToFloats(fieldByName(s, triangleNodeFieldNames, i), 3)
		if err != nil {
			return nil, err
		}
		copy(verts[i][:], v)
	}
	geo, _ := fieldByName(s, triangleNodeFieldNames, 3).(*Primitive)
	prim, _ := fieldByName(s, triangleNodeFieldNames, 4).(*Primitive)
	opaque, _ := fieldByName(s, triangleNodeFieldNames, 5).(*Primitive)
	n := &raytrace.TriangleNode{Vertices: verts}
	if geo != nil {
		n.GeometryIndex = geo.Uint()
	}
	if prim != nil {
		n.PrimitiveIndex = prim.Uint()
	}
	if opaque != nil {
		n.Opaque = opaque.Bool()
	}
	return n, nil
}

var proceduralNodeFieldNames = []string{"min", "max", "opaque", "geometry_index", "primitive_index"}

func proceduralNodeToStruct(n *raytrace.ProceduralNode) *Struct {
	return NewStructFromElements([]Value{
		floatsToArray(n.Bounds.Min[0], n.Bounds.Min[1], n.Bounds.Min[2]),
		floatsToArray(n.Bounds.Max[0], n.Bounds.Max[1], n.Bounds.Max[2]),
		NewBoolValue(n.Opaque),
		NewUint32(n.GeometryIndex),
		NewUint32(n.PrimitiveIndex),
	}, proceduralNodeFieldNames)
}

func proceduralNodeFromStruct(s *Struct) (*raytrace.ProceduralNode, error) {
	min, err := arrayToFloats(fieldByName(s, proceduralNodeFieldNames, 0), 3)
	if err != nil {
		return nil, err
	}
	max, err := arrayToFloats(fieldByName(s, proceduralNodeFieldNames, 1), 3)
	if err != nil {
		return nil, err
	}
	opaque, _ := fieldByName(s, proceduralNodeFieldNames, 2).(*Primitive)
	geo, _ := fieldByName(s, proceduralNodeFieldNames, 3).(*Primitive)
	prim, _ := fieldByName(s, proceduralNodeFieldNames, 4).(*Primitive)
	n := &raytrace.ProceduralNode{Bounds: raytrace.AABB{Min: [3]float32{min[0], min[1], min[2]}, Max: [3]float32{max[0], max[1], max[2]}}}
	if opaque != nil {
		n.Opaque = opaque.Bool()
	}
	if geo != nil {
		n.GeometryIndex = geo.Uint()
	}
	if prim != nil {
		n.PrimitiveIndex = prim.Uint()
	}
	return n, nil
}

// ToStruct produces the external AccelStruct form:
// {tlas, box_nodes, instance_nodes, triangle_nodes, procedural_nodes}.
func (a *AccelStruct) ToStruct() *Struct {
	toArray := func(n int, f func(int) Value) Value {
		if n == 0 {
			return NewArray(0, NewVoid()).MustConstruct()
		}
		elems := make([]Value, n)
		for i := 0; i < n; i++ {
			elems[i] = f(i)
		}
		return NewArrayFromElements(elems)
	}
	return NewStructFromElements([]Value{
		nodeRefToUvec(a.tlas),
		toArray(len(a.boxes), func(i int) Value { return boxNodeToStruct(a.boxes[i]) }),
		toArray(len(a.instances), func(i int) Value { return instanceNodeToStruct(a.instances[i]) }),
		toArray(len(a.triangles), func(i int) Value { return triangleNodeToStruct(a.triangles[i]) }),
		toArray(len(a.procedurals), func(i int) Value { return proceduralNodeToStruct(a.procedurals[i]) }),
	}, accelStructFieldNames)
}

// CopyFromStruct populates the AccelStruct from its external Struct
// form, building and resolving the BVH's node pool.
func (a *AccelStruct) CopyFromStruct(str *Struct) error {
	tlasField := fieldByName(str, accelStructFieldNames, 0)
	if tlasField == nil {
		return ierr.NewShapeMismatch("acceleration structure struct missing field %q", accelStructFieldNames[0])
	}
	tlas, err := nodeRefFromUvec(tlasField)
	if err != nil {
		return err
	}

	readArray := func(idx int) (*Array, error) {
		f := fieldByName(str, accelStructFieldNames, idx)
		if f == nil {
			return nil, ierr.NewShapeMismatch("acceleration structure struct missing field %q", accelStructFieldNames[idx])
		}
		arr, ok := f.(*Array)
		if !ok {
			return nil, ierr.NewShapeMismatch("acceleration structure field %q must be an array", accelStructFieldNames[idx])
		}
		return arr, nil
	}

	boxArr, err := readArray(1)
	if err != nil {
		return err
	}
	instArr, err := readArray(2)
	if err != nil {
		return err
	}
	triArr, err := readArray(3)
	if err != nil {
		return err
	}
	procArr, err := readArray(4)
	if err != nil {
		return err
	}

	boxes := make([]*raytrace.BoxNode, boxArr.Len())
	for i := 0; i < boxArr.Len(); i++ {
		s, ok := boxArr.At(i).(*Struct)
		if !ok {
			return ierr.NewShapeMismatch("box node %d is not a struct", i)
		}
		if boxes[i], err = boxNodeFromStruct(s); err != nil {
			return err
		}
	}
	instances := make([]*raytrace.InstanceNode, instArr.Len())
	for i := 0; i < instArr.Len(); i++ {
		s, ok := instArr.At(i).(*Struct)
		if !ok {
			return ierr.NewShapeMismatch("instance node %d is not a struct", i)
		}
		if instances[i], err = instanceNodeFromStruct(s); err != nil {
			return err
		}
	}
	triangles := make([]*raytrace.TriangleNode, triArr.Len())
	for i := 0; i < triArr.Len(); i++ {
		s, ok := triArr.At(i).(*Struct)
		if !ok {
			return ierr.NewShapeMismatch("triangle node %d is not a struct", i)
		}
		if triangles[i], err = triangleNodeFromStruct(s); err != nil {
			return err
		}
	}
	procedurals := make([]*raytrace.ProceduralNode, procArr.Len())
	for i := 0; i < procArr.Len(); i++ {
		s, ok := procArr.At(i).(*Struct)
		if !ok {
			return ierr.NewShapeMismatch("procedural node %d is not a struct", i)
		}
		if procedurals[i], err = proceduralNodeFromStruct(s); err != nil {
			return err
		}
	}

	bvh := raytrace.NewBVH(boxes, instances, triangles, procedurals)
	if err := bvh.Resolve(); err != nil {
		return err
	}

	a.tlas = tlas
	a.bvh = bvh
	a.boxes, a.instances, a.triangles, a.procedurals = boxes, instances, triangles, procedurals
	a.trace = nil
	return nil
}
