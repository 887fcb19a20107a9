package raytrace

import "github.com/gogpu/spirvm/ierr"

// Node is implemented by each of the four node kinds; step is the
// single-candidate transition function the Trace state machine calls.
type Node interface {
	step(tr *Trace, bvh *BVH) Ternary
}

// BVH is the bounding-volume hierarchy as a single indexed pool banded
// into four contiguous regions: box nodes, instance nodes, triangle
// nodes, procedural nodes (in that order). BoxIndex/InstanceIndex/
// TriangleIndex/ProceduralIndex are the ascending boundaries between
// bands; ProceduralIndex == len(Nodes).
type BVH struct {
	Nodes []Node

	BoxIndex        uint32
	InstanceIndex   uint32
	TriangleIndex   uint32
	ProceduralIndex uint32

	indexOf map[Node]uint32
}

// NewBVH assembles the pool from its four bands, in band order, and
// records each node's absolute pool index for later lookup.
func NewBVH(boxes []*BoxNode, instances []*InstanceNode, triangles []*TriangleNode, procedurals []*ProceduralNode) *BVH {
	total := len(boxes) + len(instances) + len(triangles) + len(procedurals)
	bvh := &BVH{
		BoxIndex:        uint32(len(boxes)),
		InstanceIndex:   uint32(len(boxes) + len(instances)),
		TriangleIndex:   uint32(len(boxes) + len(instances) + len(triangles)),
		ProceduralIndex: uint32(total),
		Nodes:           make([]Node, 0, total),
		indexOf:         make(map[Node]uint32, total),
	}
	add := func(n Node) {
		bvh.indexOf[n] = uint32(len(bvh.Nodes))
		bvh.Nodes = append(bvh.Nodes, n)
	}
	for _, n := range boxes {
		add(n)
	}
	for _, n := range instances {
		add(n)
	}
	for _, n := range triangles {
		add(n)
	}
	for _, n := range procedurals {
		add(n)
	}
	return bvh
}

// Resolve walks every BoxNode and InstanceNode once, turning their
// authored (kind, index-within-kind) NodeReferences into direct pool
// indices. Must be called before any trace begins.
func (bvh *BVH) Resolve() error {
	for _, n := range bvh.Nodes {
		switch node := n.(type) {
		case *BoxNode:
			node.resolved = make([]uint32, len(node.Children))
			for i, ref := range node.Children {
				idx, err := ref.Resolve(bvh.BoxIndex, bvh.InstanceIndex, bvh.TriangleIndex, bvh.ProceduralIndex)
				if err != nil {
					return err
				}
				node.resolved[i] = idx
			}
		case *InstanceNode:
			idx, err := node.Child.Resolve(bvh.BoxIndex, bvh.InstanceIndex, bvh.TriangleIndex, bvh.ProceduralIndex)
			if err != nil {
				return err
			}
			node.resolved = idx
		}
	}
	return nil
}

// poolIndexOf returns the absolute pool index a node (by identity) was
// assigned when the BVH was built.
func (bvh *BVH) poolIndexOf(n Node) (uint32, error) {
	idx, ok := bvh.indexOf[n]
	if !ok {
		return 0, ierr.NewOutOfBounds("node is not part of this acceleration structure's pool")
	}
	return idx, nil
}

// Root resolves the top-level-acceleration-structure NodeReference
// (authored externally as a uvec2) into the pool index a new Trace
// should begin candidate iteration from.
func (bvh *BVH) Root(tlas NodeReference) (uint32, error) {
	return tlas.Resolve(bvh.BoxIndex, bvh.InstanceIndex, bvh.TriangleIndex, bvh.ProceduralIndex)
}
