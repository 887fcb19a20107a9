package idtable

import "github.com/gogpu/spirvm/ierr"

// DataView composes an owned local map with an optional parent view.
// Contains is local-or-ancestral; Ref prefers a local binding, falls
// back to the nearest ancestral one, and otherwise allocates an
// UNDEFINED entry locally. This is how per-function-call stacks
// shadow global bindings without copying the global table: a call
// frame gets a child DataView layered over the module-level one, and
// only ever writes to its own local layer.
type DataView struct {
	local  map[uint32]*Data
	parent *DataView
	bound  uint32
}

// NewDataView creates a root view (no parent) with the given id bound
// (the maximum permissible id + 1).
func NewDataView(bound uint32) *DataView {
	return &DataView{local: make(map[uint32]*Data), bound: bound}
}

// Layer returns a new child view stacked on top of v, sharing v's
// bound. Writes to the child never mutate v.
func (v *DataView) Layer() *DataView {
	return &DataView{local: make(map[uint32]*Data), parent: v, bound: v.bound}
}

// Parent returns the ancestral view, or nil for a root view.
func (v *DataView) Parent() *DataView { return v.parent }

// Bound returns the maximum permissible id + 1.
func (v *DataView) Bound() uint32 { return v.bound }

// Contains reports whether id is bound locally or in any ancestor.
func (v *DataView) Contains(id uint32) bool {
	if _, ok := v.local[id]; ok {
		return true
	}
	if v.parent != nil {
		return v.parent.Contains(id)
	}
	return false
}

// Ref returns the slot for id: the local binding if present, else the
// nearest ancestral binding, else a freshly allocated local UNDEFINED
// slot. The returned Data is live — mutating it through SetValue is
// visible to subsequent Ref calls for the same id in this view (and,
// if the binding is ancestral, in the ancestor too, since the pointer
// is shared rather than copied).
func (v *DataView) Ref(id uint32) *Data {
	if d, ok := v.local[id]; ok {
		return d
	}
	if v.parent != nil && v.parent.Contains(id) {
		return v.parent.Ref(id)
	}
	d := NewUndefined()
	v.local[id] = d
	return d
}

// Set installs d at id in this view's local layer, shadowing (without
// mutating) any ancestral binding for id.
func (v *DataView) Set(id uint32, d *Data) { v.local[id] = d }

// At is Ref but additionally enforces id < Bound.
func (v *DataView) At(id uint32) (*Data, error) {
	if id >= v.bound {
		return nil, ierr.NewOutOfBounds("id %d is out of the module's bound %d", id, v.bound)
	}
	return v.Ref(id), nil
}
