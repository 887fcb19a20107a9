package value

import "github.com/gogpu/spirvm/ierr"

// Aggregate is the shared behavior of Array and Struct: an ordered
// sequence of owned Value elements. Destroying an Aggregate destroys
// its entire subtree; Go's GC handles that automatically once the
// Aggregate is unreachable, so there is no explicit destructor — only
// the ownership contract (every nested Value is reachable from
// exactly one Aggregate) that the original's manual memory management
// enforced by construction.
type Aggregate struct {
	typ      *Type
	elements []Value
}

func (a *Aggregate) Type() *Type      { return a.typ }
func (a *Aggregate) Len() int         { return len(a.elements) }
func (a *Aggregate) At(i int) Value   { return a.elements[i] }
func (a *Aggregate) Elements() []Value { return a.elements }

func (a *Aggregate) equals(other *Aggregate) bool {
	if !a.typ.Equals(other.typ) {
		return false
	}
	if len(a.elements) != len(other.elements) {
		return false
	}
	for i := range a.elements {
		if !a.elements[i].Equals(other.elements[i]) {
			return false
		}
	}
	return true
}

func (a *Aggregate) recursiveApply(self Value, fn func(Value) bool) {
	for _, e := range a.elements {
		e.RecursiveApply(fn)
	}
	fn(self)
}

// Array is an ordered sequence of owned Value elements. Its element
// count can be fixed at construction or, for a runtime-sized array
// (Type.Count()==0), inferred from the first assignment.
type Array struct {
	Aggregate
}

func newArray(t *Type, undef bool) *Array {
	a := &Array{Aggregate{typ: t}}
	n := t.Count()
	if n > 0 {
		a.elements = make([]Value, n)
		for i := range a.elements {
			a.elements[i] = t.Element().Construct(undef)
		}
	}
	return a
}

// NewArrayFromElements builds an Array by taking ownership of
// elements, inferring the array's element type from elements[0].
// elements must be non-empty.
func NewArrayFromElements(elements []Value) *Array {
	if len(elements) == 0 {
		panic("NewArrayFromElements: elements must be non-empty")
	}
	return &Array{Aggregate{typ: NewArray(uint32(len(elements)), elements[0].Type()), elements: elements}}
}

func (a *Array) CopyFrom(other Value) error {
	o, ok := other.(*Array)
	if !ok {
		return ierr.NewShapeMismatch("cannot copy array from %T", other)
	}
	// Runtime arrays (size 0) adopt the source's length on first copy.
	if len(a.elements) == 0 && a.typ.Count() == 0 {
		a.elements = make([]Value, len(o.elements))
		elemType := a.typ.Element()
		for i := range a.elements {
			a.elements[i] = elemType.MustConstruct()
		}
	}
	if len(a.elements) != len(o.elements) {
		return ierr.NewShapeMismatch("cannot copy array of size %d into array of size %d", len(o.elements), len(a.elements))
	}
	for i := range a.elements {
		if err := a.elements[i].CopyFrom(o.elements[i]); err != nil {
			return ierr.NewShapeMismatch("array element %d: %v", i, err)
		}
	}
	return nil
}

func (a *Array) CopyReinterp(other Value) error {
	o, ok := other.(*Array)
	if !ok {
		return ierr.NewShapeMismatch("cannot reinterp-copy array from non-array %T", other)
	}
	if len(a.elements) != len(o.elements) {
		return ierr.NewShapeMismatch("cannot reinterp-copy array of size %d into array of size %d", len(o.elements), len(a.elements))
	}
	for i := range a.elements {
		if err := a.elements[i].CopyReinterp(o.elements[i]); err != nil {
			return err
		}
	}
	return nil
}

func (a *Array) Equals(other Value) bool {
	o, ok := other.(*Array)
	if !ok {
		return false
	}
	return a.equals(&o.Aggregate)
}

func (a *Array) RecursiveApply(fn func(Value) bool) { a.recursiveApply(a, fn) }

// InferType replaces the Array's element type with the type of its
// first element. Requires at least one element.
func (a *Array) InferType() {
	if len(a.elements) == 0 {
		panic("InferType: array has no elements to infer from")
	}
	a.typ.ReplaceSubElement(a.elements[0].Type())
}

// Struct is an ordered sequence of owned Value elements with field
// names carried by its Type.
type Struct struct {
	Aggregate
}

func newStructValue(t *Type, undef bool) *Struct {
	s := &Struct{Aggregate{typ: t}}
	fields := t.Fields()
	s.elements = make([]Value, len(fields))
	for i, f := range fields {
		s.elements[i] = f.Construct(undef)
	}
	return s
}

// NewStructFromElements builds a Struct by taking ownership of
// elements, inferring the struct's field types from each element and
// naming fields per names (parallel, may contain "" entries).
func NewStructFromElements(elements []Value, names []string) *Struct {
	fields := make([]*Type, len(elements))
	for i, e := range elements {
		fields[i] = e.Type()
	}
	return &Struct{Aggregate{typ: NewStruct(fields, names), elements: elements}}
}

func (s *Struct) CopyFrom(other Value) error {
	o, ok := other.(*Struct)
	if !ok {
		return ierr.NewShapeMismatch("cannot copy struct from %T", other)
	}
	if len(s.elements) != len(o.elements) {
		return ierr.NewShapeMismatch("cannot copy struct of size %d into struct of size %d", len(o.elements), len(s.elements))
	}
	for i := range s.elements {
		if err := s.elements[i].CopyFrom(o.elements[i]); err != nil {
			return ierr.NewShapeMismatch("struct field %d: %v", i, err)
		}
	}
	return nil
}

func (s *Struct) CopyReinterp(other Value) error {
	// Structs are not numeric aggregates: reinterpretation falls back to CopyFrom.
	return s.CopyFrom(other)
}

func (s *Struct) Equals(other Value) bool {
	o, ok := other.(*Struct)
	if !ok {
		return false
	}
	return s.equals(&o.Aggregate)
}

func (s *Struct) RecursiveApply(fn func(Value) bool) { s.recursiveApply(s, fn) }

// InferType replaces every field's type with the type of the struct's
// first element. This reproduces the original implementation's loop,
// which indexes elements[0] instead of elements[i] for every field —
// preserved per spec's Open Question (see DESIGN.md).
func (s *Struct) InferType() {
	if len(s.elements) == 0 {
		return
	}
	first := s.elements[0].Type()
	for i := range s.elements {
		s.typ.ReplaceFieldType(first, i)
	}
}

// Field returns the named field's value, or nil if absent.
func (s *Struct) Field(name string) Value {
	for i, n := range s.typ.FieldNames() {
		if n == name {
			return s.elements[i]
		}
	}
	return nil
}
