package value

import "github.com/gogpu/spirvm/ierr"

// String is UTF-8 text.
type String struct {
	typ  *Type
	text string
}

// NewStringValue constructs a String Value from a Go string.
func NewStringValue(s string) *String {
	return &String{typ: NewString(), text: s}
}

func (s *String) Type() *Type  { return s.typ }
func (s *String) Get() string  { return s.text }
func (s *String) Set(v string) { s.text = v }

func (s *String) CopyFrom(other Value) error {
	o, ok := other.(*String)
	if !ok {
		return ierr.NewShapeMismatch("cannot copy string from %T", other)
	}
	s.text = o.text
	return nil
}

func (s *String) CopyReinterp(other Value) error { return s.CopyFrom(other) }

func (s *String) Equals(other Value) bool {
	o, ok := other.(*String)
	return ok && s.text == o.text
}

func (s *String) RecursiveApply(fn func(Value) bool) { fn(s) }
