package value

// Value carries a Type and the runtime state that Type describes.
// Every Value in the taxonomy (Primitive, Array, Struct, CoopMatrix,
// String, Image, Sampler, SampledImage, AccelStruct) implements this
// uniform contract.
type Value interface {
	// Type returns the Value's Type. It never changes base after
	// construction (Primitive.Cast is the sole exception, and it
	// preserves the underlying 32-bit word).
	Type() *Type

	// CopyFrom deep-overwrites this Value's state from other. other's
	// Type must share this Value's base; for Array/Struct the element
	// counts must match, except a zero-length Array adopts other's
	// count on first copy.
	CopyFrom(other Value) error

	// CopyReinterp is a bit-level reinterpretation for Primitives,
	// elementwise for Arrays, and falls back to CopyFrom for other
	// aggregates. It fails if the shapes are structurally incompatible.
	CopyReinterp(other Value) error

	// Equals is a structural, symmetric, reflexive deep equality
	// check; float comparisons use EqFloat's significant-figure tolerance.
	Equals(other Value) bool

	// RecursiveApply performs a post-order traversal, applying fn to
	// every descendant Value and then to this Value itself. fn
	// returns false to indicate traversal should continue regardless
	// (the return value mirrors the original's usage-predicate shape
	// but is not used to short-circuit).
	RecursiveApply(fn func(Value) bool)
}

// Construct allocates a fresh Value of Type t. If undef is true
// (the default used for OpUndef-style results and freshly declared
// variables), the value is filled with a visibly-recognizable
// "undefined sentinel" pattern rather than zero, so uninitialized
// reads are easier to spot in practice; if undef is false (as for
// OpConstantNull), the value is zero-initialized.
func (t *Type) Construct(undef bool) Value {
	switch t.base {
	case BaseVoid:
		return nil
	case BaseBool, BaseUint, BaseInt, BaseFloat:
		return newPrimitive(t, undef)
	case BasePointer:
		// A pointer's runtime value is its pointee's value (see idtable.Variable.InitValue).
		return t.elem.Construct(undef)
	case BaseArray:
		return newArray(t, undef)
	case BaseStruct:
		return newStructValue(t, undef)
	case BaseCoopMatrix:
		return newCoopMatrix(t)
	case BaseString:
		return &String{typ: t}
	case BaseImage:
		return newImage(t)
	case BaseSampler:
		return newSampler(t)
	case BaseSampledImage:
		return newSampledImage(t)
	case BaseAccelStruct:
		return newAccelStruct(t)
	default:
		panic("Construct: unhandled base " + t.base.String())
	}
}

// MustConstruct is shorthand for Construct(true), the common case.
func (t *Type) MustConstruct() Value { return t.Construct(true) }
