// Package value defines the typed value model executed by the SPIR-V
// interpreter: a closed taxonomy of runtime Types and Values with a
// uniform contract (construction, deep copy, structural equality,
// reinterpret-cast copy, recursive traversal, and a generic
// self-description as a Struct).
//
// # Taxonomy
//
// Every Type has one of a fixed set of bases (Void, Bool, Uint, Int,
// Float, Pointer, Array, Struct, String, Image, Sampler, SampledImage,
// CoopMatrix, AccelStruct, Function). Every Value carries exactly one
// Type and the runtime state that Type describes: Primitive, Array,
// Struct, CoopMatrix, String, Image, Sampler, SampledImage, or
// AccelStruct.
package value
