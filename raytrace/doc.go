// Package raytrace implements the acceleration-structure traversal state
// machine used by SPIR-V ray tracing opcodes: a bounding-volume hierarchy
// stored as four contiguous node bands in one pool, and a per-ray Trace
// that steps candidate intersections one at a time.
package raytrace
