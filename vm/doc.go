// Package vm executes a decoded SPIR-V module: a load phase populates
// an idtable.DataView with the module's declared Types, constants,
// Variables, Functions, and EntryPoints, and an execute phase advances
// per-invocation frame stacks over the instruction list, dispatching
// each opcode against a layered view of that table.
//
// The scheduling model is a single-threaded cooperative executor per
// invocation. A Workgroup interleaves several invocations, each with
// its own frame stack and DataView layer over the shared globals;
// control barriers are the only cross-invocation ordering guarantee,
// implemented as a rendezvous where every invocation suspends until
// all siblings are suspended at a barrier. Whether they all wait at
// the same barrier instruction is not checked.
package vm
