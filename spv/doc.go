// Package spv decodes the SPIR-V physical layout (a little-endian
// 32-bit word stream) into an ordered Instruction list, and carries
// the opcode/storage-class/execution-model numeric tables the rest of
// the interpreter dispatches on. It does not itself execute anything
// (that is package vm's job).
package spv
