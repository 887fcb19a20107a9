// Package idtable implements the module data table: a sparse
// id-to-entity map with a layered, shadowing read path (DataView), and
// the module entities (Variable, Function, EntryPoint) it holds. The
// same DataView machinery backs both the global table built during
// load and the per-function-call local bindings pushed during
// execution.
package idtable
