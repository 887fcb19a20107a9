package vm

import (
	"github.com/gogpu/spirvm/idtable"
	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/value"
)

// Frame is one function invocation's execution state: a program
// counter into the instruction list, the argument Values the caller
// pushed (consumed in declaration order by OpFunctionParameter), the
// id the return value shall be written into (0 = none), and the
// DataView layer holding the call's local bindings.
//
// The program counter may not advance past the parameter prologue
// until every declared argument has been consumed: IncPC and SetPC
// fail with an Underconsumed error while arguments remain.
type Frame struct {
	pc        int
	args      []value.Value
	argCursor int
	retAt     uint32
	view      *idtable.DataView

	// curBlock/prevBlock track which basic block the frame is in and
	// which it came from, which is all OpPhi needs.
	curBlock  uint32
	prevBlock uint32
}

func newFrame(pc int, args []value.Value, retAt uint32, view *idtable.DataView) *Frame {
	return &Frame{pc: pc, args: args, retAt: retAt, view: view}
}

// PC returns the current instruction index.
func (f *Frame) PC() int { return f.pc }

// RetAt returns the id the frame's return value shall be written into,
// or 0 when the call discards its result.
func (f *Frame) RetAt() uint32 { return f.retAt }

// View returns the frame's local DataView layer.
func (f *Frame) View() *idtable.DataView { return f.view }

// GetArg consumes the next declared argument, advancing both the
// argument cursor and the program counter (each argument opcode is one
// instruction).
func (f *Frame) GetArg() (value.Value, error) {
	if f.argCursor >= len(f.args) {
		return nil, ierr.NewOutOfBounds("function declares more parameters than the call supplied (%d)", len(f.args))
	}
	v := f.args[f.argCursor]
	f.argCursor++
	f.pc++
	return v, nil
}

func (f *Frame) argsConsumed() bool { return f.argCursor == len(f.args) }

// IncPC advances the program counter by one. It fails while declared
// arguments remain unconsumed.
func (f *Frame) IncPC() error {
	if !f.argsConsumed() {
		return ierr.NewUnderconsumed("%d of %d call arguments never consumed", len(f.args)-f.argCursor, len(f.args))
	}
	f.pc++
	return nil
}

// SetPC jumps the program counter. It fails while declared arguments
// remain unconsumed.
func (f *Frame) SetPC(pc int) error {
	if !f.argsConsumed() {
		return ierr.NewUnderconsumed("%d of %d call arguments never consumed", len(f.args)-f.argCursor, len(f.args))
	}
	f.pc = pc
	return nil
}

// EnterBlock records that execution has reached the label of a new
// basic block.
func (f *Frame) EnterBlock(label uint32) {
	f.prevBlock = f.curBlock
	f.curBlock = label
}

// FrameStack is the per-invocation stack of call frames. Frames are
// pushed by OpFunctionCall and popped by OpReturn/OpReturnValue; the
// invocation terminates when the stack empties.
type FrameStack struct {
	frames []*Frame
}

// Push adds f as the new top frame.
func (s *FrameStack) Push(f *Frame) { s.frames = append(s.frames, f) }

// Pop removes and returns the top frame.
func (s *FrameStack) Pop() *Frame {
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f
}

// Top returns the current frame without removing it.
func (s *FrameStack) Top() *Frame { return s.frames[len(s.frames)-1] }

// Empty reports whether no frames remain.
func (s *FrameStack) Empty() bool { return len(s.frames) == 0 }

// Depth returns the number of frames on the stack.
func (s *FrameStack) Depth() int { return len(s.frames) }

// Clear drops every frame (OpKill / OpTerminateInvocation).
func (s *FrameStack) Clear() { s.frames = nil }
