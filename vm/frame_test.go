package vm

import (
	"errors"
	"testing"

	"github.com/gogpu/spirvm/idtable"
	"github.com/gogpu/spirvm/ierr"
	"github.com/gogpu/spirvm/value"
)

func TestFramePCBlockedUntilArgsConsumed(t *testing.T) {
	view := idtable.NewDataView(8)
	f := newFrame(0, []value.Value{value.NewUint32(1), value.NewUint32(2)}, 0, view)

	var under *ierr.UnderconsumedError
	if err := f.IncPC(); !errors.As(err, &under) {
		t.Fatalf("Expected an Underconsumed error with unread args, got %v", err)
	}
	if err := f.SetPC(5); !errors.As(err, &under) {
		t.Fatalf("Expected SetPC to fail with unread args, got %v", err)
	}

	if _, err := f.GetArg(); err != nil {
		t.Fatalf("GetArg failed: %v", err)
	}
	if f.PC() != 1 {
		t.Errorf("GetArg should advance pc; pc = %d, want 1", f.PC())
	}
	if err := f.IncPC(); !errors.As(err, &under) {
		t.Fatal("Expected IncPC to still fail with one arg left")
	}

	if _, err := f.GetArg(); err != nil {
		t.Fatalf("GetArg failed: %v", err)
	}
	if err := f.IncPC(); err != nil {
		t.Errorf("IncPC with all args consumed failed: %v", err)
	}
	if f.PC() != 3 {
		t.Errorf("pc = %d, want 3", f.PC())
	}
}

func TestFrameGetArgExhausted(t *testing.T) {
	f := newFrame(0, nil, 0, idtable.NewDataView(8))
	if _, err := f.GetArg(); err == nil {
		t.Error("Expected GetArg with no args to fail")
	}
	if err := f.IncPC(); err != nil {
		t.Errorf("IncPC with zero declared args should pass: %v", err)
	}
}

func TestFrameStack(t *testing.T) {
	var s FrameStack
	if !s.Empty() {
		t.Fatal("new stack should be empty")
	}
	f1 := newFrame(1, nil, 0, idtable.NewDataView(8))
	f2 := newFrame(2, nil, 7, idtable.NewDataView(8))
	s.Push(f1)
	s.Push(f2)
	if s.Depth() != 2 {
		t.Errorf("depth = %d, want 2", s.Depth())
	}
	if s.Top() != f2 {
		t.Error("Top should be the last pushed frame")
	}
	if got := s.Pop(); got != f2 || got.RetAt() != 7 {
		t.Error("Pop returned the wrong frame")
	}
	if s.Top() != f1 {
		t.Error("Pop should expose the frame beneath")
	}
}
