package spv

import (
	"encoding/binary"
	"testing"
)

// moduleWords assembles a word stream with the standard 5-word header.
func moduleWords(bound uint32, insts ...[]uint32) []uint32 {
	words := []uint32{MagicNumber, 0x00010600, 0, bound, 0}
	for _, inst := range insts {
		words = append(words, inst...)
	}
	return words
}

func inst(op OpCode, operands ...uint32) []uint32 {
	out := []uint32{uint32(len(operands)+1)<<16 | uint32(op)}
	return append(out, operands...)
}

func packString(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words
}

func TestDecodeWordsHeader(t *testing.T) {
	m, err := DecodeWords(moduleWords(42))
	if err != nil {
		t.Fatalf("DecodeWords failed: %v", err)
	}
	if m.Header.Bound != 42 {
		t.Errorf("bound = %d, want 42", m.Header.Bound)
	}
	if m.Header.VersionMajor != 1 || m.Header.VersionMinor != 6 {
		t.Errorf("version = %d.%d, want 1.6", m.Header.VersionMajor, m.Header.VersionMinor)
	}
}

func TestDecodeSplitsResultAndOperands(t *testing.T) {
	words := moduleWords(10,
		inst(OpTypeFloat, 3, 32),          // %3 = OpTypeFloat 32
		inst(OpConstant, 3, 4, 0x3F800000), // %4 = OpConstant %3 1.0
		inst(OpLabel, 5),
	)
	m, err := DecodeWords(words)
	if err != nil {
		t.Fatalf("DecodeWords failed: %v", err)
	}
	if m.Insts.Len() != 3 {
		t.Fatalf("Expected 3 instructions, got %d", m.Insts.Len())
	}

	tf := m.Insts.At(0)
	if tf.Result != 3 || tf.ResultType != 0 {
		t.Errorf("OpTypeFloat: result %d (type %d), want result 3 with no result type", tf.Result, tf.ResultType)
	}
	if tf.Arity() != 1 || tf.Operand(0) != 32 {
		t.Errorf("OpTypeFloat operands = %v, want [32]", tf.Operands)
	}

	c := m.Insts.At(1)
	if c.ResultType != 3 || c.Result != 4 {
		t.Errorf("OpConstant: type %d result %d, want 3 and 4", c.ResultType, c.Result)
	}
	if c.Operand(0) != 0x3F800000 {
		t.Errorf("OpConstant literal = 0x%08X, want 0x3F800000", c.Operand(0))
	}

	l := m.Insts.At(2)
	if l.Result != 5 || l.ResultType != 0 {
		t.Errorf("OpLabel: result %d (type %d), want result 5 with no result type", l.Result, l.ResultType)
	}
}

func TestDecodeRejectsBadStreams(t *testing.T) {
	tests := []struct {
		name  string
		words []uint32
	}{
		{name: "short header", words: []uint32{MagicNumber, 0, 0}},
		{name: "bad magic", words: []uint32{0xDEADBEEF, 0x00010600, 0, 5, 0}},
		{name: "zero word count", words: append(moduleWords(5), 0x0000_0000|uint32(OpNop))},
		{name: "truncated instruction", words: append(moduleWords(5), 5<<16|uint32(OpConstant), 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeWords(tt.words); err == nil {
				t.Error("Expected a malformed-module error")
			}
		})
	}
}

func TestDecodeByteSwappedStream(t *testing.T) {
	words := moduleWords(7)
	data := make([]byte, len(words)*4)
	for i, w := range words {
		binary.BigEndian.PutUint32(data[i*4:], w)
	}
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode of a big-endian stream failed: %v", err)
	}
	if m.Header.Bound != 7 {
		t.Errorf("bound = %d, want 7", m.Header.Bound)
	}
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "short", in: "abc"},
		{name: "word aligned", in: "abcd"},
		{name: "longer", in: "GLSL.std.450"},
		{name: "empty", in: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, consumed := DecodeString(packString(tt.in))
			if got != tt.in {
				t.Errorf("DecodeString = %q, want %q", got, tt.in)
			}
			wantWords := len(tt.in)/4 + 1
			if consumed != wantWords {
				t.Errorf("consumed %d words, want %d", consumed, wantWords)
			}
		})
	}
}

func TestGetBreakMonotone(t *testing.T) {
	var l InstList
	l.AddBreak(10, "b.frag")
	l.AddBreak(0, "a.vert")

	tests := []struct {
		idx  int
		want string
	}{
		{0, "a.vert"},
		{5, "a.vert"},
		{9, "a.vert"},
		{10, "b.frag"},
		{100, "b.frag"},
	}
	prev := ""
	for _, tt := range tests {
		got := l.GetBreak(tt.idx)
		if got != tt.want {
			t.Errorf("GetBreak(%d) = %q, want %q", tt.idx, got, tt.want)
		}
		// Ascending queries may only change file at recorded breaks.
		if prev != "" && got != prev && tt.idx != 10 {
			t.Errorf("file changed at %d, which is not a break index", tt.idx)
		}
		prev = got
	}
}

func TestGetBreakSingleFileIsEmpty(t *testing.T) {
	var l InstList
	if got := l.GetBreak(0); got != "" {
		t.Errorf("GetBreak with no breaks = %q, want empty", got)
	}
	l.AddBreak(0, "only.comp")
	if got := l.GetBreak(5); got != "" {
		t.Errorf("GetBreak with a single file = %q, want empty", got)
	}
}
