package spv

import (
	"encoding/binary"

	"github.com/gogpu/spirvm/ierr"
)

// MagicNumber is SPIR-V's fixed magic word, used to detect the
// stream's byte order.
const MagicNumber uint32 = 0x07230203

// Header carries the fixed fields of the SPIR-V physical layout that
// precede the instruction stream.
type Header struct {
	VersionMajor, VersionMinor uint8
	Generator                  uint32
	Bound                      uint32
	Schema                     uint32
}

// Module is the decoded form of a SPIR-V binary: its header and its
// instruction list. Nothing here has been interpreted yet — OpType*/
// OpVariable/OpFunction declarations still need package vm's load
// phase to populate an idtable.DataView from them.
type Module struct {
	Header Header
	Insts  InstList
}

// Decode parses a little-endian 32-bit word stream into a Module:
// magic, version, generator, bound, schema, then a flat instruction
// stream. A byte-swapped stream is detected from the magic number and
// read big-endian.
func Decode(data []byte) (*Module, error) {
	if len(data)%4 != 0 || len(data) < 20 {
		return nil, ierr.NewMalformedModule("SPIR-V binary must be a whole number of words and at least 5 words long")
	}
	words := make([]uint32, len(data)/4)
	var order binary.ByteOrder = binary.LittleEndian
	// Detect byte order from the magic number; a byte-swapped stream
	// starts with the magic number's reversed bytes.
	if binary.LittleEndian.Uint32(data[0:4]) != MagicNumber {
		if binary.BigEndian.Uint32(data[0:4]) == MagicNumber {
			order = binary.BigEndian
		} else {
			return nil, ierr.NewMalformedModule("missing or corrupt SPIR-V magic number")
		}
	}
	for i := range words {
		words[i] = order.Uint32(data[i*4 : i*4+4])
	}
	return DecodeWords(words)
}

// DecodeWords decodes an already-word-sliced little-endian stream
// (used when the front end has already assembled the word array,
// e.g. from a disassembly-independent loader).
func DecodeWords(words []uint32) (*Module, error) {
	if len(words) < 5 {
		return nil, ierr.NewMalformedModule("SPIR-V module shorter than the fixed header")
	}
	if words[0] != MagicNumber {
		return nil, ierr.NewMalformedModule("missing or corrupt SPIR-V magic number")
	}
	m := &Module{
		Header: Header{
			VersionMajor: uint8((words[1] >> 16) & 0xff),
			VersionMinor: uint8((words[1] >> 8) & 0xff),
			Generator:    words[2],
			Bound:        words[3],
			Schema:       words[4],
		},
	}

	pos := 5
	for pos < len(words) {
		first := words[pos]
		wordCount := int(first >> 16)
		op := OpCode(first & 0xffff)
		if wordCount == 0 || pos+wordCount > len(words) {
			return nil, ierr.NewMalformedModule("instruction at word %d has an invalid word count %d", pos, wordCount)
		}
		body := words[pos+1 : pos+wordCount]
		inst := Instruction{Op: op, WordOffset: pos}

		idx := 0
		if op.HasResultType() {
			if idx >= len(body) {
				return nil, ierr.NewMalformedModule("opcode %d at word %d is missing its result-type operand", op, pos)
			}
			inst.ResultType = body[idx]
			idx++
		}
		if op.HasResult() {
			if idx >= len(body) {
				return nil, ierr.NewMalformedModule("opcode %d at word %d is missing its result operand", op, pos)
			}
			inst.Result = body[idx]
			idx++
		}
		inst.Operands = append([]uint32(nil), body[idx:]...)

		if op == OpString {
			if s, _ := DecodeString(inst.Operands); s != "" {
				m.Insts.AddBreak(len(m.Insts.Insts), s)
			}
		}

		m.Insts.Insts = append(m.Insts.Insts, inst)
		pos += wordCount
	}
	return m, nil
}

// DecodeString decodes a NUL-terminated, little-endian-packed literal
// string from the given operand words (4 ASCII bytes per word, as
// SPIR-V packs them), returning the string and the number of words it
// consumed.
func DecodeString(words []uint32) (string, int) {
	var buf []byte
	for i, w := range words {
		b := [4]byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)}
		terminated := false
		for _, c := range b {
			if c == 0 {
				terminated = true
				break
			}
			buf = append(buf, c)
		}
		if terminated {
			return string(buf), i + 1
		}
	}
	return string(buf), len(words)
}
