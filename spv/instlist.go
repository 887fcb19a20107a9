package spv

import "sort"

// FileBreak marks that, from InstIndex onward, instructions originate
// from FilePath — used when a module's debug info spans multiple
// source files (OpSource/OpLine).
type FileBreak struct {
	InstIndex int
	FilePath  string
}

// InstList is the ordered, never-reordered sequence of decoded
// instructions produced by Decode, plus the auxiliary sorted list of
// file-boundary records GetBreak queries against.
type InstList struct {
	Insts  []Instruction
	breaks []FileBreak
}

// AddBreak records that FilePath begins at instIndex. Breaks may be
// added out of order; AddBreak re-sorts them on every insert.
func (l *InstList) AddBreak(instIndex int, filePath string) {
	l.breaks = append(l.breaks, FileBreak{InstIndex: instIndex, FilePath: filePath})
	sort.Slice(l.breaks, func(i, j int) bool { return l.breaks[i].InstIndex < l.breaks[j].InstIndex })
}

// GetBreak returns the source file path active at idx — the FilePath
// of the last recorded break at or before idx — or "" if fewer than
// two breaks were recorded (the single-file case) or idx precedes the
// first one.
func (l *InstList) GetBreak(idx int) string {
	if len(l.breaks) <= 1 {
		return ""
	}
	path := ""
	for _, b := range l.breaks {
		if b.InstIndex > idx {
			break
		}
		path = b.FilePath
	}
	return path
}

// Len returns the number of decoded instructions.
func (l *InstList) Len() int { return len(l.Insts) }

// At returns the instruction at idx.
func (l *InstList) At(idx int) Instruction { return l.Insts[idx] }
