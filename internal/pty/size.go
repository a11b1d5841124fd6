package pty

import creackpty "github.com/creack/pty"

const (
	minRows     = 3
	minCols     = 20
	defaultRows = 24
	defaultCols = 80

	// ScrollbackLimit is the number of completed output lines retained
	// alongside the live parser state.
	ScrollbackLimit = 10_000
)

// Size is a terminal's row/column extent.
type Size struct {
	Rows int
	Cols int
}

// DefaultSize is used when the real terminal size can't be determined.
func DefaultSize() Size {
	return Size{Rows: defaultRows, Cols: defaultCols}
}

// Clamp enforces the minimum usable terminal size (3 rows by 20 columns);
// anything smaller makes the VT100 parser's cursor math misbehave.
func (s Size) Clamp() Size {
	if s.Rows < minRows {
		s.Rows = minRows
	}
	if s.Cols < minCols {
		s.Cols = minCols
	}
	return s
}

func (s Size) winsize() *creackpty.Winsize {
	return &creackpty.Winsize{Rows: uint16(s.Rows), Cols: uint16(s.Cols)}
}
