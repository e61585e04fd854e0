package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidMove is returned for moves onto occupied or off-board cells.
var ErrInvalidMove = errors.New("invalid move")

// lines lists every winning line: rows, then columns, then diagonals.
var lines = [8][Size]Position{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

// InBounds reports whether (row, col) addresses a cell on the board.
func InBounds(row, col int) bool {
	return row >= 0 && row < Size && col >= 0 && col < Size
}

// At returns the symbol at (row, col), or None when off the board.
func (b Board) At(row, col int) Symbol {
	if !InBounds(row, col) {
		return None
	}
	return b[row][col]
}

// Full reports whether every cell holds a symbol.
func (b Board) Full() bool {
	for _, row := range b {
		for _, cell := range row {
			if cell == None {
				return false
			}
		}
	}
	return true
}

// Count returns how many cells hold s.
func (b Board) Count(s Symbol) int {
	n := 0
	for _, row := range b {
		for _, cell := range row {
			if cell == s {
				n++
			}
		}
	}
	return n
}

// ApplyMove places s at (row, col) and returns the resulting board. The
// input board is never modified.
func ApplyMove(b Board, row, col int, s Symbol) (Board, error) {
	if !s.Valid() {
		return b, fmt.Errorf("%w: unknown symbol %q", ErrInvalidMove, string(s))
	}
	if !InBounds(row, col) {
		return b, fmt.Errorf("%w: cell (%d,%d) is off the board", ErrInvalidMove, row, col)
	}
	if b[row][col] != None {
		return b, fmt.Errorf("%w: cell (%d,%d) is taken", ErrInvalidMove, row, col)
	}

	next := b
	next[row][col] = s
	return next, nil
}

// DetectOutcome returns the winner of the first complete line, Draw when the
// board is full without a winner, and OutcomeNone otherwise.
func DetectOutcome(b Board) Outcome {
	for _, line := range lines {
		first := b[line[0].Row][line[0].Col]
		if first == None {
			continue
		}
		if b[line[1].Row][line[1].Col] == first && b[line[2].Row][line[2].Col] == first {
			return outcomeFor(first)
		}
	}

	if b.Full() {
		return OutcomeDraw
	}
	return OutcomeNone
}
