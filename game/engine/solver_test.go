package engine

import "testing"

func board(rows ...string) Board {
	var b Board
	for r, line := range rows {
		for c, ch := range line {
			switch ch {
			case 'X':
				b[r][c] = X
			case 'O':
				b[r][c] = O
			}
		}
	}
	return b
}

func TestSolver_Solve(t *testing.T) {
	tests := []struct {
		name string
		b    Board
		turn Symbol
		want Outcome
	}{
		{"empty board", Board{}, X, OutcomeDraw},
		{"immediate win", board("XX.", "OO.", "..."), X, OutcomeX},
		{"forced block", board("XX.", ".O.", "..."), O, OutcomeDraw},
		{"fork", board("X..", ".O.", "..X"), O, OutcomeDraw},
		{"finished", board("XXX", "OO.", "..."), O, OutcomeX},
		{"full draw", board("XOX", "XOO", "OXX"), O, OutcomeDraw},
	}

	s := NewSolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Solve(tt.b, tt.turn); got != tt.want {
				t.Errorf("Solve() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSolver_BestMoves(t *testing.T) {
	s := NewSolver()

	moves := s.BestMoves(board("XX.", "OO.", "..."), X)
	if len(moves) != 1 || moves[0] != (Position{Row: 0, Col: 2}) {
		t.Errorf("Expected the winning move (0,2), got %v", moves)
	}

	moves = s.BestMoves(board("XX.", ".O.", "..."), O)
	if len(moves) != 1 || moves[0] != (Position{Row: 0, Col: 2}) {
		t.Errorf("Expected the blocking move (0,2), got %v", moves)
	}

	// Every opening keeps the draw.
	if moves := s.BestMoves(Board{}, X); len(moves) != Size*Size {
		t.Errorf("Expected all 9 openings, got %v", moves)
	}

	if moves := s.BestMoves(board("XXX", "OO.", "..."), O); moves != nil {
		t.Errorf("Expected no moves on a finished board, got %v", moves)
	}
}

func TestSolver_SelfPlayDraws(t *testing.T) {
	s := NewSolver()
	var b Board
	turn := X
	for DetectOutcome(b) == OutcomeNone {
		moves := s.BestMoves(b, turn)
		if len(moves) == 0 {
			t.Fatal("No moves on an unfinished board")
		}
		b = mustApply(t, b, moves[0].Row, moves[0].Col, turn)
		turn = turn.Other()
	}
	if out := DetectOutcome(b); out != OutcomeDraw {
		t.Errorf("Perfect self-play should draw, got %s", out)
	}
}

func TestEmptyCells(t *testing.T) {
	if n := len(EmptyCells(Board{})); n != 9 {
		t.Errorf("Expected 9 empty cells, got %d", n)
	}
	cells := EmptyCells(board("XOX", "OXO", "OX."))
	if len(cells) != 1 || cells[0] != (Position{Row: 2, Col: 2}) {
		t.Errorf("Expected only (2,2), got %v", cells)
	}
}
