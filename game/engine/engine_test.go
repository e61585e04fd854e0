package engine

import (
	"encoding/json"
	"errors"
	"testing"
)

func mustApply(t *testing.T, b Board, row, col int, s Symbol) Board {
	t.Helper()
	next, err := ApplyMove(b, row, col, s)
	if err != nil {
		t.Fatalf("ApplyMove(%d,%d,%s) failed: %v", row, col, s, err)
	}
	return next
}

func TestApplyMove(t *testing.T) {
	t.Run("places symbol and leaves input untouched", func(t *testing.T) {
		var b Board
		next, err := ApplyMove(b, 0, 2, X)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next[0][2] != X {
			t.Errorf("Expected X at (0,2), got %q", next[0][2])
		}
		if b[0][2] != None {
			t.Error("Input board was modified")
		}
	})

	t.Run("rejects occupied cell", func(t *testing.T) {
		b := mustApply(t, Board{}, 1, 1, X)
		next, err := ApplyMove(b, 1, 1, O)
		if !errors.Is(err, ErrInvalidMove) {
			t.Fatalf("Expected ErrInvalidMove, got %v", err)
		}
		if next != b {
			t.Error("Board changed after rejected move")
		}
	})

	tests := []struct {
		name     string
		row, col int
		symbol   Symbol
	}{
		{"negative row", -1, 0, X},
		{"negative col", 0, -1, X},
		{"row too large", 3, 0, O},
		{"col too large", 0, 3, O},
		{"empty symbol", 0, 0, None},
		{"unknown symbol", 0, 0, Symbol("Z")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyMove(Board{}, tt.row, tt.col, tt.symbol)
			if !errors.Is(err, ErrInvalidMove) {
				t.Errorf("Expected ErrInvalidMove, got %v", err)
			}
		})
	}
}

func TestDetectOutcome(t *testing.T) {
	tests := []struct {
		name  string
		board Board
		want  Outcome
	}{
		{"empty board", Board{}, OutcomeNone},
		{"top row", Board{{X, X, X}, {O, O, None}, {None, None, None}}, OutcomeX},
		{"middle row", Board{{X, None, X}, {O, O, O}, {X, None, None}}, OutcomeO},
		{"bottom row", Board{{O, O, None}, {None, None, None}, {X, X, X}}, OutcomeX},
		{"left column", Board{{O, X, None}, {O, X, None}, {O, None, X}}, OutcomeO},
		{"middle column", Board{{O, X, None}, {None, X, O}, {None, X, None}}, OutcomeX},
		{"right column", Board{{X, X, O}, {None, None, O}, {X, None, O}}, OutcomeO},
		{"main diagonal", Board{{X, O, None}, {None, X, O}, {None, None, X}}, OutcomeX},
		{"anti diagonal", Board{{X, X, O}, {None, O, None}, {O, None, X}}, OutcomeO},
		{"in progress", Board{{X, O, None}, {None, X, None}, {None, None, O}}, OutcomeNone},
		{"draw", Board{{X, O, X}, {X, O, O}, {O, X, X}}, OutcomeDraw},
		{"win on last cell beats draw", Board{{X, O, X}, {O, X, O}, {O, X, X}}, OutcomeX},
		{"line with empty cells", Board{{None, None, None}, {X, X, None}, {O, O, None}}, OutcomeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectOutcome(tt.board); got != tt.want {
				t.Errorf("DetectOutcome() = %q, want %q", got, tt.want)
			}
		})
	}
}

// walk visits every board reachable by legal alternating play from the
// empty board, stopping at terminal positions.
func walk(b Board, turn Symbol, seen map[Board]bool, visit func(Board)) {
	if seen[b] {
		return
	}
	seen[b] = true
	visit(b)

	if DetectOutcome(b) != OutcomeNone {
		return
	}
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if b[row][col] != None {
				continue
			}
			next, err := ApplyMove(b, row, col, turn)
			if err != nil {
				continue
			}
			walk(next, turn.Other(), seen, visit)
		}
	}
}

func hasFullLine(b Board, s Symbol) bool {
	for _, line := range lines {
		if b[line[0].Row][line[0].Col] == s && b[line[1].Row][line[1].Col] == s && b[line[2].Row][line[2].Col] == s {
			return true
		}
	}
	return false
}

func TestReachableBoards(t *testing.T) {
	seen := make(map[Board]bool)
	counts := map[Outcome]int{}

	walk(Board{}, X, seen, func(b Board) {
		out := DetectOutcome(b)
		counts[out]++

		switch out {
		case OutcomeX, OutcomeO:
			if !hasFullLine(b, out.Winner()) {
				t.Errorf("winner %q reported without a full line on %v", out, b)
			}
		case OutcomeDraw:
			if !b.Full() {
				t.Errorf("draw reported on a board with empty cells: %v", b)
			}
		case OutcomeNone:
			if b.Full() {
				t.Errorf("full board reported as unfinished: %v", b)
			}
		default:
			t.Errorf("unexpected outcome %q", out)
		}

		// Every occupied cell must be rejected, whatever the prior state.
		for row := 0; row < Size; row++ {
			for col := 0; col < Size; col++ {
				if b[row][col] == None {
					continue
				}
				for _, s := range []Symbol{X, O} {
					next, err := ApplyMove(b, row, col, s)
					if !errors.Is(err, ErrInvalidMove) {
						t.Fatalf("occupied cell (%d,%d) accepted on %v", row, col, b)
					}
					if next != b {
						t.Fatalf("rejected move changed the board")
					}
				}
			}
		}
	})

	if len(seen) != 5478 {
		t.Errorf("Expected 5478 reachable boards, got %d", len(seen))
	}
	if counts[OutcomeX] != 626 || counts[OutcomeO] != 316 || counts[OutcomeDraw] != 16 {
		t.Errorf("Unexpected terminal counts: X=%d O=%d draw=%d",
			counts[OutcomeX], counts[OutcomeO], counts[OutcomeDraw])
	}
}

func TestBoardHelpers(t *testing.T) {
	b := Board{{X, O, None}, {None, X, None}, {None, None, None}}

	if got := b.Count(X); got != 2 {
		t.Errorf("Count(X) = %d, want 2", got)
	}
	if got := b.Count(None); got != 6 {
		t.Errorf("Count(None) = %d, want 6", got)
	}
	if b.At(0, 1) != O {
		t.Errorf("At(0,1) = %q, want O", b.At(0, 1))
	}
	if b.At(5, 5) != None {
		t.Error("At() off the board should be None")
	}
	if b.Full() {
		t.Error("Board should not be full")
	}
}

func TestSymbolOther(t *testing.T) {
	if X.Other() != O || O.Other() != X {
		t.Error("X and O should be each other's opponent")
	}
	if None.Other() != None {
		t.Error("None should have no opponent")
	}
}

func TestBoardJSON(t *testing.T) {
	b := Board{{X, None, None}, {None, O, None}, {None, None, None}}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `[["X",null,null],[null,"O",null],[null,null,null]]`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var decoded Board
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded != b {
		t.Errorf("Round trip mismatch: %v", decoded)
	}

	if err := json.Unmarshal([]byte(`[["Q",null,null],[null,null,null],[null,null,null]]`), &decoded); err == nil {
		t.Error("Expected error for unknown symbol")
	}
}

func TestOutcomeJSON(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeNone, "null"},
		{OutcomeX, `"X"`},
		{OutcomeO, `"O"`},
		{OutcomeDraw, `"draw"`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.outcome)
		if err != nil {
			t.Fatalf("Marshal(%q) failed: %v", tt.outcome, err)
		}
		if string(data) != tt.want {
			t.Errorf("Marshal(%q) = %s, want %s", tt.outcome, data, tt.want)
		}
	}

	var o Outcome
	if err := json.Unmarshal([]byte(`"tie"`), &o); err == nil {
		t.Error("Expected error for unknown outcome")
	}
}
