package engine

// Solver evaluates positions under perfect play. Results are cached per
// board, so one Solver can be reused across positions. It is not safe for
// concurrent use.
type Solver struct {
	memo map[Board]Outcome
}

// NewSolver creates a solver with an empty cache.
func NewSolver() *Solver {
	return &Solver{memo: make(map[Board]Outcome)}
}

// Solve returns the outcome of b when turn moves next and both sides play
// perfectly. Finished boards return their outcome.
func (s *Solver) Solve(b Board, turn Symbol) Outcome {
	if out := DetectOutcome(b); out != OutcomeNone {
		return out
	}
	if out, ok := s.memo[b]; ok {
		return out
	}

	best := OutcomeNone
	for _, p := range EmptyCells(b) {
		next, err := ApplyMove(b, p.Row, p.Col, turn)
		if err != nil {
			continue
		}
		out := s.Solve(next, turn.Other())
		if best == OutcomeNone || score(out, turn) > score(best, turn) {
			best = out
		}
		if out.Winner() == turn {
			break
		}
	}

	s.memo[b] = best
	return best
}

// BestMoves returns every move that keeps the perfect-play outcome for
// turn, in row-major order. Finished boards have none.
func (s *Solver) BestMoves(b Board, turn Symbol) []Position {
	if DetectOutcome(b) != OutcomeNone {
		return nil
	}

	want := s.Solve(b, turn)
	var moves []Position
	for _, p := range EmptyCells(b) {
		next, err := ApplyMove(b, p.Row, p.Col, turn)
		if err != nil {
			continue
		}
		if s.Solve(next, turn.Other()) == want {
			moves = append(moves, p)
		}
	}
	return moves
}

// EmptyCells lists the free cells of b in row-major order.
func EmptyCells(b Board) []Position {
	var cells []Position
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if b[row][col] == None {
				cells = append(cells, Position{Row: row, Col: col})
			}
		}
	}
	return cells
}

func score(out Outcome, turn Symbol) int {
	switch out.Winner() {
	case turn:
		return 1
	case None:
		return 0
	default:
		return -1
	}
}
