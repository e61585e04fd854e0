// Command analyze walks the complete tic-tac-toe game tree with the game
// engine and prints outcome totals. With --position it solves a single
// position under perfect play and lists the moves that keep that result.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/tictactoe-server/game/engine"
)

var errBadPosition = errors.New("invalid position")

// TreeStats summarizes every game reachable from the empty board.
type TreeStats struct {
	Games     int
	XWins     int
	OWins     int
	Draws     int
	Positions int // distinct boards, including the empty one
	Terminal  int // distinct boards on which the game has ended
}

// Solution is the perfect-play result of a position.
type Solution struct {
	ToMove    engine.Symbol
	Outcome   engine.Outcome
	BestMoves []engine.Position
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Enumerate the tic-tac-toe game tree or solve a position",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "position",
				Usage: "Board as 9 cells row by row using X, O and . (slashes allowed), e.g. X../.O./...",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if pos := cmd.String("position"); pos != "" {
				return printSolution(cmd.Root().Writer, pos)
			}
			printTree(cmd.Root().Writer, analyzeTree())
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// analyzeTree plays out every legal game from the empty board.
func analyzeTree() TreeStats {
	var stats TreeStats
	seen := make(map[engine.Board]bool)

	var walk func(b engine.Board, turn engine.Symbol)
	walk = func(b engine.Board, turn engine.Symbol) {
		first := !seen[b]
		if first {
			seen[b] = true
			stats.Positions++
		}

		out := engine.DetectOutcome(b)
		if out != engine.OutcomeNone {
			if first {
				stats.Terminal++
			}
			stats.Games++
			switch out {
			case engine.OutcomeX:
				stats.XWins++
			case engine.OutcomeO:
				stats.OWins++
			case engine.OutcomeDraw:
				stats.Draws++
			}
			return
		}

		for _, p := range engine.EmptyCells(b) {
			next, err := engine.ApplyMove(b, p.Row, p.Col, turn)
			if err != nil {
				continue
			}
			walk(next, turn.Other())
		}
	}

	walk(engine.Board{}, engine.X)
	return stats
}

// parsePosition reads a board and derives the side to move from the piece
// counts, X always moving first.
func parsePosition(s string) (engine.Board, engine.Symbol, error) {
	var b engine.Board
	cells := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "/", ""))
	if len(cells) != engine.Size*engine.Size {
		return b, engine.None, fmt.Errorf("%w: expected %d cells, got %d", errBadPosition, engine.Size*engine.Size, len(cells))
	}

	for i, c := range cells {
		row, col := i/engine.Size, i%engine.Size
		switch c {
		case 'X':
			b[row][col] = engine.X
		case 'O':
			b[row][col] = engine.O
		case '.', '-', '_':
		default:
			return b, engine.None, fmt.Errorf("%w: unexpected cell %q", errBadPosition, c)
		}
	}

	xCount, oCount := b.Count(engine.X), b.Count(engine.O)
	switch xCount - oCount {
	case 0:
		return b, engine.X, nil
	case 1:
		return b, engine.O, nil
	default:
		return b, engine.None, fmt.Errorf("%w: %d X and %d O cannot occur in play", errBadPosition, xCount, oCount)
	}
}

// solvePosition solves b and collects every move that achieves the result.
func solvePosition(b engine.Board, turn engine.Symbol) Solution {
	solver := engine.NewSolver()
	return Solution{
		ToMove:    turn,
		Outcome:   solver.Solve(b, turn),
		BestMoves: solver.BestMoves(b, turn),
	}
}

func printTree(w io.Writer, stats TreeStats) {
	fmt.Fprintf(w, "=== Game tree from the empty board ===\n")
	fmt.Fprintf(w, "Complete games: %d\n", stats.Games)
	fmt.Fprintf(w, "X wins: %d\n", stats.XWins)
	fmt.Fprintf(w, "O wins: %d\n", stats.OWins)
	fmt.Fprintf(w, "Draws: %d\n", stats.Draws)
	fmt.Fprintf(w, "Distinct positions: %d\n", stats.Positions)
	fmt.Fprintf(w, "Terminal positions: %d\n", stats.Terminal)
}

func printSolution(w io.Writer, position string) error {
	b, turn, err := parsePosition(position)
	if err != nil {
		return err
	}
	sol := solvePosition(b, turn)

	if engine.DetectOutcome(b) != engine.OutcomeNone {
		fmt.Fprintf(w, "Game over: %s\n", describe(sol.Outcome))
		return nil
	}

	fmt.Fprintf(w, "To move: %s\n", sol.ToMove)
	fmt.Fprintf(w, "Perfect play: %s\n", describe(sol.Outcome))
	fmt.Fprintf(w, "Best moves:")
	for _, p := range sol.BestMoves {
		fmt.Fprintf(w, " (%d,%d)", p.Row, p.Col)
	}
	fmt.Fprintln(w)
	return nil
}

func describe(out engine.Outcome) string {
	if out == engine.OutcomeDraw {
		return "draw"
	}
	return string(out) + " wins"
}
