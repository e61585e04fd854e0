// Package engine provides the core board logic for tic-tac-toe.
//
// The engine package implements:
//   - A fixed 3x3 board value type
//   - Move legality checks (bounds and occupancy)
//   - Win and draw detection over rows, columns and diagonals
//   - A perfect-play Solver used by the analysis tool and the bot
//
// Core Types:
//
// Board is an array value, so passing it around copies it and callers can
// never observe each other's changes. Symbol marks a cell (X or O) and doubles
// as the turn indicator; Outcome is the terminal result of a game.
//
// Usage:
//
//	var b engine.Board
//	b, err := engine.ApplyMove(b, 1, 1, engine.X)
//	if err != nil {
//		return err
//	}
//	if out := engine.DetectOutcome(b); out != engine.OutcomeNone {
//		fmt.Println("game over:", out)
//	}
//
// Everything in this package is free of I/O. A Solver caches results and
// belongs to one goroutine.
package engine
