package engine

import (
	"encoding/json"
	"fmt"
)

// Size is the board dimension. Boards are always Size x Size.
const Size = 3

// Symbol is the marker a player places on the board. The zero value is an
// empty cell (or "no symbol" when used for turns).
type Symbol string

const (
	None Symbol = ""
	X    Symbol = "X"
	O    Symbol = "O"
)

// Valid reports whether s is one of the two player symbols.
func (s Symbol) Valid() bool {
	return s == X || s == O
}

// Other returns the opposing symbol. None has no opponent.
func (s Symbol) Other() Symbol {
	switch s {
	case X:
		return O
	case O:
		return X
	default:
		return None
	}
}

// MarshalJSON encodes None as null so empty cells and unset turns look the
// same on the wire.
func (s Symbol) MarshalJSON() ([]byte, error) {
	if s == None {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts null, "X" or "O".
func (s *Symbol) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = None
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sym := Symbol(raw)
	if sym != None && !sym.Valid() {
		return fmt.Errorf("unknown symbol %q", raw)
	}
	*s = sym
	return nil
}

// Outcome is the terminal result of a game.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeX    Outcome = "X"
	OutcomeO    Outcome = "O"
	OutcomeDraw Outcome = "draw"
)

// Winner returns the winning symbol, or None for draws and unfinished games.
func (o Outcome) Winner() Symbol {
	switch o {
	case OutcomeX:
		return X
	case OutcomeO:
		return O
	default:
		return None
	}
}

// MarshalJSON encodes OutcomeNone as null.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o == OutcomeNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(o))
}

// UnmarshalJSON accepts null, "X", "O" or "draw".
func (o *Outcome) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = OutcomeNone
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch out := Outcome(raw); out {
	case OutcomeX, OutcomeO, OutcomeDraw:
		*o = out
		return nil
	default:
		return fmt.Errorf("unknown outcome %q", raw)
	}
}

func outcomeFor(s Symbol) Outcome {
	switch s {
	case X:
		return OutcomeX
	case O:
		return OutcomeO
	default:
		return OutcomeNone
	}
}

// Board is the 3x3 grid, indexed [row][col]. Board is a value type: copies
// are independent.
type Board [Size][Size]Symbol

// Position addresses a single cell.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}
