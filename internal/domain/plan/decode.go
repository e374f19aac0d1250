package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// UnmarshalJSON defaults an absent x or y to DefaultCoordinate.
func (p *Position) UnmarshalJSON(data []byte) error {
	var raw struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.X, p.Y = DefaultCoordinate, DefaultCoordinate
	if raw.X != nil {
		p.X = *raw.X
	}
	if raw.Y != nil {
		p.Y = *raw.Y
	}
	return nil
}

// Decode reads a plan from r and normalizes it.
func Decode(r io.Reader) (*PracticePlan, error) {
	var p PracticePlan
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	p.Normalize()
	return &p, nil
}

// Parse is Decode over a byte slice.
func Parse(data []byte) (*PracticePlan, error) {
	return Decode(bytes.NewReader(data))
}

var centre = Position{X: DefaultCoordinate, Y: DefaultCoordinate}

// UnmarshalJSON places a player without a position at the pitch centre.
func (pl *Player) UnmarshalJSON(data []byte) error {
	type alias Player
	a := alias{Position: centre}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*pl = Player(a)
	return nil
}

// UnmarshalJSON defaults a missing destination to the pitch centre.
func (m *PlayerMovement) UnmarshalJSON(data []byte) error {
	type alias PlayerMovement
	a := alias{To: centre}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = PlayerMovement(a)
	return nil
}

// UnmarshalJSON defaults missing endpoints to the pitch centre.
func (m *BallMovement) UnmarshalJSON(data []byte) error {
	type alias BallMovement
	a := alias{From: centre, To: centre}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = BallMovement(a)
	return nil
}
