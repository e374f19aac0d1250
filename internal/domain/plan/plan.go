// Package plan holds the practice plan model produced by the plan provider.
//
// A plan is decoded once per request, normalized, and treated as read-only
// by every later stage.
package plan

// DefaultDurationMinutes is used when a step omits its duration.
const DefaultDurationMinutes = 5

// DefaultCoordinate is used when a position omits x or y.
const DefaultCoordinate = 0.5

// PracticePlan is a complete practice session.
type PracticePlan struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Steps       []Step   `json:"steps"`
	KeyPoints   []string `json:"key_points"`
}

// Step is one drill; it renders into exactly one diagram.
type Step struct {
	Number          int              `json:"step_number"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	DurationMinutes int              `json:"duration_minutes"`
	Players         []Player         `json:"players"`
	Movements       []PlayerMovement `json:"movements"`
	BallMovements   []BallMovement   `json:"ball_movements"`
}

// Player is a labeled marker on the pitch. Role is not rendered.
type Player struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Role     string   `json:"role,omitempty"`
}

// PlayerMovement moves a player, referenced by id, to a destination.
type PlayerMovement struct {
	FromPlayer string   `json:"from_player"`
	To         Position `json:"to_position"`
	Type       string   `json:"type,omitempty"`
}

// BallMovement is a pass, shot or dribble between two positions.
type BallMovement struct {
	From Position `json:"from"`
	To   Position `json:"to"`
	Type string   `json:"type,omitempty"`
}

// Position is a relative pitch coordinate; [0,1] on both axes covers the ground.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Normalize fills defaults for fields the provider left out. It is idempotent.
func (p *PracticePlan) Normalize() {
	if p.Steps == nil {
		p.Steps = []Step{}
	}
	if p.KeyPoints == nil {
		p.KeyPoints = []string{}
	}
	for i := range p.Steps {
		s := &p.Steps[i]
		if s.Number <= 0 {
			s.Number = i + 1
		}
		if s.DurationMinutes <= 0 {
			s.DurationMinutes = DefaultDurationMinutes
		}
		if s.Players == nil {
			s.Players = []Player{}
		}
		if s.Movements == nil {
			s.Movements = []PlayerMovement{}
		}
		if s.BallMovements == nil {
			s.BallMovements = []BallMovement{}
		}
	}
}

// Validate reports whether the plan has anything to render.
func (p *PracticePlan) Validate() error {
	if p == nil || len(p.Steps) == 0 {
		return ErrEmptyPlan
	}
	return nil
}

// TotalMinutes sums the step durations.
func (p *PracticePlan) TotalMinutes() int {
	total := 0
	for _, s := range p.Steps {
		total += s.DurationMinutes
	}
	return total
}

// PlayerIndex maps player ids to positions. Later duplicates win.
func (s *Step) PlayerIndex() map[string]Position {
	idx := make(map[string]Position, len(s.Players))
	for _, pl := range s.Players {
		idx[pl.ID] = pl.Position
	}
	return idx
}
