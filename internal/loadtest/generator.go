package loadtest

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/google/uuid"

	"github.com/okian/drillsheet/internal/domain/plan"
)

// Ranges for random plans.
const (
	minPlayers = 2
	maxPlayers = 8
	maxSteps   = 4
)

// loadBase reads the plan in path, or returns nil when path is empty.
func loadBase(path string) (*plan.PracticePlan, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()
	return plan.Decode(f)
}

// generateBodies returns n JSON request bodies. With a base plan each body is
// that plan, retitled when unique is set. Without one, plans are random.
func generateBodies(n int, base *plan.PracticePlan, unique bool) ([][]byte, error) {
	bodies := make([][]byte, n)
	for i := range bodies {
		var p *plan.PracticePlan
		switch {
		case base != nil:
			cp := *base
			if unique {
				cp.Title = base.Title + " " + uuid.NewString()
			}
			p = &cp
		case unique:
			p = randomPlan()
		default:
			if i == 0 {
				p = randomPlan()
			} else {
				bodies[i] = bodies[0]
				continue
			}
		}
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal plan %d: %w", i, err)
		}
		bodies[i] = data
	}
	return bodies, nil
}

func randomPosition() plan.Position {
	return plan.Position{X: rand.Float64(), Y: rand.Float64()}
}

// randomPlan builds a plan whose movements all reference existing players.
func randomPlan() *plan.PracticePlan {
	p := &plan.PracticePlan{
		Title:     "負荷試験 " + uuid.NewString()[:8],
		KeyPoints: []string{"声を出す"},
	}
	steps := 1 + rand.IntN(maxSteps)
	for s := 0; s < steps; s++ {
		step := plan.Step{
			Number:          s + 1,
			Name:            fmt.Sprintf("ステップ%d", s+1),
			DurationMinutes: 5 + rand.IntN(10),
		}
		players := minPlayers + rand.IntN(maxPlayers-minPlayers+1)
		for i := 0; i < players; i++ {
			id := string(rune('A' + i))
			step.Players = append(step.Players, plan.Player{ID: id, Position: randomPosition()})
			if rand.IntN(2) == 0 {
				step.Movements = append(step.Movements, plan.PlayerMovement{FromPlayer: id, To: randomPosition(), Type: "run"})
			}
		}
		for b := 0; b < 1+rand.IntN(3); b++ {
			step.BallMovements = append(step.BallMovements, plan.BallMovement{From: randomPosition(), To: randomPosition(), Type: "pass"})
		}
		p.Steps = append(p.Steps, step)
	}
	return p
}
