package diagram

import (
	"context"
	"fmt"
	"image"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/drillsheet/internal/domain/geometry"
	"github.com/okian/drillsheet/internal/domain/plan"
	"github.com/okian/drillsheet/pkg/logger"
	"github.com/okian/drillsheet/pkg/metrics"
)

// Option configures a Compositor.
type Option func(*Compositor)

// WithStyle replaces the default style.
func WithStyle(s Style) Option {
	return func(c *Compositor) {
		c.style = s
	}
}

// WithLogger sets the logger used for skipped movements.
func WithLogger(l logger.Logger) Option {
	return func(c *Compositor) {
		if l != nil {
			c.logger = l
		}
	}
}

// Compositor turns steps into bundles. It is safe for concurrent use; the
// shared assets are only read.
type Compositor struct {
	assets *Assets
	style  Style
	logger logger.Logger
}

// New creates a Compositor over assets.
func New(assets *Assets, opts ...Option) (*Compositor, error) {
	if assets == nil {
		return nil, ErrAssetMissing
	}
	c := &Compositor{
		assets: assets,
		style:  DefaultStyle(),
		logger: logger.GetOrDiscard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.style.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Style returns the style in use.
func (c *Compositor) Style() Style {
	return c.style
}

// GroundSize is the native size of every bundle this compositor produces.
func (c *Compositor) GroundSize() geometry.Size {
	return c.assets.GroundSize()
}

func (c *Compositor) abs(p plan.Position) image.Point {
	if c.style.ClampPositions {
		p = geometry.Clamp01(p)
	}
	return geometry.ToAbsolute(p, c.assets.GroundSize())
}

// Compose renders one step. Ball arrows come first, then player runs, in
// input order; players follow in input order.
func (c *Compositor) Compose(ctx context.Context, step *plan.Step) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	b := &Bundle{
		Step:    step.Number,
		Ground:  c.assets.Ground(),
		Size:    c.assets.GroundSize(),
		Players: make([]Overlay, 0, len(step.Players)),
		Arrows:  make([]Overlay, 0, len(step.BallMovements)+len(step.Movements)),
	}

	for _, m := range step.BallMovements {
		o := RenderArrow(c.abs(m.From), c.abs(m.To), KindBall, c.style)
		o.Label = m.Type
		b.Arrows = append(b.Arrows, o)
	}

	players := step.PlayerIndex()
	for _, m := range step.Movements {
		from, ok := players[m.FromPlayer]
		if !ok {
			if c.style.ReferencePolicy == Strict {
				return nil, fmt.Errorf("%w: step %d: %q", ErrUnknownPlayer, step.Number, m.FromPlayer)
			}
			c.logger.Debug(ctx, "skipping movement from unknown player",
				logger.Int("step", step.Number),
				logger.String("player", m.FromPlayer))
			metrics.RecordMovementSkipped()
			continue
		}
		o := RenderArrow(c.abs(from), c.abs(m.To), KindMove, c.style)
		o.Label = m.FromPlayer
		b.Arrows = append(b.Arrows, o)
	}

	for _, p := range step.Players {
		b.Players = append(b.Players, Overlay{
			Kind:   KindPlayer,
			Label:  p.ID,
			Image:  RenderMarker(c.assets.Person(), p.ID, c.style),
			Center: c.abs(p.Position),
		})
	}

	metrics.RecordStepComposeLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordOverlaysRendered(string(KindPlayer), len(b.Players))
	metrics.RecordOverlaysRendered(string(KindBall), len(step.BallMovements))
	metrics.RecordOverlaysRendered(string(KindMove), len(b.Arrows)-len(step.BallMovements))
	return b, nil
}

// ComposePlan renders every step of p, at most parallelism at a time, and
// returns the bundles in step order. parallelism <= 1 composes sequentially.
func (c *Compositor) ComposePlan(ctx context.Context, p *plan.PracticePlan, parallelism int) ([]*Bundle, error) {
	out := make([]*Bundle, len(p.Steps))
	if parallelism <= 1 {
		for i := range p.Steps {
			b, err := c.Compose(ctx, &p.Steps[i])
			if err != nil {
				return nil, err
			}
			out[i] = b
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := range p.Steps {
		g.Go(func() error {
			b, err := c.Compose(gctx, &p.Steps[i])
			if err != nil {
				return err
			}
			out[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
