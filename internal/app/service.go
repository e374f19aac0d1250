// Package service runs the generation pipeline: plan provider, diagram
// compositor and workbook writer, with a bounded job pool in front for
// concurrent callers.
package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/drillsheet/internal/adapters/cache"
	"github.com/okian/drillsheet/internal/adapters/llm"
	jobqueue "github.com/okian/drillsheet/internal/adapters/mq/queue"
	workerpool "github.com/okian/drillsheet/internal/adapters/mq/worker"
	"github.com/okian/drillsheet/internal/adapters/sheet"
	"github.com/okian/drillsheet/internal/domain/diagram"
	"github.com/okian/drillsheet/internal/domain/plan"
	"github.com/okian/drillsheet/pkg/logger"
	"github.com/okian/drillsheet/pkg/metrics"
)

// Result is a finished workbook and the plan it was built from.
type Result struct {
	Plan     *plan.PracticePlan
	Workbook []byte
	Steps    int
	Elapsed  time.Duration
}

// Outcome is delivered once per submitted job.
type Outcome struct {
	Result *Result
	Err    error
}

// Stats describes the service for monitoring.
type Stats struct {
	Started           bool             `json:"started"`
	Workers           int              `json:"workers"`
	QueueLength       int              `json:"queue_length"`
	QueueCapacity     int              `json:"queue_capacity"`
	Processed         int64            `json:"processed"`
	RenderParallelism int              `json:"render_parallelism"`
	CachedArtifacts   int64            `json:"cached_artifacts"`
	Provider          llm.ProviderInfo `json:"provider"`
	ProviderReady     bool             `json:"provider_ready"`
}

// Service owns the pipeline components.
type Service struct {
	mu sync.RWMutex

	provider   llm.Provider
	compositor *diagram.Compositor
	writer     *sheet.Writer
	sheetOpts  []sheet.Option
	cache      cache.Cache
	queue      *jobqueue.InMemoryQueue
	pool       *workerpool.Pool

	workerCount       int
	queueSize         int
	renderParallelism int

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithProvider sets the plan provider. Without one, Generate fails with
// llm.ErrNotConfigured.
func WithProvider(p llm.Provider) Option {
	return func(s *Service) {
		s.provider = p
	}
}

// WithCompositor sets the diagram compositor.
func WithCompositor(c *diagram.Compositor) Option {
	return func(s *Service) {
		if c != nil {
			s.compositor = c
		}
	}
}

// WithSheetOptions configures the workbook writer.
func WithSheetOptions(opts ...sheet.Option) Option {
	return func(s *Service) {
		s.sheetOpts = append(s.sheetOpts, opts...)
	}
}

// WithCache keeps rendered workbooks and previews keyed by plan content.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithWorkerCount sets the number of generation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many submitted jobs may wait for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRenderParallelism bounds concurrent step compositing within one plan.
func WithRenderParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.renderParallelism = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Without WithCompositor the built-in pitch
// assets and default style are used.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		workerCount:       runtime.NumCPU(),
		queueSize:         16,
		renderParallelism: 4,
		logger:            logger.GetOrDiscard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.compositor == nil {
		assets, err := diagram.DefaultAssets(diagram.DefaultStyle())
		if err != nil {
			return nil, err
		}
		c, err := diagram.New(assets, diagram.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		s.compositor = c
	}
	s.writer = sheet.New(append([]sheet.Option{sheet.WithLogger(s.logger)}, s.sheetOpts...)...)
	return s, nil
}

// Start launches the job pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, workerpool.WithLogger(s.logger))
	s.pool.Start(ctx)
	s.started = true

	s.logger.Info(ctx, "generation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("providerReady", s.provider != nil),
	)
	return nil
}

// Stop drains queued jobs and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping generation service...")
	err := s.pool.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "generation service stopped")
	return err
}

// ProviderInfo describes the plan provider and whether one is configured.
func (s *Service) ProviderInfo() (llm.ProviderInfo, bool) {
	if s.provider == nil {
		return llm.ProviderInfo{}, false
	}
	return s.provider.Info(), true
}

// Plan asks the provider for a plan addressing challenge.
func (s *Service) Plan(ctx context.Context, challenge string) (*plan.PracticePlan, error) {
	challenge = strings.TrimSpace(challenge)
	if challenge == "" {
		return nil, ErrEmptyChallenge
	}
	if s.provider == nil {
		return nil, llm.ErrNotConfigured
	}

	start := time.Now()
	p, err := s.provider.GeneratePlan(ctx, challenge)
	if err != nil {
		metrics.RecordPlanFailed("llm")
		return nil, fmt.Errorf("generate plan: %w", err)
	}
	s.logger.Info(ctx, "plan generated",
		logger.String("title", p.Title),
		logger.Int("steps", len(p.Steps)),
		logger.Duration("elapsed", time.Since(start)))
	return p, nil
}

// Generate asks the provider for a plan and builds its workbook.
func (s *Service) Generate(ctx context.Context, challenge string) (*Result, error) {
	start := time.Now()
	p, err := s.Plan(ctx, challenge)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, p, "llm", start)
}

// GenerateFromPlan builds a workbook from an existing plan.
func (s *Service) GenerateFromPlan(ctx context.Context, p *plan.PracticePlan) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, ErrInvalidPlan
	}
	p.Normalize()

	start := time.Now()
	if wb, ok := s.cached(ctx, workbookKey(p)); ok {
		metrics.RecordPlanGenerated("cache")
		return &Result{Plan: p, Workbook: wb, Steps: len(p.Steps), Elapsed: time.Since(start)}, nil
	}
	return s.build(ctx, p, "plan", start)
}

func (s *Service) build(ctx context.Context, p *plan.PracticePlan, source string, start time.Time) (*Result, error) {
	bundles, err := s.compositor.ComposePlan(ctx, p, s.renderParallelism)
	if err != nil {
		metrics.RecordPlanFailed("render")
		return nil, fmt.Errorf("compose diagrams: %w", err)
	}

	wb, err := s.writer.Build(ctx, p, bundles)
	if err != nil {
		metrics.RecordPlanFailed("workbook")
		return nil, fmt.Errorf("build workbook: %w", err)
	}
	s.store(ctx, workbookKey(p), wb.Bytes())

	elapsed := time.Since(start)
	metrics.RecordPlanGenerated(source)
	metrics.RecordPipelineDuration(float64(elapsed.Milliseconds()))
	s.logger.Info(ctx, "workbook built",
		logger.String("source", source),
		logger.Int("steps", len(p.Steps)),
		logger.Int("bytes", wb.Len()),
		logger.Duration("elapsed", elapsed))

	return &Result{Plan: p, Workbook: wb.Bytes(), Steps: len(p.Steps), Elapsed: elapsed}, nil
}

// Preview renders step number stepIndex (1-based) of p as one flattened PNG.
func (s *Service) Preview(ctx context.Context, p *plan.PracticePlan, stepIndex int) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, ErrInvalidPlan
	}
	if stepIndex < 1 || stepIndex > len(p.Steps) {
		return nil, fmt.Errorf("%w: %d of %d", ErrStepOutOfRange, stepIndex, len(p.Steps))
	}
	p.Normalize()

	key := previewKey(p, stepIndex)
	if img, ok := s.cached(ctx, key); ok {
		return img, nil
	}

	b, err := s.compositor.Compose(ctx, &p.Steps[stepIndex-1])
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := diagram.EncodePNG(&buf, b.Flatten()); err != nil {
		return nil, err
	}
	s.store(ctx, key, buf.Bytes())
	return buf.Bytes(), nil
}

func (s *Service) cached(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil || key == "" {
		return nil, false
	}
	return s.cache.Get(ctx, key)
}

func (s *Service) store(ctx context.Context, key string, val []byte) {
	if s.cache == nil || key == "" {
		return
	}
	s.cache.Put(ctx, key, val)
}

// contentHash identifies a normalized plan. Empty when p cannot be encoded.
func contentHash(p *plan.PracticePlan) string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func workbookKey(p *plan.PracticePlan) string {
	if h := contentHash(p); h != "" {
		return "xlsx:" + h
	}
	return ""
}

func previewKey(p *plan.PracticePlan, step int) string {
	if h := contentHash(p); h != "" {
		return fmt.Sprintf("png:%d:%s", step, h)
	}
	return ""
}

// Submit queues fn for a worker. fn runs with ctx, so a caller that gives up
// also cancels its job. The returned channel receives exactly one Outcome.
func (s *Service) Submit(ctx context.Context, fn func(context.Context) (*Result, error)) (<-chan Outcome, error) {
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	id := uuid.NewString()
	ctx = logger.WithFields(ctx, logger.String("job_id", id))

	out := make(chan Outcome, 1)
	job := jobqueue.Job{
		ID: id,
		Run: func(context.Context) {
			if err := ctx.Err(); err != nil {
				out <- Outcome{Err: err}
				return
			}
			res, err := fn(ctx)
			out <- Outcome{Result: res, Err: err}
		},
	}

	switch err := q.Enqueue(ctx, job); {
	case err == nil:
		return out, nil
	case errors.Is(err, jobqueue.ErrFull):
		return nil, ErrBackpressure
	case errors.Is(err, jobqueue.ErrClosed):
		return nil, ErrNotStarted
	default:
		return nil, err
	}
}

// Do submits fn and waits for its outcome.
func (s *Service) Do(ctx context.Context, fn func(context.Context) (*Result, error)) (*Result, error) {
	ch, err := s.Submit(ctx, fn)
	if err != nil {
		return nil, err
	}
	select {
	case o := <-ch:
		return o.Result, o.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ready := s.ProviderInfo()
	st := Stats{
		Started:           s.started,
		Workers:           s.workerCount,
		QueueCapacity:     s.queueSize,
		RenderParallelism: s.renderParallelism,
		Provider:          info,
		ProviderReady:     ready,
	}
	if s.cache != nil {
		st.CachedArtifacts = s.cache.Size()
	}
	if s.started {
		st.QueueLength = s.queue.Len(context.Background())
		st.Processed = s.pool.Stats().Processed
		metrics.UpdateQueueSize(st.QueueLength, s.queueSize)
	}
	return st
}
