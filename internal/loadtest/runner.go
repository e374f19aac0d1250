package loadtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/drillsheet/pkg/logger"
)

// Run checks the server is healthy, sends the configured requests and
// prints a summary to out.
func Run(ctx context.Context, cfg Config, out io.Writer) (*Stats, error) {
	cfg = cfg.withDefaults()
	if _, err := endpointURL(cfg); err != nil {
		return nil, err
	}
	log := logger.GetOrDiscard().Named("loadtest")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("endpoint", cfg.Endpoint),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
		logger.Bool("unique", cfg.Unique))

	if err := checkHealth(ctx, cfg); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	base, err := loadBase(cfg.PlanFile)
	if err != nil {
		return nil, err
	}
	bodies, err := generateBodies(cfg.Requests, base, cfg.Unique)
	if err != nil {
		return nil, err
	}

	progress := io.Discard
	if cfg.Verbose {
		progress = out
	}
	if err := submit(ctx, cfg, bodies, stats, progress); err != nil {
		return nil, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	printSummary(out, stats)

	log.Info(ctx, "load test finished",
		logger.Int("submitted", stats.Submitted),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Duration("p95", stats.P95))
	return stats, nil
}

func checkHealth(ctx context.Context, cfg Config) error {
	status, err := newClient(cfg.Timeout).get(ctx, cfg.BaseURL+"/api/health")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", status)
	}
	return nil
}

func printSummary(out io.Writer, s *Stats) {
	var rps float64
	if s.Duration > 0 {
		rps = float64(s.Submitted) / s.Duration.Seconds()
	}
	fmt.Fprintf(out, `✅ 負荷試験完了
   送信: %d (%.1f req/s)
   成功: %d
   429:  %d
   失敗: %d
   p50:  %s
   p95:  %s
   max:  %s
`, s.Submitted, rps, s.Succeeded, s.Rejected, s.Failed,
		s.P50.Round(time.Millisecond), s.P95.Round(time.Millisecond), s.Max.Round(time.Millisecond))
}
