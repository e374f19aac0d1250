package loadtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// outcome of one request.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeRejected
	outcomeFailed
)

type client struct {
	http *http.Client
}

func newClient(timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}}
}

func (c *client) get(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *client) post(ctx context.Context, url string, body []byte) outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return outcomeFailed
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return outcomeFailed
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return outcomeOK
	case http.StatusTooManyRequests:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

func endpointURL(cfg Config) (string, error) {
	switch cfg.Endpoint {
	case EndpointRender:
		return cfg.BaseURL + "/api/render", nil
	case EndpointPreview:
		return cfg.BaseURL + "/api/preview?step=1", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEndpoint, cfg.Endpoint)
	}
}

// submit posts every body using cfg.Workers concurrent clients.
func submit(ctx context.Context, cfg Config, bodies [][]byte, stats *Stats, progress io.Writer) error {
	url, err := endpointURL(cfg)
	if err != nil {
		return err
	}
	c := newClient(cfg.Timeout)

	var (
		submitted, ok, rejected, failed atomic.Int64
		latMu                           sync.Mutex
		latencies                       = make([]time.Duration, 0, len(bodies))
		lastReport                      atomic.Int64
	)

	work := make(chan []byte, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for body := range work {
				if ctx.Err() != nil {
					return
				}
				start := time.Now()
				res := c.post(ctx, url, body)
				lat := time.Since(start)

				total := submitted.Add(1)
				switch res {
				case outcomeOK:
					ok.Add(1)
					latMu.Lock()
					latencies = append(latencies, lat)
					latMu.Unlock()
				case outcomeRejected:
					rejected.Add(1)
				default:
					failed.Add(1)
				}

				now := time.Now().UnixNano()
				if last := lastReport.Load(); now-last >= int64(time.Second) && lastReport.CompareAndSwap(last, now) {
					fmt.Fprintf(progress, "📤 %d/%d 送信 (成功: %d, 429: %d, 失敗: %d)\n",
						total, len(bodies), ok.Load(), rejected.Load(), failed.Load())
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, b := range bodies {
			select {
			case <-ctx.Done():
				return
			case work <- b:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Succeeded = int(ok.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())
	stats.P50, stats.P95, stats.Max = percentiles(latencies)
	return nil
}

func percentiles(lat []time.Duration) (p50, p95, maxLat time.Duration) {
	if len(lat) == 0 {
		return 0, 0, 0
	}
	sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
	at := func(q float64) time.Duration {
		return lat[int(q*float64(len(lat)-1))]
	}
	return at(0.50), at(0.95), lat[len(lat)-1]
}
