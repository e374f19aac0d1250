// Package loadtest drives concurrent render requests against a running
// server and reports throughput, backpressure and latency.
package loadtest

import (
	"errors"
	"time"
)

// Endpoints the load test can target.
const (
	EndpointRender  = "render"
	EndpointPreview = "preview"
)

// Defaults for Config fields left zero.
const (
	DefaultBaseURL  = "http://localhost:8000"
	DefaultRequests = 50
	DefaultTimeout  = 60 * time.Second
)

// ErrInvalidEndpoint is returned for an unknown Config.Endpoint.
var ErrInvalidEndpoint = errors.New("endpoint must be render or preview")

// Config holds configuration for one load test run.
type Config struct {
	BaseURL  string        // server root, e.g. http://localhost:8000
	Requests int           // total requests to send
	Workers  int           // concurrent clients
	Timeout  time.Duration // per-request timeout
	Endpoint string        // render or preview
	PlanFile string        // optional base plan; random plans when empty
	Unique   bool          // vary every plan so the server cache never hits
	Verbose  bool
}

// Stats summarizes a run.
type Stats struct {
	Submitted int
	Succeeded int
	Rejected  int // 429 backpressure
	Failed    int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	P50       time.Duration
	P95       time.Duration
	Max       time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Requests <= 0 {
		c.Requests = DefaultRequests
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Endpoint == "" {
		c.Endpoint = EndpointRender
	}
	return c
}
