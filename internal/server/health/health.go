// Package health provides the dashboard's health endpoint.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/raglabs/pipeline-dashboard/internal/fetcher"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is operational but with issues.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Pinger is implemented by log sources with a connectivity check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker aggregates component health for the /health endpoint.
type Checker struct {
	source    Pinger // nil when the log source has no ping (HTTP source)
	fetcher   *fetcher.Fetcher
	startTime time.Time
	version   string
	timeout   time.Duration
	mu        sync.RWMutex
}

// NewChecker creates a health checker. source may be nil.
func NewChecker(source Pinger, f *fetcher.Fetcher, version string) *Checker {
	return &Checker{
		source:    source,
		fetcher:   f,
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// SetTimeout sets the timeout for health checks.
func (c *Checker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Check performs all health checks and returns the aggregated response.
func (c *Checker) Check(ctx context.Context) *Response {
	c.mu.RLock()
	timeout := c.timeout
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	components := make(map[string]ComponentStatus)

	if c.source != nil {
		components["log_source"] = c.checkSource(checkCtx)
	}
	if c.fetcher != nil {
		components["run_logs"] = c.checkFetcher()
	}

	overallStatus := StatusHealthy
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			break
		}
		if comp.Status == StatusDegraded {
			overallStatus = StatusDegraded
		}
	}

	return &Response{
		Status:     overallStatus,
		Components: components,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

// checkSource verifies log source connectivity.
func (c *Checker) checkSource(ctx context.Context) ComponentStatus {
	if err := c.source.Ping(ctx); err != nil {
		return ComponentStatus{
			Status:  StatusUnhealthy,
			Message: "log source ping failed: " + err.Error(),
		}
	}
	return ComponentStatus{Status: StatusHealthy}
}

// checkFetcher reports on the run-log snapshot. A failing refetch degrades
// rather than fails: the view still serves the last good snapshot.
func (c *Checker) checkFetcher() ComponentStatus {
	state := c.fetcher.State()
	if state.Error != "" {
		return ComponentStatus{
			Status:  StatusDegraded,
			Message: "serving stale snapshot: " + state.Error,
		}
	}
	return ComponentStatus{Status: StatusHealthy}
}

// Handler returns an http.HandlerFunc for the health endpoint. An unhealthy
// response carries 503 so load balancers can act on it.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := c.Check(r.Context())

		status := http.StatusOK
		if resp.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}
}
