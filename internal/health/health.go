// Package health probes deployed services over HTTP and TCP with
// exponential backoff, and fans the probes for one host out concurrently.
package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Probe describes one service endpoint to check.
type Probe struct {
	Name     string
	Port     int
	Path     string // non-empty selects an HTTP check; empty selects TCP
	Timeout  time.Duration
	Attempts int
}

// Result is the outcome of probing one service.
type Result struct {
	Name      string
	Healthy   bool
	Message   string
	LatencyMS int64
}

// Standard service probes, verbatim from the monitored service set: n8n,
// Ollama, Qdrant (health + dashboard), Crawl4AI, optional Postgres.
func DefaultProbes() []Probe {
	return []Probe{
		{Name: "n8n", Port: 5678, Path: "/healthz", Timeout: 5 * time.Second, Attempts: 4},
		{Name: "ollama", Port: 11434, Path: "/", Timeout: 5 * time.Second, Attempts: 4},
		{Name: "qdrant", Port: 6333, Path: "/healthz", Timeout: 5 * time.Second, Attempts: 4},
		{Name: "crawl4ai", Port: 11235, Path: "/health", Timeout: 5 * time.Second, Attempts: 4},
	}
}

// PostgresProbe returns the optional TCP-only Postgres probe.
func PostgresProbe() Probe {
	return Probe{Name: "postgres", Port: 5432, Timeout: 5 * time.Second, Attempts: 4}
}

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 8 * time.Second
)

// CheckHTTP performs an HTTP GET against host:probe.Port+probe.Path with
// exponential backoff across probe.Attempts tries, capped at maxBackoff.
func CheckHTTP(ctx context.Context, host string, probe Probe) Result {
	url := fmt.Sprintf("http://%s%s", net.JoinHostPort(host, fmt.Sprint(probe.Port)), probe.Path)
	client := &http.Client{Timeout: probe.Timeout}

	backoff := initialBackoff
	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < probe.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{Name: probe.Name, Healthy: false, Message: ctx.Err().Error()}
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Result{Name: probe.Name, Healthy: false, Message: err.Error()}
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 400 {
			return Result{
				Name:      probe.Name,
				Healthy:   true,
				Message:   fmt.Sprintf("%d", resp.StatusCode),
				LatencyMS: time.Since(start).Milliseconds(),
			}
		}
		lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return Result{Name: probe.Name, Healthy: false, Message: lastErr.Error(), LatencyMS: time.Since(start).Milliseconds()}
}

// CheckTCP dials host:probe.Port with exponential backoff across
// probe.Attempts tries.
func CheckTCP(ctx context.Context, host string, probe Probe) Result {
	addr := net.JoinHostPort(host, fmt.Sprint(probe.Port))
	backoff := initialBackoff
	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < probe.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{Name: probe.Name, Healthy: false, Message: ctx.Err().Error()}
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
		dialCtx, cancel := context.WithTimeout(ctx, probe.Timeout)
		var dialer net.Dialer
		conn, err := dialer.DialContext(dialCtx, "tcp", addr)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		return Result{Name: probe.Name, Healthy: true, Message: "connected", LatencyMS: time.Since(start).Milliseconds()}
	}
	return Result{Name: probe.Name, Healthy: false, Message: lastErr.Error(), LatencyMS: time.Since(start).Milliseconds()}
}

// CheckAll fans every probe for host out concurrently via errgroup and
// returns all results regardless of individual failures.
func CheckAll(ctx context.Context, host string, probes []Probe) []Result {
	results := make([]Result, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		i, p := i, p
		g.Go(func() error {
			if p.Path != "" {
				results[i] = CheckHTTP(gctx, host, p)
			} else {
				results[i] = CheckTCP(gctx, host, p)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
