// Package monitor runs a periodic health-check loop against a deployed
// stack, tracks rolling per-service metrics, and emits events to
// registered notifiers.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/geuse/internal/health"
)

// EventKind classifies a notifier event.
type EventKind string

const (
	EventCheck        EventKind = "check"
	EventStatusChange EventKind = "status_change"
	EventAlert        EventKind = "alert"
)

// Event is delivered to every registered Notifier.
type Event struct {
	Kind    EventKind
	Service string
	Message string
	Healthy bool
	At      time.Time
	RunID   string
}

// Notifier receives monitor events. Implementations must not block for
// long; Notify errors are logged and otherwise ignored.
type Notifier interface {
	Notify(Event) error
}

// ServiceMetrics tracks a rolling view of one service's health history.
type ServiceMetrics struct {
	Healthy             bool
	ConsecutiveFailures int
	TotalChecks         int
	TotalHealthy        int
	MeanLatencyMS       float64
	LastCheckedAt       time.Time
}

func (m *ServiceMetrics) record(r health.Result) {
	m.TotalChecks++
	if r.Healthy {
		m.TotalHealthy++
		m.ConsecutiveFailures = 0
	} else {
		m.ConsecutiveFailures++
	}
	m.Healthy = r.Healthy
	m.LastCheckedAt = time.Now().UTC()
	// incremental mean, matches the teacher's running-average style used
	// elsewhere for cache statistics.
	n := float64(m.TotalChecks)
	m.MeanLatencyMS += (float64(r.LatencyMS) - m.MeanLatencyMS) / n
}

// UptimePercent returns the fraction of checks that were healthy, 0-100.
func (m *ServiceMetrics) UptimePercent() float64 {
	if m.TotalChecks == 0 {
		return 0
	}
	return 100 * float64(m.TotalHealthy) / float64(m.TotalChecks)
}

// State is the monitor's current view across all probed services.
type State struct {
	mu      sync.RWMutex
	Metrics map[string]*ServiceMetrics
	RunID   string
}

func newState() *State {
	return &State{Metrics: make(map[string]*ServiceMetrics), RunID: uuid.NewString()}
}

// Snapshot returns a copy of the current per-service metrics.
func (s *State) Snapshot() map[string]ServiceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]ServiceMetrics, len(s.Metrics))
	for name, m := range s.Metrics {
		out[name] = *m
	}
	return out
}

// alertCooldown is the minimum interval between repeated alerts for the
// same service, preventing notifier spam while a service stays down.
const alertCooldown = 5 * time.Minute

// Monitor runs the periodic probe loop.
type Monitor struct {
	host      string
	probes    []health.Probe
	interval  time.Duration
	notifiers []Notifier
	logger    *slog.Logger

	maxRounds   int
	state       *State
	lastAlertAt map[string]time.Time
	mu          sync.Mutex
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger overrides the monitor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// WithInterval overrides the default 30s probe interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithMaxRounds bounds Run to n probe rounds before returning on its own,
// instead of running until ctx is cancelled or stop is closed. n <= 0
// means unbounded.
func WithMaxRounds(n int) Option {
	return func(m *Monitor) { m.maxRounds = n }
}

// New returns a Monitor probing host with probes, notifying notifiers on
// each check/status-change/alert event.
func New(host string, probes []health.Probe, notifiers []Notifier, opts ...Option) *Monitor {
	m := &Monitor{
		host:        host,
		probes:      probes,
		interval:    30 * time.Second,
		notifiers:   notifiers,
		logger:      slog.Default(),
		state:       newState(),
		lastAlertAt: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the monitor's metrics state for external inspection.
func (m *Monitor) State() *State { return m.state }

// Run loops until ctx is cancelled or stop is closed, checking all probes
// every interval.
func (m *Monitor) Run(ctx context.Context, stop <-chan struct{}) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.runOnce(ctx)
	rounds := 1
	for {
		if m.maxRounds > 0 && rounds >= m.maxRounds {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			m.runOnce(ctx)
			rounds++
		}
	}
}

func (m *Monitor) runOnce(ctx context.Context) {
	results := health.CheckAll(ctx, m.host, m.probes)
	for _, r := range results {
		m.recordAndNotify(r)
	}
}

func (m *Monitor) recordAndNotify(r health.Result) {
	m.mu.Lock()
	m.state.mu.Lock()
	metrics, ok := m.state.Metrics[r.Name]
	if !ok {
		metrics = &ServiceMetrics{}
		m.state.Metrics[r.Name] = metrics
	}
	wasHealthy := metrics.Healthy
	firstCheck := !ok
	metrics.record(r)
	m.state.mu.Unlock()

	m.notify(Event{
		Kind:    EventCheck,
		Service: r.Name,
		Message: r.Message,
		Healthy: r.Healthy,
		At:      time.Now().UTC(),
		RunID:   m.state.RunID,
	})

	if !firstCheck && wasHealthy != r.Healthy {
		m.notify(Event{
			Kind:    EventStatusChange,
			Service: r.Name,
			Message: fmt.Sprintf("transitioned to healthy=%v", r.Healthy),
			Healthy: r.Healthy,
			At:      time.Now().UTC(),
			RunID:   m.state.RunID,
		})
	}

	if !r.Healthy && metrics.ConsecutiveFailures >= 3 {
		last, seen := m.lastAlertAt[r.Name]
		if !seen || time.Since(last) >= alertCooldown {
			m.lastAlertAt[r.Name] = time.Now()
			m.notify(Event{
				Kind:    EventAlert,
				Service: r.Name,
				Message: fmt.Sprintf("%s has failed %d consecutive checks", r.Name, metrics.ConsecutiveFailures),
				Healthy: false,
				At:      time.Now().UTC(),
				RunID:   m.state.RunID,
			})
		}
	}
	m.mu.Unlock()
}

func (m *Monitor) notify(e Event) {
	for _, n := range m.notifiers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("monitor notifier panicked", "recovered", r)
				}
			}()
			if err := n.Notify(e); err != nil {
				m.logger.Warn("monitor notifier failed", "error", err)
			}
		}()
	}
}
