package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/GoCodeAlone/geuse/internal/health"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) Notify(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingNotifier) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestServiceMetricsTracksUptimeAndConsecutiveFailures(t *testing.T) {
	m := &ServiceMetrics{}
	m.record(health.Result{Healthy: true, LatencyMS: 10})
	m.record(health.Result{Healthy: false, LatencyMS: 20})
	m.record(health.Result{Healthy: false, LatencyMS: 30})

	if m.ConsecutiveFailures != 2 {
		t.Errorf("expected 2 consecutive failures, got %d", m.ConsecutiveFailures)
	}
	if got := m.UptimePercent(); got < 33.0 || got > 34.0 {
		t.Errorf("expected ~33%% uptime, got %f", got)
	}
}

func TestRecordAndNotifyEmitsCheckAndAlertEvents(t *testing.T) {
	notifier := &recordingNotifier{}
	mon := New("example.com", nil, []Notifier{notifier}, WithInterval(time.Hour))

	unhealthy := health.Result{Name: "svc", Healthy: false, Message: "down"}
	for i := 0; i < 4; i++ {
		mon.recordAndNotify(unhealthy)
	}

	if notifier.count(EventCheck) != 4 {
		t.Errorf("expected 4 check events, got %d", notifier.count(EventCheck))
	}
	if notifier.count(EventAlert) == 0 {
		t.Error("expected at least one alert event after 3+ consecutive failures")
	}
}

func TestRecordAndNotifyEmitsStatusChangeOnTransition(t *testing.T) {
	notifier := &recordingNotifier{}
	mon := New("example.com", nil, []Notifier{notifier}, WithInterval(time.Hour))

	mon.recordAndNotify(health.Result{Name: "svc", Healthy: true})
	mon.recordAndNotify(health.Result{Name: "svc", Healthy: false})

	if notifier.count(EventStatusChange) != 1 {
		t.Errorf("expected 1 status change event, got %d", notifier.count(EventStatusChange))
	}
}

func TestRunStopsAfterMaxRounds(t *testing.T) {
	mon := New("example.com", nil, nil, WithInterval(time.Millisecond), WithMaxRounds(3))

	done := make(chan error, 1)
	go func() { done <- mon.Run(context.Background(), make(chan struct{})) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after reaching maxRounds")
	}
}
