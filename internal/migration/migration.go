// Package migration upgrades persisted deployment records between schema
// versions. Unlike the teacher's SQL-diff runner, steps here operate on a
// decoded JSON tree rather than a database connection.
package migration

import (
	"fmt"
	"log/slog"
	"sort"
)

// Step transforms a decoded state record from one schema version to the
// next (or back, for Down).
type Step interface {
	Name() string
	FromVersion() int
	ToVersion() int
	Up(state map[string]any) (map[string]any, error)
	Down(state map[string]any) (map[string]any, error)
}

// Runner applies a sorted sequence of Steps to move a record between
// schema versions.
type Runner struct {
	steps  []Step
	logger *slog.Logger
}

// NewRunner builds a Runner with its steps sorted by ToVersion ascending.
func NewRunner(logger *slog.Logger, steps ...Step) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	sorted := append([]Step(nil), steps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ToVersion() < sorted[j].ToVersion() })
	return &Runner{steps: sorted, logger: logger}
}

// Upgrade applies every step whose FromVersion is >= from and whose
// ToVersion is > the running cursor, until the cursor reaches to. It
// returns the transformed state and the names of the steps applied, in
// order.
func (r *Runner) Upgrade(state map[string]any, from, to int) (map[string]any, []string, error) {
	cursor := from
	applied := make([]string, 0, len(r.steps))
	for _, step := range r.steps {
		if cursor >= to {
			break
		}
		if step.FromVersion() >= cursor && step.ToVersion() > cursor {
			next, err := step.Up(state)
			if err != nil {
				return nil, applied, fmt.Errorf("migration %s (v%d->v%d): %w", step.Name(), step.FromVersion(), step.ToVersion(), err)
			}
			state = next
			cursor = step.ToVersion()
			applied = append(applied, step.Name())
			r.logger.Info("applied migration", "name", step.Name(), "from", step.FromVersion(), "to", step.ToVersion())
		}
	}
	if cursor < to {
		return nil, applied, fmt.Errorf("no migration path from v%d to v%d (reached v%d)", from, to, cursor)
	}
	return state, applied, nil
}

// Downgrade walks the sorted steps in reverse, applying Down until the
// cursor reaches to. It exists to support restore-from-backup onto an
// older binary and for tests.
func (r *Runner) Downgrade(state map[string]any, from, to int) (map[string]any, []string, error) {
	cursor := from
	applied := make([]string, 0, len(r.steps))
	for i := len(r.steps) - 1; i >= 0; i-- {
		step := r.steps[i]
		if cursor <= to {
			break
		}
		if step.ToVersion() <= cursor && step.ToVersion() > to {
			prev, err := step.Down(state)
			if err != nil {
				return nil, applied, fmt.Errorf("migration %s down (v%d->v%d): %w", step.Name(), step.ToVersion(), step.FromVersion(), err)
			}
			state = prev
			cursor = step.FromVersion()
			applied = append(applied, step.Name())
		}
	}
	if cursor > to {
		return nil, applied, fmt.Errorf("no migration path down from v%d to v%d (reached v%d)", from, to, cursor)
	}
	return state, applied, nil
}
