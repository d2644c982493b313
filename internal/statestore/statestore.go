// Package statestore persists DeploymentState records as JSON files on the
// local filesystem, with advisory locking, timestamped backups, and
// forward migration on load.
package statestore

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/GoCodeAlone/geuse/internal/errs"
	"github.com/GoCodeAlone/geuse/internal/migration"
	"github.com/GoCodeAlone/geuse/internal/model"
)

const (
	deploymentsDir   = "deployments"
	backupsDir       = "backups"
	archiveDir       = "archive"
	lockPollInterval = 50 * time.Millisecond
	lockTimeout      = 10 * time.Second
)

// Store persists DeploymentState records under a root directory.
type Store struct {
	root     string
	runner   *migration.Runner
	retain   int
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRetention overrides the number of backups kept per stack (default 10).
func WithRetention(n int) Option {
	return func(s *Store) { s.retain = n }
}

// WithLogger overrides the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store rooted at dir, creating the deployments/backups/
// archive sub-trees if they do not exist.
func New(dir string, runner *migration.Runner, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve state dir: %w", err)
	}
	for _, sub := range []string{deploymentsDir, backupsDir, archiveDir} {
		if err := os.MkdirAll(filepath.Join(abs, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", sub, err)
		}
	}
	s := &Store{root: abs, runner: runner, retain: 10, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) deploymentPath(stack string) string {
	return filepath.Join(s.root, deploymentsDir, stack+".json")
}

func (s *Store) lockPath(stack string) string {
	return filepath.Join(s.root, deploymentsDir, stack+".lock")
}

func (s *Store) backupDir(stack string) string {
	return filepath.Join(s.root, backupsDir, stack)
}

func (s *Store) acquireLock(ctx context.Context, stack string) (func(), error) {
	fl := flock.New(s.lockPath(stack))
	deadline := time.Now().Add(lockTimeout)
	for {
		ok, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock for %s: %w", stack, err)
		}
		if ok {
			return func() { _ = fl.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("acquire lock for %s: timed out after %s", stack, lockTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// Save writes state atomically, stamping timestamps and backing up any
// previously persisted record first.
func (s *Store) Save(ctx context.Context, state *model.DeploymentState) error {
	release, err := s.acquireLock(ctx, state.Config.StackName)
	if err != nil {
		return err
	}
	defer release()

	now := time.Now().UTC()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now
	state.SchemaVersion = model.CurrentSchemaVersion

	if err := model.ValidateState(state); err != nil {
		return &errs.ValidationFailure{Field: "state", Message: "invalid before save", Err: err}
	}

	path := s.deploymentPath(state.Config.StackName)
	if _, err := os.Stat(path); err == nil {
		if _, err := s.backupLocked(state.Config.StackName, ""); err != nil {
			return fmt.Errorf("backup before save: %w", err)
		}
	}

	return s.writeAtomic(path, state)
}

func (s *Store) writeAtomic(path string, state *model.DeploymentState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp state file: %w", err)
	}
	return nil
}

// Load reads and migrates the record for stack. When recover is true (the
// default callers should pass), a corrupted or failed-validation record is
// replaced in memory by the most recent backup instead of returning an
// error.
func (s *Store) Load(ctx context.Context, stack string, recover bool) (*model.DeploymentState, error) {
	release, err := s.acquireLock(ctx, stack)
	if err != nil {
		return nil, err
	}
	defer release()

	path := s.deploymentPath(stack)
	state, loadErr := s.readAndMigrate(path)
	if loadErr == nil {
		return state, nil
	}
	if !recover {
		return nil, loadErr
	}

	backups, err := s.listBackupsLocked(stack)
	if err != nil || len(backups) == 0 {
		return nil, loadErr
	}
	s.logger.Warn("recovering deployment state from backup", "stack", stack, "backup", backups[0], "reason", loadErr)
	recovered, err := s.readAndMigrateGzip(backups[0])
	if err != nil {
		return nil, loadErr
	}
	return recovered, nil
}

func (s *Store) readAndMigrate(path string) (*model.DeploymentState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.StateIntegrityFailure{Kind: "corruption", Path: path, Err: err}
	}
	return s.migrateAndValidate(path, data)
}

func (s *Store) readAndMigrateGzip(path string) (*model.DeploymentState, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.StateIntegrityFailure{Kind: "corruption", Path: path, Err: err}
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, &errs.StateIntegrityFailure{Kind: "corruption", Path: path, Err: err}
	}
	defer gz.Close()
	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, &errs.StateIntegrityFailure{Kind: "corruption", Path: path, Err: err}
	}
	return s.migrateAndValidate(path, data)
}

func (s *Store) migrateAndValidate(path string, data []byte) (*model.DeploymentState, error) {
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, &errs.StateIntegrityFailure{Kind: "corruption", Path: path, Err: err}
	}

	version := extractVersion(tree)
	if version < model.CurrentSchemaVersion && s.runner != nil {
		migrated, _, err := s.runner.Upgrade(tree, version, model.CurrentSchemaVersion)
		if err != nil {
			return nil, &errs.StateIntegrityFailure{Kind: "migration", Path: path, Err: err}
		}
		tree = migrated
	}

	migratedData, err := json.Marshal(tree)
	if err != nil {
		return nil, &errs.StateIntegrityFailure{Kind: "corruption", Path: path, Err: err}
	}
	var state model.DeploymentState
	if err := json.Unmarshal(migratedData, &state); err != nil {
		return nil, &errs.StateIntegrityFailure{Kind: "corruption", Path: path, Err: err}
	}
	if err := model.ValidateState(&state); err != nil {
		return nil, &errs.StateIntegrityFailure{Kind: "validation", Path: path, Err: err}
	}
	return &state, nil
}

func extractVersion(tree map[string]any) int {
	switch v := tree["schema_version"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 1
	}
}

// Filter selects a subset of deployments for Query.
type Filter struct {
	Status Status
	Tier   Tier
	Region string
	After  time.Time
	Before time.Time
}

// Status and Tier alias the model package's types to avoid importing
// model in every caller of Query.
type Status = model.Status
type Tier = model.Tier

// Query lists deployments matching Filter, sorted by UpdatedAt descending.
func (s *Store) Query(ctx context.Context, filter Filter) ([]*model.DeploymentState, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, deploymentsDir))
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	var out []*model.DeploymentState
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		stack := strings.TrimSuffix(e.Name(), ".json")
		state, err := s.Load(ctx, stack, true)
		if err != nil {
			continue
		}
		if !matches(state, filter) {
			continue
		}
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func matches(state *model.DeploymentState, f Filter) bool {
	if f.Status != "" && state.Status != f.Status {
		return false
	}
	if f.Tier != "" && state.Config.Tier != f.Tier {
		return false
	}
	if f.Region != "" && state.Config.Region != f.Region {
		return false
	}
	if !f.After.IsZero() && state.CreatedAt.Before(f.After) {
		return false
	}
	if !f.Before.IsZero() && state.CreatedAt.After(f.Before) {
		return false
	}
	return true
}

// Backup snapshots the current record for stack under a gzip-compressed,
// timestamped filename and returns its path. label is appended to the
// filename when non-empty (e.g. "pre-rollback").
func (s *Store) Backup(ctx context.Context, stack, label string) (string, error) {
	release, err := s.acquireLock(ctx, stack)
	if err != nil {
		return "", err
	}
	defer release()
	return s.backupLocked(stack, label)
}

func (s *Store) backupLocked(stack, label string) (string, error) {
	src := s.deploymentPath(stack)
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read state for backup: %w", err)
	}
	if err := os.MkdirAll(s.backupDir(stack), 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	base := stack
	if label != "" {
		base = stack + "-" + label
	}
	ts := time.Now().UTC().Format("20060102T150405Z")
	name := fmt.Sprintf("%s-%s.json.gz", base, ts)
	path := filepath.Join(s.backupDir(stack), name)
	for i := 1; fileExists(path); i++ {
		name = fmt.Sprintf("%s-%s-%d.json.gz", base, ts, i)
		path = filepath.Join(s.backupDir(stack), name)
	}

	if err := writeGzip(path, data); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := s.enforceRetention(stack); err != nil {
		s.logger.Warn("backup retention enforcement failed", "stack", stack, "error", err)
	}
	return path, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeGzip(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// ListBackups returns backup file paths for stack, newest first.
func (s *Store) ListBackups(stack string) ([]string, error) {
	return s.listBackupsLocked(stack)
}

func (s *Store) listBackupsLocked(stack string) ([]string, error) {
	entries, err := os.ReadDir(s.backupDir(stack))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list backups: %w", err)
	}
	type entry struct {
		path    string
		modTime time.Time
	}
	var all []entry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		all = append(all, entry{path: filepath.Join(s.backupDir(stack), e.Name()), modTime: info.ModTime()})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].modTime.After(all[j].modTime) })
	paths := make([]string, len(all))
	for i, e := range all {
		paths[i] = e.path
	}
	return paths, nil
}

func (s *Store) enforceRetention(stack string) error {
	backups, err := s.listBackupsLocked(stack)
	if err != nil {
		return err
	}
	if len(backups) <= s.retain {
		return nil
	}
	for _, path := range backups[s.retain:] {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

// Restore replaces the live record for stack with the contents of
// backupPath, after migrating and validating it.
func (s *Store) Restore(ctx context.Context, stack, backupPath string) (*model.DeploymentState, error) {
	release, err := s.acquireLock(ctx, stack)
	if err != nil {
		return nil, err
	}
	defer release()

	state, err := s.readAndMigrateGzip(backupPath)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", backupPath, err)
	}
	if err := s.writeAtomic(s.deploymentPath(stack), state); err != nil {
		return nil, fmt.Errorf("restore %s: %w", backupPath, err)
	}
	return state, nil
}

// Archive moves a terminal deployment record out of the live deployments
// tree and deletes the live record.
func (s *Store) Archive(ctx context.Context, state *model.DeploymentState) (string, error) {
	stack := state.Config.StackName
	release, err := s.acquireLock(ctx, stack)
	if err != nil {
		return "", err
	}
	defer release()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal archived state: %w", err)
	}
	path := filepath.Join(s.root, archiveDir, fmt.Sprintf("%s-%d.json", stack, time.Now().UTC().Unix()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := os.Remove(s.deploymentPath(stack)); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove live record: %w", err)
	}
	return path, nil
}

// ExportJSON writes state as indented JSON to w.
func (s *Store) ExportJSON(w io.Writer, state *model.DeploymentState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}
