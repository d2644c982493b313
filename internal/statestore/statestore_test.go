package statestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GoCodeAlone/geuse/internal/migration"
	"github.com/GoCodeAlone/geuse/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	runner := migration.NewRunner(nil, migration.NewV1ToV2())
	s, err := New(t.TempDir(), runner)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func sampleState(stack string) *model.DeploymentState {
	return &model.DeploymentState{
		Config: model.DeploymentConfig{
			StackName: stack,
			Tier:      model.TierDev,
			Region:    "us-east-1",
		},
		Status:     model.StatusPending,
		SchemaVersion: model.CurrentSchemaVersion,
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	state := sampleState("demo")

	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, "demo", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Config.StackName != "demo" {
		t.Fatalf("stack_name = %q, want demo", got.Config.StackName)
	}
	if got.SchemaVersion != model.CurrentSchemaVersion {
		t.Fatalf("schema_version = %d, want %d", got.SchemaVersion, model.CurrentSchemaVersion)
	}
}

func TestSaveBacksUpExistingRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	state := sampleState("demo")

	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	state.Status = model.StatusRunning
	state.InstanceID = "i-123"
	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	backups, err := s.ListBackups("demo")
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("len(backups) = %d, want 1", len(backups))
	}
}

func TestLoadRecoversFromBackupOnCorruption(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	state := sampleState("demo")
	state.Status = model.StatusRunning
	state.InstanceID = "i-123"

	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// force a second save so a backup of the first exists
	state.PublicHost = "example.com"
	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("Save 2: %v", err)
	}

	// Corrupt the live record.
	path := s.deploymentPath("demo")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}

	got, err := s.Load(ctx, "demo", true)
	if err != nil {
		t.Fatalf("Load with recover: %v", err)
	}
	if got.Config.StackName != "demo" {
		t.Fatalf("recovered stack_name = %q, want demo", got.Config.StackName)
	}
}

func TestLoadWithoutRecoverReturnsError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	path := s.deploymentPath("demo")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := s.Load(ctx, "demo", false); err == nil {
		t.Fatalf("expected error when recover=false")
	}
}

func TestQueryFiltersByStatusAndTier(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	running := sampleState("a")
	running.Status = model.StatusRunning
	running.InstanceID = "i-a"
	if err := s.Save(ctx, running); err != nil {
		t.Fatalf("Save a: %v", err)
	}

	pending := sampleState("b")
	if err := s.Save(ctx, pending); err != nil {
		t.Fatalf("Save b: %v", err)
	}

	results, err := s.Query(ctx, Filter{Status: model.StatusRunning})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 || results[0].Config.StackName != "a" {
		t.Fatalf("Query results = %+v, want only stack a", results)
	}
}

func TestRetentionPrunesOldestBackups(t *testing.T) {
	s := newTestStore(t)
	s.retain = 2
	ctx := context.Background()
	state := sampleState("demo")

	for i := 0; i < 5; i++ {
		state.InstanceID = "i-" + time.Now().Format("150405.000000000")
		if err := s.Save(ctx, state); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	backups, err := s.ListBackups("demo")
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) > 2 {
		t.Fatalf("len(backups) = %d, want <= 2", len(backups))
	}
}
