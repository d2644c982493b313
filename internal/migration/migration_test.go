package migration

import "testing"

func TestUpgradeV1ToV2(t *testing.T) {
	r := NewRunner(nil, NewV1ToV2())
	state := map[string]any{"schema_version": 1, "status": "running"}

	got, applied, err := r.Upgrade(state, 1, 2)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if len(applied) != 1 || applied[0] != "v1_to_v2_add_schema_version" {
		t.Fatalf("applied = %v, want one v1_to_v2 step", applied)
	}
	if got["schema_version"] != 2 {
		t.Fatalf("schema_version = %v, want 2", got["schema_version"])
	}
	if _, ok := got["migration_history"]; !ok {
		t.Fatalf("migration_history not populated")
	}
	if _, ok := got["resource_provenance"]; !ok {
		t.Fatalf("resource_provenance not populated")
	}
}

func TestUpgradeNoOpWhenCurrent(t *testing.T) {
	r := NewRunner(nil, NewV1ToV2())
	state := map[string]any{"schema_version": 2}
	got, applied, err := r.Upgrade(state, 2, 2)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("applied = %v, want none", applied)
	}
	if got["schema_version"] != 2 {
		t.Fatalf("schema_version changed unexpectedly")
	}
}

func TestUpgradeNoPath(t *testing.T) {
	r := NewRunner(nil, NewV1ToV2())
	_, _, err := r.Upgrade(map[string]any{}, 1, 5)
	if err == nil {
		t.Fatalf("expected error for unreachable target version")
	}
}

func TestDowngradeV2ToV1(t *testing.T) {
	r := NewRunner(nil, NewV1ToV2())
	state := map[string]any{
		"schema_version":      2,
		"migration_history":   []string{"v1_to_v2_add_schema_version"},
		"resource_provenance": map[string]any{},
	}
	got, _, err := r.Downgrade(state, 2, 1)
	if err != nil {
		t.Fatalf("Downgrade: %v", err)
	}
	if got["schema_version"] != 1 {
		t.Fatalf("schema_version = %v, want 1", got["schema_version"])
	}
	if _, ok := got["migration_history"]; ok {
		t.Fatalf("migration_history should have been removed on downgrade")
	}
}
