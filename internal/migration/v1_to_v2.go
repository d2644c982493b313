package migration

// v1ToV2 introduces schema_version, migration_history, and
// resource_provenance onto records written by the first release of the
// state format.
type v1ToV2 struct{}

// NewV1ToV2 returns the step that upgrades schema version 1 records.
func NewV1ToV2() Step { return v1ToV2{} }

func (v1ToV2) Name() string    { return "v1_to_v2_add_schema_version" }
func (v1ToV2) FromVersion() int { return 1 }
func (v1ToV2) ToVersion() int   { return 2 }

func (v1ToV2) Up(state map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(state)+3)
	for k, v := range state {
		out[k] = v
	}
	out["schema_version"] = 2
	if _, ok := out["migration_history"]; !ok {
		out["migration_history"] = []string{}
	}
	if _, ok := out["resource_provenance"]; !ok {
		out["resource_provenance"] = map[string]any{}
	}
	return out, nil
}

func (v1ToV2) Down(state map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(state))
	for k, v := range state {
		if k == "migration_history" || k == "resource_provenance" {
			continue
		}
		out[k] = v
	}
	out["schema_version"] = 1
	return out, nil
}
