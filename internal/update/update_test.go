package update

import (
	"testing"

	"github.com/GoCodeAlone/geuse/internal/model"
)

func TestSnapshotStateCapturesInstanceTypeAndImages(t *testing.T) {
	state := &model.DeploymentState{
		Config:          model.DeploymentConfig{InstanceType: "t3.medium"},
		ContainerImages: map[string]string{"n8n": "n8nio/n8n:1.0"},
	}
	snapshot, err := snapshotState(state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot["instance_type"] != "t3.medium" {
		t.Errorf("expected instance_type t3.medium, got %v", snapshot["instance_type"])
	}
	images, ok := snapshot["container_images"].(map[string]string)
	if !ok || images["n8n"] != "n8nio/n8n:1.0" {
		t.Errorf("expected container_images to carry n8n image, got %v", snapshot["container_images"])
	}
}

func TestJoinArgsJoinsWithSpaces(t *testing.T) {
	got := joinArgs([]string{"a", "b", "c"})
	if got != "a b c" {
		t.Errorf("expected 'a b c', got %q", got)
	}
}

func TestJoinArgsHandlesEmptySlice(t *testing.T) {
	if got := joinArgs(nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestCopyStringMapReturnsIndependentCopy(t *testing.T) {
	original := map[string]string{"a": "1"}
	copied := copyStringMap(original)
	copied["a"] = "2"
	if original["a"] != "1" {
		t.Fatal("expected original map to be unaffected by mutation of the copy")
	}
}
