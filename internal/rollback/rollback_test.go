package rollback

import "testing"

func TestExtractImagesHandlesTypedMap(t *testing.T) {
	got := extractImages(map[string]string{"n8n": "v1"})
	if got["n8n"] != "v1" {
		t.Fatalf("expected n8n=v1, got %v", got)
	}
}

func TestExtractImagesHandlesJSONDecodedMap(t *testing.T) {
	got := extractImages(map[string]any{"n8n": "v1"})
	if got["n8n"] != "v1" {
		t.Fatalf("expected n8n=v1 after JSON-shaped decode, got %v", got)
	}
}

func TestExtractImagesReturnsNilForMissingValue(t *testing.T) {
	if got := extractImages(nil); got != nil {
		t.Fatalf("expected nil for missing value, got %v", got)
	}
}

func TestCopyImagesReturnsIndependentCopy(t *testing.T) {
	original := map[string]string{"a": "1"}
	copied := copyImages(original)
	copied["a"] = "2"
	if original["a"] != "1" {
		t.Fatal("expected original map unaffected by mutation of the copy")
	}
}
