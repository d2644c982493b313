package resources

import (
	"testing"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

func TestTagsIncludesDeploymentAndStackKeys(t *testing.T) {
	tags := Tags("my-stack")
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	seen := map[string]string{}
	for _, tag := range tags {
		seen[*tag.Key] = *tag.Value
	}
	if seen["geusemaker:deployment"] != "my-stack" {
		t.Errorf("expected geusemaker:deployment=my-stack, got %q", seen["geusemaker:deployment"])
	}
	if seen["Stack"] != "my-stack" {
		t.Errorf("expected Stack=my-stack, got %q", seen["Stack"])
	}
}

func TestTagSpecificationSetsResourceType(t *testing.T) {
	spec := TagSpecification("my-stack", ec2types.ResourceTypeVpc)
	if spec.ResourceType != ec2types.ResourceTypeVpc {
		t.Errorf("expected resource type vpc, got %s", spec.ResourceType)
	}
	if len(spec.Tags) != 2 {
		t.Errorf("expected 2 tags in spec, got %d", len(spec.Tags))
	}
}

func TestBase64EncodeRoundTrips(t *testing.T) {
	encoded := base64Encode([]byte("#!/bin/bash\necho hi\n"))
	if encoded == "" {
		t.Fatal("expected non-empty encoding")
	}
	if encoded == "#!/bin/bash\necho hi\n" {
		t.Fatal("expected encoded output to differ from input")
	}
}
