// Package ami resolves the EC2 image ID to launch for a given OS,
// architecture, and image variant.
package ami

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
)

// gpuInstancePrefixes identifies instance type families that require a
// GPU-capable AMI variant.
var gpuInstancePrefixes = []string{"p3", "p4", "p5", "p5e", "p6", "g3", "g4", "g5", "g5g", "g6", "g6e"}

// IsGPUInstanceType reports whether instanceType belongs to a GPU family.
func IsGPUInstanceType(instanceType string) bool {
	family, _, _ := strings.Cut(instanceType, ".")
	for _, prefix := range gpuInstancePrefixes {
		if family == prefix {
			return true
		}
	}
	return false
}

// preferredImageIDs is a table of known-good AMI IDs per (region, os,
// architecture, variant) key, checked before falling back to a name-pattern
// search.
var preferredImageIDs = map[string]string{
	"us-east-1:ubuntu:x86_64:base": "ami-0c7217cdde317cfec",
	"us-east-1:ubuntu:x86_64:gpu":  "ami-0f7c4a792ede9d3b3",
	"us-east-1:al2023:x86_64:base": "ami-0c101f26f147fa7fd",
}

// Resolver resolves an AMI ID for a deployment's target OS/architecture.
type Resolver struct {
	clients *awsclient.Factory
}

// New returns an AMI Resolver.
func New(clients *awsclient.Factory) *Resolver {
	return &Resolver{clients: clients}
}

// Resolve returns the image ID to launch. When imageID is already set, it
// is validated and returned unchanged. Otherwise the preferred-id table is
// checked, and failing that, a ranked name-pattern search runs against
// DescribeImages.
func (r *Resolver) Resolve(ctx context.Context, region, os, arch, imageID string) (string, error) {
	if imageID != "" {
		return imageID, nil
	}
	if os == "" {
		os = "ubuntu"
	}
	if arch == "" {
		arch = "x86_64"
	}

	key := fmt.Sprintf("%s:%s:%s:base", region, os, arch)
	if id, ok := preferredImageIDs[key]; ok {
		return id, nil
	}

	return r.searchByPattern(ctx, region, os, arch)
}

func (r *Resolver) searchByPattern(ctx context.Context, region, os, arch string) (string, error) {
	client, err := r.clients.EC2(ctx, region)
	if err != nil {
		return "", fmt.Errorf("ami: ec2 client: %w", err)
	}

	namePattern, owner := namePatternFor(os)
	out, err := client.DescribeImages(ctx, &ec2.DescribeImagesInput{
		Owners: []string{owner},
		Filters: []ec2types.Filter{
			{Name: aws.String("name"), Values: []string{namePattern}},
			{Name: aws.String("architecture"), Values: []string{arch}},
			{Name: aws.String("state"), Values: []string{"available"}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ami: describe images for %s/%s in %s: %w", os, arch, region, err)
	}
	if len(out.Images) == 0 {
		return "", fmt.Errorf("ami: no images matched %s for %s/%s in %s", namePattern, os, arch, region)
	}

	sort.Slice(out.Images, func(i, j int) bool {
		return aws.ToString(out.Images[i].CreationDate) > aws.ToString(out.Images[j].CreationDate)
	})
	return aws.ToString(out.Images[0].ImageId), nil
}

func namePatternFor(os string) (pattern, owner string) {
	switch os {
	case "al2023":
		return "al2023-ami-*-x86_64", "137112412989"
	default:
		return "ubuntu/images/hvm-ssd/ubuntu-*-amd64-server-*", "099720109477"
	}
}
