// Package resources provides thin, tagged create/delete operations for
// each AWS resource kind a deployment provisions.
package resources

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
)

// Tagger applies the deployment/stack tag pair uniformly to every
// resource-creating call, so discovery and cleanup can later find
// everything a stack owns by tag alone.
type Tagger struct {
	clients *awsclient.Factory
}

// NewTagger returns a Tagger.
func NewTagger(clients *awsclient.Factory) *Tagger {
	return &Tagger{clients: clients}
}

// Tags returns the standard tag set for stack.
func Tags(stack string) []ec2types.Tag {
	return []ec2types.Tag{
		{Key: aws.String("geusemaker:deployment"), Value: aws.String(stack)},
		{Key: aws.String("Stack"), Value: aws.String(stack)},
	}
}

// TagSpecification wraps Tags for a given resource type, for use in
// CreateX input TagSpecifications fields.
func TagSpecification(stack string, resourceType ec2types.ResourceType) ec2types.TagSpecification {
	return ec2types.TagSpecification{ResourceType: resourceType, Tags: Tags(stack)}
}

// Apply tags an already-created resource by ID, for services (EFS, ELB,
// CloudFront) whose create calls don't accept inline tag specifications in
// the way EC2's does.
func (t *Tagger) Apply(ctx context.Context, region, resourceID, stack string) error {
	client, err := t.clients.EC2(ctx, region)
	if err != nil {
		return fmt.Errorf("tag %s: %w", resourceID, err)
	}
	_, err = client.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{resourceID},
		Tags:      Tags(stack),
	})
	if err != nil {
		return fmt.Errorf("tag %s: %w", resourceID, err)
	}
	return nil
}
