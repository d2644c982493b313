package resources

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
)

// CallerIdentity resolves the AWS account behind the active credentials, so
// validators can confirm credentials work before a deployment starts.
type CallerIdentity struct {
	clients *awsclient.Factory
}

// NewCallerIdentity returns a CallerIdentity operations helper.
func NewCallerIdentity(clients *awsclient.Factory) *CallerIdentity {
	return &CallerIdentity{clients: clients}
}

// Resolve returns the account ID and ARN of the caller's current
// credentials.
func (c *CallerIdentity) Resolve(ctx context.Context, region string) (accountID, arn string, err error) {
	client, err := c.clients.STS(ctx, region)
	if err != nil {
		return "", "", err
	}
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", "", fmt.Errorf("resources: get caller identity: %w", err)
	}
	return aws.ToString(out.Account), aws.ToString(out.Arn), nil
}
