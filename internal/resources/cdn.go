package resources

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
)

// CDN fronts a deployment's load balancer (or instance) with a CloudFront
// distribution when the deployment opts into EnableCDN.
type CDN struct {
	clients *awsclient.Factory
	tagger  *Tagger
}

// NewCDN returns a CDN operations helper.
func NewCDN(clients *awsclient.Factory) *CDN {
	return &CDN{clients: clients, tagger: NewTagger(clients)}
}

const originID = "geuse-origin"

// Create provisions a distribution whose single origin is originDomain
// (a load balancer DNS name or instance public DNS), redirecting HTTP to
// HTTPS when redirectHTTPS is set. Returns the distribution ID and domain
// name.
func (c *CDN) Create(ctx context.Context, region, stack, originDomain string, redirectHTTPS bool) (distributionID, domainName string, err error) {
	client, err := c.clients.CloudFront(ctx, region)
	if err != nil {
		return "", "", err
	}

	viewerPolicy := cftypes.ViewerProtocolPolicyAllowAll
	if redirectHTTPS {
		viewerPolicy = cftypes.ViewerProtocolPolicyRedirectToHttps
	}

	out, err := client.CreateDistribution(ctx, &cloudfront.CreateDistributionInput{
		DistributionConfig: &cftypes.DistributionConfig{
			CallerReference: aws.String(stack),
			Comment:         aws.String("geuse deployment " + stack),
			Enabled:         aws.Bool(true),
			Origins: &cftypes.Origins{
				Quantity: aws.Int32(1),
				Items: []cftypes.Origin{{
					Id:         aws.String(originID),
					DomainName: aws.String(originDomain),
					CustomOriginConfig: &cftypes.CustomOriginConfig{
						HTTPPort:             aws.Int32(80),
						HTTPSPort:            aws.Int32(443),
						OriginProtocolPolicy: cftypes.OriginProtocolPolicyHttpOnly,
					},
				}},
			},
			DefaultCacheBehavior: &cftypes.DefaultCacheBehavior{
				TargetOriginId:       aws.String(originID),
				ViewerProtocolPolicy: viewerPolicy,
				ForwardedValues: &cftypes.ForwardedValues{
					QueryString: aws.Bool(true),
					Cookies:     &cftypes.CookiePreference{Forward: cftypes.ItemSelectionAll},
				},
				MinTTL: aws.Int64(0),
			},
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("resources: create distribution: %w", err)
	}
	if out.Distribution == nil {
		return "", "", fmt.Errorf("resources: create distribution returned no distribution")
	}
	distributionID = aws.ToString(out.Distribution.Id)
	domainName = aws.ToString(out.Distribution.DomainName)
	if tagErr := c.tagger.Apply(ctx, region, distributionID, stack); tagErr != nil {
		err = tagErr
	}
	return distributionID, domainName, err
}

// Status returns the distribution's deployment status ("InProgress" or
// "Deployed").
func (c *CDN) Status(ctx context.Context, region, distributionID string) (string, error) {
	client, err := c.clients.CloudFront(ctx, region)
	if err != nil {
		return "", err
	}
	out, err := client.GetDistribution(ctx, &cloudfront.GetDistributionInput{Id: aws.String(distributionID)})
	if err != nil {
		return "", fmt.Errorf("resources: get distribution %s: %w", distributionID, err)
	}
	if out.Distribution == nil {
		return "", fmt.Errorf("resources: distribution %s not found", distributionID)
	}
	return aws.ToString(out.Distribution.Status), nil
}

// Delete disables then deletes a distribution. CloudFront requires a
// distribution be disabled (and that disable fully propagate) before it can
// be deleted; the caller is responsible for polling Status until it settles
// between the two calls. The ETag required for both conditional writes is
// fetched fresh here rather than accepted from the caller, since it changes
// on every distribution mutation.
func (c *CDN) Delete(ctx context.Context, region, distributionID string) error {
	client, err := c.clients.CloudFront(ctx, region)
	if err != nil {
		return err
	}
	getOut, err := client.GetDistribution(ctx, &cloudfront.GetDistributionInput{Id: aws.String(distributionID)})
	if err != nil {
		return fmt.Errorf("resources: get distribution %s before delete: %w", distributionID, err)
	}
	if getOut.Distribution == nil || getOut.Distribution.DistributionConfig == nil {
		return fmt.Errorf("resources: distribution %s missing config", distributionID)
	}
	cfg := getOut.Distribution.DistributionConfig
	cfg.Enabled = aws.Bool(false)

	updOut, err := client.UpdateDistribution(ctx, &cloudfront.UpdateDistributionInput{
		Id:                 aws.String(distributionID),
		DistributionConfig: cfg,
		IfMatch:            getOut.ETag,
	})
	if err != nil {
		return fmt.Errorf("resources: disable distribution %s: %w", distributionID, err)
	}

	newEtag := getOut.ETag
	if updOut.ETag != nil {
		newEtag = updOut.ETag
	}
	if _, err := client.DeleteDistribution(ctx, &cloudfront.DeleteDistributionInput{
		Id:      aws.String(distributionID),
		IfMatch: newEtag,
	}); err != nil {
		return fmt.Errorf("resources: delete distribution %s: %w", distributionID, err)
	}
	return nil
}
