// Package pricing looks up on-demand compute, filesystem, and
// load-balancer/CDN prices, backed by a shared TTL cache so a deployment
// run only hits the AWS Pricing API once per (product, region) pair.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
)

// pricingAPIRegion is the only region the AWS Pricing API serves requests
// from for most partitions.
const pricingAPIRegion = "us-east-1"

// Source identifies where a PricingResult's value came from.
type Source string

const (
	SourceLive      Source = "live"
	SourceCached    Source = "cached"
	SourceEstimated Source = "estimated"
)

// Result is the outcome of a pricing lookup.
type Result struct {
	Value  float64
	Unit   string
	Source Source
}

var fallbackOnDemandByFamily = map[string]float64{
	"t3.medium":  0.0416,
	"t3.large":   0.0832,
	"m5.large":   0.096,
	"m5.xlarge":  0.192,
	"g4dn.xlarge": 0.526,
	"g5.xlarge":   0.804,
}

const fallbackOnDemandDefault = 0.10

var fallbackFilesystemByClass = map[string]float64{
	"standard":          0.30,
	"infrequent_access": 0.025,
}

// Service looks up compute, filesystem, and load-balancer/CDN pricing.
type Service struct {
	clients *awsclient.Factory
	cache   *ttlCache
}

// New returns a pricing Service backed by clients.
func New(clients *awsclient.Factory) *Service {
	return &Service{clients: clients, cache: newTTLCache(defaultCacheConfig())}
}

// ComputeOnDemand returns the hourly on-demand price for instanceType in
// region, falling back to a static estimate if the Pricing API call fails
// or returns no terms.
func (s *Service) ComputeOnDemand(ctx context.Context, instanceType, region string) (Result, error) {
	key := "ondemand:" + instanceType + ":" + region
	if v, ok := s.cache.Get(key); ok {
		r := v.(Result)
		r.Source = SourceCached
		return r, nil
	}

	value, err := s.fetchOnDemand(ctx, instanceType, region)
	if err != nil {
		fallback := fallbackOnDemandByFamily[instanceType]
		if fallback == 0 {
			fallback = fallbackOnDemandDefault
		}
		result := Result{Value: fallback, Unit: "USD/hr", Source: SourceEstimated}
		s.cache.SetWithTTL(key, result, 15*time.Minute)
		return result, nil
	}

	result := Result{Value: value, Unit: "USD/hr", Source: SourceLive}
	s.cache.SetWithTTL(key, result, 15*time.Minute)
	return result, nil
}

func (s *Service) fetchOnDemand(ctx context.Context, instanceType, region string) (float64, error) {
	client, err := s.clients.Pricing(ctx, pricingAPIRegion)
	if err != nil {
		return 0, err
	}

	out, err := client.GetProducts(ctx, &pricing.GetProductsInput{
		ServiceCode: aws.String("AmazonEC2"),
		Filters: []pricingtypes.Filter{
			{Type: pricingtypes.FilterTypeTermMatch, Field: aws.String("instanceType"), Value: aws.String(instanceType)},
			{Type: pricingtypes.FilterTypeTermMatch, Field: aws.String("location"), Value: aws.String(regionToLocation(region))},
			{Type: pricingtypes.FilterTypeTermMatch, Field: aws.String("operatingSystem"), Value: aws.String("Linux")},
			{Type: pricingtypes.FilterTypeTermMatch, Field: aws.String("tenancy"), Value: aws.String("Shared")},
			{Type: pricingtypes.FilterTypeTermMatch, Field: aws.String("preInstalledSw"), Value: aws.String("NA")},
			{Type: pricingtypes.FilterTypeTermMatch, Field: aws.String("capacitystatus"), Value: aws.String("Used")},
		},
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return 0, fmt.Errorf("pricing: get products for %s in %s: %w", instanceType, region, err)
	}
	if len(out.PriceList) == 0 {
		return 0, fmt.Errorf("pricing: no products returned for %s in %s", instanceType, region)
	}
	return parseOnDemandTerm(out.PriceList[0])
}

// priceListProduct mirrors the slice of the AWS Pricing API's JSON-string
// product document this function actually reads.
type priceListProduct struct {
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				PricePerUnit map[string]string `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

func parseOnDemandTerm(raw string) (float64, error) {
	var product priceListProduct
	if err := json.Unmarshal([]byte(raw), &product); err != nil {
		return 0, fmt.Errorf("pricing: parse product: %w", err)
	}
	for _, term := range product.Terms.OnDemand {
		for _, dim := range term.PriceDimensions {
			usd, ok := dim.PricePerUnit["USD"]
			if !ok {
				continue
			}
			var value float64
			if _, err := fmt.Sscanf(usd, "%f", &value); err != nil {
				continue
			}
			return value, nil
		}
	}
	return 0, fmt.Errorf("pricing: no USD on-demand price dimension found")
}

func regionToLocation(region string) string {
	if loc, ok := regionLocations[region]; ok {
		return loc
	}
	return "US East (N. Virginia)"
}

var regionLocations = map[string]string{
	"us-east-1": "US East (N. Virginia)",
	"us-east-2": "US East (Ohio)",
	"us-west-1": "US West (N. California)",
	"us-west-2": "US West (Oregon)",
	"eu-west-1": "EU (Ireland)",
	"eu-central-1": "EU (Frankfurt)",
	"ap-southeast-1": "Asia Pacific (Singapore)",
	"ap-northeast-1": "Asia Pacific (Tokyo)",
}

// FilesystemPerGBMonth returns the per-GB-month price for storageClass
// (e.g. "standard", "infrequent_access") in region.
func (s *Service) FilesystemPerGBMonth(ctx context.Context, storageClass, region string) (Result, error) {
	key := "efs:" + storageClass + ":" + region
	if v, ok := s.cache.Get(key); ok {
		r := v.(Result)
		r.Source = SourceCached
		return r, nil
	}

	client, err := s.clients.Pricing(ctx, pricingAPIRegion)
	if err == nil {
		out, fetchErr := client.GetProducts(ctx, &pricing.GetProductsInput{
			ServiceCode: aws.String("AmazonEFS"),
			Filters: []pricingtypes.Filter{
				{Type: pricingtypes.FilterTypeTermMatch, Field: aws.String("location"), Value: aws.String(regionToLocation(region))},
				{Type: pricingtypes.FilterTypeTermMatch, Field: aws.String("storageClass"), Value: aws.String(storageClass)},
			},
			MaxResults: aws.Int32(1),
		})
		if fetchErr == nil && len(out.PriceList) > 0 {
			if value, parseErr := parseOnDemandTerm(out.PriceList[0]); parseErr == nil {
				result := Result{Value: value, Unit: "USD/GB-month", Source: SourceLive}
				s.cache.SetWithTTL(key, result, 15*time.Minute)
				return result, nil
			}
		}
	}

	fallback := fallbackFilesystemByClass[storageClass]
	if fallback == 0 {
		fallback = fallbackFilesystemByClass["standard"]
	}
	result := Result{Value: fallback, Unit: "USD/GB-month", Source: SourceEstimated}
	s.cache.SetWithTTL(key, result, 15*time.Minute)
	return result, nil
}

var staticLoadBalancerMonthly = map[string]float64{
	"default": 16.20,
}

// LoadBalancerMonthly returns a static estimated monthly ALB cost for
// region. The Pricing API's ALB schema varies by LCU dimension in a way
// that is not worth querying for an estimate.
func (s *Service) LoadBalancerMonthly(region string) Result {
	value, ok := staticLoadBalancerMonthly[region]
	if !ok {
		value = staticLoadBalancerMonthly["default"]
	}
	return Result{Value: value, Unit: "USD/month", Source: SourceEstimated}
}

var staticCDNPerGB = map[string]float64{
	"default": 0.085,
}

// CDNPerGB returns a static estimated per-GB CloudFront data transfer cost.
func (s *Service) CDNPerGB(region string) Result {
	value, ok := staticCDNPerGB[region]
	if !ok {
		value = staticCDNPerGB["default"]
	}
	return Result{Value: value, Unit: "USD/GB", Source: SourceEstimated}
}
