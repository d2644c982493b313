package resources

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
)

// LoadBalancer provisions an internet-facing ALB with a target group
// pointed at the deployed instance.
type LoadBalancer struct {
	clients *awsclient.Factory
	tagger  *Tagger
}

// NewLoadBalancer returns a LoadBalancer operations helper.
func NewLoadBalancer(clients *awsclient.Factory) *LoadBalancer {
	return &LoadBalancer{clients: clients, tagger: NewTagger(clients)}
}

// Provision creates an ALB, a target group for instanceID on targetPort, and
// a listener forwarding listenPort to it. Returns the load balancer ARN,
// target group ARN and DNS name.
func (l *LoadBalancer) Provision(ctx context.Context, region, stack, vpcID, instanceID string, subnetIDs []string, listenPort, targetPort int32) (lbARN, tgARN, dnsName string, err error) {
	client, err := l.clients.ELB(ctx, region)
	if err != nil {
		return "", "", "", err
	}

	lbOut, err := client.CreateLoadBalancer(ctx, &elasticloadbalancingv2.CreateLoadBalancerInput{
		Name:    aws.String(stack + "-alb"),
		Subnets: subnetIDs,
		Scheme:  elbtypes.LoadBalancerSchemeEnumInternetFacing,
		Type:    elbtypes.LoadBalancerTypeEnumApplication,
	})
	if err != nil {
		return "", "", "", fmt.Errorf("resources: create load balancer: %w", err)
	}
	if len(lbOut.LoadBalancers) == 0 {
		return "", "", "", fmt.Errorf("resources: create load balancer returned no load balancers")
	}
	lbARN = aws.ToString(lbOut.LoadBalancers[0].LoadBalancerArn)
	dnsName = aws.ToString(lbOut.LoadBalancers[0].DNSName)
	if tagErr := l.tagger.Apply(ctx, region, lbARN, stack); tagErr != nil {
		err = tagErr
	}

	tgOut, tgErr := client.CreateTargetGroup(ctx, &elasticloadbalancingv2.CreateTargetGroupInput{
		Name:       aws.String(stack + "-tg"),
		Port:       aws.Int32(targetPort),
		Protocol:   elbtypes.ProtocolEnumHttp,
		VpcId:      aws.String(vpcID),
		TargetType: elbtypes.TargetTypeEnumInstance,
	})
	if tgErr != nil {
		return lbARN, "", dnsName, fmt.Errorf("resources: create target group: %w", tgErr)
	}
	if len(tgOut.TargetGroups) == 0 {
		return lbARN, "", dnsName, fmt.Errorf("resources: create target group returned no groups")
	}
	tgARN = aws.ToString(tgOut.TargetGroups[0].TargetGroupArn)

	if _, regErr := client.RegisterTargets(ctx, &elasticloadbalancingv2.RegisterTargetsInput{
		TargetGroupArn: aws.String(tgARN),
		Targets:        []elbtypes.TargetDescription{{Id: aws.String(instanceID), Port: aws.Int32(targetPort)}},
	}); regErr != nil {
		return lbARN, tgARN, dnsName, fmt.Errorf("resources: register target %s: %w", instanceID, regErr)
	}

	if _, lsErr := client.CreateListener(ctx, &elasticloadbalancingv2.CreateListenerInput{
		LoadBalancerArn: aws.String(lbARN),
		Port:            aws.Int32(listenPort),
		Protocol:        elbtypes.ProtocolEnumHttp,
		DefaultActions: []elbtypes.Action{{
			Type:           elbtypes.ActionTypeEnumForward,
			TargetGroupArn: aws.String(tgARN),
		}},
	}); lsErr != nil {
		return lbARN, tgARN, dnsName, fmt.Errorf("resources: create listener on %s: %w", lbARN, lsErr)
	}

	return lbARN, tgARN, dnsName, err
}

// Teardown deletes a load balancer and its target group. Listeners are
// deleted automatically with the load balancer.
func (l *LoadBalancer) Teardown(ctx context.Context, region, lbARN, tgARN string) error {
	client, err := l.clients.ELB(ctx, region)
	if err != nil {
		return err
	}
	if lbARN != "" {
		if _, err := client.DeleteLoadBalancer(ctx, &elasticloadbalancingv2.DeleteLoadBalancerInput{
			LoadBalancerArn: aws.String(lbARN),
		}); err != nil {
			return fmt.Errorf("resources: delete load balancer %s: %w", lbARN, err)
		}
	}
	if tgARN != "" {
		if _, err := client.DeleteTargetGroup(ctx, &elasticloadbalancingv2.DeleteTargetGroupInput{
			TargetGroupArn: aws.String(tgARN),
		}); err != nil {
			return fmt.Errorf("resources: delete target group %s: %w", tgARN, err)
		}
	}
	return nil
}

// Describe returns the current state of a load balancer.
func (l *LoadBalancer) Describe(ctx context.Context, region, lbARN string) (state string, err error) {
	client, err := l.clients.ELB(ctx, region)
	if err != nil {
		return "", err
	}
	out, err := client.DescribeLoadBalancers(ctx, &elasticloadbalancingv2.DescribeLoadBalancersInput{
		LoadBalancerArns: []string{lbARN},
	})
	if err != nil {
		return "", fmt.Errorf("resources: describe load balancer %s: %w", lbARN, err)
	}
	if len(out.LoadBalancers) == 0 {
		return "", fmt.Errorf("resources: load balancer %s not found", lbARN)
	}
	return string(out.LoadBalancers[0].State.Code), nil
}
