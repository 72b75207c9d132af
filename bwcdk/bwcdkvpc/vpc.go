// Package bwcdkvpc builds VPCs with flow logs and adds AWS service endpoints to them.
package bwcdkvpc

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/cockroachdb/errors"
)

// DefaultVpcID is the construct id used when BuildVpc receives an empty id.
const DefaultVpcID = "Vpc"

// DefaultIsolatedVpcProps returns a VPC with isolated subnets only and no NAT gateways.
func DefaultIsolatedVpcProps() *awsec2.VpcProps {
	return &awsec2.VpcProps{
		NatGateways: jsii.Number(0),
		SubnetConfiguration: &[]*awsec2.SubnetConfiguration{{
			Name:       jsii.String("isolated"),
			CidrMask:   jsii.Number(18),
			SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED,
		}},
	}
}

// DefaultPrivateVpcProps returns a VPC with private subnets that reach the internet
// through a single NAT gateway.
func DefaultPrivateVpcProps() *awsec2.VpcProps {
	return &awsec2.VpcProps{
		NatGateways: jsii.Number(1),
		SubnetConfiguration: &[]*awsec2.SubnetConfiguration{{
			Name:       jsii.String("public"),
			CidrMask:   jsii.Number(24),
			SubnetType: awsec2.SubnetType_PUBLIC,
		}, {
			Name:       jsii.String("private"),
			CidrMask:   jsii.Number(18),
			SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
		}},
	}
}

// DefaultPublicPrivateVpcProps returns a VPC with public and private subnets in each
// availability zone and a NAT gateway per zone.
func DefaultPublicPrivateVpcProps() *awsec2.VpcProps {
	return &awsec2.VpcProps{
		SubnetConfiguration: &[]*awsec2.SubnetConfiguration{{
			Name:       jsii.String("public"),
			CidrMask:   jsii.Number(18),
			SubnetType: awsec2.SubnetType_PUBLIC,
		}, {
			Name:       jsii.String("private"),
			CidrMask:   jsii.Number(18),
			SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
		}},
	}
}

// BuildVpcProps configures BuildVpc.
type BuildVpcProps struct {
	// ExistingVpc is returned as-is when set.
	ExistingVpc awsec2.IVpc
	// DefaultVpcProps is usually one of the Default*VpcProps functions.
	DefaultVpcProps *awsec2.VpcProps
	// UserVpcProps are merged over the defaults.
	UserVpcProps *awsec2.VpcProps
	// ConstructVpcProps are the settings the calling construct depends on, they win.
	ConstructVpcProps *awsec2.VpcProps
}

// BuildVpc creates a VPC with a flow log to CloudWatch Logs, or returns the existing one.
func BuildVpc(scope constructs.Construct, props BuildVpcProps, id string) awsec2.IVpc {
	if props.ExistingVpc != nil {
		return props.ExistingVpc
	}
	if id == "" {
		id = DefaultVpcID
	}

	vpc := awsec2.NewVpc(scope, jsii.String(id),
		bwcdkutil.ConsolidateProps(scope, props.DefaultVpcProps, props.UserVpcProps, props.ConstructVpcProps))

	flowLog := vpc.AddFlowLog(jsii.String("FlowLog"), nil)

	for _, subnet := range *vpc.PublicSubnets() {
		bwcdkutil.AddCfnSuppressRules(subnet, bwcdkutil.CfnNagSuppressRule{
			ID:     "W33",
			Reason: "Allow Public Subnets to have MapPublicIpOnLaunch set to true",
		})
	}
	bwcdkutil.AddCfnSuppressRules(flowLog.LogGroup(), bwcdkutil.CfnNagSuppressRule{
		ID: "W84",
		Reason: "By default CloudWatchLogs LogGroups data is encrypted using the CloudWatch " +
			"server-side encryption keys (AWS Managed Keys)",
	})

	return vpc
}

// RetrievePrivateSubnetIDs returns one isolated subnet per availability zone, or one
// private subnet per zone when the VPC has no isolated subnets.
func RetrievePrivateSubnetIDs(vpc awsec2.IVpc) ([]*string, error) {
	var subnetType awsec2.SubnetType
	switch {
	case len(*vpc.IsolatedSubnets()) > 0:
		subnetType = awsec2.SubnetType_PRIVATE_ISOLATED
	case len(*vpc.PrivateSubnets()) > 0:
		subnetType = awsec2.SubnetType_PRIVATE_WITH_EGRESS
	default:
		return nil, errors.New("Error - No isolated or private subnets available in VPC")
	}

	selected := vpc.SelectSubnets(&awsec2.SubnetSelection{
		OnePerAz:   jsii.Bool(true),
		SubnetType: subnetType,
	})
	return *selected.SubnetIds, nil
}

// VpcPropsSet are the VPC related props CheckVpcProps validates.
type VpcPropsSet struct {
	ExistingVpc awsec2.IVpc
	VpcProps    *awsec2.VpcProps
	DeployVpc   *bool
	EndPoints   []ServiceEndpointType
}

// CheckVpcProps validates VPC related props.
func CheckVpcProps(props VpcPropsSet) error {
	var c bwcdkutil.Checker

	deployVpc := props.DeployVpc != nil && *props.DeployVpc
	if (deployVpc || props.VpcProps != nil) && bwcdkutil.IsSet(props.ExistingVpc) {
		c.Fail("Either provide an existingVpc or some combination of deployVpc and vpcProps, but not both.")
	}
	if props.VpcProps != nil && !deployVpc && !bwcdkutil.IsSet(props.ExistingVpc) {
		c.Fail("If you provide vpcProps, deployVpc must be true.")
	}
	if len(props.EndPoints) > 0 && props.VpcProps != nil && (isFalse(props.VpcProps.EnableDnsHostnames) || isFalse(props.VpcProps.EnableDnsSupport)) {
		c.Fail("VPC endpoints require vpcProps.enableDnsHostnames and vpcProps.enableDnsSupport to be true.")
	}

	return c.Err()
}

func isFalse(b *bool) bool { return b != nil && !*b }

// PatternVpcProps are the VPC props of patterns that optionally place their
// resources in a VPC.
type PatternVpcProps struct {
	ExistingVpc awsec2.IVpc
	DeployVpc   *bool
	VpcProps    *awsec2.VpcProps
	// DefaultVpcProps of a new VPC default to DefaultIsolatedVpcProps.
	DefaultVpcProps *awsec2.VpcProps
	// Endpoints are added to the VPC, new or existing.
	Endpoints []ServiceEndpointType
}

// ObtainVpc returns the existing VPC, a new VPC (isolated by default) with DNS enabled when
// DeployVpc is set, or nil when the pattern runs outside a VPC.
func ObtainVpc(scope constructs.Construct, props PatternVpcProps) (awsec2.IVpc, error) {
	var vpc awsec2.IVpc
	switch {
	case props.ExistingVpc != nil:
		vpc = props.ExistingVpc
	case props.DeployVpc != nil && *props.DeployVpc:
		defaults := props.DefaultVpcProps
		if defaults == nil {
			defaults = DefaultIsolatedVpcProps()
		}
		vpc = BuildVpc(scope, BuildVpcProps{
			DefaultVpcProps: defaults,
			UserVpcProps:    props.VpcProps,
			ConstructVpcProps: &awsec2.VpcProps{
				EnableDnsHostnames: jsii.Bool(true),
				EnableDnsSupport:   jsii.Bool(true),
			},
		}, "")
	default:
		return nil, nil
	}

	for _, typ := range props.Endpoints {
		if err := AddAwsServiceEndpoint(scope, vpc, typ); err != nil {
			return nil, err
		}
	}
	return vpc, nil
}
