package bwscfactories

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkvpc"
	"github.com/cockroachdb/errors"
)

// VpcType selects the subnet layout of the factory VPC.
type VpcType int

const (
	// VpcTypeIsolated has isolated subnets only.
	VpcTypeIsolated VpcType = iota
	// VpcTypePrivate has private subnets with egress through a NAT gateway.
	VpcTypePrivate
	// VpcTypePublic has public and private subnets.
	VpcTypePublic
)

// VpcFactoryProps configures VpcFactory.
type VpcFactoryProps struct {
	// VpcProps are merged over the defaults of the VpcType.
	VpcProps *awsec2.VpcProps
	// VpcType defaults to VpcTypeIsolated.
	VpcType VpcType
	// EndPoints are added to the VPC. DNS support is enabled when any are given.
	EndPoints []bwcdkvpc.ServiceEndpointType
}

// VpcFactoryResponse holds the new VPC.
type VpcFactoryResponse struct {
	Vpc awsec2.IVpc
}

// VpcFactory creates a VPC with a flow log and the requested service endpoints.
// It panics on an unknown VpcType or endpoint.
func VpcFactory(scope constructs.Construct, id string, props VpcFactoryProps) VpcFactoryResponse {
	defaults, err := defaultVpcProps(props.VpcType)
	if err != nil {
		panic(err)
	}

	var construct *awsec2.VpcProps
	if len(props.EndPoints) > 0 {
		construct = &awsec2.VpcProps{
			EnableDnsHostnames: jsii.Bool(true),
			EnableDnsSupport:   jsii.Bool(true),
		}
	}

	vpc := bwcdkvpc.BuildVpc(scope, bwcdkvpc.BuildVpcProps{
		DefaultVpcProps:   defaults,
		UserVpcProps:      props.VpcProps,
		ConstructVpcProps: construct,
	}, id)

	for _, endpoint := range props.EndPoints {
		if err := bwcdkvpc.AddAwsServiceEndpoint(scope, vpc, endpoint); err != nil {
			panic(err)
		}
	}

	return VpcFactoryResponse{Vpc: vpc}
}

func defaultVpcProps(typ VpcType) (*awsec2.VpcProps, error) {
	switch typ {
	case VpcTypeIsolated:
		return bwcdkvpc.DefaultIsolatedVpcProps(), nil
	case VpcTypePrivate:
		return bwcdkvpc.DefaultPrivateVpcProps(), nil
	case VpcTypePublic:
		return bwcdkvpc.DefaultPublicPrivateVpcProps(), nil
	default:
		return nil, errors.Newf("invalid VPC type %d", typ)
	}
}
