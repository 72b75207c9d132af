//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdkvpc_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkvpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStack() awscdk.Stack {
	return awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), nil)
}

func TestBuildVpc_Isolated(t *testing.T) {
	defer jsii.Close()

	stack := newStack()
	vpc := bwcdkvpc.BuildVpc(stack, bwcdkvpc.BuildVpcProps{
		DefaultVpcProps: bwcdkvpc.DefaultIsolatedVpcProps(),
		ConstructVpcProps: &awsec2.VpcProps{
			EnableDnsHostnames: jsii.Bool(true),
			EnableDnsSupport:   jsii.Bool(true),
		},
	}, "")

	assert.NotEmpty(t, *vpc.IsolatedSubnets())
	assert.Empty(t, *vpc.PublicSubnets())

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::EC2::VPC"), jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::EC2::NatGateway"), jsii.Number(0))
	template.ResourceCountIs(jsii.String("AWS::EC2::FlowLog"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::EC2::VPC"), map[string]any{
		"EnableDnsHostnames": true,
		"EnableDnsSupport":   true,
	})
	template.HasResource(jsii.String("AWS::Logs::LogGroup"), map[string]any{
		"Metadata": map[string]any{
			"cfn_nag": map[string]any{
				"rules_to_suppress": []any{assertions.Match_ObjectLike(&map[string]any{"id": "W84"})},
			},
		},
	})
}

func TestBuildVpc_PublicSubnetsSuppressW33(t *testing.T) {
	defer jsii.Close()

	stack := newStack()
	bwcdkvpc.BuildVpc(stack, bwcdkvpc.BuildVpcProps{
		DefaultVpcProps: bwcdkvpc.DefaultPublicPrivateVpcProps(),
	}, "Network")

	template := assertions.Template_FromStack(stack, nil)
	template.HasResource(jsii.String("AWS::EC2::Subnet"), map[string]any{
		"Properties": assertions.Match_ObjectLike(&map[string]any{"MapPublicIpOnLaunch": true}),
		"Metadata": map[string]any{
			"cfn_nag": map[string]any{
				"rules_to_suppress": []any{assertions.Match_ObjectLike(&map[string]any{"id": "W33"})},
			},
		},
	})
}

func TestBuildVpc_Existing(t *testing.T) {
	defer jsii.Close()

	stack := newStack()
	existing := awsec2.NewVpc(stack, jsii.String("Existing"), nil)
	vpc := bwcdkvpc.BuildVpc(stack, bwcdkvpc.BuildVpcProps{
		ExistingVpc:     existing,
		DefaultVpcProps: bwcdkvpc.DefaultIsolatedVpcProps(),
	}, "")
	assert.Equal(t, existing, vpc)
}

func TestAddAwsServiceEndpoint(t *testing.T) {
	defer jsii.Close()

	stack := newStack()
	vpc := bwcdkvpc.BuildVpc(stack, bwcdkvpc.BuildVpcProps{
		DefaultVpcProps: bwcdkvpc.DefaultIsolatedVpcProps(),
	}, "")

	require.NoError(t, bwcdkvpc.AddAwsServiceEndpoint(stack, vpc, bwcdkvpc.ServiceEndpointSNS))
	require.NoError(t, bwcdkvpc.AddAwsServiceEndpoint(stack, vpc, bwcdkvpc.ServiceEndpointSNS))
	require.NoError(t, bwcdkvpc.AddAwsServiceEndpoint(stack, vpc, bwcdkvpc.ServiceEndpointS3))
	assert.True(t, bwcdkvpc.EndpointExists(vpc, bwcdkvpc.ServiceEndpointSNS))
	assert.False(t, bwcdkvpc.EndpointExists(vpc, bwcdkvpc.ServiceEndpointSQS))

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::EC2::VPCEndpoint"), jsii.Number(2))
	template.HasResourceProperties(jsii.String("AWS::EC2::VPCEndpoint"), map[string]any{
		"VpcEndpointType":   "Interface",
		"PrivateDnsEnabled": true,
	})
	template.HasResourceProperties(jsii.String("AWS::EC2::VPCEndpoint"), map[string]any{
		"VpcEndpointType": "Gateway",
	})
	template.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroup"), map[string]any{
		"SecurityGroupIngress": []any{assertions.Match_ObjectLike(&map[string]any{
			"FromPort":   443,
			"ToPort":     443,
			"IpProtocol": "tcp",
		})},
	})
}

func TestAddAwsServiceEndpoint_Unsupported(t *testing.T) {
	defer jsii.Close()

	stack := newStack()
	vpc := awsec2.NewVpc(stack, jsii.String("Vpc"), nil)

	err := bwcdkvpc.AddAwsServiceEndpoint(stack, vpc, bwcdkvpc.ServiceEndpointType("NOPE"))
	require.ErrorIs(t, err, bwcdkvpc.ErrUnsupportedEndpoint)
}

func TestRetrievePrivateSubnetIDs(t *testing.T) {
	defer jsii.Close()

	stack := newStack()
	isolated := bwcdkvpc.BuildVpc(stack, bwcdkvpc.BuildVpcProps{
		DefaultVpcProps: bwcdkvpc.DefaultIsolatedVpcProps(),
	}, "Isolated")
	ids, err := bwcdkvpc.RetrievePrivateSubnetIDs(isolated)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	public := awsec2.NewVpc(stack, jsii.String("Public"), &awsec2.VpcProps{
		SubnetConfiguration: &[]*awsec2.SubnetConfiguration{{
			Name:       jsii.String("public"),
			SubnetType: awsec2.SubnetType_PUBLIC,
		}},
	})
	_, err = bwcdkvpc.RetrievePrivateSubnetIDs(public)
	require.EqualError(t, err, "Error - No isolated or private subnets available in VPC")
}

func TestCheckVpcProps(t *testing.T) {
	defer jsii.Close()

	stack := newStack()
	existing := awsec2.NewVpc(stack, jsii.String("Existing"), nil)

	for _, tt := range []struct {
		name  string
		props bwcdkvpc.VpcPropsSet
		err   string
	}{
		{name: "empty"},
		{name: "deploy with props", props: bwcdkvpc.VpcPropsSet{DeployVpc: jsii.Bool(true), VpcProps: &awsec2.VpcProps{}}},
		{
			name:  "existing and deploy",
			props: bwcdkvpc.VpcPropsSet{ExistingVpc: existing, DeployVpc: jsii.Bool(true)},
			err:   "Error - Either provide an existingVpc or some combination of deployVpc and vpcProps, but not both.\n",
		},
		{
			name:  "props without deploy",
			props: bwcdkvpc.VpcPropsSet{VpcProps: &awsec2.VpcProps{}},
			err:   "Error - If you provide vpcProps, deployVpc must be true.\n",
		},
		{
			name: "endpoints without dns",
			props: bwcdkvpc.VpcPropsSet{
				DeployVpc: jsii.Bool(true),
				VpcProps:  &awsec2.VpcProps{EnableDnsSupport: jsii.Bool(false)},
				EndPoints: []bwcdkvpc.ServiceEndpointType{bwcdkvpc.ServiceEndpointSQS},
			},
			err: "Error - VPC endpoints require vpcProps.enableDnsHostnames and vpcProps.enableDnsSupport to be true.\n",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := bwcdkvpc.CheckVpcProps(tt.props)
			if tt.err == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.err)
		})
	}
}

func TestObtainVpc(t *testing.T) {
	defer jsii.Close()

	t.Run("no vpc", func(t *testing.T) {
		vpc, err := bwcdkvpc.ObtainVpc(newStack(), bwcdkvpc.PatternVpcProps{
			Endpoints: []bwcdkvpc.ServiceEndpointType{bwcdkvpc.ServiceEndpointSQS},
		})
		require.NoError(t, err)
		assert.Nil(t, vpc)
	})

	t.Run("deployed vpc with endpoint", func(t *testing.T) {
		stack := newStack()
		vpc, err := bwcdkvpc.ObtainVpc(stack, bwcdkvpc.PatternVpcProps{
			DeployVpc: jsii.Bool(true),
			VpcProps:  &awsec2.VpcProps{IpAddresses: awsec2.IpAddresses_Cidr(jsii.String("172.168.0.0/16"))},
			Endpoints: []bwcdkvpc.ServiceEndpointType{bwcdkvpc.ServiceEndpointSQS},
		})
		require.NoError(t, err)
		require.NotNil(t, vpc)
		assert.True(t, bwcdkvpc.EndpointExists(vpc, bwcdkvpc.ServiceEndpointSQS))

		template := assertions.Template_FromStack(stack, nil)
		template.HasResourceProperties(jsii.String("AWS::EC2::VPC"), map[string]any{
			"CidrBlock":          "172.168.0.0/16",
			"EnableDnsHostnames": true,
			"EnableDnsSupport":   true,
		})
		template.ResourceCountIs(jsii.String("AWS::EC2::NatGateway"), jsii.Number(0))
	})

	t.Run("existing vpc", func(t *testing.T) {
		stack := newStack()
		existing := awsec2.NewVpc(stack, jsii.String("Existing"), nil)
		vpc, err := bwcdkvpc.ObtainVpc(stack, bwcdkvpc.PatternVpcProps{ExistingVpc: existing})
		require.NoError(t, err)
		assert.Equal(t, existing, vpc)
	})
}
