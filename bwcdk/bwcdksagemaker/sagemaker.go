// Package bwcdksagemaker builds SageMaker inference endpoints: the model, an
// encrypted endpoint configuration and the endpoint.
package bwcdksagemaker

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssagemaker"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkkms"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkvpc"
	"github.com/cockroachdb/errors"
)

// DefaultModelProps returns model props running primaryContainer with executionRoleArn.
func DefaultModelProps(
	executionRoleArn *string, primaryContainer any, vpcConfig *awssagemaker.CfnModel_VpcConfigProperty,
) *awssagemaker.CfnModelProps {
	props := &awssagemaker.CfnModelProps{
		ExecutionRoleArn: executionRoleArn,
		PrimaryContainer: primaryContainer,
	}
	if vpcConfig != nil {
		props.VpcConfig = vpcConfig
	}
	return props
}

// DefaultEndpointConfigProps returns a single variant config for modelName whose
// storage is encrypted with kmsKeyID.
func DefaultEndpointConfigProps(modelName, kmsKeyID *string) *awssagemaker.CfnEndpointConfigProps {
	return &awssagemaker.CfnEndpointConfigProps{
		ProductionVariants: []any{
			&awssagemaker.CfnEndpointConfig_ProductionVariantProperty{
				ModelName:            modelName,
				InitialInstanceCount: jsii.Number(1),
				InitialVariantWeight: jsii.Number(1),
				InstanceType:         jsii.String("ml.m4.xlarge"),
				VariantName:          jsii.String("AllTraffic"),
			},
		},
		KmsKeyId: kmsKeyID,
	}
}

// BuildSagemakerEndpointProps configures BuildSagemakerEndpoint.
type BuildSagemakerEndpointProps struct {
	// ExistingSagemakerEndpointObj is returned as-is when set.
	ExistingSagemakerEndpointObj awssagemaker.CfnEndpoint
	// ModelProps must carry a PrimaryContainer without ExistingSagemakerEndpointObj.
	ModelProps          *awssagemaker.CfnModelProps
	EndpointConfigProps *awssagemaker.CfnEndpointConfigProps
	EndpointProps       *awssagemaker.CfnEndpointProps
	// Vpc places the model in the private or isolated subnets of the VPC.
	Vpc awsec2.IVpc
}

// BuildSagemakerEndpointResponse holds the created resources. EndpointConfig and
// Model are nil when an existing endpoint was passed.
type BuildSagemakerEndpointResponse struct {
	Endpoint       awssagemaker.CfnEndpoint
	EndpointConfig awssagemaker.CfnEndpointConfig
	Model          awssagemaker.CfnModel
	Role           awsiam.Role
}

// BuildSagemakerEndpoint returns the existing endpoint, or deploys a model, its
// endpoint configuration and an endpoint.
func BuildSagemakerEndpoint(scope constructs.Construct, props BuildSagemakerEndpointProps) BuildSagemakerEndpointResponse {
	if props.ExistingSagemakerEndpointObj != nil {
		return BuildSagemakerEndpointResponse{Endpoint: props.ExistingSagemakerEndpointObj}
	}
	if props.ModelProps == nil {
		panic(errors.New("Either existingSagemakerEndpointObj or at least modelProps is required"))
	}

	role := awsiam.NewRole(scope, jsii.String("SagemakerRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("sagemaker.amazonaws.com"), nil),
	})

	model := BuildSagemakerModel(scope, props.ModelProps, role, props.Vpc)

	config := BuildSagemakerEndpointConfig(scope, model.AttrModelName(), props.EndpointConfigProps)
	config.AddDependency(model)

	endpoint := awssagemaker.NewCfnEndpoint(scope, jsii.String("SagemakerEndpoint"),
		bwcdkutil.ConsolidateProps(scope, &awssagemaker.CfnEndpointProps{
			EndpointConfigName: config.AttrEndpointConfigName(),
		}, props.EndpointProps, nil))
	endpoint.AddDependency(config)

	return BuildSagemakerEndpointResponse{Endpoint: endpoint, EndpointConfig: config, Model: model, Role: role}
}

// BuildSagemakerModel creates the model and gives role the permissions the model needs.
func BuildSagemakerModel(
	scope constructs.Construct, props *awssagemaker.CfnModelProps, role awsiam.Role, vpc awsec2.IVpc,
) awssagemaker.CfnModel {
	if props == nil || props.PrimaryContainer == nil {
		panic(errors.New("You need to provide at least primaryContainer to create SageMaker Model"))
	}

	var vpcConfig *awssagemaker.CfnModel_VpcConfigProperty
	if vpc != nil {
		subnetIDs, err := bwcdkvpc.RetrievePrivateSubnetIDs(vpc)
		if err != nil {
			panic(errors.New("SageMaker model must be deployed in private or isolated subnets"))
		}
		sg := bwcdkvpc.BuildSecurityGroup(scope, "ReplaceModelDefault", &awsec2.SecurityGroupProps{
			Vpc:              vpc,
			AllowAllOutbound: jsii.Bool(true),
		}, []bwcdkvpc.SecurityGroupRule{{
			Peer:       awsec2.Peer_Ipv4(vpc.VpcCidrBlock()),
			Connection: awsec2.Port_Tcp(jsii.Number(443)),
		}}, nil)
		vpcConfig = &awssagemaker.CfnModel_VpcConfigProperty{
			Subnets:          &subnetIDs,
			SecurityGroupIds: &[]*string{sg.SecurityGroupId()},
		}
	}

	addExecutionRolePermissions(role, vpc != nil)

	return awssagemaker.NewCfnModel(scope, jsii.String("SagemakerModel"),
		bwcdkutil.ConsolidateProps(scope, DefaultModelProps(role.RoleArn(), props.PrimaryContainer, vpcConfig), props, nil))
}

// BuildSagemakerEndpointConfig creates an endpoint configuration for modelName. A key
// is created when props do not name one.
func BuildSagemakerEndpointConfig(
	scope constructs.Construct, modelName *string, props *awssagemaker.CfnEndpointConfigProps,
) awssagemaker.CfnEndpointConfig {
	var kmsKeyID *string
	if props != nil && props.KmsKeyId != nil {
		kmsKeyID = props.KmsKeyId
	} else {
		kmsKeyID = bwcdkkms.BuildEncryptionKey(scope, "", nil).KeyId()
	}

	return awssagemaker.NewCfnEndpointConfig(scope, jsii.String("SagemakerEndpointConfig"),
		bwcdkutil.ConsolidateProps(scope, DefaultEndpointConfigProps(modelName, kmsKeyID), props, nil))
}

func addExecutionRolePermissions(role awsiam.Role, inVpc bool) {
	partition, region, account := *awscdk.Aws_PARTITION(), *awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID()

	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: jsii.Strings(
			"sagemaker:CreateModel",
			"sagemaker:DescribeModel",
			"sagemaker:DeleteModel",
			"sagemaker:CreateEndpointConfig",
			"sagemaker:DescribeEndpointConfig",
			"sagemaker:DeleteEndpointConfig",
			"sagemaker:CreateEndpoint",
			"sagemaker:DescribeEndpoint",
			"sagemaker:DeleteEndpoint",
			"sagemaker:UpdateEndpoint",
			"sagemaker:InvokeEndpoint",
		),
		Resources: &[]*string{jsii.Sprintf("arn:%s:sagemaker:%s:%s:*", partition, region, account)},
	}))

	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions:   jsii.Strings("ecr:GetAuthorizationToken"),
		Resources: jsii.Strings("*"),
	}))
	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: jsii.Strings(
			"ecr:BatchCheckLayerAvailability",
			"ecr:GetDownloadUrlForLayer",
			"ecr:BatchGetImage",
		),
		Resources: &[]*string{jsii.Sprintf("arn:%s:ecr:%s:*:repository/*", partition, region)},
	}))

	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: jsii.Strings(
			"cloudwatch:PutMetricData",
			"logs:CreateLogGroup",
			"logs:CreateLogStream",
			"logs:DescribeLogStreams",
			"logs:PutLogEvents",
		),
		Resources: &[]*string{jsii.Sprintf("arn:%s:logs:%s:%s:log-group:/aws/sagemaker/*", partition, region, account)},
	}))

	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions:   jsii.Strings("s3:GetObject", "s3:ListBucket"),
		Resources: &[]*string{jsii.Sprintf("arn:%s:s3:::*", partition)},
	}))

	if inVpc {
		role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Actions: jsii.Strings(
				"ec2:CreateNetworkInterface",
				"ec2:CreateNetworkInterfacePermission",
				"ec2:DeleteNetworkInterface",
				"ec2:DeleteNetworkInterfacePermission",
				"ec2:DescribeNetworkInterfaces",
				"ec2:AssignPrivateIpAddresses",
				"ec2:UnassignPrivateIpAddresses",
				"ec2:DescribeVpcs",
				"ec2:DescribeDhcpOptions",
				"ec2:DescribeSubnets",
				"ec2:DescribeSecurityGroups",
			),
			Resources: jsii.Strings("*"),
		}))
	}

	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions:   jsii.Strings("iam:PassRole"),
		Resources: &[]*string{role.RoleArn()},
		Conditions: &map[string]any{
			"StringLike": map[string]any{"iam:PassedToService": "sagemaker.amazonaws.com"},
		},
	}))

	if policy := role.Node().TryFindChild(jsii.String("DefaultPolicy")); policy != nil {
		bwcdkutil.AddCfnSuppressRules(policy, bwcdkutil.CfnNagSuppressRule{
			ID: "W12",
			Reason: "ecr:GetAuthorizationToken and the ENI actions SageMaker uses in a VPC do not support " +
				"resource-level permissions",
		})
	}
}

// SagemakerProps are the props CheckSagemakerProps validates.
type SagemakerProps struct {
	ExistingSagemakerEndpointObj awssagemaker.CfnEndpoint
	ModelProps                   *awssagemaker.CfnModelProps
	EndpointConfigProps          *awssagemaker.CfnEndpointConfigProps
	EndpointProps                *awssagemaker.CfnEndpointProps
	VpcProps                     *awsec2.VpcProps
	DeployVpc                    *bool
	DeployNatGateway             *bool
}

// CheckSagemakerProps validates endpoint related props.
func CheckSagemakerProps(props SagemakerProps) error {
	var c bwcdkutil.Checker

	c.Exclusive(props.ExistingSagemakerEndpointObj, props.EndpointProps,
		"Either provide endpointProps or existingSagemakerEndpointObj, but not both.")
	if props.ExistingSagemakerEndpointObj != nil && (props.ModelProps != nil || props.EndpointConfigProps != nil) {
		c.Fail("Cannot provide modelProps or endpointConfigProps with existingSagemakerEndpointObj")
	}
	if props.ExistingSagemakerEndpointObj == nil && props.ModelProps == nil {
		c.Fail("Either existingSagemakerEndpointObj or at least modelProps is required")
	}
	deployVpc := props.DeployVpc != nil && *props.DeployVpc
	if props.DeployNatGateway != nil && *props.DeployNatGateway && !deployVpc {
		c.Fail("deployNatGateway requires deployVpc to be true")
	}

	return c.Err()
}
