// Package bwcdklambda builds Lambda functions with a least privilege service role and
// X-Ray tracing, and Go functions that run behind the AWS Lambda Web Adapter.
package bwcdklambda

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkvpc"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// DefaultFunctionID is the construct id used when no function id is given.
const DefaultFunctionID = "LambdaFunction"

// DefaultLambdaFunctionProps returns the props every function starts from.
func DefaultLambdaFunctionProps(role awsiam.IRole) *awslambda.FunctionProps {
	return &awslambda.FunctionProps{
		Role:    role,
		Tracing: awslambda.Tracing_ACTIVE,
	}
}

// BuildLambdaFunctionProps configures BuildLambdaFunction.
type BuildLambdaFunctionProps struct {
	// ExistingLambdaObj is returned as-is when set.
	ExistingLambdaObj awslambda.Function
	// LambdaFunctionProps are merged over the defaults. Required without ExistingLambdaObj.
	LambdaFunctionProps *awslambda.FunctionProps
	// Vpc places a new function in the VPC. An existing function must already be in a VPC.
	Vpc awsec2.IVpc
}

// BuildLambdaFunction returns the existing function or deploys a new one with id
// (DefaultFunctionID when empty). It panics on invalid combinations of props.
func BuildLambdaFunction(scope constructs.Construct, props BuildLambdaFunctionProps, id string) awslambda.Function {
	if props.ExistingLambdaObj == nil {
		if props.LambdaFunctionProps == nil {
			panic(errors.New("Either existingLambdaObj or lambdaFunctionProps is required"))
		}
		return DeployLambdaFunction(scope, props.LambdaFunctionProps, id, props.Vpc)
	}

	if props.Vpc != nil {
		l1, ok := props.ExistingLambdaObj.Node().DefaultChild().(awslambda.CfnFunction)
		if !ok || l1.VpcConfig() == nil {
			panic(errors.New("A Lambda function must be bound to a VPC upon creation, " +
				"it cannot be added to a VPC in a subsequent construct"))
		}
	}
	return props.ExistingLambdaObj
}

// DeployLambdaFunction creates a function whose service role may only write its own
// logs. When vpc is given the function gets ENI permissions and a security group.
func DeployLambdaFunction(
	scope constructs.Construct, props *awslambda.FunctionProps, id string, vpc awsec2.IVpc,
) awslambda.Function {
	if id == "" {
		id = DefaultFunctionID
	}
	if props.Vpc != nil && vpc != nil {
		panic(errors.New("Cannot provide a VPC in both the lambdaFunctionProps and the function argument"))
	}

	role := awsiam.NewRole(scope, jsii.String(id+"ServiceRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("lambda.amazonaws.com"), nil),
		InlinePolicies: &map[string]awsiam.PolicyDocument{
			"LambdaFunctionServiceRolePolicy": awsiam.NewPolicyDocument(&awsiam.PolicyDocumentProps{
				Statements: &[]awsiam.PolicyStatement{
					awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
						Actions: jsii.Strings("logs:CreateLogGroup", "logs:CreateLogStream", "logs:PutLogEvents"),
						Resources: jsii.Strings("arn:" + *awscdk.Aws_PARTITION() + ":logs:" + *awscdk.Aws_REGION() +
							":" + *awscdk.Aws_ACCOUNT_ID() + ":log-group:/aws/lambda/*"),
					}),
				},
			}),
		},
	})

	if vpc != nil || props.Vpc != nil {
		role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Actions: jsii.Strings(
				"ec2:CreateNetworkInterface",
				"ec2:DescribeNetworkInterfaces",
				"ec2:DeleteNetworkInterface",
				"ec2:AssignPrivateIpAddresses",
				"ec2:UnassignPrivateIpAddresses",
			),
			Resources: jsii.Strings("*"),
		}))
	}

	var construct *awslambda.FunctionProps
	if vpc != nil {
		sg := bwcdkvpc.BuildSecurityGroup(scope, "ReplaceDefaultSecurityGroup", &awsec2.SecurityGroupProps{
			Vpc:              vpc,
			AllowAllOutbound: jsii.Bool(true),
		}, nil, nil)
		construct = &awslambda.FunctionProps{
			Vpc:            vpc,
			SecurityGroups: &[]awsec2.ISecurityGroup{sg},
		}
	}

	fn := awslambda.NewFunction(scope, jsii.String(id),
		bwcdkutil.ConsolidateProps(scope, DefaultLambdaFunctionProps(role), props, construct))

	if props.Runtime != nil && props.Runtime.Family() == awslambda.RuntimeFamily_NODEJS {
		fn.AddEnvironment(jsii.String("AWS_NODEJS_CONNECTION_REUSE_ENABLED"), jsii.String("1"),
			&awslambda.EnvironmentOptions{RemoveInEdge: jsii.Bool(true)})
	}

	bwcdkutil.AddCfnSuppressRules(fn,
		bwcdkutil.CfnNagSuppressRule{
			ID: "W58",
			Reason: "Lambda functions has the required permission to write CloudWatch Logs. " +
				"It uses custom policy instead of arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole " +
				"with tighter permissions.",
		},
		bwcdkutil.CfnNagSuppressRule{
			ID:     "W89",
			Reason: "This is not a rule for the general case, just for specific use cases/industries",
		},
		bwcdkutil.CfnNagSuppressRule{
			ID:     "W92",
			Reason: "Impossible for us to define the correct concurrency for clients",
		},
	)

	if l1, ok := fn.Node().DefaultChild().(awslambda.CfnFunction); ok && l1.TracingConfig() != nil {
		if policy := fn.Role().Node().TryFindChild(jsii.String("DefaultPolicy")); policy != nil {
			bwcdkutil.AddCfnSuppressRules(policy, bwcdkutil.CfnNagSuppressRule{
				ID: "W12",
				Reason: "Lambda needs the following minimum required permissions to send trace data " +
					"to X-Ray and access ENIs in a VPC.",
			})
		}
	}

	return fn
}

// VpcSecurityGroupIDs returns the ids of the security groups attached to fn.
func VpcSecurityGroupIDs(fn awslambda.IFunction) []*string {
	return lo.Map(*fn.Connections().SecurityGroups(), func(sg awsec2.ISecurityGroup, _ int) *string {
		return sg.SecurityGroupId()
	})
}

// LambdaProps are the props CheckLambdaProps validates.
type LambdaProps struct {
	ExistingLambdaObj   awslambda.Function
	LambdaFunctionProps *awslambda.FunctionProps
}

// CheckLambdaProps validates function related props of constructs that manage the VPC themselves.
func CheckLambdaProps(props LambdaProps) error {
	var c bwcdkutil.Checker

	c.Exclusive(props.ExistingLambdaObj, props.LambdaFunctionProps,
		"Either provide lambdaFunctionProps or existingLambdaObj, but not both.")
	if props.LambdaFunctionProps != nil && props.LambdaFunctionProps.Vpc != nil {
		c.Fail("Define VPC using construct parameters not Lambda function props")
	}

	return c.Err()
}
