// Package bwsclambdasagemakerendpoint lets a Lambda function invoke a SageMaker
// inference endpoint.
package bwsclambdasagemakerendpoint

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssagemaker"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdklambda"
	"github.com/basewarphq/bwsc/bwcdk/bwcdksagemaker"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkvpc"
)

// DefaultEndpointEnvironmentVariableName holds the endpoint name in the function environment.
const DefaultEndpointEnvironmentVariableName = "SAGEMAKER_ENDPOINT_NAME"

// Props configures the LambdaToSagemakerEndpoint construct.
type Props struct {
	ExistingLambdaObj   awslambda.Function
	LambdaFunctionProps *awslambda.FunctionProps

	ExistingSagemakerEndpointObj awssagemaker.CfnEndpoint
	ModelProps                   *awssagemaker.CfnModelProps
	EndpointConfigProps          *awssagemaker.CfnEndpointConfigProps
	EndpointProps                *awssagemaker.CfnEndpointProps
	// EndpointEnvironmentVariableName defaults to DefaultEndpointEnvironmentVariableName.
	EndpointEnvironmentVariableName *string

	ExistingVpc awsec2.IVpc
	DeployVpc   *bool
	VpcProps    *awsec2.VpcProps
	// DeployNatGateway gives a new VPC private subnets behind a NAT gateway instead
	// of isolated subnets.
	DeployNatGateway *bool
}

// LambdaToSagemakerEndpoint exposes the resources of the pattern.
type LambdaToSagemakerEndpoint interface {
	LambdaFunction() awslambda.Function
	SagemakerEndpoint() awssagemaker.CfnEndpoint
	// SagemakerEndpointConfig, SagemakerModel and SagemakerRole are nil for an
	// existing endpoint.
	SagemakerEndpointConfig() awssagemaker.CfnEndpointConfig
	SagemakerModel() awssagemaker.CfnModel
	SagemakerRole() awsiam.Role
	Vpc() awsec2.IVpc
}

type lambdaToSagemakerEndpoint struct {
	fn       awslambda.Function
	endpoint bwcdksagemaker.BuildSagemakerEndpointResponse
	vpc      awsec2.IVpc
}

// New creates the function and the endpoint and allows the function to invoke it.
// In a VPC the function reaches SageMaker through a runtime endpoint. It panics when
// props are invalid.
func New(scope constructs.Construct, id string, props Props) LambdaToSagemakerEndpoint {
	bwcdkutil.MustCheck(CheckLambdaToSagemakerEndpointProps(props))

	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &lambdaToSagemakerEndpoint{}

	var defaultVpcProps *awsec2.VpcProps
	if props.DeployNatGateway != nil && *props.DeployNatGateway {
		defaultVpcProps = bwcdkvpc.DefaultPrivateVpcProps()
	}

	var err error
	con.vpc, err = bwcdkvpc.ObtainVpc(scope, bwcdkvpc.PatternVpcProps{
		ExistingVpc:     props.ExistingVpc,
		DeployVpc:       props.DeployVpc,
		VpcProps:        props.VpcProps,
		DefaultVpcProps: defaultVpcProps,
		Endpoints:       []bwcdkvpc.ServiceEndpointType{bwcdkvpc.ServiceEndpointSagemakerRuntime},
	})
	if err != nil {
		panic(err)
	}

	con.endpoint = bwcdksagemaker.BuildSagemakerEndpoint(scope, bwcdksagemaker.BuildSagemakerEndpointProps{
		ExistingSagemakerEndpointObj: props.ExistingSagemakerEndpointObj,
		ModelProps:                   props.ModelProps,
		EndpointConfigProps:          props.EndpointConfigProps,
		EndpointProps:                props.EndpointProps,
		Vpc:                          con.vpc,
	})

	con.fn = bwcdklambda.BuildLambdaFunction(scope, bwcdklambda.BuildLambdaFunctionProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
		Vpc:                 con.vpc,
	}, "")

	envName := DefaultEndpointEnvironmentVariableName
	if props.EndpointEnvironmentVariableName != nil {
		envName = *props.EndpointEnvironmentVariableName
	}
	con.fn.AddEnvironment(jsii.String(envName), con.endpoint.Endpoint.AttrEndpointName(), nil)

	con.fn.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: jsii.Strings("sagemaker:InvokeEndpoint"),
		Resources: jsii.Strings(*jsii.Sprintf("arn:%s:sagemaker:%s:%s:endpoint/%s",
			*awscdk.Aws_PARTITION(), *awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID(),
			*con.endpoint.Endpoint.AttrEndpointName())),
	}))

	return con
}

func (c *lambdaToSagemakerEndpoint) LambdaFunction() awslambda.Function { return c.fn }
func (c *lambdaToSagemakerEndpoint) SagemakerEndpoint() awssagemaker.CfnEndpoint { return c.endpoint.Endpoint }
func (c *lambdaToSagemakerEndpoint) SagemakerModel() awssagemaker.CfnModel { return c.endpoint.Model }
func (c *lambdaToSagemakerEndpoint) SagemakerRole() awsiam.Role { return c.endpoint.Role }
func (c *lambdaToSagemakerEndpoint) Vpc() awsec2.IVpc { return c.vpc }

func (c *lambdaToSagemakerEndpoint) SagemakerEndpointConfig() awssagemaker.CfnEndpointConfig {
	return c.endpoint.EndpointConfig
}

// CheckLambdaToSagemakerEndpointProps validates the props of the construct.
func CheckLambdaToSagemakerEndpointProps(props Props) error {
	var c bwcdkutil.Checker
	c.Add(bwcdklambda.CheckLambdaProps(bwcdklambda.LambdaProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
	}))
	c.Add(bwcdkvpc.CheckVpcProps(bwcdkvpc.VpcPropsSet{
		ExistingVpc: props.ExistingVpc,
		VpcProps:    props.VpcProps,
		DeployVpc:   props.DeployVpc,
		EndPoints:   []bwcdkvpc.ServiceEndpointType{bwcdkvpc.ServiceEndpointSagemakerRuntime},
	}))
	c.Add(bwcdksagemaker.CheckSagemakerProps(bwcdksagemaker.SagemakerProps{
		ExistingSagemakerEndpointObj: props.ExistingSagemakerEndpointObj,
		ModelProps:                   props.ModelProps,
		EndpointConfigProps:          props.EndpointConfigProps,
		EndpointProps:                props.EndpointProps,
		VpcProps:                     props.VpcProps,
		DeployVpc:                    props.DeployVpc,
		DeployNatGateway:             props.DeployNatGateway,
	}))
	return c.Err()
}
