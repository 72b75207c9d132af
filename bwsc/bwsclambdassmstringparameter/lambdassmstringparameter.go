// Package bwsclambdassmstringparameter gives a Lambda function access to an SSM
// string parameter.
package bwsclambdassmstringparameter

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsssm"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdklambda"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkparams"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkvpc"
)

// DefaultParameterEnvironmentVariableName holds the parameter name in the function environment.
const DefaultParameterEnvironmentVariableName = "SSM_STRING_PARAMETER_NAME"

// Parameter permissions that can be granted to the function.
const (
	PermissionRead      = "Read"
	PermissionReadWrite = "ReadWrite"
)

// Props configures the LambdaToSsmStringParameter construct.
type Props struct {
	ExistingLambdaObj   awslambda.Function
	LambdaFunctionProps *awslambda.FunctionProps

	ExistingStringParameterObj awsssm.StringParameter
	StringParameterProps       *awsssm.StringParameterProps
	// StringParameterPermissions default to PermissionRead.
	StringParameterPermissions string
	// StringParameterEnvironmentVariableName defaults to DefaultParameterEnvironmentVariableName.
	StringParameterEnvironmentVariableName *string

	ExistingVpc awsec2.IVpc
	DeployVpc   *bool
	VpcProps    *awsec2.VpcProps
}

// LambdaToSsmStringParameter exposes the resources of the pattern.
type LambdaToSsmStringParameter interface {
	LambdaFunction() awslambda.Function
	StringParameter() awsssm.StringParameter
	Vpc() awsec2.IVpc
}

type lambdaToSsmStringParameter struct {
	fn    awslambda.Function
	param awsssm.StringParameter
	vpc   awsec2.IVpc
}

// New creates the function and the parameter, grants the permissions and passes the
// parameter name to the function. It panics when props are invalid.
func New(scope constructs.Construct, id string, props Props) LambdaToSsmStringParameter {
	bwcdkutil.MustCheck(CheckLambdaToSsmStringParameterProps(props))

	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &lambdaToSsmStringParameter{}

	var err error
	con.vpc, err = bwcdkvpc.ObtainVpc(scope, bwcdkvpc.PatternVpcProps{
		ExistingVpc: props.ExistingVpc,
		DeployVpc:   props.DeployVpc,
		VpcProps:    props.VpcProps,
		Endpoints:   []bwcdkvpc.ServiceEndpointType{bwcdkvpc.ServiceEndpointSSM},
	})
	if err != nil {
		panic(err)
	}

	con.fn = bwcdklambda.BuildLambdaFunction(scope, bwcdklambda.BuildLambdaFunctionProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
		Vpc:                 con.vpc,
	}, "")

	if props.ExistingStringParameterObj != nil {
		con.param = props.ExistingStringParameterObj
	} else {
		con.param = bwcdkparams.BuildSsmStringParameter(scope, "StringParameter", props.StringParameterProps)
	}

	envName := DefaultParameterEnvironmentVariableName
	if props.StringParameterEnvironmentVariableName != nil {
		envName = *props.StringParameterEnvironmentVariableName
	}
	con.fn.AddEnvironment(jsii.String(envName), con.param.ParameterName(), nil)

	con.param.GrantRead(con.fn)
	if props.StringParameterPermissions == PermissionReadWrite {
		con.param.GrantWrite(con.fn)
	}

	return con
}

func (c *lambdaToSsmStringParameter) LambdaFunction() awslambda.Function { return c.fn }
func (c *lambdaToSsmStringParameter) StringParameter() awsssm.StringParameter { return c.param }
func (c *lambdaToSsmStringParameter) Vpc() awsec2.IVpc { return c.vpc }

// CheckLambdaToSsmStringParameterProps validates the props of the construct.
func CheckLambdaToSsmStringParameterProps(props Props) error {
	var c bwcdkutil.Checker
	c.Add(bwcdklambda.CheckLambdaProps(bwcdklambda.LambdaProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
	}))
	c.Add(bwcdkvpc.CheckVpcProps(bwcdkvpc.VpcPropsSet{
		ExistingVpc: props.ExistingVpc,
		VpcProps:    props.VpcProps,
		DeployVpc:   props.DeployVpc,
		EndPoints:   []bwcdkvpc.ServiceEndpointType{bwcdkvpc.ServiceEndpointSSM},
	}))

	c.Exclusive(props.ExistingStringParameterObj, props.StringParameterProps,
		"Either provide existingStringParameterObj or stringParameterProps, but not both.")
	if !bwcdkutil.IsSet(props.ExistingStringParameterObj) &&
		(props.StringParameterProps == nil || props.StringParameterProps.StringValue == nil) {
		c.Fail("stringParameterProps.stringValue is required")
	}
	switch props.StringParameterPermissions {
	case "", PermissionRead, PermissionReadWrite:
	default:
		c.Fail("Invalid StringParameterPermissions submitted - " + props.StringParameterPermissions)
	}
	return c.Err()
}
