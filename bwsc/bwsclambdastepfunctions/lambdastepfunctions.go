// Package bwsclambdastepfunctions lets a Lambda function start executions of a
// Step Functions state machine.
package bwsclambdastepfunctions

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctions"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdklambda"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkstepfunctions"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkvpc"
)

// DefaultStateMachineEnvironmentVariableName holds the state machine ARN in the
// function environment.
const DefaultStateMachineEnvironmentVariableName = "STATE_MACHINE_ARN"

// Props configures the LambdaToStepFunctions construct.
type Props struct {
	ExistingLambdaObj   awslambda.Function
	LambdaFunctionProps *awslambda.FunctionProps

	// StateMachineProps are required and must carry the definition.
	StateMachineProps *awsstepfunctions.StateMachineProps
	LogGroupProps     *awslogs.LogGroupProps
	// CreateCloudWatchAlarms defaults to true.
	CreateCloudWatchAlarms *bool
	// StateMachineEnvironmentVariableName defaults to DefaultStateMachineEnvironmentVariableName.
	StateMachineEnvironmentVariableName *string

	ExistingVpc awsec2.IVpc
	DeployVpc   *bool
	VpcProps    *awsec2.VpcProps
}

// LambdaToStepFunctions exposes the resources of the pattern.
type LambdaToStepFunctions interface {
	LambdaFunction() awslambda.Function
	StateMachine() awsstepfunctions.StateMachine
	StateMachineLogGroup() awslogs.ILogGroup
	CloudWatchAlarms() []awscloudwatch.Alarm
	Vpc() awsec2.IVpc
}

type lambdaToStepFunctions struct {
	fn  awslambda.Function
	sm  bwcdkstepfunctions.BuildStateMachineResponse
	vpc awsec2.IVpc
}

// New creates the function and the state machine and allows the function to start
// executions. It panics when props are invalid.
func New(scope constructs.Construct, id string, props Props) LambdaToStepFunctions {
	bwcdkutil.MustCheck(CheckLambdaToStepFunctionsProps(props))

	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &lambdaToStepFunctions{}

	var err error
	con.vpc, err = bwcdkvpc.ObtainVpc(scope, bwcdkvpc.PatternVpcProps{
		ExistingVpc: props.ExistingVpc,
		DeployVpc:   props.DeployVpc,
		VpcProps:    props.VpcProps,
		Endpoints:   []bwcdkvpc.ServiceEndpointType{bwcdkvpc.ServiceEndpointStepFunctions},
	})
	if err != nil {
		panic(err)
	}

	con.sm = bwcdkstepfunctions.BuildStateMachine(scope, "", bwcdkstepfunctions.BuildStateMachineProps{
		StateMachineProps:      props.StateMachineProps,
		LogGroupProps:          props.LogGroupProps,
		CreateCloudWatchAlarms: props.CreateCloudWatchAlarms,
	})

	con.fn = bwcdklambda.BuildLambdaFunction(scope, bwcdklambda.BuildLambdaFunctionProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
		Vpc:                 con.vpc,
	}, "")

	envName := DefaultStateMachineEnvironmentVariableName
	if props.StateMachineEnvironmentVariableName != nil {
		envName = *props.StateMachineEnvironmentVariableName
	}
	con.fn.AddEnvironment(jsii.String(envName), con.sm.StateMachine.StateMachineArn(), nil)
	con.sm.StateMachine.GrantStartExecution(con.fn)

	return con
}

func (c *lambdaToStepFunctions) LambdaFunction() awslambda.Function { return c.fn }
func (c *lambdaToStepFunctions) StateMachine() awsstepfunctions.StateMachine { return c.sm.StateMachine }
func (c *lambdaToStepFunctions) StateMachineLogGroup() awslogs.ILogGroup { return c.sm.LogGroup }
func (c *lambdaToStepFunctions) CloudWatchAlarms() []awscloudwatch.Alarm { return c.sm.CloudWatchAlarms }
func (c *lambdaToStepFunctions) Vpc() awsec2.IVpc { return c.vpc }

// CheckLambdaToStepFunctionsProps validates the props of the construct.
func CheckLambdaToStepFunctionsProps(props Props) error {
	var c bwcdkutil.Checker
	c.Add(bwcdklambda.CheckLambdaProps(bwcdklambda.LambdaProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
	}))
	c.Add(bwcdkvpc.CheckVpcProps(bwcdkvpc.VpcPropsSet{
		ExistingVpc: props.ExistingVpc,
		VpcProps:    props.VpcProps,
		DeployVpc:   props.DeployVpc,
		EndPoints:   []bwcdkvpc.ServiceEndpointType{bwcdkvpc.ServiceEndpointStepFunctions},
	}))
	if props.StateMachineProps == nil {
		c.Fail("stateMachineProps is required")
	}
	return c.Err()
}
