package bwscfactories

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctions"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkstepfunctions"
)

// StateMachineFactoryProps configures StateMachineFactory.
type StateMachineFactoryProps struct {
	// StateMachineProps must carry the definition.
	StateMachineProps *awsstepfunctions.StateMachineProps
	LogGroupProps     *awslogs.LogGroupProps
	// CreateCloudWatchAlarms defaults to true.
	CreateCloudWatchAlarms *bool
}

// StateMachineFactoryResponse holds the state machine, its log group and alarms.
type StateMachineFactoryResponse struct {
	StateMachine     awsstepfunctions.StateMachine
	LogGroup         awslogs.ILogGroup
	CloudWatchAlarms []awscloudwatch.Alarm
}

// StateMachineFactory creates a state machine that logs all events to a vended log
// group. It panics without a definition.
func StateMachineFactory(
	scope constructs.Construct, id string, props StateMachineFactoryProps,
) StateMachineFactoryResponse {
	resp := bwcdkstepfunctions.BuildStateMachine(scope, id, bwcdkstepfunctions.BuildStateMachineProps{
		StateMachineProps:      props.StateMachineProps,
		LogGroupProps:          props.LogGroupProps,
		CreateCloudWatchAlarms: props.CreateCloudWatchAlarms,
	})

	return StateMachineFactoryResponse{
		StateMachine:     resp.StateMachine,
		LogGroup:         resp.LogGroup,
		CloudWatchAlarms: resp.CloudWatchAlarms,
	}
}
