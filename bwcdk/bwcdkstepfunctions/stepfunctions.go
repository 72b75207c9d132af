// Package bwcdkstepfunctions builds Step Functions state machines that log
// execution errors to a vended log group, and the alarms that watch them.
package bwcdkstepfunctions

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctions"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkloggroup"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/cockroachdb/errors"
)

// LogGroupPrefix is required for log groups that receive state machine logs.
const LogGroupPrefix = "/aws/vendedlogs/states/"

// DefaultStateMachineID is used when BuildStateMachine receives an empty id.
const DefaultStateMachineID = "StateMachine"

// DefaultStateMachineProps logs errors to logGroup and enables X-Ray tracing.
func DefaultStateMachineProps(logGroup awslogs.ILogGroup) *awsstepfunctions.StateMachineProps {
	return &awsstepfunctions.StateMachineProps{
		Logs: &awsstepfunctions.LogOptions{
			Destination: logGroup,
			Level:       awsstepfunctions.LogLevel_ERROR,
		},
		TracingEnabled: jsii.Bool(true),
	}
}

// BuildStateMachineProps configures BuildStateMachine.
type BuildStateMachineProps struct {
	// StateMachineProps must carry the definition.
	StateMachineProps *awsstepfunctions.StateMachineProps
	// LogGroupProps are used for the log group created when StateMachineProps
	// has no log destination. A name under LogGroupPrefix is generated when unset.
	LogGroupProps *awslogs.LogGroupProps
	// CreateCloudWatchAlarms defaults to true.
	CreateCloudWatchAlarms *bool
}

// BuildStateMachineResponse holds the created resources.
type BuildStateMachineResponse struct {
	StateMachine     awsstepfunctions.StateMachine
	LogGroup         awslogs.ILogGroup
	CloudWatchAlarms []awscloudwatch.Alarm
}

// BuildStateMachine creates a state machine that logs to a vended log group.
func BuildStateMachine(scope constructs.Construct, id string, props BuildStateMachineProps) BuildStateMachineResponse {
	if props.StateMachineProps == nil ||
		(props.StateMachineProps.DefinitionBody == nil && props.StateMachineProps.Definition == nil) {
		panic(errors.New("stateMachineProps.definitionBody is required"))
	}
	if id == "" {
		id = DefaultStateMachineID
	}

	var logGroup awslogs.ILogGroup
	if logs := props.StateMachineProps.Logs; logs != nil && logs.Destination != nil {
		logGroup = logs.Destination
	} else {
		logGroup = bwcdkloggroup.BuildLogGroup(scope, id+"LogGroup",
			bwcdkutil.ConsolidateProps(nil, props.LogGroupProps, nil, &awslogs.LogGroupProps{
				LogGroupName: logGroupName(scope, props.LogGroupProps),
			}))
	}

	sm := awsstepfunctions.NewStateMachine(scope, jsii.String(id),
		bwcdkutil.ConsolidateProps(scope, DefaultStateMachineProps(logGroup), props.StateMachineProps, nil))

	sm.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: jsii.Strings(
			"logs:PutResourcePolicy",
			"logs:DescribeResourcePolicies",
			"logs:DescribeLogGroups",
		),
		Resources: &[]*string{jsii.Sprintf("arn:%s:logs:%s:%s:*",
			*awscdk.Aws_PARTITION(), *awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID())},
	}))

	if policy := sm.Role().Node().TryFindChild(jsii.String("DefaultPolicy")); policy != nil {
		bwcdkutil.AddCfnSuppressRules(policy, bwcdkutil.CfnNagSuppressRule{
			ID:     "W12",
			Reason: "The 'LogDelivery' actions do not support resource-level authorizations",
		})
	}

	res := BuildStateMachineResponse{StateMachine: sm, LogGroup: logGroup}
	if props.CreateCloudWatchAlarms == nil || *props.CreateCloudWatchAlarms {
		res.CloudWatchAlarms = BuildStepFunctionCWAlarms(scope, sm)
	}
	return res
}

// logGroupName returns the user's log group name, or one under LogGroupPrefix that is
// unique per stack and construct.
func logGroupName(scope constructs.Construct, props *awslogs.LogGroupProps) *string {
	if props != nil && props.LogGroupName != nil {
		return props.LogGroupName
	}
	parts := []string{*awscdk.Stack_Of(scope).StackName(), *scope.Node().Id(), "StateMachineLog"}
	return jsii.String(LogGroupPrefix +
		bwcdkutil.GeneratePhysicalName("", parts, 255-len(LogGroupPrefix)))
}

// BuildStepFunctionCWAlarms alarms on failed, throttled and aborted executions.
func BuildStepFunctionCWAlarms(scope constructs.Construct, sm awsstepfunctions.IStateMachine) []awscloudwatch.Alarm {
	period := awscdk.Duration_Seconds(jsii.Number(300))
	alarm := func(id, what string, metric awscloudwatch.Metric) awscloudwatch.Alarm {
		return awscloudwatch.NewAlarm(scope, jsii.String(id), &awscloudwatch.AlarmProps{
			Metric:             metric,
			Threshold:          jsii.Number(1),
			EvaluationPeriods:  jsii.Number(1),
			ComparisonOperator: awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
			AlarmDescription: jsii.String("Alarm for the number of executions that " + what +
				" exceeded the threshold of 1. "),
		})
	}

	return []awscloudwatch.Alarm{
		alarm("ExecutionFailedAlarm", "failed", sm.MetricFailed(&awscloudwatch.MetricOptions{
			Statistic: jsii.String("Sum"), Period: period,
		})),
		alarm("ExecutionThrottledAlarm", "throttled", sm.MetricThrottled(&awscloudwatch.MetricOptions{
			Statistic: jsii.String("Sum"), Period: period,
		})),
		alarm("ExecutionAbortedAlarm", "aborted", sm.MetricAborted(&awscloudwatch.MetricOptions{
			Statistic: jsii.String("Maximum"), Period: period,
		})),
	}
}
