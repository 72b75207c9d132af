// Package bwcdkloggroup builds CloudWatch Log Groups.
//
// [BuildLogGroup] is used for log groups that hold customer data (state machine
// executions, API access logs, VPC flow logs): they never expire and are retained
// when the stack is deleted. [New] creates the short lived, outputted log groups
// used by Lambda functions in this module.
package bwcdkloggroup

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/samber/lo"
)

// DefaultLogGroupID is the construct id used when BuildLogGroup receives an empty id.
const DefaultLogGroupID = "CloudWatchLogGroup"

// DefaultLogGroupProps returns the defaults for customer data log groups.
func DefaultLogGroupProps() *awslogs.LogGroupProps {
	return &awslogs.LogGroupProps{
		RemovalPolicy: awscdk.RemovalPolicy_RETAIN,
		Retention:     awslogs.RetentionDays_INFINITE,
	}
}

// BuildLogGroup creates a log group from the defaults merged with props.
func BuildLogGroup(scope constructs.Construct, id string, props *awslogs.LogGroupProps) awslogs.LogGroup {
	return buildLogGroup(scope, id, props, nil)
}

func buildLogGroup(
	scope constructs.Construct, id string, props, constructProps *awslogs.LogGroupProps,
) awslogs.LogGroup {
	if id == "" {
		id = DefaultLogGroupID
	}

	merged := bwcdkutil.ConsolidateProps(scope, DefaultLogGroupProps(), props, constructProps)
	lg := awslogs.NewLogGroup(scope, jsii.String(id), merged)

	if merged.Retention == awslogs.RetentionDays_INFINITE {
		bwcdkutil.AddCfnSuppressRules(lg, bwcdkutil.CfnNagSuppressRule{
			ID:     "W86",
			Reason: "Retention period for CloudWatchLogs LogGroups are set to 'Never Expire' to preserve customer data indefinitely",
		})
	}
	if merged.EncryptionKey == nil {
		bwcdkutil.AddCfnSuppressRules(lg, bwcdkutil.CfnNagSuppressRule{
			ID: "W84",
			Reason: "By default CloudWatchLogs LogGroups data is encrypted using the CloudWatch server-side " +
				"encryption keys (AWS Managed Keys)",
		})
	}

	return lg
}

// LogGroup provides access to a CloudWatch Log Group with standardized configuration.
type LogGroup interface {
	// LogGroup returns the underlying CDK log group.
	LogGroup() awslogs.ILogGroup
}

// Props configures the LogGroup construct.
type Props struct {
	// Purpose describes what this log group is for (e.g., "Lambda function logs").
	// Used in the CfnOutput description.
	// Required.
	Purpose *string
	// Retention overrides the one week default.
	Retention awslogs.RetentionDays
}

type logGroup struct {
	lg awslogs.ILogGroup
}

// New creates a LogGroup construct for function logs: one week retention by default,
// destroyed with the stack, with its name exported as a CfnOutput keyed "{id}LogGroup".
func New(scope constructs.Construct, id string, props Props) LogGroup {
	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &logGroup{}

	con.lg = buildLogGroup(scope, "LogGroup", nil, &awslogs.LogGroupProps{
		Retention:     lo.Ternary(props.Retention != "", props.Retention, awslogs.RetentionDays_ONE_WEEK),
		RemovalPolicy: awscdk.RemovalPolicy_DESTROY,
	})

	awscdk.NewCfnOutput(scope, jsii.String("LogGroupOutput"), &awscdk.CfnOutputProps{
		Key:         jsii.String(id + "LogGroup"),
		Description: jsii.String("CloudWatch Log Group for " + *props.Purpose),
		Value:       con.lg.LogGroupName(),
	})

	return con
}

func (l *logGroup) LogGroup() awslogs.ILogGroup {
	return l.lg
}
