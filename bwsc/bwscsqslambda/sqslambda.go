// Package bwscsqslambda triggers a Lambda function with the messages of an SQS queue.
package bwscsqslambda

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambdaeventsources"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdklambda"
	"github.com/basewarphq/bwsc/bwcdk/bwcdksqs"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// Props configures the SqsToLambda construct.
type Props struct {
	ExistingLambdaObj   awslambda.Function
	LambdaFunctionProps *awslambda.FunctionProps

	ExistingQueueObj      awssqs.Queue
	QueueProps            *awssqs.QueueProps
	DeployDeadLetterQueue *bool
	DeadLetterQueueProps  *awssqs.QueueProps
	MaxReceiveCount       *float64
	// CreateDeadLetterQueueAlarm adds an alarm on visible dead letter queue messages.
	CreateDeadLetterQueueAlarm *bool

	// SqsEventSourceProps configure the event source mapping, e.g. the batch size.
	SqsEventSourceProps *awslambdaeventsources.SqsEventSourceProps

	EnableEncryptionWithCustomerManagedKey *bool
	EncryptionKey                          awskms.Key
	EncryptionKeyProps                     *awskms.KeyProps
}

// SqsToLambda exposes the resources of the pattern.
type SqsToLambda interface {
	LambdaFunction() awslambda.Function
	SqsQueue() awssqs.Queue
	DeadLetterQueue() *awssqs.DeadLetterQueue
	// DeadLetterQueueAlarm is nil unless requested and a dead letter queue exists.
	DeadLetterQueueAlarm() awscloudwatch.Alarm
}

type sqsToLambda struct {
	fn    awslambda.Function
	queue awssqs.Queue
	dlq   *awssqs.DeadLetterQueue
	alarm awscloudwatch.Alarm
}

// New creates the queue and the function and adds the queue as event source of the
// function. It panics when props are contradictory.
func New(scope constructs.Construct, id string, props Props) SqsToLambda {
	bwcdkutil.MustCheck(CheckSqsToLambdaProps(props))

	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &sqsToLambda{}

	con.fn = bwcdklambda.BuildLambdaFunction(scope, bwcdklambda.BuildLambdaFunctionProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
	}, "")

	con.dlq = bwcdksqs.BuildDeadLetterQueue(scope, "DeadLetterQueue", bwcdksqs.BuildDeadLetterQueueProps{
		ExistingQueueObj:      props.ExistingQueueObj,
		DeployDeadLetterQueue: props.DeployDeadLetterQueue,
		DeadLetterQueueProps:  props.DeadLetterQueueProps,
		MaxReceiveCount:       props.MaxReceiveCount,
	})

	con.queue = bwcdksqs.BuildQueue(scope, "Queue", bwcdksqs.BuildQueueProps{
		ExistingQueueObj:                       props.ExistingQueueObj,
		QueueProps:                             props.QueueProps,
		DeadLetterQueue:                        con.dlq,
		EnableEncryptionWithCustomerManagedKey: props.EnableEncryptionWithCustomerManagedKey,
		EncryptionKey:                          props.EncryptionKey,
		EncryptionKeyProps:                     props.EncryptionKeyProps,
	}).Queue

	con.fn.AddEventSource(awslambdaeventsources.NewSqsEventSource(con.queue,
		bwcdkutil.ConsolidateProps(scope, nil, props.SqsEventSourceProps, nil)))

	if con.dlq != nil && props.CreateDeadLetterQueueAlarm != nil && *props.CreateDeadLetterQueueAlarm {
		con.alarm = bwcdksqs.BuildDeadLetterQueueAlarm(scope, "DeadLetterQueueAlarm", con.dlq.Queue)
	}

	return con
}

func (c *sqsToLambda) LambdaFunction() awslambda.Function { return c.fn }
func (c *sqsToLambda) SqsQueue() awssqs.Queue { return c.queue }
func (c *sqsToLambda) DeadLetterQueue() *awssqs.DeadLetterQueue { return c.dlq }
func (c *sqsToLambda) DeadLetterQueueAlarm() awscloudwatch.Alarm { return c.alarm }

// CheckSqsToLambdaProps validates the props of the construct.
func CheckSqsToLambdaProps(props Props) error {
	var c bwcdkutil.Checker
	c.Add(bwcdklambda.CheckLambdaProps(bwcdklambda.LambdaProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
	}))
	c.Add(bwcdksqs.CheckSqsProps(bwcdksqs.SqsProps{
		ExistingQueueObj:      props.ExistingQueueObj,
		QueueProps:            props.QueueProps,
		DeployDeadLetterQueue: props.DeployDeadLetterQueue,
		DeadLetterQueueProps:  props.DeadLetterQueueProps,
		EncryptionKey:         props.EncryptionKey,
		EncryptionKeyProps:    props.EncryptionKeyProps,
	}))

	if props.CreateDeadLetterQueueAlarm != nil && *props.CreateDeadLetterQueueAlarm &&
		props.DeployDeadLetterQueue != nil && !*props.DeployDeadLetterQueue {
		c.Fail("createDeadLetterQueueAlarm requires a dead letter queue")
	}

	return c.Err()
}
