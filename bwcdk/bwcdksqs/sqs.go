// Package bwcdksqs builds SQS queues and dead letter queues with encryption and a
// queue policy that restricts access to the owning account over TLS.
package bwcdksqs

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkkms"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// QueueUseSSEFlag switches new queues without a customer managed key from KMS
// managed encryption to SQS managed encryption (SSE-SQS).
const QueueUseSSEFlag = "@aws-solutions-constructs/aws-sqs:QueueUseSse"

// DefaultMaxReceiveCount is the number of receives before a message moves to the dead letter queue.
const DefaultMaxReceiveCount = 15

// DefaultQueueProps returns the defaults for new queues in scope.
func DefaultQueueProps(scope constructs.Construct) *awssqs.QueueProps {
	encryption := awssqs.QueueEncryption_KMS_MANAGED
	if bwcdkutil.FeatureFlagEnabled(scope, QueueUseSSEFlag) {
		encryption = awssqs.QueueEncryption_SQS_MANAGED
	}
	return &awssqs.QueueProps{
		Encryption: encryption,
	}
}

// BuildQueueProps configures BuildQueue.
type BuildQueueProps struct {
	// ExistingQueueObj is returned as-is when set, everything else is ignored.
	ExistingQueueObj awssqs.Queue
	// QueueProps are merged over the defaults.
	QueueProps *awssqs.QueueProps
	// DeadLetterQueue is attached to the new queue.
	DeadLetterQueue *awssqs.DeadLetterQueue
	// EnableEncryptionWithCustomerManagedKey creates a key when no key is provided.
	EnableEncryptionWithCustomerManagedKey *bool
	// EncryptionKey is an existing customer managed key.
	EncryptionKey awskms.IKey
	// EncryptionKeyProps creates a customer managed key with these props.
	EncryptionKeyProps *awskms.KeyProps
}

// BuildQueueResponse holds the queue and the customer managed key encrypting it, if any.
type BuildQueueResponse struct {
	Queue awssqs.Queue
	Key   awskms.IKey
}

// BuildQueue creates a queue, or returns the existing one.
//
// The queue is encrypted with, in order of precedence: QueueProps.EncryptionMasterKey,
// EncryptionKey, a new key built from EncryptionKeyProps or because
// EnableEncryptionWithCustomerManagedKey is set. Without a customer managed key the
// queue uses KMS managed or SQS managed encryption (see QueueUseSSEFlag).
func BuildQueue(scope constructs.Construct, id string, props BuildQueueProps) BuildQueueResponse {
	if props.ExistingQueueObj != nil {
		return BuildQueueResponse{
			Queue: props.ExistingQueueObj,
			Key:   props.ExistingQueueObj.EncryptionMasterKey(),
		}
	}

	var key awskms.IKey
	switch {
	case props.QueueProps != nil && props.QueueProps.EncryptionMasterKey != nil:
		key = props.QueueProps.EncryptionMasterKey
	case props.EncryptionKey != nil:
		key = props.EncryptionKey
	case props.EncryptionKeyProps != nil ||
		(props.EnableEncryptionWithCustomerManagedKey != nil && *props.EnableEncryptionWithCustomerManagedKey):
		key = bwcdkkms.BuildEncryptionKey(scope, id+"Key", props.EncryptionKeyProps)
	}

	constructProps := &awssqs.QueueProps{
		DeadLetterQueue: props.DeadLetterQueue,
	}
	if key != nil {
		constructProps.Encryption = awssqs.QueueEncryption_KMS
		constructProps.EncryptionMasterKey = key
	}

	queue := awssqs.NewQueue(scope, jsii.String(id),
		bwcdkutil.ConsolidateProps(scope, DefaultQueueProps(scope), props.QueueProps, constructProps))

	ApplySecureQueuePolicy(queue)

	return BuildQueueResponse{Queue: queue, Key: key}
}

// ApplySecureQueuePolicy allows the owning account to operate the queue and denies
// any request that is not sent over TLS.
func ApplySecureQueuePolicy(queue awssqs.Queue) {
	queue.AddToResourcePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Sid:       jsii.String("QueueOwnerOnlyAccess"),
		Resources: jsii.Strings(*queue.QueueArn()),
		Actions: jsii.Strings(
			"sqs:DeleteMessage",
			"sqs:ReceiveMessage",
			"sqs:SendMessage",
			"sqs:GetQueueAttributes",
			"sqs:RemovePermission",
			"sqs:AddPermission",
			"sqs:SetQueueAttributes",
		),
		Principals: &[]awsiam.IPrincipal{
			awsiam.NewAccountPrincipal(awscdk.Stack_Of(queue).Account()),
		},
		Effect: awsiam.Effect_ALLOW,
	}))

	queue.AddToResourcePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Sid:        jsii.String("HttpsOnly"),
		Resources:  jsii.Strings(*queue.QueueArn()),
		Actions:    jsii.Strings("SQS:*"),
		Principals: &[]awsiam.IPrincipal{awsiam.NewAnyPrincipal()},
		Effect:     awsiam.Effect_DENY,
		Conditions: &map[string]any{
			"Bool": map[string]any{
				"aws:SecureTransport": "false",
			},
		},
	}))
}

// BuildDeadLetterQueueProps configures BuildDeadLetterQueue.
type BuildDeadLetterQueueProps struct {
	// ExistingQueueObj is the primary queue, when set no dead letter queue is built.
	ExistingQueueObj awssqs.Queue
	// DeployDeadLetterQueue defaults to true.
	DeployDeadLetterQueue *bool
	// DeadLetterQueueProps are merged over the queue defaults.
	DeadLetterQueueProps *awssqs.QueueProps
	// MaxReceiveCount defaults to DefaultMaxReceiveCount.
	MaxReceiveCount *float64
}

// BuildDeadLetterQueue creates the dead letter queue for a new primary queue. It
// returns nil when the primary queue already exists or deployment is disabled.
func BuildDeadLetterQueue(scope constructs.Construct, id string, props BuildDeadLetterQueueProps) *awssqs.DeadLetterQueue {
	if props.ExistingQueueObj != nil ||
		(props.DeployDeadLetterQueue != nil && !*props.DeployDeadLetterQueue) {
		return nil
	}
	if id == "" {
		id = "deadLetterQueue"
	}

	dlq := BuildQueue(scope, id, BuildQueueProps{QueueProps: props.DeadLetterQueueProps})

	mrc := props.MaxReceiveCount
	if mrc == nil {
		mrc = jsii.Number(DefaultMaxReceiveCount)
	}

	return &awssqs.DeadLetterQueue{
		MaxReceiveCount: mrc,
		Queue:           dlq.Queue,
	}
}

// BuildDeadLetterQueueAlarm raises an alarm as soon as a message is visible on the
// dead letter queue.
func BuildDeadLetterQueueAlarm(scope constructs.Construct, id string, dlq awssqs.IQueue) awscloudwatch.Alarm {
	metric := dlq.MetricApproximateNumberOfMessagesVisible(&awscloudwatch.MetricOptions{
		Statistic: jsii.String("Maximum"),
		Period:    awscdk.Duration_Minutes(jsii.Number(5)),
	})

	return awscloudwatch.NewAlarm(scope, jsii.String(id), &awscloudwatch.AlarmProps{
		AlarmDescription:   jsii.String("Messages are visible on the dead letter queue."),
		Metric:             metric,
		EvaluationPeriods:  jsii.Number(1),
		DatapointsToAlarm:  jsii.Number(1),
		ComparisonOperator: awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		Threshold:          jsii.Number(1),
		TreatMissingData:   awscloudwatch.TreatMissingData_NOT_BREACHING,
	})
}

// SqsProps are the props CheckSqsProps validates.
type SqsProps struct {
	ExistingQueueObj      awssqs.Queue
	QueueProps            *awssqs.QueueProps
	DeployDeadLetterQueue *bool
	DeadLetterQueueProps  *awssqs.QueueProps
	EncryptionKey         awskms.IKey
	EncryptionKeyProps    *awskms.KeyProps
}

// CheckSqsProps validates queue related props.
func CheckSqsProps(props SqsProps) error {
	var c bwcdkutil.Checker

	c.Exclusive(props.ExistingQueueObj, props.QueueProps,
		"Either provide queueProps or existingQueueObj, but not both.")

	var masterKey awskms.IKey
	if props.QueueProps != nil {
		masterKey = props.QueueProps.EncryptionMasterKey
	}
	c.Exclusive(masterKey, props.EncryptionKey,
		"Either provide queueProps.encryptionMasterKey or encryptionKey, but not both.")
	c.Exclusive(masterKey, props.EncryptionKeyProps,
		"Either provide queueProps.encryptionMasterKey or encryptionKeyProps, but not both.")
	c.Exclusive(props.EncryptionKey, props.EncryptionKeyProps,
		"Either provide encryptionKey or encryptionKeyProps, but not both.")

	if props.DeployDeadLetterQueue != nil && !*props.DeployDeadLetterQueue && props.DeadLetterQueueProps != nil {
		c.Fail("If deployDeadLetterQueue is false then deadLetterQueueProps cannot be specified.")
	}

	fifo := func(p *awssqs.QueueProps) bool { return p != nil && p.Fifo != nil && *p.Fifo }
	deployDeadLetterQueue := props.DeployDeadLetterQueue == nil || *props.DeployDeadLetterQueue
	if deployDeadLetterQueue && props.ExistingQueueObj == nil &&
		fifo(props.QueueProps) != fifo(props.DeadLetterQueueProps) {
		c.Fail("If you specify a fifo: true in either queueProps or deadLetterQueueProps, " +
			"you must also set fifo: true in the other props object. " +
			"Fifo must match for the Queue and the Dead Letter Queue.")
	}

	return c.Err()
}
