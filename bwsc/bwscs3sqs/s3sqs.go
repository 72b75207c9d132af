// Package bwscs3sqs sends S3 event notifications of a bucket to an encrypted SQS queue.
package bwscs3sqs

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3notifications"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdks3"
	"github.com/basewarphq/bwsc/bwcdk/bwcdksqs"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// DefaultEventTypes are the events sent to the queue when no event types are given.
func DefaultEventTypes() []awss3.EventType {
	return []awss3.EventType{awss3.EventType_OBJECT_CREATED}
}

// Props configures the S3ToSqs construct.
type Props struct {
	// ExistingBucketObj sends its notifications instead of a new bucket.
	ExistingBucketObj awss3.IBucket
	// BucketProps are merged over the bucket defaults.
	BucketProps *awss3.BucketProps
	// LoggingBucketProps are merged over the access log bucket defaults.
	LoggingBucketProps *awss3.BucketProps
	// LogS3AccessLogs defaults to true.
	LogS3AccessLogs *bool
	// S3EventTypes defaults to DefaultEventTypes.
	S3EventTypes []awss3.EventType
	// S3EventFilters limit notifications to matching object keys.
	S3EventFilters []*awss3.NotificationKeyFilter

	// ExistingQueueObj receives the notifications instead of a new queue.
	ExistingQueueObj awssqs.Queue
	// QueueProps are merged over the queue defaults.
	QueueProps *awssqs.QueueProps
	// DeployDeadLetterQueue defaults to true.
	DeployDeadLetterQueue *bool
	// DeadLetterQueueProps are merged over the dead letter queue defaults.
	DeadLetterQueueProps *awssqs.QueueProps
	// MaxReceiveCount defaults to bwcdksqs.DefaultMaxReceiveCount.
	MaxReceiveCount *float64

	// EnableEncryptionWithCustomerManagedKey defaults to true unless QueueProps
	// configure the encryption themselves.
	EnableEncryptionWithCustomerManagedKey *bool
	// EncryptionKey encrypts the queue instead of a new key.
	EncryptionKey awskms.Key
	// EncryptionKeyProps are used for the new queue key.
	EncryptionKeyProps *awskms.KeyProps
}

// S3ToSqs exposes the resources of the pattern.
type S3ToSqs interface {
	SqsQueue() awssqs.Queue
	DeadLetterQueue() *awssqs.DeadLetterQueue
	// S3Bucket is nil when an existing bucket was used.
	S3Bucket() awss3.Bucket
	S3LoggingBucket() awss3.Bucket
	// S3BucketInterface is the bucket sending notifications, new or existing.
	S3BucketInterface() awss3.IBucket
	EncryptionKey() awskms.IKey
}

type s3ToSqs struct {
	queue         awssqs.Queue
	dlq           *awssqs.DeadLetterQueue
	bucket        awss3.Bucket
	loggingBucket awss3.Bucket
	bucketIface   awss3.IBucket
	key           awskms.IKey
}

// New creates the bucket, the queue with its dead letter queue and one notification
// per event type. It panics when props are contradictory.
func New(scope constructs.Construct, id string, props Props) S3ToSqs {
	bwcdkutil.MustCheck(CheckS3ToSqsProps(props))

	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &s3ToSqs{}

	con.dlq = bwcdksqs.BuildDeadLetterQueue(scope, "DeadLetterQueue", bwcdksqs.BuildDeadLetterQueueProps{
		ExistingQueueObj:      props.ExistingQueueObj,
		DeployDeadLetterQueue: props.DeployDeadLetterQueue,
		DeadLetterQueueProps:  props.DeadLetterQueueProps,
		MaxReceiveCount:       props.MaxReceiveCount,
	})

	enableCmk := props.EnableEncryptionWithCustomerManagedKey
	if enableCmk == nil {
		enableCmk = jsii.Bool(!hasQueueEncryption(props.QueueProps))
	}

	queue := bwcdksqs.BuildQueue(scope, "Queue", bwcdksqs.BuildQueueProps{
		ExistingQueueObj:                       props.ExistingQueueObj,
		QueueProps:                             props.QueueProps,
		DeadLetterQueue:                        con.dlq,
		EnableEncryptionWithCustomerManagedKey: enableCmk,
		EncryptionKey:                          props.EncryptionKey,
		EncryptionKeyProps:                     props.EncryptionKeyProps,
	})
	con.queue, con.key = queue.Queue, queue.Key

	if props.ExistingBucketObj != nil {
		con.bucketIface = props.ExistingBucketObj
	} else {
		resp := bwcdks3.BuildS3Bucket(scope, bwcdks3.BuildS3BucketProps{
			BucketProps:        props.BucketProps,
			LoggingBucketProps: props.LoggingBucketProps,
			LogS3AccessLogs:    props.LogS3AccessLogs,
		}, "")
		con.bucket, con.loggingBucket = resp.Bucket, resp.LoggingBucket
		con.bucketIface = resp.Bucket
	}

	eventTypes := props.S3EventTypes
	if len(eventTypes) == 0 {
		eventTypes = DefaultEventTypes()
	}

	destination := awss3notifications.NewSqsDestination(con.queue)
	for _, typ := range eventTypes {
		con.bucketIface.AddEventNotification(typ, destination, props.S3EventFilters...)
	}

	return con
}

func hasQueueEncryption(props *awssqs.QueueProps) bool {
	return props != nil && (props.EncryptionMasterKey != nil || props.Encryption != "")
}

func (c *s3ToSqs) SqsQueue() awssqs.Queue { return c.queue }
func (c *s3ToSqs) DeadLetterQueue() *awssqs.DeadLetterQueue { return c.dlq }
func (c *s3ToSqs) S3Bucket() awss3.Bucket { return c.bucket }
func (c *s3ToSqs) S3LoggingBucket() awss3.Bucket { return c.loggingBucket }
func (c *s3ToSqs) S3BucketInterface() awss3.IBucket { return c.bucketIface }
func (c *s3ToSqs) EncryptionKey() awskms.IKey { return c.key }

// CheckS3ToSqsProps validates the bucket and queue props of the construct.
func CheckS3ToSqsProps(props Props) error {
	var c bwcdkutil.Checker
	c.Add(bwcdks3.CheckS3Props(bwcdks3.S3Props{
		ExistingBucketObj:  props.ExistingBucketObj,
		BucketProps:        props.BucketProps,
		LoggingBucketProps: props.LoggingBucketProps,
		LogS3AccessLogs:    props.LogS3AccessLogs,
	}))
	c.Add(bwcdksqs.CheckSqsProps(bwcdksqs.SqsProps{
		ExistingQueueObj:      props.ExistingQueueObj,
		QueueProps:            props.QueueProps,
		DeployDeadLetterQueue: props.DeployDeadLetterQueue,
		DeadLetterQueueProps:  props.DeadLetterQueueProps,
		EncryptionKey:         props.EncryptionKey,
		EncryptionKeyProps:    props.EncryptionKeyProps,
	}))
	return c.Err()
}
