package bwscfactories

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/basewarphq/bwsc/bwcdk/bwcdksqs"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// QueueFactoryProps configures QueueFactory.
type QueueFactoryProps struct {
	QueueProps                             *awssqs.QueueProps
	EnableEncryptionWithCustomerManagedKey *bool
	EncryptionKey                          awskms.Key
	EncryptionKeyProps                     *awskms.KeyProps
	// DeployDeadLetterQueue defaults to true.
	DeployDeadLetterQueue *bool
	DeadLetterQueueProps  *awssqs.QueueProps
	MaxReceiveCount       *float64
}

// QueueFactoryResponse holds the queue, its key and its dead letter queue. Key and
// DeadLetterQueue may be nil.
type QueueFactoryResponse struct {
	Queue           awssqs.Queue
	Key             awskms.IKey
	DeadLetterQueue *awssqs.DeadLetterQueue
}

// QueueFactory creates a queue with id and, unless disabled, a dead letter queue
// with id "<id>DeadLetterQueue". It panics when props are contradictory.
func QueueFactory(scope constructs.Construct, id string, props QueueFactoryProps) QueueFactoryResponse {
	bwcdkutil.MustCheck(bwcdksqs.CheckSqsProps(bwcdksqs.SqsProps{
		QueueProps:            props.QueueProps,
		DeployDeadLetterQueue: props.DeployDeadLetterQueue,
		DeadLetterQueueProps:  props.DeadLetterQueueProps,
		EncryptionKey:         props.EncryptionKey,
		EncryptionKeyProps:    props.EncryptionKeyProps,
	}))

	dlq := bwcdksqs.BuildDeadLetterQueue(scope, id+"DeadLetterQueue", bwcdksqs.BuildDeadLetterQueueProps{
		DeployDeadLetterQueue: props.DeployDeadLetterQueue,
		DeadLetterQueueProps:  props.DeadLetterQueueProps,
		MaxReceiveCount:       props.MaxReceiveCount,
	})

	queue := bwcdksqs.BuildQueue(scope, id, bwcdksqs.BuildQueueProps{
		QueueProps:                             props.QueueProps,
		DeadLetterQueue:                        dlq,
		EnableEncryptionWithCustomerManagedKey: props.EnableEncryptionWithCustomerManagedKey,
		EncryptionKey:                          props.EncryptionKey,
		EncryptionKeyProps:                     props.EncryptionKeyProps,
	})

	return QueueFactoryResponse{Queue: queue.Queue, Key: queue.Key, DeadLetterQueue: dlq}
}
