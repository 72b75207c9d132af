// Package bwscsnssqs subscribes an SQS queue to an SNS topic, both encrypted with
// customer managed keys unless told otherwise.
package bwscsnssqs

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssnssubscriptions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkkms"
	"github.com/basewarphq/bwsc/bwcdk/bwcdksns"
	"github.com/basewarphq/bwsc/bwcdk/bwcdksqs"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// RestrictSqsDecryptionFlag is the CDK feature flag that scopes the key grant of an
// SQS subscription to the topic. Without it, and without any key props, the
// deprecated single key is used.
const RestrictSqsDecryptionFlag = "@aws-cdk/aws-sns-subscriptions:restrictSqsDescryption"

// Props configures the SnsToSqs construct.
type Props struct {
	// ExistingTopicObj is subscribed to instead of creating a topic.
	ExistingTopicObj awssns.Topic
	// TopicProps are merged over the topic defaults.
	TopicProps *awssns.TopicProps
	// ExistingQueueObj is subscribed instead of creating a queue.
	ExistingQueueObj awssqs.Queue
	// QueueProps are merged over the queue defaults.
	QueueProps *awssqs.QueueProps
	// DeployDeadLetterQueue defaults to true.
	DeployDeadLetterQueue *bool
	// DeadLetterQueueProps are merged over the dead letter queue defaults.
	DeadLetterQueueProps *awssqs.QueueProps
	// MaxReceiveCount defaults to bwcdksqs.DefaultMaxReceiveCount.
	MaxReceiveCount *float64
	// SqsSubscriptionProps configure the subscription, e.g. raw delivery or a filter policy.
	SqsSubscriptionProps *awssnssubscriptions.SqsSubscriptionProps

	// EncryptQueueWithCmk defaults to true.
	EncryptQueueWithCmk *bool
	// QueueEncryptionKeyProps are used for the queue key.
	QueueEncryptionKeyProps *awskms.KeyProps
	// ExistingQueueEncryptionKey encrypts the queue instead of a new key.
	ExistingQueueEncryptionKey awskms.Key
	// EncryptTopicWithCmk defaults to true.
	EncryptTopicWithCmk *bool
	// TopicEncryptionKeyProps are used for the topic key.
	TopicEncryptionKeyProps *awskms.KeyProps
	// ExistingTopicEncryptionKey encrypts the topic instead of a new key.
	ExistingTopicEncryptionKey awskms.Key

	// Deprecated: use EncryptQueueWithCmk and EncryptTopicWithCmk.
	EnableEncryptionWithCustomerManagedKey *bool
	// Deprecated: use ExistingQueueEncryptionKey and ExistingTopicEncryptionKey.
	EncryptionKey awskms.Key
	// Deprecated: use QueueEncryptionKeyProps and TopicEncryptionKeyProps.
	EncryptionKeyProps *awskms.KeyProps
}

// SnsToSqs exposes the resources of the pattern.
type SnsToSqs interface {
	SnsTopic() awssns.Topic
	SqsQueue() awssqs.Queue
	// DeadLetterQueue is nil when no dead letter queue was deployed.
	DeadLetterQueue() *awssqs.DeadLetterQueue
	// QueueEncryptionKey is the key the construct chose for the queue.
	QueueEncryptionKey() awskms.IKey
	// TopicEncryptionKey is the key the construct chose for the topic.
	TopicEncryptionKey() awskms.IKey
	// EncryptionKey is only set when the deprecated key props are in use.
	EncryptionKey() awskms.IKey
}

type snsToSqs struct {
	topic    awssns.Topic
	queue    awssqs.Queue
	dlq      *awssqs.DeadLetterQueue
	queueKey awskms.IKey
	topicKey awskms.IKey
	key      awskms.IKey
}

// New creates the topic, the queue with its dead letter queue and the subscription.
// It panics when props are contradictory.
func New(scope constructs.Construct, id string, props Props) SnsToSqs {
	bwcdkutil.MustCheck(CheckSnsToSqsProps(props))

	keys := CreateRequiredKeys(scope, id, props)
	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &snsToSqs{}

	con.dlq = bwcdksqs.BuildDeadLetterQueue(scope, "DeadLetterQueue", bwcdksqs.BuildDeadLetterQueueProps{
		ExistingQueueObj:      props.ExistingQueueObj,
		DeployDeadLetterQueue: props.DeployDeadLetterQueue,
		DeadLetterQueueProps:  props.DeadLetterQueueProps,
		MaxReceiveCount:       props.MaxReceiveCount,
	})

	topic := bwcdksns.BuildTopic(scope, "SnsTopic", bwcdksns.BuildTopicProps{
		ExistingTopicObj:                       props.ExistingTopicObj,
		TopicProps:                             props.TopicProps,
		EnableEncryptionWithCustomerManagedKey: jsii.Bool(keys.EncryptTopicWithCmk),
		EncryptionKey:                          keys.TopicKey,
	})
	con.topic = topic.Topic

	queue := bwcdksqs.BuildQueue(scope, "Queue", bwcdksqs.BuildQueueProps{
		ExistingQueueObj: props.ExistingQueueObj,
		QueueProps:       props.QueueProps,
		DeadLetterQueue:  con.dlq,
		EncryptionKey:    keys.QueueKey,
	})
	con.queue = queue.Queue

	con.topic.AddSubscription(awssnssubscriptions.NewSqsSubscription(con.queue, props.SqsSubscriptionProps))

	if keys.UseDeprecatedInterface {
		con.key = topic.Key
	} else {
		con.queueKey = keys.QueueKey
		con.topicKey = keys.TopicKey
	}

	// the restricted grant of the subscription is not in place without the flag
	if keys.UseDeprecatedInterface || !bwcdkutil.FeatureFlagEnabled(scope, RestrictSqsDecryptionFlag) {
		if key := con.queue.EncryptionMasterKey(); key != nil {
			key.Grant(awsiam.NewServicePrincipal(jsii.String("sns.amazonaws.com"), nil),
				jsii.String("kms:Decrypt"),
				jsii.String("kms:GenerateDataKey*"),
			)
		}
	}

	return con
}

func (c *snsToSqs) SnsTopic() awssns.Topic { return c.topic }
func (c *snsToSqs) SqsQueue() awssqs.Queue { return c.queue }
func (c *snsToSqs) DeadLetterQueue() *awssqs.DeadLetterQueue { return c.dlq }
func (c *snsToSqs) QueueEncryptionKey() awskms.IKey { return c.queueKey }
func (c *snsToSqs) TopicEncryptionKey() awskms.IKey { return c.topicKey }
func (c *snsToSqs) EncryptionKey() awskms.IKey { return c.key }

// RequiredKeys is the outcome of CreateRequiredKeys.
type RequiredKeys struct {
	UseDeprecatedInterface bool
	// SingleKey encrypts both topic and queue under the deprecated props.
	SingleKey           awskms.IKey
	QueueKey            awskms.IKey
	TopicKey            awskms.IKey
	EncryptQueueWithCmk bool
	EncryptTopicWithCmk bool
}

// CreateRequiredKeys decides which customer managed keys the construct needs and
// creates the ones that are not provided. Keys are created in scope, their ids are
// prefixed with id.
func CreateRequiredKeys(scope constructs.Construct, id string, props Props) RequiredKeys {
	var keys RequiredKeys

	// explicit key props pick the interface, the flag only decides when none are set
	keys.UseDeprecatedInterface = usesDeprecatedKeyProps(props) ||
		(!usesKeyProps(props) && !bwcdkutil.FeatureFlagEnabled(scope, RestrictSqsDecryptionFlag))

	queueMasterKey := props.QueueProps != nil && props.QueueProps.EncryptionMasterKey != nil
	topicMasterKey := props.TopicProps != nil && props.TopicProps.MasterKey != nil

	if keys.UseDeprecatedInterface {
		enabled := props.EnableEncryptionWithCustomerManagedKey == nil || *props.EnableEncryptionWithCustomerManagedKey

		keys.EncryptQueueWithCmk = enabled && props.ExistingQueueObj == nil && !queueMasterKey
		keys.EncryptTopicWithCmk = enabled && props.ExistingTopicObj == nil && !topicMasterKey

		if enabled {
			if props.EncryptionKey != nil {
				keys.SingleKey = props.EncryptionKey
			} else {
				keys.SingleKey = bwcdkkms.BuildEncryptionKey(scope, id+"EncryptionKey", props.EncryptionKeyProps)
			}
		}
		if keys.EncryptQueueWithCmk {
			keys.QueueKey = keys.SingleKey
		}
		if keys.EncryptTopicWithCmk {
			keys.TopicKey = keys.SingleKey
		}

		return keys
	}

	keys.EncryptQueueWithCmk = !queueMasterKey && props.ExistingQueueObj == nil &&
		(props.EncryptQueueWithCmk == nil || *props.EncryptQueueWithCmk)
	keys.EncryptTopicWithCmk = !topicMasterKey && props.ExistingTopicObj == nil &&
		(props.EncryptTopicWithCmk == nil || *props.EncryptTopicWithCmk)

	if keys.EncryptQueueWithCmk {
		if props.ExistingQueueEncryptionKey != nil {
			keys.QueueKey = props.ExistingQueueEncryptionKey
		} else {
			keys.QueueKey = bwcdkkms.BuildEncryptionKey(scope, id+"QueueKey", props.QueueEncryptionKeyProps)
		}
	}
	if keys.EncryptTopicWithCmk {
		if props.ExistingTopicEncryptionKey != nil {
			keys.TopicKey = props.ExistingTopicEncryptionKey
		} else {
			keys.TopicKey = bwcdkkms.BuildEncryptionKey(scope, id+"TopicKey", props.TopicEncryptionKeyProps)
		}
	}

	return keys
}

func usesDeprecatedKeyProps(props Props) bool {
	return props.EnableEncryptionWithCustomerManagedKey != nil ||
		props.EncryptionKey != nil ||
		props.EncryptionKeyProps != nil
}

func usesKeyProps(props Props) bool {
	return props.EncryptQueueWithCmk != nil ||
		props.EncryptTopicWithCmk != nil ||
		props.QueueEncryptionKeyProps != nil ||
		props.TopicEncryptionKeyProps != nil ||
		props.ExistingQueueEncryptionKey != nil ||
		props.ExistingTopicEncryptionKey != nil
}

// CheckSnsToSqsProps validates the key related props of the construct.
func CheckSnsToSqsProps(props Props) error {
	var c bwcdkutil.Checker
	c.Add(bwcdksns.CheckSnsProps(bwcdksns.SnsProps{
		ExistingTopicObj:   props.ExistingTopicObj,
		TopicProps:         props.TopicProps,
		EncryptionKey:      props.EncryptionKey,
		EncryptionKeyProps: props.EncryptionKeyProps,
	}))
	c.Add(bwcdksqs.CheckSqsProps(bwcdksqs.SqsProps{
		ExistingQueueObj:      props.ExistingQueueObj,
		QueueProps:            props.QueueProps,
		DeployDeadLetterQueue: props.DeployDeadLetterQueue,
		DeadLetterQueueProps:  props.DeadLetterQueueProps,
	}))

	deprecated := usesDeprecatedKeyProps(props)
	if deprecated && usesKeyProps(props) {
		c.Fail("Cannot specify both deprecated key props and new key props")
	}

	if props.EnableEncryptionWithCustomerManagedKey != nil && !*props.EnableEncryptionWithCustomerManagedKey &&
		(props.EncryptionKey != nil || props.EncryptionKeyProps != nil) {
		c.Fail("if enableEncryptionWithCustomerManagedKey is false, submitting encryptionKey or encryptionKeyProps is invalid")
	}

	var queueMasterKey awskms.IKey
	if props.QueueProps != nil {
		queueMasterKey = props.QueueProps.EncryptionMasterKey
	}
	c.Exclusive(props.ExistingQueueEncryptionKey, props.QueueEncryptionKeyProps,
		"Either provide existingQueueEncryptionKey or queueEncryptionKeyProps, but not both.")
	c.Exclusive(queueMasterKey, props.ExistingQueueEncryptionKey,
		"Either provide queueProps.encryptionMasterKey or existingQueueEncryptionKey, but not both.")
	c.Exclusive(queueMasterKey, props.QueueEncryptionKeyProps,
		"Either provide queueProps.encryptionMasterKey or queueEncryptionKeyProps, but not both.")

	var topicMasterKey awskms.IKey
	if props.TopicProps != nil {
		topicMasterKey = props.TopicProps.MasterKey
	}
	c.Exclusive(props.ExistingTopicEncryptionKey, props.TopicEncryptionKeyProps,
		"Either provide existingTopicEncryptionKey or topicEncryptionKeyProps, but not both.")
	c.Exclusive(topicMasterKey, props.ExistingTopicEncryptionKey,
		"Either provide topicProps.masterKey or existingTopicEncryptionKey, but not both.")
	c.Exclusive(topicMasterKey, props.TopicEncryptionKeyProps,
		"Either provide topicProps.masterKey or topicEncryptionKeyProps, but not both.")

	if props.EncryptTopicWithCmk != nil && !*props.EncryptTopicWithCmk {
		if props.TopicEncryptionKeyProps != nil {
			c.Fail("if encryptTopicWithCmk is false, submitting topicEncryptionKeyProps is invalid")
		}
		if props.ExistingTopicEncryptionKey != nil {
			c.Fail("if encryptTopicWithCmk is false, submitting existingTopicEncryptionKey is invalid")
		}
	}
	if props.EncryptQueueWithCmk != nil && !*props.EncryptQueueWithCmk {
		if props.QueueEncryptionKeyProps != nil {
			c.Fail("if encryptQueueWithCmk is false, submitting queueEncryptionKeyProps is invalid")
		}
		if props.ExistingQueueEncryptionKey != nil {
			c.Fail("if encryptQueueWithCmk is false, submitting existingQueueEncryptionKey is invalid")
		}
	}

	if !deprecated && props.QueueProps != nil && props.QueueProps.Encryption != "" {
		c.Fail("The new interface of SnsToSqs does not support queueProps.encryption, " +
			"use encryptQueueWithCmk and queueEncryptionKeyProps instead")
	}

	return c.Err()
}
