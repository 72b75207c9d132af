//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdksqs_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdksqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStack(ctx map[string]any) awscdk.Stack {
	var props *awscdk.AppProps
	if ctx != nil {
		props = &awscdk.AppProps{Context: &ctx}
	}
	return awscdk.NewStack(awscdk.NewApp(props), jsii.String("TestStack"), nil)
}

func TestBuildQueue_Defaults(t *testing.T) {
	defer jsii.Close()

	stack := newStack(nil)
	resp := bwcdksqs.BuildQueue(stack, "Queue", bwcdksqs.BuildQueueProps{})
	require.NotNil(t, resp.Queue)
	assert.Nil(t, resp.Key)

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::KMS::Key"), jsii.Number(0))
	template.HasResourceProperties(jsii.String("AWS::SQS::Queue"), map[string]any{
		"KmsMasterKeyId": "alias/aws/sqs",
	})
	template.HasResourceProperties(jsii.String("AWS::SQS::QueuePolicy"), map[string]any{
		"PolicyDocument": map[string]any{
			"Statement": []any{
				assertions.Match_ObjectLike(&map[string]any{
					"Sid":    "QueueOwnerOnlyAccess",
					"Effect": "Allow",
				}),
				assertions.Match_ObjectLike(&map[string]any{
					"Sid":       "HttpsOnly",
					"Effect":    "Deny",
					"Action":    "SQS:*",
					"Condition": map[string]any{"Bool": map[string]any{"aws:SecureTransport": "false"}},
				}),
			},
		},
	})
}

func TestBuildQueue_SqsManagedEncryptionFlag(t *testing.T) {
	defer jsii.Close()

	stack := newStack(map[string]any{bwcdksqs.QueueUseSSEFlag: true})
	bwcdksqs.BuildQueue(stack, "Queue", bwcdksqs.BuildQueueProps{})

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::SQS::Queue"), map[string]any{
		"SqsManagedSseEnabled": true,
		"KmsMasterKeyId":       assertions.Match_Absent(),
	})
}

func TestBuildQueue_CustomerManagedKey(t *testing.T) {
	defer jsii.Close()

	stack := newStack(nil)
	resp := bwcdksqs.BuildQueue(stack, "Queue", bwcdksqs.BuildQueueProps{
		EnableEncryptionWithCustomerManagedKey: jsii.Bool(true),
	})
	require.NotNil(t, resp.Key)

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::KMS::Key"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::SQS::Queue"), map[string]any{
		"KmsMasterKeyId": map[string]any{
			"Fn::GetAtt": []any{assertions.Match_StringLikeRegexp(jsii.String("QueueKey")), "Arn"},
		},
	})
}

func TestBuildQueue_ExistingKey(t *testing.T) {
	defer jsii.Close()

	stack := newStack(nil)
	key := awskms.NewKey(stack, jsii.String("MyKey"), nil)
	resp := bwcdksqs.BuildQueue(stack, "Queue", bwcdksqs.BuildQueueProps{EncryptionKey: key})
	assert.Equal(t, key, resp.Key)

	assertions.Template_FromStack(stack, nil).ResourceCountIs(jsii.String("AWS::KMS::Key"), jsii.Number(1))
}

func TestBuildQueue_Existing(t *testing.T) {
	defer jsii.Close()

	stack := newStack(nil)
	existing := awssqs.NewQueue(stack, jsii.String("Existing"), nil)
	resp := bwcdksqs.BuildQueue(stack, "Queue", bwcdksqs.BuildQueueProps{ExistingQueueObj: existing})
	assert.Equal(t, existing, resp.Queue)

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::SQS::Queue"), jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::SQS::QueuePolicy"), jsii.Number(0))
}

func TestBuildDeadLetterQueue(t *testing.T) {
	defer jsii.Close()

	t.Run("default", func(t *testing.T) {
		stack := newStack(nil)
		dlq := bwcdksqs.BuildDeadLetterQueue(stack, "", bwcdksqs.BuildDeadLetterQueueProps{})
		require.NotNil(t, dlq)
		assert.InDelta(t, bwcdksqs.DefaultMaxReceiveCount, *dlq.MaxReceiveCount, 0)

		bwcdksqs.BuildQueue(stack, "Queue", bwcdksqs.BuildQueueProps{DeadLetterQueue: dlq})

		template := assertions.Template_FromStack(stack, nil)
		template.ResourceCountIs(jsii.String("AWS::SQS::Queue"), jsii.Number(2))
		template.HasResourceProperties(jsii.String("AWS::SQS::Queue"), map[string]any{
			"RedrivePolicy": map[string]any{
				"maxReceiveCount": 15,
			},
		})
	})

	t.Run("disabled", func(t *testing.T) {
		stack := newStack(nil)
		dlq := bwcdksqs.BuildDeadLetterQueue(stack, "", bwcdksqs.BuildDeadLetterQueueProps{
			DeployDeadLetterQueue: jsii.Bool(false),
		})
		assert.Nil(t, dlq)
	})

	t.Run("existing primary queue", func(t *testing.T) {
		stack := newStack(nil)
		dlq := bwcdksqs.BuildDeadLetterQueue(stack, "", bwcdksqs.BuildDeadLetterQueueProps{
			ExistingQueueObj: awssqs.NewQueue(stack, jsii.String("Existing"), nil),
		})
		assert.Nil(t, dlq)
	})
}

func TestBuildDeadLetterQueueAlarm(t *testing.T) {
	defer jsii.Close()

	stack := newStack(nil)
	dlq := bwcdksqs.BuildDeadLetterQueue(stack, "", bwcdksqs.BuildDeadLetterQueueProps{})
	bwcdksqs.BuildDeadLetterQueueAlarm(stack, "DlqAlarm", dlq.Queue)

	assertions.Template_FromStack(stack, nil).HasResourceProperties(jsii.String("AWS::CloudWatch::Alarm"),
		map[string]any{
			"MetricName":         "ApproximateNumberOfMessagesVisible",
			"Threshold":          1,
			"ComparisonOperator": "GreaterThanOrEqualToThreshold",
		})
}

func TestCheckSqsProps(t *testing.T) {
	defer jsii.Close()

	stack := newStack(nil)
	key := awskms.NewKey(stack, jsii.String("Key"), nil)

	tests := []struct {
		name  string
		props bwcdksqs.SqsProps
		want  string
	}{
		{name: "empty"},
		{
			name: "master key and encryption key",
			props: bwcdksqs.SqsProps{
				QueueProps:    &awssqs.QueueProps{EncryptionMasterKey: key},
				EncryptionKey: key,
			},
			want: "Error - Either provide queueProps.encryptionMasterKey or encryptionKey, but not both.\n",
		},
		{
			name: "master key and key props",
			props: bwcdksqs.SqsProps{
				QueueProps:         &awssqs.QueueProps{EncryptionMasterKey: key},
				EncryptionKeyProps: &awskms.KeyProps{},
			},
			want: "Error - Either provide queueProps.encryptionMasterKey or encryptionKeyProps, but not both.\n",
		},
		{
			name: "fifo queue with standard dead letter queue",
			props: bwcdksqs.SqsProps{
				QueueProps: &awssqs.QueueProps{Fifo: jsii.Bool(true)},
			},
			want: "Error - If you specify a fifo: true in either queueProps or deadLetterQueueProps, " +
				"you must also set fifo: true in the other props object. " +
				"Fifo must match for the Queue and the Dead Letter Queue.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bwcdksqs.CheckSqsProps(tt.props)
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.want)
		})
	}
}
