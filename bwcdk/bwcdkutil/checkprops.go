package bwcdkutil

import (
	"reflect"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsmediastore"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssagemaker"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/cockroachdb/errors"
)

// VerifiedProps is the superset of props that CheckProps knows how to cross check.
// Constructs fill in the fields they accept and leave the rest empty.
type VerifiedProps struct {
	LambdaFunctionProps *awslambda.FunctionProps
	ExistingLambdaObj   awslambda.IFunction

	QueueProps            *awssqs.QueueProps
	ExistingQueueObj      awssqs.IQueue
	DeployDeadLetterQueue *bool
	DeadLetterQueueProps  *awssqs.QueueProps

	MediaStoreContainerProps       *awsmediastore.CfnContainerProps
	ExistingMediaStoreContainerObj awsmediastore.CfnContainer

	BucketProps       *awss3.BucketProps
	ExistingBucketObj awss3.IBucket

	TopicProps       *awssns.TopicProps
	ExistingTopicObj awssns.ITopic

	EndpointProps                *awssagemaker.CfnEndpointProps
	ExistingSagemakerEndpointObj awssagemaker.CfnEndpoint

	ExistingVpc awsec2.IVpc
	VpcProps    *awsec2.VpcProps
	DeployVpc   *bool

	EncryptionKey      awskms.IKey
	EncryptionKeyProps *awskms.KeyProps

	ExistingTableObj awsdynamodb.ITable
	DynamoTableProps *awsdynamodb.TableProps

	ExistingSecretObj awssecretsmanager.ISecret
	SecretProps       *awssecretsmanager.SecretProps
}

// CheckProps validates the combination of props a construct received. Every
// violated rule contributes one line to the returned error.
func CheckProps(props VerifiedProps) error {
	var c Checker

	c.Exclusive(props.DynamoTableProps, props.ExistingTableObj,
		"Either provide existingTableObj or dynamoTableProps, but not both.")
	c.Exclusive(props.ExistingLambdaObj, props.LambdaFunctionProps,
		"Either provide lambdaFunctionProps or existingLambdaObj, but not both.")
	c.Exclusive(props.ExistingQueueObj, props.QueueProps,
		"Either provide queueProps or existingQueueObj, but not both.")

	if props.DeployDeadLetterQueue != nil && !*props.DeployDeadLetterQueue && props.DeadLetterQueueProps != nil {
		c.Fail("If deployDeadLetterQueue is false then deadLetterQueueProps cannot be specified.")
	}

	deployDeadLetterQueue := props.DeployDeadLetterQueue == nil || *props.DeployDeadLetterQueue
	if deployDeadLetterQueue && isFifo(props.QueueProps) != isFifo(props.DeadLetterQueueProps) {
		c.Fail("If you specify a fifo: true in either queueProps or deadLetterQueueProps, " +
			"you must also set fifo: true in the other props object. " +
			"Fifo must match for the Queue and the Dead Letter Queue.")
	}

	c.Exclusive(props.ExistingMediaStoreContainerObj, props.MediaStoreContainerProps,
		"Either provide mediaStoreContainerProps or existingMediaStoreContainerObj, but not both.")
	c.Exclusive(props.ExistingBucketObj, props.BucketProps,
		"Either provide bucketProps or existingBucketObj, but not both.")
	c.Exclusive(props.TopicProps, props.ExistingTopicObj,
		"Either provide topicProps or existingTopicObj, but not both.")
	c.Exclusive(props.ExistingSagemakerEndpointObj, props.EndpointProps,
		"Either provide endpointProps or existingSagemakerEndpointObj, but not both.")
	c.Exclusive(props.ExistingSecretObj, props.SecretProps,
		"Either provide secretProps or existingSecretObj, but not both.")

	if (props.DeployVpc != nil && *props.DeployVpc || props.VpcProps != nil) && props.ExistingVpc != nil {
		c.Fail("Either provide an existingVpc or some combination of deployVpc and vpcProps, but not both.")
	}

	c.Exclusive(props.EncryptionKey, props.EncryptionKeyProps,
		"Either provide encryptionKey or encryptionKeyProps, but not both.")

	return c.Err()
}

func isFifo(props *awssqs.QueueProps) bool {
	return props != nil && props.Fifo != nil && *props.Fifo
}

// Checker accumulates validation failures so that all of them are reported at once.
type Checker struct {
	msgs   []string
	causes []error
}

// Fail records a failed rule.
func (c *Checker) Fail(msg string) {
	c.msgs = append(c.msgs, "Error - "+msg+"\n")
}

// Exclusive records msg when both a and b are set.
func (c *Checker) Exclusive(a, b any, msg string) {
	if IsSet(a) && IsSet(b) {
		c.Fail(msg)
	}
}

// Add records the failures of a nested check. Sentinel errors stay matchable
// with errors.Is on the result of Err.
func (c *Checker) Add(err error) {
	if err == nil {
		return
	}
	var nested *CheckError
	if errors.As(err, &nested) {
		c.msgs = append(c.msgs, nested.msgs...)
		c.causes = append(c.causes, nested.causes...)
		return
	}
	c.Fail(err.Error())
	c.causes = append(c.causes, err)
}

// Failed reports whether any rule failed so far.
func (c *Checker) Failed() bool { return len(c.msgs) > 0 }

// Err returns nil when every rule passed, otherwise an error listing each failure.
func (c *Checker) Err() error {
	if len(c.msgs) == 0 {
		return nil
	}
	return &CheckError{msgs: c.msgs, causes: c.causes}
}

// CheckError is the error returned by Checker.Err, one "Error - " line per failed rule.
type CheckError struct {
	msgs   []string
	causes []error
}

func (e *CheckError) Error() string   { return strings.Join(e.msgs, "") }
func (e *CheckError) Unwrap() []error { return e.causes }

// IsSet reports whether an optional prop was provided: it is not nil and, for
// pointers, interfaces, maps and slices, the value it holds is not nil either.
func IsSet(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return !rv.IsNil()
	default:
		return true
	}
}

// MustCheck panics when err is not nil. Construct constructors use it to surface
// validation errors the way synthesis errors are surfaced.
func MustCheck(err error) {
	if err != nil {
		panic(err)
	}
}
