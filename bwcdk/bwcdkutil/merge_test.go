//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdkutil_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolidateProps(t *testing.T) {
	defer jsii.Close()

	defaults := &awssqs.QueueProps{
		Encryption:             awssqs.QueueEncryption_KMS_MANAGED,
		Fifo:                   jsii.Bool(true),
		MaxMessageSizeBytes:    jsii.Number(1024),
		ReceiveMessageWaitTime: awscdk.Duration_Seconds(jsii.Number(20)),
	}
	user := &awssqs.QueueProps{
		Fifo:      jsii.Bool(false),
		QueueName: jsii.String("user-queue"),
	}
	construct := &awssqs.QueueProps{
		MaxMessageSizeBytes: jsii.Number(2048),
	}

	got := bwcdkutil.ConsolidateProps(nil, defaults, user, construct)

	assert.Equal(t, awssqs.QueueEncryption_KMS_MANAGED, got.Encryption)
	assert.False(t, *got.Fifo, "an explicit false must override a true default")
	assert.Equal(t, "user-queue", *got.QueueName)
	assert.InDelta(t, 2048, *got.MaxMessageSizeBytes, 0)
	assert.NotNil(t, got.ReceiveMessageWaitTime)

	// inputs are left untouched
	assert.True(t, *defaults.Fifo)
	assert.InDelta(t, 1024, *defaults.MaxMessageSizeBytes, 0)
}

func TestConsolidatePropsMergesNestedStructsAndMaps(t *testing.T) {
	defer jsii.Close()

	type nested struct {
		Name *string
		Size *float64
	}
	type props struct {
		Nested *nested
		Env    *map[string]*string
		List   *[]*string
	}

	defaults := &props{
		Nested: &nested{Name: jsii.String("default"), Size: jsii.Number(1)},
		Env:    &map[string]*string{"A": jsii.String("1"), "B": jsii.String("2")},
		List:   &[]*string{jsii.String("a"), jsii.String("b")},
	}
	user := &props{
		Nested: &nested{Size: jsii.Number(2)},
		Env:    &map[string]*string{"B": jsii.String("3")},
		List:   &[]*string{jsii.String("c")},
	}

	got := bwcdkutil.ConsolidateProps(nil, defaults, user, nil)

	require.NotNil(t, got.Nested)
	assert.Equal(t, "default", *got.Nested.Name)
	assert.InDelta(t, 2, *got.Nested.Size, 0)
	assert.Equal(t, "1", *(*got.Env)["A"])
	assert.Equal(t, "3", *(*got.Env)["B"])
	require.Len(t, *got.List, 1, "slices are replaced, not concatenated")
	assert.Equal(t, "c", *(*got.List)[0])

	assert.InDelta(t, 1, *defaults.Nested.Size, 0)
	assert.Equal(t, "2", *(*defaults.Env)["B"])
}

func TestConsolidatePropsWarnsAboutOverrides(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	stack := awscdk.NewStack(app, jsii.String("TestStack"), nil)

	bwcdkutil.ConsolidateProps(stack,
		&awssqs.QueueProps{QueueName: jsii.String("default-name")},
		&awssqs.QueueProps{QueueName: jsii.String("user-name")},
		nil)

	annotations := assertions.Annotations_FromStack(stack)
	annotations.HasWarning(jsii.String("*"), assertions.Match_StringLikeRegexp(jsii.String(
		"An override has been provided for the property: queueName. "+
			"Default value: 'default-name'. You provided: 'user-name'.")))
}

func TestConsolidatePropsWarningsCanBeDisabled(t *testing.T) {
	defer jsii.Close()

	t.Setenv("overrideWarningsEnabled", "false")

	app := awscdk.NewApp(nil)
	stack := awscdk.NewStack(app, jsii.String("TestStack"), nil)

	bwcdkutil.ConsolidateProps(stack,
		&awssqs.QueueProps{QueueName: jsii.String("default-name")},
		&awssqs.QueueProps{QueueName: jsii.String("user-name")},
		nil)

	assertions.Annotations_FromStack(stack).HasNoWarning(jsii.String("*"), assertions.Match_AnyValue())
}
