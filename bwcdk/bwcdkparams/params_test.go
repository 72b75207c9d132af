//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdkparams_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsssm"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkparams"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterName(t *testing.T) {
	defer jsii.Close()

	stack := awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), nil)
	assert.Equal(t, "/bwsc/dynamo/table-name", *bwcdkparams.ParameterName(stack, "dynamo", "table-name"))

	app := awscdk.NewApp(nil)
	bwcdkutil.StoreConfig(app, &bwcdkutil.Config{Qualifier: "myapp"})
	stack = awscdk.NewStack(app, jsii.String("TestStack"), nil)
	assert.Equal(t, "/myapp/dynamo/table-name", *bwcdkparams.ParameterName(stack, "dynamo", "table-name"))
}

func TestStoreAndLookup(t *testing.T) {
	defer jsii.Close()

	stack := awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), nil)
	bwcdkparams.Store(stack, "TableNameParam", "dynamo", "table-name", jsii.String("my-table"))
	bwcdkparams.Lookup(stack, "LookupTableName", "dynamo", "table-name", "table-name-lookup", "eu-west-1")

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::SSM::Parameter"), map[string]any{
		"Name":  "/bwsc/dynamo/table-name",
		"Type":  "String",
		"Value": "my-table",
	})
	template.ResourceCountIs(jsii.String("Custom::AWS"), jsii.Number(1))
}

func TestBuildSsmStringParameter_RequiresValue(t *testing.T) {
	defer jsii.Close()

	stack := awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), nil)
	require.Panics(t, func() {
		bwcdkparams.BuildSsmStringParameter(stack, "Param", &awsssm.StringParameterProps{})
	})
}
