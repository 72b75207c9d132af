//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwsclambdadynamodb_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkdynamo"
	"github.com/basewarphq/bwsc/bwsc/bwsclambdadynamodb"
	"github.com/basewarphq/bwsc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	defer jsii.Close()

	stack := testutil.NewStack(nil)
	pattern := bwsclambdadynamodb.New(stack, "LambdaToDynamoDB", bwsclambdadynamodb.Props{
		LambdaFunctionProps: testutil.InlineFunctionProps(),
	})

	require.NotNil(t, pattern.LambdaFunction())
	require.NotNil(t, pattern.DynamoTable())
	require.NotNil(t, pattern.DynamoTableInterface())
	assert.Nil(t, pattern.Vpc())

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::DynamoDB::Table"), map[string]any{
		"BillingMode": "PAY_PER_REQUEST",
		"KeySchema":   []any{map[string]any{"AttributeName": "id", "KeyType": "HASH"}},
		"PointInTimeRecoverySpecification": map[string]any{
			"PointInTimeRecoveryEnabled": true,
		},
	})
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]any{
		"Environment": map[string]any{
			"Variables": assertions.Match_ObjectLike(&map[string]any{
				"DDB_TABLE_NAME": map[string]any{
					"Ref": assertions.Match_StringLikeRegexp(jsii.String("^LambdaToDynamoDBDynamoTable")),
				},
			}),
		},
	})
	template.HasResourceProperties(jsii.String("AWS::IAM::Policy"), map[string]any{
		"PolicyDocument": map[string]any{
			"Statement": assertions.Match_ArrayWith(&[]any{
				assertions.Match_ObjectLike(&map[string]any{
					"Action": assertions.Match_ArrayWith(&[]any{"dynamodb:PutItem"}),
				}),
			}),
		},
	})
}

func TestNew_ExistingTableReadOnlyInVpc(t *testing.T) {
	defer jsii.Close()

	stack := testutil.NewStack(nil)
	table := awsdynamodb.NewTable(stack, jsii.String("Table"), &awsdynamodb.TableProps{
		PartitionKey: &awsdynamodb.Attribute{Name: jsii.String("pk"), Type: awsdynamodb.AttributeType_STRING},
	})
	pattern := bwsclambdadynamodb.New(stack, "LambdaToDynamoDB", bwsclambdadynamodb.Props{
		LambdaFunctionProps:          testutil.InlineFunctionProps(),
		ExistingTableObj:             table,
		TablePermissions:             bwcdkdynamo.TablePermissionRead,
		TableEnvironmentVariableName: jsii.String("TABLE"),
		DeployVpc:                    jsii.Bool(true),
	})
	assert.Equal(t, table, pattern.DynamoTableInterface())
	require.NotNil(t, pattern.Vpc())

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::DynamoDB::Table"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::EC2::VPCEndpoint"), map[string]any{
		"VpcEndpointType": "Gateway",
	})
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]any{
		"Environment": map[string]any{
			"Variables": assertions.Match_ObjectLike(&map[string]any{
				"TABLE": assertions.Match_AnyValue(),
			}),
		},
	})
	template.HasResourceProperties(jsii.String("AWS::IAM::Policy"), map[string]any{
		"PolicyDocument": map[string]any{
			"Statement": assertions.Match_ArrayWith(&[]any{
				assertions.Match_ObjectLike(&map[string]any{
					"Action": assertions.Match_ArrayWith(&[]any{"dynamodb:GetItem"}),
				}),
			}),
		},
	})
}

func TestCheckLambdaToDynamoDBProps(t *testing.T) {
	defer jsii.Close()

	require.NoError(t, bwsclambdadynamodb.CheckLambdaToDynamoDBProps(bwsclambdadynamodb.Props{
		LambdaFunctionProps: testutil.InlineFunctionProps(),
	}))
	require.EqualError(t, bwsclambdadynamodb.CheckLambdaToDynamoDBProps(bwsclambdadynamodb.Props{
		LambdaFunctionProps: testutil.InlineFunctionProps(),
		TablePermissions:    "Delete",
	}), "Error - Invalid table permission submitted - Delete\n")
}
