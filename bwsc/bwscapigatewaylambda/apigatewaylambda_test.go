//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwscapigatewaylambda_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigateway"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkapigateway"
	"github.com/basewarphq/bwsc/bwsc/bwscapigatewaylambda"
	"github.com/basewarphq/bwsc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	defer jsii.Close()

	stack := testutil.NewStack(nil)
	pattern := bwscapigatewaylambda.New(stack, "ApiGatewayToLambda", bwscapigatewaylambda.Props{
		LambdaFunctionProps: testutil.InlineFunctionProps(),
	})

	require.NotNil(t, pattern.ApiGateway())
	require.NotNil(t, pattern.LambdaFunction())
	require.NotNil(t, pattern.ApiGatewayLogGroup())
	require.NotNil(t, pattern.ApiGatewayCloudWatchRole())
	require.NotNil(t, pattern.UsagePlan())
	assert.Nil(t, pattern.AuthorizerFunction())
	assert.Nil(t, pattern.DomainName())

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::ApiGateway::RestApi"), map[string]any{
		"EndpointConfiguration": map[string]any{"Types": []any{"EDGE"}},
	})
	template.ResourceCountIs(jsii.String("AWS::ApiGateway::Method"), jsii.Number(2))
	template.HasResourceProperties(jsii.String("AWS::ApiGateway::Method"), map[string]any{
		"HttpMethod":        "ANY",
		"AuthorizationType": "AWS_IAM",
	})
	template.ResourceCountIs(jsii.String("AWS::ApiGateway::UsagePlan"), jsii.Number(1))
}

func TestNew_PublicRoutesWithAuthorizer(t *testing.T) {
	defer jsii.Close()

	stack := testutil.NewStack(nil)
	pattern := bwscapigatewaylambda.New(stack, "ApiGatewayToLambda", bwscapigatewaylambda.Props{
		LambdaFunctionProps: testutil.InlineFunctionProps(),
		EndpointType:        awsapigateway.EndpointType_REGIONAL,
		CreateUsagePlan:     jsii.Bool(false),
		PublicRoutes:        []string{"/api/{proxy+}", "/health"},
		Authorizer: &bwscapigatewaylambda.AuthorizerProps{
			LambdaFunctionProps: testutil.InlineFunctionProps(),
		},
	})
	require.NotNil(t, pattern.AuthorizerFunction())
	assert.Nil(t, pattern.UsagePlan())

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::ApiGateway::RestApi"), map[string]any{
		"EndpointConfiguration": map[string]any{"Types": []any{"REGIONAL"}},
	})
	template.ResourceCountIs(jsii.String("AWS::Lambda::Function"), jsii.Number(2))
	template.ResourceCountIs(jsii.String("AWS::ApiGateway::Method"), jsii.Number(2))
	template.HasResourceProperties(jsii.String("AWS::ApiGateway::Method"), map[string]any{
		"HttpMethod":        "ANY",
		"AuthorizationType": "CUSTOM",
	})
	template.HasResourceProperties(jsii.String("AWS::ApiGateway::Resource"), map[string]any{
		"PathPart": "{proxy+}",
	})
	template.HasResourceProperties(jsii.String("AWS::ApiGateway::Authorizer"), map[string]any{
		"Type":                         "TOKEN",
		"AuthorizerResultTtlInSeconds": 300,
	})
}

func TestNew_PublicRoutesWithoutAuthorizer(t *testing.T) {
	defer jsii.Close()

	stack := testutil.NewStack(nil)
	pattern := bwscapigatewaylambda.New(stack, "ApiGatewayToLambda", bwscapigatewaylambda.Props{
		LambdaFunctionProps: testutil.InlineFunctionProps(),
		PublicRoutes:        []string{"/items"},
	})
	assert.Nil(t, pattern.AuthorizerFunction())

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::ApiGateway::Authorizer"), jsii.Number(0))
	template.ResourceCountIs(jsii.String("AWS::ApiGateway::Method"), jsii.Number(3))
	template.HasResourceProperties(jsii.String("AWS::ApiGateway::Resource"), map[string]any{
		"PathPart": "items",
	})
	template.HasResourceProperties(jsii.String("AWS::ApiGateway::Method"), map[string]any{
		"HttpMethod":        "ANY",
		"AuthorizationType": "NONE",
		"AuthorizerId":      assertions.Match_Absent(),
	})
	template.HasResourceProperties(jsii.String("AWS::ApiGateway::Method"), map[string]any{
		"HttpMethod":        "ANY",
		"AuthorizationType": "AWS_IAM",
	})
}

func TestCheckApiGatewayToLambdaProps(t *testing.T) {
	defer jsii.Close()

	require.ErrorIs(t, bwscapigatewaylambda.CheckApiGatewayToLambdaProps(bwscapigatewaylambda.Props{
		ApiGatewayProps: &awsapigateway.LambdaRestApiProps{
			EndpointTypes: &[]awsapigateway.EndpointType{awsapigateway.EndpointType_EDGE},
		},
	}), bwcdkapigateway.ErrEndpointTypes)

	require.EqualError(t, bwscapigatewaylambda.CheckApiGatewayToLambdaProps(bwscapigatewaylambda.Props{
		Authorizer: &bwscapigatewaylambda.AuthorizerProps{},
	}), "Error - authorizer requires publicRoutes\n"+
		"Error - authorizer must have exactly one of lambdaFunctionProps or existingLambdaObj\n")

	stack := testutil.NewStack(nil)
	fn := awslambda.NewFunction(stack, jsii.String("Existing"), testutil.InlineFunctionProps())
	err := bwscapigatewaylambda.CheckApiGatewayToLambdaProps(bwscapigatewaylambda.Props{
		ExistingLambdaObj:   fn,
		LambdaFunctionProps: testutil.InlineFunctionProps(),
		ApiGatewayProps: &awsapigateway.LambdaRestApiProps{
			EndpointTypes: &[]awsapigateway.EndpointType{awsapigateway.EndpointType_EDGE},
		},
		Authorizer: &bwscapigatewaylambda.AuthorizerProps{},
	})
	require.ErrorIs(t, err, bwcdkapigateway.ErrEndpointTypes)
	require.EqualError(t, err, "Error - Either provide lambdaFunctionProps or existingLambdaObj, but not both.\n"+
		"Error - "+bwcdkapigateway.ErrEndpointTypes.Error()+"\n"+
		"Error - authorizer requires publicRoutes\n"+
		"Error - authorizer must have exactly one of lambdaFunctionProps or existingLambdaObj\n")
}
