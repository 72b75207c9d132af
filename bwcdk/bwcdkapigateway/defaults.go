package bwcdkapigateway

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigateway"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// DefaultStageOptions enables JSON access logging to logGroup, INFO execution
// logging without request data, and X-Ray tracing.
func DefaultStageOptions(logGroup awslogs.ILogGroup) *awsapigateway.StageOptions {
	return &awsapigateway.StageOptions{
		AccessLogDestination: awsapigateway.NewLogGroupLogDestination(logGroup),
		AccessLogFormat:      awsapigateway.AccessLogFormat_JsonWithStandardFields(nil),
		LoggingLevel:         awsapigateway.MethodLoggingLevel_INFO,
		DataTraceEnabled:     jsii.Bool(false),
		TracingEnabled:       jsii.Bool(true),
	}
}

// DefaultRestApiProps returns the defaults of a REST API with the given endpoint type.
// Methods require IAM authorization unless includeAuth is false.
func DefaultRestApiProps(endpointType awsapigateway.EndpointType, logGroup awslogs.ILogGroup, includeAuth bool) *awsapigateway.RestApiProps {
	return &awsapigateway.RestApiProps{
		EndpointConfiguration: &awsapigateway.EndpointConfiguration{
			Types: &[]awsapigateway.EndpointType{endpointType},
		},
		CloudWatchRole:       jsii.Bool(false),
		DeployOptions:        DefaultStageOptions(logGroup),
		DefaultMethodOptions: defaultMethodOptions(includeAuth),
	}
}

// DefaultGlobalRestApiProps returns the defaults of an edge optimized REST API.
func DefaultGlobalRestApiProps(logGroup awslogs.ILogGroup) *awsapigateway.RestApiProps {
	return DefaultRestApiProps(awsapigateway.EndpointType_EDGE, logGroup, true)
}

// DefaultRegionalRestApiProps returns the defaults of a regional REST API.
func DefaultRegionalRestApiProps(logGroup awslogs.ILogGroup) *awsapigateway.RestApiProps {
	return DefaultRestApiProps(awsapigateway.EndpointType_REGIONAL, logGroup, true)
}

// DefaultLambdaRestApiProps returns the defaults of a REST API proxying to fn.
func DefaultLambdaRestApiProps(
	fn awslambda.IFunction, endpointType awsapigateway.EndpointType, logGroup awslogs.ILogGroup, includeAuth bool,
) *awsapigateway.LambdaRestApiProps {
	return &awsapigateway.LambdaRestApiProps{
		Handler: fn,
		EndpointConfiguration: &awsapigateway.EndpointConfiguration{
			Types: &[]awsapigateway.EndpointType{endpointType},
		},
		CloudWatchRole:       jsii.Bool(false),
		DeployOptions:        DefaultStageOptions(logGroup),
		DefaultMethodOptions: defaultMethodOptions(includeAuth),
	}
}

// DefaultSpecRestApiProps returns the defaults of an API defined by an OpenAPI
// document. The API is named after scope.
func DefaultSpecRestApiProps(scope constructs.Construct, logGroup awslogs.ILogGroup) *awsapigateway.SpecRestApiProps {
	return &awsapigateway.SpecRestApiProps{
		CloudWatchRole: jsii.Bool(false),
		DeployOptions:  DefaultStageOptions(logGroup),
		RestApiName: jsii.String(bwcdkutil.GeneratePhysicalName("",
			[]string{*scope.Node().Id()}, 255)),
	}
}

// DefaultIntegrationResponses maps success to 200 and any error matching "500" to a
// plain text 500.
func DefaultIntegrationResponses() *[]*awsapigateway.IntegrationResponse {
	return &[]*awsapigateway.IntegrationResponse{
		{StatusCode: jsii.String("200")},
		{
			StatusCode:        jsii.String("500"),
			ResponseTemplates: &map[string]*string{"text/html": jsii.String("Error")},
			SelectionPattern:  jsii.String("500"),
		},
	}
}

func defaultMethodOptions(includeAuth bool) *awsapigateway.MethodOptions {
	if !includeAuth {
		return nil
	}
	return &awsapigateway.MethodOptions{
		AuthorizationType: awsapigateway.AuthorizationType_IAM,
	}
}
