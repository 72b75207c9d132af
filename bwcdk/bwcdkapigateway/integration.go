package bwcdkapigateway

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigateway"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/cockroachdb/errors"
)

// ProxyMethodParams configures AddProxyMethodToApiResource.
type ProxyMethodParams struct {
	// Service is the AWS service of the integration, e.g. "sqs".
	Service string
	// Action or Path addresses the service API. Exactly one is required, Action wins.
	Action string
	Path   string

	ApiResource    awsapigateway.IResource
	ApiMethod      string
	ApiGatewayRole awsiam.IRole
	// RequestTemplate maps application/json requests to the service request.
	RequestTemplate string
	// AdditionalRequestTemplates are added next to the application/json template.
	AdditionalRequestTemplates map[string]string
	// ContentType of the integration request, defaults to "'application/json'".
	ContentType string

	RequestValidator awsapigateway.IRequestValidator
	RequestModel     *map[string]awsapigateway.IModel

	// IntegrationResponses replace DefaultIntegrationResponses.
	IntegrationResponses *[]*awsapigateway.IntegrationResponse
	// AwsIntegrationProps and MethodOptions are merged over the computed values.
	AwsIntegrationProps *awsapigateway.AwsIntegrationProps
	MethodOptions       *awsapigateway.MethodOptions
}

// AddProxyMethodToApiResource adds a method that forwards requests to an AWS service
// API through a direct integration assuming ApiGatewayRole.
func AddProxyMethodToApiResource(params ProxyMethodParams) (awsapigateway.Method, error) {
	if params.Action == "" && params.Path == "" {
		return nil, errors.New("Either action or path is required")
	}

	contentType := params.ContentType
	if contentType == "" {
		contentType = "'application/json'"
	}

	templates := map[string]*string{"application/json": jsii.String(params.RequestTemplate)}
	for k, v := range params.AdditionalRequestTemplates {
		templates[k] = jsii.String(v)
	}

	responses := params.IntegrationResponses
	if responses == nil {
		responses = DefaultIntegrationResponses()
	}

	base := &awsapigateway.AwsIntegrationProps{
		Service:               jsii.String(params.Service),
		IntegrationHttpMethod: jsii.String("POST"),
		Options: &awsapigateway.IntegrationOptions{
			PassthroughBehavior: awsapigateway.PassthroughBehavior_NEVER,
			CredentialsRole:     params.ApiGatewayRole,
			RequestParameters: &map[string]*string{
				"integration.request.header.Content-Type": jsii.String(contentType),
			},
			RequestTemplates:     &templates,
			IntegrationResponses: responses,
		},
	}
	if params.Action != "" {
		base.Action = jsii.String(params.Action)
	} else {
		base.Path = jsii.String(params.Path)
	}

	integration := awsapigateway.NewAwsIntegration(
		bwcdkutil.ConsolidateProps(nil, base, params.AwsIntegrationProps, nil))

	contentTypeParam := &map[string]*bool{"method.response.header.Content-Type": jsii.Bool(true)}
	defaults := &awsapigateway.MethodOptions{
		MethodResponses: &[]*awsapigateway.MethodResponse{
			{StatusCode: jsii.String("200"), ResponseParameters: contentTypeParam},
			{StatusCode: jsii.String("500"), ResponseParameters: contentTypeParam},
		},
		RequestValidator: params.RequestValidator,
		RequestModels:    params.RequestModel,
	}

	return params.ApiResource.AddMethod(jsii.String(params.ApiMethod), integration,
		bwcdkutil.ConsolidateProps(nil, defaults, params.MethodOptions, nil)), nil
}
