// Package bwcdkapigateway builds API Gateway REST APIs with access logging, X-Ray
// tracing, IAM authorization, a usage plan and the account level CloudWatch role
// that execution logging requires.
//
// A custom domain can be attached to any of the APIs. Routes can be restricted to
// a list of public paths so that internal Lambda paths (like /l/*) stay reachable
// only through direct invocation.
package bwcdkapigateway

import (
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigateway"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53targets"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkloggroup"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/cockroachdb/errors"
)

// Construct ids of the created resources.
const (
	AccessLogGroupID = "ApiAccessLogGroup"
	LambdaRestApiID  = "LambdaRestApi"
	RestApiID        = "RestApi"
	SpecRestApiID    = "SpecRestApi"
)

// ErrEndpointTypes is returned when user props set EndpointTypes. The builders
// configure the endpoint through EndpointConfiguration, and API Gateway rejects both.
var ErrEndpointTypes = errors.New("Solutions Constructs internally uses endpointConfiguration, " +
	"use endpointConfiguration instead of endpointTypes")

// CustomDomain attaches a domain name to the API and points an alias record at it.
type CustomDomain struct {
	HostedZone  awsroute53.IHostedZone
	Certificate awscertificatemanager.ICertificate
	// DomainName is the fully qualified name, e.g. "api.example.com".
	DomainName *string
	// EndpointType of the domain. The builders default it to the endpoint type of the API.
	EndpointType awsapigateway.EndpointType
}

// Options are the settings shared by all builders.
type Options struct {
	// LogGroupProps are merged over the access log group defaults.
	LogGroupProps *awslogs.LogGroupProps
	// CreateUsagePlan defaults to true. An API key is added to the plan when the
	// default method options require one.
	CreateUsagePlan *bool
	// CustomDomain is optional.
	CustomDomain *CustomDomain
}

// Response holds the API and its supporting resources.
type Response struct {
	Api            awsapigateway.RestApiBase
	CloudWatchRole awsiam.Role
	AccessLogGroup awslogs.LogGroup
	UsagePlan      awsapigateway.UsagePlan
	DomainName     awsapigateway.DomainName
}

// GlobalRestApi creates an edge optimized REST API.
func GlobalRestApi(scope constructs.Construct, props *awsapigateway.RestApiProps, opts Options) (Response, error) {
	return restApi(scope, awsapigateway.EndpointType_EDGE, props, opts)
}

// RegionalRestApi creates a regional REST API.
func RegionalRestApi(scope constructs.Construct, props *awsapigateway.RestApiProps, opts Options) (Response, error) {
	return restApi(scope, awsapigateway.EndpointType_REGIONAL, props, opts)
}

// GlobalLambdaRestApi creates an edge optimized REST API that proxies every request to fn.
func GlobalLambdaRestApi(
	scope constructs.Construct, fn awslambda.IFunction, props *awsapigateway.LambdaRestApiProps, opts Options,
) (Response, error) {
	return lambdaRestApi(scope, fn, awsapigateway.EndpointType_EDGE, props, opts)
}

// RegionalLambdaRestApi creates a regional REST API that proxies every request to fn.
func RegionalLambdaRestApi(
	scope constructs.Construct, fn awslambda.IFunction, props *awsapigateway.LambdaRestApiProps, opts Options,
) (Response, error) {
	return lambdaRestApi(scope, fn, awsapigateway.EndpointType_REGIONAL, props, opts)
}

// CreateSpecRestApi creates a REST API from an OpenAPI definition in props.ApiDefinition.
func CreateSpecRestApi(
	scope constructs.Construct, props *awsapigateway.SpecRestApiProps, opts Options,
) (Response, error) {
	if props == nil || props.ApiDefinition == nil {
		return Response{}, errors.New("apiDefinition is required")
	}

	logGroup := bwcdkloggroup.BuildLogGroup(scope, AccessLogGroupID, opts.LogGroupProps)
	api := awsapigateway.NewSpecRestApi(scope, jsii.String(SpecRestApiID),
		bwcdkutil.ConsolidateProps(scope, DefaultSpecRestApiProps(scope, logGroup), props, nil))

	endpointType := awsapigateway.EndpointType_EDGE
	if props.EndpointTypes != nil && len(*props.EndpointTypes) == 1 {
		endpointType = (*props.EndpointTypes)[0]
	}
	return configure(scope, api, endpointType, logGroup, nil, opts), nil
}

func restApi(
	scope constructs.Construct, endpointType awsapigateway.EndpointType,
	props *awsapigateway.RestApiProps, opts Options,
) (Response, error) {
	if props != nil && props.EndpointTypes != nil {
		return Response{}, ErrEndpointTypes
	}

	logGroup := bwcdkloggroup.BuildLogGroup(scope, AccessLogGroupID, opts.LogGroupProps)
	api := awsapigateway.NewRestApi(scope, jsii.String(RestApiID),
		bwcdkutil.ConsolidateProps(scope, DefaultRestApiProps(endpointType, logGroup, true), props, nil))

	var methodOpts *awsapigateway.MethodOptions
	if props != nil {
		methodOpts = props.DefaultMethodOptions
	}
	return configure(scope, api, endpointType, logGroup, methodOpts, opts), nil
}

func lambdaRestApi(
	scope constructs.Construct, fn awslambda.IFunction, endpointType awsapigateway.EndpointType,
	props *awsapigateway.LambdaRestApiProps, opts Options,
) (Response, error) {
	if props != nil && props.EndpointTypes != nil {
		return Response{}, ErrEndpointTypes
	}

	logGroup := bwcdkloggroup.BuildLogGroup(scope, AccessLogGroupID, opts.LogGroupProps)
	api := awsapigateway.NewLambdaRestApi(scope, jsii.String(LambdaRestApiID),
		bwcdkutil.ConsolidateProps(scope, DefaultLambdaRestApiProps(fn, endpointType, logGroup, true), props, nil))

	var methodOpts *awsapigateway.MethodOptions
	if props != nil {
		methodOpts = props.DefaultMethodOptions
	}
	return configure(scope, api, endpointType, logGroup, methodOpts, opts), nil
}

func configure(
	scope constructs.Construct, api awsapigateway.RestApiBase, endpointType awsapigateway.EndpointType,
	logGroup awslogs.LogGroup,
	methodOpts *awsapigateway.MethodOptions, opts Options,
) Response {
	resp := Response{
		Api:            api,
		AccessLogGroup: logGroup,
		CloudWatchRole: ConfigureCloudwatchRoleForApi(scope, api),
	}

	if opts.CreateUsagePlan == nil || *opts.CreateUsagePlan {
		resp.UsagePlan = api.AddUsagePlan(jsii.String("UsagePlan"), &awsapigateway.UsagePlanProps{
			ApiStages: &[]*awsapigateway.UsagePlanPerApiStage{
				{Api: api, Stage: api.DeploymentStage()},
			},
		})
		if methodOpts != nil && methodOpts.ApiKeyRequired != nil && *methodOpts.ApiKeyRequired {
			resp.UsagePlan.AddApiKey(api.AddApiKey(jsii.String("ApiKey"), nil), nil)
		}
	}

	if opts.CustomDomain != nil {
		domain := *opts.CustomDomain
		if domain.EndpointType == "" {
			domain.EndpointType = endpointType
		}
		resp.DomainName = AddCustomDomain(scope, api, domain)
	}

	return resp
}

// ConfigureCloudwatchRoleForApi creates the role API Gateway uses to write execution
// logs and registers it for the account.
func ConfigureCloudwatchRoleForApi(scope constructs.Construct, api awsapigateway.RestApiBase) awsiam.Role {
	role := awsiam.NewRole(scope, jsii.String("LambdaRestApiCloudWatchRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("apigateway.amazonaws.com"), nil),
		InlinePolicies: &map[string]awsiam.PolicyDocument{
			"LambdaRestApiCloudWatchRolePolicy": awsiam.NewPolicyDocument(&awsiam.PolicyDocumentProps{
				Statements: &[]awsiam.PolicyStatement{
					awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
						Actions: jsii.Strings(
							"logs:CreateLogGroup",
							"logs:CreateLogStream",
							"logs:DescribeLogGroups",
							"logs:DescribeLogStreams",
							"logs:PutLogEvents",
							"logs:GetLogEvents",
							"logs:FilterLogEvents",
						),
						Resources: jsii.Strings(*jsii.Sprintf("arn:%s:logs:%s:%s:*",
							*awscdk.Aws_PARTITION(), *awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID())),
					}),
				},
			}),
		},
	})

	account := awsapigateway.NewCfnAccount(scope, jsii.String("LambdaRestApiAccount"), &awsapigateway.CfnAccountProps{
		CloudWatchRoleArn: role.RoleArn(),
	})
	account.AddDependency(bwcdkutil.CfnResourceOf(api))

	if deployment := api.LatestDeployment(); deployment != nil {
		bwcdkutil.AddCfnSuppressRules(deployment, bwcdkutil.CfnNagSuppressRule{
			ID: "W45",
			Reason: "ApiGateway has AccessLogging enabled in AWS::ApiGateway::Stage resource, " +
				"but cfn_nag checks for it in AWS::ApiGateway::Deployment resource",
		})
	}

	return role
}

// AddCustomDomain maps the API to the domain and creates an alias record in the zone.
func AddCustomDomain(scope constructs.Construct, api awsapigateway.RestApiBase, domain CustomDomain) awsapigateway.DomainName {
	endpointType := domain.EndpointType
	if endpointType == "" {
		endpointType = awsapigateway.EndpointType_REGIONAL
	}

	name := api.AddDomainName(jsii.String("CustomDomain"), &awsapigateway.DomainNameOptions{
		DomainName:     domain.DomainName,
		Certificate:    domain.Certificate,
		EndpointType:   endpointType,
		SecurityPolicy: awsapigateway.SecurityPolicy_TLS_1_2,
	})

	awsroute53.NewARecord(scope, jsii.String("DnsRecord"), &awsroute53.ARecordProps{
		Zone:       domain.HostedZone,
		RecordName: domain.DomainName,
		Target:     awsroute53.RecordTarget_FromAlias(awsroute53targets.NewApiGatewayDomain(name)),
	})

	return name
}

// AddRoute adds method to the resource at path below root, creating intermediate
// resources as needed. Paths like "/items/{proxy+}" use greedy matching.
func AddRoute(
	root awsapigateway.IResource, method, path string,
	integration awsapigateway.Integration, opts *awsapigateway.MethodOptions,
) awsapigateway.Method {
	resource := root
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		if child := resource.GetResource(jsii.String(part)); child != nil {
			resource = child
			continue
		}
		resource = resource.AddResource(jsii.String(part), nil)
	}
	return resource.AddMethod(jsii.String(method), integration, opts)
}
