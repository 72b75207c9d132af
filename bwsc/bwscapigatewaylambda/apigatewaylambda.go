// Package bwscapigatewaylambda puts an API Gateway REST API in front of a Lambda
// function.
//
// By default every path is proxied to the function. With PublicRoutes only the given
// paths are exposed, keeping internal function paths (like /l/*) reachable only
// through direct invocation.
package bwscapigatewaylambda

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigateway"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkapigateway"
	"github.com/basewarphq/bwsc/bwcdk/bwcdklambda"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// AuthorizerProps configures a Lambda TOKEN authorizer for the public routes.
//
// Only TOKEN authorizers work with functions behind the Lambda Web Adapter. REQUEST
// authorizer events look like proxy events and would be routed as HTTP requests.
type AuthorizerProps struct {
	ExistingLambdaObj   awslambda.Function
	LambdaFunctionProps *awslambda.FunctionProps
	// ResultsCacheTtl defaults to five minutes.
	ResultsCacheTtl awscdk.Duration
}

// Props configures the ApiGatewayToLambda construct.
type Props struct {
	ExistingLambdaObj   awslambda.Function
	LambdaFunctionProps *awslambda.FunctionProps

	// ApiGatewayProps are merged over the API defaults.
	ApiGatewayProps *awsapigateway.LambdaRestApiProps
	LogGroupProps   *awslogs.LogGroupProps
	// EndpointType defaults to EDGE.
	EndpointType awsapigateway.EndpointType
	// CreateUsagePlan defaults to true.
	CreateUsagePlan *bool
	CustomDomain    *bwcdkapigateway.CustomDomain

	// PublicRoutes disable the proxy and expose ANY on each path. Use {proxy+} for
	// greedy matching, e.g. "/api/{proxy+}".
	PublicRoutes []string
	// Authorizer requires PublicRoutes.
	Authorizer *AuthorizerProps
}

// ApiGatewayToLambda exposes the resources of the pattern.
type ApiGatewayToLambda interface {
	ApiGateway() awsapigateway.RestApiBase
	ApiGatewayCloudWatchRole() awsiam.Role
	ApiGatewayLogGroup() awslogs.LogGroup
	LambdaFunction() awslambda.Function
	// AuthorizerFunction is nil without an authorizer.
	AuthorizerFunction() awslambda.Function
	UsagePlan() awsapigateway.UsagePlan
	DomainName() awsapigateway.DomainName
}

type apiGatewayToLambda struct {
	resp         bwcdkapigateway.Response
	fn           awslambda.Function
	authorizerFn awslambda.Function
}

// New creates the function and the API. It panics when props are invalid.
func New(scope constructs.Construct, id string, props Props) ApiGatewayToLambda {
	bwcdkutil.MustCheck(CheckApiGatewayToLambdaProps(props))

	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &apiGatewayToLambda{}

	con.fn = bwcdklambda.BuildLambdaFunction(scope, bwcdklambda.BuildLambdaFunctionProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
	}, "")

	var apiProps awsapigateway.LambdaRestApiProps
	if props.ApiGatewayProps != nil {
		apiProps = *props.ApiGatewayProps
	}
	if len(props.PublicRoutes) > 0 {
		apiProps.Proxy = jsii.Bool(false)
	}

	opts := bwcdkapigateway.Options{
		LogGroupProps:   props.LogGroupProps,
		CreateUsagePlan: props.CreateUsagePlan,
		CustomDomain:    props.CustomDomain,
	}

	var err error
	if props.EndpointType == awsapigateway.EndpointType_REGIONAL {
		con.resp, err = bwcdkapigateway.RegionalLambdaRestApi(scope, con.fn, &apiProps, opts)
	} else {
		con.resp, err = bwcdkapigateway.GlobalLambdaRestApi(scope, con.fn, &apiProps, opts)
	}
	if err != nil {
		panic(err)
	}

	if len(props.PublicRoutes) == 0 {
		return con
	}

	// public routes never fall back to the api wide AWS_IAM default
	methodOpts := &awsapigateway.MethodOptions{AuthorizationType: awsapigateway.AuthorizationType_NONE}
	if props.Authorizer != nil {
		con.authorizerFn = bwcdklambda.BuildLambdaFunction(scope, bwcdklambda.BuildLambdaFunctionProps{
			ExistingLambdaObj:   props.Authorizer.ExistingLambdaObj,
			LambdaFunctionProps: props.Authorizer.LambdaFunctionProps,
		}, "AuthorizerFunction")

		ttl := props.Authorizer.ResultsCacheTtl
		if ttl == nil {
			ttl = awscdk.Duration_Minutes(jsii.Number(5))
		}
		methodOpts = &awsapigateway.MethodOptions{
			AuthorizationType: awsapigateway.AuthorizationType_CUSTOM,
			Authorizer: awsapigateway.NewTokenAuthorizer(scope, jsii.String("Authorizer"),
				&awsapigateway.TokenAuthorizerProps{
					Handler:         con.authorizerFn,
					ResultsCacheTtl: ttl,
				}),
		}
	}

	integration := awsapigateway.NewLambdaIntegration(con.fn, &awsapigateway.LambdaIntegrationOptions{
		Proxy: jsii.Bool(true),
	})
	for _, route := range props.PublicRoutes {
		bwcdkapigateway.AddRoute(con.resp.Api.Root(), "ANY", route, integration, methodOpts)
	}

	return con
}

func (c *apiGatewayToLambda) ApiGateway() awsapigateway.RestApiBase { return c.resp.Api }
func (c *apiGatewayToLambda) ApiGatewayCloudWatchRole() awsiam.Role { return c.resp.CloudWatchRole }
func (c *apiGatewayToLambda) ApiGatewayLogGroup() awslogs.LogGroup { return c.resp.AccessLogGroup }
func (c *apiGatewayToLambda) LambdaFunction() awslambda.Function { return c.fn }
func (c *apiGatewayToLambda) AuthorizerFunction() awslambda.Function { return c.authorizerFn }
func (c *apiGatewayToLambda) UsagePlan() awsapigateway.UsagePlan { return c.resp.UsagePlan }
func (c *apiGatewayToLambda) DomainName() awsapigateway.DomainName { return c.resp.DomainName }

// CheckApiGatewayToLambdaProps validates the props of the construct.
func CheckApiGatewayToLambdaProps(props Props) error {
	var c bwcdkutil.Checker
	c.Add(bwcdklambda.CheckLambdaProps(bwcdklambda.LambdaProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
	}))
	if props.ApiGatewayProps != nil && props.ApiGatewayProps.EndpointTypes != nil {
		c.Add(bwcdkapigateway.ErrEndpointTypes)
	}

	if props.Authorizer != nil {
		if len(props.PublicRoutes) == 0 {
			c.Fail("authorizer requires publicRoutes")
		}
		if (props.Authorizer.ExistingLambdaObj == nil) == (props.Authorizer.LambdaFunctionProps == nil) {
			c.Fail("authorizer must have exactly one of lambdaFunctionProps or existingLambdaObj")
		}
	}
	return c.Err()
}
