// Package bwscopenapigatewaylambda creates an API Gateway REST API from an OpenAPI
// definition whose integrations are backed by Lambda functions.
//
// Integrations in the definition reference a function by the id of an
// ApiIntegration, e.g.
//
//	x-amazon-apigateway-integration:
//	  uri: MessagesHandler
//	  type: AWS_PROXY
//	  httpMethod: POST
//
// Each id is replaced by the invocation URI of the function. Definitions in S3 are
// rewritten at deploy time by a custom resource, inline definitions at synth time.
package bwscopenapigatewaylambda

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigateway"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3assets"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkapigateway"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkcustomresource"
	"github.com/basewarphq/bwsc/bwcdk/bwcdklambda"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/cockroachdb/errors"
)

// DefaultTransformMemorySize is the memory size in MB of the function that rewrites
// definitions stored in S3.
const DefaultTransformMemorySize = 1024

// DefaultTransformTimeout is the timeout of the function that rewrites definitions
// stored in S3.
func DefaultTransformTimeout() awscdk.Duration { return awscdk.Duration_Minutes(jsii.Number(1)) }

// ApiIntegration correlates an id used in the definition with a function.
type ApiIntegration struct {
	// ID is the placeholder in the definition. It is not a construct id.
	ID string
	// ExistingLambdaObj is an awslambda.Function or an awslambda.Alias.
	ExistingLambdaObj   awslambda.IFunction
	LambdaFunctionProps *awslambda.FunctionProps
}

// ApiLambdaFunction is the function resolved for an ApiIntegration. Exactly one of
// LambdaFunction and FunctionAlias is set.
type ApiLambdaFunction struct {
	ID             string
	LambdaFunction awslambda.Function
	FunctionAlias  awslambda.Alias
}

// Function returns the target of the integration.
func (f ApiLambdaFunction) Function() awslambda.IFunction {
	if f.FunctionAlias != nil {
		return f.FunctionAlias
	}
	return f.LambdaFunction
}

// Props configures the OpenApiGatewayToLambda construct. Exactly one of
// ApiDefinitionAsset, ApiDefinitionJSON and the ApiDefinitionBucket/ApiDefinitionKey
// pair is required.
type Props struct {
	ApiDefinitionBucket awss3.IBucket
	ApiDefinitionKey    *string
	ApiDefinitionAsset  awss3assets.Asset
	// ApiDefinitionJSON is embedded in the template, which limits its size.
	ApiDefinitionJSON map[string]any

	ApiIntegrations []ApiIntegration

	// ApiGatewayProps are merged over the API defaults. ApiDefinition is ignored.
	ApiGatewayProps *awsapigateway.SpecRestApiProps
	LogGroupProps   *awslogs.LogGroupProps

	// InternalTransformTimeout defaults to DefaultTransformTimeout.
	InternalTransformTimeout awscdk.Duration
	// InternalTransformMemorySize defaults to DefaultTransformMemorySize.
	InternalTransformMemorySize *float64
}

// OpenApiGatewayToLambda exposes the resources of the pattern.
type OpenApiGatewayToLambda interface {
	ApiGateway() awsapigateway.SpecRestApi
	ApiGatewayCloudWatchRole() awsiam.Role
	ApiGatewayLogGroup() awslogs.LogGroup
	ApiLambdaFunctions() []ApiLambdaFunction
}

type openApiGatewayToLambda struct {
	api       awsapigateway.SpecRestApi
	role      awsiam.Role
	logGroup  awslogs.LogGroup
	functions []ApiLambdaFunction
}

// New creates the functions and the API and allows the API to invoke every function.
// It panics when props are invalid.
func New(scope constructs.Construct, id string, props Props) OpenApiGatewayToLambda {
	bwcdkutil.MustCheck(CheckOpenApiProps(props))

	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &openApiGatewayToLambda{
		functions: MapApiIntegrationsToApiFunction(scope, props.ApiIntegrations),
	}

	definition, err := ObtainApiDefinition(scope, ObtainApiDefinitionProps{
		Functions:                   con.functions,
		ApiDefinitionBucket:         props.ApiDefinitionBucket,
		ApiDefinitionKey:            props.ApiDefinitionKey,
		ApiDefinitionAsset:          props.ApiDefinitionAsset,
		ApiDefinitionJSON:           props.ApiDefinitionJSON,
		InternalTransformTimeout:    props.InternalTransformTimeout,
		InternalTransformMemorySize: props.InternalTransformMemorySize,
	})
	if err != nil {
		panic(err)
	}

	var apiProps awsapigateway.SpecRestApiProps
	if props.ApiGatewayProps != nil {
		apiProps = *props.ApiGatewayProps
	}
	apiProps.ApiDefinition = definition

	resp, err := bwcdkapigateway.CreateSpecRestApi(scope, &apiProps, bwcdkapigateway.Options{
		LogGroupProps:   props.LogGroupProps,
		CreateUsagePlan: jsii.Bool(false),
	})
	if err != nil {
		panic(err)
	}
	con.api = resp.Api.(awsapigateway.SpecRestApi)
	con.role, con.logGroup = resp.CloudWatchRole, resp.AccessLogGroup

	deployment := con.api.LatestDeployment()
	if deployment != nil {
		switch {
		case props.ApiDefinitionKey != nil:
			deployment.AddToLogicalId(props.ApiDefinitionKey)
		case props.ApiDefinitionAsset != nil:
			deployment.AddToLogicalId(props.ApiDefinitionAsset.S3ObjectKey())
		}
	}

	for _, apiFn := range con.functions {
		target := apiFn.Function()
		if deployment != nil {
			deployment.AddToLogicalId(target.FunctionArn())
		}
		target.AddPermission(jsii.String(id+"PermitAPIGInvocation"), &awslambda.Permission{
			Principal: awsiam.NewServicePrincipal(jsii.String("apigateway.amazonaws.com"), nil),
			SourceArn: con.api.ArnForExecuteApi(jsii.String("*"), nil, nil),
		})
	}

	return con
}

func (c *openApiGatewayToLambda) ApiGateway() awsapigateway.SpecRestApi { return c.api }
func (c *openApiGatewayToLambda) ApiGatewayCloudWatchRole() awsiam.Role { return c.role }
func (c *openApiGatewayToLambda) ApiGatewayLogGroup() awslogs.LogGroup { return c.logGroup }
func (c *openApiGatewayToLambda) ApiLambdaFunctions() []ApiLambdaFunction {
	return c.functions
}

// MapApiIntegrationsToApiFunction resolves the function of every integration. Aliases
// are used as-is, other functions go through bwcdklambda.BuildLambdaFunction with a
// counter in the construct id to keep ids unique.
func MapApiIntegrationsToApiFunction(scope constructs.Construct, integrations []ApiIntegration) []ApiLambdaFunction {
	functions := make([]ApiLambdaFunction, 0, len(integrations))
	counter := 0
	for _, integ := range integrations {
		if alias, ok := integ.ExistingLambdaObj.(awslambda.Alias); ok {
			functions = append(functions, ApiLambdaFunction{ID: integ.ID, FunctionAlias: alias})
			continue
		}

		var existing awslambda.Function
		if integ.ExistingLambdaObj != nil {
			fn, ok := integ.ExistingLambdaObj.(awslambda.Function)
			if !ok {
				panic(errors.Newf("ApiIntegration id:%s existingLambdaObj must be a Function or an Alias", integ.ID))
			}
			existing = fn
		}

		functions = append(functions, ApiLambdaFunction{
			ID: integ.ID,
			LambdaFunction: bwcdklambda.BuildLambdaFunction(scope, bwcdklambda.BuildLambdaFunctionProps{
				ExistingLambdaObj:   existing,
				LambdaFunctionProps: integ.LambdaFunctionProps,
			}, fmt.Sprintf("%sApiFunction%d", integ.ID, counter)),
		})
		counter++
	}
	return functions
}

// ObtainApiDefinitionProps configures ObtainApiDefinition.
type ObtainApiDefinitionProps struct {
	Functions                   []ApiLambdaFunction
	ApiDefinitionBucket         awss3.IBucket
	ApiDefinitionKey            *string
	ApiDefinitionAsset          awss3assets.Asset
	ApiDefinitionJSON           map[string]any
	InternalTransformTimeout    awscdk.Duration
	InternalTransformMemorySize *float64
}

// ObtainApiDefinition returns the definition with every integration id replaced by the
// invocation URI of its function.
func ObtainApiDefinition(scope constructs.Construct, props ObtainApiDefinitionProps) (awsapigateway.ApiDefinition, error) {
	values := make([]bwcdkcustomresource.TemplateValue, 0, len(props.Functions))
	for _, apiFn := range props.Functions {
		values = append(values, bwcdkcustomresource.TemplateValue{
			ID:    apiFn.ID,
			Value: InvocationURI(apiFn.Function()),
		})
	}

	bucket, key := props.ApiDefinitionBucket, props.ApiDefinitionKey
	if props.ApiDefinitionAsset != nil {
		bucket, key = props.ApiDefinitionAsset.Bucket(), props.ApiDefinitionAsset.S3ObjectKey()
	}

	switch {
	case bucket != nil:
		timeout := props.InternalTransformTimeout
		if timeout == nil {
			timeout = DefaultTransformTimeout()
		}
		memorySize := props.InternalTransformMemorySize
		if memorySize == nil {
			memorySize = jsii.Number(DefaultTransformMemorySize)
		}

		writer := bwcdkcustomresource.CreateTemplateWriterCustomResource(scope, "Api",
			bwcdkcustomresource.TemplateWriterProps{
				TemplateBucket: bucket,
				TemplateKey:    key,
				TemplateValues: values,
				Timeout:        timeout,
				MemorySize:     memorySize,
			})
		return awsapigateway.ApiDefinition_FromBucket(writer.S3Bucket, writer.S3Key, nil), nil
	case props.ApiDefinitionJSON != nil:
		return InlineTemplateWriter(props.ApiDefinitionJSON, values)
	default:
		return nil, errors.New("no api definition provided")
	}
}

// InlineTemplateWriter replaces every occurrence of the value ids in the serialized
// definition, the same way the template writer function does for S3 objects.
func InlineTemplateWriter(definition map[string]any, values []bwcdkcustomresource.TemplateValue) (
	awsapigateway.ApiDefinition, error,
) {
	raw, err := json.Marshal(definition)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode api definition")
	}

	replaced := string(raw)
	for _, value := range values {
		replaced = strings.ReplaceAll(replaced, value.ID, value.Value)
	}

	var resolved map[string]any
	if err := json.Unmarshal([]byte(replaced), &resolved); err != nil {
		return nil, errors.Wrap(err, "failed to decode api definition")
	}
	return awsapigateway.ApiDefinition_FromInline(resolved), nil
}

// InvocationURI is the API Gateway integration URI of fn.
func InvocationURI(fn awslambda.IFunction) string {
	return "arn:" + *awscdk.Aws_PARTITION() + ":apigateway:" + *awscdk.Aws_REGION() +
		":lambda:path/2015-03-31/functions/" + *fn.FunctionArn() + "/invocations"
}

// CheckOpenApiProps validates the definition and the integrations.
func CheckOpenApiProps(props Props) error {
	var c bwcdkutil.Checker

	if (props.ApiDefinitionBucket == nil) != (props.ApiDefinitionKey == nil) {
		c.Fail("apiDefinitionBucket and apiDefinitionKey must be specified together.")
	}

	definitions := 0
	for _, set := range []bool{
		props.ApiDefinitionAsset != nil,
		props.ApiDefinitionBucket != nil,
		props.ApiDefinitionJSON != nil,
	} {
		if set {
			definitions++
		}
	}
	if definitions != 1 {
		c.Fail("Exactly one of apiDefinitionAsset, apiDefinitionJson or " +
			"(apiDefinitionBucket/apiDefinitionKey) must be provided")
	}

	if len(props.ApiIntegrations) == 0 {
		c.Fail("At least one ApiIntegration must be specified in the apiIntegrations property")
	}
	for _, integ := range props.ApiIntegrations {
		if integ.ID == "" {
			c.Fail("Each ApiIntegration must have a non-empty id property")
		}
		if (integ.ExistingLambdaObj == nil) == (integ.LambdaFunctionProps == nil) {
			c.Fail("ApiIntegration id:" + integ.ID +
				" must have exactly one of lambdaFunctionProps or existingLambdaObj")
		}
	}

	return c.Err()
}
