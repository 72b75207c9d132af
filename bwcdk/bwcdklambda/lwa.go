package bwcdklambda

import (
	"fmt"
	"maps"
	"path/filepath"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdklambdagoalpha/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkloggroup"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/cockroachdb/errors"
	"github.com/iancoleman/strcase"
)

// LWALayerVersion is the current version of the Lambda Web Adapter layer.
const LWALayerVersion = 25

// LWAPort is the port the function's HTTP server listens on.
const LWAPort = "8080"

// Lambda provides access to a Go Lambda function with AWS Lambda Web Adapter.
type Lambda interface {
	// Function returns the underlying Lambda function.
	Function() awscdklambdagoalpha.GoFunction
	// LogGroup returns the CloudWatch Log Group for the function.
	LogGroup() awslogs.ILogGroup
	// Name returns the construct name derived from the entry path.
	Name() string
}

// Props configures the Lambda construct.
type Props struct {
	// Entry is the path to the Go command directory.
	// Must match pattern "<component>/cmd/<command>" (e.g., "lambdas/cmd/templatewriter").
	// Required.
	Entry *string
	// Environment variables to pass to the function.
	Environment *map[string]*string
	// PassThroughPath sets AWS_LWA_PASS_THROUGH_PATH for non-HTTP event triggers
	// such as custom resources, SQS or SNS. LWA POSTs the raw event to this path.
	// Must match "/l/<handler>" with a kebab-case handler. Optional.
	PassThroughPath *string
	// Timeout defaults to 30 seconds.
	Timeout awscdk.Duration
	// MemorySize in MB, defaults to 128.
	MemorySize *float64
	// Vpc places the function in the VPC. Optional.
	Vpc awsec2.IVpc
}

// parsePassThroughPath validates PassThroughPath and returns a suffix for construct naming.
func parsePassThroughPath(path string) (suffix string, err error) {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "l" || parts[1] == "" {
		return "", errors.Newf("PassThroughPath must match pattern /l/<handler>, got %q", path)
	}
	handler := parts[1]
	if handler != strcase.ToKebab(handler) {
		return "", errors.Newf("PassThroughPath handler must be kebab-case, got %q", handler)
	}
	return strcase.ToCamel(handler), nil
}

// ParseEntry extracts component and command from entry path.
// Validates pattern "<component>/cmd/<command>".
func ParseEntry(entry string) (component, command string, err error) {
	parts := strings.Split(filepath.ToSlash(entry), "/")

	for i := len(parts) - 2; i >= 1; i-- {
		if parts[i] == "cmd" {
			component = parts[i-1]
			command = parts[i+1]
			if component == "" || command == "" {
				break
			}
			return component, command, nil
		}
	}

	return "", "", errors.Newf("entry must match pattern <component>/cmd/<command>, got %q", entry)
}

type lambda struct {
	function awscdklambdagoalpha.GoFunction
	logGroup awslogs.ILogGroup
	name     string
}

// New creates an arm64 Go function that runs an HTTP server behind the Lambda Web
// Adapter layer. The entry "lambdas/cmd/templatewriter" names the construct
// "LambdasTemplatewriter", a pass-through path "/l/on-event" appends "OnEvent".
//
// Inside an app created by bwcdkutil.SetupApp the function gets a qualified name and
// the primary region, elsewhere CloudFormation names it and the stack region is used.
func New(scope constructs.Construct, props Props) Lambda {
	component, command, err := ParseEntry(*props.Entry)
	if err != nil {
		panic(err)
	}
	scopeName := strcase.ToCamel(component) + strcase.ToCamel(command)
	if props.PassThroughPath != nil {
		suffix, err := parsePassThroughPath(*props.PassThroughPath)
		if err != nil {
			panic(err)
		}
		scopeName += suffix
	}
	scope = constructs.NewConstruct(scope, jsii.String(scopeName))
	con := &lambda{name: scopeName}

	region := *awscdk.Stack_Of(scope).Region()
	primaryRegion := region
	var functionName *string
	if cfg := bwcdkutil.TryConfigFromScope(scope); cfg != nil {
		primaryRegion = cfg.PrimaryRegion
		functionName = jsii.String(bwcdkutil.ResourceName(scope, scopeName, bwcdkutil.CasingKebab))
	}

	serviceName := strcase.ToKebab(scopeName)
	if functionName != nil {
		serviceName = *functionName
	}

	env := make(map[string]*string)
	if props.Environment != nil {
		maps.Copy(env, *props.Environment)
	}
	env["AWS_LWA_PORT"] = jsii.String(LWAPort)
	env["AWS_LWA_READINESS_CHECK_PATH"] = jsii.String("/health")
	env["BW_SERVICE_NAME"] = jsii.String(serviceName)
	env["BW_OTEL_EXPORTER"] = jsii.String("xrayudp")
	env["BW_PRIMARY_REGION"] = jsii.String(primaryRegion)
	if props.PassThroughPath != nil {
		env["AWS_LWA_PASS_THROUGH_PATH"] = props.PassThroughPath
	}

	con.logGroup = bwcdkloggroup.New(scope, scopeName+"Logs", bwcdkloggroup.Props{
		Purpose: jsii.String("Lambda function " + scopeName),
	}).LogGroup()

	timeout := props.Timeout
	if timeout == nil {
		timeout = awscdk.Duration_Seconds(jsii.Number(30))
	}

	memorySize := props.MemorySize
	if memorySize == nil {
		memorySize = jsii.Number(128)
	}

	con.function = awscdklambdagoalpha.NewGoFunction(scope, jsii.String("Function"),
		&awscdklambdagoalpha.GoFunctionProps{
			FunctionName: functionName,
			Entry:        props.Entry,
			Architecture: awslambda.Architecture_ARM_64(),
			Runtime:      awslambda.Runtime_PROVIDED_AL2023(),
			MemorySize:   memorySize,
			Timeout:      timeout,
			Environment:  &env,
			Bundling:     bwcdkutil.ReproducibleGoBundling(),
			Tracing:      awslambda.Tracing_ACTIVE,
			Vpc:          props.Vpc,
			Layers: &[]awslambda.ILayerVersion{
				awslambda.LayerVersion_FromLayerVersionArn(scope,
					jsii.String("LWALayer"), jsii.String(LWALayerArn(region))),
			},
			LogGroup:      con.logGroup,
			LoggingFormat: awslambda.LoggingFormat_JSON,
		})

	return con
}

// LWALayerArn returns the arm64 Lambda Web Adapter layer in region.
func LWALayerArn(region string) string {
	return fmt.Sprintf("arn:aws:lambda:%s:753240598075:layer:LambdaAdapterLayerArm64:%d", region, LWALayerVersion)
}

func (l *lambda) Function() awscdklambdagoalpha.GoFunction {
	return l.function
}

func (l *lambda) LogGroup() awslogs.ILogGroup {
	return l.logGroup
}

func (l *lambda) Name() string {
	return l.name
}
