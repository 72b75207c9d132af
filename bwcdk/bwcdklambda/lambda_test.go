//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdklambda_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdklambda"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEntry points to an actual Go command in the repo.
var testEntry = "lambdas/cmd/templatewriter"

func init() {
	// CDK resolves entries relative to the working directory.
	dir, _ := os.Getwd()
	for dir != "/" {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			_ = os.Chdir(dir)
			break
		}
		dir = filepath.Dir(dir)
	}
}

func newStack() awscdk.Stack {
	return awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{Region: jsii.String("us-east-1")},
	})
}

func inlineFunctionProps() *awslambda.FunctionProps {
	return &awslambda.FunctionProps{
		Runtime: awslambda.Runtime_NODEJS_20_X(),
		Handler: jsii.String("index.handler"),
		Code:    awslambda.Code_FromInline(jsii.String("exports.handler = async () => ({})")),
	}
}

func TestBuildLambdaFunction_Defaults(t *testing.T) {
	defer jsii.Close()

	stack := newStack()
	fn := bwcdklambda.BuildLambdaFunction(stack, bwcdklambda.BuildLambdaFunctionProps{
		LambdaFunctionProps: inlineFunctionProps(),
	}, "")
	require.NotNil(t, fn)

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]any{
		"TracingConfig": map[string]any{"Mode": "Active"},
		"Environment": map[string]any{
			"Variables": map[string]any{"AWS_NODEJS_CONNECTION_REUSE_ENABLED": "1"},
		},
	})
	template.HasResourceProperties(jsii.String("AWS::IAM::Role"), map[string]any{
		"Policies": []any{assertions.Match_ObjectLike(&map[string]any{
			"PolicyName": "LambdaFunctionServiceRolePolicy",
		})},
	})
	template.HasResource(jsii.String("AWS::Lambda::Function"), map[string]any{
		"Metadata": map[string]any{
			"cfn_nag": map[string]any{
				"rules_to_suppress": []any{
					assertions.Match_ObjectLike(&map[string]any{"id": "W58"}),
					assertions.Match_ObjectLike(&map[string]any{"id": "W89"}),
					assertions.Match_ObjectLike(&map[string]any{"id": "W92"}),
				},
			},
		},
	})
	template.HasResource(jsii.String("AWS::IAM::Policy"), map[string]any{
		"Metadata": map[string]any{
			"cfn_nag": map[string]any{
				"rules_to_suppress": []any{assertions.Match_ObjectLike(&map[string]any{"id": "W12"})},
			},
		},
	})
}

func TestBuildLambdaFunction_InVpc(t *testing.T) {
	defer jsii.Close()

	stack := newStack()
	vpc := awsec2.NewVpc(stack, jsii.String("Vpc"), nil)
	bwcdklambda.BuildLambdaFunction(stack, bwcdklambda.BuildLambdaFunctionProps{
		LambdaFunctionProps: inlineFunctionProps(),
		Vpc:                 vpc,
	}, "Fn")

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]any{
		"VpcConfig": map[string]any{
			"SecurityGroupIds": []any{map[string]any{
				"Fn::GetAtt": []any{
					assertions.Match_StringLikeRegexp(jsii.String("ReplaceDefaultSecurityGroupsecuritygroup")),
					"GroupId",
				},
			}},
		},
	})
	template.HasResourceProperties(jsii.String("AWS::IAM::Policy"), map[string]any{
		"PolicyDocument": map[string]any{
			"Statement": assertions.Match_ArrayWith(&[]any{assertions.Match_ObjectLike(&map[string]any{
				"Action": assertions.Match_ArrayWith(&[]any{"ec2:CreateNetworkInterface"}),
			})}),
		},
	})
}

func TestBuildLambdaFunction_Existing(t *testing.T) {
	defer jsii.Close()

	stack := newStack()
	existing := awslambda.NewFunction(stack, jsii.String("Existing"), inlineFunctionProps())
	fn := bwcdklambda.BuildLambdaFunction(stack, bwcdklambda.BuildLambdaFunctionProps{
		ExistingLambdaObj: existing,
	}, "")
	assert.Equal(t, existing, fn)

	require.Panics(t, func() {
		bwcdklambda.BuildLambdaFunction(stack, bwcdklambda.BuildLambdaFunctionProps{
			ExistingLambdaObj: existing,
			Vpc:               awsec2.NewVpc(stack, jsii.String("Vpc"), nil),
		}, "")
	})
}

func TestBuildLambdaFunction_RequiresProps(t *testing.T) {
	defer jsii.Close()

	require.PanicsWithError(t, "Either existingLambdaObj or lambdaFunctionProps is required", func() {
		bwcdklambda.BuildLambdaFunction(newStack(), bwcdklambda.BuildLambdaFunctionProps{}, "")
	})
}

func TestCheckLambdaProps(t *testing.T) {
	defer jsii.Close()

	stack := newStack()
	props := inlineFunctionProps()
	props.Vpc = awsec2.NewVpc(stack, jsii.String("Vpc"), nil)

	err := bwcdklambda.CheckLambdaProps(bwcdklambda.LambdaProps{LambdaFunctionProps: props})
	require.EqualError(t, err, "Error - Define VPC using construct parameters not Lambda function props\n")
	require.NoError(t, bwcdklambda.CheckLambdaProps(bwcdklambda.LambdaProps{LambdaFunctionProps: inlineFunctionProps()}))
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name          string
		entry         string
		wantComponent string
		wantCommand   string
		wantErr       bool
	}{
		{name: "simple", entry: "lambdas/cmd/ingest", wantComponent: "lambdas", wantCommand: "ingest"},
		{name: "deep", entry: "some/deep/component/cmd/handler", wantComponent: "component", wantCommand: "handler"},
		{name: "missing cmd", entry: "lambdas/ingest", wantErr: true},
		{name: "empty", entry: "", wantErr: true},
		{name: "only cmd", entry: "cmd/handler", wantErr: true},
		{name: "empty command", entry: "lambdas/cmd/", wantErr: true},
		{name: "empty component", entry: "/cmd/handler", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			component, command, err := bwcdklambda.ParseEntry(tt.entry)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantComponent, component)
			assert.Equal(t, tt.wantCommand, command)
		})
	}
}

func TestNew_PlainStack(t *testing.T) {
	defer jsii.Close()

	stack := newStack()
	lambda := bwcdklambda.New(stack, bwcdklambda.Props{
		Entry:           jsii.String(testEntry),
		PassThroughPath: jsii.String("/l/on-event"),
	})

	assert.Equal(t, "LambdasTemplatewriterOnEvent", lambda.Name())
	require.NotNil(t, lambda.Function())
	require.NotNil(t, lambda.LogGroup())

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]any{
		"Architectures": []any{"arm64"},
		"Layers": []any{
			"arn:aws:lambda:us-east-1:753240598075:layer:LambdaAdapterLayerArm64:25",
		},
		"Environment": map[string]any{
			"Variables": map[string]any{
				"AWS_LWA_PASS_THROUGH_PATH": "/l/on-event",
				"AWS_LWA_PORT":              "8080",
				"BW_SERVICE_NAME":           "lambdas-templatewriter-on-event",
				"BW_PRIMARY_REGION":         "us-east-1",
			},
		},
	})
}

func TestNew_InApp(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	bwcdkutil.StoreConfig(app, &bwcdkutil.Config{
		Prefix:        "myapp-",
		Qualifier:     "myapp",
		PrimaryRegion: "eu-central-1",
		Deployments:   []string{"Dev"},
	})
	stack := awscdk.NewStack(app, jsii.String("TestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{Region: jsii.String("eu-central-1")},
	})
	bwcdkutil.StoreDeploymentIdent(stack, "Dev")

	bwcdklambda.New(stack, bwcdklambda.Props{Entry: jsii.String(testEntry)})

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]any{
		"FunctionName": "myapp-dev-lambdas-templatewriter",
	})
}

func TestNew_InvalidEntry(t *testing.T) {
	defer jsii.Close()

	require.Panics(t, func() {
		bwcdklambda.New(newStack(), bwcdklambda.Props{Entry: jsii.String("invalid/path")})
	})
}
