package bwcdkutil

import (
	"fmt"
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/iancoleman/strcase"
)

// SharedStackName returns the CloudFormation stack name for a shared stack.
func SharedStackName(qualifier, regionIdent string) string {
	base := strcase.ToLowerCamel(fmt.Sprintf("%s-%s", qualifier, regionIdent))
	return base + "Shared"
}

// DeploymentStackName returns the CloudFormation stack name for a deployment stack.
func DeploymentStackName(qualifier, regionIdent, deploymentIdent string) string {
	base := strcase.ToLowerCamel(fmt.Sprintf("%s-%s", qualifier, regionIdent))
	return base + deploymentIdent
}

// NewStackFromConfig creates a new CDK Stack using a validated Config. Without a
// deployment identifier the stack is the shared stack of the app.
func NewStackFromConfig(
	scope constructs.Construct, cfg *Config, deploymentIdent ...string,
) awscdk.Stack {
	return newStackInternal(scope, cfg.Qualifier, cfg.PrimaryRegion, deploymentIdent...)
}

func newStackInternal(
	scope constructs.Construct, qual, region string, deploymentIdent ...string,
) awscdk.Stack {
	var stackName string
	var description string

	regionIdent := RegionIdentFor(region)
	baseIdent := strcase.ToLowerCamel(fmt.Sprintf("%s-%s", qual, regionIdent))

	switch {
	case len(deploymentIdent) > 0 && deploymentIdent[0] != "":
		dident := deploymentIdent[0]
		stackName = DeploymentStackName(qual, regionIdent, dident)
		description = fmt.Sprintf("%s (region: %s, deployment: %s)", baseIdent, region, dident)
	case len(deploymentIdent) > 0:
		panic("invalid deploymentIdent: " + deploymentIdent[0])
	default:
		stackName = SharedStackName(qual, regionIdent)
		description = fmt.Sprintf("%s (region: %s)", baseIdent, region)
	}

	stack := awscdk.NewStack(scope, jsii.String(stackName), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: jsii.String(os.Getenv("CDK_DEFAULT_ACCOUNT")),
			Region:  jsii.String(region),
		},
		Description: jsii.String(description),
		Synthesizer: awscdk.NewDefaultStackSynthesizer(&awscdk.DefaultStackSynthesizerProps{
			Qualifier: jsii.String(qual),
		}),
	})

	if len(deploymentIdent) > 0 {
		StoreDeploymentIdent(stack, deploymentIdent[0])
	}

	AcknowledgeGoBundlingWarning(stack)

	return stack
}

// AcknowledgeGoBundlingWarning silences the go-alpha warning about custom build flags.
// Flags are set by ReproducibleGoBundling and contain nothing user controlled.
func AcknowledgeGoBundlingWarning(scope constructs.Construct) {
	awscdk.Annotations_Of(scope).AcknowledgeWarning(
		jsii.String("@aws-cdk/aws-lambda-go-alpha:goBuildFlagsSecurityWarning"),
		jsii.String("Build flags are controlled by bwcdkutil.ReproducibleGoBundling and are safe"),
	)
}
