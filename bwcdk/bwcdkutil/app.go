package bwcdkutil

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
)

// SharedConstructor creates shared infrastructure in a given stack.
// It returns the shared construct that will be passed to deployment constructors.
type SharedConstructor[S any] func(stack awscdk.Stack) S

// DeploymentConstructor creates deployment-specific infrastructure in a given stack.
// It receives the shared construct and the deployment identifier.
type DeploymentConstructor[S any] func(stack awscdk.Stack, shared S, deploymentIdent string)

// AppConfig configures the CDK app setup.
type AppConfig struct {
	// Prefix for context keys (e.g., "myapp-" for "myapp-qualifier", "myapp-primary-region", etc.)
	Prefix string
}

// SetupApp configures a CDK app with one shared stack and one stack per deployment,
// all in the primary region. Deployment stacks depend on the shared stack.
//
// SetupApp validates all context values upfront and panics with a clear error message
// if any required values are missing or invalid.
func SetupApp[S any](
	app awscdk.App,
	cfg AppConfig,
	newShared SharedConstructor[S],
	newDeployment DeploymentConstructor[S],
) {
	config, err := NewConfig(app, cfg)
	if err != nil {
		panic(err)
	}
	StoreConfig(app, config)

	sharedStack := NewStackFromConfig(app, config)
	shared := newShared(sharedStack)

	for _, deploymentIdent := range config.Deployments {
		deploymentStack := NewStackFromConfig(app, config, deploymentIdent)
		newDeployment(deploymentStack, shared, deploymentIdent)
		deploymentStack.AddDependency(sharedStack,
			jsii.String("Shared stack must deploy first"))
	}
}
