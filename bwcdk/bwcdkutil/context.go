package bwcdkutil

import (
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// deploymentIdentContextKey holds the deployment identifier of a deployment stack.
const deploymentIdentContextKey = "__bwcdkutil_deployment_ident"

// StoreDeploymentIdent records the deployment identifier on a scope (usually a stack)
// so that constructs below it can derive deployment-scoped names.
func StoreDeploymentIdent(scope constructs.Construct, deploymentIdent string) {
	scope.Node().SetContext(jsii.String(deploymentIdentContextKey), deploymentIdent)
}

// DeploymentIdent returns the deployment identifier of the stack that contains scope,
// or an empty string for shared stacks and stacks created outside of SetupApp.
func DeploymentIdent(scope constructs.Construct) string {
	val, ok := scope.Node().TryGetContext(jsii.String(deploymentIdentContextKey)).(string)
	if !ok {
		return ""
	}
	return val
}
