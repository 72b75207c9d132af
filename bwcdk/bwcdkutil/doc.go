// Package bwcdkutil provides the shared plumbing for the constructs in this module:
// app and stack setup, naming, props consolidation and validation helpers.
//
// # Quick Start
//
// Use [SetupApp] to configure a CDK application with a shared stack and one stack
// per deployment:
//
//	func main() {
//	    defer jsii.Close()
//	    app := awscdk.NewApp(nil)
//
//	    bwcdkutil.SetupApp(app, bwcdkutil.AppConfig{Prefix: "myapp-"},
//	        func(stack awscdk.Stack) *Shared { return NewShared(stack) },
//	        func(stack awscdk.Stack, shared *Shared, deploymentIdent string) {
//	            NewDeployment(stack, shared, deploymentIdent)
//	        },
//	    )
//
//	    app.Synth(nil)
//	}
//
// # CDK Context Configuration
//
// The package reads configuration from CDK context (cdk.json). With prefix "myapp-":
//
//	{
//	  "myapp-qualifier": "myapp",
//	  "myapp-primary-region": "us-east-1",
//	  "myapp-deployments": ["Dev", "Stag", "Prod"],
//	  "myapp-override-warnings": false
//	}
//
// # Props
//
// Constructs merge their defaults with user props using [ConsolidateProps]. When a
// user value replaces a default, a warning with id [OverrideWarningID] is added to
// the construct tree. Set the "override-warnings" context value or the
// overrideWarningsEnabled environment variable to false to silence them.
//
// Invalid prop combinations are detected by [CheckProps] and the per-service check
// functions, which report all violations in a single error.
package bwcdkutil
