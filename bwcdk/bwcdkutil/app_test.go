//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdkutil_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

type testShared struct {
	StackName string
}

func TestSetupApp(t *testing.T) {
	defer jsii.Close()

	ctx := map[string]any{
		"myapp-qualifier":      "myapp",
		"myapp-primary-region": "us-east-1",
		"myapp-deployments":    []any{"Dev", "Prod"},
	}

	app := awscdk.NewApp(&awscdk.AppProps{
		Context: &ctx,
	})

	var sharedCalls []string
	var deploymentCalls []struct{ Stack, Shared, Deployment string }

	bwcdkutil.SetupApp(app, bwcdkutil.AppConfig{
		Prefix: "myapp-",
	},
		func(stack awscdk.Stack) *testShared {
			sharedCalls = append(sharedCalls, *stack.StackName())
			return &testShared{StackName: *stack.StackName()}
		},
		func(stack awscdk.Stack, shared *testShared, deploymentIdent string) {
			deploymentCalls = append(deploymentCalls, struct{ Stack, Shared, Deployment string }{
				Stack:      *stack.StackName(),
				Shared:     shared.StackName,
				Deployment: deploymentIdent,
			})

			if got := bwcdkutil.DeploymentIdent(stack); got != deploymentIdent {
				t.Errorf("DeploymentIdent() = %q, want %q", got, deploymentIdent)
			}
		},
	)

	if len(sharedCalls) != 1 || sharedCalls[0] != "myappUse1Shared" {
		t.Fatalf("shared calls = %v, want [myappUse1Shared]", sharedCalls)
	}

	expected := []struct{ Stack, Shared, Deployment string }{
		{"myappUse1Dev", "myappUse1Shared", "Dev"},
		{"myappUse1Prod", "myappUse1Shared", "Prod"},
	}
	if len(deploymentCalls) != len(expected) {
		t.Fatalf("expected %d deployment calls, got %d: %v", len(expected), len(deploymentCalls), deploymentCalls)
	}
	for i, want := range expected {
		if deploymentCalls[i] != want {
			t.Errorf("deployment call %d = %+v, want %+v", i, deploymentCalls[i], want)
		}
	}

	if got := bwcdkutil.Qualifier(app); got != "myapp" {
		t.Errorf("Qualifier() = %q, want %q", got, "myapp")
	}
}

func TestSetupAppPanicsOnInvalidContext(t *testing.T) {
	defer jsii.Close()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for missing context")
		}
	}()

	bwcdkutil.SetupApp(awscdk.NewApp(nil), bwcdkutil.AppConfig{Prefix: "myapp-"},
		func(stack awscdk.Stack) any { return nil },
		func(stack awscdk.Stack, _ any, _ string) {},
	)
}
