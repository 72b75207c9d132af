//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdkutil_test

import (
	"strings"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// setupBwscApp runs SetupApp with the context layout of infra/cdk and returns the
// shared stack and the stack of the single deployment.
func setupBwscApp(t *testing.T, deployment string) (awscdk.Stack, awscdk.Stack) {
	t.Helper()
	ctx := map[string]any{
		"bwsc-qualifier":      "bwsc",
		"bwsc-primary-region": "eu-west-1",
		"bwsc-deployments":    []any{deployment},
	}

	var shared, deployed awscdk.Stack
	bwcdkutil.SetupApp(awscdk.NewApp(&awscdk.AppProps{Context: &ctx}), bwcdkutil.AppConfig{Prefix: "bwsc-"},
		func(stack awscdk.Stack) awscdk.Stack {
			shared = stack
			return stack
		},
		func(stack awscdk.Stack, _ awscdk.Stack, _ string) {
			deployed = stack
		},
	)
	return shared, deployed
}

func TestResourceName(t *testing.T) {
	defer jsii.Close()

	shared, deployed := setupBwscApp(t, "Prod")
	if got := *shared.StackName(); got != "bwscEuw1Shared" {
		t.Fatalf("shared stack name = %q", got)
	}
	if got := *deployed.StackName(); got != "bwscEuw1Prod" {
		t.Fatalf("deployment stack name = %q", got)
	}

	tests := []struct {
		stack  awscdk.Stack
		label  string
		casing bwcdkutil.Casing
		want   string
	}{
		{deployed, "ConsumedItems", bwcdkutil.CasingKebab, "bwsc-prod-consumed-items"},
		{deployed, "ConsumedItems", bwcdkutil.CasingScreamingKebab, "BWSC-PROD-CONSUMED-ITEMS"},
		{deployed, "ConsumedItems", bwcdkutil.CasingSnake, "bwsc_prod_consumed_items"},
		{deployed, "ConsumedItems", bwcdkutil.CasingScreamingSnake, "BWSC_PROD_CONSUMED_ITEMS"},
		{deployed, "ConsumedItems", bwcdkutil.CasingCamel, "BwscProdConsumedItems"},
		{deployed, "ConsumedItems", bwcdkutil.CasingLowerCamel, "bwscProdConsumedItems"},
		{deployed, "events-queue", bwcdkutil.CasingCamel, "BwscProdEventsQueue"},
		{deployed, "api_gateway", bwcdkutil.CasingKebab, "bwsc-prod-api-gateway"},
		{shared, "QueueKey", bwcdkutil.CasingKebab, "bwsc-queue-key"},
		{shared, "QueueKey", bwcdkutil.CasingSnake, "bwsc_queue_key"},
	}
	for _, tt := range tests {
		if got := bwcdkutil.ResourceName(tt.stack, tt.label, tt.casing); got != tt.want {
			t.Errorf("ResourceName(%s, %q) = %q, want %q", *tt.stack.StackName(), tt.label, got, tt.want)
		}
	}

	// names are derived from the stack, not from where in the tree the scope sits
	nested := awscdk.NewNestedStack(deployed, jsii.String("Nested"), nil)
	if got := bwcdkutil.ResourceName(nested, "Items", bwcdkutil.CasingKebab); got != "bwsc-prod-items" {
		t.Errorf("nested ResourceName = %q", got)
	}
}

func TestRegionIdentFor(t *testing.T) {
	for region, want := range map[string]string{
		"eu-west-1":      "Euw1",
		"eu-central-2":   "Euc2",
		"us-east-1":      "Use1",
		"ap-southeast-4": "Apse4",
		"ap-northeast-3": "Apne3",
		"ca-west-1":      "Caw1",
		"us-gov-east-1":  "Usge1",
		"local":          "Local",
	} {
		if got := bwcdkutil.RegionIdentFor(region); got != want {
			t.Errorf("RegionIdentFor(%q) = %q, want %q", region, got, want)
		}
	}
}

func TestGeneratePhysicalName(t *testing.T) {
	// the default name of an OpenAPI backed rest api
	api := bwcdkutil.GeneratePhysicalName("", []string{"OpenApiGatewayToLambda"}, 255)
	if !strings.HasPrefix(api, "openapigatewaytolambda") || len(api) != len("openapigatewaytolambda")+8 {
		t.Errorf("unexpected api name %q", api)
	}

	// a state machine log group under a long construct path
	path := []string{"bwscEuw1Prod", "LambdaToStepFunctions", "StateMachineLogGroup"}
	logGroup := bwcdkutil.GeneratePhysicalName("/aws/vendedlogs/states/", path, 48)
	if len(logGroup) != 48 || !strings.HasPrefix(logGroup, "/aws/vendedlogs/states/bwsceuw1prod") {
		t.Errorf("unexpected log group name %q", logGroup)
	}
	if again := bwcdkutil.GeneratePhysicalName("/aws/vendedlogs/states/", path, 48); again != logGroup {
		t.Errorf("name is not deterministic: %q != %q", again, logGroup)
	}

	other := bwcdkutil.GeneratePhysicalName("/aws/vendedlogs/states/",
		[]string{"bwscEuw1Prod", "LambdaToStepFunctions", "OtherLogGroup"}, 48)
	if other == logGroup {
		t.Errorf("truncated names should differ by their hash suffix, got %q twice", other)
	}
}
