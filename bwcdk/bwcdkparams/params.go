// Package bwcdkparams creates SSM string parameters and shares construct values
// between stacks through a "/{qualifier}/{namespace}/{name}" parameter hierarchy.
package bwcdkparams

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsssm"
	"github.com/aws/aws-cdk-go/awscdk/v2/customresources"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/cockroachdb/errors"
)

// DefaultQualifier is used in parameter names outside of apps created by SetupApp.
const DefaultQualifier = "bwsc"

// BuildSsmStringParameter creates a string parameter from props.
func BuildSsmStringParameter(scope constructs.Construct, id string, props *awsssm.StringParameterProps) awsssm.StringParameter {
	if props == nil || props.StringValue == nil {
		panic(errors.New("stringParameterProps.stringValue is required"))
	}
	return awsssm.NewStringParameter(scope, jsii.String(id), bwcdkutil.ConsolidateProps(scope, nil, props, nil))
}

// ParameterName returns the hierarchical parameter path /{qualifier}/{namespace}/{name}.
func ParameterName(scope constructs.Construct, namespace string, name string) *string {
	qual := DefaultQualifier
	if cfg := bwcdkutil.TryConfigFromScope(scope); cfg != nil {
		qual = cfg.Qualifier
	}
	return jsii.Sprintf("/%s/%s/%s", qual, namespace, name)
}

// Store persists value under ParameterName(namespace, name).
func Store(scope constructs.Construct, id string, namespace string, name string, value *string) awsssm.StringParameter {
	return BuildSsmStringParameter(scope, id, &awsssm.StringParameterProps{
		ParameterName: ParameterName(scope, namespace, name),
		StringValue:   value,
	})
}

// LookupLocal resolves a parameter stored in the same region at deploy time.
func LookupLocal(scope constructs.Construct, namespace string, name string) *string {
	return awsssm.StringParameter_ValueForStringParameter(scope,
		ParameterName(scope, namespace, name), nil)
}

// Lookup reads a parameter stored in another region through a custom resource.
// physicalID must be stable across deployments, e.g. "table-name-lookup".
func Lookup(scope constructs.Construct, id, namespace, name, physicalID, region string) *string {
	sdkCall := &customresources.AwsSdkCall{
		Service: jsii.String("SSM"),
		Action:  jsii.String("getParameter"),
		Parameters: map[string]any{
			"Name": ParameterName(scope, namespace, name),
		},
		Region:             jsii.String(region),
		PhysicalResourceId: customresources.PhysicalResourceId_Of(jsii.String(physicalID)),
	}
	// without OnUpdate a changed parameter path yields an empty response on update
	lookup := customresources.NewAwsCustomResource(scope, jsii.String(id),
		&customresources.AwsCustomResourceProps{
			OnCreate: sdkCall,
			OnUpdate: sdkCall,
			Policy: customresources.AwsCustomResourcePolicy_FromSdkCalls(&customresources.SdkCallsPolicyOptions{
				Resources: customresources.AwsCustomResourcePolicy_ANY_RESOURCE(),
			}),
		})
	return lookup.GetResponseField(jsii.String("Parameter.Value"))
}
