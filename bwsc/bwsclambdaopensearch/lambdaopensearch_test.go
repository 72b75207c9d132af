//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwsclambdaopensearch_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsopensearchservice"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwsc/bwsclambdaopensearch"
	"github.com/basewarphq/bwsc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	defer jsii.Close()

	stack := testutil.NewStack(nil)
	pattern := bwsclambdaopensearch.New(stack, "LambdaToOpenSearch", bwsclambdaopensearch.Props{
		LambdaFunctionProps:  testutil.InlineFunctionProps(),
		OpenSearchDomainName: "search-domain",
	})

	require.NotNil(t, pattern.LambdaFunction())
	require.NotNil(t, pattern.UserPool())
	require.NotNil(t, pattern.UserPoolClient())
	require.NotNil(t, pattern.IdentityPool())
	require.NotNil(t, pattern.OpenSearchDomain())
	require.NotNil(t, pattern.OpenSearchRole())
	assert.Len(t, pattern.CloudWatchAlarms(), 9)
	assert.Nil(t, pattern.Vpc())

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::OpenSearchService::Domain"), jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::Cognito::UserPoolDomain"), jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::CloudWatch::Alarm"), jsii.Number(9))
	template.HasResourceProperties(jsii.String("AWS::Cognito::UserPoolDomain"), map[string]any{
		"Domain": "search-domain",
	})
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]any{
		"Environment": map[string]any{
			"Variables": assertions.Match_ObjectLike(&map[string]any{
				"DOMAIN_ENDPOINT": map[string]any{
					"Fn::GetAtt": []any{
						assertions.Match_StringLikeRegexp(jsii.String("^LambdaToOpenSearchOpenSearchDomain")),
						"DomainEndpoint",
					},
				},
			}),
		},
	})
}

func TestNew_CustomNamesWithoutAlarms(t *testing.T) {
	defer jsii.Close()

	stack := testutil.NewStack(nil)
	pattern := bwsclambdaopensearch.New(stack, "LambdaToOpenSearch", bwsclambdaopensearch.Props{
		LambdaFunctionProps:                   testutil.InlineFunctionProps(),
		OpenSearchDomainName:                  "search-domain",
		CognitoDomainName:                     "login-domain",
		CreateCloudWatchAlarms:                jsii.Bool(false),
		DomainEndpointEnvironmentVariableName: jsii.String("SEARCH_ENDPOINT"),
	})
	assert.Empty(t, pattern.CloudWatchAlarms())

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::CloudWatch::Alarm"), jsii.Number(0))
	template.HasResourceProperties(jsii.String("AWS::Cognito::UserPoolDomain"), map[string]any{
		"Domain": "login-domain",
	})
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]any{
		"Environment": map[string]any{
			"Variables": assertions.Match_ObjectLike(&map[string]any{
				"SEARCH_ENDPOINT": assertions.Match_AnyValue(),
			}),
		},
	})
}

func TestNew_DeployVpc(t *testing.T) {
	defer jsii.Close()

	stack := testutil.NewStack(nil)
	pattern := bwsclambdaopensearch.New(stack, "LambdaToOpenSearch", bwsclambdaopensearch.Props{
		LambdaFunctionProps:  testutil.InlineFunctionProps(),
		OpenSearchDomainName: "search-domain",
		DeployVpc:            jsii.Bool(true),
	})
	require.NotNil(t, pattern.Vpc())

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::EC2::VPC"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::OpenSearchService::Domain"), map[string]any{
		"VPCOptions": map[string]any{
			"SubnetIds":        assertions.Match_AnyValue(),
			"SecurityGroupIds": assertions.Match_AnyValue(),
		},
	})
}

func TestCheckLambdaToOpenSearchProps(t *testing.T) {
	defer jsii.Close()

	require.EqualError(t, bwsclambdaopensearch.CheckLambdaToOpenSearchProps(bwsclambdaopensearch.Props{
		OpenSearchDomainProps: &awsopensearchservice.CfnDomainProps{DomainName: jsii.String("other")},
	}), "Error - openSearchDomainName is required\n"+
		"Error - If the DomainName property is specified in openSearchDomainProps it must match openSearchDomainName\n")

	require.EqualError(t, bwsclambdaopensearch.CheckLambdaToOpenSearchProps(bwsclambdaopensearch.Props{
		OpenSearchDomainName: "search-domain",
		VpcProps:             &awsec2.VpcProps{},
	}), "Error - If you provide vpcProps, deployVpc must be true.\n")

	require.EqualError(t, bwsclambdaopensearch.CheckLambdaToOpenSearchProps(bwsclambdaopensearch.Props{
		OpenSearchDomainName: "search-domain",
		OpenSearchDomainProps: &awsopensearchservice.CfnDomainProps{
			VpcOptions: &awsopensearchservice.CfnDomain_VPCOptionsProperty{},
		},
	}), "Error - Define VPC using construct parameters not the OpenSearch Service props\n")
}
