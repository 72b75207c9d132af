//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdkcloudfront_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsmediastore"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkcloudfront"
	"github.com/stretchr/testify/require"
)

func newContainer(stack awscdk.Stack) awsmediastore.CfnContainer {
	return awsmediastore.NewCfnContainer(stack, jsii.String("MediaStoreContainer"), &awsmediastore.CfnContainerProps{
		ContainerName: jsii.String("TestContainer"),
	})
}

func TestCloudFrontDistributionForMediaStore_Defaults(t *testing.T) {
	defer jsii.Close()

	stack := awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), nil)
	res := bwcdkcloudfront.CloudFrontDistributionForMediaStore(stack, newContainer(stack),
		bwcdkcloudfront.MediaStoreDistributionProps{UserAgent: jsii.String("secret-agent")})
	require.NotNil(t, res.LoggingBucket)
	require.NotNil(t, res.ResponseHeadersPolicy)

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::CloudFront::Distribution"), map[string]any{
		"DistributionConfig": map[string]any{
			"DefaultCacheBehavior": map[string]any{
				"AllowedMethods":          []any{"GET", "HEAD", "OPTIONS"},
				"CachedMethods":           []any{"GET", "HEAD", "OPTIONS"},
				"CachePolicyId":           "658327ea-f89d-4fab-a63d-7e88639e58f6",
				"ViewerProtocolPolicy":    "redirect-to-https",
				"ResponseHeadersPolicyId": assertions.Match_AnyValue(),
			},
			"Logging": map[string]any{
				"Bucket": map[string]any{
					"Fn::GetAtt": []any{assertions.Match_StringLikeRegexp(jsii.String("^CloudfrontLoggingBucket")), "RegionalDomainName"},
				},
			},
			"Origins": []any{
				assertions.Match_ObjectLike(&map[string]any{
					"CustomOriginConfig": map[string]any{"OriginProtocolPolicy": "https-only"},
					"OriginCustomHeaders": []any{
						map[string]any{"HeaderName": "User-Agent", "HeaderValue": "secret-agent"},
					},
				}),
			},
		},
	})
	template.HasResourceProperties(jsii.String("AWS::CloudFront::ResponseHeadersPolicy"), map[string]any{
		"ResponseHeadersPolicyConfig": map[string]any{
			"SecurityHeadersConfig": map[string]any{
				"FrameOptions": map[string]any{"FrameOption": "DENY", "Override": true},
			},
		},
	})
	template.ResourceCountIs(jsii.String("AWS::CloudFront::OriginRequestPolicy"), jsii.Number(1))
}

func TestCloudFrontDistributionForMediaStore_UserLogBucketNoHeaders(t *testing.T) {
	defer jsii.Close()

	stack := awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), nil)
	logBucket := awss3.NewBucket(stack, jsii.String("LoggingBucket"), &awss3.BucketProps{
		ObjectOwnership: awss3.ObjectOwnership_OBJECT_WRITER,
	})
	res := bwcdkcloudfront.CloudFrontDistributionForMediaStore(stack, newContainer(stack),
		bwcdkcloudfront.MediaStoreDistributionProps{
			DistributionProps:         &awscloudfront.DistributionProps{LogBucket: logBucket},
			InsertHttpSecurityHeaders: jsii.Bool(false),
		})
	require.Nil(t, res.LoggingBucket)
	require.Nil(t, res.ResponseHeadersPolicy)

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::S3::Bucket"), jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::CloudFront::ResponseHeadersPolicy"), jsii.Number(0))
}

func TestCheckCloudFrontProps(t *testing.T) {
	err := bwcdkcloudfront.CheckCloudFrontProps(bwcdkcloudfront.CloudFrontProps{
		ResponseHeadersPolicyProps: &awscloudfront.ResponseHeadersPolicyProps{
			SecurityHeadersBehavior: &awscloudfront.ResponseSecurityHeadersBehavior{},
		},
	})
	require.EqualError(t, err, "Error - responseHeadersPolicyProps.securityHeadersBehavior can only be passed "+
		"if insertHttpSecurityHeaders is set to `false`.\n")

	require.NoError(t, bwcdkcloudfront.CheckCloudFrontProps(bwcdkcloudfront.CloudFrontProps{
		InsertHttpSecurityHeaders: jsii.Bool(false),
		ResponseHeadersPolicyProps: &awscloudfront.ResponseHeadersPolicyProps{
			SecurityHeadersBehavior: &awscloudfront.ResponseSecurityHeadersBehavior{},
		},
	}))
}
