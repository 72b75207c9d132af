// Package bwcdkmediastore builds Elemental MediaStore containers that only serve
// objects over TLS.
package bwcdkmediastore

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsmediastore"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// ObjectExpirationDays is the age after which objects are deleted by the default lifecycle policy.
const ObjectExpirationDays = 30

// DefaultContainerProps returns the defaults for containers in scope: named after
// the stack, with access logging, container metrics and read access over TLS. See
// ContainerPolicy for userAgent.
func DefaultContainerProps(scope constructs.Construct, userAgent *string) *awsmediastore.CfnContainerProps {
	stack := awscdk.Stack_Of(scope)

	return &awsmediastore.CfnContainerProps{
		ContainerName:        awscdk.Aws_STACK_NAME(),
		AccessLoggingEnabled: jsii.Bool(true),
		CorsPolicy: []any{
			&awsmediastore.CfnContainer_CorsRuleProperty{
				AllowedOrigins: jsii.Strings("*"),
				AllowedHeaders: jsii.Strings("*"),
				AllowedMethods: jsii.Strings("GET"),
				MaxAgeSeconds:  jsii.Number(3000),
			},
		},
		LifecyclePolicy: stack.ToJsonString(map[string]any{
			"rules": []any{map[string]any{
				"definition": map[string]any{
					"path":              []any{map[string]any{"wildcard": "*"}},
					"days_since_create": []any{map[string]any{"numeric": []any{">", ObjectExpirationDays}}},
				},
				"action": "EXPIRE",
			}},
		}, nil),
		MetricPolicy: &awsmediastore.CfnContainer_MetricPolicyProperty{
			ContainerLevelMetrics: jsii.String("ENABLED"),
		},
		Policy: ContainerPolicy(scope, userAgent),
	}
}

// ContainerPolicy returns a policy allowing anyone to read objects of the stack's
// container over TLS. With userAgent set, requests must also carry that User-Agent
// header, which is how a CloudFront distribution identifies itself to the origin.
func ContainerPolicy(scope constructs.Construct, userAgent *string) *string {
	condition := map[string]any{
		"Bool": map[string]any{"aws:SecureTransport": "true"},
	}
	if userAgent != nil {
		condition["StringEquals"] = map[string]any{"aws:UserAgent": *userAgent}
	}

	return awscdk.Stack_Of(scope).ToJsonString(map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{map[string]any{
			"Sid":       "MediaStoreDefaultPolicy",
			"Effect":    "Allow",
			"Principal": "*",
			"Action":    []any{"mediastore:GetObject", "mediastore:DescribeObject"},
			"Resource": *jsii.Sprintf("arn:%s:mediastore:%s:%s:container/%s/*",
				*awscdk.Aws_PARTITION(), *awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID(), *awscdk.Aws_STACK_NAME()),
			"Condition": condition,
		}},
	}, nil)
}

// BuildMediaStoreContainer creates a container from the defaults merged with props.
func BuildMediaStoreContainer(
	scope constructs.Construct, props *awsmediastore.CfnContainerProps, userAgent *string,
) awsmediastore.CfnContainer {
	return awsmediastore.NewCfnContainer(scope, jsii.String("MediaStoreContainer"),
		bwcdkutil.ConsolidateProps(scope, DefaultContainerProps(scope, userAgent), props, nil))
}

// MediaStoreProps are the props CheckMediaStoreProps validates.
type MediaStoreProps struct {
	ExistingMediaStoreContainerObj awsmediastore.CfnContainer
	MediaStoreContainerProps       *awsmediastore.CfnContainerProps
}

// CheckMediaStoreProps validates container related props.
func CheckMediaStoreProps(props MediaStoreProps) error {
	var c bwcdkutil.Checker
	c.Exclusive(props.ExistingMediaStoreContainerObj, props.MediaStoreContainerProps,
		"Either provide mediaStoreContainerProps or existingMediaStoreContainerObj, but not both.")
	return c.Err()
}
