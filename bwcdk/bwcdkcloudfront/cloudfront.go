// Package bwcdkcloudfront builds CloudFront distributions in front of AWS origins,
// with access logging and HTTP security headers on every response.
package bwcdkcloudfront

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfrontorigins"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsmediastore"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdks3"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// DefaultSecurityHeaders returns the security headers added to every response.
func DefaultSecurityHeaders() *awscloudfront.ResponseSecurityHeadersBehavior {
	return &awscloudfront.ResponseSecurityHeadersBehavior{
		ContentSecurityPolicy: &awscloudfront.ResponseHeadersContentSecurityPolicy{
			ContentSecurityPolicy: jsii.String("default-src 'none'; base-uri 'self'; img-src 'self'; " +
				"script-src 'self'; style-src 'self' https:; object-src 'none'; frame-ancestors 'none'; " +
				"font-src 'self' https:; form-action 'self'; manifest-src 'self'; connect-src 'self'"),
			Override: jsii.Bool(true),
		},
		ContentTypeOptions: &awscloudfront.ResponseHeadersContentTypeOptions{Override: jsii.Bool(true)},
		FrameOptions: &awscloudfront.ResponseHeadersFrameOptions{
			FrameOption: awscloudfront.HeadersFrameOption_DENY,
			Override:    jsii.Bool(true),
		},
		ReferrerPolicy: &awscloudfront.ResponseHeadersReferrerPolicy{
			ReferrerPolicy: awscloudfront.HeadersReferrerPolicy_SAME_ORIGIN,
			Override:       jsii.Bool(true),
		},
		StrictTransportSecurity: &awscloudfront.ResponseHeadersStrictTransportSecurity{
			AccessControlMaxAge: awscdk.Duration_Seconds(jsii.Number(63072000)),
			IncludeSubdomains:   jsii.Bool(true),
			Preload:             jsii.Bool(true),
			Override:            jsii.Bool(true),
		},
		XssProtection: &awscloudfront.ResponseHeadersXSSProtection{
			Protection: jsii.Bool(true),
			ModeBlock:  jsii.Bool(true),
			Override:   jsii.Bool(true),
		},
	}
}

// DefaultMediaStoreOriginRequestPolicyProps forwards the CORS headers and query strings to the container.
func DefaultMediaStoreOriginRequestPolicyProps() *awscloudfront.OriginRequestPolicyProps {
	return &awscloudfront.OriginRequestPolicyProps{
		HeaderBehavior: awscloudfront.OriginRequestHeaderBehavior_AllowList(
			jsii.String("Access-Control-Allow-Origin"),
			jsii.String("Access-Control-Request-Method"),
			jsii.String("Access-Control-Request-Header"),
			jsii.String("Origin"),
		),
		QueryStringBehavior: awscloudfront.OriginRequestQueryStringBehavior_All(),
		CookieBehavior:      awscloudfront.OriginRequestCookieBehavior_None(),
		Comment:             jsii.String("Policy for Constructs Generated Distribution"),
		OriginRequestPolicyName: jsii.Sprintf("%s-%s-CloudFrontDistributionForMediaStore",
			*awscdk.Aws_STACK_NAME(), *awscdk.Aws_REGION()),
	}
}

// MediaStoreDistributionProps configures CloudFrontDistributionForMediaStore.
type MediaStoreDistributionProps struct {
	// DistributionProps are merged over the defaults. DefaultBehavior.Origin is always set.
	DistributionProps *awscloudfront.DistributionProps
	// UserAgent is sent to the origin as the User-Agent header when set.
	UserAgent *string
	// InsertHttpSecurityHeaders defaults to true.
	InsertHttpSecurityHeaders *bool
	// ResponseHeadersPolicyProps creates a custom response headers policy.
	ResponseHeadersPolicyProps *awscloudfront.ResponseHeadersPolicyProps
	// LoggingBucketProps are used for the access log bucket created when
	// DistributionProps has no LogBucket.
	LoggingBucketProps *awss3.BucketProps
}

// DistributionResponse holds the distribution and the resources created for it.
type DistributionResponse struct {
	Distribution          awscloudfront.Distribution
	LoggingBucket         awss3.Bucket
	OriginRequestPolicy   awscloudfront.IOriginRequestPolicy
	ResponseHeadersPolicy awscloudfront.IResponseHeadersPolicy
}

// CloudFrontDistributionForMediaStore creates a distribution with container as its
// HTTPS only origin.
func CloudFrontDistributionForMediaStore(
	scope constructs.Construct, container awsmediastore.CfnContainer, props MediaStoreDistributionProps,
) DistributionResponse {
	bwcdkutil.MustCheck(CheckCloudFrontProps(CloudFrontProps{
		InsertHttpSecurityHeaders:  props.InsertHttpSecurityHeaders,
		ResponseHeadersPolicyProps: props.ResponseHeadersPolicyProps,
	}))

	var res DistributionResponse
	user := props.DistributionProps
	if user == nil {
		user = &awscloudfront.DistributionProps{}
	}

	if user.DefaultBehavior != nil && user.DefaultBehavior.OriginRequestPolicy != nil {
		res.OriginRequestPolicy = user.DefaultBehavior.OriginRequestPolicy
	} else {
		res.OriginRequestPolicy = awscloudfront.NewOriginRequestPolicy(scope,
			jsii.String("CloudfrontOriginRequestPolicy"), DefaultMediaStoreOriginRequestPolicyProps())
	}

	res.ResponseHeadersPolicy = buildResponseHeadersPolicy(scope, props.InsertHttpSecurityHeaders,
		props.ResponseHeadersPolicyProps)

	logBucket := user.LogBucket
	if logBucket == nil {
		res.LoggingBucket = bwcdks3.CreateLoggingBucket(scope, "CloudfrontLoggingBucket",
			bwcdkutil.ConsolidateProps(scope, bwcdks3.DefaultS3Props(nil, nil), props.LoggingBucketProps,
				&awss3.BucketProps{ObjectOwnership: awss3.ObjectOwnership_OBJECT_WRITER}))
		logBucket = res.LoggingBucket
	}

	domainName := awscdk.Fn_Select(jsii.Number(0), awscdk.Fn_Split(jsii.String("/"),
		awscdk.Fn_Select(jsii.Number(1), awscdk.Fn_Split(jsii.String("://"), container.AttrEndpoint(), nil)), nil))

	var customHeaders *map[string]*string
	if props.UserAgent != nil {
		customHeaders = &map[string]*string{"User-Agent": props.UserAgent}
	}
	origin := awscloudfrontorigins.NewHttpOrigin(domainName, &awscloudfrontorigins.HttpOriginProps{
		ProtocolPolicy: awscloudfront.OriginProtocolPolicy_HTTPS_ONLY,
		CustomHeaders:  customHeaders,
	})

	defaults := &awscloudfront.DistributionProps{
		DefaultBehavior: &awscloudfront.BehaviorOptions{
			Origin:                origin,
			ViewerProtocolPolicy:  awscloudfront.ViewerProtocolPolicy_REDIRECT_TO_HTTPS,
			AllowedMethods:        awscloudfront.AllowedMethods_ALLOW_GET_HEAD_OPTIONS(),
			CachedMethods:         awscloudfront.CachedMethods_CACHE_GET_HEAD_OPTIONS(),
			CachePolicy:           awscloudfront.CachePolicy_CACHING_OPTIMIZED(),
			OriginRequestPolicy:   res.OriginRequestPolicy,
			ResponseHeadersPolicy: res.ResponseHeadersPolicy,
		},
		EnableLogging: jsii.Bool(true),
		LogBucket:     logBucket,
	}

	res.Distribution = awscloudfront.NewDistribution(scope, jsii.String("CloudFrontDistribution"),
		bwcdkutil.ConsolidateProps(scope, defaults, user, &awscloudfront.DistributionProps{
			DefaultBehavior: &awscloudfront.BehaviorOptions{Origin: origin},
		}))

	bwcdkutil.AddCfnSuppressRules(res.Distribution, bwcdkutil.CfnNagSuppressRule{
		ID: "W70",
		Reason: "Since the distribution uses the CloudFront domain name, CloudFront automatically sets " +
			"the security policy to TLSv1 regardless of the value of MinimumProtocolVersion",
	})

	return res
}

func buildResponseHeadersPolicy(
	scope constructs.Construct, insert *bool, props *awscloudfront.ResponseHeadersPolicyProps,
) awscloudfront.IResponseHeadersPolicy {
	insertHeaders := insert == nil || *insert
	switch {
	case props != nil:
		merged := props
		if insertHeaders {
			merged = bwcdkutil.ConsolidateProps(nil, props, nil, &awscloudfront.ResponseHeadersPolicyProps{
				SecurityHeadersBehavior: DefaultSecurityHeaders(),
			})
		}
		return awscloudfront.NewResponseHeadersPolicy(scope, jsii.String("ResponseHeadersPolicy"), merged)
	case insertHeaders:
		return awscloudfront.NewResponseHeadersPolicy(scope, jsii.String("ResponseHeadersPolicy"),
			&awscloudfront.ResponseHeadersPolicyProps{
				SecurityHeadersBehavior: DefaultSecurityHeaders(),
			})
	default:
		return nil
	}
}

// CloudFrontProps are the props CheckCloudFrontProps validates.
type CloudFrontProps struct {
	InsertHttpSecurityHeaders  *bool
	ResponseHeadersPolicyProps *awscloudfront.ResponseHeadersPolicyProps
}

// CheckCloudFrontProps validates distribution related props.
func CheckCloudFrontProps(props CloudFrontProps) error {
	var c bwcdkutil.Checker
	insert := props.InsertHttpSecurityHeaders == nil || *props.InsertHttpSecurityHeaders
	if insert && props.ResponseHeadersPolicyProps != nil && props.ResponseHeadersPolicyProps.SecurityHeadersBehavior != nil {
		c.Fail("responseHeadersPolicyProps.securityHeadersBehavior can only be passed if " +
			"insertHttpSecurityHeaders is set to `false`.")
	}
	return c.Err()
}
