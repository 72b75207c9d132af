// Package bwsccloudfrontmediastore serves an Elemental MediaStore container through
// a CloudFront distribution.
package bwsccloudfrontmediastore

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsmediastore"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkcloudfront"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkmediastore"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// Props configures the CloudFrontToMediaStore construct.
type Props struct {
	ExistingMediaStoreContainerObj awsmediastore.CfnContainer
	// MediaStoreContainerProps are merged over the container defaults. Without them
	// the container only admits requests carrying the distribution's User-Agent.
	MediaStoreContainerProps *awsmediastore.CfnContainerProps

	CloudFrontDistributionProps  *awscloudfront.DistributionProps
	InsertHttpSecurityHeaders    *bool
	ResponseHeadersPolicyProps   *awscloudfront.ResponseHeadersPolicyProps
	CloudFrontLoggingBucketProps *awss3.BucketProps
}

// CloudFrontToMediaStore exposes the resources of the pattern.
type CloudFrontToMediaStore interface {
	CloudFrontWebDistribution() awscloudfront.Distribution
	MediaStoreContainer() awsmediastore.CfnContainer
	// CloudFrontLoggingBucket is nil when the distribution props bring a log bucket.
	CloudFrontLoggingBucket() awss3.Bucket
	CloudFrontOriginRequestPolicy() awscloudfront.IOriginRequestPolicy
	// CloudFrontOriginAccessIdentity is only created with the default container policy.
	CloudFrontOriginAccessIdentity() awscloudfront.OriginAccessIdentity
}

type cloudFrontToMediaStore struct {
	container    awsmediastore.CfnContainer
	distribution bwcdkcloudfront.DistributionResponse
	oai          awscloudfront.OriginAccessIdentity
}

// New creates the container and the distribution. It panics when props are contradictory.
func New(scope constructs.Construct, id string, props Props) CloudFrontToMediaStore {
	bwcdkutil.MustCheck(CheckCloudFrontToMediaStoreProps(props))

	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &cloudFrontToMediaStore{}

	var userAgent *string
	switch {
	case props.ExistingMediaStoreContainerObj != nil:
		con.container = props.ExistingMediaStoreContainerObj
	case props.MediaStoreContainerProps != nil:
		con.container = bwcdkmediastore.BuildMediaStoreContainer(scope, props.MediaStoreContainerProps, nil)
	default:
		con.oai = awscloudfront.NewOriginAccessIdentity(scope, jsii.String("CloudFrontOriginAccessIdentity"),
			&awscloudfront.OriginAccessIdentityProps{
				Comment: jsii.String("Access identity of the MediaStore distribution"),
			})
		userAgent = con.oai.OriginAccessIdentityId()
		con.container = bwcdkmediastore.BuildMediaStoreContainer(scope, nil, userAgent)
	}

	con.distribution = bwcdkcloudfront.CloudFrontDistributionForMediaStore(scope, con.container,
		bwcdkcloudfront.MediaStoreDistributionProps{
			DistributionProps:          props.CloudFrontDistributionProps,
			UserAgent:                  userAgent,
			InsertHttpSecurityHeaders:  props.InsertHttpSecurityHeaders,
			ResponseHeadersPolicyProps: props.ResponseHeadersPolicyProps,
			LoggingBucketProps:         props.CloudFrontLoggingBucketProps,
		})

	return con
}

func (c *cloudFrontToMediaStore) CloudFrontWebDistribution() awscloudfront.Distribution {
	return c.distribution.Distribution
}

func (c *cloudFrontToMediaStore) MediaStoreContainer() awsmediastore.CfnContainer { return c.container }
func (c *cloudFrontToMediaStore) CloudFrontLoggingBucket() awss3.Bucket { return c.distribution.LoggingBucket }

func (c *cloudFrontToMediaStore) CloudFrontOriginRequestPolicy() awscloudfront.IOriginRequestPolicy {
	return c.distribution.OriginRequestPolicy
}

func (c *cloudFrontToMediaStore) CloudFrontOriginAccessIdentity() awscloudfront.OriginAccessIdentity {
	return c.oai
}

// CheckCloudFrontToMediaStoreProps validates the props of the construct.
func CheckCloudFrontToMediaStoreProps(props Props) error {
	var c bwcdkutil.Checker
	c.Add(bwcdkmediastore.CheckMediaStoreProps(bwcdkmediastore.MediaStoreProps{
		ExistingMediaStoreContainerObj: props.ExistingMediaStoreContainerObj,
		MediaStoreContainerProps:       props.MediaStoreContainerProps,
	}))
	c.Add(bwcdkcloudfront.CheckCloudFrontProps(bwcdkcloudfront.CloudFrontProps{
		InsertHttpSecurityHeaders:  props.InsertHttpSecurityHeaders,
		ResponseHeadersPolicyProps: props.ResponseHeadersPolicyProps,
	}))
	return c.Err()
}
