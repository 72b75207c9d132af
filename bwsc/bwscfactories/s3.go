package bwscfactories

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/basewarphq/bwsc/bwcdk/bwcdks3"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// S3BucketFactoryProps configures S3BucketFactory.
type S3BucketFactoryProps struct {
	BucketProps *awss3.BucketProps
	// LogS3AccessLogs defaults to true.
	LogS3AccessLogs    *bool
	LoggingBucketProps *awss3.BucketProps
}

// S3BucketFactoryResponse holds the bucket and its access log bucket, which is nil
// when access logging is disabled.
type S3BucketFactoryResponse struct {
	S3Bucket        awss3.Bucket
	S3LoggingBucket awss3.Bucket
}

// S3BucketFactory creates "<id>S3Bucket" and, unless disabled, "<id>S3LoggingBucket".
// It panics when props are contradictory.
func S3BucketFactory(scope constructs.Construct, id string, props S3BucketFactoryProps) S3BucketFactoryResponse {
	bwcdkutil.MustCheck(bwcdks3.CheckS3Props(bwcdks3.S3Props{
		BucketProps:        props.BucketProps,
		LoggingBucketProps: props.LoggingBucketProps,
		LogS3AccessLogs:    props.LogS3AccessLogs,
	}))

	resp := bwcdks3.BuildS3Bucket(scope, bwcdks3.BuildS3BucketProps{
		BucketProps:        props.BucketProps,
		LoggingBucketProps: props.LoggingBucketProps,
		LogS3AccessLogs:    props.LogS3AccessLogs,
	}, id)

	return S3BucketFactoryResponse{S3Bucket: resp.Bucket, S3LoggingBucket: resp.LoggingBucket}
}
