// Package bwcdks3 builds private, encrypted S3 buckets with server access logging.
package bwcdks3

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// NoncurrentVersionTransitionDays is when old object versions move to Glacier.
const NoncurrentVersionTransitionDays = 90

// DefaultS3Props returns the props every bucket starts from. loggingBucket and
// lifecycleRules may be nil.
func DefaultS3Props(loggingBucket awss3.IBucket, lifecycleRules *[]*awss3.LifecycleRule) *awss3.BucketProps {
	return &awss3.BucketProps{
		Encryption:             awss3.BucketEncryption_S3_MANAGED,
		Versioned:              jsii.Bool(true),
		BlockPublicAccess:      awss3.BlockPublicAccess_BLOCK_ALL(),
		RemovalPolicy:          awscdk.RemovalPolicy_RETAIN,
		EnforceSSL:             jsii.Bool(true),
		LifecycleRules:         lifecycleRules,
		ServerAccessLogsBucket: loggingBucket,
	}
}

// BuildS3BucketProps configures BuildS3Bucket.
type BuildS3BucketProps struct {
	BucketProps        *awss3.BucketProps
	LoggingBucketProps *awss3.BucketProps
	// LogS3AccessLogs disables the access log bucket when false. Defaults to true.
	LogS3AccessLogs *bool
}

// BuildS3BucketResponse holds the bucket and, when one was created, its log bucket.
type BuildS3BucketResponse struct {
	Bucket        awss3.Bucket
	LoggingBucket awss3.Bucket
}

// BuildS3Bucket creates a bucket named "<bucketID>S3Bucket". Unless the user brings
// their own ServerAccessLogsBucket or disables access logs, a logging bucket named
// "<bucketID>S3LoggingBucket" is created next to it.
func BuildS3Bucket(scope constructs.Construct, props BuildS3BucketProps, bucketID string) BuildS3BucketResponse {
	var loggingBucket awss3.Bucket
	userLogBucket := props.BucketProps != nil && props.BucketProps.ServerAccessLogsBucket != nil
	if !userLogBucket && (props.LogS3AccessLogs == nil || *props.LogS3AccessLogs) {
		loggingBucket = CreateLoggingBucket(scope, bucketID+"S3LoggingBucket",
			bwcdkutil.ConsolidateProps(scope, DefaultS3Props(nil, nil), props.LoggingBucketProps, nil))
	}

	var lifecycleRules *[]*awss3.LifecycleRule
	if props.BucketProps == nil || props.BucketProps.Versioned == nil || *props.BucketProps.Versioned {
		lifecycleRules = &[]*awss3.LifecycleRule{{
			NoncurrentVersionTransitions: &[]*awss3.NoncurrentVersionTransition{{
				StorageClass:    awss3.StorageClass_GLACIER(),
				TransitionAfter: awscdk.Duration_Days(jsii.Number(NoncurrentVersionTransitionDays)),
			}},
		}}
	}

	var defaultLogBucket awss3.IBucket
	if loggingBucket != nil {
		defaultLogBucket = loggingBucket
	}

	bucket := awss3.NewBucket(scope, jsii.String(bucketID+"S3Bucket"),
		bwcdkutil.ConsolidateProps(scope, DefaultS3Props(defaultLogBucket, lifecycleRules), props.BucketProps, nil))

	return BuildS3BucketResponse{Bucket: bucket, LoggingBucket: loggingBucket}
}

// CreateLoggingBucket creates a bucket that receives server access logs of other
// buckets. It does not log access to itself.
func CreateLoggingBucket(scope constructs.Construct, id string, props *awss3.BucketProps) awss3.Bucket {
	bucket := awss3.NewBucket(scope, jsii.String(id), props)

	bwcdkutil.AddCfnSuppressRules(bucket, bwcdkutil.CfnNagSuppressRule{
		ID:     "W35",
		Reason: "This S3 bucket is used as the access logging bucket for another bucket",
	})

	return bucket
}

// S3Props are the props CheckS3Props validates.
type S3Props struct {
	ExistingBucketObj        awss3.IBucket
	BucketProps              *awss3.BucketProps
	ExistingLoggingBucketObj awss3.IBucket
	LoggingBucketProps       *awss3.BucketProps
	LogS3AccessLogs          *bool
}

// CheckS3Props validates bucket and access log related props.
func CheckS3Props(props S3Props) error {
	var c bwcdkutil.Checker

	c.Exclusive(props.BucketProps, props.ExistingBucketObj,
		"Either provide bucketProps or existingBucketObj, but not both.")
	c.Exclusive(props.ExistingLoggingBucketObj, props.LoggingBucketProps,
		"Either provide existingLoggingBucketObj or loggingBucketProps, but not both.")

	logsDisabled := props.LogS3AccessLogs != nil && !*props.LogS3AccessLogs
	if logsDisabled && (props.LoggingBucketProps != nil || bwcdkutil.IsSet(props.ExistingLoggingBucketObj)) {
		c.Fail("If logS3AccessLogs is false, supplying loggingBucketProps or existingLoggingBucketObj is invalid.")
	}
	if logsDisabled && props.BucketProps != nil && props.BucketProps.ServerAccessLogsBucket != nil {
		c.Fail("If logS3AccessLogs is false, supplying bucketProps.serverAccessLogsBucket is invalid.")
	}
	if props.ExistingLoggingBucketObj != nil && props.BucketProps != nil && props.BucketProps.ServerAccessLogsBucket != nil {
		c.Fail("Either provide existingLoggingBucketObj or bucketProps.serverAccessLogsBucket, but not both.")
	}

	return c.Err()
}
