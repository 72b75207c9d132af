// Package bwcdksns builds encrypted SNS topics restricted to the owning account over TLS.
package bwcdksns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkkms"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// AWSManagedKeyAlias is the alias of the AWS managed key for SNS.
const AWSManagedKeyAlias = "alias/aws/sns"

// BuildTopicProps configures BuildTopic.
type BuildTopicProps struct {
	// ExistingTopicObj is returned as-is when set, everything else is ignored.
	ExistingTopicObj awssns.Topic
	// TopicProps are merged over the defaults. TopicProps.MasterKey takes precedence
	// over all other key settings.
	TopicProps *awssns.TopicProps
	// EnableEncryptionWithCustomerManagedKey encrypts with a customer managed key
	// instead of the AWS managed key.
	EnableEncryptionWithCustomerManagedKey *bool
	// EncryptionKey is an existing customer managed key.
	EncryptionKey awskms.IKey
	// EncryptionKeyProps creates a customer managed key with these props.
	EncryptionKeyProps *awskms.KeyProps
}

// BuildTopicResponse holds the topic and the key encrypting it.
type BuildTopicResponse struct {
	Topic awssns.Topic
	Key   awskms.IKey
}

// BuildTopic creates an encrypted topic, or returns the existing one.
func BuildTopic(scope constructs.Construct, id string, props BuildTopicProps) BuildTopicResponse {
	if props.ExistingTopicObj != nil {
		return BuildTopicResponse{Topic: props.ExistingTopicObj}
	}

	cmk := props.EncryptionKey != nil || props.EncryptionKeyProps != nil ||
		(props.EnableEncryptionWithCustomerManagedKey != nil && *props.EnableEncryptionWithCustomerManagedKey)

	var key awskms.IKey
	switch {
	case props.TopicProps != nil && props.TopicProps.MasterKey != nil:
		key = props.TopicProps.MasterKey
	case cmk && props.EncryptionKey != nil:
		key = props.EncryptionKey
	case cmk:
		key = bwcdkkms.BuildEncryptionKey(scope, id+"Key", props.EncryptionKeyProps)
	default:
		key = awskms.Alias_FromAliasName(scope, jsii.String("aws-managed-key"), jsii.String(AWSManagedKeyAlias))
	}

	topic := awssns.NewTopic(scope, jsii.String(id),
		bwcdkutil.ConsolidateProps(scope, &awssns.TopicProps{}, props.TopicProps, &awssns.TopicProps{
			MasterKey: key,
		}))

	ApplySecureTopicPolicy(topic)

	return BuildTopicResponse{Topic: topic, Key: key}
}

var topicActions = []string{
	"SNS:Publish",
	"SNS:RemovePermission",
	"SNS:SetTopicAttributes",
	"SNS:DeleteTopic",
	"SNS:ListSubscriptionsByTopic",
	"SNS:GetTopicAttributes",
	"SNS:Receive",
	"SNS:AddPermission",
	"SNS:Subscribe",
}

// ApplySecureTopicPolicy allows the owning account to operate the topic and denies
// any request that is not sent over TLS.
func ApplySecureTopicPolicy(topic awssns.Topic) {
	account := awscdk.Stack_Of(topic).Account()

	topic.AddToResourcePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Sid:        jsii.String("TopicOwnerOnlyAccess"),
		Resources:  jsii.Strings(*topic.TopicArn()),
		Actions:    jsii.Strings(topicActions...),
		Principals: &[]awsiam.IPrincipal{awsiam.NewAccountPrincipal(account)},
		Effect:     awsiam.Effect_ALLOW,
		Conditions: &map[string]any{
			"StringEquals": map[string]any{
				"AWS:SourceOwner": account,
			},
		},
	}))

	topic.AddToResourcePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Sid:        jsii.String("HttpsOnly"),
		Resources:  jsii.Strings(*topic.TopicArn()),
		Actions:    jsii.Strings(topicActions...),
		Principals: &[]awsiam.IPrincipal{awsiam.NewAnyPrincipal()},
		Effect:     awsiam.Effect_DENY,
		Conditions: &map[string]any{
			"Bool": map[string]any{
				"aws:SecureTransport": "false",
			},
		},
	}))
}

// SnsProps are the props CheckSnsProps validates.
type SnsProps struct {
	ExistingTopicObj   awssns.Topic
	TopicProps         *awssns.TopicProps
	EncryptionKey      awskms.IKey
	EncryptionKeyProps *awskms.KeyProps
}

// CheckSnsProps validates topic related props.
func CheckSnsProps(props SnsProps) error {
	var c bwcdkutil.Checker

	c.Exclusive(props.TopicProps, props.ExistingTopicObj,
		"Either provide topicProps or existingTopicObj, but not both.")

	var masterKey awskms.IKey
	if props.TopicProps != nil {
		masterKey = props.TopicProps.MasterKey
	}
	c.Exclusive(masterKey, props.EncryptionKey,
		"Either provide topicProps.masterKey or encryptionKey, but not both.")
	c.Exclusive(masterKey, props.EncryptionKeyProps,
		"Either provide topicProps.masterKey or encryptionKeyProps, but not both.")
	c.Exclusive(props.EncryptionKey, props.EncryptionKeyProps,
		"Either provide encryptionKey or encryptionKeyProps, but not both.")

	return c.Err()
}
