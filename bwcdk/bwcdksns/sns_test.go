//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdksns_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdksns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTopic_AWSManagedKey(t *testing.T) {
	defer jsii.Close()

	stack := awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), nil)
	resp := bwcdksns.BuildTopic(stack, "Topic", bwcdksns.BuildTopicProps{})
	require.NotNil(t, resp.Topic)

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::KMS::Key"), jsii.Number(0))
	template.HasResourceProperties(jsii.String("AWS::SNS::Topic"), map[string]any{
		"KmsMasterKeyId": map[string]any{
			"Fn::Join": []any{"", []any{
				"arn:",
				map[string]any{"Ref": "AWS::Partition"},
				":kms:",
				map[string]any{"Ref": "AWS::Region"},
				":",
				map[string]any{"Ref": "AWS::AccountId"},
				":alias/aws/sns",
			}},
		},
	})
	template.HasResourceProperties(jsii.String("AWS::SNS::TopicPolicy"), map[string]any{
		"PolicyDocument": map[string]any{
			"Statement": []any{
				assertions.Match_ObjectLike(&map[string]any{"Sid": "TopicOwnerOnlyAccess", "Effect": "Allow"}),
				assertions.Match_ObjectLike(&map[string]any{"Sid": "HttpsOnly", "Effect": "Deny"}),
			},
		},
	})
}

func TestBuildTopic_CustomerManagedKey(t *testing.T) {
	defer jsii.Close()

	stack := awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), nil)
	resp := bwcdksns.BuildTopic(stack, "Topic", bwcdksns.BuildTopicProps{
		EnableEncryptionWithCustomerManagedKey: jsii.Bool(true),
	})
	require.NotNil(t, resp.Key)

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::KMS::Key"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::SNS::Topic"), map[string]any{
		"KmsMasterKeyId": map[string]any{
			"Fn::GetAtt": []any{assertions.Match_StringLikeRegexp(jsii.String("TopicKey")), "Arn"},
		},
	})
}

func TestBuildTopic_MasterKeyWins(t *testing.T) {
	defer jsii.Close()

	stack := awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), nil)
	key := awskms.NewKey(stack, jsii.String("UserKey"), nil)
	resp := bwcdksns.BuildTopic(stack, "Topic", bwcdksns.BuildTopicProps{
		TopicProps:                             &awssns.TopicProps{MasterKey: key},
		EnableEncryptionWithCustomerManagedKey: jsii.Bool(true),
	})
	assert.Equal(t, key, resp.Key)

	assertions.Template_FromStack(stack, nil).ResourceCountIs(jsii.String("AWS::KMS::Key"), jsii.Number(1))
}

func TestBuildTopic_Existing(t *testing.T) {
	defer jsii.Close()

	stack := awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), nil)
	existing := awssns.NewTopic(stack, jsii.String("Existing"), nil)
	resp := bwcdksns.BuildTopic(stack, "Topic", bwcdksns.BuildTopicProps{ExistingTopicObj: existing})
	assert.Equal(t, existing, resp.Topic)
	assert.Nil(t, resp.Key)
}

func TestCheckSnsProps(t *testing.T) {
	defer jsii.Close()

	stack := awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), nil)
	key := awskms.NewKey(stack, jsii.String("Key"), nil)

	err := bwcdksns.CheckSnsProps(bwcdksns.SnsProps{
		TopicProps:         &awssns.TopicProps{MasterKey: key},
		EncryptionKey:      key,
		EncryptionKeyProps: &awskms.KeyProps{},
	})
	require.EqualError(t, err,
		"Error - Either provide topicProps.masterKey or encryptionKey, but not both.\n"+
			"Error - Either provide topicProps.masterKey or encryptionKeyProps, but not both.\n"+
			"Error - Either provide encryptionKey or encryptionKeyProps, but not both.\n")

	require.NoError(t, bwcdksns.CheckSnsProps(bwcdksns.SnsProps{}))
}
