//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdkkms_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkkms"
)

func TestBuildEncryptionKey(t *testing.T) {
	defer jsii.Close()

	stack := awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), nil)
	bwcdkkms.BuildEncryptionKey(stack, "", nil)

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::KMS::Key"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::KMS::Key"), map[string]any{
		"EnableKeyRotation": true,
	})
}

func TestBuildEncryptionKeyWithProps(t *testing.T) {
	defer jsii.Close()

	stack := awscdk.NewStack(awscdk.NewApp(nil), jsii.String("TestStack"), nil)
	bwcdkkms.BuildEncryptionKey(stack, "CustomKey", &awskms.KeyProps{
		Description: jsii.String("my key"),
	})

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::KMS::Key"), map[string]any{
		"EnableKeyRotation": true,
		"Description":       "my key",
	})
}
