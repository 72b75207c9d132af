// Package bwcdkcustomresource deploys the custom resources that the patterns use to
// finish configuration CloudFormation cannot express: rendering deploy-time values
// into S3 templates and granting CloudFront use of a customer managed key.
//
// Both resources are Go functions from the lambdas component running behind the
// Lambda Web Adapter. The Provider framework invokes them with the raw event, which
// the adapter passes through to "/l/on-event".
package bwcdkcustomresource

import (
	"encoding/json"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3assets"
	"github.com/aws/aws-cdk-go/awscdk/v2/customresources"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdklambda"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/cockroachdb/errors"
)

// Entries of the handler commands, relative to the module root.
const (
	TemplateWriterEntry   = "lambdas/cmd/templatewriter"
	KeyPolicyUpdaterEntry = "lambdas/cmd/keypolicyupdater"
)

// PlaceholderPath is the asset uploaded to reserve a location in the asset bucket for
// the rendered template.
var PlaceholderPath = "bwcdk/bwcdkcustomresource/placeholder"

const onEventPath = "/l/on-event"

// TemplateValue replaces every occurrence of ID in the template with Value.
type TemplateValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// TemplateWriterProps configures CreateTemplateWriterCustomResource.
type TemplateWriterProps struct {
	// TemplateBucket holds the template, either an asset bucket or a user bucket.
	TemplateBucket awss3.IBucket
	// TemplateKey is the object key of the template.
	TemplateKey *string
	// TemplateValues are substituted in order.
	TemplateValues []TemplateValue
	// Timeout of the handler. Large templates may need more than the default.
	Timeout awscdk.Duration
	// MemorySize of the handler in MB.
	MemorySize *float64
}

// TemplateWriterResponse locates the rendered template.
type TemplateWriterResponse struct {
	S3Bucket       awss3.IBucket
	S3Key          *string
	CustomResource awscdk.CustomResource
}

// CreateTemplateWriterCustomResource renders the template into a new object of the
// asset bucket each time the template or the values change.
func CreateTemplateWriterCustomResource(
	scope constructs.Construct, id string, props TemplateWriterProps,
) TemplateWriterResponse {
	if props.TemplateBucket == nil || props.TemplateKey == nil {
		panic(errors.New("templateBucket and templateKey are required"))
	}

	outputAsset := awss3assets.NewAsset(scope, jsii.String(id+"OutputAsset"), &awss3assets.AssetProps{
		Path: jsii.String(PlaceholderPath),
	})

	handler := bwcdklambda.New(constructs.NewConstruct(scope, jsii.String(id+"TemplateWriter")), bwcdklambda.Props{
		Entry:           jsii.String(TemplateWriterEntry),
		PassThroughPath: jsii.String(onEventPath),
		Environment:     handlerEnvironment(),
		Timeout:         props.Timeout,
		MemorySize:      props.MemorySize,
	})

	policy := awsiam.NewPolicy(scope, jsii.String(id+"TemplateWriterPolicy"), &awsiam.PolicyProps{
		Statements: &[]awsiam.PolicyStatement{
			awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
				Actions: jsii.Strings("s3:GetObject"),
				Effect:  awsiam.Effect_ALLOW,
				Resources: jsii.Strings(*jsii.Sprintf("arn:%s:s3:::%s/%s",
					*awscdk.Aws_PARTITION(), *props.TemplateBucket.BucketName(), *props.TemplateKey)),
			}),
			awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
				Actions: jsii.Strings("s3:PutObject"),
				Effect:  awsiam.Effect_ALLOW,
				Resources: jsii.Strings(*jsii.Sprintf("arn:%s:s3:::%s/*",
					*awscdk.Aws_PARTITION(), *outputAsset.S3BucketName())),
			}),
		},
	})
	handler.Function().Role().AttachInlinePolicy(policy)

	provider := newProvider(scope, id+"TemplateWriterProvider", handler.Function())

	values, err := json.Marshal(map[string]any{"templateValues": nonNilValues(props.TemplateValues)})
	if err != nil {
		panic(errors.Wrap(err, "failed to encode template values"))
	}

	resource := awscdk.NewCustomResource(scope, jsii.String(id+"TemplateWriterCustomResource"),
		&awscdk.CustomResourceProps{
			ResourceType: jsii.String("Custom::TemplateWriter"),
			ServiceToken: provider.ServiceToken(),
			Properties: &map[string]any{
				"TemplateValues":       string(values),
				"TemplateInputBucket":  props.TemplateBucket.BucketName(),
				"TemplateInputKey":     props.TemplateKey,
				"TemplateOutputBucket": outputAsset.S3BucketName(),
			},
		})
	resource.Node().AddDependency(policy)

	return TemplateWriterResponse{
		S3Bucket:       outputAsset.Bucket(),
		S3Key:          resource.GetAttString(jsii.String("TemplateOutputKey")),
		CustomResource: resource,
	}
}

// KeyPolicyUpdaterProps configures CreateKeyPolicyUpdaterCustomResource.
type KeyPolicyUpdaterProps struct {
	EncryptionKey awskms.IKey
	Distribution  awscloudfront.IDistribution
	Timeout       awscdk.Duration
	MemorySize    *float64
}

// KeyPolicyUpdaterResponse exposes the created resources.
type KeyPolicyUpdaterResponse struct {
	LambdaFunction awslambda.IFunction
	CustomResource awscdk.CustomResource
}

// CreateKeyPolicyUpdaterCustomResource grants the distribution use of the key by adding
// a statement to the key policy. AWS managed keys are left untouched.
func CreateKeyPolicyUpdaterCustomResource(
	scope constructs.Construct, id string, props KeyPolicyUpdaterProps,
) KeyPolicyUpdaterResponse {
	if props.EncryptionKey == nil || props.Distribution == nil {
		panic(errors.New("encryptionKey and distribution are required"))
	}

	handler := bwcdklambda.New(scope, bwcdklambda.Props{
		Entry:           jsii.String(KeyPolicyUpdaterEntry),
		PassThroughPath: jsii.String(onEventPath),
		Environment:     handlerEnvironment(),
		Timeout:         props.Timeout,
		MemorySize:      props.MemorySize,
	})

	handler.Function().Role().AttachInlinePolicy(awsiam.NewPolicy(scope, jsii.String(id+"ResourceCmkPolicy"),
		&awsiam.PolicyProps{
			Statements: &[]awsiam.PolicyStatement{
				awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
					Actions:   jsii.Strings("kms:PutKeyPolicy", "kms:GetKeyPolicy", "kms:DescribeKey"),
					Effect:    awsiam.Effect_ALLOW,
					Resources: &[]*string{props.EncryptionKey.KeyArn()},
				}),
			},
		}))

	provider := newProvider(scope, "KmsKeyPolicyUpdateProvider", handler.Function())

	resource := awscdk.NewCustomResource(scope, jsii.String("KmsKeyPolicyUpdater"), &awscdk.CustomResourceProps{
		ResourceType: jsii.String("Custom::KmsKeyPolicyUpdater"),
		ServiceToken: provider.ServiceToken(),
		Properties: &map[string]any{
			"KmsKeyId":                 props.EncryptionKey.KeyId(),
			"CloudFrontDistributionId": props.Distribution.DistributionId(),
			"AccountId":                awscdk.Aws_ACCOUNT_ID(),
		},
	})

	return KeyPolicyUpdaterResponse{
		LambdaFunction: handler.Function(),
		CustomResource: resource,
	}
}

// handlerEnvironment makes the adapter fail the invocation when a handler answers
// with a server error, so that CloudFormation receives the failure.
func handlerEnvironment() *map[string]*string {
	return &map[string]*string{
		"AWS_LWA_ERROR_STATUS_CODES": jsii.String("500-599"),
	}
}

func newProvider(scope constructs.Construct, id string, onEvent awslambda.IFunction) customresources.Provider {
	provider := customresources.NewProvider(scope, jsii.String(id), &customresources.ProviderProps{
		OnEventHandler: onEvent,
	})
	AddCfnSuppressRulesForProvider(provider)
	return provider
}

// AddCfnSuppressRulesForProvider suppresses the cfn_nag findings on the framework
// function the Provider deploys.
func AddCfnSuppressRulesForProvider(provider customresources.Provider) {
	framework := provider.Node().TryFindChild(jsii.String("framework-onEvent"))
	if framework == nil {
		return
	}
	bwcdkutil.AddCfnSuppressRules(framework,
		bwcdkutil.CfnNagSuppressRule{
			ID: "W58",
			Reason: "The CDK-provided lambda function that backs their Custom Resources " +
				"has the required permission to write CloudWatch Logs.",
		},
		bwcdkutil.CfnNagSuppressRule{
			ID:     "W89",
			Reason: "The CDK-provided lambda function that backs their Custom Resources does not need a VPC.",
		},
		bwcdkutil.CfnNagSuppressRule{
			ID:     "W92",
			Reason: "The CDK-provided lambda function that backs their Custom Resources does not need reserved concurrency.",
		},
	)
}

func nonNilValues(values []TemplateValue) []TemplateValue {
	if values == nil {
		return []TemplateValue{}
	}
	return values
}
