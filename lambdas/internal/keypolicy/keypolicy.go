// Package keypolicy implements the custom resource that lets a CloudFront
// distribution use a customer managed KMS key.
package keypolicy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/basewarphq/bwsc/bwlwa"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// StatementSid identifies the statement this resource owns in the key policy.
const StatementSid = "Grant-CloudFront-Distribution-Key-Usage"

// KeyManager is the part of the KMS API the updater uses.
type KeyManager interface {
	DescribeKey(ctx context.Context, in *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error)
	GetKeyPolicy(ctx context.Context, in *kms.GetKeyPolicyInput, optFns ...func(*kms.Options)) (*kms.GetKeyPolicyOutput, error)
	PutKeyPolicy(ctx context.Context, in *kms.PutKeyPolicyInput, optFns ...func(*kms.Options)) (*kms.PutKeyPolicyOutput, error)
}

// Properties are the resource properties of a Custom::KmsKeyPolicyUpdater.
type Properties struct {
	KmsKeyID                 string
	CloudFrontDistributionID string
	AccountID                string
}

// ParseProperties reads the resource properties.
func ParseProperties(props map[string]any) (Properties, error) {
	var missing []string
	str := func(name string) string {
		s, ok := props[name].(string)
		if !ok || s == "" {
			missing = append(missing, name)
		}
		return s
	}

	p := Properties{
		KmsKeyID:                 str("KmsKeyId"),
		CloudFrontDistributionID: str("CloudFrontDistributionId"),
		AccountID:                str("AccountId"),
	}
	if len(missing) > 0 {
		return p, errors.Newf("missing resource properties: %s", strings.Join(missing, ", "))
	}
	return p, nil
}

// Updater handles the custom resource events.
type Updater struct {
	keys   KeyManager
	region string
}

// New creates an Updater for keys in region.
func New(keys KeyManager, region string) *Updater {
	return &Updater{keys: keys, region: region}
}

// Statement returns the key policy statement granting the distribution use of the key.
func (u *Updater) Statement(p Properties) map[string]any {
	return map[string]any{
		"Sid":    StatementSid,
		"Effect": "Allow",
		"Principal": map[string]any{
			"Service": []any{"cloudfront.amazonaws.com"},
		},
		"Action": []any{
			"kms:Decrypt",
			"kms:Encrypt",
			"kms:GenerateDataKey*",
			"kms:ReEncrypt*",
		},
		"Resource": fmt.Sprintf("arn:aws:kms:%s:%s:key/%s", u.region, p.AccountID, p.KmsKeyID),
		"Condition": map[string]any{
			"StringEquals": map[string]any{
				"AWS:SourceArn": fmt.Sprintf("arn:aws:cloudfront::%s:distribution/%s",
					p.AccountID, p.CloudFrontDistributionID),
			},
		},
	}
}

// MergeStatement adds stmt to the policy document, replacing any statement with the
// same Sid so that repeated updates leave a single copy.
func MergeStatement(policy string, stmt map[string]any) (string, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(policy), &doc); err != nil {
		return "", errors.Wrap(err, "invalid key policy")
	}

	var statements []any
	switch existing := doc["Statement"].(type) {
	case []any:
		statements = existing
	case map[string]any:
		statements = []any{existing}
	}

	merged := make([]any, 0, len(statements)+1)
	for _, s := range statements {
		if m, ok := s.(map[string]any); ok && m["Sid"] == stmt["Sid"] {
			continue
		}
		merged = append(merged, s)
	}
	doc["Statement"] = append(merged, stmt)

	out, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode key policy")
	}
	return string(out), nil
}

// OnEvent updates the key policy on create and update. AWS managed keys cannot be
// changed and are left alone, as is the policy on delete.
func (u *Updater) OnEvent(ctx context.Context, event cfn.Event) (bwlwa.CustomResourceResponse, error) {
	resp := bwlwa.CustomResourceResponse{PhysicalResourceID: event.PhysicalResourceID}
	if event.RequestType == cfn.RequestDelete {
		return resp, nil
	}

	props, err := ParseProperties(event.ResourceProperties)
	if err != nil {
		return resp, err
	}

	desc, err := u.keys.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: aws.String(props.KmsKeyID)})
	if err != nil {
		return resp, errors.Wrapf(err, "failed to describe key %s", props.KmsKeyID)
	}
	if desc.KeyMetadata != nil && desc.KeyMetadata.KeyManager == types.KeyManagerTypeAws {
		bwlwa.Log(ctx).Info("skipping AWS managed key", zap.String("key_id", props.KmsKeyID))
		return resp, nil
	}

	current, err := u.keys.GetKeyPolicy(ctx, &kms.GetKeyPolicyInput{
		KeyId:      aws.String(props.KmsKeyID),
		PolicyName: aws.String("default"),
	})
	if err != nil {
		return resp, errors.Wrapf(err, "failed to get policy of key %s", props.KmsKeyID)
	}
	if current.Policy == nil {
		return resp, errors.Newf("key %s has no default policy", props.KmsKeyID)
	}

	policy, err := MergeStatement(*current.Policy, u.Statement(props))
	if err != nil {
		return resp, err
	}

	if _, err := u.keys.PutKeyPolicy(ctx, &kms.PutKeyPolicyInput{
		KeyId:      aws.String(props.KmsKeyID),
		PolicyName: aws.String("default"),
		Policy:     aws.String(policy),
	}); err != nil {
		return resp, errors.Wrapf(err, "failed to put policy of key %s", props.KmsKeyID)
	}

	bwlwa.Log(ctx).Info("key policy updated",
		zap.String("key_id", props.KmsKeyID),
		zap.String("distribution_id", props.CloudFrontDistributionID))
	return resp, nil
}
