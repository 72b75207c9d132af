package keypolicy_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/basewarphq/bwsc/lambdas/internal/keypolicy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultPolicy = `{"Version":"2012-10-17","Statement":[{"Sid":"Enable IAM User Permissions",` +
	`"Effect":"Allow","Principal":{"AWS":"arn:aws:iam::111122223333:root"},"Action":"kms:*","Resource":"*"}]}`

type fakeKMS struct {
	manager types.KeyManagerType
	policy  string
	puts    int
}

func (f *fakeKMS) DescribeKey(_ context.Context, in *kms.DescribeKeyInput, _ ...func(*kms.Options)) (*kms.DescribeKeyOutput, error) {
	return &kms.DescribeKeyOutput{KeyMetadata: &types.KeyMetadata{KeyId: in.KeyId, KeyManager: f.manager}}, nil
}

func (f *fakeKMS) GetKeyPolicy(_ context.Context, _ *kms.GetKeyPolicyInput, _ ...func(*kms.Options)) (*kms.GetKeyPolicyOutput, error) {
	return &kms.GetKeyPolicyOutput{Policy: aws.String(f.policy)}, nil
}

func (f *fakeKMS) PutKeyPolicy(_ context.Context, in *kms.PutKeyPolicyInput, _ ...func(*kms.Options)) (*kms.PutKeyPolicyOutput, error) {
	f.puts++
	f.policy = aws.ToString(in.Policy)
	return &kms.PutKeyPolicyOutput{}, nil
}

func event(typ cfn.RequestType) cfn.Event {
	return cfn.Event{
		RequestType:        typ,
		PhysicalResourceID: "phys",
		ResourceProperties: map[string]any{
			"KmsKeyId":                 "key-1",
			"CloudFrontDistributionId": "E123",
			"AccountId":                "111122223333",
		},
	}
}

func statements(t *testing.T, policy string) []map[string]any {
	t.Helper()
	var doc struct {
		Statement []map[string]any
	}
	require.NoError(t, json.Unmarshal([]byte(policy), &doc))
	return doc.Statement
}

func TestUpdater_AddsStatementOnce(t *testing.T) {
	keys := &fakeKMS{manager: types.KeyManagerTypeCustomer, policy: defaultPolicy}
	u := keypolicy.New(keys, "us-east-1")

	for _, typ := range []cfn.RequestType{cfn.RequestCreate, cfn.RequestUpdate} {
		resp, err := u.OnEvent(context.Background(), event(typ))
		require.NoError(t, err)
		assert.Equal(t, "phys", resp.PhysicalResourceID)
	}

	assert.Equal(t, 2, keys.puts)
	stmts := statements(t, keys.policy)
	require.Len(t, stmts, 2)
	assert.Equal(t, keypolicy.StatementSid, stmts[1]["Sid"])
	assert.Equal(t, "arn:aws:kms:us-east-1:111122223333:key/key-1", stmts[1]["Resource"])
	assert.Equal(t, map[string]any{
		"StringEquals": map[string]any{"AWS:SourceArn": "arn:aws:cloudfront::111122223333:distribution/E123"},
	}, stmts[1]["Condition"])
}

func TestUpdater_SkipsAWSManagedKeys(t *testing.T) {
	keys := &fakeKMS{manager: types.KeyManagerTypeAws, policy: defaultPolicy}
	_, err := keypolicy.New(keys, "us-east-1").OnEvent(context.Background(), event(cfn.RequestCreate))
	require.NoError(t, err)
	assert.Zero(t, keys.puts)
}

func TestUpdater_DeleteLeavesPolicy(t *testing.T) {
	keys := &fakeKMS{manager: types.KeyManagerTypeCustomer, policy: defaultPolicy}
	_, err := keypolicy.New(keys, "us-east-1").OnEvent(context.Background(), event(cfn.RequestDelete))
	require.NoError(t, err)
	assert.Zero(t, keys.puts)
}

func TestUpdater_MissingProperties(t *testing.T) {
	_, err := keypolicy.New(&fakeKMS{}, "us-east-1").OnEvent(context.Background(), cfn.Event{
		RequestType:        cfn.RequestCreate,
		ResourceProperties: map[string]any{"KmsKeyId": "key-1"},
	})
	require.EqualError(t, err, "missing resource properties: CloudFrontDistributionId, AccountId")
}

func TestMergeStatement_SingleStatementObject(t *testing.T) {
	out, err := keypolicy.MergeStatement(`{"Statement":{"Sid":"A"}}`, map[string]any{"Sid": "B"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Statement":[{"Sid":"A"},{"Sid":"B"}]}`, out)

	_, err = keypolicy.MergeStatement("not json", map[string]any{})
	require.ErrorContains(t, err, "invalid key policy")
}
