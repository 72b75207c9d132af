package bwcdkutil

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/samber/lo"
)

// CfnNagSuppressRule suppresses one cfn_nag finding on a resource.
type CfnNagSuppressRule struct {
	ID     string
	Reason string
}

// AddCfnSuppressRules attaches cfn_nag suppressions to the CloudFormation resource
// behind construct. Rules are appended to suppressions that are already present.
func AddCfnSuppressRules(construct constructs.IConstruct, rules ...CfnNagSuppressRule) {
	res := CfnResourceOf(construct)

	var existing []any
	if md, ok := res.GetMetadata(jsii.String("cfn_nag")).(map[string]any); ok {
		existing, _ = md["rules_to_suppress"].([]any)
	}

	added := lo.Map(rules, func(r CfnNagSuppressRule, _ int) any {
		return map[string]any{"id": r.ID, "reason": r.Reason}
	})

	res.AddMetadata(jsii.String("cfn_nag"), map[string]any{
		"rules_to_suppress": append(existing, added...),
	})
}

// CfnResourceOf returns construct itself when it is a CfnResource, or its default child.
func CfnResourceOf(construct constructs.IConstruct) awscdk.CfnResource {
	if res, ok := construct.(awscdk.CfnResource); ok {
		return res
	}
	res, ok := construct.Node().DefaultChild().(awscdk.CfnResource)
	if !ok {
		panic("construct " + *construct.Node().Path() + " has no CfnResource default child")
	}
	return res
}
