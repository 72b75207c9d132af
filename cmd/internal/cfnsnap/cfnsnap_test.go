package cfnsnap_test

import (
	"strings"
	"testing"

	"github.com/basewarphq/bwsc/cmd/internal/cfnsnap"
)

const synthesized = `{
  "Resources": {
    "Fn9270CBC0": {
      "Type": "AWS::Lambda::Function",
      "Properties": {
        "Code": {
          "S3Bucket": {"Fn::Sub": "cdk-hnb659fds-assets-${AWS::AccountId}-${AWS::Region}"},
          "S3Key": "9b1c3e0f7f4f3b0b7d0bbd40d1f0cbbd1b8b3d1a5ad5e9a2e3e7b0cb2a8b1c4d.zip"
        }
      },
      "Metadata": {
        "aws:cdk:path": "TestStack/Fn/Resource",
        "aws:asset:path": "asset.9b1c3e0f7f4f3b0b7d0bbd40d1f0cbbd1b8b3d1a5ad5e9a2e3e7b0cb2a8b1c4d",
        "aws:asset:property": "Code"
      }
    }
  },
  "Parameters": {
    "BootstrapVersion": {"Type": "AWS::SSM::Parameter::Value<String>"}
  },
  "Rules": {
    "CheckBootstrapVersion": {"Assertions": []}
  }
}`

const shortForms = `Resources:
  Queue:
    Type: AWS::SQS::Queue
    Properties:
      QueueName: !Sub "${AWS::StackName}-queue"
      RedrivePolicy:
        deadLetterTargetArn: !GetAtt Dlq.Arn
      Tags:
        - Key: owner
          Value: !Ref Owner
`

func TestCanonicalize(t *testing.T) {
	t.Parallel()
	doc, err := cfnsnap.Canonicalize([]byte(synthesized))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := doc["Parameters"]; ok {
		t.Error("bootstrap parameter should be removed with its empty section")
	}
	if _, ok := doc["Rules"]; ok {
		t.Error("bootstrap rule should be removed with its empty section")
	}

	out, err := cfnsnap.Marshal(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := string(out)

	if !strings.Contains(result, cfnsnap.AssetHashPlaceholder+".zip") {
		t.Error("asset hash in S3Key should be replaced")
	}
	if strings.Contains(result, "aws:asset:path") {
		t.Error("asset metadata should be removed")
	}
	if !strings.Contains(result, "aws:cdk:path") {
		t.Error("other metadata should be preserved")
	}
}

func TestCanonicalize_ShortForms(t *testing.T) {
	t.Parallel()
	doc, err := cfnsnap.Canonicalize([]byte(shortForms))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	props := doc["Resources"].(map[string]any)["Queue"].(map[string]any)["Properties"].(map[string]any)

	name, ok := props["QueueName"].(map[string]any)
	if !ok || name["Fn::Sub"] != "${AWS::StackName}-queue" {
		t.Errorf("!Sub should expand to Fn::Sub, got %v", props["QueueName"])
	}

	redrive := props["RedrivePolicy"].(map[string]any)["deadLetterTargetArn"].(map[string]any)
	attr, ok := redrive["Fn::GetAtt"].([]any)
	if !ok || len(attr) != 2 || attr[0] != "Dlq" || attr[1] != "Arn" {
		t.Errorf("!GetAtt should expand to a two element Fn::GetAtt, got %v", redrive)
	}

	tag := props["Tags"].([]any)[0].(map[string]any)["Value"].(map[string]any)
	if tag["Ref"] != "Owner" {
		t.Errorf("!Ref should expand to Ref, got %v", tag)
	}
}

func TestCanonicalize_Invalid(t *testing.T) {
	t.Parallel()
	if _, err := cfnsnap.Canonicalize([]byte("- a\n- b\n")); err == nil {
		t.Error("expected error for non-mapping root")
	}
	if _, err := cfnsnap.Canonicalize([]byte("Outputs: {}\n")); err == nil {
		t.Error("expected error for template without resources")
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()
	expected, err := cfnsnap.Canonicalize([]byte(shortForms))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	same, err := cfnsnap.Canonicalize([]byte(shortForms))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	changes, err := cfnsnap.Compare(expected, same)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("identical templates should not differ, got %v", changes)
	}

	changed, err := cfnsnap.Canonicalize([]byte(strings.Replace(shortForms, "-queue", "-jobs", 1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	changes, err = cfnsnap.Compare(expected, changed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected one change, got %v", changes)
	}
	if changes[0].Type != "update" || changes[0].Path != "Resources.Queue.Properties.QueueName.Fn::Sub" {
		t.Errorf("unexpected change %+v", changes[0])
	}
}

func TestCompare_KindChange(t *testing.T) {
	t.Parallel()
	const before = `Resources:
  Queue:
    Type: AWS::SQS::Queue
    Properties:
      QueueName: plain
      DelaySeconds: "5"
`
	const after = `Resources:
  Queue:
    Type: AWS::SQS::Queue
    Properties:
      QueueName: !Ref Name
      DelaySeconds: 5
`
	expected, err := cfnsnap.Canonicalize([]byte(before))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	actual, err := cfnsnap.Canonicalize([]byte(after))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changes, err := cfnsnap.Compare(expected, actual)
	if err != nil {
		t.Fatalf("a changed value kind should be a change, not an error: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected two changes, got %v", changes)
	}

	byPath := map[string]cfnsnap.Change{}
	for _, c := range changes {
		if c.Type != "update" {
			t.Errorf("unexpected change type %+v", c)
		}
		byPath[c.Path] = c
	}
	name, ok := byPath["Resources.Queue.Properties.QueueName"]
	if !ok {
		t.Fatalf("missing QueueName change in %v", changes)
	}
	if name.From != "plain" {
		t.Errorf("QueueName should change from the plain string, got %v", name.From)
	}
	if ref, ok := name.To.(map[string]any); !ok || ref["Ref"] != "Name" {
		t.Errorf("QueueName should change to a Ref, got %v", name.To)
	}
	delay, ok := byPath["Resources.Queue.Properties.DelaySeconds"]
	if !ok {
		t.Fatalf("missing DelaySeconds change in %v", changes)
	}
	if delay.From != "5" || delay.To != 5 {
		t.Errorf("DelaySeconds should change from \"5\" to 5, got %v -> %v", delay.From, delay.To)
	}
}
