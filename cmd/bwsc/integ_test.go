package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/basewarphq/bwsc/internal/testutil"
	"go.uber.org/zap"
)

const template = `{
  "Resources": {
    "Queue4A7E3555": {
      "Type": "AWS::SQS::Queue",
      "Properties": {"KmsMasterKeyId": "alias/aws/sqs"}
    }
  },
  "Parameters": {
    "BootstrapVersion": {"Type": "AWS::SSM::Parameter::Value<String>"}
  }
}`

func TestIntegSnapshotAndAssert(t *testing.T) {
	t.Parallel()
	root := testutil.Setup(t, map[string]string{
		"cdk.out/TestStack.template.json": template,
		"changed.template.json":           strings.Replace(template, "alias/aws/sqs", "alias/custom", 1),
	})
	snapshot := filepath.Join(root, "snapshots", "TestStack.yaml")

	snap := &IntegSnapshotCmd{Template: filepath.Join(root, "cdk.out/TestStack.template.json"), Out: snapshot}
	if err := snap.Run(zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(snapshot)
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if strings.Contains(string(data), "BootstrapVersion") {
		t.Error("snapshot should not contain the bootstrap version parameter")
	}

	var out bytes.Buffer
	check := &IntegAssertCmd{Template: filepath.Join(root, "cdk.out/TestStack.template.json"), Expected: snapshot}
	if err := check.Run(zap.NewNop(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "snapshot matches") {
		t.Errorf("unexpected output %q", out.String())
	}

	out.Reset()
	check.Template = filepath.Join(root, "changed.template.json")
	err = check.Run(zap.NewNop(), &out)
	if !errors.Is(err, ErrSnapshotMismatch) {
		t.Fatalf("expected ErrSnapshotMismatch, got %v", err)
	}
	if !strings.Contains(out.String(), "~ Resources.Queue4A7E3555.Properties.KmsMasterKeyId: alias/aws/sqs -> alias/custom") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestIntegAssert_ValueBecomesReference(t *testing.T) {
	t.Parallel()
	root := testutil.Setup(t, map[string]string{
		"expected.template.json": template,
		"actual.template.json":   strings.Replace(template, `"alias/aws/sqs"`, `{"Ref": "Key"}`, 1),
	})

	var out bytes.Buffer
	check := &IntegAssertCmd{
		Template: filepath.Join(root, "actual.template.json"),
		Expected: filepath.Join(root, "expected.template.json"),
	}
	err := check.Run(zap.NewNop(), &out)
	if !errors.Is(err, ErrSnapshotMismatch) {
		t.Fatalf("expected ErrSnapshotMismatch, got %v", err)
	}
	if !strings.Contains(out.String(), "~ Resources.Queue4A7E3555.Properties.KmsMasterKeyId: alias/aws/sqs -> map[Ref:Key]") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestParseIntegCommands(t *testing.T) {
	t.Parallel()
	root := testutil.Setup(t, map[string]string{"template.json": template})

	var app App
	parser, err := kong.New(&app, kong.Name("bwsc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, err := parser.Parse([]string{
		"-v", "integ", "snapshot",
		"--template", filepath.Join(root, "template.json"),
		"--out", filepath.Join(root, "snapshot.yaml"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Command() != "integ snapshot" {
		t.Errorf("unexpected command %q", ctx.Command())
	}
	if !app.Verbose {
		t.Error("verbose flag should be set")
	}

	if _, err := parser.Parse([]string{"integ", "assert", "--template", filepath.Join(root, "missing.json")}); err == nil {
		t.Error("expected error for missing template and snapshot")
	}
}
