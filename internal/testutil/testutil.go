// Package testutil holds helpers shared by the construct and CLI tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/jsii-runtime-go"
)

// Setup writes files, keyed by their relative path, into a temporary directory and
// returns its path.
func Setup(tb testing.TB, files map[string]string) string {
	tb.Helper()

	root := tb.TempDir()

	for relPath, content := range files {
		fullPath := filepath.Join(root, relPath)

		dir := filepath.Dir(fullPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			tb.Fatalf("creating directory %s: %v", dir, err)
		}

		if err := os.WriteFile(fullPath, []byte(content), 0o600); err != nil {
			tb.Fatalf("writing file %s: %v", fullPath, err)
		}
	}

	return root
}

// ChdirModuleRoot changes the working directory to the module root. CDK resolves
// Go function entries and asset paths relative to it.
func ChdirModuleRoot() {
	dir, _ := os.Getwd()
	for dir != "/" {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			_ = os.Chdir(dir)
			return
		}
		dir = filepath.Dir(dir)
	}
}

// NewStack returns a stack in us-east-1 of a new app with the given context.
func NewStack(context map[string]any) awscdk.Stack {
	var props *awscdk.AppProps
	if context != nil {
		props = &awscdk.AppProps{Context: &context}
	}
	return awscdk.NewStack(awscdk.NewApp(props), jsii.String("TestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{Region: jsii.String("us-east-1")},
	})
}

// InlineFunctionProps returns props of a Node.js function with inline code, so that
// no asset has to be bundled.
func InlineFunctionProps() *awslambda.FunctionProps {
	return &awslambda.FunctionProps{
		Runtime: awslambda.Runtime_NODEJS_20_X(),
		Handler: jsii.String("index.handler"),
		Code:    awslambda.Code_FromInline(jsii.String("exports.handler = async () => ({})")),
	}
}
