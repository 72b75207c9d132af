package cmdexec_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/basewarphq/bwsc/cmd/internal/cmdexec"
	"go.uber.org/zap"
)

func TestOutput(t *testing.T) {
	t.Parallel()
	out, err := cmdexec.Output(context.Background(), zap.NewNop(), t.TempDir(), "sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestOutput_Failure(t *testing.T) {
	t.Parallel()
	_, err := cmdexec.Output(context.Background(), zap.NewNop(), t.TempDir(), "sh", "-c", "echo oops >&2; exit 3")

	var execErr *cmdexec.Error
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *cmdexec.Error, got %v", err)
	}
	if execErr.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", execErr.ExitCode)
	}
	if !strings.Contains(execErr.Error(), "oops") {
		t.Errorf("error should include stderr, got %q", execErr.Error())
	}
}

func TestOutput_RelativeDir(t *testing.T) {
	t.Parallel()
	if _, err := cmdexec.Output(context.Background(), zap.NewNop(), "relative", "true"); err == nil {
		t.Error("expected error for relative dir")
	}
}
