// Package cmdexec runs external commands for the CLI.
package cmdexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Error describes a command that exited unsuccessfully.
type Error struct {
	Cmd      string
	Args     []string
	Dir      string
	ExitCode int
	Stderr   string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("(in %s) %s %s", e.Dir, e.Cmd, strings.Join(e.Args, " "))
	if e.Stderr != "" {
		return fmt.Sprintf("%s: exit %d\n%s", msg, e.ExitCode, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("%s: exit %d", msg, e.ExitCode)
}

// Output runs name in dir and returns its stdout. Dir must be absolute.
func Output(ctx context.Context, log *zap.Logger, dir, name string, args ...string) ([]byte, error) {
	if !filepath.IsAbs(dir) {
		return nil, errors.Newf("cmdexec: dir must be absolute, got %q", dir)
	}

	log.Debug("running command", zap.String("dir", dir), zap.String("cmd", name), zap.Strings("args", args))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		exitCode := 1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &Error{Cmd: name, Args: args, Dir: dir, ExitCode: exitCode, Stderr: stderr.String()}
	}
	return out, nil
}
