package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/basewarphq/bwsc/cmd/internal/cfnsnap"
	"github.com/basewarphq/bwsc/cmd/internal/cmdexec"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrSnapshotMismatch is returned by assert when the template differs from its snapshot.
var ErrSnapshotMismatch = errors.New("template does not match snapshot")

type IntegSynthCmd struct {
	Dir   string `default:"." type:"existingdir" help:"Directory of the CDK app."`
	Stack string `arg:"" help:"Name of the stack to synthesize."`
	Out   string `required:"" type:"path" help:"File to write the snapshot to."`
}

func (c *IntegSynthCmd) Run(log *zap.Logger) error {
	dir, err := filepath.Abs(c.Dir)
	if err != nil {
		return errors.Wrapf(err, "resolving %s", c.Dir)
	}

	out, err := cmdexec.Output(context.Background(), log, dir, "cdk", "synth", c.Stack, "--json")
	if err != nil {
		return errors.Wrapf(err, "synthesizing %s", c.Stack)
	}

	doc, err := cfnsnap.Canonicalize(out)
	if err != nil {
		return errors.Wrapf(err, "in stack %s", c.Stack)
	}
	return writeSnapshot(log, doc, c.Out)
}

type IntegSnapshotCmd struct {
	Template string `required:"" type:"existingfile" help:"Synthesized template (JSON or YAML)."`
	Out      string `required:"" type:"path" help:"File to write the snapshot to."`
}

func (c *IntegSnapshotCmd) Run(log *zap.Logger) error {
	doc, err := cfnsnap.Load(c.Template)
	if err != nil {
		return err
	}
	return writeSnapshot(log, doc, c.Out)
}

type IntegAssertCmd struct {
	Template string `required:"" type:"existingfile" help:"Synthesized template (JSON or YAML)."`
	Expected string `required:"" type:"existingfile" help:"Snapshot written by 'integ snapshot'."`
}

func (c *IntegAssertCmd) Run(log *zap.Logger, w io.Writer) error {
	actual, err := cfnsnap.Load(c.Template)
	if err != nil {
		return err
	}
	expected, err := cfnsnap.Load(c.Expected)
	if err != nil {
		return err
	}

	changes, err := cfnsnap.Compare(expected, actual)
	if err != nil {
		return err
	}
	log.Debug("compared templates",
		zap.String("template", c.Template), zap.String("expected", c.Expected), zap.Int("changes", len(changes)))

	for _, ch := range changes {
		switch ch.Type {
		case "create":
			fmt.Fprintf(w, "+ %s: %v\n", ch.Path, ch.To)
		case "delete":
			fmt.Fprintf(w, "- %s: %v\n", ch.Path, ch.From)
		default:
			fmt.Fprintf(w, "~ %s: %v -> %v\n", ch.Path, ch.From, ch.To)
		}
	}
	if len(changes) > 0 {
		return errors.Wrapf(ErrSnapshotMismatch, "%d changes", len(changes))
	}

	fmt.Fprintln(w, "snapshot matches")
	return nil
}

func writeSnapshot(log *zap.Logger, doc map[string]any, path string) error {
	data, err := cfnsnap.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "writing snapshot %s", path)
	}

	log.Info("wrote snapshot", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}
