// Command bwsc snapshots and asserts synthesized templates of the constructs'
// integration stacks.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
)

type App struct {
	Verbose bool `short:"v" help:"Log each step to stderr."`

	Integ struct {
		Synth    IntegSynthCmd    `cmd:"" help:"Synthesize a stack of a CDK app and write its snapshot."`
		Snapshot IntegSnapshotCmd `cmd:"" help:"Write the snapshot of a synthesized template."`
		Assert   IntegAssertCmd   `cmd:"" help:"Compare a synthesized template with its snapshot."`
	} `cmd:"" help:"Integration snapshot commands."`
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func main() {
	var app App
	ctx := kong.Parse(&app,
		kong.Name("bwsc"),
		kong.Description("Solutions Constructs development CLI."),
	)

	if err := run(ctx, app.Verbose); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx *kong.Context, verbose bool) error {
	log, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx.Bind(log)
	ctx.BindTo(os.Stdout, (*io.Writer)(nil))
	return ctx.Run()
}
