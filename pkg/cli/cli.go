package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/urfave/cli/v3"
)

// Version of the binary, set at build time
var Version = "dev"

type Error struct {
	Code    int
	Message string
}

// Exit codes by error kind
const (
	ExitGeneral    = 1
	ExitValidation = 2
	ExitNotFound   = 3
	ExitProtocol   = 4
	ExitStorage    = 5
)

type runOptions struct {
	writer    io.Writer
	errWriter io.Writer
}

// RunOption configures Run
type RunOption func(*runOptions)

// WithWriter replaces stdout
func WithWriter(w io.Writer) RunOption {
	return func(o *runOptions) { o.writer = w }
}

// WithErrWriter replaces stderr, where logs and progress go
func WithErrWriter(w io.Writer) RunOption {
	return func(o *runOptions) { o.errWriter = w }
}

func Run(ctx context.Context, argv []string, opts ...RunOption) *Error {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	cmd := &cli.Command{
		Name:    "openclaw-manager",
		Usage:   "Manage OpenClaw Gateway instances, snapshots and configuration",
		Version: Version,
		Commands: []*cli.Command{
			registerCommand(),
			listCommand(),
			showCommand(),
			removeCommand(),
			pingCommand(),
			identityCommand(),
			liveListCommand("agents", "List agents of a running instance"),
			liveListCommand("channels", "List channels of a running instance"),
			liveListCommand("models", "List models of a running instance"),
			snapshotCommand(),
			configCommand(),
			backupCommand(),
			serveMCPCommand(),
		},
	}
	if o.writer != nil {
		cmd.Writer = o.writer
	}
	if o.errWriter != nil {
		cmd.ErrWriter = o.errWriter
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    exitCode(err),
			Message: err.Error(),
		}
	}

	return nil
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return ExitValidation
	case errors.Is(err, model.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, model.ErrProtocol):
		return ExitProtocol
	case errors.Is(err, model.ErrStorage):
		return ExitStorage
	default:
		return ExitGeneral
	}
}

// requireArgs returns the first len(names) positional arguments
func requireArgs(c *cli.Command, names ...string) ([]string, error) {
	args := c.Args().Slice()
	if len(args) < len(names) {
		return nil, goerr.Wrap(model.ErrValidation, "missing arguments",
			goerr.V("required", names), goerr.V("given", len(args)))
	}
	return args[:len(names)], nil
}

func startSpinner(c *cli.Command, message string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(errWriter(c)))
	s.Suffix = " " + message
	s.Start()
	return s
}

func writeJSON(c *cli.Command, v any) error {
	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return goerr.Wrap(err, "failed to write output")
	}
	return nil
}
