package process

import (
	"context"
	"log/slog"

	"github.com/nomis52/solrsetup/logging"
)

// DryRunner logs each command instead of running it and reports success.
type DryRunner struct {
	logger *slog.Logger
}

// NewDryRunner creates a DryRunner. A nil logger means the one carried by each call's context.
func NewDryRunner(logger *slog.Logger) *DryRunner {
	return &DryRunner{logger: logger}
}

func (d *DryRunner) RunBlocking(ctx context.Context, cmd Command) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	d.log(ctx, cmd)
	return Result{}, nil
}

func (d *DryRunner) Start(ctx context.Context, cmd Command) (*Execution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.log(ctx, cmd)
	return Finished(cmd, Result{}, nil), nil
}

func (d *DryRunner) log(ctx context.Context, cmd Command) {
	logger := d.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	logger.Info("dry run, not executing", "command", cmd.String(), "dir", cmd.Dir)
}
