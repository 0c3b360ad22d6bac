package metrics_test

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/agentready/internal/execshell"
)

type staticRunner struct{}

func (staticRunner) Run(context.Context, execshell.ShellCommand) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{StandardOutput: "ok"}, nil
}

func zapNop() *zap.Logger {
	return zap.NewNop()
}
