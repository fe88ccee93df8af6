// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the mysh command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/mysh"
	"github.com/matt-FFFFFF/mysh/cmd"
	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
	"github.com/matt-FFFFFF/mysh/internal/pipeline"
)

func main() {
	ctx := ctxlog.New(context.Background(), ctxlog.DefaultLogger)

	// A pipeline stage re-executes this binary; it never reaches the CLI.
	if pipeline.IsStage() {
		os.Exit(pipeline.RunStage(ctx, os.Args[1:]))
	}

	cmd.RootCmd.Version = fmt.Sprintf("%s (commit: %s)", mysh.Version, mysh.Commit)

	if err := cmd.RootCmd.Run(ctx, os.Args); err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
