// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a slog.Logger in a context.Context.
//
// All loggers share LevelVar, so one call adjusts every handler at once. The
// level starts from MYSH_LOG_LEVEL, which stage helpers inherit from the
// shell. Output goes to stderr so diagnostics never enter a pipeline.
package ctxlog
