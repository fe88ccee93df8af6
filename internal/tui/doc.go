// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui provides a full-screen chat client for the broadcast server.
// Incoming chunks are shown in a scrolling transcript; the input line at the
// bottom sends one message per Enter, exactly like the line-mode client.
package tui
