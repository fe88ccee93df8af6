// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package shell

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

// LinerReader reads lines from the terminal with editing and history.
type LinerReader struct {
	state   *liner.State
	history string
}

// NewLinerReader takes over the terminal. historyFile may be empty.
func NewLinerReader(historyFile string) *LinerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &LinerReader{state: line, history: ExpandHome(historyFile)}

	if r.history != "" {
		if f, err := os.Open(r.history); err == nil {
			_, _ = line.ReadHistory(f)
			_ = f.Close()
		}
	}

	return r
}

// Prompt reads one line. Ctrl-C maps to ErrAborted.
func (r *LinerReader) Prompt(prompt string) (string, error) {
	s, err := r.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", ErrAborted
	}

	return s, err
}

// AppendHistory records line in the in-memory history.
func (r *LinerReader) AppendHistory(line string) {
	r.state.AppendHistory(line)
}

// Close saves the history and restores the terminal.
func (r *LinerReader) Close() error {
	var errs []error

	if r.history != "" {
		f, err := os.Create(r.history)
		if err == nil {
			_, err = r.state.WriteHistory(f)
			errs = append(errs, err, f.Close())
		} else {
			errs = append(errs, err)
		}
	}

	errs = append(errs, r.state.Close())

	return errors.Join(errs...)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}

	return filepath.Join(home, p[2:])
}
