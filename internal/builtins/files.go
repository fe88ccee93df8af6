// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package builtins

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pborman/getopt/v2"
	"github.com/spf13/afero"
)

// cdShortcuts are the dot-runs cd understands beyond "..".
var cdShortcuts = map[string]string{
	"...":  "../..",
	"....": "../../..",
}

// Ls lists directory entries one per line.
//
//	ls [path] [--f substr] [--rec] [--d depth]
func Ls(_ context.Context, env *Env, args []string) error {
	opts := getopt.New()
	filter := opts.StringLong("f", 0, "", "only show entries containing this substring")
	recursive := opts.BoolLong("rec", 0, "list subdirectories recursively")
	depth := opts.IntLong("d", 0, -1, "maximum recursion depth, requires --rec")

	paths, err := parseInterleaved(opts, args)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOption, err)
	}

	if opts.IsSet("d") && !*recursive {
		return fmt.Errorf("%w: --d requires --rec", ErrOption)
	}

	dir := "."
	if len(paths) > 0 {
		dir = paths[len(paths)-1]
	}

	l := lister{fs: env.Fs, w: env.Stdout, errw: env.Stderr, filter: *filter}

	if !*recursive {
		return l.list(dir)
	}

	l.maxDepth = *depth

	return l.walk(dir, 0)
}

// parseInterleaved lets options follow positional words, e.g. "ls dir --rec".
func parseInterleaved(opts *getopt.Set, args []string) ([]string, error) {
	var positional []string

	rest := args
	for {
		if err := opts.Getopt(rest, nil); err != nil {
			return nil, err
		}

		left := opts.Args()
		if len(left) == 0 {
			return positional, nil
		}

		positional = append(positional, left[0])
		rest = append([]string{args[0]}, left[1:]...)
	}
}

type lister struct {
	fs       afero.Fs
	w        io.Writer
	errw     io.Writer
	filter   string
	maxDepth int
}

func (l lister) match(name string) bool {
	return l.filter == "" || strings.Contains(name, l.filter)
}

func (l lister) list(dir string) error {
	entries, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPath, dir)
	}

	for _, name := range []string{".", ".."} {
		if l.match(name) {
			fmt.Fprintln(l.w, name)
		}
	}

	for _, e := range entries {
		if l.match(e.Name()) {
			fmt.Fprintln(l.w, e.Name())
		}
	}

	return nil
}

// walk prints dir's entries and descends while depth allows. A negative
// maxDepth means unlimited. Unreadable subdirectories are reported and skipped.
func (l lister) walk(dir string, depth int) error {
	if l.maxDepth >= 0 && depth >= l.maxDepth {
		return nil
	}

	entries, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPath, dir)
	}

	for _, name := range []string{".", ".."} {
		if l.match(name) {
			fmt.Fprintln(l.w, name)
		}
	}

	for _, e := range entries {
		if l.match(e.Name()) {
			fmt.Fprintln(l.w, e.Name())
		}

		if !e.IsDir() {
			continue
		}

		if err := l.walk(path.Join(dir, e.Name()), depth+1); err != nil {
			fmt.Fprintf(l.errw, "ERROR: %s\n", Message(err))
		}
	}

	return nil
}

// Cd changes the working directory. Without an argument it goes to $HOME.
func Cd(_ context.Context, env *Env, args []string) error {
	var dir string

	switch {
	case len(args) < 2:
		dir = env.Getenv("HOME")
		if dir == "" {
			return fmt.Errorf("%w: HOME environment variable not set", ErrInvalidPath)
		}
	case args[1] == ".":
		return nil
	default:
		dir = args[1]
		if s, ok := cdShortcuts[dir]; ok {
			dir = s
		}
	}

	if err := env.Chdir(dir); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPath, dir)
	}

	return nil
}

// Cat copies a file, or stdin, to stdout.
func Cat(_ context.Context, env *Env, args []string) error {
	r, closeFn, err := openInput(env, args)
	if err != nil {
		return err
	}
	defer closeFn()

	_, err = io.Copy(env.Stdout, r)

	return err
}

// Wc counts words, characters and newlines of a file or stdin.
func Wc(_ context.Context, env *Env, args []string) error {
	r, closeFn, err := openInput(env, args)
	if err != nil {
		return err
	}
	defer closeFn()

	var words, chars, lines int

	inWord := false
	br := bufio.NewReader(r)

	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		chars++

		if b == '\n' {
			lines++
		}

		if isSpace(b) {
			if inWord {
				words++
			}

			inWord = false
		} else {
			inWord = true
		}
	}

	if inWord {
		words++
	}

	fmt.Fprintf(env.Stdout, "word count %d\ncharacter count %d\nnewline count %d\n", words, chars, lines)

	return nil
}

func openInput(env *Env, args []string) (io.Reader, func(), error) {
	if len(args) < 2 {
		return env.Stdin, func() {}, nil
	}

	f, err := env.Fs.Open(args[1])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrOpenFile, args[1])
	}

	return f, func() { _ = f.Close() }, nil
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}

	return false
}
