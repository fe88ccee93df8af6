// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package lexer turns an input line into an argument vector.
package lexer

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/anmitsu/go-shlex"
)

const (
	// PipeMarker separates pipeline stages.
	PipeMarker = "|"
	// BackgroundMarker as the final word runs the command in the background.
	BackgroundMarker = "&"
)

// ErrSyntax is returned for unbalanced quotes and similar input errors.
var ErrSyntax = errors.New("syntax error")

// Expander substitutes variable references in a word.
type Expander interface {
	Expand(string) string
}

// Line is one tokenized input line.
type Line struct {
	Args       []string
	Background bool

	// pipes holds the indexes of unquoted pipe markers in Args.
	pipes []int
}

// Empty reports whether the line has no words.
func (l Line) Empty() bool {
	return len(l.Args) == 0
}

// Stages splits Args at the unquoted pipe markers. A quoted "|" stays an
// ordinary argument.
func (l Line) Stages() [][]string {
	stages := make([][]string, 0, len(l.pipes)+1)
	from := 0

	for _, at := range l.pipes {
		stages = append(stages, l.Args[from:at:at])
		from = at + 1
	}

	return append(stages, l.Args[from:len(l.Args):len(l.Args)])
}

// Tokenize splits line into words honouring single and double quotes,
// expands $NAME references with exp and strips a trailing '&'.
// Only unquoted "|" and "&" words act as operators. exp may be nil.
func Tokenize(line string, exp Expander) (Line, error) {
	raw, err := rawWords(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return Line{}, err
	}

	out := Line{Args: make([]string, 0, len(raw))}
	background := -1

	for i, w := range raw {
		switch w {
		case PipeMarker:
			out.pipes = append(out.pipes, len(out.Args))
			out.Args = append(out.Args, w)

			continue
		case BackgroundMarker:
			if i == len(raw)-1 {
				background = len(out.Args)
			}

			out.Args = append(out.Args, w)

			continue
		}

		parts, err := shlex.Split(w, true)
		if err != nil {
			return Line{}, errors.Join(ErrSyntax, err)
		}

		word := strings.Join(parts, "")
		if exp != nil {
			word = exp.Expand(word)
		}

		out.Args = append(out.Args, word)
	}

	if background >= 0 {
		out.Args = out.Args[:background]
		out.Background = true
	}

	return out, nil
}

// rawWords splits line at unquoted blanks. Each word keeps its quotes and
// escapes so operators can be told apart from quoted text.
func rawWords(line string) ([]string, error) {
	var (
		words   []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if r == quote {
				quote = 0
			} else if r == '\\' && quote == '"' {
				escaped = true
			}
		case r == '\\':
			escaped = true
		case r == '\'' || r == '"':
			quote = r
		case unicode.IsSpace(r):
			if inWord {
				words = append(words, cur.String())
				cur.Reset()

				inWord = false
			}

			continue
		}

		cur.WriteRune(r)

		inWord = true
	}

	if quote != 0 || escaped {
		return nil, fmt.Errorf("%w: unterminated quote or escape", ErrSyntax)
	}

	if inWord {
		words = append(words, cur.String())
	}

	return words, nil
}

// SplitPipeline splits argv at every pipe marker. The result always has
// exactly one more stage than there are markers; stages may be empty.
func SplitPipeline(argv []string) [][]string {
	stages := [][]string{{}}

	for _, w := range argv {
		if w == PipeMarker {
			stages = append(stages, []string{})
			continue
		}

		last := len(stages) - 1
		stages[last] = append(stages[last], w)
	}

	return stages
}
