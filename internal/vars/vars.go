// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package vars holds shell variables.
// A Store maps names to values and can be cloned so that a pipeline runs
// against an isolated snapshot. Snapshots cross process boundaries as JSON.
package vars

import (
	"encoding/json"
	"errors"
	"maps"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// EnvSnapshot carries an encoded Store into a stage helper process.
const EnvSnapshot = "MYSH_STAGE_VARS"

// ErrDecodeSnapshot is returned when a snapshot cannot be decoded.
var ErrDecodeSnapshot = errors.New("failed to decode variable snapshot")

// Store is a concurrency safe name to value mapping.
type Store struct {
	mu   sync.RWMutex
	vals map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{vals: make(map[string]string)}
}

// Get returns the value of name and whether it is set.
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vals[name]

	return v, ok
}

// Set assigns value to name. References to other variables inside value are
// expanded first; references to unset variables are kept verbatim.
func (s *Store) Set(name, value string) {
	expanded := s.expand(value, true)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.vals[name] = expanded
}

// Len returns the number of variables.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.vals)
}

// Names returns the variable names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.vals))
	for k := range s.vals {
		names = append(names, k)
	}

	sort.Strings(names)

	return names
}

// Clone returns an independent copy.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Store{vals: maps.Clone(s.vals)}
}

// Expand replaces every $NAME in s with its value. Unset names expand to the
// empty string. A '$' that is not followed by a name character is literal.
func (s *Store) Expand(in string) string {
	return s.expand(in, false)
}

func (s *Store) expand(in string, keepUnset bool) string {
	if !strings.Contains(in, "$") {
		return in
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out strings.Builder

	rs := []rune(in)
	for i := 0; i < len(rs); i++ {
		if rs[i] != '$' {
			out.WriteRune(rs[i])
			continue
		}

		j := i + 1
		for j < len(rs) && isNameRune(rs[j]) {
			j++
		}

		if j == i+1 {
			out.WriteRune('$')
			continue
		}

		name := string(rs[i+1 : j])
		if v, ok := s.vals[name]; ok {
			out.WriteString(v)
		} else if keepUnset {
			out.WriteString("$" + name)
		}

		i = j - 1
	}

	return out.String()
}

// Encode serialises the store for a child process.
func (s *Store) Encode() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := json.Marshal(s.vals)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// Decode rebuilds a Store from the output of Encode. An empty string yields an empty Store.
func Decode(data string) (*Store, error) {
	st := New()
	if data == "" {
		return st, nil
	}

	if err := json.Unmarshal([]byte(data), &st.vals); err != nil {
		return nil, errors.Join(ErrDecodeSnapshot, err)
	}

	if st.vals == nil {
		st.vals = make(map[string]string)
	}

	return st, nil
}

// ParseAssignment splits a NAME=value word. The separator must not be the first character.
func ParseAssignment(word string) (name, value string, ok bool) {
	idx := strings.IndexByte(word, '=')
	if idx <= 0 {
		return "", "", false
	}

	return word[:idx], word[idx+1:], true
}

func isNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
