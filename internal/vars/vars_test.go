// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	s := New()
	s.Set("A", "1")
	s.Set("A", "2")

	v, ok := s.Get("A")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	_, ok = s.Get("B")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestSetExpandsValue(t *testing.T) {
	s := New()
	s.Set("A", "hello")
	s.Set("B", "$A-world")
	s.Set("C", "$MISSING")

	v, _ := s.Get("B")
	assert.Equal(t, "hello-world", v)

	v, _ = s.Get("C")
	assert.Equal(t, "$MISSING", v)
}

func TestExpand(t *testing.T) {
	s := New()
	s.Set("X", "ex")
	s.Set("long_name2", "L")

	cases := map[string]string{
		"plain":          "plain",
		"$X":             "ex",
		"a$X.b":          "aex.b",
		"$long_name2!":   "L!",
		"$":              "$",
		"$ x":            "$ x",
		"cost$":          "cost$",
		"$UNSET":         "",
		"pre$UNSET-post": "pre-post",
		"$X$X":           "exex",
	}

	for in, want := range cases {
		assert.Equal(t, want, s.Expand(in), "input %q", in)
	}
}

func TestCloneIsolation(t *testing.T) {
	s := New()
	s.Set("A", "1")

	c := s.Clone()
	c.Set("A", "changed")
	c.Set("B", "new")

	v, _ := s.Get("A")
	assert.Equal(t, "1", v)

	_, ok := s.Get("B")
	assert.False(t, ok)
	assert.Equal(t, []string{"A", "B"}, c.Names())
}

func TestEncodeDecode(t *testing.T) {
	s := New()
	s.Set("GREETING", "hi there")

	data, err := s.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	v, ok := got.Get("GREETING")
	assert.True(t, ok)
	assert.Equal(t, "hi there", v)

	empty, err := Decode("")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	empty, err = Decode("null")
	require.NoError(t, err)
	empty.Set("ok", "1")

	_, err = Decode("{not json")
	require.ErrorIs(t, err, ErrDecodeSnapshot)
}

func TestParseAssignment(t *testing.T) {
	name, value, ok := ParseAssignment("NAME=value=more")
	assert.True(t, ok)
	assert.Equal(t, "NAME", name)
	assert.Equal(t, "value=more", value)

	_, value, ok = ParseAssignment("EMPTY=")
	assert.True(t, ok)
	assert.Empty(t, value)

	_, _, ok = ParseAssignment("=value")
	assert.False(t, ok)

	_, _, ok = ParseAssignment("echo")
	assert.False(t, ok)
}
