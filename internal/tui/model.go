// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// LineKind tells the transcript how to style a line.
type LineKind int

const (
	LineIncoming LineKind = iota
	LineOutgoing
	LineSystem
)

// String returns a string representation of the line kind.
func (k LineKind) String() string {
	switch k {
	case LineIncoming:
		return "incoming"
	case LineOutgoing:
		return "outgoing"
	case LineSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Line is one transcript entry.
type Line struct {
	At   time.Time
	Kind LineKind
	Text string
}

// Model is the chat client state.
type Model struct {
	ctx  context.Context
	addr string
	conn io.Writer

	input    textinput.Model
	viewport viewport.Model
	lines    []Line

	width        int
	height       int
	quitting     bool
	disconnected bool
	err          error

	styles *Styles
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title    lipgloss.Style
	Incoming lipgloss.Style
	Outgoing lipgloss.Style
	System   lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style
	Border   lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")),
		Incoming: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")),
		Outgoing: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		System: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")),
	}
}

// NewModel creates a chat model that writes outgoing messages to conn.
// charLimit caps a single message, normally the server's read chunk size.
func NewModel(ctx context.Context, addr string, conn io.Writer, charLimit int) *Model {
	ti := textinput.New()
	ti.Placeholder = "type a message"
	ti.Prompt = "> "
	ti.CharLimit = charLimit
	ti.Focus()

	m := &Model{
		ctx:      ctx,
		addr:     addr,
		conn:     conn,
		input:    ti,
		viewport: viewport.New(80, 20),
		styles:   NewStyles(),
	}

	m.appendLine(LineSystem, "connected to "+addr)

	return m
}

// Lines returns a copy of the transcript.
func (m *Model) Lines() []Line {
	out := make([]Line, len(m.lines))
	copy(out, m.lines)

	return out
}

// Disconnected reports whether the server connection is gone.
func (m *Model) Disconnected() bool {
	return m.disconnected
}

func (m *Model) appendLine(kind LineKind, text string) {
	text = strings.TrimRight(text, "\r\n")

	for _, part := range strings.Split(text, "\n") {
		m.lines = append(m.lines, Line{At: time.Now(), Kind: kind, Text: part})
	}

	m.refresh()
}

// refresh re-renders the transcript into the viewport and keeps the newest
// line visible.
func (m *Model) refresh() {
	var b strings.Builder

	for i, l := range m.lines {
		if i > 0 {
			b.WriteString("\n")
		}

		b.WriteString(m.renderLine(l))
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *Model) renderLine(l Line) string {
	stamp := l.At.Format("15:04:05")

	switch l.Kind {
	case LineOutgoing:
		return m.styles.Outgoing.Render(stamp + " me " + l.Text)
	case LineSystem:
		return m.styles.System.Render(stamp + " -- " + l.Text)
	default:
		return m.styles.Incoming.Render(stamp + " " + l.Text)
	}
}

func (m *Model) updateViewportSize() {
	// title, border, input and help take the remaining rows
	h := m.height - 6
	if h < 1 {
		h = 1
	}

	w := m.width - 2
	if w < 1 {
		w = 1
	}

	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = max(w-len(m.input.Prompt), 1)
	m.refresh()
}
