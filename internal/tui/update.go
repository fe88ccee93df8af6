// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
)

// IncomingMsg carries one chunk read from the server.
type IncomingMsg struct {
	Text string
}

// DisconnectedMsg reports that the server connection ended.
type DisconnectedMsg struct {
	Err error
}

// Init implements bubbletea.Model.Init.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements bubbletea.Model.Update.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewportSize()

		return m, nil

	case IncomingMsg:
		m.appendLine(LineIncoming, msg.Text)
		return m, nil

	case DisconnectedMsg:
		m.disconnected = true
		m.err = msg.Err
		m.input.Blur()

		text := "server closed the connection"
		if msg.Err != nil && msg.Err != io.EOF {
			text = "connection lost: " + msg.Err.Error()
		}

		m.appendLine(LineSystem, text)

		return m, nil

	case tea.QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)

	return m, cmd
}

// handleKeyPress processes keyboard input.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)

		return m, cmd

	case "enter":
		m.send()
		return m, nil
	}

	if m.disconnected {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m *Model) send() {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" || m.disconnected {
		return
	}

	m.input.Reset()

	if _, err := io.WriteString(m.conn, text); err != nil {
		ctxlog.Debug(m.ctx, "tui", "detail", "send failed", "error", err)
		m.appendLine(LineSystem, "send failed: "+err.Error())

		return
	}

	m.appendLine(LineOutgoing, text)
}

// View implements bubbletea.Model.View.
func (m *Model) View() string {
	if m.quitting {
		return "Disconnecting...\n"
	}

	var view strings.Builder

	view.WriteString(m.styles.Title.Render("mysh chat  " + m.addr))
	view.WriteString("\n")
	view.WriteString(m.styles.Border.Render(m.viewport.View()))
	view.WriteString("\n")

	if m.disconnected {
		view.WriteString(m.styles.Error.Render("disconnected"))
	} else {
		view.WriteString(m.input.View())
	}

	view.WriteString("\n")
	view.WriteString(m.styles.Help.Render(`enter to send, \connected for the client count, pgup/pgdn to scroll, esc to quit`))

	return view.String()
}
