// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package broadcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/mysh/internal/config"
	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
	"golang.org/x/sys/unix"
)

var (
	// ErrServerRunning is returned by Start when a run is already active.
	ErrServerRunning = errors.New("server already running")
	// ErrNoServer is returned by Stop when nothing is running.
	ErrNoServer = errors.New("no server running")
	// ErrInvalidPort is returned for ports outside 1..65535.
	ErrInvalidPort = errors.New("invalid port number")
	// ErrAddressInUse is returned when the port is already bound.
	ErrAddressInUse = errors.New("address already in use")
	// ErrListen wraps any other listen failure.
	ErrListen = errors.New("failed to listen")
	// ErrRosterFull is reported when a connection is refused at capacity.
	ErrRosterFull = errors.New("too many clients")
)

// Options configures a Server.
type Options struct {
	Host         string
	MaxClients   int
	ChunkSize    int
	ControlToken string
	Delivery     string
	OutboxDepth  int
	// Stdout receives one "<id> <msg>" line per message. Defaults to os.Stdout.
	Stdout io.Writer
}

// OptionsFromConfig maps the shell configuration onto server options.
func OptionsFromConfig(cfg *config.Config, stdout io.Writer) Options {
	return Options{
		Host:         cfg.ServerHost,
		MaxClients:   cfg.MaxClients,
		ChunkSize:    cfg.ReadChunkSize,
		ControlToken: cfg.ControlToken,
		Delivery:     cfg.Delivery,
		OutboxDepth:  cfg.OutboxDepth,
		Stdout:       stdout,
	}
}

func (o Options) withDefaults() Options {
	d := config.Default()

	if o.MaxClients <= 0 {
		o.MaxClients = d.MaxClients
	}

	if o.ChunkSize <= 0 {
		o.ChunkSize = d.ReadChunkSize
	}

	if o.ControlToken == "" {
		o.ControlToken = d.ControlToken
	}

	if o.Delivery == "" {
		o.Delivery = d.Delivery
	}

	if o.OutboxDepth <= 0 {
		o.OutboxDepth = d.OutboxDepth
	}

	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}

	return o
}

// Server is the broadcast service. The zero value is not usable; call New.
//
// mu guards the listener, the running flag and the roster. Every roster
// read, write and the bulk close in Stop happen with mu held.
type Server struct {
	opts Options

	mu      sync.Mutex
	ln      net.Listener
	running bool
	roster  map[uuid.UUID]*session
	nextID  int

	outMu sync.Mutex
	wg    sync.WaitGroup
}

// New creates a stopped server.
func New(opts Options) *Server {
	return &Server{
		opts:   opts.withDefaults(),
		roster: make(map[uuid.UUID]*session),
	}
}

// ParsePort converts a port argument, rejecting anything outside 1..65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || !validPort(port) {
		return 0, ErrInvalidPort
	}

	return port, nil
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

// Start binds host:port and begins accepting connections in the background.
func (s *Server) Start(ctx context.Context, port int) error {
	if !validPort(port) {
		return ErrInvalidPort
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrServerRunning
	}

	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, unix.EADDRINUSE) {
			return ErrAddressInUse
		}

		return errors.Join(ErrListen, err)
	}

	s.ln = ln
	s.running = true
	clear(s.roster)

	ctxlog.Info(ctx, "broadcast", "detail", "server started", "addr", ln.Addr().String())

	s.wg.Add(1)

	go s.accept(context.WithoutCancel(ctx), ln)

	return nil
}

// Stop closes the listener and every session and empties the roster.
// Reader goroutines exit on their own; use Wait to join them.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNoServer
	}

	s.running = false

	var result *multierror.Error

	if err := s.ln.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("listener: %w", err))
	}

	s.ln = nil

	for key, sess := range s.roster {
		if err := sess.close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s %w", sess.id, err))
		}

		delete(s.roster, key)
	}

	return result.ErrorOrNil()
}

// Wait blocks until the accept loop and all session goroutines have exited.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Running reports whether a run is active.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// Addr returns the listening address, or nil when stopped.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return nil
	}

	return s.ln.Addr()
}

// Len returns the number of admitted sessions.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.roster)
}

func (s *Server) accept(ctx context.Context, ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				ctxlog.Debug(ctx, "broadcast", "detail", "accept loop finished")
				return
			}

			ctxlog.Warn(ctx, "broadcast", "detail", "accept failed", "error", err)

			continue
		}

		if err := s.admit(ctx, ln, conn); err != nil {
			ctxlog.Warn(ctx, "broadcast", "detail", "connection refused", "remote", conn.RemoteAddr().String(), "error", err)
			_ = conn.Close()
		}
	}
}

// admit adds conn to the roster and starts its reader.
func (s *Server) admit(ctx context.Context, ln net.Listener, conn net.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.ln != ln {
		return ErrNoServer
	}

	if len(s.roster) >= s.opts.MaxClients {
		return ErrRosterFull
	}

	s.nextID++
	sess := newSession(conn, fmt.Sprintf("client%d:", s.nextID))

	if s.opts.Delivery != config.DeliverySync {
		sess.out = newOutbox(s.opts.OutboxDepth)

		s.wg.Add(1)

		go func() {
			defer s.wg.Done()
			sess.out.drain(conn)
		}()
	}

	s.roster[sess.key] = sess

	ctxlog.Debug(ctx, "broadcast", "detail", "client admitted", "id", sess.id, "remote", conn.RemoteAddr().String())

	s.wg.Add(1)

	go s.read(ctx, sess)

	return nil
}

// remove drops sess from the roster if it is still there.
func (s *Server) remove(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.roster[sess.key]; ok && cur == sess {
		delete(s.roster, sess.key)
	}
}

// writeLocal prints one message line on the shell's stdout.
func (s *Server) writeLocal(line string) {
	s.outMu.Lock()
	defer s.outMu.Unlock()

	_, _ = io.WriteString(s.opts.Stdout, line)
}
