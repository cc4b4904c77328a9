// Package bolt implements the Neo4j Bolt wire-protocol server (C9):
// handshake negotiation, HELLO/LOGON, RUN/PULL/DISCARD with session-scoped
// parameter bag, and a small set of built-in schema-discovery procedures.
// One goroutine serves one accepted connection for its entire lifetime,
// generalizing the teacher's single-session stdio MCP transport
// (internal/mcp/stdio_transport.go) to "one session per TCP connection"
// (spec §4.9/§5).
package bolt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"

	"github.com/clickgraph/clickgraph/internal/backend"
	"github.com/clickgraph/clickgraph/internal/bolt/packstream"
	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/logging"
	"github.com/clickgraph/clickgraph/internal/telemetry"
)

// Server accepts Bolt connections against a shared catalog and backend
// client, exactly like the HTTP service's Server does.
type Server struct {
	catalog *catalog.Catalog
	backend *backend.Client
	logger  *logging.Logger
	metrics *telemetry.Metrics
}

// NewServer wires a Server against the shared catalog and backend client.
// metrics may be nil, in which case the server runs unobserved.
func NewServer(cat *catalog.Catalog, be *backend.Client, metrics *telemetry.Metrics) *Server {
	return &Server{catalog: cat, backend: be, logger: logging.Component("bolt"), metrics: metrics}
}

// ListenAndServe accepts connections on addr until ctx is cancelled or the
// listener errors.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.logger.Info("bolt server listening", "addr", addr)
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("bolt accept failed", "error", err)
			continue
		}
		go s.serveConn(ctx, nc)
	}
}

func (s *Server) serveConn(ctx context.Context, nc net.Conn) {
	defer nc.Close()

	version, err := negotiateHandshake(nc)
	if err != nil {
		s.logger.Warn("bolt handshake failed", "error", err, "remote", nc.RemoteAddr())
		return
	}

	if s.metrics != nil {
		s.metrics.BoltSessionsTotal.Inc()
		s.metrics.BoltSessionsOpen.Inc()
		defer s.metrics.BoltSessionsOpen.Dec()
	}

	sess := newSession(version)
	c := &conn{rw: nc, sess: sess, catalog: s.catalog, be: s.backend, metrics: s.metrics}
	s.logger.Info("bolt connection established", "remote", nc.RemoteAddr(), "version", version.String())

	for sess.state != StateClosed {
		if ctx.Err() != nil {
			return
		}
		raw, err := readMessage(nc)
		if err != nil {
			if err != io.EOF {
				s.logger.Warn("bolt read failed", "error", err)
			}
			return
		}
		decoded, err := packstream.NewDecoder(bytes.NewReader(raw)).ReadValue()
		if err != nil {
			s.logger.Warn("bolt decode failed", "error", err)
			return
		}
		msg, ok := decoded.(*packstream.Structure)
		if !ok {
			s.logger.Warn("bolt message was not a structure")
			return
		}
		if err := c.dispatch(ctx, msg); err != nil {
			s.logger.Warn("bolt dispatch failed", "error", err, "tag", msg.Tag)
			return
		}
	}
}
