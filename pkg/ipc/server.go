package ipc

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/therealutkarshpriyadarshi/vamanadb/pkg/config"
	"github.com/therealutkarshpriyadarshi/vamanadb/pkg/observability"
	"github.com/therealutkarshpriyadarshi/vamanadb/pkg/vamana"
)

// Server is the line-oriented IPC socket service: a single TCP listener
// accepting newline-terminated commands (CREATE, WRITE, OPTIMIZE, SEARCH,
// MEMORY, BULKLOAD, AUTH), the peripheral surface that replaces the
// teacher's gRPC/REST API.
type Server struct {
	cfg    config.ServerConfig
	logger *observability.Logger
	access *observability.AccessLogger
	metric *observability.Metrics

	limiter   *connLimiter
	validator *tokenValidator

	mu    sync.RWMutex
	index *vamana.Index
	pq    *pqState

	connSeq atomic.Uint64
	wg      sync.WaitGroup
}

// NewServer builds a Server. metric may be nil to disable metric recording.
func NewServer(cfg config.ServerConfig, logger *observability.Logger, metric *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		access:    observability.NewAccessLogger(logger),
		metric:    metric,
		limiter:   newConnLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		validator: newTokenValidator(cfg.JWTSecret),
	}
}

// ListenAndServe accepts connections on cfg.Address() until ctx is
// cancelled, then stops accepting and waits for in-flight connections to
// finish (spec section 9's ambient-stack graceful shutdown expectation,
// grounded on the teacher's cmd/server shutdown sequence).
func (s *Server) ListenAndServe(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("ipc: listen: %w", err)
	}
	s.logger.Info("ipc server listening", map[string]interface{}{"addr": s.cfg.Address()})

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				return fmt.Errorf("ipc: accept: %w", err)
			}
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// session is the per-connection state: whether it has authenticated (when
// the server requires it) and its rate-limit identity.
type session struct {
	id            string
	authenticated bool
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	id := fmt.Sprintf("conn-%d", s.connSeq.Add(1))
	sess := &session{id: id}
	defer s.limiter.release(id)

	reader := bufio.NewScanner(conn)
	reader.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	writer := bufio.NewWriter(conn)

	for reader.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := reader.Text()
		if line == "" {
			continue
		}

		if s.cfg.RequestTimeout > 0 {
			conn.SetDeadline(time.Now().Add(s.cfg.RequestTimeout))
		}

		if !s.limiter.allow(id) {
			writeResponse(writer, "ERROR rate limit exceeded")
			continue
		}

		start := time.Now()
		resp, cmdName := s.dispatch(sess, line)
		s.access.LogAccess(cmdName, conn.RemoteAddr().String(), statusOf(resp), time.Since(start), nil)
		if s.metric != nil {
			s.metric.RecordCommand(cmdName, statusOf(resp), time.Since(start))
		}
		writeResponse(writer, resp)
	}
}

func statusOf(resp string) string {
	if len(resp) >= 5 && resp[:5] == "ERROR" {
		return "error"
	}
	return "ok"
}

// writeResponse writes resp (which may itself span several lines, as
// SEARCH's and MEMORY's replies do) followed by a blank line, so a client
// can read an entire response by scanning until an empty line without
// needing to pre-parse a result count (spec section 6's one-response-per-
// command contract).
func writeResponse(w *bufio.Writer, resp string) {
	w.WriteString(resp)
	w.WriteString("\n\n")
	w.Flush()
}
