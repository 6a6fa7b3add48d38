package wire

import (
	"context"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"mysqlredisd/internal/executor"
	"mysqlredisd/internal/pool"
)

// Server accepts MySQL wire connections and runs each one through a
// Pipeline. Concurrency is scheduled onto a bounded worker pool, one
// goroutine per accepted connection, admitted through pool.ConnPool.
type Server struct {
	addr      string
	pipeline  *Pipeline
	logger    *logrus.Logger
	connLimit *rate.Limiter
	admission *pool.ConnPool
	timeout   time.Duration

	nextConnID uint32
	listener   net.Listener
}

// Options configures a Server.
type Options struct {
	Addr              string
	Pipeline          *Pipeline
	Logger            *logrus.Logger
	ConnRatePerSecond float64
	WorkerPoolSize    int
	BackendTimeout    time.Duration
}

// NewServer constructs a Server. It does not start listening.
func NewServer(opts Options) *Server {
	burst := int(opts.ConnRatePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Server{
		addr:      opts.Addr,
		pipeline:  opts.Pipeline,
		logger:    opts.Logger,
		connLimit: rate.NewLimiter(rate.Limit(opts.ConnRatePerSecond), burst),
		admission: pool.NewConnPool(opts.WorkerPoolSize, opts.Logger),
		timeout:   opts.BackendTimeout,
	}
}

// Stats exposes connection-admission pool occupancy for the admin
// status plane.
func (s *Server) Stats() map[string]interface{} {
	return s.admission.Stats()
}

// ListenAndServe binds addr and serves connections until ctx is
// cancelled or a fatal accept error occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		if !s.connLimit.Allow() {
			conn.Close()
			continue
		}

		if !s.admission.Acquire(ctx) {
			conn.Close()
			return nil
		}
		go func() {
			defer s.admission.Release()
			s.handleConn(ctx, conn)
		}()
	}
}

// Close stops the listener, causing ListenAndServe to return.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	connID := atomic.AddUint32(&s.nextConnID, 1)
	clientAddr := clientIP(conn.RemoteAddr())

	if err := sendHandshake(conn, connID); err != nil {
		return
	}
	if _, err := readHandshakeResponse(conn); err != nil {
		return
	}
	// Any credentials are accepted: acknowledge the handshake response
	// (sequence 2, after the greeting at 0 and the response at 1).
	if err := writeOKPacket(conn, 2); err != nil {
		return
	}

	stmts := newStatementTable()

	for {
		payload, cmdSeq, err := readPacket(conn)
		if err != nil {
			return
		}
		if len(payload) == 0 {
			return
		}

		seq := cmdSeq + 1

		switch payload[0] {
		case comQuit:
			return

		case comInitDB:
			if err := writeOKPacket(conn, seq); err != nil {
				return
			}

		case comPing:
			if err := writeOKPacket(conn, seq); err != nil {
				return
			}

		case comFieldList:
			if _, err := writeFieldList(conn, seq, userColumnNames()); err != nil {
				return
			}

		case comQuery:
			sql := string(payload[1:])
			rs := s.runQuery(ctx, sql, clientAddr)
			if _, err := writeResultSet(conn, rs, seq); err != nil {
				return
			}

		case comStmtPrepare:
			sql := string(payload[1:])
			stmt := stmts.prepare(sql)
			if err := writeStmtPrepareOK(conn, stmt, seq); err != nil {
				return
			}

		case comStmtExecute:
			rs, ok := s.handleStmtExecute(ctx, stmts, payload, clientAddr)
			if !ok {
				return
			}
			if _, err := writeResultSet(conn, rs, seq); err != nil {
				return
			}

		case comStmtClose:
			if len(payload) >= 5 {
				id := leUint32(payload[1:5])
				stmts.close(id)
			}
			// COM_STMT_CLOSE has no response.

		default:
			return
		}
	}
}

func (s *Server) runQuery(ctx context.Context, sql string, clientAddr string) executor.ResultSet {
	queryCtx := ctx
	var cancel context.CancelFunc
	if s.timeout > 0 {
		queryCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.pipeline.Run(queryCtx, sql, clientAddr)
}

func (s *Server) handleStmtExecute(ctx context.Context, stmts *statementTable, payload []byte, clientAddr string) (executor.ResultSet, bool) {
	if len(payload) < 10 {
		return executor.ResultSet{}, false
	}

	id := leUint32(payload[1:5])
	stmt, ok := stmts.get(id)
	if !ok {
		return executor.ResultSet{}, false
	}

	sql, err := substituteParams(stmt, payload, 10)
	if err != nil {
		return executor.ResultSet{}, false
	}

	return s.runQuery(ctx, sql, clientAddr), true
}

func writeStmtPrepareOK(w interface{ Write([]byte) (int, error) }, stmt *preparedStatement, seq byte) error {
	buf := []byte{okPacketHeader}
	buf = appendUint32(buf, stmt.id)
	buf = appendUint16(buf, 0) // num columns
	buf = appendUint16(buf, uint16(stmt.numArgs))
	buf = append(buf, 0x00)       // filler
	buf = appendUint16(buf, 0x00) // warning count
	return writePacket(w, buf, seq)
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func userColumnNames() []string {
	return []string{"id", "name", "email", "age", "created_at"}
}

func clientIP(addr net.Addr) string {
	s := addr.String()
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	return strings.TrimSpace(s)
}
