package wire

import (
	"bytes"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/alovak/farecard/transit/models"
)

// handleConnection serves one client until it disconnects, a transport
// error occurs or the server closes. Requests are answered strictly in
// the order they were received.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	logger := s.logger.With(
		slog.String("conn_id", uuid.NewString()),
		slog.String("remote", conn.RemoteAddr().String()),
	)
	logger.Debug("client connected")

	buf := make([]byte, s.opts.BufferSize)
	fr := newFramer(s.opts.BufferSize)
	var seq uint64

	for {
		if s.opts.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout))
		}

		n, err := conn.Read(buf)
		if n > 0 {
			var out bytes.Buffer
			for _, f := range fr.feed(buf[:n]) {
				seq++
				reqLogger := logger.With(slog.Uint64("seq", seq))
				if f.tooLong {
					out.WriteString(s.rejectOverlong(reqLogger))
				} else {
					out.WriteString(s.serveRequest(reqLogger, f.request))
				}
				if fr.lineFramed() {
					out.WriteByte('\n')
				}
			}

			if out.Len() > 0 {
				if _, werr := conn.Write(out.Bytes()); werr != nil {
					logClose(logger, "writing response", werr)
					return
				}
			}
		}
		if err != nil {
			if pending := fr.pending(); pending > 0 {
				logger.Debug("dropping unterminated request", slog.Int("bytes", pending))
			}
			logClose(logger, "reading request", err)
			return
		}
	}
}

// rejectOverlong answers a line that did not fit in the read buffer.
func (s *Server) rejectOverlong(logger *slog.Logger) string {
	logger.Info("rejected request", slog.String("reason", "line exceeds buffer"), slog.Int("buffer_size", s.opts.BufferSize))
	s.opts.Metrics.ObserveRequest("", "rejected", 0)
	return Failure
}

func (s *Server) serveRequest(logger *slog.Logger, request string) string {
	start := time.Now()

	cmd, err := ParseCommand(request)
	if err != nil {
		logger.Info("rejected request", slog.String("request", request), slog.Any("err", err))
		s.opts.Metrics.ObserveRequest(string(cmd.Verb), "rejected", time.Since(start))
		return Failure
	}

	response, err := Execute(s.ctx, s.service, cmd)
	kind := models.KindOf(err)
	took := time.Since(start)
	s.opts.Metrics.ObserveRequest(string(cmd.Verb), kind.String(), took)

	switch kind {
	case models.KindNone:
		logger.Debug("request served", slog.String("request", cmd.String()), slog.Duration("took", took))
	case models.KindInternal:
		logger.Error("request failed", slog.String("request", cmd.String()), slog.Any("err", err))
	default:
		logger.Info("request declined", slog.String("request", cmd.String()), slog.String("reason", err.Error()))
	}

	return response
}

func logClose(logger *slog.Logger, op string, err error) {
	var ne net.Error
	switch {
	case isExpectedCloseError(err):
		logger.Debug("client disconnected", slog.String("op", op), slog.Any("err", err))
	case errors.As(err, &ne) && ne.Timeout():
		logger.Info("closing idle connection")
	default:
		logger.Error("connection error", slog.String("op", op), slog.Any("err", err))
	}
}

// isExpectedCloseError reports whether err is a normal end of a
// connection: EOF, a closed socket, a reset or a broken pipe.
func isExpectedCloseError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
