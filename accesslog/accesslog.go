// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package accesslog records one structured line per HTTP request.
package accesslog

import (
	"net"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Writer writes access log entries through a [zap.Logger].
type Writer struct {
	log   *zap.Logger
	close func()
}

// Open returns a [Writer] appending JSON lines to the file at path.
// The file is created if it does not exist.
func Open(path string) (*Writer, error) {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.MessageKey = ""
	enc.LevelKey = ""
	enc.CallerKey = ""
	enc.StacktraceKey = ""
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	ws, closeOut, err := zap.Open(path)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, zapcore.InfoLevel)
	return &Writer{log: zap.New(core), close: closeOut}, nil
}

// New returns a [Writer] backed by log. Closing it only syncs log.
func New(log *zap.Logger) *Writer {
	return &Writer{log: log}
}

// Close flushes any buffered entries and releases the file opened by [Open].
func (w *Writer) Close() error {
	err := w.log.Sync()
	if w.close != nil {
		w.close()
		w.close = nil
	}
	return err
}

// Handler records every request served by h.
func (w *Writer) Handler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m := httpsnoop.CaptureMetrics(h, rw, r)

		w.log.Info(
			"",
			zap.String("remote", remoteHost(r.RemoteAddr)),
			zap.Time("start", start),
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.String("proto", r.Proto),
			zap.Int("status", m.Code),
			zap.Int64("bytes", m.Written),
			zap.Duration("duration", m.Duration),
			zap.String("referer", r.Referer()),
			zap.String("user_agent", r.UserAgent()),
		)
	})
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
