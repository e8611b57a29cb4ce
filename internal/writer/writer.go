// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/tamzrod/bms-poller/internal/status"
)

// Writer is the delivery-only contract towards the aggregation layer.
// It receives a snapshot and writes it verbatim.
// No logic, no state, no interpretation.
type Writer interface {
	Write(s status.Snapshot) error
}

// ---- CBOR stream ----

// StreamWriter appends CBOR snapshots to w.
// It is safe for concurrent use from multiple device goroutines.
type StreamWriter struct {
	mu     sync.Mutex
	enc    *cbor.Encoder
	closer io.Closer
	closed bool
}

// NewStreamWriter writes to w. If w is also an io.Closer, Close closes it.
func NewStreamWriter(w io.Writer) *StreamWriter {
	sw := &StreamWriter{enc: status.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		sw.closer = c
	}
	return sw
}

func (w *StreamWriter) Write(s status.Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("writer: stream closed")
	}
	if err := w.enc.Encode(s); err != nil {
		return fmt.Errorf("writer: encode %s: %w", s.Device, err)
	}
	return nil
}

// Close closes the underlying writer when it owns one.
// It is safe to call Close multiple times.
func (w *StreamWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// ---- log ----

// LogWriter reports status transitions through slog. Field values stay out
// of the log; they belong to the stream.
type LogWriter struct {
	log *slog.Logger
}

func NewLogWriter(log *slog.Logger) *LogWriter {
	return &LogWriter{log: log}
}

func (w *LogWriter) Write(s status.Snapshot) error {
	attrs := []any{
		"device", s.Device,
		"state", s.State,
		"health", s.Health,
		"fields", len(s.Fields),
		"cells", len(s.Cells),
	}
	if s.Health == status.HealthOK {
		w.log.Info("device status", attrs...)
		return nil
	}
	attrs = append(attrs,
		"error_code", s.LastErrorCode,
		"seconds_in_error", s.SecondsInError,
		"err", s.LastError,
	)
	w.log.Warn("device status", attrs...)
	return nil
}

// ---- fan-out ----

type multi []Writer

// Multi delivers every snapshot to all writers. A failing writer does not
// stop delivery to the others.
func Multi(writers ...Writer) Writer {
	return multi(writers)
}

func (m multi) Write(s status.Snapshot) error {
	var errs []error
	for _, w := range m {
		if err := w.Write(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
