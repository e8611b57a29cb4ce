// internal/writer/builder.go
package writer

import (
	"log/slog"
	"os"

	cfg "github.com/tamzrod/bms-poller/internal/config"
)

// Build creates the snapshot writer for the configured output.
// The log writer is always present; the CBOR stream only when a path is set.
func Build(o cfg.OutputConfig, log *slog.Logger) (Writer, func() error, error) {
	writers := []Writer{NewLogWriter(log)}
	closeFn := func() error { return nil }

	switch o.Path {
	case "":
	case "-":
		writers = append(writers, NewStreamWriter(nopCloser{os.Stdout}))
	default:
		f, err := os.OpenFile(o.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, err
		}
		sw := NewStreamWriter(f)
		writers = append(writers, sw)
		closeFn = sw.Close
	}

	return Multi(writers...), closeFn, nil
}

// nopCloser keeps stdout open when the stream closes.
type nopCloser struct{ *os.File }

func (nopCloser) Close() error { return nil }
