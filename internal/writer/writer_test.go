// internal/writer/writer_test.go
package writer

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/tamzrod/bms-poller/internal/config"
	"github.com/tamzrod/bms-poller/internal/status"
)

// ---- fake writer ----

type fakeWriter struct {
	got []status.Snapshot
	err error
}

func (f *fakeWriter) Write(s status.Snapshot) error {
	f.got = append(f.got, s)
	return f.err
}

type closeRecorder struct {
	bytes.Buffer
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

// ---- tests ----

func TestStreamWriter_Decodes(t *testing.T) {
	var buf closeRecorder
	w := NewStreamWriter(&buf)

	require.NoError(t, w.Write(status.Snapshot{Device: "bank1", Health: status.HealthOK}))
	require.NoError(t, w.Write(status.Snapshot{Device: "bank2", Health: status.HealthError}))

	dec := status.NewDecoder(&buf.Buffer)
	var s status.Snapshot
	require.NoError(t, dec.Decode(&s))
	assert.Equal(t, "bank1", s.Device)
	require.NoError(t, dec.Decode(&s))
	assert.Equal(t, status.HealthError, s.Health)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, 1, buf.closed)
	assert.Error(t, w.Write(status.Snapshot{}))
}

func TestMulti_ContinuesPastFailure(t *testing.T) {
	errDisk := errors.New("disk full")
	bad := &fakeWriter{err: errDisk}
	worse := &fakeWriter{err: io.ErrClosedPipe}
	good := &fakeWriter{}

	err := Multi(bad, good, worse).Write(status.Snapshot{Device: "d"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errDisk)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Len(t, good.got, 1)

	assert.NoError(t, Multi(good).Write(status.Snapshot{Device: "d"}))
}

func TestLogWriter(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	w := NewLogWriter(log)

	require.NoError(t, w.Write(status.Snapshot{Device: "d", Health: status.HealthOK}))
	require.NoError(t, w.Write(status.Snapshot{Device: "d", Health: status.HealthError, LastErrorCode: status.ErrorTransport}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "level=INFO")
	assert.Contains(t, lines[1], "level=WARN")
	assert.Contains(t, lines[1], "error_code=2")
}

func TestBuild_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.cbor")
	w, closeFn, err := Build(cfg.OutputConfig{Path: path}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	require.NoError(t, w.Write(status.Snapshot{Device: "d"}))
	require.NoError(t, closeFn())
}

func TestBuild_Disabled(t *testing.T) {
	w, closeFn, err := Build(cfg.OutputConfig{}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	require.NoError(t, w.Write(status.Snapshot{Device: "d"}))
	require.NoError(t, closeFn())
}
