package modbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Rejects(t *testing.T) {
	_, err := New(Config{Address: "/dev/ttyUSB0"})
	assert.Error(t, err, "channel required")

	_, err = New(Config{Channel: "bus0"})
	assert.Error(t, err, "address required")

	_, err = New(Config{Channel: "bus0", Driver: "udp", Address: "x"})
	assert.ErrorContains(t, err, "unknown driver")
}

func TestCallTimeout(t *testing.T) {
	assert.Equal(t, 400*time.Millisecond, callTimeout(context.Background(), 400*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	got := callTimeout(ctx, 400*time.Millisecond)
	assert.LessOrEqual(t, got, 50*time.Millisecond)
	assert.Greater(t, got, time.Duration(0))

	ctx, cancel = context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	assert.Equal(t, 400*time.Millisecond, callTimeout(ctx, 400*time.Millisecond))

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	assert.Equal(t, time.Millisecond, callTimeout(expired, 400*time.Millisecond))
}
