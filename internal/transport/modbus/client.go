package modbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/goburrow/modbus"
	"github.com/goburrow/serial"

	"github.com/tamzrod/bms-poller/internal/transport"
)

// Client implements transport.Transport on top of goburrow/modbus.
// One Client owns one physical channel; the slave id is switched per request,
// which is safe because callers hold the channel lock around every call.
type Client struct {
	channel string
	timeout time.Duration

	closer     io.Closer
	client     modbus.Client
	setSlave   func(byte)
	setTimeout func(time.Duration)
}

// RS485 mirrors the serial line-driver options.
type RS485 struct {
	Enabled            bool
	DelayRtsBeforeSend time.Duration
	DelayRtsAfterSend  time.Duration
	RtsHighDuringSend  bool
	RtsHighAfterSend   bool
	RxDuringTx         bool
}

// Config is minimal transport config.
type Config struct {
	Channel string
	Driver  string // "rtu" (serial) or "tcp"
	Address string // device path for rtu, host:port for tcp

	BaudRate int
	DataBits int
	Parity   string
	StopBits int
	RS485    RS485

	Timeout     time.Duration
	IdleTimeout time.Duration

	// FrameLog receives raw frames at debug level when set.
	FrameLog *slog.Logger
}

// New creates a client and opens the channel (fail fast at startup).
func New(cfg Config) (*Client, error) {
	if cfg.Channel == "" {
		return nil, errors.New("modbus client: channel required")
	}
	if cfg.Address == "" {
		return nil, errors.New("modbus client: address required")
	}

	c := &Client{channel: cfg.Channel, timeout: cfg.Timeout}

	var (
		handler modbus.ClientHandler
		connect func() error
	)

	switch strings.ToLower(cfg.Driver) {
	case "", "rtu":
		h := modbus.NewRTUClientHandler(cfg.Address)
		h.BaudRate = cfg.BaudRate
		h.DataBits = cfg.DataBits
		h.Parity = cfg.Parity
		h.StopBits = cfg.StopBits
		h.Timeout = cfg.Timeout
		h.RS485 = serial.RS485Config{
			Enabled:            cfg.RS485.Enabled,
			DelayRtsBeforeSend: cfg.RS485.DelayRtsBeforeSend,
			DelayRtsAfterSend:  cfg.RS485.DelayRtsAfterSend,
			RtsHighDuringSend:  cfg.RS485.RtsHighDuringSend,
			RtsHighAfterSend:   cfg.RS485.RtsHighAfterSend,
			RxDuringTx:         cfg.RS485.RxDuringTx,
		}
		if cfg.IdleTimeout > 0 {
			h.IdleTimeout = cfg.IdleTimeout
		}
		if cfg.FrameLog != nil {
			h.Logger = slog.NewLogLogger(cfg.FrameLog.Handler(), slog.LevelDebug)
		}
		handler, connect, c.closer = h, h.Connect, h
		c.setSlave = func(id byte) { h.SlaveId = id }
		c.setTimeout = func(d time.Duration) { h.Timeout = d }

	case "tcp":
		h := modbus.NewTCPClientHandler(cfg.Address)
		h.Timeout = cfg.Timeout
		if cfg.IdleTimeout > 0 {
			h.IdleTimeout = cfg.IdleTimeout
		}
		if cfg.FrameLog != nil {
			h.Logger = slog.NewLogLogger(cfg.FrameLog.Handler(), slog.LevelDebug)
		}
		handler, connect, c.closer = h, h.Connect, h
		c.setSlave = func(id byte) { h.SlaveId = id }
		c.setTimeout = func(d time.Duration) { h.Timeout = d }

	default:
		return nil, fmt.Errorf("modbus client: unknown driver %q", cfg.Driver)
	}

	if err := connect(); err != nil {
		return nil, fmt.Errorf("modbus client: open %s: %w", cfg.Address, err)
	}
	c.client = modbus.NewClient(handler)
	return c, nil
}

// Channel returns the channel id.
func (c *Client) Channel() string { return c.channel }

// Close closes the underlying port or connection.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// ---- transport.Transport interface ----

func (c *Client) ReadRegisters(ctx context.Context, slave uint8, address, quantity uint16) ([]byte, error) {
	if err := c.prepare(ctx, slave); err != nil {
		return nil, err
	}
	raw, err := c.client.ReadHoldingRegisters(address, quantity)
	if err != nil {
		return nil, err
	}
	if len(raw) != int(quantity)*2 {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", transport.ErrShortResponse, len(raw), int(quantity)*2)
	}
	return raw, nil
}

func (c *Client) ReadCoil(ctx context.Context, slave uint8, address uint16) (bool, error) {
	if err := c.prepare(ctx, slave); err != nil {
		return false, err
	}
	raw, err := c.client.ReadCoils(address, 1)
	if err != nil {
		return false, err
	}
	if len(raw) < 1 {
		return false, fmt.Errorf("%w: empty coil payload", transport.ErrShortResponse)
	}
	return raw[0]&0x01 != 0, nil
}

// prepare selects the slave and bounds the response timeout by the context
// deadline.
func (c *Client) prepare(ctx context.Context, slave uint8) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.setSlave(slave)
	c.setTimeout(callTimeout(ctx, c.timeout))
	return nil
}

func callTimeout(ctx context.Context, def time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return def
	}
	left := time.Until(deadline)
	if left <= 0 {
		left = time.Millisecond
	}
	if def <= 0 || left < def {
		return left
	}
	return def
}

var _ transport.Transport = (*Client)(nil)
