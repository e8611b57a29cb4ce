package poller

import (
	"context"
	"errors"
	"time"
)

// Config is the minimal runtime config one device poller needs.
type Config struct {
	DeviceID string
	Interval time.Duration
}

// Poller is a clock-driven driver for one device.
type Poller struct {
	cfg    Config
	engine *Engine
	dev    *Device
}

// New creates a poller with immutable config.
func New(cfg Config, engine *Engine, dev *Device) (*Poller, error) {
	if cfg.DeviceID == "" {
		return nil, errors.New("poller: device id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if engine == nil || dev == nil {
		return nil, errors.New("poller: engine and device required")
	}
	return &Poller{cfg: cfg, engine: engine, dev: dev}, nil
}

// Device returns the polled device.
func (p *Poller) Device() *Device { return p.dev }

// PollOnce performs exactly one poll cycle.
// The returned snapshot is taken after the cycle, whatever its outcome.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	err := p.engine.Poll(ctx, p.dev)

	res := p.dev.Snapshot()
	res.DeviceID = p.cfg.DeviceID
	res.At = p.engine.clock.Now()
	res.Err = err
	return res
}
