// internal/poller/builder.go
package poller

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tamzrod/bms-poller/internal/cache"
	"github.com/tamzrod/bms-poller/internal/catalog"
	cfg "github.com/tamzrod/bms-poller/internal/config"
	"github.com/tamzrod/bms-poller/internal/lock"
	"github.com/tamzrod/bms-poller/internal/metrics"
	"github.com/tamzrod/bms-poller/internal/transport"
	pmodbus "github.com/tamzrod/bms-poller/internal/transport/modbus"
)

// Dialer opens the transport of one channel. Tests replace it.
type Dialer func(c cfg.ChannelConfig, log *slog.Logger) (transport.Transport, error)

// DialModbus opens a goburrow RTU or TCP client for c.
func DialModbus(c cfg.ChannelConfig, log *slog.Logger) (transport.Transport, error) {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }

	mc := pmodbus.Config{
		Channel:     c.ID,
		Driver:      c.Driver,
		Address:     c.Address,
		BaudRate:    c.BaudRate,
		DataBits:    c.DataBits,
		Parity:      c.Parity,
		StopBits:    c.StopBits,
		Timeout:     ms(c.TimeoutMs),
		IdleTimeout: ms(c.IdleTimeoutMs),
		RS485: pmodbus.RS485{
			Enabled:            c.RS485.Enabled,
			DelayRtsBeforeSend: ms(c.RS485.DelayRtsBeforeSendMs),
			DelayRtsAfterSend:  ms(c.RS485.DelayRtsAfterSendMs),
			RtsHighDuringSend:  c.RS485.RtsHighDuringSend,
			RtsHighAfterSend:   c.RS485.RtsHighAfterSend,
			RxDuringTx:         c.RS485.RxDuringTx,
		},
	}
	if c.DebugFrames {
		mc.FrameLog = log.With("channel", c.ID)
	}
	return pmodbus.New(mc)
}

// Build wires one engine and one poller per configured device. Channels are
// opened once (fail fast at startup) and shared by their devices.
// Config must be validated and normalized.
func Build(c *cfg.Config, cat *catalog.Catalog, dial Dialer, log *slog.Logger, m *metrics.Metrics) (*Engine, []*Poller, func() error, error) {
	p := c.Poller
	if dial == nil {
		dial = DialModbus
	}

	engine, err := NewEngine(Options{
		Catalog:     cat,
		Locks:       lock.NewRegistry(),
		FieldTTL:    time.Duration(p.Cache.FieldTTLMs) * time.Millisecond,
		ProbeTTL:    time.Duration(p.Cache.ProbeTTLMs) * time.Millisecond,
		MaxFailures: p.MaxConsecutiveFailures,
		Clock:       cache.SystemClock,
		Logger:      log,
		Metrics:     m,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	transports := make(map[string]transport.Transport, len(p.Channels))
	closeAll := func() error {
		var last error
		for _, t := range transports {
			if err := t.Close(); err != nil {
				last = err
			}
		}
		return last
	}

	for _, ch := range p.Channels {
		t, err := dial(ch, log)
		if err != nil {
			_ = closeAll()
			return nil, nil, nil, fmt.Errorf("poller: channel %s: %w", ch.ID, err)
		}
		transports[ch.ID] = t
	}

	pollers := make([]*Poller, 0, len(p.Devices))
	for _, d := range p.Devices {
		dev := NewDevice(d.ID, transports[d.Channel], d.Address)
		pl, err := New(
			Config{
				DeviceID: d.ID,
				Interval: time.Duration(d.Poll.IntervalMs) * time.Millisecond,
			},
			engine,
			dev,
		)
		if err != nil {
			_ = closeAll()
			return nil, nil, nil, err
		}
		pollers = append(pollers, pl)
	}

	return engine, pollers, closeAll, nil
}
