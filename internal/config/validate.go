// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	p := cfg.Poller

	// ------------------------------------------------------------
	// AMBIENT
	// ------------------------------------------------------------

	switch strings.ToLower(p.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: must be debug, info, warn or error", p.Log.Level)
	}
	switch strings.ToLower(p.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q: must be text or json", p.Log.Format)
	}

	if p.Cache.FieldTTLMs < 0 || p.Cache.ProbeTTLMs < 0 {
		return fmt.Errorf("cache: ttl must be >= 0")
	}
	if p.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("max_consecutive_failures must be >= 0")
	}

	// ------------------------------------------------------------
	// CHANNELS
	// ------------------------------------------------------------

	if len(p.Channels) == 0 {
		return fmt.Errorf("at least one channel is required")
	}

	channels := make(map[string]ChannelConfig, len(p.Channels))
	for _, c := range p.Channels {
		if c.ID == "" {
			return fmt.Errorf("channel: id required")
		}
		if _, dup := channels[c.ID]; dup {
			return fmt.Errorf("channel %q: duplicate id", c.ID)
		}
		channels[c.ID] = c

		if c.Address == "" {
			return fmt.Errorf("channel %q: address required", c.ID)
		}

		switch strings.ToLower(c.Driver) {
		case "", "rtu":
			switch strings.ToUpper(c.Parity) {
			case "", "N", "E", "O":
			default:
				return fmt.Errorf("channel %q: parity %q must be N, E or O", c.ID, c.Parity)
			}
			if c.BaudRate < 0 {
				return fmt.Errorf("channel %q: baud_rate must be >= 0", c.ID)
			}
			if c.DataBits != 0 && (c.DataBits < 5 || c.DataBits > 8) {
				return fmt.Errorf("channel %q: data_bits must be 5..8", c.ID)
			}
			if c.StopBits != 0 && c.StopBits != 1 && c.StopBits != 2 {
				return fmt.Errorf("channel %q: stop_bits must be 1 or 2", c.ID)
			}
		case "tcp":
			if c.RS485.Enabled {
				return fmt.Errorf("channel %q: rs485 requires the rtu driver", c.ID)
			}
		default:
			return fmt.Errorf("channel %q: driver %q must be rtu or tcp", c.ID, c.Driver)
		}

		if c.TimeoutMs < 0 || c.IdleTimeoutMs < 0 {
			return fmt.Errorf("channel %q: timeouts must be >= 0", c.ID)
		}
	}

	// ------------------------------------------------------------
	// DEVICES
	// ------------------------------------------------------------

	if len(p.Devices) == 0 {
		return fmt.Errorf("at least one device is required")
	}

	ids := make(map[string]struct{}, len(p.Devices))
	// key = channel | address
	owner := make(map[string]string, len(p.Devices))

	for _, d := range p.Devices {
		if d.ID == "" {
			return fmt.Errorf("device: id required")
		}
		if _, dup := ids[d.ID]; dup {
			return fmt.Errorf("device %q: duplicate id", d.ID)
		}
		ids[d.ID] = struct{}{}

		if _, ok := channels[d.Channel]; !ok {
			return fmt.Errorf("device %q: unknown channel %q", d.ID, d.Channel)
		}
		if d.Address < 1 || d.Address > 247 {
			return fmt.Errorf("device %q: address %d outside 1..247", d.ID, d.Address)
		}
		if d.Poll.IntervalMs < 0 {
			return fmt.Errorf("device %q: poll.interval_ms must be >= 0", d.ID)
		}

		key := fmt.Sprintf("%s|%d", d.Channel, d.Address)
		if prev, exists := owner[key]; exists {
			return fmt.Errorf(
				"address collision: channel=%s address=%d used by devices %q and %q",
				d.Channel,
				d.Address,
				prev,
				d.ID,
			)
		}
		owner[key] = d.ID
	}

	return nil
}
