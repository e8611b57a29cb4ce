// internal/config/normalize.go
package config

import "strings"

// Defaults applied by Normalize.
const (
	DefaultBaudRate    = 9600
	DefaultDataBits    = 8
	DefaultParity      = "N"
	DefaultStopBits    = 1
	DefaultTimeoutMs   = 1000
	DefaultIntervalMs  = 1000
	DefaultFieldTTLMs  = 1000
	DefaultProbeTTLMs  = 120000
	DefaultMaxFailures = 3
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultDriver      = "rtu"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	p := &cfg.Poller

	p.Log.Level = orDefault(strings.ToLower(p.Log.Level), DefaultLogLevel)
	p.Log.Format = orDefault(strings.ToLower(p.Log.Format), DefaultLogFormat)

	if p.Cache.FieldTTLMs == 0 {
		p.Cache.FieldTTLMs = DefaultFieldTTLMs
	}
	if p.Cache.ProbeTTLMs == 0 {
		p.Cache.ProbeTTLMs = DefaultProbeTTLMs
	}
	if p.MaxConsecutiveFailures == 0 {
		p.MaxConsecutiveFailures = DefaultMaxFailures
	}

	for i := range p.Channels {
		c := &p.Channels[i]

		c.Driver = orDefault(strings.ToLower(c.Driver), DefaultDriver)
		if c.TimeoutMs == 0 {
			c.TimeoutMs = DefaultTimeoutMs
		}

		// Serial line settings mean nothing on tcp.
		if c.Driver != "rtu" {
			continue
		}
		if c.BaudRate == 0 {
			c.BaudRate = DefaultBaudRate
		}
		if c.DataBits == 0 {
			c.DataBits = DefaultDataBits
		}
		c.Parity = orDefault(strings.ToUpper(c.Parity), DefaultParity)
		if c.StopBits == 0 {
			c.StopBits = DefaultStopBits
		}
	}

	for i := range p.Devices {
		if p.Devices[i].Poll.IntervalMs == 0 {
			p.Devices[i].Poll.IntervalMs = DefaultIntervalMs
		}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
