// internal/config/config.go
package config

type Config struct {
	Poller PollerConfig `yaml:"poller"`
}

type PollerConfig struct {
	Log     LogConfig     `yaml:"log"`
	Catalog string        `yaml:"catalog"` // optional register table file; embedded tables when empty
	Cache   CacheConfig   `yaml:"cache"`
	Metrics MetricsConfig `yaml:"metrics"`
	Output  OutputConfig  `yaml:"output"`

	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`

	Channels []ChannelConfig `yaml:"channels"`
	Devices  []DeviceConfig  `yaml:"devices"`
}

// ---- AMBIENT ----

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

type CacheConfig struct {
	FieldTTLMs int `yaml:"field_ttl_ms"`
	ProbeTTLMs int `yaml:"probe_ttl_ms"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables the endpoint
}

type OutputConfig struct {
	Path string `yaml:"path"` // "-" is stdout, empty disables the stream
}

// ---- CHANNEL ----

type ChannelConfig struct {
	ID      string `yaml:"id"`
	Driver  string `yaml:"driver"`  // rtu | tcp
	Address string `yaml:"address"` // serial device or host:port

	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"` // N | E | O
	StopBits int    `yaml:"stop_bits"`

	TimeoutMs     int  `yaml:"timeout_ms"`
	IdleTimeoutMs int  `yaml:"idle_timeout_ms"`
	DebugFrames   bool `yaml:"debug_frames"`

	RS485 RS485Config `yaml:"rs485"`
}

type RS485Config struct {
	Enabled              bool `yaml:"enabled"`
	DelayRtsBeforeSendMs int  `yaml:"delay_rts_before_send_ms"`
	DelayRtsAfterSendMs  int  `yaml:"delay_rts_after_send_ms"`
	RtsHighDuringSend    bool `yaml:"rts_high_during_send"`
	RtsHighAfterSend     bool `yaml:"rts_high_after_send"`
	RxDuringTx           bool `yaml:"rx_during_tx"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	ID      string     `yaml:"id"`
	Channel string     `yaml:"channel"`
	Address uint8      `yaml:"address"`
	Poll    PollConfig `yaml:"poll"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}
