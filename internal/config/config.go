package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// maxFrameRate bounds artnet.frame-rate so the render period stays positive.
const maxFrameRate = 1000

// Config is the service configuration.
type Config struct {
	Logger  LogConf     // Logger is the logger configuration.
	ArtNet  ArtNetConf  // ArtNet is the session configuration.
	MQTT    MQTTConf    // MQTT is the bridge configuration.
	Capture CaptureConf // Capture configures pcap recording and replay.
}

// LogConf configures the logger.
type LogConf struct {
	Level  string `toml:"log-level"`  // Level is the log level.
	Format string `toml:"log-format"` // Format is "text" or "json".
}

// ArtNetConf configures the Art-Net session.
type ArtNetConf struct {
	Role         string         `toml:"role"`          // Role is "controller" or "node".
	Bind         string         `toml:"bind"`          // Bind is the host address, empty for any.
	ShortName    string         `toml:"short-name"`    // ShortName is announced in poll replies.
	LongName     string         `toml:"long-name"`     // LongName is announced in poll replies.
	Port         uint16         `toml:"port"`          // Port is the UDP port.
	PollInterval duration       `toml:"poll-interval"` // PollInterval is the ArtPoll period of a controller.
	FrameRate    int            `toml:"frame-rate"`    // FrameRate is the render rate of universes.
	EventBuffer  int            `toml:"event-buffer"`  // EventBuffer is the received frame queue size.
	Universes    []UniverseConf `toml:"universe"`      // Universes are rendered by this session.
}

// UniverseConf is one rendered universe.
type UniverseConf struct {
	Number uint16 `toml:"number"` // Number is the 15-bit port-address.
	Size   int    `toml:"size"`   // Size is the channel count, 512 when 0.
}

// MQTTConf configures the MQTT bridge.
type MQTTConf struct {
	Enabled     bool   `toml:"enabled"`      // Enabled turns the bridge on.
	ClientID    string `toml:"clientID"`     // ClientID is the client name, generated when empty.
	Host        string `toml:"server"`       // Host is the MQTT server address.
	Port        string `toml:"port"`         // Port is the MQTT server port.
	User        string `toml:"user"`         // User is the login for the MQTT server.
	Password    string `toml:"password"`     // Password is the password for the MQTT server.
	Qos         byte   `toml:"qos"`          // Qos is the quality of service.
	TopicPrefix string `toml:"topic-prefix"` // TopicPrefix is prepended to every topic.

	RetryInterval duration `toml:"retry-interval"` // RetryInterval is the reconnect period.
	KeepAlive     duration `toml:"keep-alive"`
}

// CaptureConf configures pcap files.
type CaptureConf struct {
	Record string `toml:"record"` // Record is a pcap file receiving all session traffic.
	Replay string `toml:"replay"` // Replay is a pcap file to decode instead of binding.
}

// duration decodes TOML strings such as "5s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Default returns the configuration used for keys missing from the file.
func Default() Config {
	return Config{
		Logger: LogConf{Level: "info"},
		ArtNet: ArtNetConf{
			Role:         "controller",
			ShortName:    "artnetd",
			LongName:     "artnetd Art-Net service",
			Port:         6454,
			PollInterval: duration{5 * time.Second},
			FrameRate:    44,
			EventBuffer:  256,
		},
		MQTT: MQTTConf{
			Port:          "1883",
			TopicPrefix:   "artnet",
			RetryInterval: duration{5 * time.Second},
			KeepAlive:     duration{30 * time.Second},
		},
	}
}

// NewConfig reads and validates a TOML file.
func NewConfig(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return &cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return &cfg, err
	}
	return &cfg, nil
}

// Parse decodes TOML text over the defaults.
func Parse(data string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return &cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return &cfg, err
	}
	return &cfg, nil
}

// Validate rejects settings the session cannot run with.
func (c *Config) Validate() error {
	switch c.ArtNet.Role {
	case "controller", "node":
	default:
		return fmt.Errorf("artnet.role: unknown role %q", c.ArtNet.Role)
	}
	if c.ArtNet.FrameRate < 0 {
		return fmt.Errorf("artnet.frame-rate: must not be negative, got %d", c.ArtNet.FrameRate)
	}
	if c.ArtNet.FrameRate > maxFrameRate {
		return fmt.Errorf("artnet.frame-rate: must be at most %d, got %d", maxFrameRate, c.ArtNet.FrameRate)
	}

	seen := make(map[uint16]bool, len(c.ArtNet.Universes))
	for _, u := range c.ArtNet.Universes {
		if u.Number > 0x7fff {
			return fmt.Errorf("artnet.universe %d: port-address is 15 bits", u.Number)
		}
		if u.Size < 0 || u.Size > 512 {
			return fmt.Errorf("artnet.universe %d: size %d outside 1..512", u.Number, u.Size)
		}
		if seen[u.Number] {
			return fmt.Errorf("artnet.universe %d: duplicate", u.Number)
		}
		seen[u.Number] = true
	}
	return nil
}

// PollEvery returns the configured poll interval.
func (c ArtNetConf) PollEvery() time.Duration {
	return c.PollInterval.Duration
}
