// Package endpoint implements component H, the lifecycle and configuration
// layer: building every other component from one immutable configuration
// record, starting and stopping the audio stream and demodulator worker,
// and draining the sender on shutdown. Grounded on the teacher's
// src/config.go (which builds a static audio_s from parsed directives
// before anything else is constructed) and src/direwolf.go (overall startup
// sequencing), narrowed to spec.md's much smaller configuration surface.
package endpoint

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shermpay/sofi/codec"
	"github.com/shermpay/sofi/modem"
)

// Config is spec.md 3's configuration record, plus the SPEC_FULL.md
// supplemental fields (PTT, capture, stats, adaptive squelch). It is built
// once and never mutated after being handed to Init.
type Config struct {
	SampleRate           int
	Baud                 float64
	Frequencies          []float64
	RecvWindowFactor     float64
	InterpacketGapFactor float64
	Sender               bool
	Receiver             bool
	DebugLevel           int

	MaxPacketLength int  // -l/--max-length: max bytes per outgoing packet
	KeepOpen        bool // -k/--keep-open
	CRC             bool

	// Supplemental, all optional and off by default.
	PTTChip         string
	PTTLine         int
	PTTActiveLow    bool
	CaptureDir      string
	StatsInterval   time.Duration
	AdaptiveSquelch bool
}

// Default returns the baseline configuration matching the teacher's
// direwolf.conf defaults in spirit (a single binary-FSK channel tuned for an
// audible, speaker/mic-reachable pair of tones).
func Default() Config {
	return Config{
		SampleRate:           48000,
		Baud:                 100,
		Frequencies:          []float64{2200, 1200},
		RecvWindowFactor:     0.2,
		InterpacketGapFactor: 2,
		Sender:               true,
		Receiver:             true,
		DebugLevel:           0,
		MaxPacketLength:      255,
		CRC:                  true,
	}
}

// LoadYAML overlays fields present in the YAML file at path onto cfg,
// fields absent from the file are left untouched. Grounded on the teacher's
// src/deviceid.go use of yaml.v3 for persisted structured state, generalized
// here to modem configuration (-c/--config).
func LoadYAML(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("endpoint: read config %s: %w", path, err)
	}

	var overlay yamlConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("endpoint: parse config %s: %w", path, err)
	}
	overlay.applyTo(&cfg)
	return cfg, nil
}

// yamlConfig mirrors Config but with pointer/zero-value fields so we can
// tell "absent" from "explicitly zero" for the overlay semantics above.
type yamlConfig struct {
	SampleRate           *int       `yaml:"sample_rate"`
	Baud                 *float64   `yaml:"baud"`
	Frequencies          []float64  `yaml:"frequencies"`
	RecvWindowFactor     *float64   `yaml:"recv_window_factor"`
	InterpacketGapFactor *float64   `yaml:"interpacket_gap_factor"`
	Sender               *bool      `yaml:"sender"`
	Receiver             *bool      `yaml:"receiver"`
	DebugLevel           *int       `yaml:"debug_level"`
	MaxPacketLength      *int       `yaml:"max_packet_length"`
	KeepOpen             *bool      `yaml:"keep_open"`
	CRC                  *bool      `yaml:"crc"`
	PTTChip              *string    `yaml:"ptt_chip"`
	PTTLine              *int       `yaml:"ptt_line"`
	PTTActiveLow         *bool      `yaml:"ptt_active_low"`
	CaptureDir           *string    `yaml:"capture_dir"`
	StatsIntervalSeconds *float64   `yaml:"stats_interval_seconds"`
	AdaptiveSquelch      *bool      `yaml:"adaptive_squelch"`
}

func (o yamlConfig) applyTo(c *Config) {
	if o.SampleRate != nil {
		c.SampleRate = *o.SampleRate
	}
	if o.Baud != nil {
		c.Baud = *o.Baud
	}
	if len(o.Frequencies) > 0 {
		c.Frequencies = o.Frequencies
	}
	if o.RecvWindowFactor != nil {
		c.RecvWindowFactor = *o.RecvWindowFactor
	}
	if o.InterpacketGapFactor != nil {
		c.InterpacketGapFactor = *o.InterpacketGapFactor
	}
	if o.Sender != nil {
		c.Sender = *o.Sender
	}
	if o.Receiver != nil {
		c.Receiver = *o.Receiver
	}
	if o.DebugLevel != nil {
		c.DebugLevel = *o.DebugLevel
	}
	if o.MaxPacketLength != nil {
		c.MaxPacketLength = *o.MaxPacketLength
	}
	if o.KeepOpen != nil {
		c.KeepOpen = *o.KeepOpen
	}
	if o.CRC != nil {
		c.CRC = *o.CRC
	}
	if o.PTTChip != nil {
		c.PTTChip = *o.PTTChip
	}
	if o.PTTLine != nil {
		c.PTTLine = *o.PTTLine
	}
	if o.PTTActiveLow != nil {
		c.PTTActiveLow = *o.PTTActiveLow
	}
	if o.CaptureDir != nil {
		c.CaptureDir = *o.CaptureDir
	}
	if o.StatsIntervalSeconds != nil {
		c.StatsInterval = time.Duration(*o.StatsIntervalSeconds * float64(time.Second))
	}
	if o.AdaptiveSquelch != nil {
		c.AdaptiveSquelch = *o.AdaptiveSquelch
	}
}

// SymbolWidth returns the symbol width implied by the frequency table size,
// or an error if that count isn't one of the four spec.md 6 allows.
func (c Config) SymbolWidth() (codec.Width, error) {
	switch len(c.Frequencies) {
	case 2:
		return codec.Width1, nil
	case 4:
		return codec.Width2, nil
	case 16:
		return codec.Width4, nil
	case 256:
		return codec.Width8, nil
	default:
		return 0, fmt.Errorf("endpoint: frequency count must be 2, 4, 16, or 256, got %d", len(c.Frequencies))
	}
}

// Validate checks the configuration as a whole, including cross-field rules
// CLI parsing can't express on its own (e.g. "at least one direction").
func (c Config) Validate() error {
	if !c.Sender && !c.Receiver {
		return fmt.Errorf("endpoint: at least one of sender or receiver must be enabled")
	}
	if c.Baud < 1 {
		return fmt.Errorf("endpoint: baud must be >= 1")
	}
	if c.InterpacketGapFactor < 1 {
		return fmt.Errorf("endpoint: interpacket_gap_factor must be >= 1")
	}
	if c.MaxPacketLength < 1 || c.MaxPacketLength > codec.PayloadMax {
		return fmt.Errorf("endpoint: max_packet_length must be in [1, 255]")
	}
	if _, err := c.SymbolWidth(); err != nil {
		return err
	}
	return nil
}

// modemConfig projects the endpoint config down to modem.Config.
func (c Config) modemConfig() modem.Config {
	w, _ := c.SymbolWidth() // validated by Validate before Init is reached
	return modem.Config{
		SampleRate:           c.SampleRate,
		Baud:                 c.Baud,
		SymbolWidth:          w,
		Frequencies:          c.Frequencies,
		RecvWindowFactor:     c.RecvWindowFactor,
		InterpacketGapFactor: c.InterpacketGapFactor,
		CRC:                  c.CRC,
		MaxPacketLength:      c.MaxPacketLength,
		AdaptiveSquelch:      c.AdaptiveSquelch,
	}
}
