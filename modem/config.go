// Package modem implements the modulator (4.D), the demodulator front-end
// (4.E) and its state machine (4.F): the M-ary FSK waveform generator and
// the sliding-window tone detector that recovers it, grounded on the
// teacher's direct-digital-synthesis tone generator (src/gen_tone.go) and
// quadrature AFSK demodulator (src/demod_afsk.go), reworked from fixed
// 2-tone AFSK and a 32-bit phase-accumulator/sine-table into floating point
// phase and an arbitrary-size frequency table, since spec.md calls for
// configurable M-ary symbol widths rather than a fixed 2-FSK channel.
package modem

import (
	"errors"
	"math"

	"github.com/shermpay/sofi/codec"
)

// SilenceSymbol is the front-end's sentinel meaning "no tone detected".
const SilenceSymbol = -1

// DefaultSilenceThreshold is T_sil from spec.md 4.E: a candidate symbol's
// correlation strength must exceed this (against unit-amplitude input) to be
// reported rather than silence. Kept fixed by default so the deterministic
// test scenarios in spec.md 8 stay deterministic; see endpoint's
// --adaptive-squelch for the optional alternative.
const DefaultSilenceThreshold = 100.0

// Config is the immutable physical-layer configuration consumed by the
// modulator and demodulator. Built once by the endpoint package and never
// mutated afterward, per spec.md 3's "Configuration (immutable after init)".
type Config struct {
	SampleRate           int
	Baud                 float64
	SymbolWidth          codec.Width
	Frequencies          []float64 // len must be SymbolWidth.Symbols()
	RecvWindowFactor     float64
	InterpacketGapFactor float64
	SilenceThreshold     float64
	CRC                  bool
	MaxPacketLength      int
	AdaptiveSquelch      bool
}

// Validate checks the invariants spec.md 3 requires of a configuration.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("modem: sample_rate must be positive")
	}
	if c.Baud <= 0 {
		return errors.New("modem: baud must be positive")
	}
	if !c.SymbolWidth.Valid() {
		return errors.New("modem: symbol_width must be one of 1, 2, 4, 8")
	}
	if len(c.Frequencies) != c.SymbolWidth.Symbols() {
		return errors.New("modem: frequency table size must equal 2^symbol_width")
	}
	for _, f := range c.Frequencies {
		if f <= 0 {
			return errors.New("modem: symbol frequencies must be positive")
		}
	}
	if c.RecvWindowFactor <= 0 {
		return errors.New("modem: recv_window_factor must be positive")
	}
	if c.InterpacketGapFactor < 1 {
		return errors.New("modem: interpacket_gap_factor must be >= 1")
	}
	if c.MaxPacketLength <= 0 || c.MaxPacketLength > codec.PayloadMax {
		return errors.New("modem: max_packet_length must be in (0, 255]")
	}
	return nil
}

// SamplesPerSymbol returns round(sample_rate/baud), the modulator's
// frame_counter threshold for advancing to the next symbol.
func (c Config) SamplesPerSymbol() int {
	return int(math.Round(float64(c.SampleRate) / c.Baud))
}

// GatherWindowSize returns the demodulator's DEMODULATE-state window length
// in samples: one symbol duration.
func (c Config) GatherWindowSize() int {
	return int(math.Round(float64(c.SampleRate) / c.Baud))
}

// ListenWindowSize returns the demodulator's LISTEN-state window length in
// samples: recv_window_factor/baud seconds.
func (c Config) ListenWindowSize() int {
	return int(math.Round(c.RecvWindowFactor * float64(c.SampleRate) / c.Baud))
}

// InterpacketGapSamples returns round(interpacket_gap_factor * sample_rate /
// baud), the modulator's GAP-state frame_counter threshold.
func (c Config) InterpacketGapSamples() int {
	return int(math.Round(c.InterpacketGapFactor * float64(c.SampleRate) / c.Baud))
}

// silenceThreshold returns the configured threshold, or the documented
// default if unset (zero value).
func (c Config) silenceThreshold() float64 {
	if c.SilenceThreshold > 0 {
		return c.SilenceThreshold
	}
	return DefaultSilenceThreshold
}
