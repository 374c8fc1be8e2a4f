// Package ptt implements the optional hardware keying line described in
// SPEC_FULL.md's DOMAIN STACK: a GPIO output asserted while the modulator is
// transmitting, for deployments that key an external relay, power amp, or
// mute circuit rather than relying solely on the half-duplex software gate
// of spec.md 4.G. Grounded on the teacher's src/ptt.go (which keys a radio
// transmitter via hamlib/GPIO/serial control lines), narrowed here to a
// single GPIO line via github.com/warthog618/go-gpiocdev, the dependency the
// teacher's go.mod declares but never imports.
package ptt

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Line keys a single GPIO output line high while transmitting and low
// otherwise.
type Line struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	// activeLow inverts the asserted level, for keying circuits that pull
	// the PTT line to ground to transmit.
	activeLow bool
}

// Open requests an output line on the named gpiochip device (e.g.
// "gpiochip0") and offset, initialized de-asserted.
func Open(chipName string, offset int, activeLow bool) (*Line, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("ptt: open chip %s: %w", chipName, err)
	}

	initial := 0
	if activeLow {
		initial = 1
	}
	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(initial))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("ptt: request line %d on %s: %w", offset, chipName, err)
	}

	return &Line{chip: chip, line: line, activeLow: activeLow}, nil
}

// SetKeyed asserts or de-asserts the keying line. Called from the audio
// bridge's callback only when a real PTT line is configured; see
// audio.Bridge's comment on why this is acceptable despite running on the
// realtime thread (transitions are rare, once per packet).
func (l *Line) SetKeyed(on bool) error {
	level := 0
	if on {
		level = 1
	}
	if l.activeLow {
		level = 1 - level
	}
	return l.line.SetValue(level)
}

// Close releases the GPIO line and chip handle.
func (l *Line) Close() error {
	if l.line != nil {
		l.line.Close()
	}
	if l.chip != nil {
		return l.chip.Close()
	}
	return nil
}
