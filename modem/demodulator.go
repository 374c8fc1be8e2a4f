package modem

import (
	"context"
	"time"

	"github.com/shermpay/sofi/codec"
	"github.com/shermpay/sofi/ring"
)

type demodState int

const (
	demodListen demodState = iota
	demodGathering
)

// Sink receives completed raw messages recovered from the symbol stream.
// endpoint.Handle wires this to the bounded queue (component B).
type Sink interface {
	Enqueue(codec.RawMessage) (dropped bool)
}

// Recorder optionally captures every classified window for offline
// analysis (SPEC_FULL.md supplement #3, --capture-dir). A nil Recorder
// disables capture entirely with no overhead beyond a nil check.
type Recorder interface {
	Record(window []float32, symbol int, strength float64)
}

// Demodulator is the state machine of spec.md 4.F, run as its own
// cooperative worker loop (spec.md 5, context #2): it pulls samples out of
// the sample ring (component A) in non-overlapping windows, classifies each
// window via FrontEnd, and frames raw messages on runs of tone bounded by
// silence. This is the teacher's demod_state.go idea (a per-channel
// demodulator_state_s driving HDLC bit/flag recovery) adapted from
// bit/flag-oriented AX.25 framing to spec.md's simpler "silence delimits a
// message" framing.
type Demodulator struct {
	cfg   Config
	front *FrontEnd
	samps *ring.Ring[float32]
	sink  Sink

	state   demodState
	current []int
	maxLen  int

	listenWindow []float32
	gatherWindow []float32

	recorder Recorder
}

// NewDemodulator builds a demodulator reading samples from samps and
// publishing completed messages to sink.
func NewDemodulator(cfg Config, samps *ring.Ring[float32], sink Sink) *Demodulator {
	return &Demodulator{
		cfg:          cfg,
		front:        NewFrontEnd(cfg),
		samps:        samps,
		sink:         sink,
		state:        demodListen,
		maxLen:       codec.MaxSymbols(cfg.MaxPacketLength, cfg.CRC, cfg.SymbolWidth),
		listenWindow: make([]float32, cfg.ListenWindowSize()),
		gatherWindow: make([]float32, cfg.GatherWindowSize()),
	}
}

// SetRecorder attaches (or detaches, with nil) a window capture sink.
func (d *Demodulator) SetRecorder(r Recorder) {
	d.recorder = r
}

// Run loops until ctx is cancelled, consuming windows as they become
// available and sleeping ~windowSize/sampleRate between polls when the
// sample ring is short, per spec.md 5.
func (d *Demodulator) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if d.step() {
			continue
		}
		sleep := d.currentWindowDuration()
		t := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// step consumes exactly one window if available, reports whether it did.
func (d *Demodulator) step() bool {
	window := d.listenWindow
	if d.state == demodGathering {
		window = d.gatherWindow
	}

	if d.samps.ReadAvailable() < len(window) {
		return false
	}
	n := d.samps.Read(window)
	if n < len(window) {
		return false
	}

	symbol, strength := d.front.Detect(window)
	if d.recorder != nil {
		d.recorder.Record(window, symbol, strength)
	}
	d.onSymbol(symbol)
	return true
}

func (d *Demodulator) onSymbol(symbol int) {
	switch d.state {
	case demodListen:
		if symbol == SilenceSymbol {
			return
		}
		// The listen window covers only the onset of this symbol; the
		// gather window that follows spans the rest of it and classifies
		// it, so the detection starts a message without appending.
		d.current = d.current[:0]
		d.state = demodGathering

	case demodGathering:
		if symbol == SilenceSymbol {
			msg := codec.RawMessage{Symbols: append([]int(nil), d.current...)}
			d.sink.Enqueue(msg)
			d.current = d.current[:0]
			d.state = demodListen
			return
		}
		if len(d.current) < d.maxLen {
			d.current = append(d.current, symbol)
		}
		// Excess symbols beyond maxLen are dropped silently (spec.md 4.F).
	}
}

func (d *Demodulator) currentWindowDuration() time.Duration {
	n := len(d.listenWindow)
	if d.state == demodGathering {
		n = len(d.gatherWindow)
	}
	secs := float64(n) / float64(d.cfg.SampleRate)
	return time.Duration(secs * float64(time.Second))
}
