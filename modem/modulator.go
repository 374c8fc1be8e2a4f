package modem

import (
	"math"

	"github.com/shermpay/sofi/codec"
	"github.com/shermpay/sofi/ring"
)

type modState int

const (
	stateIdle modState = iota
	stateTransmitting
	stateGap
)

// Modulator is the state machine of spec.md 4.D. It is driven once per
// audio-callback invocation via Process, which must never block, allocate on
// its hot path, or take a lock — it is called directly from the realtime
// audio thread. It owns phase, frame_counter and symbol_index exactly as
// the teacher's gen_tone.go owns a phase accumulator per channel, except
// here phase is a float64 radian value instead of a 32-bit fixed-point tick
// counter indexing a sine table, since spec.md calls for configurable
// non-power-of-two frequency tables rather than a lookup table tuned for
// two fixed AFSK tones.
type Modulator struct {
	cfg Config

	msgs *ring.Ring[codec.RawMessage]

	state        modState
	phase        float64
	frameCounter int
	symbolIndex  int
	current      codec.RawMessage

	samplesPerSymbol int
	gapSamples       int
}

// NewModulator builds a modulator reading whole raw messages from msgs.
func NewModulator(cfg Config, msgs *ring.Ring[codec.RawMessage]) *Modulator {
	return &Modulator{
		cfg:              cfg,
		msgs:             msgs,
		state:            stateIdle,
		samplesPerSymbol: cfg.SamplesPerSymbol(),
		gapSamples:       cfg.InterpacketGapSamples(),
	}
}

// Idle reports whether the modulator is in IDLE, neither transmitting a burst
// nor emitting the inter-packet gap; the audio bridge uses this for the half-duplex receive gate of 4.G (only
// copy input samples into the receiver ring while the modulator is IDLE).
func (m *Modulator) Idle() bool {
	return m.state == stateIdle
}

// Process fills out with exactly len(out) samples, advancing the state
// machine one sample at a time. Safe to call from the realtime audio
// callback: it never allocates (msg.Symbols is read, not copied, from the
// ring's zero-copy Regions view) nor blocks.
func (m *Modulator) Process(out []float32) {
	for i := range out {
		out[i] = m.nextSample()
	}
}

func (m *Modulator) nextSample() float32 {
	switch m.state {
	case stateIdle:
		if m.take() {
			m.state = stateTransmitting
			m.frameCounter = 0
			m.symbolIndex = 0
			// Fall through to emit the first sample of the burst using
			// the already-latched first symbol, so there is no
			// first-sample glitch (spec.md 4.D).
			return m.emitTransmitting()
		}
		return 0.0

	case stateTransmitting:
		return m.emitTransmitting()

	case stateGap:
		m.frameCounter++
		if m.frameCounter >= m.gapSamples {
			m.releaseCurrent()
			m.state = stateIdle
		}
		return 0.0
	}
	return 0.0
}

// take tries to pull one whole message out of the ring without copying. It
// returns false (emit silence) if none is available.
func (m *Modulator) take() bool {
	p1, n1, p2, n2 := m.msgs.Regions(1)
	if n1+n2 == 0 {
		return false
	}
	if n1 > 0 {
		m.current = p1[0]
	} else {
		m.current = p2[0]
	}
	return true
}

func (m *Modulator) releaseCurrent() {
	m.msgs.AdvanceRead(1)
	m.current = codec.RawMessage{}
}

func (m *Modulator) emitTransmitting() float32 {
	if m.symbolIndex >= len(m.current.Symbols) {
		m.state = stateGap
		m.frameCounter = 0
		return 0.0
	}

	symbol := m.current.Symbols[m.symbolIndex]
	freq := m.cfg.Frequencies[symbol]

	out := float32(math.Sin(m.phase))
	m.phase += 2 * math.Pi * freq / float64(m.cfg.SampleRate)
	for m.phase >= 2*math.Pi {
		m.phase -= 2 * math.Pi
	}

	m.frameCounter++
	if m.frameCounter >= m.samplesPerSymbol {
		m.frameCounter = 0
		m.symbolIndex++
	}

	return out
}
