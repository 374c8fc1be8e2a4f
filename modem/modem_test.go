package modem

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shermpay/sofi/codec"
	"github.com/shermpay/sofi/ring"
)

func testConfig() Config {
	return Config{
		SampleRate:           48000,
		Baud:                 1000,
		SymbolWidth:          codec.Width1,
		Frequencies:          []float64{12000, 6000},
		RecvWindowFactor:     0.2,
		InterpacketGapFactor: 2,
		MaxPacketLength:      255,
		CRC:                  false,
	}
}

// TestModulatorIdempotentUnderSilence is Testable Property 4.
func TestModulatorIdempotentUnderSilence(t *testing.T) {
	cfg := testConfig()
	msgs := ring.New[codec.RawMessage](2)
	mod := NewModulator(cfg, msgs)

	out := make([]float32, 500)
	mod.Process(out)
	for _, v := range out {
		assert.Equal(t, float32(0), v)
	}
	assert.True(t, mod.Idle())
}

// TestPhaseContinuity is Testable Property 5: for a single-symbol message,
// consecutive samples satisfy |phase[i+1]-phase[i]-2*pi*f/sr| < 1e-5 (mod 2pi).
func TestPhaseContinuity(t *testing.T) {
	cfg := testConfig()
	msgs := ring.New[codec.RawMessage](2)
	mod := NewModulator(cfg, msgs)

	freq := cfg.Frequencies[1]
	msgs.Write([]codec.RawMessage{{Symbols: []int{1}}})

	n := cfg.SamplesPerSymbol()
	out := make([]float32, n)
	mod.Process(out)

	// Phase isn't directly observable from the output samples alone
	// (asin() is ambiguous across quadrants), so verify the generator
	// directly: every sample must equal sin() of a steadily advancing
	// phase, which is exactly the continuity property.
	expectedStep := 2 * math.Pi * freq / float64(cfg.SampleRate)
	phase := 0.0
	for i := 0; i < n; i++ {
		want := math.Sin(phase)
		assert.InDelta(t, want, float64(out[i]), 1e-6)
		phase += expectedStep
		for phase >= 2*math.Pi {
			phase -= 2 * math.Pi
		}
	}
}

func TestModulatorScenarioS1(t *testing.T) {
	cfg := Config{
		SampleRate:           48000,
		Baud:                 100,
		SymbolWidth:          codec.Width1,
		Frequencies:          []float64{2200, 1200},
		RecvWindowFactor:     0.2,
		InterpacketGapFactor: 2,
		MaxPacketLength:      255,
	}
	raw := codec.ToRawMessage(codec.Packet{Payload: []byte("hi")}, false, codec.Width1)
	assert.Len(t, raw.Symbols, 24)

	msgs := ring.New[codec.RawMessage](2)
	msgs.Write([]codec.RawMessage{raw})
	mod := NewModulator(cfg, msgs)

	samplesPerSymbol := cfg.SamplesPerSymbol()
	wantLen := 24 * samplesPerSymbol
	out := make([]float32, wantLen+1000)
	mod.Process(out)

	// Find where the waveform returns to silence (GAP state): everything
	// beyond the burst should read close to zero relative to the peak.
	nonZero := 0
	for i := 0; i < wantLen; i++ {
		if out[i] != 0 {
			nonZero++
		}
	}
	assert.InDelta(t, wantLen, nonZero, 1)
}

// TestLoopbackEndToEnd is Testable Property 6 (noiseless case): piping
// modulator output directly into the demodulator's sample ring recovers the
// packet exactly.
func TestLoopbackEndToEnd(t *testing.T) {
	cfg := Config{
		SampleRate:           192000,
		Baud:                 1000,
		SymbolWidth:          codec.Width1,
		Frequencies:          []float64{12000, 6000},
		RecvWindowFactor:     0.1,
		InterpacketGapFactor: 2,
		MaxPacketLength:      255,
		CRC:                  true,
	}

	payload := make([]byte, 64)
	rng := rand.New(rand.NewSource(1))
	rng.Read(payload)
	pkt := codec.Packet{Payload: payload}
	raw := codec.ToRawMessage(pkt, cfg.CRC, cfg.SymbolWidth)

	msgs := ring.New[codec.RawMessage](2)
	msgs.Write([]codec.RawMessage{raw})
	mod := NewModulator(cfg, msgs)

	samplesPerSymbol := cfg.SamplesPerSymbol()
	gapSamples := cfg.InterpacketGapSamples()
	total := len(raw.Symbols)*samplesPerSymbol + gapSamples + 2000
	samples := make([]float32, total)
	mod.Process(samples)

	samps := ring.New[float32](1 << 20)
	samps.Write(samples)

	sink := &collectingSink{}
	demod := NewDemodulator(cfg, samps, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for len(sink.msgs) == 0 && ctx.Err() == nil {
		demod.step()
	}

	require.Len(t, sink.msgs, 1)
	got, err := codec.FromSymbols(sink.msgs[0].Symbols, cfg.CRC, cfg.SymbolWidth, cfg.MaxPacketLength)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Payload)
}

type collectingSink struct {
	msgs []codec.RawMessage
}

func (s *collectingSink) Enqueue(m codec.RawMessage) bool {
	s.msgs = append(s.msgs, m)
	return false
}
