package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var allWidths = []Width{Width1, Width2, Width4, Width8}

// TestSymbolRoundTripAllWidths is Testable Property 1.
func TestSymbolRoundTripAllWidths(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := rapid.SampledFrom(allWidths).Draw(t, "width")
		n := rapid.IntRange(0, 255).Draw(t, "n")
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(rapid.IntRange(0, 255).Draw(t, "byte"))
		}
		got := SymbolsToBytes(BytesToSymbols(b, w), w)
		require.Equal(t, b, got)
	})
}

func TestBytesToSymbolsS1(t *testing.T) {
	// From spec.md scenario S1: W=1, serialized [0x02, 'h', 'i'].
	got := BytesToSymbols([]byte{0x02, 'h', 'i'}, Width1)
	want := []int{
		0, 1, 0, 0, 0, 0, 0, 0, // 0x02
		0, 0, 0, 1, 0, 1, 1, 0, // 'h' = 0x68
		1, 0, 0, 1, 0, 1, 1, 0, // 'i' = 0x69
	}
	assert.Equal(t, want, got)
}

func TestBytesToSymbolsS2(t *testing.T) {
	// W=2, payload "A" (0x41): len=0x01 -> 1,0,0,0; 'A'=0x41 -> 1,0,0,1.
	got := BytesToSymbols([]byte{0x01, 0x41}, Width2)
	want := []int{1, 0, 0, 0, 1, 0, 0, 1}
	assert.Equal(t, want, got)
}

// TestCRCRoundTrip is Testable Property 2.
func TestCRCRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 255).Draw(t, "n")
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(rapid.IntRange(0, 255).Draw(t, "byte"))
		}
		p := Packet{Payload: payload}
		frame := Serialize(p, true)

		got, err := Deserialize(frame, true)
		require.NoError(t, err)
		require.Equal(t, p.Payload, got.Payload)

		bit := rapid.IntRange(0, len(frame)*8-1).Draw(t, "flip")
		flipped := append([]byte(nil), frame...)
		flipped[bit/8] ^= 1 << uint(bit%8)

		_, err = Deserialize(flipped, true)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestZeroLengthPacket(t *testing.T) {
	// Scenario S3: zero-length packet used as end-of-stream marker.
	frame := Serialize(Packet{}, true)
	assert.Equal(t, byte(0x00), frame[0])
	got, err := Deserialize(frame, true)
	require.NoError(t, err)
	assert.Empty(t, got.Payload)
}

func TestDeserializeShortFrameZeroPads(t *testing.T) {
	// Declared length 5 but only 2 payload bytes present: zero-padded, not
	// rejected (legacy "emit what we have" behavior).
	got, err := Deserialize([]byte{5, 'h', 'i'}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{'h', 'i', 0, 0, 0}, got.Payload)
}

func TestFromSymbolsDropsBeyondMaxPacketLength(t *testing.T) {
	payload := make([]byte, 10)
	for i := range payload {
		payload[i] = byte('a' + i)
	}
	raw := ToRawMessage(Packet{Payload: payload}, false, Width1)
	got, err := FromSymbols(raw.Symbols, false, Width1, 4)
	require.NoError(t, err)
	assert.Equal(t, payload[:4], got.Payload)
}

func TestMaxSymbols(t *testing.T) {
	// (1 + 255 + 4) bytes * 8 bits / width.
	assert.Equal(t, (1+255+4)*8, MaxSymbols(255, true, Width1))
	assert.Equal(t, (1+255+4)*8/8, MaxSymbols(255, true, Width8))
}
