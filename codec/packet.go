// Package codec implements the frame codec (component C): packet
// serialization with an optional CRC-32 trailer, and the bit-packing between
// bytes and fixed-width symbols that the modulator/demodulator operate on.
//
// The length-prefixed-frame-plus-optional-checksum shape and the
// "short/corrupt frames degrade gracefully instead of erroring" posture are
// grounded on the teacher's AX.25/IL2P framing (src/ax25_pad.go,
// src/il2p_crc.go); the actual checksum is the CRC-32 the spec calls for
// (reflected IEEE polynomial), which is hash/crc32 from the standard library
// applied bit-for-bit rather than the teacher's CRC-16-CCITT (a different
// algorithm for a different protocol).
package codec

import (
	"errors"
	"hash/crc32"
)

// PayloadMax is the default maximum payload length; len is a single byte, so
// this can never exceed 255 in any configuration.
const PayloadMax = 255

// ErrCorrupt is returned by Deserialize when CRC validation fails.
var ErrCorrupt = errors.New("codec: packet failed CRC validation")

// Packet is the data-model packet: a length-prefixed payload.
type Packet struct {
	Payload []byte
}

// Len returns the wire length byte value for this packet.
func (p Packet) Len() byte { return byte(len(p.Payload)) }

// Serialize produces the on-wire form: [len, payload..., crc32?]. The CRC,
// when withCRC is true, is computed over [len || payload] using the
// reflected IEEE polynomial 0xEDB88320 with init/final XOR 0xFFFFFFFF (i.e.
// the standard crc32.IEEE table), written little-endian.
func Serialize(p Packet, withCRC bool) []byte {
	n := len(p.Payload)
	if n > PayloadMax {
		n = PayloadMax
		p.Payload = p.Payload[:n]
	}
	out := make([]byte, 0, 1+n+4)
	out = append(out, byte(n))
	out = append(out, p.Payload...)
	if withCRC {
		sum := crc32.ChecksumIEEE(out)
		out = append(out, byte(sum), byte(sum>>8), byte(sum>>16), byte(sum>>24))
	}
	return out
}

// Deserialize parses a wire frame back into a Packet.
//
// Per spec.md 4.C: if fewer bytes than 1+len are present, the payload is
// zero-padded rather than rejected (the demodulator may have dropped trailing
// symbols). If withCRC is true, the 4-byte CRC must follow the nominal
// payload: a missing or truncated trailer, or a CRC mismatch, returns
// ErrCorrupt, so zero-padding applies only to frames without a CRC. A frame
// too short to even contain the length byte is rejected.
func Deserialize(frame []byte, withCRC bool) (Packet, error) {
	if len(frame) < 1 {
		return Packet{}, errors.New("codec: empty frame")
	}
	length := int(frame[0])
	payload := make([]byte, length)
	available := frame[1:]
	if len(available) > length {
		available = available[:length]
	}
	copy(payload, available) // short reads leave trailing bytes zero

	if withCRC {
		rest := frame[1:]
		if len(rest) < length+4 {
			// No complete trailer after the declared payload: either the
			// frame was truncated or the length byte itself is corrupt.
			// Neither can be verified.
			return Packet{}, ErrCorrupt
		}
		crcBytes := rest[length : length+4]
		want := uint32(crcBytes[0]) | uint32(crcBytes[1])<<8 | uint32(crcBytes[2])<<16 | uint32(crcBytes[3])<<24
		got := crc32.ChecksumIEEE(frame[:1+length])
		if got != want {
			return Packet{}, ErrCorrupt
		}
	}

	return Packet{Payload: payload}, nil
}
