package idaburst

import (
	"testing"

	"github.com/alphafox02/iridium-sniffer/internal/demod"
	"github.com/stretchr/testify/assert"
)

func bytesToBits(data []byte) []byte {
	bits := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>uint(i))&1)
		}
	}
	return bits
}

func TestCRCCCITTFalseKnownVector(t *testing.T) {
	// CRC-16/CCITT-FALSE("123456789") == 0x29B1, the standard check
	// value for this variant (poly 0x1021, init 0xFFFF).
	got := crcCCITTFalse(bytesToBits([]byte("123456789")))
	assert.Equal(t, uint16(0x29B1), got)
}

func TestCRCInputBitsLayout(t *testing.T) {
	stream := make([]byte, 200)
	for i := range stream {
		stream[i] = byte(i % 2)
	}
	bits := crcInputBits(stream)
	assert.Equal(t, 20+12+(len(stream)-20-4), len(bits))
	assert.Equal(t, stream[:20], bits[:20])
	for _, b := range bits[20:32] {
		assert.Equal(t, byte(0), b)
	}
	assert.Equal(t, stream[20:len(stream)-4], bits[32:])
}

func TestBitsToUint16(t *testing.T) {
	bits := []byte{1, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	assert.Equal(t, uint16(0xA001), bitsToUint16(bits))
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	frame := demod.Frame{Bits: make([]byte, 10), Direction: demod.DirDownlink}
	_, ok := Decode(BuildTables(), frame)
	assert.False(t, ok)
}

func TestDecodeRejectsUnknownDirection(t *testing.T) {
	frame := demod.Frame{Bits: make([]byte, 24+46+124), Direction: demod.DirUnknown}
	_, ok := Decode(BuildTables(), frame)
	assert.False(t, ok)
}
