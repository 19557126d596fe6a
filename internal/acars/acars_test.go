package acars

import (
	"testing"

	"github.com/alphafox02/iridium-sniffer/internal/demod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oddParity returns b with bit 7 set so the byte has odd parity,
// matching a correctly parity-encoded ACARS character.
func oddParity(b byte) byte {
	if popcount8(b&0x7F)%2 == 0 {
		return b | 0x80
	}
	return b & 0x7F
}

func encodeACARS(mode byte, reg string, ack, l0, l1, blockID byte, rest string) []byte {
	body := make([]byte, 0, 12+len(rest))
	body = append(body, mode)
	for len(reg) < 7 {
		reg = "." + reg
	}
	body = append(body, []byte(reg)...)
	body = append(body, ack, l0, l1, blockID)
	body = append(body, []byte(rest)...)

	out := make([]byte, 0, len(body)+1)
	out = append(out, 0x01)
	for _, b := range body {
		out = append(out, oddParity(b))
	}
	return out
}

func withCRC(payload []byte) []byte {
	crc := crc16Kermit(payload[1:])
	return append(append([]byte{}, payload...), byte(crc&0xFF), byte(crc>>8), 0x7F)
}

func TestParseBasicDownlinkNoCRC(t *testing.T) {
	payload := encodeACARS('2', "N12345", 0x06, 'Q', '0', '1', "\x03hello")
	rec, ok := Parse(payload, demod.DirDownlink, 1000, 1.6e9, 5.0)
	require.True(t, ok)
	assert.Equal(t, byte('2'), rec.Mode)
	assert.Equal(t, "N12345", rec.Registration)
	assert.Equal(t, byte(0x06), rec.Ack)
	assert.Equal(t, "Q0", string(rec.Label[:]))
	assert.True(t, rec.CRCError) // no CRC suffix: errors forced per spec
	assert.Equal(t, 1, rec.Errors)
}

func TestParseEveryByteBelow0x80AfterParityStrip(t *testing.T) {
	payload := encodeACARS('2', "N12345", 0x06, 'Q', '0', '1', "\x03some text")
	rec, ok := Parse(payload, demod.DirDownlink, 1000, 1.6e9, 5.0)
	require.True(t, ok)
	for _, c := range []byte(rec.Registration) {
		assert.Less(t, c, byte(0x80))
	}
}

func TestParseWithValidCRCSuffix(t *testing.T) {
	payload := encodeACARS('2', "N12345", 0x06, 'Q', '0', '1', "\x03hi\x03")
	full := withCRC(payload)
	rec, ok := Parse(full, demod.DirDownlink, 1000, 1.6e9, 5.0)
	require.True(t, ok)
	assert.False(t, rec.CRCError)
	assert.Equal(t, 0, rec.Errors)
}

func TestParseETBSetsContinuation(t *testing.T) {
	payload := encodeACARS('2', "N12345", 0x06, 'Q', '0', '1', "\x03body\x17")
	rec, ok := Parse(payload, demod.DirDownlink, 1000, 1.6e9, 5.0)
	require.True(t, ok)
	assert.True(t, rec.Continuation)
}

func TestParseUplinkSequenceAndFlight(t *testing.T) {
	rest := "\x021234ABCDEFtext body"
	payload := encodeACARS('2', "N12345", 0x06, 'Q', '0', '1', rest)
	rec, ok := Parse(payload, demod.DirUplink, 1000, 1.6e9, 5.0)
	require.True(t, ok)
	assert.True(t, rec.HasSequence)
	assert.Equal(t, "1234", rec.Sequence)
	assert.Equal(t, "ABCDEF", rec.FlightNo)
	assert.Equal(t, "text body", rec.Text)
}

func TestParseRejectsNonACARSMarker(t *testing.T) {
	_, ok := Parse([]byte{0x02, 0x00, 0x00}, demod.DirDownlink, 0, 0, 0)
	assert.False(t, ok)
}

func TestParseRejectsTooShort(t *testing.T) {
	_, ok := Parse([]byte{0x01, 0x02}, demod.DirDownlink, 0, 0, 0)
	assert.False(t, ok)
}

func TestCRC16KermitZeroOnSelfIncludedCRC(t *testing.T) {
	data := []byte("hello world")
	crc := crc16Kermit(data)
	buf := append(append([]byte{}, data...), byte(crc&0xFF), byte(crc>>8))
	assert.Equal(t, uint16(0), crc16Kermit(buf))
}
