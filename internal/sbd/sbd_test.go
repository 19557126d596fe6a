package sbd

import (
	"testing"

	"github.com/alphafox02/iridium-sniffer/internal/demod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRejectsShortData(t *testing.T) {
	r := NewReassembler()
	_, ok := r.Extract([]byte{0x06, 0x00}, demod.DirDownlink, 0, 0, 0)
	assert.False(t, ok)
}

func TestExtractRejectsNonSBDMarker(t *testing.T) {
	r := NewReassembler()
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	_, ok := r.Extract(data, demod.DirDownlink, 0, 0, 0)
	assert.False(t, ok)
}

func TestExtractSingleFragmentDownlinkLegacyHeader(t *testing.T) {
	r := NewReassembler()
	data := append([]byte{0x06, 0x00, 0x20}, make([]byte, 28)...)
	data[2+15] = 0 // msgcnt == 0
	data = append(data, []byte("hello")...)

	pkt, ok := r.Extract(data, demod.DirDownlink, 1000, 1626000000, -30)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), pkt.Data)
	assert.Equal(t, demod.DirDownlink, pkt.Direction)
}

func TestExtractMultiFragmentReassembly(t *testing.T) {
	r := NewReassembler()

	// First fragment: type 0x76/0x08 (downlink range) with a 7-byte
	// pre-header carrying msgcnt=2 at its byte 3, then 0x10 len msgno=1.
	first := []byte{0x76, 0x08, 0x26, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x10, 0x03, 0x01, 'a', 'b', 'c'}
	_, ok := r.Extract(first, demod.DirDownlink, 1000, 0, 0)
	assert.False(t, ok)

	// Continuation: type 0x76/0x09 has no pre-header (msgcnt unknown),
	// so msgno=2 extends the open chain.
	second := []byte{0x76, 0x09, 0x10, 0x03, 0x02, 'd', 'e', 'f'}
	pkt, ok := r.Extract(second, demod.DirDownlink, 2000, 0, 0)
	require.True(t, ok)
	assert.Equal(t, []byte("abcdef"), pkt.Data)
}

func TestExtractOrphanFragmentDiscarded(t *testing.T) {
	r := NewReassembler()
	frag := []byte{0x76, 0x09, 0x10, 0x01, 0x02, 'x'}
	_, ok := r.Extract(frag, demod.DirDownlink, 1000, 0, 0)
	assert.False(t, ok)
}

func TestExpireDropsStaleSlot(t *testing.T) {
	r := NewReassembler()
	first := []byte{0x76, 0x08, 0x26, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x10, 0x01, 0x01, 'a'}
	_, ok := r.Extract(first, demod.DirDownlink, 0, 0, 0)
	require.False(t, ok)

	// A continuation arriving long after the timeout should find the
	// slot already expired and be discarded as an orphan.
	second := []byte{0x76, 0x09, 0x10, 0x01, 0x02, 'b'}
	_, ok = r.Extract(second, demod.DirDownlink, TimeoutNs*2, 0, 0)
	assert.False(t, ok)
}
