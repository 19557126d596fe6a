package idaburst

import (
	"github.com/alphafox02/iridium-sniffer/internal/bch"
	"github.com/alphafox02/iridium-sniffer/internal/demod"
	"github.com/alphafox02/iridium-sniffer/internal/lcw"
)

// MaxBCHStream bounds the decoded BCH bit stream retained per burst,
// matching ida_decode.c's bch_stream[256].
const MaxBCHStream = 256

// Burst is a single decoded IDA burst: spec.md's ida_burst record.
type Burst struct {
	Timestamp  uint64
	Frequency  float64
	Direction  demod.Direction
	Magnitude  float64
	Noise      float64
	Level      float64
	Confidence int
	NSymbols   int

	DaCtr      int
	DaLen      int
	Cont       bool
	Payload    [20]byte
	PayloadLen int

	CRCOk       bool
	StoredCRC   uint16
	ComputedCRC uint16

	FixedErrs int

	BCHStream []byte
	LCW       lcw.Word
	LCWHeader string
}

// Tables bundles the syndrome tables needed by the IDA decode
// pipeline: the three LCW component tables plus the payload BCH(31,20)
// table. Built once at startup (spec.md §4.1) and shared read-only
// across every Decode call.
type Tables struct {
	LCW     *lcw.Tables
	Payload *bch.Table
}

// BuildTables constructs every syndrome table the IDA decode path
// needs.
func BuildTables() *Tables {
	return &Tables{
		LCW:     lcw.BuildTables(),
		Payload: bch.Build(PayloadPoly, 31, 2),
	}
}

// Decode attempts to classify and decode one demod.Frame as an IDA
// burst. ok is false for any structural rejection: too few bits, a
// frame type other than 2, an unresolvable LCW, a short payload, or a
// terminated descramble (spec.md §7, kinds 1-2: silent discard, not an
// error).
//
// Grounded on _examples/original_source/ida_decode.c:ida_decode.
func Decode(tables *Tables, frame demod.Frame) (Burst, bool) {
	if len(frame.Bits) < 24+46+124 {
		return Burst{}, false
	}
	if frame.Direction != demod.DirUplink && frame.Direction != demod.DirDownlink {
		return Burst{}, false
	}

	data := frame.Bits[24:]
	var dataLLR []float32
	if frame.LLR != nil {
		dataLLR = frame.LLR[24:]
	}

	word, ok := lcw.Decode(tables.LCW, data)
	if !ok || word.FT != 2 {
		return Burst{}, false
	}

	payloadData := data[46:]
	var payloadLLR []float32
	if dataLLR != nil {
		payloadLLR = dataLLR[46:]
	}
	if len(payloadData) < 124 {
		return Burst{}, false
	}

	stream, fixedErrs := Descramble(tables.Payload, payloadData, payloadLLR, MaxBCHStream)
	if len(stream) < 196 {
		return Burst{}, false
	}

	cont := stream[3] != 0
	daCtr := int(stream[5])<<2 | int(stream[6])<<1 | int(stream[7])
	daLen := int(stream[11])<<4 | int(stream[12])<<3 | int(stream[13])<<2 | int(stream[14])<<1 | int(stream[15])
	zero1 := int(stream[17])<<2 | int(stream[18])<<1 | int(stream[19])

	if zero1 != 0 {
		return Burst{}, false
	}
	if daLen > 20 {
		return Burst{}, false
	}

	var payload [20]byte
	for i := 0; i < 20; i++ {
		var b byte
		for bit := 0; bit < 8; bit++ {
			b = (b << 1) | stream[20+i*8+bit]
		}
		payload[i] = b
	}

	crcOK := false
	var storedCRC, computedCRC uint16
	if daLen > 0 {
		storedCRC = bitsToUint16(stream[9*20 : 9*20+16])
		computedCRC = crcCCITTFalse(crcInputBits(stream))
		crcOK = computedCRC == storedCRC
	}

	payloadLen := daLen
	if payloadLen == 0 {
		payloadLen = 20
	}

	b := Burst{
		Timestamp:   frame.Timestamp,
		Frequency:   frame.CenterFrequency,
		Direction:   frame.Direction,
		Magnitude:   frame.Magnitude,
		Noise:       frame.Noise,
		Level:       frame.Level,
		Confidence:  frame.Confidence,
		NSymbols:    frame.NPayloadSymbols,
		DaCtr:       daCtr,
		DaLen:       daLen,
		Cont:        cont,
		Payload:     payload,
		PayloadLen:  payloadLen,
		CRCOk:       crcOK,
		StoredCRC:   storedCRC,
		ComputedCRC: computedCRC,
		FixedErrs:   fixedErrs,
		LCW:         word,
	}
	if len(stream) > MaxBCHStream {
		stream = stream[:MaxBCHStream]
	}
	b.BCHStream = stream
	b.LCWHeader = lcw.FormatHeader(word)

	return b, true
}

func bitsToUint16(bits []byte) uint16 {
	var v uint16
	for _, bit := range bits {
		v = (v << 1) | uint16(bit)
	}
	return v
}

// crcInputBits reproduces the CRC input layout of ida_decode.c's
// ida_decode: bits[0:20] || 12 zero bits || bits[20:bch_len-4],
// zero-padded up to a byte boundary.
func crcInputBits(stream []byte) []byte {
	n := 20 + 12 + (len(stream) - 20 - 4)
	bits := make([]byte, 0, n)
	bits = append(bits, stream[:20]...)
	bits = append(bits, make([]byte, 12)...)
	bits = append(bits, stream[20:len(stream)-4]...)
	return bits
}

// crcCCITTFalse computes CRC-CCITT-FALSE (poly 0x1021, init 0xFFFF, no
// reflection, no final XOR) over a bit sequence, packing it MSB-first
// into bytes (zero-padding the final partial byte) before running the
// standard byte-wise algorithm.
func crcCCITTFalse(bits []byte) uint16 {
	nbytes := (len(bits) + 7) / 8
	buf := make([]byte, nbytes)
	for i, bit := range bits {
		if bit != 0 {
			buf[i/8] |= 1 << uint(7-(i%8))
		}
	}

	crc := uint16(0xFFFF)
	for _, b := range buf {
		crc ^= uint16(b) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
