// Package acars parses ACARS messages out of a reassembled SBD
// payload: parity stripping, CRC-16/Kermit verification, and field
// extraction (spec.md §4.8).
//
// Grounded on _examples/original_source/sbd_acars.c (acars_parse,
// acars_output_json, acars_output_text).
package acars

import "github.com/alphafox02/iridium-sniffer/internal/demod"

// Record is a parsed ACARS message: spec.md's acars_record.
type Record struct {
	Mode         byte
	Registration string
	Ack          byte
	Label        [2]byte
	BlockID      byte
	HasSequence  bool
	Sequence     string
	FlightNo     string
	Text         string
	Continuation bool

	ParityErrors int
	CRCError     bool
	Errors       int

	Header []byte

	Timestamp uint64
	Frequency float64
	Magnitude float64
	Direction demod.Direction
}

// Uplink reports whether the record came from an uplink SBD packet.
func (r Record) Uplink() bool { return r.Direction == demod.DirUplink }

// Parse extracts an ACARS record from a reassembled SBD payload.
// data[0] must be the 0x01 ACARS marker; ok is false for any
// structural rejection (spec.md §7, kind 1) such as too-short input.
//
// Grounded on acars_parse.
func Parse(data []byte, direction demod.Direction, timestamp uint64, frequency, magnitude float64) (Record, bool) {
	if len(data) == 0 || data[0] != 0x01 {
		return Record{}, false
	}
	if len(data) <= 2 {
		return Record{}, false
	}
	data = data[1:]

	hasCRC := false
	var csum [2]byte
	if len(data) >= 3 && data[len(data)-1] == 0x7f {
		csum[0] = data[len(data)-3]
		csum[1] = data[len(data)-2]
		data = data[:len(data)-3]
		hasCRC = true
	}

	var header []byte
	if len(data) > 0 && data[0] == 0x03 {
		if len(data) >= 8 {
			header = append([]byte{}, data[:8]...)
			data = data[8:]
		}
	}

	crcError := true
	if hasCRC {
		buf := make([]byte, len(data)+2)
		copy(buf, data)
		buf[len(data)] = csum[0]
		buf[len(data)+1] = csum[1]
		crcError = crc16Kermit(buf) != 0
	}

	if len(data) < 13 {
		return Record{}, false
	}

	stripped := make([]byte, len(data))
	parityErrors := 0
	for i, c := range data {
		if popcount8(c)%2 == 0 {
			parityErrors++
		}
		stripped[i] = c & 0x7F
	}

	rec := parseFields(stripped, direction, timestamp, frequency, magnitude)
	rec.Header = header
	rec.ParityErrors = parityErrors
	rec.CRCError = crcError
	rec.Errors = parityErrors + boolToInt(crcError)

	return rec, true
}

func popcount8(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseFields lays out the parity-stripped ACARS byte stream per
// spec.md §4.8's field table.
func parseFields(data []byte, direction demod.Direction, timestamp uint64, frequency, magnitude float64) Record {
	rec := Record{
		Mode:      data[0],
		Ack:       data[8],
		BlockID:   data[11],
		Timestamp: timestamp,
		Frequency: frequency,
		Magnitude: magnitude,
		Direction: direction,
	}

	regStart := 1
	for regStart < 8 && data[regStart] == '.' {
		regStart++
	}
	rec.Registration = string(data[regStart:8])

	rec.Label[0] = data[9]
	rec.Label[1] = data[10]

	rest := data[12:]
	if len(rest) > 0 {
		switch rest[len(rest)-1] {
		case 0x03:
			rest = rest[:len(rest)-1]
		case 0x17:
			rec.Continuation = true
			rest = rest[:len(rest)-1]
		}
	}

	if len(rest) > 0 && rest[0] == 0x02 {
		uplink := direction == demod.DirUplink
		if uplink && len(rest) >= 11 {
			rec.HasSequence = true
			rec.Sequence = string(rest[1:5])
			rec.FlightNo = string(rest[5:11])
			rec.Text = string(rest[11:])
		} else {
			rec.Text = string(rest[1:])
		}
	}

	return rec
}
