// Package sbd extracts SBD (Short-Burst-Data) packets out of
// reassembled IDA messages and drives multi-packet reassembly:
// spec.md §4.7.
//
// Grounded on _examples/original_source/sbd_acars.c (sbd_extract,
// sbd_process, sbd_expire).
package sbd

import "github.com/alphafox02/iridium-sniffer/internal/demod"

// MaxSlots bounds the SBD multi-packet reassembly table.
const MaxSlots = 8

// MaxData caps a slot's accumulated payload.
const MaxData = 1024

// TimeoutNs is the per-slot reassembly timeout: 5 seconds.
const TimeoutNs = 5_000_000_000

// Packet is a fully reassembled SBD payload ready for ACARS parsing.
type Packet struct {
	Data      []byte
	Direction demod.Direction
	Timestamp uint64
	Frequency float64
	Magnitude float64
}

type slot struct {
	active    bool
	msgno     int
	msgcnt    int
	direction demod.Direction
	timestamp uint64
	frequency float64
	magnitude float64
	data      []byte
}

// Reassembler owns the SBD multi-packet reassembly table. Not safe for
// concurrent use; owned by the single goroutine running the pipeline's
// SBD stage (spec.md §5).
type Reassembler struct {
	slots [MaxSlots]slot
}

// NewReassembler returns an empty SBD reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Extract inspects a reassembled IDA message for an SBD type marker
// and, if present, drives packet reassembly. It returns a completed
// Packet whenever one is ready for downstream ACARS parsing.
//
// Grounded on sbd_extract/sbd_process.
func (r *Reassembler) Extract(data []byte, direction demod.Direction, timestamp uint64, frequency, magnitude float64) (Packet, bool) {
	if len(data) < 5 {
		return Packet{}, false
	}

	uplink := direction == demod.DirUplink

	isSBD := false
	switch {
	case data[0] == 0x76 && data[1] != 5:
		if uplink {
			isSBD = data[1] >= 0x0c && data[1] <= 0x0e
		} else {
			isSBD = data[1] >= 0x08 && data[1] <= 0x0b
		}
	case data[0] == 0x06 && data[1] == 0x00:
		switch data[2] {
		case 0x00, 0x10, 0x20, 0x40, 0x50, 0x70:
			isSBD = true
		}
	}
	if !isSBD {
		return Packet{}, false
	}

	typ0, typ1 := data[0], data[1]
	rest := data[2:]

	var msgno, msgcnt int
	var sbdData []byte

	switch {
	case typ0 == 0x06 && typ1 == 0x00:
		if len(rest) < 30 || rest[0] != 0x20 {
			return Packet{}, false
		}
		msgcnt = int(rest[15])
		if msgcnt == 0 {
			msgno = 0
		} else {
			msgno = 1
		}
		sbdData = rest[29:]

	default:
		if typ1 == 0x08 {
			if len(rest) < 5 {
				return Packet{}, false
			}
			preLen := 7
			switch rest[0] {
			case 0x26:
				preLen = 7
			case 0x20:
				preLen = 5
			}
			if len(rest) < preLen {
				return Packet{}, false
			}
			msgcnt = int(rest[3])
			rest = rest[preLen:]
		} else {
			msgcnt = -1
		}

		if uplink && len(rest) >= 3 && (rest[0] == 0x50 || rest[0] == 0x51) {
			rest = rest[3:]
		}

		switch {
		case len(rest) == 0:
			msgno = 0
			sbdData = rest
		case len(rest) > 3 && rest[0] == 0x10:
			pktLen := int(rest[1])
			msgno = int(rest[2])
			rest = rest[3:]
			if len(rest) < pktLen {
				return Packet{}, false
			}
			sbdData = rest[:pktLen]
		default:
			msgno = 0
			sbdData = rest
		}
	}

	r.expire(timestamp)

	switch {
	case msgno == 0:
		if len(sbdData) > 0 {
			return Packet{
				Data:      append([]byte{}, sbdData...),
				Direction: direction,
				Timestamp: timestamp,
				Frequency: frequency,
				Magnitude: magnitude,
			}, true
		}
		return Packet{}, false

	case msgcnt == 1 && msgno == 1:
		return Packet{
			Data:      append([]byte{}, sbdData...),
			Direction: direction,
			Timestamp: timestamp,
			Frequency: frequency,
			Magnitude: magnitude,
		}, true

	case msgcnt > 1:
		idx := r.freeOrOldest()
		s := &r.slots[idx]
		s.active = true
		s.msgno = msgno
		s.msgcnt = msgcnt
		s.direction = direction
		s.timestamp = timestamp
		s.frequency = frequency
		s.magnitude = magnitude
		n := len(sbdData)
		if n > MaxData {
			n = MaxData
		}
		s.data = append(s.data[:0], sbdData[:n]...)
		return Packet{}, false

	case msgno > 1:
		for i := MaxSlots - 1; i >= 0; i-- {
			s := &r.slots[i]
			if !s.active || s.direction != direction || msgno != s.msgno+1 {
				continue
			}
			space := MaxData - len(s.data)
			n := len(sbdData)
			if n > space {
				n = space
			}
			if n > 0 {
				s.data = append(s.data, sbdData[:n]...)
			}
			s.msgno = msgno
			s.timestamp = timestamp

			if msgno == s.msgcnt {
				pkt := Packet{
					Data:      s.data,
					Direction: direction,
					Timestamp: timestamp,
					Frequency: s.frequency,
					Magnitude: s.magnitude,
				}
				s.active = false
				return pkt, true
			}
			return Packet{}, false
		}
		// No matching slot: orphan fragment, discard.
		return Packet{}, false
	}

	return Packet{}, false
}

func (r *Reassembler) freeOrOldest() int {
	for i := range r.slots {
		if !r.slots[i].active {
			return i
		}
	}
	idx := 0
	oldest := r.slots[0].timestamp
	for i := 1; i < MaxSlots; i++ {
		if r.slots[i].timestamp < oldest {
			oldest = r.slots[i].timestamp
			idx = i
		}
	}
	return idx
}

func (r *Reassembler) expire(nowNs uint64) {
	for i := range r.slots {
		s := &r.slots[i]
		if s.active && nowNs > s.timestamp+TimeoutNs {
			s.active = false
		}
	}
}
