package idaburst

import (
	"math"

	"github.com/alphafox02/iridium-sniffer/internal/demod"
)

// MaxSlots bounds the IDA reassembly table: spec.md's
// ida_reassembly_slot table, at most 16 entries.
const MaxSlots = 16

// FrequencyTolHz is the maximum frequency drift tolerated when
// matching a burst to an in-progress reassembly slot.
const FrequencyTolHz = 260.0

// SlotTimeoutNs is the maximum inter-burst gap tolerated before a
// reassembly slot is considered stale: spec.md §4.6/§5, 280ms.
const SlotTimeoutNs = 280_000_000

// MaxSlotData bounds a slot's accumulated payload: 8 fragments of up
// to 20 bytes each (spec.md §3's "data_len <= 8*20").
const MaxSlotData = 8 * 20

type slot struct {
	active        bool
	direction     demod.Direction
	frequency     float64
	lastTimestamp uint64
	lastCtr       int
	data          []byte
}

// Message is a fully reassembled IDA payload: spec.md's ida_message.
type Message struct {
	Data      []byte
	Timestamp uint64
	Frequency float64
	Direction demod.Direction
	Magnitude float64
}

// Reassembler owns the IDA multi-burst reassembly table. It is not
// safe for concurrent use; spec.md §5 assigns exactly one goroutine
// ownership of this state.
type Reassembler struct {
	slots [MaxSlots]slot
}

// NewReassembler returns an empty reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Feed processes one CRC-verified burst, returning a completed Message
// when a chain finishes (or a one-shot burst arrives), matching
// spec.md §4.6 / ida_reassemble.
func (r *Reassembler) Feed(b Burst) (Message, bool) {
	if !b.CRCOk || b.DaLen == 0 {
		return Message{}, false
	}

	for i := range r.slots {
		s := &r.slots[i]
		if !s.active {
			continue
		}
		if s.direction != b.Direction {
			continue
		}
		if math.Abs(s.frequency-b.Frequency) > FrequencyTolHz {
			continue
		}
		if b.Timestamp < s.lastTimestamp {
			continue
		}
		if b.Timestamp-s.lastTimestamp > SlotTimeoutNs {
			continue
		}
		if (s.lastCtr+1)%8 != b.DaCtr {
			continue
		}

		if len(s.data)+b.DaLen <= MaxSlotData {
			s.data = append(s.data, b.Payload[:b.DaLen]...)
		}
		s.lastTimestamp = b.Timestamp
		s.lastCtr = b.DaCtr

		if !b.Cont {
			msg := Message{
				Data:      s.data,
				Timestamp: b.Timestamp,
				Frequency: s.frequency,
				Direction: s.direction,
				Magnitude: b.Magnitude,
			}
			s.active = false
			return msg, true
		}
		return Message{}, false
	}

	if b.DaCtr == 0 && !b.Cont {
		return Message{
			Data:      append([]byte{}, b.Payload[:b.DaLen]...),
			Timestamp: b.Timestamp,
			Frequency: b.Frequency,
			Direction: b.Direction,
			Magnitude: b.Magnitude,
		}, true
	}

	if b.DaCtr == 0 && b.Cont {
		idx := r.freeOrLRU()
		s := &r.slots[idx]
		s.active = true
		s.direction = b.Direction
		s.frequency = b.Frequency
		s.lastTimestamp = b.Timestamp
		s.lastCtr = b.DaCtr
		s.data = append(s.data[:0], b.Payload[:b.DaLen]...)
		return Message{}, false
	}

	// Orphan fragment (da_ctr > 0, no matching slot): discard silently.
	return Message{}, false
}

func (r *Reassembler) freeOrLRU() int {
	idx := -1
	oldest := uint64(math.MaxUint64)
	for i := range r.slots {
		if !r.slots[i].active {
			return i
		}
		if r.slots[i].lastTimestamp < oldest {
			oldest = r.slots[i].lastTimestamp
			idx = i
		}
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// Flush evicts slots whose last fragment is older than SlotTimeoutNs
// relative to now, per spec.md §4.6's periodic flush. In-flight data
// is dropped, never emitted (spec.md §7, kind 5).
func (r *Reassembler) Flush(nowNs uint64) {
	for i := range r.slots {
		s := &r.slots[i]
		if s.active && nowNs > s.lastTimestamp+SlotTimeoutNs {
			s.active = false
		}
	}
}
