// Package output formats the core's records into the iridium-toolkit
// compatible RAW/IDA text lines and fans them out to stdout plus any
// attached pub/sub sinks: spec.md §4.10/§6.
//
// Grounded on _examples/original_source/frame_output.c
// (frame_output_print, frame_output_print_ida): the accumulate-into-a
// -buffer-then-flush discipline, the exact field widths, and the
// auto-generated file_info convention are reproduced verbatim.
package output

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/alphafox02/iridium-sniffer/internal/acars"
	"github.com/alphafox02/iridium-sniffer/internal/demod"
	"github.com/alphafox02/iridium-sniffer/internal/idaburst"
)

// Stream owns the RAW/IDA line formatting state (the auto-generated
// file_info, the wall-clock anchor t0) and fans formatted lines out to
// stdout and any additional sinks. It is safe for concurrent use: a
// single mutex guards the short, no-I/O critical section around
// ensureInit, matching spec.md §5's "bounded, no I/O" sink
// requirement; the actual Write calls happen outside the lock.
type Stream struct {
	mu sync.Mutex

	fileInfo    string
	initialized bool
	t0          uint64

	// SuppressRaw mirrors frame_output_print's "diagnostic_mode ||
	// acars_enabled" stdout-suppression rule: RAW lines are still fed
	// to attached sinks, just not to stdout.
	SuppressRaw bool

	// SuppressIDA mirrors frame_output_print_ida's stdout-suppression
	// rule, which is diagnostic_mode alone: enabling ACARS output does
	// not silence IDA lines the way it does RAW lines. IDA lines are
	// still fed to attached sinks regardless.
	SuppressIDA bool

	// StationID is attached to every ACARS JSON record's
	// source.station_id field; empty omits the field.
	StationID string

	// StrictACARS suppresses ACARS JSON records with errors > 0
	// (spec.md §7, kind 4); the text renderer never suppresses.
	StrictACARS bool

	// EmitACARSJSON selects JSON rendering over text for WriteACARS.
	EmitACARSJSON bool

	acarsWallAnchor time.Time
	acarsTSAnchor   uint64
	acarsAnchored   bool

	w     io.Writer
	sinks []io.Writer
}

// NewStream returns a Stream writing to w (normally os.Stdout).
// fileInfo may be empty, in which case it is auto-generated from the
// first timestamp seen (ensure_initialized's auto_info convention).
func NewStream(w io.Writer, fileInfo string) *Stream {
	return &Stream{w: w, fileInfo: fileInfo}
}

// AddSink attaches an additional writer (e.g. an MQTT publisher or a
// recording file) that receives the same bytes as stdout, minus the
// trailing newline, per spec.md §4.10.
func (s *Stream) AddSink(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, w)
}

func (s *Stream) ensureInit(timestamp uint64) (fileInfo string, t0 uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		s.t0 = (timestamp / 1_000_000_000) * 1_000_000_000
		if s.fileInfo == "" {
			s.fileInfo = fmt.Sprintf("i-%d-t1", s.t0/1_000_000_000)
		}
		s.initialized = true
	}
	return s.fileInfo, s.t0
}

// acarsWallClock projects rec.Timestamp onto wall-clock time: the
// first ACARS record anchors to time.Now(), every later record is
// time.Now() at the moment of the anchor plus the nanosecond delta
// from the anchor's monotonic Timestamp, per format_timestamp.
func (s *Stream) acarsWallClock(ts uint64) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acarsAnchored {
		s.acarsWallAnchor = time.Now()
		s.acarsTSAnchor = ts
		s.acarsAnchored = true
		return s.acarsWallAnchor
	}
	delta := int64(ts) - int64(s.acarsTSAnchor)
	return s.acarsWallAnchor.Add(time.Duration(delta))
}

// WriteACARS renders and emits one ACARS record as JSON or text per
// s.EmitACARSJSON, applying strict-mode JSON suppression.
func (s *Stream) WriteACARS(rec acars.Record) {
	ts := s.acarsWallClock(rec.Timestamp)

	if s.EmitACARSJSON {
		if SuppressACARS(rec, s.StrictACARS) {
			return
		}
		s.emit(FormatACARSJSON(rec, s.StationID, ts)+"\n", false)
		return
	}
	s.emit(FormatACARSText(rec), false)
}

func (s *Stream) emit(line string, suppressStdout bool) {
	hasSinks := len(s.sinks) > 0
	if !suppressStdout {
		io.WriteString(s.w, line)
	}
	if hasSinks {
		trimmed := strings.TrimSuffix(line, "\n")
		s.mu.Lock()
		sinks := append([]io.Writer{}, s.sinks...)
		s.mu.Unlock()
		for _, sink := range sinks {
			io.WriteString(sink, trimmed)
		}
	}
}

// WriteRAW renders one demod.Frame as an iridium-toolkit RAW line.
func (s *Stream) WriteRAW(f demod.Frame) {
	fileInfo, t0 := s.ensureInit(f.Timestamp)

	tsMs := float64(f.Timestamp-t0) / 1e6
	freqHz := int(f.CenterFrequency + 0.5)
	syms := f.NPayloadSymbols
	if syms < 0 {
		syms = 0
	}

	var bits strings.Builder
	bits.Grow(len(f.Bits))
	for _, b := range f.Bits {
		bits.WriteByte('0' + b)
	}

	line := fmt.Sprintf("RAW: %s %012.4f %010d N:%05.2f%+06.2f I:%011d %3d%% %.5f %3d %s\n",
		fileInfo, tsMs, freqHz, f.Magnitude, f.Noise, f.ID, f.Confidence, f.Level, syms, bits.String())
	s.emit(line, s.SuppressRaw)
}

// WriteIDA renders one decoded idaburst.Burst as an iridium-parser.py
// compatible parsed line.
func (s *Stream) WriteIDA(b idaburst.Burst) {
	_, t0 := s.ensureInit(b.Timestamp)
	parsedInfo := fmt.Sprintf("p-%d", t0/1_000_000_000)

	tsMs := float64(b.Timestamp-t0) / 1e6
	freqHz := int(b.Frequency + 0.5)

	leveldb := -99.99
	if b.Level > 0 {
		leveldb = 20 * math.Log10(b.Level)
	}

	syms := b.NSymbols
	if syms < 0 {
		syms = 0
	}

	var line strings.Builder
	fmt.Fprintf(&line, "IDA: %s %014.4f %010d %3d%% %06.2f|%07.2f|%05.2f %3d %s ",
		parsedInfo, tsMs, freqHz, b.Confidence, leveldb, b.Noise, b.Magnitude, syms, b.Direction.String())

	line.WriteString(b.LCWHeader)

	bs := b.BCHStream
	if len(bs) < 20 {
		line.WriteByte('\n')
		s.emit(line.String(), s.SuppressIDA)
		return
	}

	fmt.Fprintf(&line, "%d%d%d", bs[0], bs[1], bs[2])
	fmt.Fprintf(&line, " cont=%d", bs[3])
	fmt.Fprintf(&line, " %d", bs[4])
	fmt.Fprintf(&line, " ctr=%d%d%d", bs[5], bs[6], bs[7])
	fmt.Fprintf(&line, " %d%d%d", bs[8], bs[9], bs[10])
	fmt.Fprintf(&line, " len=%02d", b.DaLen)
	fmt.Fprintf(&line, " 0:%d%d%d%d", bs[16], bs[17], bs[18], bs[19])

	hex := formatPayloadHex(b.Payload, b.DaLen)
	line.WriteString(" [")
	line.WriteString(hex)
	line.WriteString("]")
	for i := len(hex) + 1; i < 60; i++ {
		line.WriteByte(' ')
	}

	if b.DaLen > 0 {
		fmt.Fprintf(&line, " %04x/%04x", b.StoredCRC, b.ComputedCRC)
		if b.CRCOk {
			line.WriteString(" CRC:OK")
		} else {
			line.WriteString(" CRC:no")
		}
	} else {
		line.WriteString("  ---   ")
	}

	if len(bs) > 9*20+16 {
		line.WriteByte(' ')
		for _, bit := range bs[9*20+16:] {
			line.WriteByte('0' + bit)
		}
	} else {
		line.WriteString(" 0000")
	}

	if b.DaLen > 0 && len(bs) >= 9*20 {
		line.WriteString(" SBD: ")
		for i := 0; i < 20; i++ {
			var byteVal byte
			for bit := 0; bit < 8; bit++ {
				byteVal = (byteVal << 1) | bs[1*20+i*8+bit]
			}
			if byteVal >= 32 && byteVal < 127 {
				line.WriteByte(byteVal)
			} else {
				line.WriteByte('.')
			}
		}
	}

	line.WriteByte('\n')
	s.emit(line.String(), s.SuppressIDA)
}

// formatPayloadHex renders the 20-byte IDA payload as dot-separated
// hex, using a '!' separator at the da_len boundary whenever any byte
// from index da_len+1 onward is nonzero (frame_output_print_ida's
// hex-field rule; the byte at index da_len itself is not checked). When
// da_len is 0 all 20 bytes are printed; when the checked tail is all
// zero only the first da_len bytes are printed.
func formatPayloadHex(payload [20]byte, daLen int) string {
	if daLen <= 0 {
		return joinHex(payload[:], -1)
	}

	allZero := true
	for i := daLen + 1; i < 20; i++ {
		if payload[i] != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return joinHex(payload[:daLen], -1)
	}
	return joinHex(payload[:], daLen)
}

func joinHex(b []byte, bangAt int) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			if i == bangAt {
				sb.WriteByte('!')
			} else {
				sb.WriteByte('.')
			}
		}
		fmt.Fprintf(&sb, "%02x", v)
	}
	return sb.String()
}
