package output

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alphafox02/iridium-sniffer/internal/acars"
)

// remapLabelJSON and remapLabelText both special-case the ACARS
// "squitter" label pair 0x5f/0x7f, but disagree on the printable
// stand-in for the non-printable second byte: sbd_acars.c's
// acars_output_json renders it "_d" while acars_output_text renders it
// "_?". Preserved here as two distinct helpers rather than unified,
// since collapsing them would silently change one renderer's output.
func remapLabelJSON(label [2]byte) string {
	if label[0] == '_' && label[1] == 0x7f {
		return "_d"
	}
	return string(label[:])
}

func remapLabelText(label [2]byte) string {
	if label[0] == '_' && label[1] == 0x7f {
		return "_?"
	}
	return string(label[:])
}

// acarsAppInfo is the static app.{name,version} identification object
// acars_output_json writes into every record.
type acarsAppInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// acarsSourceInfo carries the transport/protocol tags plus the optional
// station identifier spec.md §6 lists as "source.station_id?".
type acarsSourceInfo struct {
	Transport string `json:"transport"`
	Protocol  string `json:"protocol"`
	StationID string `json:"station_id,omitempty"`
}

// acarsBody mirrors the acars.{...} object acars_output_json nests
// every message-specific field inside.
type acarsBody struct {
	Timestamp     string `json:"timestamp"`
	Errors        int    `json:"errors"`
	LinkDirection string `json:"link_direction"`
	BlockEnd      bool   `json:"block_end"`
	Mode          string `json:"mode"`
	Tail          string `json:"tail"`
	Ack           string `json:"ack,omitempty"`
	Label         string `json:"label"`
	BlockID       string `json:"block_id"`
	MessageNumber string `json:"message_number,omitempty"`
	Flight        string `json:"flight,omitempty"`
	Text          string `json:"text,omitempty"`
}

// acarsJSON mirrors the field set acars_output_json writes, in the
// same key order: app, source, acars, freq, level, header.
type acarsJSON struct {
	App    acarsAppInfo    `json:"app"`
	Source acarsSourceInfo `json:"source"`
	ACARS  acarsBody       `json:"acars"`
	Freq   float64         `json:"freq"`
	Level  float64         `json:"level"`
	Header string          `json:"header"`
}

// FormatACARSJSON renders rec the way acars_output_json does: a single
// JSON object per line, with strict-mode records (errors > 0)
// suppressed by the caller before this is reached. stationID is
// attached as source.station_id and omitted when empty. ts is the
// wall-clock-anchored ISO-8601 timestamp computed by
// Stream.acarsWallClock.
func FormatACARSJSON(rec acars.Record, stationID string, ts time.Time) string {
	linkDirection := "downlink"
	if rec.Uplink() {
		linkDirection = "uplink"
	}

	var ack string
	if rec.Ack != 0 {
		ack = string(rec.Ack)
	}

	var messageNumber, flight string
	if rec.HasSequence {
		messageNumber = rec.Sequence
		flight = rec.FlightNo
	}

	doc := acarsJSON{
		App: acarsAppInfo{Name: "iridium-sniffer", Version: "1.0"},
		Source: acarsSourceInfo{
			Transport: "iridium",
			Protocol:  "acars",
			StationID: stationID,
		},
		ACARS: acarsBody{
			Timestamp:     ts.UTC().Format("2006-01-02T15:04:05Z"),
			Errors:        rec.Errors,
			LinkDirection: linkDirection,
			BlockEnd:      !rec.Continuation,
			Mode:          string(rec.Mode),
			Tail:          rec.Registration,
			Ack:           ack,
			Label:         remapLabelJSON(rec.Label),
			BlockID:       string(rec.BlockID),
			MessageNumber: messageNumber,
			Flight:        flight,
			Text:          rec.Text,
		},
		Freq:   rec.Frequency,
		Level:  rec.Magnitude,
		Header: hex.EncodeToString(rec.Header),
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(buf)
}

// FormatACARSText renders rec the way acars_output_text does: a
// fixed-field human-readable line ending with the message text.
func FormatACARSText(rec acars.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ACARS: %s %s Mode:%c Label:%s BlkId:%c Ack:%c",
		rec.Direction.String(), rec.Registration, rec.Mode, remapLabelText(rec.Label), rec.BlockID, rec.Ack)

	if rec.HasSequence {
		fmt.Fprintf(&sb, " Sq:%s Flt:%s", rec.Sequence, rec.FlightNo)
	}
	if rec.CRCError {
		sb.WriteString(" CRC:no")
	} else {
		sb.WriteString(" CRC:OK")
	}
	if rec.ParityErrors > 0 {
		fmt.Fprintf(&sb, " Parity-Errors:%d", rec.ParityErrors)
	}
	if rec.Continuation {
		sb.WriteString(" [more]")
	}
	if rec.Text != "" {
		sb.WriteString(" ")
		sb.WriteString(rec.Text)
	}
	sb.WriteString("\n")
	return sb.String()
}

// SuppressACARS reports whether rec should be dropped from JSON output
// under strict mode: acars_output_json only ever suppresses on the
// JSON path, never the text path.
func SuppressACARS(rec acars.Record, strict bool) bool {
	return strict && rec.Errors > 0
}
