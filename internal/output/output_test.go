package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alphafox02/iridium-sniffer/internal/acars"
	"github.com/alphafox02/iridium-sniffer/internal/demod"
	"github.com/alphafox02/iridium-sniffer/internal/idaburst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRAWAutoFileInfoAndFields(t *testing.T) {
	var buf strings.Builder
	s := NewStream(&buf, "")

	f := demod.Frame{
		ID:              42,
		Timestamp:       5_000_000_000,
		CenterFrequency: 1626000000,
		Magnitude:       10.5,
		Noise:           -3.25,
		Level:           0.125,
		Confidence:      80,
		Bits:            []byte{1, 0, 1, 1, 0},
		NPayloadSymbols: 5,
	}
	s.WriteRAW(f)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "RAW: i-5-t1 "))
	assert.Contains(t, out, "N:10.50-03.25")
	assert.Contains(t, out, "I:00000000042")
	assert.Contains(t, out, " 80% ")
	assert.Contains(t, out, "10110")
}

func TestWriteRAWUsesSuppliedFileInfo(t *testing.T) {
	var buf strings.Builder
	s := NewStream(&buf, "custom-info")
	s.WriteRAW(demod.Frame{Timestamp: 1})
	assert.True(t, strings.HasPrefix(buf.String(), "RAW: custom-info "))
}

func TestSuppressRawStillFeedsSinks(t *testing.T) {
	var stdout, sink strings.Builder
	s := NewStream(&stdout, "i-0-t1")
	s.SuppressRaw = true
	s.AddSink(&sink)

	s.WriteRAW(demod.Frame{Timestamp: 1, Bits: []byte{1, 0}})

	assert.Empty(t, stdout.String())
	assert.Contains(t, sink.String(), "RAW: i-0-t1")
}

func TestWriteIDAShortStreamStillEmitsLine(t *testing.T) {
	var buf strings.Builder
	s := NewStream(&buf, "")
	s.WriteIDA(idaburst.Burst{Timestamp: 1, LCWHeader: strings.Repeat(" ", 111)})
	assert.Contains(t, buf.String(), "IDA: p-0 ")
}

func TestSuppressIDAStillFeedsSinks(t *testing.T) {
	var stdout, sink strings.Builder
	s := NewStream(&stdout, "i-0-t1")
	s.SuppressIDA = true
	s.AddSink(&sink)

	s.WriteIDA(idaburst.Burst{Timestamp: 1, LCWHeader: strings.Repeat(" ", 111)})

	assert.Empty(t, stdout.String())
	assert.Contains(t, sink.String(), "IDA: p-0")
}

func TestSuppressIDAIndependentOfACARSFlags(t *testing.T) {
	// Enabling ACARS JSON output must not silence IDA stdout lines;
	// only diagnostic mode (SuppressIDA) does that. SuppressRaw, by
	// contrast, is meant to go with ACARS output.
	var buf strings.Builder
	s := NewStream(&buf, "")
	s.SuppressRaw = true
	s.EmitACARSJSON = true

	s.WriteIDA(idaburst.Burst{Timestamp: 1, LCWHeader: strings.Repeat(" ", 111)})
	assert.Contains(t, buf.String(), "IDA: p-0 ")
}

func TestFormatPayloadHexNoTrailingBang(t *testing.T) {
	var payload [20]byte
	payload[0] = 0xAB
	payload[1] = 0xCD
	got := formatPayloadHex(payload, 2)
	assert.Equal(t, "ab.cd", got)
}

func TestFormatPayloadHexBangWhenTailNonzero(t *testing.T) {
	var payload [20]byte
	payload[0] = 0xAB
	payload[2] = 0x01
	got := formatPayloadHex(payload, 1)
	assert.Contains(t, got, "!")
}

func TestACARSLabelRemapDivergesBetweenJSONAndText(t *testing.T) {
	rec := acars.Record{Label: [2]byte{'_', 0x7f}}
	assert.Contains(t, FormatACARSJSON(rec, "", time.Unix(0, 0)), `"_d"`)
	assert.Contains(t, FormatACARSText(rec), "_?")
}

func TestWriteACARSJSONSuppressedUnderStrict(t *testing.T) {
	var buf strings.Builder
	s := NewStream(&buf, "")
	s.EmitACARSJSON = true
	s.StrictACARS = true

	s.WriteACARS(acars.Record{ParityErrors: 1, Errors: 1, Timestamp: 1})
	assert.Empty(t, buf.String())

	s.WriteACARS(acars.Record{Timestamp: 2})
	assert.Contains(t, buf.String(), `"errors"`)
}

func TestWriteACARSJSONIncludesStationID(t *testing.T) {
	var buf strings.Builder
	s := NewStream(&buf, "")
	s.EmitACARSJSON = true
	s.StationID = "KA9Q-1"

	s.WriteACARS(acars.Record{Timestamp: 1})
	assert.Contains(t, buf.String(), "KA9Q-1")
}

func TestFormatACARSJSONNestedSchema(t *testing.T) {
	rec := acars.Record{
		Mode:         'M',
		Registration: "N12345",
		Ack:          '1',
		Label:        [2]byte{'Q', '0'},
		BlockID:      'A',
		HasSequence:  true,
		Sequence:     "M01A",
		FlightNo:     "UA123 ",
		Text:         "HELLO",
		Continuation: false,
		ParityErrors: 0,
		CRCError:     false,
		Errors:       0,
		Header:       []byte{0x01, 0x02},
		Frequency:    1626270833,
		Magnitude:    -12.5,
		Direction:    demod.DirUplink,
	}

	anchor := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	line := FormatACARSJSON(rec, "KA9Q-1", anchor)

	var doc struct {
		App struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"app"`
		Source struct {
			Transport string `json:"transport"`
			Protocol  string `json:"protocol"`
			StationID string `json:"station_id"`
		} `json:"source"`
		ACARS struct {
			Timestamp     string `json:"timestamp"`
			Errors        int    `json:"errors"`
			LinkDirection string `json:"link_direction"`
			BlockEnd      bool   `json:"block_end"`
			Mode          string `json:"mode"`
			Tail          string `json:"tail"`
			Ack           string `json:"ack"`
			Label         string `json:"label"`
			BlockID       string `json:"block_id"`
			MessageNumber string `json:"message_number"`
			Flight        string `json:"flight"`
			Text          string `json:"text"`
		} `json:"acars"`
		Freq   float64 `json:"freq"`
		Level  float64 `json:"level"`
		Header string  `json:"header"`
	}
	require.NoError(t, json.Unmarshal([]byte(line), &doc))

	assert.Equal(t, "iridium-sniffer", doc.App.Name)
	assert.NotEmpty(t, doc.App.Version)
	assert.Equal(t, "iridium", doc.Source.Transport)
	assert.Equal(t, "acars", doc.Source.Protocol)
	assert.Equal(t, "KA9Q-1", doc.Source.StationID)
	assert.Equal(t, "2026-08-03T12:00:00Z", doc.ACARS.Timestamp)
	assert.Equal(t, 0, doc.ACARS.Errors)
	assert.Equal(t, "uplink", doc.ACARS.LinkDirection)
	assert.True(t, doc.ACARS.BlockEnd)
	assert.Equal(t, "M", doc.ACARS.Mode)
	assert.Equal(t, "N12345", doc.ACARS.Tail)
	assert.Equal(t, "Q0", doc.ACARS.Label)
	assert.Equal(t, "M01A", doc.ACARS.MessageNumber)
	assert.Equal(t, "UA123 ", doc.ACARS.Flight)
	assert.Equal(t, "HELLO", doc.ACARS.Text)
	assert.Equal(t, float64(1626270833), doc.Freq)
	assert.Equal(t, -12.5, doc.Level)
	assert.Equal(t, "0102", doc.Header)
}

func TestFormatACARSJSONTimestampProjectsByDelta(t *testing.T) {
	var buf strings.Builder
	s := NewStream(&buf, "")
	s.EmitACARSJSON = true

	s.WriteACARS(acars.Record{Timestamp: 1_000_000_000})
	first := buf.String()
	buf.Reset()
	s.WriteACARS(acars.Record{Timestamp: 3_000_000_000})
	second := buf.String()

	var firstDoc, secondDoc struct {
		ACARS struct {
			Timestamp string `json:"timestamp"`
		} `json:"acars"`
	}
	require.NoError(t, json.Unmarshal([]byte(first), &firstDoc))
	require.NoError(t, json.Unmarshal([]byte(second), &secondDoc))

	t1, err := time.Parse("2006-01-02T15:04:05Z", firstDoc.ACARS.Timestamp)
	require.NoError(t, err)
	t2, err := time.Parse("2006-01-02T15:04:05Z", secondDoc.ACARS.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, t2.Sub(t1))
}

func TestWriteACARSTextNeverSuppressed(t *testing.T) {
	var buf strings.Builder
	s := NewStream(&buf, "")

	s.WriteACARS(acars.Record{Errors: 5, Timestamp: 1})
	assert.Contains(t, buf.String(), "ACARS:")
}

func TestSuppressACARSOnlyUnderStrict(t *testing.T) {
	rec := acars.Record{Errors: 1}
	assert.False(t, SuppressACARS(rec, false))
	assert.True(t, SuppressACARS(rec, true))
}
