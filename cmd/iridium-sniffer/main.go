// Command iridium-sniffer runs the IDA/SBD/ACARS decode pipeline over
// a stream of already-demodulated frames, emitting RAW/IDA lines and
// ACARS records to stdout and any configured sinks (spec.md §6).
//
// The QPSK demodulator is out of the core's scope (spec.md §1), so
// this CLI reads its input as newline-delimited JSON objects
// describing one demod.Frame each — the simplest stable wire format
// for a front-end that has already isolated and soft-demodulated a
// burst. See DESIGN.md for why this was chosen over re-parsing the
// (lossy, direction-less) RAW text line format.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alphafox02/iridium-sniffer/internal/acars"
	"github.com/alphafox02/iridium-sniffer/internal/config"
	"github.com/alphafox02/iridium-sniffer/internal/demod"
	"github.com/alphafox02/iridium-sniffer/internal/mapfeed"
	"github.com/alphafox02/iridium-sniffer/internal/metrics"
	"github.com/alphafox02/iridium-sniffer/internal/mqttsink"
	"github.com/alphafox02/iridium-sniffer/internal/output"
	"github.com/alphafox02/iridium-sniffer/internal/pipeline"
	"github.com/alphafox02/iridium-sniffer/internal/record"
)

// frameLine is the JSON shape of one input line.
type frameLine struct {
	ID              uint64    `json:"id"`
	TimestampNs     uint64    `json:"timestamp_ns"`
	CenterFrequency float64   `json:"center_freq_hz"`
	Direction       string    `json:"direction"` // "UL" or "DL"
	Magnitude       float64   `json:"magnitude"`
	Noise           float64   `json:"noise"`
	Level           float64   `json:"level"`
	Confidence      int       `json:"confidence"`
	Bits            string    `json:"bits"` // '0'/'1' characters
	LLR             []float32 `json:"llr,omitempty"`
	NPayloadSymbols int       `json:"n_payload_symbols"`
}

func (f frameLine) toFrame() demod.Frame {
	dir := demod.DirUnknown
	switch f.Direction {
	case "UL":
		dir = demod.DirUplink
	case "DL":
		dir = demod.DirDownlink
	}

	bits := make([]byte, len(f.Bits))
	for i := 0; i < len(f.Bits); i++ {
		if f.Bits[i] == '1' {
			bits[i] = 1
		}
	}

	return demod.Frame{
		ID:              f.ID,
		Timestamp:       f.TimestampNs,
		CenterFrequency: f.CenterFrequency,
		Direction:       dir,
		Magnitude:       f.Magnitude,
		Noise:           f.Noise,
		Level:           f.Level,
		Confidence:      f.Confidence,
		Bits:            bits,
		LLR:             f.LLR,
		NPayloadSymbols: f.NPayloadSymbols,
	}
}

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	format := flag.String("format", "cf32", "Front-end sample format (cf32|ci16|ci8); validated only, not interpreted by this binary")
	sampleRate := flag.Float64("sample-rate", 0, "Front-end sample rate in Hz (informational)")
	centerFreq := flag.Float64("center-freq", 0, "Front-end center frequency in Hz (informational)")
	parsed := flag.Bool("parsed", false, "Emit IDA parsed lines (always on; flag kept for CLI compatibility)")
	acarsText := flag.Bool("acars", false, "Suppress RAW stdout lines for ACARS-focused output (ACARS text records are printed with or without this flag)")
	acarsJSON := flag.Bool("acars-json", false, "Emit ACARS JSON records instead of text")
	diagnostic := flag.Bool("diagnostic", false, "Suppress RAW/IDA stdout lines, keep sinks fed")
	mqttEndpoint := flag.String("mqtt-endpoint", "", "MQTT broker URL to publish decoded lines to (e.g. tcp://host:1883)")
	wsAddr := flag.String("ws-addr", "", "Listen address for the map WebSocket feed (e.g. :8070)")
	recordZst := flag.String("record-zst", "", "Path to write a zstd-compressed recording of the decoded line stream")
	stationID := flag.String("station-id", "", "Station identifier attached to ACARS JSON records")
	flag.Parse()

	_ = *parsed
	if demod.ParseSampleFormat(*format) == demod.FormatUnknown {
		log.Fatalf("unknown -format %q: must be cf32, ci16, or ci8", *format)
	}
	_ = *sampleRate
	_ = *centerFreq

	var cfg *config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	} else {
		cfg = &config.Config{}
	}

	if *stationID != "" {
		cfg.Decoder.StationID = *stationID
	}
	if *diagnostic {
		cfg.Decoder.Diagnostic = true
	}
	if *mqttEndpoint != "" {
		cfg.MQTT.Enabled = true
		cfg.MQTT.Broker = *mqttEndpoint
	}
	if *wsAddr != "" {
		cfg.MapFeed.Enabled = true
		cfg.MapFeed.Listen = *wsAddr
	}
	if *recordZst != "" {
		cfg.Recording.Enabled = true
		cfg.Recording.Path = *recordZst
	}

	out := output.NewStream(os.Stdout, "")
	out.StationID = cfg.Decoder.StationID
	out.StrictACARS = cfg.Decoder.Strict
	out.EmitACARSJSON = *acarsJSON
	out.SuppressRaw = cfg.Decoder.Diagnostic || (*acarsText || *acarsJSON)
	out.SuppressIDA = cfg.Decoder.Diagnostic

	if cfg.MQTT.Enabled {
		sink, err := mqttsink.Connect(mqttsink.Config{
			Broker:   cfg.MQTT.Broker,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
			TLS: mqttsink.TLSConfig{
				Enabled:    cfg.MQTT.TLS.Enabled,
				CACert:     cfg.MQTT.TLS.CACert,
				ClientCert: cfg.MQTT.TLS.ClientCert,
				ClientKey:  cfg.MQTT.TLS.ClientKey,
			},
		})
		if err != nil {
			log.Fatalf("connect MQTT sink: %v", err)
		}
		defer sink.Close()
		out.AddSink(sink)
	}

	if cfg.Recording.Enabled {
		rec, err := record.Create(cfg.Recording.Path)
		if err != nil {
			log.Fatalf("open recording: %v", err)
		}
		defer rec.Close()
		out.AddSink(rec)
	}

	var hub *mapfeed.Hub
	if cfg.MapFeed.Enabled {
		bufSize := cfg.MapFeed.BufferSize
		if bufSize == 0 {
			bufSize = 100
		}
		hub = mapfeed.NewHub(bufSize)
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		server := &http.Server{Addr: cfg.MapFeed.Listen, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("mapfeed: server error: %v", err)
			}
		}()
		log.Printf("mapfeed: listening on %s", cfg.MapFeed.Listen)
	}

	m := metrics.New()
	if cfg.Prometheus.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		server := &http.Server{Addr: cfg.Prometheus.Listen, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("prometheus: server error: %v", err)
			}
		}()
		log.Printf("prometheus: listening on %s", cfg.Prometheus.Listen)
	}

	p := pipeline.New(out, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		log.Println("iridium-sniffer: shutting down")
		cancel()
	}()

	runDone := make(chan error, 1)
	go func() {
		runDone <- p.Run(ctx, func(rec acars.Record) {
			if hub != nil {
				hub.Publish(mapfeed.Update{
					Timestamp:    int64(rec.Timestamp),
					Registration: rec.Registration,
					FlightNo:     rec.FlightNo,
					Label:        string(rec.Label[:]),
					Frequency:    rec.Frequency,
					Text:         rec.Text,
					Direction:    rec.Direction.String(),
				})
			}
		})
	}()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var fl frameLine
		if err := json.Unmarshal(line, &fl); err != nil {
			log.Printf("iridium-sniffer: skipping malformed frame line: %v", err)
			continue
		}
		if err := p.Submit(ctx, fl.toFrame()); err != nil {
			break
		}
	}
	p.Close()

	if err := <-runDone; err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "iridium-sniffer: pipeline stopped: %v\n", err)
	}
}
