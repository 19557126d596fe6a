// Package pipeline wires the decode stages together: demodulated
// frames flow through IDA burst decode, IDA message reassembly, SBD
// extraction, and ACARS parsing, each stage on its own goroutine
// connected by bounded channels (spec.md §5).
//
// Grounded on the teacher's context.Context-and-goroutine server loop
// conventions (see websocket.go's per-connection goroutines); fan-out
// here is a fixed, fully sequential chain rather than
// per-connection, so it is expressed with golang.org/x/sync/errgroup
// instead of a hand-rolled sync.WaitGroup.
package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/alphafox02/iridium-sniffer/internal/acars"
	"github.com/alphafox02/iridium-sniffer/internal/demod"
	"github.com/alphafox02/iridium-sniffer/internal/idaburst"
	"github.com/alphafox02/iridium-sniffer/internal/metrics"
	"github.com/alphafox02/iridium-sniffer/internal/output"
	"github.com/alphafox02/iridium-sniffer/internal/sbd"
)

// QueueDepth bounds every inter-stage channel. A full queue applies
// backpressure to the frame source rather than growing without limit.
const QueueDepth = 256

// Pipeline owns the decode stages and their connecting channels.
type Pipeline struct {
	tables  *idaburst.Tables
	ida     *idaburst.Reassembler
	sbdR    *sbd.Reassembler
	out     *output.Stream
	metrics *metrics.Metrics

	frames   chan demod.Frame
	bursts   chan idaburst.Burst
	messages chan idaburst.Message
	packets  chan sbd.Packet
}

// New returns a Pipeline ready to Run. out and m must not be nil; m is
// updated whether or not its Prometheus handler is served.
func New(out *output.Stream, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		tables:   idaburst.BuildTables(),
		ida:      idaburst.NewReassembler(),
		sbdR:     sbd.NewReassembler(),
		out:      out,
		metrics:  m,
		frames:   make(chan demod.Frame, QueueDepth),
		bursts:   make(chan idaburst.Burst, QueueDepth),
		messages: make(chan idaburst.Message, QueueDepth),
		packets:  make(chan sbd.Packet, QueueDepth),
	}
}

// Submit hands a frame to the pipeline. It blocks if the frame queue
// is full, applying backpressure to the caller (the SDR front-end).
func (p *Pipeline) Submit(ctx context.Context, f demod.Frame) error {
	select {
	case p.frames <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals no further frames will be submitted.
func (p *Pipeline) Close() { close(p.frames) }

// ACARSHandler receives every ACARS record the pipeline finishes
// decoding, in decode order.
type ACARSHandler func(acars.Record)

// Run drives every decode stage until ctx is cancelled or the frame
// channel is closed and drained. onACARS may be nil.
func (p *Pipeline) Run(ctx context.Context, onACARS ACARSHandler) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.runBurstStage(ctx) })
	g.Go(func() error { return p.runReassemblyStage(ctx) })
	g.Go(func() error { return p.runSBDStage(ctx) })
	g.Go(func() error { return p.runACARSStage(ctx, onACARS) })

	return g.Wait()
}

func (p *Pipeline) runBurstStage(ctx context.Context) error {
	defer close(p.bursts)
	for {
		select {
		case f, ok := <-p.frames:
			if !ok {
				return nil
			}
			p.metrics.FrameSeen(f.Direction.String())
			p.out.WriteRAW(f)

			burst, ok := idaburst.Decode(p.tables, f)
			if !ok {
				p.metrics.BurstRejected(f.Direction.String())
				continue
			}
			p.metrics.BurstDecoded(f.Direction.String())
			p.metrics.BCHErrorsFixed(burst.FixedErrs)
			if burst.DaLen > 0 && !burst.CRCOk {
				p.metrics.CRCFailure()
			}
			p.out.WriteIDA(burst)

			select {
			case p.bursts <- burst:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Pipeline) runReassemblyStage(ctx context.Context) error {
	defer close(p.messages)
	for {
		select {
		case b, ok := <-p.bursts:
			if !ok {
				return nil
			}
			msg, ok := p.ida.Feed(b)
			if !ok {
				continue
			}
			select {
			case p.messages <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Pipeline) runSBDStage(ctx context.Context) error {
	defer close(p.packets)
	for {
		select {
		case msg, ok := <-p.messages:
			if !ok {
				return nil
			}
			pkt, ok := p.sbdR.Extract(msg.Data, msg.Direction, msg.Timestamp, msg.Frequency, msg.Magnitude)
			if !ok {
				continue
			}
			p.metrics.SBDPacket(msg.Direction.String())
			select {
			case p.packets <- pkt:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Pipeline) runACARSStage(ctx context.Context, onACARS ACARSHandler) error {
	for {
		select {
		case pkt, ok := <-p.packets:
			if !ok {
				return nil
			}
			rec, ok := acars.Parse(pkt.Data, pkt.Direction, pkt.Timestamp, pkt.Frequency, pkt.Magnitude)
			if !ok {
				continue
			}
			p.metrics.ACARSRecord(rec.Direction.String())
			if rec.CRCError {
				p.metrics.ACARSCRCError()
			}
			p.out.WriteACARS(rec)
			if onACARS != nil {
				onACARS(rec)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
