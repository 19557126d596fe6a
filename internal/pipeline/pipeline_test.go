package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alphafox02/iridium-sniffer/internal/demod"
	"github.com/alphafox02/iridium-sniffer/internal/metrics"
	"github.com/alphafox02/iridium-sniffer/internal/output"
	"github.com/stretchr/testify/assert"
)

func TestRunDrainsUntilFramesClosed(t *testing.T) {
	var buf strings.Builder
	out := output.NewStream(&buf, "t")
	p := New(out, metrics.New())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, nil) }()

	for i := 0; i < 5; i++ {
		require := p.Submit(ctx, demod.Frame{
			ID:        uint64(i),
			Timestamp: uint64(i) * 1_000_000,
			Direction: demod.DirDownlink,
			Bits:      make([]byte, 10),
		})
		assert.NoError(t, require)
	}
	p.Close()

	err := <-done
	assert.NoError(t, err)
	assert.Equal(t, 5, strings.Count(buf.String(), "RAW: "))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	var buf strings.Builder
	out := output.NewStream(&buf, "t")
	p := New(out, metrics.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, nil) }()

	cancel()
	err := <-done
	assert.Error(t, err)
}
