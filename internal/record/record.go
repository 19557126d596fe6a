// Package record persists the decoded RAW/IDA line stream to a
// zstd-compressed file for later replay, per spec.md §4.10's optional
// session recording.
//
// Grounded on pcm_binary.go's use of klauspost/compress/zstd: a single
// streaming Encoder wrapping the destination file, speed-tier
// SpeedDefault, flushed on every write so a crash loses at most the
// in-flight line.
package record

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Recorder writes every line handed to it through a zstd stream. It
// implements io.Writer so an output.Stream can attach it with
// AddSink.
type Recorder struct {
	file    *os.File
	encoder *zstd.Encoder
}

// Create opens path (truncating any existing file) and returns a
// Recorder ready to receive lines.
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording file: %w", err)
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}

	return &Recorder{file: f, encoder: enc}, nil
}

// Write compresses p (plus a trailing newline) into the recording and
// flushes immediately so each line is independently recoverable.
func (r *Recorder) Write(p []byte) (int, error) {
	if _, err := r.encoder.Write(p); err != nil {
		return 0, err
	}
	if _, err := r.encoder.Write([]byte("\n")); err != nil {
		return 0, err
	}
	if err := r.encoder.Flush(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close flushes and closes the zstd stream and the underlying file.
func (r *Recorder) Close() error {
	if err := r.encoder.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
