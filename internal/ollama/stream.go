// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxLineSize bounds a single NDJSON line.
const maxLineSize = 4 << 20

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line JSON parsing of streaming responses.
// Lines that are not valid JSON are skipped and logged; the stream goes on.
type StreamReader struct {
	scanner *bufio.Scanner
	logger  *zap.Logger
	warn    rate.Sometimes

	model   string
	lines   int
	skipped int
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader, logger *zap.Logger) *StreamReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &StreamReader{
		scanner: scanner,
		logger:  logger,
		warn:    rate.Sometimes{First: 3, Interval: 5 * time.Second},
	}
}

// Process reads the stream and calls the callback for each chunk. It blocks
// until a done line, the end of the body, an error, or ctx cancellation.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := s.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		callback(chunk)
		if chunk.Done {
			return nil
		}
	}
}

// Next returns the next decoded chunk, skipping blank and malformed lines.
// It returns io.EOF at the end of the body.
func (s *StreamReader) Next() (StreamChunk, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		s.lines++

		var resp GenerateResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			s.skipped++
			s.warn.Do(func() {
				s.logger.Warn("skipping malformed stream line",
					zap.Int("line", s.lines),
					zap.Int("skipped", s.skipped),
					zap.ByteString("data", truncateBytes(line, 120)),
					zap.Error(err))
			})
			continue
		}
		return s.toChunk(resp), nil
	}
	if err := s.scanner.Err(); err != nil {
		return StreamChunk{}, fmt.Errorf("read stream: %w", err)
	}
	return StreamChunk{}, io.EOF
}

func (s *StreamReader) toChunk(resp GenerateResponse) StreamChunk {
	if resp.Model != "" {
		s.model = resp.Model
	}
	chunk := StreamChunk{
		Content:    resp.Response,
		Done:       resp.Done,
		DoneReason: resp.DoneReason,
		Model:      s.model,
	}
	if resp.Done {
		chunk.TotalDuration = time.Duration(resp.TotalDuration)
		chunk.LoadDuration = time.Duration(resp.LoadDuration)
		chunk.PromptEvalDuration = time.Duration(resp.PromptEvalDuration)
		chunk.EvalDuration = time.Duration(resp.EvalDuration)
		chunk.PromptTokens = resp.PromptEvalCount
		chunk.CompletionTokens = resp.EvalCount
	}
	return chunk
}

// Skipped returns how many malformed lines were dropped.
func (s *StreamReader) Skipped() int {
	return s.skipped
}

// Model returns the model name reported by the stream.
func (s *StreamReader) Model() string {
	return s.model
}

func truncateBytes(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// =============================================================================
// STREAM STATISTICS
// =============================================================================

// StreamStats holds statistics collected during streaming.
type StreamStats struct {
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	// Durations reported by Ollama on the final line
	TotalDuration time.Duration
	EvalDuration  time.Duration

	PromptTokens     int
	CompletionTokens int
	Chunks           int

	TTFT            time.Duration
	TokensPerSecond float64
}

// NewStreamStats creates a new StreamStats with start time set.
func NewStreamStats() *StreamStats {
	return &StreamStats{StartTime: time.Now()}
}

// Record notes a chunk, tracking the first-token time and, on the final
// chunk, the server-reported totals.
func (s *StreamStats) Record(chunk StreamChunk) {
	if chunk.Content != "" {
		s.Chunks++
		if s.FirstTokenTime.IsZero() {
			s.FirstTokenTime = time.Now()
			s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
		}
	}
	if chunk.Done {
		s.Finalize(chunk)
	}
}

// Finalize computes final statistics from the last chunk.
func (s *StreamStats) Finalize(chunk StreamChunk) {
	s.EndTime = time.Now()
	s.TotalDuration = chunk.TotalDuration
	s.EvalDuration = chunk.EvalDuration
	s.PromptTokens = chunk.PromptTokens
	s.CompletionTokens = chunk.CompletionTokens
	if s.EvalDuration > 0 {
		s.TokensPerSecond = float64(s.CompletionTokens) / s.EvalDuration.Seconds()
	}
}

// Format returns a one-line summary for the status bar.
func (s *StreamStats) Format() string {
	total := s.TotalDuration
	if total == 0 && !s.EndTime.IsZero() {
		total = s.EndTime.Sub(s.StartTime)
	}
	return fmt.Sprintf("%s | %d tokens | %.1f tok/s | TTFT %dms",
		formatDuration(total), s.CompletionTokens, s.TokensPerSecond, s.TTFT.Milliseconds())
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
