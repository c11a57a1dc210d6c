package ai

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Delta is one incremental unit of generated text from the upstream provider.
// Raw is the frame payload exactly as the provider sent it, Content the
// decoded text inside it.
type Delta struct {
	Raw     []byte
	Content string
}

// DeltaStream is a finite, single-pass iterator over an OpenAI-style SSE body.
// It yields only frames that decode to a non-empty content delta; comments,
// blank lines, unparseable frames and empty deltas are discarded. Iteration
// stops at the [DONE] sentinel, a finish_reason, or end of stream.
type DeltaStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	err     error
	done    bool
}

func NewDeltaStream(body io.ReadCloser) *DeltaStream {
	sc := bufio.NewScanner(body)
	// Increase scanner buffer for large chunks
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &DeltaStream{body: body, scanner: sc}
}

// Next returns the next content-bearing delta. ok is false once the stream is
// exhausted; check Completed and Err afterwards to tell a clean end from a
// transport fault.
func (s *DeltaStream) Next() (Delta, bool) {
	if s.done || s.err != nil {
		return Delta{}, false
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			s.done = true
			return Delta{}, false
		}

		var chunk openai.ChatCompletionStreamResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		if chunk.Choices[0].FinishReason != "" {
			s.done = true
		}

		token := chunk.Choices[0].Delta.Content
		if token == "" {
			if s.done {
				return Delta{}, false
			}
			continue
		}
		return Delta{Raw: []byte(data), Content: token}, true
	}

	s.err = s.scanner.Err()
	if s.err == nil {
		// Upstream closed the connection without a sentinel; treat as done.
		s.done = true
	}
	return Delta{}, false
}

// Completed reports whether the stream was read to its end without a
// transport fault.
func (s *DeltaStream) Completed() bool {
	return s.done && s.err == nil
}

func (s *DeltaStream) Err() error {
	return s.err
}

func (s *DeltaStream) Close() error {
	return s.body.Close()
}
