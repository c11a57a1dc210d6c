package ai

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(s *DeltaStream) []Delta {
	var out []Delta
	for {
		d, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, d)
	}
}

func TestDeltaStream_YieldsContentFramesInOrder(t *testing.T) {
	body := strings.Join([]string{
		": keep-alive",
		"",
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		"",
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		"",
		`data: {"choices":[{"delta":{"content":" world"}}]}`,
		"",
		"data: [DONE]",
		"",
	}, "\n")

	s := NewDeltaStream(io.NopCloser(strings.NewReader(body)))
	deltas := collect(s)

	require.Len(t, deltas, 3)
	assert.Equal(t, "Hel", deltas[0].Content)
	assert.Equal(t, "lo", deltas[1].Content)
	assert.Equal(t, " world", deltas[2].Content)
	assert.Equal(t, `{"choices":[{"delta":{"content":"Hel"}}]}`, string(deltas[0].Raw))
	assert.True(t, s.Completed())
	assert.NoError(t, s.Err())
}

func TestDeltaStream_DiscardsUnusableFrames(t *testing.T) {
	body := strings.Join([]string{
		"data: this is not json",
		"",
		`data: {"choices":[]}`,
		"",
		`data: {"choices":[{"delta":{}}]}`,
		"",
		"event: something-else",
		"",
		`data: {"choices":[{"delta":{"content":"ok"}}]}`,
		"",
		"data: [DONE]",
		"",
	}, "\n")

	s := NewDeltaStream(io.NopCloser(strings.NewReader(body)))
	deltas := collect(s)

	require.Len(t, deltas, 1)
	assert.Equal(t, "ok", deltas[0].Content)
	assert.True(t, s.Completed())
}

func TestDeltaStream_FinishReasonEndsIteration(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"done soon"}}]}`,
		"",
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		"",
		`data: {"choices":[{"delta":{"content":"never seen"}}]}`,
		"",
	}, "\n")

	s := NewDeltaStream(io.NopCloser(strings.NewReader(body)))
	deltas := collect(s)

	require.Len(t, deltas, 1)
	assert.Equal(t, "done soon", deltas[0].Content)
	assert.True(t, s.Completed())
}

func TestDeltaStream_CleanEOFWithoutSentinelCompletes(t *testing.T) {
	body := `data: {"choices":[{"delta":{"content":"partial"}}]}` + "\n"

	s := NewDeltaStream(io.NopCloser(strings.NewReader(body)))
	deltas := collect(s)

	require.Len(t, deltas, 1)
	assert.True(t, s.Completed())
	assert.NoError(t, s.Err())
}

type faultyReader struct {
	data string
	read bool
}

func (r *faultyReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset")
}

func TestDeltaStream_TransportFaultIsNotCompletion(t *testing.T) {
	r := &faultyReader{data: `data: {"choices":[{"delta":{"content":"abc"}}]}` + "\n\n"}
	s := NewDeltaStream(io.NopCloser(r))

	deltas := collect(s)

	require.Len(t, deltas, 1)
	assert.False(t, s.Completed())
	assert.EqualError(t, s.Err(), "connection reset")
}
