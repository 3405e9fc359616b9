package gateway

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
)

// Stream represents a streaming completion response. It is finite and
// not restartable: it ends when the backend closes the stream, and a
// mid-stream failure surfaces through Err as a gateway error.
type Stream interface {
	// Next advances to the next event. It returns false when the
	// stream is exhausted or an error occurred.
	Next() bool

	// Event returns the current event. Only valid after Next returns
	// true.
	Event() *StreamEvent

	// Err returns any error that occurred during streaming.
	Err() error

	// Close closes the stream and releases resources.
	Close() error
}

// completionStream implements Stream over a backend receive stream.
type completionStream struct {
	recv      recvStream
	requestID string
	logger    zerolog.Logger

	event   *StreamEvent
	usage   *Usage
	err     error
	started bool
	done    bool
}

func newCompletionStream(recv recvStream, requestID string, logger zerolog.Logger) *completionStream {
	return &completionStream{
		recv:      recv,
		requestID: requestID,
		logger:    logger,
	}
}

// Next implements Stream.Next.
func (s *completionStream) Next() bool {
	if s.err != nil || s.done {
		return false
	}

	if !s.started {
		s.started = true
		s.event = &StreamEvent{Type: StreamEventTypeStart}
		return true
	}

	for {
		resp, err := s.recv.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.done = true
				s.event = &StreamEvent{Type: StreamEventTypeStop, Usage: s.usage, Done: true}
				return true
			}
			s.logger.Error().Str("request_id", s.requestID).Err(err).Msg("Streaming chat completion failed")
			s.err = NewGatewayError("streaming failed", 0, s.requestID, err)
			return false
		}

		if resp.Usage != nil && resp.Usage.TotalTokens > 0 {
			s.usage = &Usage{
				InputTokens:  int64(resp.Usage.PromptTokens),
				OutputTokens: int64(resp.Usage.CompletionTokens),
			}
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			// Finish-reason-only chunk; keep reading until EOF.
			continue
		}

		s.event = &StreamEvent{Type: StreamEventTypeContentDelta, Text: delta}
		return true
	}
}

// Event implements Stream.Event.
func (s *completionStream) Event() *StreamEvent {
	return s.event
}

// Err implements Stream.Err.
func (s *completionStream) Err() error {
	return s.err
}

// Close implements Stream.Close.
func (s *completionStream) Close() error {
	s.done = true
	if s.recv != nil {
		return s.recv.Close()
	}
	return nil
}

var _ Stream = (*completionStream)(nil)
