package gateway

// MessageRole represents the role of a message in a conversation.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    MessageRole
	Content string
}

// Request represents a complete chat completion request.
// Build it once and treat it as immutable; the client never mutates it.
type Request struct {
	Model       string
	Messages    []Message
	System      string
	MaxTokens   int64
	Temperature *float64 // Optional temperature override
}

// Response represents a complete chat completion response.
type Response struct {
	Text       string
	Usage      *Usage
	StopReason string
	RequestID  string
}

// Usage represents token usage information from a completion response.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// StreamEvent represents a single event produced by a streaming
// completion. The stream ends with an event whose Done flag is set.
type StreamEvent struct {
	Type  StreamEventType
	Text  string // Text delta for content events
	Usage *Usage
	Done  bool
}

// StreamEventType represents the type of streaming event.
type StreamEventType string

const (
	StreamEventTypeStart        StreamEventType = "start"
	StreamEventTypeContentDelta StreamEventType = "content_delta"
	StreamEventTypeStop         StreamEventType = "stop"
)

// NewTextMessage creates a new message with text content.
func NewTextMessage(role MessageRole, text string) Message {
	return Message{Role: role, Content: text}
}
