package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultTimeout is the per-call timeout for backend requests.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxAttempts is the total attempt budget per call.
	DefaultMaxAttempts = 3
	// RetryInitialInterval is the first backoff delay after a
	// retryable failure.
	RetryInitialInterval = 4 * time.Second
	// RetryMaxInterval caps the backoff delay per attempt.
	RetryMaxInterval = 10 * time.Second
)

// completionBackend is the subset of the completion API the client
// needs (injectable for testing).
type completionBackend interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (recvStream, error)
}

// recvStream is the receive side of a streaming completion.
type recvStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// openaiBackend adapts *openai.Client to completionBackend.
type openaiBackend struct {
	client *openai.Client
}

func (b *openaiBackend) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return b.client.CreateChatCompletion(ctx, req)
}

func (b *openaiBackend) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (recvStream, error) {
	return b.client.CreateChatCompletionStream(ctx, req)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Endpoint is the base URL of the completion backend. Empty means
	// the default public endpoint.
	Endpoint string
	// DefaultModel is used when a request does not name a model.
	DefaultModel string
	// Timeout is the per-call timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
	// MaxAttempts is the total attempt budget per call. Defaults to
	// DefaultMaxAttempts.
	MaxAttempts int
}

// Client performs chat-style completion requests against an LLM
// backend. It owns a CredentialProvider, applies a per-call timeout,
// classifies failures, and retries retryable ones with exponential
// backoff. Safe for concurrent use; one Client is ordinarily shared
// across concurrent refinement tasks.
type Client struct {
	endpoint     string
	defaultModel string
	timeout      time.Duration
	maxAttempts  int
	creds        *CredentialProvider
	logger       zerolog.Logger

	// Injectable for tests.
	newBackend func(cred Credential) completionBackend
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error

	mu         sync.Mutex
	backend    completionBackend
	backendGen uint64
	closed     bool
}

// NewClient creates a Client that resolves credentials through creds.
func NewClient(creds *CredentialProvider, cfg ClientConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Client{
		endpoint:     cfg.Endpoint,
		defaultModel: cfg.DefaultModel,
		timeout:      timeout,
		maxAttempts:  maxAttempts,
		creds:        creds,
		logger:       logger.With().Str("component", "gatewayClient").Logger(),
		newBackend:   newOpenAIBackend(cfg.Endpoint),
		now:          time.Now,
		sleep:        sleepContext,
	}
}

// newOpenAIBackend returns the production backend factory.
func newOpenAIBackend(endpoint string) func(Credential) completionBackend {
	return func(cred Credential) completionBackend {
		cfg := openai.DefaultConfig(cred.Value)
		if endpoint != "" {
			cfg.BaseURL = endpoint
		}
		return &openaiBackend{client: openai.NewClientWithConfig(cfg)}
	}
}

// sleepContext waits for the delay, respecting context cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ensureBackend returns a backend built for the current credential,
// rebuilding it lazily on first use or after a credential change.
func (c *Client) ensureBackend(ctx context.Context) (completionBackend, error) {
	cred, err := c.creds.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	gen := c.creds.Generation()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, NewGatewayError("client is closed", 0, "", nil)
	}
	if c.backend == nil || c.backendGen != gen {
		c.backend = c.newBackend(cred)
		c.backendGen = gen
	}
	return c.backend, nil
}

// ChatCompletion sends a completion request, retrying transient backend
// failures with exponential backoff. The total attempt budget is
// MaxAttempts; exhausting it surfaces the last retryable failure as a
// final gateway error. Authentication and other non-retryable failures
// are never retried.
func (c *Client) ChatCompletion(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, NewGatewayError("request is required", 0, "", nil)
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	if model == "" {
		return nil, NewGatewayError("model is required", 0, "", nil)
	}

	requestID := fmt.Sprintf("req_%d", c.now().UnixNano())
	bo := newRetryBackoff()

	c.logger.Info().
		Str("request_id", requestID).
		Str("model", model).
		Int("message_count", len(req.Messages)).
		Msg("Starting chat completion request")

	start := c.now()
	for attempt := 1; ; attempt++ {
		c.creds.RefreshIfStale(ctx)

		backend, err := c.ensureBackend(ctx)
		if err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		chatResp, err := backend.CreateChatCompletion(callCtx, toOpenAIRequest(req, model))
		cancel()

		if err == nil {
			resp, convErr := fromOpenAIResponse(chatResp, requestID)
			if convErr != nil {
				return nil, convErr
			}
			c.logger.Info().
				Str("request_id", requestID).
				Dur("duration", c.now().Sub(start)).
				Int64("input_tokens", resp.Usage.InputTokens).
				Int64("output_tokens", resp.Usage.OutputTokens).
				Msg("Chat completion request completed")
			return resp, nil
		}

		gerr := classifyError(err, requestID)
		if !IsRetryableError(gerr) {
			c.logger.Error().
				Str("request_id", requestID).
				Dur("duration", c.now().Sub(start)).
				Err(gerr).
				Msg("Chat completion request failed")
			return nil, gerr
		}

		if attempt >= c.maxAttempts {
			var last *Error
			errors.As(gerr, &last)
			c.logger.Error().
				Str("request_id", requestID).
				Int("attempts", attempt).
				Err(gerr).
				Msg("Retry budget exhausted")
			return nil, NewGatewayError(
				fmt.Sprintf("retry budget exhausted after %d attempts", attempt),
				last.StatusCode, requestID, gerr)
		}

		delay := bo.NextBackOff()
		if hint := ExtractRetryAfter(gerr); hint != nil {
			delay = clampDelay(*hint)
		}
		c.logger.Warn().
			Str("request_id", requestID).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(gerr).
			Msg("Retryable failure; backing off")

		if err := c.sleep(ctx, delay); err != nil {
			// Cancelled while waiting; never silently retried.
			return nil, NewGatewayError("request cancelled during backoff", 0, requestID, err)
		}
	}
}

// StreamChatCompletion sends a streaming completion request. The
// returned stream is finite and not restartable; a mid-stream failure
// surfaces a gateway error and partial streams are never retried.
func (c *Client) StreamChatCompletion(ctx context.Context, req *Request) (Stream, error) {
	if req == nil {
		return nil, NewGatewayError("request is required", 0, "", nil)
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	if model == "" {
		return nil, NewGatewayError("model is required", 0, "", nil)
	}

	requestID := fmt.Sprintf("stream_req_%d", c.now().UnixNano())

	c.creds.RefreshIfStale(ctx)
	backend, err := c.ensureBackend(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("request_id", requestID).
		Str("model", model).
		Int("message_count", len(req.Messages)).
		Msg("Starting streaming chat completion request")

	openaiReq := toOpenAIRequest(req, model)
	openaiReq.Stream = true
	stream, err := backend.CreateChatCompletionStream(ctx, openaiReq)
	if err != nil {
		return nil, classifyError(err, requestID)
	}

	return newCompletionStream(stream, requestID, c.logger), nil
}

// Close releases the underlying connection and discards the cached
// credential. It is idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.backend = nil
	c.creds.Invalidate()
	c.logger.Info().Msg("Gateway client closed")
}

// newRetryBackoff builds the delay source for the retry loop. The
// randomization factor is zero so every delay lands exactly in
// [RetryInitialInterval, RetryMaxInterval].
func newRetryBackoff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = RetryInitialInterval
	eb.MaxInterval = RetryMaxInterval
	eb.Multiplier = 2.0
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}

// clampDelay bounds a backend retry-after hint to the retry window.
func clampDelay(d time.Duration) time.Duration {
	if d < RetryInitialInterval {
		return RetryInitialInterval
	}
	if d > RetryMaxInterval {
		return RetryMaxInterval
	}
	return d
}

// classifyError converts a backend failure into a typed gateway error.
// Statuses 429, 500, 502, 503 and 504 are retryable; everything else is
// a fatal gateway error carrying the status code and request ID.
func classifyError(err error, requestID string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewGatewayError("request cancelled or timed out", 0, requestID, err)
	}

	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return NewGatewayError("unexpected backend error", 0, requestID, err)
	}

	switch apiErr.HTTPStatusCode {
	case 429, 500, 502, 503, 504:
		// The SDK does not surface the Retry-After header, so the hint
		// stays empty and the backoff policy governs the delay.
		return NewRetryableError(
			fmt.Sprintf("retryable backend error %d", apiErr.HTTPStatusCode),
			apiErr.HTTPStatusCode, nil, err)
	default:
		return NewGatewayError(
			fmt.Sprintf("backend error %d", apiErr.HTTPStatusCode),
			apiErr.HTTPStatusCode, requestID, err)
	}
}

// toOpenAIRequest converts a Request to the backend wire format.
func toOpenAIRequest(req *Request, model string) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = int(req.MaxTokens)
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	return chatReq
}

// fromOpenAIResponse converts a backend response to a Response.
func fromOpenAIResponse(chatResp openai.ChatCompletionResponse, requestID string) (*Response, error) {
	if len(chatResp.Choices) == 0 {
		return nil, NewGatewayError("no choices in response", 0, requestID, nil)
	}
	choice := chatResp.Choices[0]
	return &Response{
		Text: choice.Message.Content,
		Usage: &Usage{
			InputTokens:  int64(chatResp.Usage.PromptTokens),
			OutputTokens: int64(chatResp.Usage.CompletionTokens),
		},
		StopReason: string(choice.FinishReason),
		RequestID:  requestID,
	}, nil
}
