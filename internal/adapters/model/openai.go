package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ticketlens/ticketlens/internal/core"
	"github.com/ticketlens/ticketlens/internal/logging"
)

const (
	defaultBaseURL      = "https://api.openai.com/v1"
	defaultTimeout      = 120 * time.Second
	maxIdleConns        = 100
	maxConnsPerHost     = 100
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
)

// OpenAIInvoker sends one chat-completion request per Invoke call over a
// pooled HTTP/2 transport. It performs exactly one network attempt;
// retry, backoff, and rate limiting live in the caller.
type OpenAIInvoker struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logging.Logger

	usageMu           sync.Mutex
	totalPromptTokens int64
	totalOutputTokens int64
	calls             int64
}

// Option configures an OpenAIInvoker.
type Option func(*OpenAIInvoker)

// WithBaseURL overrides the API endpoint, for proxies and tests.
func WithBaseURL(url string) Option {
	return func(c *OpenAIInvoker) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *OpenAIInvoker) {
		c.httpClient = client
	}
}

// NewOpenAIInvoker creates an invoker with connection pooling.
func NewOpenAIInvoker(apiKey string, logger *logging.Logger, opts ...Option) *OpenAIInvoker {
	if logger == nil {
		logger = logging.NewNop()
	}
	transport := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxConnsPerHost,
		MaxConnsPerHost:     maxConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
		TLSHandshakeTimeout: tlsHandshakeTimeout,
		ForceAttemptHTTP2:   true,
	}
	c := &OpenAIInvoker{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   defaultTimeout,
		},
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage *usageMetadata `json:"usage,omitempty"`
	Error *apiError      `json:"error,omitempty"`
}

type usageMetadata struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("backend error (%s/%s): %s", e.Type, e.Code, e.Message)
}

// Invoke performs a single chat-completion call and returns the raw
// response with the assistant text pre-extracted.
func (c *OpenAIInvoker) Invoke(ctx context.Context, req core.InvokeRequest) (*core.RawResponse, error) {
	if req.Model == "" {
		return nil, core.ErrValidation("MISSING_MODEL", "invoke request has no model")
	}

	if req.Timeout <= 0 {
		return nil, core.ErrValidation("MISSING_TIMEOUT", "invoke request has no timeout")
	}
	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := chatRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != 0 {
		t := req.Temperature
		payload.Temperature = &t
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, core.ErrValidation("MARSHAL_REQUEST", "encoding invoke request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, core.ErrValidation("BUILD_REQUEST", "building HTTP request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.ErrNetwork("reading response body").WithCause(err)
	}
	duration := time.Since(started)

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	var decoded chatResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, core.ErrUnparseable("backend response is not JSON", string(respBody)).WithCause(err)
	}
	if decoded.Error != nil {
		return nil, core.ErrValidation("BACKEND_REJECTED", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return nil, core.ErrUnparseable("backend response has no choices", string(respBody))
	}

	raw := &core.RawResponse{
		Body:     respBody,
		Text:     decoded.Choices[0].Message.Content,
		Model:    req.Model,
		Duration: duration,
	}
	if decoded.Usage != nil {
		raw.TokensIn = decoded.Usage.PromptTokens
		raw.TokensOut = decoded.Usage.CompletionTokens
	}
	c.recordUsage(decoded.Usage)

	c.logger.WithFlow(req.Flow).Debug("model call completed",
		"model", req.Model,
		"duration", duration.String(),
		"tokens_in", raw.TokensIn,
		"tokens_out", raw.TokensOut,
	)
	return raw, nil
}

// classifyStatus maps HTTP failure statuses onto the domain taxonomy so
// the retry layer can tell transient from terminal.
func classifyStatus(status int, body []byte) error {
	message := fmt.Sprintf("backend returned status %d", status)
	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error != nil {
		message = decoded.Error.Message
	}

	switch {
	case status == http.StatusTooManyRequests:
		return core.ErrRateLimit(message)
	case status >= 500:
		return core.ErrNetwork(message).WithDetail("status", status)
	case status == http.StatusRequestTimeout:
		return core.ErrTimeout(message)
	default:
		return core.ErrValidation("BACKEND_REJECTED", message).WithDetail("status", status)
	}
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrTimeout("model call deadline exceeded").WithCause(err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	// url.Error wraps the deadline when the client timeout fires.
	if strings.Contains(err.Error(), "context deadline exceeded") ||
		strings.Contains(err.Error(), "Client.Timeout") {
		return core.ErrTimeout("model call timed out").WithCause(err)
	}
	return core.ErrNetwork("model call failed").WithCause(err)
}

// UsageStats is the accumulated token usage across all calls.
type UsageStats struct {
	PromptTokens int64 `json:"prompt_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	Calls        int64 `json:"calls"`
}

// Usage returns accumulated usage counters.
func (c *OpenAIInvoker) Usage() UsageStats {
	c.usageMu.Lock()
	defer c.usageMu.Unlock()
	return UsageStats{
		PromptTokens: c.totalPromptTokens,
		OutputTokens: c.totalOutputTokens,
		Calls:        c.calls,
	}
}

func (c *OpenAIInvoker) recordUsage(usage *usageMetadata) {
	c.usageMu.Lock()
	defer c.usageMu.Unlock()
	c.calls++
	if usage != nil {
		c.totalPromptTokens += int64(usage.PromptTokens)
		c.totalOutputTokens += int64(usage.CompletionTokens)
	}
}
