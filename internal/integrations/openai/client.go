package openai

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

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"therapy-companion/internal/domain"
	"therapy-companion/internal/integrations/retry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 20 * time.Second
)

// responsesRequest is the request shape for the Responses endpoint.
type responsesRequest struct {
	Model              string           `json:"model"`
	Instructions       string           `json:"instructions,omitempty"`
	Input              []domain.Message `json:"input,omitempty"`
	PreviousResponseID string           `json:"previous_response_id,omitempty"`
	MaxOutputTokens    int              `json:"max_output_tokens,omitempty"`
	Temperature        *float64         `json:"temperature,omitempty"`
}

// KeyFunc resolves the API key. It is called until it first succeeds.
type KeyFunc func(ctx context.Context) (string, error)

// StaticKey returns a KeyFunc for a key already known at startup.
func StaticKey(key string) KeyFunc {
	return func(context.Context) (string, error) {
		key = strings.TrimSpace(key)
		if key == "" {
			return "", errors.New("openai: API key is empty")
		}
		return key, nil
	}
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused client for the OpenAI Responses API. It retries every
// failed attempt with exponential backoff and jitter.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	model           string
	maxOutputTokens int
	temperature     *float64
	retry           retry.Policy
	logger          *zap.Logger

	key    KeyFunc
	keyMu  sync.Mutex
	apiKey string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithSampling sets the output token cap and temperature sent on every request.
func WithSampling(maxOutputTokens int, temperature float64) Option {
	return func(c *Client) {
		c.maxOutputTokens = maxOutputTokens
		c.temperature = &temperature
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client for model. The key is resolved lazily on the
// first completion and reused for the lifetime of the process.
func NewClient(key KeyFunc, model string, opts ...Option) (*Client, error) {
	if key == nil {
		return nil, errors.New("openai: key func must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("openai: model must not be empty")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		model:      model,
		retry:      retry.DefaultPolicy(),
		logger:     zap.NewNop(),
		key:        key,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.BaseDelay <= 0 {
		return nil, errors.New("openai: retry base delay must be positive")
	}
	return c, nil
}

// Model reports the configured model name.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	key, err := c.key(ctx)
	if err != nil {
		return "", err
	}
	c.apiKey = key
	return key, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func responsesURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/responses"
	}
	return base + "/v1/responses"
}

// Complete sends req, retrying failed attempts per the client's retry.Policy.
// A reply with no extractable text is not an error: it yields the busy
// placeholder with Degraded set.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("openai: resolve API key: %w", err)
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return domain.Completion{}, fmt.Errorf("openai: marshal request: %w", err)
	}
	url := responsesURL(c.baseURL)

	op := func() ([]byte, error) {
		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if reqErr != nil {
			return nil, backoff.Permanent(fmt.Errorf("create request: %w", reqErr))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
		return c.doJSONRequest(httpReq, url)
	}

	raw, attempts, err := retry.Do(ctx, c.retry, c.logger, op)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("openai: request failed after %d attempt(s): %w", attempts, err)
	}
	return c.parseCompletion(raw), nil
}

func (c *Client) buildRequest(req domain.CompletionRequest) responsesRequest {
	token := strings.TrimSpace(req.ContinuationToken)
	return responsesRequest{
		Model:              c.model,
		Instructions:       req.Instruction,
		Input:              continuationInput(req.Messages, token),
		PreviousResponseID: token,
		MaxOutputTokens:    c.maxOutputTokens,
		Temperature:        c.temperature,
	}
}

// continuationInput returns the messages to send. With a continuation token
// the server already holds earlier turns, so only messages after the last
// assistant reply are sent. If nothing follows it, the full history is sent.
func continuationInput(messages []domain.Message, token string) []domain.Message {
	if token == "" {
		return messages
	}
	last := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleAssistant {
			last = i
			break
		}
	}
	if tail := messages[last+1:]; len(tail) > 0 {
		return tail
	}
	return messages
}

func (c *Client) parseCompletion(raw []byte) domain.Completion {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn("completion body is not a JSON object", zap.Error(err))
	}
	id := extractResponseID(payload)
	text, ok := extractText(payload)
	if !ok {
		c.logger.Warn("no reply text found in completion", zap.String("response_id", id))
		return domain.Completion{Text: domain.BusyReply, ContinuationToken: id, Degraded: true}
	}
	return domain.Completion{Text: text, ContinuationToken: id}
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
