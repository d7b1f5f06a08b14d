// Package gemini is an alternate Completer backed by the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"therapy-companion/internal/domain"
	"therapy-companion/internal/integrations/retry"
)

const defaultModel = "gemini-2.5-flash"

// generator is the subset of *genai.Models used by Client.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// StatusError carries the HTTP status of a failed Gemini call.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client completes chats with generateContent. Gemini keeps no server-side
// thread, so the full history is always sent and the continuation token is
// only the last response id.
type Client struct {
	models          generator
	model           string
	maxOutputTokens int32
	temperature     *float32
	retry           retry.Policy
	logger          *zap.Logger
}

type Option func(*Client)

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithSampling sets the output token cap and temperature sent on every request.
func WithSampling(maxOutputTokens int, temperature float64) Option {
	return func(c *Client) {
		c.maxOutputTokens = int32(maxOutputTokens)
		t := float32(temperature)
		c.temperature = &t
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client for the Gemini Developer API.
func NewClient(ctx context.Context, apiKey, model string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: API key must not be empty")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newClient(gc.Models, model, opts...)
}

func newClient(models generator, model string, opts ...Option) (*Client, error) {
	if models == nil {
		return nil, errors.New("gemini: models must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultModel
	}
	c := &Client{
		models: models,
		model:  model,
		retry:  retry.DefaultPolicy(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.BaseDelay <= 0 {
		return nil, errors.New("gemini: retry base delay must be positive")
	}
	return c, nil
}

// Model reports the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends req, retrying failed attempts per the client's retry.Policy.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	contents := toContents(req.Messages)
	cfg := &genai.GenerateContentConfig{
		Temperature:     c.temperature,
		MaxOutputTokens: c.maxOutputTokens,
	}
	if strings.TrimSpace(req.Instruction) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.Instruction, genai.RoleUser)
	}

	res, attempts, err := retry.Do(ctx, c.retry, c.logger, func() (*genai.GenerateContentResponse, error) {
		res, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
		if err != nil {
			return nil, asStatusError(err)
		}
		return res, nil
	})
	if err != nil {
		return domain.Completion{}, fmt.Errorf("gemini: generate content failed after %d attempt(s): %w", attempts, err)
	}

	text := ""
	id := ""
	if res != nil {
		text = strings.TrimSpace(res.Text())
		id = res.ResponseID
	}
	if text == "" {
		c.logger.Warn("no reply text found in completion", zap.String("response_id", id))
		return domain.Completion{Text: domain.BusyReply, ContinuationToken: id, Degraded: true}, nil
	}
	return domain.Completion{Text: text, ContinuationToken: id}, nil
}

// toContents maps chat turns to Gemini contents; assistant turns use the
// model role.
func toContents(messages []domain.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

// asStatusError converts genai API errors into a StatusError so callers can
// classify them by HTTP status.
func asStatusError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return err
}
