package handler

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"therapy-companion/internal/usecase"
)

const (
	chatPath = "/api/chat"

	headerCorrelationID  = "X-Correlation-Id"
	headerIdempotencyKey = "Idempotency-Key"
	headerDegraded       = "X-Reply-Degraded"
	headerReplay         = "X-Idempotent-Replay"
)

// ChatUseCase answers one chat request.
type ChatUseCase interface {
	Generate(ctx context.Context, in usecase.GenerateInput) usecase.GenerateOutput
}

type chatRequest struct {
	Mode               string               `json:"mode"`
	Messages           []usecase.RawMessage `json:"messages"`
	PreviousResponseID string               `json:"previousResponseId"`
	ConversationID     string               `json:"conversationId"`
}

type chatResponse struct {
	Reply          string `json:"reply"`
	ResponseID     string `json:"responseId,omitempty"`
	ConversationID string `json:"conversationId"`
	Mode           string `json:"mode"`
	Submode        string `json:"submode,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// replayEntry is a cached reply together with the body that produced it.
type replayEntry struct {
	bodyHash string
	resp     events.APIGatewayProxyResponse
}

// Handler adapts API Gateway proxy events to the chat use case.
type Handler struct {
	uc      ChatUseCase
	logger  *zap.Logger
	replays *cache.Cache
}

type Option func(*Handler)

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithReplayTTL keeps successful replies for ttl keyed by the
// Idempotency-Key header. A key reused with a different body is rejected with
// 422. A non-positive ttl disables replay.
func WithReplayTTL(ttl time.Duration) Option {
	return func(h *Handler) {
		if ttl <= 0 {
			h.replays = nil
			return
		}
		h.replays = cache.New(ttl, 2*ttl)
	}
}

func NewHandler(uc ChatUseCase, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	h := &Handler{uc: uc, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle serves POST /api/chat. Every reply the use case produces is a 200;
// only malformed requests get an error status.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	corrID := header(req.Headers, headerCorrelationID)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	logger := h.logger.With(
		zap.String("correlation_id", corrID),
		zap.String("method", req.HTTPMethod),
		zap.String("path", req.Path),
	)

	resp := h.route(ctx, req, logger)
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers[headerCorrelationID] = corrID

	logger.Info("request handled",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("degraded", resp.Headers[headerDegraded] == "true"),
		zap.Bool("replayed", resp.Headers[headerReplay] == "true"),
	)
	return resp, nil
}

func (h *Handler) route(ctx context.Context, req events.APIGatewayProxyRequest, logger *zap.Logger) events.APIGatewayProxyResponse {
	if strings.TrimRight(req.Path, "/") != chatPath {
		return errorJSON(http.StatusNotFound, "NOT_FOUND", "no route for "+req.Path)
	}
	if req.HTTPMethod != http.MethodPost {
		resp := errorJSON(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use POST")
		resp.Headers["Allow"] = http.MethodPost
		return resp
	}

	body, err := requestBody(req)
	if err != nil {
		return errorJSON(http.StatusBadRequest, string(usecase.ErrorInvalidInput), "body is not valid base64")
	}

	key := header(req.Headers, headerIdempotencyKey)
	bodyHash := hashBody(body)
	if key != "" && h.replays != nil {
		if cached, ok := h.replays.Get(key); ok {
			entry := cached.(replayEntry)
			if entry.bodyHash != bodyHash {
				logger.Info("idempotency key reused with a different body")
				return errorJSON(http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "idempotency key was already used for a different request")
			}
			resp := entry.resp
			resp.Headers = cloneHeaders(resp.Headers)
			resp.Headers[headerReplay] = "true"
			return resp
		}
	}

	var in chatRequest
	if err := json.Unmarshal(body, &in); err != nil {
		logger.Info("rejected malformed body", zap.Error(err))
		return errorJSON(http.StatusBadRequest, string(usecase.ErrorInvalidInput), "body must be a JSON object with mode and messages")
	}

	out := h.uc.Generate(ctx, usecase.GenerateInput{
		Mode:              in.Mode,
		Messages:          in.Messages,
		ContinuationToken: in.PreviousResponseID,
		ConversationID:    in.ConversationID,
	})
	resp := okJSON(chatResponse{
		Reply:          out.Reply,
		ResponseID:     out.ContinuationToken,
		ConversationID: out.ConversationID,
		Mode:           string(out.Mode),
		Submode:        string(out.Submode),
	})
	if out.Degraded {
		resp.Headers[headerDegraded] = "true"
		return resp
	}
	if key != "" && h.replays != nil {
		cached := resp
		cached.Headers = cloneHeaders(resp.Headers)
		h.replays.SetDefault(key, replayEntry{bodyHash: bodyHash, resp: cached})
	}
	return resp
}

func requestBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	return base64.StdEncoding.DecodeString(req.Body)
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// header looks up name case-insensitively.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func cloneHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func okJSON(v any) events.APIGatewayProxyResponse {
	return jsonResponse(http.StatusOK, v)
}

func errorJSON(status int, code, message string) events.APIGatewayProxyResponse {
	return jsonResponse(status, errorResponse{Error: code, Message: message})
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR","message":"encode response"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
		Body:       string(body),
	}
}
