package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"therapy-companion/internal/domain"
	"therapy-companion/internal/usecase"
)

type stubUseCase struct {
	out   usecase.GenerateOutput
	in    usecase.GenerateInput
	calls int
}

func (s *stubUseCase) Generate(_ context.Context, in usecase.GenerateInput) usecase.GenerateOutput {
	s.calls++
	s.in = in
	return s.out
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/chat",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func okOutput() usecase.GenerateOutput {
	return usecase.GenerateOutput{
		Reply:             "我在這裡。",
		ContinuationToken: "resp_1",
		ConversationID:    "conv-1",
		Mode:              domain.ModeAnalytic,
		Submode:           domain.SubmodeDreams,
	}
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_HappyPath(t *testing.T) {
	uc := &stubUseCase{out: okOutput()}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{
		"mode":"analytic",
		"messages":[{"role":"user","content":"我夢到海"}],
		"previousResponseId":"resp_0",
		"conversationId":"conv-1"
	}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "analytic", uc.in.Mode)
	require.Equal(t, "resp_0", uc.in.ContinuationToken)
	require.Equal(t, "conv-1", uc.in.ConversationID)
	require.Equal(t, []domain.Message{{Role: domain.RoleUser, Content: "我夢到海"}}, usecase.Normalize(uc.in.Messages))

	out := parseBody[chatResponse](t, resp.Body)
	require.Equal(t, chatResponse{
		Reply:          "我在這裡。",
		ResponseID:     "resp_1",
		ConversationID: "conv-1",
		Mode:           "analytic",
		Submode:        "dreams",
	}, out)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
	require.NotContains(t, resp.Headers, "X-Reply-Degraded")
}

func TestHandle_OmitsEmptyOptionalFields(t *testing.T) {
	uc := &stubUseCase{out: usecase.GenerateOutput{Reply: "ok", ConversationID: "c", Mode: domain.ModeSupport}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"mode":"support","messages":[]}`))
	require.NoError(t, err)
	require.NotContains(t, resp.Body, "responseId")
	require.NotContains(t, resp.Body, "submode")
}

func TestHandle_DegradedReplyIsStill200(t *testing.T) {
	out := okOutput()
	out.Reply = "目前使用人數較多，請稍後再試 🙏"
	out.Degraded = true
	out.Err = &usecase.Error{Code: usecase.ErrorRateLimited, Reason: "completion_rate_limited"}
	h, err := NewHandler(&stubUseCase{out: out})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"mode":"support","messages":[]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "true", resp.Headers["X-Reply-Degraded"])
	require.Equal(t, out.Reply, parseBody[chatResponse](t, resp.Body).Reply)
}

func TestHandle_InvalidBody(t *testing.T) {
	cases := map[string]string{
		"not json":             `not-json`,
		"messages wrong shape": `{"mode":"support","messages":"hi"}`,
		"array body":           `[1,2]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			uc := &stubUseCase{}
			h, err := NewHandler(uc)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeEvent(body))
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, 0, uc.calls)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
			require.NotEmpty(t, out.Message)
		})
	}
}

func TestHandle_Base64Body(t *testing.T) {
	uc := &stubUseCase{out: okOutput()}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	event := makeEvent(base64.StdEncoding.EncodeToString([]byte(`{"mode":"cbt","messages":[]}`)))
	event.IsBase64Encoded = true
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "cbt", uc.in.Mode)

	event.Body = "%%%"
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandle_Routing(t *testing.T) {
	h, err := NewHandler(&stubUseCase{out: okOutput()})
	require.NoError(t, err)

	event := makeEvent(`{}`)
	event.Path = "/ask"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	event = makeEvent(``)
	event.HTTPMethod = http.MethodGet
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Equal(t, http.MethodPost, resp.Headers["Allow"])
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])

	event = makeEvent(`{}`)
	event.Path = "/api/chat/"
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h, err := NewHandler(&stubUseCase{out: okOutput()})
	require.NoError(t, err)

	event := makeEvent(`{"mode":"support"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}

func TestHandle_IdempotencyKeyReplaysSuccessfulReply(t *testing.T) {
	uc := &stubUseCase{out: okOutput()}
	h, err := NewHandler(uc, WithReplayTTL(time.Minute))
	require.NoError(t, err)

	event := makeEvent(`{"mode":"analytic","messages":[]}`)
	event.Headers["idempotency-key"] = "key-1"

	first, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	second, err := h.Handle(context.Background(), event)
	require.NoError(t, err)

	require.Equal(t, 1, uc.calls)
	require.Equal(t, first.Body, second.Body)
	require.Equal(t, "true", second.Headers["X-Idempotent-Replay"])
	require.NotContains(t, first.Headers, "X-Idempotent-Replay")
	require.NotEqual(t, first.Headers["X-Correlation-Id"], second.Headers["X-Correlation-Id"])

	event.Headers["idempotency-key"] = "key-2"
	_, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, 2, uc.calls)
}

func TestHandle_IdempotencyKeyReusedWithDifferentBody(t *testing.T) {
	uc := &stubUseCase{out: okOutput()}
	h, err := NewHandler(uc, WithReplayTTL(time.Minute))
	require.NoError(t, err)

	first := makeEvent(`{"mode":"analytic","messages":[{"role":"user","content":"我夢見海"}]}`)
	first.Headers["Idempotency-Key"] = "key-1"
	_, err = h.Handle(context.Background(), first)
	require.NoError(t, err)

	second := makeEvent(`{"mode":"analytic","messages":[{"role":"user","content":"我想結束治療"}]}`)
	second.Headers["Idempotency-Key"] = "key-1"
	resp, err := h.Handle(context.Background(), second)
	require.NoError(t, err)

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "IDEMPOTENCY_KEY_REUSED", parseBody[errorResponse](t, resp.Body).Error)
	require.NotContains(t, resp.Headers, "X-Idempotent-Replay")
	require.Equal(t, 1, uc.calls)

	again, err := h.Handle(context.Background(), first)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, again.StatusCode)
	require.Equal(t, "true", again.Headers["X-Idempotent-Replay"])
}

func TestHandle_IdempotencyKeyDoesNotCacheDegradedReply(t *testing.T) {
	out := okOutput()
	out.Degraded = true
	uc := &stubUseCase{out: out}
	h, err := NewHandler(uc, WithReplayTTL(time.Minute))
	require.NoError(t, err)

	event := makeEvent(`{"mode":"support"}`)
	event.Headers["Idempotency-Key"] = "key-1"
	for range 2 {
		_, err := h.Handle(context.Background(), event)
		require.NoError(t, err)
	}
	require.Equal(t, 2, uc.calls)
}

func TestHandle_NoReplayWithoutTTL(t *testing.T) {
	uc := &stubUseCase{out: okOutput()}
	h, err := NewHandler(uc, WithReplayTTL(0))
	require.NoError(t, err)

	event := makeEvent(`{"mode":"support"}`)
	event.Headers["Idempotency-Key"] = "key-1"
	for range 2 {
		_, err := h.Handle(context.Background(), event)
		require.NoError(t, err)
	}
	require.Equal(t, 2, uc.calls)
}
