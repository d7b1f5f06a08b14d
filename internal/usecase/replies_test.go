package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"therapy-companion/internal/integrations/openai"
)

func TestClassifyCompletionError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   ErrorCode
		reason string
	}{
		{"401", &openai.HTTPStatusError{StatusCode: http.StatusUnauthorized}, ErrorAuth, "completion_auth"},
		{"403", &openai.HTTPStatusError{StatusCode: http.StatusForbidden}, ErrorAuth, "completion_auth"},
		{"429", &openai.HTTPStatusError{StatusCode: http.StatusTooManyRequests}, ErrorRateLimited, "completion_rate_limited"},
		{"404", &openai.HTTPStatusError{StatusCode: http.StatusNotFound}, ErrorModel, "completion_model"},
		{"400 model", &openai.HTTPStatusError{StatusCode: http.StatusBadRequest, Body: `{"error":{"message":"The model 'gpt-x' does not exist"}}`}, ErrorModel, "completion_model"},
		{"400 other", &openai.HTTPStatusError{StatusCode: http.StatusBadRequest, Body: `{"error":"bad input"}`}, ErrorUpstream, "completion_error"},
		{"500", &openai.HTTPStatusError{StatusCode: http.StatusInternalServerError}, ErrorUpstream, "completion_error"},
		{"wrapped status", fmt.Errorf("openai: request failed: %w", &openai.HTTPStatusError{StatusCode: http.StatusTooManyRequests}), ErrorRateLimited, "completion_rate_limited"},
		{"api key text", errors.New("missing api_key"), ErrorAuth, "completion_auth"},
		{"authentication text", errors.New("Authentication failed"), ErrorAuth, "completion_auth"},
		{"rate limit text", errors.New("rate_limit_exceeded"), ErrorRateLimited, "completion_rate_limited"},
		{"model text", errors.New("unknown model"), ErrorModel, "completion_model"},
		{"network", errors.New("dial tcp: connection refused"), ErrorUpstream, "completion_error"},
		{"canceled", fmt.Errorf("openai: %w", context.Canceled), ErrorUpstream, "completion_timeout"},
		{"deadline", context.DeadlineExceeded, ErrorUpstream, "completion_timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyCompletionError(tc.err)
			require.Equal(t, tc.code, got.Code)
			require.Equal(t, tc.reason, got.Reason)
			require.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassifyCompletionError_TransportFailureNamingModelURL(t *testing.T) {
	err := fmt.Errorf("gemini: generate content failed after 1 attempt(s): %w",
		fmt.Errorf("doRequest: error sending request: %w", &url.Error{
			Op:  "Post",
			URL: "http://127.0.0.1:1/v1beta/models/gemini-2.5-flash:generateContent",
			Err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused"),
		}))

	got := classifyCompletionError(err)
	require.Equal(t, ErrorUpstream, got.Code)
	require.Equal(t, "completion_error", got.Reason)

	reply := replyFor(got)
	require.NotEqual(t, replyModel, reply)
	require.True(t, strings.HasPrefix(reply, "連線發生錯誤，請稍後再試。"), reply)
	require.Contains(t, reply, "doRequest: error sending request")
}

func TestReplyFor(t *testing.T) {
	require.Equal(t, "API 設定有誤，請聯繫開發者。", replyFor(newError(ErrorAuth, "x", nil)))
	require.Equal(t, "目前使用人數較多，請稍後再試 🙏", replyFor(newError(ErrorRateLimited, "x", nil)))
	require.Equal(t, "模型設定有誤，請聯繫開發者。", replyFor(newError(ErrorModel, "x", nil)))
	require.Equal(t,
		"連線發生錯誤，請稍後再試。\n（錯誤訊息：dial tcp: connection refused）",
		replyFor(newError(ErrorUpstream, "completion_error", errors.New("dial tcp: connection refused"))),
	)
	require.Equal(t, "連線發生錯誤，請稍後再試。\n（錯誤訊息：）", replyFor(newError(ErrorUpstream, "x", nil)))
}

func TestReplyFor_TruncatesLongDetail(t *testing.T) {
	detail := strings.Repeat("錯", 500)
	got := replyFor(newError(ErrorUpstream, "completion_error", errors.New(detail)))
	require.Contains(t, got, strings.Repeat("錯", maxDetailRunes)+"…）")
	require.NotContains(t, got, strings.Repeat("錯", maxDetailRunes+1))
}
