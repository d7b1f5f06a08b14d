package usecase

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"
)

// User-facing replies for failed completions.
const (
	replyAuth      = "API 設定有誤，請聯繫開發者。"
	replyRateLimit = "目前使用人數較多，請稍後再試 🙏"
	replyModel     = "模型設定有誤，請聯繫開發者。"
	replyGeneric   = "連線發生錯誤，請稍後再試。\n（錯誤訊息：%s）"

	maxDetailRunes = 200
)

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

// classifyCompletionError maps a completion failure to an Error. HTTP status
// decides when present. Transport failures are upstream errors regardless of
// text, since their message carries the request URL. Anything else is searched
// for the provider's own markers.
func classifyCompletionError(err error) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrorUpstream, "completion_timeout", err)
	}
	msg := strings.ToLower(err.Error())
	if status, ok := upstreamStatusCode(err); ok {
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return newError(ErrorAuth, "completion_auth", err)
		case status == http.StatusTooManyRequests:
			return newError(ErrorRateLimited, "completion_rate_limited", err)
		case status == http.StatusNotFound,
			status == http.StatusBadRequest && strings.Contains(msg, "model"):
			return newError(ErrorModel, "completion_model", err)
		default:
			return newError(ErrorUpstream, "completion_error", err)
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return newError(ErrorUpstream, "completion_error", err)
	}
	switch {
	case strings.Contains(msg, "api_key"), strings.Contains(msg, "api key"), strings.Contains(msg, "authentication"):
		return newError(ErrorAuth, "completion_auth", err)
	case strings.Contains(msg, "rate_limit"):
		return newError(ErrorRateLimited, "completion_rate_limited", err)
	case strings.Contains(msg, "model"):
		return newError(ErrorModel, "completion_model", err)
	default:
		return newError(ErrorUpstream, "completion_error", err)
	}
}

// replyFor returns the message shown to the user for a classified failure.
func replyFor(e *Error) string {
	switch e.Code {
	case ErrorAuth:
		return replyAuth
	case ErrorRateLimited:
		return replyRateLimit
	case ErrorModel:
		return replyModel
	default:
		detail := ""
		if e.Err != nil {
			detail = truncateRunes(e.Err.Error(), maxDetailRunes)
		}
		return fmt.Sprintf(replyGeneric, detail)
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
