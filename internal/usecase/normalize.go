package usecase

import (
	"bytes"
	"encoding/json"
	"strings"

	"therapy-companion/internal/domain"
)

// RawMessage is one history entry as received from a client. Both fields are
// kept raw so that any JSON value can be coerced instead of failing the
// whole request.
type RawMessage struct {
	Role    json.RawMessage `json:"role"`
	Content json.RawMessage `json:"content"`
}

// NewRawMessage builds a RawMessage from plain strings.
func NewRawMessage(role, content string) RawMessage {
	r, _ := json.Marshal(role)
	c, _ := json.Marshal(content)
	return RawMessage{Role: r, Content: c}
}

// Normalize converts raw history into messages the completion API accepts.
// Content is coerced to text and trimmed; entries left empty are dropped.
// Roles other than user and assistant become user. Order is preserved and
// Normalize never fails. Normalizing its own output is a no-op.
func Normalize(raw []RawMessage) []domain.Message {
	out := make([]domain.Message, 0, len(raw))
	for _, m := range raw {
		content := strings.TrimSpace(coerceText(m.Content))
		if content == "" {
			continue
		}
		out = append(out, domain.Message{Role: coerceRole(m.Role), Content: content})
	}
	return out
}

// FromMessages is the inverse of Normalize for already-clean history.
func FromMessages(messages []domain.Message) []RawMessage {
	out := make([]RawMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, NewRawMessage(string(m.Role), m.Content))
	}
	return out
}

func coerceRole(raw json.RawMessage) domain.Role {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.RoleUser
	}
	switch role := domain.Role(strings.ToLower(strings.TrimSpace(s))); role {
	case domain.RoleUser, domain.RoleAssistant:
		return role
	default:
		return domain.RoleUser
	}
}

// coerceText returns strings verbatim and numbers and booleans as their JSON
// literal. Null, objects and arrays carry no text.
func coerceText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return ""
		}
		if b {
			return "true"
		}
		return "false"
	case 'n', '{', '[':
		return ""
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		return n.String()
	}
}
