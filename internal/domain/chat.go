package domain

// Role tags a conversation turn. Only user and assistant turns are ever sent upstream.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is the provider-agnostic chat turn shared by the normalizer, the
// instruction assembler and the LLM integrations.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is everything a Completer needs for one remote call.
type CompletionRequest struct {
	Instruction       string
	Messages          []Message
	ContinuationToken string
}

// Completion is the extracted reply. Degraded is set when no extractor found
// text and Text holds the busy placeholder instead.
type Completion struct {
	Text              string
	ContinuationToken string
	Degraded          bool
}

// BusyReply is the placeholder reply used when a completion carries no text.
const BusyReply = "（系統繁忙，請稍後再試。）"
