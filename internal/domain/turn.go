package domain

// TurnRecord is the persisted metadata of one answered request. Message text is
// never stored.
type TurnRecord struct {
	PK             string
	SK             string
	ConversationID string
	Mode           string
	Submode        string
	ResponseID     string
	Degraded       bool
	ErrorCode      string
	TTL            int64
}

// ConversationMeta stores aggregate conversation state.
type ConversationMeta struct {
	PK             string
	SK             string
	ConversationID string
	LastActivity   string
	TTL            int64
}
