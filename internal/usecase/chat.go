package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"therapy-companion/internal/domain"
	"therapy-companion/internal/prompt"
)

// Completer sends an assembled request to a language model.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

// InstructionAssembler builds the system instruction for a mode and history.
type InstructionAssembler interface {
	Explain(mode domain.Mode, messages []domain.Message) prompt.Assembly
}

// TurnLogger persists metadata about an answered request.
type TurnLogger interface {
	RecordTurn(ctx context.Context, turn domain.TurnRecord) error
}

type ChatService struct {
	assembler InstructionAssembler
	completer Completer
	turns     TurnLogger
	logger    *zap.Logger
}

type ChatOption func(*ChatService)

// WithTurnLogger enables the turn log. Without it nothing is persisted.
func WithTurnLogger(t TurnLogger) ChatOption {
	return func(s *ChatService) {
		s.turns = t
	}
}

func WithLogger(l *zap.Logger) ChatOption {
	return func(s *ChatService) {
		if l != nil {
			s.logger = l
		}
	}
}

type GenerateInput struct {
	Mode              string
	Messages          []RawMessage
	ContinuationToken string
	ConversationID    string
}

type GenerateOutput struct {
	Reply             string
	ContinuationToken string
	ConversationID    string
	Mode              domain.Mode
	Submode           domain.Submode
	// Degraded is set when Reply is a placeholder or an error message.
	Degraded bool
	// Err is the classified failure behind a degraded reply, if any.
	Err *Error
}

func NewChatService(a InstructionAssembler, c Completer, opts ...ChatOption) (*ChatService, error) {
	if a == nil {
		return nil, errors.New("usecase: assembler must not be nil")
	}
	if c == nil {
		return nil, errors.New("usecase: completer must not be nil")
	}
	s := &ChatService{
		assembler: a,
		completer: c,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate answers one chat request. It never fails: transport and upstream
// errors become a user-facing reply with Degraded set.
func (s *ChatService) Generate(ctx context.Context, in GenerateInput) GenerateOutput {
	messages := Normalize(in.Messages)
	asm := s.assembler.Explain(domain.ParseMode(in.Mode), messages)
	token := strings.TrimSpace(in.ContinuationToken)

	convID := strings.TrimSpace(in.ConversationID)
	if convID == "" {
		convID = newUUID()
	}
	out := GenerateOutput{
		ConversationID: convID,
		Mode:           asm.Mode,
		Submode:        asm.Submode,
	}
	logger := s.logger.With(
		zap.String("conversation_id", convID),
		zap.String("mode", string(asm.Mode)),
		zap.String("submode", string(asm.Submode)),
		zap.Int("messages", len(messages)),
		zap.Int("dropped_messages", len(in.Messages)-len(messages)),
	)

	completion, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Instruction:       asm.Instruction,
		Messages:          messages,
		ContinuationToken: token,
	})
	switch {
	case err != nil:
		uerr := classifyCompletionError(err)
		out.Reply = replyFor(uerr)
		// Keep the caller's thread so the next turn can still continue it.
		out.ContinuationToken = token
		out.Degraded = true
		out.Err = uerr
		logger.Error("completion failed",
			zap.String("code", string(uerr.Code)),
			zap.String("reason", uerr.Reason),
			zap.Error(err),
		)
	case completion.Degraded:
		out.Reply = completion.Text
		out.ContinuationToken = completion.ContinuationToken
		out.Degraded = true
		out.Err = newError(ErrorUpstream, "empty_completion", nil)
		logger.Warn("completion had no reply text")
	default:
		out.Reply = completion.Text
		out.ContinuationToken = completion.ContinuationToken
		logger.Info("reply generated", zap.Bool("continued", token != ""))
	}

	s.recordTurn(ctx, logger, out)
	return out
}

// recordTurn logs turn metadata. Failures are logged and otherwise ignored.
func (s *ChatService) recordTurn(ctx context.Context, logger *zap.Logger, out GenerateOutput) {
	if s.turns == nil {
		return
	}
	turn := domain.TurnRecord{
		ConversationID: out.ConversationID,
		Mode:           string(out.Mode),
		Submode:        string(out.Submode),
		ResponseID:     out.ContinuationToken,
		Degraded:       out.Degraded,
	}
	if out.Err != nil {
		turn.ErrorCode = string(out.Err.Code)
	}
	if err := s.turns.RecordTurn(ctx, turn); err != nil {
		logger.Warn("turn log write failed", zap.Error(err))
	}
}

var newUUID = func() string {
	return uuid.NewString()
}
