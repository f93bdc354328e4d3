package agent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pdsa-team/pdsa-backend/internal/chatlog"
)

// degradedReplyPrefix starts the reply returned when the application is unavailable.
const degradedReplyPrefix = "抱歉,AI服务暂时不可用。错误信息: "

// ChatLog records chat turns.
type ChatLog interface {
	Append(userMsg, reply, prefix string) error
}

// Service relays chat messages to the conversational application.
type Service struct {
	processor Processor
	log       ChatLog
}

// NewService creates a chat relay.
func NewService(processor Processor, log ChatLog) *Service {
	return &Service{processor: processor, log: log}
}

// Relay forwards message and returns the reply. It never fails: when the
// application cannot answer, the failure is logged and a degraded-service
// reply carrying the cause is returned instead. The turn is always logged.
func (s *Service) Relay(ctx context.Context, message string, history []HistoryTurn) string {
	slog.Debug("Relaying chat message", "message_length", len(message), "history_turns", len(history))

	var reply string
	completion, err := s.processor.Complete(ctx, message)
	if err != nil {
		reason := err.Error()
		var callErr *CallError
		if errors.As(err, &callErr) {
			reason = callErr.Reason()
		}
		slog.Error("Chat relay failed", "error", err)
		if logErr := s.log.Append("", err.Error(), chatlog.ErrorPrefix); logErr != nil {
			slog.Warn("failed to record chat relay error", "error", logErr)
		}
		reply = degradedReplyPrefix + reason
	} else {
		reply = completion.Text
	}

	if logErr := s.log.Append(message, reply, ""); logErr != nil {
		slog.Warn("failed to record chat turn", "error", logErr)
	}
	return reply
}
