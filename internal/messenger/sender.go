package messenger

import (
	"context"
	"fmt"

	maxbot "github.com/max-messenger/max-bot-api-client-go"
	"go.uber.org/zap"
)

// Sender delivers a text message to a messenger user.
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

// MaxSender delivers messages through the MAX bot API.
type MaxSender struct {
	api *maxbot.Api
}

// NewMaxSender authenticates the bot token.
func NewMaxSender(token string) (*MaxSender, error) {
	if token == "" {
		return nil, fmt.Errorf("messenger token is empty")
	}
	api, err := maxbot.New(token)
	// The client reports success as an error with an empty message.
	if err != nil && err.Error() != "" {
		return nil, fmt.Errorf("create max api: %w", err)
	}
	return &MaxSender{api: api}, nil
}

// Send posts text to the user's chat.
func (s *MaxSender) Send(ctx context.Context, userID int64, text string) error {
	_, err := s.api.Messages.Send(ctx, maxbot.NewMessage().
		SetUser(userID).
		SetText(text))
	if err != nil && err.Error() != "" {
		return fmt.Errorf("send max message to %d: %w", userID, err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. Used when the messenger is disabled.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(_ context.Context, userID int64, text string) error {
	s.logger.Info("messenger delivery skipped", zap.Int64("messenger_user_id", userID), zap.String("text", text))
	return nil
}
