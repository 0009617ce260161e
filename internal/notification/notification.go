package notification

import (
	"context"
	"log/slog"
)

// Sender delivers a one-time code to a phone number. Delivery is best effort:
// callers log failures and keep going, because the resend path recovers them.
type Sender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// LoggerSender writes codes to the structured logger instead of an SMS
// provider. Stands in until a real gateway is wired up.
type LoggerSender struct {
	logger *slog.Logger
}

// NewLoggerSender constructs a logging delivery stub.
func NewLoggerSender(logger *slog.Logger) *LoggerSender {
	return &LoggerSender{logger: logger}
}

// SendCode writes the code to the structured logger.
func (s *LoggerSender) SendCode(_ context.Context, phone, code string) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Info("otp delivery", "phone", phone, "code", code)
	return nil
}
