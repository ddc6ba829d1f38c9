package email

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// NoopSender logs instead of delivering. Used when no provider key is configured.
type NoopSender struct {
	logger *zap.Logger
}

// NewNoopSender creates a logging-only sender.
func NewNoopSender(logger *zap.Logger) *NoopSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopSender{logger: logger}
}

// Send logs the email.
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	now := time.Now()
	s.logger.Info("email not sent (noop sender)", zap.Strings("to", req.To), zap.String("subject", req.Subject))
	return SendResult{MessageID: fmt.Sprintf("noop-%d", now.UnixNano()), SentAt: now}, nil
}
