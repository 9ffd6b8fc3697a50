package email

import (
	"context"
	"log/slog"
)

// DevSender logs emails instead of sending them. Used in development and in
// deployments without Postmark credentials.
type DevSender struct {
	logger *slog.Logger
}

// NewDevSender creates a logging email sender.
func NewDevSender(logger *slog.Logger) *DevSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevSender{logger: logger}
}

func (s *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "dev email sender: email suppressed",
		slog.String("to", params.SendTo),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
	)
	return nil
}
