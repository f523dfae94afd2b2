// Package delivery holds the channel sender implementations wired into the
// dispatcher. The real email/push transports live behind external services;
// this package ships log-only senders for development and as the default
// wiring when no transport credentials are configured.
package delivery

import (
	"context"

	"go.uber.org/zap"
)

// LogEmailSender pretends to deliver email by logging the attempt.
type LogEmailSender struct {
	From   string
	Logger *zap.Logger
}

func NewLogEmailSender(from string, logger *zap.Logger) *LogEmailSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmailSender{From: from, Logger: logger}
}

func (s *LogEmailSender) SendEmail(ctx context.Context, to, subject, body string) bool {
	s.Logger.Info("email delivered (log transport)",
		zap.String("from", s.From),
		zap.String("to", to),
		zap.String("subject", subject))
	return true
}

// LogPushSender pretends to deliver a push message by logging the attempt.
type LogPushSender struct {
	Logger *zap.Logger
}

func NewLogPushSender(logger *zap.Logger) *LogPushSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPushSender{Logger: logger}
}

func (s *LogPushSender) SendPush(ctx context.Context, token, title, body string) bool {
	s.Logger.Info("push delivered (log transport)",
		zap.String("title", title))
	return true
}
