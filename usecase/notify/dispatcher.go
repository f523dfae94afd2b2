package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskpulse/backend/domain"
)

// EmailSender delivers an email best-effort. Implementations capture their own
// errors and report success as a boolean; they never panic or propagate.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) bool
}

// PushSender delivers a push message best-effort through a device token.
type PushSender interface {
	SendPush(ctx context.Context, token, title, body string) bool
}

// DeliveryResult records which channels were attempted and which succeeded.
type DeliveryResult struct {
	EmailAttempted bool
	EmailOK        bool
	PushAttempted  bool
	PushOK         bool
}

// Dispatcher fans a stored notification out to the channels the user enabled.
// Channels are independent: one failing never blocks the other, and nothing
// here touches the already-committed Notification row. No retries; delivery is
// at-most-once per channel per event.
type Dispatcher struct {
	email  EmailSender
	push   PushSender
	logger *zap.Logger
}

func NewDispatcher(email EmailSender, push PushSender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		email:  email,
		push:   push,
		logger: logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, n domain.Notification, user domain.User) DeliveryResult {
	var result DeliveryResult

	if user.Settings.EmailEnabled && d.email != nil && user.Email != "" {
		result.EmailAttempted = true
		result.EmailOK = d.email.SendEmail(ctx, user.Email, subjectFor(n), n.Message)
		if !result.EmailOK {
			d.logger.Warn("email delivery failed",
				zap.String("notification_id", n.ID),
				zap.String("user_id", user.ID))
		}
	}

	if user.Settings.PushEnabled && d.push != nil && user.PushToken != "" {
		result.PushAttempted = true
		result.PushOK = d.push.SendPush(ctx, user.PushToken, subjectFor(n), n.Message)
		if !result.PushOK {
			d.logger.Warn("push delivery failed",
				zap.String("notification_id", n.ID),
				zap.String("user_id", user.ID))
		}
	}

	return result
}

func subjectFor(n domain.Notification) string {
	switch n.Kind {
	case domain.KindDueSoon:
		return "Task due soon"
	case domain.KindActivated:
		return "Task activated"
	case domain.KindDailySummary:
		return "Your daily task summary"
	case domain.KindComment:
		return "New comment"
	case domain.KindProject:
		return "Project update"
	default:
		return "Task update"
	}
}
