package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskpulse/backend/domain"
)

func TestDispatchRespectsChannelPreferences(t *testing.T) {
	n := domain.Notification{ID: "n1", Kind: domain.KindDueSoon, Message: "m"}

	tests := []struct {
		name      string
		user      domain.User
		wantEmail bool
		wantPush  bool
	}{
		{
			name: "both channels enabled",
			user: domain.User{
				ID: "u1", Email: "u1@example.com", PushToken: "tok",
				Settings: domain.NotificationSettings{EmailEnabled: true, PushEnabled: true},
			},
			wantEmail: true,
			wantPush:  true,
		},
		{
			name: "push only",
			user: domain.User{
				ID: "u1", Email: "u1@example.com", PushToken: "tok",
				Settings: domain.NotificationSettings{PushEnabled: true},
			},
			wantPush: true,
		},
		{
			name: "both disabled",
			user: domain.User{
				ID: "u1", Email: "u1@example.com", PushToken: "tok",
			},
		},
		{
			name: "email enabled but no address",
			user: domain.User{
				ID: "u1", PushToken: "tok",
				Settings: domain.NotificationSettings{EmailEnabled: true, PushEnabled: true},
			},
			wantPush: true,
		},
		{
			name: "push enabled but no token",
			user: domain.User{
				ID: "u1", Email: "u1@example.com",
				Settings: domain.NotificationSettings{EmailEnabled: true, PushEnabled: true},
			},
			wantEmail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := &recordingEmailSender{}
			push := &recordingPushSender{}
			d := NewDispatcher(email, push, nil)

			result := d.Dispatch(context.Background(), n, tt.user)

			assert.Equal(t, tt.wantEmail, result.EmailAttempted)
			assert.Equal(t, tt.wantPush, result.PushAttempted)
			assert.Equal(t, tt.wantEmail, len(email.sent) == 1)
			assert.Equal(t, tt.wantPush, len(push.sent) == 1)
		})
	}
}

func TestDispatchChannelFailureIsolation(t *testing.T) {
	email := &recordingEmailSender{fail: true}
	push := &recordingPushSender{}
	d := NewDispatcher(email, push, nil)

	user := domain.User{
		ID: "u1", Email: "u1@example.com", PushToken: "tok",
		Settings: domain.NotificationSettings{EmailEnabled: true, PushEnabled: true},
	}

	result := d.Dispatch(context.Background(), domain.Notification{ID: "n1", Message: "m"}, user)

	assert.True(t, result.EmailAttempted)
	assert.False(t, result.EmailOK)
	assert.True(t, result.PushAttempted)
	assert.True(t, result.PushOK)
	assert.Len(t, push.sent, 1)
}

func TestDispatchWithoutSenders(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)

	user := domain.User{
		ID: "u1", Email: "u1@example.com", PushToken: "tok",
		Settings: domain.NotificationSettings{EmailEnabled: true, PushEnabled: true},
	}

	result := d.Dispatch(context.Background(), domain.Notification{ID: "n1", Message: "m"}, user)
	assert.Equal(t, DeliveryResult{}, result)
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "Task due soon", subjectFor(domain.Notification{Kind: domain.KindDueSoon}))
	assert.Equal(t, "Task activated", subjectFor(domain.Notification{Kind: domain.KindActivated}))
	assert.Equal(t, "Your daily task summary", subjectFor(domain.Notification{Kind: domain.KindDailySummary}))
	assert.Equal(t, "Task update", subjectFor(domain.Notification{Kind: "something-else"}))
}
