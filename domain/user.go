package domain

import "time"

// User represents an identity that owns tasks and receives notifications.
type User struct {
	ID        string               `json:"id"`
	Email     string               `json:"email,omitempty"`
	Role      string               `json:"role"`
	Status    string               `json:"status"`
	PushToken string               `json:"push_token,omitempty"`
	Settings  NotificationSettings `json:"notification_settings"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func (u *User) IsActive() bool {
	return u != nil && u.Status == "active"
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}

// NotificationSettings holds per-user delivery preferences. The notification
// engine reads them fresh on every evaluation; they are never cached.
type NotificationSettings struct {
	EmailEnabled bool `json:"email_enabled"`
	PushEnabled  bool `json:"push_enabled"`
	DueSoonHours int  `json:"due_soon_hours" validate:"min=1,max=168"`
	DailySummary bool `json:"daily_summary"`
}

// DefaultNotificationSettings returns the settings applied to users who never
// configured their preferences.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		EmailEnabled: true,
		PushEnabled:  true,
		DueSoonHours: 24,
		DailySummary: false,
	}
}

// DueSoonWindow converts the configured threshold into a duration.
func (s NotificationSettings) DueSoonWindow() time.Duration {
	if s.DueSoonHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.DueSoonHours) * time.Hour
}
