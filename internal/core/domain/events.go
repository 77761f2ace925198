package domain

import "time"

// UserRegisteredEvent represents the payload for auth.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Email        string
	Name         string
	Role         string
	SalonID      *string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// AccountLockedEvent represents the payload for auth.user.locked messages.
type AccountLockedEvent struct {
	EventID        string
	UserID         string
	LockedAt       time.Time
	Reason         string
	FailedAttempts int
	IPAddress      *string
	Metadata       map[string]any
}

// PasswordChangedEvent represents the payload for auth.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID          string
	UserID           string
	ChangedAt        time.Time
	ChangedVia       string
	SessionsRevoked  int
	NotificationSent bool
	Metadata         map[string]any
}

// PasswordResetRequestedEvent represents the payload for auth.user.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID     string
	UserID      string
	RequestID   string
	RequestedAt time.Time
	MaskedEmail string
	IPAddress   *string
	ExpiresAt   time.Time
	Metadata    map[string]any
}

// TwoFactorEnabledEvent represents the payload for auth.user.twofactor.enabled messages.
type TwoFactorEnabledEvent struct {
	EventID     string
	UserID      string
	EnabledAt   time.Time
	BackupCodes int
	Metadata    map[string]any
}

// TwoFactorDisabledEvent represents the payload for auth.user.twofactor.disabled messages.
type TwoFactorDisabledEvent struct {
	EventID    string
	UserID     string
	DisabledAt time.Time
	Metadata   map[string]any
}

// SessionRevokedEvent represents the payload for auth.session.revoked messages.
type SessionRevokedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	RevokedAt time.Time
	RevokedBy string
	Reason    string
	IPAddress *string
	Metadata  map[string]any
}
