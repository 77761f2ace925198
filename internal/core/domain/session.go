package domain

import "time"

// Session represents one authenticated browser or device session. The
// refresh token is stored hashed and replaced on every refresh.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	IPAddress        *string
	UserAgent        *string
	CreatedAt        time.Time
	LastActivity     time.Time
	ExpiresAt        time.Time
}

// IsExpired reports whether the session has elapsed its validity window.
func (s Session) IsExpired(at time.Time) bool {
	return !s.ExpiresAt.After(at)
}

// RotateRefreshToken installs the replacement refresh-token hash and bumps
// the activity timestamp. The previous hash stops resolving this session.
func (s *Session) RotateRefreshToken(hash string, at time.Time) {
	s.RefreshTokenHash = hash
	s.LastActivity = at
}

// Touch updates activity metadata for the session when it is used.
func (s *Session) Touch(at time.Time, ip, userAgent *string) {
	s.LastActivity = at
	if ip != nil {
		ipCopy := *ip
		s.IPAddress = &ipCopy
	}
	if userAgent != nil {
		uaCopy := *userAgent
		s.UserAgent = &uaCopy
	}
}
