package domain

import "time"

// UserRole enumerates account roles on the salon platform.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleStaff    UserRole = "staff"
	RoleCustomer UserRole = "customer"
)

// UserStatus enumerates possible account states. Exactly one status is
// active for a user at any time.
type UserStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusLocked    UserStatus = "locked"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDeleted   UserStatus = "deleted"
)

// TwoFactorStatus enumerates the states of the second-factor lifecycle.
type TwoFactorStatus string

const (
	TwoFactorDisabled TwoFactorStatus = "disabled"
	TwoFactorPending  TwoFactorStatus = "pending"
	TwoFactorEnabled  TwoFactorStatus = "enabled"
)

// User mirrors the persisted representation in the users table.
type User struct {
	ID                 string
	SalonID            *string
	Email              string
	Name               string
	Role               UserRole
	PasswordHash       string
	Status             UserStatus
	EmailVerified      bool
	FailedAttempts     int
	LockedAt           *time.Time
	LockReason         *string
	TwoFactorStatus    TwoFactorStatus
	TwoFactorSecret    *string
	BackupCodeHashes   []string
	TrustedIPs         []string
	RegisteredAt       time.Time
	LastLogin          *time.Time
	LastPasswordChange time.Time
}

// PasswordHistoryEntry tracks historical password hashes for reuse prevention.
type PasswordHistoryEntry struct {
	ID           string
	UserID       string
	PasswordHash string
	SetAt        time.Time
}

// FailedLoginOutcome summarizes a single failed-login transition.
type FailedLoginOutcome struct {
	Locked            bool
	RemainingAttempts int
	RetryAfter        time.Duration
}

// LockExpired reports whether a locked account's lock window has elapsed.
func (u User) LockExpired(at time.Time, lockDuration time.Duration) bool {
	if u.Status != UserStatusLocked || u.LockedAt == nil {
		return false
	}
	return at.After(u.LockedAt.Add(lockDuration))
}

// RegisterFailedLogin applies one failed attempt to the account state machine.
// An account whose lock has expired transitions back to active and the
// triggering failure counts as attempt one.
func (u *User) RegisterFailedLogin(at time.Time, maxAttempts int, lockDuration time.Duration) FailedLoginOutcome {
	if u.Status == UserStatusLocked {
		if !u.LockExpired(at, lockDuration) {
			retry := time.Duration(0)
			if u.LockedAt != nil {
				retry = u.LockedAt.Add(lockDuration).Sub(at)
			}
			return FailedLoginOutcome{Locked: true, RetryAfter: retry}
		}
		u.Unlock()
		u.FailedAttempts = 1
		return FailedLoginOutcome{Locked: false, RemainingAttempts: maxAttempts - 1}
	}

	u.FailedAttempts++
	if u.FailedAttempts >= maxAttempts {
		u.Lock(at, "too many failed login attempts")
		return FailedLoginOutcome{Locked: true, RetryAfter: lockDuration}
	}

	return FailedLoginOutcome{Locked: false, RemainingAttempts: maxAttempts - u.FailedAttempts}
}

// Lock transitions the account into the locked state.
func (u *User) Lock(at time.Time, reason string) {
	lockedAt := at
	u.Status = UserStatusLocked
	u.LockedAt = &lockedAt
	u.LockReason = &reason
}

// Unlock returns a locked account to active and clears lock metadata.
// The failed-attempt counter is reset separately by the caller.
func (u *User) Unlock() {
	if u.Status == UserStatusLocked {
		u.Status = UserStatusActive
	}
	u.LockedAt = nil
	u.LockReason = nil
}

// ResetFailedLogins clears the attempt counter after a successful authentication.
func (u *User) ResetFailedLogins() {
	u.FailedAttempts = 0
}

// HasTrustedIP reports whether ip exactly matches one of the trusted entries.
func (u User) HasTrustedIP(ip string) bool {
	for _, trusted := range u.TrustedIPs {
		if trusted == ip {
			return true
		}
	}
	return false
}

// ConsumeBackupCode removes the backup code with the supplied hash.
// Returns the remaining code count and whether a code was consumed.
func (u *User) ConsumeBackupCode(hash string) (int, bool) {
	for i, stored := range u.BackupCodeHashes {
		if stored == hash {
			u.BackupCodeHashes = append(u.BackupCodeHashes[:i], u.BackupCodeHashes[i+1:]...)
			return len(u.BackupCodeHashes), true
		}
	}
	return len(u.BackupCodeHashes), false
}

// Sanitized returns a copy safe for transport layers (secrets stripped).
func (u User) Sanitized() User {
	copy := u
	copy.PasswordHash = ""
	copy.TwoFactorSecret = nil
	copy.BackupCodeHashes = nil
	return copy
}
