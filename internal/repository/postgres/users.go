package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avereux/salon-auth/internal/core/domain"
	"github.com/avereux/salon-auth/internal/repository"
)

var userColumns = []string{
	"id",
	"salon_id",
	"email",
	"name",
	"role",
	"password_hash",
	"status",
	"email_verified",
	"failed_attempts",
	"locked_at",
	"lock_reason",
	"two_factor_status",
	"two_factor_secret",
	"backup_code_hashes",
	"trusted_ips",
	"registered_at",
	"last_login",
	"last_password_change",
}

// UserRepository implements port.UserRepository backed by PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	repo := &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	backupCodes := user.BackupCodeHashes
	if backupCodes == nil {
		backupCodes = []string{}
	}
	trustedIPs := user.TrustedIPs
	if trustedIPs == nil {
		trustedIPs = []string{}
	}

	query := r.builder.Insert("salon.users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.SalonID,
			user.Email,
			user.Name,
			user.Role,
			user.PasswordHash,
			user.Status,
			user.EmailVerified,
			user.FailedAttempts,
			user.LockedAt,
			user.LockReason,
			user.TwoFactorStatus,
			user.TwoFactorSecret,
			backupCodes,
			trustedIPs,
			user.RegisteredAt,
			user.LastLogin,
			user.LastPasswordChange,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("salon.users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("salon.users").
		Where(squirrel.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by email sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user by email: %w", err)
	}

	return user, nil
}

// Update replaces every mutable column of an existing user row.
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	backupCodes := user.BackupCodeHashes
	if backupCodes == nil {
		backupCodes = []string{}
	}
	trustedIPs := user.TrustedIPs
	if trustedIPs == nil {
		trustedIPs = []string{}
	}

	stmt, args, err := r.builder.Update("salon.users").
		Set("salon_id", user.SalonID).
		Set("email", user.Email).
		Set("name", user.Name).
		Set("role", user.Role).
		Set("password_hash", user.PasswordHash).
		Set("status", user.Status).
		Set("email_verified", user.EmailVerified).
		Set("failed_attempts", user.FailedAttempts).
		Set("locked_at", user.LockedAt).
		Set("lock_reason", user.LockReason).
		Set("two_factor_status", user.TwoFactorStatus).
		Set("two_factor_secret", user.TwoFactorSecret).
		Set("backup_code_hashes", backupCodes).
		Set("trusted_ips", trustedIPs).
		Set("last_login", user.LastLogin).
		Set("last_password_change", user.LastPasswordChange).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListPasswordHistory returns the newest password history entries, most recent first.
func (r *UserRepository) ListPasswordHistory(ctx context.Context, userID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	query := r.builder.
		Select("id", "user_id", "password_hash", "set_at").
		From("salon.password_history").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("set_at DESC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list password history sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query password history: %w", err)
	}
	defer rows.Close()

	var entries []domain.PasswordHistoryEntry
	for rows.Next() {
		var entry domain.PasswordHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.PasswordHash, &entry.SetAt); err != nil {
			return nil, fmt.Errorf("scan password history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate password history: %w", err)
	}

	return entries, nil
}

// AddPasswordHistory appends a history entry and prunes rows beyond the keep limit.
func (r *UserRepository) AddPasswordHistory(ctx context.Context, entry domain.PasswordHistoryEntry, keep int) error {
	stmt, args, err := r.builder.Insert("salon.password_history").
		Columns("id", "user_id", "password_hash", "set_at").
		Values(entry.ID, entry.UserID, entry.PasswordHash, entry.SetAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert password history sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert password history: %w", err)
	}

	if keep <= 0 {
		return nil
	}

	pruneSQL := `DELETE FROM salon.password_history
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM salon.password_history
			WHERE user_id = $1
			ORDER BY set_at DESC
			LIMIT $2
		)`
	if _, err := r.exec.Exec(ctx, pruneSQL, entry.UserID, keep); err != nil {
		return fmt.Errorf("prune password history: %w", err)
	}

	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user            domain.User
		salonID         sql.NullString
		lockedAt        *time.Time
		lockReason      sql.NullString
		twoFactorSecret sql.NullString
		lastLogin       *time.Time
	)

	if err := row.Scan(
		&user.ID,
		&salonID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.PasswordHash,
		&user.Status,
		&user.EmailVerified,
		&user.FailedAttempts,
		&lockedAt,
		&lockReason,
		&user.TwoFactorStatus,
		&twoFactorSecret,
		&user.BackupCodeHashes,
		&user.TrustedIPs,
		&user.RegisteredAt,
		&lastLogin,
		&user.LastPasswordChange,
	); err != nil {
		return nil, err
	}

	user.LockedAt = lockedAt
	user.LastLogin = lastLogin
	if salonID.Valid {
		val := salonID.String
		user.SalonID = &val
	}
	if lockReason.Valid {
		val := lockReason.String
		user.LockReason = &val
	}
	if twoFactorSecret.Valid {
		val := twoFactorSecret.String
		user.TwoFactorSecret = &val
	}

	return &user, nil
}
