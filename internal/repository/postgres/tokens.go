package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avereux/salon-auth/internal/core/domain"
	"github.com/avereux/salon-auth/internal/repository"
)

var tokenColumns = []string{
	"id",
	"user_id",
	"token_hash",
	"ip",
	"user_agent",
	"created_at",
	"expires_at",
	"used_at",
	"revoked_at",
}

const (
	verificationTable  = "salon.email_verification_tokens"
	passwordResetTable = "salon.password_reset_tokens"
)

// TokenRepository implements port.TokenRepository backed by PostgreSQL.
type TokenRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	repo := &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *TokenRepository) WithTx(tx pgx.Tx) *TokenRepository {
	if tx == nil {
		return r
	}
	return &TokenRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// CreateVerification inserts an email verification token record.
func (r *TokenRepository) CreateVerification(ctx context.Context, token domain.VerificationToken) error {
	return r.insertToken(ctx, verificationTable, tokenRecord(token))
}

// GetVerificationByHash fetches a verification token by its hash.
func (r *TokenRepository) GetVerificationByHash(ctx context.Context, hash string) (*domain.VerificationToken, error) {
	rec, err := r.getTokenByHash(ctx, verificationTable, hash)
	if err != nil {
		return nil, err
	}
	token := domain.VerificationToken(*rec)
	return &token, nil
}

// LatestVerificationForUser returns the most recently created verification token.
func (r *TokenRepository) LatestVerificationForUser(ctx context.Context, userID string) (*domain.VerificationToken, error) {
	rec, err := r.latestTokenForUser(ctx, verificationTable, userID)
	if err != nil {
		return nil, err
	}
	token := domain.VerificationToken(*rec)
	return &token, nil
}

// ConsumeVerification marks a verification token as used.
func (r *TokenRepository) ConsumeVerification(ctx context.Context, id string) error {
	return r.consumeToken(ctx, verificationTable, id)
}

// RevokeVerificationsForUser revokes every live verification token for a user.
func (r *TokenRepository) RevokeVerificationsForUser(ctx context.Context, userID string) error {
	return r.revokeTokensForUser(ctx, verificationTable, userID)
}

// CreatePasswordReset inserts a password reset token record.
func (r *TokenRepository) CreatePasswordReset(ctx context.Context, token domain.PasswordResetToken) error {
	return r.insertToken(ctx, passwordResetTable, tokenRecord(token))
}

// GetPasswordResetByHash fetches a password reset token by its hash.
func (r *TokenRepository) GetPasswordResetByHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error) {
	rec, err := r.getTokenByHash(ctx, passwordResetTable, hash)
	if err != nil {
		return nil, err
	}
	token := domain.PasswordResetToken(*rec)
	return &token, nil
}

// LatestPasswordResetForUser returns the most recently created reset token.
func (r *TokenRepository) LatestPasswordResetForUser(ctx context.Context, userID string) (*domain.PasswordResetToken, error) {
	rec, err := r.latestTokenForUser(ctx, passwordResetTable, userID)
	if err != nil {
		return nil, err
	}
	token := domain.PasswordResetToken(*rec)
	return &token, nil
}

// ConsumePasswordReset marks a password reset token as used.
func (r *TokenRepository) ConsumePasswordReset(ctx context.Context, id string) error {
	return r.consumeToken(ctx, passwordResetTable, id)
}

// RevokePasswordResetsForUser revokes every live reset token for a user.
func (r *TokenRepository) RevokePasswordResetsForUser(ctx context.Context, userID string) error {
	return r.revokeTokensForUser(ctx, passwordResetTable, userID)
}

// tokenRecord is the shared row shape of both token tables.
type tokenRecord domain.VerificationToken

func (r *TokenRepository) insertToken(ctx context.Context, table string, token tokenRecord) error {
	stmt, args, err := r.builder.Insert(table).
		Columns(tokenColumns...).
		Values(
			token.ID,
			token.UserID,
			token.TokenHash,
			token.IP,
			token.UserAgent,
			token.CreatedAt,
			token.ExpiresAt,
			token.UsedAt,
			token.RevokedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return nil
}

func (r *TokenRepository) getTokenByHash(ctx context.Context, table, hash string) (*tokenRecord, error) {
	stmt, args, err := r.builder.
		Select(tokenColumns...).
		From(table).
		Where(squirrel.Eq{"token_hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select token by hash sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	rec, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}

	return rec, nil
}

func (r *TokenRepository) latestTokenForUser(ctx context.Context, table, userID string) (*tokenRecord, error) {
	stmt, args, err := r.builder.
		Select(tokenColumns...).
		From(table).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select latest token sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	rec, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan latest token: %w", err)
	}

	return rec, nil
}

func (r *TokenRepository) consumeToken(ctx context.Context, table, id string) error {
	stmt, args, err := r.builder.Update(table).
		Set("used_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where("used_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *TokenRepository) revokeTokensForUser(ctx context.Context, table, userID string) error {
	stmt, args, err := r.builder.Update(table).
		Set("revoked_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"user_id": userID}).
		Where("used_at IS NULL").
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke tokens sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}

	return nil
}

func scanToken(row pgx.Row) (*tokenRecord, error) {
	var (
		rec       tokenRecord
		ip        sql.NullString
		userAgent sql.NullString
		usedAt    *time.Time
		revokedAt *time.Time
	)

	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TokenHash,
		&ip,
		&userAgent,
		&rec.CreatedAt,
		&rec.ExpiresAt,
		&usedAt,
		&revokedAt,
	); err != nil {
		return nil, err
	}

	rec.UsedAt = usedAt
	rec.RevokedAt = revokedAt
	if ip.Valid {
		val := ip.String
		rec.IP = &val
	}
	if userAgent.Valid {
		val := userAgent.String
		rec.UserAgent = &val
	}

	return &rec, nil
}
