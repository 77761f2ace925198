package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/avereux/salon-auth/internal/core/domain"
	"github.com/avereux/salon-auth/internal/repository"
)

func TestSessionRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	createdAt := time.Now().UTC()
	ip := "203.0.113.7"
	userAgent := "Mozilla/5.0"
	session := domain.Session{
		ID:               "session-123",
		UserID:           "user-123",
		RefreshTokenHash: "hash-abc",
		IPAddress:        &ip,
		UserAgent:        &userAgent,
		CreatedAt:        createdAt,
		LastActivity:     createdAt,
		ExpiresAt:        createdAt.Add(30 * 24 * time.Hour),
	}

	mock.ExpectExec(`INSERT INTO salon\.sessions`).
		WithArgs(
			session.ID,
			session.UserID,
			session.RefreshTokenHash,
			&ip,
			&userAgent,
			session.CreatedAt,
			session.LastActivity,
			session.ExpiresAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), session); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_GetByRefreshTokenHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	createdAt := time.Now().UTC()
	expiresAt := createdAt.Add(30 * 24 * time.Hour)

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "refresh_token_hash", "ip_address", "user_agent", "created_at", "last_activity", "expires_at",
	}).AddRow(
		"session-1", "user-1", "hash-1", "203.0.113.7", "Mozilla/5.0", createdAt, createdAt, expiresAt,
	)

	mock.ExpectQuery(`SELECT .*FROM salon\.sessions`).WithArgs("hash-1").WillReturnRows(rows)

	session, err := repo.GetByRefreshTokenHash(context.Background(), "hash-1")
	if err != nil {
		t.Fatalf("GetByRefreshTokenHash returned error: %v", err)
	}
	if session.ID != "session-1" {
		t.Fatalf("expected session id session-1, got %s", session.ID)
	}
	if session.IPAddress == nil || *session.IPAddress != "203.0.113.7" {
		t.Fatalf("expected ip address populated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_GetByRefreshTokenHashNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "refresh_token_hash", "ip_address", "user_agent", "created_at", "last_activity", "expires_at",
	})

	mock.ExpectQuery(`SELECT .*FROM salon\.sessions`).WithArgs("missing").WillReturnRows(rows)

	if _, err := repo.GetByRefreshTokenHash(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_UpdateRefreshToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE salon\.sessions`).
		WithArgs("hash-next", now, "session-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateRefreshToken(context.Background(), "session-1", "hash-next", now); err != nil {
		t.Fatalf("UpdateRefreshToken returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_DeleteNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	mock.ExpectExec(`DELETE FROM salon\.sessions`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_DeleteByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	mock.ExpectExec(`DELETE FROM salon\.sessions`).
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	count, err := repo.DeleteByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("DeleteByUser returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 deleted sessions, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
