package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/saphire-ai/backend/internal/domain"
)

func SeedTestUser(t *testing.T, db *sql.DB, email, fullName string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		Status:       domain.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, full_name, password_hash, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.FullName, u.PasswordHash, u.Status, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", email, err)
	}
	return u
}

func SeedTestAccount(t *testing.T, db *sql.DB, userID uuid.UUID, balance int64) *domain.CreditAccount {
	t.Helper()

	now := time.Now().UTC()
	a := &domain.CreditAccount{
		ID:             uuid.New(),
		UserID:         userID,
		Balance:        balance,
		LifetimeEarned: balance,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := db.Exec(
		`INSERT INTO credit_accounts (id, user_id, balance, lifetime_earned, lifetime_used, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.UserID, a.Balance, a.LifetimeEarned, a.LifetimeUsed, a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed test account for %s: %v", userID, err)
	}
	return a
}

func GetAccountBalance(t *testing.T, db *sql.DB, userID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(`SELECT balance FROM credit_accounts WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		t.Fatalf("get account balance for %s: %v", userID, err)
	}
	return balance
}

func CountTransactionsForCharge(t *testing.T, db *sql.DB, chargeID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM credit_transactions WHERE charge_id = $1`, chargeID).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for charge %s: %v", chargeID, err)
	}
	return count
}

func GetChargeStatus(t *testing.T, db *sql.DB, chargeID uuid.UUID) string {
	t.Helper()

	var status string
	err := db.QueryRow(`SELECT status FROM charges WHERE id = $1`, chargeID).Scan(&status)
	if err != nil {
		t.Fatalf("get charge status %s: %v", chargeID, err)
	}
	return status
}
