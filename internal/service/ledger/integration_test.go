package ledger_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saphire-ai/backend/internal/domain"
	"github.com/saphire-ai/backend/internal/repository"
	"github.com/saphire-ai/backend/internal/service/ledger"
	"github.com/saphire-ai/backend/internal/testutil"
)

func setupLedgerService(t *testing.T, db *sql.DB) *ledger.Service {
	t.Helper()
	return ledger.NewService(
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		db,
	)
}

func TestGetOrCreateAccount_CreatesOnFirstAccess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "fresh@test.com", "Fresh User")

	account, err := svc.GetOrCreateAccount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, account.UserID)
	assert.Equal(t, int64(0), account.Balance)
	assert.Equal(t, int64(0), account.LifetimeEarned)
	assert.Equal(t, int64(0), account.LifetimeUsed)

	again, err := svc.GetOrCreateAccount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, again.ID)
}

func TestCredit_UpdatesBalanceAndLifetime(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "credit@test.com", "Credit User")

	tx, err := svc.Credit(ctx, user.ID, 50, domain.TransactionKindBonus, ledger.CreditMetadata{
		Description: "Welcome bonus",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), tx.Amount)
	assert.Equal(t, domain.TransactionKindBonus, tx.Kind)
	assert.Equal(t, domain.TransactionStatusCompleted, tx.Status)

	account, err := svc.GetOrCreateAccount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), account.Balance)
	assert.Equal(t, int64(50), account.LifetimeEarned)
	assert.Equal(t, int64(0), account.LifetimeUsed)
}

func TestCredit_RejectsNonPositiveAmount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "zero@test.com", "Zero User")

	_, err := svc.Credit(ctx, user.ID, 0, domain.TransactionKindBonus, ledger.CreditMetadata{})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Credit(ctx, user.ID, -5, domain.TransactionKindBonus, ledger.CreditMetadata{})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestDebit_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "debit@test.com", "Debit User")
	testutil.SeedTestAccount(t, db, user.ID, 100)

	simID := uuid.New()
	tx, err := svc.Debit(ctx, user.ID, 10, "interview", simID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(-10), tx.Amount)
	assert.Equal(t, domain.TransactionKindUsage, tx.Kind)
	require.NotNil(t, tx.SimulationID)
	assert.Equal(t, simID, *tx.SimulationID)

	account, err := svc.GetOrCreateAccount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(90), account.Balance)
	assert.Equal(t, int64(100), account.LifetimeEarned)
	assert.Equal(t, int64(10), account.LifetimeUsed)
}

func TestDebit_InsufficientCreditsLeavesStateUntouched(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "poor@test.com", "Poor User")
	testutil.SeedTestAccount(t, db, user.ID, 5)

	_, err := svc.Debit(ctx, user.ID, 10, "interview", uuid.New(), "")
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)

	assert.Equal(t, int64(5), testutil.GetAccountBalance(t, db, user.ID))

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM credit_transactions WHERE user_id = $1`, user.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDebit_ConcurrentDebitsCannotOverdraw(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "race@test.com", "Race User")
	testutil.SeedTestAccount(t, db, user.ID, 15)

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Debit(ctx, user.ID, 10, "interview", uuid.New(), "")
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
			failures++
		}
	}

	assert.Equal(t, 1, successes, "exactly one debit should succeed")
	assert.Equal(t, 1, failures, "exactly one debit should fail")
	assert.Equal(t, int64(5), testutil.GetAccountBalance(t, db, user.ID))
}

func TestChargeSimulation_PricesAndDebits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "sim@test.com", "Sim User")
	testutil.SeedTestAccount(t, db, user.ID, 100)

	tx, balance, err := svc.ChargeSimulation(ctx, user.ID, "presentation", uuid.New(), 45)
	require.NoError(t, err)
	assert.Equal(t, int64(-25), tx.Amount)
	assert.Equal(t, int64(75), balance)
}

func TestChargeSimulation_InsufficientReportsCurrentBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "broke@test.com", "Broke User")
	testutil.SeedTestAccount(t, db, user.ID, 3)

	_, balance, err := svc.ChargeSimulation(ctx, user.ID, "interview", uuid.New(), 0)
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)
	assert.Equal(t, int64(3), balance)
}

func TestHistory_NewestFirstWithTotal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "history@test.com", "History User")
	testutil.SeedTestAccount(t, db, user.ID, 0)

	for i := range 5 {
		_, err := svc.Credit(ctx, user.ID, int64(i+1), domain.TransactionKindBonus, ledger.CreditMetadata{})
		require.NoError(t, err)
	}

	txs, total, err := svc.History(ctx, user.ID, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, txs, 3)
	assert.Equal(t, int64(5), txs[0].Amount)
	assert.Equal(t, int64(4), txs[1].Amount)
	assert.Equal(t, int64(3), txs[2].Amount)

	txs, total, err = svc.History(ctx, user.ID, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(2), txs[0].Amount)
	assert.Equal(t, int64(1), txs[1].Amount)
}

func TestSummary_AccountPlusRecent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "summary@test.com", "Summary User")
	testutil.SeedTestAccount(t, db, user.ID, 0)

	for range 7 {
		_, err := svc.Credit(ctx, user.ID, 10, domain.TransactionKindBonus, ledger.CreditMetadata{})
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), summary.Account.Balance)
	assert.Len(t, summary.Recent, 5)
}
