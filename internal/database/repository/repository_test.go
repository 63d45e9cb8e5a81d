package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedAccount(t *testing.T, ctx context.Context, db *sql.DB) Account {
	t.Helper()
	orgs := NewOrganizationRepo(db)
	require.NoError(t, orgs.Upsert(ctx, Organization{ID: "org-1", Name: "Hausverwaltung Nord"}))
	require.NoError(t, orgs.AddMember(ctx, "user-1", "org-1", "owner"))
	require.NoError(t, NewConnectionRepo(db).Insert(ctx, Connection{ID: "conn-1", OrganizationID: "org-1", BankName: "Sparkasse"}))
	acct := Account{ID: "acct-1", ConnectionID: "conn-1", ProviderAccountID: "p-acct-1", IBAN: "DE89370400440532013000", Name: "Mietkonto", IsActive: true}
	require.NoError(t, NewAccountRepo(db).Upsert(ctx, acct))
	return acct
}

func strPtr(s string) *string { return &s }

func TestTransactionInsertDedupAndMatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db := newTestDB(t)
	acct := seedAccount(t, ctx, db)
	repo := NewTransactionRepo(db)

	tx := Transaction{
		ID:                    "tx-1",
		AccountID:             acct.ID,
		ProviderTransactionID: strPtr("p-1"),
		BookingDate:           time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		AmountCents:           85000,
		CounterpartName:       strPtr("Anna Weber"),
		Purpose:               strPtr("Miete 02/2026"),
	}
	require.NoError(t, repo.Insert(ctx, tx))

	dup := tx
	dup.ID = "tx-2"
	err := repo.Insert(ctx, dup)
	require.Error(t, err)
	require.True(t, database.IsUniqueViolation(err))

	// rows without provider id never collide
	noID := tx
	noID.ID, noID.ProviderTransactionID = "tx-3", nil
	require.NoError(t, repo.Insert(ctx, noID))
	noID.ID = "tx-4"
	require.NoError(t, repo.Insert(ctx, noID))

	exists, err := repo.ExistsByProviderID(ctx, acct.ID, "p-1")
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = repo.ExistsByProviderID(ctx, acct.ID, "p-2")
	require.NoError(t, err)
	require.False(t, exists)

	ids, err := repo.ProviderIDs(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"p-1"}, ids)

	got, err := repo.Get(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, MatchUnmatched, got.MatchStatus)
	require.Nil(t, got.MatchConfidence)
	require.Nil(t, got.MatchedAt)
	require.Equal(t, "EUR", got.Currency)
	require.Equal(t, "2026-02-03", got.BookingDate.Format(time.DateOnly))

	conf := 0.95
	now := database.Now()
	require.NoError(t, repo.UpdateMatch(ctx, "tx-1", MatchUpdate{
		Status:          MatchManual,
		TransactionType: strPtr("rent"),
		Confidence:      &conf,
		MatchedAt:       &now,
		MatchedBy:       strPtr("user-1"),
	}))
	got, err = repo.Get(ctx, "tx-1")
	require.NoError(t, err)
	require.Equal(t, MatchManual, got.MatchStatus)
	require.Equal(t, "rent", *got.TransactionType)
	require.InDelta(t, 0.95, *got.MatchConfidence, 1e-9)
	require.Equal(t, "user-1", *got.MatchedBy)
	require.True(t, now.Equal(*got.MatchedAt))

	missing, err := repo.Get(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	list, err := repo.List(ctx, TransactionFilters{OrganizationID: "org-1", Status: MatchUnmatched})
	require.NoError(t, err)
	require.Len(t, list, 2)
	list, err = repo.List(ctx, TransactionFilters{OrganizationID: "other"})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestRuleOrderingAndStats(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db := newTestDB(t)
	seedAccount(t, ctx, db)
	repo := NewRuleRepo(db)

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	rules := []Rule{
		{ID: "r-b", Name: "low", Priority: 1, IsActive: true, CreatedAt: base},
		{ID: "r-c", Name: "high late", Priority: 10, IsActive: true, CreatedAt: base.Add(time.Hour)},
		{ID: "r-a", Name: "high early", Priority: 10, IsActive: true, CreatedAt: base},
		{ID: "r-d", Name: "inactive", Priority: 99, IsActive: false, CreatedAt: base},
	}
	for _, r := range rules {
		r.OrganizationID = "org-1"
		r.Conditions = "[]"
		r.ActionType = "ignore"
		r.ActionConfig = "{}"
		require.NoError(t, repo.Add(ctx, r))
	}

	active, err := repo.ListActive(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, active, 3)
	require.Equal(t, "r-a", active[0].ID)
	require.Equal(t, "r-c", active[1].ID)
	require.Equal(t, "r-b", active[2].ID)

	all, err := repo.List(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, "r-d", all[0].ID)

	at := database.Now()
	require.NoError(t, repo.RecordMatch(ctx, "r-a", at))
	require.NoError(t, repo.RecordMatch(ctx, "r-a", at))
	got, err := repo.Get(ctx, "r-a")
	require.NoError(t, err)
	require.Equal(t, int64(2), got.MatchCount)
	require.NotNil(t, got.LastMatchAt)

	got.Name = "renamed"
	got.IsActive = false
	ok, err := repo.Update(ctx, *got)
	require.NoError(t, err)
	require.True(t, ok)
	got, err = repo.Get(ctx, "r-a")
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Name)
	require.False(t, got.IsActive)
	require.Equal(t, int64(2), got.MatchCount)

	ok, err = repo.Delete(ctx, "other-org", "r-b")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = repo.Delete(ctx, "org-1", "r-b")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestConnectionLifecycleAndCascade(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db := newTestDB(t)
	acct := seedAccount(t, ctx, db)
	conns := NewConnectionRepo(db)
	accounts := NewAccountRepo(db)

	require.NoError(t, conns.MarkError(ctx, "conn-1", "bank unavailable"))
	c, err := conns.Get(ctx, "conn-1")
	require.NoError(t, err)
	require.Equal(t, ConnectionError, c.Status)
	require.Equal(t, "bank unavailable", *c.ErrorMessage)

	at := database.Now()
	require.NoError(t, conns.MarkSynced(ctx, "conn-1", at))
	c, err = conns.Get(ctx, "conn-1")
	require.NoError(t, err)
	require.Equal(t, ConnectionConnected, c.Status)
	require.Nil(t, c.ErrorMessage)
	require.True(t, at.Equal(*c.LastSyncAt))

	connected, err := conns.ListByStatus(ctx, ConnectionConnected)
	require.NoError(t, err)
	require.Len(t, connected, 1)

	require.NoError(t, accounts.UpdateBalance(ctx, acct.ID, -1250, at))
	a, err := accounts.Get(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, int64(-1250), a.BalanceCents)
	require.Equal(t, "org-1", a.OrganizationID)

	require.NoError(t, NewTransactionRepo(db).Insert(ctx, Transaction{ID: "tx-1", AccountID: acct.ID, BookingDate: at, AmountCents: 1}))

	require.NoError(t, database.WithTx(ctx, db, func(tx *sql.Tx) error {
		deleted, err := conns.DeleteTx(ctx, tx, "conn-1")
		require.True(t, deleted)
		return err
	}))
	a, err = accounts.Get(ctx, acct.ID)
	require.NoError(t, err)
	require.Nil(t, a)
	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bank_transactions`).Scan(&n))
	require.Equal(t, 0, n)
}

func TestDirectoryLeases(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db := newTestDB(t)
	seedAccount(t, ctx, db)
	dir := NewDirectoryRepo(db)

	require.NoError(t, dir.UpsertTenant(ctx, Tenant{ID: "t-1", OrganizationID: "org-1", FirstName: "Anna", LastName: "Weber"}))
	utility := decimal.RequireFromString("150.00")
	require.NoError(t, dir.UpsertLease(ctx, Lease{ID: "l-1", OrganizationID: "org-1", TenantID: "t-1", RentAmount: decimal.RequireFromString("700.00"), UtilityAdvance: &utility}))
	require.NoError(t, dir.UpsertLease(ctx, Lease{ID: "l-2", OrganizationID: "org-1", TenantID: "t-1", RentAmount: decimal.RequireFromString("500"), Status: "terminated"}))

	tenants, err := dir.Tenants(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	require.Equal(t, "Anna Weber", tenants[0].FullName())

	leases, err := dir.Leases(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, leases, 2)
	byID := map[string]Lease{}
	for _, l := range leases {
		byID[l.ID] = l
	}
	require.True(t, byID["l-1"].RentAmount.Equal(decimal.RequireFromString("700")))
	require.NotNil(t, byID["l-1"].UtilityAdvance)
	require.True(t, byID["l-1"].UtilityAdvance.Equal(utility))
	require.Nil(t, byID["l-2"].UtilityAdvance)
	require.Equal(t, "terminated", byID["l-2"].Status)

	org, err := NewOrganizationRepo(db).ForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "org-1", org.ID)
	org, err = NewOrganizationRepo(db).ForUser(ctx, "stranger")
	require.NoError(t, err)
	require.Nil(t, org)
}
