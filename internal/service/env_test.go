package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/fixtures"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/provider"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/pub"
)

const testUser = "user-1"

var testNow = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	ctx    context.Context
	db     *sql.DB
	feed   *provider.Static
	events *pub.Recorder
	demo   fixtures.Demo

	orgs     *repository.OrganizationRepo
	conns    *repository.ConnectionRepo
	accounts *repository.AccountRepo
	txs      *repository.TransactionRepo
	rules    *repository.RuleRepo
	dir      *repository.DirectoryRepo

	sync     *SyncService
	override *OverrideService
	ruleSvc  *RuleService
	connSvc  *ConnectionService
	suggest  *SuggestService
	listing  *TransactionService
}

func setupServiceTest(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		ctx:      ctx,
		db:       db,
		feed:     provider.NewStatic(),
		events:   &pub.Recorder{},
		orgs:     repository.NewOrganizationRepo(db),
		conns:    repository.NewConnectionRepo(db),
		accounts: repository.NewAccountRepo(db),
		txs:      repository.NewTransactionRepo(db),
		rules:    repository.NewRuleRepo(db),
		dir:      repository.NewDirectoryRepo(db),
	}
	env.demo, err = fixtures.SeedDemo(ctx, fixtures.Repos{
		Organizations: env.orgs,
		Directory:     env.dir,
		Connections:   env.conns,
		Accounts:      env.accounts,
	}, testUser)
	require.NoError(t, err)

	now := func() time.Time { return testNow }
	env.sync = &SyncService{
		Organizations: env.orgs,
		Connections:   env.conns,
		Accounts:      env.accounts,
		Transactions:  env.txs,
		Rules:         env.rules,
		Directory:     env.dir,
		Feed:          env.feed,
		Stats:         &RuleStats{Rules: env.rules},
		Events:        env.events,
		Now:           now,
	}
	env.override = &OverrideService{
		Organizations: env.orgs,
		Accounts:      env.accounts,
		Transactions:  env.txs,
		Rules:         env.rules,
		Directory:     env.dir,
		Events:        env.events,
		Now:           now,
	}
	env.ruleSvc = &RuleService{Organizations: env.orgs, Rules: env.rules, Directory: env.dir, Now: now}
	env.connSvc = &ConnectionService{DB: db, Organizations: env.orgs, Connections: env.conns, Accounts: env.accounts}
	env.suggest = &SuggestService{Organizations: env.orgs, Accounts: env.accounts, Transactions: env.txs, Directory: env.dir}
	env.listing = &TransactionService{Organizations: env.orgs, Transactions: env.txs}
	return env
}

// booking is a shorthand for an inbound or outbound provider row.
func booking(id string, cents int64, counterpart, purpose string) provider.RawTransaction {
	return provider.RawTransaction{
		ProviderTransactionID: id,
		BookingDate:           time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		AmountCents:           cents,
		Currency:              "EUR",
		CounterpartName:       counterpart,
		Purpose:               purpose,
	}
}

func (e *testEnv) syncDemo(t *testing.T) SyncResult {
	t.Helper()
	res, err := e.sync.Sync(e.ctx, testUser, SyncRequest{AccountID: e.demo.AccountID})
	require.NoError(t, err)
	return res
}

func (e *testEnv) byProviderID(t *testing.T) map[string]repository.Transaction {
	t.Helper()
	txs, err := e.txs.List(e.ctx, repository.TransactionFilters{AccountID: e.demo.AccountID})
	require.NoError(t, err)
	out := map[string]repository.Transaction{}
	for _, tx := range txs {
		if tx.ProviderTransactionID != nil {
			out[*tx.ProviderTransactionID] = tx
		}
	}
	return out
}

// addOrg creates a second organization with one connection and account.
func (e *testEnv) addOrg(t *testing.T, userID string) (orgID, accountID string) {
	t.Helper()
	orgID = "org-" + userID
	require.NoError(t, e.orgs.Upsert(e.ctx, repository.Organization{ID: orgID, Name: "Andere Verwaltung"}))
	require.NoError(t, e.orgs.AddMember(e.ctx, userID, orgID, "owner"))
	require.NoError(t, e.conns.Insert(e.ctx, repository.Connection{ID: "conn-" + userID, OrganizationID: orgID, BankName: "Volksbank", Status: repository.ConnectionConnected}))
	accountID = "acct-" + userID
	require.NoError(t, e.accounts.Upsert(e.ctx, repository.Account{ID: accountID, ConnectionID: "conn-" + userID, ProviderAccountID: "p-" + userID, IBAN: "DE02120300000000202051", Name: "Konto", IsActive: true}))
	return orgID, accountID
}

func strPtr(s string) *string { return &s }
