package fixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
)

func TestSeedDemo(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dbPath := filepath.Join(t.TempDir(), "seed.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos := Repos{
		Organizations: repository.NewOrganizationRepo(db),
		Directory:     repository.NewDirectoryRepo(db),
		Connections:   repository.NewConnectionRepo(db),
		Accounts:      repository.NewAccountRepo(db),
	}
	demo, err := SeedDemo(ctx, repos, "demo")
	require.NoError(t, err)

	org, err := repos.Organizations.ForUser(ctx, "demo")
	require.NoError(t, err)
	require.Equal(t, demo.OrganizationID, org.ID)

	leases, err := repos.Directory.Leases(ctx, demo.OrganizationID)
	require.NoError(t, err)
	require.Len(t, leases, len(demoTenants))

	accounts, err := repos.Accounts.ListByOrganization(ctx, demo.OrganizationID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, demo.AccountID, accounts[0].ID)
	require.Contains(t, demo.TenantIDs, "Weber")
}
