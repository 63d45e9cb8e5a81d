package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/provider"
)

func TestSchedulerRunOnce(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)
	_, foreignAccount := env.addOrg(t, "user-2")
	require.NoError(t, env.conns.MarkError(env.ctx, "conn-user-2", "previous failure"))

	require.NoError(t, env.conns.Insert(env.ctx, repository.Connection{
		ID:             "conn-pending",
		OrganizationID: env.demo.OrganizationID,
		BankName:       "Noch nicht verbunden",
		Status:         repository.ConnectionPending,
	}))
	require.NoError(t, env.accounts.Upsert(env.ctx, repository.Account{
		ID: "acct-pending", ConnectionID: "conn-pending", ProviderAccountID: "pp", IBAN: "DE1", Name: "p", IsActive: true,
	}))

	env.feed.Transactions[env.demo.AccountID] = []provider.RawTransaction{booking("w1", 97000, "Anna Weber", "Miete")}
	env.feed.Transactions[foreignAccount] = []provider.RawTransaction{booking("f1", 5000, "X", "Y")}

	sched := NewScheduler(env.sync, env.conns, zap.NewNop())
	require.Equal(t, 2, sched.RunOnce(env.ctx))
	require.Equal(t, 2, env.feed.Calls)

	recovered, err := env.conns.Get(env.ctx, "conn-user-2")
	require.NoError(t, err)
	require.Equal(t, repository.ConnectionConnected, recovered.Status)
	require.Nil(t, recovered.ErrorMessage)

	pending, err := env.conns.Get(env.ctx, "conn-pending")
	require.NoError(t, err)
	require.Equal(t, repository.ConnectionPending, pending.Status)

	require.Len(t, env.byProviderID(t), 1)
}

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	sched := NewScheduler(env.sync, env.conns, nil)
	require.Error(t, sched.Start("every now and then"))
	require.NoError(t, sched.Start("@every 1h"))
	require.Error(t, sched.Start("@every 1h"))
	sched.Stop()
	sched.Stop()
}
