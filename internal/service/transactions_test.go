package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/provider"
)

func TestListTransactions(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)
	_, foreignAccount := env.addOrg(t, "user-2")

	env.feed.Transactions[env.demo.AccountID] = []provider.RawTransaction{
		booking("w1", 97000, "Anna Weber", "Miete 02/2026"),
		booking("o1", -4500, "Stadtwerke Nord", "Abschlag Strom"),
	}
	env.feed.Transactions[foreignAccount] = []provider.RawTransaction{booking("f1", 5000, "X", "Y")}
	env.syncDemo(t)
	_, err := env.sync.Sync(env.ctx, "user-2", SyncRequest{AccountID: foreignAccount})
	require.NoError(t, err)

	all, err := env.listing.List(env.ctx, testUser, TransactionQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	auto, err := env.listing.List(env.ctx, testUser, TransactionQuery{Status: repository.MatchAuto})
	require.NoError(t, err)
	require.Len(t, auto, 1)
	require.Equal(t, "w1", *auto[0].ProviderTransactionID)

	limited, err := env.listing.List(env.ctx, testUser, TransactionQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	foreign, err := env.listing.List(env.ctx, testUser, TransactionQuery{AccountID: foreignAccount})
	require.NoError(t, err)
	require.Empty(t, foreign)

	_, err = env.listing.List(env.ctx, testUser, TransactionQuery{Status: "paid"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = env.listing.List(env.ctx, testUser, TransactionQuery{Limit: -1})
	require.ErrorIs(t, err, ErrInvalidRequest)
}
