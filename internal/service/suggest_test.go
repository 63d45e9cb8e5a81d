package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/provider"
)

func TestSuggestRanksTenants(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	env.feed.Transactions[env.demo.AccountID] = []provider.RawTransaction{
		// typo in the name, exact amount
		booking("t1", 97000, "Ana Webber", "Wohnung 4"),
		booking("t2", 1000, "Unbekannt GmbH", "Gutschrift"),
	}
	env.syncDemo(t)
	got := env.byProviderID(t)

	list, err := env.suggest.SuggestMatches(env.ctx, testUser, got["t1"].ID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	require.Equal(t, env.demo.TenantIDs["Weber"], list[0].TenantID)
	require.Equal(t, "Anna Weber", list[0].TenantName)
	require.Equal(t, env.demo.LeaseIDs["Weber"], list[0].LeaseID)
	require.True(t, list[0].AmountMatches)
	for i := 1; i < len(list); i++ {
		require.GreaterOrEqual(t, list[i-1].Score, list[i].Score)
	}

	none, err := env.suggest.SuggestMatches(env.ctx, testUser, got["t2"].ID, 3)
	require.NoError(t, err)
	require.LessOrEqual(t, len(none), 3)
	for _, s := range none {
		require.NotEqual(t, env.demo.TenantIDs["Weber"], s.TenantID)
	}

	_, err = env.suggest.SuggestMatches(env.ctx, testUser, "missing", 0)
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestNameSimilarity(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1.0, nameSimilarity("weber", "weber"))
	require.Zero(t, nameSimilarity("", "weber"))
	require.InDelta(t, 0.8, nameSimilarity("webar", "weber"), 1e-9)
	require.Greater(t, nameSimilarity("ana webber", "anna weber"), 0.7)
}
