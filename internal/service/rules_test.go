package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/matching"
)

func TestRuleCRUD(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	created, err := env.ruleSvc.Create(env.ctx, testUser, RuleInput{
		Name:        "  Weber Miete ",
		Description: "Dauerauftrag",
		Conditions: []matching.Condition{
			{Field: matching.FieldCounterpartIBAN, Operator: matching.OpEquals, Value: "DE02120300000000202051"},
			{Field: matching.FieldAmount, Operator: matching.OpEquals, Value: "970.00"},
		},
		Action:   matching.AssignTenant{TenantID: env.demo.TenantIDs["Weber"], LeaseID: env.demo.LeaseIDs["Weber"]},
		Priority: 20,
		IsActive: true,
	})
	require.NoError(t, err)
	require.Equal(t, "Weber Miete", created.Name)
	require.Equal(t, "Dauerauftrag", *created.Description)
	require.Equal(t, matching.KindAssignTenant, created.ActionType)
	require.Equal(t, env.demo.OrganizationID, created.OrganizationID)

	updated, err := env.ruleSvc.Update(env.ctx, testUser, created.ID, RuleInput{
		Name:       "Weber Miete",
		Conditions: []matching.Condition{{Field: matching.FieldCounterpartName, Operator: matching.OpContains, Value: "weber"}},
		Action:     matching.BookAs{TransactionType: matching.TypeRent},
		Priority:   5,
		IsActive:   false,
	})
	require.NoError(t, err)
	require.Equal(t, matching.KindBookAs, updated.ActionType)
	require.Equal(t, 5, updated.Priority)
	require.False(t, updated.IsActive)
	require.Nil(t, updated.Description)

	list, err := env.ruleSvc.List(env.ctx, testUser)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, env.ruleSvc.Delete(env.ctx, testUser, created.ID))
	require.ErrorIs(t, env.ruleSvc.Delete(env.ctx, testUser, created.ID), ErrRuleNotFound)

	_, err = env.ruleSvc.Update(env.ctx, testUser, created.ID, RuleInput{
		Name:       "weg",
		Conditions: []matching.Condition{{Field: matching.FieldPurpose, Operator: matching.OpContains, Value: "x"}},
		Action:     matching.Ignore{},
	})
	require.ErrorIs(t, err, ErrRuleNotFound)
}

func TestRuleValidation(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)

	cond := []matching.Condition{{Field: matching.FieldPurpose, Operator: matching.OpContains, Value: "miete"}}
	cases := []struct {
		name string
		in   RuleInput
	}{
		{"no name", RuleInput{Conditions: cond, Action: matching.Ignore{}}},
		{"no conditions", RuleInput{Name: "leer", Action: matching.Ignore{}}},
		{"bad operator", RuleInput{Name: "x", Conditions: []matching.Condition{{Field: matching.FieldPurpose, Operator: "regex", Value: "."}}, Action: matching.Ignore{}}},
		{"no action", RuleInput{Name: "x", Conditions: cond}},
		{"bad type", RuleInput{Name: "x", Conditions: cond, Action: matching.BookAs{TransactionType: "salary"}}},
		{"unknown tenant", RuleInput{Name: "x", Conditions: cond, Action: matching.AssignTenant{TenantID: "nobody"}}},
		{"lease of other tenant", RuleInput{Name: "x", Conditions: cond, Action: matching.AssignTenant{
			TenantID: env.demo.TenantIDs["Weber"],
			LeaseID:  env.demo.LeaseIDs["Becker"],
		}}},
	}
	for _, tc := range cases {
		_, err := env.ruleSvc.Create(env.ctx, testUser, tc.in)
		require.ErrorIs(t, err, ErrInvalidRequest, tc.name)
	}
}

func TestRulesAreOrganizationScoped(t *testing.T) {
	t.Parallel()
	env := setupServiceTest(t)
	env.addOrg(t, "user-2")

	mine, err := env.ruleSvc.Create(env.ctx, testUser, RuleInput{
		Name:       "Telekom",
		Conditions: []matching.Condition{{Field: matching.FieldCounterpartName, Operator: matching.OpStartsWith, Value: "telekom"}},
		Action:     matching.BookAs{TransactionType: matching.TypeOther},
		IsActive:   true,
	})
	require.NoError(t, err)

	theirs, err := env.ruleSvc.List(env.ctx, "user-2")
	require.NoError(t, err)
	require.Empty(t, theirs)

	require.ErrorIs(t, env.ruleSvc.Delete(env.ctx, "user-2", mine.ID), ErrRuleNotFound)
	_, err = env.ruleSvc.Update(env.ctx, "user-2", mine.ID, RuleInput{
		Name:       "gekapert",
		Conditions: []matching.Condition{{Field: matching.FieldPurpose, Operator: matching.OpContains, Value: "x"}},
		Action:     matching.Ignore{},
	})
	require.ErrorIs(t, err, ErrRuleNotFound)
	_, err = env.ruleSvc.List(env.ctx, "stranger")
	require.ErrorIs(t, err, ErrOrganizationNotFound)
}
