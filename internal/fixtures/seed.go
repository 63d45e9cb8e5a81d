// Package fixtures seeds demo data for local runs and tests.
package fixtures

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
)

// Repos bundles repos used by SeedDemo.
type Repos struct {
	Organizations *repository.OrganizationRepo
	Directory     *repository.DirectoryRepo
	Connections   *repository.ConnectionRepo
	Accounts      *repository.AccountRepo
}

// Demo holds the ids SeedDemo created.
type Demo struct {
	OrganizationID string
	ConnectionID   string
	AccountID      string
	// TenantIDs and LeaseIDs are keyed by last name.
	TenantIDs map[string]string
	LeaseIDs  map[string]string
}

type demoTenant struct {
	first, last string
	rent        string
	utility     string
	status      string
}

var demoTenants = []demoTenant{
	{first: "Anna", last: "Weber", rent: "850.00", utility: "120.00", status: "active"},
	{first: "Jonas", last: "Becker", rent: "1100.00", utility: "180.50", status: "active"},
	{first: "Mehmet", last: "Yilmaz", rent: "640.00", status: "active"},
	{first: "Sabine", last: "Krause", rent: "720.00", utility: "95.00", status: "terminated"},
}

// SeedDemo creates an organization owned by userID with tenants, leases and one
// connected bank account.
func SeedDemo(ctx context.Context, repos Repos, userID string) (Demo, error) {
	demo := Demo{
		OrganizationID: uuid.NewString(),
		ConnectionID:   uuid.NewString(),
		AccountID:      uuid.NewString(),
		TenantIDs:      map[string]string{},
		LeaseIDs:       map[string]string{},
	}
	if err := repos.Organizations.Upsert(ctx, repository.Organization{ID: demo.OrganizationID, Name: "Hausverwaltung Demo"}); err != nil {
		return Demo{}, fmt.Errorf("seed organization: %w", err)
	}
	if err := repos.Organizations.AddMember(ctx, userID, demo.OrganizationID, "owner"); err != nil {
		return Demo{}, fmt.Errorf("seed member: %w", err)
	}

	for _, dt := range demoTenants {
		tenant := repository.Tenant{ID: uuid.NewString(), OrganizationID: demo.OrganizationID, FirstName: dt.first, LastName: dt.last}
		if err := repos.Directory.UpsertTenant(ctx, tenant); err != nil {
			return Demo{}, fmt.Errorf("seed tenant %s: %w", dt.last, err)
		}
		lease := repository.Lease{
			ID:             uuid.NewString(),
			OrganizationID: demo.OrganizationID,
			TenantID:       tenant.ID,
			RentAmount:     decimal.RequireFromString(dt.rent),
			Status:         dt.status,
		}
		if dt.utility != "" {
			u := decimal.RequireFromString(dt.utility)
			lease.UtilityAdvance = &u
		}
		if err := repos.Directory.UpsertLease(ctx, lease); err != nil {
			return Demo{}, fmt.Errorf("seed lease %s: %w", dt.last, err)
		}
		demo.TenantIDs[dt.last] = tenant.ID
		demo.LeaseIDs[dt.last] = lease.ID
	}

	conn := repository.Connection{
		ID:                   demo.ConnectionID,
		OrganizationID:       demo.OrganizationID,
		ProviderUserID:       "demo-user",
		ProviderConnectionID: "demo-connection",
		BankName:             "Sparkasse Demo",
		Status:               repository.ConnectionConnected,
	}
	if err := repos.Connections.Insert(ctx, conn); err != nil {
		return Demo{}, fmt.Errorf("seed connection: %w", err)
	}
	acct := repository.Account{
		ID:                demo.AccountID,
		ConnectionID:      demo.ConnectionID,
		ProviderAccountID: "demo-account",
		IBAN:              "DE89370400440532013000",
		Name:              "Mietkonto",
		AccountType:       "checking",
		Currency:          "EUR",
		IsActive:          true,
	}
	if err := repos.Accounts.Upsert(ctx, acct); err != nil {
		return Demo{}, fmt.Errorf("seed account: %w", err)
	}
	return demo, nil
}
