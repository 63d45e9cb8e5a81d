package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/logging"
)

// ConnectionService registers and removes bank connections.
type ConnectionService struct {
	DB            *sql.DB
	Organizations *repository.OrganizationRepo
	Connections   *repository.ConnectionRepo
	Accounts      *repository.AccountRepo
	Logger        *zap.Logger
}

// RegisterConnectionInput describes a connection the user just linked at the provider.
type RegisterConnectionInput struct {
	ProviderUserID       string
	ProviderConnectionID string
	BankName             string
	BankLogo             string
	BankBIC              string
	Accounts             []RegisterAccountInput
}

type RegisterAccountInput struct {
	ProviderAccountID string
	IBAN              string
	Name              string
	AccountType       string
	Currency          string
}

var accountTypes = map[string]bool{
	"checking": true, "savings": true, "credit_card": true, "loan": true, "securities": true, "other": true,
}

// Register stores a connected bank with its accounts.
func (s *ConnectionService) Register(ctx context.Context, userID string, in RegisterConnectionInput) (repository.Connection, []repository.Account, error) {
	org, err := resolveOrganization(ctx, s.Organizations, userID)
	if err != nil {
		return repository.Connection{}, nil, err
	}
	if strings.TrimSpace(in.BankName) == "" {
		return repository.Connection{}, nil, invalid("bank name required")
	}
	for _, a := range in.Accounts {
		if a.AccountType != "" && !accountTypes[a.AccountType] {
			return repository.Connection{}, nil, invalid("unknown account type %q", a.AccountType)
		}
	}

	conn := repository.Connection{
		ID:                   uuid.NewString(),
		OrganizationID:       org.ID,
		ProviderUserID:       in.ProviderUserID,
		ProviderConnectionID: in.ProviderConnectionID,
		BankName:             in.BankName,
		BankLogo:             optional(in.BankLogo),
		BankBIC:              optional(in.BankBIC),
		Status:               repository.ConnectionConnected,
	}
	if err := s.Connections.Insert(ctx, conn); err != nil {
		return repository.Connection{}, nil, fmt.Errorf("insert connection: %w", err)
	}
	accounts := make([]repository.Account, 0, len(in.Accounts))
	for _, a := range in.Accounts {
		acct := repository.Account{
			ID:                uuid.NewString(),
			ConnectionID:      conn.ID,
			OrganizationID:    org.ID,
			ProviderAccountID: a.ProviderAccountID,
			IBAN:              strings.ReplaceAll(a.IBAN, " ", ""),
			Name:              a.Name,
			AccountType:       a.AccountType,
			Currency:          a.Currency,
			IsActive:          true,
		}
		if err := s.Accounts.Upsert(ctx, acct); err != nil {
			return conn, accounts, fmt.Errorf("insert account: %w", err)
		}
		accounts = append(accounts, acct)
	}
	return conn, accounts, nil
}

// ConnectionView is a connection with its accounts.
type ConnectionView struct {
	Connection repository.Connection
	Accounts   []repository.Account
}

func (s *ConnectionService) List(ctx context.Context, userID string) ([]ConnectionView, error) {
	org, err := resolveOrganization(ctx, s.Organizations, userID)
	if err != nil {
		return nil, err
	}
	conns, err := s.Connections.ListByOrganization(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	out := make([]ConnectionView, 0, len(conns))
	for _, c := range conns {
		accounts, err := s.Accounts.ListByConnection(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		out = append(out, ConnectionView{Connection: c, Accounts: accounts})
	}
	return out, nil
}

// Disconnect deletes the connection together with its accounts and their transactions.
func (s *ConnectionService) Disconnect(ctx context.Context, userID, connectionID string) error {
	org, err := resolveOrganization(ctx, s.Organizations, userID)
	if err != nil {
		return err
	}
	conn, err := s.Connections.Get(ctx, connectionID)
	if err != nil {
		return fmt.Errorf("load connection: %w", err)
	}
	if conn == nil || conn.OrganizationID != org.ID {
		return ErrConnectionNotFound
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		deleted, err := s.Connections.DeleteTx(ctx, tx, connectionID)
		if err != nil {
			return fmt.Errorf("delete connection %s: %w", connectionID, err)
		}
		if !deleted {
			return ErrConnectionNotFound
		}
		return nil
	}); err != nil {
		return err
	}
	logging.Or(s.Logger, "connections").Info("bank connection removed", zap.String("connection_id", connectionID), zap.String("organization_id", org.ID))
	return nil
}
