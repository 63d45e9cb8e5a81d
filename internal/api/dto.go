package api

import (
	"time"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/matching"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/service"
)

type syncRequest struct {
	ConnectionID string `json:"connectionId"`
	AccountID    string `json:"accountId"`
}

type syncResponse struct {
	Success           bool     `json:"success"`
	NewTransactions   int      `json:"newTransactions"`
	Matched           int      `json:"matched"`
	AccountsProcessed int      `json:"accountsProcessed"`
	Duplicates        int      `json:"duplicates"`
	Failures          []string `json:"failures,omitempty"`
}

type actionDTO struct {
	Type            string `json:"type" validate:"required,oneof=assign_tenant book_as ignore"`
	TenantID        string `json:"tenantId,omitempty" validate:"required_if=Type assign_tenant"`
	LeaseID         string `json:"leaseId,omitempty"`
	TransactionType string `json:"transactionType,omitempty" validate:"required_if=Type book_as"`
}

type ruleRequest struct {
	Name        string               `json:"name" validate:"required,max=200"`
	Description string               `json:"description"`
	Conditions  []matching.Condition `json:"conditions" validate:"required,min=1,dive"`
	Action      actionDTO            `json:"action"`
	Priority    int                  `json:"priority"`
	IsActive    *bool                `json:"isActive"`
}

type matchRequest struct {
	TenantID        string               `json:"tenantId"`
	LeaseID         string               `json:"leaseId"`
	TransactionType string               `json:"transactionType" validate:"omitempty,oneof=rent deposit utility maintenance other"`
	CreateRule      bool                 `json:"createRule"`
	RuleConditions  []matching.Condition `json:"ruleConditions" validate:"omitempty,dive"`
}

type accountRequest struct {
	ProviderAccountID string `json:"providerAccountId" validate:"required"`
	IBAN              string `json:"iban" validate:"required,min=15,max=42"`
	Name              string `json:"name"`
	AccountType       string `json:"accountType" validate:"omitempty,oneof=checking savings credit_card loan securities other"`
	Currency          string `json:"currency" validate:"omitempty,len=3"`
}

type connectionRequest struct {
	ProviderUserID       string           `json:"providerUserId" validate:"required"`
	ProviderConnectionID string           `json:"providerConnectionId" validate:"required"`
	BankName             string           `json:"bankName" validate:"required"`
	BankLogo             string           `json:"bankLogo"`
	BankBIC              string           `json:"bankBic" validate:"omitempty,min=8,max=11"`
	Accounts             []accountRequest `json:"accounts" validate:"dive"`
}

type transactionDTO struct {
	ID                    string     `json:"id"`
	AccountID             string     `json:"accountId"`
	ProviderTransactionID *string    `json:"providerTransactionId"`
	BookingDate           string     `json:"bookingDate"`
	ValueDate             *string    `json:"valueDate"`
	AmountCents           int64      `json:"amountCents"`
	Currency              string     `json:"currency"`
	CounterpartName       *string    `json:"counterpartName"`
	CounterpartIBAN       *string    `json:"counterpartIban"`
	Purpose               *string    `json:"purpose"`
	BookingText           *string    `json:"bookingText"`
	TransactionType       *string    `json:"transactionType"`
	MatchStatus           string     `json:"matchStatus"`
	MatchConfidence       *float64   `json:"matchConfidence"`
	MatchedTenantID       *string    `json:"matchedTenantId"`
	MatchedLeaseID        *string    `json:"matchedLeaseId"`
	MatchedRuleID         *string    `json:"matchedRuleId"`
	MatchedAt             *time.Time `json:"matchedAt"`
	MatchedBy             *string    `json:"matchedBy"`
}

type ruleDTO struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description *string              `json:"description"`
	Conditions  []matching.Condition `json:"conditions"`
	ActionType  string               `json:"actionType"`
	Action      actionDTO            `json:"action"`
	Priority    int                  `json:"priority"`
	IsActive    bool                 `json:"isActive"`
	MatchCount  int64                `json:"matchCount"`
	LastMatchAt *time.Time           `json:"lastMatchAt"`
	CreatedAt   time.Time            `json:"createdAt"`
}

type matchResponse struct {
	Transaction transactionDTO `json:"transaction"`
	Rule        *ruleDTO       `json:"rule,omitempty"`
}

type suggestionDTO struct {
	TenantID      string  `json:"tenantId"`
	TenantName    string  `json:"tenantName"`
	LeaseID       string  `json:"leaseId,omitempty"`
	Score         float64 `json:"score"`
	AmountMatches bool    `json:"amountMatches"`
}

type accountDTO struct {
	ID                string `json:"id"`
	ProviderAccountID string `json:"providerAccountId"`
	IBAN              string `json:"iban"`
	Name              string `json:"name"`
	AccountType       string `json:"accountType"`
	Currency          string `json:"currency"`
}

type connectionDTO struct {
	ID           string       `json:"id"`
	BankName     string       `json:"bankName"`
	BankLogo     *string      `json:"bankLogo"`
	BankBIC      *string      `json:"bankBic"`
	Status       string       `json:"status"`
	LastSyncAt   *time.Time   `json:"lastSyncAt"`
	ErrorMessage *string      `json:"errorMessage"`
	Accounts     []accountDTO `json:"accounts,omitempty"`
}

const dateLayout = "2006-01-02"

func toTransactionDTO(t repository.Transaction) transactionDTO {
	out := transactionDTO{
		ID:                    t.ID,
		AccountID:             t.AccountID,
		ProviderTransactionID: t.ProviderTransactionID,
		BookingDate:           t.BookingDate.Format(dateLayout),
		AmountCents:           t.AmountCents,
		Currency:              t.Currency,
		CounterpartName:       t.CounterpartName,
		CounterpartIBAN:       t.CounterpartIBAN,
		Purpose:               t.Purpose,
		BookingText:           t.BookingText,
		TransactionType:       t.TransactionType,
		MatchStatus:           t.MatchStatus,
		MatchConfidence:       t.MatchConfidence,
		MatchedTenantID:       t.MatchedTenantID,
		MatchedLeaseID:        t.MatchedLeaseID,
		MatchedRuleID:         t.MatchedRuleID,
		MatchedAt:             t.MatchedAt,
		MatchedBy:             t.MatchedBy,
	}
	if t.ValueDate != nil {
		vd := t.ValueDate.Format(dateLayout)
		out.ValueDate = &vd
	}
	return out
}

// toRuleDTO decodes the stored JSON columns. Malformed rows are returned with
// empty conditions rather than failing the listing.
func toRuleDTO(r repository.Rule) ruleDTO {
	out := ruleDTO{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		ActionType:  r.ActionType,
		Action:      actionDTO{Type: r.ActionType},
		Priority:    r.Priority,
		IsActive:    r.IsActive,
		MatchCount:  r.MatchCount,
		LastMatchAt: r.LastMatchAt,
		CreatedAt:   r.CreatedAt,
	}
	if conds, err := matching.DecodeConditions(r.Conditions); err == nil {
		out.Conditions = conds
	}
	if a, err := matching.DecodeAction(r.ActionType, r.ActionConfig); err == nil {
		switch v := a.(type) {
		case matching.AssignTenant:
			out.Action.TenantID, out.Action.LeaseID = v.TenantID, v.LeaseID
		case matching.BookAs:
			out.Action.TransactionType = v.TransactionType
		}
	}
	return out
}

func (a actionDTO) toAction() matching.Action {
	switch a.Type {
	case matching.KindAssignTenant:
		return matching.AssignTenant{TenantID: a.TenantID, LeaseID: a.LeaseID}
	case matching.KindBookAs:
		return matching.BookAs{TransactionType: a.TransactionType}
	case matching.KindIgnore:
		return matching.Ignore{}
	}
	return nil
}

func (r ruleRequest) toInput() service.RuleInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return service.RuleInput{
		Name:        r.Name,
		Description: r.Description,
		Conditions:  r.Conditions,
		Action:      r.Action.toAction(),
		Priority:    r.Priority,
		IsActive:    active,
	}
}

func toConnectionDTO(c repository.Connection, accounts []repository.Account) connectionDTO {
	out := connectionDTO{
		ID:           c.ID,
		BankName:     c.BankName,
		BankLogo:     c.BankLogo,
		BankBIC:      c.BankBIC,
		Status:       c.Status,
		LastSyncAt:   c.LastSyncAt,
		ErrorMessage: c.ErrorMessage,
	}
	for _, a := range accounts {
		out.Accounts = append(out.Accounts, accountDTO{
			ID:                a.ID,
			ProviderAccountID: a.ProviderAccountID,
			IBAN:              a.IBAN,
			Name:              a.Name,
			AccountType:       a.AccountType,
			Currency:          a.Currency,
		})
	}
	return out
}
