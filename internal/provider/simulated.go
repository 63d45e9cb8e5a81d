package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Simulated fabricates a small, stable statement per account for development
// setups without a bank integration. Identifiers derive from the account and
// booking slot, so repeated fetches return the same bookings.
type Simulated struct {
	Now func() time.Time
}

type simulatedBooking struct {
	amountCents int64
	name        string
	iban        string
	purpose     string
	bookingText string
	dayOfMonth  int
}

var simulatedBookings = []simulatedBooking{
	{85000, "Anna Weber", "DE44500105175407324931", "Miete %s", "DAUERAUFTRAG", 1},
	{120000, "Peter Fischer", "DE12500105170648489890", "Miete %s Whg 2", "GUTSCHRIFT", 3},
	{-18950, "Stadtwerke", "DE02120300000000202051", "Abschlag Strom %s", "LASTSCHRIFT", 5},
	{-42000, "Hausmeisterservice Krause", "DE75512108001245126199", "Rechnung Treppenhausreinigung %s", "UEBERWEISUNG", 10},
	{25000, "Unbekannt", "", "Nebenkosten Nachzahlung %s", "GUTSCHRIFT", 15},
}

func (s *Simulated) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Simulated) FetchTransactions(ctx context.Context, acct Account) ([]RawTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now()
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	label := month.Format("01/2006")

	out := make([]RawTransaction, 0, len(simulatedBookings))
	for i, b := range simulatedBookings {
		date := month.AddDate(0, 0, b.dayOfMonth-1)
		if date.After(now) {
			continue
		}
		key := fmt.Sprintf("%s:%s:%d", acct.ID, month.Format("2006-01"), i)
		valueDate := date
		out = append(out, RawTransaction{
			ProviderTransactionID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String(),
			BookingDate:           date,
			ValueDate:             &valueDate,
			AmountCents:           b.amountCents,
			Currency:              currencyOr(acct.Currency),
			CounterpartName:       b.name,
			CounterpartIBAN:       b.iban,
			Purpose:               fmt.Sprintf(b.purpose, label),
			BookingText:           b.bookingText,
		})
	}
	return out, nil
}

func (s *Simulated) FetchBalance(ctx context.Context, acct Account) (Balance, error) {
	txs, err := s.FetchTransactions(ctx, acct)
	if err != nil {
		return Balance{}, err
	}
	var total int64
	for _, t := range txs {
		total += t.AmountCents
	}
	return Balance{BalanceCents: total, BalanceDate: s.now().Truncate(time.Second)}, nil
}

func currencyOr(c string) string {
	if c == "" {
		return "EUR"
	}
	return c
}
