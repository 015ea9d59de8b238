package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CreditDebit marks the direction of a statement entry.
type CreditDebit string

const (
	Credit CreditDebit = "C"
	Debit  CreditDebit = "D"
)

// StatementEntry is one booking as delivered by the bank. Amount is always
// non-negative; the direction is carried by CreditDebit.
type StatementEntry struct {
	BookingDate     time.Time
	Amount          decimal.Decimal
	CreditDebit     CreditDebit
	MainDescription string
	BookingText     string
	Name            string
	BankCode        string
	AccountNumber   string
}

// Transaction is an imported booking of an account. Debits carry a negative
// amount.
type Transaction struct {
	ID          int64
	Account     string
	BookedAt    time.Time
	Amount      decimal.Decimal
	Description string
	XName       string
	XBank       string
	XAccount    string
}

// String renders the transaction for log output.
func (t Transaction) String() string {
	return fmt.Sprintf("%s %s %s %q", t.Account, t.BookedAt.Format("2006-01-02"), t.Amount.StringFixed(2), t.XName)
}
