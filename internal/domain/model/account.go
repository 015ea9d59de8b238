package model

import "time"

// BackendFinTS is the backend kind of accounts imported over FinTS.
const BackendFinTS = "fints"

// Account is a bank account registered for import.
type Account struct {
	ID        string
	Backend   string
	FinTS     FinTSConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FinTSConfig holds the per-account connection settings of a FinTS account.
// Ident optionally selects one of several accounts reachable with the same
// credentials by account number or IBAN substring.
type FinTSConfig struct {
	URL      string
	BankCode string
	Username string
	PIN      string
	Ident    string
}

// BankConfig is everything the protocol client needs to open a dialog.
type BankConfig struct {
	URL            string
	BankCode       string
	Username       string
	PIN            string
	ProductName    string
	ProductVersion string
}

// BankAccount is an account as reported by the bank.
type BankAccount struct {
	AccountNumber string
	IBAN          string
	BIC           string
	BankCode      string
}

// AccountsResult is the outcome of listing SEPA accounts.
type AccountsResult struct {
	Accounts  []BankAccount
	Challenge *TanChallenge
}

// StatementResult is the outcome of fetching a statement of account.
type StatementResult struct {
	Transactions []StatementEntry
	Challenge    *TanChallenge
}
