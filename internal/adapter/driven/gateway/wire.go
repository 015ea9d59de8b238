package gateway

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/bankster/internal/domain/model"
)

// dateLayout is the gateway's date format for statement bounds and
// booking dates.
const dateLayout = "2006-01-02"

type bankJSON struct {
	URL            string `json:"url"`
	BankCode       string `json:"bank_code"`
	Username       string `json:"username"`
	PIN            string `json:"pin"`
	ProductName    string `json:"product_name"`
	ProductVersion string `json:"product_version"`
}

func toBankJSON(cfg model.BankConfig) bankJSON {
	return bankJSON(cfg)
}

// dialogJSON is the common part of every dialog request.
type dialogJSON struct {
	Bank      bankJSON `json:"bank"`
	State     []byte   `json:"state,omitempty"`
	TanMode   string   `json:"tan_mode,omitempty"`
	TanMedium string   `json:"tan_medium,omitempty"`
}

type challengeRequest struct {
	dialogJSON
	Pending  []byte `json:"pending"`
	Response string `json:"response"`
}

type mediaRequest struct {
	dialogJSON
	Mode string `json:"mode"`
}

type statementRequest struct {
	dialogJSON
	Account accountJSON `json:"account"`
	From    string      `json:"from"`
	To      string      `json:"to"`
}

type challengeJSON struct {
	Text         string `json:"text"`
	Data         []byte `json:"data,omitempty"`
	DataMimeType string `json:"data_mime_type,omitempty"`
	MediumName   string `json:"medium_name,omitempty"`
}

func (c *challengeJSON) toModel() *model.TanChallenge {
	if c == nil {
		return nil
	}
	return &model.TanChallenge{
		Text:         c.Text,
		Data:         c.Data,
		DataMimeType: c.DataMimeType,
		MediumName:   c.MediumName,
	}
}

// dialogResponse is the common part of every dialog response. Challenge is
// set when the bank demands a TAN; Pending then identifies the parked
// action.
type dialogResponse struct {
	State     []byte         `json:"state"`
	Challenge *challengeJSON `json:"challenge,omitempty"`
	Pending   []byte         `json:"pending,omitempty"`
}

type accountJSON struct {
	AccountNumber string `json:"account_number"`
	IBAN          string `json:"iban"`
	BIC           string `json:"bic"`
	BankCode      string `json:"bank_code"`
}

type accountsResponse struct {
	dialogResponse
	Accounts []accountJSON `json:"accounts"`
}

type entryJSON struct {
	BookingDate     string          `json:"booking_date"`
	Amount          decimal.Decimal `json:"amount"`
	CreditDebit     string          `json:"credit_debit"`
	MainDescription string          `json:"main_description"`
	BookingText     string          `json:"booking_text"`
	Name            string          `json:"name"`
	BankCode        string          `json:"bank_code"`
	AccountNumber   string          `json:"account_number"`
}

type statementResponse struct {
	dialogResponse
	Transactions []entryJSON `json:"transactions"`
}

type tanModeJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NeedsMedium bool   `json:"needs_medium"`
}

type tanModesResponse struct {
	Modes []tanModeJSON `json:"modes"`
}

type tanMediumJSON struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type tanMediaResponse struct {
	dialogResponse
	Media []tanMediumJSON `json:"media"`
}

type errorJSON struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e entryJSON) toModel() (model.StatementEntry, error) {
	booked, err := time.Parse(dateLayout, e.BookingDate)
	if err != nil {
		return model.StatementEntry{}, err
	}
	return model.StatementEntry{
		BookingDate:     booked,
		Amount:          e.Amount.Abs(),
		CreditDebit:     model.CreditDebit(e.CreditDebit),
		MainDescription: e.MainDescription,
		BookingText:     e.BookingText,
		Name:            e.Name,
		BankCode:        e.BankCode,
		AccountNumber:   e.AccountNumber,
	}, nil
}
