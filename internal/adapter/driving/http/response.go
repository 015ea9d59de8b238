package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// AuthStatusResponse is the JSON representation of an account's
// authentication status. SetupURL is only set when the account needs the
// setup wizard.
type AuthStatusResponse struct {
	Account         string  `json:"account"`
	Backend         string  `json:"backend"`
	Configured      bool    `json:"configured"`
	TanMode         string  `json:"tan_mode,omitempty"`
	TanMedium       string  `json:"tan_medium,omitempty"`
	LastAuth        *string `json:"last_auth"`
	AuthExpires     *string `json:"auth_expires"`
	DaysUntilExpiry int     `json:"days_until_expiry"`
	Expired         bool    `json:"expired"`
	NeedsWarning    bool    `json:"needs_warning"`
	WarningLevel    int     `json:"warning_level"`
	SetupURL        string  `json:"setup_url,omitempty"`
}

// UpsertAccountRequest is the JSON body for registering or updating an
// account. The field names follow the import configuration keys.
type UpsertAccountRequest struct {
	Backend string `json:"backend"`
	URL     string `json:"url"`
	Code    string `json:"code"`
	User    string `json:"user"`
	Pass    string `json:"pass"`
	Ident   string `json:"ident"`
}

// AccountResponse is the JSON representation of a registered account. The
// PIN is never returned.
type AccountResponse struct {
	ID        string `json:"id"`
	Backend   string `json:"backend"`
	URL       string `json:"url,omitempty"`
	Code      string `json:"code,omitempty"`
	User      string `json:"user,omitempty"`
	Ident     string `json:"ident,omitempty"`
	HasPIN    bool   `json:"has_pin"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// ImportRequest is the optional JSON body of a manual import. From uses the
// YYYY-MM-DD format.
type ImportRequest struct {
	Account string `json:"account"`
	From    string `json:"from"`
}

// ImportResultResponse is the JSON representation of one account's import
// outcome.
type ImportResultResponse struct {
	Account  string `json:"account"`
	Outcome  string `json:"outcome"`
	Imported int    `json:"imported"`
	Error    string `json:"error,omitempty"`
}

// HealthResponse is the JSON body of the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func toAuthStatusResponse(status model.AuthStatus, setupURL string) AuthStatusResponse {
	resp := AuthStatusResponse{
		Account:         status.Account,
		Backend:         status.Backend,
		Configured:      status.Configured,
		TanMode:         status.TanMode,
		TanMedium:       status.TanMedium,
		LastAuth:        formatOptionalTime(status.LastAuth),
		AuthExpires:     formatOptionalTime(status.AuthExpires),
		DaysUntilExpiry: status.DaysUntilExpiry,
		Expired:         status.Expired,
		NeedsWarning:    status.NeedsWarning,
		WarningLevel:    status.WarningLevel,
	}
	if status.Backend == model.BackendFinTS && (!status.Configured || status.Expired) {
		resp.SetupURL = setupURL
	}
	return resp
}

func toAccountResponse(account model.Account) AccountResponse {
	resp := AccountResponse{
		ID:      account.ID,
		Backend: account.Backend,
		URL:     account.FinTS.URL,
		Code:    account.FinTS.BankCode,
		User:    account.FinTS.Username,
		Ident:   account.FinTS.Ident,
		HasPIN:  account.FinTS.PIN != "",
	}
	if !account.UpdatedAt.IsZero() {
		resp.UpdatedAt = account.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toImportResultResponse(result model.ImportResult) ImportResultResponse {
	resp := ImportResultResponse{
		Account:  result.Account,
		Outcome:  string(result.Outcome),
		Imported: result.Imported,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return resp
}
