package gateway

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BankSession = (*Session)(nil)

// Session is one dialog with the bank. It tracks the latest state returned
// by the gateway; Persist hands it out for storage.
type Session struct {
	client *Client
	bank   bankJSON
	state  []byte
	mode   string
	medium string
}

// SelectUnattendedMode selects the mode that needs no TAN.
func (s *Session) SelectUnattendedMode() error {
	s.mode = model.UnattendedTanModeID
	s.medium = ""
	return nil
}

// SelectMode selects an interactive TAN mode and medium.
func (s *Session) SelectMode(modeID, medium string) error {
	if modeID == "" {
		return fmt.Errorf("empty TAN mode")
	}
	s.mode = modeID
	s.medium = medium
	return nil
}

func (s *Session) dialog() dialogJSON {
	return dialogJSON{Bank: s.bank, State: s.state, TanMode: s.mode, TanMedium: s.medium}
}

// advance keeps the state of a successful response.
func (s *Session) advance(resp dialogResponse) {
	if len(resp.State) > 0 {
		s.state = resp.State
	}
}

// Login starts an authenticated dialog.
func (s *Session) Login(ctx context.Context) (model.LoginResult, error) {
	var resp dialogResponse
	if err := s.client.post(ctx, "/v1/dialogs/login", s.dialog(), &resp); err != nil {
		return model.LoginResult{}, err
	}
	s.advance(resp)
	return model.LoginResult{Challenge: resp.Challenge.toModel(), Pending: resp.Pending}, nil
}

// SubmitChallengeResponse completes the parked action identified by pending.
func (s *Session) SubmitChallengeResponse(ctx context.Context, pending []byte, response string) error {
	req := challengeRequest{dialogJSON: s.dialog(), Pending: pending, Response: response}

	var resp dialogResponse
	if err := s.client.post(ctx, "/v1/dialogs/challenge", req, &resp); err != nil {
		return err
	}
	s.advance(resp)
	return nil
}

// ListAccounts lists the SEPA accounts reachable with the credentials.
func (s *Session) ListAccounts(ctx context.Context) (model.AccountsResult, error) {
	var resp accountsResponse
	if err := s.client.post(ctx, "/v1/accounts", s.dialog(), &resp); err != nil {
		return model.AccountsResult{}, err
	}
	s.advance(resp.dialogResponse)

	res := model.AccountsResult{Challenge: resp.Challenge.toModel()}
	for _, a := range resp.Accounts {
		res.Accounts = append(res.Accounts, model.BankAccount(a))
	}
	return res, nil
}

// FetchStatement fetches the bookings of account between from and to.
func (s *Session) FetchStatement(ctx context.Context, account model.BankAccount, from, to time.Time) (model.StatementResult, error) {
	req := statementRequest{
		dialogJSON: s.dialog(),
		Account:    accountJSON(account),
		From:       from.Format(dateLayout),
		To:         to.Format(dateLayout),
	}

	var resp statementResponse
	if err := s.client.post(ctx, "/v1/statements", req, &resp); err != nil {
		return model.StatementResult{}, err
	}
	s.advance(resp.dialogResponse)

	res := model.StatementResult{Challenge: resp.Challenge.toModel()}
	for i, e := range resp.Transactions {
		entry, err := e.toModel()
		if err != nil {
			return model.StatementResult{}, fmt.Errorf("transaction %d: parse booking date %q: %w", i, e.BookingDate, err)
		}
		res.Transactions = append(res.Transactions, entry)
	}
	return res, nil
}

// ListModes lists the institute's TAN modes from the anonymous dialog. The
// answer depends only on the institute and is served from the HTTP cache
// when the gateway allows it.
func (s *Session) ListModes(ctx context.Context) ([]model.TanMode, error) {
	query := url.Values{"url": {s.bank.URL}}
	path := "/v1/institutes/" + url.PathEscape(s.bank.BankCode) + "/tan-modes"

	var resp tanModesResponse
	if err := s.client.getCached(ctx, path, query, &resp); err != nil {
		return nil, err
	}

	modes := make([]model.TanMode, 0, len(resp.Modes))
	for _, m := range resp.Modes {
		modes = append(modes, model.TanMode(m))
	}
	return modes, nil
}

// ListMedia lists the user's TAN media for a mode.
func (s *Session) ListMedia(ctx context.Context, mode model.TanMode) ([]model.TanMedium, error) {
	req := mediaRequest{dialogJSON: s.dialog(), Mode: mode.ID}

	var resp tanMediaResponse
	if err := s.client.post(ctx, "/v1/tan-media", req, &resp); err != nil {
		return nil, err
	}
	s.advance(resp.dialogResponse)

	media := make([]model.TanMedium, 0, len(resp.Media))
	for _, m := range resp.Media {
		media = append(media, model.TanMedium(m))
	}
	return media, nil
}

// Persist returns the latest dialog state.
func (s *Session) Persist() ([]byte, error) {
	return s.state, nil
}
