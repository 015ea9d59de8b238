package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func daysFromNow(days int) *time.Time {
	t := testNow.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

func testAccount(id string) model.Account {
	return model.Account{
		ID:      id,
		Backend: model.BackendFinTS,
		FinTS: model.FinTSConfig{
			URL:      "https://banking.example.com/fints",
			BankCode: "12030000",
			Username: "alice",
			PIN:      "12345",
		},
	}
}

// --- Mock implementations ---

type connectCall struct {
	cfg       model.BankConfig
	persisted []byte
}

type mockBank struct {
	mu sync.Mutex

	connectErr     error
	connectPanic   bool
	loginChallenge *model.TanChallenge
	loginErr       error
	modes          []model.TanMode
	modesErr       error
	media          []model.TanMedium
	accounts       []model.BankAccount
	accountsErrs   []error
	accountsChall  *model.TanChallenge
	statement      []model.StatementEntry
	statementErrs  []error
	submitErr      error

	connects     []connectCall
	selections   []string
	logins       int
	listModes    int
	submitted    []string
	fetched      []model.BankAccount
	stateCounter int
}

func (b *mockBank) Connect(_ context.Context, cfg model.BankConfig, persisted []byte) (driven.BankSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connectPanic {
		panic("protocol client crashed")
	}
	b.connects = append(b.connects, connectCall{cfg: cfg, persisted: persisted})
	if b.connectErr != nil {
		return nil, b.connectErr
	}
	return &mockSession{bank: b, state: persisted}, nil
}

func (b *mockBank) nextState() []byte {
	b.stateCounter++
	return []byte(fmt.Sprintf("state-%d", b.stateCounter))
}

func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

type mockSession struct {
	bank  *mockBank
	state []byte
}

func (s *mockSession) SelectUnattendedMode() error {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	s.bank.selections = append(s.bank.selections, model.UnattendedTanModeID)
	return nil
}

func (s *mockSession) SelectMode(modeID, medium string) error {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	s.bank.selections = append(s.bank.selections, modeID+"/"+medium)
	return nil
}

func (s *mockSession) Login(_ context.Context) (model.LoginResult, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	s.bank.logins++
	if s.bank.loginErr != nil {
		return model.LoginResult{}, s.bank.loginErr
	}
	s.state = s.bank.nextState()
	if s.bank.loginChallenge != nil {
		return model.LoginResult{Challenge: s.bank.loginChallenge, Pending: []byte("pending-login")}, nil
	}
	return model.LoginResult{}, nil
}

func (s *mockSession) SubmitChallengeResponse(_ context.Context, pending []byte, response string) error {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	s.bank.submitted = append(s.bank.submitted, string(pending)+":"+response)
	if s.bank.submitErr != nil {
		return s.bank.submitErr
	}
	s.state = []byte("state-after-tan")
	return nil
}

func (s *mockSession) ListAccounts(_ context.Context) (model.AccountsResult, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	if err := popErr(&s.bank.accountsErrs); err != nil {
		return model.AccountsResult{}, err
	}
	if s.bank.accountsChall != nil {
		return model.AccountsResult{Challenge: s.bank.accountsChall}, nil
	}
	return model.AccountsResult{Accounts: s.bank.accounts}, nil
}

func (s *mockSession) FetchStatement(_ context.Context, acct model.BankAccount, _, _ time.Time) (model.StatementResult, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	s.bank.fetched = append(s.bank.fetched, acct)
	if err := popErr(&s.bank.statementErrs); err != nil {
		return model.StatementResult{}, err
	}
	s.state = append(append([]byte(nil), s.state...), '+')
	return model.StatementResult{Transactions: s.bank.statement}, nil
}

func (s *mockSession) ListModes(_ context.Context) ([]model.TanMode, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	s.bank.listModes++
	return s.bank.modes, s.bank.modesErr
}

func (s *mockSession) ListMedia(_ context.Context, _ model.TanMode) ([]model.TanMedium, error) {
	return s.bank.media, nil
}

func (s *mockSession) Persist() ([]byte, error) {
	if s.state == nil {
		return []byte("anonymous"), nil
	}
	return s.state, nil
}

type mockRecordStore struct {
	records map[string]model.AuthRecord
	saves   int
	getErr  error

	// beforeWarningUpdate runs inside UpdateWarning before the comparison.
	beforeWarningUpdate func()
}

func newMockRecordStore(records ...model.AuthRecord) *mockRecordStore {
	s := &mockRecordStore{records: make(map[string]model.AuthRecord)}
	for _, r := range records {
		s.records[r.Account] = r
	}
	return s
}

func (s *mockRecordStore) Get(_ context.Context, account string) (*model.AuthRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	r, ok := s.records[account]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *mockRecordStore) Save(_ context.Context, record *model.AuthRecord) error {
	s.saves++
	s.records[record.Account] = *record
	return nil
}

func (s *mockRecordStore) ListAll(_ context.Context) ([]model.AuthRecord, error) {
	out := make([]model.AuthRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *mockRecordStore) UpdateWarning(_ context.Context, account string, level int, sentAt, expectedExpires *time.Time) (bool, error) {
	if s.beforeWarningUpdate != nil {
		s.beforeWarningUpdate()
	}
	r, ok := s.records[account]
	if !ok || !sameTime(r.AuthExpires, expectedExpires) {
		return false, nil
	}
	r.WarningLevel = level
	r.LastWarningSent = sentAt
	s.records[account] = r
	return true, nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

type mockSetupStore struct {
	states map[string]model.SetupState
}

func newMockSetupStore() *mockSetupStore {
	return &mockSetupStore{states: make(map[string]model.SetupState)}
}

func (s *mockSetupStore) Put(_ context.Context, key string, state model.SetupState, _ time.Duration) error {
	s.states[key] = state
	return nil
}

func (s *mockSetupStore) Get(_ context.Context, key string) (*model.SetupState, error) {
	st, ok := s.states[key]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *mockSetupStore) Delete(_ context.Context, key string) error {
	delete(s.states, key)
	return nil
}

type mockAccountStore struct {
	accounts []model.Account
}

func (s *mockAccountStore) Get(_ context.Context, id string) (*model.Account, error) {
	for _, a := range s.accounts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *mockAccountStore) ListAll(_ context.Context) ([]model.Account, error) {
	return s.accounts, nil
}

func (s *mockAccountStore) Upsert(_ context.Context, account model.Account) error {
	s.accounts = append(s.accounts, account)
	return nil
}

type mockTransactionStore struct {
	txs    []model.Transaction
	latest *time.Time
}

func (s *mockTransactionStore) Insert(_ context.Context, tx model.Transaction) (bool, error) {
	for _, existing := range s.txs {
		if existing.Account == tx.Account && existing.BookedAt.Equal(tx.BookedAt) &&
			existing.Amount.Equal(tx.Amount) && existing.Description == tx.Description {
			return false, nil
		}
	}
	s.txs = append(s.txs, tx)
	return true, nil
}

func (s *mockTransactionStore) LatestBookedAt(_ context.Context, _ string) (*time.Time, error) {
	return s.latest, nil
}

func (s *mockTransactionStore) ListByAccount(_ context.Context, account string) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, tx := range s.txs {
		if tx.Account == account {
			out = append(out, tx)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	events []model.AuthEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event model.AuthEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

// errDialogAborted mimics the bank's message for an aborted dialog.
var errDialogAborted = errors.New("bank error: 9800 Der Dialog wurde abgebrochen")
