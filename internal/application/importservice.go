package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// importRequest represents a manual import trigger.
type importRequest struct {
	account string
	from    *time.Time
	done    chan importResponse
}

type importResponse struct {
	results []model.ImportResult
	err     error
}

// ImportService runs batch imports over all registered accounts. One
// account's failure never aborts the others.
type ImportService struct {
	accounts     driven.AccountStore
	transactions driven.TransactionStore
	backends     BackendRegistry
	baseURL      string
	interval     time.Duration
	logger       *slog.Logger
	now          func() time.Time
	runCh        chan importRequest
}

// NewImportService creates an ImportService. baseURL prefixes the setup
// links printed for expired accounts. A non-positive interval disables
// scheduled runs in Start; manual runs still work.
func NewImportService(
	accounts driven.AccountStore,
	transactions driven.TransactionStore,
	backends BackendRegistry,
	baseURL string,
	interval time.Duration,
	logger *slog.Logger,
) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		accounts:     accounts,
		transactions: transactions,
		backends:     backends,
		baseURL:      baseURL,
		interval:     interval,
		logger:       logger,
		now:          time.Now,
		runCh:        make(chan importRequest),
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *ImportService) WithClock(now func() time.Time) *ImportService {
	s.now = now
	return s
}

// Start runs the import loop until the context is canceled. It imports on
// the configured interval and serves manual requests from RunNow, so that
// no two imports ever run concurrently.
func (s *ImportService) Start(ctx context.Context) {
	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("import service stopped")
			return
		case <-tick:
			if _, err := s.Import(ctx, "", nil); err != nil {
				s.logger.Error("import cycle failed", "error", err)
			}
		case req := <-s.runCh:
			results, err := s.Import(ctx, req.account, req.from)
			req.done <- importResponse{results: results, err: err}
		}
	}
}

// RunNow asks the running loop to import now. An empty account imports all
// accounts; a nil from uses each account's last update. It blocks until the
// import completes or the context is canceled.
func (s *ImportService) RunNow(ctx context.Context, account string, from *time.Time) ([]model.ImportResult, error) {
	done := make(chan importResponse, 1)
	req := importRequest{account: account, from: from, done: done}

	select {
	case s.runCh <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-done:
		return resp.results, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Import imports one account, or all accounts when account is empty, and
// reports a result per account.
func (s *ImportService) Import(ctx context.Context, account string, from *time.Time) ([]model.ImportResult, error) {
	start := time.Now()

	accounts, err := s.selectAccounts(ctx, account)
	if err != nil {
		return nil, err
	}

	results := make([]model.ImportResult, 0, len(accounts))
	counts := make(map[model.ImportOutcome]int)
	for _, acct := range accounts {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		res := s.importAccount(ctx, acct, from)
		counts[res.Outcome]++
		results = append(results, res)
	}

	s.logger.Info("import cycle complete",
		"accounts", len(accounts),
		"imported", counts[model.OutcomeImported],
		"skipped_expired", counts[model.OutcomeSkippedExpired],
		"skipped_challenge", counts[model.OutcomeSkippedChallengeRequired],
		"failed", counts[model.OutcomeFailed],
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return results, nil
}

func (s *ImportService) selectAccounts(ctx context.Context, account string) ([]model.Account, error) {
	if account == "" {
		return s.accounts.ListAll(ctx)
	}
	acct, err := s.accounts.Get(ctx, account)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrAccountNotFound, account)
	}
	return []model.Account{*acct}, nil
}

// importAccount imports a single account and classifies the outcome.
func (s *ImportService) importAccount(ctx context.Context, account model.Account, from *time.Time) model.ImportResult {
	since := s.lastUpdate(ctx, account.ID)
	if from != nil {
		since = *from
	}
	s.logger.Info("importing account", "account", account.ID, "date", since.Format("2006-01-02"))

	count, err := s.runBackend(ctx, account, since)
	if err == nil {
		s.logger.Info("account imported", "account", account.ID, "transactions", count)
		return model.ImportResult{Account: account.ID, Outcome: model.OutcomeImported, Imported: count}
	}

	var expired *model.AuthExpiredError
	var challenge *model.ChallengeRequiredError
	switch {
	case errors.As(err, &expired), errors.Is(err, model.ErrNotConfigured):
		s.logger.Warn("account skipped", "account", account.ID, "message", err.Error())
		s.logger.Warn("please re-authenticate via web interface", "account", account.ID, "url", s.SetupURL(account.ID))
		return model.ImportResult{Account: account.ID, Outcome: model.OutcomeSkippedExpired, Err: err}
	case errors.As(err, &challenge):
		s.logger.Warn("account skipped", "account", account.ID, "message", err.Error())
		return model.ImportResult{Account: account.ID, Outcome: model.OutcomeSkippedChallengeRequired, Err: err}
	default:
		s.logger.Error("account import failed", "account", account.ID, "error", err)
		return model.ImportResult{Account: account.ID, Outcome: model.OutcomeFailed, Err: err}
	}
}

func (s *ImportService) runBackend(ctx context.Context, account model.Account, since time.Time) (int, error) {
	backend, err := s.backends.Open(ctx, account)
	if err != nil {
		return 0, err
	}
	return backend.ImportSince(ctx, since)
}

// lastUpdate returns the booking time of the newest stored transaction, or
// the first second of the current year for accounts without transactions.
func (s *ImportService) lastUpdate(ctx context.Context, account string) time.Time {
	latest, err := s.transactions.LatestBookedAt(ctx, account)
	if err != nil {
		s.logger.Error("load last update failed", "account", account, "error", err)
	}
	if latest != nil {
		return *latest
	}
	now := s.now()
	return time.Date(now.Year(), time.January, 1, 0, 0, 1, 0, now.Location())
}

// SetupURL returns the link to the setup wizard of an account.
func (s *ImportService) SetupURL(account string) string {
	return SetupPath(s.baseURL, account)
}

// SetupPath joins baseURL and the setup wizard path of an account.
func SetupPath(baseURL, account string) string {
	return baseURL + "/accounts/" + account + "/fints-setup"
}
