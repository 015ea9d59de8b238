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

// WizardState is a state of the interactive TAN setup.
type WizardState string

const (
	StateSelectTanMode             WizardState = "select_tan_mode"
	StateSelectTanMedium           WizardState = "select_tan_medium"
	StateAuthenticating            WizardState = "authenticating"
	StateAwaitingChallengeResponse WizardState = "awaiting_challenge_response"
	StateSuccess                   WizardState = "success"
	StateError                     WizardState = "error"
)

// WizardStep is what a wizard transition produced. Err is set in StateError
// and when mode discovery failed in StateSelectTanMode.
type WizardStep struct {
	State     WizardState
	Account   string
	Modes     []model.TanMode
	Mode      *model.TanMode
	Media     []model.TanMedium
	Challenge *model.TanChallenge
	Err       error
}

// DefaultSetupTTL is how long an in-flight setup survives between steps.
const DefaultSetupTTL = 15 * time.Minute

// SetupWizard drives the multi-step TAN setup of an account. Every step is a
// separate invocation; state between steps lives in the SetupStateStore,
// keyed by the initiating actor and the account.
type SetupWizard struct {
	connector driven.BankConnector
	records   driven.AuthRecordStore
	setup     driven.SetupStateStore
	policy    *PolicyProvider
	expiry    model.ExpiryPolicy
	product   ProductInfo
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewSetupWizard creates a SetupWizard. A non-positive ttl falls back to
// DefaultSetupTTL.
func NewSetupWizard(
	connector driven.BankConnector,
	records driven.AuthRecordStore,
	setup driven.SetupStateStore,
	policy *PolicyProvider,
	expiry model.ExpiryPolicy,
	product ProductInfo,
	ttl time.Duration,
	logger *slog.Logger,
) *SetupWizard {
	if ttl <= 0 {
		ttl = DefaultSetupTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SetupWizard{
		connector: connector,
		records:   records,
		setup:     setup,
		policy:    policy,
		expiry:    expiry,
		product:   product,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (w *SetupWizard) WithClock(now func() time.Time) *SetupWizard {
	w.now = now
	return w
}

// setupKey scopes transient state to one actor and one account.
func setupKey(actor, account string) string {
	return actor + "|" + account
}

func errorStep(account string, err error) WizardStep {
	return WizardStep{State: StateError, Account: account, Err: err}
}

// Begin enters SelectTanMode and lists the modes the institute offers.
func (w *SetupWizard) Begin(ctx context.Context, account model.Account) WizardStep {
	client, err := w.connector.Connect(ctx, bankConfigFor(account, w.product), nil)
	if err != nil {
		return WizardStep{State: StateSelectTanMode, Account: account.ID, Err: fmt.Errorf("failed to connect to bank: %w", err)}
	}

	modes, err := w.discoverModes(ctx, account, client)
	if err != nil {
		return WizardStep{State: StateSelectTanMode, Account: account.ID, Err: fmt.Errorf("failed to connect to bank: %w", err)}
	}
	return WizardStep{State: StateSelectTanMode, Account: account.ID, Modes: modes}
}

// discoverModes lists TAN modes, offering only the unattended mode for
// institutes that reject the anonymous discovery dialog.
func (w *SetupWizard) discoverModes(ctx context.Context, account model.Account, client driven.BankSession) ([]model.TanMode, error) {
	policy := w.policy.Get()
	if policy.SkipsAnonymousDialog(account.FinTS.BankCode) {
		return []model.TanMode{model.UnattendedTanMode()}, nil
	}

	modes, err := client.ListModes(ctx)
	if err != nil {
		if policy.IsAnonymousDialogRejection(err) {
			w.logger.Info("anonymous dialog rejected, offering unattended mode only", "account", account.ID, "error", err)
			return []model.TanMode{model.UnattendedTanMode()}, nil
		}
		return nil, err
	}
	return modes, nil
}

// SelectMode records the chosen TAN mode. The unattended mode and modes
// without a medium continue straight to Authenticate; modes that need a
// medium enter SelectTanMedium. An empty mode id restarts the wizard.
func (w *SetupWizard) SelectMode(ctx context.Context, actor string, account model.Account, modeID string) WizardStep {
	if modeID == "" {
		return w.Begin(ctx, account)
	}
	if actor == "" {
		return errorStep(account.ID, model.ErrSetupSessionExpired)
	}
	key := setupKey(actor, account.ID)

	if modeID == model.UnattendedTanModeID {
		if err := w.setup.Put(ctx, key, w.newState(account.ID, modeID, ""), w.ttl); err != nil {
			return errorStep(account.ID, fmt.Errorf("store setup state: %w", err))
		}
		return w.Authenticate(ctx, actor, account)
	}

	selectionFailed := func(err error) WizardStep {
		return WizardStep{State: StateSelectTanMode, Account: account.ID, Modes: []model.TanMode{}, Err: err}
	}

	client, err := w.connector.Connect(ctx, bankConfigFor(account, w.product), nil)
	if err != nil {
		return selectionFailed(err)
	}
	modes, err := w.discoverModes(ctx, account, client)
	if err != nil {
		return selectionFailed(err)
	}

	var selected *model.TanMode
	for i := range modes {
		if modes[i].ID == modeID {
			selected = &modes[i]
			break
		}
	}
	if selected == nil {
		return selectionFailed(model.ErrUnknownTanMode)
	}

	if err := w.setup.Put(ctx, key, w.newState(account.ID, modeID, ""), w.ttl); err != nil {
		return errorStep(account.ID, fmt.Errorf("store setup state: %w", err))
	}

	if !selected.NeedsMedium {
		return w.Authenticate(ctx, actor, account)
	}

	media, err := client.ListMedia(ctx, *selected)
	if err != nil {
		return selectionFailed(err)
	}
	return WizardStep{State: StateSelectTanMedium, Account: account.ID, Mode: selected, Media: media}
}

// SelectMedium records the chosen TAN medium and continues to Authenticate.
// An empty medium restarts the wizard.
func (w *SetupWizard) SelectMedium(ctx context.Context, actor string, account model.Account, medium string) WizardStep {
	if medium == "" {
		return w.Begin(ctx, account)
	}
	key := setupKey(actor, account.ID)

	state, err := w.setup.Get(ctx, key)
	if err != nil {
		return errorStep(account.ID, fmt.Errorf("load setup state: %w", err))
	}
	if state == nil || state.TanMode == "" {
		return w.Begin(ctx, account)
	}

	state.TanMedium = medium
	if err := w.setup.Put(ctx, key, *state, w.ttl); err != nil {
		return errorStep(account.ID, fmt.Errorf("store setup state: %w", err))
	}
	return w.Authenticate(ctx, actor, account)
}

// Authenticate logs in from scratch with the selected mode and medium. If the
// bank demands a challenge the pending login is parked in the transient
// store and the wizard awaits the response; otherwise the AuthRecord is
// written and the wizard succeeds.
func (w *SetupWizard) Authenticate(ctx context.Context, actor string, account model.Account) WizardStep {
	key := setupKey(actor, account.ID)

	state, err := w.setup.Get(ctx, key)
	if err != nil {
		return errorStep(account.ID, fmt.Errorf("load setup state: %w", err))
	}
	if state == nil || state.TanMode == "" {
		return w.Begin(ctx, account)
	}

	client, err := connectWithMode(ctx, w.connector, bankConfigFor(account, w.product), nil, state.TanMode, state.TanMedium)
	if err != nil {
		return errorStep(account.ID, err)
	}

	login, err := client.Login(ctx)
	if err != nil {
		return errorStep(account.ID, err)
	}

	persisted, err := client.Persist()
	if err != nil {
		return errorStep(account.ID, err)
	}

	if login.NeedsChallenge() {
		state.Pending = login.Pending
		state.PersistedState = persisted
		if err := w.setup.Put(ctx, key, *state, w.ttl); err != nil {
			return errorStep(account.ID, fmt.Errorf("store setup state: %w", err))
		}
		w.logger.Info("setup awaiting challenge response", "account", account.ID, "tan_mode", state.TanMode)
		return WizardStep{State: StateAwaitingChallengeResponse, Account: account.ID, Challenge: login.Challenge}
	}

	return w.complete(ctx, key, account.ID, state, persisted)
}

// SubmitChallenge completes a parked login with the user's response. Failed
// submissions keep the transient state so the user can retry.
func (w *SetupWizard) SubmitChallenge(ctx context.Context, actor string, account model.Account, response string) WizardStep {
	if response == "" {
		return errorStep(account.ID, model.ErrNoChallengeResponse)
	}
	key := setupKey(actor, account.ID)

	state, err := w.setup.Get(ctx, key)
	if err != nil {
		return errorStep(account.ID, fmt.Errorf("load setup state: %w", err))
	}
	if state == nil || state.TanMode == "" || !state.AwaitingChallenge() {
		return errorStep(account.ID, model.ErrSetupSessionExpired)
	}

	client, err := w.connector.Connect(ctx, bankConfigFor(account, w.product), state.PersistedState)
	if err != nil {
		return errorStep(account.ID, fmt.Errorf("TAN submission failed: %w", err))
	}
	if err := client.SubmitChallengeResponse(ctx, state.Pending, response); err != nil {
		w.logger.Warn("challenge response rejected", "account", account.ID, "error", err)
		return errorStep(account.ID, fmt.Errorf("TAN submission failed: %w", err))
	}

	persisted, err := client.Persist()
	if err != nil {
		return errorStep(account.ID, fmt.Errorf("TAN submission failed: %w", err))
	}
	return w.complete(ctx, key, account.ID, state, persisted)
}

// complete writes the fresh AuthRecord and clears the transient state.
func (w *SetupWizard) complete(ctx context.Context, key, account string, state *model.SetupState, persisted []byte) WizardStep {
	if _, err := saveAuthenticated(ctx, w.records, account, state.TanMode, state.TanMedium, persisted, w.now(), w.expiry.Validity); err != nil {
		return errorStep(account, err)
	}

	if err := w.setup.Delete(ctx, key); err != nil {
		w.logger.Warn("clear setup state failed", "account", account, "error", err)
	}
	w.logger.Info("setup complete", "account", account, "tan_mode", state.TanMode)
	return WizardStep{State: StateSuccess, Account: account}
}

func (w *SetupWizard) newState(account, mode, medium string) model.SetupState {
	return model.SetupState{
		Account:   account,
		TanMode:   mode,
		TanMedium: medium,
		CreatedAt: w.now(),
	}
}

// IsSetupExpired reports whether a step failed because the transient setup
// state was gone.
func IsSetupExpired(step WizardStep) bool {
	return step.State == StateError && errors.Is(step.Err, model.ErrSetupSessionExpired)
}
