// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/bankster/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/bankster/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/bankster/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/bankster/internal/application"
	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	wizard    *application.SetupWizard
	accounts  driven.AccountStore
	statusSvc *application.StatusService
	backends  application.BackendRegistry
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. backends may
// be nil; the connection check after a successful setup is then skipped.
func NewHandler(
	wizard *application.SetupWizard,
	accounts driven.AccountStore,
	statusSvc *application.StatusService,
	backends application.BackendRegistry,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		wizard:    wizard,
		accounts:  accounts,
		statusSvc: statusSvc,
		backends:  backends,
		logger:    logger,
	}
}

// Accounts renders the account list with each account's auth status.
func (h *Handler) Accounts(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.statusSvc.ListStatuses(r.Context())
	if err != nil {
		h.logger.Error("failed to list account statuses", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	data := vm.AccountListViewModel{Accounts: make([]vm.AccountRowViewModel, 0, len(statuses))}
	for _, status := range statuses {
		data.Accounts = append(data.Accounts, toAccountRowViewModel(status))
	}

	h.render(w, r, "Accounts", pages.AccountList(data))
}

// SetupPage starts the FinTS setup wizard of an account.
func (h *Handler) SetupPage(w http.ResponseWriter, r *http.Request) {
	account, ok := h.loadFinTSAccount(w, r)
	if !ok {
		return
	}
	actorID(w, r)
	csrf := csrfToken(w, r)

	step := h.wizard.Begin(r.Context(), *account)
	if step.Err != nil {
		h.logger.Warn("setup mode discovery failed", "account", account.ID, "error", step.Err)
	}
	h.render(w, r, "FinTS setup", pages.Setup(toSetupPageViewModel(step, csrf)))
}

// SetupStep advances the FinTS setup wizard by one posted step.
func (h *Handler) SetupStep(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	account, ok := h.loadFinTSAccount(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var step application.WizardStep
	switch r.FormValue("step") {
	case pages.StepSelectTanMode:
		step = h.wizard.SelectMode(ctx, actorID(w, r), *account, r.FormValue("tan_mode"))
	case pages.StepSelectTanMedium:
		step = h.wizard.SelectMedium(ctx, existingActorID(r), *account, r.FormValue("tan_medium"))
	case pages.StepAuthenticate:
		step = h.wizard.Authenticate(ctx, existingActorID(r), *account)
	case pages.StepSubmitTan:
		step = h.wizard.SubmitChallenge(ctx, existingActorID(r), *account, strings.TrimSpace(r.FormValue("tan")))
	default:
		http.Error(w, "unknown setup step", http.StatusBadRequest)
		return
	}

	if step.State == application.StateError {
		h.logger.Warn("setup step failed", "account", account.ID, "step", r.FormValue("step"), "error", step.Err)
	}

	data := toSetupPageViewModel(step, csrfToken(w, r))
	if step.State == application.StateSuccess {
		data.SetupMessage = h.checkSetup(ctx, *account)
	}
	h.render(w, r, "FinTS setup", pages.Setup(data))
}

// checkSetup confirms the fresh authentication against the bank and returns
// the confirmation for display.
func (h *Handler) checkSetup(ctx context.Context, account model.Account) string {
	if h.backends == nil {
		return ""
	}
	backend, err := h.backends.Open(ctx, account)
	if err != nil {
		h.logger.Warn("setup check failed", "account", account.ID, "error", err)
		return ""
	}
	msg, err := backend.CheckSetup(ctx)
	if err != nil {
		h.logger.Warn("setup check failed", "account", account.ID, "error", err)
		return ""
	}
	return msg
}

// loadFinTSAccount loads the account named in the path and writes an error
// response when it does not exist or is not a FinTS account.
func (h *Handler) loadFinTSAccount(w http.ResponseWriter, r *http.Request) (*model.Account, bool) {
	id := r.PathValue("account")

	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get account", "account", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	if account == nil {
		http.Error(w, "account not found", http.StatusNotFound)
		return nil, false
	}
	if account.Backend != model.BackendFinTS {
		http.Error(w, "account does not use FinTS", http.StatusBadRequest)
		return nil, false
	}
	return account, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, title string, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := templates.Layout(title, body).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
