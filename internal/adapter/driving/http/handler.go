package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/bankster/internal/application"
	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	statusSvc *application.StatusService
	accounts  driven.AccountStore
	importSvc *application.ImportService
	pinger    Pinger
	baseURL   string
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. importSvc and
// pinger may be nil; manual imports then answer 503 and the health check
// skips the store ping.
func NewHandler(
	statusSvc *application.StatusService,
	accounts driven.AccountStore,
	importSvc *application.ImportService,
	pinger Pinger,
	baseURL string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		statusSvc: statusSvc,
		accounts:  accounts,
		importSvc: importSvc,
		pinger:    pinger,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return ApplyMiddleware(mux, logger)
}

// RegisterRoutes registers the API routes on an existing mux so the web GUI
// can share one server.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/accounts", h.ListAccounts)
	mux.HandleFunc("GET /api/v1/accounts/{account}", h.GetAccount)
	mux.HandleFunc("PUT /api/v1/accounts/{account}", h.UpsertAccount)
	mux.HandleFunc("GET /api/v1/accounts/{account}/auth", h.GetAuthStatus)
	mux.HandleFunc("POST /api/v1/imports", h.RunImport)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// ListAccounts returns the authentication status of every registered account.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.statusSvc.ListStatuses(r.Context())
	if err != nil {
		h.logger.Error("failed to list account statuses", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]AuthStatusResponse, 0, len(statuses))
	for _, status := range statuses {
		resp = append(resp, toAuthStatusResponse(status, application.SetupPath(h.baseURL, status.Account)))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetAccount returns the stored configuration of one account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("account")

	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get account", "account", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(*account))
}

// GetAuthStatus returns the authentication status of one account.
func (h *Handler) GetAuthStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("account")

	status, err := h.statusSvc.GetStatus(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get account status", "account", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if status == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	writeJSON(w, http.StatusOK, toAuthStatusResponse(*status, application.SetupPath(h.baseURL, id)))
}

// UpsertAccount registers an account or replaces its configuration. An empty
// pass keeps the stored PIN.
func (h *Handler) UpsertAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("account")
	if !isValidAccountID(id) {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	var req UpsertAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Backend == "" {
		req.Backend = model.BackendFinTS
	}
	if req.Backend == model.BackendFinTS && (req.URL == "" || req.Code == "" || req.User == "") {
		writeError(w, http.StatusBadRequest, "url, code and user are required for fints accounts")
		return
	}

	existing, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get account", "account", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	account := model.Account{
		ID:      id,
		Backend: req.Backend,
		FinTS: model.FinTSConfig{
			URL:      req.URL,
			BankCode: req.Code,
			Username: req.User,
			PIN:      req.Pass,
			Ident:    req.Ident,
		},
	}
	status := http.StatusCreated
	if existing != nil {
		status = http.StatusOK
		account.CreatedAt = existing.CreatedAt
		if account.FinTS.PIN == "" {
			account.FinTS.PIN = existing.FinTS.PIN
		}
	}

	if err := h.accounts.Upsert(r.Context(), account); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.logger.Error("failed to upsert account", "account", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("account saved", "account", id, "backend", account.Backend)
	writeJSON(w, status, toAccountResponse(account))
}

// RunImport imports one or all accounts and reports the outcome per account.
// The request body is optional.
func (h *Handler) RunImport(w http.ResponseWriter, r *http.Request) {
	if h.importSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "import service not available")
		return
	}

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var from *time.Time
	if req.From != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.From, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date: expected YYYY-MM-DD")
			return
		}
		from = &parsed
	}

	// A batch waits on the bank once per account, so it can outlast the
	// server's write timeout. The request context still ends it when the
	// client goes away.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("failed to lift write deadline for import", "error", err)
	}

	results, err := h.importSvc.RunNow(r.Context(), req.Account, from)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.logger.Error("manual import failed", "account", req.Account, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ImportResultResponse, 0, len(results))
	for _, res := range results {
		resp = append(resp, toImportResultResponse(res))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health reports whether the service and its database are reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unavailable",
				Time:   time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// isValidAccountID validates that id is non-empty and contains only
// alphanumeric characters, hyphens, dots, or underscores.
func isValidAccountID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, ch := range id {
		if !isValidAccountChar(ch) {
			return false
		}
	}
	return true
}

func isValidAccountChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '.' || ch == '_'
}
