package rest

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/italolelis/httpfetch/internal/logctx"
	"github.com/italolelis/httpfetch/internal/storage"
	"github.com/italolelis/httpfetch/internal/telemetry"
	"github.com/italolelis/httpfetch/internal/transfer"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// TransferController is the part of the transfer controller the API exposes.
type TransferController interface {
	Snapshot() transfer.Snapshot
	CancelDownload()
}

// StatusHandler serves the state of the running transfer, lets clients cancel
// it and lists the transfer history.
type StatusHandler struct {
	username  string
	password  string
	ctrl      TransferController
	history   storage.TransferReadRepository
	telemetry *telemetry.Telemetry
}

// NewStatusHandler creates the handler. Basic auth is enforced when username
// is not empty. history may be nil, in which case the history is empty.
func NewStatusHandler(username, password string, ctrl TransferController, history storage.TransferReadRepository, t *telemetry.Telemetry) *StatusHandler {
	return &StatusHandler{
		username:  username,
		password:  password,
		ctrl:      ctrl,
		history:   history,
		telemetry: t,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *StatusHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(telemetry.RequestID)
	r.Use(telemetry.HTTPLogging)
	r.Use(telemetry.NewHTTPMiddleware(h.telemetry).Middleware)

	r.Handle("/metrics", h.telemetry.Handler())

	r.Group(func(r chi.Router) {
		r.Use(h.basicAuthMiddleware)

		r.Get("/status", h.HandleStatus)
		r.Post("/cancel", h.HandleCancel)
		r.Get("/history", h.HandleHistory)
		r.Get("/history/{id}", h.HandleHistoryItem)
	})

	return r
}

// HandleStatus returns the snapshot of the current or last transfer.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.ctrl.Snapshot())
}

// HandleCancel aborts the transfer in progress.
func (h *StatusHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	if h.ctrl.Snapshot().State != transfer.InProgress {
		writeJSON(w, r, http.StatusConflict, errorResponse{Error: "no download in progress"})

		return
	}

	logger.Info("cancel requested through the API")
	h.ctrl.CancelDownload()

	writeJSON(w, r, http.StatusAccepted, h.ctrl.Snapshot())
}

// HandleHistory lists finished transfers, newest first.
func (h *StatusHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	limit := defaultHistoryLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})

			return
		}

		limit = min(n, maxHistoryLimit)
	}

	records := []storage.TransferRecord{}

	if h.history != nil {
		list, err := h.history.ListTransfers(r.Context(), limit)
		if err != nil {
			logger.Error("failed to list transfers", "err", err)
			writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "failed to list transfers"})

			return
		}

		if list != nil {
			records = list
		}
	}

	writeJSON(w, r, http.StatusOK, records)
}

// HandleHistoryItem returns one transfer of the history.
func (h *StatusHandler) HandleHistoryItem(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if h.history == nil {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: storage.ErrNotFound.Error()})

		return
	}

	record, err := h.history.GetTransfer(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: err.Error()})

		return
	}

	if err != nil {
		logger.Error("failed to get transfer", "transfer_id", id, "err", err)
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "failed to get transfer"})

		return
	}

	writeJSON(w, r, http.StatusOK, record)
}

func (h *StatusHandler) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.username == "" {
			next.ServeHTTP(w, r)

			return
		}

		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="httpfetch"`)
			http.Error(w, "invalid authorization format", http.StatusUnauthorized)

			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(h.password)) == 1

		if !userOK || !passOK {
			http.Error(w, "invalid username or password", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to encode response", "err", err)
	}
}
