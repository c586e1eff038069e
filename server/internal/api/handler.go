package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pspwatch/pspwatch/pkg/types"
	"github.com/pspwatch/pspwatch/server/internal/alerts"
	"github.com/pspwatch/pspwatch/server/internal/compute"
	"github.com/pspwatch/pspwatch/server/internal/ingest"
	"github.com/pspwatch/pspwatch/server/internal/monitor"
	"github.com/pspwatch/pspwatch/server/internal/store"
)

// maxBodyBytes bounds request bodies; a full bulk request is well under it.
const maxBodyBytes = 4 << 20

// Counter reports the number of stored transactions.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Ingester accepts transactions.
type Ingester interface {
	Single(ctx context.Context, raw types.Transaction) (string, error)
	Batch(ctx context.Context, raws []types.Transaction) (types.BulkResult, error)
}

// Monitor answers health queries.
type Monitor interface {
	Resolve(from, to *time.Time) compute.TimeRange
	Thresholds() compute.Thresholds
	AllHealth(ctx context.Context, r compute.TimeRange) ([]compute.PSPHealth, error)
	Health(ctx context.Context, psp string, r compute.TimeRange) (compute.PSPHealth, error)
	Methods(ctx context.Context, psp string, r compute.TimeRange) ([]compute.PSPMetrics, error)
	Trends(ctx context.Context, psp string, r compute.TimeRange) (compute.TrendData, error)
	Scores(ctx context.Context, r compute.TimeRange) ([]compute.PSPHealthScore, error)
	Summary(ctx context.Context, r compute.TimeRange) (monitor.AlertSummary, error)
}

// ActiveAlerts lists firing and recently resolved alerts.
type ActiveAlerts interface {
	Active() []alerts.Alert
}

// Deps are the collaborators a Handler serves from.
type Deps struct {
	Counter  Counter
	Ingester Ingester
	Monitor  Monitor
	Alerts   ActiveAlerts
}

// Handler is the HTTP handler for /ping and all /api/* endpoints.
type Handler struct {
	counter Counter
	ingest  Ingester
	monitor Monitor
	alerts  ActiveAlerts
	mux     *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(d Deps) http.Handler {
	h := &Handler{
		counter: d.Counter,
		ingest:  d.Ingester,
		monitor: d.Monitor,
		alerts:  d.Alerts,
		mux:     http.NewServeMux(),
	}

	h.mux.HandleFunc("/ping", h.ping)
	h.mux.HandleFunc("/api/transactions", h.createTransaction)
	h.mux.HandleFunc("/api/transactions/bulk", h.createBulk)
	h.mux.HandleFunc("/api/health", h.listHealth)
	h.mux.HandleFunc("/api/health/scores", h.scores)
	h.mux.HandleFunc("/api/health/", h.pspRoutes) // subtree: {psp}, {psp}/methods, {psp}/trends
	h.mux.HandleFunc("/api/alerts", h.alertSummary)
	h.mux.HandleFunc("/api/alerts/config", h.alertConfig)
	h.mux.HandleFunc("/api/alerts/active", h.activeAlerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// ping returns GET /ping, the only endpoint without the envelope.
func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	n, err := h.counter.Count(r.Context())
	if err != nil {
		internalErr(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, PingResponse{Status: "ok", TransactionCount: n})
}

// createTransaction handles POST /api/transactions.
func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var raw types.Transaction
	if !decodeBody(w, r, &raw) {
		return
	}

	id, err := h.ingest.Single(r.Context(), raw)
	if err != nil {
		h.writeErr(w, r, err, "")
		return
	}
	ok(w, http.StatusCreated, CreatedResponse{TransactionID: id})
}

// createBulk handles POST /api/transactions/bulk.
func (h *Handler) createBulk(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req types.BulkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.ingest.Batch(r.Context(), req.Transactions)
	if err != nil {
		h.writeErr(w, r, err, "")
		return
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	ok(w, http.StatusCreated, res)
}

// listHealth returns GET /api/health.
func (h *Handler) listHealth(w http.ResponseWriter, r *http.Request) {
	tr, done := h.readRequest(w, r)
	if done {
		return
	}
	psps, err := h.monitor.AllHealth(r.Context(), tr)
	if err != nil {
		h.writeErr(w, r, err, "")
		return
	}
	ok(w, http.StatusOK, HealthListResponse{PSPs: nonNil(psps)})
}

// scores returns GET /api/health/scores.
func (h *Handler) scores(w http.ResponseWriter, r *http.Request) {
	tr, done := h.readRequest(w, r)
	if done {
		return
	}
	scores, err := h.monitor.Scores(r.Context(), tr)
	if err != nil {
		h.writeErr(w, r, err, "")
		return
	}
	ok(w, http.StatusOK, ScoresResponse{Scores: nonNil(scores)})
}

// pspRoutes dispatches GET /api/health/{psp}[/methods|/trends].
func (h *Handler) pspRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/health/"), "/")
	if rest == "" {
		h.listHealth(w, r)
		return
	}

	psp, sub, _ := strings.Cut(rest, "/")
	switch sub {
	case "":
		h.pspHealth(w, r, psp)
	case "methods":
		h.pspMethods(w, r, psp)
	case "trends":
		h.pspTrends(w, r, psp)
	default:
		jsonErr(w, http.StatusNotFound, "not found", nil)
	}
}

func (h *Handler) pspHealth(w http.ResponseWriter, r *http.Request, psp string) {
	tr, done := h.readRequest(w, r)
	if done {
		return
	}
	res, err := h.monitor.Health(r.Context(), psp, tr)
	if err != nil {
		h.writeErr(w, r, err, psp)
		return
	}
	ok(w, http.StatusOK, res)
}

func (h *Handler) pspMethods(w http.ResponseWriter, r *http.Request, psp string) {
	tr, done := h.readRequest(w, r)
	if done {
		return
	}
	methods, err := h.monitor.Methods(r.Context(), psp, tr)
	if err != nil {
		h.writeErr(w, r, err, psp)
		return
	}
	ok(w, http.StatusOK, MethodsResponse{PSP: psp, Methods: methods})
}

func (h *Handler) pspTrends(w http.ResponseWriter, r *http.Request, psp string) {
	tr, done := h.readRequest(w, r)
	if done {
		return
	}
	res, err := h.monitor.Trends(r.Context(), psp, tr)
	if err != nil {
		h.writeErr(w, r, err, psp)
		return
	}
	ok(w, http.StatusOK, res)
}

// alertSummary returns GET /api/alerts.
func (h *Handler) alertSummary(w http.ResponseWriter, r *http.Request) {
	tr, done := h.readRequest(w, r)
	if done {
		return
	}
	s, err := h.monitor.Summary(r.Context(), tr)
	if err != nil {
		h.writeErr(w, r, err, "")
		return
	}
	ok(w, http.StatusOK, s)
}

// alertConfig returns GET /api/alerts/config.
func (h *Handler) alertConfig(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	ok(w, http.StatusOK, thresholdStrings(h.monitor.Thresholds()))
}

// activeAlerts returns GET /api/alerts/active.
func (h *Handler) activeAlerts(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	var active []alerts.Alert
	if h.alerts != nil {
		active = h.alerts.Active()
	}
	ok(w, http.StatusOK, ActiveResponse{Alerts: nonNil(active)})
}

// --- helpers ----------------------------------------------------------------

// readRequest enforces GET and resolves the query time range. It returns
// done=true when a response has already been written.
func (h *Handler) readRequest(w http.ResponseWriter, r *http.Request) (compute.TimeRange, bool) {
	if !allow(w, r, http.MethodGet) {
		return compute.TimeRange{}, true
	}
	tr, errs := h.timeRange(r)
	if errs != nil {
		jsonErr(w, http.StatusBadRequest, "Invalid query parameters", errs)
		return compute.TimeRange{}, true
	}
	return tr, false
}

// writeErr maps service errors onto status codes.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error, psp string) {
	var verr *ingest.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonErr(w, http.StatusBadRequest, "Validation failed", verr.Fields)
	case errors.Is(err, store.ErrDuplicate):
		jsonErr(w, http.StatusConflict, "Transaction with this ID already exists", nil)
	case errors.Is(err, monitor.ErrNoData):
		jsonErr(w, http.StatusNotFound, fmt.Sprintf("No data found for PSP: %s", psp), nil)
	default:
		internalErr(w, r, err)
	}
}

func internalErr(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("api: request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	jsonErr(w, http.StatusInternalServerError, "Internal Server Error", nil)
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	jsonErr(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	return false
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		jsonErr(w, http.StatusBadRequest, "Invalid JSON body", []ingest.FieldError{{Field: "body", Message: err.Error()}})
		return false
	}
	return true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func ok(w http.ResponseWriter, code int, data any) {
	jsonResp(w, code, envelope{Success: true, Data: data})
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string, details any) {
	jsonResp(w, code, envelope{Error: msg, Details: details})
}
