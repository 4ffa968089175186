// Package http exposes financial statements, trial balances and ledger views
// as JSON endpoints.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/statements/internal/accounting/reports"
	"github.com/odyssey-erp/statements/internal/accounting/shared"
	"github.com/odyssey-erp/statements/internal/accounting/statements"
	"github.com/odyssey-erp/statements/internal/accounting/statements/store"
	"github.com/odyssey-erp/statements/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

// Generator produces financial statements.
type Generator interface {
	Generate(ctx context.Context, req statements.Request) (statements.Report, error)
}

// TrialBalancer builds trial balances.
type TrialBalancer interface {
	Build(ctx context.Context, companyID, fiscalYearID int64, asOf time.Time) (reports.TrialBalance, error)
}

// LedgerViewer builds general ledger views.
type LedgerViewer interface {
	Build(ctx context.Context, accountID, companyID, fiscalYearID int64, from, to *time.Time) (reports.GeneralLedger, error)
	BuildByCode(ctx context.Context, companyID, fiscalYearID int64, code string, from, to *time.Time) (reports.GeneralLedger, error)
}

// ResultStore persists asynchronous generations.
type ResultStore interface {
	Create(ctx context.Context, req statements.Request) (store.Result, error)
	Get(ctx context.Context, id string) (store.Result, error)
	Fail(ctx context.Context, id string, cause error) error
}

// JobQueue schedules asynchronous generations.
type JobQueue interface {
	EnqueueGenerate(ctx context.Context, reportID string) error
}

// Handler serves the finance reporting endpoints.
type Handler struct {
	logger    *slog.Logger
	generator Generator
	trial     TrialBalancer
	ledger    LedgerViewer
	results   ResultStore
	queue     JobQueue
	validate  *validator.Validate
	rateLimit func(http.Handler) http.Handler
	builds    singleflight.Group
}

// Option customises a Handler.
type Option func(*Handler)

// WithJobs enables asynchronous generation endpoints.
func WithJobs(results ResultStore, queue JobQueue) Option {
	return func(h *Handler) {
		h.results = results
		h.queue = queue
	}
}

// WithRateLimit caps statement generation requests per client IP per minute.
// A non-positive limit disables the limiter.
func WithRateLimit(perMinute int) Option {
	return func(h *Handler) {
		if perMinute <= 0 {
			h.rateLimit = func(next http.Handler) http.Handler { return next }
			return
		}
		h.rateLimit = httprate.LimitByIP(perMinute, time.Minute)
	}
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, generator Generator, trial TrialBalancer, ledger LedgerViewer, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:    logger,
		generator: generator,
		trial:     trial,
		ledger:    ledger,
		validate:  validator.New(),
		rateLimit: httprate.LimitByIP(30, time.Minute),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MountRoutes registers the finance reporting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/finance", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit)
			r.Get("/statements/balance-sheet", h.statement(statements.BalanceSheet))
			r.Get("/statements/income-statement", h.statement(statements.IncomeStatement))
			r.Get("/statements/cash-flow", h.statement(statements.CashFlow))
			r.Post("/statements/jobs", h.handleCreateJob)
		})
		r.Get("/statements/jobs/{id}", h.handleGetJob)
		r.Get("/trial-balance", h.handleTrialBalance)
		r.Get("/general-ledger", h.handleLedgerByCode)
		r.Get("/general-ledger/{accountID}", h.handleLedger)
	})
}

type scopeQuery struct {
	CompanyID    int64 `validate:"required,gt=0"`
	FiscalYearID int64 `validate:"required,gt=0"`
}

type jobRequest struct {
	CompanyID    int64  `json:"company_id" validate:"required,gt=0"`
	FiscalYearID int64  `json:"fiscal_year_id" validate:"required,gt=0"`
	Statement    string `json:"statement" validate:"required"`
	Standard     string `json:"standard"`
	AsOf         string `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
	PeriodEnd    string `json:"period_end" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) statement(kind statements.StatementType) http.HandlerFunc {
	dateParam := "period_end"
	if kind == statements.BalanceSheet {
		dateParam = "as_of"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := h.parseScope(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		date, err := parseDate(r, dateParam)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		req := statements.Request{
			CompanyID:    scope.CompanyID,
			FiscalYearID: scope.FiscalYearID,
			Statement:    kind,
			Standard:     statements.ParseStandard(r.URL.Query().Get("standard")),
		}
		if date != nil {
			if kind == statements.BalanceSheet {
				req.AsOf = *date
			} else {
				req.PeriodEnd = *date
			}
		}
		report, err := h.generate(r.Context(), req)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, report)
	}
}

// generate collapses concurrent identical requests into one build.
func (h *Handler) generate(ctx context.Context, req statements.Request) (statements.Report, error) {
	key := fmt.Sprintf("%s|%d|%d|%s|%s|%s", req.Statement, req.CompanyID, req.FiscalYearID, req.Standard,
		req.AsOf.Format(dateLayout), req.PeriodEnd.Format(dateLayout))
	ch := h.builds.DoChan(key, func() (any, error) {
		return h.generator.Generate(context.WithoutCancel(ctx), req)
	})
	select {
	case <-ctx.Done():
		return statements.Report{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return statements.Report{}, res.Err
		}
		return res.Val.(statements.Report), nil
	}
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	scope, err := h.parseScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	asOf, err := parseDate(r, "as_of")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var at time.Time
	if asOf != nil {
		at = *asOf
	}
	tb, err := h.trial.Build(r.Context(), scope.CompanyID, scope.FiscalYearID, at)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) handleLedger(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil || accountID <= 0 {
		h.fail(w, r, shared.Invalid("account id %q is not a positive integer", chi.URLParam(r, "accountID")))
		return
	}
	scope, from, to, err := h.parseLedgerQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	gl, err := h.ledger.Build(r.Context(), accountID, scope.CompanyID, scope.FiscalYearID, from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, gl)
}

func (h *Handler) handleLedgerByCode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		h.fail(w, r, shared.Invalid("code is required"))
		return
	}
	scope, from, to, err := h.parseLedgerQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	gl, err := h.ledger.BuildByCode(r.Context(), scope.CompanyID, scope.FiscalYearID, code, from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, gl)
}

func (h *Handler) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if h.results == nil || h.queue == nil {
		h.fail(w, r, fmt.Errorf("%w: asynchronous generation is disabled", httpx.ErrUnavailable))
		return
	}
	var body jobRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, shared.Invalid("malformed body: %v", err))
		return
	}
	if err := h.validate.Struct(body); err != nil {
		h.fail(w, r, shared.Invalid("%v", err))
		return
	}
	req, err := body.request()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.results.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.queue.EnqueueGenerate(r.Context(), res.ID); err != nil {
		if ferr := h.results.Fail(context.WithoutCancel(r.Context()), res.ID, fmt.Errorf("enqueue: %w", err)); ferr != nil {
			h.logger.Error("record enqueue failure", slog.String("report_id", res.ID), slog.Any("error", ferr))
		}
		h.fail(w, r, fmt.Errorf("%w: enqueue: %v", httpx.ErrUnavailable, err))
		return
	}
	w.Header().Set("Location", "/finance/statements/jobs/"+res.ID)
	httpx.JSON(w, http.StatusAccepted, res)
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if h.results == nil {
		h.fail(w, r, fmt.Errorf("%w: asynchronous generation is disabled", httpx.ErrUnavailable))
		return
	}
	res, err := h.results.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (b jobRequest) request() (statements.Request, error) {
	kind, err := statements.ParseStatementType(b.Statement)
	if err != nil {
		return statements.Request{}, err
	}
	req := statements.Request{
		CompanyID:    b.CompanyID,
		FiscalYearID: b.FiscalYearID,
		Statement:    kind,
		Standard:     statements.ParseStandard(b.Standard),
	}
	// Layouts were checked by the validator.
	if b.AsOf != "" {
		req.AsOf, _ = time.Parse(dateLayout, b.AsOf)
	}
	if b.PeriodEnd != "" {
		req.PeriodEnd, _ = time.Parse(dateLayout, b.PeriodEnd)
	}
	return req, nil
}

func (h *Handler) parseScope(r *http.Request) (scopeQuery, error) {
	q := r.URL.Query()
	var scope scopeQuery
	var err error
	if scope.CompanyID, err = parseID(q.Get("company_id"), "company_id"); err != nil {
		return scope, err
	}
	if scope.FiscalYearID, err = parseID(q.Get("fiscal_year_id"), "fiscal_year_id"); err != nil {
		return scope, err
	}
	if err := h.validate.Struct(scope); err != nil {
		return scope, shared.Invalid("%v", err)
	}
	return scope, nil
}

func (h *Handler) parseLedgerQuery(r *http.Request) (scopeQuery, *time.Time, *time.Time, error) {
	scope, err := h.parseScope(r)
	if err != nil {
		return scope, nil, nil, err
	}
	from, err := parseDate(r, "from")
	if err != nil {
		return scope, nil, nil, err
	}
	to, err := parseDate(r, "to")
	if err != nil {
		return scope, nil, nil, err
	}
	return scope, from, to, nil
}

func parseID(raw, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, shared.Invalid("%s is required", field)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, shared.Invalid("%s %q is not an integer", field, raw)
	}
	return id, nil
}

func parseDate(r *http.Request, param string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(param))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, shared.Invalid("%s %q is not a YYYY-MM-DD date", param, raw)
	}
	return &t, nil
}

// fail maps domain errors onto the httpx sentinels and writes the response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrUnavailable):
		h.logger.Warn("finance request rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
	case shared.IsNotFound(err):
		err = fmt.Errorf("%w: %w", httpx.ErrNotFound, err)
	case shared.IsInvalidInput(err):
		err = fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	case errors.Is(err, context.Canceled):
		return
	default:
		h.logger.Error("finance request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
