package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/statements/internal/accounting/shared"
	statementshttp "github.com/odyssey-erp/statements/internal/accounting/statements/http"
	"github.com/odyssey-erp/statements/internal/observability"
	"github.com/odyssey-erp/statements/jobs"
)

func TestRouterServesHealthMetricsAndFinance(t *testing.T) {
	metrics := observability.NewMetrics()
	cfg := &Config{AppEnv: "development", LogLevel: "error"}
	handler := statementshttp.NewHandler(nil, nil, nil, nil)
	router := NewRouter(RouterParams{
		Logger:            newLogger(cfg, new(strings.Builder)),
		Config:            cfg,
		StatementsHandler: handler,
		JobHandler:        jobs.NewHandler(nil, nil),
		Metrics:           metrics,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/finance/trial-balance?fiscal_year_id=1", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `statements_http_requests_total{code="400",route="/finance/trial-balance"} 1`)
}

func TestNewServicesValidatesDefaultStandard(t *testing.T) {
	cfg := &Config{Workers: 4, Tolerance: "0.01", DefaultStandard: "GAAP"}
	_, err := NewServices(cfg, Backends{}, nil, prometheus.NewRegistry())
	require.ErrorIs(t, err, shared.ErrStandardNotFound)

	cfg.DefaultStandard = "IFRS"
	svc, err := NewServices(cfg, Backends{}, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	require.Equal(t, "IFRS", string(svc.Assembler.DefaultStandard()))
	require.Len(t, svc.Registry.Standards(), 2)
}
