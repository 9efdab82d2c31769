package report

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newReportServer(t *testing.T) http.Handler {
	t.Helper()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), newTestReport(t))
	r := chi.NewRouter()
	r.Route("/reports", h.MountRoutes)
	return r
}

func TestDashboardEndpoint(t *testing.T) {
	h := newReportServer(t)

	var wg sync.WaitGroup
	bodies := make([]string, 8)
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/dashboard", nil))
			if rec.Code == http.StatusOK {
				bodies[i] = rec.Body.String()
			}
		}(i)
	}
	wg.Wait()
	for _, body := range bodies {
		require.True(t, strings.HasPrefix(body, "=== "))
		require.Equal(t, bodies[0], body)
	}
}

func TestSharedBuildOutlivesCaller(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), newTestReport(t))
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	observed := make(chan error, 1)
	done := make(chan error, 1)
	go func() {
		_, err, _ := h.build(ctx, "dashboard:test", func(ctx context.Context) (any, error) {
			close(started)
			<-release
			observed <- ctx.Err()
			return "ok", nil
		})
		done <- err
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	close(release)
	require.NoError(t, <-observed)
}

func TestSectionEndpoint(t *testing.T) {
	h := newReportServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/manual-discounts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "🈹 할인 등록 상품\n- 콜라: 수동 할인 10% (₩1,800 → ₩1,620)\n", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/today?format=json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sec Section
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sec))
	require.Equal(t, "today", sec.Key)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/unknown", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
