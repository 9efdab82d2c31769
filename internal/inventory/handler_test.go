package inventory

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newProductServer(t *testing.T, products ...Product) (*Service, http.Handler) {
	t.Helper()
	svc, _ := newTestService(t, products...)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Route("/products", h.MountRoutes)
	return svc, r
}

func call(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProductHandlerCreateAndGet(t *testing.T) {
	_, h := newProductServer(t)

	rec := call(h, http.MethodPost, "/products/", `{"id":"B1","name":"콜라","category":"drink","price":1800,"target_stock":10,"current_stock":2,"expiry_date":"2025-10-13"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(h, http.MethodGet, "/products/B1/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view ProductView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, CategoryBeverage, view.Category)
	require.Equal(t, StatusLow, view.Status)
	require.NotNil(t, view.DaysLeft)
	require.Equal(t, 2, *view.DaysLeft)
	require.Equal(t, int64(1260), view.FinalPrice)

	rec = call(h, http.MethodPost, "/products/", `{"name":"물티슈","category":"household","price":1000,"target_stock":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotEmpty(t, view.ID)
}

func TestProductHandlerRejectsBadInput(t *testing.T) {
	_, h := newProductServer(t, milk(5, nil))

	rec := call(h, http.MethodPost, "/products/", `{"id":"X","name":"x","category":"spaceship","price":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(h, http.MethodPost, "/products/", `{"id":"X","category":"etc"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(h, http.MethodPost, "/products/", `{"id":"X","name":"x","category":"etc","expiry_date":"13/10/2025"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(h, http.MethodPost, "/products/", `{"id":"P1","name":"dup","category":"etc"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(h, http.MethodGet, "/products/NOPE/", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestProductHandlerStockFlow(t *testing.T) {
	svc, h := newProductServer(t, milk(5, nil))

	rec := call(h, http.MethodPost, "/products/P1/receive", `{"qty":5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(h, http.MethodPost, "/products/P1/sell", `{"qty":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var sale Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sale))
	require.Equal(t, int64(1500), sale.PriceAtSale)

	rec = call(h, http.MethodPost, "/products/P1/sell", `{"qty":30}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	rec = call(h, http.MethodPost, "/products/P1/dispose", `{"qty":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(h, http.MethodPost, "/products/P1/dispose", `{"qty":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	p, err := svc.Product(t.Context(), "P1")
	require.NoError(t, err)
	require.Equal(t, 5, p.CurrentStock)

	rec = call(h, http.MethodGet, "/products/?q=%EC%9A%B0%EC%9C%A0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []ProductView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = call(h, http.MethodDelete, "/products/P1/", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(h, http.MethodDelete, "/products/P1/", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
