package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

func TestMetricsLabelsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := chi.NewRouter()
	r.Use(Metrics(metrics.NewHTTPMetrics(reg)))
	r.Get("/api/v1/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+id, nil))
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "storefront_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["route"] != "/api/v1/orders/{orderId}" {
				t.Fatalf("unexpected route label %q", labels["route"])
			}
			if labels["status"] != "404" {
				t.Fatalf("unexpected status label %q", labels["status"])
			}
			if m.GetCounter().GetValue() != 2 {
				t.Fatalf("expected 2 requests, got %f", m.GetCounter().GetValue())
			}
			found = true
		}
	}
	if !found {
		t.Fatal("expected http request counter to be exported")
	}
}

func TestMetricsNilIsPassThrough(t *testing.T) {
	called := false
	h := Metrics(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("expected wrapped handler to run")
	}
}

func TestRecovererCountsPanicsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewHTTPMetrics(reg)
	r := chi.NewRouter()
	r.Use(Recoverer(nil, m), Metrics(m))
	r.Get("/api/v1/products/{slug}", func(http.ResponseWriter, *http.Request) {
		panic("nil map")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/mug", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "storefront_http_panics_total" {
			continue
		}
		got := mf.GetMetric()[0]
		if got.GetLabel()[0].GetValue() != "/api/v1/products/{slug}" || got.GetCounter().GetValue() != 1 {
			t.Fatalf("unexpected panic sample %v", got)
		}
		return
	}
	t.Fatalf("panic counter not exported")
}
