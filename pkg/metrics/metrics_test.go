package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSaleMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSaleMetrics(reg)
	m.SaleCreated("cash", 4)
	m.SaleCreated("cash", 2)
	m.SaleRejected("INSUFFICIENT_STOCK")
	m.Restocked("refund", 4)
	m.Restocked("delete", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "pharmacy_sales_created_total", "payment_method", "cash"); err != nil {
		t.Fatalf("fetch created: %v", err)
	} else if got != 2 {
		t.Fatalf("expected created=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "pharmacy_sales_rejected_total", "reason", "INSUFFICIENT_STOCK"); err != nil {
		t.Fatalf("fetch rejected: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rejected=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "pharmacy_inventory_units_restocked_total", "trigger", "refund"); err != nil {
		t.Fatalf("fetch restocked: %v", err)
	} else if got != 4 {
		t.Fatalf("expected restocked=4, got %f", got)
	}
	if _, err := fetchCounterValue(mfs, "pharmacy_inventory_units_restocked_total", "trigger", "delete"); err == nil {
		t.Fatal("zero-unit restock should not create a series")
	}
	sold := findMetricFamily(mfs, "pharmacy_inventory_units_sold_total")
	if sold == nil || sold.GetMetric()[0].GetCounter().GetValue() != 6 {
		t.Fatalf("expected 6 units sold")
	}
}

func TestNilSaleMetricsAreNoop(t *testing.T) {
	var m *SaleMetrics
	m.SaleCreated("cash", 1)
	m.SaleRejected("x")
	m.Restocked("refund", 1)
	NewSaleMetrics(nil).SaleCreated("card", 1)
}

func TestRegistryMiddlewareUsesRoutePattern(t *testing.T) {
	reg := NewRegistry()
	r := chi.NewRouter()
	r.Use(reg.Middleware)
	r.Get("/sales/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", reg.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sales/abc", nil))

	mfs, err := reg.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "pharmacy_http_requests_total")
	if mf == nil {
		t.Fatal("requests metric missing")
	}
	metric := mf.GetMetric()[0]
	if !matchesLabel(metric.GetLabel(), "route", "/sales/{id}") || !matchesLabel(metric.GetLabel(), "code", "404") {
		t.Fatalf("unexpected labels %v", metric.GetLabel())
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "pharmacy_http_request_duration_seconds") {
		t.Fatalf("metrics endpoint missing histogram")
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
