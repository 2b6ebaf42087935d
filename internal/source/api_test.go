package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestAPISourceMissingBaseURL(t *testing.T) {
	src := NewAPISource(APIOptions{}, noopLogger())
	if _, err := src.Fetch(context.Background(), time.Now()); err == nil {
		t.Fatal("missing base url should fail")
	}
}

func TestAPISourceFetchSuccess(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != usageRecordsPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{
					"customer_id":  "cust-001",
					"usage_type":   "data",
					"usage_amount": "123.5",
					"usage_date":   "2026-03-01T09:30:00Z",
				},
				{
					"customer_id":  "cust-002",
					"usage_type":   "voice",
					"usage_amount": "4",
					"usage_date":   "2026-03-01T09:31:00Z",
				},
			},
		})
	}))
	defer srv.Close()

	src := NewAPISource(APIOptions{
		BaseURL: srv.URL,
		Timeout: time.Second,
		Window:  5 * time.Minute,
	}, noopLogger())

	now := time.Date(2026, 3, 1, 9, 35, 0, 0, time.UTC)
	records, err := src.Fetch(context.Background(), now)
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].CustomerID != "cust-001" || records[0].Amount.String() != "123.5" {
		t.Fatalf("record decoded incorrectly: %+v", records[0])
	}
	if got := gotQuery["start_date"]; len(got) != 1 || got[0] != "2026-03-01T09:30:00Z" {
		t.Fatalf("window start not applied: %v", gotQuery)
	}
}

func TestAPISourceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "upstream down"})
	}))
	defer srv.Close()

	src := NewAPISource(APIOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := src.Fetch(context.Background(), time.Now()); err == nil {
		t.Fatal("HTTP 503 should return an error")
	}
}

func TestAPISourceFetchRangeRejectsEmptyWindow(t *testing.T) {
	src := NewAPISource(APIOptions{BaseURL: "http://localhost"}, noopLogger())
	now := time.Now()
	if _, err := src.FetchRange(context.Background(), RangeFilter{Start: now, End: now}); err == nil {
		t.Fatal("empty range should be rejected")
	}
}

func TestAPISourceFetchCustomers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != customersPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"customers": []map[string]string{{"id": "cust-001", "name": "Acme Fiber"}},
		})
	}))
	defer srv.Close()

	src := NewAPISource(APIOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	customers, err := src.FetchCustomers(context.Background())
	if err != nil {
		t.Fatalf("fetch customers: %v", err)
	}
	if len(customers) != 1 || customers[0].Name != "Acme Fiber" {
		t.Fatalf("customers decoded incorrectly: %+v", customers)
	}
}
