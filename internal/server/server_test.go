package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"usage-alerts/internal/metering"
	"usage-alerts/internal/monitor"
	"usage-alerts/internal/rules"
)

type tickSource struct {
	records []metering.UsageRecord
}

func (s *tickSource) Fetch(ctx context.Context, now time.Time) ([]metering.UsageRecord, error) {
	return s.records, nil
}

func newTestServer(t *testing.T, ticked bool) *Server {
	t.Helper()

	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &tickSource{records: []metering.UsageRecord{
		{CustomerID: "a", Type: metering.UsageData, Amount: decimal.NewFromInt(1500), Timestamp: tick},
	}}

	mon, err := monitor.New(monitor.Options{
		Source: src,
		Rules: []rules.AlertRule{{
			ID:              "r-1",
			Name:            "High recent usage",
			Kind:            rules.KindThreshold,
			ComparisonValue: decimal.NewFromInt(1000),
			Enabled:         true,
		}},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	if ticked {
		if err := mon.Tick(context.Background(), tick); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}

	return New(Options{Addr: ":0"}, mon, zerolog.Nop())
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStatsBeforeFirstTick(t *testing.T) {
	srv := newTestServer(t, false)

	rec := get(t, srv, "/api/v1/stats")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first tick, got %d", rec.Code)
	}
}

func TestStatsAfterTick(t *testing.T) {
	srv := newTestServer(t, true)

	rec := get(t, srv, "/api/v1/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Statistics metering.StatisticsSnapshot `json:"statistics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Statistics.TotalEvents != 1 || payload.Statistics.ActiveCustomers != 1 {
		t.Fatalf("unexpected statistics: %+v", payload.Statistics)
	}
}

func TestAlertsLimit(t *testing.T) {
	srv := newTestServer(t, true)

	rec := get(t, srv, "/api/v1/alerts?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Alerts []rules.AlertEvent `json:"alerts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Alerts) != 1 || payload.Alerts[0].RuleID != "r-1" {
		t.Fatalf("unexpected alerts: %+v", payload.Alerts)
	}

	if rec := get(t, srv, "/api/v1/alerts?limit=abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit should be rejected, got %d", rec.Code)
	}
}

func TestHealthAlwaysServes(t *testing.T) {
	srv := newTestServer(t, false)

	rec := get(t, srv, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health should serve before first tick, got %d", rec.Code)
	}

	var payload struct {
		Ready bool `json:"ready"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Ready {
		t.Fatal("ready must be false before the first tick")
	}
}
