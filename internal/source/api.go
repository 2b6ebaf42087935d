package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"usage-alerts/internal/metering"
)

const (
	usageRecordsPath = "/usage-records"
	customersPath    = "/customers"
)

// APIOptions parameterise the usage API client.
type APIOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Window is how far back each tick fetch reaches. Defaults to the
	// poll interval when wired by the app.
	Window time.Duration
}

// APISource fetches usage records from the platform billing/usage API.
type APISource struct {
	opts    APIOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewAPISource constructs the live-fetch record source.
func NewAPISource(opts APIOptions, logger zerolog.Logger) *APISource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &APISource{
		opts:    opts,
		logger:  logger.With().Str("component", "api_source").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// Fetch retrieves the records observed inside the trailing window ending
// at now.
func (s *APISource) Fetch(ctx context.Context, now time.Time) ([]metering.UsageRecord, error) {
	window := s.opts.Window
	if window <= 0 {
		window = time.Minute
	}
	return s.FetchRange(ctx, RangeFilter{Start: now.Add(-window), End: now})
}

// FetchRange retrieves historical records matching the filter. The range
// is caller-bounded; no capacity policy applies here.
func (s *APISource) FetchRange(ctx context.Context, filter RangeFilter) ([]metering.UsageRecord, error) {
	if s.baseURL == "" {
		return nil, errors.New("usage api base url not configured")
	}
	if !filter.Start.Before(filter.End) {
		return nil, errors.New("usage query start must precede end")
	}

	query := url.Values{}
	query.Set("start_date", filter.Start.UTC().Format(time.RFC3339))
	query.Set("end_date", filter.End.UTC().Format(time.RFC3339))
	if filter.CustomerID != "" {
		query.Set("customer_id", filter.CustomerID)
	}

	var payload struct {
		Records []metering.UsageRecord `json:"records"`
	}
	if err := s.getJSON(ctx, usageRecordsPath+"?"+query.Encode(), &payload); err != nil {
		return nil, err
	}

	s.logger.Debug().Int("count", len(payload.Records)).
		Time("start", filter.Start).Time("end", filter.End).
		Msg("fetched usage records")
	return payload.Records, nil
}

// FetchCustomers retrieves the customer list for display purposes.
func (s *APISource) FetchCustomers(ctx context.Context) ([]Customer, error) {
	if s.baseURL == "" {
		return nil, errors.New("usage api base url not configured")
	}

	var payload struct {
		Customers []Customer `json:"customers"`
	}
	if err := s.getJSON(ctx, customersPath, &payload); err != nil {
		return nil, err
	}
	return payload.Customers, nil
}

func (s *APISource) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(s.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "usagewatcher/1.0")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(resp.StatusCode, body)
	}

	return json.Unmarshal(body, out)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("usage api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("usage api error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("usage api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("usage api error (%d)", status)
}

var _ RecordSource = (*APISource)(nil)
