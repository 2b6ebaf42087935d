package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"usage-alerts/internal/metering"
	"usage-alerts/internal/rules"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

const (
	insertRecordSQL = `INSERT INTO usage_records (
        customer_id,
        usage_type,
        usage_amount,
        usage_date
    ) VALUES ($1,$2,$3,$4);`

	listRecordsBetweenSQL = `SELECT
        customer_id,
        usage_type,
        usage_amount,
        usage_date
    FROM usage_records
    WHERE usage_date >= $1
      AND usage_date < $2
      AND ($3 = '' OR customer_id = $3)
    ORDER BY usage_date;`

	countRecordsSQL = `SELECT COUNT(*) FROM usage_records;`

	insertAlertSQL = `INSERT INTO alert_events (
        id,
        rule_id,
        title,
        message,
        severity,
        kind,
        created_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (id) DO NOTHING;`

	listRecentAlertsSQL = `SELECT
        id,
        rule_id,
        title,
        message,
        severity,
        kind,
        created_at
    FROM alert_events
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alert_events WHERE created_at < $1;`
)

// RecordArchive defines operations for usage record persistence.
type RecordArchive interface {
	InsertUsageRecords(ctx context.Context, records []metering.UsageRecord) error
	ListRecordsBetween(ctx context.Context, from, to time.Time, customerID string) ([]metering.UsageRecord, error)
	CountRecords(ctx context.Context) (int64, error)
}

// AlertArchive defines operations for alert auditing.
type AlertArchive interface {
	InsertAlertEvent(ctx context.Context, event rules.AlertEvent) error
	ListRecentAlertEvents(ctx context.Context, limit int) ([]rules.AlertEvent, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// Store is the pgx-backed archive. Best-effort by design: the monitor
// logs archive failures and keeps ticking.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an initialised pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertUsageRecords archives one ingested batch.
func (s *Store) InsertUsageRecords(ctx context.Context, records []metering.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(insertRecordSQL, rec.CustomerID, string(rec.Type), rec.Amount.String(), rec.Timestamp)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("insert usage records: %w", execErr)
		}
	}
	return nil
}

// ListRecordsBetween lists archived records inside [from, to), optionally
// narrowed to one customer.
func (s *Store) ListRecordsBetween(ctx context.Context, from, to time.Time, customerID string) ([]metering.UsageRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecordsBetweenSQL, from, to, customerID)
	if queryErr != nil {
		return nil, fmt.Errorf("list usage records: %w", queryErr)
	}
	defer rows.Close()

	var records []metering.UsageRecord
	for rows.Next() {
		rec, scanErr := scanUsageRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// CountRecords counts archived records.
func (s *Store) CountRecords(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRecordsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count usage records: %w", scanErr)
	}
	return count, nil
}

// InsertAlertEvent archives one fired alert.
func (s *Store) InsertAlertEvent(ctx context.Context, event rules.AlertEvent) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, execErr := pool.Exec(ctx, insertAlertSQL,
		event.ID,
		event.RuleID,
		event.Title,
		event.Message,
		string(event.Severity),
		string(event.Kind),
		event.CreatedAt,
	); execErr != nil {
		return fmt.Errorf("insert alert event: %w", execErr)
	}
	return nil
}

// ListRecentAlertEvents lists the most recent archived alerts.
func (s *Store) ListRecentAlertEvents(ctx context.Context, limit int) ([]rules.AlertEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list alert events: %w", queryErr)
	}
	defer rows.Close()

	events := make([]rules.AlertEvent, 0, limit)
	for rows.Next() {
		var event rules.AlertEvent
		var severity, kind string
		if err := rows.Scan(
			&event.ID,
			&event.RuleID,
			&event.Title,
			&event.Message,
			&severity,
			&kind,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		event.Severity = rules.Severity(severity)
		event.Kind = rules.RuleKind(kind)
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// DeleteAlertsBefore prunes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alert events: %w", execErr)
	}
	return nil
}

func scanUsageRecord(rows pgx.Rows) (metering.UsageRecord, error) {
	var (
		customerID string
		usageType  string
		amountStr  string
		usageDate  time.Time
	)

	if err := rows.Scan(&customerID, &usageType, &amountStr, &usageDate); err != nil {
		return metering.UsageRecord{}, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return metering.UsageRecord{}, fmt.Errorf("parse usage amount: %w", err)
	}

	return metering.UsageRecord{
		CustomerID: customerID,
		Type:       metering.UsageType(usageType),
		Amount:     amount,
		Timestamp:  usageDate,
	}, nil
}

var _ RecordArchive = (*Store)(nil)
var _ AlertArchive = (*Store)(nil)
