// internal/dataset/postgres.go
package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"insightx-workers/internal/common/logger"
	"insightx-workers/internal/models"

	"github.com/lib/pq"
)

var (
	ErrInvalidTable   = errors.New("INVALID_TABLE_NAME")
	ErrMissingColumns = errors.New("MISSING_REQUIRED_COLUMNS")
	ErrEmptyDataset   = errors.New("EMPTY_DATASET")
)

// requiredColumns must be present for any metric to be computable.
var requiredColumns = []string{ColTimestamp, ColAmount, ColTransactionStatus, ColFraudFlag}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// PostgresLoader reads the transaction table once and builds a Dataset.
type PostgresLoader struct {
	db     *sql.DB
	table  string
	logger logger.Logger
}

func NewPostgresLoader(db *sql.DB, table string, log logger.Logger) *PostgresLoader {
	return &PostgresLoader{
		db:     db,
		table:  table,
		logger: log.WithFields(map[string]interface{}{"component": "dataset-loader", "table": table}),
	}
}

// Load selects every row of the configured table. Column headers are
// normalized the same way a CSV export would be, rows whose timestamp cannot
// be parsed are skipped, and the remaining rows become an immutable Dataset.
func (l *PostgresLoader) Load(ctx context.Context) (*Dataset, error) {
	ident, err := quoteTable(l.table)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := l.db.QueryContext(ctx, "SELECT * FROM "+ident)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", l.table, err)
	}
	defer rows.Close()

	rawCols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	cols := make([]string, len(rawCols))
	present := map[string]bool{}
	for i, c := range rawCols {
		cols[i] = NormalizeColumnName(c)
		present[cols[i]] = true
	}

	var missing []string
	for _, c := range requiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]interface{}, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	var (
		txns    []models.Transaction
		skipped int
	)
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		txn, ok := buildTransaction(cols, values)
		if !ok {
			skipped++
			continue
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	if len(txns) == 0 {
		return nil, ErrEmptyDataset
	}

	if !present[ColDayOfWeek] {
		cols = append(cols, ColDayOfWeek)
	}
	if !present[ColHourOfDay] {
		cols = append(cols, ColHourOfDay)
	}
	if !present[ColIsWeekend] {
		cols = append(cols, ColIsWeekend)
	}

	ds := New(txns, cols)
	l.logger.Info("dataset loaded", map[string]interface{}{
		"rows":        ds.Len(),
		"skippedRows": skipped,
		"columns":     len(cols),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return ds, nil
}

// buildTransaction maps one scanned row onto a Transaction. Calendar fields
// absent from the source are derived from the timestamp.
func buildTransaction(cols []string, values []sql.NullString) (models.Transaction, bool) {
	var (
		t                           models.Transaction
		hasDay, hasHour, hasWeekend bool
	)
	for i, c := range cols {
		if !values[i].Valid {
			continue
		}
		v := strings.TrimSpace(values[i].String)
		switch c {
		case ColTransactionID:
			t.ID = v
		case ColTimestamp:
			ts, ok := parseTimestamp(v)
			if !ok {
				return t, false
			}
			t.Timestamp = ts
		case ColTransactionType:
			t.Type = v
		case ColAmount:
			amount, err := strconv.ParseFloat(v, 64)
			if err == nil {
				t.Amount = amount
			}
		case ColMerchantCategory:
			t.MerchantCategory = v
		case ColTransactionStatus:
			t.Status = v
		case ColSenderAgeGroup:
			t.SenderAgeGroup = v
		case ColReceiverAgeGroup:
			t.ReceiverAgeGroup = v
		case ColSenderState:
			t.SenderState = v
		case ColSenderBank:
			t.SenderBank = v
		case ColReceiverBank:
			t.ReceiverBank = v
		case ColDeviceType:
			t.DeviceType = v
		case ColNetworkType:
			t.NetworkType = v
		case ColDayOfWeek:
			t.DayOfWeek = v
			hasDay = v != ""
		case ColHourOfDay:
			if h, err := strconv.Atoi(v); err == nil {
				t.HourOfDay = h
				hasHour = true
			}
		case ColIsWeekend:
			t.IsWeekend = parseFlag(v)
			hasWeekend = true
		case ColFraudFlag:
			t.FraudFlag = parseFlag(v)
		}
	}
	if t.Timestamp.IsZero() {
		return t, false
	}
	if !hasDay {
		t.DayOfWeek = t.Timestamp.Weekday().String()
	}
	if !hasHour {
		t.HourOfDay = t.Timestamp.Hour()
	}
	if !hasWeekend {
		wd := t.Timestamp.Weekday()
		t.IsWeekend = wd == time.Saturday || wd == time.Sunday
	}
	return t, true
}

func parseTimestamp(v string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseFlag(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y":
		return true
	}
	return false
}

// quoteTable quotes an optionally schema-qualified table name.
func quoteTable(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidTable
	}
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("%w: %s", ErrInvalidTable, name)
	}
	for i, p := range parts {
		if p == "" {
			return "", fmt.Errorf("%w: %s", ErrInvalidTable, name)
		}
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, "."), nil
}
