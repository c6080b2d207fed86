// Package dataset holds the immutable in-memory transaction table that every
// analytics query reads from.
package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"insightx-workers/internal/models"
)

// Column names after header normalization.
const (
	ColTransactionID     = "transaction_id"
	ColTimestamp         = "timestamp"
	ColTransactionType   = "transaction_type"
	ColAmount            = "amount_inr"
	ColMerchantCategory  = "merchant_category"
	ColTransactionStatus = "transaction_status"
	ColSenderAgeGroup    = "sender_age_group"
	ColReceiverAgeGroup  = "receiver_age_group"
	ColSenderState       = "sender_state"
	ColSenderBank        = "sender_bank"
	ColReceiverBank      = "receiver_bank"
	ColDeviceType        = "device_type"
	ColNetworkType       = "network_type"
	ColDayOfWeek         = "day_of_week"
	ColHourOfDay         = "hour_of_day"
	ColIsWeekend         = "is_weekend"
	ColFraudFlag         = "fraud_flag"

	ColIsFailed = "is_failed"
	ColIsFraud  = "is_fraud"
	ColMonth    = "month"
	ColQuarter  = "quarter"
	ColDate     = "date"
)

// SourceColumns are the columns a complete dataset ingress provides.
var SourceColumns = []string{
	ColTransactionID, ColTimestamp, ColTransactionType, ColAmount, ColMerchantCategory,
	ColTransactionStatus, ColSenderAgeGroup, ColReceiverAgeGroup, ColSenderState,
	ColSenderBank, ColReceiverBank, ColDeviceType, ColNetworkType, ColDayOfWeek,
	ColHourOfDay, ColIsWeekend, ColFraudFlag,
}

var columnRenames = map[string]string{
	"transaction id":   ColTransactionID,
	"transaction type": ColTransactionType,
	"amount (inr)":     ColAmount,
	"amount_(inr)":     ColAmount,
}

// NormalizeColumnName lower-cases and trims a source header and maps the
// known spaced variants onto their canonical names.
func NormalizeColumnName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if renamed, ok := columnRenames[n]; ok {
		return renamed
	}
	return strings.ReplaceAll(n, " ", "_")
}

// Dataset is a read-only table of transactions. Nothing mutates it after New,
// so a single instance is shared by every session.
type Dataset struct {
	rows        []models.Transaction
	columns     map[string]bool
	fingerprint string
}

// New copies rows, computes the derived fields, and records which columns the
// source provided. A nil columns slice means every source column is present.
func New(rows []models.Transaction, columns []string) *Dataset {
	if columns == nil {
		columns = SourceColumns
	}

	cols := make(map[string]bool, len(columns)+6)
	for _, c := range columns {
		cols[NormalizeColumnName(c)] = true
	}
	if cols[ColTimestamp] {
		cols[ColMonth] = true
		cols[ColQuarter] = true
		cols[ColDate] = true
	}
	if cols[ColTransactionStatus] {
		cols[ColIsFailed] = true
	}
	if cols[ColFraudFlag] {
		cols[ColIsFraud] = true
	}

	out := make([]models.Transaction, len(rows))
	h := sha256.New()
	for i, r := range rows {
		out[i] = derive(r)
		fmt.Fprintf(h, "%s|%d|%.2f;", r.ID, r.Timestamp.Unix(), r.Amount)
	}

	return &Dataset{
		rows:        out,
		columns:     cols,
		fingerprint: fmt.Sprintf("%d-%s", len(out), hex.EncodeToString(h.Sum(nil))[:16]),
	}
}

func derive(t models.Transaction) models.Transaction {
	t.IsFailed = t.Status == models.TransactionStatusFailed
	t.IsFraud = t.FraudFlag
	if !t.Timestamp.IsZero() {
		t.Month = t.Timestamp.Format("2006-01")
		t.Quarter = fmt.Sprintf("%dQ%d", t.Timestamp.Year(), (int(t.Timestamp.Month())-1)/3+1)
		t.Date = t.Timestamp.Format("2006-01-02")
	}
	return t
}

func (d *Dataset) Len() int {
	return len(d.rows)
}

// Row returns a copy of the i-th transaction.
func (d *Dataset) Row(i int) models.Transaction {
	return d.rows[i]
}

// Fingerprint identifies the loaded contents; equal data yields equal fingerprints.
func (d *Dataset) Fingerprint() string {
	return d.fingerprint
}

// HasColumn reports whether the source provided (or derivation produced) a column.
// month_num is derived from the timestamp and has no column of its own.
func (d *Dataset) HasColumn(name string) bool {
	if name == string(models.FilterMonthNum) {
		return d.columns[ColTimestamp]
	}
	return d.columns[name]
}

// Columns returns the present column names in source order followed by derived ones.
func (d *Dataset) Columns() []string {
	out := make([]string, 0, len(d.columns))
	for _, c := range append(append([]string{}, SourceColumns...), ColIsFailed, ColIsFraud, ColMonth, ColQuarter, ColDate) {
		if d.columns[c] {
			out = append(out, c)
		}
	}
	return out
}

// Value returns the string form of a categorical column for row i, as used
// for grouping and exact-match filtering.
func (d *Dataset) Value(i int, column string) (string, bool) {
	if !d.HasColumn(column) {
		return "", false
	}
	r := &d.rows[i]
	switch column {
	case ColTransactionID:
		return r.ID, true
	case ColTransactionType:
		return r.Type, true
	case ColMerchantCategory:
		return r.MerchantCategory, true
	case ColTransactionStatus:
		return r.Status, true
	case ColSenderAgeGroup:
		return r.SenderAgeGroup, true
	case ColReceiverAgeGroup:
		return r.ReceiverAgeGroup, true
	case ColSenderState:
		return r.SenderState, true
	case ColSenderBank:
		return r.SenderBank, true
	case ColReceiverBank:
		return r.ReceiverBank, true
	case ColDeviceType:
		return r.DeviceType, true
	case ColNetworkType:
		return r.NetworkType, true
	case ColDayOfWeek:
		return r.DayOfWeek, true
	case ColHourOfDay:
		return strconv.Itoa(r.HourOfDay), true
	case ColIsWeekend:
		return flag(r.IsWeekend), true
	case ColFraudFlag:
		return flag(r.FraudFlag), true
	case ColMonth:
		return r.Month, true
	case ColQuarter:
		return r.Quarter, true
	case ColDate:
		return r.Date, true
	case string(models.FilterMonthNum):
		return strconv.Itoa(int(r.Timestamp.Month())), true
	}
	return "", false
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
