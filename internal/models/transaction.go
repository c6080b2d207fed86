// internal/models/transaction.go
package models

import "time"

// Transaction is one UPI payment record. The trailing fields are derived
// once at load and never recomputed.
type Transaction struct {
	ID               string    `json:"transactionId" db:"transaction_id"`
	Timestamp        time.Time `json:"timestamp" db:"timestamp"`
	Type             string    `json:"transactionType" db:"transaction_type"`
	Amount           float64   `json:"amountInr" db:"amount_inr"`
	MerchantCategory string    `json:"merchantCategory" db:"merchant_category"`
	Status           string    `json:"transactionStatus" db:"transaction_status"`
	SenderAgeGroup   string    `json:"senderAgeGroup" db:"sender_age_group"`
	ReceiverAgeGroup string    `json:"receiverAgeGroup" db:"receiver_age_group"`
	SenderState      string    `json:"senderState" db:"sender_state"`
	SenderBank       string    `json:"senderBank" db:"sender_bank"`
	ReceiverBank     string    `json:"receiverBank" db:"receiver_bank"`
	DeviceType       string    `json:"deviceType" db:"device_type"`
	NetworkType      string    `json:"networkType" db:"network_type"`
	DayOfWeek        string    `json:"dayOfWeek" db:"day_of_week"`
	HourOfDay        int       `json:"hourOfDay" db:"hour_of_day"`
	IsWeekend        bool      `json:"isWeekend" db:"is_weekend"`
	FraudFlag        bool      `json:"fraudFlag" db:"fraud_flag"`

	IsFailed bool   `json:"isFailed"`
	IsFraud  bool   `json:"isFraud"`
	Month    string `json:"month"`
	Quarter  string `json:"quarter"`
	Date     string `json:"date"`
}

// TransactionStatusFailed marks a failed payment.
const TransactionStatusFailed = "FAILED"
