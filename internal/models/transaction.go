package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a client transaction imported from a CSV batch
type Transaction struct {
	ID     string          `json:"transaction_id"`
	Name   string          `json:"name"`
	Email  string          `json:"email"`
	Amount decimal.Decimal `json:"amount"` // implied dollars
	// OccurredAt is stored as a UTC instant; IANATimeZone restores the local wall clock.
	OccurredAt     time.Time `json:"transaction_date"`
	IANATimeZone   string    `json:"iana_time_zone"`
	ClientLocation Location  `json:"client_location"`
}

// UploadSummary describes the outcome of one ingested batch
type UploadSummary struct {
	BatchID    string `json:"batch_id"`
	Rows       int    `json:"rows"`
	Stored     int    `json:"stored"`
	Duplicates int    `json:"duplicates"`
}
