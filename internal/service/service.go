package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/Dan9191/transaction-manager/internal/apperr"
	"github.com/Dan9191/transaction-manager/internal/geotz"
	"github.com/Dan9191/transaction-manager/internal/ingest"
	"github.com/Dan9191/transaction-manager/internal/models"
	"github.com/Dan9191/transaction-manager/internal/report"
)

// TransactionStore is the durable keyed store behind the service.
type TransactionStore interface {
	// UpsertTransactions atomically inserts or overwrites the batch; IDs are unique.
	UpsertTransactions(ctx context.Context, txs []models.Transaction) error
	// TransactionsBetween returns records with start <= OccurredAt < end in a stable order.
	TransactionsBetween(ctx context.Context, start, end time.Time) ([]models.Transaction, error)
}

// ExportRequest selects a local time window in Zone and the columns to project.
// Start and End are wall clock values; their own location is ignored.
type ExportRequest struct {
	Start  time.Time
	End    time.Time
	Zone   string
	Fields []string
}

// Service handles business logic
type Service struct {
	store  TransactionStore
	parser *ingest.Parser
	fields models.FieldSet
	log    *logrus.Logger
}

// NewService initializes a new service. fields is shared by the CSV header check
// and the export field validation.
func NewService(store TransactionStore, resolver geotz.Resolver, fields models.FieldSet, log *logrus.Logger) *Service {
	return &Service{
		store:  store,
		parser: ingest.NewParser(resolver, fields),
		fields: fields,
		log:    log,
	}
}

// UploadTransactions parses a CSV batch and upserts it. Nothing is stored unless every
// row converts.
func (s *Service) UploadTransactions(ctx context.Context, r io.Reader) (*models.UploadSummary, error) {
	batchID := uuid.NewString()
	log := s.log.WithField("batch_id", batchID)

	records, err := s.parser.Parse(r)
	if err != nil {
		log.WithError(err).Warn("Rejected transactions batch")
		return nil, err
	}

	unique := Deduplicate(records)
	if err := s.store.UpsertTransactions(ctx, unique); err != nil {
		log.WithError(err).Error("Failed to store transactions batch")
		return nil, err
	}

	summary := &models.UploadSummary{
		BatchID:    batchID,
		Rows:       len(records),
		Stored:     len(unique),
		Duplicates: len(records) - len(unique),
	}
	log.WithFields(logrus.Fields{
		"rows":       summary.Rows,
		"stored":     summary.Stored,
		"duplicates": summary.Duplicates,
	}).Info("Transactions batch stored")
	return summary, nil
}

// Deduplicate keeps one record per ID: the last occurrence wins, placed at the
// position of the first occurrence.
func Deduplicate(records []models.Transaction) []models.Transaction {
	pos := make(map[string]int, len(records))
	out := make([]models.Transaction, 0, len(records))
	for _, r := range records {
		if i, ok := pos[r.ID]; ok {
			out[i] = r
			continue
		}
		pos[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}

// ValidateFields checks an export column list against the known vocabulary.
func (s *Service) ValidateFields(fields []string) error {
	if len(fields) == 0 {
		return apperr.NoFieldsSelected()
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if !s.fields.Contains(f) {
			return apperr.UnknownField(f)
		}
		if _, dup := seen[f]; dup {
			return apperr.DuplicateField(f)
		}
		seen[f] = struct{}{}
	}
	return nil
}

// ExportTransactions builds a spreadsheet of the records inside the window. The window
// is interpreted in req.Zone; each date is rendered in its record's own zone.
// The caller must Close the returned file.
func (s *Service) ExportTransactions(ctx context.Context, req ExportRequest) (*excelize.File, error) {
	records, err := s.FindTransactions(ctx, req)
	if err != nil {
		return nil, err
	}
	f, err := report.Build(records, req.Fields)
	if err != nil {
		s.log.WithError(err).Error("Failed to build transactions report")
		return nil, err
	}
	return f, nil
}

// FindTransactions validates req and returns the matching records with OccurredAt
// expressed in each record's own zone.
func (s *Service) FindTransactions(ctx context.Context, req ExportRequest) ([]models.Transaction, error) {
	if err := s.ValidateFields(req.Fields); err != nil {
		return nil, err
	}
	zone, err := geotz.LoadZone(req.Zone)
	if err != nil {
		return nil, apperr.InvalidTimeZone(req.Zone)
	}
	startUTC := geotz.ToUTC(req.Start, zone)
	endUTC := geotz.ToUTC(req.End, zone)
	if startUTC.After(endUTC) {
		return nil, apperr.InvalidRange("The start date must be less than the end date.")
	}

	records, err := s.store.TransactionsBetween(ctx, startUTC, endUTC)
	if err != nil {
		s.log.WithError(err).Error("Failed to query transactions")
		return nil, err
	}
	for i := range records {
		recZone, err := geotz.LoadZone(records[i].IANATimeZone)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("stored zone of %s: %w", records[i].ID, err))
		}
		records[i].OccurredAt = records[i].OccurredAt.In(recZone)
	}

	s.log.WithFields(logrus.Fields{
		"zone":    req.Zone,
		"start":   startUTC.Format(time.RFC3339),
		"end":     endUTC.Format(time.RFC3339),
		"records": len(records),
	}).Info("Transactions selected for export")
	return records, nil
}
