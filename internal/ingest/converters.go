package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/transaction-manager/internal/apperr"
	"github.com/Dan9191/transaction-manager/internal/geotz"
	"github.com/Dan9191/transaction-manager/internal/models"
)

// DateLayout is the wall clock format of transaction_date.
const DateLayout = "2006-01-02 15:04:05"

const currencyMarker = "$"

// partialRow is the record under construction for one CSV row.
// Steps run in order and may read what earlier steps produced.
type partialRow struct {
	tx   models.Transaction
	zone *time.Location
}

// conversionStep converts the raw text of one column into the partial row.
type conversionStep struct {
	column  string
	convert func(m *RowMapper, row *partialRow, raw string) error
}

// steps is the fixed evaluation order: the date needs the zone, the zone needs the location.
var steps = []conversionStep{
	{column: models.FieldTransactionID, convert: convertID},
	{column: models.FieldName, convert: func(_ *RowMapper, row *partialRow, raw string) error {
		row.tx.Name = raw
		return nil
	}},
	{column: models.FieldEmail, convert: func(_ *RowMapper, row *partialRow, raw string) error {
		row.tx.Email = raw
		return nil
	}},
	{column: models.FieldAmount, convert: convertAmount},
	{column: models.FieldClientLocation, convert: convertLocation},
	{column: models.FieldClientLocation, convert: resolveTimeZone},
	{column: models.FieldTransactionDate, convert: convertOccurredAt},
}

// RowMapper turns one CSV record into a Transaction.
type RowMapper struct {
	resolver geotz.Resolver
	columns  models.FieldSet
}

// NewRowMapper returns a mapper for records laid out as columns.
func NewRowMapper(resolver geotz.Resolver, columns models.FieldSet) *RowMapper {
	return &RowMapper{resolver: resolver, columns: columns}
}

// Map converts record, found at line, into a Transaction.
func (m *RowMapper) Map(line int, record []string) (models.Transaction, error) {
	var row partialRow
	for _, step := range steps {
		idx := m.columns.Index(step.column)
		if idx < 0 || idx >= len(record) {
			return models.Transaction{}, apperr.Parsing(line, step.column, "", apperr.ErrMissingValue)
		}
		raw := record[idx]
		if err := step.convert(m, &row, raw); err != nil {
			if errors.Is(err, apperr.ErrInvalidTimeZone) {
				return models.Transaction{}, apperr.RowTimeZone(line, step.column, raw, err)
			}
			return models.Transaction{}, apperr.Parsing(line, step.column, raw, err)
		}
	}
	return row.tx, nil
}

func convertID(_ *RowMapper, row *partialRow, raw string) error {
	if raw == "" {
		return apperr.ErrMissingValue
	}
	row.tx.ID = raw
	return nil
}

func convertAmount(_ *RowMapper, row *partialRow, raw string) error {
	amount, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	row.tx.Amount = amount
	return nil
}

// ParseAmount strips one leading currency marker and parses an exact decimal.
func ParseAmount(raw string) (decimal.Decimal, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, currencyMarker)
	if text == "" {
		return decimal.Decimal{}, apperr.ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", apperr.ErrInvalidAmount, err)
	}
	return amount, nil
}

func convertLocation(_ *RowMapper, row *partialRow, raw string) error {
	loc, err := models.ParseLocation(raw)
	if err != nil {
		return err
	}
	row.tx.ClientLocation = loc
	return nil
}

func resolveTimeZone(m *RowMapper, row *partialRow, _ string) error {
	name, err := m.resolver.TimeZone(row.tx.ClientLocation)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidTimeZone, err)
	}
	zone, err := geotz.LoadZone(name)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidTimeZone, err)
	}
	row.tx.IANATimeZone = name
	row.zone = zone
	return nil
}

func convertOccurredAt(_ *RowMapper, row *partialRow, raw string) error {
	occurred, err := ParseLocalTime(raw, row.zone)
	if err != nil {
		return err
	}
	row.tx.OccurredAt = occurred
	return nil
}

// ParseLocalTime reads a zone-less DateLayout value as wall clock time in zone
// and returns the UTC instant. Wall clock values skipped by a DST transition are rejected.
func ParseLocalTime(raw string, zone *time.Location) (time.Time, error) {
	if zone == nil {
		return time.Time{}, fmt.Errorf("%w: no time zone resolved", apperr.ErrInvalidDate)
	}
	wall, err := time.Parse(DateLayout, raw)
	if err != nil || wall.Format(DateLayout) != raw {
		return time.Time{}, fmt.Errorf("%w: %q does not match yyyy-MM-dd HH:mm:ss", apperr.ErrInvalidDate, raw)
	}
	t := geotz.ToUTC(wall, zone)
	if !geotz.WallClock(t, zone).Equal(wall) {
		return time.Time{}, fmt.Errorf("%w: %q does not exist in %s", apperr.ErrInvalidDate, raw, zone)
	}
	return t, nil
}
