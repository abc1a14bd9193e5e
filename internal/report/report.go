// Package report projects transactions into a single-sheet spreadsheet.
package report

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/Dan9191/transaction-manager/internal/apperr"
	"github.com/Dan9191/transaction-manager/internal/geotz"
	"github.com/Dan9191/transaction-manager/internal/models"
)

const (
	SheetName    = "Transactions"
	DateFormat   = "yyyy-mm-dd hh:mm:ss"
	dateWidth    = 19 // len("2024-01-10 01:16:23")
	maxColWidth  = 255
	columnMargin = 2
)

// Build writes a header row with fields verbatim and one row per transaction.
// Dates are rendered as wall clock time in each transaction's own zone.
// Fields must already be validated; an unknown field still fails with UnknownField.
func Build(txs []models.Transaction, fields []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("report: rename sheet: %w", err)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: ptr(DateFormat)})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("report: date style: %w", err)
	}

	widths := make([]int, len(fields))
	for col, field := range fields {
		if err := setCell(f, col+1, 1, field); err != nil {
			f.Close()
			return nil, err
		}
		widths[col] = utf8.RuneCountInString(field)
	}

	for i, tx := range txs {
		row := i + 2
		for col, field := range fields {
			value, err := CellValue(tx, field)
			if err != nil {
				f.Close()
				return nil, err
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("report: cell name: %w", err)
			}
			switch v := value.(type) {
			case float64:
				err = f.SetCellFloat(SheetName, cell, v, -1, 64)
				widths[col] = max(widths[col], len(tx.Amount.String()))
			case time.Time:
				if err = f.SetCellValue(SheetName, cell, v); err == nil {
					err = f.SetCellStyle(SheetName, cell, cell, dateStyle)
				}
				widths[col] = max(widths[col], dateWidth)
			case string:
				err = f.SetCellStr(SheetName, cell, v)
				widths[col] = max(widths[col], utf8.RuneCountInString(v))
			}
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("report: write %s: %w", cell, err)
			}
		}
	}

	if err := autoSize(f, widths); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// CellValue returns the typed value of field: float64 for amount, time.Time (wall clock
// in the record's zone, labelled UTC) for the date and string otherwise.
func CellValue(tx models.Transaction, field string) (any, error) {
	switch field {
	case models.FieldTransactionID:
		return tx.ID, nil
	case models.FieldName:
		return tx.Name, nil
	case models.FieldEmail:
		return tx.Email, nil
	case models.FieldAmount:
		return tx.Amount.InexactFloat64(), nil
	case models.FieldTransactionDate:
		zone, err := geotz.LoadZone(tx.IANATimeZone)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("stored zone of %s: %w", tx.ID, err))
		}
		return geotz.WallClock(tx.OccurredAt, zone), nil
	case models.FieldClientLocation:
		return tx.ClientLocation.String(), nil
	}
	return nil, apperr.UnknownField(field)
}

func setCell(f *excelize.File, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("report: cell name: %w", err)
	}
	if err := f.SetCellStr(SheetName, cell, value); err != nil {
		return fmt.Errorf("report: write %s: %w", cell, err)
	}
	return nil
}

// autoSize approximates Excel's "fit to contents" from character counts.
func autoSize(f *excelize.File, widths []int) error {
	for i, w := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("report: column name: %w", err)
		}
		width := float64(min(w+columnMargin, maxColWidth))
		if err := f.SetColWidth(SheetName, name, name, width); err != nil {
			return fmt.Errorf("report: column width: %w", err)
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
