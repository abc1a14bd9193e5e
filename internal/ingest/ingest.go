// Package ingest parses transaction CSV batches into typed records.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/Dan9191/transaction-manager/internal/apperr"
	"github.com/Dan9191/transaction-manager/internal/geotz"
	"github.com/Dan9191/transaction-manager/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser reads whole CSV batches. Ingestion is all-or-nothing: the first bad row fails the batch.
type Parser struct {
	header models.FieldSet
	mapper *RowMapper
}

// NewParser returns a parser expecting exactly header as the first row.
func NewParser(resolver geotz.Resolver, header models.FieldSet) *Parser {
	return &Parser{
		header: header,
		mapper: NewRowMapper(resolver, header),
	}
}

// Parse reads r to the end and returns the records in input order.
func (p *Parser) Parse(r io.Reader) ([]models.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ingest: read input: %w", err)
	}
	return p.ParseBytes(data)
}

// ParseBytes is Parse over an in-memory batch.
func (p *Parser) ParseBytes(data []byte) ([]models.Transaction, error) {
	if len(data) == 0 {
		return nil, apperr.EmptyFile()
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.EmptyFile()
	}
	if err != nil {
		return nil, csvError(err)
	}
	if !p.header.Matches(header) {
		return nil, apperr.HeaderMismatch(p.header, header)
	}

	var records []models.Transaction
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := reader.FieldPos(0)
		if len(record) != p.header.Len() {
			return nil, apperr.MalformedCSV(line,
				fmt.Errorf("expected %d fields, got %d", p.header.Len(), len(record)))
		}
		tx, err := p.mapper.Map(line, record)
		if err != nil {
			return nil, err
		}
		records = append(records, tx)
	}
	return records, nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return apperr.MalformedCSV(pe.Line, pe.Err)
	}
	return apperr.MalformedCSV(0, err)
}
