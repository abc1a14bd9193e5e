package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/transaction-manager/internal/apperr"
	"github.com/Dan9191/transaction-manager/internal/geotz"
	"github.com/Dan9191/transaction-manager/internal/models"
)

const header = "transaction_id,name,email,amount,transaction_date,client_location"

// stubResolver places the northern hemisphere in London and everything else in Mexico City.
var stubResolver = geotz.ResolverFunc(func(loc models.Location) (string, error) {
	if loc.Latitude > 40 {
		return "Europe/London", nil
	}
	return "America/Mexico_City", nil
})

func csvOf(lines ...string) string {
	return strings.Join(append([]string{header}, lines...), "\n") + "\n"
}

func newTestParser(resolver geotz.Resolver) *Parser {
	if resolver == nil {
		resolver = stubResolver
	}
	return NewParser(resolver, models.TransactionFields)
}

func TestParse_SingleRow(t *testing.T) {
	input := csvOf(`T-1,Adria Pugh,odio.a.purus@protonmail.edu,$100.00,2024-01-10 01:16:23,"6.602635264, -98.2909591552"`)

	records, err := newTestParser(nil).Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	tx := records[0]
	if tx.ID != "T-1" || tx.Name != "Adria Pugh" || tx.Email != "odio.a.purus@protonmail.edu" {
		t.Errorf("unexpected pass-through fields: %+v", tx)
	}
	if tx.Amount.String() != "100" {
		t.Errorf("Amount = %s, want 100", tx.Amount)
	}
	if tx.IANATimeZone != "America/Mexico_City" {
		t.Errorf("IANATimeZone = %q", tx.IANATimeZone)
	}
	if tx.ClientLocation != (models.Location{Latitude: 6.602635264, Longitude: -98.2909591552}) {
		t.Errorf("ClientLocation = %v", tx.ClientLocation)
	}
	// Mexico City has been UTC-6 without DST since 2022.
	if want := time.Date(2024, 1, 10, 7, 16, 23, 0, time.UTC); !tx.OccurredAt.Equal(want) {
		t.Errorf("OccurredAt = %v, want %v", tx.OccurredAt, want)
	}
	if tx.OccurredAt.Location() != time.UTC {
		t.Errorf("OccurredAt should be stored in UTC, got %v", tx.OccurredAt.Location())
	}

	zone, _ := geotz.LoadZone(tx.IANATimeZone)
	if got := tx.OccurredAt.In(zone).Format(DateLayout); got != "2024-01-10 01:16:23" {
		t.Errorf("local round trip = %q", got)
	}
}

func TestParse_PreservesOrder(t *testing.T) {
	input := csvOf(
		`T-1,A,a@x.io,$1,2024-01-10 01:16:23,"6.6, -98.2"`,
		`T-2,B,b@x.io,$2,2024-01-03 10:41:19,"51.110318592, -77.2466440192"`,
		`T-1,C,c@x.io,$3,2024-01-05 01:40:21,"-1.47, -142.37"`,
	)
	records, err := newTestParser(nil).Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var names []string
	for _, r := range records {
		names = append(names, r.Name)
	}
	if got := strings.Join(names, ""); got != "ABC" {
		t.Errorf("order = %q, want ABC (duplicates are kept at this stage)", got)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "\xEF\xBB\xBF"} {
		_, err := newTestParser(nil).Parse(strings.NewReader(input))
		if apperr.KindOf(err) != apperr.KindEmptyFile {
			t.Errorf("Parse(%q) error = %v, want EmptyFile", input, err)
		}
	}
}

func TestParse_HeaderMismatch(t *testing.T) {
	tests := map[string]string{
		"only id":   "transaction_id\nT-1,A,a@x.io,$1,2024-01-10 01:16:23,\"6.6, -98.2\"\n",
		"reordered": "name,transaction_id,email,amount,transaction_date,client_location\n",
		"extra":     header + ",note\n",
		"misspelt":  "transaction_id,name,email,amount,date,client_location\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := newTestParser(nil).Parse(strings.NewReader(input))
			var appErr *apperr.Error
			if !errors.As(err, &appErr) || appErr.Kind != apperr.KindHeaderMismatch {
				t.Fatalf("error = %v, want HeaderMismatch", err)
			}
			if appErr.Title != "CSV Parsing Error (Headers)" {
				t.Errorf("Title = %q", appErr.Title)
			}
		})
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	records, err := newTestParser(nil).Parse(strings.NewReader(header + "\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestParse_BOMHeader(t *testing.T) {
	input := "\xEF\xBB\xBF" + csvOf(`T-1,A,a@x.io,$1,2024-01-10 01:16:23,"6.6, -98.2"`)
	if _, err := newTestParser(nil).Parse(strings.NewReader(input)); err != nil {
		t.Fatalf("Parse with BOM: %v", err)
	}
}

func TestParse_QuotedFields(t *testing.T) {
	input := csvOf(`T-1,"Pugh, Adria","a@x.io","$1,5","2024-01-10 01:16:23","6.6, -98.2"`)
	_, err := newTestParser(nil).Parse(strings.NewReader(input))
	// "$1,5" is not a decimal: the quoted comma reached the converter intact.
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Column != models.FieldAmount || appErr.Value != "$1,5" {
		t.Fatalf("error = %v, want amount failure on quoted value", err)
	}

	input = csvOf(`T-1,"Pugh, Adria",a@x.io,$1.5,2024-01-10 01:16:23,"6.6, -98.2"`)
	records, err := newTestParser(nil).Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if records[0].Name != "Pugh, Adria" {
		t.Errorf("Name = %q", records[0].Name)
	}
}

func TestParse_RowFailures(t *testing.T) {
	tests := []struct {
		name   string
		row    string
		column string
		cause  error
	}{
		{"bad amount", `T-1,A,a@x.io,$abc,2024-01-10 01:16:23,"6.6, -98.2"`, models.FieldAmount, apperr.ErrInvalidAmount},
		{"bare marker", `T-1,A,a@x.io,$,2024-01-10 01:16:23,"6.6, -98.2"`, models.FieldAmount, apperr.ErrInvalidAmount},
		{"bad date", `T-1,A,a@x.io,$1,10/01/2024 01:16,"6.6, -98.2"`, models.FieldTransactionDate, apperr.ErrInvalidDate},
		{"fractional seconds", `T-1,A,a@x.io,$1,2024-01-10 01:16:23.5,"6.6, -98.2"`, models.FieldTransactionDate, apperr.ErrInvalidDate},
		{"bad location", `T-1,A,a@x.io,$1,2024-01-10 01:16:23,"north"`, models.FieldClientLocation, apperr.ErrInvalidLocation},
		{"out of range", `T-1,A,a@x.io,$1,2024-01-10 01:16:23,"95, 10"`, models.FieldClientLocation, apperr.ErrInvalidLocation},
		{"missing id", `,A,a@x.io,$1,2024-01-10 01:16:23,"6.6, -98.2"`, models.FieldTransactionID, apperr.ErrMissingValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := csvOf(`T-0,Z,z@x.io,$1,2024-01-10 01:16:23,"6.6, -98.2"`, tt.row)
			records, err := newTestParser(nil).Parse(strings.NewReader(input))
			if records != nil {
				t.Errorf("partial result returned: %v", records)
			}
			var appErr *apperr.Error
			if !errors.As(err, &appErr) {
				t.Fatalf("error = %v, want *apperr.Error", err)
			}
			if appErr.Kind != apperr.KindParsing {
				t.Errorf("Kind = %s, want Parsing", appErr.Kind)
			}
			if appErr.Row != 3 {
				t.Errorf("Row = %d, want 3", appErr.Row)
			}
			if appErr.Column != tt.column {
				t.Errorf("Column = %q, want %q", appErr.Column, tt.column)
			}
			if !errors.Is(err, tt.cause) {
				t.Errorf("error %v should wrap %v", err, tt.cause)
			}
		})
	}
}

func TestParse_UnknownResolvedZone(t *testing.T) {
	resolver := geotz.ResolverFunc(func(models.Location) (string, error) { return "Atlantis/Capital", nil })
	input := csvOf(`T-1,A,a@x.io,$1,2024-01-10 01:16:23,"6.6, -98.2"`)
	_, err := newTestParser(resolver).Parse(strings.NewReader(input))
	if !errors.Is(err, apperr.ErrInvalidTimeZone) {
		t.Fatalf("error = %v, want ErrInvalidTimeZone", err)
	}
	if kind := apperr.KindOf(err); kind != apperr.KindInvalidTimeZone {
		t.Errorf("KindOf = %s, want %s", kind, apperr.KindInvalidTimeZone)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Row != 2 || appErr.Column != models.FieldClientLocation || appErr.Value != "6.6, -98.2" {
		t.Errorf("row context lost: %+v", appErr)
	}
}

func TestParse_ResolverFailure(t *testing.T) {
	resolver := geotz.ResolverFunc(func(models.Location) (string, error) { return "", errors.New("no polygon") })
	input := csvOf(`T-1,A,a@x.io,$1,2024-01-10 01:16:23,"6.6, -98.2"`)
	_, err := newTestParser(resolver).Parse(strings.NewReader(input))
	if kind := apperr.KindOf(err); kind != apperr.KindInvalidTimeZone {
		t.Errorf("KindOf(%v) = %s, want %s", err, kind, apperr.KindInvalidTimeZone)
	}
}

func TestParse_FieldCountMismatch(t *testing.T) {
	input := csvOf(`T-1,A,a@x.io,$1,2024-01-10 01:16:23,6.6,-98.2`)
	_, err := newTestParser(nil).Parse(strings.NewReader(input))
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindParsing || appErr.Row != 2 {
		t.Fatalf("error = %v, want Parsing at row 2", err)
	}
}

func TestParse_UnterminatedQuote(t *testing.T) {
	input := csvOf(`T-1,"A,a@x.io,$1,2024-01-10 01:16:23,"6.6, -98.2"`)
	_, err := newTestParser(nil).Parse(strings.NewReader(input))
	if apperr.KindOf(err) != apperr.KindParsing {
		t.Fatalf("error = %v, want Parsing", err)
	}
}
