// Package scheduler runs the daily transactions report.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/transaction-manager/internal/geotz"
	"github.com/Dan9191/transaction-manager/internal/models"
	"github.com/Dan9191/transaction-manager/internal/report"
	"github.com/Dan9191/transaction-manager/internal/service"
)

const runTimeout = 5 * time.Minute

// Finder loads the transactions of a local window.
type Finder interface {
	FindTransactions(ctx context.Context, req service.ExportRequest) ([]models.Transaction, error)
}

// Mailer delivers a saved report.
type Mailer interface {
	SendReport(to []string, day time.Time, path string, rows int) error
}

// DailyReport exports the previous local day of transactions.
type DailyReport struct {
	finder     Finder
	mailer     Mailer
	zone       *time.Location
	fields     []string
	dir        string
	recipients []string
	log        *logrus.Logger
	now        func() time.Time
}

// NewDailyReport validates the zone name up front. mailer may be nil.
func NewDailyReport(finder Finder, mailer Mailer, zone string, fields []string, dir string, recipients []string, log *logrus.Logger) (*DailyReport, error) {
	loc, err := geotz.LoadZone(zone)
	if err != nil {
		return nil, fmt.Errorf("report time zone: %w", err)
	}
	return &DailyReport{
		finder:     finder,
		mailer:     mailer,
		zone:       loc,
		fields:     fields,
		dir:        dir,
		recipients: recipients,
		log:        log,
		now:        time.Now,
	}, nil
}

// Window returns [yesterday 00:00, today 00:00) as wall clock values in the report zone.
func (d *DailyReport) Window() (start, end time.Time) {
	y, m, day := d.now().In(d.zone).Date()
	end = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, 0, -1), end
}

// Run writes the report file and returns its path.
func (d *DailyReport) Run(ctx context.Context) (string, error) {
	start, end := d.Window()
	log := d.log.WithFields(logrus.Fields{
		"start": start.Format("2006-01-02 15:04:05"),
		"end":   end.Format("2006-01-02 15:04:05"),
		"zone":  d.zone.String(),
	})

	records, err := d.finder.FindTransactions(ctx, service.ExportRequest{
		Start:  start,
		End:    end,
		Zone:   d.zone.String(),
		Fields: d.fields,
	})
	if err != nil {
		return "", fmt.Errorf("find transactions: %w", err)
	}

	f, err := report.Build(records, d.fields)
	if err != nil {
		return "", fmt.Errorf("build report: %w", err)
	}
	defer f.Close()

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(d.dir, fmt.Sprintf("transactions-%s.xlsx", start.Format("2006-01-02")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	log.WithField("rows", len(records)).Infof("Daily report saved to %s", path)

	if d.mailer != nil && len(d.recipients) > 0 {
		day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, d.zone)
		if err := d.mailer.SendReport(d.recipients, day, path, len(records)); err != nil {
			return path, err
		}
	}
	return path, nil
}

// Start schedules job on the cron expression expr, evaluated in the report zone.
func Start(expr string, job *DailyReport) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(job.zone))
	_, err := c.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := job.Run(ctx); err != nil {
			job.log.WithError(err).Error("Daily report failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_CRON %q: %w", expr, err)
	}
	c.Start()
	job.log.Infof("Daily report scheduled with %q in %s", expr, job.zone)
	return c, nil
}
