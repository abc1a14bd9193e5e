package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/transaction-manager/internal/middleware"
	"github.com/Dan9191/transaction-manager/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// queryDateLayouts are the accepted forms of the start and end parameters.
var queryDateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc            *service.Service
	health         Pinger
	log            *logrus.Logger
	maxUploadBytes int64
}

func NewHandler(svc *service.Service, health Pinger, log *logrus.Logger, maxUploadBytes int64) *Handler {
	return &Handler{svc: svc, health: health, log: log, maxUploadBytes: maxUploadBytes}
}

// Register mounts the transaction routes on r.
func (h *Handler) Register(r *mux.Router, upload ...mux.MiddlewareFunc) {
	api := r.PathPrefix("/api/transactions").Subrouter()

	var uploadHandler http.Handler = http.HandlerFunc(h.UploadTransactions)
	for i := len(upload) - 1; i >= 0; i-- {
		uploadHandler = upload[i](uploadHandler)
	}
	api.Handle("", uploadHandler).Methods(http.MethodPost)
	api.HandleFunc("", h.ExportTransactions).Methods(http.MethodGet)
}

// RegisterHealth mounts the unauthenticated health probe on r.
func (h *Handler) RegisterHealth(r *mux.Router) {
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
}

// UploadTransactions handles a multipart CSV upload in the "file" field
func (h *Handler) UploadTransactions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeProblem(w, r, http.StatusRequestEntityTooLarge, "Transaction.Upload", "File too large.",
				fmt.Sprintf("The file must not exceed %d bytes.", h.maxUploadBytes))
			return
		}
		h.writeProblem(w, r, http.StatusBadRequest, "Transaction.Upload", "Missing file.",
			"Upload the transactions CSV in the multipart field \"file\".")
		return
	}
	defer file.Close()

	if strings.ToLower(filepath.Ext(header.Filename)) != ".csv" {
		h.writeProblem(w, r, http.StatusBadRequest, "Transaction.Upload", "Invalid file.", "Only csv files are allowed.")
		return
	}

	summary, err := h.svc.UploadTransactions(r.Context(), file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ExportTransactions streams report.xlsx for the requested window and fields
func (h *Handler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseQueryDate(q.Get("start"))
	if err != nil {
		h.writeProblem(w, r, http.StatusBadRequest, "Transaction.Query", "Invalid start date.", err.Error())
		return
	}
	end, err := parseQueryDate(q.Get("end"))
	if err != nil {
		h.writeProblem(w, r, http.StatusBadRequest, "Transaction.Query", "Invalid end date.", err.Error())
		return
	}

	f, err := h.svc.ExportTransactions(r.Context(), service.ExportRequest{
		Start:  start,
		End:    end,
		Zone:   q.Get("ianaTimeZone"),
		Fields: splitFields(q["fields"]),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="report.xlsx"`)
	if _, err := f.WriteTo(w); err != nil {
		h.log.WithError(err).WithField("request_id", middleware.RequestIDFromContext(r.Context())).
			Error("Failed to stream report")
	}
}

// Health checks storage connectivity
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseQueryDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("the date is required (yyyy-MM-dd or yyyy-MM-dd HH:mm:ss)")
	}
	for _, layout := range queryDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a yyyy-MM-dd or yyyy-MM-dd HH:mm:ss date", value)
}

// splitFields accepts both repeated and comma-separated fields parameters.
func splitFields(values []string) []string {
	var fields []string
	for _, v := range values {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}
	return fields
}
