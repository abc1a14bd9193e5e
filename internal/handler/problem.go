package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/transaction-manager/internal/apperr"
	"github.com/Dan9191/transaction-manager/internal/middleware"
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Status int    `json:"status"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`

	Field  string `json:"field,omitempty"`
	Row    int    `json:"row,omitempty"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal(err)
	}

	status := statusFor(appErr.Kind)
	entry := h.log.WithError(err).WithFields(logrus.Fields{
		"request_id": middleware.RequestIDFromContext(r.Context()),
		"kind":       appErr.Kind,
	})
	if appErr.Validation() {
		entry.Warn("Request rejected")
	} else {
		entry.Error("Request failed")
	}

	p := Problem{
		Status: status,
		Type:   "Transaction." + string(appErr.Kind),
		Title:  appErr.Title,
		Detail: appErr.Detail,
		Field:  appErr.Field,
		Row:    appErr.Row,
		Column: appErr.Column,
		Value:  appErr.Value,
	}
	if appErr.Kind == apperr.KindParsing && appErr.Err != nil {
		p.Detail += ": " + appErr.Err.Error()
	}
	if appErr.Kind == apperr.KindStorage {
		w.Header().Set("Retry-After", "5")
	}
	writeProblemJSON(w, p)
}

func (h *Handler) writeProblem(w http.ResponseWriter, r *http.Request, status int, typ, title, detail string) {
	h.log.WithFields(logrus.Fields{
		"request_id": middleware.RequestIDFromContext(r.Context()),
		"type":       typ,
	}).Warn(title)
	writeProblemJSON(w, Problem{Status: status, Type: typ, Title: title, Detail: detail})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindStorage:
		return http.StatusServiceUnavailable
	case apperr.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func writeProblemJSON(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	json.NewEncoder(w).Encode(p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
