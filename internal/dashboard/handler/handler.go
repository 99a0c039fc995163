// Package handler serves the operator dashboard read models over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"voicedesk/internal/calls"
	"voicedesk/internal/dashboard"
	jwttoken "voicedesk/internal/jwt_token"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
	"voicedesk/pkg/platform/httputil"
	authmw "voicedesk/pkg/platform/middleware/auth"
	request "voicedesk/pkg/platform/middleware/request"
)

const dateLayout = "2006-01-02"

type Service interface {
	Calls(ctx context.Context, q dashboard.CallQuery) (dashboard.Page[dashboard.CallRow], error)
	Call(ctx context.Context, callID id.CallID) (*dashboard.CallDetail, error)
	Errors(ctx context.Context, q dashboard.ErrorQuery) (dashboard.Page[calls.ErrorRecord], error)
	KPIs(ctx context.Context, w dashboard.Window) (calls.KPIs, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the routes on r. r is expected to be authenticated already.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireScope(jwttoken.ScopeDashboard, h.logger))
		r.Get("/dashboard/calls", h.handleCalls)
		r.Get("/dashboard/calls/{callID}", h.handleCall)
		r.Get("/dashboard/errors", h.handleErrors)
		r.Get("/dashboard/kpis", h.handleKPIs)
	})
}

// handleCalls accepts from, to, subject_id, caller_number, page and per_page.
func (h *Handler) handleCalls(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	window, err := parseWindow(query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := parsePage(query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q := dashboard.CallQuery{Window: window, PageRequest: page, CallerNumber: query.Get("caller_number")}
	if raw := query.Get("subject_id"); raw != "" {
		if q.SubjectID, err = id.ParseSubjectID(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	result, err := h.service.Calls(ctx, q)
	if err != nil {
		h.fail(ctx, w, "failed to list calls", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callID, err := id.ParseCallID(chi.URLParam(r, "callID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.service.Call(ctx, callID)
	if err != nil {
		h.fail(ctx, w, "failed to load call detail", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

// handleErrors accepts from, to, source, page and per_page.
func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	window, err := parseWindow(query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := parsePage(query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.Errors(ctx, dashboard.ErrorQuery{Window: window, PageRequest: page, Source: query.Get("source")})
	if err != nil {
		h.fail(ctx, w, "failed to list errors", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleKPIs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	window, err := parseWindow(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	kpis, err := h.service.KPIs(ctx, window)
	if err != nil {
		h.fail(ctx, w, "failed to aggregate kpis", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, kpis)
}

// parseWindow reads from and to as RFC 3339 instants or calendar dates. A
// date given as to covers that whole day.
func parseWindow(query url.Values) (dashboard.Window, error) {
	var w dashboard.Window
	var err error
	if w.From, err = parseBound(query.Get("from"), "from", false); err != nil {
		return w, err
	}
	if w.To, err = parseBound(query.Get("to"), "to", true); err != nil {
		return w, err
	}
	return w, nil
}

func parseBound(raw, field string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, field+" must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1)
	}
	return day, nil
}

func parsePage(query url.Values) (dashboard.PageRequest, error) {
	var p dashboard.PageRequest
	var err error
	if p.Page, err = parseCount(query.Get("page"), "page"); err != nil {
		return p, err
	}
	if p.PerPage, err = parseCount(query.Get("per_page"), "per_page"); err != nil {
		return p, err
	}
	return p, nil
}

func parseCount(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, field+" must be a positive integer")
	}
	return n, nil
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	attrs := []any{
		"request_id", request.GetRequestID(ctx),
		"client_id", authmw.GetClientID(ctx),
		"error", err,
	}
	if dErrors.IsFault(err) {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
