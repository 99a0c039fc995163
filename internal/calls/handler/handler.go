// Package handler exposes the call lifecycle and the action catalog to the
// conversational runtime over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"voicedesk/internal/actions"
	"voicedesk/internal/calls"
	callservice "voicedesk/internal/calls/service"
	"voicedesk/internal/journal"
	jwttoken "voicedesk/internal/jwt_token"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
	"voicedesk/pkg/platform/httputil"
	authmw "voicedesk/pkg/platform/middleware/auth"
	request "voicedesk/pkg/platform/middleware/request"
)

const maxArgsBytes = 64 << 10

type CallService interface {
	Start(ctx context.Context, callerNumber string) (*callservice.Started, error)
	Invoke(ctx context.Context, callID id.CallID, action string, args json.RawMessage) (actions.Reply, error)
	End(ctx context.Context, callID id.CallID, resolutionSummary string) error
	Summary(ctx context.Context, callID id.CallID) (*calls.Summary, error)
	Journal(ctx context.Context, callID id.CallID) ([]journal.Entry, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, callID id.CallID) (calls.Evaluation, error)
}

// Catalog lists the actions the runtime may register as tools.
type Catalog interface {
	Actions() []actions.Descriptor
}

type Handler struct {
	calls     CallService
	evaluator Evaluator
	catalog   Catalog
	logger    *slog.Logger
}

func New(callService CallService, evaluator Evaluator, catalog Catalog, logger *slog.Logger) *Handler {
	return &Handler{
		calls:     callService,
		evaluator: evaluator,
		catalog:   catalog,
		logger:    logger,
	}
}

type startCallRequest struct {
	CallerNumber string `json:"caller_number"`
}

type endCallRequest struct {
	ResolutionSummary string `json:"resolution_summary"`
}

type journalResponse struct {
	CallID  id.CallID       `json:"call_id"`
	Entries []journal.Entry `json:"entries"`
}

// Register mounts the routes on r. r is expected to be authenticated already.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireScope(jwttoken.ScopeCalls, h.logger))
		r.Get("/actions", h.handleListActions)
		r.Post("/calls", h.handleStartCall)
		r.Post("/calls/{callID}/actions/{action}", h.handleInvoke)
		r.Post("/calls/{callID}/end", h.handleEndCall)
	})
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireScope(jwttoken.ScopeEvaluations, h.logger))
		r.Post("/calls/{callID}/evaluate", h.handleEvaluate)
		r.Get("/calls/{callID}/summary", h.handleSummary)
		r.Get("/calls/{callID}/journal", h.handleJournal)
	})
}

func (h *Handler) handleListActions(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"actions": h.catalog.Actions()})
}

func (h *Handler) handleStartCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req startCallRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid start call request",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	started, err := h.calls.Start(ctx, req.CallerNumber)
	if err != nil {
		h.fail(ctx, w, "failed to start call", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, started)
}

// handleInvoke takes the raw action arguments as the request body. Modeled
// outcomes such as not_confirmed are a 200 with the outcome tag.
func (h *Handler) handleInvoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callID, ok := h.callID(w, r)
	if !ok {
		return
	}
	args, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArgsBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "arguments too large"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read arguments"))
		return
	}

	reply, err := h.calls.Invoke(ctx, callID, chi.URLParam(r, "action"), args)
	if err != nil {
		h.fail(ctx, w, "action failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleEndCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callID, ok := h.callID(w, r)
	if !ok {
		return
	}
	var req endCallRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.calls.End(ctx, callID, req.ResolutionSummary); err != nil {
		h.fail(ctx, w, "failed to end call", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callID, ok := h.callID(w, r)
	if !ok {
		return
	}
	eval, err := h.evaluator.Evaluate(ctx, callID)
	if err != nil {
		h.fail(ctx, w, "evaluation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eval)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callID, ok := h.callID(w, r)
	if !ok {
		return
	}
	summary, err := h.calls.Summary(ctx, callID)
	if err != nil {
		h.fail(ctx, w, "failed to load call", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleJournal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callID, ok := h.callID(w, r)
	if !ok {
		return
	}
	entries, err := h.calls.Journal(ctx, callID)
	if err != nil {
		h.fail(ctx, w, "failed to load journal", err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, journalResponse{CallID: callID, Entries: entries})
}

func (h *Handler) callID(w http.ResponseWriter, r *http.Request) (id.CallID, bool) {
	callID, err := id.ParseCallID(chi.URLParam(r, "callID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CallID{}, false
	}
	return callID, true
}

// fail logs faults at error level and modeled refusals at warn level before
// writing the coded error.
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
