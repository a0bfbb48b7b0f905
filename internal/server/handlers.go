package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrWong99/voiceorder/internal/catalog"
	"github.com/MrWong99/voiceorder/internal/feedback"
	"github.com/MrWong99/voiceorder/internal/observe"
	"github.com/MrWong99/voiceorder/internal/reconcile"
	"github.com/MrWong99/voiceorder/internal/submit"
	"github.com/MrWong99/voiceorder/internal/transcript"
	"github.com/MrWong99/voiceorder/pkg/types"
)

// ResolveRequest is the body of POST /v1/orders/resolve.
type ResolveRequest struct {
	// Transcript is the dictated order text.
	Transcript string `json:"transcript"`

	// SpeakerID identifies the waiter, when known.
	SpeakerID string `json:"speaker_id,omitempty"`
}

// SubmitRequest is the body of POST /v1/orders/submit.
type SubmitRequest struct {
	// Order is an order previously returned by the resolve endpoint, possibly
	// edited by the waiter.
	Order *types.StructuredOrder `json:"order"`

	// Confirmed acknowledges that the order's unresolved names were reviewed.
	// Required when Order.Unresolved is not empty.
	Confirmed bool `json:"confirmed"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error         string   `json:"error"`
	Code          string   `json:"code"`
	Unresolved    []string `json:"unresolved,omitempty"`
	CorrelationID string   `json:"correlation_id,omitempty"`
}

// CatalogResponse is the body of GET /v1/catalog.
type CatalogResponse struct {
	Dishes []types.CatalogDish `json:"dishes"`
}

// handleResolve resolves a transcript against a fresh catalog snapshot. With
// ?explain=true the reply is a transcript.Result including per-item
// corrections.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	explain, _ := strconv.ParseBool(r.URL.Query().Get("explain"))

	ctx := r.Context()
	if req.SpeakerID != "" {
		ctx = observe.ContextWithSpeaker(ctx, req.SpeakerID)
	}

	dishes, err := s.catalog.List(ctx)
	if err != nil {
		observe.Logger(ctx).Error("catalog snapshot failed", "err", err)
		writeError(w, r, http.StatusServiceUnavailable, "catalog_unavailable", "catalog is unavailable")
		return
	}

	res, err := s.Pipeline().Explain(ctx, req.Transcript, dishes)
	s.recordResolution(ctx, req, res, err)
	if err != nil {
		var re *reconcile.ResolutionError
		if errors.As(err, &re) {
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:         re.Error(),
				Code:          re.Code(),
				Unresolved:    re.Unresolved,
				CorrelationID: observe.CorrelationID(r.Context()),
			})
			return
		}
		observe.Logger(ctx).Error("resolve failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	if explain {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusOK, res.Order)
}

// handleSubmit forwards an order to the kitchen.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		writeError(w, r, http.StatusServiceUnavailable, "submit_disabled", "order submission is not configured")
		return
	}
	var req SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	receipt, err := s.publisher.Publish(r.Context(), req.Order, req.Confirmed)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, receipt)
	case errors.Is(err, submit.ErrUnconfirmed):
		resp := ErrorResponse{
			Error:         err.Error(),
			Code:          "unconfirmed",
			CorrelationID: observe.CorrelationID(r.Context()),
		}
		if req.Order != nil {
			resp.Unresolved = req.Order.Unresolved
		}
		writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, submit.ErrNoTable):
		writeError(w, r, http.StatusUnprocessableEntity, "missing_table", err.Error())
	case errors.Is(err, submit.ErrEmptyOrder):
		writeError(w, r, http.StatusUnprocessableEntity, "empty_order", err.Error())
	default:
		observe.Logger(r.Context()).Error("publish failed", "err", err)
		writeError(w, r, http.StatusBadGateway, "publish_failed", "order could not be sent to the kitchen")
	}
}

// FeedbackRequest is the body of POST /v1/feedback.
type FeedbackRequest struct {
	// Heard is the name as spoken, typically an entry of an order's
	// unresolved list.
	Heard string `json:"heard"`

	// DishID is the catalog dish the waiter meant.
	DishID string `json:"dish_id"`

	Comment   string `json:"comment,omitempty"`
	SpeakerID string `json:"speaker_id,omitempty"`
}

// handleFeedback records a waiter's correction of a misheard name.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		writeError(w, r, http.StatusServiceUnavailable, "feedback_disabled", "feedback log is not configured")
		return
	}
	var req FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	dishes, err := s.catalog.List(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("catalog snapshot failed", "err", err)
		writeError(w, r, http.StatusServiceUnavailable, "catalog_unavailable", "catalog is unavailable")
		return
	}
	if !slices.ContainsFunc(dishes, func(d types.CatalogDish) bool { return d.ID == req.DishID }) {
		writeError(w, r, http.StatusUnprocessableEntity, "unknown_dish", "dish "+strconv.Quote(req.DishID)+" is not in the catalog")
		return
	}

	err = s.feedback.Record(r.Context(), feedback.Entry{
		Kind:          feedback.KindCorrection,
		CorrelationID: observe.CorrelationID(r.Context()),
		SpeakerID:     req.SpeakerID,
		Heard:         strings.ToLower(strings.TrimSpace(req.Heard)),
		DishID:        req.DishID,
		Comment:       req.Comment,
	})
	switch {
	case errors.Is(err, feedback.ErrInvalidEntry):
		writeError(w, r, http.StatusUnprocessableEntity, "invalid_feedback", err.Error())
	case err != nil:
		observe.Logger(r.Context()).Error("feedback write failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// recordResolution logs a resolve request to the feedback log. Failures are
// logged and never fail the request.
func (s *Server) recordResolution(ctx context.Context, req ResolveRequest, res *transcript.Result, err error) {
	if s.feedback == nil || res == nil {
		return
	}
	e := feedback.Entry{
		Kind:          feedback.KindResolution,
		CorrelationID: observe.CorrelationID(ctx),
		SpeakerID:     req.SpeakerID,
		Transcript:    req.Transcript,
		Normalized:    res.Normalized,
		Outcome:       observe.OutcomeOK,
	}
	for _, c := range res.Corrections {
		e.Corrections = append(e.Corrections, feedback.Replacement{
			Original:   c.Original,
			Corrected:  c.Corrected,
			Method:     string(c.Method),
			Confidence: c.Confidence,
		})
	}
	var re *reconcile.ResolutionError
	switch {
	case errors.As(err, &re):
		e.Outcome = re.Code()
		e.Unresolved = re.Unresolved
	case err != nil:
		e.Outcome = "error"
	case res.Order.IsPartial():
		e.Outcome = observe.OutcomePartial
		e.Unresolved = res.Order.Unresolved
	}
	if err := s.feedback.Record(ctx, e); err != nil {
		observe.Logger(ctx).Warn("feedback log write failed", "err", err)
	}
}

// handleCatalog returns the snapshot the resolver would use right now.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	dishes, err := s.catalog.List(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("catalog snapshot failed", "err", err)
		writeError(w, r, http.StatusServiceUnavailable, "catalog_unavailable", "catalog is unavailable")
		return
	}
	if dishes == nil {
		dishes = []types.CatalogDish{}
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Dishes: dishes})
}

func (s *Server) handleListDishes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	all, _ := strconv.ParseBool(q.Get("all"))
	dishes, err := s.store.Dishes(r.Context(), catalog.ListOptions{
		Category:           q.Get("category"),
		IncludeUnavailable: all,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if dishes == nil {
		dishes = []catalog.Dish{}
	}
	writeJSON(w, http.StatusOK, dishes)
}

func (s *Server) handleAddDish(w http.ResponseWriter, r *http.Request) {
	var d catalog.Dish
	if !decodeJSON(w, r, &d) {
		return
	}
	added, err := s.store.Add(r.Context(), d)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleUpdateDish(w http.ResponseWriter, r *http.Request) {
	var d catalog.Dish
	if !decodeJSON(w, r, &d) {
		return
	}
	d.ID = chi.URLParam(r, "id")
	if err := s.store.Update(r.Context(), d); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRemoveDish(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError maps catalog sentinels onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, catalog.ErrDuplicateID), errors.Is(err, catalog.ErrDuplicateName):
		writeError(w, r, http.StatusConflict, "duplicate", err.Error())
	case errors.Is(err, catalog.ErrInvalidDish):
		writeError(w, r, http.StatusUnprocessableEntity, "invalid_dish", err.Error())
	default:
		observe.Logger(r.Context()).Error("catalog store failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields. On
// failure it writes a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:         msg,
		Code:          code,
		CorrelationID: observe.CorrelationID(r.Context()),
	})
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("server: encode response", "err", err)
	}
}
