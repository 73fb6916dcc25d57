package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mrwolf/ppl-server/internal/lifecycle"
	"github.com/mrwolf/ppl-server/internal/logger"
	"github.com/mrwolf/ppl-server/internal/models"
	"github.com/mrwolf/ppl-server/internal/promotion"
)

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Store is the read and write surface the handlers use directly
type Store interface {
	Ping(ctx context.Context) error
	ListActivityTypes(ctx context.Context) ([]models.ActivityType, error)
	GetActivityType(ctx context.Context, id string) (*models.ActivityType, error)
	AggregateCounts(ctx context.Context, activityTypeID string) (models.GaugeCounts, error)
	ListInterests(ctx context.Context, userID string) ([]models.Interest, error)
	DeactivateInterest(ctx context.Context, userID, interestID string) error
	UpsertGauge(ctx context.Context, userID, activityTypeID, response string) error
	GaugesForUser(ctx context.Context, userID string) ([]models.Gauge, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListActiveEvents(ctx context.Context) ([]models.Event, error)
	GetVenue(ctx context.Context, id string) (*models.Venue, error)
	ListVenues(ctx context.Context) ([]models.Venue, error)
}

// Ingester maps submitted interests to gauges
type Ingester interface {
	Ingest(ctx context.Context, userID, source string, interests []models.InterestInput) (models.IngestResponse, error)
	Chat(ctx context.Context, userID, message string) (models.IdeateResponse, error)
	History(ctx context.Context, userID string) ([]models.IdeateLog, error)
	InterestStats(ctx context.Context, userID, canonicalValue string) (models.InterestStats, error)
}

// Promoter runs a promotion pass
type Promoter interface {
	Promote(ctx context.Context, trigger string) (promotion.Result, error)
}

// Transitioner applies event status changes
type Transitioner interface {
	Transition(ctx context.Context, eventID, to string) (*models.Event, error)
}

// Attendance records RSVPs and answers attendance questions
type Attendance interface {
	UpsertRSVP(ctx context.Context, userID, eventID, response string) error
	AttendeeCount(ctx context.Context, eventID string) (int, error)
	Tally(ctx context.Context, eventID string) (models.RSVPTally, error)
	Response(ctx context.Context, userID, eventID string) (*string, error)
	AttendedCount(ctx context.Context, userID string) (int, error)
}

// HealthChecker reports whether the language model is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps wires the handlers to the rest of the server. Ollama may be nil
type Deps struct {
	Store      Store
	Ingest     Ingester
	Promoter   Promoter
	Lifecycle  Transitioner
	Attendance Attendance
	Ollama     HealthChecker
	Log        *logger.Logger
}

type Handlers struct {
	store      Store
	ingest     Ingester
	promoter   Promoter
	lifecycle  Transitioner
	attendance Attendance
	ollama     HealthChecker
	log        *logger.Logger
}

func NewHandlers(deps Deps) *Handlers {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Handlers{
		store:      deps.Store,
		ingest:     deps.Ingest,
		promoter:   deps.Promoter,
		lifecycle:  deps.Lifecycle,
		attendance: deps.Attendance,
		ollama:     deps.Ollama,
		log:        log,
	}
}

// fail maps domain errors onto HTTP statuses
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *models.ValidationError
	var ext *models.ExternalServiceError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error(), "VALIDATION")
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, models.ErrConflict):
		writeError(w, http.StatusConflict, err.Error(), "CONFLICT")
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error(), "INVALID_TRANSITION")
	case errors.As(err, &ext):
		h.log.Warn("External service failed", "path", r.URL.Path, "service", ext.Service, "error", err)
		writeError(w, http.StatusBadGateway, ext.Service+" unavailable", "EXTERNAL_SERVICE")
	default:
		h.log.Error("Request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return false
	}
	return true
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:   "ok",
		Ollama:   h.checkOllama(r.Context()),
		Database: "ok",
		Version:  "1.0.0",
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "error: " + err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) checkOllama(ctx context.Context) string {
	if h.ollama == nil {
		return "not configured"
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.ollama.HealthCheck(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "connected"
}

// ListActivityTypes handles GET /activity-types
func (h *Handlers) ListActivityTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.store.ListActivityTypes(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if types == nil {
		types = []models.ActivityType{}
	}
	writeJSON(w, http.StatusOK, types)
}

// ActivityTypeGauges handles GET /activity-types/{id}/gauges
func (h *Handlers) ActivityTypeGauges(w http.ResponseWriter, r *http.Request) {
	at, err := h.store.GetActivityType(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	counts, err := h.store.AggregateCounts(r.Context(), at.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ActivityGaugesResponse{
		ActivityTypeID: at.ID,
		Yes:            counts.Yes,
		No:             counts.No,
		Threshold:      promotion.Threshold(*at),
	})
}

// ListInterests handles GET /interests
func (h *Handlers) ListInterests(w http.ResponseWriter, r *http.Request) {
	interests, err := h.store.ListInterests(r.Context(), GetUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if interests == nil {
		interests = []models.Interest{}
	}
	writeJSON(w, http.StatusOK, interests)
}

// AddInterests handles POST /interests
func (h *Handlers) AddInterests(w http.ResponseWriter, r *http.Request) {
	var req models.AddInterestsRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Interests) == 0 {
		writeError(w, http.StatusBadRequest, "interests are required", "MISSING_INTERESTS")
		return
	}
	if req.Source == "" {
		req.Source = models.SourceOnboarding
	}

	resp, err := h.ingest.Ingest(r.Context(), GetUser(r), req.Source, req.Interests)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// InterestStats handles GET /interests/stats?canonical_value=
func (h *Handlers) InterestStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ingest.InterestStats(r.Context(), GetUser(r), r.URL.Query().Get("canonical_value"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DeleteInterest handles DELETE /interests/{id}
func (h *Handlers) DeleteInterest(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeactivateInterest(r.Context(), GetUser(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ideate handles POST /ideate
func (h *Handlers) Ideate(w http.ResponseWriter, r *http.Request) {
	var req models.IdeateRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	resp, err := h.ingest.Chat(ctx, GetUser(r), req.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// IdeateHistory handles GET /ideate/history
func (h *Handlers) IdeateHistory(w http.ResponseWriter, r *http.Request) {
	logs, err := h.ingest.History(r.Context(), GetUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// ListGauges handles GET /gauges
func (h *Handlers) ListGauges(w http.ResponseWriter, r *http.Request) {
	gauges, err := h.store.GaugesForUser(r.Context(), GetUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if gauges == nil {
		gauges = []models.Gauge{}
	}
	writeJSON(w, http.StatusOK, gauges)
}

// SubmitGauge handles POST /gauges. Every gauge triggers a promotion pass;
// a failed pass is logged and left to the scheduled safety net
func (h *Handlers) SubmitGauge(w http.ResponseWriter, r *http.Request) {
	var req models.GaugeRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ActivityTypeID) == "" {
		writeError(w, http.StatusBadRequest, "activity_type_id is required", "VALIDATION")
		return
	}

	userID := GetUser(r)
	if err := h.store.UpsertGauge(r.Context(), userID, req.ActivityTypeID, req.Response); err != nil {
		h.fail(w, r, err)
		return
	}

	resp := models.GaugeResponse{
		Gauge: models.Gauge{
			UserID:         userID,
			ActivityTypeID: req.ActivityTypeID,
			Response:       req.Response,
			Timestamp:      time.Now().UTC(),
		},
	}

	res, err := h.promoter.Promote(r.Context(), promotion.TriggerGauge)
	if err != nil {
		h.log.Error("Promotion after gauge failed", "activity_type_id", req.ActivityTypeID, "error", err)
	} else {
		resp.Promotion = &res
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListEvents handles GET /events. Only events that still accept RSVPs or
// are confirmed are listed
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := GetUser(r)

	events, err := h.store.ListActiveEvents(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	types, err := h.store.ListActivityTypes(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	names := make(map[string]string, len(types))
	for _, at := range types {
		names[at.ID] = at.DisplayName
	}

	venueNames := map[string]string{}
	cards := make([]models.EventCard, 0, len(events))
	for _, ev := range events {
		card := models.EventCard{
			ID:             ev.ID,
			ActivityTypeID: ev.ActivityTypeID,
			EventName:      names[ev.ActivityTypeID],
			Status:         ev.Status,
			ScheduledTime:  ev.ScheduledTime,
			RSVPDeadline:   ev.RSVPDeadline,
			MatchReason:    ev.MatchReason,
		}

		if ev.VenueID != "" {
			name, ok := venueNames[ev.VenueID]
			if !ok {
				venue, err := h.store.GetVenue(ctx, ev.VenueID)
				if err != nil && !errors.Is(err, models.ErrNotFound) {
					h.fail(w, r, err)
					return
				}
				if venue != nil {
					name = venue.Name
				}
				venueNames[ev.VenueID] = name
			}
			card.VenueName = name
		}

		if card.AttendeeCount, err = h.attendance.AttendeeCount(ctx, ev.ID); err != nil {
			h.fail(w, r, err)
			return
		}
		if card.CurrentResponse, err = h.attendance.Response(ctx, userID, ev.ID); err != nil {
			h.fail(w, r, err)
			return
		}
		cards = append(cards, card)
	}

	writeJSON(w, http.StatusOK, cards)
}

// RSVP handles POST /events/{id}/rsvp
func (h *Handlers) RSVP(w http.ResponseWriter, r *http.Request) {
	var req models.RSVPRequest
	if !decode(w, r, &req) {
		return
	}

	eventID := chi.URLParam(r, "id")
	if err := h.attendance.UpsertRSVP(r.Context(), GetUser(r), eventID, req.Response); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeAttendance(w, r, eventID)
}

// Attendance handles GET /events/{id}/attendance
func (h *Handlers) Attendance(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	if _, err := h.store.GetEvent(r.Context(), eventID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeAttendance(w, r, eventID)
}

func (h *Handlers) writeAttendance(w http.ResponseWriter, r *http.Request, eventID string) {
	tally, err := h.attendance.Tally(r.Context(), eventID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.AttendanceResponse{
		EventID:       eventID,
		AttendeeCount: tally.CanGo,
		Tally:         tally,
	})
}

// SetEventStatus handles POST /events/{id}/status
func (h *Handlers) SetEventStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusRequest
	if !decode(w, r, &req) {
		return
	}

	ev, err := h.lifecycle.Transition(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// Promote handles POST /promote
func (h *Handlers) Promote(w http.ResponseWriter, r *http.Request) {
	res, err := h.promoter.Promote(r.Context(), promotion.TriggerManual)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListVenues handles GET /venues
func (h *Handlers) ListVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := h.store.ListVenues(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if venues == nil {
		venues = []models.Venue{}
	}
	writeJSON(w, http.StatusOK, venues)
}

// Stats handles GET /me/stats
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	userID := GetUser(r)

	attended, err := h.attendance.AttendedCount(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	interests, err := h.store.ListInterests(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.StatsResponse{
		EventsAttended:  attended,
		ActiveInterests: len(interests),
	})
}
