package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/johnboyce/golf-outing-manager/internal/dal"
	"github.com/johnboyce/golf-outing-manager/internal/draft"
	"github.com/johnboyce/golf-outing-manager/internal/logger"
	"github.com/johnboyce/golf-outing-manager/internal/models"
	"github.com/johnboyce/golf-outing-manager/internal/pubsub"
	"github.com/johnboyce/golf-outing-manager/internal/session"
)

const maxBodyBytes = 1 << 20

// APIHandlers contains all API handler methods
type APIHandlers struct {
	session *session.Controller
	dal     dal.OutingDAL
	pubsub  pubsub.Broker
	checks  []check
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(ctl *session.Controller, store dal.OutingDAL, ps pubsub.Broker) *APIHandlers {
	return &APIHandlers{
		session: ctl,
		dal:     store,
		pubsub:  ps,
	}
}

// Register mounts every route on mux.
func (h *APIHandlers) Register(mux *http.ServeMux) {
	// Roster records
	mux.HandleFunc("/players", h.Players)
	mux.HandleFunc("/courses", h.Courses)
	mux.HandleFunc("/drafts", h.Drafts)

	// Draft session
	mux.HandleFunc("/api/draft/state", h.GetDraftState)
	mux.HandleFunc("/api/draft/roster", h.ReloadRoster)
	mux.HandleFunc("/api/draft/captains", h.SelectCaptains)
	mux.HandleFunc("/api/draft/start", h.StartDraft)
	mux.HandleFunc("/api/draft/pick", h.DraftPick)
	mux.HandleFunc("/api/draft/reset", h.ResetDraft)
	mux.HandleFunc("/api/draft/commission", h.Commission)
	mux.HandleFunc("/api/assignment", h.GetAssignment)

	// SSE endpoint
	mux.HandleFunc("/api/events", h.EventsSSE)

	// Health checks
	mux.HandleFunc("/api/health", h.Health)
	mux.HandleFunc("/healthz", h.Liveness)
	mux.HandleFunc("/readyz", h.Readiness)
}

// Players lists players on GET and registers one on POST.
func (h *APIHandlers) Players(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		players, err := h.dal.ListPlayers(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, players)
	case http.MethodPost:
		var player models.Player
		if !decode(w, r, &player) {
			return
		}
		result, err := h.dal.AddPlayer(r.Context(), &player)
		if err != nil {
			writeError(w, err)
			return
		}
		logger.Info("Player registered", logger.FieldPlayerID, result.ID)
		h.pubsub.Publish(pubsub.NewEvent(pubsub.EventPlayerAdded, map[string]any{"id": result.ID}))
		writeJSON(w, http.StatusCreated, result)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// Courses lists courses on GET and registers one on POST.
func (h *APIHandlers) Courses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		courses, err := h.dal.ListCourses(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, courses)
	case http.MethodPost:
		var course models.Course
		if !decode(w, r, &course) {
			return
		}
		result, err := h.dal.AddCourse(r.Context(), &course)
		if err != nil {
			writeError(w, err)
			return
		}
		logger.Info("Course registered", logger.FieldCourseID, result.ID)
		h.pubsub.Publish(pubsub.NewEvent(pubsub.EventCourseAdded, map[string]any{"id": result.ID}))
		writeJSON(w, http.StatusCreated, result)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// Drafts returns the latest saved draft on GET and saves the commissioned
// draft on POST.
func (h *APIHandlers) Drafts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		latest, err := h.session.LatestDraft(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, latest)
	case http.MethodPost:
		var req struct {
			Description string `json:"description"`
		}
		if !decode(w, r, &req) {
			return
		}
		saved, err := h.session.SaveDraft(r.Context(), req.Description)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// GetDraftState returns the current draft state
func (h *APIHandlers) GetDraftState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, h.session.State())
}

// ReloadRoster refetches players and courses and starts a fresh draft.
func (h *APIHandlers) ReloadRoster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := h.session.LoadRoster(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.State())
}

// SelectCaptains seats a captain on each team.
func (h *APIHandlers) SelectCaptains(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req struct {
		TeamOneCaptainID string `json:"teamOneCaptainId"`
		TeamTwoCaptainID string `json:"teamTwoCaptainId"`
	}
	if !decode(w, r, &req) {
		return
	}

	logger.Info("Selecting captains", "team_one", req.TeamOneCaptainID, "team_two", req.TeamTwoCaptainID)
	if err := h.session.SelectCaptains(req.TeamOneCaptainID, req.TeamTwoCaptainID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.State())
}

// StartDraft puts team one on the clock.
func (h *APIHandlers) StartDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := h.session.StartDraft(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.State())
}

// DraftPick handles player draft selection
func (h *APIHandlers) DraftPick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req struct {
		PlayerID string `json:"playerId"`
	}
	if !decode(w, r, &req) {
		return
	}

	player, err := h.session.Pick(req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"player": player,
		"state":  h.session.State(),
	})
}

// ResetDraft resets the draft to initial state
func (h *APIHandlers) ResetDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	logger.Info("Resetting draft")
	h.session.ResetDraft()
	writeJSON(w, http.StatusOK, h.session.State())
}

// Commission allocates the drafted players to foursomes.
func (h *APIHandlers) Commission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	assignment, err := h.session.Commission()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

// GetAssignment returns the foursomes of the last commission.
func (h *APIHandlers) GetAssignment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	assignment, err := h.session.Assignment()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

// EventsSSE provides Server-Sent Events for realtime updates
func (h *APIHandlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	eventChan := h.pubsub.Subscribe()
	defer h.pubsub.Unsubscribe(eventChan)

	flush := func() {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Warn("Dropping unencodable event", logger.FieldEventType, event.Type, "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flush()
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected")
			return
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush()
		}
	}
}

// statusFor maps a command failure to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, draft.ErrInvalidSelection), errors.Is(err, dal.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, draft.ErrUnknownPlayer), errors.Is(err, dal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, draft.ErrNotReady),
		errors.Is(err, draft.ErrDraftNotComplete),
		errors.Is(err, draft.ErrNotCommissioned):
		return http.StatusConflict
	case errors.Is(err, draft.ErrRosterUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	kind := draft.Kind(err)
	switch {
	case errors.Is(err, dal.ErrInvalidRecord):
		kind = "InvalidRecord"
	case errors.Is(err, dal.ErrNotFound):
		kind = "NotFound"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "kind", kind, "error", err)
	} else {
		logger.Debug("Request rejected", "kind", kind, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "kind": kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Warn("Failed to decode request", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "kind": "BadRequest"})
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
