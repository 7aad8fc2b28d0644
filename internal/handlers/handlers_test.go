package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/johnboyce/golf-outing-manager/internal/dal"
	"github.com/johnboyce/golf-outing-manager/internal/draft"
	"github.com/johnboyce/golf-outing-manager/internal/foursomes"
	"github.com/johnboyce/golf-outing-manager/internal/models"
	"github.com/johnboyce/golf-outing-manager/internal/pubsub"
	"github.com/johnboyce/golf-outing-manager/internal/session"
)

type testServer struct {
	*httptest.Server
	store *dal.MemoryDAL
	ps    *pubsub.PubSub
	api   *APIHandlers
}

func newTestServer(t *testing.T, load bool) *testServer {
	t.Helper()
	store := dal.NewMemoryDAL()
	ps := pubsub.New()
	ctl := session.New(store, store, ps, nil, foursomes.NewAllocator(foursomes.WithSeed(1)))
	if load {
		if err := ctl.LoadRoster(context.Background()); err != nil {
			t.Fatalf("LoadRoster() failed: %v", err)
		}
	}

	api := NewAPIHandlers(ctl, store, ps)
	mux := http.NewServeMux()
	api.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: store, ps: ps, api: api}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func (s *testServer) expect(t *testing.T, method, path, body string, status int) []byte {
	t.Helper()
	resp, data := s.do(t, method, path, body)
	if resp.StatusCode != status {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, status, resp.StatusCode, data)
	}
	return data
}

func TestListPlayersAndCourses(t *testing.T) {
	s := newTestServer(t, false)

	var players []models.Player
	if err := json.Unmarshal(s.expect(t, http.MethodGet, "/players", "", http.StatusOK), &players); err != nil {
		t.Fatalf("decode players: %v", err)
	}
	if len(players) != 8 {
		t.Errorf("expected 8 players, got %d", len(players))
	}

	var courses []models.Course
	if err := json.Unmarshal(s.expect(t, http.MethodGet, "/courses", "", http.StatusOK), &courses); err != nil {
		t.Fatalf("decode courses: %v", err)
	}
	if len(courses) != 4 || courses[0].Name != "Bear Trap Dunes" {
		t.Errorf("unexpected courses: %+v", courses)
	}
}

func TestAddPlayerAndCourse(t *testing.T) {
	s := newTestServer(t, false)
	events := s.ps.Subscribe()
	defer s.ps.Unsubscribe(events)

	var p models.Player
	data := s.expect(t, http.MethodPost, "/players", `{"name":"Ada","handicap":3.2,"nickname":"Countess"}`, http.StatusCreated)
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID == "" || p.Nickname != "Countess" {
		t.Errorf("unexpected player: %+v", p)
	}

	select {
	case ev := <-events:
		if ev.Type != pubsub.EventPlayerAdded {
			t.Errorf("expected %s, got %s", pubsub.EventPlayerAdded, ev.Type)
		}
	case <-time.After(time.Second):
		t.Error("expected player added event")
	}

	s.expect(t, http.MethodPost, "/courses", `{"id":"links","name":"The Links"}`, http.StatusCreated)
	courses, _ := s.store.ListCourses(context.Background())
	if courses[len(courses)-1].ID != "links" {
		t.Errorf("course not stored: %+v", courses)
	}
}

func TestAddInvalidRecords(t *testing.T) {
	s := newTestServer(t, false)
	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"nameless player", "/players", `{"handicap":1}`, http.StatusBadRequest},
		{"handicap out of range", "/players", `{"name":"X","handicap":80}`, http.StatusBadRequest},
		{"malformed json", "/players", `{"name":`, http.StatusBadRequest},
		{"nameless course", "/courses", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.expect(t, http.MethodPost, tt.path, tt.body, tt.status)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, true)
	for _, path := range []string{"/api/draft/pick", "/api/draft/start", "/api/draft/commission", "/api/draft/reset"} {
		resp, _ := s.do(t, http.MethodGet, path, "")
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("GET %s: expected 405, got %d", path, resp.StatusCode)
		}
		if resp.Header.Get("Allow") != http.MethodPost {
			t.Errorf("GET %s: expected Allow: POST, got %q", path, resp.Header.Get("Allow"))
		}
	}
	resp, _ := s.do(t, http.MethodDelete, "/players", "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /players: expected 405, got %d", resp.StatusCode)
	}
}

func TestDraftFlowOverHTTP(t *testing.T) {
	s := newTestServer(t, true)

	var state models.DraftSnapshot
	json.Unmarshal(s.expect(t, http.MethodGet, "/api/draft/state", "", http.StatusOK), &state)
	if !state.RosterLoaded || state.Status != models.DraftNotStarted || len(state.AvailablePlayers) != 8 {
		t.Fatalf("unexpected initial state: %+v", state)
	}

	json.Unmarshal(s.expect(t, http.MethodPost, "/api/draft/captains",
		`{"teamOneCaptainId":"player-1","teamTwoCaptainId":"player-2"}`, http.StatusOK), &state)
	if state.TeamOne.Name != "Team Boycey" || state.TeamTwo.Name != "Team Sully" {
		t.Errorf("unexpected team names %q %q", state.TeamOne.Name, state.TeamTwo.Name)
	}

	s.expect(t, http.MethodPost, "/api/draft/start", "", http.StatusOK)

	for i, id := range []string{"player-3", "player-4", "player-5", "player-6", "player-7", "player-8"} {
		var resp struct {
			Player models.Player        `json:"player"`
			State  models.DraftSnapshot `json:"state"`
		}
		json.Unmarshal(s.expect(t, http.MethodPost, "/api/draft/pick", `{"playerId":"`+id+`"}`, http.StatusOK), &resp)
		want := models.TeamOne
		if i%2 == 1 {
			want = models.TeamTwo
		}
		if resp.Player.Team != want {
			t.Errorf("pick %d: expected %s, got %s", i, want, resp.Player.Team)
		}
		state = resp.State
	}
	if !state.Completed {
		t.Fatalf("expected completed draft, got %s", state.Status)
	}

	var a models.Assignment
	json.Unmarshal(s.expect(t, http.MethodPost, "/api/draft/commission", "", http.StatusOK), &a)
	if len(a.CourseOrder) != 4 {
		t.Errorf("expected 4 courses, got %d", len(a.CourseOrder))
	}
	placed := 0
	for _, groups := range a.Courses {
		for _, g := range groups {
			placed += len(g.Players())
		}
	}
	if placed != 8 {
		t.Errorf("expected 8 players placed, got %d", placed)
	}

	var fetched models.Assignment
	json.Unmarshal(s.expect(t, http.MethodGet, "/api/assignment", "", http.StatusOK), &fetched)
	if fetched.ID != a.ID {
		t.Errorf("expected assignment %s, got %s", a.ID, fetched.ID)
	}

	var saved models.CommissionedDraft
	json.Unmarshal(s.expect(t, http.MethodPost, "/drafts", `{"description":"Ocean City"}`, http.StatusCreated), &saved)
	if saved.Description != "Ocean City" || saved.Assignment == nil {
		t.Errorf("unexpected saved draft: %+v", saved)
	}

	var latest models.CommissionedDraft
	json.Unmarshal(s.expect(t, http.MethodGet, "/drafts", "", http.StatusOK), &latest)
	if latest.ID != saved.ID {
		t.Errorf("expected latest %s, got %s", saved.ID, latest.ID)
	}

	json.Unmarshal(s.expect(t, http.MethodPost, "/api/draft/reset", "", http.StatusOK), &state)
	if state.Status != models.DraftNotStarted || len(state.AvailablePlayers) != 8 {
		t.Errorf("expected fresh draft after reset, got %+v", state)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t, true)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		kind   string
	}{
		{"start without captains", http.MethodPost, "/api/draft/start", "", http.StatusConflict, "NotReady"},
		{"pick before start", http.MethodPost, "/api/draft/pick", `{"playerId":"player-3"}`, http.StatusConflict, "NotReady"},
		{"equal captains", http.MethodPost, "/api/draft/captains", `{"teamOneCaptainId":"player-1","teamTwoCaptainId":"player-1"}`, http.StatusBadRequest, "InvalidSelection"},
		{"commission too early", http.MethodPost, "/api/draft/commission", "", http.StatusConflict, "DraftNotComplete"},
		{"no assignment", http.MethodGet, "/api/assignment", "", http.StatusConflict, "NotCommissioned"},
		{"save uncommissioned", http.MethodPost, "/drafts", `{"description":"x"}`, http.StatusConflict, "NotCommissioned"},
		{"no saved drafts", http.MethodGet, "/drafts", "", http.StatusNotFound, "NotFound"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := s.expect(t, tt.method, tt.path, tt.body, tt.status)
			var body map[string]string
			if err := json.Unmarshal(data, &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body["kind"] != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, body["kind"])
			}
		})
	}

	s.expect(t, http.MethodPost, "/api/draft/captains", `{"teamOneCaptainId":"player-1","teamTwoCaptainId":"player-2"}`, http.StatusOK)
	s.expect(t, http.MethodPost, "/api/draft/start", "", http.StatusOK)
	s.expect(t, http.MethodPost, "/api/draft/pick", `{"playerId":"nonexistent-id"}`, http.StatusNotFound)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{draft.ErrInvalidSelection, http.StatusBadRequest},
		{draft.ErrNotReady, http.StatusConflict},
		{draft.ErrUnknownPlayer, http.StatusNotFound},
		{draft.ErrDraftNotComplete, http.StatusConflict},
		{draft.ErrRosterUnavailable, http.StatusServiceUnavailable},
		{draft.ErrNotCommissioned, http.StatusConflict},
		{dal.ErrInvalidRecord, http.StatusBadRequest},
		{dal.ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestCommandsBeforeRosterLoad(t *testing.T) {
	s := newTestServer(t, false)

	var state models.DraftSnapshot
	json.Unmarshal(s.expect(t, http.MethodGet, "/api/draft/state", "", http.StatusOK), &state)
	if state.RosterLoaded {
		t.Error("roster should not be loaded")
	}
	s.expect(t, http.MethodPost, "/api/draft/start", "", http.StatusConflict)

	json.Unmarshal(s.expect(t, http.MethodPost, "/api/draft/roster", "", http.StatusOK), &state)
	if !state.RosterLoaded || len(state.AvailablePlayers) != 8 {
		t.Errorf("expected loaded roster, got %+v", state)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, true)
	s.api.AddCheck("database", true, func(ctx context.Context) error { return nil })
	s.api.AddCheck("clickhouse", false, func(ctx context.Context) error { return errors.New("timeout") })

	var health map[string]any
	json.Unmarshal(s.expect(t, http.MethodGet, "/api/health", "", http.StatusServiceUnavailable), &health)
	if health["status"] != "degraded" {
		t.Errorf("expected degraded, got %v", health["status"])
	}
	checks := health["checks"].(map[string]any)
	if checks["database"].(map[string]any)["status"] != "healthy" {
		t.Errorf("expected healthy database, got %v", checks["database"])
	}

	// A failing non-critical check does not block readiness.
	s.expect(t, http.MethodGet, "/readyz", "", http.StatusOK)
	s.expect(t, http.MethodGet, "/healthz", "", http.StatusOK)

	s.api.AddCheck("nats", true, func(ctx context.Context) error { return errors.New("disconnected") })
	var ready map[string]any
	json.Unmarshal(s.expect(t, http.MethodGet, "/readyz", "", http.StatusServiceUnavailable), &ready)
	if ready["reason"] != "nats_unavailable" {
		t.Errorf("unexpected reason %v", ready["reason"])
	}
}

func TestEventsSSE(t *testing.T) {
	s := newTestServer(t, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readData := func() string {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}

	if first := readData(); !strings.Contains(first, "connected") {
		t.Fatalf("expected connected message, got %s", first)
	}

	// The handler subscribes before writing the greeting, so this is seen.
	s.expect(t, http.MethodPost, "/api/draft/captains", `{"teamOneCaptainId":"player-1","teamTwoCaptainId":"player-2"}`, http.StatusOK)

	var ev pubsub.Event
	if err := json.Unmarshal([]byte(readData()), &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Type != pubsub.EventCaptains {
		t.Errorf("expected %s, got %s", pubsub.EventCaptains, ev.Type)
	}
}
