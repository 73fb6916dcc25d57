package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mrwolf/ppl-server/internal/attendance"
	"github.com/mrwolf/ppl-server/internal/catalog"
	"github.com/mrwolf/ppl-server/internal/config"
	"github.com/mrwolf/ppl-server/internal/db"
	"github.com/mrwolf/ppl-server/internal/ingest"
	"github.com/mrwolf/ppl-server/internal/lifecycle"
	"github.com/mrwolf/ppl-server/internal/llm"
	"github.com/mrwolf/ppl-server/internal/matcher"
	"github.com/mrwolf/ppl-server/internal/models"
	"github.com/mrwolf/ppl-server/internal/promotion"
	"github.com/mrwolf/ppl-server/internal/venues"
)

type testServer struct {
	*httptest.Server
	db *db.DB
}

func setupTestServer(t *testing.T, mutate func(*config.Config)) (*testServer, func()) {
	t.Helper()
	return setupTestServerWith(t, mutate)
}

func setupTestServerWith(t *testing.T, mutate func(*config.Config), opts ...ingest.Option) (*testServer, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "ppl-api-test-*")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}

	cfg := &config.Config{
		Port:      "0",
		DBPath:    tmpDir + "/test.db",
		Timezone:  "UTC",
		RateLimit: 1000,
	}
	if mutate != nil {
		mutate(cfg)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("opening database: %v", err)
	}

	cat := catalog.Default()
	for _, seed := range cat.ActivityTypes {
		_, err := database.EnsureActivityType(context.Background(), models.ActivityType{
			Name: seed.Name, DisplayName: seed.DisplayName, VenueType: seed.VenueType, MinAttendees: seed.MinAttendees,
		})
		if err != nil {
			t.Fatalf("seeding %s: %v", seed.Name, err)
		}
	}

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	engine := promotion.NewEngine(database, venues.NewResolver(database, cat), promotion.WithClock(clock))

	router := NewRouter(cfg, Deps{
		Store:      database,
		Ingest:     ingest.New(database, matcher.New(cat.Interests), engine, opts...),
		Promoter:   engine,
		Lifecycle:  lifecycle.NewManager(database, clock, nil),
		Attendance: attendance.New(database),
	})
	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		database.Close()
		os.RemoveAll(tmpDir)
	}

	return &testServer{Server: server, db: database}, cleanup
}

func (s *testServer) do(t *testing.T, method, path, user, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(UserIDHeader, user)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()

	resp := server.do(t, "GET", "/health", "", "")
	expectStatus(t, resp, http.StatusOK)

	var body models.HealthResponse
	decodeBody(t, resp, &body)
	if body.Status != "ok" || body.Database != "ok" {
		t.Errorf("unexpected health %+v", body)
	}
	if body.Ollama != "not configured" {
		t.Errorf("expected ollama not configured, got %q", body.Ollama)
	}
}

func TestRequiresUserID(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()

	resp := server.do(t, "GET", "/api/v1/activity-types", "", "")
	expectStatus(t, resp, http.StatusUnauthorized)

	var body ErrorResponse
	decodeBody(t, resp, &body)
	if body.Error != "not authenticated" {
		t.Errorf("expected not authenticated, got %q", body.Error)
	}
}

func TestGatewayToken(t *testing.T) {
	server, cleanup := setupTestServer(t, func(c *config.Config) { c.GatewayToken = "gw_secret" })
	defer cleanup()

	resp := server.do(t, "GET", "/api/v1/activity-types", "u1", "")
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	req, _ := http.NewRequest("GET", server.URL+"/api/v1/activity-types", nil)
	req.Header.Set(UserIDHeader, "u1")
	req.Header.Set("Authorization", "Bearer gw_secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /activity-types: %v", err)
	}
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestRateLimit(t *testing.T) {
	server, cleanup := setupTestServer(t, func(c *config.Config) { c.RateLimit = 2 })
	defer cleanup()

	for i := 0; i < 2; i++ {
		resp := server.do(t, "GET", "/api/v1/venues", "u1", "")
		expectStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}
	resp := server.do(t, "GET", "/api/v1/venues", "u1", "")
	expectStatus(t, resp, http.StatusTooManyRequests)
	resp.Body.Close()

	// Other users have their own budget
	resp = server.do(t, "GET", "/api/v1/venues", "u2", "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("u1") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("u1") {
		t.Fatal("second request inside the window should be refused")
	}
	now = now.Add(61 * time.Second)
	if !rl.Allow("u1") {
		t.Error("request after the window should be allowed")
	}
}

func TestInterestsPromoteAndListEvents(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()

	var last models.IngestResponse
	for _, u := range []string{"u1", "u2", "u3"} {
		resp := server.do(t, "POST", "/api/v1/interests", u,
			`{"source":"onboarding","interests":[{"category":"hobby","canonical_value":"jazz"}]}`)
		expectStatus(t, resp, http.StatusOK)
		decodeBody(t, resp, &last)
	}
	if last.Promotion == nil || last.Promotion.Created != 1 {
		t.Fatalf("expected the third submission to promote, got %+v", last.Promotion)
	}

	resp := server.do(t, "GET", "/api/v1/events", "u1", "")
	expectStatus(t, resp, http.StatusOK)
	var cards []models.EventCard
	decodeBody(t, resp, &cards)

	if len(cards) != 1 {
		t.Fatalf("expected 1 event card, got %d", len(cards))
	}
	card := cards[0]
	if card.EventName != "Jazz Jam" || card.Status != models.StatusPendingRSVP {
		t.Errorf("unexpected card %+v", card)
	}
	if card.MatchReason != "3 people interested in Jazz Jam" {
		t.Errorf("unexpected match reason %q", card.MatchReason)
	}
	if card.VenueName == "" {
		t.Error("expected the catalog venue name on the card")
	}
	if card.AttendeeCount != 0 || card.CurrentResponse != nil {
		t.Errorf("expected no RSVPs yet, got %d / %v", card.AttendeeCount, card.CurrentResponse)
	}
	want := time.Date(2026, 3, 7, 14, 0, 0, 0, time.UTC)
	if card.ScheduledTime == nil || !card.ScheduledTime.Equal(want) {
		t.Errorf("expected scheduled time %s, got %v", want, card.ScheduledTime)
	}

	// GET /interests shows the stored interest
	resp = server.do(t, "GET", "/api/v1/interests", "u1", "")
	expectStatus(t, resp, http.StatusOK)
	var interests []models.Interest
	decodeBody(t, resp, &interests)
	if len(interests) != 1 || interests[0].CanonicalValue != "jazz" {
		t.Errorf("unexpected interests %+v", interests)
	}
}

func TestAddInterestsValidation(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"no interests", `{"source":"onboarding","interests":[]}`},
		{"bad source", `{"source":"telepathy","interests":[{"category":"hobby","canonical_value":"yoga"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := server.do(t, "POST", "/api/v1/interests", "u1", tc.body)
			expectStatus(t, resp, http.StatusBadRequest)
			resp.Body.Close()
		})
	}
}

func TestDeleteInterest(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()

	resp := server.do(t, "POST", "/api/v1/interests", "u1",
		`{"interests":[{"category":"hobby","canonical_value":"yoga"}]}`)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	interests, err := server.db.ListInterests(context.Background(), "u1")
	if err != nil || len(interests) != 1 {
		t.Fatalf("expected 1 interest, got %d (%v)", len(interests), err)
	}

	// Another user cannot delete it
	resp = server.do(t, "DELETE", "/api/v1/interests/"+interests[0].ID, "u2", "")
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = server.do(t, "DELETE", "/api/v1/interests/"+interests[0].ID, "u1", "")
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = server.do(t, "GET", "/api/v1/me/stats", "u1", "")
	expectStatus(t, resp, http.StatusOK)
	var stats models.StatsResponse
	decodeBody(t, resp, &stats)
	if stats.ActiveInterests != 0 {
		t.Errorf("expected 0 active interests, got %d", stats.ActiveInterests)
	}
}

func TestGauges(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()
	ctx := context.Background()

	at, err := server.db.GetActivityTypeByName(ctx, "climbing_session")
	if err != nil {
		t.Fatalf("loading activity type: %v", err)
	}

	resp := server.do(t, "POST", "/api/v1/gauges", "u1", `{"response":"yes"}`)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = server.do(t, "POST", "/api/v1/gauges", "u1", `{"activity_type_id":"nope","response":"yes"}`)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = server.do(t, "POST", "/api/v1/gauges", "u1", `{"activity_type_id":"`+at.ID+`","response":"maybe"}`)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = server.do(t, "POST", "/api/v1/gauges", "u1", `{"activity_type_id":"`+at.ID+`","response":"yes"}`)
	expectStatus(t, resp, http.StatusOK)
	var first models.GaugeResponse
	decodeBody(t, resp, &first)
	if first.Promotion == nil || first.Promotion.Created != 0 {
		t.Errorf("one yes should not promote, got %+v", first.Promotion)
	}

	// Climbing needs two people
	resp = server.do(t, "POST", "/api/v1/gauges", "u2", `{"activity_type_id":"`+at.ID+`","response":"yes"}`)
	expectStatus(t, resp, http.StatusOK)
	var second models.GaugeResponse
	decodeBody(t, resp, &second)
	if second.Promotion == nil || second.Promotion.Created != 1 {
		t.Errorf("expected promotion at threshold, got %+v", second.Promotion)
	}

	resp = server.do(t, "GET", "/api/v1/gauges", "u1", "")
	expectStatus(t, resp, http.StatusOK)
	var gauges []models.Gauge
	decodeBody(t, resp, &gauges)
	if len(gauges) != 1 || gauges[0].ActivityTypeID != at.ID {
		t.Errorf("unexpected gauges %+v", gauges)
	}

	resp = server.do(t, "GET", "/api/v1/activity-types/"+at.ID+"/gauges", "u1", "")
	expectStatus(t, resp, http.StatusOK)
	var counts models.ActivityGaugesResponse
	decodeBody(t, resp, &counts)
	if counts.Yes != 2 || counts.No != 0 || counts.Threshold != 2 {
		t.Errorf("unexpected counts %+v", counts)
	}

	resp = server.do(t, "GET", "/api/v1/activity-types/nope/gauges", "u1", "")
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func createPendingEvent(t *testing.T, server *testServer) string {
	t.Helper()
	for _, u := range []string{"u1", "u2"} {
		resp := server.do(t, "POST", "/api/v1/interests", u,
			`{"interests":[{"category":"hobby","canonical_value":"bouldering"}]}`)
		expectStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}
	events, err := server.db.ListActiveEvents(context.Background())
	if err != nil || len(events) != 1 {
		t.Fatalf("expected 1 active event, got %d (%v)", len(events), err)
	}
	return events[0].ID
}

func TestRSVPAndAttendance(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()
	eventID := createPendingEvent(t, server)

	resp := server.do(t, "POST", "/api/v1/events/"+eventID+"/rsvp", "u1", `{"response":"can_go"}`)
	expectStatus(t, resp, http.StatusOK)
	var att models.AttendanceResponse
	decodeBody(t, resp, &att)
	if att.AttendeeCount != 1 || att.Tally.CanGo != 1 {
		t.Errorf("unexpected attendance %+v", att)
	}

	resp = server.do(t, "POST", "/api/v1/events/"+eventID+"/rsvp", "u2", `{"response":"unavailable"}`)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = server.do(t, "GET", "/api/v1/events/"+eventID+"/attendance", "u3", "")
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &att)
	if att.Tally.CanGo != 1 || att.Tally.Unavailable != 1 {
		t.Errorf("unexpected tally %+v", att.Tally)
	}

	resp = server.do(t, "GET", "/api/v1/events", "u1", "")
	expectStatus(t, resp, http.StatusOK)
	var cards []models.EventCard
	decodeBody(t, resp, &cards)
	if len(cards) != 1 || cards[0].CurrentResponse == nil || *cards[0].CurrentResponse != models.RSVPCanGo {
		t.Errorf("expected current response can_go, got %+v", cards)
	}

	resp = server.do(t, "POST", "/api/v1/events/"+eventID+"/rsvp", "u1", `{"response":"maybe"}`)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = server.do(t, "POST", "/api/v1/events/missing/rsvp", "u1", `{"response":"can_go"}`)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = server.do(t, "GET", "/api/v1/events/missing/attendance", "u1", "")
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestEventStatus(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()
	eventID := createPendingEvent(t, server)

	resp := server.do(t, "POST", "/api/v1/events/"+eventID+"/status", "u1", `{"status":"confirmed"}`)
	expectStatus(t, resp, http.StatusOK)
	var ev models.Event
	decodeBody(t, resp, &ev)
	if ev.Status != models.StatusConfirmed {
		t.Errorf("expected confirmed, got %s", ev.Status)
	}

	resp = server.do(t, "POST", "/api/v1/events/"+eventID+"/status", "u1", `{"status":"pending_rsvp"}`)
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	resp = server.do(t, "POST", "/api/v1/events/"+eventID+"/status", "u1", `{"status":"postponed"}`)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = server.do(t, "POST", "/api/v1/events/missing/status", "u1", `{"status":"cancelled"}`)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestManualPromote(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()

	resp := server.do(t, "POST", "/api/v1/promote", "u1", "")
	expectStatus(t, resp, http.StatusOK)
	var res models.PromotionResult
	decodeBody(t, resp, &res)
	if res.Created != 0 {
		t.Errorf("expected nothing to promote, got %+v", res)
	}

	run, err := server.db.GetLastPromotionRun(context.Background())
	if err != nil || run == nil {
		t.Fatalf("expected a recorded run, got %v (%v)", run, err)
	}
	if run.Trigger != promotion.TriggerManual {
		t.Errorf("expected manual trigger, got %s", run.Trigger)
	}
}

func TestIdeateWithoutModel(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()

	resp := server.do(t, "POST", "/api/v1/ideate", "u1", `{"message":"I like jazz"}`)
	expectStatus(t, resp, http.StatusBadGateway)
	resp.Body.Close()

	resp = server.do(t, "POST", "/api/v1/ideate", "u1", `{"message":""}`)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = server.do(t, "GET", "/api/v1/ideate/history", "u1", "")
	expectStatus(t, resp, http.StatusOK)
	var logs []models.IdeateLog
	decodeBody(t, resp, &logs)
	if len(logs) != 0 {
		t.Errorf("expected no stored turns without a model, got %d", len(logs))
	}
}

type cannedExtractor struct {
	reply     string
	interests []models.InterestInput
}

func (c cannedExtractor) ExtractInterests(context.Context, []models.ChatMessage, []string) (llm.Extraction, error) {
	return llm.Extraction{Message: c.reply, Interests: c.interests}, nil
}

func TestIdeateHistory(t *testing.T) {
	ext := cannedExtractor{
		reply:     "What kind of jazz?",
		interests: []models.InterestInput{{Category: models.CategoryHobby, CanonicalValue: "jazz"}},
	}
	server, cleanup := setupTestServerWith(t, nil, ingest.WithExtractor(ext))
	defer cleanup()

	resp := server.do(t, "POST", "/api/v1/ideate", "u1", `{"message":"I like jazz"}`)
	expectStatus(t, resp, http.StatusOK)
	var reply models.IdeateResponse
	decodeBody(t, resp, &reply)
	if reply.Message != "What kind of jazz?" || len(reply.Interests) != 1 {
		t.Fatalf("unexpected reply %+v", reply)
	}

	resp = server.do(t, "GET", "/api/v1/ideate/history", "u1", "")
	expectStatus(t, resp, http.StatusOK)
	var logs []models.IdeateLog
	decodeBody(t, resp, &logs)
	if len(logs) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(logs))
	}
	if logs[0].Role != models.RoleUser || logs[0].Content != "I like jazz" {
		t.Errorf("unexpected user turn %+v", logs[0])
	}
	if logs[1].Role != models.RoleAssistant || len(logs[1].ExtractedInterests) != 1 || logs[1].ExtractedInterests[0] != "jazz" {
		t.Errorf("unexpected assistant turn %+v", logs[1])
	}

	resp = server.do(t, "GET", "/api/v1/ideate/history", "u2", "")
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &logs)
	if len(logs) != 0 {
		t.Errorf("expected u2 to have no history, got %d", len(logs))
	}
}

func TestInterestStats(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()

	for _, u := range []string{"u1", "u2", "u3"} {
		resp := server.do(t, "POST", "/api/v1/interests", u,
			`{"interests":[{"category":"hobby","canonical_value":"jazz"}]}`)
		expectStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	resp := server.do(t, "GET", "/api/v1/interests/stats?canonical_value=Jazz", "u1", "")
	expectStatus(t, resp, http.StatusOK)
	var stats models.InterestStats
	decodeBody(t, resp, &stats)
	if stats.CanonicalValue != "jazz" || stats.OthersCount != 2 || stats.RelatedActivityTypes != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	resp = server.do(t, "GET", "/api/v1/interests/stats", "u1", "")
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestListActivityTypesAndVenues(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()

	resp := server.do(t, "GET", "/api/v1/activity-types", "u1", "")
	expectStatus(t, resp, http.StatusOK)
	var types []models.ActivityType
	decodeBody(t, resp, &types)
	if len(types) != len(catalog.Default().ActivityTypes) {
		t.Errorf("expected %d activity types, got %d", len(catalog.Default().ActivityTypes), len(types))
	}

	resp = server.do(t, "GET", "/api/v1/venues", "u1", "")
	expectStatus(t, resp, http.StatusOK)
	var vs []models.Venue
	decodeBody(t, resp, &vs)
	if vs == nil {
		t.Error("expected an empty list, not null")
	}
}
