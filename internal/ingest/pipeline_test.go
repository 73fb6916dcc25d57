package ingest

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mrwolf/ppl-server/internal/catalog"
	"github.com/mrwolf/ppl-server/internal/db"
	"github.com/mrwolf/ppl-server/internal/llm"
	"github.com/mrwolf/ppl-server/internal/matcher"
	"github.com/mrwolf/ppl-server/internal/models"
	"github.com/mrwolf/ppl-server/internal/promotion"
	"github.com/mrwolf/ppl-server/internal/venues"
)

func setupTestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "ppl-ingest-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	tmpFile.Close()

	database, err := db.Open(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("opening database: %v", err)
	}

	return database, func() {
		database.Close()
		os.Remove(tmpFile.Name())
	}
}

func newTestPipeline(t *testing.T, database *db.DB, opts ...Option) *Pipeline {
	t.Helper()
	cat := catalog.Default()
	for _, seed := range cat.ActivityTypes {
		_, err := database.EnsureActivityType(context.Background(), models.ActivityType{
			Name: seed.Name, DisplayName: seed.DisplayName, VenueType: seed.VenueType, MinAttendees: seed.MinAttendees,
		})
		if err != nil {
			t.Fatalf("seeding %s: %v", seed.Name, err)
		}
	}

	engine := promotion.NewEngine(database, venues.NewResolver(database, cat),
		promotion.WithClock(clockwork.NewFakeClockAt(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))))
	return New(database, matcher.New(cat.Interests), engine, opts...)
}

func hobby(values ...string) []models.InterestInput {
	var out []models.InterestInput
	for _, v := range values {
		out = append(out, models.InterestInput{Category: models.CategoryHobby, CanonicalValue: v})
	}
	return out
}

func TestIngestPromotesAtThreshold(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	p := newTestPipeline(t, database)

	for _, u := range []string{"u1", "u2"} {
		resp, err := p.Ingest(ctx, u, models.SourceOnboarding, hobby("jazz piano"))
		if err != nil {
			t.Fatalf("ingest %s: %v", u, err)
		}
		if resp.Interests[0].ActivityType != "jazz_jam" || resp.Interests[0].MatchedBy != matcher.ByStatic {
			t.Errorf("unexpected outcome %+v", resp.Interests[0])
		}
		if resp.Promotion == nil || resp.Promotion.Created != 0 {
			t.Errorf("expected no promotion yet, got %+v", resp.Promotion)
		}
	}

	resp, err := p.Ingest(ctx, "u3", models.SourceOnboarding, hobby("jazz"))
	if err != nil {
		t.Fatalf("ingest u3: %v", err)
	}
	if resp.Promotion == nil || resp.Promotion.Created != 1 {
		t.Fatalf("expected the third yes to promote, got %+v", resp.Promotion)
	}
	if resp.Promotion.Events[0].MatchReason != "3 people interested in Jazz Jam" {
		t.Errorf("unexpected match reason %q", resp.Promotion.Events[0].MatchReason)
	}
}

func TestIngestNovelInterest(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	p := newTestPipeline(t, database)

	resp, err := p.Ingest(ctx, "u1", models.SourceChat, hobby("underwater basket weaving"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	out := resp.Interests[0]
	if !out.Novel || out.MatchedBy != MatchedByNovel || out.ActivityType != "underwater_basket_weaving" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	at, err := database.GetActivityTypeByName(ctx, "underwater_basket_weaving")
	if err != nil {
		t.Fatalf("reading minted type: %v", err)
	}
	if at.DisplayName != "Underwater Basket Weaving" || at.VenueType != catalog.DefaultVenueType || at.MinAttendees != catalog.DefaultMinAttendees {
		t.Errorf("unexpected minted type %+v", at)
	}

	// The second user maps onto the minted type instead of creating another
	resp, _ = p.Ingest(ctx, "u2", models.SourceChat, hobby("underwater basket weaving"))
	if resp.Interests[0].Novel {
		t.Errorf("second submission should not be novel: %+v", resp.Interests[0])
	}
	counts, _ := database.AggregateCounts(ctx, at.ID)
	if counts.Yes != 2 {
		t.Errorf("expected 2 yes gauges, got %d", counts.Yes)
	}
}

func TestIngestReportsInvalidItems(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	p := newTestPipeline(t, database)

	resp, err := p.Ingest(ctx, "u1", models.SourceOnboarding, hobby("", "yoga"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if resp.Interests[0].Error == "" {
		t.Error("expected an error for the empty interest")
	}
	if resp.Interests[1].ActivityType != "yoga_session" {
		t.Errorf("valid items should still be processed, got %+v", resp.Interests[1])
	}
}

func TestIngestDuplicate(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	p := newTestPipeline(t, database)

	p.Ingest(ctx, "u1", models.SourceOnboarding, hobby("climbing"))
	resp, err := p.Ingest(ctx, "u1", models.SourceChat, hobby("Climbing"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !resp.Interests[0].Duplicate || resp.Interests[0].ActivityType != "climbing_session" {
		t.Errorf("unexpected outcome %+v", resp.Interests[0])
	}

	interests, _ := database.ListInterests(ctx, "u1")
	if len(interests) != 1 {
		t.Errorf("expected 1 stored interest, got %d", len(interests))
	}
}

func TestIngestRejectsBadSource(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	p := newTestPipeline(t, database)

	_, err := p.Ingest(context.Background(), "u1", "ideate", hobby("yoga"))
	if !models.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

type stubSemantic struct {
	hints map[string]string
	err   error
	block bool
	calls int
}

func (s *stubSemantic) MatchInterests(ctx context.Context, interests []string, _ []models.ActivityRef) (map[string]string, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.hints, s.err
}

func TestIngestUsesSemanticHintsFirst(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	sem := &stubSemantic{hints: map[string]string{"bebop": "jazz_jam", "jazz": "book_club"}}
	p := newTestPipeline(t, database, WithSemanticMatcher(sem, time.Second))

	resp, err := p.Ingest(ctx, "u1", models.SourceChat, hobby("bebop", "jazz"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if sem.calls != 1 {
		t.Errorf("expected one batched semantic call, got %d", sem.calls)
	}
	if resp.Interests[0].ActivityType != "jazz_jam" || resp.Interests[0].MatchedBy != matcher.BySemantic {
		t.Errorf("unexpected bebop outcome %+v", resp.Interests[0])
	}
	if resp.Interests[1].ActivityType != "book_club" || resp.Interests[1].MatchedBy != matcher.BySemantic {
		t.Errorf("semantic hint should win over the static table, got %+v", resp.Interests[1])
	}
}

func TestIngestFallsBackWhenSemanticTimesOut(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	sem := &stubSemantic{block: true}
	p := newTestPipeline(t, database, WithSemanticMatcher(sem, 10*time.Millisecond))

	resp, err := p.Ingest(context.Background(), "u1", models.SourceChat, hobby("jazz piano"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if resp.Interests[0].ActivityType != "jazz_jam" || resp.Interests[0].MatchedBy != matcher.ByStatic {
		t.Errorf("expected static fallback, got %+v", resp.Interests[0])
	}
}

func TestIngestFallsBackOnSemanticError(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	sem := &stubSemantic{err: &models.ExternalServiceError{Service: "ollama", Err: errors.New("down")}}
	p := newTestPipeline(t, database, WithSemanticMatcher(sem, time.Second))

	resp, err := p.Ingest(context.Background(), "u1", models.SourceChat, hobby("hiking"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if resp.Interests[0].ActivityType != "group_hike" {
		t.Errorf("expected static fallback, got %+v", resp.Interests[0])
	}
}

type stubExtractor struct {
	ext   llm.Extraction
	err   error
	turns *[]models.ChatMessage
}

func (s stubExtractor) ExtractInterests(_ context.Context, history []models.ChatMessage, _ []string) (llm.Extraction, error) {
	if s.turns != nil {
		*s.turns = append([]models.ChatMessage{}, history...)
	}
	return s.ext, s.err
}

func TestChat(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	ext := stubExtractor{ext: llm.Extraction{
		Message:   "What draws you to the wall?",
		Interests: hobby("bouldering"),
	}}
	p := newTestPipeline(t, database, WithExtractor(ext))

	resp, err := p.Chat(ctx, "u1", "I boulder every weekend")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Message != "What draws you to the wall?" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if len(resp.Interests) != 1 || resp.Interests[0].ActivityType != "climbing_session" {
		t.Errorf("unexpected interests %+v", resp.Interests)
	}

	interests, _ := database.ListInterests(ctx, "u1")
	if len(interests) != 1 || interests[0].Source != models.SourceChat {
		t.Errorf("expected one chat interest, got %+v", interests)
	}
}

func TestChatStoresConversation(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	var seen []models.ChatMessage
	ext := stubExtractor{
		ext:   llm.Extraction{Message: "Tell me more", Interests: hobby("yoga")},
		turns: &seen,
	}
	p := newTestPipeline(t, database, WithExtractor(ext))

	if _, err := p.Chat(ctx, "u1", "I stretch a lot"); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if len(seen) != 1 || seen[0].Role != models.RoleUser {
		t.Fatalf("first turn should only see the new message, got %+v", seen)
	}

	if _, err := p.Chat(ctx, "u1", "mostly in the mornings"); err != nil {
		t.Fatalf("second turn: %v", err)
	}
	want := []models.ChatMessage{
		{Role: models.RoleUser, Content: "I stretch a lot"},
		{Role: models.RoleAssistant, Content: "Tell me more"},
		{Role: models.RoleUser, Content: "mostly in the mornings"},
	}
	if len(seen) != len(want) {
		t.Fatalf("expected %d turns from the store, got %+v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("turn %d = %+v, want %+v", i, seen[i], want[i])
		}
	}

	history, err := p.History(ctx, "u1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 stored turns, got %d", len(history))
	}
	if history[1].Role != models.RoleAssistant || len(history[1].ExtractedInterests) != 1 || history[1].ExtractedInterests[0] != "yoga" {
		t.Errorf("unexpected assistant turn %+v", history[1])
	}

	// Conversations are per user
	other, _ := p.History(ctx, "u2")
	if len(other) != 0 {
		t.Errorf("expected no history for u2, got %d", len(other))
	}
}

func TestChatErrors(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	p := newTestPipeline(t, database)
	if _, err := p.Chat(ctx, "u1", "hi"); err == nil {
		t.Error("expected error without an extractor")
	}
	if _, err := p.Chat(ctx, "u1", "  "); !models.IsValidation(err) {
		t.Errorf("expected validation error for empty message, got %v", err)
	}

	down := &models.ExternalServiceError{Service: "ollama", Err: errors.New("down")}
	p = newTestPipeline(t, database, WithExtractor(stubExtractor{err: down}))
	_, err := p.Chat(ctx, "u1", "hi")
	var ext *models.ExternalServiceError
	if !errors.As(err, &ext) {
		t.Errorf("expected ExternalServiceError, got %v", err)
	}

	// The user's message is kept even when the model is down
	history, _ := p.History(ctx, "u1")
	if len(history) != 1 || history[0].Content != "hi" {
		t.Errorf("expected the user turn to be stored, got %+v", history)
	}
}

func TestInterestStats(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	p := newTestPipeline(t, database)

	for _, u := range []string{"u1", "u2", "u3"} {
		if _, err := p.Ingest(ctx, u, models.SourceOnboarding, hobby("jazz")); err != nil {
			t.Fatalf("ingest %s: %v", u, err)
		}
	}

	stats, err := p.InterestStats(ctx, "u1", " Jazz ")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.CanonicalValue != "jazz" || stats.OthersCount != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.RelatedActivityTypes != 1 {
		t.Errorf("expected jazz to relate to Jazz Jam only, got %d", stats.RelatedActivityTypes)
	}

	if _, err := p.InterestStats(ctx, "u1", ""); !models.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
