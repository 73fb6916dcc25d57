package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrwolf/ppl-server/internal/catalog"
	"github.com/mrwolf/ppl-server/internal/llm"
	"github.com/mrwolf/ppl-server/internal/logger"
	"github.com/mrwolf/ppl-server/internal/matcher"
	"github.com/mrwolf/ppl-server/internal/models"
	"github.com/mrwolf/ppl-server/internal/promotion"
)

// MatchedByNovel marks interests that minted a new activity type
const MatchedByNovel = "novel"

// chatHistoryLimit bounds the stored turns loaded for one ideation turn
const chatHistoryLimit = 20

// Store is the persistence the pipeline needs
type Store interface {
	AddInterest(ctx context.Context, in models.Interest) (*models.Interest, error)
	ListInterests(ctx context.Context, userID string) ([]models.Interest, error)
	ListActivityTypes(ctx context.Context) ([]models.ActivityType, error)
	EnsureActivityType(ctx context.Context, at models.ActivityType) (*models.ActivityType, error)
	UpsertGauge(ctx context.Context, userID, activityTypeID, response string) error
	CountUsersWithInterest(ctx context.Context, canonicalValue, excludeUserID string) (int, error)
	AppendIdeateLog(ctx context.Context, entry models.IdeateLog) (*models.IdeateLog, error)
	ListIdeateLogs(ctx context.Context, userID string, limit int) ([]models.IdeateLog, error)
}

// SemanticMatcher resolves a batch of interests to activity type names
type SemanticMatcher interface {
	MatchInterests(ctx context.Context, interests []string, types []models.ActivityRef) (map[string]string, error)
}

// Extractor continues a chat and pulls interests out of it
type Extractor interface {
	ExtractInterests(ctx context.Context, history []models.ChatMessage, existing []string) (llm.Extraction, error)
}

// Promoter runs a promotion pass
type Promoter interface {
	Promote(ctx context.Context, trigger string) (promotion.Result, error)
}

// Pipeline turns submitted interests into gauges and promotes when
// thresholds are crossed
type Pipeline struct {
	store           Store
	mapper          *matcher.Mapper
	semantic        SemanticMatcher
	extractor       Extractor
	promoter        Promoter
	semanticTimeout time.Duration
	log             *logger.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithSemanticMatcher enables the batched semantic match, bounded by timeout
func WithSemanticMatcher(s SemanticMatcher, timeout time.Duration) Option {
	return func(p *Pipeline) {
		p.semantic = s
		p.semanticTimeout = timeout
	}
}

func WithExtractor(e Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

func New(store Store, mapper *matcher.Mapper, promoter Promoter, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:           store,
		mapper:          mapper,
		promoter:        promoter,
		semanticTimeout: 5 * time.Second,
		log:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest stores interests for userID, maps each to an activity type (minting
// novel ones), records a yes gauge for every resolved type and runs
// promotion once for the whole batch. Invalid items are reported in their
// outcome and do not stop the rest of the batch
func (p *Pipeline) Ingest(ctx context.Context, userID, source string, interests []models.InterestInput) (models.IngestResponse, error) {
	if userID == "" {
		return models.IngestResponse{}, models.NewValidationError("user_id", "is required")
	}
	if !models.ValidSource(source) {
		return models.IngestResponse{}, models.NewValidationError("source", "must be one of onboarding, chat, inferred")
	}

	outcomes := make([]models.IngestOutcome, len(interests))
	var accepted []int
	for i, in := range interests {
		stored, err := p.store.AddInterest(ctx, models.Interest{
			UserID:         userID,
			Category:       in.Category,
			CanonicalValue: in.CanonicalValue,
			RawValue:       in.RawValue,
			Source:         source,
		})
		switch {
		case errors.Is(err, models.ErrConflict):
			outcomes[i] = models.IngestOutcome{CanonicalValue: strings.ToLower(strings.TrimSpace(in.CanonicalValue)), Duplicate: true}
			accepted = append(accepted, i)
		case models.IsValidation(err):
			outcomes[i] = models.IngestOutcome{CanonicalValue: in.CanonicalValue, Error: err.Error()}
		case err != nil:
			return models.IngestResponse{}, fmt.Errorf("storing interest %q: %w", in.CanonicalValue, err)
		default:
			outcomes[i] = models.IngestOutcome{CanonicalValue: stored.CanonicalValue}
			accepted = append(accepted, i)
		}
	}
	if len(accepted) == 0 {
		return models.IngestResponse{Interests: outcomes}, nil
	}

	types, err := p.store.ListActivityTypes(ctx)
	if err != nil {
		return models.IngestResponse{}, fmt.Errorf("loading activity types: %w", err)
	}
	known := make([]models.ActivityRef, len(types))
	byName := make(map[string]models.ActivityType, len(types))
	for i, at := range types {
		known[i] = at.Ref()
		byName[at.Name] = at
	}

	values := make([]string, 0, len(accepted))
	for _, i := range accepted {
		values = append(values, outcomes[i].CanonicalValue)
	}
	hints := p.semanticHints(ctx, values, known)

	gauged := make(map[string]bool)
	for _, i := range accepted {
		out := &outcomes[i]
		name, by := p.mapper.ResolveWithHints(out.CanonicalValue, known, hints)

		at, ok := byName[name]
		if name == "" {
			created, err := p.mintActivityType(ctx, out.CanonicalValue)
			if err != nil {
				out.Error = err.Error()
				p.log.Error("Creating activity type failed", "interest", out.CanonicalValue, "error", err)
				continue
			}
			at, ok, by = *created, true, MatchedByNovel
			out.Novel = true
			byName[at.Name] = at
			known = append(known, at.Ref())
		}
		if !ok {
			continue
		}
		out.ActivityType = at.Name
		out.MatchedBy = by

		if gauged[at.ID] {
			continue
		}
		if err := p.store.UpsertGauge(ctx, userID, at.ID, models.GaugeYes); err != nil {
			out.Error = err.Error()
			p.log.Error("Recording gauge failed", "user_id", userID, "activity_type", at.Name, "error", err)
			continue
		}
		gauged[at.ID] = true
	}

	resp := models.IngestResponse{Interests: outcomes}
	if len(gauged) == 0 || p.promoter == nil {
		return resp, nil
	}

	res, err := p.promoter.Promote(ctx, promotion.TriggerGauge)
	if err != nil {
		// Gauges are stored; the scheduled pass will pick them up
		p.log.Error("Promotion after ingest failed", "user_id", userID, "error", err)
		return resp, nil
	}
	resp.Promotion = &res
	return resp, nil
}

// semanticHints makes one bounded call to the semantic matcher. Any failure
// returns nil so resolution falls back to the static table and fuzzy match
func (p *Pipeline) semanticHints(ctx context.Context, values []string, known []models.ActivityRef) map[string]string {
	if p.semantic == nil || len(values) == 0 || len(known) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.semanticTimeout)
	defer cancel()

	hints, err := p.semantic.MatchInterests(ctx, values, known)
	if err != nil {
		p.log.Warn("Semantic match unavailable, using static table", "error", err)
		return nil
	}
	return hints
}

func (p *Pipeline) mintActivityType(ctx context.Context, interest string) (*models.ActivityType, error) {
	name := matcher.Slugify(interest)
	if name == "" {
		return nil, models.NewValidationError("canonical_value", "has no usable characters")
	}
	at, err := p.store.EnsureActivityType(ctx, models.ActivityType{
		Name:         name,
		DisplayName:  matcher.DisplayName(interest),
		VenueType:    catalog.DefaultVenueType,
		MinAttendees: catalog.DefaultMinAttendees,
	})
	if err != nil {
		return nil, err
	}
	p.log.Info("Activity type created", "name", at.Name, "interest", interest)
	return at, nil
}

// Chat runs one ideation turn. Earlier turns come from the stored
// conversation; the user's message and the reply are both stored, and any
// interests the extractor finds are ingested with source chat
func (p *Pipeline) Chat(ctx context.Context, userID, message string) (models.IdeateResponse, error) {
	message = strings.TrimSpace(message)
	if userID == "" {
		return models.IdeateResponse{}, models.NewValidationError("user_id", "is required")
	}
	if message == "" {
		return models.IdeateResponse{}, models.NewValidationError("message", "is required")
	}
	if p.extractor == nil {
		return models.IdeateResponse{}, &models.ExternalServiceError{Service: "ollama", Err: errors.New("extraction is not configured")}
	}

	existing, err := p.store.ListInterests(ctx, userID)
	if err != nil {
		return models.IdeateResponse{}, fmt.Errorf("loading interests: %w", err)
	}
	canon := make([]string, len(existing))
	for i, in := range existing {
		canon[i] = in.CanonicalValue
	}

	logs, err := p.store.ListIdeateLogs(ctx, userID, chatHistoryLimit)
	if err != nil {
		return models.IdeateResponse{}, fmt.Errorf("loading chat history: %w", err)
	}
	turns := make([]models.ChatMessage, 0, len(logs)+1)
	for _, l := range logs {
		turns = append(turns, models.ChatMessage{Role: l.Role, Content: l.Content})
	}
	turns = append(turns, models.ChatMessage{Role: models.RoleUser, Content: message})

	if _, err := p.store.AppendIdeateLog(ctx, models.IdeateLog{UserID: userID, Role: models.RoleUser, Content: message}); err != nil {
		return models.IdeateResponse{}, fmt.Errorf("storing message: %w", err)
	}

	ext, err := p.extractor.ExtractInterests(ctx, turns, canon)
	if err != nil {
		return models.IdeateResponse{}, err
	}

	extracted := make([]string, 0, len(ext.Interests))
	for _, in := range ext.Interests {
		extracted = append(extracted, in.CanonicalValue)
	}
	reply := models.IdeateLog{UserID: userID, Role: models.RoleAssistant, Content: ext.Message, ExtractedInterests: extracted}
	if _, err := p.store.AppendIdeateLog(ctx, reply); err != nil {
		// The reply is still returned; only the stored conversation misses it
		p.log.Error("Storing reply failed", "user_id", userID, "error", err)
	}

	resp := models.IdeateResponse{Message: ext.Message, Interests: []models.IngestOutcome{}}
	if len(ext.Interests) == 0 {
		return resp, nil
	}

	ing, err := p.Ingest(ctx, userID, models.SourceChat, ext.Interests)
	if err != nil {
		return models.IdeateResponse{}, err
	}
	resp.Interests = ing.Interests
	resp.Promotion = ing.Promotion
	return resp, nil
}

// History returns a user's stored ideation conversation, oldest first
func (p *Pipeline) History(ctx context.Context, userID string) ([]models.IdeateLog, error) {
	logs, err := p.store.ListIdeateLogs(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.IdeateLog{}
	}
	return logs, nil
}

// InterestStats counts the other users holding an interest and the activity
// types the matcher relates to it
func (p *Pipeline) InterestStats(ctx context.Context, userID, canonicalValue string) (models.InterestStats, error) {
	cv := strings.ToLower(strings.TrimSpace(canonicalValue))
	if cv == "" {
		return models.InterestStats{}, models.NewValidationError("canonical_value", "is required")
	}

	others, err := p.store.CountUsersWithInterest(ctx, cv, userID)
	if err != nil {
		return models.InterestStats{}, fmt.Errorf("counting users: %w", err)
	}
	types, err := p.store.ListActivityTypes(ctx)
	if err != nil {
		return models.InterestStats{}, fmt.Errorf("loading activity types: %w", err)
	}
	known := make([]models.ActivityRef, len(types))
	for i, at := range types {
		known[i] = at.Ref()
	}

	return models.InterestStats{
		CanonicalValue:       cv,
		OthersCount:          others,
		RelatedActivityTypes: len(p.mapper.Related(cv, known)),
	}, nil
}
