package matcher

import (
	"strings"

	"github.com/mrwolf/ppl-server/internal/models"
)

// How an interest was resolved
const (
	ByNone     = ""
	BySemantic = "semantic"
	ByStatic   = "static"
	ByFuzzy    = "fuzzy"
)

// Scorer rates how well an interest matches an activity-type candidate.
// Candidates are activity names with underscores replaced by spaces
type Scorer interface {
	Score(interest, candidate string) float64
}

// SubstringScorer scores 1 when either string contains the other, 0 otherwise
type SubstringScorer struct{}

func (SubstringScorer) Score(interest, candidate string) float64 {
	a := strings.ToLower(interest)
	b := strings.ToLower(candidate)
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 1
	}
	return 0
}

// Mapper resolves canonical interests to activity type names
type Mapper struct {
	table    map[string]string
	scorer   Scorer
	minScore float64
}

// Option configures a Mapper
type Option func(*Mapper)

// WithScorer replaces the fuzzy fallback scorer
func WithScorer(s Scorer, minScore float64) Option {
	return func(m *Mapper) {
		m.scorer = s
		m.minScore = minScore
	}
}

// New creates a mapper over a static interest table. Keys are normalised to
// lower case; the table is copied so later changes by the caller are ignored
func New(table map[string]string, opts ...Option) *Mapper {
	m := &Mapper{
		table:    make(map[string]string, len(table)),
		scorer:   SubstringScorer{},
		minScore: 1,
	}
	for k, v := range table {
		m.table[normalize(k)] = v
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolve maps an interest to an activity type name using the static table,
// then the fuzzy scorer. It returns "" when the interest is novel
func (m *Mapper) Resolve(interest string, known []models.ActivityRef) string {
	name, _ := m.resolve(interest, known, nil)
	return name
}

// ResolveWithHints consults semantic hints (interest -> activity name, ""
// for no match) before the static table and fuzzy scorer. Hints naming an
// activity type that is not in known are ignored
func (m *Mapper) ResolveWithHints(interest string, known []models.ActivityRef, hints map[string]string) (string, string) {
	return m.resolve(interest, known, hints)
}

func (m *Mapper) resolve(interest string, known []models.ActivityRef, hints map[string]string) (string, string) {
	cv := normalize(interest)
	if cv == "" {
		return "", ByNone
	}

	if hints != nil {
		if name := hints[interest]; name != "" && contains(known, name) {
			return name, BySemantic
		}
	}

	if name, ok := m.table[cv]; ok && contains(known, name) {
		return name, ByStatic
	}

	for _, at := range known {
		readable := strings.ReplaceAll(at.Name, "_", " ")
		if m.scorer.Score(cv, readable) >= m.minScore {
			return at.Name, ByFuzzy
		}
	}

	return "", ByNone
}

// Related lists every known activity type the scorer links to an interest,
// by name or display name
func (m *Mapper) Related(interest string, known []models.ActivityRef) []string {
	cv := normalize(interest)
	if cv == "" {
		return nil
	}
	var names []string
	for _, at := range known {
		readable := strings.ReplaceAll(at.Name, "_", " ")
		if m.scorer.Score(cv, readable) >= m.minScore || m.scorer.Score(cv, at.DisplayName) >= m.minScore {
			names = append(names, at.Name)
		}
	}
	return names
}

func contains(known []models.ActivityRef, name string) bool {
	for _, at := range known {
		if at.Name == name {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
