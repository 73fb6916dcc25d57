package matcher

import (
	"testing"

	"github.com/mrwolf/ppl-server/internal/catalog"
	"github.com/mrwolf/ppl-server/internal/models"
)

func knownFromCatalog() []models.ActivityRef {
	c := catalog.Default()
	refs := make([]models.ActivityRef, 0, len(c.ActivityTypes))
	for _, at := range c.ActivityTypes {
		refs = append(refs, models.ActivityRef{Name: at.Name, DisplayName: at.DisplayName})
	}
	return refs
}

func TestResolveStaticTable(t *testing.T) {
	m := New(catalog.Default().Interests)
	known := knownFromCatalog()

	name, by := m.ResolveWithHints("jazz piano", known, nil)
	if name != "jazz_jam" {
		t.Errorf("Resolve(jazz piano) = %q, want jazz_jam", name)
	}
	if by != ByStatic {
		t.Errorf("jazz piano matched by %q, want static", by)
	}
}

func TestResolveNovel(t *testing.T) {
	m := New(catalog.Default().Interests)
	if got := m.Resolve("underwater basket weaving", knownFromCatalog()); got != "" {
		t.Errorf("Resolve(underwater basket weaving) = %q, want novel", got)
	}
}

func TestResolveFuzzy(t *testing.T) {
	m := New(nil)
	known := []models.ActivityRef{
		{Name: "group_hike", DisplayName: "Group Hike"},
		{Name: "book_club", DisplayName: "Book Club"},
	}

	tests := []struct {
		interest string
		want     string
	}{
		{"book", "book_club"},
		{"Sci-fi Book Club Nights", "book_club"},
		{"GROUP HIKE", "group_hike"},
		{"knitting", ""},
	}
	for _, tt := range tests {
		t.Run(tt.interest, func(t *testing.T) {
			got, by := m.ResolveWithHints(tt.interest, known, nil)
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.interest, got, tt.want)
			}
			if tt.want != "" && by != ByFuzzy {
				t.Errorf("Resolve(%q) matched by %q, want fuzzy", tt.interest, by)
			}
		})
	}
}

func TestResolveFuzzyFirstMatchWins(t *testing.T) {
	m := New(nil)
	known := []models.ActivityRef{
		{Name: "jazz_jam"},
		{Name: "jazz"},
	}
	if got := m.Resolve("jazz", known); got != "jazz_jam" {
		t.Errorf("Resolve(jazz) = %q, want first candidate jazz_jam", got)
	}
}

func TestStaticHitRequiresKnownType(t *testing.T) {
	m := New(map[string]string{"jazz piano": "jazz_jam"})
	known := []models.ActivityRef{{Name: "book_club"}}
	if got := m.Resolve("jazz piano", known); got != "" {
		t.Errorf("Resolve() = %q, want novel when jazz_jam is not a known type", got)
	}
}

func TestResolveSemanticFirst(t *testing.T) {
	m := New(catalog.Default().Interests)
	known := knownFromCatalog()

	hints := map[string]string{
		"jazz piano":      "classical_ensemble",
		"late night runs": "running_club",
		"cooking":         "",
		"basketball":      "does_not_exist",
	}

	tests := []struct {
		interest string
		want     string
		by       string
	}{
		{"jazz piano", "classical_ensemble", BySemantic},
		{"late night runs", "running_club", BySemantic},
		{"cooking", "dinner_party", ByStatic},
		{"basketball", "pickup_basketball", ByStatic},
	}
	for _, tt := range tests {
		got, by := m.ResolveWithHints(tt.interest, known, hints)
		if got != tt.want || by != tt.by {
			t.Errorf("ResolveWithHints(%q) = (%q, %q), want (%q, %q)", tt.interest, got, by, tt.want, tt.by)
		}
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	m := New(catalog.Default().Interests)
	known := knownFromCatalog()
	for _, s := range []string{"jazz piano", "Hiking", "underwater basket weaving", "", "  ", "book"} {
		first := m.Resolve(s, known)
		for i := 0; i < 3; i++ {
			if got := m.Resolve(s, known); got != first {
				t.Errorf("Resolve(%q) changed from %q to %q", s, first, got)
			}
		}
	}
}

func TestResolveEmpty(t *testing.T) {
	m := New(nil)
	known := []models.ActivityRef{{Name: "book_club"}}
	if got := m.Resolve("   ", known); got != "" {
		t.Errorf("Resolve(blank) = %q, want empty", got)
	}
}

type exactScorer struct{}

func (exactScorer) Score(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0.5
}

func TestWithScorer(t *testing.T) {
	known := []models.ActivityRef{{Name: "book_club"}}

	strict := New(nil, WithScorer(exactScorer{}, 0.9))
	if got := strict.Resolve("book", known); got != "" {
		t.Errorf("strict scorer matched %q", got)
	}
	if got := strict.Resolve("book club", known); got != "book_club" {
		t.Errorf("strict scorer Resolve(book club) = %q", got)
	}

	loose := New(nil, WithScorer(exactScorer{}, 0.5))
	if got := loose.Resolve("anything", known); got != "book_club" {
		t.Errorf("loose scorer Resolve(anything) = %q", got)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Underwater Basket Weaving", "underwater_basket_weaving"},
		{"  k-pop   dance!! ", "k_pop_dance"},
		{"3D Printing", "3d_printing"},
		{"café", "caf"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := Slugify("a very long interest name that keeps going well past the limit of fifty characters")
	if len(long) > maxSlugLen {
		t.Errorf("Slugify() length %d exceeds %d", len(long), maxSlugLen)
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("underwater  basket weaving"); got != "Underwater Basket Weaving" {
		t.Errorf("DisplayName() = %q", got)
	}
}

func TestRelated(t *testing.T) {
	m := New(nil)
	known := []models.ActivityRef{
		{Name: "jazz_jam", DisplayName: "Jazz Jam"},
		{Name: "writing_workshop", DisplayName: "Writing Circle"},
		{Name: "group_hike", DisplayName: "Group Hike"},
	}

	got := m.Related("jazz", known)
	if len(got) != 1 || got[0] != "jazz_jam" {
		t.Errorf("Related(jazz) = %v, want [jazz_jam]", got)
	}

	// Display names count as well as activity names
	got = m.Related("writing circle", known)
	if len(got) != 1 || got[0] != "writing_workshop" {
		t.Errorf("Related(writing circle) = %v, want [writing_workshop]", got)
	}

	if got := m.Related("knitting", known); len(got) != 0 {
		t.Errorf("Related(knitting) = %v, want none", got)
	}
	if got := m.Related("  ", known); got != nil {
		t.Errorf("Related(blank) = %v, want nil", got)
	}
}
