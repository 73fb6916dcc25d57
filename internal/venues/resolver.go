package venues

import (
	"context"
	"fmt"

	"github.com/mrwolf/ppl-server/internal/catalog"
	"github.com/mrwolf/ppl-server/internal/models"
)

// Store is the persistence the resolver needs
type Store interface {
	FindOrCreateVenue(ctx context.Context, v models.Venue) (string, error)
}

// Resolver maps venue types to deduplicated venue rows
type Resolver struct {
	store   Store
	catalog *catalog.Catalog
}

func NewResolver(store Store, c *catalog.Catalog) *Resolver {
	if c == nil {
		c = catalog.Default()
	}
	return &Resolver{store: store, catalog: c}
}

// FindOrCreate returns the id of the venue matching candidate's (name,
// venue_type), creating it if needed
func (r *Resolver) FindOrCreate(ctx context.Context, candidate models.Venue) (string, error) {
	if candidate.VenueType == models.PrivateHomeVenueType {
		candidate.IsPrivateHome = true
	}
	id, err := r.store.FindOrCreateVenue(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("resolving venue %q: %w", candidate.Name, err)
	}
	return id, nil
}

// ForVenueType resolves the catalog's suggested venue for venueType. It
// returns ok=false, with no error, when the catalog has no suggestion
func (r *Resolver) ForVenueType(ctx context.Context, venueType string) (string, bool, error) {
	s, ok := r.catalog.Venue(venueType)
	if !ok {
		return "", false, nil
	}

	lat, lng := s.Lat, s.Lng
	id, err := r.FindOrCreate(ctx, models.Venue{
		Name:      s.Name,
		Address:   s.Address,
		VenueType: venueType,
		Lat:       &lat,
		Lng:       &lng,
	})
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}
