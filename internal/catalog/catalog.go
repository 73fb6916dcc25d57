package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ActivitySeed is a seed activity type
type ActivitySeed struct {
	Name         string `yaml:"name"`
	DisplayName  string `yaml:"display_name"`
	VenueType    string `yaml:"venue_type"`
	MinAttendees int    `yaml:"min_attendees"`
	Description  string `yaml:"description,omitempty"`
}

// VenueSuggestion is the one canonical venue suggested for a venue type
type VenueSuggestion struct {
	Name    string  `yaml:"name"`
	Address string  `yaml:"address"`
	Desc    string  `yaml:"desc,omitempty"`
	Lat     float64 `yaml:"lat"`
	Lng     float64 `yaml:"lng"`
}

// Catalog bundles the static data the matcher, venue resolver and seeder use
type Catalog struct {
	ActivityTypes []ActivitySeed             `yaml:"activity_types"`
	Venues        map[string]VenueSuggestion `yaml:"venues"`
	Interests     map[string]string          `yaml:"interests"`
}

// Default returns a fresh copy of the built-in catalog
func Default() *Catalog {
	c := &Catalog{
		ActivityTypes: make([]ActivitySeed, len(defaultActivityTypes)),
		Venues:        make(map[string]VenueSuggestion, len(defaultVenues)),
		Interests:     make(map[string]string, len(defaultInterests)),
	}
	copy(c.ActivityTypes, defaultActivityTypes)
	for k, v := range defaultVenues {
		c.Venues[k] = v
	}
	for k, v := range defaultInterests {
		c.Interests[k] = v
	}
	return c
}

// Load returns the default catalog with the YAML file at path merged over it.
// An empty path returns the default catalog
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var override Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := override.validate(); err != nil {
		return nil, fmt.Errorf("validating catalog %s: %w", path, err)
	}

	c.merge(&override)
	return c, nil
}

func (c *Catalog) validate() error {
	for i, at := range c.ActivityTypes {
		if at.Name == "" {
			return fmt.Errorf("activity_types[%d]: name is required", i)
		}
		if at.MinAttendees < 0 {
			return fmt.Errorf("activity_types[%d]: min_attendees must not be negative", i)
		}
	}
	for vt, v := range c.Venues {
		if v.Name == "" {
			return fmt.Errorf("venues[%s]: name is required", vt)
		}
	}
	return nil
}

func (c *Catalog) merge(o *Catalog) {
	idx := make(map[string]int, len(c.ActivityTypes))
	for i, at := range c.ActivityTypes {
		idx[at.Name] = i
	}
	for _, at := range o.ActivityTypes {
		if i, ok := idx[at.Name]; ok {
			c.ActivityTypes[i] = at
			continue
		}
		idx[at.Name] = len(c.ActivityTypes)
		c.ActivityTypes = append(c.ActivityTypes, at)
	}
	for k, v := range o.Venues {
		c.Venues[k] = v
	}
	for k, v := range o.Interests {
		c.Interests[strings.ToLower(strings.TrimSpace(k))] = v
	}
}

// Venue returns the suggested venue for a venue type
func (c *Catalog) Venue(venueType string) (VenueSuggestion, bool) {
	v, ok := c.Venues[venueType]
	return v, ok
}
