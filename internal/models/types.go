package models

import "time"

// ActivityType is a named category of social activity users gauge interest in
type ActivityType struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DisplayName  string    `json:"display_name"`
	VenueType    string    `json:"venue_type"`
	MinAttendees int       `json:"min_attendees"`
	Description  string    `json:"description,omitempty"`
	ImageRef     string    `json:"image_ref,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ActivityRef is the slice of an ActivityType the interest mapper needs
type ActivityRef struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Ref returns the mapper view of the activity type
func (a ActivityType) Ref() ActivityRef {
	return ActivityRef{Name: a.Name, DisplayName: a.DisplayName}
}

// Interest is a user's claim of interest in a free-text canonical value
type Interest struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Category       string    `json:"category"`
	CanonicalValue string    `json:"canonical_value"`
	RawValue       string    `json:"raw_value"`
	Source         string    `json:"source"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Gauge is one yes/no response per (user, activity type)
type Gauge struct {
	UserID         string    `json:"user_id"`
	ActivityTypeID string    `json:"activity_type_id"`
	Response       string    `json:"response"`
	Timestamp      time.Time `json:"timestamp"`
}

// GaugeCounts is the aggregate of the latest response per user
type GaugeCounts struct {
	Yes int `json:"yes"`
	No  int `json:"no"`
}

// Venue is a physical or virtual place an event can happen at
type Venue struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	VenueType     string   `json:"venue_type"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
	IsPrivateHome bool     `json:"is_private_home"`
}

// Event is one scheduled occurrence of an activity type
type Event struct {
	ID             string     `json:"id"`
	ActivityTypeID string     `json:"activity_type_id"`
	Status         string     `json:"status"`
	VenueID        string     `json:"venue_id,omitempty"`
	ScheduledTime  *time.Time `json:"scheduled_time,omitempty"`
	RSVPDeadline   *time.Time `json:"rsvp_deadline,omitempty"`
	MatchReason    string     `json:"match_reason"`
	HostUserID     string     `json:"host_user_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// RSVP is one attendance response per (user, event)
type RSVP struct {
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// RSVPTally counts responses for a single event
type RSVPTally struct {
	CanGo       int `json:"can_go"`
	Unavailable int `json:"unavailable"`
}

// IdeateLog is one stored turn of a user's ideation conversation
type IdeateLog struct {
	ID                 int64     `json:"id"`
	UserID             string    `json:"user_id"`
	Role               string    `json:"role"`
	Content            string    `json:"content"`
	ExtractedInterests []string  `json:"extracted_interests,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// PromotionRun records one pass of the promotion engine
type PromotionRun struct {
	ID           int64      `json:"id"`
	Trigger      string     `json:"trigger"`
	Status       string     `json:"status"`
	CreatedCount int        `json:"created_count"`
	FailedCount  int        `json:"failed_count"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Event status constants
const (
	StatusGauging     = "gauging"
	StatusPendingRSVP = "pending_rsvp"
	StatusConfirmed   = "confirmed"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
)

// Gauge responses
const (
	GaugeYes = "yes"
	GaugeNo  = "no"
)

// RSVP responses
const (
	RSVPCanGo       = "can_go"
	RSVPUnavailable = "unavailable"
)

// Ideation roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Interest categories
const (
	CategoryHobby    = "hobby"
	CategoryProblem  = "problem"
	CategoryLearning = "learning"
	CategorySkill    = "skill"
)

// Interest sources
const (
	SourceOnboarding = "onboarding"
	SourceChat       = "chat"
	SourceInferred   = "inferred"
)

// PrivateHomeVenueType marks venues that are someone's home
const PrivateHomeVenueType = "private_home"

// ValidGaugeResponse reports whether r is yes or no
func ValidGaugeResponse(r string) bool {
	return r == GaugeYes || r == GaugeNo
}

// ValidRSVPResponse reports whether r is can_go or unavailable
func ValidRSVPResponse(r string) bool {
	return r == RSVPCanGo || r == RSVPUnavailable
}

// ValidCategory reports whether c is a known interest category
func ValidCategory(c string) bool {
	switch c {
	case CategoryHobby, CategoryProblem, CategoryLearning, CategorySkill:
		return true
	}
	return false
}

// ValidSource reports whether s is a known interest source
func ValidSource(s string) bool {
	switch s {
	case SourceOnboarding, SourceChat, SourceInferred:
		return true
	}
	return false
}
