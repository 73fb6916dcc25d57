package models

import "time"

// InterestInput is an interest as submitted by a client or the extractor
type InterestInput struct {
	Category       string `json:"category"`
	CanonicalValue string `json:"canonical_value"`
	RawValue       string `json:"raw_value"`
}

// AddInterestsRequest is sent to POST /interests
type AddInterestsRequest struct {
	Source    string          `json:"source"`
	Interests []InterestInput `json:"interests"`
}

// ChatMessage is one turn of the ideation conversation
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// IdeateRequest is sent to POST /ideate. Earlier turns are loaded from the
// stored conversation
type IdeateRequest struct {
	Message string `json:"message"`
}

// IdeateResponse is returned from POST /ideate
type IdeateResponse struct {
	Message   string           `json:"message"`
	Interests []IngestOutcome  `json:"interests"`
	Promotion *PromotionResult `json:"promotion,omitempty"`
}

// IngestOutcome reports what happened to one submitted interest
type IngestOutcome struct {
	CanonicalValue string `json:"canonical_value"`
	ActivityType   string `json:"activity_type,omitempty"`
	MatchedBy      string `json:"matched_by,omitempty"` // semantic, static, fuzzy, novel
	Novel          bool   `json:"novel,omitempty"`
	Duplicate      bool   `json:"duplicate,omitempty"`
	Error          string `json:"error,omitempty"`
}

// IngestResponse is returned from POST /interests
type IngestResponse struct {
	Interests []IngestOutcome  `json:"interests"`
	Promotion *PromotionResult `json:"promotion,omitempty"`
}

// PromotionResult summarises one promotion pass
type PromotionResult struct {
	Created int     `json:"created_count"`
	Skipped int     `json:"skipped_count"`
	Failed  int     `json:"failed_count"`
	Events  []Event `json:"events,omitempty"`
}

// GaugeRequest is sent to POST /gauges
type GaugeRequest struct {
	ActivityTypeID string `json:"activity_type_id"`
	Response       string `json:"response"`
}

// ActivityGaugesResponse is returned from GET /activity-types/{id}/gauges
type ActivityGaugesResponse struct {
	ActivityTypeID string `json:"activity_type_id"`
	Yes            int    `json:"yes"`
	No             int    `json:"no"`
	Threshold      int    `json:"threshold"`
}

// GaugeResponse is returned from POST /gauges
type GaugeResponse struct {
	Gauge     Gauge            `json:"gauge"`
	Promotion *PromotionResult `json:"promotion,omitempty"`
}

// RSVPRequest is sent to POST /events/{id}/rsvp
type RSVPRequest struct {
	Response string `json:"response"`
}

// StatusRequest is sent to POST /events/{id}/status
type StatusRequest struct {
	Status string `json:"status"`
}

// EventCard is an upcoming event joined with its type, venue and attendance
type EventCard struct {
	ID              string     `json:"id"`
	ActivityTypeID  string     `json:"activity_type_id"`
	EventName       string     `json:"event_name"`
	Status          string     `json:"status"`
	VenueName       string     `json:"venue_name,omitempty"`
	ScheduledTime   *time.Time `json:"scheduled_time,omitempty"`
	RSVPDeadline    *time.Time `json:"rsvp_deadline,omitempty"`
	AttendeeCount   int        `json:"attendee_count"`
	MatchReason     string     `json:"match_reason"`
	CurrentResponse *string    `json:"current_response"`
}

// AttendanceResponse is returned from GET /events/{id}/attendance
type AttendanceResponse struct {
	EventID       string    `json:"event_id"`
	AttendeeCount int       `json:"attendee_count"`
	Tally         RSVPTally `json:"tally"`
}

// InterestStats is returned from GET /interests/stats
type InterestStats struct {
	CanonicalValue       string `json:"canonical_value"`
	OthersCount          int    `json:"others_count"`
	RelatedActivityTypes int    `json:"related_activity_types"`
}

// StatsResponse is returned from GET /me/stats
type StatsResponse struct {
	EventsAttended  int `json:"events_attended"`
	ActiveInterests int `json:"active_interests"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status   string `json:"status"`
	Ollama   string `json:"ollama"`
	Database string `json:"database"`
	Version  string `json:"version"`
}
