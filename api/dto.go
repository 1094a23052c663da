/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/discipline-engine/discipline"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// SuspensionDTO represents a suspension in API responses.
type SuspensionDTO struct {
	ID              string  `json:"id"`
	MemberID        string  `json:"member_id"`
	Reason          string  `json:"reason"`
	CardSourceID    *string `json:"card_source_id,omitempty"`
	EventCount      int     `json:"event_count"`
	StartsAt        string  `json:"starts_at"`
	EventsRemaining int     `json:"events_remaining"`
	Status          string  `json:"status"`
	Notes           string  `json:"notes,omitempty"`
	CreatedAt       string  `json:"created_at"`
	ServedAt        *string `json:"served_at,omitempty"`
}

// CreateSuspensionRequest is the request to record a new suspension.
type CreateSuspensionRequest struct {
	MemberID     string  `json:"member_id"`
	Reason       string  `json:"reason"`
	CardSourceID *string `json:"card_source_id,omitempty"`
	EventCount   int     `json:"event_count"`
	StartsAt     string  `json:"starts_at"`
	Notes        string  `json:"notes,omitempty"`
}

// EligibilityDTO reports a member's eligibility as of a cutoff.
type EligibilityDTO struct {
	MemberID        string `json:"member_id"`
	AsOf            string `json:"as_of"`
	Eligible        bool   `json:"eligible"`
	RemainingEvents int    `json:"remaining_events"`

	// Degraded is set when a collaborator was unavailable and the
	// decision fell back to not-eligible.
	Degraded bool `json:"degraded,omitempty"`
}

// CardSummaryDTO carries aggregated card counts.
type CardSummaryDTO struct {
	MemberID            string `json:"member_id"`
	AllMatchYellow      int    `json:"all_match_yellow"`
	AllMatchRed         int    `json:"all_match_red"`
	CurrentSeasonYellow int    `json:"current_season_yellow"`
	CurrentSeasonRed    int    `json:"current_season_red"`
	LifetimeYellow      int    `json:"lifetime_yellow"`
	LifetimeRed         int    `json:"lifetime_red"`
}

// CheckInLockDTO reports a match's attendance-lock state.
type CheckInLockDTO struct {
	MatchID  string  `json:"match_id"`
	StartsAt *string `json:"starts_at,omitempty"`
	LocksAt  *string `json:"locks_at,omitempty"`
	Locked   bool    `json:"locked"`
}

// CleanupResultDTO reports how many orphans a cleanup removed.
type CleanupResultDTO struct {
	Deleted int `json:"deleted"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toSuspensionDTO(s discipline.Suspension) SuspensionDTO {
	dto := SuspensionDTO{
		ID:              string(s.ID),
		MemberID:        string(s.MemberID),
		Reason:          string(s.Reason),
		EventCount:      s.EventCount,
		StartsAt:        s.StartsAt.Format(time.RFC3339),
		EventsRemaining: s.EventsRemaining,
		Status:          string(s.Status),
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
	}
	if s.CardSourceID != nil {
		src := string(*s.CardSourceID)
		dto.CardSourceID = &src
	}
	if s.ServedAt != nil {
		at := s.ServedAt.Format(time.RFC3339)
		dto.ServedAt = &at
	}
	return dto
}

func toSuspensionDTOs(subs []discipline.Suspension) []SuspensionDTO {
	dtos := make([]SuspensionDTO, len(subs))
	for i, s := range subs {
		dtos[i] = toSuspensionDTO(s)
	}
	return dtos
}

func toCheckInLockDTO(lock discipline.CheckInLock) CheckInLockDTO {
	dto := CheckInLockDTO{
		MatchID: string(lock.MatchID),
		Locked:  lock.Locked,
	}
	if lock.StartsAt != nil {
		at := lock.StartsAt.Format(time.RFC3339)
		dto.StartsAt = &at
	}
	if lock.LocksAt != nil {
		at := lock.LocksAt.Format(time.RFC3339)
		dto.LocksAt = &at
	}
	return dto
}
