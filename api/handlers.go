/*
handlers.go - HTTP API handlers for the discipline engine

PURPOSE:
  Exposes the eligibility and disciplinary accounting engine via REST.
  Handles HTTP request/response, JSON serialization, and delegates to
  the domain facade.

ENDPOINTS:
  Eligibility:
    GET    /api/members/{id}/eligibility?as_of=   Eligibility decision
    GET    /api/members/{id}/cards?season_cutoff= Card summary

  Suspensions:
    GET    /api/suspensions?member_id=&status=    List suspensions
    POST   /api/suspensions                       Create suspension
    GET    /api/suspensions/{id}                  Get one
    POST   /api/suspensions/{id}/serve            Mark served
    POST   /api/suspensions/{id}/reduce           Reduce by one
    DELETE /api/suspensions/{id}                  Delete

  Reconciliation:
    GET    /api/suspensions/orphans               List orphans
    POST   /api/suspensions/orphans/cleanup       Delete orphans

  Matches:
    GET    /api/matches/{id}/checkin-lock?now=    Attendance-lock state
    DELETE /api/matches/{matchID}/cards/{cardID}  Retract card (cascade)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown suspension/match/card
  - 503: Collaborator unavailable (retryable)
  - 500: Internal errors
  Eligibility is the exception: a collaborator failure degrades to a
  200 with eligible=false and degraded=true, never a silent allow.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/discipline-engine/discipline"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *discipline.Engine

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewHandler creates a new handler over the engine.
func NewHandler(engine *discipline.Engine) *Handler {
	return &Handler{Engine: engine, now: time.Now}
}

// =============================================================================
// ELIGIBILITY HANDLERS
// =============================================================================

// GetEligibility decides whether a member may participate as of the
// given cutoff (query param as_of, RFC3339; defaults to now).
func (h *Handler) GetEligibility(w http.ResponseWriter, r *http.Request) {
	memberID := discipline.MemberID(chi.URLParam(r, "id"))

	asOf, ok := h.timeParam(w, r, "as_of", h.now())
	if !ok {
		return
	}

	remaining, err := h.Engine.RemainingEvents(r.Context(), memberID, asOf)
	if err != nil {
		if discipline.IsRetryable(err) {
			// Fail closed: report not eligible rather than erroring.
			writeJSON(w, http.StatusOK, EligibilityDTO{
				MemberID: string(memberID),
				AsOf:     asOf.Format(time.RFC3339),
				Eligible: false,
				Degraded: true,
			})
			return
		}
		writeDomainError(w, "Failed to compute eligibility", err)
		return
	}

	writeJSON(w, http.StatusOK, EligibilityDTO{
		MemberID:        string(memberID),
		AsOf:            asOf.Format(time.RFC3339),
		Eligible:        remaining == 0,
		RemainingEvents: remaining,
	})
}

// GetCardSummary returns season and lifetime card counts.
func (h *Handler) GetCardSummary(w http.ResponseWriter, r *http.Request) {
	memberID := discipline.MemberID(chi.URLParam(r, "id"))

	cutoff, ok := h.timeParam(w, r, "season_cutoff", time.Time{})
	if !ok {
		return
	}

	summary, err := h.Engine.CardSummary(r.Context(), memberID, cutoff)
	if err != nil {
		writeDomainError(w, "Failed to aggregate cards", err)
		return
	}

	writeJSON(w, http.StatusOK, CardSummaryDTO{
		MemberID:            string(summary.MemberID),
		AllMatchYellow:      summary.AllMatchYellow,
		AllMatchRed:         summary.AllMatchRed,
		CurrentSeasonYellow: summary.CurrentSeasonYellow,
		CurrentSeasonRed:    summary.CurrentSeasonRed,
		LifetimeYellow:      summary.LifetimeYellow,
		LifetimeRed:         summary.LifetimeRed,
	})
}

// =============================================================================
// SUSPENSION HANDLERS
// =============================================================================

// ListSuspensions returns suspensions filtered by member_id and status.
func (h *Handler) ListSuspensions(w http.ResponseWriter, r *http.Request) {
	var filter discipline.SuspensionFilter
	if v := r.URL.Query().Get("member_id"); v != "" {
		id := discipline.MemberID(v)
		filter.MemberID = &id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := discipline.SuspensionStatus(v)
		if status != discipline.SuspensionActive && status != discipline.SuspensionServed {
			writeError(w, http.StatusBadRequest, "Invalid status filter", nil)
			return
		}
		filter.Status = &status
	}

	subs, err := h.Engine.ListSuspensions(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "Failed to list suspensions", err)
		return
	}
	writeJSON(w, http.StatusOK, toSuspensionDTOs(subs))
}

// CreateSuspension records a new suspension.
func (h *Handler) CreateSuspension(w http.ResponseWriter, r *http.Request) {
	var req CreateSuspensionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid starts_at timestamp", err)
		return
	}

	in := discipline.CreateSuspension{
		MemberID:   discipline.MemberID(req.MemberID),
		Reason:     discipline.SuspensionReason(req.Reason),
		EventCount: req.EventCount,
		StartsAt:   startsAt,
		Notes:      req.Notes,
	}
	if req.CardSourceID != nil {
		src := discipline.MatchID(*req.CardSourceID)
		in.CardSourceID = &src
	}

	sus, err := h.Engine.CreateSuspension(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to create suspension", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSuspensionDTO(sus))
}

// GetSuspension returns one suspension by id.
func (h *Handler) GetSuspension(w http.ResponseWriter, r *http.Request) {
	id := discipline.SuspensionID(chi.URLParam(r, "id"))
	sus, err := h.Engine.GetSuspension(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get suspension", err)
		return
	}
	writeJSON(w, http.StatusOK, toSuspensionDTO(sus))
}

// MarkServed forces a suspension to served. Idempotent.
func (h *Handler) MarkServed(w http.ResponseWriter, r *http.Request) {
	id := discipline.SuspensionID(chi.URLParam(r, "id"))
	sus, err := h.Engine.MarkServed(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to mark suspension served", err)
		return
	}
	writeJSON(w, http.StatusOK, toSuspensionDTO(sus))
}

// ReduceByOne decrements a suspension's remaining obligation.
func (h *Handler) ReduceByOne(w http.ResponseWriter, r *http.Request) {
	id := discipline.SuspensionID(chi.URLParam(r, "id"))
	sus, err := h.Engine.ReduceByOne(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to reduce suspension", err)
		return
	}
	writeJSON(w, http.StatusOK, toSuspensionDTO(sus))
}

// DeleteSuspension hard-removes a suspension.
func (h *Handler) DeleteSuspension(w http.ResponseWriter, r *http.Request) {
	id := discipline.SuspensionID(chi.URLParam(r, "id"))
	if err := h.Engine.DeleteSuspension(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete suspension", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

// ListOrphans returns active suspensions whose source card is gone.
func (h *Handler) ListOrphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.Engine.FindOrphans(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to find orphans", err)
		return
	}
	writeJSON(w, http.StatusOK, toSuspensionDTOs(orphans))
}

// CleanupOrphans deletes all orphans atomically.
func (h *Handler) CleanupOrphans(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Engine.CleanupOrphans(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to clean up orphans", err)
		return
	}
	writeJSON(w, http.StatusOK, CleanupResultDTO{Deleted: deleted})
}

// =============================================================================
// MATCH HANDLERS
// =============================================================================

// GetCheckInLock returns a match's attendance-lock state at now
// (query param now, RFC3339; defaults to wall clock).
func (h *Handler) GetCheckInLock(w http.ResponseWriter, r *http.Request) {
	matchID := discipline.MatchID(chi.URLParam(r, "id"))

	now, ok := h.timeParam(w, r, "now", h.now())
	if !ok {
		return
	}

	lock, err := h.Engine.MatchCheckInLock(r.Context(), matchID, now)
	if err != nil {
		writeDomainError(w, "Failed to compute check-in lock", err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckInLockDTO(lock))
}

// RetractCard deletes a match card and its dependent suspensions.
func (h *Handler) RetractCard(w http.ResponseWriter, r *http.Request) {
	matchID := discipline.MatchID(chi.URLParam(r, "matchID"))
	cardID := discipline.CardID(chi.URLParam(r, "cardID"))

	if err := h.Engine.RetractCard(r.Context(), matchID, cardID); err != nil {
		writeDomainError(w, "Failed to retract card", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

// timeParam parses an RFC3339 query parameter, falling back to def when
// absent. Writes a 400 and returns false on a malformed value.
func (h *Handler) timeParam(w http.ResponseWriter, r *http.Request, name string, def time.Time) (time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s timestamp", name), err)
		return time.Time{}, false
	}
	return t, true
}

func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case discipline.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case discipline.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case discipline.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
