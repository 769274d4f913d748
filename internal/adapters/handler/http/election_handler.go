package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

type ElectionHandler struct {
	service     ports.ElectionService
	eligibility ports.EligibilityLedger
	audit       ports.AuditSink
	clock       ports.Clock
}

func NewElectionHandler(service ports.ElectionService, eligibility ports.EligibilityLedger, audit ports.AuditSink, clock ports.Clock) *ElectionHandler {
	return &ElectionHandler{
		service:     service,
		eligibility: eligibility,
		audit:       audit,
		clock:       clock,
	}
}

type electionView struct {
	*domain.Election
	Status domain.ElectionStatus `json:"status"`
}

// studentElectionView hides the author of the election.
type studentElectionView struct {
	*domain.Election
	CreatedBy      string   `json:"created_by,omitempty"`
	HasVoted       bool     `json:"has_voted"`
	VotedPositions []string `json:"voted_positions"`
}

// ListElections godoc
// @Summary      Lists elections
// @Description  Students get their own voting status per election and no created_by.
// @Tags         elections
// @Produce      json
// @Success      200  {array}   studentElectionView
// @Failure      401  {object}  errorResponse
// @Security     BearerAuth
// @Router       /elections [get]
func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if callerRole(r) != domain.RoleStudent {
		writeJSON(w, http.StatusOK, elections)
		return
	}

	voted, err := h.eligibility.VotedElections(r.Context(), callerID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	views := make([]studentElectionView, 0, len(elections))
	for _, election := range elections {
		positions, hasVoted := voted[election.ID]
		if positions == nil {
			positions = []string{}
		}
		views = append(views, studentElectionView{
			Election:       election,
			HasVoted:       hasVoted,
			VotedPositions: positions,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// GetElection godoc
// @Summary      Gets an election
// @Description  Accepts both the prefixed id and the bare uuid.
// @Tags         elections
// @Produce      json
// @Param        id   path      string  true  "Election ID"
// @Success      200  {object}  electionView
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /elections/{id} [get]
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	election, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, electionView{
		Election: election,
		Status:   election.StatusAt(h.clock.Now()),
	})
}

// CreateElection godoc
// @Summary      Creates an election
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        election  body      ports.ElectionInput  true  "Election definition"
// @Success      201       {object}  domain.Election
// @Failure      400       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Security     BearerAuth
// @Router       /elections [post]
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var input ports.ElectionInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	election, err := h.service.Create(r.Context(), input, callerID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.record(r, domain.AuditCreateElection, "Created election: "+election.ID)
	writeJSON(w, http.StatusCreated, election)
}

// UpdateElection godoc
// @Summary      Replaces an election definition
// @Description  Once ballots exist, positions and candidates may be added or edited but not removed or re-identified.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id        path      string               true  "Election ID"
// @Param        election  body      ports.ElectionInput  true  "Election definition"
// @Success      200       {object}  domain.Election
// @Failure      400       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Security     BearerAuth
// @Router       /elections/{id} [put]
func (h *ElectionHandler) UpdateElection(w http.ResponseWriter, r *http.Request) {
	var input ports.ElectionInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	election, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.record(r, domain.AuditUpdateElection, "Updated election: "+election.ID)
	writeJSON(w, http.StatusOK, election)
}

// DeleteElection godoc
// @Summary      Deletes an election
// @Description  Ballots already cast stay in the ledger.
// @Tags         admin
// @Param        id   path  string  true  "Election ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /elections/{id} [delete]
func (h *ElectionHandler) DeleteElection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.record(r, domain.AuditDeleteElection, "Deleted election: "+id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ElectionHandler) record(r *http.Request, action domain.AuditAction, detail string) {
	recordAudit(r.Context(), h.audit, h.clock, r, action, detail)
}

func recordAudit(ctx context.Context, sink ports.AuditSink, clock ports.Clock, r *http.Request, action domain.AuditAction, detail string) {
	if sink == nil {
		return
	}
	sink.Record(ctx, domain.AuditEvent{
		Timestamp: clock.Now(),
		VoterID:   callerID(r),
		Action:    action,
		Detail:    detail,
		Origin:    clientIP(r),
	})
}
