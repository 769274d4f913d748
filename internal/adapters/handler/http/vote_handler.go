package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
	clock   ports.Clock
}

func NewVoteHandler(service ports.VoteService, clock ports.Clock) *VoteHandler {
	return &VoteHandler{
		service: service,
		clock:   clock,
	}
}

type voteRequest struct {
	Votes map[string]string `json:"votes"`
}

type voteResponse struct {
	Message string `json:"message"`
	domain.VoteReceipt
	HasVoted bool `json:"has_voted"`
}

// SubmitVote godoc
// @Summary      Casts the caller's ballot
// @Description  `votes` maps position id to candidate id. One ballot per voter and election.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Param        id    path      string       true  "Election ID"
// @Param        vote  body      voteRequest  true  "Ballot"
// @Success      201   {object}  voteResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Security     BearerAuth
// @Router       /elections/{id}/vote [post]
func (h *VoteHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.service.SubmitVote(r.Context(), ports.SubmitVoteInput{
		ElectionID:  chi.URLParam(r, "id"),
		VoterID:     callerID(r),
		Selections:  req.Votes,
		SubmittedAt: h.clock.Now(),
		Origin:      clientIP(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, voteResponse{
		Message:     "Vote submitted successfully",
		VoteReceipt: *receipt,
		HasVoted:    true,
	})
}

// VoteStatus godoc
// @Summary      Reports whether the caller has voted
// @Tags         votes
// @Produce      json
// @Param        id   path      string  true  "Election ID"
// @Success      200  {object}  domain.VoteStatus
// @Security     BearerAuth
// @Router       /elections/{id}/vote-status [get]
func (h *VoteHandler) VoteStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.VoteStatus(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
