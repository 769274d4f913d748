package http

import (
	"net/http"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

type VoterHandler struct {
	service ports.VoterService
	audit   ports.AuditSink
	clock   ports.Clock
}

func NewVoterHandler(service ports.VoterService, audit ports.AuditSink, clock ports.Clock) *VoterHandler {
	return &VoterHandler{
		service: service,
		audit:   audit,
		clock:   clock,
	}
}

// GetMe godoc
// @Summary      Returns the authenticated voter
// @Description  Includes the positions voted in each election.
// @Tags         voters
// @Produce      json
// @Success      200  {object}  domain.Voter
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /me [get]
func (h *VoterHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	voter, err := h.service.Get(r.Context(), callerID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voter)
}

// ListVoters godoc
// @Summary      Lists registered voters
// @Tags         admin
// @Produce      json
// @Success      200  {array}  domain.Voter
// @Security     BearerAuth
// @Router       /admin/users [get]
func (h *VoterHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
	voters, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voters)
}

// CreateVoter godoc
// @Summary      Registers a voter
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        voter  body      ports.RegisterVoterInput  true  "Voter"
// @Success      201    {object}  domain.Voter
// @Failure      400    {object}  errorResponse
// @Failure      409    {object}  errorResponse
// @Security     BearerAuth
// @Router       /admin/users [post]
func (h *VoterHandler) CreateVoter(w http.ResponseWriter, r *http.Request) {
	var input ports.RegisterVoterInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	voter, err := h.service.Register(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	recordAudit(r.Context(), h.audit, h.clock, r, domain.AuditCreateVoter, "Created user: "+voter.ID)
	writeJSON(w, http.StatusCreated, voter)
}
