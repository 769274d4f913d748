package http

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

type ResultsHandler struct {
	tallies   ports.TallyService
	elections ports.ElectionService
	audit     ports.AuditSink
	clock     ports.Clock
}

func NewResultsHandler(tallies ports.TallyService, elections ports.ElectionService, audit ports.AuditSink, clock ports.Clock) *ResultsHandler {
	return &ResultsHandler{
		tallies:   tallies,
		elections: elections,
		audit:     audit,
		clock:     clock,
	}
}

type recomputeResponse struct {
	ElectionID string `json:"election_id"`
	TotalVotes int    `json:"total_votes"`
}

type recomputeAllResponse struct {
	Results []domain.RecomputeOutcome `json:"results"`
	Failed  int                       `json:"failed"`
}

// GetResults godoc
// @Summary      Gets election results
// @Description  Students only see results once the election has ended.
// @Tags         results
// @Produce      json
// @Param        id   path      string  true  "Election ID"
// @Success      200  {object}  domain.TallyResult
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /elections/{id}/results [get]
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	election, err := h.elections.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if callerRole(r) != domain.RoleAdmin && !election.HasEnded(h.clock.Now()) {
		writeServiceError(w, r, domain.ErrResultsNotReady)
		return
	}

	result, err := h.tallies.Results(r.Context(), election.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetLiveResults godoc
// @Summary      Computes results straight from the ballot ledger
// @Tags         admin
// @Produce      json
// @Param        id   path      string  true  "Election ID"
// @Success      200  {object}  domain.TallyResult
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /admin/elections/{id}/results [get]
func (h *ResultsHandler) GetLiveResults(w http.ResponseWriter, r *http.Request) {
	result, err := h.tallies.ComputeTally(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Recompute godoc
// @Summary      Rebuilds and stores the results of one election
// @Tags         admin
// @Produce      json
// @Param        id   path      string  true  "Election ID"
// @Success      200  {object}  recomputeResponse
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /admin/elections/{id}/recompute-stats [post]
func (h *ResultsHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	result, err := h.tallies.Recompute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	recordAudit(r.Context(), h.audit, h.clock, r, domain.AuditRecomputeStats, "Recomputed stats for election: "+result.ElectionID)
	writeJSON(w, http.StatusOK, recomputeResponse{
		ElectionID: result.ElectionID,
		TotalVotes: result.TotalVotes,
	})
}

// RecomputeAll godoc
// @Summary      Rebuilds and stores the results of every election
// @Description  A failing election is reported in its entry and does not stop the others.
// @Tags         admin
// @Produce      json
// @Success      200  {object}  recomputeAllResponse
// @Security     BearerAuth
// @Router       /admin/elections/recompute-all-stats [post]
func (h *ResultsHandler) RecomputeAll(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.tallies.RecomputeAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}

	recordAudit(r.Context(), h.audit, h.clock, r, domain.AuditRecomputeAllStats,
		fmt.Sprintf("Recomputed stats for %d elections, %d failed", len(outcomes), failed))
	writeJSON(w, http.StatusOK, recomputeAllResponse{
		Results: outcomes,
		Failed:  failed,
	})
}

// ExportResults godoc
// @Summary      Downloads election results as CSV
// @Tags         admin
// @Produce      text/csv
// @Param        id   path      string  true  "Election ID"
// @Success      200  {string}  string
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /admin/elections/{id}/export [get]
func (h *ResultsHandler) ExportResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var buf bytes.Buffer
	if err := h.tallies.ExportCSV(r.Context(), id, &buf); err != nil {
		writeServiceError(w, r, err)
		return
	}

	recordAudit(r.Context(), h.audit, h.clock, r, domain.AuditExportResults, "Exported results for election: "+id)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="results_%s.csv"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
