package http

import (
	"net/http"
	"strconv"

	"github.com/vncsmyrnk/univote/internal/core/ports"
)

const defaultAuditLimit = 100

type AuditHandler struct {
	repo ports.AuditRepository
}

func NewAuditHandler(repo ports.AuditRepository) *AuditHandler {
	return &AuditHandler{
		repo: repo,
	}
}

// ListAuditLogs godoc
// @Summary      Lists audit events, newest first
// @Tags         admin
// @Produce      json
// @Param        limit  query    int  false  "Maximum number of events"  default(100)
// @Success      200    {array}  domain.AuditEvent
// @Security     BearerAuth
// @Router       /admin/audit-logs [get]
func (h *AuditHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultAuditLimit
	}

	events, err := h.repo.List(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
