// README: Assignment handlers: staff-triggered single assign and batch run.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetbook/internal/modules/assignment"
	"fleetbook/internal/types"
)

type AssignmentHandler struct {
	assigner *assignment.Service
}

func NewAssignmentHandler(svc *assignment.Service) *AssignmentHandler {
	return &AssignmentHandler{assigner: svc}
}

// Assign runs the same matcher/lifecycle path the scheduled batch uses,
// synchronously for one booking.
func (h *AssignmentHandler) Assign(c *gin.Context) {
	result, err := h.assigner.AutoAssign(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"result": result})
}

func (h *AssignmentHandler) RunBatch(c *gin.Context) {
	stats, err := h.assigner.RunBatch(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"succeeded": stats.Succeeded,
		"failed":    stats.Failed,
	})
}
