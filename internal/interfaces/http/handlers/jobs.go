// internal/interfaces/http/handlers/jobs.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ruralcare/medreserve/internal/pkg/clock"
	"github.com/ruralcare/medreserve/internal/sweeper"
)

// JobsHandler lets admins run background sweeps on demand
type JobsHandler struct {
	sweeper *sweeper.Sweeper
	clock   clock.Clock
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(svc *Services) *JobsHandler {
	return &JobsHandler{sweeper: svc.Sweeper, clock: svc.Clock}
}

// RunJob handles POST /admin/jobs/:job
func (h *JobsHandler) RunJob(c *gin.Context) {
	job, err := sweeper.ParseJob(c.Param("job"))
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := h.sweeper.Run(c.Request.Context(), job, h.clock.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Job completed",
		"data":    report,
	})
}
