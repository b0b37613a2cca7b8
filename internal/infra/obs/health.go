package obs

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandlers serves /livez and /readyz. Ready is optional; in memory
// mode there is nothing external to probe and readiness equals liveness.
type HealthHandlers struct {
	Ready func() error
}

// Livez always answers 200 while the process is serving.
func (h HealthHandlers) Livez(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Readyz runs the readiness probe and reports 503 with the failure until
// the backing stores answer again.
func (h HealthHandlers) Readyz(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
	}
	c.Status(http.StatusOK)
}
