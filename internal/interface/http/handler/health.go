package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ipc-assist/internal/interface/http/response"
)

// IndexInspector reports the vector index state for health checks.
type IndexInspector interface {
	Status(ctx context.Context) (ready bool, vectors int, err error)
}

type HealthHandler struct {
	index IndexInspector
}

func NewHealthHandler(index IndexInspector) *HealthHandler {
	return &HealthHandler{index: index}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ready, vectors, err := h.index.Status(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeInternalServer, "index status unavailable")
		return
	}
	response.OK(c, gin.H{
		"status":  "ok",
		"ready":   ready,
		"vectors": vectors,
	})
}
