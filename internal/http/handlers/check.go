package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verdantiq/labelproof-backend/internal/http/response"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
	"github.com/verdantiq/labelproof-backend/internal/services"
)

type CheckHandler struct {
	log          *logger.Logger
	checks       services.CheckService
	orchestrator services.CheckOrchestrator
}

func NewCheckHandler(log *logger.Logger, checks services.CheckService, orchestrator services.CheckOrchestrator) *CheckHandler {
	return &CheckHandler{
		log:          log.With("handler", "CheckHandler"),
		checks:       checks,
		orchestrator: orchestrator,
	}
}

func (h *CheckHandler) CreateCheck(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	var input services.CreateCheckInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	check, err := h.checks.CreateCheck(c.Request.Context(), ownerID, input)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, check)
}

func (h *CheckHandler) ListChecks(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	checks, err := h.checks.ListChecks(c.Request.Context(), ownerID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"checks": checks})
}

func (h *CheckHandler) GetCheck(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	checkID, ok := pathID(c, "id")
	if !ok {
		return
	}
	check, err := h.checks.GetCheck(c.Request.Context(), ownerID, checkID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, check)
}

func (h *CheckHandler) DeleteCheck(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	checkID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.checks.DeleteCheck(c.Request.Context(), ownerID, checkID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

// RunAnalysis drives the full pipeline synchronously. On failure the check
// row is already gone by the time the error reaches the client; the caller
// is expected to start over with a fresh check.
func (h *CheckHandler) RunAnalysis(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	checkID, ok := pathID(c, "id")
	if !ok {
		return
	}
	check, err := h.orchestrator.RunAnalysis(c.Request.Context(), ownerID, checkID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, check)
}
