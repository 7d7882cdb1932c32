package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/verdantiq/labelproof-backend/internal/http/response"
	"github.com/verdantiq/labelproof-backend/internal/pkg/ctxutil"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
	"github.com/verdantiq/labelproof-backend/internal/services"
)

type RuleSetHandler struct {
	log      *logger.Logger
	rules    services.RuleService
	importer services.RuleImporter
}

func NewRuleSetHandler(log *logger.Logger, rules services.RuleService, importer services.RuleImporter) *RuleSetHandler {
	return &RuleSetHandler{
		log:      log.With("handler", "RuleSetHandler"),
		rules:    rules,
		importer: importer,
	}
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *RuleSetHandler) CreateRuleSet(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	var input services.CreateRuleSetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rs, err := h.rules.CreateRuleSet(c.Request.Context(), ownerID, input)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, rs)
}

func (h *RuleSetHandler) ListRuleSets(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	sets, err := h.rules.ListRuleSets(c.Request.Context(), ownerID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rule_sets": sets})
}

func (h *RuleSetHandler) GetRuleSet(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	ruleSetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	rs, err := h.rules.GetRuleSet(c.Request.Context(), ownerID, ruleSetID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, rs)
}

func (h *RuleSetHandler) DeleteRuleSet(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	ruleSetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.rules.DeleteRuleSet(c.Request.Context(), ownerID, ruleSetID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

func (h *RuleSetHandler) CreateRule(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	ruleSetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.CreateRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rule, err := h.rules.CreateRule(c.Request.Context(), ownerID, ruleSetID, input)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, rule)
}

func (h *RuleSetHandler) UpdateRule(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	ruleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.UpdateRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rule, err := h.rules.UpdateRule(c.Request.Context(), ownerID, ruleID, input)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, rule)
}

func (h *RuleSetHandler) DeleteRule(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	ruleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.rules.DeleteRule(c.Request.Context(), ownerID, ruleID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

// GenerateRules runs the importer against the external extraction service.
// This call can block for minutes; the route group it is mounted under runs
// without a handler-side timeout for that reason.
func (h *RuleSetHandler) GenerateRules(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	ruleSetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	summary, err := h.importer.ImportRules(c.Request.Context(), ownerID, ruleSetID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, summary)
}
