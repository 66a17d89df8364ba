package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/keyreg/internal/application"
	"github.com/turtacn/keyreg/internal/application/dto"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/logger"
	"github.com/turtacn/keyreg/pkg/utils"
)

// AuditHandler 审计日志 HTTP 处理器
type AuditHandler struct {
	audit  application.AuditLog
	logger logger.Logger
}

// NewAuditHandler 创建审计日志处理器
func NewAuditHandler(audit application.AuditLog, log logger.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: log.WithComponent("AuditHandler")}
}

// List 查询审计事件
// GET /api/v1/audit-events
func (h *AuditHandler) List(c *gin.Context) {
	q, err := dto.ParseQuery(c.Request.URL.Query(), constants.DefaultPageSize)
	if err != nil {
		respondError(c, h.logger, "list_audit_events", err)
		return
	}
	view, err := h.audit.Query(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, "list_audit_events", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAuditListResponse(view))
}

// Append 上报审计事件
// POST /api/v1/audit-events
func (h *AuditHandler) Append(c *gin.Context) {
	var req dto.AuditEventRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, "append_audit_event", err)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		respondError(c, h.logger, "append_audit_event", err)
		return
	}

	actor, ip := application.ActorFromContext(c.Request.Context())
	event := req.ToModel(actor)
	if event.IPAddress == "" {
		event.IPAddress = ip
	}
	if err := h.audit.Append(c.Request.Context(), event); err != nil {
		respondError(c, h.logger, "append_audit_event", err)
		return
	}
	c.JSON(http.StatusCreated, event)
}
