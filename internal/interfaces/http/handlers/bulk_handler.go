package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/keyreg/internal/application"
	"github.com/turtacn/keyreg/internal/application/dto"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
	"github.com/turtacn/keyreg/pkg/logger"
	"github.com/turtacn/keyreg/pkg/utils"
)

// BulkHandler 批量操作 HTTP 处理器
type BulkHandler struct {
	bulk       application.BulkActions
	selections *application.SelectionRegistry
	logger     logger.Logger
}

// NewBulkHandler 创建批量操作处理器
func NewBulkHandler(bulk application.BulkActions, selections *application.SelectionRegistry, log logger.Logger) *BulkHandler {
	return &BulkHandler{bulk: bulk, selections: selections, logger: log.WithComponent("BulkHandler")}
}

// Request 请求批量操作并返回确认信息
// POST /api/v1/bulk
//
// Without ids the targets are the resolved selection of the X-Session-ID session.
func (h *BulkHandler) Request(c *gin.Context) {
	var req dto.BulkActionRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, "bulk_request", err)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		respondError(c, h.logger, "bulk_request", err)
		return
	}

	ids := req.IDs
	if len(ids) == 0 {
		session := c.GetHeader(constants.HeaderSession)
		if session == "" {
			respondError(c, h.logger, "bulk_request", errors.ErrValidation("ids", "required when no session selection is given"))
			return
		}
		if sel, ok := h.selections.Lookup(session); ok {
			resolved, err := sel.Resolve(c.Request.Context())
			if err != nil {
				respondError(c, h.logger, "bulk_request", err)
				return
			}
			ids = resolved
		}
	}

	confirmation, err := h.bulk.RequestBulkAction(c.Request.Context(), constants.LifecycleAction(req.Action), ids)
	if err != nil {
		respondError(c, h.logger, "bulk_request", err)
		return
	}
	c.JSON(http.StatusAccepted, dto.NewConfirmationResponse(confirmation))
}

// Confirm 确认批量操作并返回每个目标的结果
// POST /api/v1/bulk/:token/confirm
//
// When X-Session-ID is set, every target the run reached is removed from that selection.
// Targets skipped by an interrupted run stay selected.
func (h *BulkHandler) Confirm(c *gin.Context) {
	report, err := h.bulk.Confirm(c.Request.Context(), c.Param("token"))
	if report == nil {
		respondError(c, h.logger, "bulk_confirm", err)
		return
	}

	if sel, ok := h.selections.Lookup(c.GetHeader(constants.HeaderSession)); ok {
		for _, o := range report.Outcomes {
			if o.Kind != constants.BulkOutcomeSkipped {
				sel.Deselect(o.ID)
			}
		}
	}

	if err != nil {
		status, body := errors.ToGenericErrorResponse(err)
		h.logger.Warn(c.Request.Context(), "Bulk action interrupted",
			logger.String("token", report.Token),
			logger.Int("skipped", report.Skipped),
		)
		c.JSON(status, gin.H{"error": body, "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}
