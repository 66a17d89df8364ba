package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/keyreg/internal/application"
	"github.com/turtacn/keyreg/internal/application/dto"
	"github.com/turtacn/keyreg/pkg/logger"
	"github.com/turtacn/keyreg/pkg/utils"
)

// SelectionHandler 选择集 HTTP 处理器
type SelectionHandler struct {
	selections *application.SelectionRegistry
	registry   application.KeyRegistry
	logger     logger.Logger
}

// NewSelectionHandler 创建选择集处理器
func NewSelectionHandler(selections *application.SelectionRegistry, registry application.KeyRegistry, log logger.Logger) *SelectionHandler {
	return &SelectionHandler{selections: selections, registry: registry, logger: log.WithComponent("SelectionHandler")}
}

// Get 返回当前选择集（已剔除不存在的记录）
// GET /api/v1/selections/:session
func (h *SelectionHandler) Get(c *gin.Context) {
	session := c.Param("session")
	sel, ok := h.selections.Lookup(session)
	if !ok {
		c.JSON(http.StatusOK, dto.NewSelectionResponse(session, nil))
		return
	}
	h.respond(c, "get_selection", session, sel)
}

// Select 添加记录到选择集
// POST /api/v1/selections/:session/select
func (h *SelectionHandler) Select(c *gin.Context) {
	h.modify(c, "select", func(sel *application.Selection, ids []string) { sel.SelectAll(c.Request.Context(), ids) })
}

// Deselect 从选择集移除记录
// POST /api/v1/selections/:session/deselect
func (h *SelectionHandler) Deselect(c *gin.Context) {
	h.modify(c, "deselect", func(sel *application.Selection, ids []string) {
		for _, id := range ids {
			sel.Deselect(id)
		}
	})
}

// SelectAll 选择当前过滤视图中的全部记录
// POST /api/v1/selections/:session/select-all
func (h *SelectionHandler) SelectAll(c *gin.Context) {
	q, err := dto.ParseQuery(c.Request.URL.Query(), 0)
	if err != nil {
		respondError(c, h.logger, "select_all", err)
		return
	}
	view, err := h.registry.Query(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, "select_all", err)
		return
	}
	ids := make([]string, len(view.Items))
	for i, rec := range view.Items {
		ids[i] = rec.ID
	}

	session := c.Param("session")
	sel := h.selections.Session(session)
	sel.SelectAll(c.Request.Context(), ids)
	h.respond(c, "select_all", session, sel)
}

// Clear 清空并释放选择集
// DELETE /api/v1/selections/:session
func (h *SelectionHandler) Clear(c *gin.Context) {
	h.selections.Drop(c.Param("session"))
	c.Status(http.StatusNoContent)
}

func (h *SelectionHandler) modify(c *gin.Context, operation string, apply func(*application.Selection, []string)) {
	var req dto.SelectionRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, operation, err)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		respondError(c, h.logger, operation, err)
		return
	}

	session := c.Param("session")
	sel := h.selections.Session(session)
	apply(sel, req.IDs)
	h.respond(c, operation, session, sel)
}

// respond writes the selection with ids no longer in the store removed.
func (h *SelectionHandler) respond(c *gin.Context, operation, session string, sel *application.Selection) {
	ids, err := sel.Resolve(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, operation, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSelectionResponse(session, ids))
}
