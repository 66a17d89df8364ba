package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/keyreg/internal/application"
	"github.com/turtacn/keyreg/internal/application/dto"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
	"github.com/turtacn/keyreg/pkg/logger"
	"github.com/turtacn/keyreg/pkg/utils"
)

// KeyHandler 密钥记录 HTTP 处理器
type KeyHandler struct {
	registry application.KeyRegistry
	logger   logger.Logger
}

// NewKeyHandler 创建密钥记录处理器
func NewKeyHandler(registry application.KeyRegistry, log logger.Logger) *KeyHandler {
	return &KeyHandler{registry: registry, logger: log.WithComponent("KeyHandler")}
}

// Register 注册密钥记录
// POST /api/v1/keys
func (h *KeyHandler) Register(c *gin.Context) {
	var req dto.RegisterKeyRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, "register_key", err)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		respondError(c, h.logger, "register_key", err)
		return
	}

	rec, err := h.registry.Register(c.Request.Context(), req.ToModel())
	if err != nil {
		respondError(c, h.logger, "register_key", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewKeyResponse(rec))
}

// List 查询密钥记录（过滤、排序、分页）
// GET /api/v1/keys
func (h *KeyHandler) List(c *gin.Context) {
	q, err := dto.ParseQuery(c.Request.URL.Query(), constants.DefaultPageSize)
	if err != nil {
		respondError(c, h.logger, "list_keys", err)
		return
	}
	view, err := h.registry.Query(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, "list_keys", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewKeyListResponse(view))
}

// Get 获取密钥记录
// GET /api/v1/keys/:id
func (h *KeyHandler) Get(c *gin.Context) {
	rec, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get_key", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewKeyResponse(rec))
}

// Update 修改名称和描述
// PATCH /api/v1/keys/:id
func (h *KeyHandler) Update(c *gin.Context) {
	var req dto.UpdateKeyRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, "update_key", err)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		respondError(c, h.logger, "update_key", err)
		return
	}
	rec, err := h.registry.UpdateMetadata(c.Request.Context(), c.Param("id"), req.ToPatch())
	if err != nil {
		respondError(c, h.logger, "update_key", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewKeyResponse(rec))
}

// Transition 执行单个生命周期操作
// POST /api/v1/keys/:id/:action
func (h *KeyHandler) Transition(c *gin.Context) {
	action := constants.LifecycleAction(c.Param("action"))
	if !action.IsValid() {
		respondError(c, h.logger, "transition_key", errors.ErrValidation("action", "unknown lifecycle action "+string(action)))
		return
	}

	var req dto.TransitionKeyRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			respondError(c, h.logger, "transition_key", err)
			return
		}
	}

	rec, err := h.registry.Transition(c.Request.Context(), c.Param("id"), models.TransitionRequest{
		Action:       action,
		NewExpiresAt: req.NewExpiresAt,
	})
	if err != nil {
		respondError(c, h.logger, "transition_key", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewKeyResponse(rec))
}

// Summary 按状态、算法和用途统计
// GET /api/v1/keys/summary
func (h *KeyHandler) Summary(c *gin.Context) {
	summary, err := h.registry.Summary(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "key_summary", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
