package dto

import (
	"time"

	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
)

// RegisterKeyRequest 注册密钥记录请求 DTO（由密钥生成服务提交）
type RegisterKeyRequest struct {
	ID            string                   `json:"id" validate:"required,max=128"`
	Name          string                   `json:"name" validate:"required,max=256"`
	Algorithm     string                   `json:"algorithm" validate:"required,algorithm"`
	Purpose       string                   `json:"purpose" validate:"required,purpose"`
	Status        string                   `json:"status" validate:"required,oneof=pending active"`
	CreatedAt     time.Time                `json:"created_at" validate:"required"`
	ExpiresAt     time.Time                `json:"expires_at" validate:"required,gtfield=CreatedAt"`
	Description   string                   `json:"description" validate:"max=1024"`
	Relationships []models.KeyRelationship `json:"relationships,omitempty"`
}

// ToModel converts the request into an initial key record.
func (r *RegisterKeyRequest) ToModel() *models.KeyRecord {
	return &models.KeyRecord{
		ID:            r.ID,
		Name:          r.Name,
		Algorithm:     constants.Algorithm(r.Algorithm),
		Purpose:       constants.Purpose(r.Purpose),
		Status:        constants.KeyStatus(r.Status),
		CreatedAt:     r.CreatedAt.UTC(),
		ExpiresAt:     r.ExpiresAt.UTC(),
		Description:   r.Description,
		Relationships: r.Relationships,
	}
}

// UpdateKeyRequest 修改密钥元数据请求 DTO
type UpdateKeyRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=256"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1024"`
}

// ToPatch converts the request into a metadata patch.
func (r *UpdateKeyRequest) ToPatch() models.KeyMetadataPatch {
	return models.KeyMetadataPatch{Name: r.Name, Description: r.Description}
}

// TransitionKeyRequest 单个生命周期操作请求 DTO
type TransitionKeyRequest struct {
	NewExpiresAt *time.Time `json:"new_expires_at,omitempty"`
}

// KeyResponse 密钥记录响应 DTO
type KeyResponse struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	Algorithm     constants.Algorithm      `json:"algorithm"`
	Family        constants.AlgorithmFamily `json:"family"`
	Purpose       constants.Purpose        `json:"purpose"`
	Status        constants.KeyStatus      `json:"status"`
	CreatedAt     time.Time                `json:"created_at"`
	ExpiresAt     time.Time                `json:"expires_at"`
	RotatedAt     *time.Time               `json:"rotated_at,omitempty"`
	RevokedAt     *time.Time               `json:"revoked_at,omitempty"`
	ExpiredAt     *time.Time               `json:"expired_at,omitempty"`
	UpdatedAt     time.Time                `json:"updated_at"`
	Description   string                   `json:"description,omitempty"`
	Relationships []models.KeyRelationship `json:"relationships,omitempty"`
}

// NewKeyResponse builds the response for rec.
func NewKeyResponse(rec *models.KeyRecord) *KeyResponse {
	return &KeyResponse{
		ID:            rec.ID,
		Name:          rec.Name,
		Algorithm:     rec.Algorithm,
		Family:        rec.Algorithm.Family(),
		Purpose:       rec.Purpose,
		Status:        rec.Status,
		CreatedAt:     rec.CreatedAt,
		ExpiresAt:     rec.ExpiresAt,
		RotatedAt:     rec.RotatedAt,
		RevokedAt:     rec.RevokedAt,
		ExpiredAt:     rec.ExpiredAt,
		UpdatedAt:     rec.UpdatedAt,
		Description:   rec.Description,
		Relationships: rec.Relationships,
	}
}

// ListResponse 分页列表响应 DTO
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewKeyListResponse converts a view of key records.
func NewKeyListResponse(v models.View[*models.KeyRecord]) *ListResponse[*KeyResponse] {
	items := make([]*KeyResponse, len(v.Items))
	for i, rec := range v.Items {
		items[i] = NewKeyResponse(rec)
	}
	return &ListResponse[*KeyResponse]{Items: items, Total: v.Total, Limit: v.Limit, Offset: v.Offset}
}

// NewAuditListResponse converts a view of audit events.
func NewAuditListResponse(v models.View[*models.AuditEvent]) *ListResponse[*models.AuditEvent] {
	return &ListResponse[*models.AuditEvent]{Items: v.Items, Total: v.Total, Limit: v.Limit, Offset: v.Offset}
}
