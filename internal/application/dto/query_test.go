package dto

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
	"github.com/turtacn/keyreg/pkg/utils"
)

func TestParseQuery(t *testing.T) {
	values, err := url.ParseQuery("status=active&algorithm=all&search=prod&sort=createdAt&order=desc&limit=10&offset=20")
	require.NoError(t, err)

	q, err := ParseQuery(values, constants.DefaultPageSize)
	require.NoError(t, err)
	assert.Equal(t, models.FilterSpec{"status": "active", "algorithm": "all", "search": "prod"}, q.Filter)
	assert.Equal(t, models.SortSpec{Key: "createdAt", Direction: constants.SortDescending}, q.Sort)
	assert.Equal(t, models.Page{Limit: 10, Offset: 20}, q.Page)
}

func TestParseQuery_Defaults(t *testing.T) {
	q, err := ParseQuery(url.Values{}, constants.DefaultPageSize)
	require.NoError(t, err)
	assert.Empty(t, q.Filter)
	assert.Equal(t, constants.DefaultPageSize, q.Page.Limit)
	assert.Zero(t, q.Page.Offset)
}

func TestParseQuery_Malformed(t *testing.T) {
	for _, raw := range []string{"limit=ten", "offset=x", "status=active&status=revoked"} {
		values, err := url.ParseQuery(raw)
		require.NoError(t, err)
		_, err = ParseQuery(values, 0)
		assert.True(t, errors.IsValidation(err), raw)
	}
}

func TestRegisterKeyRequest_Validation(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	valid := RegisterKeyRequest{
		ID:        "k1",
		Name:      "payments",
		Algorithm: string(constants.AlgorithmAES256GCM),
		Purpose:   string(constants.PurposeEncryption),
		Status:    string(constants.KeyStatusActive),
		CreatedAt: created,
		ExpiresAt: created.Add(time.Hour),
	}
	require.NoError(t, utils.ValidateStruct(&valid))

	rec := valid.ToModel()
	assert.Equal(t, constants.AlgorithmAES256GCM, rec.Algorithm)
	assert.NoError(t, rec.ValidateNew())

	tests := []struct {
		name   string
		mutate func(r *RegisterKeyRequest)
		field  string
	}{
		{"unknown algorithm", func(r *RegisterKeyRequest) { r.Algorithm = "DES" }, "algorithm"},
		{"terminal status", func(r *RegisterKeyRequest) { r.Status = "revoked" }, "status"},
		{"expiry before creation", func(r *RegisterKeyRequest) { r.ExpiresAt = created.Add(-time.Hour) }, "expires_at"},
		{"missing name", func(r *RegisterKeyRequest) { r.Name = "" }, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := utils.ValidateStruct(&req)
			require.True(t, errors.IsValidation(err))
			regErr, ok := errors.AsRegistryError(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, regErr.Metadata()["field"])
		})
	}
}

func TestBulkActionRequest_Validation(t *testing.T) {
	assert.NoError(t, utils.ValidateStruct(&BulkActionRequest{Action: "revoke", IDs: []string{"k1"}}))
	assert.NoError(t, utils.ValidateStruct(&BulkActionRequest{Action: "expire"}))
	assert.True(t, errors.IsValidation(utils.ValidateStruct(&BulkActionRequest{Action: "destroy"})))
	assert.True(t, errors.IsValidation(utils.ValidateStruct(&BulkActionRequest{Action: "revoke", IDs: []string{""}})))
}
