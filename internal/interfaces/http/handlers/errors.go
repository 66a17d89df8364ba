// Package handlers implements the gin handlers of the registry HTTP API.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/keyreg/pkg/errors"
	"github.com/turtacn/keyreg/pkg/logger"
)

// respondError writes err as the standard error body and logs it. Server-side failures
// log at error level; client errors at warn.
func respondError(c *gin.Context, log logger.Logger, operation string, err error) {
	status, body := errors.ToGenericErrorResponse(err)
	fields := []logger.Field{
		logger.String("operation", operation),
		logger.String("error_code", string(errors.CodeOf(err))),
		logger.Int("status", status),
	}
	if errors.ShouldLogError(err) {
		log.Error(c.Request.Context(), "Request failed", err, fields...)
	} else {
		log.Warn(c.Request.Context(), "Request rejected", append(fields, logger.Err(err))...)
	}
	c.AbortWithStatusJSON(status, body)
}

// bindJSON decodes the request body into req, reporting decoding failures as
// validation errors.
func bindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return errors.ErrValidation("body", err.Error())
	}
	return nil
}
