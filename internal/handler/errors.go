package handler

import (
	"errors"
	"net/http"

	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps service-layer error kinds to HTTP statuses: invalid input
// 400, missing references 404, state conflicts 409, exhausted transaction
// retries 503, everything else 500.
func respondError(c *gin.Context, err error) {
	var (
		validation *service.ValidationError
		conflict   *service.StateConflictError
		missing    *service.ReferentialIntegrityError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case errors.As(err, &missing):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case service.IsTransient(err):
		c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, "conflicting concurrent update, please retry"))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}
