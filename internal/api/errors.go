package api

import (
	"errors"
	"net/http"

	"product-order-service/internal/models"
	"product-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrPublishFailure):
		return http.StatusBadGateway
	default:
		// includes ErrMalformedEnvelope, so the transport applies its retry policy
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{
		"error":   http.StatusText(status),
		"details": err.Error(),
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		body["validation_errors"] = verr.Fields
	}

	c.JSON(status, body)
}
