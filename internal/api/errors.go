package api

import (
	"errors"
	"net/http"

	"whatsapp-console/internal/database"
	"whatsapp-console/internal/logger"
	"whatsapp-console/internal/messaging"
	"whatsapp-console/internal/whatsapp"

	"github.com/gin-gonic/gin"
)

// respondError maps validation failures to 400, upstream failures to 502 and everything else to 500.
func respondError(c *gin.Context, err error) {
	var upstream *messaging.UpstreamError
	switch {
	case errors.Is(err, messaging.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &upstream):
		body := gin.H{"error": err.Error()}
		var apiErr *whatsapp.APIError
		if errors.As(err, &apiErr) {
			body["details"] = apiErr.Details()
		}
		logger.FromContext(c.Request.Context()).Warn("upstream call failed", "service", upstream.Service, "error", upstream.Err)
		c.JSON(http.StatusBadGateway, body)
	default:
		logger.FromContext(c.Request.Context()).Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
