package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"whatsapp-console/internal/assets"
	"whatsapp-console/internal/messaging"

	"github.com/gin-gonic/gin"
)

type MediaSource interface {
	Open(ctx context.Context, id string) (*assets.Download, error)
}

// MediaHandler serves attachments stored by the GridFS asset host.
type MediaHandler struct {
	Source MediaSource
}

func NewMediaHandler(source MediaSource) *MediaHandler {
	return &MediaHandler{Source: source}
}

func (h *MediaHandler) Serve(c *gin.Context) {
	dl, err := h.Source.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, assets.ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}
	defer dl.Close()

	c.DataFromReader(http.StatusOK, dl.Length, dl.ContentType, dl, map[string]string{
		"Cache-Control":       "public, max-age=2592000",
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", dl.Name),
	})
}

// AssetHandler removes uploaded attachments from the configured asset host.
type AssetHandler struct {
	Host assets.Host
}

func NewAssetHandler(host assets.Host) *AssetHandler {
	return &AssetHandler{Host: host}
}

// Delete takes the public id as a wildcard so hosted ids with folders ("whatsapp-media/report") work.
func (h *AssetHandler) Delete(c *gin.Context) {
	publicID := strings.TrimPrefix(c.Param("publicId"), "/")
	if publicID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset id required"})
		return
	}

	if err := h.Host.Delete(c.Request.Context(), publicID); err != nil {
		if errors.Is(err, assets.ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		respondError(c, &messaging.UpstreamError{Service: "asset host", Err: err})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "asset deleted", "publicId": publicID})
}
