package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"whatsapp-console/internal/database"
	"whatsapp-console/internal/messaging"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	Service *messaging.Service
	Store   database.Store
}

func NewMessageHandler(service *messaging.Service, store database.Store) *MessageHandler {
	return &MessageHandler{Service: service, Store: store}
}

// SendTemplate accepts an optional body; an empty one sends the default template to the default recipient.
func (h *MessageHandler) SendTemplate(c *gin.Context) {
	var req messaging.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.Service.SendTemplate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    res.Message,
		"whatsappId": res.ProviderID,
		"data":       res.Response,
	})
}

func (h *MessageHandler) SendCustom(c *gin.Context) {
	var req messaging.CustomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.Service.SendCustom(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    res.Message,
		"whatsappId": res.ProviderID,
	})
}

// GetMessages returns the whole conversation with number, oldest first.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "number is required"})
		return
	}

	messages, err := h.Store.MessagesFor(c.Request.Context(), number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}
