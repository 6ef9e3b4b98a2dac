package api

import (
	"net/http"

	"whatsapp-console/internal/database"
	"whatsapp-console/internal/models"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	Store database.Store
}

func NewContactHandler(store database.Store) *ContactHandler {
	return &ContactHandler{Store: store}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	contacts, err := h.Store.ListContacts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"totalContacts": len(contacts),
		"contacts":      contacts,
	})
}

// UpdateContact toggles the UI flags (favorite, unread, online) of one contact.
func (h *ContactHandler) UpdateContact(c *gin.Context) {
	var flags models.ContactFlags
	if err := c.ShouldBindJSON(&flags); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if flags.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := h.Store.UpdateContactFlags(c.Request.Context(), c.Param("number"), flags); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
