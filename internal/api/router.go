package api

import (
	"net/http"

	"whatsapp-console/internal/assets"
	"whatsapp-console/internal/database"
	"whatsapp-console/internal/messaging"
	"whatsapp-console/internal/webhook"
	"whatsapp-console/internal/ws"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Store   database.Store
	Service *messaging.Service
	Webhook *webhook.Handler
	Hub     *ws.Hub
	Assets  assets.Host
	Media   MediaSource // set only for the gridfs asset backend
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.Default()
	r.Use(CORS(), RequestLogger())

	r.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if d.Hub != nil {
			body["liveClients"] = d.Hub.ClientCount()
		}
		c.JSON(http.StatusOK, body)
	})

	r.GET("/webhook", d.Webhook.VerifyWebhook)
	r.POST("/webhook", d.Webhook.HandleMessage)

	if d.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			d.Hub.ServeWs(c.Writer, c.Request)
		})
	}
	if d.Media != nil {
		r.GET("/media/:id", NewMediaHandler(d.Media).Serve)
	}

	messageHandler := NewMessageHandler(d.Service, d.Store)
	contactHandler := NewContactHandler(d.Store)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/webhook", d.Webhook.VerifyWebhook)
		apiGroup.POST("/webhook", d.Webhook.HandleMessage)

		apiGroup.POST("/send", messageHandler.SendTemplate)
		apiGroup.POST("/send-custom", messageHandler.SendCustom)
		apiGroup.GET("/messages/:number", messageHandler.GetMessages)

		apiGroup.GET("/contacts", contactHandler.GetContacts)
		apiGroup.PATCH("/contacts/:number", contactHandler.UpdateContact)

		if d.Assets != nil {
			apiGroup.DELETE("/media/*publicId", NewAssetHandler(d.Assets).Delete)
		}
	}

	return r
}
