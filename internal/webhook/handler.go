package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"whatsapp-console/internal/config"
	"whatsapp-console/internal/database"
	"whatsapp-console/internal/logger"
	"whatsapp-console/internal/models"
	wamodels "whatsapp-console/pkg/models"

	"github.com/gin-gonic/gin"
)

// Notifier pushes ingested messages and receipts to the live console.
type Notifier interface {
	NotifyMessage(msg *models.Message)
	NotifyStatus(providerID string, status models.Status)
}

type Handler struct {
	VerifyToken string
	AppSecret   string
	Store       database.Store
	Notifier    Notifier
}

func NewHandler(cfg *config.Config, store database.Store, notifier Notifier) *Handler {
	return &Handler{
		VerifyToken: cfg.VerifyToken,
		AppSecret:   cfg.AppSecret,
		Store:       store,
		Notifier:    notifier,
	}
}

func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && h.VerifyToken != "" && token == h.VerifyToken {
		logger.Info("webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}
	logger.Warn("webhook verification failed", "mode", mode)
	c.String(http.StatusForbidden, "Verification failed")
}

func (h *Handler) HandleMessage(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.AppSecret != "" && !h.verifySignature(body, c.GetHeader("X-Hub-Signature-256")) {
		logger.Warn("webhook signature mismatch")
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	var payload wamodels.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Warn("webhook payload rejected", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	res, err := h.Ingest(c.Request.Context(), payload)
	if err != nil {
		logger.Error("webhook ingest aborted", "error", err, "stored", res.Messages)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "messages": res.Messages})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received", "messages": res.Messages, "statuses": res.Statuses})
}

// verifySignature checks the X-Hub-Signature-256 header.
func (h *Handler) verifySignature(body []byte, signature string) bool {
	expected, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.AppSecret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(computed))
}

type IngestResult struct {
	Messages int
	Statuses int
}

// Ingest stores every message in payload in order and applies delivery receipts.
// The first failed write aborts the rest of the batch.
func (h *Handler) Ingest(ctx context.Context, payload wamodels.WebhookPayload) (IngestResult, error) {
	var res IngestResult
	log := logger.FromContext(ctx)

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			v := change.Value
			businessNumber := v.Metadata.DisplayPhoneNumber
			if businessNumber == "" {
				businessNumber = v.Metadata.PhoneNumberID
			}
			names := make(map[string]string, len(v.Contacts))
			for _, p := range v.Contacts {
				names[p.WaID] = p.Profile.Name
			}

			for _, m := range v.Messages {
				record := ToRecord(m, businessNumber, names[m.From])
				if err := h.Store.InsertMessage(ctx, record); err != nil {
					return res, fmt.Errorf("store message %s: %w", m.ID, err)
				}
				res.Messages++

				touch := models.ContactTouch{PhoneNumber: m.From, Name: names[m.From], At: record.Timestamp, Inbound: true}
				if err := h.Store.UpsertContact(ctx, touch); err != nil {
					return res, fmt.Errorf("update contact %s: %w", m.From, err)
				}
				if h.Notifier != nil {
					h.Notifier.NotifyMessage(record)
				}
				log.Info("inbound message stored", "from", m.From, "type", m.Type, "message_id", m.ID)
			}

			for _, s := range v.Statuses {
				status := models.Status(s.Status)
				if !status.Valid() {
					log.Debug("ignoring status", "status", s.Status, "message_id", s.ID)
					continue
				}
				failure := FailureOf(s)
				n, err := h.Store.UpdateMessageStatus(ctx, s.ID, status, failure)
				if err != nil {
					return res, fmt.Errorf("update status %s: %w", s.ID, err)
				}
				res.Statuses++
				if failure != nil {
					log.Warn("message delivery failed", "message_id", s.ID, "code", failure.Code, "reason", failure.Message)
				}
				if n > 0 && h.Notifier != nil {
					h.Notifier.NotifyStatus(s.ID, status)
				}
			}
		}
	}
	return res, nil
}
