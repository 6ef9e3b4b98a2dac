// Package messaging implements the outbound send path: validate, upload any
// attachment, call the provider, then record the message and touch the contact.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"whatsapp-console/internal/assets"
	"whatsapp-console/internal/database"
	"whatsapp-console/internal/logger"
	"whatsapp-console/internal/models"
	"whatsapp-console/internal/whatsapp"
)

const (
	SystemSender = "system"

	defaultTemplate = "hello_world"
	defaultLanguage = "en_US"
)

type Provider interface {
	Send(ctx context.Context, msg whatsapp.GenericMessage) (*whatsapp.SendResponse, error)
	SendTemplate(ctx context.Context, to, templateName, languageCode string, params ...string) (*whatsapp.SendResponse, error)
}

// Notifier receives every stored message for live console updates.
type Notifier interface {
	NotifyMessage(msg *models.Message)
}

type Service struct {
	Provider         Provider
	Assets           assets.Host
	Store            database.Store
	Notifier         Notifier
	DefaultRecipient string
}

type TemplateRequest struct {
	To         string   `json:"to"`
	Template   string   `json:"template"`
	Language   string   `json:"language"`
	Parameters []string `json:"parameters" binding:"omitempty,dive,required"`
}

// FilePayload is an attachment: either base64 Data to upload or an existing URL.
type FilePayload struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Data     string `json:"data"`
	URL      string `json:"url"`
}

type CustomRequest struct {
	Number  string              `json:"number" binding:"required"`
	Kind    models.Kind         `json:"type" binding:"omitempty,oneof=text image audio video document sticker contact poll event"`
	Message string              `json:"message"`
	File    *FilePayload        `json:"file,omitempty"`
	Poll    *models.Poll        `json:"poll,omitempty"`
	Event   *models.Event       `json:"event,omitempty"`
	Contact *models.ContactCard `json:"contact,omitempty"`
}

type SendResult struct {
	Message    *models.Message
	ProviderID string
	Response   *whatsapp.SendResponse
}

func (s *Service) SendTemplate(ctx context.Context, req TemplateRequest) (*SendResult, error) {
	if req.To == "" {
		req.To = s.DefaultRecipient
	}
	if req.To == "" {
		return nil, invalid("recipient number is required")
	}
	if req.Template == "" {
		req.Template = defaultTemplate
	}
	if req.Language == "" {
		req.Language = defaultLanguage
	}

	resp, err := s.Provider.SendTemplate(ctx, req.To, req.Template, req.Language, req.Parameters...)
	if err != nil {
		return nil, &UpstreamError{Service: "whatsapp", Err: err}
	}
	record := &models.Message{
		From:         SystemSender,
		To:           req.To,
		Text:         strings.Join(req.Parameters, ", "),
		Direction:    models.DirectionTemplate,
		Kind:         models.KindTemplate,
		TemplateName: req.Template,
	}
	return s.persist(ctx, resp, record)
}

func (s *Service) SendCustom(ctx context.Context, req CustomRequest) (*SendResult, error) {
	if err := validateCustom(&req); err != nil {
		return nil, err
	}

	mediaURL := ""
	if req.Kind.IsMedia() {
		url, err := s.resolveMedia(ctx, &req)
		if err != nil {
			return nil, err
		}
		mediaURL = url
	}

	msg, err := buildOutbound(req, mediaURL)
	if err != nil {
		return nil, err
	}
	resp, err := s.Provider.Send(ctx, msg)
	if err != nil {
		return nil, &UpstreamError{Service: "whatsapp", Err: err}
	}
	return s.persist(ctx, resp, buildRecord(req, mediaURL))
}

// resolveMedia uploads an inline file and returns the URL the provider should fetch.
// An uploaded asset is left in place if a later step fails.
func (s *Service) resolveMedia(ctx context.Context, req *CustomRequest) (string, error) {
	f := req.File
	if f.Data == "" {
		return f.URL, nil
	}
	if s.Assets == nil {
		return "", errors.New("no asset host configured")
	}

	data, mime, err := assets.DecodeBase64(f.Data)
	if err != nil {
		return "", invalid("%v", err)
	}
	if f.MimeType == "" {
		f.MimeType = mime
	}
	if f.Size == 0 {
		f.Size = int64(len(data))
	}
	if f.Name == "" {
		f.Name = fmt.Sprintf("%s-%d", req.Kind, time.Now().Unix())
	}

	asset, err := s.Assets.Upload(ctx, assets.File{Name: f.Name, MimeType: f.MimeType, Kind: req.Kind, Data: data})
	if err != nil {
		return "", &UpstreamError{Service: "asset host", Err: err}
	}
	logger.FromContext(ctx).Info("attachment uploaded", "public_id", asset.PublicID, "kind", req.Kind)
	f.URL = asset.URL
	return asset.URL, nil
}

// persist stores an accepted send and touches the recipient contact.
func (s *Service) persist(ctx context.Context, resp *whatsapp.SendResponse, record *models.Message) (*SendResult, error) {
	now := time.Now().UTC()
	record.Status = models.StatusSent
	record.MessageID = resp.MessageID()
	record.Timestamp = now
	if err := s.Store.InsertMessage(ctx, record); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	if err := s.Store.UpsertContact(ctx, models.ContactTouch{PhoneNumber: record.To, At: now}); err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	if s.Notifier != nil {
		s.Notifier.NotifyMessage(record)
	}

	logger.FromContext(ctx).Info("message recorded", "id", record.ID, "to", record.To, "kind", record.Kind, "message_id", record.MessageID)
	return &SendResult{Message: record, ProviderID: record.MessageID, Response: resp}, nil
}
