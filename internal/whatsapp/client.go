package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"whatsapp-console/internal/config"
	"whatsapp-console/internal/logger"
)

type Client struct {
	token         string
	phoneNumberID string
	baseURL       string
	version       string
	httpClient    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		token:         cfg.WhatsAppToken,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       strings.TrimRight(cfg.GraphAPIBase, "/"),
		version:       cfg.GraphAPIVersion,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx answer from the Graph API.
type APIError struct {
	StatusCode int
	Graph      GraphError
	Body       []byte
}

type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode,omitempty"`
	FBTraceID    string `json:"fbtrace_id,omitempty"`
}

func (e *APIError) Error() string {
	if e.Graph.Message != "" {
		return fmt.Sprintf("WhatsApp API error (%d): %s", e.StatusCode, e.Graph.Message)
	}
	return fmt.Sprintf("WhatsApp API error (%d): %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// Details returns the decoded response body for error reports, or the raw text.
func (e *APIError) Details() any {
	var v any
	if err := json.Unmarshal(e.Body, &v); err == nil {
		return v
	}
	return string(e.Body)
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.version, strings.TrimLeft(path, "/"))
}

func (c *Client) sendRequest(ctx context.Context, method, url string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: respBody}
		var envelope struct {
			Error GraphError `json:"error"`
		}
		if json.Unmarshal(respBody, &envelope) == nil {
			apiErr.Graph = envelope.Error
		}
		return nil, apiErr
	}
	return respBody, nil
}

// Send posts msg to the phone number's /messages edge.
func (c *Client) Send(ctx context.Context, msg GenericMessage) (*SendResponse, error) {
	if msg.MessagingProduct == "" {
		msg.MessagingProduct = "whatsapp"
	}
	raw, err := c.sendRequest(ctx, http.MethodPost, c.endpoint(c.phoneNumberID+"/messages"), msg)
	if err != nil {
		logger.FromContext(ctx).Warn("whatsapp send failed", "to", msg.To, "type", msg.Type, "error", err)
		return nil, err
	}

	var resp SendResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode send response: %w", err)
	}
	logger.FromContext(ctx).Info("whatsapp message sent", "to", msg.To, "type", msg.Type, "message_id", resp.MessageID())
	return &resp, nil
}

// SendTemplate sends an approved template. params fill the body placeholders.
func (c *Client) SendTemplate(ctx context.Context, to, templateName, languageCode string, params ...string) (*SendResponse, error) {
	msg := NewMessage(to, "template")
	msg.Template = &TemplateObj{
		Name:       templateName,
		Language:   LanguageObj{Code: languageCode},
		Components: BodyParameters(params),
	}
	return c.Send(ctx, msg)
}
