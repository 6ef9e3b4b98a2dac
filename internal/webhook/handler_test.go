package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"whatsapp-console/internal/database"
	"whatsapp-console/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []*models.Message
	statuses map[string]models.Status
}

func (n *recordingNotifier) NotifyMessage(msg *models.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) NotifyStatus(id string, status models.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.statuses == nil {
		n.statuses = map[string]models.Status{}
	}
	n.statuses[id] = status
}

func setupRouter(t *testing.T, secret string) (*gin.Engine, database.Store, *recordingNotifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "webhook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })

	notifier := &recordingNotifier{}
	h := &Handler{VerifyToken: "my-verify-token", AppSecret: secret, Store: store, Notifier: notifier}

	r := gin.New()
	r.GET("/webhook", h.VerifyWebhook)
	r.POST("/webhook", h.HandleMessage)
	return r, store, notifier
}

const twoMessages = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA_ID",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550001111", "phone_number_id": "1234567890"},
        "contacts": [{"wa_id": "923010813515", "profile": {"name": "Ayesha"}}],
        "messages": [
          {"from": "923010813515", "id": "wamid.in1", "timestamp": "1717236000", "type": "text", "text": {"body": "Hello"}},
          {"from": "923010813515", "id": "wamid.in2", "timestamp": "1717236060", "type": "image", "image": {"id": "media1", "mime_type": "image/jpeg", "caption": "look"}}
        ]
      }
    }]
  }]
}`

func post(r *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestVerifyWebhook(t *testing.T) {
	r, _, _ := setupRouter(t, "")

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantBody string
	}{
		{"matching token echoes challenge", "hub.mode=subscribe&hub.verify_token=my-verify-token&hub.challenge=1158201444", http.StatusOK, "1158201444"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=1", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=my-verify-token&hub.challenge=1", http.StatusForbidden, ""},
		{"missing params", "", http.StatusForbidden, "Verification failed"},
		{"challenge only", "hub.challenge=42", http.StatusForbidden, "Verification failed"},
		{"missing token", "hub.mode=subscribe&hub.challenge=42", http.StatusForbidden, "Verification failed"},
		{"empty token matches nothing", "hub.mode=subscribe&hub.verify_token=&hub.challenge=42", http.StatusForbidden, "Verification failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestHandleMessage_StoresEveryMessage(t *testing.T) {
	r, store, notifier := setupRouter(t, "")

	w := post(r, twoMessages, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "received", resp["status"])
	assert.Equal(t, float64(2), resp["messages"])

	msgs, err := store.MessagesFor(context.Background(), "923010813515")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Equal(t, "923010813515", m.From)
		assert.Equal(t, "15550001111", m.To)
		assert.Equal(t, models.DirectionIncoming, m.Direction)
		assert.Equal(t, "Ayesha", m.ContactName)
	}
	assert.Equal(t, "Hello", msgs[0].Text)
	assert.Equal(t, int64(1717236000), msgs[0].Timestamp.Unix())
	assert.Equal(t, models.KindImage, msgs[1].Kind)
	require.NotNil(t, msgs[1].Media)
	assert.Equal(t, "image/jpeg", msgs[1].Media.MimeType)

	contacts, err := store.ListContacts(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Ayesha", contacts[0].Name)
	assert.Equal(t, 2, contacts[0].MessageCount)
	assert.True(t, contacts[0].Unread)

	assert.Len(t, notifier.messages, 2)
}

func TestHandleMessage_MalformedJSON(t *testing.T) {
	r, store, _ := setupRouter(t, "")

	w := post(r, `{"entry": [`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	msgs, err := store.AllMessages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestHandleMessage_AbortsBatchOnFirstFailure(t *testing.T) {
	r, store, _ := setupRouter(t, "")
	body := `{"entry":[{"changes":[{"value":{
		"metadata": {"phone_number_id": "1234567890"},
		"messages": [
			{"from": "111", "id": "a", "timestamp": "1717236000", "type": "text", "text": {"body": "one"}},
			{"from": "", "id": "b", "timestamp": "1717236001", "type": "text", "text": {"body": "broken"}},
			{"from": "111", "id": "c", "timestamp": "1717236002", "type": "text", "text": {"body": "three"}}
		]}}]}]}`

	w := post(r, body, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	msgs, err := store.AllMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "1234567890", msgs[0].To)
}

func TestHandleMessage_AppliesStatuses(t *testing.T) {
	r, store, notifier := setupRouter(t, "")
	ctx := context.Background()

	for _, id := range []string{"wamid.out1", "wamid.out2"} {
		require.NoError(t, store.InsertMessage(ctx, &models.Message{
			From: "system", To: "111", Text: id, Direction: models.DirectionOutgoing, MessageID: id,
		}))
	}

	body := `{"entry":[{"changes":[{"value":{
		"metadata": {"display_phone_number": "15550001111"},
		"statuses": [
			{"id": "wamid.out1", "status": "read", "timestamp": "1717236100", "recipient_id": "111"},
			{"id": "wamid.out1", "status": "deleted", "timestamp": "1717236101", "recipient_id": "111"}
		]}}]}]}`
	w := post(r, body, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"statuses":1`)

	msgs, err := store.MessagesFor(ctx, "111")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	byID := map[string]models.Status{}
	for _, m := range msgs {
		byID[m.MessageID] = m.Status
	}
	assert.Equal(t, models.StatusRead, byID["wamid.out1"])
	assert.Equal(t, models.StatusSent, byID["wamid.out2"])
	assert.Equal(t, models.StatusRead, notifier.statuses["wamid.out1"])
}

func TestHandleMessage_FailedStatusRecordsError(t *testing.T) {
	r, store, notifier := setupRouter(t, "")
	ctx := context.Background()

	require.NoError(t, store.InsertMessage(ctx, &models.Message{
		From: "system", To: "111", Text: "hi", Direction: models.DirectionOutgoing, MessageID: "wamid.out1",
	}))

	body := `{"entry":[{"changes":[{"value":{
		"metadata": {"display_phone_number": "15550001111"},
		"statuses": [{
			"id": "wamid.out1", "status": "failed", "timestamp": "1717236100", "recipient_id": "111",
			"errors": [{"code": 131026, "title": "Message undeliverable"}]
		}]}}]}]}`
	w := post(r, body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	msgs, err := store.MessagesFor(ctx, "111")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.StatusFailed, msgs[0].Status)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, "131026", msgs[0].Error.Code)
	assert.Equal(t, "Message undeliverable", msgs[0].Error.Message)
	assert.Equal(t, models.StatusFailed, notifier.statuses["wamid.out1"])
}

func TestHandleMessage_Signature(t *testing.T) {
	r, _, _ := setupRouter(t, "app-secret")

	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write([]byte(twoMessages))
	valid := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, http.StatusForbidden, post(r, twoMessages, nil).Code)
	assert.Equal(t, http.StatusForbidden, post(r, twoMessages, map[string]string{"X-Hub-Signature-256": "sha256=deadbeef"}).Code)
	assert.Equal(t, http.StatusOK, post(r, twoMessages, map[string]string{"X-Hub-Signature-256": valid}).Code)
}
