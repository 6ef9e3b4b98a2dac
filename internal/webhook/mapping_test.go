package webhook

import (
	"encoding/json"
	"testing"

	"whatsapp-console/internal/models"
	wamodels "whatsapp-console/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inbound(t *testing.T, raw string) wamodels.InboundMessage {
	t.Helper()
	var m wamodels.InboundMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestToRecord(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind models.Kind
		wantText string
	}{
		{"text", `{"from":"111","id":"x","type":"text","text":{"body":"hi"}}`, models.KindText, "hi"},
		{"audio without caption", `{"from":"111","id":"x","type":"audio","audio":{"id":"m","mime_type":"audio/ogg"}}`, models.KindAudio, ""},
		{"document", `{"from":"111","id":"x","type":"document","document":{"id":"m","filename":"cv.pdf","caption":"my cv"}}`, models.KindDocument, "my cv"},
		{"sticker", `{"from":"111","id":"x","type":"sticker","sticker":{"id":"m","mime_type":"image/webp"}}`, models.KindSticker, ""},
		{"contacts", `{"from":"111","id":"x","type":"contacts","contacts":[{"name":{"formatted_name":"Ali"},"phones":[{"phone":"+92300"}]}]}`, models.KindContact, "Ali"},
		{"button reply", `{"from":"111","id":"x","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"poll_option_1","title":"Sushi"}}}`, models.KindText, "Sushi"},
		{"list reply", `{"from":"111","id":"x","type":"interactive","interactive":{"type":"list_reply","list_reply":{"id":"poll_option_3","title":"Thursday"}}}`, models.KindText, "Thursday"},
		{"template button", `{"from":"111","id":"x","type":"button","button":{"text":"Stop promotions","payload":"stop"}}`, models.KindText, "Stop promotions"},
		{"reaction", `{"from":"111","id":"x","type":"reaction","reaction":{"message_id":"y","emoji":"👍"}}`, models.KindText, "[reaction] 👍"},
		{"location", `{"from":"111","id":"x","type":"location","location":{"latitude":24.86,"longitude":67.0,"name":"Office"}}`, models.KindText, "[location] Office 24.860000,67.000000"},
		{"unsupported", `{"from":"111","id":"x","type":"order"}`, models.KindText, "[order]"},
		{"image missing block", `{"from":"111","id":"x","type":"image"}`, models.KindText, "[image]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := ToRecord(inbound(t, tt.raw), "15550001111", "")
			assert.Equal(t, tt.wantKind, record.Kind)
			assert.Equal(t, tt.wantText, record.Text)
			assert.NoError(t, record.Validate())
		})
	}
}

func TestToRecord_Timestamp(t *testing.T) {
	record := ToRecord(inbound(t, `{"from":"111","id":"x","timestamp":"1717236000","type":"text","text":{"body":"hi"}}`), "1", "")
	assert.Equal(t, int64(1717236000), record.Timestamp.Unix())

	record = ToRecord(inbound(t, `{"from":"111","id":"x","timestamp":"garbage","type":"text","text":{"body":"hi"}}`), "1", "")
	assert.False(t, record.Timestamp.IsZero())
}

func TestFailureOf(t *testing.T) {
	var failed wamodels.InboundStatus
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "wamid.out1", "status": "failed", "timestamp": "1717236100", "recipient_id": "111",
		"errors": [{"code": 131047, "title": "Re-engagement message", "message": "Re-engagement message",
			"error_data": {"details": "Message failed to send because more than 24 hours have passed"}}]
	}`), &failed))

	got := FailureOf(failed)
	require.NotNil(t, got)
	assert.Equal(t, "131047", got.Code)
	assert.Equal(t, "Re-engagement message", got.Message)
	assert.Equal(t, "Message failed to send because more than 24 hours have passed", got.Details)

	assert.Nil(t, FailureOf(wamodels.InboundStatus{ID: "x", Status: "failed"}))
	assert.Nil(t, FailureOf(wamodels.InboundStatus{ID: "x", Status: "read", Errors: failed.Errors}))
}
