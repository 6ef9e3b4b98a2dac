package webhook

import (
	"fmt"
	"strconv"

	"whatsapp-console/internal/models"
	wamodels "whatsapp-console/pkg/models"
)

// ToRecord maps one inbound provider message to a stored record addressed to businessNumber.
// Types without a payload block of their own become text with a bracketed placeholder.
func ToRecord(m wamodels.InboundMessage, businessNumber, profileName string) *models.Message {
	record := &models.Message{
		From:        m.From,
		To:          businessNumber,
		Direction:   models.DirectionIncoming,
		Kind:        models.KindText,
		Status:      models.StatusDelivered,
		MessageID:   m.ID,
		Timestamp:   m.Time(),
		ContactName: profileName,
	}

	switch m.Type {
	case "text":
		if m.Text != nil {
			record.Text = m.Text.Body
		}
	case "image", "video", "audio", "document", "sticker":
		if media := mediaOf(m); media != nil {
			record.Kind = models.Kind(m.Type)
			record.Media = &models.MediaInfo{
				FileName: media.Filename,
				MimeType: media.MimeType,
				Caption:  media.Caption,
			}
			record.Text = media.Caption
		}
	case "contacts":
		if len(m.Contacts) > 0 {
			shared := m.Contacts[0]
			card := &models.ContactCard{Name: shared.Name.FormattedName}
			if len(shared.Phones) > 0 {
				card.Phone = shared.Phones[0].Phone
			}
			record.Kind = models.KindContact
			record.Contact = card
			record.Text = card.Name
		}
	case "interactive":
		if in := m.Interactive; in != nil {
			switch {
			case in.ButtonReply != nil:
				record.Text = in.ButtonReply.Title
			case in.ListReply != nil:
				record.Text = in.ListReply.Title
			}
		}
	case "button":
		if m.Button != nil {
			record.Text = m.Button.Text
		}
	case "location":
		if loc := m.Location; loc != nil {
			coords := fmt.Sprintf("%.6f,%.6f", loc.Latitude, loc.Longitude)
			if loc.Name != "" {
				coords = loc.Name + " " + coords
			}
			record.Text = "[location] " + coords
		}
	case "reaction":
		if m.Reaction != nil {
			record.Text = "[reaction] " + m.Reaction.Emoji
		}
	}

	if record.Text == "" && record.Kind == models.KindText {
		kind := m.Type
		if kind == "" {
			kind = "unknown"
		}
		record.Text = "[" + kind + "]"
	}
	return record
}

func mediaOf(m wamodels.InboundMessage) *wamodels.MediaMessage {
	switch m.Type {
	case "image":
		return m.Image
	case "video":
		return m.Video
	case "audio":
		return m.Audio
	case "document":
		return m.Document
	case "sticker":
		return m.Sticker
	}
	return nil
}

// FailureOf returns the first error attached to a failed receipt, or nil.
func FailureOf(s wamodels.InboundStatus) *models.MessageError {
	if models.Status(s.Status) != models.StatusFailed || len(s.Errors) == 0 {
		return nil
	}
	e := s.Errors[0]
	failure := &models.MessageError{Code: strconv.Itoa(e.Code), Message: e.Title}
	if failure.Message == "" {
		failure.Message = e.Message
	}
	if e.ErrorData.Details != "" {
		failure.Details = e.ErrorData.Details
	}
	return failure
}
