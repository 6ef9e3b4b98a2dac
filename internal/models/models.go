package models

import (
	"errors"
	"fmt"
	"time"
)

// Direction of a message relative to the business number.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
	DirectionTemplate Direction = "template"
)

// Kind tags which payload block a message carries.
type Kind string

const (
	KindText     Kind = "text"
	KindTemplate Kind = "template"
	KindImage    Kind = "image"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
	KindContact  Kind = "contact"
	KindPoll     Kind = "poll"
	KindEvent    Kind = "event"
	KindSticker  Kind = "sticker"
)

// IsMedia reports whether the kind is backed by an uploaded or linked file.
func (k Kind) IsMedia() bool {
	switch k {
	case KindImage, KindAudio, KindVideo, KindDocument, KindSticker:
		return true
	}
	return false
}

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindTemplate, KindContact, KindPoll, KindEvent:
		return true
	}
	return k.IsMedia()
}

// Status is the provider delivery status.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

// MediaInfo is the payload block for image, audio, video, document and sticker messages.
type MediaInfo struct {
	FileName string `bson:"fileName,omitempty" json:"fileName,omitempty"`
	FileSize string `bson:"fileSize,omitempty" json:"fileSize,omitempty"`
	MimeType string `bson:"mimeType,omitempty" json:"mimeType,omitempty"`
	URL      string `bson:"url,omitempty" json:"url,omitempty"`
	Caption  string `bson:"caption,omitempty" json:"caption,omitempty"`
}

// ContactCard is the payload block for shared contact messages.
type ContactCard struct {
	Name  string `bson:"name" json:"name" binding:"required"`
	Phone string `bson:"phone" json:"phone" binding:"required"`
	Info  string `bson:"info,omitempty" json:"info,omitempty"`
}

// Poll is the payload block for poll messages.
type Poll struct {
	Question        string         `bson:"question" json:"question" binding:"required,notblank"`
	Options         []string       `bson:"options" json:"options" binding:"min=2,max=10,dive,notblank"`
	MultipleAnswers bool           `bson:"multipleAnswers" json:"multipleAnswers"`
	Votes           []int          `bson:"votes,omitempty" json:"votes,omitempty"`
	UserVotes       map[string]any `bson:"userVotes,omitempty" json:"userVotes,omitempty"`
}

// Event is the payload block for event invitations.
type Event struct {
	Name          string   `bson:"name" json:"name" binding:"required,notblank"`
	Description   string   `bson:"description,omitempty" json:"description,omitempty"`
	StartDate     string   `bson:"startDate,omitempty" json:"startDate,omitempty"`
	StartTime     string   `bson:"startTime,omitempty" json:"startTime,omitempty"`
	Location      string   `bson:"location,omitempty" json:"location,omitempty"`
	Attendees     int      `bson:"attendees,omitempty" json:"attendees,omitempty"`
	Creator       string   `bson:"creator,omitempty" json:"creator,omitempty"`
	AttendeesList []string `bson:"attendeesList,omitempty" json:"attendeesList,omitempty"`
}

// MessageError records a provider-side failure attached to a message.
type MessageError struct {
	Code    string `bson:"code,omitempty" json:"code,omitempty"`
	Message string `bson:"message,omitempty" json:"message,omitempty"`
	Details any    `bson:"details,omitempty" json:"details,omitempty"`
}

// Message is one persisted conversation item.
// At most one of Media, Contact, Poll and Event is set, and it matches Kind.
type Message struct {
	ID           string        `bson:"_id,omitempty" json:"id" gorm:"primaryKey;type:varchar(64)"`
	From         string        `bson:"from" json:"from" gorm:"column:sender_id;type:varchar(64);not null;index:idx_messages_participants"`
	To           string        `bson:"to" json:"to" gorm:"column:recipient_id;type:varchar(64);not null;index:idx_messages_participants"`
	Text         string        `bson:"text,omitempty" json:"text,omitempty" gorm:"type:text"`
	Direction    Direction     `bson:"type" json:"type" gorm:"type:varchar(20);not null"`
	Kind         Kind          `bson:"messageType" json:"messageType" gorm:"type:varchar(20);default:text"`
	TemplateName string        `bson:"templateName,omitempty" json:"templateName,omitempty" gorm:"type:varchar(255)"`
	Status       Status        `bson:"status" json:"status" gorm:"type:varchar(20);default:sent"`
	MessageID    string        `bson:"messageId,omitempty" json:"messageId,omitempty" gorm:"type:varchar(255);index"`
	Timestamp    time.Time     `bson:"timestamp" json:"timestamp" gorm:"column:sent_at;index"`
	ContactName  string        `bson:"contactName,omitempty" json:"contactName,omitempty" gorm:"type:varchar(255)"`
	Media        *MediaInfo    `bson:"mediaInfo,omitempty" json:"mediaInfo,omitempty" gorm:"serializer:json;type:text"`
	Contact      *ContactCard  `bson:"contactData,omitempty" json:"contactData,omitempty" gorm:"serializer:json;type:text"`
	Poll         *Poll         `bson:"pollData,omitempty" json:"pollData,omitempty" gorm:"serializer:json;type:text"`
	Event        *Event        `bson:"eventData,omitempty" json:"eventData,omitempty" gorm:"serializer:json;type:text"`
	Error        *MessageError `bson:"error,omitempty" json:"error,omitempty" gorm:"serializer:json;type:text"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt" gorm:"autoUpdateTime"`
}

func (Message) TableName() string {
	return "messages"
}

var ErrInvalidMessage = errors.New("invalid message")

// Payload returns the variant block matching Kind, or nil for text and template messages.
func (m *Message) Payload() any {
	switch {
	case m.Kind.IsMedia():
		return m.Media
	case m.Kind == KindContact:
		return m.Contact
	case m.Kind == KindPoll:
		return m.Poll
	case m.Kind == KindEvent:
		return m.Event
	}
	return nil
}

// Validate checks the record before it is written.
func (m *Message) Validate() error {
	if m.From == "" {
		return fmt.Errorf("%w: sender is required", ErrInvalidMessage)
	}
	if m.To == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	}
	switch m.Direction {
	case DirectionIncoming, DirectionOutgoing, DirectionTemplate:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidMessage, m.Direction)
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: unknown message type %q", ErrInvalidMessage, m.Kind)
	}
	if !m.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidMessage, m.Status)
	}

	set := map[string]bool{
		"mediaInfo":   m.Media != nil,
		"contactData": m.Contact != nil,
		"pollData":    m.Poll != nil,
		"eventData":   m.Event != nil,
	}
	allowed := ""
	switch {
	case m.Kind.IsMedia():
		allowed = "mediaInfo"
	case m.Kind == KindContact:
		allowed = "contactData"
	case m.Kind == KindPoll:
		allowed = "pollData"
	case m.Kind == KindEvent:
		allowed = "eventData"
	}
	for block, present := range set {
		if present && block != allowed {
			return fmt.Errorf("%w: %s not allowed for %s messages", ErrInvalidMessage, block, m.Kind)
		}
	}
	return nil
}

// Contact is a conversation participant summary.
type Contact struct {
	PhoneNumber  string     `bson:"phoneNumber" json:"phoneNumber" gorm:"primaryKey;type:varchar(64)"`
	Name         string     `bson:"name" json:"name" gorm:"type:varchar(255);not null"`
	LastMessage  *time.Time `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	MessageCount int        `bson:"messageCount" json:"messageCount" gorm:"default:0"`
	IsOnline     bool       `bson:"isOnline" json:"isOnline" gorm:"default:false"`
	LastSeen     *time.Time `bson:"lastSeen,omitempty" json:"lastSeen,omitempty"`
	ProfilePic   string     `bson:"profilePic,omitempty" json:"profilePic,omitempty" gorm:"type:text"`
	IsGroup      bool       `bson:"isGroup" json:"isGroup" gorm:"default:false"`
	Favorite     bool       `bson:"favorite" json:"favorite" gorm:"default:false"`
	Unread       bool       `bson:"unread" json:"unread" gorm:"default:false"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt" gorm:"autoCreateTime"`
}

func (Contact) TableName() string {
	return "contacts"
}

// ContactTouch describes activity on a conversation, used to upsert a Contact.
type ContactTouch struct {
	PhoneNumber string
	Name        string // optional; applied when non-empty
	At          time.Time
	Inbound     bool // marks the contact unread
}

// ContactFlags are UI-only toggles. Nil fields are left untouched.
type ContactFlags struct {
	Favorite *bool `json:"favorite"`
	Unread   *bool `json:"unread"`
	IsOnline *bool `json:"isOnline"`
}

func (f ContactFlags) Empty() bool {
	return f.Favorite == nil && f.Unread == nil && f.IsOnline == nil
}
