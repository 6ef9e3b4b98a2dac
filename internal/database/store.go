package database

import (
	"context"
	"errors"
	"fmt"

	"whatsapp-console/internal/config"
	"whatsapp-console/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store persists conversation records and contact summaries.
type Store interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	// MessagesFor returns every message where participant is sender or recipient, oldest first.
	MessagesFor(ctx context.Context, participant string) ([]models.Message, error)
	// UpdateMessageStatus sets the delivery status of every record carrying providerID.
	// A non-nil failure is stored alongside the status.
	UpdateMessageStatus(ctx context.Context, providerID string, status models.Status, failure *models.MessageError) (int64, error)

	UpsertContact(ctx context.Context, touch models.ContactTouch) error
	ListContacts(ctx context.Context) ([]models.Contact, error)
	UpdateContactFlags(ctx context.Context, phone string, flags models.ContactFlags) error

	AllMessages(ctx context.Context) ([]models.Message, error)
	AllContacts(ctx context.Context) ([]models.Contact, error)
	// PutContact writes a full contact row, replacing any existing one.
	PutContact(ctx context.Context, contact *models.Contact) error

	Close(ctx context.Context) error
}

// Open connects the store selected by cfg.DBDriver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		return ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverPostgres:
		return OpenPostgres(cfg.PostgresDSN())
	case config.DriverSQLite:
		return OpenSQLite(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}
}

func prepare(msg *models.Message) error {
	if msg.Kind == "" {
		msg.Kind = models.KindText
	}
	if msg.Status == "" {
		msg.Status = models.StatusSent
	}
	return msg.Validate()
}

func contactName(touch models.ContactTouch) string {
	if touch.Name != "" {
		return touch.Name
	}
	return touch.PhoneNumber
}
