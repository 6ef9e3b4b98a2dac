package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsapp-console/internal/logger"
	"whatsapp-console/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// SQLStore is the relational Store, used with PostgreSQL in production and
// SQLite for local runs, tests and as the migration source.
type SQLStore struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	logger.Info("connected to PostgreSQL")
	return newSQLStore(db)
}

func OpenSQLite(path string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite at %s: %w", path, err)
	}
	logger.Info("opened SQLite", "path", path)
	return newSQLStore(db)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	}
}

func newSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&models.Message{}, &models.Contact{}); err != nil {
		return nil, fmt.Errorf("failed to run auto-migration: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if err := prepare(msg); err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: message %s", ErrDuplicate, msg.ID)
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *SQLStore) MessagesFor(ctx context.Context, participant string) ([]models.Message, error) {
	messages := []models.Message{}
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", participant, participant).
		Order("sent_at ASC, created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	return messages, nil
}

func (s *SQLStore) AllMessages(ctx context.Context) ([]models.Message, error) {
	messages := []models.Message{}
	if err := s.db.WithContext(ctx).Order("sent_at ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	return messages, nil
}

func (s *SQLStore) UpdateMessageStatus(ctx context.Context, providerID string, status models.Status, failure *models.MessageError) (int64, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: unknown status %q", models.ErrInvalidMessage, status)
	}
	// Struct updates skip zero fields, so a nil failure leaves the error column alone.
	res := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("message_id = ?", providerID).
		Updates(models.Message{Status: status, Error: failure})
	if res.Error != nil {
		return 0, fmt.Errorf("update message status: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *SQLStore) UpsertContact(ctx context.Context, touch models.ContactTouch) error {
	at := touch.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	contact := models.Contact{
		PhoneNumber:  touch.PhoneNumber,
		Name:         contactName(touch),
		LastMessage:  &at,
		MessageCount: 1,
		Unread:       touch.Inbound,
	}
	updates := map[string]any{
		"last_message":  at,
		"message_count": gorm.Expr("contacts.message_count + 1"),
	}
	if touch.Name != "" {
		updates["name"] = touch.Name
	}
	if touch.Inbound {
		updates["unread"] = true
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone_number"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&contact).Error
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

func (s *SQLStore) ListContacts(ctx context.Context) ([]models.Contact, error) {
	contacts := []models.Contact{}
	if err := s.db.WithContext(ctx).Order("last_message DESC, created_at DESC").Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("find contacts: %w", err)
	}
	return contacts, nil
}

func (s *SQLStore) AllContacts(ctx context.Context) ([]models.Contact, error) {
	contacts := []models.Contact{}
	if err := s.db.WithContext(ctx).Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("find contacts: %w", err)
	}
	return contacts, nil
}

func (s *SQLStore) UpdateContactFlags(ctx context.Context, phone string, flags models.ContactFlags) error {
	updates := map[string]any{}
	if flags.Favorite != nil {
		updates["favorite"] = *flags.Favorite
	}
	if flags.Unread != nil {
		updates["unread"] = *flags.Unread
	}
	if flags.IsOnline != nil {
		updates["is_online"] = *flags.IsOnline
		updates["last_seen"] = time.Now().UTC()
	}
	if len(updates) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).Model(&models.Contact{}).Where("phone_number = ?", phone).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update contact: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) PutContact(ctx context.Context, contact *models.Contact) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(contact).Error
	if err != nil {
		return fmt.Errorf("put contact: %w", err)
	}
	return nil
}

func (s *SQLStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
