package database

import (
	"context"
	"errors"
	"fmt"

	"whatsapp-console/internal/logger"
)

type CopyStats struct {
	Contacts int
	Messages int
	Skipped  int
}

// Copy moves every contact and message from src to dst, keeping ids and timestamps.
// Messages already present in dst are skipped so the copy can be re-run.
func Copy(ctx context.Context, src, dst Store) (CopyStats, error) {
	var stats CopyStats

	contacts, err := src.AllContacts(ctx)
	if err != nil {
		return stats, fmt.Errorf("read contacts: %w", err)
	}
	for i := range contacts {
		if err := dst.PutContact(ctx, &contacts[i]); err != nil {
			return stats, fmt.Errorf("write contact %s: %w", contacts[i].PhoneNumber, err)
		}
		stats.Contacts++
	}
	logger.Info("contacts copied", "count", stats.Contacts)

	messages, err := src.AllMessages(ctx)
	if err != nil {
		return stats, fmt.Errorf("read messages: %w", err)
	}
	for i := range messages {
		err := dst.InsertMessage(ctx, &messages[i])
		if errors.Is(err, ErrDuplicate) {
			stats.Skipped++
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("write message %s: %w", messages[i].ID, err)
		}
		stats.Messages++
	}
	logger.Info("messages copied", "count", stats.Messages, "skipped", stats.Skipped)
	return stats, nil
}
