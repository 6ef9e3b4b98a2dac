package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsapp-console/internal/logger"
	"whatsapp-console/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	messagesCollection = "messages"
	contactsCollection = "contacts"

	namespaceExists = 48
)

// MongoStore keeps messages and contacts as documents. The client is opened
// once in main and handed to every handler through the Store interface.
type MongoStore struct {
	client   *mongo.Client
	db       *mongo.Database
	messages *mongo.Collection
	contacts *mongo.Collection
}

func ConnectMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client:   client,
		db:       db,
		messages: db.Collection(messagesCollection),
		contacts: db.Collection(contactsCollection),
	}
	if err := s.migrate(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("connected to MongoDB", "database", dbName)
	return s, nil
}

// Database exposes the handle so GridFS can share the connection.
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

func (s *MongoStore) migrate(ctx context.Context) error {
	opts := options.CreateCollection().SetValidator(messageSchema())
	if err := s.db.CreateCollection(ctx, messagesCollection, opts); err != nil {
		var cmdErr mongo.CommandError
		if !errors.As(err, &cmdErr) || cmdErr.Code != namespaceExists {
			return fmt.Errorf("create messages collection: %w", err)
		}
	}

	_, err := s.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "from", Value: 1}, {Key: "to", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "messageId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}

	_, err = s.contacts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "phoneNumber", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create contact index: %w", err)
	}
	return nil
}

func messageSchema() bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": bson.A{"from", "to", "type"},
		"properties": bson.M{
			"from": bson.M{"bsonType": "string"},
			"to":   bson.M{"bsonType": "string"},
			"type": bson.M{"enum": bson.A{
				string(models.DirectionIncoming), string(models.DirectionOutgoing), string(models.DirectionTemplate),
			}},
			"messageType": bson.M{"enum": bson.A{
				"text", "template", "image", "audio", "video", "document", "contact", "poll", "event", "sticker",
			}},
			"status": bson.M{"enum": bson.A{"sent", "delivered", "read", "failed"}},
		},
	}}
}

func (s *MongoStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if err := prepare(msg); err != nil {
		return err
	}
	now := time.Now().UTC()
	if msg.ID == "" {
		msg.ID = primitive.NewObjectID().Hex()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now

	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: message %s", ErrDuplicate, msg.ID)
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *MongoStore) MessagesFor(ctx context.Context, participant string) ([]models.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"from": participant},
		bson.M{"to": participant},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "createdAt", Value: 1}})
	return s.findMessages(ctx, filter, opts)
}

func (s *MongoStore) AllMessages(ctx context.Context) ([]models.Message, error) {
	return s.findMessages(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
}

func (s *MongoStore) findMessages(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Message, error) {
	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}

func (s *MongoStore) UpdateMessageStatus(ctx context.Context, providerID string, status models.Status, failure *models.MessageError) (int64, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: unknown status %q", models.ErrInvalidMessage, status)
	}
	set := bson.M{"status": status, "updatedAt": time.Now().UTC()}
	if failure != nil {
		set["error"] = failure
	}
	res, err := s.messages.UpdateMany(ctx, bson.M{"messageId": providerID}, bson.M{"$set": set})
	if err != nil {
		return 0, fmt.Errorf("update message status: %w", err)
	}
	return res.MatchedCount, nil
}

func (s *MongoStore) UpsertContact(ctx context.Context, touch models.ContactTouch) error {
	at := touch.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	set := bson.M{"lastMessage": at}
	onInsert := bson.M{
		"createdAt": time.Now().UTC(),
		"isOnline":  false,
		"isGroup":   false,
		"favorite":  false,
	}
	if touch.Name != "" {
		set["name"] = touch.Name
	} else {
		onInsert["name"] = touch.PhoneNumber
	}
	if touch.Inbound {
		set["unread"] = true
	} else {
		onInsert["unread"] = false
	}

	update := bson.M{
		"$set":         set,
		"$inc":         bson.M{"messageCount": 1},
		"$setOnInsert": onInsert,
	}
	_, err := s.contacts.UpdateOne(ctx, bson.M{"phoneNumber": touch.PhoneNumber}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

func (s *MongoStore) ListContacts(ctx context.Context) ([]models.Contact, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastMessage", Value: -1}, {Key: "createdAt", Value: -1}})
	return s.findContacts(ctx, opts)
}

func (s *MongoStore) AllContacts(ctx context.Context) ([]models.Contact, error) {
	return s.findContacts(ctx, options.Find())
}

func (s *MongoStore) findContacts(ctx context.Context, opts *options.FindOptions) ([]models.Contact, error) {
	cursor, err := s.contacts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find contacts: %w", err)
	}
	contacts := []models.Contact{}
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	return contacts, nil
}

func (s *MongoStore) UpdateContactFlags(ctx context.Context, phone string, flags models.ContactFlags) error {
	set := bson.M{}
	if flags.Favorite != nil {
		set["favorite"] = *flags.Favorite
	}
	if flags.Unread != nil {
		set["unread"] = *flags.Unread
	}
	if flags.IsOnline != nil {
		set["isOnline"] = *flags.IsOnline
		set["lastSeen"] = time.Now().UTC()
	}
	if len(set) == 0 {
		return nil
	}

	res, err := s.contacts.UpdateOne(ctx, bson.M{"phoneNumber": phone}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) PutContact(ctx context.Context, contact *models.Contact) error {
	_, err := s.contacts.ReplaceOne(ctx,
		bson.M{"phoneNumber": contact.PhoneNumber},
		contact,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("put contact: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
