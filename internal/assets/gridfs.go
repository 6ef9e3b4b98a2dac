package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mediaBucket = "media_files"

// GridFS keeps attachments in the Mongo database itself and serves them
// from GET /media/:id on this server.
type GridFS struct {
	bucket  *gridfs.Bucket
	baseURL string
}

func NewGridFS(db *mongo.Database, baseURL string) (*GridFS, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(mediaBucket))
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket: %w", err)
	}
	return &GridFS{bucket: bucket, baseURL: baseURL}, nil
}

// Upload writes file to the shared bucket. The bucket is used by every request,
// so per-request deadlines are never set on it.
func (g *GridFS) Upload(ctx context.Context, file File) (*Asset, error) {
	opts := options.GridFSUpload().SetMetadata(bson.M{
		"contentType": file.MimeType,
		"kind":        string(file.Kind),
		"uploadedAt":  time.Now().UTC(),
	})
	id, err := g.bucket.UploadFromStream(file.Name, bytes.NewReader(file.Data), opts)
	if err != nil {
		return nil, fmt.Errorf("gridfs upload: %w", err)
	}

	return &Asset{
		PublicID: id.Hex(),
		URL:      g.baseURL + "/media/" + id.Hex(),
		Bytes:    int64(len(file.Data)),
		Format:   file.MimeType,
	}, nil
}

// Download is an open GridFS file. Callers must Close it.
type Download struct {
	io.ReadCloser
	Name        string
	ContentType string
	Length      int64
}

func (g *GridFS) Open(ctx context.Context, id string) (*Download, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAssetNotFound
	}
	stream, err := g.bucket.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("gridfs open: %w", err)
	}

	f := stream.GetFile()
	contentType := "application/octet-stream"
	if v, ok := f.Metadata.Lookup("contentType").StringValueOK(); ok && v != "" {
		contentType = v
	}
	return &Download{ReadCloser: stream, Name: f.Name, ContentType: contentType, Length: f.Length}, nil
}

func (g *GridFS) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrAssetNotFound
	}
	if err := g.bucket.DeleteContext(ctx, oid); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrAssetNotFound
		}
		return fmt.Errorf("gridfs delete: %w", err)
	}
	return nil
}
