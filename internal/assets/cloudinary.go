package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"whatsapp-console/internal/logger"
	"whatsapp-console/internal/models"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const stickerTransformation = "c_limit,w_512,h_512/f_webp/q_auto:best"

// uploadAPI is the part of the Cloudinary upload API this host uses.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

type Cloudinary struct {
	api    uploadAPI
	folder string
}

func NewCloudinary(cloudName, apiKey, apiSecret, folder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to init cloudinary: %w", err)
	}
	return &Cloudinary{api: &cld.Upload, folder: folder}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, file File) (*Asset, error) {
	params := uploader.UploadParams{
		PublicID:     publicID(file.Name),
		Folder:       c.folder,
		ResourceType: "auto",
		Overwrite:    api.Bool(true),
	}
	// Stickers must be 512x512 webp or the provider rejects them.
	if file.Kind == models.KindSticker {
		params.ResourceType = "image"
		params.Transformation = stickerTransformation
	}

	res, err := c.api.Upload(ctx, bytes.NewReader(file.Data), params)
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return nil, errors.New("cloudinary upload: no URL in response")
	}

	logger.Debug("asset uploaded", "public_id", res.PublicID, "bytes", res.Bytes)
	return &Asset{
		PublicID: res.PublicID,
		URL:      res.SecureURL,
		Bytes:    int64(res.Bytes),
		Format:   res.Format,
	}, nil
}

func (c *Cloudinary) Delete(ctx context.Context, id string) error {
	res, err := c.api.Destroy(ctx, uploader.DestroyParams{PublicID: id})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	if res.Result == "not found" {
		return ErrAssetNotFound
	}
	return nil
}
