package storage

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/localnerve/airtable-forms/internal/config"
)

// Cloudinary uploads files with the Cloudinary SDK
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

// New returns a Cloudinary uploader, or Disabled when credentials are missing
func New(cfg *config.Config) (Uploader, error) {
	if !cfg.UploadsConfigured() {
		log.Printf("Cloudinary not configured. Set CLOUDINARY_URL or CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET.")
		return Disabled{}, nil
	}

	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cfg.CloudinaryURL != "" {
		cld, err = cloudinary.NewFromURL(cfg.CloudinaryURL)
	} else {
		cld, err = cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true

	return &Cloudinary{cld: cld}, nil
}

// Upload streams r to the folder under publicID. The resource type is detected
// by the provider. An existing file with the same id is never replaced.
func (c *Cloudinary) Upload(ctx context.Context, r io.Reader, folder, publicID string) (*UploadResult, error) {
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		Overwrite:    api.Bool(false),
		ResourceType: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("upload failed: %s", res.Error.Message)
	}

	return &UploadResult{
		URL:          res.SecureURL,
		PublicID:     res.PublicID,
		Bytes:        int64(res.Bytes),
		Format:       res.Format,
		ResourceType: res.ResourceType,
	}, nil
}

// Destroy removes a stored file of the given resource type, image when empty
func (c *Cloudinary) Destroy(ctx context.Context, publicID, resourceType string) error {
	if resourceType == "" {
		resourceType = DefaultResourceType
	}
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("destroy %s failed: %w", publicID, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("destroy %s failed: %s", publicID, res.Error.Message)
	}
	return nil
}
