// Package storage uploads attachment files to object storage.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotConfigured is returned by every call when no provider credentials were supplied
var ErrNotConfigured = errors.New("attachment uploads are not configured")

// DefaultResourceType is assumed for files stored without a recorded resource type
const DefaultResourceType = "image"

// UploadResult describes a stored file. ResourceType is needed to destroy it.
type UploadResult struct {
	URL          string `json:"url"`
	PublicID     string `json:"public_id"`
	Bytes        int64  `json:"bytes"`
	Format       string `json:"format"`
	ResourceType string `json:"-"`
}

// Uploader stores and removes files in object storage
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, folder, publicID string) (*UploadResult, error)
	Destroy(ctx context.Context, publicID, resourceType string) error
}

// Disabled is the Uploader used when no provider is configured
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, r io.Reader, folder, publicID string) (*UploadResult, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Destroy(ctx context.Context, publicID, resourceType string) error {
	return ErrNotConfigured
}

// NameHint strips the extension from an uploaded file name
func NameHint(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// UniqueName suffixes a name hint with a random token so files sharing a name
// never share a public id.
func UniqueName(nameHint string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if nameHint == "" {
		return token
	}
	return nameHint + "_" + token
}
