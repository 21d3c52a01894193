package services

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/localnerve/airtable-forms/internal/models"
	"github.com/localnerve/airtable-forms/internal/storage"
	"github.com/localnerve/airtable-forms/internal/types"
	"gorm.io/gorm"
)

// DefaultMaxFiles bounds the number of files in one upload request
const DefaultMaxFiles = 10

// Attachment is one file received from a caller
type Attachment struct {
	Filename string
	Data     []byte
}

// UploadService pushes attachments to object storage and tracks them as staged
// until a submission commits them.
type UploadService struct {
	DB       *gorm.DB
	Uploader storage.Uploader
	Folder   string
	MaxFiles int
}

// Stage uploads every file, one call per file, and records each as uncommitted.
// The first failure aborts the remaining uploads.
func (s *UploadService) Stage(ctx context.Context, files []Attachment, folder string) ([]storage.UploadResult, error) {
	maxFiles := s.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	if len(files) > maxFiles {
		return nil, types.NewValidationError("Too many files, at most %d are allowed", maxFiles)
	}
	if folder == "" {
		folder = s.Folder
	}

	results := make([]storage.UploadResult, 0, len(files))
	for _, f := range files {
		publicID := storage.UniqueName(storage.NameHint(f.Filename))
		res, err := s.Uploader.Upload(ctx, bytes.NewReader(f.Data), folder, publicID)
		if err != nil {
			return nil, uploadError(err)
		}

		staged := models.StagedUpload{
			PublicID:     res.PublicID,
			URL:          res.URL,
			Bytes:        res.Bytes,
			Format:       res.Format,
			ResourceType: res.ResourceType,
		}
		if err := s.DB.Create(&staged).Error; err != nil {
			log.Printf("Failed to record staged upload %s: %v", res.PublicID, err)
			s.discard(ctx, res)
			return nil, types.NewPersistenceError(err)
		}

		results = append(results, *res)
	}

	return results, nil
}

// discard removes an upload that could not be recorded, unless its public id
// already belongs to a recorded upload.
func (s *UploadService) discard(ctx context.Context, res *storage.UploadResult) {
	var owners int64
	if err := s.DB.Model(&models.StagedUpload{}).Where("public_id = ?", res.PublicID).Count(&owners).Error; err != nil || owners > 0 {
		log.Printf("Keeping upload %s, it is recorded or its state is unknown", res.PublicID)
		return
	}
	if err := s.Uploader.Destroy(ctx, res.PublicID, res.ResourceType); err != nil {
		log.Printf("Failed to remove unrecorded upload %s: %v", res.PublicID, err)
	}
}

// Commit marks the staged uploads behind the given urls as referenced by a
// created record. Urls that were never staged here are ignored.
func (s *UploadService) Commit(urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	err := s.DB.Model(&models.StagedUpload{}).
		Where("url IN ?", urls).
		Update("committed", true).Error
	if err != nil {
		return types.NewPersistenceError(err)
	}
	return nil
}

// Sweep destroys uncommitted uploads created before now-olderThan and returns
// how many were removed. Uploads that fail to destroy are kept for the next sweep.
func (s *UploadService) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	var stale []models.StagedUpload
	err := s.DB.Where("committed = ? AND created_at < ?", false, cutoff).
		Order("upload_id").
		Find(&stale).Error
	if err != nil {
		return 0, types.NewPersistenceError(err)
	}

	removed := 0
	for _, up := range stale {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := s.Uploader.Destroy(ctx, up.PublicID, up.ResourceType); err != nil {
			if errors.Is(err, storage.ErrNotConfigured) {
				return removed, uploadError(err)
			}
			log.Printf("Sweep: failed to destroy %s: %v", up.PublicID, err)
			continue
		}
		if err := s.DB.Delete(&models.StagedUpload{}, up.UploadID).Error; err != nil {
			return removed, types.NewPersistenceError(err)
		}
		removed++
	}

	if removed > 0 {
		log.Printf("Sweep: removed %d staged uploads older than %s", removed, olderThan)
	}
	return removed, nil
}

// StartSweeper runs Sweep every interval until ctx is done
func (s *UploadService) StartSweeper(ctx context.Context, interval, olderThan time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx, olderThan); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("Sweep failed: %v", err)
				}
			}
		}
	}()
}

func uploadError(err error) error {
	if errors.Is(err, storage.ErrNotConfigured) {
		return &types.CustomError{
			Code:    http.StatusServiceUnavailable,
			Message: "Attachment uploads are not configured",
			Type:    types.TypeRemote,
			Err:     err,
		}
	}
	return types.NewRemoteTransportError(err)
}
