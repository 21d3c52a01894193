package main

import (
	"fmt"
	"time"

	"github.com/localnerve/airtable-forms/internal/models"
	"github.com/localnerve/airtable-forms/internal/services"
	"github.com/localnerve/airtable-forms/internal/storage"
	"github.com/spf13/cobra"
)

func newSweepCmd(app *cli) *cobra.Command {
	var olderThan time.Duration
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove staged attachments never committed to a record",
		Long: `Sweep destroys uploaded attachments whose submission never reached Airtable
and deletes their staging rows. Only rows older than --older-than are touched.

Example:
  formsctl sweep --older-than 48h
  formsctl sweep --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("older-than") {
				olderThan = app.cfg.StagedUploadTTL
			}
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}

			if dryRun {
				var count int64
				cutoff := time.Now().UTC().Add(-olderThan)
				if err := app.db.Model(&models.StagedUpload{}).
					Where("committed = ? AND created_at < ?", false, cutoff).
					Count(&count).Error; err != nil {
					return fmt.Errorf("count staged uploads: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d staged uploads older than %s would be removed\n", count, olderThan)
				return nil
			}

			uploader, err := storage.New(app.cfg)
			if err != nil {
				return fmt.Errorf("object storage: %w", err)
			}
			uploads := &services.UploadService{DB: app.db, Uploader: uploader, Folder: app.cfg.UploadFolder}

			removed, err := uploads.Sweep(cmd.Context(), olderThan)
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d staged uploads older than %s\n", removed, olderThan)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "minimum age of removed uploads (default STAGED_UPLOAD_TTL)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only count what would be removed")
	return cmd
}
