package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/localnerve/airtable-forms/internal/forms"
	"github.com/localnerve/airtable-forms/internal/models"
	"github.com/localnerve/airtable-forms/internal/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newFormsCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Inspect stored forms",
	}
	cmd.AddCommand(newFormsListCmd(app))
	cmd.AddCommand(newFormsShowCmd(app))
	return cmd
}

func newFormsListCmd(app *cli) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list --owner <user>",
		Short: "List the forms of an owner, newest first",
		Long: `List the forms of an owner. The owner is the local user id or the
Airtable user id (usr...).

Example:
  formsctl forms list --owner usrAbc123
  formsctl forms list --owner usrAbc123 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := resolveOwner(app.db, owner)
			if err != nil {
				return err
			}
			list, err := (&services.FormStore{DB: app.db}).ListByOwner(ownerID)
			if err != nil {
				return err
			}
			if app.jsonOut {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			return writeFormTable(cmd.OutOrStdout(), list)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner user id or Airtable user id")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newFormsShowCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one form with its questions as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := (&services.FormStore{DB: app.db}).GetByID(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), schema)
		},
	}
}

// resolveOwner accepts either the local user id or the Airtable user id
func resolveOwner(db *gorm.DB, owner string) (string, error) {
	var user models.User
	err := db.Where("id = ? OR airtable_user_id = ?", owner, owner).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("unknown owner %q", owner)
	}
	if err != nil {
		return "", fmt.Errorf("find owner: %w", err)
	}
	return user.ID, nil
}

func writeFormTable(w io.Writer, list []*forms.Schema) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBASE\tTABLE\tQUESTIONS\tCREATED")
	for _, f := range list {
		table := f.TableRef.TableName
		if table == "" {
			table = f.TableRef.TableID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			f.ID, f.Name, f.TableRef.BaseID, table, len(f.Questions), f.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
