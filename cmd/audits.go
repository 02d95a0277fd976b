package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/aidiscovery-cli/internal/model"
)

var auditsCmd = &cobra.Command{
	Use:   "audits",
	Short: "Inspect stored audits",
	Long:  "Commands for listing and viewing audits in the store.",
}

// -- audits list --

var auditsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audits, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		placeID, _ := cmd.Flags().GetString("place-id")
		limit, _ := cmd.Flags().GetInt("limit")

		audits, err := st.ListAudits(ctx, model.AuditFilter{
			Status:  model.AuditStatus(status),
			PlaceID: placeID,
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "audits list")
		}

		if len(audits) == 0 {
			fmt.Fprintln(os.Stderr, "No audits found.")
			return nil
		}

		formatAuditsList(cmd.OutOrStdout(), audits)
		return nil
	},
}

// -- audits show --

var auditsShowCmd = &cobra.Command{
	Use:   "show <audit-id>",
	Short: "Show full details of an audit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		a, err := st.GetAudit(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "audits show")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	},
}

func init() {
	auditsListCmd.Flags().String("status", "", "filter by status (pending, processing, completed, failed)")
	auditsListCmd.Flags().String("place-id", "", "filter by Google place ID")
	auditsListCmd.Flags().Int("limit", 50, "max number of audits to display")

	auditsCmd.AddCommand(auditsListCmd)
	auditsCmd.AddCommand(auditsShowCmd)
	rootCmd.AddCommand(auditsCmd)
}

// formatAuditsList writes a tabular list of audits to out.
func formatAuditsList(out io.Writer, audits []model.Audit) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPLACE\tSTATUS\tSCORE\tTIER\tCOST\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t-----\t----\t----\t-------\t--------")

	for _, a := range audits {
		score, tier, dur := "-", "-", "-"
		if a.Status == model.AuditCompleted {
			score = strconv.Itoa(a.Score)
			tier = a.Tier
		}
		if a.ProcessingTimeMs > 0 {
			dur = fmt.Sprintf("%.1fs", float64(a.ProcessingTimeMs)/1000)
		}

		place := a.PlaceID
		if len(place) > 30 {
			place = place[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t$%.4f\t%s\t%s\n",
			truncateID(a.ID),
			place,
			a.Status,
			score,
			tier,
			a.CostUSD,
			a.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// truncateID shortens a UUID to its first 8 characters for display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
