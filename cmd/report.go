package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/aidiscovery-cli/internal/model"
	"github.com/sells-group/aidiscovery-cli/internal/report"
	"github.com/sells-group/aidiscovery-cli/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report <audit-id>...",
	Short: "Render stored audits as text, WhatsApp messages or a spreadsheet",
	Long: `Renders completed audits from the store.

Examples:
  report 3f2a9c1e-...
  report 3f2a9c1e-... --format whatsapp
  report 3f2a9c1e-... 8b7d0a44-... --format xlsx --out audits.xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		if format == "xlsx" && outPath == "" {
			return eris.New("--out is required for xlsx reports")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		entries, err := loadEntries(ctx, st, args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return eris.Wrapf(err, "create %s", outPath)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		if err := writeReport(out, format, entries); err != nil {
			return err
		}
		if outPath != "" {
			zap.L().Info("report written", zap.String("path", outPath), zap.Int("audits", len(entries)))
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().String("format", "text", "output format: text, whatsapp or xlsx")
	reportCmd.Flags().String("out", "", "write to this file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}

// loadEntries reads each audit and its business. A missing business renders
// from the audit alone.
func loadEntries(ctx context.Context, st store.Store, ids []string) ([]report.Entry, error) {
	entries := make([]report.Entry, 0, len(ids))
	for _, id := range ids {
		a, err := st.GetAudit(ctx, id)
		if err != nil {
			return nil, eris.Wrapf(err, "load audit %s", id)
		}
		b := model.BusinessSignal{ID: a.BusinessID, PlaceID: a.PlaceID}
		if found, err := st.GetBusiness(ctx, a.BusinessID); err == nil {
			b = *found
		} else {
			zap.L().Warn("business lookup failed", zap.String("audit_id", id), zap.Error(err))
		}
		entries = append(entries, report.Entry{Audit: a, Business: b})
	}
	return entries, nil
}

// writeReport renders entries in format. Text formats need completed audits;
// the spreadsheet lists every status.
func writeReport(out io.Writer, format string, entries []report.Entry) error {
	if format == "xlsx" {
		return report.WriteXLSX(out, entries)
	}

	var render func(*model.Audit, model.BusinessSignal) string
	switch format {
	case "", "text":
		render = report.Text
	case "whatsapp":
		render = report.WhatsApp
	default:
		return eris.Errorf("unknown report format %q (want text, whatsapp or xlsx)", format)
	}

	for i, e := range entries {
		if e.Audit.Status != model.AuditCompleted {
			return eris.Errorf("audit %s is %s", e.Audit.ID, e.Audit.Status)
		}
		if i > 0 {
			if _, err := fmt.Fprintln(out); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(out, render(e.Audit, e.Business)); err != nil {
			return eris.Wrap(err, "write report")
		}
	}
	return nil
}
