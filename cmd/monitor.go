package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/aidiscovery-cli/internal/monitoring"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Check recent audit health and raise alerts",
	Long: `Collects failure rate, cost and WhatsApp delivery metrics over the lookback
window and evaluates the alert thresholds. With --send, alerts are posted to
monitoring.webhook_url. With --watch, checks repeat every
monitoring.check_interval_secs until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("monitor"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		send, _ := cmd.Flags().GetBool("send")
		watch, _ := cmd.Flags().GetBool("watch")
		asJSON, _ := cmd.Flags().GetBool("json")

		checker := monitoring.NewChecker(
			monitoring.NewCollector(st),
			monitoring.NewAlerter(cfg.Monitoring),
			cfg.Monitoring,
		)
		if watch {
			checker.Run(ctx)
			return nil
		}

		snap, alerts, err := checker.Check(ctx, send)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"snapshot": snap, "alerts": alerts})
		}
		formatSnapshot(out, snap, alerts)
		return nil
	},
}

func init() {
	monitorCmd.Flags().Bool("send", false, "post alerts to the configured webhook")
	monitorCmd.Flags().Bool("watch", false, "keep checking on an interval")
	monitorCmd.Flags().Bool("json", false, "print the snapshot and alerts as JSON")
	rootCmd.AddCommand(monitorCmd)
}

// formatSnapshot writes the metrics and any alerts to out.
func formatSnapshot(out io.Writer, s *monitoring.MetricsSnapshot, alerts []monitoring.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\tlast %dh\n", s.LookbackHours)
	_, _ = fmt.Fprintf(w, "Audits:\t%d\n", s.AuditsTotal)
	_, _ = fmt.Fprintf(w, "  Completed:\t%d\n", s.AuditsCompleted)
	_, _ = fmt.Fprintf(w, "  Failed:\t%d\n", s.AuditsFailed)
	_, _ = fmt.Fprintf(w, "  In flight:\t%d\n", s.AuditsInFlight)
	_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", s.FailRate*100)
	_, _ = fmt.Fprintf(w, "Avg score:\t%.1f\n", s.AvgScore)
	_, _ = fmt.Fprintf(w, "Avg duration:\t%dms\n", s.AvgProcessingMs)
	_, _ = fmt.Fprintf(w, "Cost:\t$%.4f\n", s.CostUSD)
	_, _ = fmt.Fprintf(w, "WhatsApp sent:\t%d\n", s.WhatsAppSent)
	_, _ = fmt.Fprintf(w, "WhatsApp failed:\t%d\n", s.WhatsAppFailed)
	_ = w.Flush()

	if len(alerts) == 0 {
		_, _ = fmt.Fprintln(out, "\nNo alerts.")
		return
	}
	_, _ = fmt.Fprintln(out, "\nAlerts:")
	for _, a := range alerts {
		_, _ = fmt.Fprintf(out, "  [%s] %s: %s\n", a.Severity, a.Type, a.Message)
	}
}
