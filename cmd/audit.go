package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/aidiscovery-cli/internal/audit"
	"github.com/sells-group/aidiscovery-cli/internal/report"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit one business and print its report",
	Long: `Runs the full discovery audit for one business: place lookup, reviews,
nearby competitors, Claude analyses, scoring and recommendations. The report
is printed and, when a phone is given and WhatsApp is configured, sent to it.

Examples:
  # Audit by name and city
  audit --name "Clínica Sorriso" --city Curitiba

  # Audit a known place and send the report
  audit --place-id ChIJ... --phone 41999990000

  # Ignore a recent cached audit and print JSON
  audit --name "Padaria Central" --city Recife --fresh --json`,
	RunE: runAudit,
}

func init() {
	addAuditFlags(auditCmd.Flags())
	rootCmd.AddCommand(auditCmd)
}

func addAuditFlags(f *pflag.FlagSet) {
	f.String("name", "", "business name")
	f.String("city", "", "city the business is in")
	f.String("phone", "", "WhatsApp number that receives the report")
	f.String("category", "", "business category when Google has none")
	f.String("place-id", "", "Google place ID (skips the text search)")
	f.StringSlice("claims", nil, "strengths the business claims, checked against reviews")
	f.Bool("no-whatsapp", false, "do not send the report over WhatsApp")
	f.Bool("fresh", false, "ignore cached audits")
	f.Bool("json", false, "print the audit as JSON instead of the text report")
}

func runAudit(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req, err := requestFromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	env, err := initAudit(ctx, "audit")
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.Service.Run(ctx, req)
	if err != nil {
		return eris.Wrap(err, "audit")
	}
	if res.Cached {
		zap.L().Info("reused recent audit",
			zap.String("audit_id", res.Audit.ID),
			zap.Time("created_at", res.Audit.CreatedAt),
		)
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Audit)
	}
	_, err = fmt.Fprintln(out, report.Text(res.Audit, res.Business))
	return err
}

// requestFromFlags builds an audit request from the audit command's flags.
func requestFromFlags(f *pflag.FlagSet) (audit.Request, error) {
	name, _ := f.GetString("name")
	city, _ := f.GetString("city")
	phone, _ := f.GetString("phone")
	category, _ := f.GetString("category")
	placeID, _ := f.GetString("place-id")
	claims, _ := f.GetStringSlice("claims")
	noWhatsApp, _ := f.GetBool("no-whatsapp")
	fresh, _ := f.GetBool("fresh")

	req := audit.Request{
		BusinessName: strings.TrimSpace(name),
		City:         strings.TrimSpace(city),
		Phone:        strings.TrimSpace(phone),
		Category:     strings.TrimSpace(category),
		PlaceID:      strings.TrimSpace(placeID),
		Claims:       claims,
		SkipWhatsApp: noWhatsApp,
		Fresh:        fresh,
	}
	if err := req.Validate(); err != nil {
		return audit.Request{}, eris.Wrap(err, "--name and --city, or --place-id, are required")
	}
	return req, nil
}
