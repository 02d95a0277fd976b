package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/aidiscovery-cli/internal/audit"
	"github.com/sells-group/aidiscovery-cli/internal/intake"
	"github.com/sells-group/aidiscovery-cli/internal/report"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Audit every business listed in a CSV or XLSX file",
	Long: `Reads businesses from a CSV (comma or semicolon separated) or XLSX file and
audits them concurrently. The header row names the columns; Portuguese names
such as nome, cidade and telefone are accepted.

Examples:
  batch --input leads.csv
  batch --input leads.xlsx --concurrency 10 --no-whatsapp --out results.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input, _ := cmd.Flags().GetString("input")
		limit, _ := cmd.Flags().GetInt("limit")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		noWhatsApp, _ := cmd.Flags().GetBool("no-whatsapp")
		fresh, _ := cmd.Flags().GetBool("fresh")
		outPath, _ := cmd.Flags().GetString("out")

		reqs, err := intake.ReadRequests(ctx, input)
		if err != nil {
			return err
		}
		for i := range reqs {
			reqs[i].SkipWhatsApp = noWhatsApp
			reqs[i].Fresh = fresh
		}

		env, err := initAudit(ctx, "audit")
		if err != nil {
			return err
		}
		defer env.Close()

		if concurrency <= 0 {
			concurrency = cfg.Audit.Concurrency
		}

		entries, err := processBatch(ctx, reqs, limit, concurrency, env.Service.Run)
		if err != nil {
			return err
		}
		if outPath == "" {
			return nil
		}

		f, err := os.Create(outPath)
		if err != nil {
			return eris.Wrapf(err, "create %s", outPath)
		}
		defer f.Close() //nolint:errcheck
		if err := report.WriteXLSX(f, entries); err != nil {
			return err
		}
		zap.L().Info("batch results written", zap.String("path", outPath), zap.Int("audits", len(entries)))
		return nil
	},
}

func init() {
	f := batchCmd.Flags()
	f.String("input", "", "CSV or XLSX file of businesses")
	f.Int("limit", 0, "audit at most this many rows (0 = all)")
	f.Int("concurrency", 0, "parallel audits (default audit.concurrency)")
	f.Bool("no-whatsapp", false, "do not send reports over WhatsApp")
	f.Bool("fresh", false, "ignore cached audits")
	f.String("out", "", "write an XLSX summary of the finished audits to this file")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// auditFunc runs one audit.
type auditFunc func(ctx context.Context, req audit.Request) (*audit.Result, error)

// processBatch audits reqs with at most concurrency in flight. A failed audit
// is logged and counted, never fatal to the batch. Entries come back in input
// order for every audit that produced a result.
func processBatch(ctx context.Context, reqs []audit.Request, limit, concurrency int, run auditFunc) ([]report.Entry, error) {
	if len(reqs) == 0 {
		zap.L().Info("no businesses to audit")
		return nil, nil
	}

	if limit > 0 && len(reqs) > limit {
		reqs = reqs[:limit]
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("businesses", len(reqs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed, cached atomic.Int64
	results := make([]*audit.Result, len(reqs))

	for i, req := range reqs {
		g.Go(func() error {
			log := zap.L().With(zap.String("business", req.BusinessName), zap.String("city", req.City))

			res, err := run(gctx, req)
			if err != nil {
				failed.Add(1)
				log.Error("audit failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			results[i] = res
			succeeded.Add(1)
			if res.Cached {
				cached.Add(1)
			}
			log.Info("audit complete",
				zap.String("audit_id", res.Audit.ID),
				zap.Int("score", res.Audit.Score),
				zap.Bool("cached", res.Cached),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Int64("cached", cached.Load()),
	)

	var entries []report.Entry
	for _, res := range results {
		if res != nil {
			entries = append(entries, report.Entry{Audit: res.Audit, Business: res.Business})
		}
	}
	return entries, nil
}
