package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/async"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/extraction"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
)

func batchCmd() *cobra.Command {
	var (
		out        string
		workers    int
		timeout    time.Duration
		exts       []string
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "batch [dir]",
		Short: "Extract every invoice under a directory and write an XLSX report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if out == "" {
				out = filepath.Join(filepath.Dir(filepath.Clean(dir)), "invoices.xlsx")
			}

			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			files, stats, err := ingest.ScanDirectory(ctx, dir, exts, skipHidden, e.logger)
			if err != nil {
				return err
			}

			var (
				mu     sync.Mutex
				runs   []*entity.ExtractionRun
				failed int
			)
			q := async.NewQueue(e.engine, e.logger,
				async.WithWorkers(workers),
				async.WithProcessTimeout(timeout),
				async.WithCallback(func(res async.Result) {
					if res.Err != nil {
						mu.Lock()
						failed++
						mu.Unlock()
						return
					}
					run := extraction.NewRun(res.Input, res.Report)
					run.Filename = res.Job.Path
					e.save(context.WithoutCancel(ctx), run)
					mu.Lock()
					runs = append(runs, run)
					mu.Unlock()
				}),
			)

			for _, f := range files {
				if f.Deduplicated || f.Err != "" {
					continue
				}
				if err := q.Enqueue(ctx, async.Job{Path: f.Path}); err != nil {
					q.Shutdown(context.Background())
					return err
				}
			}
			q.Shutdown(context.Background())

			sort.Slice(runs, func(i, j int) bool { return runs[i].Filename < runs[j].Filename })
			data, err := export.WriteRunsXLSX(runs, e.logger)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			fmt.Printf("scanned=%d matched=%d deduplicated=%d extracted=%d failed=%d report=%s\n",
				stats.Scanned, stats.Matched, stats.Deduplicated, len(runs), failed, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "XLSX report path (default: invoices.xlsx next to dir)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "concurrent extractions")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "per-file extraction timeout")
	cmd.Flags().StringSliceVar(&exts, "ext", nil, "file extensions to include (default: all supported)")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip hidden files and directories")
	return cmd
}
