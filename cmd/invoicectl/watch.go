package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/async"
	"github.com/joseph-ayodele/invoice-extractor/internal/extraction"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
)

func watchCmd() *cobra.Command {
	var (
		workers  int
		initial  bool
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Extract invoices as they land in inbox folders",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			var mu sync.Mutex
			enc := json.NewEncoder(os.Stdout)
			q := async.NewQueue(e.engine, e.logger,
				async.WithWorkers(workers),
				async.WithCallback(func(res async.Result) {
					if res.Err != nil {
						return
					}
					run := extraction.NewRun(res.Input, res.Report)
					run.Filename = res.Job.Path
					e.save(context.WithoutCancel(ctx), run)
					mu.Lock()
					_ = enc.Encode(run)
					mu.Unlock()
				}),
			)
			defer q.Shutdown(context.Background())

			paths, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
				Roots:       args,
				InitialScan: initial,
				SkipHidden:  true,
				Debounce:    debounce,
			}, e.logger)
			if err != nil {
				return err
			}

			for paths != nil || errs != nil {
				select {
				case p, ok := <-paths:
					if !ok {
						paths = nil
						continue
					}
					if err := q.Enqueue(ctx, async.Job{Path: p}); err != nil {
						e.logger.Warn("enqueue failed", "path", p, "error", err)
					}
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					e.logger.Error("watch error", "error", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 2, "concurrent extractions")
	cmd.Flags().BoolVar(&initial, "initial", false, "also extract files already present")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before a changed file is extracted")
	return cmd
}
