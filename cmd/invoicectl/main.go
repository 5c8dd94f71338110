package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/bootstrap"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extraction"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "invoicectl",
		Short:         "Extract invoice fields from PDFs, images and e-mail receipts",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand needs: config, logger, engine and the
// optional run log.
type env struct {
	cfg    *common.Config
	logger *slog.Logger
	engine *extraction.Engine
	runs   *repository.RunRepository
}

func setup(ctx context.Context) (*env, error) {
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := common.NewLoggerTo(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	engine, err := bootstrap.Engine(cfg, logger)
	if err != nil {
		return nil, err
	}
	runs, err := bootstrap.Runs(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, engine: engine, runs: runs}, nil
}

func (e *env) Close() {
	if e.runs != nil {
		_ = e.runs.Close()
	}
}

// save records a run when a database is configured. Failures are logged only.
func (e *env) save(ctx context.Context, run *entity.ExtractionRun) {
	if e.runs == nil {
		return
	}
	if err := e.runs.Save(ctx, run); err != nil {
		e.logger.Error("run log save failed", "file", run.Filename, "error", err)
	}
}
