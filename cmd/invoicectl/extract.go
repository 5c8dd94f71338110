package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/extraction"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
)

func extractCmd() *cobra.Command {
	var mimeType string
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract fields from one file and print the JSON report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			in, err := ingest.ReadInput(args[0])
			if err != nil {
				return err
			}
			if mimeType != "" {
				in.MIMEType = mimeType
			}

			rep := e.engine.Run(ctx, in)
			e.save(ctx, extraction.NewRun(in, rep))

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mimeType, "mime", "", "declared MIME type (default: sniffed from content)")
	return cmd
}
