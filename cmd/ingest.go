package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"resume-assist/internal/chunker"
	"resume-assist/internal/helper"
	"resume-assist/internal/ingest"
	"resume-assist/internal/loader"
	"resume-assist/internal/models"
)

// chunkView is the dry-run rendering of a chunk.
type chunkView struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Page       *int   `json:"page"`
	StartIndex int    `json:"start_index"`
	Length     int    `json:"length"`
}

func newIngestCmd(a *app) *cobra.Command {
	var (
		globs  []string
		reset  bool
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Load, chunk, embed and upsert every document in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir := a.cfg.RAG.DataDir
			if len(args) == 1 {
				dir = args[0]
			}
			if !cmd.Flags().Changed("glob") {
				globs = a.cfg.RAG.FileTypes
			}

			splitter, err := chunker.NewFromConfig(&a.cfg.RAG)
			if err != nil {
				return err
			}

			if dryRun {
				_, chunks, diags, err := ingest.Prepare(ctx, loader.New(), splitter, dir, globs)
				if err != nil {
					return err
				}
				views := make([]chunkView, len(chunks))
				for i, c := range chunks {
					views[i] = chunkView{
						ID:         c.Metadata.ID,
						Source:     c.Metadata.Source,
						Page:       c.Metadata.Page,
						StartIndex: c.Metadata.StartIndex,
						Length:     len([]rune(c.Content)),
					}
				}
				helper.PrettyPrint(cmd.OutOrStdout(), views)
				printDiagnostics(cmd, diags)
				return nil
			}

			svc, err := a.embedder(ctx)
			if err != nil {
				return err
			}
			store, err := a.openStore(ctx, svc)
			if err != nil {
				return err
			}
			defer store.Close()

			pipeline, err := ingest.NewPipeline(loader.New(), splitter, svc, store,
				ingest.WithPoolSize(a.cfg.RAG.Workers),
				ingest.WithBatchSize(a.cfg.RAG.EmbedBatchSize),
			)
			if err != nil {
				return err
			}
			defer pipeline.Release()

			run := pipeline.Ingest
			if reset {
				run = pipeline.Replace
			}
			report, err := run(ctx, dir, globs)
			if report != nil {
				printDiagnostics(cmd, report.Diagnostics)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d documents, %d chunks, %d upserted in %s\n",
				report.RunID, report.Documents, report.Chunks, report.Upserted, report.Duration)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&globs, "glob", nil, "File filter, may be repeated (default from rag.file_types)")
	cmd.Flags().BoolVar(&reset, "reset", false, "Clear the collection before ingesting")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Load and chunk only, print the chunks")
	return cmd
}

func printDiagnostics(cmd *cobra.Command, diags []models.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s\n", d)
	}
}
