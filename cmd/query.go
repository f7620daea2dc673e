package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"resume-assist/internal/llmservice"
	"resume-assist/internal/rag"
	"resume-assist/internal/vectorstore"
)

func newQueryCmd(a *app) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Print the chunks most similar to a text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("top-k") {
				topK = a.cfg.RAG.TopK
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

			results, err := vectorstore.NewIndex(store, svc).Query(ctx, strings.Join(args, " "), topK)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, r := range results {
				fmt.Fprintf(out, "%d. [%.4f] %s\n%s\n\n", i+1, r.Score, r.Chunk.Metadata.ID, r.Chunk.Content)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "no results")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of results (default from rag.top_k)")
	return cmd
}

func newAskCmd(a *app) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the ingested documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.embedder(ctx)
			if err != nil {
				return err
			}
			store, err := a.openStore(ctx, svc)
			if err != nil {
				return err
			}
			defer store.Close()

			llm, err := llmservice.NewLLM(&a.cfg.LLM)
			if err != nil {
				return err
			}
			r := rag.NewRAG(vectorstore.NewIndex(store, svc), llm, a.cfg.RAG.TopK)
			resp, err := r.Answer(ctx, strings.Join(args, " "), topK)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\nSources: %s\n", resp.Content, resp.Source)
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of chunks used as context (default from rag.top_k)")
	return cmd
}
