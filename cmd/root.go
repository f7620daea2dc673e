package main

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
	"github.com/spf13/cobra"

	"resume-assist/internal/config"
	"resume-assist/internal/embedding"
	"resume-assist/internal/vectorstore"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "resume-assist",
		Short:         "Ingest documents into a vector store and ask questions about them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogger(a.logLevel); err != nil {
				return err
			}
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", configFilePath, "Path to the YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")

	cmd.AddCommand(newIngestCmd(a))
	cmd.AddCommand(newQueryCmd(a))
	cmd.AddCommand(newAskCmd(a))
	cmd.AddCommand(newResetCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newMigrateCmd(a))
	return cmd
}

func (a *app) embedder(ctx context.Context) (*embedding.Service, error) {
	return embedding.NewServiceFromConfig(ctx, &a.cfg.EmbedLLM)
}

// openStore opens the configured vector store. svc may be nil for commands
// that never embed.
func (a *app) openStore(ctx context.Context, svc *embedding.Service) (vectorstore.Store, error) {
	var embed chromem.EmbeddingFunc
	if svc != nil {
		embed = svc.EmbedQuery
	}
	return vectorstore.Open(ctx, a.cfg, embed)
}
