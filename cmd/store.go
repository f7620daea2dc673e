package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"resume-assist/internal/config"
	"resume-assist/internal/db"
	"resume-assist/internal/helper"
	"resume-assist/internal/models"
	"resume-assist/internal/vectorstore"
)

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every vector in the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared collection %s\n", a.cfg.VectorStore.Collection)
			return nil
		},
	}
}

// snapshotter opens the store and checks it supports export and import.
func (a *app) snapshotter(cmd *cobra.Command) (vectorstore.Store, vectorstore.Snapshotter, error) {
	store, err := a.openStore(cmd.Context(), nil)
	if err != nil {
		return nil, nil, err
	}
	snap, ok := store.(vectorstore.Snapshotter)
	if !ok {
		store.Close()
		return nil, nil, fmt.Errorf("%w: backend %s has no snapshot support", models.ErrInvalidConfig, a.cfg.VectorStore.Backend)
	}
	return store, snap, nil
}

func snapshotArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return ""
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the collection to a snapshot file (default vector_store.snapshot_path)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, snap, err := a.snapshotter(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			path := snapshotArg(args)
			if path != "" {
				if err := helper.CreateFolder(filepath.Dir(path)); err != nil {
					return err
				}
			}
			if err := snap.Export(cmd.Context(), path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "exported")
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the collection with a snapshot file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, snap, err := a.snapshotter(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := snap.Import(cmd.Context(), snapshotArg(args)); err != nil {
				return err
			}
			n, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d vectors\n", n)
			return nil
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the users table and, for pgvector, the documents table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bunDB, err := db.ConnectDB(&a.cfg.Database)
			if err != nil {
				return err
			}
			defer bunDB.Close()

			if err := db.NewUserRepository(bunDB).InitSchema(ctx); err != nil {
				return fmt.Errorf("create users table: %w", err)
			}
			if a.cfg.VectorStore.Backend == config.BackendPgvector {
				vs, err := db.NewVectorStore(bunDB, a.cfg.VectorStore.Collection)
				if err != nil {
					return err
				}
				if err := vs.InitDB(ctx); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	}
}
