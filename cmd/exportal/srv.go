package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"exportal/internal/blobstore"
	"exportal/internal/config"
	"exportal/internal/server"
	"exportal/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the exportal API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default().With("component", "server")

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			blobs, err := blobstore.NewLocalStore(cfg.BlobRoot, cfg.PublicFilesBase)
			if err != nil {
				return err
			}

			server.Version = version
			return server.New(cfg, st, blobs, logger).ListenAndServe()
		},
	}
}
