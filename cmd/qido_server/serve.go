package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/server"
	"github.com/caio-sobreiro/dicomweb/services"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the QIDO-RS HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, metadata, err := a.openStores()
			if err != nil {
				return err
			}
			defer index.Close()
			defer metadata.Close()

			svc := services.NewQueryService(index, index, metadata,
				services.WithLogger(a.log.Named("query")),
				services.WithMaxConcurrentFetches(a.cfg.Query.MaxConcurrentFetches))

			a.log.Info("Starting QIDO-RS server",
				zap.String("address", a.cfg.Server.Address),
				zap.String("index", a.cfg.Storage.IndexPath),
				zap.String("metadata", a.cfg.Storage.MetadataPath))

			err = server.ListenAndServe(cmd.Context(), a.cfg.Server.Address, svc,
				server.WithLogger(a.log.Named("http")),
				server.WithReadTimeout(a.cfg.Server.ReadTimeout),
				server.WithWriteTimeout(a.cfg.Server.WriteTimeout))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().String("address", "", "listen address (default from config, :8080)")
	cmd.Flags().Int("max-concurrent-fetches", 0, "cap on metadata fetches per request, 0 for none")
	addStorageFlags(cmd)
	return cmd
}
