package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chico-rentals/rental-cli/internal/api"
	"github.com/chico-rentals/rental-cli/internal/config"
	"github.com/chico-rentals/rental-cli/internal/importer"
)

const shutdownTimeout = 15 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enrichment and import HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		e, err := initEnricher(cfg.GIS, cfg.Tract)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		router := api.NewRouter(api.Deps{
			Enricher:             e,
			Importer:             importer.New(st, e),
			Properties:           st,
			ImportOptions:        serverImportOptions(cfg.Import, cfg.Import.ChunkSize),
			ListingImportOptions: serverImportOptions(cfg.Import, cfg.Import.ListingChunkSize),
			AllowedOrigins:       cfg.Server.AllowedOrigins,
			Logger:               zap.L().With(zap.String("component", "api")),
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(_ net.Listener) context.Context { return ctx },
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func serverImportOptions(ic config.ImportConfig, chunkSize int) importer.Options {
	return importer.Options{
		Concurrency: ic.Concurrency,
		ChunkSize:   chunkSize,
		Pace:        ic.Pace(),
	}
}
