package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chico-rentals/rental-cli/internal/apn"
	"github.com/chico-rentals/rental-cli/internal/config"
	"github.com/chico-rentals/rental-cli/internal/importer"
	"github.com/chico-rentals/rental-cli/internal/source"
)

var (
	importFile        string
	importConcurrency int
	importChunkSize   int
	importPace        time.Duration
	importSources     []string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Enrich and store properties in batches",
}

var importAPNsCmd = &cobra.Command{
	Use:   "apns",
	Short: "Import parcel numbers from a text, CSV, or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIdentifierImport(cmd, true)
	},
}

var importAddressesCmd = &cobra.Command{
	Use:   "addresses",
	Short: "Import street addresses from a text, CSV, or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIdentifierImport(cmd, false)
	},
}

var importListingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Import scraped rental listings from a JSON file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		listings, err := source.ReadListings(ctx, importFile)
		if err != nil {
			return eris.Wrap(err, "read listings")
		}
		listings, err = source.FilterListings(listings, importSources)
		if err != nil {
			return err
		}
		if len(listings) == 0 {
			return eris.Errorf("no listings to import in %s", importFile)
		}
		zap.L().Info("listings loaded", zap.String("file", importFile), zap.Int("listings", len(listings)))

		opts := importOptions(cmd, cfg.Import, cfg.Import.ListingChunkSize)
		return runImport(ctx, cmd, importer.ListingBatch(listings), opts)
	},
}

func init() {
	for _, c := range []*cobra.Command{importAPNsCmd, importAddressesCmd, importListingsCmd} {
		c.Flags().StringVar(&importFile, "file", "", "input file path or http(s) URL (required)")
		_ = c.MarkFlagRequired("file")
		c.Flags().IntVar(&importConcurrency, "concurrency", 0, "parallel lookups per chunk (default from config)")
		c.Flags().IntVar(&importChunkSize, "chunk-size", 0, "records per chunk (default from config)")
		c.Flags().DurationVar(&importPace, "pace", -1, "pause between chunks (default from config)")
		importCmd.AddCommand(c)
	}
	importListingsCmd.Flags().StringSliceVar(&importSources, "source", nil, "only import listings from these providers")
	rootCmd.AddCommand(importCmd)
}

func runIdentifierImport(cmd *cobra.Command, parcels bool) error {
	if err := cfg.Validate("import"); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ids, stats, err := source.ReadIdentifiers(ctx, importFile)
	if err != nil {
		return eris.Wrap(err, "read identifiers")
	}
	if len(ids) == 0 {
		return eris.Errorf("no identifiers in %s", importFile)
	}
	zap.L().Info("identifiers loaded",
		zap.String("file", importFile),
		zap.Int("total", stats.Total),
		zap.Int("unique", stats.Unique),
		zap.Int("duplicates", stats.Duplicates),
	)
	if parcels {
		if n := countNonParcel(ids); n > 0 {
			zap.L().Warn("identifiers that are not parcel numbers will be looked up as addresses", zap.Int("count", n))
		}
	}

	opts := importOptions(cmd, cfg.Import, cfg.Import.ChunkSize)
	return runImport(ctx, cmd, importer.IdentifierBatch(ids), opts)
}

// importOptions layers command flags over the configured import settings.
func importOptions(cmd *cobra.Command, ic config.ImportConfig, chunkSize int) importer.Options {
	opts := importer.Options{
		Concurrency: ic.Concurrency,
		ChunkSize:   chunkSize,
		Pace:        ic.Pace(),
	}
	if cmd.Flags().Changed("concurrency") && importConcurrency > 0 {
		opts.Concurrency = importConcurrency
	}
	if cmd.Flags().Changed("chunk-size") && importChunkSize > 0 {
		opts.ChunkSize = importChunkSize
	}
	if cmd.Flags().Changed("pace") && importPace >= 0 {
		opts.Pace = importPace
	}
	return opts
}

// runImport executes the batch and prints the result. A cancelled run still
// prints its partial result and exits cleanly.
func runImport(ctx context.Context, cmd *cobra.Command, batch importer.Batch, opts importer.Options) error {
	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return eris.Wrap(err, "init store")
	}
	defer st.Close() //nolint:errcheck

	e, err := initEnricher(cfg.GIS, cfg.Tract)
	if err != nil {
		return err
	}

	opts.OnProgress = importer.Tee(
		importer.LogReporter(zap.L().With(zap.String("component", "import"))),
		progressPrinter(cmd.ErrOrStderr()),
	)

	start := time.Now()
	res := importer.New(st, e).Import(ctx, batch, opts)

	fields := []zap.Field{
		zap.Int("success", res.SuccessCount),
		zap.Int("failed", res.FailedCount),
		zap.Int("skipped", res.SkippedCount),
		zap.Duration("elapsed", time.Since(start)),
	}
	if ctx.Err() != nil {
		zap.L().Warn("import cancelled, result is partial", fields...)
	} else {
		zap.L().Info("import complete", fields...)
	}

	return writeJSON(cmd.OutOrStdout(), res)
}

// progressPrinter writes one human-readable line per chunk.
func progressPrinter(w io.Writer) importer.Reporter {
	return func(p importer.Progress) {
		_, _ = fmt.Fprintf(w, "chunk %d/%d: %d imported, %d failed, %d skipped\n",
			p.Chunk, p.TotalChunks, p.Counts.SuccessCount, p.Counts.FailedCount, p.Counts.SkippedCount)
	}
}

func countNonParcel(ids []string) int {
	n := 0
	for _, id := range ids {
		if !apn.IsParcelNumber(strings.TrimSpace(id)) {
			n++
		}
	}
	return n
}
