package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/chico-rentals/rental-cli/internal/config"
	"github.com/chico-rentals/rental-cli/internal/enrich"
	"github.com/chico-rentals/rental-cli/internal/resilience"
	"github.com/chico-rentals/rental-cli/internal/tract"
	"github.com/chico-rentals/rental-cli/pkg/arcgis"
)

var enrichConcurrency int

var enrichCmd = &cobra.Command{
	Use:   "enrich <identifier>...",
	Short: "Look up parcels and print the enrichment result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("gis"); err != nil {
			return err
		}
		e, err := initEnricher(cfg.GIS, cfg.Tract)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			return writeJSON(cmd.OutOrStdout(), e.Enrich(cmd.Context(), args[0]))
		}
		return writeJSON(cmd.OutOrStdout(), e.EnrichAll(cmd.Context(), args, enrichConcurrency, nil))
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichConcurrency, "concurrency", enrich.DefaultConcurrency, "parallel lookups when several identifiers are given")
	rootCmd.AddCommand(enrichCmd)
}

// initEnricher wires the parcel client (rate limit, circuit breaker,
// timeout) and the tract table into an Enricher.
func initEnricher(gc config.GISConfig, tc config.TractConfig) (*enrich.Enricher, error) {
	tracts := tract.Default()
	if tc.TablePath != "" {
		t, err := tract.Load(tc.TablePath)
		if err != nil {
			return nil, eris.Wrap(err, "load tract table")
		}
		tracts = t
	}

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Name:             "arcgis",
		FailureThreshold: gc.BreakerThreshold,
		ResetTimeout:     time.Duration(gc.BreakerResetSecs) * time.Second,
	})
	client := arcgis.NewClient(
		arcgis.WithBaseURL(gc.BaseURL),
		arcgis.WithTimeout(gc.Timeout()),
		arcgis.WithRateLimit(gc.RateLimit),
		arcgis.WithCircuitBreaker(breaker),
	)
	return enrich.New(client, tracts), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write json")
}
