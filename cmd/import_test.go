package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chico-rentals/rental-cli/internal/config"
	"github.com/chico-rentals/rental-cli/internal/importer"
	"github.com/chico-rentals/rental-cli/internal/model"
)

const parcelBody = `{"features":[{"attributes":{"APN":"007123456","SITUS_ADDR":"1 MAIN ST","SITUS_CITY":"CHICO","SITUS_ZIP":"95928"},"geometry":{"x":-121.8375,"y":39.7285}}]}`

func newCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	c := &cobra.Command{Use: "test"}
	c.SetOut(&out)
	c.SetErr(&errOut)
	return c, &out, &errOut
}

func testConfig(t *testing.T, gisURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Store:  config.StoreConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "rental.db")},
		GIS:    config.GISConfig{BaseURL: gisURL, TimeoutSecs: 5},
		Import: config.ImportConfig{Concurrency: 2, ChunkSize: 2, ListingChunkSize: 10},
	}
}

func TestRunImport_EndToEnd(t *testing.T) {
	gis := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(parcelBody))
	}))
	defer gis.Close()

	prev := cfg
	cfg = testConfig(t, gis.URL)
	defer func() { cfg = prev }()

	ctx := context.Background()
	opts := importer.Options{Concurrency: 2, ChunkSize: 2}
	batch := importer.IdentifierBatch{"007-123-456", "007-123-457", "007-123-458"}

	c, out, errOut := newCommand()
	require.NoError(t, runImport(ctx, c, batch, opts))

	var res model.BatchImportResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 3, res.SuccessCount)
	assert.Zero(t, res.FailedCount)
	assert.Contains(t, errOut.String(), "chunk 1/2")
	assert.Contains(t, errOut.String(), "chunk 2/2: 3 imported")

	// A second run finds everything already stored.
	c, out, _ = newCommand()
	require.NoError(t, runImport(ctx, c, batch, opts))
	res = model.BatchImportResult{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Zero(t, res.SuccessCount)
	assert.Equal(t, 3, res.SkippedCount)
}

func TestRunImport_CancelledPrintsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first lookup stands in for an operator interrupt.
	gis := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cancel()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(parcelBody))
	}))
	defer gis.Close()

	prev := cfg
	cfg = testConfig(t, gis.URL)
	defer func() { cfg = prev }()

	c, out, _ := newCommand()
	batch := importer.IdentifierBatch{"007-123-456", "007-123-457"}
	require.NoError(t, runImport(ctx, c, batch, importer.Options{Concurrency: 1, ChunkSize: 1}))

	var res model.BatchImportResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Zero(t, res.SuccessCount)
	assert.Less(t, res.Total(), len(batch))
}

func TestImportOptions_FlagsOverrideConfig(t *testing.T) {
	ic := config.ImportConfig{Concurrency: 3, ChunkSize: 25, PaceMS: 500}

	c := &cobra.Command{Use: "test"}
	c.Flags().IntVar(&importConcurrency, "concurrency", 0, "")
	c.Flags().IntVar(&importChunkSize, "chunk-size", 0, "")
	c.Flags().DurationVar(&importPace, "pace", -1, "")

	opts := importOptions(c, ic, ic.ChunkSize)
	assert.Equal(t, 3, opts.Concurrency)
	assert.Equal(t, 25, opts.ChunkSize)
	assert.Equal(t, 500*time.Millisecond, opts.Pace)

	require.NoError(t, c.Flags().Set("concurrency", "8"))
	require.NoError(t, c.Flags().Set("chunk-size", "5"))
	require.NoError(t, c.Flags().Set("pace", "0s"))
	opts = importOptions(c, ic, ic.ChunkSize)
	assert.Equal(t, 8, opts.Concurrency)
	assert.Equal(t, 5, opts.ChunkSize)
	assert.Zero(t, opts.Pace)
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	progressPrinter(&buf)(importer.Progress{
		Chunk:       2,
		TotalChunks: 4,
		Counts:      model.BatchImportResult{SuccessCount: 30, FailedCount: 2, SkippedCount: 8},
	})
	assert.Equal(t, "chunk 2/4: 30 imported, 2 failed, 8 skipped\n", buf.String())
}

func TestCountNonParcel(t *testing.T) {
	assert.Equal(t, 1, countNonParcel([]string{"007-123-456", "007123456", "1 Main St"}))
	assert.Zero(t, countNonParcel(nil))
}

func TestInitEnricher_BadTractTable(t *testing.T) {
	_, err := initEnricher(config.GISConfig{BaseURL: "http://localhost", TimeoutSecs: 1}, config.TractConfig{TablePath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"count": 2}))
	assert.Equal(t, "{\n  \"count\": 2\n}\n", buf.String())
}
