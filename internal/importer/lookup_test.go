package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chico-rentals/rental-cli/internal/enrich"
	"github.com/chico-rentals/rental-cli/pkg/arcgis"
)

func TestImport_GISTimeoutsFailWithoutCoordinates(t *testing.T) {
	gis := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer gis.Close()

	client := arcgis.NewClient(arcgis.WithBaseURL(gis.URL), arcgis.WithTimeout(50*time.Millisecond))
	st := newMemStore()
	input := []string{"007-101-022", "007-101-023", "1234 Esplanade"}

	res := New(st, enrich.New(client, nil)).Import(context.Background(), IdentifierBatch(input), noPace())

	assert.Equal(t, 3, res.FailedCount)
	assert.Zero(t, res.SuccessCount)
	assert.Zero(t, res.SkippedCount)
	require.Len(t, res.Errors, 3)
	for i, msg := range res.Errors {
		assert.True(t, strings.HasPrefix(msg, input[i]+": "), msg)
		assert.True(t, strings.HasSuffix(msg, ": No coordinates found from GIS lookup"), msg)
	}

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
