// Package enrich turns a raw property identifier into a normalized
// EnrichmentResult using the county parcel service and the tract table.
package enrich

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chico-rentals/rental-cli/internal/apn"
	"github.com/chico-rentals/rental-cli/internal/model"
	"github.com/chico-rentals/rental-cli/internal/tract"
	"github.com/chico-rentals/rental-cli/pkg/arcgis"
)

// DefaultConcurrency bounds simultaneous parcel lookups.
const DefaultConcurrency = 3

// Enricher enriches identifiers. It holds no per-call state and is safe for
// concurrent use.
type Enricher struct {
	lookup arcgis.Client
	tracts *tract.Resolver
	now    func() time.Time
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) { e.now = now }
}

// New creates an Enricher. A nil resolver uses the embedded tract table.
func New(lookup arcgis.Client, tracts *tract.Resolver, opts ...Option) *Enricher {
	if tracts == nil {
		tracts = tract.Default()
	}
	e := &Enricher{lookup: lookup, tracts: tracts, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich never fails: lookup failures are logged and reflected in the
// result's MissingFields, Source and Status.
func (e *Enricher) Enrich(ctx context.Context, raw string) model.EnrichmentResult {
	key := apn.Normalize(raw)
	log := zap.L().With(zap.String("component", "enrich"), zap.String("apn", key))

	res := model.EnrichmentResult{
		Key:    key,
		County: model.DefaultCounty,
		State:  model.DefaultState,
		Source: model.SourceNotFound,
	}

	parcel, err := e.lookup.Lookup(ctx, key)
	switch {
	case err == nil:
		res.Source = model.SourceGIS
		res.Address = parcel.Address
		res.City = parcel.City
		res.ZipCode = parcel.ZipCode
		if parcel.Location != nil {
			lat, lng := parcel.Location.Latitude, parcel.Location.Longitude
			res.Latitude = &lat
			res.Longitude = &lng
		}
	case errors.Is(err, arcgis.ErrNotFound):
		log.Debug("no parcel found")
	case ctx.Err() != nil:
		log.Debug("lookup cancelled", zap.Error(err))
	default:
		log.Warn("parcel lookup failed", zap.Error(err))
	}

	if res.Address == nil {
		res.MissingFields = append(res.MissingFields, model.FieldAddress)
	}
	if res.City == nil {
		res.MissingFields = append(res.MissingFields, model.FieldCity)
	}
	if res.ZipCode == nil {
		res.MissingFields = append(res.MissingFields, model.FieldZipCode)
	}
	if !res.HasCoordinates() {
		res.MissingFields = append(res.MissingFields, model.FieldCoordinates)
	}

	if res.City != nil && !e.tracts.IsCountyCity(*res.City) {
		log.Warn("city is not a recognized county city", zap.String("city", *res.City))
	}
	res.CensusTract = e.tracts.Resolve(res.City)
	if res.CensusTract == nil {
		res.MissingFields = append(res.MissingFields, model.FieldCensusTract)
	}

	res.Status = model.Classify(res.MissingFields)
	res.EnrichedAt = e.now()
	return res
}

// EnrichAll enriches ids with at most concurrency lookups in flight and
// returns results in input order. onProgress, if set, is called after each
// result with the number completed so far.
func (e *Enricher) EnrichAll(ctx context.Context, ids []string, concurrency int, onProgress func(done, total int)) []model.EnrichmentResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	results := make([]model.EnrichmentResult, len(ids))

	var (
		g    errgroup.Group
		mu   sync.Mutex
		done int
	)
	g.SetLimit(concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = e.Enrich(ctx, id)
			if onProgress != nil {
				mu.Lock()
				done++
				onProgress(done, len(ids))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
