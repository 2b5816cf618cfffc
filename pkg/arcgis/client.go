// Package arcgis queries the Butte County parcel layer of an ArcGIS REST
// MapServer for situs address and parcel location.
package arcgis

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/chico-rentals/rental-cli/internal/resilience"
)

const (
	// DefaultBaseURL is the county parcel layer.
	DefaultBaseURL = "https://gisportal.buttecounty.net/arcgis/rest/services/Parcels/ButteCountyParcels/MapServer/0"

	// DefaultTimeout bounds a single lookup, including reading the body.
	DefaultTimeout = 10 * time.Second
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Parcel is what a lookup recovers. Attributes the service did not supply
// are nil. Location is nil when the feature carried no usable geometry, so
// latitude and longitude are always present or absent together.
type Parcel struct {
	Address  *string     `json:"address"`
	City     *string     `json:"city"`
	ZipCode  *string     `json:"zip_code"`
	Location *Coordinate `json:"location"`
}

// Client looks up a single parcel by APN or situs address.
type Client interface {
	// Lookup issues one request. Failures are *LookupError values, except
	// cancellation of ctx which is returned as the context error.
	Lookup(ctx context.Context, identifier string) (*Parcel, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL points the client at a different layer (tests, mirrors).
func WithBaseURL(u string) Option {
	return func(c *client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-lookup deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps requests per second across all callers. rps <= 0 disables it.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCircuitBreaker short-circuits lookups while the service keeps failing.
func WithCircuitBreaker(b *resilience.Breaker) Option {
	return func(c *client) {
		c.breaker = b
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	breaker    *resilience.Breaker
}

// NewClient creates a parcel lookup Client.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup implements Client.
func (c *client) Lookup(ctx context.Context, identifier string) (*Parcel, error) {
	if c.breaker == nil {
		return c.query(ctx, identifier)
	}
	p, err := resilience.Call(ctx, c.breaker, func(ctx context.Context) (*Parcel, error) {
		return c.query(ctx, identifier)
	})
	if err != nil {
		zap.L().Debug("arcgis: lookup failed", zap.String("identifier", identifier), zap.Error(err))
	}
	return p, err
}
