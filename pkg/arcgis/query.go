package arcgis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/chico-rentals/rental-cli/internal/apn"
	"github.com/chico-rentals/rental-cli/internal/resilience"
)

// outFields are the parcel attributes the lookup extracts.
const outFields = "APN,SITUS_ADDR,SITUS_CITY,SITUS_ZIP"

// queryResponse is the subset of an ArcGIS /query response we read.
type queryResponse struct {
	Features []feature    `json:"features"`
	Error    *serviceBody `json:"error"`
}

type serviceBody struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

type feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *geometry      `json:"geometry"`
}

// geometry is either a point (x, y) or a polygon (rings of [x, y, ...]).
type geometry struct {
	X     *float64      `json:"x"`
	Y     *float64      `json:"y"`
	Rings [][][]float64 `json:"rings"`
}

// whereClause builds the attribute filter. Parcel numbers match both the
// dashed and digits-only spellings stored in the layer; anything else is
// matched against the situs address.
func whereClause(identifier string) string {
	if apn.IsParcelNumber(identifier) {
		digits := apn.Digits(identifier)
		return "APN = '" + digits + "' OR APN = '" + apn.Normalize(identifier) + "'"
	}
	return "UPPER(SITUS_ADDR) = '" + strings.ToUpper(quote(identifier)) + "'"
}

func quote(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "'", "''")
}

func (c *client) query(ctx context.Context, identifier string) (*Parcel, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(callCtx); err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "arcgis: lookup cancelled")
			}
			// The limiter refuses up front when the wait would outlast the deadline.
			return nil, &LookupError{Kind: KindTimeout, Message: "rate limit wait", Err: resilience.NewTransientError(err, 0)}
		}
	}

	params := url.Values{
		"where":          {whereClause(identifier)},
		"outFields":      {outFields},
		"returnGeometry": {"true"},
		"outSR":          {"4326"},
		"f":              {"json"},
	}
	reqURL := strings.TrimSuffix(c.baseURL, "/") + "/query?" + params.Encode()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "arcgis: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.contextFailure(ctx, callCtx, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		lerr := &LookupError{Kind: KindHTTP, StatusCode: resp.StatusCode}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			lerr.Err = resilience.NewTransientError(eris.Errorf("arcgis: status %d", resp.StatusCode), resp.StatusCode)
		}
		return nil, lerr
	}

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		return nil, &LookupError{Kind: KindNonJSON, Message: "content type " + strconv.Quote(ct)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if callCtx.Err() != nil {
			return nil, c.contextFailure(ctx, callCtx, err)
		}
		return nil, &LookupError{Kind: KindMalformedJSON, Message: "read body", Err: err}
	}

	return parseResponse(body)
}

// contextFailure maps a deadline on the per-call context to KindTimeout and
// passes the caller's own cancellation through untouched.
func (c *client) contextFailure(parent, call context.Context, err error) error {
	if parent.Err() != nil {
		return eris.Wrap(parent.Err(), "arcgis: lookup cancelled")
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) {
		return &LookupError{
			Kind:    KindTimeout,
			Message: "no response within " + c.timeout.String(),
			Err:     resilience.NewTransientError(err, 0),
		}
	}
	return &LookupError{Kind: KindHTTP, Message: err.Error(), Err: resilience.NewTransientError(err, 0)}
}

// parseResponse turns a raw body into a Parcel. The leading-brace check
// rejects HTML error pages served with a JSON content type.
func parseResponse(body []byte) (*Parcel, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &LookupError{Kind: KindMalformedJSON, Message: "body is not a JSON object"}
	}

	var qr queryResponse
	if err := json.Unmarshal(trimmed, &qr); err != nil {
		return nil, &LookupError{Kind: KindMalformedJSON, Message: err.Error(), Err: err}
	}

	if qr.Error != nil {
		msg := qr.Error.Message
		if msg == "" {
			msg = "code " + strconv.Itoa(qr.Error.Code)
		}
		return nil, &LookupError{Kind: KindService, StatusCode: qr.Error.Code, Message: msg}
	}

	if len(qr.Features) == 0 {
		return nil, &LookupError{Kind: KindNotFound}
	}

	f := qr.Features[0]
	p := &Parcel{
		Address:  attr(f.Attributes, "SITUS_ADDR"),
		City:     attr(f.Attributes, "SITUS_CITY"),
		ZipCode:  attr(f.Attributes, "SITUS_ZIP"),
		Location: f.Geometry.location(),
	}
	if len(qr.Features) > 1 {
		zap.L().Debug("arcgis: multiple features matched, using first", zap.Int("features", len(qr.Features)))
	}
	return p, nil
}

// attr reads a string attribute. Missing, null, and blank values are nil;
// numeric values (zip codes are sometimes typed as numbers) are formatted.
func attr(attrs map[string]any, key string) *string {
	var s string
	switch v := attrs[key].(type) {
	case string:
		s = strings.TrimSpace(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

func (g *geometry) location() *Coordinate {
	if g == nil {
		return nil
	}
	if g.X != nil && g.Y != nil {
		return &Coordinate{Longitude: *g.X, Latitude: *g.Y}
	}
	if len(g.Rings) > 0 {
		if c, ok := VertexCentroid(g.Rings[0]); ok {
			return &c
		}
	}
	return nil
}
