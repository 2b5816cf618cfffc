package source

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/chico-rentals/rental-cli/internal/model"
)

// ReadListings loads a JSON array of scraped listings from a path or URL.
// Listings with neither APN nor address are dropped.
func ReadListings(ctx context.Context, location string) ([]model.Listing, error) {
	data, err := load(ctx, location)
	if err != nil {
		return nil, err
	}
	return DecodeListings(ctx, bytes.NewReader(data))
}

// DecodeListings decodes a streamed JSON array of listings.
func DecodeListings(ctx context.Context, r io.Reader) ([]model.Listing, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "source: read opening token")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, eris.Errorf("source: expected '[', got %v", tok)
	}

	var (
		out     []model.Listing
		dropped int
	)
	for dec.More() {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "source: decode listings")
		}
		var l model.Listing
		if err := dec.Decode(&l); err != nil {
			return nil, eris.Wrapf(err, "source: decode listing %d", len(out)+dropped)
		}
		l.APN = strings.TrimSpace(l.APN)
		l.Address = strings.TrimSpace(l.Address)
		if l.Identifier() == "" {
			dropped++
			continue
		}
		out = append(out, l)
	}
	if _, err := dec.Token(); err != nil {
		return nil, eris.Wrap(err, "source: read closing token")
	}

	if dropped > 0 {
		zap.L().Warn("source: dropped listings without apn or address", zap.Int("dropped", dropped))
	}
	return out, nil
}
