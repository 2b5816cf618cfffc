package importer

import (
	"github.com/chico-rentals/rental-cli/internal/apn"
	"github.com/chico-rentals/rental-cli/internal/model"
)

// Default chunk sizes per batch kind.
const (
	DefaultIdentifierChunkSize = 25
	DefaultListingChunkSize    = 10
)

// Batch is the input to Controller.Import: either a list of raw identifiers
// or a list of scraped listings.
type Batch interface {
	records() []record
	defaultChunkSize() int
	kind() string
}

// IdentifierBatch is a list of raw parcel numbers or street addresses.
type IdentifierBatch []string

// ListingBatch is a list of scraped rental listings. Each listing is keyed
// by its APN, or by its address when it has none.
type ListingBatch []model.Listing

// record is one unit of work, whatever the batch kind.
type record struct {
	raw     string
	key     string
	listing *model.Listing
}

func (b IdentifierBatch) records() []record {
	out := make([]record, len(b))
	for i, raw := range b {
		out[i] = record{raw: raw, key: apn.Normalize(raw)}
	}
	return out
}

func (b IdentifierBatch) defaultChunkSize() int { return DefaultIdentifierChunkSize }
func (b IdentifierBatch) kind() string          { return "identifiers" }

func (b ListingBatch) records() []record {
	out := make([]record, len(b))
	for i := range b {
		l := &b[i]
		raw := l.Identifier()
		out[i] = record{raw: raw, key: apn.Normalize(raw), listing: l}
	}
	return out
}

func (b ListingBatch) defaultChunkSize() int { return DefaultListingChunkSize }
func (b ListingBatch) kind() string          { return "listings" }

func chunk(recs []record, size int) [][]record {
	if size <= 0 {
		size = 1
	}
	var out [][]record
	for start := 0; start < len(recs); start += size {
		end := min(start+size, len(recs))
		out = append(out, recs[start:end])
	}
	return out
}
