package importer

import (
	"strings"

	"github.com/chico-rentals/rental-cli/internal/model"
)

// FallbackPolicy fills property columns that enrichment could not recover.
type FallbackPolicy struct {
	// AddressPrefix is prepended to the raw identifier when no address is known.
	AddressPrefix  string
	City           string
	ZipCode        string
	County         string
	State          string
	PropertyType   string
	ManagementType string
}

// DefaultFallbackPolicy returns the placeholder values used for county parcels.
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		AddressPrefix:  "Property ",
		City:           "Unknown",
		ZipCode:        "00000",
		County:         model.DefaultCounty,
		State:          model.DefaultState,
		PropertyType:   "unknown",
		ManagementType: "unknown",
	}
}

// Apply builds the property row for an enriched record. Values are taken from
// the enrichment first, then the listing (if any), then the policy. The caller
// guarantees res carries coordinates or the listing does.
func (f FallbackPolicy) Apply(raw string, res model.EnrichmentResult, listing *model.Listing) *model.Property {
	p := &model.Property{
		APN:              res.Key,
		Address:          pick(res.Address, listingField(listing, func(l *model.Listing) string { return l.Address }), f.AddressPrefix+raw),
		City:             pick(res.City, listingField(listing, func(l *model.Listing) string { return l.City }), f.City),
		ZipCode:          pick(res.ZipCode, listingField(listing, func(l *model.Listing) string { return l.ZipCode }), f.ZipCode),
		County:           firstNonEmpty(res.County, f.County),
		State:            firstNonEmpty(res.State, f.State),
		CensusTract:      res.CensusTract,
		EnrichmentStatus: res.Status,
		PropertyType:     f.PropertyType,
		ManagementType:   f.ManagementType,
	}

	if lat, lng, ok := coordinates(res, listing); ok {
		p.Latitude, p.Longitude = lat, lng
	}

	if listing != nil {
		p.PropertyType = firstNonEmpty(listing.PropertyType, p.PropertyType)
		p.ManagementType = firstNonEmpty(listing.ManagementType, p.ManagementType)
		p.IsAvailable = listing.Available
		p.Bedrooms = listing.Bedrooms
		p.Bathrooms = listing.Bathrooms
		p.Rent = listing.Rent
		p.ListingSource = listing.Source
		p.ListingURL = listing.URL
	}
	return p
}

// coordinates prefers the parcel location and falls back to the listing's own.
func coordinates(res model.EnrichmentResult, listing *model.Listing) (lat, lng float64, ok bool) {
	if res.HasCoordinates() {
		return *res.Latitude, *res.Longitude, true
	}
	if listing != nil && listing.Latitude != nil && listing.Longitude != nil {
		return *listing.Latitude, *listing.Longitude, true
	}
	return 0, 0, false
}

func listingField(l *model.Listing, get func(*model.Listing) string) string {
	if l == nil {
		return ""
	}
	return strings.TrimSpace(get(l))
}

func pick(v *string, alt, def string) string {
	if v != nil && strings.TrimSpace(*v) != "" {
		return *v
	}
	return firstNonEmpty(alt, def)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
