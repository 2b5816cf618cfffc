package model

import "time"

// Property is a row in the property store, keyed uniquely by APN.
type Property struct {
	ID               string    `json:"id"`
	APN              string    `json:"apn"`
	Address          string    `json:"address"`
	City             string    `json:"city"`
	ZipCode          string    `json:"zip_code"`
	County           string    `json:"county"`
	State            string    `json:"state"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	CensusTract      *string   `json:"census_tract,omitempty"`
	EnrichmentStatus Status    `json:"enrichment_status"`
	PropertyType     string    `json:"property_type"`
	ManagementType   string    `json:"management_type"`
	IsAvailable      bool      `json:"is_available"`
	Bedrooms         *int      `json:"bedrooms,omitempty"`
	Bathrooms        *float64  `json:"bathrooms,omitempty"`
	Rent             *int      `json:"rent,omitempty"`
	ListingSource    string    `json:"listing_source,omitempty"`
	ListingURL       string    `json:"listing_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Listing is a rental listing gathered by a scraper. Address is the lookup
// key when APN is empty.
type Listing struct {
	APN            string   `json:"apn,omitempty"`
	Address        string   `json:"address"`
	City           string   `json:"city,omitempty"`
	ZipCode        string   `json:"zip_code,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Bedrooms       *int     `json:"bedrooms,omitempty"`
	Bathrooms      *float64 `json:"bathrooms,omitempty"`
	Rent           *int     `json:"rent,omitempty"`
	PropertyType   string   `json:"property_type,omitempty"`
	ManagementType string   `json:"management_type,omitempty"`
	Available      bool     `json:"available"`
	Source         string   `json:"source"`
	URL            string   `json:"url,omitempty"`
}

// Identifier returns the key a listing is enriched and deduplicated by.
func (l *Listing) Identifier() string {
	if l.APN != "" {
		return l.APN
	}
	return l.Address
}
