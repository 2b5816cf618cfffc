// Package model holds the value types shared by the enrichment and import pipeline.
package model

import "time"

// Status classifies how complete an enrichment result is.
type Status string

const (
	StatusComplete    Status = "complete"
	StatusPartial     Status = "partial"
	StatusMissingData Status = "missing_data"
)

// Field names a property attribute that enrichment may fail to recover.
type Field string

const (
	FieldAddress     Field = "address"
	FieldCity        Field = "city"
	FieldZipCode     Field = "zipCode"
	FieldCoordinates Field = "coordinates"
	FieldCensusTract Field = "censusTract"
)

// RequiredFields are the fields counted by Classify. Census tract is tracked
// in MissingFields but never affects the status.
var RequiredFields = []Field{FieldAddress, FieldCity, FieldZipCode, FieldCoordinates}

// Enrichment sources.
const (
	SourceGIS      = "butte_county_gis"
	SourceNotFound = "not_found"
)

// Fixed jurisdiction for every enriched property.
const (
	DefaultCounty = "Butte"
	DefaultState  = "CA"
)

// EnrichmentResult is the normalized outcome of enriching one identifier.
// It is built once by the enricher and consumed once by the importer.
type EnrichmentResult struct {
	Key           string    `json:"apn"`
	Status        Status    `json:"status"`
	Address       *string   `json:"address"`
	City          *string   `json:"city"`
	County        string    `json:"county"`
	State         string    `json:"state"`
	ZipCode       *string   `json:"zip_code"`
	CensusTract   *string   `json:"census_tract"`
	Latitude      *float64  `json:"latitude"`
	Longitude     *float64  `json:"longitude"`
	MissingFields []Field   `json:"missing_fields"`
	Source        string    `json:"source"`
	EnrichedAt    time.Time `json:"enriched_at"`
}

// HasCoordinates reports whether both latitude and longitude were recovered.
func (r *EnrichmentResult) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Missing reports whether f is listed in MissingFields.
func (r *EnrichmentResult) Missing(f Field) bool {
	for _, m := range r.MissingFields {
		if m == f {
			return true
		}
	}
	return false
}

// Classify derives a Status from the missing fields, counting only
// RequiredFields: none missing is complete, all four missing is
// missing_data, anything in between is partial.
func Classify(missing []Field) Status {
	n := 0
	for _, req := range RequiredFields {
		for _, m := range missing {
			if m == req {
				n++
				break
			}
		}
	}
	switch {
	case n == 0:
		return StatusComplete
	case n >= len(RequiredFields):
		return StatusMissingData
	default:
		return StatusPartial
	}
}
