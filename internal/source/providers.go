package source

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/chico-rentals/rental-cli/internal/model"
)

// Provider is a listing site the scrapers pull from.
type Provider struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

var providers = []Provider{
	{ID: "craigslist", Name: "Craigslist (Butte County)", Enabled: true, URL: "https://chico.craigslist.org/search/apa"},
	{ID: "zillow", Name: "Zillow", Enabled: false, URL: "https://www.zillow.com/chico-ca/rentals/"},
	{ID: "entwood", Name: "Entwood Property Mgmt", Enabled: true, URL: "https://www.entwoodpm.com/vacancies"},
	{ID: "facebook", Name: "FB Marketplace", Enabled: false, URL: "https://www.facebook.com/marketplace/chico/rentals"},
}

// Providers returns the known listing providers.
func Providers() []Provider {
	return slices.Clone(providers)
}

// LookupProvider finds a provider by ID.
func LookupProvider(id string) (Provider, bool) {
	i := slices.IndexFunc(providers, func(p Provider) bool { return p.ID == id })
	if i < 0 {
		return Provider{}, false
	}
	return providers[i], true
}

// FilterListings keeps listings whose Source is one of ids. Every id must
// name a known, enabled provider. An empty ids keeps listings from any
// enabled provider and listings with no source.
func FilterListings(listings []model.Listing, ids []string) ([]model.Listing, error) {
	allowed := map[string]bool{}
	if len(ids) == 0 {
		for _, p := range providers {
			if p.Enabled {
				allowed[p.ID] = true
			}
		}
		allowed[""] = true
	}
	for _, id := range ids {
		p, ok := LookupProvider(id)
		if !ok {
			return nil, eris.Errorf("source: unknown provider %q", id)
		}
		if !p.Enabled {
			return nil, eris.Errorf("source: provider %q is disabled", id)
		}
		allowed[id] = true
	}

	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if allowed[l.Source] {
			out = append(out, l)
		}
	}
	return out, nil
}
