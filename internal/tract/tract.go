// Package tract maps Butte County city names to census tract codes.
package tract

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed tracts.yaml
var defaultTable []byte

// table is the on-disk shape of a tract table.
type table struct {
	County string            `yaml:"county"`
	State  string            `yaml:"state"`
	Cities map[string]string `yaml:"cities"`
}

// Resolver is an immutable city -> tract lookup. Safe for concurrent use.
type Resolver struct {
	tracts map[string]string
}

// Default returns a Resolver over the embedded county table.
func Default() *Resolver {
	r, err := Parse(defaultTable)
	if err != nil {
		// The embedded table is part of the binary.
		panic(err)
	}
	return r
}

// Load reads a table from path, or returns Default when path is empty.
func Load(path string) (*Resolver, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tract: read table %s", path)
	}
	return Parse(data)
}

// Parse builds a Resolver from a YAML table document.
func Parse(data []byte) (*Resolver, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "tract: parse table")
	}
	if len(t.Cities) == 0 {
		return nil, eris.New("tract: table has no cities")
	}

	r := &Resolver{tracts: make(map[string]string, len(t.Cities))}
	for city, code := range t.Cities {
		key := Canonical(city)
		code = strings.TrimSpace(code)
		if key == "" || code == "" {
			return nil, eris.Errorf("tract: empty entry %q: %q", city, code)
		}
		if _, dup := r.tracts[key]; dup {
			return nil, eris.Errorf("tract: duplicate city %q", city)
		}
		r.tracts[key] = code
	}
	return r, nil
}

// Canonical folds a city name to the table's key form: trimmed, inner
// whitespace collapsed, title-cased ("FOREST  RANCH" -> "Forest Ranch").
func Canonical(city string) string {
	fields := strings.Fields(city)
	if len(fields) == 0 {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(strings.Join(fields, " ")))
}

// Resolve returns the tract for city, or nil when city is nil or unknown.
func (r *Resolver) Resolve(city *string) *string {
	if city == nil {
		return nil
	}
	code, ok := r.tracts[Canonical(*city)]
	if !ok {
		return nil
	}
	return &code
}

// IsCountyCity reports whether city is in the table.
func (r *Resolver) IsCountyCity(city string) bool {
	_, ok := r.tracts[Canonical(city)]
	return ok
}

// Len is the number of cities in the table.
func (r *Resolver) Len() int { return len(r.tracts) }
