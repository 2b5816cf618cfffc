// Package source reads import inputs: identifier lists from text, CSV, or
// XLSX files (local or remote), and scraped listings from JSON.
package source

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// Format is an identifier list encoding.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Stats summarizes an identifier list.
type Stats struct {
	Total      int `json:"total"`
	Unique     int `json:"unique"`
	Duplicates int `json:"duplicates"`
}

// headerNames are first-row labels skipped in tabular inputs.
var headerNames = map[string]bool{
	"apn":           true,
	"apns":          true,
	"parcel":        true,
	"parcel number": true,
	"address":       true,
	"identifier":    true,
}

// DetectFormat picks a format from a file name or URL.
func DetectFormat(location string) Format {
	p := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Host != "" {
		if f := u.Query().Get("format"); f != "" {
			return detectExt("." + f)
		}
		p = u.Path
	}
	return detectExt(path.Ext(p))
}

func detectExt(ext string) Format {
	switch strings.ToLower(ext) {
	case ".xlsx":
		return FormatXLSX
	case ".csv":
		return FormatCSV
	default:
		return FormatText
	}
}

// ReadIdentifiers loads an identifier list from a local path or http(s) URL.
func ReadIdentifiers(ctx context.Context, location string) ([]string, Stats, error) {
	data, err := load(ctx, location)
	if err != nil {
		return nil, Stats{}, err
	}
	return ParseIdentifiers(data, DetectFormat(location))
}

// ParseIdentifiers decodes data in the given format and removes exact
// duplicates, keeping first-seen order.
func ParseIdentifiers(data []byte, format Format) ([]string, Stats, error) {
	var (
		raw []string
		err error
	)
	switch format {
	case FormatXLSX:
		raw, err = xlsxIdentifiers(data, XLSXOptions{})
	case FormatCSV:
		raw, err = csvIdentifiers(bytes.NewReader(data))
	default:
		raw, err = textIdentifiers(bytes.NewReader(data))
	}
	if err != nil {
		return nil, Stats{}, err
	}
	ids, stats := Dedupe(raw)
	return ids, stats, nil
}

// Dedupe drops repeated values, keeping the first occurrence.
func Dedupe(raw []string) ([]string, Stats) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, id := range raw {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, Stats{Total: len(raw), Unique: len(out), Duplicates: len(raw) - len(out)}
}

// textIdentifiers reads one identifier per line. Blank lines and lines
// starting with # are ignored.
func textIdentifiers(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "source: read text")
	}
	return out, nil
}

// firstColumn takes the first non-empty cell of each row, skipping a
// recognizable header row.
func firstColumn(rows [][]string) []string {
	var out []string
	for i, row := range rows {
		var cell string
		for _, c := range row {
			if c = strings.TrimSpace(c); c != "" {
				cell = c
				break
			}
		}
		if cell == "" {
			continue
		}
		if i == 0 && headerNames[strings.ToLower(cell)] {
			continue
		}
		out = append(out, cell)
	}
	return out
}

func load(ctx context.Context, location string) ([]byte, error) {
	if isRemote(location) {
		return Download(ctx, location, DownloadOptions{})
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", location)
	}
	return data, nil
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
