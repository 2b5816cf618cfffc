package source

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

func csvIdentifiers(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comment = '#'

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "source: read csv")
	}
	return firstColumn(rows), nil
}
