package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/draftelo/internal/domain/model"
)

// Values sheet columns.
const ColValue = "value"

// ValuesHeader is written into an empty values sheet.
var ValuesHeader = []string{ColName, ColValue}

const valuesStore = "values"

// Values is the read-only value table used for the recommended pick.
type Values struct {
	sheet Sheet
	storeConfig
}

// NewValues creates a value table on sheet.
func NewValues(sheet Sheet, opts ...Option) *Values {
	return &Values{sheet: sheet, storeConfig: newStoreConfig(opts)}
}

// ReadAll returns values keyed by model.Key of the player name. Rows with an
// unparseable value are skipped.
func (v *Values) ReadAll(ctx context.Context) (map[string]float64, error) {
	var header []string
	var rows [][]string
	err := v.call(ctx, valuesStore, "read_all", func(ctx context.Context) error {
		var err error
		header, rows, err = v.sheet.Records(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	nameCol, valueCol := columnIndex(header, ColName), columnIndex(header, ColValue)
	if len(header) > 0 && (nameCol < 0 || valueCol < 0) {
		return nil, fmt.Errorf("%w: values sheet %s needs %q and %q columns", ErrDataShape, v.sheet.Name(), ColName, ColValue)
	}

	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		key := model.Key(cell(row, nameCol))
		if key == "" {
			continue
		}
		if f, ok := parseRating(strings.TrimSpace(cell(row, valueCol))); ok {
			out[key] = f
		}
	}
	return out, nil
}
