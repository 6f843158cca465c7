// Package export produces the flattened tabular extract of the report
// collection.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/et-mohedano/demo-delegados/pkg/report"
)

// Header is the fixed column order of the extract. Consumers depend on it;
// do not reorder.
var Header = []string{
	"id",
	"author_username",
	"author_display_name",
	"region",
	"theme",
	"variable",
	"condition_state",
	"status",
	"lat",
	"lng",
	"comment",
	"created_at",
}

// WriteCSV writes one row per report in the given order.
func WriteCSV(w io.Writer, reports []report.Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, r := range reports {
		row := []string{
			r.ID,
			r.AuthorUsername,
			r.AuthorDisplayName,
			r.Region,
			r.Theme,
			r.Variable,
			r.ConditionState,
			string(r.Status),
			strconv.FormatFloat(r.Coordinate.Lat, 'f', -1, 64),
			strconv.FormatFloat(r.Coordinate.Lng, 'f', -1, 64),
			r.Comment,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", r.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}
