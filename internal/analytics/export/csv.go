// Package export renders analytics read models as CSV.
package export

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/gksmfly/convenience-store-system/internal/analytics"
)

// WriteWindowCSV emits per-product sales for a window.
func WriteWindowCSV(w io.Writer, rows []analytics.ProductSales) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"product_id", "qty", "revenue"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{row.ProductID, strconv.Itoa(row.Qty), strconv.FormatInt(row.Revenue, 10)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTrendCSV emits daily totals.
func WriteTrendCSV(w io.Writer, points []analytics.DayPoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "qty", "revenue"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := writer.Write([]string{p.Date, strconv.Itoa(p.Qty), strconv.FormatInt(p.Revenue, 10)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteABCCSV emits ABC classes ordered by class then product id.
func WriteABCCSV(w io.Writer, classes map[string]analytics.Class) error {
	ids := make([]string, 0, len(classes))
	for id := range classes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if classes[ids[i]] != classes[ids[j]] {
			return classes[ids[i]] < classes[ids[j]]
		}
		return ids[i] < ids[j]
	})
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"product_id", "class"}); err != nil {
		return err
	}
	for _, id := range ids {
		if err := writer.Write([]string{id, string(classes[id])}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
