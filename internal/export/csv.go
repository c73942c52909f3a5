// Package export renders report rows as CSV for download.
package export

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/gsclens/gsclens/internal/models"
)

// metric column order matches the dashboard tables.
var metricHeaders = []string{"clicks", "impressions", "ctr", "position"}

// ReportCSV renders rows as CSV: one column per requested dimension in
// order, then the four metrics.
func ReportCSV(dimensions []string, rows []models.ReportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append(append([]string{}, dimensions...), metricHeaders...)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	record := make([]string, 0, len(header))
	for _, row := range rows {
		record = record[:0]
		for _, dim := range dimensions {
			record = append(record, row.Key(dim))
		}
		record = append(record,
			strconv.FormatInt(row.Clicks, 10),
			strconv.FormatInt(row.Impressions, 10),
			strconv.FormatFloat(row.CTR, 'f', 4, 64),
			strconv.FormatFloat(row.Position, 'f', 1, 64),
		)
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// InspectionCSV renders batch inspection results as a flat CSV.
func InspectionCSV(items []models.BatchInspectionItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"url", "coverage_state", "indexing_state", "page_fetch_state", "last_crawl_time", "mobile_usability", "rich_results", "error"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, item := range items {
		record := []string{item.URL, "", "", "", "", "", "", item.Error}
		if item.Result != nil {
			s := item.Result.Summary()
			record[1] = s.CoverageState
			record[2] = s.IndexingState
			record[3] = s.PageFetchState
			record[4] = s.LastCrawlTime
			record[5] = s.MobileUsability
			record[6] = s.RichResultsVerdict
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
