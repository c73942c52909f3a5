package models

// Search Analytics dimensions understood by the query engine.
const (
	DimensionDate    = "date"
	DimensionQuery   = "query"
	DimensionPage    = "page"
	DimensionCountry = "country"
	DimensionDevice  = "device"
)

// Dimensions lists the dimensions usable in report queries, in the order the
// dashboard presents them.
var Dimensions = []string{
	DimensionDate,
	DimensionQuery,
	DimensionPage,
	DimensionCountry,
	DimensionDevice,
}

// Filter operators accepted by the Search Analytics API.
const (
	OperatorContains       = "contains"
	OperatorNotContains    = "notContains"
	OperatorEquals         = "equals"
	OperatorNotEquals      = "notEquals"
	OperatorIncludingRegex = "includingRegex"
	OperatorExcludingRegex = "excludingRegex"
)

// Search types supported by the Search Analytics API.
var SearchTypes = map[string]string{
	"web":        "Web",
	"image":      "Image",
	"video":      "Video",
	"news":       "News",
	"discover":   "Discover",
	"googleNews": "Google News",
}

// MaxRowsPerRequest is the per-request page size cap enforced by the API.
const MaxRowsPerRequest = 25000

// Filter restricts which rows the Search Analytics API returns. Multiple
// filters in one group combine with AND semantics on the server side.
type Filter struct {
	Dimension  string `json:"dimension"`
	Operator   string `json:"operator"`
	Expression string `json:"expression"`
}

// ReportRow is one flattened result line from a Search Analytics query: the
// requested dimension values keyed by dimension name plus the four metrics.
type ReportRow struct {
	Keys        map[string]string `json:"keys"`
	Clicks      int64             `json:"clicks"`
	Impressions int64             `json:"impressions"`
	CTR         float64           `json:"ctr"`
	Position    float64           `json:"position"`
}

// Key returns the value for one dimension, or empty string when the row does
// not carry it.
func (r ReportRow) Key(dimension string) string {
	if r.Keys == nil {
		return ""
	}
	return r.Keys[dimension]
}

// Totals aggregates the metrics of a row set. CTR and position are weighted
// by impressions the way the Search Console UI reports them.
type Totals struct {
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	CTR         float64 `json:"ctr"`
	Position    float64 `json:"position"`
}

// Summarize computes totals over a slice of report rows.
func Summarize(rows []ReportRow) Totals {
	var t Totals
	var weightedPos float64
	for _, r := range rows {
		t.Clicks += r.Clicks
		t.Impressions += r.Impressions
		weightedPos += r.Position * float64(r.Impressions)
	}
	if t.Impressions > 0 {
		t.CTR = float64(t.Clicks) / float64(t.Impressions)
		t.Position = weightedPos / float64(t.Impressions)
	}
	return t
}
