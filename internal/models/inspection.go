package models

import "encoding/json"

// InspectionResult is the nested inspectionResult object from the URL
// Inspection API. Only the fields the dashboard reads are typed; the rest of
// the payload is kept raw for export.
type InspectionResult struct {
	IndexStatusResult struct {
		CoverageState  string   `json:"coverageState"`
		IndexingState  string   `json:"indexingState"`
		RobotsTxtState string   `json:"robotsTxtState"`
		CrawledAs      string   `json:"crawledAs"`
		LastCrawlTime  string   `json:"lastCrawlTime"`
		PageFetchState string   `json:"pageFetchState"`
		ReferringUrls  []string `json:"referringUrls"`
		Sitemap        []string `json:"sitemap"`
	} `json:"indexStatusResult"`
	MobileUsabilityResult struct {
		Verdict string `json:"verdict"`
	} `json:"mobileUsabilityResult"`
	RichResultsResult struct {
		Verdict string `json:"verdict"`
	} `json:"richResultsResult"`
	Raw json.RawMessage `json:"-"`
}

// InspectionSummary is the flat view of an inspection result used by tables
// and CSV export.
type InspectionSummary struct {
	CoverageState      string   `json:"coverage_state"`
	IndexingState      string   `json:"indexing_state"`
	RobotsTxtState     string   `json:"robots_txt_state"`
	CrawledAs          string   `json:"crawled_as"`
	LastCrawlTime      string   `json:"last_crawl_time"`
	PageFetchState     string   `json:"page_fetch_state"`
	ReferringURLs      []string `json:"referring_urls"`
	SitemapURLs        []string `json:"sitemap_urls"`
	MobileUsability    string   `json:"mobile_usability"`
	RichResultsVerdict string   `json:"rich_results_verdict"`
}

// Summary flattens the inspection result, substituting placeholders for
// fields the API omitted.
func (r *InspectionResult) Summary() InspectionSummary {
	s := InspectionSummary{
		CoverageState:      orUnknown(r.IndexStatusResult.CoverageState),
		IndexingState:      orUnknown(r.IndexStatusResult.IndexingState),
		RobotsTxtState:     orUnknown(r.IndexStatusResult.RobotsTxtState),
		CrawledAs:          orUnknown(r.IndexStatusResult.CrawledAs),
		LastCrawlTime:      r.IndexStatusResult.LastCrawlTime,
		PageFetchState:     orUnknown(r.IndexStatusResult.PageFetchState),
		ReferringURLs:      r.IndexStatusResult.ReferringUrls,
		SitemapURLs:        r.IndexStatusResult.Sitemap,
		MobileUsability:    orNA(r.MobileUsabilityResult.Verdict),
		RichResultsVerdict: orNA(r.RichResultsResult.Verdict),
	}
	if s.LastCrawlTime == "" {
		s.LastCrawlTime = "N/A"
	}
	return s
}

// BatchInspectionItem is the per-URL outcome of a batch inspection. A failed
// URL carries a nil Result and a non-empty Error; other URLs in the batch are
// unaffected.
type BatchInspectionItem struct {
	URL    string            `json:"url"`
	Result *InspectionResult `json:"result"`
	Error  string            `json:"error,omitempty"`
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
