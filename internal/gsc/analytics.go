package gsc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/gsclens/gsclens/internal/models"
)

// QueryRequest describes one search-analytics query. Dimensions is an
// ordered subset of the known dimension names; RowLimit bounds the total
// rows returned across all pages.
type QueryRequest struct {
	StartDate       string
	EndDate         string
	Dimensions      []string
	SearchType      string
	Filters         []models.Filter
	RowLimit        int
	AggregationType string
}

func (q *QueryRequest) applyDefaults() {
	if q.SearchType == "" {
		q.SearchType = "web"
	}
	if q.AggregationType == "" {
		q.AggregationType = "auto"
	}
	if q.RowLimit <= 0 {
		q.RowLimit = models.MaxRowsPerRequest
	}
}

// queryBody is the request body for the searchAnalytics/query endpoint.
type queryBody struct {
	StartDate             string        `json:"startDate"`
	EndDate               string        `json:"endDate"`
	Dimensions            []string      `json:"dimensions"`
	RowLimit              int           `json:"rowLimit"`
	StartRow              int           `json:"startRow"`
	Type                  string        `json:"type"`
	AggregationType       string        `json:"aggregationType"`
	DimensionFilterGroups []filterGroup `json:"dimensionFilterGroups,omitempty"`
}

type filterGroup struct {
	Filters []models.Filter `json:"filters"`
}

// queryResponse is the raw response shape: rows of ordered dimension keys
// plus metrics.
type queryResponse struct {
	Rows []struct {
		Keys        []string `json:"keys"`
		Clicks      float64  `json:"clicks"`
		Impressions float64  `json:"impressions"`
		CTR         float64  `json:"ctr"`
		Position    float64  `json:"position"`
	} `json:"rows"`
}

// Query runs a search-analytics query with offset pagination and returns the
// flattened rows in server order.
//
// Termination: a non-success status returns whatever was already fetched (no
// retry); an empty page or a page shorter than the requested size signals
// exhaustion; the cursor reaching RowLimit stops the loop. When no auth
// header is available the result is an empty slice with no network call.
func (c *Client) Query(ctx context.Context, req QueryRequest) ([]models.ReportRow, error) {
	req.applyDefaults()

	if c.cache != nil {
		if rows, ok := c.cachedRows(req); ok {
			c.observeCache("hit")
			return rows, nil
		}
		c.observeCache("miss")
	}

	header, ok := c.AuthHeader(ctx)
	if !ok {
		return []models.ReportRow{}, nil
	}

	endpoint := fmt.Sprintf("%s/%s/searchAnalytics/query", c.analyticsBase, encodeSite(c.site))
	pageSize := req.RowLimit
	if pageSize > models.MaxRowsPerRequest {
		pageSize = models.MaxRowsPerRequest
	}

	var all []models.ReportRow
	startRow := 0

	for {
		body := queryBody{
			StartDate:       req.StartDate,
			EndDate:         req.EndDate,
			Dimensions:      req.Dimensions,
			RowLimit:        pageSize,
			StartRow:        startRow,
			Type:            req.SearchType,
			AggregationType: req.AggregationType,
		}
		if len(req.Filters) > 0 {
			body.DimensionFilterGroups = []filterGroup{{Filters: req.Filters}}
		}

		payload, err := json.Marshal(body)
		if err != nil {
			return all, err
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return all, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", header)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return all, err
		}

		c.observe("searchAnalytics.query", resp.StatusCode)
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			c.logger.Warn("analytics query stopped on non-success status",
				"status", resp.StatusCode, "rows_fetched", len(all))
			break
		}

		var parsed queryResponse
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if err != nil {
			return all, err
		}

		if len(parsed.Rows) == 0 {
			break
		}

		for _, raw := range parsed.Rows {
			if len(all) >= req.RowLimit {
				break
			}
			row := models.ReportRow{
				Keys:        make(map[string]string, len(req.Dimensions)),
				Clicks:      int64(raw.Clicks),
				Impressions: int64(raw.Impressions),
				CTR:         raw.CTR,
				Position:    raw.Position,
			}
			for i, dim := range req.Dimensions {
				if i < len(raw.Keys) {
					row.Keys[dim] = raw.Keys[i]
				} else {
					row.Keys[dim] = ""
				}
			}
			all = append(all, row)
		}

		startRow += len(parsed.Rows)
		if len(parsed.Rows) < pageSize {
			break
		}
		if startRow >= req.RowLimit {
			break
		}
	}

	if c.cache != nil {
		c.storeRows(req, all)
	}

	return all, nil
}

// cacheKey fingerprints a query so identical requests within the TTL reuse
// the cached rows.
func (c *Client) cacheKey(req QueryRequest) string {
	payload, _ := json.Marshal(struct {
		Site string
		Req  QueryRequest
	}{c.site, req})
	sum := sha256.Sum256(payload)
	return "analytics:" + hex.EncodeToString(sum[:])
}

func (c *Client) cachedRows(req QueryRequest) ([]models.ReportRow, bool) {
	payload, ok := c.cache.Get(c.cacheKey(req))
	if !ok {
		return nil, false
	}
	var rows []models.ReportRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (c *Client) storeRows(req QueryRequest, rows []models.ReportRow) {
	payload, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := c.cache.Set(c.cacheKey(req), payload, c.cacheTTL); err != nil {
		c.logger.Debug("cache write failed", "error", err.Error())
	}
}

// PerformanceOverTime returns daily metrics sorted by date ascending.
func (c *Client) PerformanceOverTime(ctx context.Context, start, end, searchType string, filters []models.Filter) ([]models.ReportRow, error) {
	rows, err := c.Query(ctx, QueryRequest{
		StartDate:  start,
		EndDate:    end,
		Dimensions: []string{models.DimensionDate},
		SearchType: searchType,
		Filters:    filters,
	})
	if err != nil {
		return rows, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Key(models.DimensionDate) < rows[j].Key(models.DimensionDate)
	})
	return rows, nil
}

// TopQueries returns queries sorted by clicks descending; ties keep server
// order.
func (c *Client) TopQueries(ctx context.Context, start, end, searchType string, filters []models.Filter, rowLimit int) ([]models.ReportRow, error) {
	return c.rankedBreakdown(ctx, []string{models.DimensionQuery}, start, end, searchType, filters, rowLimit)
}

// TopPages returns pages sorted by clicks descending.
func (c *Client) TopPages(ctx context.Context, start, end, searchType string, filters []models.Filter, rowLimit int) ([]models.ReportRow, error) {
	return c.rankedBreakdown(ctx, []string{models.DimensionPage}, start, end, searchType, filters, rowLimit)
}

// CountryBreakdown returns per-country metrics sorted by clicks descending.
func (c *Client) CountryBreakdown(ctx context.Context, start, end, searchType string, filters []models.Filter) ([]models.ReportRow, error) {
	return c.rankedBreakdown(ctx, []string{models.DimensionCountry}, start, end, searchType, filters, 0)
}

// DeviceBreakdown returns per-device metrics sorted by clicks descending.
func (c *Client) DeviceBreakdown(ctx context.Context, start, end, searchType string, filters []models.Filter) ([]models.ReportRow, error) {
	return c.rankedBreakdown(ctx, []string{models.DimensionDevice}, start, end, searchType, filters, 0)
}

// QueryPageCombinations returns query+page pairs sorted by clicks descending.
func (c *Client) QueryPageCombinations(ctx context.Context, start, end, searchType string, filters []models.Filter, rowLimit int) ([]models.ReportRow, error) {
	return c.rankedBreakdown(ctx, []string{models.DimensionQuery, models.DimensionPage}, start, end, searchType, filters, rowLimit)
}

func (c *Client) rankedBreakdown(ctx context.Context, dims []string, start, end, searchType string, filters []models.Filter, rowLimit int) ([]models.ReportRow, error) {
	rows, err := c.Query(ctx, QueryRequest{
		StartDate:  start,
		EndDate:    end,
		Dimensions: dims,
		SearchType: searchType,
		Filters:    filters,
		RowLimit:   rowLimit,
	})
	if err != nil {
		return rows, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Clicks > rows[j].Clicks
	})
	return rows, nil
}
