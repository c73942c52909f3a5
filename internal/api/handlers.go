package api

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gsclens/gsclens/internal/errors"
	"github.com/gsclens/gsclens/internal/export"
	"github.com/gsclens/gsclens/internal/gsc"
	"github.com/gsclens/gsclens/internal/insights"
	"github.com/gsclens/gsclens/internal/models"
	"github.com/gsclens/gsclens/internal/token"
)

const dateLayout = "2006-01-02"

// reportParams are the query parameters shared by all report endpoints.
type reportParams struct {
	StartDate  string
	EndDate    string
	SearchType string
	RowLimit   int
	Filters    []models.Filter
}

// parseReportParams reads date range, search type, row limit and dimension
// filters from the query string. Dates default to the last 28 full days
// ending yesterday, matching the freshness lag of Search Console data.
func (s *Server) parseReportParams(c *gin.Context) (reportParams, error) {
	prop := s.propertyConfig()
	p := reportParams{
		StartDate:  c.Query("start_date"),
		EndDate:    c.Query("end_date"),
		SearchType: c.DefaultQuery("search_type", prop.SearchType),
		RowLimit:   prop.RowLimit,
	}

	if p.EndDate == "" {
		p.EndDate = time.Now().UTC().AddDate(0, 0, -1).Format(dateLayout)
	}
	if p.StartDate == "" {
		end, err := time.Parse(dateLayout, p.EndDate)
		if err != nil {
			return p, fmt.Errorf("end_date must be YYYY-MM-DD")
		}
		p.StartDate = end.AddDate(0, 0, -27).Format(dateLayout)
	}

	for _, d := range []string{p.StartDate, p.EndDate} {
		if _, err := time.Parse(dateLayout, d); err != nil {
			return p, fmt.Errorf("dates must be YYYY-MM-DD, got %q", d)
		}
	}
	if p.StartDate > p.EndDate {
		return p, fmt.Errorf("start_date must not be after end_date")
	}

	if raw := c.Query("row_limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return p, fmt.Errorf("row_limit must be a positive integer")
		}
		p.RowLimit = n
	}

	// Equality filters on enumerable dimensions, contains filters on free text.
	if v := c.Query("country"); v != "" {
		p.Filters = append(p.Filters, models.Filter{
			Dimension: models.DimensionCountry, Operator: models.OperatorEquals, Expression: v,
		})
	}
	if v := c.Query("device"); v != "" {
		p.Filters = append(p.Filters, models.Filter{
			Dimension: models.DimensionDevice, Operator: models.OperatorEquals, Expression: strings.ToUpper(v),
		})
	}
	if v := c.Query("query_contains"); v != "" {
		p.Filters = append(p.Filters, models.Filter{
			Dimension: models.DimensionQuery, Operator: models.OperatorContains, Expression: v,
		})
	}
	if v := c.Query("page_contains"); v != "" {
		p.Filters = append(p.Filters, models.Filter{
			Dimension: models.DimensionPage, Operator: models.OperatorContains, Expression: v,
		})
	}

	return p, nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) reportError(c *gin.Context, operation string, err error) {
	s.logger.ErrorWithContext(c.Request.Context(), operation+" failed", "error", err.Error())
	s.metrics.RecordError("gsc_error", c.FullPath())

	var notAuth *errors.ErrNotAuthorized
	if stderrors.As(err, &notAuth) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

// AuthStatusResponse describes the credential state of the dashboard.
type AuthStatusResponse struct {
	State      string `json:"state"`
	Authorized bool   `json:"authorized"`
}

// handleAuthStatus reports whether a usable Search Console credential exists
func (s *Server) handleAuthStatus(c *gin.Context) {
	state, err := s.client.AuthState(c.Request.Context())
	s.metrics.SetTokenState(float64(state))

	resp := AuthStatusResponse{
		State:      state.String(),
		Authorized: state != token.Absent,
	}
	if err != nil && !resp.Authorized {
		c.JSON(http.StatusOK, gin.H{
			"state":      resp.State,
			"authorized": resp.Authorized,
			"detail":     err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReportResponse is the common shape of all report endpoints.
type ReportResponse struct {
	StartDate string             `json:"start_date"`
	EndDate   string             `json:"end_date"`
	Totals    models.Totals      `json:"totals"`
	Rows      []models.ReportRow `json:"rows"`
}

// handlePerformance returns daily clicks/impressions/CTR/position
func (s *Server) handlePerformance(c *gin.Context) {
	p, err := s.parseReportParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	rows, err := s.client.PerformanceOverTime(c.Request.Context(), p.StartDate, p.EndDate, p.SearchType, p.Filters)
	if err != nil {
		s.reportError(c, "performance report", err)
		return
	}

	c.JSON(http.StatusOK, ReportResponse{
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Totals:    models.Summarize(rows),
		Rows:      rows,
	})
}

// handleTopQueries returns queries ranked by clicks
func (s *Server) handleTopQueries(c *gin.Context) {
	s.rankedReport(c, func(p reportParams) ([]models.ReportRow, error) {
		return s.client.TopQueries(c.Request.Context(), p.StartDate, p.EndDate, p.SearchType, p.Filters, p.RowLimit)
	})
}

// handleTopPages returns pages ranked by clicks
func (s *Server) handleTopPages(c *gin.Context) {
	s.rankedReport(c, func(p reportParams) ([]models.ReportRow, error) {
		return s.client.TopPages(c.Request.Context(), p.StartDate, p.EndDate, p.SearchType, p.Filters, p.RowLimit)
	})
}

// handleCountries returns the per-country breakdown
func (s *Server) handleCountries(c *gin.Context) {
	s.rankedReport(c, func(p reportParams) ([]models.ReportRow, error) {
		return s.client.CountryBreakdown(c.Request.Context(), p.StartDate, p.EndDate, p.SearchType, p.Filters)
	})
}

// handleDevices returns the per-device breakdown
func (s *Server) handleDevices(c *gin.Context) {
	s.rankedReport(c, func(p reportParams) ([]models.ReportRow, error) {
		return s.client.DeviceBreakdown(c.Request.Context(), p.StartDate, p.EndDate, p.SearchType, p.Filters)
	})
}

// handleQueryPages returns query+page combinations ranked by clicks
func (s *Server) handleQueryPages(c *gin.Context) {
	s.rankedReport(c, func(p reportParams) ([]models.ReportRow, error) {
		return s.client.QueryPageCombinations(c.Request.Context(), p.StartDate, p.EndDate, p.SearchType, p.Filters, p.RowLimit)
	})
}

func (s *Server) rankedReport(c *gin.Context, fetch func(reportParams) ([]models.ReportRow, error)) {
	p, err := s.parseReportParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	rows, err := fetch(p)
	if err != nil {
		s.reportError(c, "report", err)
		return
	}

	c.JSON(http.StatusOK, ReportResponse{
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Totals:    models.Summarize(rows),
		Rows:      rows,
	})
}

// handleExport streams a report as CSV. The dimensions parameter is a
// comma-separated ordered list, defaulting to "query".
func (s *Server) handleExport(c *gin.Context) {
	p, err := s.parseReportParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	dims := strings.Split(c.DefaultQuery("dimensions", models.DimensionQuery), ",")
	for i := range dims {
		dims[i] = strings.TrimSpace(dims[i])
	}

	rows, err := s.client.Query(c.Request.Context(), gscQuery(p, dims))
	if err != nil {
		s.reportError(c, "export", err)
		return
	}

	payload, err := export.ReportCSV(dims, rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("gsc_report_%s_%s.csv", p.StartDate, p.EndDate)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", payload)
}

// handleTips returns actionable observations derived from the report data
func (s *Server) handleTips(c *gin.Context) {
	p, err := s.parseReportParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	overall, err := s.client.PerformanceOverTime(ctx, p.StartDate, p.EndDate, p.SearchType, p.Filters)
	if err != nil {
		s.reportError(c, "tips", err)
		return
	}
	queries, err := s.client.TopQueries(ctx, p.StartDate, p.EndDate, p.SearchType, p.Filters, 1000)
	if err != nil {
		s.reportError(c, "tips", err)
		return
	}
	pages, err := s.client.TopPages(ctx, p.StartDate, p.EndDate, p.SearchType, p.Filters, 1000)
	if err != nil {
		s.reportError(c, "tips", err)
		return
	}

	tips := insights.KPITips(models.Summarize(overall))
	tips = append(tips, insights.QueryTips(queries)...)
	tips = append(tips, insights.PageTips(pages)...)

	c.JSON(http.StatusOK, gin.H{
		"start_date": p.StartDate,
		"end_date":   p.EndDate,
		"tips":       tips,
	})
}

// handleListSites lists the properties the credential can access
func (s *Server) handleListSites(c *gin.Context) {
	sites, err := s.client.ListSites(c.Request.Context())
	if err != nil {
		s.reportError(c, "list sites", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sites": sites})
}

// handleListSitemaps lists submitted sitemaps for the property
func (s *Server) handleListSitemaps(c *gin.Context) {
	sitemaps, err := s.client.ListSitemaps(c.Request.Context())
	if err != nil {
		s.reportError(c, "list sitemaps", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sitemaps": sitemaps})
}

// SitemapRequest identifies a sitemap by its full URL.
type SitemapRequest struct {
	SitemapURL string `json:"sitemap_url" binding:"required"`
}

// handleSubmitSitemap submits a sitemap to Search Console
func (s *Server) handleSubmitSitemap(c *gin.Context) {
	var req SitemapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ok, err := s.client.SubmitSitemap(c.Request.Context(), req.SitemapURL)
	if err != nil {
		s.reportError(c, "submit sitemap", err)
		return
	}
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": "sitemap submission rejected"})
		return
	}

	s.logger.InfoWithContext(c.Request.Context(), "sitemap submitted", "sitemap_url", req.SitemapURL)
	c.JSON(http.StatusOK, gin.H{"status": "submitted"})
}

// handleDeleteSitemap removes a sitemap from Search Console
func (s *Server) handleDeleteSitemap(c *gin.Context) {
	var req SitemapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ok, err := s.client.DeleteSitemap(c.Request.Context(), req.SitemapURL)
	if err != nil {
		s.reportError(c, "delete sitemap", err)
		return
	}
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": "sitemap deletion rejected"})
		return
	}

	s.logger.InfoWithContext(c.Request.Context(), "sitemap deleted", "sitemap_url", req.SitemapURL)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// InspectRequest identifies a URL to inspect.
type InspectRequest struct {
	URL string `json:"url" binding:"required"`
}

// handleInspect inspects a single URL
func (s *Server) handleInspect(c *gin.Context) {
	var req InspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := s.client.InspectURL(c.Request.Context(), req.URL)
	if err != nil {
		s.metrics.RecordInspection("error")
		s.reportError(c, "url inspection", err)
		return
	}

	s.metrics.RecordInspection("success")
	c.JSON(http.StatusOK, gin.H{
		"url":     req.URL,
		"summary": result.Summary(),
		"result":  result,
	})
}

// BatchInspectRequest identifies URLs to inspect sequentially.
type BatchInspectRequest struct {
	URLs []string `json:"urls" binding:"required,min=1,max=100"`
}

// BatchInspectItem is one entry of a batch inspection response.
type BatchInspectItem struct {
	URL     string                    `json:"url"`
	Summary *models.InspectionSummary `json:"summary,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

// handleBatchInspect inspects up to 100 URLs, pacing requests to respect the
// per-property inspection quota
func (s *Server) handleBatchInspect(c *gin.Context) {
	var req BatchInspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	items := s.client.BatchInspect(c.Request.Context(), req.URLs, nil)

	resp := make([]BatchInspectItem, 0, len(items))
	for _, item := range items {
		out := BatchInspectItem{URL: item.URL}
		if item.Error != "" {
			out.Error = item.Error
			s.metrics.RecordInspection("error")
		} else if item.Result != nil {
			summary := item.Result.Summary()
			out.Summary = &summary
			s.metrics.RecordInspection("success")
		}
		resp = append(resp, out)
	}

	c.JSON(http.StatusOK, gin.H{"items": resp})
}

func gscQuery(p reportParams, dims []string) gsc.QueryRequest {
	return gsc.QueryRequest{
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
		Dimensions: dims,
		SearchType: p.SearchType,
		Filters:    p.Filters,
		RowLimit:   p.RowLimit,
	}
}
