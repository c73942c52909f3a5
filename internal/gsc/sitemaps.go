package gsc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gsclens/gsclens/internal/errors"
	"github.com/gsclens/gsclens/internal/models"
)

// ListSitemaps returns all sitemaps submitted for the property. A missing
// auth header or a non-success status yields an empty list.
func (c *Client) ListSitemaps(ctx context.Context) ([]models.Sitemap, error) {
	header, ok := c.AuthHeader(ctx)
	if !ok {
		return []models.Sitemap{}, nil
	}

	endpoint := fmt.Sprintf("%s/%s/sitemaps", c.analyticsBase, encodeSite(c.site))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.observe("sitemaps.list", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return []models.Sitemap{}, nil
	}

	var parsed struct {
		Sitemap []models.Sitemap `json:"sitemap"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed.Sitemap, nil
}

// SubmitSitemap submits a sitemap URL for the property. Returns true when
// the API acknowledged the submission (200 or 204), and ErrNotAuthorized
// when no credential is available.
func (c *Client) SubmitSitemap(ctx context.Context, sitemapURL string) (bool, error) {
	return c.sitemapCall(ctx, http.MethodPut, "sitemaps.submit", sitemapURL)
}

// DeleteSitemap removes a submitted sitemap. Returns true on 200 or 204.
func (c *Client) DeleteSitemap(ctx context.Context, sitemapURL string) (bool, error) {
	return c.sitemapCall(ctx, http.MethodDelete, "sitemaps.delete", sitemapURL)
}

func (c *Client) sitemapCall(ctx context.Context, method, name, sitemapURL string) (bool, error) {
	header, ok := c.AuthHeader(ctx)
	if !ok {
		return false, &errors.ErrNotAuthorized{}
	}

	endpoint := fmt.Sprintf("%s/%s/sitemaps/%s", c.analyticsBase, encodeSite(c.site), encodeSite(sitemapURL))
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", header)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()

	c.observe(name, resp.StatusCode)
	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent, nil
}
