package gsc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gsclens/gsclens/internal/models"
)

// ListSites returns all verified Search Console properties the credential
// can see. The rest of the dashboard is pinned to the configured property;
// this exists so an operator can check what the credential has access to.
func (c *Client) ListSites(ctx context.Context) ([]models.Site, error) {
	header, ok := c.AuthHeader(ctx)
	if !ok {
		return []models.Site{}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.analyticsBase, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.observe("sites.list", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return []models.Site{}, nil
	}

	var parsed struct {
		SiteEntry []models.Site `json:"siteEntry"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed.SiteEntry, nil
}
