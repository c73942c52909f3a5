package gsc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gsclens/gsclens/internal/errors"
	"github.com/gsclens/gsclens/internal/models"
)

// InspectURL inspects a single URL. Unlike the report queries, a non-success
// status here is a caller-visible error carrying the status code and body
// text; batch callers catch it per URL.
func (c *Client) InspectURL(ctx context.Context, inspectionURL string) (*models.InspectionResult, error) {
	header, ok := c.AuthHeader(ctx)
	if !ok {
		return nil, &errors.ErrNotAuthorized{}
	}

	body, err := json.Marshal(map[string]string{
		"inspectionUrl": inspectionURL,
		"siteUrl":       c.site,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.inspectURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.observe("urlInspection.inspect", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &errors.ErrAPIStatus{Endpoint: "urlInspection.inspect", Code: resp.StatusCode, Body: string(text)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		InspectionResult json.RawMessage `json:"inspectionResult"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	var result models.InspectionResult
	if len(parsed.InspectionResult) > 0 {
		if err := json.Unmarshal(parsed.InspectionResult, &result); err != nil {
			return nil, err
		}
		result.Raw = parsed.InspectionResult
	}
	return &result, nil
}

// ProgressFunc reports batch progress after each URL: done out of total.
type ProgressFunc func(done, total int)

// BatchInspect inspects URLs sequentially with a fixed pause between
// consecutive requests to respect the inspection rate limit. One URL's
// failure does not abort the batch; the result always has one item per
// input URL, in order. A cancelled context stops the batch early.
func (c *Client) BatchInspect(ctx context.Context, urls []string, progress ProgressFunc) []models.BatchInspectionItem {
	results := make([]models.BatchInspectionItem, 0, len(urls))
	total := len(urls)

	for i, u := range urls {
		item := models.BatchInspectionItem{URL: u}
		result, err := c.InspectURL(ctx, u)
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Result = result
		}
		results = append(results, item)

		if progress != nil {
			progress(i+1, total)
		}

		if i < total-1 {
			select {
			case <-ctx.Done():
				return results
			default:
			}
			c.sleep(c.inspectInterval)
		}
	}
	return results
}
