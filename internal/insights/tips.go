// Package insights derives heuristic SEO advice from report rows. The rules
// are static thresholds; no external calls.
package insights

import (
	"fmt"

	"github.com/gsclens/gsclens/internal/models"
)

// Tip is one piece of advice with the metric context that triggered it.
type Tip struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// KPITips returns advice based on the aggregated totals of the selected
// period.
func KPITips(t models.Totals) []Tip {
	var tips []Tip
	if t.CTR > 0 && t.CTR < 0.02 {
		tips = append(tips, Tip{
			Title: "Low click-through rate",
			Text:  "Your CTR is below 2%. Rewrite meta titles and descriptions to be more compelling. Use numbers, power words, and clear value propositions.",
		})
	}
	if t.Position > 10 {
		tips = append(tips, Tip{
			Title: "Average position off page 1",
			Text:  "Average position is off page 1. Focus on building quality backlinks and improving content depth for your target keywords.",
		})
	}
	if t.Position > 0 && t.Position <= 5 && t.CTR < 0.05 {
		tips = append(tips, Tip{
			Title: "High rank, low clicks",
			Text:  "You rank in the top 5 but CTR is low. Your title tags may not match search intent. Review top-ranking competitors' titles for inspiration.",
		})
	}
	if t.Impressions > 0 && t.Clicks == 0 {
		tips = append(tips, Tip{
			Title: "Impressions without clicks",
			Text:  "Getting impressions but no clicks means the engine sees you as relevant but users aren't choosing your result. Test different title and description copy.",
		})
	}
	if t.Clicks > 0 && t.Position > 0 && t.Position <= 3 {
		tips = append(tips, Tip{
			Title: "Protect top rankings",
			Text:  "You're in the top 3. Protect these rankings by keeping content fresh, monitoring competitors, and building internal links.",
		})
	}
	return tips
}

// QueryTips returns advice based on per-query rows.
func QueryTips(rows []models.ReportRow) []Tip {
	if len(rows) == 0 {
		return nil
	}

	var lowCTR, pageTwo int
	for _, r := range rows {
		if r.Impressions >= 50 && r.CTR < 0.01 {
			lowCTR++
		}
		if r.Position > 10 && r.Position <= 20 && r.Impressions >= 20 {
			pageTwo++
		}
	}

	var tips []Tip
	if lowCTR > 0 {
		tips = append(tips, Tip{
			Title: "Queries wasting impressions",
			Text:  fmt.Sprintf("%d queries have 50+ impressions but less than 1%% CTR. These need better title tags and meta descriptions to earn clicks.", lowCTR),
		})
	}
	if pageTwo > 0 {
		tips = append(tips, Tip{
			Title: "Page-2 opportunities",
			Text:  fmt.Sprintf("%d queries sit on page 2 (positions 11-20). These are your best opportunities: a small ranking boost puts them on page 1.", pageTwo),
		})
	}
	return tips
}

// PageTips returns advice based on per-page rows.
func PageTips(rows []models.ReportRow) []Tip {
	if len(rows) == 0 {
		return nil
	}

	var decayCandidates int
	for _, r := range rows {
		if r.Impressions >= 100 && r.CTR < 0.005 {
			decayCandidates++
		}
	}

	var tips []Tip
	if decayCandidates > 0 {
		tips = append(tips, Tip{
			Title: "Pages with weak snippets",
			Text:  fmt.Sprintf("%d pages show 100+ impressions with under 0.5%% CTR. Refresh their titles and meta descriptions, and check that the indexed snippet matches the page intent.", decayCandidates),
		})
	}
	return tips
}
