package models

// Site is one verified Search Console property.
type Site struct {
	SiteURL         string `json:"siteUrl"`
	PermissionLevel string `json:"permissionLevel"`
}

// SitemapContent describes one content type inside a submitted sitemap.
type SitemapContent struct {
	Type      string `json:"type"`
	Submitted string `json:"submitted"`
	Indexed   string `json:"indexed"`
}

// Sitemap is one sitemap entry as returned by the sitemaps listing endpoint.
type Sitemap struct {
	Path            string           `json:"path"`
	LastSubmitted   string           `json:"lastSubmitted,omitempty"`
	LastDownloaded  string           `json:"lastDownloaded,omitempty"`
	IsPending       bool             `json:"isPending"`
	IsSitemapsIndex bool             `json:"isSitemapsIndex"`
	Warnings        string           `json:"warnings,omitempty"`
	Errors          string           `json:"errors,omitempty"`
	Contents        []SitemapContent `json:"contents,omitempty"`
}
