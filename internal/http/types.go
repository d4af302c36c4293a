package http

import (
	"marketscrape/internal/extract"
	"marketscrape/internal/ready"
)

// ScrapeRequest is the POST /api/scrape body. Either url or
// product_url carries the target; product_url wins when both are set.
type ScrapeRequest struct {
	URL        string `json:"url"`
	ProductURL string `json:"product_url"`
	Headless   *bool  `json:"headless"`
	Proxy      string `json:"proxy"`
}

// ScrapeResponse is the success envelope. DetectedCountry repeats the
// routed storefront code so clients can confirm which regional site
// the URL resolved to.
type ScrapeResponse struct {
	Success         bool             `json:"success"`
	Country         string           `json:"country"`
	CountryCode     string           `json:"country_code"`
	DetectedCountry string           `json:"detected_country"`
	Cached          bool             `json:"cached,omitempty"`
	Data            *extract.Product `json:"data"`
}

// ErrorResponse is the failure envelope. Country fields are present
// when routing succeeded before the failure.
type ErrorResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error"`
	Message     string `json:"message,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// HealthResponse is the GET /api/health body.
type HealthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	Timestamp      string `json:"timestamp"`
	BrowserRunning bool   `json:"browser_running"`
	QueueDepth     int    `json:"queue_depth"`
	CacheSize      int    `json:"cache_size"`
}

// ReadyResponse is the GET /api/ready body.
type ReadyResponse struct {
	ready.Status
	Service string `json:"service"`
}

// CountriesResponse is the GET /api/countries body.
type CountriesResponse struct {
	Success   bool      `json:"success"`
	Count     int       `json:"count"`
	Countries []Country `json:"countries"`
}

type Country struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Domain       string `json:"domain"`
	Currency     string `json:"currency"`
	CurrencyCode string `json:"currency_code"`
}
