package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"marketscrape/internal/cache"
	"marketscrape/internal/config"
	"marketscrape/internal/engine"
	"marketscrape/internal/ready"
)

const productHTML = `<html><body><span id="productTitle">Acme Phone 12</span></body></html>`

type stubPage struct{ html string }

func (p *stubPage) Navigate(string, time.Duration) error    { return nil }
func (p *stubPage) WaitVisible(string, time.Duration) error { return nil }
func (p *stubPage) HTML() (string, error)                   { return p.html, nil }
func (p *stubPage) Close()                                  {}

type stubBrowser struct{ html string }

func (b *stubBrowser) NewContext(bool, string) (engine.PageContext, error) {
	return &stubPage{html: b.html}, nil
}

func (b *stubBrowser) Running() bool { return true }

func testServer(t *testing.T, mutate func(*config.Config)) *fiber.App {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Auth.APIKey = "test-key"
	cfg.Scraper.MaxConcurrency = 1
	cfg.Scraper.MaxRetries = 0
	if mutate != nil {
		mutate(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(cfg, logger, &stubBrowser{html: productHTML}, cache.NewMemory(time.Minute, 100))
	t.Cleanup(eng.Close)
	prober := ready.NewProber(cfg.ReadyCheck, eng, logger)

	return NewServer(cfg, eng, prober, logger).App()
}

func doJSON(t *testing.T, app *fiber.App, method, path, key, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(raw) > 0 && json.Unmarshal(raw, &decoded) != nil {
		decoded = nil
	}
	return resp, decoded
}

func TestAuthRequired(t *testing.T) {
	app := testServer(t, nil)

	resp, body := doJSON(t, app, "GET", "/api/countries", "", "")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["error"] != "API key is required" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestAuthInvalidKey(t *testing.T) {
	app := testServer(t, nil)

	resp, body := doJSON(t, app, "GET", "/api/countries", "wrong-key", "")
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["error"] != "Invalid API key" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestAuthQueryParamKey(t *testing.T) {
	app := testServer(t, nil)

	resp, _ := doJSON(t, app, "GET", "/api/countries?api_key=test-key", "", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAdditionalKeysAccepted(t *testing.T) {
	app := testServer(t, func(cfg *config.Config) {
		cfg.Auth.AdditionalKeys = []string{"second-key"}
	})

	resp, _ := doJSON(t, app, "GET", "/api/countries", "second-key", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCountries(t *testing.T) {
	app := testServer(t, nil)

	resp, body := doJSON(t, app, "GET", "/api/countries", "test-key", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	if body["count"] != float64(15) {
		t.Errorf("count = %v", body["count"])
	}
	countries := body["countries"].([]any)
	first := countries[0].(map[string]any)
	if first["code"] != "US" || first["domain"] != "amazon.com" {
		t.Errorf("first country = %v", first)
	}
}

func TestHealthIsOpen(t *testing.T) {
	app := testServer(t, nil)

	resp, body := doJSON(t, app, "GET", "/api/health", "", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" || body["service"] != serviceName {
		t.Errorf("body = %v", body)
	}
	if body["browser_running"] != true {
		t.Errorf("browser_running = %v", body["browser_running"])
	}
}

func TestReadyInertProber(t *testing.T) {
	app := testServer(t, nil)

	resp, body := doJSON(t, app, "GET", "/api/ready", "", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["ready"] != true {
		t.Errorf("ready = %v", body["ready"])
	}
}

func TestScrapeSuccess(t *testing.T) {
	app := testServer(t, nil)

	resp, body := doJSON(t, app, "POST", "/api/scrape", "test-key",
		`{"url": "https://www.amazon.in/dp/B0ABCD1234"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["success"] != true || body["country_code"] != "IN" || body["country"] != "India" {
		t.Errorf("envelope = %v", body)
	}
	if body["detected_country"] != "IN" {
		t.Errorf("detected_country = %v", body["detected_country"])
	}
	data := body["data"].(map[string]any)
	if data["asin"] != "B0ABCD1234" || data["name"] != "Acme Phone 12" {
		t.Errorf("data = %v", data)
	}

	// Second request is served from cache and says so.
	_, body = doJSON(t, app, "POST", "/api/scrape", "test-key",
		`{"product_url": "https://www.amazon.in/dp/B0ABCD1234"}`)
	if body["cached"] != true {
		t.Errorf("cached = %v", body["cached"])
	}
}

func TestScrapeErrorMapping(t *testing.T) {
	app := testServer(t, nil)

	cases := []struct {
		body   string
		status int
		errMsg string
	}{
		{`{"url": ""}`, fiber.StatusBadRequest, "URL is required"},
		{`{"url": "https://www.example.com/dp/B0ABCD1234"}`, fiber.StatusBadRequest, "URL must be an Amazon domain"},
		{`{"url": "https://www.amazon.in/gp/help"}`, fiber.StatusInternalServerError, "Invalid Amazon URL - ASIN not found"},
		{`not json`, fiber.StatusBadRequest, "Malformed JSON body"},
	}
	for _, tc := range cases {
		resp, body := doJSON(t, app, "POST", "/api/scrape", "test-key", tc.body)
		if resp.StatusCode != tc.status {
			t.Errorf("body %q status = %d, want %d", tc.body, resp.StatusCode, tc.status)
		}
		if body["error"] != tc.errMsg {
			t.Errorf("body %q error = %v, want %q", tc.body, body["error"], tc.errMsg)
		}
	}
}

func TestScrapeCaptchaResponse(t *testing.T) {
	cfg, _ := config.Load("")
	cfg.Auth.APIKey = "test-key"
	cfg.Scraper.MaxConcurrency = 1
	cfg.Scraper.MaxRetries = 0

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	captcha := `<html><head><title>Robot Check</title></head></html>`
	eng := engine.New(cfg, logger, &stubBrowser{html: captcha}, cache.NewMemory(time.Minute, 100))
	t.Cleanup(eng.Close)
	app := NewServer(cfg, eng, ready.NewProber(cfg.ReadyCheck, eng, logger), logger).App()

	resp, body := doJSON(t, app, "POST", "/api/scrape", "test-key",
		`{"url": "https://www.amazon.in/dp/B0ABCD1234"}`)
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["error"] != "CAPTCHA_REQUIRED" {
		t.Errorf("error = %v", body["error"])
	}
	if body["country_code"] != "IN" {
		t.Errorf("country_code = %v", body["country_code"])
	}
}

func TestKeyRateLimit(t *testing.T) {
	app := testServer(t, func(cfg *config.Config) {
		cfg.RateLimit.KeyPerMinute = 2
	})

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, app, "GET", "/api/countries", "test-key", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("request %d status = %d", i+1, resp.StatusCode)
		}
	}
	resp, body := doJSON(t, app, "GET", "/api/countries", "test-key", "")
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["error"] != "Rate limit exceeded" {
		t.Errorf("error = %v", body["error"])
	}
	if body["message"] != "API key rate limit exceeded" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestIPRateLimit(t *testing.T) {
	app := testServer(t, func(cfg *config.Config) {
		cfg.RateLimit.IPPerMinute = 1
	})

	resp, _ := doJSON(t, app, "GET", "/api/countries", "test-key", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("first status = %d", resp.StatusCode)
	}
	resp, body := doJSON(t, app, "GET", "/api/countries", "test-key", "")
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["error"] != "Rate limit exceeded" {
		t.Errorf("error = %v", body["error"])
	}
	if body["message"] != "IP rate limit exceeded" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestIndexPage(t *testing.T) {
	app := testServer(t, nil)

	req := httptest.NewRequest("GET", "/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "POST /api/scrape") {
		t.Errorf("index page missing endpoint listing")
	}
}

func TestRequestIDHeader(t *testing.T) {
	app := testServer(t, nil)

	req := httptest.NewRequest("GET", "/api/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	first := resp.Header.Get("X-Request-Id")
	if first == "" {
		t.Fatalf("response missing X-Request-Id")
	}

	// Ids are minted per request; a caller-supplied header is ignored.
	req = httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("X-Request-Id", "spoofed-id")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	second := resp.Header.Get("X-Request-Id")
	if second == "spoofed-id" {
		t.Fatalf("caller-supplied request id was trusted")
	}
	if second == "" || second == first {
		t.Fatalf("request id not fresh per request: %q then %q", first, second)
	}
}
