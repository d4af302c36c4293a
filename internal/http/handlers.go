package http

import (
	_ "embed"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"marketscrape/internal/config"
	"marketscrape/internal/engine"
	"marketscrape/internal/marketplace"
	"marketscrape/internal/ready"
)

//go:embed index.html
var indexHTML string

const serviceName = "marketscrape"

type handlers struct {
	config *config.Config
	engine *engine.Engine
	prober *ready.Prober
	logger *slog.Logger
}

func (h *handlers) index(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString(indexHTML)
}

func (h *handlers) health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:         "ok",
		Service:        serviceName,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		BrowserRunning: h.engine.BrowserRunning(),
		QueueDepth:     h.engine.QueueDepth(),
		CacheSize:      h.engine.CacheSize(c.Context()),
	})
}

func (h *handlers) readiness(c *fiber.Ctx) error {
	status := h.prober.Status()
	code := fiber.StatusOK
	if !status.Ready {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(ReadyResponse{Status: status, Service: serviceName})
}

func (h *handlers) countries(c *fiber.Ctx) error {
	all := marketplace.All()
	out := make([]Country, len(all))
	for i, d := range all {
		out[i] = Country{
			Code:         d.Code,
			Name:         d.Name,
			Domain:       d.Domain,
			Currency:     d.Currency,
			CurrencyCode: d.CurrencyCode,
		}
	}
	return c.JSON(CountriesResponse{Success: true, Count: len(out), Countries: out})
}

func (h *handlers) scrape(c *fiber.Ctx) error {
	var req ScrapeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Error:   "Malformed JSON body",
		})
	}

	url := req.ProductURL
	if url == "" {
		url = req.URL
	}

	result, err := h.engine.Scrape(c.Context(), engine.Request{
		URL:      url,
		Headless: req.Headless,
		Proxy:    req.Proxy,
	})
	if err != nil {
		return h.scrapeError(c, err)
	}

	return c.JSON(ScrapeResponse{
		Success:         true,
		Country:         result.Country.Name,
		CountryCode:     result.Country.Code,
		DetectedCountry: result.Country.Code,
		Cached:          result.Cached,
		Data:            result.Product,
	})
}

// scrapeError maps engine failures to stable status codes.
func (h *handlers) scrapeError(c *fiber.Ctx, err error) error {
	var se *engine.Error
	if !errors.As(err, &se) {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Error:   "Internal server error",
			Message: err.Error(),
		})
	}

	code := fiber.StatusInternalServerError
	switch se.Kind {
	case engine.KindInvalidURL, engine.KindUnknownCountry:
		code = fiber.StatusBadRequest
	case engine.KindRobotsDenied:
		code = fiber.StatusForbidden
	case engine.KindBreakerOpen:
		code = fiber.StatusServiceUnavailable
	case engine.KindTimeout:
		code = fiber.StatusGatewayTimeout
	case engine.KindNoExtractor:
		code = fiber.StatusNotImplemented
	}

	resp := ErrorResponse{Success: false, Error: se.Message}
	if se.Country != "" {
		if d, ok := marketplace.ByCode(se.Country); ok {
			resp.Country = d.Name
			resp.CountryCode = d.Code
		}
	}
	return c.Status(code).JSON(resp)
}
