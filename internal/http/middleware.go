package http

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"marketscrape/internal/config"
	"marketscrape/internal/ratelimit"
)

// authMiddleware validates the caller's API key, taken from the
// X-API-Key header or the api_key query parameter. When JWT auth is
// enabled, a valid Authorization: Bearer token is accepted instead.
func authMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Auth.JWTEnabled {
			if principal, ok := bearerPrincipal(c, cfg.Auth.JWTSecret); ok {
				c.Locals("principal", principal)
				return c.Next()
			}
		}

		key := c.Get("X-API-Key")
		if key == "" {
			key = c.Query("api_key")
		}
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Success: false,
				Error:   "API key is required",
			})
		}

		if !keyMatches(cfg, key) {
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
				Success: false,
				Error:   "Invalid API key",
			})
		}

		c.Locals("principal", key)
		return c.Next()
	}
}

func keyMatches(cfg *config.Config, key string) bool {
	if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.Auth.APIKey)) == 1 {
		return true
	}
	for _, k := range cfg.Auth.AdditionalKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(k)) == 1 {
			return true
		}
	}
	return false
}

// bearerPrincipal parses an HS256 bearer token and returns its subject.
func bearerPrincipal(c *fiber.Ctx, secret string) (string, bool) {
	if secret == "" {
		return "", false
	}
	raw := c.Get("Authorization")
	if !strings.HasPrefix(raw, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", false
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return "jwt:" + claims.Subject, true
}

// rateLimitMiddleware runs the per-key limiter first and the per-IP
// limiter second. Both must admit the request.
func rateLimitMiddleware(keys, ips *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := c.Locals("principal").(string)
		if !keys.Allow(principal) {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Success: false,
				Error:   "Rate limit exceeded",
				Message: "API key rate limit exceeded",
			})
		}
		if !ips.Allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Success: false,
				Error:   "Rate limit exceeded",
				Message: "IP rate limit exceeded",
			})
		}
		return c.Next()
	}
}
