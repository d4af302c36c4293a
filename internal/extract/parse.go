package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var asinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
	regexp.MustCompile(`/gp/product/([A-Z0-9]{10})`),
	regexp.MustCompile(`/gp/aw/d/([A-Z0-9]{10})`),
}

// ASIN extracts the ten-character product identifier from a product
// URL. The four recognized shapes are /dp/X, /gp/product/X, /gp/aw/d/X
// and the ASIN query parameter. Returns "" when none match.
func ASIN(rawURL string) string {
	for _, re := range asinPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if v := u.Query().Get("ASIN"); len(v) == 10 {
			return v
		}
	}
	return ""
}

// CleanText collapses whitespace runs to single spaces and trims.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var nonPriceChars = regexp.MustCompile(`[^\d.,]`)

// ParsePrice extracts a numeric price from display text. Thousands and
// decimal separators are disambiguated by position; a lone comma group
// of at most two digits is treated as a decimal separator.
func ParsePrice(text string) *float64 {
	if text == "" {
		return nil
	}
	price := nonPriceChars.ReplaceAllString(text, "")
	if price == "" {
		return nil
	}

	hasComma := strings.Contains(price, ",")
	hasDot := strings.Contains(price, ".")
	switch {
	case hasComma && hasDot:
		if strings.Index(price, ",") < strings.Index(price, ".") {
			// 1,234.56
			price = strings.ReplaceAll(price, ",", "")
		} else {
			// 1.234,56
			price = strings.ReplaceAll(price, ".", "")
			price = strings.ReplaceAll(price, ",", ".")
		}
	case hasComma:
		parts := strings.Split(price, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			price = parts[0] + "." + parts[1]
		} else {
			price = strings.ReplaceAll(price, ",", "")
		}
	}

	v, err := strconv.ParseFloat(price, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// captchaMarkers are matched case-insensitively against rendered
// markup. They are specific on purpose: generic words like "captcha"
// appear in legitimate product descriptions.
var captchaMarkers = []string{
	"enter the characters you see",
	"type the characters",
	"sorry, we just need to make sure",
	"validatecaptcha",
	"<title>robot check</title>",
}

// DetectCaptcha reports whether the markup is a bot-defense
// interstitial rather than a product page.
func DetectCaptcha(html string) bool {
	if html == "" {
		return false
	}
	lower := strings.ToLower(html)
	for _, m := range captchaMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// truncate limits s to n characters (not bytes), so multi-byte text
// is never cut mid-rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
