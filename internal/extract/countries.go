package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// India handles amazon.in pages. Review counts there render with
// comma grouping only, so the match is narrower than the default's.
type India struct {
	Default
}

var indiaReviewRe = regexp.MustCompile(`[\d,]+`)

func (India) ReviewCount(doc *goquery.Document) int {
	text := doc.Find("#acrCustomerReviewText").First().Text()
	m := indiaReviewRe.FindString(text)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// USA handles amazon.com pages: a narrower price selector set, the
// second breadcrumb as subcategory, and only the _SS40_ thumbnail
// rendition to upsize.
type USA struct {
	Default
}

var usaPriceSelectors = []string{
	".a-price-whole",
	"span.a-price span.a-offscreen",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
}

var usaOriginalPriceSelectors = []string{
	".a-price.a-text-price .a-offscreen",
	".a-text-strike",
}

func (USA) CurrentPrice(doc *goquery.Document) *float64 {
	return priceFromSelectors(doc, usaPriceSelectors)
}

func (USA) OriginalPrice(doc *goquery.Document) *float64 {
	return priceFromSelectors(doc, usaOriginalPriceSelectors)
}

func (USA) Subcategory(doc *goquery.Document) string {
	if crumbs := breadcrumbs(doc); len(crumbs) > 1 {
		return truncate(crumbs[1], 100)
	}
	return "General"
}

func (USA) Images(doc *goquery.Document) []string {
	images := make([]string, 0, 10)
	seen := make(map[string]struct{})
	doc.Find("#altImages img").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if src == "" || !strings.Contains(src, "http") {
			return
		}
		full := strings.ReplaceAll(src, "_SS40_", "_SX679_")
		if _, dup := seen[full]; dup {
			return
		}
		seen[full] = struct{}{}
		images = append(images, full)
	})
	if len(images) > 10 {
		images = images[:10]
	}
	return images
}
