package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Default is the extraction logic shared across storefronts. Selector
// lists are ordered most-specific first; the first match wins.
type Default struct{}

var currentPriceSelectors = []string{
	".a-price-whole",
	"span.a-price.a-text-price.a-size-medium span.a-offscreen",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
	".a-price .a-offscreen",
}

var originalPriceSelectors = []string{
	".a-price.a-text-price .a-offscreen",
	"span.a-price.a-text-price span.a-offscreen",
	"span.a-text-strike",
	".a-text-price .a-offscreen",
}

var breadcrumbSelectors = []string{
	"#wayfinding-breadcrumbs_container li a",
	"#wayfinding-breadcrumbs_feature_div ul li a",
	"ul.a-unordered-list.a-horizontal.a-size-small li a",
	"div[data-feature-name='breadcrumbs'] a",
}

var deliverySelectors = []string{
	"#mir-layout-DELIVERY_BLOCK-slot-PRIMARY_DELIVERY_MESSAGE_LARGE",
	"#deliveryMessageMirId",
	"#mir-layout-DELIVERY_BLOCK-slot-PRIMARY_DELIVERY_MESSAGE_MEDIUM",
}

func (Default) Title(doc *goquery.Document) string {
	if t := CleanText(doc.Find("#productTitle").First().Text()); t != "" {
		return truncate(t, 500)
	}
	return "Unknown Product"
}

func (Default) CurrentPrice(doc *goquery.Document) *float64 {
	return priceFromSelectors(doc, currentPriceSelectors)
}

func (Default) OriginalPrice(doc *goquery.Document) *float64 {
	return priceFromSelectors(doc, originalPriceSelectors)
}

func priceFromSelectors(doc *goquery.Document, selectors []string) *float64 {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if p := ParsePrice(node.Text()); p != nil {
			return p
		}
	}
	return nil
}

func (Default) Brand(doc *goquery.Document) string {
	if node := doc.Find("a#bylineInfo").First(); node.Length() > 0 {
		brand := CleanText(node.Text())
		brand = strings.ReplaceAll(brand, "Visit the", "")
		brand = strings.ReplaceAll(brand, "Store", "")
		brand = strings.ReplaceAll(brand, "Brand:", "")
		if brand = strings.TrimSpace(brand); brand != "" {
			return truncate(brand, 100)
		}
	}

	// Fall back to the product details table.
	var brand string
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		header := row.Find("th").First()
		if header.Length() == 0 || !strings.Contains(header.Text(), "Brand") {
			return true
		}
		if v := CleanText(row.Find("td").First().Text()); v != "" {
			brand = truncate(v, 100)
			return false
		}
		return true
	})
	if brand != "" {
		return brand
	}
	return "Generic"
}

// breadcrumbs collects the cleaned breadcrumb trail, dropping empties
// and the literal "back to results" entry.
func breadcrumbs(doc *goquery.Document) []string {
	for _, sel := range breadcrumbSelectors {
		nodes := doc.Find(sel)
		if nodes.Length() == 0 {
			continue
		}
		var crumbs []string
		nodes.Each(func(_ int, s *goquery.Selection) {
			c := CleanText(s.Text())
			if c != "" && !strings.EqualFold(c, "back to results") {
				crumbs = append(crumbs, c)
			}
		})
		if len(crumbs) > 0 {
			return crumbs
		}
	}
	return nil
}

func (Default) Category(doc *goquery.Document) string {
	if crumbs := breadcrumbs(doc); len(crumbs) > 0 {
		return truncate(crumbs[0], 100)
	}
	return "General"
}

func (Default) Subcategory(doc *goquery.Document) string {
	crumbs := breadcrumbs(doc)
	if len(crumbs) > 1 {
		last := crumbs[len(crumbs)-1]
		// A trailing duplicate usually means the product name repeated
		// the leaf category.
		if len(crumbs) > 2 && last == crumbs[len(crumbs)-2] {
			return truncate(crumbs[len(crumbs)-2], 100)
		}
		return truncate(last, 100)
	}
	return "General"
}

func (Default) StockStatus(doc *goquery.Document) string {
	text := strings.ToLower(doc.Find("#availability span").First().Text())
	if strings.Contains(text, "out of stock") || strings.Contains(text, "unavailable") {
		return OutOfStock
	}
	return InStock
}

func (Default) MainImage(doc *goquery.Document) *string {
	img := doc.Find("#landingImage").First()
	if img.Length() == 0 {
		img = doc.Find(".a-dynamic-image").First()
	}
	if img.Length() == 0 {
		return nil
	}
	src := img.AttrOr("src", "")
	if src == "" {
		src = img.AttrOr("data-old-hires", "")
	}
	if src == "" {
		return nil
	}
	src = truncate(src, 500)
	return &src
}

func (Default) Images(doc *goquery.Document) []string {
	images := make([]string, 0, 10)
	seen := make(map[string]struct{})
	doc.Find("#altImages img").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if src == "" || !strings.Contains(src, "http") {
			return
		}
		// Thumbnails link to downscaled renditions; rewrite to the
		// larger variant.
		full := strings.ReplaceAll(src, "_SS40_", "_SX679_")
		full = strings.ReplaceAll(full, "_AC_US40_", "_SX679_")
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

var ratingRe = regexp.MustCompile(`[\d.]+`)

func (Default) Rating(doc *goquery.Document) *float64 {
	text := doc.Find(`span[data-hook="rating-out-of-text"]`).First().Text()
	m := ratingRe.FindString(text)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}

var digitsRe = regexp.MustCompile(`[\d.,]+`)
var nonDigits = regexp.MustCompile(`[^\d]`)

func (Default) ReviewCount(doc *goquery.Document) int {
	text := doc.Find("#acrCustomerReviewText").First().Text()
	m := digitsRe.FindString(text)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(nonDigits.ReplaceAllString(m, ""))
	if err != nil {
		return 0
	}
	return n
}

func featureBullets(doc *goquery.Document) []string {
	var points []string
	doc.Find("#feature-bullets ul li").Each(func(_ int, s *goquery.Selection) {
		if p := CleanText(s.Text()); p != "" {
			points = append(points, p)
		}
	})
	return points
}

func (Default) BulletPoints(doc *goquery.Document) []string {
	points := featureBullets(doc)
	if len(points) > 10 {
		points = points[:10]
	}
	return points
}

func (Default) Description(doc *goquery.Document) *string {
	points := featureBullets(doc)
	if len(points) == 0 {
		return nil
	}
	desc := truncate(strings.Join(points, " | "), 2000)
	return &desc
}

func (Default) Variations(doc *goquery.Document) []string {
	var variations []string
	seen := make(map[string]struct{})
	doc.Find("#twister .a-form-label").Each(func(_ int, s *goquery.Selection) {
		text := CleanText(s.Text())
		if text == "" {
			return
		}
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		variations = append(variations, text)
	})
	if len(variations) > 10 {
		variations = variations[:10]
	}
	return variations
}

func (Default) DeliveryETA(doc *goquery.Document) *string {
	for _, sel := range deliverySelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if eta := CleanText(node.Text()); eta != "" {
			return &eta
		}
	}
	return nil
}

func (Default) SellerInfo(doc *goquery.Document) *Seller {
	var s Seller
	found := false

	if node := doc.Find("#sellerProfileTriggerId").First(); node.Length() > 0 {
		if name := CleanText(node.Text()); name != "" {
			s.Name = name
			found = true
		}
	}
	if node := doc.Find("#fulfillerInfoFeature_feature_div").First(); node.Length() > 0 {
		fba := strings.Contains(strings.ToLower(node.Text()), "amazon")
		s.FulfilledByAmazon = &fba
		found = true
	}

	if !found {
		return nil
	}
	return &s
}

func (Default) OffersCount(doc *goquery.Document) *int {
	node := doc.Find("#olpLinkWidget a, #olp_feature_div a").First()
	if node.Length() == 0 {
		return nil
	}
	m := digitsRe.FindString(node.Text())
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(nonDigits.ReplaceAllString(m, ""))
	if err != nil {
		return nil
	}
	return &n
}

func (Default) Specifications(doc *goquery.Document) Specifications {
	var specs Specifications
	seen := make(map[string]struct{})
	doc.Find("#productDetails_techSpec_section_1 tr, #prodDetails tr, #productDetails_detailBullets_sections1 tr").
		Each(func(_ int, row *goquery.Selection) {
			key := CleanText(row.Find("th").First().Text())
			val := CleanText(row.Find("td").First().Text())
			if key == "" || val == "" {
				return
			}
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			specs = append(specs, SpecPair{Name: key, Value: val})
		})
	return specs
}
