// Package extract turns rendered storefront markup into normalized
// product records. A MarketplaceExtractor supplies per-field
// extraction; the Default implementation covers every storefront and
// country variants override only the steps that differ.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"marketscrape/internal/marketplace"
)

// MarketplaceExtractor is the per-field extraction capability. Build
// drives it; country variants embed Default and override individual
// methods.
type MarketplaceExtractor interface {
	Title(doc *goquery.Document) string
	CurrentPrice(doc *goquery.Document) *float64
	OriginalPrice(doc *goquery.Document) *float64
	Brand(doc *goquery.Document) string
	Category(doc *goquery.Document) string
	Subcategory(doc *goquery.Document) string
	StockStatus(doc *goquery.Document) string
	MainImage(doc *goquery.Document) *string
	Images(doc *goquery.Document) []string
	Rating(doc *goquery.Document) *float64
	ReviewCount(doc *goquery.Document) int
	BulletPoints(doc *goquery.Document) []string
	Variations(doc *goquery.Document) []string
	DeliveryETA(doc *goquery.Document) *string
	SellerInfo(doc *goquery.Document) *Seller
	OffersCount(doc *goquery.Document) *int
	Description(doc *goquery.Document) *string
	Specifications(doc *goquery.Document) Specifications
}

var registry = map[string]MarketplaceExtractor{
	"IN": India{},
	"US": USA{},
	"UK": Default{},
}

// For returns the extractor registered for a country code, falling
// back to the shared Default for storefronts without a variant.
func For(code string) MarketplaceExtractor {
	if e, ok := registry[strings.ToUpper(code)]; ok {
		return e
	}
	return Default{}
}

// Build parses the markup and assembles a Product using the given
// extractor. The ASIN must already be known; Build never invents one.
func Build(e MarketplaceExtractor, mkt marketplace.Descriptor, asin, html string) (*Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	seller := e.SellerInfo(doc)

	p := &Product{
		ASIN:           asin,
		Merchant:       "Amazon " + mkt.Name,
		Name:           e.Title(doc),
		Category:       e.Category(doc),
		Subcategory:    e.Subcategory(doc),
		Brand:          e.Brand(doc),
		CurrentPrice:   e.CurrentPrice(doc),
		OriginalPrice:  e.OriginalPrice(doc),
		Currency:       mkt.Currency,
		CurrencyCode:   mkt.CurrencyCode,
		StockStatus:    e.StockStatus(doc),
		ImagePath:      e.MainImage(doc),
		Images:         e.Images(doc),
		Rating:         e.Rating(doc),
		ReviewCount:    e.ReviewCount(doc),
		BulletPoints:   e.BulletPoints(doc),
		Variations:     e.Variations(doc),
		DeliveryETA:    e.DeliveryETA(doc),
		Seller:         seller,
		OffersCount:    e.OffersCount(doc),
		Description:    e.Description(doc),
		Specifications: e.Specifications(doc),
	}

	if seller != nil && seller.Name != "" {
		name := seller.Name
		p.BuyBoxWinner = &name

		st := SellerMarketplace
		if strings.Contains(strings.ToLower(name), "amazon") {
			st = SellerAmazon
		}
		p.SellerType = &st
	}

	return p, nil
}
