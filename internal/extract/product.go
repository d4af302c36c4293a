package extract

import (
	"bytes"
	"encoding/json"
)

// Fingerprint identifies a product within a storefront; it is the
// cache and coalescing key.
type Fingerprint struct {
	Country string
	ASIN    string
}

// Seller captures buy-box seller details when the page exposes them.
type Seller struct {
	Name              string `json:"name,omitempty"`
	FulfilledByAmazon *bool  `json:"fulfilled_by_amazon,omitempty"`
}

// SpecPair is one row of the product details table.
type SpecPair struct {
	Name  string
	Value string
}

// Specifications preserves the details table's row order. It marshals
// to a JSON object; a plain map would shuffle the keys.
type Specifications []SpecPair

func (s Specifications) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Specifications) UnmarshalJSON(data []byte) error {
	*s = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return &json.UnmarshalTypeError{Value: "non-object", Type: nil}
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return err
		}
		*s = append(*s, SpecPair{Name: keyTok.(string), Value: val})
	}
	_, err = dec.Token() // closing brace
	return err
}

// Product is the normalized record returned for a successful scrape.
// Field names match the service's public JSON contract.
type Product struct {
	ASIN           string         `json:"asin"`
	Merchant       string         `json:"merchant"`
	Name           string         `json:"name"`
	Category       string         `json:"category"`
	Subcategory    string         `json:"subcategory"`
	Brand          string         `json:"brand"`
	CurrentPrice   *float64       `json:"current_price"`
	OriginalPrice  *float64       `json:"original_price"`
	Currency       string         `json:"currency"`
	CurrencyCode   string         `json:"currency_code"`
	StockStatus    string         `json:"stock_status"`
	ImagePath      *string        `json:"image_path"`
	Images         []string       `json:"images"`
	Rating         *float64       `json:"rating"`
	ReviewCount    int            `json:"review_count"`
	BulletPoints   []string       `json:"bullet_points"`
	Variations     []string       `json:"variations"`
	DeliveryETA    *string        `json:"delivery_eta"`
	Seller         *Seller        `json:"seller"`
	OffersCount    *int           `json:"offers_count"`
	BuyBoxWinner   *string        `json:"buy_box_winner"`
	SellerType     *string        `json:"seller_type"`
	Description    *string        `json:"description"`
	Specifications Specifications `json:"specifications"`
}

// Stock status values.
const (
	InStock    = "in_stock"
	OutOfStock = "out_of_stock"
)

// Seller type values: the storefront operator itself, or a
// third-party marketplace seller.
const (
	SellerAmazon      = "amazon"
	SellerMarketplace = "marketplace"
)
