package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Listing is one product-listing document as deposited in the blob store by
// the upstream scraping pipeline. Nullable document fields are pointers.
type Listing struct {
	Categories           []string         `json:"categories"` // length >= 3, index 0 is the site root label
	URL                  string           `json:"url"`
	Name                 string           `json:"name"`
	Availability         bool             `json:"availability"`
	S3Paths              StoredPaths      `json:"s3_paths"`
	RatingPeopleCount    *string          `json:"rating_people_count"` // free text, e.g. "> 200"
	RatingValue          *string          `json:"rating_value"`        // comma-decimal
	Brand                string           `json:"brand"`
	Currency             string           `json:"currency"`
	Price                *string          `json:"price"` // comma-decimal
	BasePrice            *BasePrice       `json:"base_price"`
	Shop                 string           `json:"shop"`
	Img                  ListingImage     `json:"img"`
	AdditionalAttributes AttributeBuckets `json:"additional_attributes"`

	// Variants keeps the document order of the facet keys, which a plain
	// map[string][]string would lose. Decoded separately in DecodeListing.
	Variants []VariantFacet `json:"-"`
}

type StoredPaths struct {
	ItemPath  string `json:"item_path"`
	ImagePath string `json:"image_path"`
}

type BasePrice struct {
	Value string `json:"value"` // comma-decimal
	Unit  string `json:"unit"`
}

type ListingImage struct {
	Alt string `json:"alt"`
	Src string `json:"src"`
}

// AttributeBuckets holds attribute phrases already classified by the upstream
// producer. This service only maps each bucket to its row shape; it never
// classifies free text itself.
type AttributeBuckets struct {
	SingleContenances   []SingleContenance   `json:"single_contenances"`
	MultipleContenances []MultipleContenance `json:"multiple_contenances"`
	UnknownContenances  []UnknownContenance  `json:"unkown_contenances"` // key spelling matches the upstream producer
	Lots                []Lot                `json:"lots"`
	Unknown             []string             `json:"unknown"`
}

type SingleContenance struct {
	Unit       string `json:"unit"`
	Contenance string `json:"contenance"` // comma-decimal quantity
}

type MultipleContenance struct {
	Unit       string `json:"unit"`
	Nb         int    `json:"nb"`
	Contenance string `json:"contenance"` // comma-decimal quantity per item
}

type UnknownContenance struct {
	Contenance string `json:"contenance"` // free text the upstream could not parse
}

type Lot struct {
	LotCount int    `json:"lot_count"`
	Unit     string `json:"unit"`
}

// VariantFacet is one variant dimension (e.g. "color") with its values in
// document order.
type VariantFacet struct {
	Type   string
	Values []string
}

// DecodeListing decodes and shape-checks one listing document.
func DecodeListing(data []byte) (*Listing, error) {
	var l Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	facets, err := decodeVariantFacets(data)
	if err != nil {
		return nil, err
	}
	l.Variants = facets

	if err := l.validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

func (l *Listing) validate() error {
	if l.URL == "" {
		return fmt.Errorf("%w: missing url", ErrMalformedDocument)
	}
	if l.Name == "" {
		return fmt.Errorf("%w: missing name", ErrMalformedDocument)
	}
	if len(l.Categories) < 3 {
		return fmt.Errorf("%w: category path has %d elements, need at least 3", ErrMalformedDocument, len(l.Categories))
	}
	if l.S3Paths.ItemPath == "" {
		return fmt.Errorf("%w: missing s3_paths.item_path", ErrMalformedDocument)
	}
	return nil
}

// decodeVariantFacets walks the "variants" object token by token so the facet
// keys come out in document order.
func decodeVariantFacets(data []byte) ([]VariantFacet, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	raw, ok := envelope["variants"]
	if !ok {
		return nil, fmt.Errorf("%w: missing variants", ErrMalformedDocument)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: variants: %v", ErrMalformedDocument, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: variants is not an object", ErrMalformedDocument)
	}

	var facets []VariantFacet
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: variants: %v", ErrMalformedDocument, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: variants: non-string key", ErrMalformedDocument)
		}
		var values []string
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("%w: variants[%s]: %v", ErrMalformedDocument, key, err)
		}
		facets = append(facets, VariantFacet{Type: key, Values: values})
	}
	return facets, nil
}
