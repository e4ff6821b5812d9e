package domain

import "time"

// Product is the stable identity of a listing, keyed by its URL. All ingested
// versions hang off it as Snapshot rows.
type Product struct {
	URL string `json:"url"`
}

// Category is one node of the category tree. Parent links are ids, not object
// references; FirstParentCategoryID shortcuts to the top-level department so
// department lookups never walk the chain.
type Category struct {
	ID                    int64  `json:"id"`
	Name                  string `json:"name"`
	ParentCategoryID      *int64 `json:"parent_category_id,omitempty"`
	FirstParentCategoryID *int64 `json:"first_parent_category_id,omitempty"`
}

// Snapshot is one ingested version of a product's data. Snapshots are
// append-only; re-ingesting a URL adds a new row under the same Product.
type Snapshot struct {
	ID         int64
	ProductURL string
	CategoryID int64 // leaf category per path resolution

	Name           string
	Availability   bool
	S3Path         string
	Timestamp      time.Time
	RatingCount    *string // free text, e.g. "> 200"
	RatingValue    *float64
	Brand          string
	PriceCurrency  string
	PriceUnit      *float64
	PriceBaseValue *float64
	PriceBaseUnit  *string
	Shop           string
	IconAlt        string
	IconSrc        string
	IconS3Path     string

	Attributes []Attribute
	Variants   []Variant
}

// Variant is one facet of a snapshot with its values in document order.
type Variant struct {
	ID     int64
	Type   string // facet name, e.g. "color", "size"
	Values []string
}
