package service

import (
	"pricewatch/ingestor/internal/domain"
)

// buildVariants maps facet/value lists to variant rows, keeping document
// order. No dedup across ingestions; every snapshot gets fresh rows.
func buildVariants(facets []domain.VariantFacet) []domain.Variant {
	variants := make([]domain.Variant, 0, len(facets))
	for _, facet := range facets {
		variants = append(variants, domain.Variant{
			Type:   facet.Type,
			Values: facet.Values,
		})
	}
	return variants
}
