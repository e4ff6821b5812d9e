package service

import (
	"context"
	"fmt"
	"time"

	"pricewatch/ingestor/internal/domain"
)

// Ingest persists one decoded listing: resolve the category chain, then write
// product + snapshot + attributes + variants in a single transaction.
//
// Category creation commits as it goes (see resolveCategoryPath), so a
// failure after step 1 leaves the new categories behind. That window is
// accepted: categories are create-once/reuse-forever and a later ingestion
// picks them up.
func (s *Service) Ingest(ctx context.Context, listing *domain.Listing) (*domain.Snapshot, error) {
	leafCat, err := s.resolveCategoryPath(ctx, listing.Categories)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve category path: %w", err)
	}

	ratingValue, err := domain.ParseDecimalPtr(listing.RatingValue)
	if err != nil {
		return nil, fmt.Errorf("rating_value: %w", err)
	}
	priceUnit, err := domain.ParseDecimalPtr(listing.Price)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}

	var priceBaseValue *float64
	var priceBaseUnit *string
	if listing.BasePrice != nil {
		v, err := domain.ParseDecimal(listing.BasePrice.Value)
		if err != nil {
			return nil, fmt.Errorf("base_price.value: %w", err)
		}
		priceBaseValue = &v
		priceBaseUnit = &listing.BasePrice.Unit
	}

	attrs, err := buildAttributes(listing.AdditionalAttributes)
	if err != nil {
		return nil, fmt.Errorf("failed to build attributes: %w", err)
	}

	snap := &domain.Snapshot{
		ProductURL:     listing.URL,
		CategoryID:     leafCat.ID,
		Name:           listing.Name,
		Availability:   listing.Availability,
		S3Path:         listing.S3Paths.ItemPath,
		Timestamp:      time.Now().UTC(),
		RatingCount:    listing.RatingPeopleCount,
		RatingValue:    ratingValue,
		Brand:          listing.Brand,
		PriceCurrency:  listing.Currency,
		PriceUnit:      priceUnit,
		PriceBaseValue: priceBaseValue,
		PriceBaseUnit:  priceBaseUnit,
		Shop:           listing.Shop,
		IconAlt:        listing.Img.Alt,
		IconSrc:        listing.Img.Src,
		IconS3Path:     listing.S3Paths.ImagePath,
		Attributes:     attrs,
		Variants:       buildVariants(listing.Variants),
	}

	if err := s.repository.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save snapshot for %s: %w", listing.URL, err)
	}

	return snap, nil
}
