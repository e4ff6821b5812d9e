package service

import (
	"pricewatch/ingestor/internal/domain"
)

// buildAttributes maps the five pre-classified buckets to attribute rows.
// Classification happened upstream; nothing here inspects free text beyond
// normalizing capacity quantities.
func buildAttributes(buckets domain.AttributeBuckets) ([]domain.Attribute, error) {
	total := len(buckets.SingleContenances) + len(buckets.MultipleContenances) +
		len(buckets.UnknownContenances) + len(buckets.Lots) + len(buckets.Unknown)
	attrs := make([]domain.Attribute, 0, total)

	for _, sc := range buckets.SingleContenances {
		capacity, err := domain.ParseDecimal(sc.Contenance)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, domain.Attribute{
			Kind:         domain.AttributeCapacity,
			Unit:         sc.Unit,
			ItemCount:    1,
			ItemCapacity: capacity,
		})
	}

	for _, mc := range buckets.MultipleContenances {
		capacity, err := domain.ParseDecimal(mc.Contenance)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, domain.Attribute{
			Kind:         domain.AttributeCapacity,
			Unit:         mc.Unit,
			ItemCount:    mc.Nb,
			ItemCapacity: capacity,
		})
	}

	for _, uc := range buckets.UnknownContenances {
		attrs = append(attrs, domain.Attribute{
			Kind:        domain.AttributeCapacityUnknown,
			Description: uc.Contenance,
		})
	}

	for _, lot := range buckets.Lots {
		attrs = append(attrs, domain.Attribute{
			Kind:      domain.AttributeSet,
			ItemCount: lot.LotCount,
			Unit:      lot.Unit,
		})
	}

	for _, text := range buckets.Unknown {
		attrs = append(attrs, domain.Attribute{
			Kind:        domain.AttributeOther,
			Description: text,
		})
	}

	return attrs, nil
}
