package repository

import (
	"context"
	"errors"
	"fmt"

	"pricewatch/ingestor/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogRepository persists the product/category graph.
//
// CreateCategory commits immediately: each created node must be visible to
// subsequent lookups within the same path resolution. SaveSnapshot, by
// contrast, is one transaction: categories committed before a failing
// snapshot stay persisted, the snapshot itself is all-or-nothing.
type CatalogRepository interface {
	EnsureSchema(ctx context.Context) error
	FindCategoryByName(ctx context.Context, name string) (*domain.Category, error)
	CreateCategory(ctx context.Context, cat *domain.Category) error
	SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error
	DeleteProduct(ctx context.Context, url string) error
}

type catalogRepository struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{
		db: db,
	}
}

// FindCategoryByName scans by name alone, oldest row first. The lookup is
// deliberately not scoped to a parent; see the resolver for why.
func (r *catalogRepository) FindCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	query := `
	SELECT id, name, parent_category_id, first_parent_category_id
	FROM category
	WHERE name = $1
	ORDER BY id
	LIMIT 1`

	var cat domain.Category
	err := r.db.QueryRow(ctx, query, name).Scan(
		&cat.ID,
		&cat.Name,
		&cat.ParentCategoryID,
		&cat.FirstParentCategoryID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up category %q: %w", name, err)
	}
	return &cat, nil
}

func (r *catalogRepository) CreateCategory(ctx context.Context, cat *domain.Category) error {
	query := `
	INSERT INTO category (name, parent_category_id, first_parent_category_id)
	VALUES ($1, $2, $3)
	RETURNING id`

	err := r.db.QueryRow(ctx, query, cat.Name, cat.ParentCategoryID, cat.FirstParentCategoryID).Scan(&cat.ID)
	if err != nil {
		return fmt.Errorf("failed to create category %q: %w", cat.Name, err)
	}
	return nil
}

// SaveSnapshot writes the product (if new), the snapshot row, and all its
// attribute and variant children in a single transaction.
func (r *catalogRepository) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO product (url) VALUES ($1) ON CONFLICT (url) DO NOTHING`,
		snap.ProductURL,
	); err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", snap.ProductURL, err)
	}

	err = tx.QueryRow(ctx, `
	INSERT INTO product_data (
		name, availability, s3_path, timestamp, rating_count, rating_value,
		brand, price_currency, price_unit, price_base_value, price_base_unit,
		shop, icon_alt, icon_src, icon_s3_path, url, category_id
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	RETURNING id`,
		snap.Name,
		snap.Availability,
		snap.S3Path,
		snap.Timestamp,
		snap.RatingCount,
		snap.RatingValue,
		snap.Brand,
		snap.PriceCurrency,
		snap.PriceUnit,
		snap.PriceBaseValue,
		snap.PriceBaseUnit,
		snap.Shop,
		snap.IconAlt,
		snap.IconSrc,
		snap.IconS3Path,
		snap.ProductURL,
		snap.CategoryID,
	).Scan(&snap.ID)
	if err != nil {
		return fmt.Errorf("failed to insert product data for %s: %w", snap.ProductURL, err)
	}

	for i := range snap.Attributes {
		if err := insertAttribute(ctx, tx, snap.ID, &snap.Attributes[i]); err != nil {
			return err
		}
	}

	for i := range snap.Variants {
		if err := insertVariant(ctx, tx, snap.ID, &snap.Variants[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot for %s: %w", snap.ProductURL, err)
	}
	return nil
}

// insertAttribute writes the base row plus the subtype row sharing its id.
func insertAttribute(ctx context.Context, tx pgx.Tx, snapshotID int64, attr *domain.Attribute) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO attribute (type, product_data_id) VALUES ($1, $2) RETURNING id`,
		string(attr.Kind), snapshotID,
	).Scan(&attr.ID)
	if err != nil {
		return fmt.Errorf("failed to insert attribute: %w", err)
	}

	switch attr.Kind {
	case domain.AttributeCapacity:
		_, err = tx.Exec(ctx,
			`INSERT INTO capacity (id, unit, item_count, item_capacity) VALUES ($1, $2, $3, $4)`,
			attr.ID, attr.Unit, attr.ItemCount, attr.ItemCapacity)
	case domain.AttributeCapacityUnknown:
		_, err = tx.Exec(ctx,
			`INSERT INTO capacity_unknown (id, description) VALUES ($1, $2)`,
			attr.ID, attr.Description)
	case domain.AttributeSet:
		_, err = tx.Exec(ctx,
			`INSERT INTO "set" (id, item_count, unit) VALUES ($1, $2, $3)`,
			attr.ID, attr.ItemCount, attr.Unit)
	case domain.AttributeOther:
		_, err = tx.Exec(ctx,
			`INSERT INTO other_attribute (id, description) VALUES ($1, $2)`,
			attr.ID, attr.Description)
	default:
		return fmt.Errorf("unknown attribute kind: %s", attr.Kind)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s row: %w", attr.Kind, err)
	}
	return nil
}

func insertVariant(ctx context.Context, tx pgx.Tx, snapshotID int64, variant *domain.Variant) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO variant (type, product_data_id) VALUES ($1, $2) RETURNING id`,
		variant.Type, snapshotID,
	).Scan(&variant.ID)
	if err != nil {
		return fmt.Errorf("failed to insert variant %q: %w", variant.Type, err)
	}

	for _, value := range variant.Values {
		if _, err := tx.Exec(ctx,
			`INSERT INTO variant_value (value, variant_id) VALUES ($1, $2)`,
			value, variant.ID,
		); err != nil {
			return fmt.Errorf("failed to insert variant value %q: %w", value, err)
		}
	}
	return nil
}

// DeleteProduct removes a product and, through the cascades, every snapshot,
// attribute, variant and variant value under it.
func (r *catalogRepository) DeleteProduct(ctx context.Context, url string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM product WHERE url = $1`, url); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", url, err)
	}
	return nil
}
