package repository

import (
	"context"
	"fmt"
)

// schemaDDL is the one-time schema bootstrap, outside the per-document
// critical path. Cascade topology: deleting a product removes its snapshots
// and everything under them; deleting a category removes its sub-tree but NOT
// snapshots referencing it (that FK carries no cascade, so a referenced
// category cannot be dropped). Attribute subtype tables share the base
// table's primary key.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS product (
		url TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS category (
		id BIGSERIAL PRIMARY KEY,
		name TEXT,
		parent_category_id BIGINT REFERENCES category(id) ON DELETE CASCADE,
		first_parent_category_id BIGINT REFERENCES category(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_category_name ON category(name)`,
	`CREATE TABLE IF NOT EXISTS product_data (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		availability BOOLEAN,
		s3_path TEXT,
		timestamp TIMESTAMPTZ,
		rating_count TEXT,
		rating_value DOUBLE PRECISION,
		brand TEXT,
		price_currency TEXT,
		price_unit DOUBLE PRECISION,
		price_base_value DOUBLE PRECISION,
		price_base_unit TEXT,
		shop TEXT,
		icon_alt TEXT,
		icon_src TEXT,
		icon_s3_path TEXT,
		url TEXT NOT NULL REFERENCES product(url) ON DELETE CASCADE,
		category_id BIGINT NOT NULL REFERENCES category(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_data_url ON product_data(url)`,
	`CREATE TABLE IF NOT EXISTS attribute (
		id BIGSERIAL PRIMARY KEY,
		type VARCHAR(50),
		product_data_id BIGINT NOT NULL REFERENCES product_data(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS capacity (
		id BIGINT PRIMARY KEY REFERENCES attribute(id) ON DELETE CASCADE,
		unit TEXT,
		item_count INTEGER,
		item_capacity DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS capacity_unknown (
		id BIGINT PRIMARY KEY REFERENCES attribute(id) ON DELETE CASCADE,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS "set" (
		id BIGINT PRIMARY KEY REFERENCES attribute(id) ON DELETE CASCADE,
		item_count INTEGER,
		unit TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS other_attribute (
		id BIGINT PRIMARY KEY REFERENCES attribute(id) ON DELETE CASCADE,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS variant (
		id BIGSERIAL PRIMARY KEY,
		type TEXT,
		product_data_id BIGINT NOT NULL REFERENCES product_data(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS variant_value (
		id BIGSERIAL PRIMARY KEY,
		value TEXT,
		variant_id BIGINT NOT NULL REFERENCES variant(id) ON DELETE CASCADE
	)`,
}

func (r *catalogRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to bootstrap schema: %w", err)
		}
	}
	return nil
}
