package service

import (
	"context"
	"fmt"

	"pricewatch/ingestor/internal/domain"
)

// resolveCategoryPath finds or creates the category chain for one listing and
// returns the leaf node the snapshot binds to.
//
// Path layout: index 0 is the site root label ("Accueil"/"Home"), index 1 the
// top-level department, indices 2..n-2 intermediate categories. The final
// element is the product's own display label, never persisted as a category.
//
// Every created node is committed before the next lookup, so a name repeated
// within one path resolves to the row just created instead of a duplicate.
func (s *Service) resolveCategoryPath(ctx context.Context, path []string) (*domain.Category, error) {
	if len(path) < 3 {
		return nil, fmt.Errorf("%w: category path has %d elements, need at least 3", domain.ErrMalformedDocument, len(path))
	}

	homeCat, err := s.findOrCreateCategory(ctx, path[0], nil, nil)
	if err != nil {
		return nil, err
	}

	mainCat, err := s.findOrCreateCategory(ctx, path[1], &homeCat.ID, nil)
	if err != nil {
		return nil, err
	}

	// A 3-element path has no intermediates; the snapshot then binds to the
	// department node itself.
	previousCat := mainCat
	actualCat := mainCat

	for _, name := range path[2 : len(path)-1] {
		actualCat, err = s.findOrCreateCategory(ctx, name, &previousCat.ID, &mainCat.ID)
		if err != nil {
			return nil, err
		}
		previousCat = actualCat
	}

	return actualCat, nil
}

// findOrCreateCategory looks a category up by name alone, not scoped to the
// parent, so two branches sharing a leaf name reuse one row. The upstream
// schema has always worked this way and downstream consumers rely on it.
func (s *Service) findOrCreateCategory(ctx context.Context, name string, parentID, firstParentID *int64) (*domain.Category, error) {
	cat, err := s.repository.FindCategoryByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if cat != nil {
		return cat, nil
	}

	cat = &domain.Category{
		Name:                  name,
		ParentCategoryID:      parentID,
		FirstParentCategoryID: firstParentID,
	}
	if err := s.repository.CreateCategory(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}
