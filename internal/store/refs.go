package store

import (
	"context"
	"database/sql"

	"exportal/internal/reconcile"
)

func firstRef(refs reconcile.RefSet, slot string) string {
	values := refs[slot]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// checkVersionedUpdate classifies a zero-row versioned UPDATE as either
// a missing row or a lost optimistic version check.
func checkVersionedUpdate(ctx context.Context, result sql.Result, exists func() (bool, error)) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	ok, err := exists()
	if err != nil {
		return err
	}
	if !ok {
		return reconcile.ErrNotFound
	}
	return reconcile.ErrConflict
}

// LiveBlobRefs collects every blob reference committed across all
// entity tables, keyed for the orphan sweep.
func (s *Store) LiveBlobRefs(ctx context.Context) (map[string]struct{}, error) {
	live := map[string]struct{}{}

	singles := []string{
		`SELECT src_ref FROM certificates WHERE src_ref IS NOT NULL AND src_ref != ''`,
		`SELECT logo_ref FROM certificates WHERE logo_ref IS NOT NULL AND logo_ref != ''`,
		`SELECT image_ref FROM carousel_items WHERE image_ref IS NOT NULL AND image_ref != ''`,
		`SELECT image_ref FROM jumbotron WHERE image_ref IS NOT NULL AND image_ref != ''`,
	}
	for _, query := range singles {
		if err := s.collectRefs(ctx, query, live); err != nil {
			return nil, err
		}
	}

	products, err := s.ListProducts(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, product := range products {
		for _, ref := range product.ImageRefs {
			live[ref] = struct{}{}
		}
	}
	return live, nil
}

func (s *Store) collectRefs(ctx context.Context, query string, into map[string]struct{}) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return err
		}
		if ref != "" {
			into[ref] = struct{}{}
		}
	}
	return rows.Err()
}
