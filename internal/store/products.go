package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"exportal/internal/models"
	"exportal/internal/reconcile"
)

const productColumns = "id, name, category, origin, description, packaging_json, images_json, version, created_at, updated_at"

// ProductFields are the scalar fields of a product row. Packaging is a
// typed list; it is serialized only at this layer.
type ProductFields struct {
	Name        string
	Category    string
	Origin      string
	Description string
	Packaging   []string
}

// CreateProduct inserts a product with its initial image references.
func (s *Store) CreateProduct(ctx context.Context, fields ProductFields, refs reconcile.RefSet) (*models.Product, error) {
	id, err := GenerateID("pr", func(candidate string) (bool, error) {
		return s.productExists(ctx, candidate)
	})
	if err != nil {
		return nil, err
	}

	packagingJSON, err := encodeStringList(fields.Packaging)
	if err != nil {
		return nil, err
	}
	imagesJSON, err := encodeStringList(refs["images"])
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, origin, description, packaging_json, images_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`,
		id,
		fields.Name,
		fields.Category,
		nullIfEmpty(fields.Origin),
		nullIfEmpty(fields.Description),
		nullIfEmpty(packagingJSON),
		imagesJSON,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

// GetProduct returns one product, or nil when absent.
func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

// ListProducts lists products, optionally filtered by category.
func (s *Store) ListProducts(ctx context.Context, category string) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		if product != nil {
			products = append(products, *product)
		}
	}
	return products, rows.Err()
}

// UpdateProduct replaces fields and the whole ordered image list under
// an optimistic version check.
func (s *Store) UpdateProduct(ctx context.Context, id string, version int64, fields ProductFields, refs reconcile.RefSet) (*models.Product, error) {
	packagingJSON, err := encodeStringList(fields.Packaging)
	if err != nil {
		return nil, err
	}
	imagesJSON, err := encodeStringList(refs["images"])
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, category = ?, origin = ?, description = ?, packaging_json = ?, images_json = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		fields.Name,
		fields.Category,
		nullIfEmpty(fields.Origin),
		nullIfEmpty(fields.Description),
		nullIfEmpty(packagingJSON),
		imagesJSON,
		formatTime(now),
		id,
		version,
	)
	if err != nil {
		return nil, err
	}
	if err := checkVersionedUpdate(ctx, result, func() (bool, error) {
		return s.productExists(ctx, id)
	}); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes the row and returns its image references.
func (s *Store) DeleteProduct(ctx context.Context, id string) (refs reconcile.RefSet, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var imagesJSON string
	err = tx.QueryRowContext(ctx, `SELECT images_json FROM products WHERE id = ?`, id).Scan(&imagesJSON)
	if err == sql.ErrNoRows {
		return nil, reconcile.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	images, err := decodeStringList(imagesJSON)
	if err != nil {
		return nil, err
	}
	refs = reconcile.RefSet{}
	if len(images) > 0 {
		refs["images"] = images
	}
	return refs, nil
}

// CountProducts returns the total number of products.
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count)
	return count, err
}

func (s *Store) productExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ? LIMIT 1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanProduct(scanner interface{ Scan(dest ...any) error }) (*models.Product, error) {
	var product models.Product
	var origin, description, packagingJSON sql.NullString
	var imagesJSON string
	var createdAt, updatedAt string
	err := scanner.Scan(&product.ID, &product.Name, &product.Category, &origin, &description, &packagingJSON, &imagesJSON, &product.Version, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	product.Origin = origin.String
	product.Description = description.String
	if product.Packaging, err = decodeStringList(packagingJSON.String); err != nil {
		return nil, err
	}
	if product.ImageRefs, err = decodeStringList(imagesJSON); err != nil {
		return nil, err
	}
	if product.ImageRefs == nil {
		product.ImageRefs = []string{}
	}
	if product.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if product.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &product, nil
}

func encodeStringList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeStringList(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}
	return values, nil
}

// ProductRepository adapts the products table to the reconciler's
// repository contract.
type ProductRepository struct {
	Store *Store
}

func (r ProductRepository) Get(ctx context.Context, id string) (reconcile.Record, error) {
	product, err := r.Store.GetProduct(ctx, id)
	if err != nil {
		return reconcile.Record{}, err
	}
	if product == nil {
		return reconcile.Record{}, reconcile.ErrNotFound
	}
	return productRecord(product), nil
}

func (r ProductRepository) Create(ctx context.Context, fields any, refs reconcile.RefSet) (reconcile.Record, error) {
	typed, ok := fields.(ProductFields)
	if !ok {
		return reconcile.Record{}, fmt.Errorf("unexpected fields type %T", fields)
	}
	product, err := r.Store.CreateProduct(ctx, typed, refs)
	if err != nil {
		return reconcile.Record{}, err
	}
	return productRecord(product), nil
}

func (r ProductRepository) Update(ctx context.Context, id string, version int64, fields any, refs reconcile.RefSet) (reconcile.Record, error) {
	typed, ok := fields.(ProductFields)
	if !ok {
		return reconcile.Record{}, fmt.Errorf("unexpected fields type %T", fields)
	}
	product, err := r.Store.UpdateProduct(ctx, id, version, typed, refs)
	if err != nil {
		return reconcile.Record{}, err
	}
	return productRecord(product), nil
}

func (r ProductRepository) Delete(ctx context.Context, id string) (reconcile.RefSet, error) {
	return r.Store.DeleteProduct(ctx, id)
}

func productRecord(product *models.Product) reconcile.Record {
	refs := reconcile.RefSet{}
	if len(product.ImageRefs) > 0 {
		refs["images"] = append([]string(nil), product.ImageRefs...)
	}
	return reconcile.Record{ID: product.ID, Version: product.Version, Refs: refs}
}
