package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"exportal/internal/models"
	"exportal/internal/reconcile"
)

const carouselColumns = "id, heading, subheading, position, image_ref, version, created_at, updated_at"

// CarouselFields are the scalar fields of a carousel slide.
type CarouselFields struct {
	Heading    string
	Subheading string
	Position   int
}

// JumbotronFields are the scalar fields of the homepage banner.
type JumbotronFields struct {
	Heading string
	Tagline string
}

// jumbotronID is the fixed id of the singleton banner row, and the
// external entity id the API exposes for it.
const JumbotronID = "jumbotron"

// CreateCarouselItem inserts one slide.
func (s *Store) CreateCarouselItem(ctx context.Context, fields CarouselFields, refs reconcile.RefSet) (*models.CarouselItem, error) {
	id, err := GenerateID("cs", func(candidate string) (bool, error) {
		return s.carouselItemExists(ctx, candidate)
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO carousel_items (id, heading, subheading, position, image_ref, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
	`,
		id,
		fields.Heading,
		nullIfEmpty(fields.Subheading),
		fields.Position,
		nullIfEmpty(firstRef(refs, "image")),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return nil, err
	}
	return s.GetCarouselItem(ctx, id)
}

// GetCarouselItem returns one slide, or nil when absent.
func (s *Store) GetCarouselItem(ctx context.Context, id string) (*models.CarouselItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+carouselColumns+` FROM carousel_items WHERE id = ?`, id)
	return scanCarouselItem(row)
}

// ListCarouselItems lists slides in display order.
func (s *Store) ListCarouselItems(ctx context.Context) ([]models.CarouselItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+carouselColumns+` FROM carousel_items ORDER BY position ASC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.CarouselItem{}
	for rows.Next() {
		item, err := scanCarouselItem(rows)
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, *item)
		}
	}
	return items, rows.Err()
}

// UpdateCarouselItem replaces fields and the image reference under an
// optimistic version check.
func (s *Store) UpdateCarouselItem(ctx context.Context, id string, version int64, fields CarouselFields, refs reconcile.RefSet) (*models.CarouselItem, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE carousel_items
		SET heading = ?, subheading = ?, position = ?, image_ref = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		fields.Heading,
		nullIfEmpty(fields.Subheading),
		fields.Position,
		nullIfEmpty(firstRef(refs, "image")),
		formatTime(now),
		id,
		version,
	)
	if err != nil {
		return nil, err
	}
	if err := checkVersionedUpdate(ctx, result, func() (bool, error) {
		return s.carouselItemExists(ctx, id)
	}); err != nil {
		return nil, err
	}
	return s.GetCarouselItem(ctx, id)
}

// DeleteCarouselItem removes the slide and returns its image reference.
func (s *Store) DeleteCarouselItem(ctx context.Context, id string) (refs reconcile.RefSet, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var imageRef sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT image_ref FROM carousel_items WHERE id = ?`, id).Scan(&imageRef)
	if err == sql.ErrNoRows {
		return nil, reconcile.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM carousel_items WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	refs = reconcile.RefSet{}
	if imageRef.Valid && imageRef.String != "" {
		refs["image"] = []string{imageRef.String}
	}
	return refs, nil
}

// CountCarouselItems returns the number of slides.
func (s *Store) CountCarouselItems(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM carousel_items`).Scan(&count)
	return count, err
}

func (s *Store) carouselItemExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM carousel_items WHERE id = ? LIMIT 1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanCarouselItem(scanner interface{ Scan(dest ...any) error }) (*models.CarouselItem, error) {
	var item models.CarouselItem
	var subheading, imageRef sql.NullString
	var createdAt, updatedAt string
	err := scanner.Scan(&item.ID, &item.Heading, &subheading, &item.Position, &imageRef, &item.Version, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.Subheading = subheading.String
	item.ImageRef = imageRef.String
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetJumbotron returns the singleton banner row.
func (s *Store) GetJumbotron(ctx context.Context) (*models.Jumbotron, error) {
	row := s.db.QueryRowContext(ctx, `SELECT heading, tagline, image_ref, version, updated_at FROM jumbotron WHERE id = 1`)
	var jumbo models.Jumbotron
	var tagline, imageRef sql.NullString
	var updatedAt string
	err := row.Scan(&jumbo.Heading, &tagline, &imageRef, &jumbo.Version, &updatedAt)
	if err == sql.ErrNoRows {
		// Seeded by migration; absence means a broken database.
		return nil, fmt.Errorf("jumbotron row is missing")
	}
	if err != nil {
		return nil, err
	}
	jumbo.Tagline = tagline.String
	jumbo.ImageRef = imageRef.String
	if jumbo.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &jumbo, nil
}

// UpdateJumbotron replaces the banner's fields and image reference
// under an optimistic version check.
func (s *Store) UpdateJumbotron(ctx context.Context, version int64, fields JumbotronFields, refs reconcile.RefSet) (*models.Jumbotron, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE jumbotron
		SET heading = ?, tagline = ?, image_ref = ?, version = version + 1, updated_at = ?
		WHERE id = 1 AND version = ?
	`,
		fields.Heading,
		nullIfEmpty(fields.Tagline),
		nullIfEmpty(firstRef(refs, "image")),
		formatTime(now),
		version,
	)
	if err != nil {
		return nil, err
	}
	if err := checkVersionedUpdate(ctx, result, func() (bool, error) {
		return true, nil
	}); err != nil {
		return nil, err
	}
	return s.GetJumbotron(ctx)
}

// CarouselRepository adapts carousel slides to the reconciler's
// repository contract.
type CarouselRepository struct {
	Store *Store
}

func (r CarouselRepository) Get(ctx context.Context, id string) (reconcile.Record, error) {
	item, err := r.Store.GetCarouselItem(ctx, id)
	if err != nil {
		return reconcile.Record{}, err
	}
	if item == nil {
		return reconcile.Record{}, reconcile.ErrNotFound
	}
	return carouselRecord(item), nil
}

func (r CarouselRepository) Create(ctx context.Context, fields any, refs reconcile.RefSet) (reconcile.Record, error) {
	typed, ok := fields.(CarouselFields)
	if !ok {
		return reconcile.Record{}, fmt.Errorf("unexpected fields type %T", fields)
	}
	item, err := r.Store.CreateCarouselItem(ctx, typed, refs)
	if err != nil {
		return reconcile.Record{}, err
	}
	return carouselRecord(item), nil
}

func (r CarouselRepository) Update(ctx context.Context, id string, version int64, fields any, refs reconcile.RefSet) (reconcile.Record, error) {
	typed, ok := fields.(CarouselFields)
	if !ok {
		return reconcile.Record{}, fmt.Errorf("unexpected fields type %T", fields)
	}
	item, err := r.Store.UpdateCarouselItem(ctx, id, version, typed, refs)
	if err != nil {
		return reconcile.Record{}, err
	}
	return carouselRecord(item), nil
}

func (r CarouselRepository) Delete(ctx context.Context, id string) (reconcile.RefSet, error) {
	return r.Store.DeleteCarouselItem(ctx, id)
}

func carouselRecord(item *models.CarouselItem) reconcile.Record {
	refs := reconcile.RefSet{}
	if item.ImageRef != "" {
		refs["image"] = []string{item.ImageRef}
	}
	return reconcile.Record{ID: item.ID, Version: item.Version, Refs: refs}
}

// JumbotronRepository adapts the singleton banner row to the
// reconciler's repository contract. The banner can be updated but
// never created or deleted through a mutation.
type JumbotronRepository struct {
	Store *Store
}

func (r JumbotronRepository) Get(ctx context.Context, id string) (reconcile.Record, error) {
	if id != JumbotronID {
		return reconcile.Record{}, reconcile.ErrNotFound
	}
	jumbo, err := r.Store.GetJumbotron(ctx)
	if err != nil {
		return reconcile.Record{}, err
	}
	refs := reconcile.RefSet{}
	if jumbo.ImageRef != "" {
		refs["image"] = []string{jumbo.ImageRef}
	}
	return reconcile.Record{ID: JumbotronID, Version: jumbo.Version, Refs: refs}, nil
}

func (r JumbotronRepository) Create(ctx context.Context, fields any, refs reconcile.RefSet) (reconcile.Record, error) {
	return reconcile.Record{}, fmt.Errorf("jumbotron is a singleton and cannot be created")
}

func (r JumbotronRepository) Update(ctx context.Context, id string, version int64, fields any, refs reconcile.RefSet) (reconcile.Record, error) {
	if id != JumbotronID {
		return reconcile.Record{}, reconcile.ErrNotFound
	}
	typed, ok := fields.(JumbotronFields)
	if !ok {
		return reconcile.Record{}, fmt.Errorf("unexpected fields type %T", fields)
	}
	jumbo, err := r.Store.UpdateJumbotron(ctx, version, typed, refs)
	if err != nil {
		return reconcile.Record{}, err
	}
	out := reconcile.RefSet{}
	if jumbo.ImageRef != "" {
		out["image"] = []string{jumbo.ImageRef}
	}
	return reconcile.Record{ID: JumbotronID, Version: jumbo.Version, Refs: out}, nil
}

func (r JumbotronRepository) Delete(ctx context.Context, id string) (reconcile.RefSet, error) {
	return nil, fmt.Errorf("jumbotron is a singleton and cannot be deleted")
}
