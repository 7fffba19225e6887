package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"exportal/internal/models"
	"exportal/internal/reconcile"
)

const certificateColumns = "id, title, issuer, year, category, src_ref, logo_ref, version, created_at, updated_at"

// CertificateFields are the scalar fields of a certificate row;
// attachment references travel separately as a reconcile.RefSet.
type CertificateFields struct {
	Title    string
	Issuer   string
	Year     int
	Category string
}

// CreateCertificate inserts a certificate with its initial references.
func (s *Store) CreateCertificate(ctx context.Context, fields CertificateFields, refs reconcile.RefSet) (*models.Certificate, error) {
	id, err := GenerateID("ct", func(candidate string) (bool, error) {
		return s.certificateExists(ctx, candidate)
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO certificates (id, title, issuer, year, category, src_ref, logo_ref, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`,
		id,
		fields.Title,
		nullIfEmpty(fields.Issuer),
		fields.Year,
		fields.Category,
		nullIfEmpty(firstRef(refs, "src")),
		nullIfEmpty(firstRef(refs, "logo")),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return nil, err
	}
	return s.GetCertificate(ctx, id)
}

// GetCertificate returns one certificate, or nil when absent.
func (s *Store) GetCertificate(ctx context.Context, id string) (*models.Certificate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE id = ?`, id)
	return scanCertificate(row)
}

// ListCertificates lists certificates, optionally filtered by category,
// newest first.
func (s *Store) ListCertificates(ctx context.Context, category string) ([]models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates`
	args := []any{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY year DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	certificates := []models.Certificate{}
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		if cert != nil {
			certificates = append(certificates, *cert)
		}
	}
	return certificates, rows.Err()
}

// UpdateCertificate replaces fields and references under an optimistic
// version check.
func (s *Store) UpdateCertificate(ctx context.Context, id string, version int64, fields CertificateFields, refs reconcile.RefSet) (*models.Certificate, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE certificates
		SET title = ?, issuer = ?, year = ?, category = ?, src_ref = ?, logo_ref = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		fields.Title,
		nullIfEmpty(fields.Issuer),
		fields.Year,
		fields.Category,
		nullIfEmpty(firstRef(refs, "src")),
		nullIfEmpty(firstRef(refs, "logo")),
		formatTime(now),
		id,
		version,
	)
	if err != nil {
		return nil, err
	}
	if err := checkVersionedUpdate(ctx, result, func() (bool, error) {
		return s.certificateExists(ctx, id)
	}); err != nil {
		return nil, err
	}
	return s.GetCertificate(ctx, id)
}

// DeleteCertificate removes the row and returns the references it held,
// observed in one transaction with the delete.
func (s *Store) DeleteCertificate(ctx context.Context, id string) (refs reconcile.RefSet, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var srcRef, logoRef sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT src_ref, logo_ref FROM certificates WHERE id = ?`, id).Scan(&srcRef, &logoRef)
	if err == sql.ErrNoRows {
		return nil, reconcile.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM certificates WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	refs = reconcile.RefSet{}
	if srcRef.Valid && srcRef.String != "" {
		refs["src"] = []string{srcRef.String}
	}
	if logoRef.Valid && logoRef.String != "" {
		refs["logo"] = []string{logoRef.String}
	}
	return refs, nil
}

// CountCertificates returns the total number of certificates.
func (s *Store) CountCertificates(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM certificates`).Scan(&count)
	return count, err
}

func (s *Store) certificateExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM certificates WHERE id = ? LIMIT 1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanCertificate(scanner interface{ Scan(dest ...any) error }) (*models.Certificate, error) {
	var cert models.Certificate
	var issuer, srcRef, logoRef sql.NullString
	var year sql.NullInt64
	var createdAt, updatedAt string
	err := scanner.Scan(&cert.ID, &cert.Title, &issuer, &year, &cert.Category, &srcRef, &logoRef, &cert.Version, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cert.Issuer = issuer.String
	cert.Year = int(year.Int64)
	cert.SrcRef = srcRef.String
	cert.LogoRef = logoRef.String
	if cert.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if cert.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &cert, nil
}

// CertificateRepository adapts the certificates table to the
// reconciler's repository contract.
type CertificateRepository struct {
	Store *Store
}

func (r CertificateRepository) Get(ctx context.Context, id string) (reconcile.Record, error) {
	cert, err := r.Store.GetCertificate(ctx, id)
	if err != nil {
		return reconcile.Record{}, err
	}
	if cert == nil {
		return reconcile.Record{}, reconcile.ErrNotFound
	}
	return certificateRecord(cert), nil
}

func (r CertificateRepository) Create(ctx context.Context, fields any, refs reconcile.RefSet) (reconcile.Record, error) {
	typed, ok := fields.(CertificateFields)
	if !ok {
		return reconcile.Record{}, fmt.Errorf("unexpected fields type %T", fields)
	}
	cert, err := r.Store.CreateCertificate(ctx, typed, refs)
	if err != nil {
		return reconcile.Record{}, err
	}
	return certificateRecord(cert), nil
}

func (r CertificateRepository) Update(ctx context.Context, id string, version int64, fields any, refs reconcile.RefSet) (reconcile.Record, error) {
	typed, ok := fields.(CertificateFields)
	if !ok {
		return reconcile.Record{}, fmt.Errorf("unexpected fields type %T", fields)
	}
	cert, err := r.Store.UpdateCertificate(ctx, id, version, typed, refs)
	if err != nil {
		return reconcile.Record{}, err
	}
	return certificateRecord(cert), nil
}

func (r CertificateRepository) Delete(ctx context.Context, id string) (reconcile.RefSet, error) {
	return r.Store.DeleteCertificate(ctx, id)
}

func certificateRecord(cert *models.Certificate) reconcile.Record {
	refs := reconcile.RefSet{}
	if cert.SrcRef != "" {
		refs["src"] = []string{cert.SrcRef}
	}
	if cert.LogoRef != "" {
		refs["logo"] = []string{cert.LogoRef}
	}
	return reconcile.Record{ID: cert.ID, Version: cert.Version, Refs: refs}
}
