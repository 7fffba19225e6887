package store

import (
	"context"
	"database/sql"
	"time"

	"exportal/internal/models"
)

const enquiryColumns = "id, name, email, phone, subject, message, status, created_at, updated_at"

// CreateEnquiry inserts a new contact enquiry with status "new".
func (s *Store) CreateEnquiry(ctx context.Context, enquiry *models.Enquiry) (*models.Enquiry, error) {
	id, err := GenerateID("eq", func(candidate string) (bool, error) {
		return s.enquiryExists(ctx, candidate)
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO enquiries (id, name, email, phone, subject, message, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		enquiry.Name,
		enquiry.Email,
		nullIfEmpty(enquiry.Phone),
		nullIfEmpty(enquiry.Subject),
		enquiry.Message,
		string(models.EnquiryStatusNew),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return nil, err
	}
	return s.GetEnquiry(ctx, id)
}

// GetEnquiry returns one enquiry, or nil when absent.
func (s *Store) GetEnquiry(ctx context.Context, id string) (*models.Enquiry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+enquiryColumns+` FROM enquiries WHERE id = ?`, id)
	return scanEnquiry(row)
}

// ListEnquiries lists enquiries newest first, optionally filtered by
// status.
func (s *Store) ListEnquiries(ctx context.Context, status string, limit, offset int) ([]models.Enquiry, error) {
	query := `SELECT ` + enquiryColumns + ` FROM enquiries`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enquiries := []models.Enquiry{}
	for rows.Next() {
		enquiry, err := scanEnquiry(rows)
		if err != nil {
			return nil, err
		}
		if enquiry != nil {
			enquiries = append(enquiries, *enquiry)
		}
	}
	return enquiries, rows.Err()
}

// SetEnquiryStatus updates one enquiry's handling status. Returns nil
// when the enquiry does not exist.
func (s *Store) SetEnquiryStatus(ctx context.Context, id, status string) (*models.Enquiry, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE enquiries SET status = ?, updated_at = ? WHERE id = ?
	`, status, formatTime(now), id)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetEnquiry(ctx, id)
}

// DeleteEnquiry deletes one enquiry. Returns false when absent.
func (s *Store) DeleteEnquiry(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM enquiries WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CountEnquiriesByStatus returns enquiry counts grouped by status.
func (s *Store) CountEnquiriesByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM enquiries GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (s *Store) enquiryExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM enquiries WHERE id = ? LIMIT 1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanEnquiry(scanner interface{ Scan(dest ...any) error }) (*models.Enquiry, error) {
	var enquiry models.Enquiry
	var phone, subject sql.NullString
	var createdAt, updatedAt string
	err := scanner.Scan(&enquiry.ID, &enquiry.Name, &enquiry.Email, &phone, &subject, &enquiry.Message, &enquiry.Status, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	enquiry.Phone = phone.String
	enquiry.Subject = subject.String
	if enquiry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if enquiry.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &enquiry, nil
}
