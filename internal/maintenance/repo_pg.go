package maintenance

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const propertyColumns = `id, owner_id, name, address, created_at`

const logColumns = `id, owner_id, property_id, title, service_date, vendor, category, cost, notes, next_due_date, reminder_enabled, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) CreateProperty(ctx context.Context, p Property) error {
	const query = `
INSERT INTO properties (id, owner_id, name, address, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.DB.ExecContext(ctx, query, p.ID, p.OwnerID, p.Name, nullString(p.Address), p.CreatedAt)
	return err
}

func (r *PGRepo) GetProperty(ctx context.Context, ownerID, id string) (Property, error) {
	query := `SELECT ` + propertyColumns + `
FROM properties
WHERE owner_id = $1 AND id = $2`
	p, err := scanProperty(r.DB.QueryRowContext(ctx, query, ownerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Property{}, ErrNotFound
	}
	return p, err
}

func (r *PGRepo) ListProperties(ctx context.Context, ownerID string) ([]Property, error) {
	query := `SELECT ` + propertyColumns + `
FROM properties
WHERE owner_id = $1
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) CreateLog(ctx context.Context, l Log) error {
	query := `
INSERT INTO maintenance_logs (` + logColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.DB.ExecContext(
		ctx,
		query,
		l.ID,
		l.OwnerID,
		l.PropertyID,
		l.Title,
		l.ServiceDate,
		nullString(l.Vendor),
		l.Category,
		l.Cost,
		nullString(l.Notes),
		nullTime(l.NextDueDate),
		l.ReminderEnabled,
		l.CreatedAt,
		l.UpdatedAt,
	)
	return err
}

func (r *PGRepo) GetLog(ctx context.Context, ownerID, id string) (Log, error) {
	query := `SELECT ` + logColumns + `
FROM maintenance_logs
WHERE owner_id = $1 AND id = $2`
	l, err := scanLog(r.DB.QueryRowContext(ctx, query, ownerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Log{}, ErrNotFound
	}
	return l, err
}

func (r *PGRepo) ListLogs(ctx context.Context, ownerID, propertyID string) ([]Log, error) {
	query := `SELECT ` + logColumns + `
FROM maintenance_logs
WHERE owner_id = $1 AND property_id = $2
ORDER BY service_date DESC, created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Log, 0)
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PGRepo) DeleteLog(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM maintenance_logs WHERE owner_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProperty(row rowScanner) (Property, error) {
	var p Property
	var address sql.NullString
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &address, &p.CreatedAt); err != nil {
		return Property{}, err
	}
	if address.Valid {
		p.Address = &address.String
	}
	return p, nil
}

func scanLog(row rowScanner) (Log, error) {
	var l Log
	var vendor, notes sql.NullString
	var nextDue sql.NullTime
	err := row.Scan(
		&l.ID,
		&l.OwnerID,
		&l.PropertyID,
		&l.Title,
		&l.ServiceDate,
		&vendor,
		&l.Category,
		&l.Cost,
		&notes,
		&nextDue,
		&l.ReminderEnabled,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return Log{}, err
	}
	if vendor.Valid {
		l.Vendor = &vendor.String
	}
	if notes.Valid {
		l.Notes = &notes.String
	}
	if nextDue.Valid {
		t := nextDue.Time
		l.NextDueDate = &t
	}
	return l, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
