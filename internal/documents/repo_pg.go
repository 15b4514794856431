package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"propertycare-backend/internal/receipts"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, owner_id, original_name, stored_name, storage_key, mime_type, size_bytes, kind, status, property_id, maintenance_log_id, extracted, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	extracted, err := marshalExtracted(doc.Extracted)
	if err != nil {
		return err
	}
	query := `
INSERT INTO documents (` + documentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.OwnerID,
		doc.OriginalName,
		doc.StoredName,
		doc.StorageKey,
		doc.MimeType,
		doc.SizeBytes,
		doc.Kind,
		doc.Status,
		nullString(doc.PropertyID),
		nullString(doc.MaintenanceLogID),
		extracted,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// Get fetches a document by id for an owner.
func (r *PGRepo) Get(ctx context.Context, ownerID, id string) (Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = $1 AND id = $2`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, ownerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// List returns matching documents newest first, with the total before paging.
func (r *PGRepo) List(ctx context.Context, f ListFilter) ([]Document, int, error) {
	where := []string{"owner_id = $1"}
	args := []any{f.OwnerID}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("kind", f.Kind)
	add("status", f.Status)
	add("property_id", f.PropertyID)
	add("maintenance_log_id", f.LogID)
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageArgs := append(append([]any{}, args...), f.Limit, f.Skip)
	query := fmt.Sprintf(`SELECT %s
FROM documents
WHERE %s
ORDER BY created_at DESC
LIMIT $%d OFFSET $%d`, documentColumns, clause, len(args)+1, len(args)+2)

	rows, err := r.DB.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, doc)
	}
	return out, total, rows.Err()
}

// UpdateExtracted replaces the stored extracted fields.
func (r *PGRepo) UpdateExtracted(ctx context.Context, ownerID, id string, fields receipts.Fields, updatedAt time.Time) error {
	extracted, err := marshalExtracted(&fields)
	if err != nil {
		return err
	}
	const query = `
UPDATE documents
SET extracted = $1, updated_at = $2
WHERE owner_id = $3 AND id = $4`
	res, err := r.DB.ExecContext(ctx, query, extracted, updatedAt, ownerID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Attach sets both links and the attached status in one conditional write.
func (r *PGRepo) Attach(ctx context.Context, ownerID, id, propertyID, logID string, updatedAt time.Time) error {
	const query = `
UPDATE documents
SET status = 'attached', property_id = $1, maintenance_log_id = $2, updated_at = $3
WHERE owner_id = $4 AND id = $5 AND status = 'unattached'`
	res, err := r.DB.ExecContext(ctx, query, propertyID, logID, updatedAt, ownerID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return ErrAlreadyAttached
}

// Delete removes a document record.
func (r *PGRepo) Delete(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM documents WHERE owner_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteUnattachedBefore removes stale unattached receipts and returns them.
func (r *PGRepo) DeleteUnattachedBefore(ctx context.Context, ownerID string, cutoff time.Time) ([]Document, error) {
	query := `
DELETE FROM documents
WHERE owner_id = $1 AND kind = 'receipt' AND status = 'unattached' AND created_at < $2
RETURNING ` + documentColumns
	rows, err := r.DB.QueryContext(ctx, query, ownerID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var propertyID, logID sql.NullString
	var extracted []byte
	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.OriginalName,
		&doc.StoredName,
		&doc.StorageKey,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.Kind,
		&doc.Status,
		&propertyID,
		&logID,
		&extracted,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	if propertyID.Valid {
		doc.PropertyID = &propertyID.String
	}
	if logID.Valid {
		doc.MaintenanceLogID = &logID.String
	}
	if len(extracted) > 0 {
		var fields receipts.Fields
		if err := json.Unmarshal(extracted, &fields); err != nil {
			return Document{}, fmt.Errorf("decode extracted: %w", err)
		}
		doc.Extracted = &fields
	}
	return doc, nil
}

func marshalExtracted(fields *receipts.Fields) (any, error) {
	if fields == nil {
		return nil, nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode extracted: %w", err)
	}
	return string(b), nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
