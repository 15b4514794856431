package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"propertycare-backend/internal/receipts"
)

var docColumns = []string{
	"id", "owner_id", "original_name", "stored_name", "storage_key", "mime_type", "size_bytes",
	"kind", "status", "property_id", "maintenance_log_id", "extracted", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateEncodesExtracted(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	amount := 45.67
	doc := Document{
		ID:           "doc-1",
		OwnerID:      "owner-1",
		OriginalName: "rona.pdf",
		StoredName:   "uuid_rona.pdf",
		StorageKey:   "hash/uuid_rona.pdf",
		MimeType:     "application/pdf",
		SizeBytes:    10,
		Kind:         KindReceipt,
		Status:       StatusUnattached,
		Extracted:    &receipts.Fields{Amount: &amount, Category: "General"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.OwnerID,
			doc.OriginalName,
			doc.StoredName,
			doc.StorageKey,
			doc.MimeType,
			doc.SizeBytes,
			doc.Kind,
			doc.Status,
			nil, // property_id
			nil, // maintenance_log_id
			`{"vendor":null,"amount":45.67,"date":null,"category":"General","titleSuggestion":null,"textSample":""}`,
			doc.CreatedAt,
			doc.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetDecodesExtracted(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(docColumns).AddRow(
		"doc-1", "owner-1", "rona.pdf", "s", "k", "application/pdf", int64(10), "receipt", "attached",
		"prop-1", "log-1", []byte(`{"vendor":"Rona","amount":45.67,"date":"2024-06-01T00:00:00Z","category":"General","titleSuggestion":"Rona • $45.67","textSample":"RONA"}`),
		now, now,
	)
	mock.ExpectQuery("FROM documents").WithArgs("owner-1", "doc-1").WillReturnRows(rows)

	doc, err := repo.Get(context.Background(), "owner-1", "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Extracted == nil || *doc.Extracted.Vendor != "Rona" || doc.Extracted.Date == nil {
		t.Fatalf("unexpected extracted %+v", doc.Extracted)
	}
	if *doc.PropertyID != "prop-1" || *doc.MaintenanceLogID != "log-1" {
		t.Fatalf("unexpected links %+v", doc)
	}
}

func TestPGRepoAttachConflictWhenAlreadyAttached(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE documents").
		WithArgs("prop-1", "log-1", now, "owner-1", "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM documents").
		WithArgs("owner-1", "doc-1").
		WillReturnRows(sqlmock.NewRows(docColumns).AddRow(
			"doc-1", "owner-1", "a.pdf", "s", "k", "application/pdf", int64(1), "receipt", "attached",
			"prop-0", "log-0", nil, now, now,
		))

	err := repo.Attach(context.Background(), "owner-1", "doc-1", "prop-1", "log-1", now)
	if !errors.Is(err, ErrAlreadyAttached) {
		t.Fatalf("expected ErrAlreadyAttached, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoAttachMissingDocument(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE documents").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM documents").WillReturnRows(sqlmock.NewRows(docColumns))

	err := repo.Attach(context.Background(), "owner-1", "doc-1", "prop-1", "log-1", now)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListFiltersAndCounts(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM documents WHERE owner_id = \$1 AND kind = \$2 AND status = \$3`).
		WithArgs("owner-1", "receipt", "unattached").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`LIMIT \$4 OFFSET \$5`).
		WithArgs("owner-1", "receipt", "unattached", 2, 4).
		WillReturnRows(sqlmock.NewRows(docColumns).AddRow(
			"doc-1", "owner-1", "a.pdf", "s", "k", "application/pdf", int64(1), "receipt", "unattached",
			nil, nil, nil, now, now,
		))

	docs, total, err := repo.List(context.Background(), ListFilter{OwnerID: "owner-1", Kind: "receipt", Status: "unattached", Limit: 2, Skip: 4})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 7 || len(docs) != 1 || docs[0].Extracted != nil || docs[0].PropertyID != nil {
		t.Fatalf("unexpected list result total=%d docs=%+v", total, docs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteUnattachedBeforeReturnsRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`DELETE FROM documents\s+WHERE owner_id = \$1 AND kind = 'receipt' AND status = 'unattached' AND created_at < \$2`).
		WithArgs("owner-1", cutoff).
		WillReturnRows(sqlmock.NewRows(docColumns).AddRow(
			"doc-1", "owner-1", "a.pdf", "s", "hash/a.pdf", "application/pdf", int64(1), "receipt", "unattached",
			nil, nil, nil, cutoff.Add(-time.Hour), cutoff.Add(-time.Hour),
		))

	docs, err := repo.DeleteUnattachedBefore(context.Background(), "owner-1", cutoff)
	if err != nil {
		t.Fatalf("DeleteUnattachedBefore: %v", err)
	}
	if len(docs) != 1 || docs[0].StorageKey != "hash/a.pdf" {
		t.Fatalf("unexpected deleted docs %+v", docs)
	}
}
