package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"propertycare-backend/internal/maintenance"
	"propertycare-backend/internal/receipts"
	"propertycare-backend/internal/shared/metrics"
	"propertycare-backend/internal/shared/storage/object"
	"propertycare-backend/internal/shared/telemetry"
	"propertycare-backend/internal/shared/util"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// FieldExtractor turns a stored file into extracted receipt fields. It never fails.
type FieldExtractor interface {
	Extract(ctx context.Context, in receipts.Input) receipts.Fields
}

// MaintenanceStore is the subset of the maintenance service receipts depend on.
type MaintenanceStore interface {
	GetProperty(ctx context.Context, ownerID, id string) (maintenance.Property, error)
	GetLog(ctx context.Context, ownerID, id string) (maintenance.Log, error)
	CreateLog(ctx context.Context, ownerID string, in maintenance.LogInput) (maintenance.Log, error)
	DeleteLog(ctx context.Context, ownerID, id string) error
}

// Service owns the receipt document lifecycle.
type Service struct {
	Store              object.ObjectStore
	Repo               Repo
	Extractor          FieldExtractor
	Maintenance        MaintenanceStore
	CleanupDefaultDays int
	now                func() time.Time
}

// NewService constructs a Service.
func NewService(store object.ObjectStore, repo Repo, extractor FieldExtractor, maint MaintenanceStore, cleanupDefaultDays int) *Service {
	if cleanupDefaultDays <= 0 {
		cleanupDefaultDays = 30
	}
	return &Service{
		Store:              store,
		Repo:               repo,
		Extractor:          extractor,
		Maintenance:        maint,
		CleanupDefaultDays: cleanupDefaultDays,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// UploadInput describes an incoming receipt file.
type UploadInput struct {
	FileName string
	MimeType string
	Body     io.Reader
}

// Upload stores the file, extracts its fields and records an unattached receipt.
func (s *Service) Upload(ctx context.Context, ownerID string, in UploadInput) (Document, error) {
	name := strings.TrimSpace(in.FileName)
	if name == "" || in.Body == nil {
		return Document{}, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	if _, err := util.SanitizeFileName(name); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	storageKey, size, sniffed, err := s.Store.Save(ctx, ownerID, name, in.Body)
	if err != nil {
		return Document{}, fmt.Errorf("save file: %w", err)
	}
	mimeType := chooseMimeType(in.MimeType, sniffed)

	fields := s.extract(ctx, storageKey, mimeType, name)
	now := s.now()
	doc := Document{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		OriginalName: name,
		StoredName:   path.Base(storageKey),
		StorageKey:   storageKey,
		MimeType:     mimeType,
		SizeBytes:    size,
		Kind:         KindReceipt,
		Status:       StatusUnattached,
		Extracted:    &fields,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		object.RemoveBestEffort(ctx, s.Store, storageKey)
		return Document{}, err
	}

	metrics.IncReceiptUploaded()
	telemetry.Info("receipt.uploaded", map[string]any{
		"document_id": doc.ID,
		"user_id":     ownerID,
		"mime_type":   mimeType,
		"size_bytes":  size,
	})
	return doc, nil
}

// ListQuery holds raw listing parameters.
type ListQuery struct {
	Kind       string
	Status     string
	PropertyID string
	LogID      string
	Limit      int
	Skip       int
}

// ListResult is one page of documents plus the unpaged total.
type ListResult struct {
	Items []Document
	Total int
	Limit int
	Skip  int
}

// List returns the owner's documents newest first. An empty kind lists receipts.
func (s *Service) List(ctx context.Context, ownerID string, q ListQuery) (ListResult, error) {
	f := ListFilter{
		OwnerID:    ownerID,
		Kind:       strings.TrimSpace(q.Kind),
		Status:     strings.TrimSpace(q.Status),
		PropertyID: strings.TrimSpace(q.PropertyID),
		LogID:      strings.TrimSpace(q.LogID),
		Limit:      q.Limit,
		Skip:       q.Skip,
	}
	if f.Kind == "" {
		f.Kind = KindReceipt
	}
	if f.Kind != KindReceipt && f.Kind != KindAttachment {
		return ListResult{}, fmt.Errorf("%w: kind must be receipt or attachment", ErrInvalidInput)
	}
	if f.Status != "" && f.Status != StatusUnattached && f.Status != StatusAttached {
		return ListResult{}, fmt.Errorf("%w: status must be unattached or attached", ErrInvalidInput)
	}
	if (f.PropertyID != "" && !validID(f.PropertyID)) || (f.LogID != "" && !validID(f.LogID)) {
		return ListResult{Items: []Document{}, Limit: clampLimit(f.Limit), Skip: max(f.Skip, 0)}, nil
	}
	f.Limit = clampLimit(f.Limit)
	if f.Skip < 0 {
		f.Skip = 0
	}

	items, total, err := s.Repo.List(ctx, f)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total, Limit: f.Limit, Skip: f.Skip}, nil
}

// Get returns one of the owner's documents.
func (s *Service) Get(ctx context.Context, ownerID, id string) (Document, error) {
	if !validID(id) {
		return Document{}, ErrNotFound
	}
	return s.Repo.Get(ctx, ownerID, id)
}

// Rescan re-runs extraction and replaces the extracted fields wholesale.
func (s *Service) Rescan(ctx context.Context, ownerID, id string) (Document, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return Document{}, err
	}
	if err := s.requireFile(ctx, doc); err != nil {
		return Document{}, err
	}

	fields := s.extract(ctx, doc.StorageKey, doc.MimeType, doc.OriginalName)
	now := s.now()
	if err := s.Repo.UpdateExtracted(ctx, ownerID, id, fields, now); err != nil {
		return Document{}, err
	}
	doc.Extracted = &fields
	doc.UpdatedAt = now
	telemetry.Info("receipt.rescanned", map[string]any{"document_id": id, "user_id": ownerID})
	return doc, nil
}

// Patch is a partial edit of extracted fields. Unset fields keep their
// stored value; set-but-null fields are cleared.
type Patch struct {
	Vendor          Optional[string]
	Amount          Optional[float64]
	Date            Optional[time.Time]
	Category        Optional[string]
	TitleSuggestion Optional[string]
}

// Update merges a Patch over the stored extracted fields.
func (s *Service) Update(ctx context.Context, ownerID, id string, p Patch) (Document, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return Document{}, err
	}

	fields := receipts.Fields{Category: receipts.DefaultCategory}
	if doc.Extracted != nil {
		fields = *doc.Extracted
	}
	if p.Vendor.Set {
		fields.Vendor = cleanText(p.Vendor.Value)
	}
	if p.TitleSuggestion.Set {
		fields.TitleSuggestion = cleanText(p.TitleSuggestion.Value)
	}
	if p.Category.Set {
		fields.Category = receipts.DefaultCategory
		if c := cleanText(p.Category.Value); c != nil {
			fields.Category = receipts.NormalizeCategory(*c)
		}
	}
	if p.Amount.Set {
		fields.Amount = cleanAmount(p.Amount.Value)
	}
	if p.Date.Set {
		fields.Date = nil
		if p.Date.Value != nil && !p.Date.Value.IsZero() {
			d := p.Date.Value.UTC()
			fields.Date = &d
		}
	}
	if fields.Category == "" {
		fields.Category = receipts.DefaultCategory
	}

	now := s.now()
	if err := s.Repo.UpdateExtracted(ctx, ownerID, id, fields, now); err != nil {
		return Document{}, err
	}
	doc.Extracted = &fields
	doc.UpdatedAt = now
	return doc, nil
}

// Attach links an unattached receipt to an existing maintenance log.
func (s *Service) Attach(ctx context.Context, ownerID, id, propertyID, logID string) (Document, error) {
	propertyID = strings.TrimSpace(propertyID)
	logID = strings.TrimSpace(logID)
	if propertyID == "" {
		return Document{}, fmt.Errorf("%w: propertyId is required", ErrInvalidInput)
	}
	if logID == "" {
		return Document{}, fmt.Errorf("%w: logId is required", ErrInvalidInput)
	}

	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return Document{}, err
	}
	if doc.Status == StatusAttached {
		return Document{}, ErrAlreadyAttached
	}
	if _, err := s.Maintenance.GetProperty(ctx, ownerID, propertyID); err != nil {
		return Document{}, collaboratorErr(err, "property")
	}
	log, err := s.Maintenance.GetLog(ctx, ownerID, logID)
	if err != nil {
		return Document{}, collaboratorErr(err, "maintenance log")
	}
	if log.PropertyID != propertyID {
		return Document{}, fmt.Errorf("%w: maintenance log does not belong to property", ErrInvalidInput)
	}

	now := s.now()
	if err := s.Repo.Attach(ctx, ownerID, id, propertyID, logID, now); err != nil {
		return Document{}, err
	}
	metrics.IncReceiptAttached()
	telemetry.Info("receipt.attached", map[string]any{
		"document_id": id,
		"user_id":     ownerID,
		"property_id": propertyID,
		"log_id":      logID,
	})

	doc.Status = StatusAttached
	doc.PropertyID = &propertyID
	doc.MaintenanceLogID = &logID
	doc.UpdatedAt = now
	return doc, nil
}

// LogOverrides replace extracted values when creating a log from a receipt.
type LogOverrides struct {
	Title           *string
	ServiceDate     *time.Time
	Vendor          *string
	Category        *string
	Cost            *float64
	Notes           *string
	NextDueDate     *time.Time
	ReminderEnabled *bool
}

// CreateLog creates a maintenance log from a receipt and attaches the receipt to it.
func (s *Service) CreateLog(ctx context.Context, ownerID, id, propertyID string, o LogOverrides) (Document, maintenance.Log, error) {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return Document{}, maintenance.Log{}, fmt.Errorf("%w: propertyId is required", ErrInvalidInput)
	}

	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return Document{}, maintenance.Log{}, err
	}
	if doc.Status == StatusAttached {
		return Document{}, maintenance.Log{}, ErrAlreadyAttached
	}
	if _, err := s.Maintenance.GetProperty(ctx, ownerID, propertyID); err != nil {
		return Document{}, maintenance.Log{}, collaboratorErr(err, "property")
	}

	in, err := s.logInput(doc, propertyID, o)
	if err != nil {
		return Document{}, maintenance.Log{}, err
	}
	log, err := s.Maintenance.CreateLog(ctx, ownerID, in)
	if err != nil {
		return Document{}, maintenance.Log{}, collaboratorErr(err, "property")
	}

	now := s.now()
	if err := s.Repo.Attach(ctx, ownerID, id, propertyID, log.ID, now); err != nil {
		// Another request attached the receipt first; drop the orphaned log.
		if delErr := s.Maintenance.DeleteLog(ctx, ownerID, log.ID); delErr != nil {
			telemetry.Warn("receipt.orphan_log_cleanup_failed", map[string]any{
				"document_id": id,
				"log_id":      log.ID,
				"error":       delErr,
			})
		}
		return Document{}, maintenance.Log{}, err
	}

	metrics.IncLogFromReceipt()
	metrics.IncReceiptAttached()
	telemetry.Info("receipt.log_created", map[string]any{
		"document_id": id,
		"user_id":     ownerID,
		"property_id": propertyID,
		"log_id":      log.ID,
	})

	doc.Status = StatusAttached
	doc.PropertyID = &propertyID
	doc.MaintenanceLogID = &log.ID
	doc.UpdatedAt = now
	return doc, log, nil
}

func (s *Service) logInput(doc Document, propertyID string, o LogOverrides) (maintenance.LogInput, error) {
	var extracted receipts.Fields
	if doc.Extracted != nil {
		extracted = *doc.Extracted
	}

	title := firstText(o.Title, extracted.TitleSuggestion, receipts.FilenameLabel(doc.OriginalName))
	if title == nil {
		return maintenance.LogInput{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	serviceDate := s.now()
	switch {
	case o.ServiceDate != nil && !o.ServiceDate.IsZero():
		serviceDate = o.ServiceDate.UTC()
	case extracted.Date != nil:
		serviceDate = *extracted.Date
	}

	cost := 0.0
	if c := cleanAmount(o.Cost); c != nil {
		cost = *c
	} else if extracted.Amount != nil {
		cost = *extracted.Amount
	}

	category := extracted.Category
	if c := cleanText(o.Category); c != nil {
		category = *c
	}

	in := maintenance.LogInput{
		PropertyID:  propertyID,
		Title:       *title,
		ServiceDate: serviceDate,
		Vendor:      firstText(o.Vendor, extracted.Vendor),
		Category:    category,
		Cost:        cost,
		Notes:       cleanText(o.Notes),
		NextDueDate: o.NextDueDate,
	}
	if o.ReminderEnabled != nil {
		in.ReminderEnabled = *o.ReminderEnabled
	}
	return in, nil
}

// Delete removes the backing file, best effort, and then the record.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	object.RemoveBestEffort(ctx, s.Store, doc.StorageKey)
	if err := s.Repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	metrics.AddReceiptsDeleted(1)
	telemetry.Info("receipt.deleted", map[string]any{"document_id": id, "user_id": ownerID})
	return nil
}

// CleanupUnattached deletes unattached receipts created before now minus
// days and returns how many were removed. A nil days uses the configured default.
func (s *Service) CleanupUnattached(ctx context.Context, ownerID string, days *int) (int, error) {
	d := s.CleanupDefaultDays
	if days != nil {
		d = *days
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: days must be zero or positive", ErrInvalidInput)
	}
	cutoff := s.now().Add(-time.Duration(d) * 24 * time.Hour)

	removed, err := s.Repo.DeleteUnattachedBefore(ctx, ownerID, cutoff)
	if err != nil {
		return 0, err
	}
	for _, doc := range removed {
		object.RemoveBestEffort(ctx, s.Store, doc.StorageKey)
	}

	metrics.AddReceiptsDeleted(len(removed))
	telemetry.Info("receipt.cleanup", map[string]any{
		"user_id": ownerID,
		"days":    d,
		"cutoff":  cutoff.Format(time.RFC3339),
		"deleted": len(removed),
	})
	return len(removed), nil
}

// Open returns the document and a reader over its bytes. The caller closes it.
func (s *Service) Open(ctx context.Context, ownerID, id string) (Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return Document{}, nil, err
	}
	body, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotExist) {
			return Document{}, nil, ErrFileMissing
		}
		return Document{}, nil, err
	}
	return doc, body, nil
}

func (s *Service) requireFile(ctx context.Context, doc Document) error {
	ok, err := s.Store.Exists(ctx, doc.StorageKey)
	if err != nil {
		return err
	}
	if !ok {
		return ErrFileMissing
	}
	return nil
}

// extract never fails; an unreadable object yields default fields.
func (s *Service) extract(ctx context.Context, storageKey, mimeType, originalName string) receipts.Fields {
	if s.Extractor == nil {
		return receipts.FieldsFromText("", originalName)
	}
	localPath, cleanup, err := object.Materialize(ctx, s.Store, storageKey)
	defer cleanup()
	if err != nil {
		telemetry.Warn("receipt.materialize_failed", map[string]any{"storage_key": storageKey, "error": err})
		return receipts.FieldsFromText("", originalName)
	}
	return s.Extractor.Extract(ctx, receipts.Input{
		FilePath:     localPath,
		MimeType:     mimeType,
		OriginalName: originalName,
	})
}

func chooseMimeType(declared, sniffed string) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	if mt, _, err := mime.ParseMediaType(sniffed); err == nil {
		return mt
	}
	return "application/octet-stream"
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func collaboratorErr(err error, what string) error {
	switch {
	case errors.Is(err, maintenance.ErrNotFound):
		return fmt.Errorf("%w: %s not found", ErrNotFound, what)
	case errors.Is(err, maintenance.ErrInvalidInput):
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.TrimPrefix(err.Error(), maintenance.ErrInvalidInput.Error()+": "))
	default:
		return err
	}
}

func cleanText(s *string) *string {
	if s == nil {
		return nil
	}
	v := util.SanitizeText(*s)
	if v == "" {
		return nil
	}
	return &v
}

func firstText(candidates ...*string) *string {
	for _, c := range candidates {
		if v := cleanText(c); v != nil {
			return v
		}
	}
	return nil
}

func cleanAmount(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return nil
	}
	out := *v
	return &out
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
