package maintenance

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"propertycare-backend/internal/receipts"
	"propertycare-backend/internal/shared/telemetry"
	"propertycare-backend/internal/shared/util"
)

// Service contains the owner-scoped property and maintenance log operations.
type Service struct {
	Repo Repo
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) CreateProperty(ctx context.Context, ownerID string, in PropertyInput) (Property, error) {
	if ownerID == "" {
		return Property{}, fmt.Errorf("%w: owner required", ErrInvalidInput)
	}
	name := util.SanitizeText(in.Name)
	if name == "" {
		return Property{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	p := Property{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Address:   cleanOptional(in.Address),
		CreatedAt: s.now(),
	}
	if err := s.Repo.CreateProperty(ctx, p); err != nil {
		return Property{}, err
	}
	telemetry.Info("property.created", map[string]any{"property_id": p.ID, "user_id": ownerID})
	return p, nil
}

func (s *Service) ListProperties(ctx context.Context, ownerID string) ([]Property, error) {
	return s.Repo.ListProperties(ctx, ownerID)
}

// GetProperty returns ErrNotFound for malformed ids and for properties owned by someone else.
func (s *Service) GetProperty(ctx context.Context, ownerID, id string) (Property, error) {
	if !validID(id) {
		return Property{}, ErrNotFound
	}
	return s.Repo.GetProperty(ctx, ownerID, id)
}

// CreateLog records a maintenance event under one of the owner's properties.
func (s *Service) CreateLog(ctx context.Context, ownerID string, in LogInput) (Log, error) {
	if strings.TrimSpace(in.PropertyID) == "" {
		return Log{}, fmt.Errorf("%w: propertyId is required", ErrInvalidInput)
	}
	title := util.SanitizeText(in.Title)
	if title == "" {
		return Log{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.ServiceDate.IsZero() {
		return Log{}, fmt.Errorf("%w: serviceDate is required", ErrInvalidInput)
	}
	if math.IsNaN(in.Cost) || math.IsInf(in.Cost, 0) || in.Cost < 0 {
		return Log{}, fmt.Errorf("%w: cost must be a non-negative number", ErrInvalidInput)
	}
	if _, err := s.GetProperty(ctx, ownerID, in.PropertyID); err != nil {
		return Log{}, err
	}

	now := s.now()
	l := Log{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		PropertyID:      in.PropertyID,
		Title:           title,
		ServiceDate:     in.ServiceDate.UTC(),
		Vendor:          cleanOptional(in.Vendor),
		Category:        receipts.NormalizeCategory(util.SanitizeText(in.Category)),
		Cost:            math.Round(in.Cost*100) / 100,
		Notes:           cleanOptional(in.Notes),
		NextDueDate:     in.NextDueDate,
		ReminderEnabled: in.ReminderEnabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.CreateLog(ctx, l); err != nil {
		return Log{}, err
	}
	telemetry.Info("maintenance_log.created", map[string]any{
		"log_id":      l.ID,
		"property_id": l.PropertyID,
		"user_id":     ownerID,
	})
	return l, nil
}

func (s *Service) ListLogs(ctx context.Context, ownerID, propertyID string) ([]Log, error) {
	if _, err := s.GetProperty(ctx, ownerID, propertyID); err != nil {
		return nil, err
	}
	return s.Repo.ListLogs(ctx, ownerID, propertyID)
}

func (s *Service) GetLog(ctx context.Context, ownerID, id string) (Log, error) {
	if !validID(id) {
		return Log{}, ErrNotFound
	}
	return s.Repo.GetLog(ctx, ownerID, id)
}

func (s *Service) DeleteLog(ctx context.Context, ownerID, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	if err := s.Repo.DeleteLog(ctx, ownerID, id); err != nil {
		return err
	}
	telemetry.Info("maintenance_log.deleted", map[string]any{"log_id": id, "user_id": ownerID})
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := util.SanitizeText(*s)
	if v == "" {
		return nil
	}
	return &v
}
