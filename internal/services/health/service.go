package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	db         Pinger
	ocrEnabled bool
	timeout    time.Duration
}

// NewService constructs a new health service. A nil db reports in-memory storage.
func NewService(db Pinger, ocrEnabled bool) *Service {
	return &Service{db: db, ocrEnabled: ocrEnabled, timeout: 2 * time.Second}
}

// Status reports whether the service can reach its dependencies.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	status := map[string]any{
		"ok":       true,
		"database": "memory",
		"ocr":      s.ocrEnabled,
	}
	if s.db == nil {
		return status, true
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		status["ok"] = false
		status["database"] = "down"
		return status, false
	}
	status["database"] = "up"
	return status, true
}
