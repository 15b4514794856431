package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

func TestStatusWithoutDatabase(t *testing.T) {
	status, ok := NewService(nil, true).Status(context.Background())
	if !ok || status["database"] != "memory" || status["ocr"] != true {
		t.Fatalf("unexpected status %v ok=%v", status, ok)
	}
}

func TestStatusReportsDatabase(t *testing.T) {
	status, ok := NewService(fakePinger{}, false).Status(context.Background())
	if !ok || status["database"] != "up" {
		t.Fatalf("unexpected status %v ok=%v", status, ok)
	}

	status, ok = NewService(fakePinger{err: errors.New("refused")}, false).Status(context.Background())
	if ok || status["database"] != "down" || status["ok"] != false {
		t.Fatalf("unexpected status %v ok=%v", status, ok)
	}
}
