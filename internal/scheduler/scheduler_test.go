package scheduler

import (
	"errors"
	"testing"
)

func TestAddJobValidation(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer svc.Stop()

	if _, err := svc.AddJob("", "0 9 * * 1", func() {}); !errors.Is(err, ErrEmptyJobName) {
		t.Errorf("expected ErrEmptyJobName, got %v", err)
	}
	if _, err := svc.AddJob("job", "", func() {}); !errors.Is(err, ErrEmptyCronExpr) {
		t.Errorf("expected ErrEmptyCronExpr, got %v", err)
	}
	if _, err := svc.AddJob("job", "not a cron expression", func() {}); err == nil {
		t.Error("expected error for malformed cron expression")
	}
	if _, err := svc.AddJob("job", "0 9 * * 1", func() {}); err != nil {
		t.Errorf("valid job rejected: %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	svc.Start()
	if err := svc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
