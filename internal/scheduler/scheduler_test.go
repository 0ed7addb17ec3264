package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"litigation-assistant/internal/config"
)

type stubRegistry struct {
	ttl   time.Duration
	calls int
}

func (s *stubRegistry) PurgeIdle(ttl time.Duration) int {
	s.ttl = ttl
	s.calls++
	return 1
}

type stubStore struct {
	cutoff time.Time
	err    error
	calls  int
}

func (s *stubStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	s.calls++
	return 3, s.err
}

func TestSessionSweepJob(t *testing.T) {
	reg := &stubRegistry{}
	NewSessionSweepJob(reg, 2*time.Hour, zap.NewNop()).Run()
	if reg.calls != 1 || reg.ttl != 2*time.Hour {
		t.Errorf("unexpected call: %+v", reg)
	}
}

func TestDiagnosticsPurgeJobCutoff(t *testing.T) {
	store := &stubStore{}
	job := NewDiagnosticsPurgeJob(store, 30, zap.NewNop())
	now := time.Date(2025, 6, 30, 3, 30, 0, 0, time.UTC)
	job.now = func() time.Time { return now }
	job.Run()
	if want := now.AddDate(0, 0, -30); !store.cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", store.cutoff, want)
	}

	store.err = errors.New("db down")
	job.Run()
	if store.calls != 2 {
		t.Errorf("calls = %d", store.calls)
	}
}

func TestDiagnosticsPurgeDisabledRetention(t *testing.T) {
	store := &stubStore{}
	NewDiagnosticsPurgeJob(store, 0, zap.NewNop()).Run()
	if store.calls != 0 {
		t.Error("zero retention should keep all records")
	}
}

func TestNewSchedulerRegistersJobs(t *testing.T) {
	cfg := config.SchedulerConfig{
		Enabled:                  true,
		SessionSweepCronSpec:     "0 */5 * * * *",
		DiagnosticsPurgeCronSpec: "0 30 3 * * *",
	}
	s, err := NewScheduler(cfg, &stubRegistry{}, time.Hour, &stubStore{}, 30, nil)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if s.Entries() != 2 {
		t.Errorf("entries = %d, want 2", s.Entries())
	}

	s, err = NewScheduler(cfg, &stubRegistry{}, time.Hour, nil, 30, nil)
	if err != nil {
		t.Fatalf("NewScheduler without store: %v", err)
	}
	if s.Entries() != 1 {
		t.Errorf("entries without store = %d, want 1", s.Entries())
	}
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	cfg := config.SchedulerConfig{SessionSweepCronSpec: "not a spec"}
	if _, err := NewScheduler(cfg, &stubRegistry{}, time.Hour, nil, 0, nil); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}
