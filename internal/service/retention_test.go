package service

import (
	"context"
	"testing"
	"time"
)

type fakeRetentionRepo struct {
	fakeScanLogRepo
	deleted    int64
	lastCutoff time.Time
}

func (f *fakeRetentionRepo) DeleteScanLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	return f.deleted, nil
}

func TestRetentionRunNowUsesMaxAge(t *testing.T) {
	repo := &fakeRetentionRepo{deleted: 5}
	sched := NewRetentionScheduler(repo, RetentionConfig{MaxAge: 48 * time.Hour, Interval: time.Hour})

	deleted, err := sched.RunNow()
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if deleted != 5 {
		t.Errorf("deleted = %d, want 5", deleted)
	}

	want := time.Now().UTC().Add(-48 * time.Hour)
	if diff := repo.lastCutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff %v not near %v", repo.lastCutoff, want)
	}
}

func TestRetentionDefaultsApplied(t *testing.T) {
	sched := NewRetentionScheduler(&fakeRetentionRepo{}, RetentionConfig{})
	if sched.config.MaxAge != 90*24*time.Hour {
		t.Errorf("default MaxAge = %v", sched.config.MaxAge)
	}
	if sched.config.Interval != 24*time.Hour {
		t.Errorf("default Interval = %v", sched.config.Interval)
	}
}

func TestRetentionStartStopIdempotent(t *testing.T) {
	sched := NewRetentionScheduler(&fakeRetentionRepo{}, RetentionConfig{MaxAge: time.Hour, Interval: time.Hour})
	sched.Start()
	sched.Start() // second start is a no-op
	sched.Stop()
	sched.Stop() // second stop must not panic
}
