package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/telegram-warehouse/internal/domain"
)

func newRun(id string, key *string, started time.Time, ttl time.Duration) *domain.LoadRun {
	return &domain.LoadRun{
		ID:             id,
		IdempotencyKey: key,
		Path:           "data/raw/messages",
		Status:         domain.LoadRunRunning,
		StartedAt:      started,
		ExpiresAt:      started.Add(ttl),
	}
}

func TestCreateLoadRun_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, &domain.LoadRun{})
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	if err := CreateLoadRun(ctx, db, newRun("r1", strPtr("k1"), now, time.Hour)); err != nil {
		t.Fatal(err)
	}
	err := CreateLoadRun(ctx, db, newRun("r2", strPtr("k1"), now, time.Hour))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v; want ErrDuplicate", err)
	}
	// Runs without a key never collide.
	if err := CreateLoadRun(ctx, db, newRun("r3", nil, now, time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := CreateLoadRun(ctx, db, newRun("r4", nil, now, time.Hour)); err != nil {
		t.Fatal(err)
	}
}

func TestFinishLoadRun(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, &domain.LoadRun{})
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	run := newRun("r1", nil, now, time.Hour)
	if err := CreateLoadRun(ctx, db, run); err != nil {
		t.Fatal(err)
	}
	done := now.Add(time.Minute)
	run.Status = domain.LoadRunSucceeded
	run.Sources, run.Received, run.Inserted, run.Duplicates = 2, 10, 7, 3
	run.FinishedAt = &done
	if err := FinishLoadRun(ctx, db, run); err != nil {
		t.Fatal(err)
	}

	got, err := GetLoadRun(ctx, db, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.LoadRunSucceeded || got.Inserted != 7 || got.Duplicates != 3 || got.FinishedAt == nil {
		t.Fatalf("run = %+v", got)
	}

	if err := FinishLoadRun(ctx, db, &domain.LoadRun{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound", err)
	}
}

func TestGetLoadRunByKey_ExpiryAndRelease(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, &domain.LoadRun{})
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	if err := CreateLoadRun(ctx, db, newRun("r1", strPtr("k1"), now, time.Hour)); err != nil {
		t.Fatal(err)
	}
	got, err := GetLoadRunByKey(ctx, db, "k1", now.Add(30*time.Minute))
	if err != nil || got.ID != "r1" {
		t.Fatalf("live lookup: %+v, %v", got, err)
	}
	if _, err := GetLoadRunByKey(ctx, db, "k1", now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired lookup err = %v; want ErrNotFound", err)
	}
	if _, err := GetLoadRunByKey(ctx, db, "  ", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank key err = %v; want ErrNotFound", err)
	}

	// Releasing before expiry keeps the key; after expiry it frees it.
	if err := ReleaseExpiredKey(ctx, db, "k1", now); err != nil {
		t.Fatal(err)
	}
	if err := CreateLoadRun(ctx, db, newRun("r2", strPtr("k1"), now, time.Hour)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v; want ErrDuplicate while key is live", err)
	}
	later := now.Add(2 * time.Hour)
	if err := ReleaseExpiredKey(ctx, db, "k1", later); err != nil {
		t.Fatal(err)
	}
	if err := CreateLoadRun(ctx, db, newRun("r2", strPtr("k1"), later, time.Hour)); err != nil {
		t.Fatalf("reuse after release: %v", err)
	}
}

func TestListLoadRuns(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, &domain.LoadRun{})
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := CreateLoadRun(ctx, db, newRun(id, nil, now.Add(time.Duration(i)*time.Minute), time.Hour)); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := ListLoadRuns(ctx, db, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("runs = %+v", runs)
	}
}
