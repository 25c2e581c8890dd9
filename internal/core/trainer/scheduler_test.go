package trainer

import (
	"context"
	"testing"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"
)

func TestAcquireLease_FirstHolderWinsAndRenews(t *testing.T) {
	useTestAutolearnConfig(t)
	svc, _ := newTestService(t, &stubTuner{})
	ctx := context.Background()

	a := NewScheduler(svc.db, svc)
	ok, err := a.AcquireLease(ctx)
	if err != nil || !ok {
		t.Fatalf("first acquire = %v, %v", ok, err)
	}

	// the holder renews its own live lease
	ok, err = a.AcquireLease(ctx)
	if err != nil || !ok {
		t.Fatalf("renewal = %v, %v", ok, err)
	}

	b := NewScheduler(svc.db, svc)
	ok, err = b.AcquireLease(ctx)
	if err != nil {
		t.Fatalf("second holder: %v", err)
	}
	if ok {
		t.Error("a live lease must not be taken by another holder")
	}
}

func TestAcquireLease_StealsExpiredLease(t *testing.T) {
	useTestAutolearnConfig(t)
	svc, _ := newTestService(t, &stubTuner{})
	ctx := context.Background()

	a := NewScheduler(svc.db, svc)
	if ok, err := a.AcquireLease(ctx); err != nil || !ok {
		t.Fatalf("acquire = %v, %v", ok, err)
	}

	expired := time.Now().Add(-time.Minute)
	if err := svc.db.Model(&model.SchedulerLease{}).
		Where("name = ?", leaseName).
		Update("expires_at", expired).Error; err != nil {
		t.Fatal(err)
	}

	b := NewScheduler(svc.db, svc)
	ok, err := b.AcquireLease(ctx)
	if err != nil || !ok {
		t.Fatalf("expired lease should be taken: %v, %v", ok, err)
	}

	// the old holder lost it
	ok, err = a.AcquireLease(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("displaced holder reacquired a live lease")
	}
}
