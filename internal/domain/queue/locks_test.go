package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDoctorLocks_AcquireRelease(t *testing.T) {
	locks := newDoctorLocks(100 * time.Millisecond)
	doctorID := uuid.New()

	release, err := locks.acquire(context.Background(), doctorID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()

	release, err = locks.acquire(context.Background(), doctorID)
	if err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
	release()
}

func TestDoctorLocks_TimeoutReturnsBusy(t *testing.T) {
	locks := newDoctorLocks(50 * time.Millisecond)
	doctorID := uuid.New()

	release, err := locks.acquire(context.Background(), doctorID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	_, err = locks.acquire(context.Background(), doctorID)
	if !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
}

func TestDoctorLocks_IndependentDoctors(t *testing.T) {
	locks := newDoctorLocks(50 * time.Millisecond)

	releaseA, err := locks.acquire(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("acquire A: %v", err)
	}
	defer releaseA()

	releaseB, err := locks.acquire(context.Background(), uuid.New())
	if err != nil {
		t.Errorf("a held lock on one doctor must not block another: %v", err)
	} else {
		releaseB()
	}
}

func TestDoctorLocks_ContextCancellation(t *testing.T) {
	locks := newDoctorLocks(time.Second)
	doctorID := uuid.New()

	release, err := locks.acquire(context.Background(), doctorID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locks.acquire(ctx, doctorID)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrBusy) {
		t.Error("a cancelled caller must not be told the queue is busy")
	}
}

func TestDoctorLocks_Serializes(t *testing.T) {
	locks := newDoctorLocks(time.Second)
	doctorID := uuid.New()

	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locks.acquire(context.Background(), doctorID)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("expected at most one holder at a time, saw %d", maxActive)
	}
}
