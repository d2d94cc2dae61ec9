package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/models"
)

func TestSweepClosesExpiredSessions(t *testing.T) {
	store := newFakeStore()
	store.addTable(1)
	store.addTable(2)
	store.addWallet(10, 50_000)
	store.addWallet(11, 50_000)

	expired := activeSession(10, 1, 1500, day(9, 0, 0), day(11, 0, 0))
	running := activeSession(11, 2, 1500, day(10, 0, 0), day(14, 0, 0))
	store.addActiveSession(expired)
	store.addActiveSession(running)

	clock := newFakeClock(day(11, 1, 0))
	terminator := newTerminator(store, &fakeSink{}, clock)
	sweeper := NewSweeper(store, terminator, clock, time.Minute, zap.NewNop())

	sweeper.Sweep(context.Background())

	if got := store.session(expired.ID); got.Status != models.SessionStatusCompleted {
		t.Fatalf("expired session status = %s, want completed", got.Status)
	}
	if got := store.session(expired.ID); got.Amount.Int64 != 3000 {
		t.Fatalf("expired session amount = %d, want 3000", got.Amount.Int64)
	}
	if got := store.session(running.ID); got.Status != models.SessionStatusActive {
		t.Fatalf("running session status = %s, want active", got.Status)
	}
}

func TestSweepEmptyTickMutatesNothing(t *testing.T) {
	store := newFakeStore()
	store.addTable(1)
	store.addWallet(10, 50_000)
	running := activeSession(10, 1, 1500, day(10, 0, 0), day(14, 0, 0))
	store.addActiveSession(running)

	clock := newFakeClock(day(11, 0, 0))
	terminator := newTerminator(store, &fakeSink{}, clock)
	sweeper := NewSweeper(store, terminator, clock, time.Minute, zap.NewNop())

	sweeper.Sweep(context.Background())

	if store.completions != 0 {
		t.Fatalf("completions = %d, want 0", store.completions)
	}
	if got := store.session(running.ID); got.Status != models.SessionStatusActive {
		t.Fatalf("session status = %s, want active", got.Status)
	}
}

func TestSweepIsolatesPerSessionFailures(t *testing.T) {
	store := newFakeStore()
	store.addTable(1)
	store.addTable(2)
	// User 20 has no wallet: a data integrity failure for that item only.
	store.addWallet(21, 50_000)

	broken := activeSession(20, 1, 1500, day(9, 0, 0), day(11, 0, 0))
	healthy := activeSession(21, 2, 1500, day(9, 0, 0), day(11, 0, 0))
	store.addActiveSession(broken)
	store.addActiveSession(healthy)

	clock := newFakeClock(day(11, 5, 0))
	terminator := newTerminator(store, &fakeSink{}, clock)
	sweeper := NewSweeper(store, terminator, clock, time.Minute, zap.NewNop())

	sweeper.Sweep(context.Background())

	if got := store.session(healthy.ID); got.Status != models.SessionStatusCompleted {
		t.Fatalf("healthy session status = %s, want completed", got.Status)
	}
}

func TestSweepToleratesLosingRace(t *testing.T) {
	store := newFakeStore()
	store.addTable(1)
	store.addWallet(10, 50_000)
	session := activeSession(10, 1, 1500, day(9, 0, 0), day(11, 0, 0))
	store.addActiveSession(session)

	clock := newFakeClock(day(11, 1, 0))
	terminator := newTerminator(store, &fakeSink{}, clock)
	sweeper := NewSweeper(store, terminator, clock, time.Minute, zap.NewNop())

	// Interactive end wins before the sweep runs.
	if _, err := terminator.Terminate(context.Background(), session.ID, ReasonUser); err != nil {
		t.Fatalf("interactive terminate: %v", err)
	}

	sweeper.Sweep(context.Background())

	if store.completions != 1 {
		t.Fatalf("completions = %d, want 1", store.completions)
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	store := newFakeStore()
	clock := newFakeClock(day(11, 0, 0))
	terminator := newTerminator(store, &fakeSink{}, clock)
	sweeper := NewSweeper(store, terminator, clock, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sweeper.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
