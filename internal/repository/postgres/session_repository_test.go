package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
)

func TestTerminate_Idempotent(t *testing.T) {
	pool := startPostgresForTest(t)
	repo := NewSessionRepository(pool)
	ctx := context.Background()

	userID := seedUser(t, pool, "session_owner")

	session := &model.Session{
		ID:        uuid.New(),
		UserID:    userID,
		DeviceMAC: "aa:bb:cc:dd:ee:ff",
		Status:    model.SessionStatusActive,
		StartTime: time.Now().UTC(),
	}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	endTime := time.Now().UTC()

	closed, err := repo.Terminate(ctx, session.ID, endTime)
	if err != nil {
		t.Fatalf("first terminate: %v", err)
	}
	if !closed {
		t.Fatal("expected first terminate to close the session")
	}

	closed, err = repo.Terminate(ctx, session.ID, endTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("second terminate: %v", err)
	}
	if closed {
		t.Fatal("expected second terminate to affect no rows")
	}

	got, err := repo.FindByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	if got.Status != model.SessionStatusTerminated {
		t.Fatalf("expected terminated status, got %s", got.Status)
	}
	if got.EndTime == nil {
		t.Fatal("expected end_time to be set")
	}
	if got.EndTime.Sub(endTime).Abs() > time.Second {
		t.Fatalf("end_time overwritten by second terminate: %v vs %v", got.EndTime, endTime)
	}
}

func TestTerminateStale_ClosesOnlyOldSessions(t *testing.T) {
	pool := startPostgresForTest(t)
	repo := NewSessionRepository(pool)
	ctx := context.Background()

	userID := seedUser(t, pool, "stale_owner")

	now := time.Now().UTC()
	stale := &model.Session{ID: uuid.New(), UserID: userID, Status: model.SessionStatusActive, StartTime: now.Add(-48 * time.Hour)}
	fresh := &model.Session{ID: uuid.New(), UserID: userID, Status: model.SessionStatusActive, StartTime: now.Add(-time.Minute)}
	for _, s := range []*model.Session{stale, fresh} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	count, err := repo.TerminateStale(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("terminate stale: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stale session closed, got %d", count)
	}

	active, err := repo.CountActive(ctx)
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected 1 active session left, got %d", active)
	}
}

func TestCreditBalance_ConcurrentIncrements(t *testing.T) {
	pool := startPostgresForTest(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	userID := seedUser(t, pool, "credit_target")

	const workers = 10
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			errCh <- repo.CreditBalance(ctx, userID, 100, 5)
		}()
	}
	for i := 0; i < workers; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("concurrent credit: %v", err)
		}
	}

	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if user.DataBalance != workers*100 {
		t.Fatalf("expected data balance %d, got %d", workers*100, user.DataBalance)
	}
	if user.TimeBalance != workers*5 {
		t.Fatalf("expected time balance %d, got %d", workers*5, user.TimeBalance)
	}
}
