package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository/postgres"
)

func newSessionServiceForTest(pool *pgxpool.Pool) *SessionService {
	return NewSessionService(
		postgres.NewSessionRepository(pool),
		postgres.NewUserRepository(pool),
		postgres.NewAuditRepository(pool),
		zap.NewNop(),
	)
}

func seedServiceUser(t *testing.T, pool *pgxpool.Pool, username string, dataBalance, timeBalance int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(
		context.Background(),
		`INSERT INTO users (id, username, email, password_hash, role, status, data_balance, time_balance, created_at, updated_at)
		 VALUES ($1, $2, $3, 'hash', 'user', 'active', $4, $5, NOW(), NOW())`,
		id, username, username+"@test.local", dataBalance, timeBalance,
	)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func TestSessionStart_RequiresBalance(t *testing.T) {
	pool := startPostgresForServiceTest(t)
	svc := newSessionServiceForTest(pool)
	ctx := context.Background()

	broke := seedServiceUser(t, pool, "no_balance", 0, 0)
	if _, err := svc.Start(ctx, broke.String(), "", ""); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Either balance alone is enough to connect.
	timeOnly := seedServiceUser(t, pool, "time_only", 0, 30)
	session, err := svc.Start(ctx, timeOnly.String(), "aa:bb:cc:dd:ee:01", "10.0.0.5")
	if err != nil {
		t.Fatalf("start with time balance: %v", err)
	}
	if session.Status != model.SessionStatusActive {
		t.Fatalf("expected active session, got %s", session.Status)
	}

	if _, err := svc.Start(ctx, timeOnly.String(), "not-a-mac", ""); !errors.Is(err, ErrInvalidSessionInput) {
		t.Fatalf("expected ErrInvalidSessionInput for bad MAC, got %v", err)
	}
	if _, err := svc.Start(ctx, timeOnly.String(), "", "999.0.0.1"); !errors.Is(err, ErrInvalidSessionInput) {
		t.Fatalf("expected ErrInvalidSessionInput for bad IP, got %v", err)
	}
	if _, err := svc.Start(ctx, uuid.New().String(), "", ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSessionTerminate_OwnershipAndReplay(t *testing.T) {
	pool := startPostgresForServiceTest(t)
	svc := newSessionServiceForTest(pool)
	ctx := context.Background()

	owner := seedServiceUser(t, pool, "term_owner", 1024, 0)
	stranger := seedServiceUser(t, pool, "term_stranger", 1024, 0)

	session, err := svc.Start(ctx, owner.String(), "", "10.0.0.9")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	if _, err := svc.Terminate(ctx, stranger.String(), false, session.ID.String()); !errors.Is(err, ErrSessionForbidden) {
		t.Fatalf("expected ErrSessionForbidden, got %v", err)
	}

	closed, err := svc.Terminate(ctx, owner.String(), false, session.ID.String())
	if err != nil {
		t.Fatalf("terminate own session: %v", err)
	}
	if closed.Status != model.SessionStatusTerminated {
		t.Fatalf("expected terminated status, got %s", closed.Status)
	}
	if closed.EndTime == nil {
		t.Fatal("expected end_time set")
	}
	firstEnd := *closed.EndTime

	time.Sleep(10 * time.Millisecond)
	replayed, err := svc.Terminate(ctx, owner.String(), false, session.ID.String())
	if err != nil {
		t.Fatalf("replayed terminate should succeed: %v", err)
	}
	if replayed.EndTime == nil || !replayed.EndTime.Equal(firstEnd) {
		t.Fatalf("replay must not move end_time: %v vs %v", replayed.EndTime, firstEnd)
	}

	// Admins may close anyone's session.
	other, err := svc.Start(ctx, owner.String(), "", "")
	if err != nil {
		t.Fatalf("start second session: %v", err)
	}
	if _, err := svc.Terminate(ctx, stranger.String(), true, other.ID.String()); err != nil {
		t.Fatalf("admin terminate: %v", err)
	}

	if _, err := svc.Terminate(ctx, owner.String(), false, uuid.New().String()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSweepStale_TerminatesOldSessions(t *testing.T) {
	pool := startPostgresForServiceTest(t)
	svc := newSessionServiceForTest(pool)
	ctx := context.Background()

	user := seedServiceUser(t, pool, "sweep_owner", 1024, 0)

	old := uuid.New()
	_, err := pool.Exec(
		ctx,
		`INSERT INTO sessions (id, user_id, status, start_time)
		 VALUES ($1, $2, 'active', NOW() - INTERVAL '2 days')`,
		old, user,
	)
	if err != nil {
		t.Fatalf("seed stale session: %v", err)
	}
	if _, err := svc.Start(ctx, user.String(), "", ""); err != nil {
		t.Fatalf("start fresh session: %v", err)
	}

	closed, err := svc.SweepStale(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("sweep stale: %v", err)
	}
	if closed != 1 {
		t.Fatalf("expected 1 session swept, got %d", closed)
	}

	active, err := svc.CountActive(ctx)
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected 1 session still active, got %d", active)
	}

	if _, err := svc.SweepStale(ctx, 0); !errors.Is(err, ErrInvalidSessionInput) {
		t.Fatalf("expected ErrInvalidSessionInput for zero max age, got %v", err)
	}
}
