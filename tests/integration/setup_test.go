//go:build integration

package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/middleware"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository/postgres"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/service"
	"github.com/Logendranm/wifi-hotspot-system-pro/pkg/logger"
)

const (
	adminUsername = "portal_admin"
	adminPassword = "portal-admin-secret"
	guestUsername = "portal_member"
	guestPassword = "portal-member-secret"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

var (
	keyOnce    sync.Once
	privateKey *rsa.PrivateKey
)

func integrationSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	keyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate rsa key: %v", err)
		}
		privateKey = key

		der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			t.Fatalf("marshal public key: %v", err)
		}
		pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
		if err := os.Setenv("HOTSPOT_JWT_PUBLIC_KEY", string(pemBytes)); err != nil {
			t.Fatalf("set public key env: %v", err)
		}
	})
	if privateKey == nil {
		t.Fatal("rsa signing key was not initialized")
	}
	return privateKey
}

// newPortalServer boots the full HTTP surface against a throwaway
// postgres, the same wiring order as the server main.
func newPortalServer(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pool := startPostgres(t)
	key := integrationSigningKey(t)

	seedAccount(t, pool, adminUsername, adminPassword, "admin", 0, 0)
	seedAccount(t, pool, guestUsername, guestPassword, "user", 0, 0)

	log := zap.NewNop()
	userRepo := postgres.NewUserRepository(pool)
	planRepo := postgres.NewPlanRepository(pool)
	voucherRepo := postgres.NewVoucherRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)

	middleware.SetAuditRepository(auditRepo)

	voucherSvc := service.NewVoucherService(voucherRepo, planRepo, paymentRepo, auditRepo, pool, log)
	authSvc := service.NewAuthService(userRepo, auditRepo, voucherSvc, pool, key, log)
	userSvc := service.NewUserService(userRepo, auditRepo, log)
	planSvc := service.NewPlanService(planRepo, auditRepo, log)
	sessionSvc := service.NewSessionService(sessionRepo, userRepo, auditRepo, log)
	billingSvc := service.NewBillingService(userRepo, planRepo, paymentRepo, auditRepo, pool, log)
	reportSvc := service.NewReportService(pool, log)
	auditSvc := service.NewAuditService(auditRepo, log)
	systemSvc := service.NewSystemService(pool, logger.NewSystemLogStore(100), log)

	router := gin.New()
	api.RegisterRoutes(router, api.Services{
		Auth:    authSvc,
		User:    userSvc,
		Plan:    planSvc,
		Voucher: voucherSvc,
		Session: sessionSvc,
		Billing: billingSvc,
		Report:  reportSvc,
		Audit:   auditSvc,
		System:  systemSvc,
	})

	return router, pool
}

func seedAccount(t *testing.T, pool *pgxpool.Pool, username, password, role string, dataBalance, timeBalance int64) uuid.UUID {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	id := uuid.New()
	_, err = pool.Exec(
		context.Background(),
		`INSERT INTO users (id, username, email, password_hash, role, status, data_balance, time_balance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 'active', $6, $7, NOW(), NOW())`,
		id, username, username+"@test.local", string(hash), role, dataBalance, timeBalance,
	)
	if err != nil {
		t.Fatalf("seed account %s: %v", username, err)
	}
	return id
}

// loginAs signs in through the API and returns the access token cookie.
func loginAs(t *testing.T, router *gin.Engine, username, password string) *http.Cookie {
	t.Helper()

	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": username,
		"password": password,
	}, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("login as %s failed: %d %s", username, resp.Code, resp.Body.String())
	}

	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == "access_token" {
			return cookie
		}
	}
	t.Fatalf("no access_token cookie for %s", username)
	return nil
}

func doJSON(
	t *testing.T,
	router *gin.Engine,
	method string,
	path string,
	payload map[string]any,
	cookies []*http.Cookie,
) *httptest.ResponseRecorder {
	t.Helper()

	var bodyBytes []byte
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		bodyBytes = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		if cookie != nil {
			req.AddCookie(cookie)
		}
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeData(t *testing.T, raw []byte, out any) apiResponse {
	t.Helper()

	var resp apiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			t.Fatalf("decode response data: %v", err)
		}
	}
	return resp
}

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "hotspot_integration",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping test because docker/testcontainers is unavailable: %v", err)
	}

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/hotspot_integration?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	deadline := time.Now().Add(30 * time.Second)
	for {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("postgres did not become ready: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}

	applyMigrations(t, ctx, pool)
	return pool
}

func applyMigrations(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	migrationsDir := filepath.Join(findRepoRoot(t), "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		raw, err := os.ReadFile(filepath.Join(migrationsDir, file))
		if err != nil {
			t.Fatalf("read migration %s: %v", file, err)
		}
		if strings.TrimSpace(string(raw)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(raw)); err != nil {
			t.Fatalf("apply migration %s: %v", file, err)
		}
	}
}

func findRepoRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	for {
		_, statErr := os.Stat(filepath.Join(dir, "go.mod"))
		if statErr == nil {
			return dir
		}
		if !errors.Is(statErr, os.ErrNotExist) {
			t.Fatalf("stat go.mod: %v", statErr)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not locate repository root")
		}
		dir = parent
	}
}
