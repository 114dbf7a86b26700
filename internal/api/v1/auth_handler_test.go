package v1

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

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository/postgres"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/service"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

const (
	testUsername = "portal_guest"
	testPassword = "guest-secret-1"
)

var (
	signingKeyOnce sync.Once
	signingKey     *rsa.PrivateKey
)

// testSigningKey returns the package-wide RSA key pair and publishes the
// public half through the environment the auth middleware reads. The
// middleware caches the key on first use, so every test in this package
// must sign with the same key.
func testSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	signingKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate rsa key: %v", err)
		}
		signingKey = key

		der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			t.Fatalf("marshal public key: %v", err)
		}
		pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
		if err := os.Setenv("HOTSPOT_JWT_PUBLIC_KEY", string(pemBytes)); err != nil {
			t.Fatalf("set public key env: %v", err)
		}
	})
	if signingKey == nil {
		t.Fatal("rsa signing key was not initialized")
	}
	return signingKey
}

func TestLogin_Success_SetsCookies(t *testing.T) {
	router, _ := setupPortalTestServer(t)

	resp := performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": testUsername,
		"password": testPassword,
	}, nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	body := decodeAPIResponse(t, resp.Body.Bytes())
	if body.Code != 0 {
		t.Fatalf("expected success code 0, got %d (%s)", body.Code, body.Message)
	}

	cookies := resp.Result().Cookies()
	access := findCookieByName(cookies, "access_token")
	refresh := findCookieByName(cookies, "refresh_token")
	if access == nil || access.Value == "" {
		t.Fatal("expected access_token cookie")
	}
	if refresh == nil || refresh.Value == "" {
		t.Fatal("expected refresh_token cookie")
	}
	if !access.HttpOnly || !refresh.HttpOnly {
		t.Fatal("token cookies must be http-only")
	}
}

func TestLogin_WrongPassword_Returns401(t *testing.T) {
	router, _ := setupPortalTestServer(t)

	resp := performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": testUsername,
		"password": "definitely-wrong",
	}, nil)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", resp.Code, resp.Body.String())
	}
	body := decodeAPIResponse(t, resp.Body.Bytes())
	if body.Code != 20003 {
		t.Fatalf("expected password error code 20003, got %d", body.Code)
	}
}

func TestRegister_DuplicateIdentityConflict(t *testing.T) {
	router, _ := setupPortalTestServer(t)

	payload := map[string]any{
		"username": "walkup_guest",
		"email":    "walkup@example.com",
		"password": "walkup-secret",
	}

	resp := performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/register", payload, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on first registration, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/register", payload, nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate registration, got %d: %s", resp.Code, resp.Body.String())
	}
	body := decodeAPIResponse(t, resp.Body.Bytes())
	if body.Code != 20004 {
		t.Fatalf("expected duplicate identity code 20004, got %d", body.Code)
	}

	// Same email under a new username is still a conflict.
	payload["username"] = "walkup_guest_2"
	resp = performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/register", payload, nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate email, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRegister_EmailWithSpecialCharacters(t *testing.T) {
	router, _ := setupPortalTestServer(t)

	// Apostrophes and plus signs are legal in the local part and must
	// survive registration intact.
	email := "o'brien+wifi@example.com"
	resp := performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"username": "obrien_guest",
		"email":    email,
		"password": "obrien-secret",
	}, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	body := decodeAPIResponse(t, resp.Body.Bytes())
	var registered struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body.Data, &registered); err != nil {
		t.Fatalf("decode register payload: %v", err)
	}
	if registered.Email != email {
		t.Fatalf("stored email %q, want %q", registered.Email, email)
	}

	// The stored address works as the login identity.
	resp = performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": email,
		"password": "obrien-secret",
	}, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on email login, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRefresh_RotationInvalidatesOldToken(t *testing.T) {
	router, _ := setupPortalTestServer(t)

	login := performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": testUsername,
		"password": testPassword,
	}, nil)
	if login.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", login.Code, login.Body.String())
	}
	oldRefresh := findCookieByName(login.Result().Cookies(), "refresh_token")
	if oldRefresh == nil {
		t.Fatal("expected refresh_token cookie from login")
	}

	first := performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/refresh", nil,
		[]*http.Cookie{oldRefresh})
	if first.Code != http.StatusOK {
		t.Fatalf("first refresh failed: %d %s", first.Code, first.Body.String())
	}
	rotated := findCookieByName(first.Result().Cookies(), "refresh_token")
	if rotated == nil || rotated.Value == oldRefresh.Value {
		t.Fatal("expected refresh to rotate the token")
	}

	replay := performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/refresh", nil,
		[]*http.Cookie{oldRefresh})
	if replay.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 replaying rotated token, got %d", replay.Code)
	}

	again := performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/refresh", nil,
		[]*http.Cookie{rotated})
	if again.Code != http.StatusOK {
		t.Fatalf("rotated token should remain usable: %d %s", again.Code, again.Body.String())
	}
}

func TestVoucherLogin_RedeemsOnceAndSignsIn(t *testing.T) {
	router, pool := setupPortalTestServer(t)

	planID := seedHandlerPlan(t, pool, "Guest Hour", 1024, 60, 2.00)
	seedHandlerVoucher(t, pool, planID, "WIFIPORTAL01")

	resp := performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/voucher-login", map[string]any{
		"code": "wifiportal01",
	}, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	body := decodeAPIResponse(t, resp.Body.Bytes())
	var data struct {
		User struct {
			Username    string `json:"username"`
			DataBalance int64  `json:"data_balance"`
			TimeBalance int64  `json:"time_balance"`
		} `json:"user"`
		Plan struct {
			Name string `json:"name"`
		} `json:"plan"`
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode voucher login data: %v", err)
	}
	if data.User.Username != "voucher_WIFIPORTAL01" {
		t.Fatalf("unexpected placeholder username %q", data.User.Username)
	}
	if data.User.DataBalance != 1024 || data.User.TimeBalance != 60 {
		t.Fatalf("expected plan limits credited, got %d/%d",
			data.User.DataBalance, data.User.TimeBalance)
	}
	if data.Plan.Name != "Guest Hour" {
		t.Fatalf("expected plan in response, got %q", data.Plan.Name)
	}
	if data.AccessToken == "" {
		t.Fatal("expected access token in response")
	}
	if findCookieByName(resp.Result().Cookies(), "access_token") == nil {
		t.Fatal("expected access_token cookie")
	}

	replay := performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/voucher-login", map[string]any{
		"code": "WIFIPORTAL01",
	}, nil)
	if replay.Code != http.StatusConflict {
		t.Fatalf("expected 409 replaying voucher, got %d: %s", replay.Code, replay.Body.String())
	}
	replayBody := decodeAPIResponse(t, replay.Body.Bytes())
	if replayBody.Code != 60002 {
		t.Fatalf("expected voucher used code 60002, got %d", replayBody.Code)
	}

	unknown := performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/voucher-login", map[string]any{
		"code": "WIFIUNKNOWN1",
	}, nil)
	if unknown.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown voucher, got %d", unknown.Code)
	}
}

func TestSessionStart_RequiresBalanceAndAuth(t *testing.T) {
	router, pool := setupPortalTestServer(t)

	anon := performJSONRequest(t, router, http.MethodPost, "/api/v1/sessions/", map[string]any{}, nil)
	if anon.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", anon.Code)
	}

	// The seeded login user has zero balances.
	login := performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": testUsername,
		"password": testPassword,
	}, nil)
	if login.Code != http.StatusOK {
		t.Fatalf("login failed: %d", login.Code)
	}
	access := findCookieByName(login.Result().Cookies(), "access_token")

	broke := performJSONRequest(t, router, http.MethodPost, "/api/v1/sessions/", map[string]any{},
		[]*http.Cookie{access})
	if broke.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 with zero balances, got %d: %s", broke.Code, broke.Body.String())
	}

	// A voucher login comes back funded and may connect.
	planID := seedHandlerPlan(t, pool, "Session Plan", 2048, 120, 4.00)
	seedHandlerVoucher(t, pool, planID, "WIFISESSION1")
	voucherLogin := performJSONRequest(t, router, http.MethodPost, "/api/v1/auth/voucher-login", map[string]any{
		"code": "WIFISESSION1",
	}, nil)
	if voucherLogin.Code != http.StatusOK {
		t.Fatalf("voucher login failed: %d %s", voucherLogin.Code, voucherLogin.Body.String())
	}
	funded := findCookieByName(voucherLogin.Result().Cookies(), "access_token")

	start := performJSONRequest(t, router, http.MethodPost, "/api/v1/sessions/", map[string]any{
		"device_mac": "aa:bb:cc:dd:ee:10",
	}, []*http.Cookie{funded})
	if start.Code != http.StatusOK {
		t.Fatalf("expected session start 200, got %d: %s", start.Code, start.Body.String())
	}
	var session struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	startBody := decodeAPIResponse(t, start.Body.Bytes())
	if err := json.Unmarshal(startBody.Data, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Status != "active" {
		t.Fatalf("expected active session, got %q", session.Status)
	}

	terminate := performJSONRequest(t, router, http.MethodPost,
		"/api/v1/sessions/"+session.ID+"/terminate", nil, []*http.Cookie{funded})
	if terminate.Code != http.StatusOK {
		t.Fatalf("expected terminate 200, got %d: %s", terminate.Code, terminate.Body.String())
	}

	// A second terminate of the same session is a no-op success.
	repeat := performJSONRequest(t, router, http.MethodPost,
		"/api/v1/sessions/"+session.ID+"/terminate", nil, []*http.Cookie{funded})
	if repeat.Code != http.StatusOK {
		t.Fatalf("expected repeated terminate 200, got %d", repeat.Code)
	}

	// The zero-balance user may not close someone else's session.
	foreign := performJSONRequest(t, router, http.MethodPost,
		"/api/v1/sessions/"+session.ID+"/terminate", nil, []*http.Cookie{access})
	if foreign.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign session, got %d", foreign.Code)
	}
}

func setupPortalTestServer(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pool := startPostgresForHandlerTest(t)
	key := testSigningKey(t)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	_, err = pool.Exec(
		context.Background(),
		`INSERT INTO users (id, username, email, password_hash, role, status, data_balance, time_balance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'user', 'active', 0, 0, NOW(), NOW())`,
		uuid.New(), testUsername, testUsername+"@test.local", string(hash),
	)
	if err != nil {
		t.Fatalf("seed login user: %v", err)
	}

	logger := zap.NewNop()
	userRepo := postgres.NewUserRepository(pool)
	planRepo := postgres.NewPlanRepository(pool)
	voucherRepo := postgres.NewVoucherRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)

	voucherSvc := service.NewVoucherService(voucherRepo, planRepo, paymentRepo, auditRepo, pool, logger)
	authSvc := service.NewAuthService(userRepo, auditRepo, voucherSvc, pool, key, logger)
	userSvc := service.NewUserService(userRepo, auditRepo, logger)
	sessionSvc := service.NewSessionService(sessionRepo, userRepo, auditRepo, logger)

	router := gin.New()
	group := router.Group("/api/v1")
	RegisterAuthRoutes(group, authSvc, userSvc)
	RegisterUserRoutes(group, userSvc)
	RegisterVoucherRoutes(group, voucherSvc)
	RegisterSessionRoutes(group, sessionSvc)

	return router, pool
}

func seedHandlerPlan(t *testing.T, pool *pgxpool.Pool, name string, dataLimit, timeLimit int64, price float64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(
		context.Background(),
		`INSERT INTO plans (id, name, description, data_limit, time_limit, price, validity_days, status, created_at)
		 VALUES ($1, $2, '', $3, $4, $5, 30, 'active', NOW())`,
		id, name, dataLimit, timeLimit, price,
	)
	if err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return id
}

func seedHandlerVoucher(t *testing.T, pool *pgxpool.Pool, planID uuid.UUID, code string) {
	t.Helper()

	_, err := pool.Exec(
		context.Background(),
		`INSERT INTO vouchers (id, code, plan_id, status, created_at)
		 VALUES ($1, $2, $3, 'unused', NOW())`,
		uuid.New(), code, planID,
	)
	if err != nil {
		t.Fatalf("seed voucher: %v", err)
	}
}

func performJSONRequest(
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

func decodeAPIResponse(t *testing.T, raw []byte) apiResponse {
	t.Helper()

	var resp apiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return resp
}

func findCookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func startPostgresForHandlerTest(t *testing.T) *pgxpool.Pool {
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
				"POSTGRES_DB":       "hotspot_handler_test",
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

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/hotspot_handler_test?sslmode=disable", host, port.Port())
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

	applyMigrationsForHandlerTest(t, ctx, pool)
	return pool
}

func applyMigrationsForHandlerTest(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	migrationsDir := filepath.Join(findRepoRootForHandlerTest(t), "migrations")
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

func findRepoRootForHandlerTest(t *testing.T) string {
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
