package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	jwtutil "github.com/Logendranm/wifi-hotspot-system-pro/pkg/jwt"
)

func newProtectedRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", JWTAuth(), func(c *gin.Context) {
		claims, _ := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	return router
}

func getProtected(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestJWTAuth_MissingKeyIsServerFault(t *testing.T) {
	os.Unsetenv("HOTSPOT_JWT_PUBLIC_KEY")
	os.Unsetenv("HOTSPOT_JWT_PUBLIC_KEY_FILE")
	SetJWTVerifyKey(nil)

	router := newProtectedRouter(t)
	resp := getProtected(router, "some-token")
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when no verify key is configured, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestJWTAuth_InjectedKeyVerifiesTokens(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	SetJWTVerifyKey(&key.PublicKey)
	t.Cleanup(func() { SetJWTVerifyKey(nil) })

	claims := jwtutil.NewClaims("4f3efc43-0000-0000-0000-000000000001", "portal_guest", "user", time.Hour)
	token, err := jwtutil.GenerateAccessToken(claims, key)
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}

	router := newProtectedRouter(t)
	resp := getProtected(router, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with injected key, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.UserID != claims.UserID {
		t.Fatalf("claims user id %q, want %q", payload.UserID, claims.UserID)
	}

	// A token signed by a different key is rejected.
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	forged, err := jwtutil.GenerateAccessToken(claims, otherKey)
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}
	if resp := getProtected(router, forged); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for token signed by another key, got %d", resp.Code)
	}
}
