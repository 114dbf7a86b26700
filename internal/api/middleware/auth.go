package middleware

import (
	"crypto/rsa"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/response"
	jwtutil "github.com/Logendranm/wifi-hotspot-system-pro/pkg/jwt"
)

const claimsContextKey = "claims"

type Claims = jwtutil.Claims

var (
	jwtVerifyKeyMu sync.RWMutex
	jwtVerifyKey   *rsa.PublicKey

	jwtEnvKeyOnce sync.Once
	jwtEnvKey     *rsa.PublicKey
	jwtEnvKeyErr  error
)

// SetJWTVerifyKey injects the key used to verify access tokens. The
// entrypoint wires it from the loaded signing key; without it the
// middleware falls back to the environment.
func SetJWTVerifyKey(key *rsa.PublicKey) {
	jwtVerifyKeyMu.Lock()
	defer jwtVerifyKeyMu.Unlock()
	jwtVerifyKey = key
}

// JWTAuth accepts the access token from the portal cookie or a Bearer
// header. Captive-portal browsers carry the cookie; API clients send the
// header.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := GetClaims(c); ok && claims != nil {
			c.Next()
			return
		}

		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			response.Fail(c, 401, response.ErrUnauthorized, "unauthorized")
			c.Abort()
			return
		}

		publicKey, err := verifyKey()
		if err != nil {
			// A missing key is a deployment fault, not a bad credential.
			response.Fail(c, 500, response.ErrInternal, "authentication not configured")
			c.Abort()
			return
		}

		claims, err := jwtutil.ParseAccessToken(tokenString, publicKey)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Fail(c, 401, response.ErrTokenExpired, "token expired")
			} else {
				response.Fail(c, 401, response.ErrUnauthorized, "unauthorized")
			}
			c.Abort()
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(roles) == 0 {
			c.Next()
			return
		}

		claims, ok := GetClaims(c)
		if !ok {
			response.Fail(c, 401, response.ErrUnauthorized, "unauthorized")
			c.Abort()
			return
		}

		for _, role := range roles {
			if strings.EqualFold(claims.Role, role) {
				c.Next()
				return
			}
		}

		response.Fail(c, 403, response.ErrForbidden, "forbidden")
		c.Abort()
	}
}

func GetClaims(c *gin.Context) (*Claims, bool) {
	val, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := val.(*Claims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}

func tokenFromRequest(c *gin.Context) string {
	if cookieToken, err := c.Cookie("access_token"); err == nil && cookieToken != "" {
		return cookieToken
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}

func verifyKey() (*rsa.PublicKey, error) {
	jwtVerifyKeyMu.RLock()
	injected := jwtVerifyKey
	jwtVerifyKeyMu.RUnlock()
	if injected != nil {
		return injected, nil
	}

	return loadRSAPublicKeyFromEnv()
}

func loadRSAPublicKeyFromEnv() (*rsa.PublicKey, error) {
	jwtEnvKeyOnce.Do(func() {
		pem := strings.TrimSpace(os.Getenv("HOTSPOT_JWT_PUBLIC_KEY"))
		if pem == "" {
			path := strings.TrimSpace(os.Getenv("HOTSPOT_JWT_PUBLIC_KEY_FILE"))
			if path != "" {
				// #nosec G304 -- path is provided by operator environment variable.
				buf, err := os.ReadFile(path)
				if err != nil {
					jwtEnvKeyErr = err
					return
				}
				pem = string(buf)
			}
		}
		if pem == "" {
			jwtEnvKeyErr = errors.New("jwt public key not configured")
			return
		}

		jwtEnvKey, jwtEnvKeyErr = jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	})

	return jwtEnvKey, jwtEnvKeyErr
}
