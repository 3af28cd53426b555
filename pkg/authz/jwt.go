package authz

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// JWTConfig configures verification of access tokens issued by the external
// auth provider.
type JWTConfig struct {
	// Secret is the shared HS256 signing secret. Used when PublicKeyPath is empty.
	Secret string

	// PublicKeyPath is the path to a PEM-encoded RSA public key for RS256
	// verification. Takes precedence over Secret.
	PublicKeyPath string

	// Issuer is the expected iss claim. If empty, the issuer is not validated.
	Issuer string

	// Audience is the expected aud claim. If empty, the audience is not validated.
	Audience string

	Logger *zap.Logger
}

// JWTIdentityMiddleware returns middleware that authenticates the bearer token
// and stores the subject (user ID) and email claims as the request Identity.
// Missing or invalid tokens are rejected with 401.
func JWTIdentityMiddleware(cfg JWTConfig) (func(http.Handler) http.Handler, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	var keyFunc jwt.Keyfunc
	switch {
	case cfg.PublicKeyPath != "":
		publicKey, err := loadRSAPublicKey(cfg.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		keyFunc = func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return publicKey, nil
		}
		cfg.Logger.Info("jwt identity: using RS256 verification", zap.String("keyPath", cfg.PublicKeyPath))
	case cfg.Secret != "":
		secret := []byte(cfg.Secret)
		keyFunc = func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		}
	default:
		return nil, fmt.Errorf("jwt identity requires a secret or a public key path")
	}

	parserOpts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(parserOpts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearerToken(r)
			if raw == "" {
				writeAuthzError(w, http.StatusUnauthorized, "unauthenticated", "not authenticated")
				return
			}

			claims := jwt.MapClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
				cfg.Logger.Debug("jwt rejected", zap.Error(err))
				writeAuthzError(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
				return
			}

			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				writeAuthzError(w, http.StatusUnauthorized, "unauthenticated", "token has no subject")
				return
			}
			email, _ := claims["email"].(string)

			ctx := WithIdentity(r.Context(), Identity{UserID: sub, Email: email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func loadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JWT public key from %s: %w", path, err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block from %s", path)
	}
	parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	rsaKey, ok := parsedKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA (got %T)", parsedKey)
	}
	return rsaKey, nil
}
