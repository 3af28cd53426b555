package authz

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// AuthMode selects how request identity is established.
type AuthMode string

const (
	// AuthModeJWT verifies bearer tokens issued by the auth provider.
	AuthModeJWT AuthMode = "jwt"
	// AuthModeHeader trusts identity headers set by a fronting proxy (development).
	AuthModeHeader AuthMode = "header"
)

// NewIdentityMiddleware builds the identity middleware for the given mode.
func NewIdentityMiddleware(mode AuthMode, cfg JWTConfig) (func(http.Handler) http.Handler, error) {
	switch mode {
	case AuthModeJWT:
		return JWTIdentityMiddleware(cfg)
	case AuthModeHeader, "":
		if cfg.Logger != nil {
			cfg.Logger.Warn("using header-based identity; do not expose this server without a trusted proxy",
				zap.String("header", UserIDHeader))
		}
		return HeaderIdentityMiddleware(), nil
	default:
		return nil, fmt.Errorf("unknown auth mode: %q (expected jwt or header)", mode)
	}
}
