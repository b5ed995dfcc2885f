package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader carries a service key for callers that cannot obtain a JWT,
// such as the nightly export batch.
const APIKeyHeader = "X-API-Key"

type contextKey string

const subjectKey contextKey = "subject"

type apiKey struct {
	name string
	hash []byte
}

// TokenValidator checks HS256 bearer tokens against a shared secret and
// service keys against their bcrypt hashes.
type TokenValidator struct {
	secret []byte
	keys   []apiKey
}

// NewTokenValidator returns nil when neither a secret nor a key is given,
// which disables auth. Keys are "name:bcrypt-hash" entries; an entry without
// a name is called key-N.
func NewTokenValidator(secret string, apiKeys ...string) *TokenValidator {
	v := &TokenValidator{}
	if secret != "" {
		v.secret = []byte(secret)
	}
	for i, entry := range apiKeys {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, hash, ok := strings.Cut(entry, ":")
		if !ok {
			name, hash = fmt.Sprintf("key-%d", i+1), entry
		}
		v.keys = append(v.keys, apiKey{name: name, hash: []byte(hash)})
	}
	if v.secret == nil && len(v.keys) == 0 {
		return nil
	}
	return v
}

// ValidateAPIKey returns the name of the service key matching key.
func (v *TokenValidator) ValidateAPIKey(key string) (string, error) {
	if key == "" {
		return "", &domain.ErrUnauthorized{Message: "empty api key"}
	}
	for _, k := range v.keys {
		if bcrypt.CompareHashAndPassword(k.hash, []byte(key)) == nil {
			return k.name, nil
		}
	}
	return "", &domain.ErrUnauthorized{Message: "invalid api key"}
}

// Validate parses and verifies a token. Tokens are issued by the dashboard's
// auth backend; expiry and subject are mandatory.
func (v *TokenValidator) Validate(tokenString string) (*jwt.RegisteredClaims, error) {
	if v.secret == nil {
		return nil, &domain.ErrUnauthorized{Message: "bearer tokens are not accepted"}
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}
	if claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "token has no subject"}
	}
	return claims, nil
}

// JWTAuthMiddleware validates Bearer tokens or service keys and injects the
// subject into context.
func JWTAuthMiddleware(validator *TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get(APIKeyHeader); key != "" {
				name, err := validator.ValidateAPIKey(key)
				if err != nil {
					logger.Warn("auth: invalid api key",
						zap.String("path", r.URL.Path),
						zap.String("remote_addr", r.RemoteAddr),
					)
					writeError(w, http.StatusUnauthorized, err.Error())
					return
				}
				ctx := context.WithValue(r.Context(), subjectKey, "service:"+name)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := validator.Validate(strings.TrimSpace(parts[1]))
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext extracts the authenticated subject from context.
func SubjectFromContext(ctx context.Context) string {
	v, _ := ctx.Value(subjectKey).(string)
	return v
}
