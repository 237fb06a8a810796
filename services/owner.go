package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/krshsl/brandcast/models"
)

const ownerHeader = "X-User-ID"

type ownerKey struct{}

// OwnerFromContext returns the owner id set by OwnerIdentifier.Middleware.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

func withOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerIdentifier resolves which user a request acts for. It identifies, it does not authenticate:
// a bearer token is checked only when a secret is configured, and X-User-ID is trusted as given.
type OwnerIdentifier struct {
	users          UserStore
	jwtSecret      []byte
	defaultOwnerID string
	known          sync.Map
}

func NewOwnerIdentifier(users UserStore, jwtSecret, defaultOwnerID string) *OwnerIdentifier {
	if defaultOwnerID == "" {
		defaultOwnerID = DefaultOwnerID
	}
	return &OwnerIdentifier{
		users:          users,
		jwtSecret:      []byte(jwtSecret),
		defaultOwnerID: defaultOwnerID,
	}
}

func (o *OwnerIdentifier) DefaultOwnerID() string {
	return o.defaultOwnerID
}

// IssueToken signs an HS256 token whose subject is ownerID
func (o *OwnerIdentifier) IssueToken(ownerID string, ttl time.Duration) (string, error) {
	if len(o.jwtSecret) == 0 {
		return "", fmt.Errorf("%w: JWT secret not configured", ErrPrecondition)
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   ownerID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(o.jwtSecret)
}

func (o *OwnerIdentifier) parseToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return o.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Subject, nil
}

// Resolve picks the owner for r: bearer token subject, then X-User-ID, then the default owner.
func (o *OwnerIdentifier) Resolve(r *http.Request) (string, error) {
	if token := bearerToken(r); token != "" && len(o.jwtSecret) > 0 {
		subject, err := o.parseToken(token)
		if err != nil {
			return "", err
		}
		return validOwnerID(subject)
	}
	if header := strings.TrimSpace(r.Header.Get(ownerHeader)); header != "" {
		return validOwnerID(header)
	}
	return o.defaultOwnerID, nil
}

// bearerToken reads the Authorization header, or access_token for websocket clients that cannot set headers
func bearerToken(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("access_token")
}

func validOwnerID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: owner id must be a UUID", ErrInvalidInput)
	}
	return parsed.String(), nil
}

// ensure creates the owner's user row the first time the process sees it
func (o *OwnerIdentifier) ensure(ctx context.Context, ownerID string) error {
	if o.users == nil {
		return nil
	}
	if _, seen := o.known.Load(ownerID); seen {
		return nil
	}
	user := &models.User{ID: ownerID, Email: ownerID + "@owners.brandcast.local"}
	if err := o.users.EnsureUser(ctx, user); err != nil {
		return fmt.Errorf("failed to ensure owner: %w", err)
	}
	o.known.Store(ownerID, struct{}{})
	return nil
}

// Middleware puts the resolved owner id into the request context
func (o *OwnerIdentifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := o.Resolve(r)
		if err != nil {
			slog.Warn("Owner identification failed", "error", err, "path", r.URL.Path)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if err := o.ensure(r.Context(), ownerID); err != nil {
			slog.Error("Failed to register owner", "error", err, "user_id", ownerID)
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withOwner(r.Context(), ownerID)))
	})
}
