package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/httputil"
	pkgmw "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/middleware"
)

// GuestSessionCookie names the cookie carrying the anonymous session id.
const GuestSessionCookie = "guest_session"

type contextKey string

const identityKey contextKey = "identity"

// Identity is the resolved caller of a request. A request is authenticated
// when Token is non-empty; every request, authenticated or not, carries a
// guest session id from the session cookie.
type Identity struct {
	Token     string
	UserID    string
	SessionID string
}

// Authenticated reports whether the request carried a bearer token.
func (id Identity) Authenticated() bool {
	return id.Token != ""
}

// OwnerID is the stable key for per-caller state such as the checkout
// selection: the user id when signed in, the guest session otherwise.
func (id Identity) OwnerID() string {
	if id.Authenticated() && id.UserID != "" {
		return "user:" + id.UserID
	}
	return "guest:" + id.SessionID
}

// IdentityFromContext returns the identity resolved by the session
// middleware, or a zero identity when the middleware is not mounted.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

// Session resolves the caller's identity on every request. A missing guest
// session cookie is minted on the spot so even a first-time visitor has a
// cart to write to. When a JWT secret is configured, bearer tokens are
// verified locally and rejected requests never reach the cart service; with
// no secret the token is passed through opaquely for the service to judge.
func Session(jwtSecret string, cookieTTL time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := Identity{SessionID: ensureSessionCookie(w, r, cookieTTL)}

			if token := bearerToken(r); token != "" {
				if jwtSecret != "" {
					userID, err := verifyToken(token, jwtSecret)
					if err != nil {
						logger.Warn("invalid bearer token",
							slog.String("path", r.URL.Path),
							slog.Any("error", err),
						)
						httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
							Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid or expired token"},
						})
						return
					}
					id.UserID = userID
				}
				id.Token = token
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			if id.UserID != "" {
				ctx = pkgmw.WithUserID(ctx, id.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ensureSessionCookie returns the existing guest session id or mints a new
// one and sets the cookie.
func ensureSessionCookie(w http.ResponseWriter, r *http.Request, ttl time.Duration) string {
	if c, err := r.Cookie(GuestSessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	sessionID := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     GuestSessionCookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// verifyToken validates an HMAC-signed JWT and extracts the user id from
// the user_id claim, falling back to sub.
func verifyToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenUnverifiable
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", jwt.ErrTokenInvalidClaims
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	return userID, nil
}

// ContentTypeJSON rejects mutating requests whose body is not JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
