package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/attendance-hq/apiserver/internal/services"
	"github.com/attendance-hq/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 8 * time.Hour

type contextKey string

const contextClaimsKey contextKey = "claims"

var (
	errMissingAuthorization = errors.New("authorization token required")
	errInvalidAuthorization = errors.New("invalid authorization header format")
	errTokenExpired         = errors.New("token expired")
	errInvalidToken         = errors.New("invalid token")
)

// Claims are the access token claims.
type Claims struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Role  types.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed access token for user.
func (t *TokenIssuer) Issue(user types.User) (string, error) {
	now := t.now()
	claims := Claims{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies tokenString and returns its claims. Expired tokens yield
// errTokenExpired, every other failure errInvalidToken.
func (t *TokenIssuer) Parse(tokenString string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if errors.Is(err, jwt.ErrTokenExpired) {
		return Claims{}, errTokenExpired
	}
	if err != nil || !token.Valid {
		return Claims{}, errInvalidToken
	}
	if strings.TrimSpace(claims.ID) == "" {
		return Claims{}, errInvalidToken
	}
	return claims, nil
}

// RequireAuth enforces a valid bearer token and injects its claims into the
// request context.
func RequireAuth(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), contextClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ForbiddenResponse reports the roles a route accepts.
type ForbiddenResponse struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message"`
	Required []types.Role `json:"required"`
	Current  types.Role   `json:"current"`
}

// RequireRole admits requests whose token carries one of roles. It must run
// after RequireAuth.
func RequireRole(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSON(w, http.StatusForbidden, ForbiddenResponse{
				Message:  "insufficient permissions",
				Required: roles,
				Current:  claims.Role,
			})
		})
	}
}

// ClaimsFromContext returns the claims injected by RequireAuth.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(contextClaimsKey).(Claims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errMissingAuthorization
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errInvalidAuthorization
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errInvalidAuthorization
	}
	return token, nil
}

// AuthHandler provides login and profile endpoints.
type AuthHandler struct {
	users  *services.UserService
	tokens *TokenIssuer
	render *Renderer
}

func NewAuthHandler(users *services.UserService, tokens *TokenIssuer, render *Renderer) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, render: render}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/login", handler.Login)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/logout", handler.Logout)
		r.Get("/me", handler.Me)
		r.Put("/me", handler.UpdateMe)
	})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success     bool       `json:"success"`
	AccessToken string     `json:"accessToken"`
	User        types.User `json:"user"`
}

type UserResponse struct {
	Success bool       `json:"success"`
	User    types.User `json:"user"`
}

type UpdateProfileRequest struct {
	Name           *string `json:"name"`
	ProfilePicture *string `json:"profilePicture"`
}

// Login verifies credentials and returns an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.render.ServiceError(w, r, services.Internal("failed to create token", err))
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Success: true, AccessToken: token, User: user})
}

// Logout acknowledges the request. Tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "logged out successfully"})
}

// Me returns the authenticated user with the employees it owns.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	user, err := h.users.Profile(r.Context(), claims.ID)
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Success: true, User: user})
}

// UpdateMe changes the display name or picture of the authenticated user.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, _ := ClaimsFromContext(r.Context())
	user, err := h.users.UpdateProfile(r.Context(), claims.ID, req.Name, req.ProfilePicture)
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Success: true, User: user})
}
