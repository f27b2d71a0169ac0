// Package service holds the business layer between the HTTP handlers and
// the store: session lifecycle, the generic entity engine, dropdowns, the
// policy special flows, associations, search, and compose links.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/policyops/acctd/internal/config"
	"github.com/policyops/acctd/internal/model"
	"github.com/policyops/acctd/internal/store"
)

var (
	ErrMissingCredentials = errors.New("missing email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("wrong password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUnauthorizedGroup  = errors.New("unauthorized group")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// Token type discriminators. An access token presented where a refresh token
// is expected (or vice versa) fails validation regardless of signature.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// rolePriority orders roles from most to least privileged; SSO group
// resolution picks the highest one present.
var rolePriority = []string{"admin", "director", "underwriter"}

// UserStore is the slice of the store the auth service needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	UpdateUserPassword(ctx context.Context, id int64, password string) error
}

// AuthService implements the session lifecycle: local and SSO login, token
// issue/validation, refresh, and profile lookup. Tokens are stateless HS256
// JWTs; validity is signature plus expiry only, with no revocation list.
type AuthService struct {
	users  UserStore
	cfg    config.Config
	secret []byte
}

func NewAuthService(users UserStore, cfg config.Config) *AuthService {
	return &AuthService{
		users:  users,
		cfg:    cfg,
		secret: []byte(cfg.Auth.SecretKey),
	}
}

type sessionClaims struct {
	Role      string `json:"role,omitempty"`
	TokenType string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// AccessTokenTTL exposes the configured access token lifetime for cookie
// max-age calculation.
func (s *AuthService) AccessTokenTTL() time.Duration { return s.cfg.Auth.AccessTokenTTL }

// RefreshTokenTTL exposes the configured refresh token lifetime.
func (s *AuthService) RefreshTokenTTL() time.Duration { return s.cfg.Auth.RefreshTokenTTL }

// CreateAccessToken issues a short-lived access token carrying the user id
// and role.
func (s *AuthService) CreateAccessToken(userID int64, role string) (string, error) {
	return s.signToken(userID, role, tokenTypeAccess, s.cfg.Auth.AccessTokenTTL)
}

// CreateRefreshToken issues a long-lived refresh token. It carries no role;
// the role is re-read from the user record at refresh time.
func (s *AuthService) CreateRefreshToken(userID int64) (string, error) {
	return s.signToken(userID, "", tokenTypeRefresh, s.cfg.Auth.RefreshTokenTTL)
}

func (s *AuthService) signToken(userID int64, role, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *AuthService) parseToken(tokenStr string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// DecodeAccessToken validates an access token and returns the user id and
// role claim. Tokens issued before the type discriminator existed carry no
// type and are accepted; an explicit non-access type is rejected.
func (s *AuthService) DecodeAccessToken(tokenStr string) (int64, string, error) {
	claims, err := s.parseToken(tokenStr)
	if err != nil {
		return 0, "", err
	}
	if claims.TokenType != "" && claims.TokenType != tokenTypeAccess {
		return 0, "", ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", ErrInvalidToken
	}
	return userID, claims.Role, nil
}

// DecodeRefreshToken validates a refresh token. Unlike the access path the
// type discriminator is mandatory.
func (s *AuthService) DecodeRefreshToken(tokenStr string) (int64, error) {
	claims, err := s.parseToken(tokenStr)
	if err != nil {
		return 0, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// Session bundles everything the login handlers need to answer a request.
type Session struct {
	User         model.UserPayload
	AccessToken  string
	RefreshToken string
}

// LoginLocal validates email/password credentials against the users table.
// Stored bcrypt hashes are verified normally; a stored value that is not a
// recognized hash gets a one-time plaintext comparison followed by a
// best-effort rehash, so legacy rows migrate to hashes on first login.
func (s *AuthService) LoginLocal(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("login lookup: %w", err)
	}

	if isBcryptHash(user.Password) {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
			return nil, ErrWrongPassword
		}
	} else {
		if user.Password != password {
			return nil, ErrWrongPassword
		}
		// Legacy plaintext row: rehash now so the plaintext never has to be
		// compared again. A rehash failure must not fail the login.
		if hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost); err == nil {
			_ = s.users.UpdateUserPassword(ctx, user.ID, string(hashed))
		}
	}

	return s.issueSession(user, "")
}

// LoginSSO trusts the identity and group claims injected by the upstream
// gateway. Exactly one role is resolved from the groups; the identity is
// matched to a user row by email, falling back to a numeric id.
func (s *AuthService) LoginSSO(ctx context.Context, identity, rawGroups string) (*Session, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrNotAuthenticated
	}

	groups := s.parseGroups(rawGroups)
	if len(groups) == 0 {
		return nil, ErrUnauthorizedGroup
	}
	role, err := s.ResolveRole(groups)
	if err != nil {
		return nil, err
	}

	user, err := s.resolveUserForIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	return s.issueSession(user, role)
}

func (s *AuthService) issueSession(user *model.User, roleOverride string) (*Session, error) {
	payload := user.Payload(roleOverride)
	access, err := s.CreateAccessToken(payload.ID, payload.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.CreateRefreshToken(payload.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &Session{User: payload, AccessToken: access, RefreshToken: refresh}, nil
}

// parseGroups splits the delimited groups header. Semicolons and the
// configured delimiter both collapse to commas before splitting.
func (s *AuthService) parseGroups(raw string) []string {
	if raw == "" {
		return nil
	}
	delimiter := s.cfg.SSO.GroupsDelimiter
	if delimiter == "" {
		delimiter = ","
	}
	normalized := strings.ReplaceAll(raw, ";", ",")
	if delimiter != "," {
		normalized = strings.ReplaceAll(normalized, delimiter, ",")
	}

	var groups []string
	for _, part := range strings.Split(normalized, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			groups = append(groups, trimmed)
		}
	}
	return groups
}

// ResolveRole maps group claims to the single highest-priority role. Groups
// are matched exactly after trim/lowercase normalization against the
// configured group names, with the bare role names accepted as aliases. No
// mapped group is a 403-class failure.
func (s *AuthService) ResolveRole(groups []string) (string, error) {
	mapping := map[string]string{}
	if g := s.cfg.SSO.UnderwriterGroup; g != "" {
		mapping[normalizeClaim(g)] = "underwriter"
	}
	if g := s.cfg.SSO.DirectorGroup; g != "" {
		mapping[normalizeClaim(g)] = "director"
	}
	if g := s.cfg.SSO.AdminGroup; g != "" {
		mapping[normalizeClaim(g)] = "admin"
	}
	for _, role := range rolePriority {
		if _, ok := mapping[role]; !ok {
			mapping[role] = role
		}
	}

	resolved := map[string]bool{}
	for _, group := range groups {
		if role, ok := mapping[normalizeClaim(group)]; ok {
			resolved[role] = true
		}
	}
	for _, role := range rolePriority {
		if resolved[role] {
			return role, nil
		}
	}
	return "", ErrUnauthorizedGroup
}

func (s *AuthService) resolveUserForIdentity(ctx context.Context, identity string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, identity)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("sso lookup: %w", err)
	}

	if id, convErr := strconv.ParseInt(identity, 10, 64); convErr == nil {
		user, err = s.users.GetUserByID(ctx, id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("sso lookup: %w", err)
		}
	}
	return nil, ErrUserNotFound
}

// Refresh validates a refresh token and issues a new access token. The
// refresh token itself is never rotated here.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, model.UserPayload, error) {
	userID, err := s.DecodeRefreshToken(refreshToken)
	if err != nil {
		return "", model.UserPayload{}, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", model.UserPayload{}, ErrInvalidToken
	}
	if err != nil {
		return "", model.UserPayload{}, fmt.Errorf("refresh lookup: %w", err)
	}

	payload := user.Payload("")
	access, err := s.CreateAccessToken(payload.ID, payload.Role)
	if err != nil {
		return "", model.UserPayload{}, fmt.Errorf("issue access token: %w", err)
	}
	return access, payload, nil
}

// CurrentUser resolves the profile for a presented access token. The role
// claim from the token wins over the stored role, matching what was issued
// at login.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (model.UserPayload, error) {
	userID, role, err := s.DecodeAccessToken(accessToken)
	if err != nil {
		return model.UserPayload{}, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return model.UserPayload{}, ErrInvalidToken
	}
	if err != nil {
		return model.UserPayload{}, fmt.Errorf("profile lookup: %w", err)
	}
	return user.Payload(role), nil
}

func normalizeClaim(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// isBcryptHash recognizes the modern password format ($2a$, $2b$, $2y$).
func isBcryptHash(stored string) bool {
	return strings.HasPrefix(stored, "$2")
}
