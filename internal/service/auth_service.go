// Package service holds the application's use cases on top of the store and repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"soulspark/internal/models"
	"soulspark/internal/repository"
	"soulspark/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "soulspark-api"
	tokenAudience = "soulspark-client"

	// DefaultTokenTTL matches the session length users were given before accounts were server-side.
	DefaultTokenTTL = time.Hour
)

var errInvalidCredentials = models.NewUnauthenticatedError("Invalid email or password.")

// AuthOptions configures an AuthService.
type AuthOptions struct {
	Secret      string
	TokenTTL    time.Duration
	Revocations RevocationStore
	BcryptCost  int
	Now         func() time.Time
	Logger      *slog.Logger
}

// AuthService registers accounts and issues and verifies session tokens.
type AuthService struct {
	users   repository.UserRepository
	revoked RevocationStore
	secret  []byte
	ttl     time.Duration
	cost    int
	now     func() time.Time
	logger  *slog.Logger
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Session is a verified token.
type Session struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// Identity is the acting identity behind the session.
func (s *Session) Identity() *models.Identity {
	return &models.Identity{
		ID:          strconv.FormatUint(uint64(s.UserID), 10),
		DisplayName: s.Username,
	}
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewAuthService(users repository.UserRepository, opts AuthOptions) *AuthService {
	s := &AuthService{
		users:   users,
		revoked: opts.Revocations,
		secret:  []byte(opts.Secret),
		ttl:     opts.TokenTTL,
		cost:    opts.BcryptCost,
		now:     opts.Now,
		logger:  opts.Logger,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTokenTTL
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.revoked == nil {
		s.revoked = NewMemoryRevocations(s.now)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = validation.NormalizeEmail(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email, and password are required")
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("An account with this email already exists.")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hashed),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", slog.Uint64("user_id", uint64(user.ID)))
	return s.issue(user)
}

// Login verifies credentials. Unknown emails and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return s.issue(user)
}

// Logout revokes the token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	session, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.revoked.Revoke(ctx, session.JTI, session.ExpiresAt.Sub(s.now())); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Authenticate verifies signature, issuer, audience, expiry and revocation.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, models.NewUnauthenticatedError("Authorization required")
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, models.NewUnauthenticatedError("Invalid or expired token")
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil {
		return nil, models.NewUnauthenticatedError("Invalid user ID in token")
	}

	if claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.WarnContext(ctx, "revocation check failed", slog.String("error", err.Error()))
		} else if revoked {
			return nil, models.NewUnauthenticatedError("Token has been revoked")
		}
	}

	return &Session{
		UserID:    uint(userID),
		Username:  claims.Username,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// CurrentIdentity resolves a token to an identity. An empty token is anonymous, not an error.
func (s *AuthService) CurrentIdentity(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return session.Identity(), nil
}

// CurrentUser loads the account behind a session.
func (s *AuthService) CurrentUser(ctx context.Context, session *Session) (*models.User, error) {
	if session == nil {
		return nil, models.NewUnauthenticatedError("Authorization required")
	}
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, models.NewUnauthenticatedError("Account no longer exists")
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	if len(s.secret) == 0 {
		return nil, models.NewInternalError(errors.New("JWT secret not configured"))
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := sessionClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: signed, ExpiresAt: expires, User: user}, nil
}
