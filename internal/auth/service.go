package auth

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/mail"
	"strings"

	"github.com/vovakirdan/timetable-server/internal/auth/provider"
	"github.com/vovakirdan/timetable-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when email/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when signing up with an email that is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidEmail is returned when the email is malformed.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrUnauthenticated is returned when a bearer token cannot be resolved to a user.
	ErrUnauthenticated = errors.New("could not validate credentials")
)

// colorCount is the number of seeded display colors.
const colorCount = 10

// IdentityProvider resolves an external authorization code to a profile.
type IdentityProvider interface {
	Identify(ctx context.Context, code, redirectURI string) (*provider.Profile, error)
}

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
	provider  IdentityProvider
}

// NewService creates a new authentication service. idp may be nil when the
// external login is disabled.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig, idp IdentityProvider) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
		provider:  idp,
	}
}

// Signup creates a password account and returns a token.
func (s *Service) Signup(ctx context.Context, email, password string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", ErrInvalidEmail
	}
	if len(password) < 6 {
		return "", ErrInvalidPassword
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	user, err := s.store.CreateUser(ctx, &store.User{
		Email:        &addr.Address,
		PasswordHash: hashedPassword,
		ColorID:      randomColor(),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

// Login validates email/password and returns a token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	return s.issue(user)
}

// LoginWithProvider exchanges an external authorization code, creates the
// user on first login and returns a local token.
func (s *Service) LoginWithProvider(ctx context.Context, code, redirectURI string) (string, error) {
	if s.provider == nil {
		return "", provider.ErrNotConfigured
	}

	profile, err := s.provider.Identify(ctx, code, redirectURI)
	if err != nil {
		return "", err
	}

	user, err := s.store.GetUserByProviderID(ctx, profile.ID)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("get user: %w", err)
	}

	hash, err := unusablePasswordHash()
	if err != nil {
		return "", err
	}
	user, err = s.store.CreateUser(ctx, &store.User{
		ProviderID:   &profile.ID,
		PasswordHash: hash,
		Nickname:     profile.Nickname,
		ColorID:      randomColor(),
	})
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// Authenticate resolves a bearer token to a stored user.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*store.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// IssueToken returns a token for an existing user.
func (s *Service) IssueToken(user *store.User) (string, error) {
	return s.issue(user)
}

func (s *Service) issue(user *store.User) (string, error) {
	token, err := GenerateToken(s.jwtConfig, user.ID, user.Nickname)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

func randomColor() int64 {
	return rand.Int64N(colorCount)
}
