package services

import (
	"context"
	"errors"
	"time"

	"github.com/Shavez90/Task-api/internal/store"
	"github.com/Shavez90/Task-api/internal/token"
	"github.com/Shavez90/Task-api/types"
	"golang.org/x/crypto/bcrypt"
)

const defaultUserRole = "user"

// ErrInvalidCredentials is returned on login when the username is unknown
// or the password is wrong. The two cases are deliberately collapsed so a
// caller cannot probe which usernames exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrDuplicateUsername is returned on registration when the username is
// already taken.
var ErrDuplicateUsername = errors.New("username already exists")

// AuthService implements the login and registration flows: it verifies
// credentials against the user store and mints session tokens.
type AuthService struct {
	users UserRepository
	codec *token.Codec
}

func NewAuthService(users UserRepository, codec *token.Codec) *AuthService {
	return &AuthService{users: users, codec: codec}
}

// TokenTTL returns the lifetime of issued tokens.
func (s *AuthService) TokenTTL() time.Duration {
	return s.codec.TTL()
}

// Login verifies the password for the named user and issues a token with
// the user's id as subject.
func (s *AuthService) Login(ctx context.Context, username, password string) (types.User, string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, "", ErrInvalidCredentials
		}
		return types.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, "", ErrInvalidCredentials
	}

	tokenString, err := s.codec.Issue(user.ID, []string{user.Role}, time.Now())
	if err != nil {
		return types.User{}, "", err
	}
	return user, tokenString, nil
}

// Register creates a new account with the default role. The returned user
// carries no password hash in its JSON form; the hash never leaves the store
// layer except for comparison in Login.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (types.User, error) {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return types.User{}, ErrDuplicateUsername
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		Role:         defaultUserRole,
		PasswordHash: string(hashed),
	})
	if err != nil {
		// Two registrations can race past the lookup above; the unique
		// index on username is the arbiter.
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrDuplicateUsername
		}
		return types.User{}, err
	}
	return user, nil
}
