package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/countries-api-service/internal/model"
	"github.com/countries-api-service/internal/store"
	"github.com/countries-api-service/internal/token"
	"github.com/countries-api-service/internal/validation"
)

// AuthService handles registration, login and session token issuance.
type AuthService struct {
	store  store.UserStore
	tokens *token.Manager
	now    func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(s store.UserStore, tokens *token.Manager) *AuthService {
	return &AuthService{store: s, tokens: tokens, now: time.Now}
}

// TokenPair holds a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterInput contains the parameters for creating a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult is the outcome of a successful registration or login.
type AuthResult struct {
	User   *model.User
	Tokens TokenPair
}

// Register validates input, creates the account, and issues a token pair.
// The password is stored only as a bcrypt hash.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if err := validation.Username(input.Username); err != nil {
		return nil, NewBadRequest("invalid_request", err.Error())
	}
	email, err := validation.Email(input.Email)
	if err != nil {
		return nil, NewBadRequest("invalid_request", err.Error())
	}
	if err := validation.Password(input.Password); err != nil {
		return nil, NewBadRequest("invalid_request", err.Error())
	}

	if _, err := s.store.GetUserByUsername(ctx, input.Username); err == nil {
		return nil, NewBadRequest("duplicate_identity", "Username already exists")
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, NewBadRequest("duplicate_identity", "Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash password")
		return nil, NewInternal("internal_error", "Failed to register user")
	}

	user := &model.User{
		Username:     input.Username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		// The pre-checks race with concurrent registrations; the unique
		// constraint is authoritative.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, NewBadRequest("duplicate_identity", "Username or email already taken")
		}
		log.Error().Err(err).Msg("failed to create user")
		return nil, NewInternal("internal_error", "Failed to register user")
	}

	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Login authenticates by username or email. The response never reveals
// whether the identifier or the password was wrong.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	user, err := s.store.GetUserByUsernameOrEmail(ctx, identifier)
	if err != nil {
		return nil, NewUnauthorized("invalid_credentials", "Invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, NewUnauthorized("invalid_credentials", "Invalid credentials")
	}

	now := s.now().UTC()
	if err := s.store.UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to update last login")
	} else {
		user.LastLogin = &now
	}

	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh verifies a refresh token and mints a new access token.
func (s *AuthService) Refresh(refreshToken string) (string, error) {
	subject, err := s.tokens.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return "", NewUnauthorized("token_expired", "The token has expired")
		}
		return "", NewUnauthorized("invalid_token", "Signature verification failed")
	}

	accessToken, err := s.tokens.Issue(subject, token.KindAccess)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue access token")
		return "", NewInternal("internal_error", "Failed to refresh token")
	}
	return accessToken, nil
}

// Profile returns the account for the given user id.
func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFound("not_found", "User not found")
		}
		log.Error().Err(err).Msg("failed to load user")
		return nil, NewInternal("internal_error", "Failed to load user")
	}
	return user, nil
}

func (s *AuthService) issueTokens(userID uuid.UUID) (TokenPair, error) {
	access, err := s.tokens.Issue(userID.String(), token.KindAccess)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue access token")
		return TokenPair{}, NewInternal("internal_error", "Failed to generate authentication tokens")
	}
	refresh, err := s.tokens.Issue(userID.String(), token.KindRefresh)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue refresh token")
		return TokenPair{}, NewInternal("internal_error", "Failed to generate authentication tokens")
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
