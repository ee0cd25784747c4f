package services

import (
	"context"
	"strings"
	"time"

	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// AuthOptions configures token issuing and password hashing
type AuthOptions struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

// SignupInput registers a new account
type SignupInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginInput authenticates an existing account
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned after a successful signup or login
type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

type claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies bearer tokens
type AuthService struct {
	base
	opts AuthOptions
}

// NewAuthService creates a new auth service
func NewAuthService(d Deps, opts AuthOptions) *AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{base: newBase(d), opts: opts}
}

// Signup creates an account and returns a token for it
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (_ *AuthResult, err error) {
	ctx, done := s.begin(ctx, "auth.signup")
	defer done(&err)

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &models.User{Email: input.Email, Name: input.Name, PasswordHash: string(hash)}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, Conflict("An account with this email already exists")
		}
		return nil, errors.Wrap(err, "failed to create user")
	}

	log.Info().Str("user_id", user.ID.String()).Msg("User signed up")
	return s.issue(user)
}

// Login checks credentials and returns a token
func (s *AuthService) Login(ctx context.Context, input LoginInput) (_ *AuthResult, err error) {
	ctx, done := s.begin(ctx, "auth.login")
	defer done(&err)

	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, Unauthorized("Invalid email or password")
		}
		return nil, errors.Wrap(err, "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, Unauthorized("Invalid email or password")
	}
	return s.issue(user)
}

// Authenticate verifies a bearer token and returns its user id
func (s *AuthService) Authenticate(token string) (uuid.UUID, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.opts.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return uuid.Nil, Unauthorized("Invalid or expired token")
	}

	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return uuid.Nil, Unauthorized("Invalid or expired token")
	}
	return id, nil
}

// Me returns the account behind an authenticated user id
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found", "failed to load user")
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	now := time.Now()
	expires := now.Add(s.opts.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: user.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString([]byte(s.opts.Secret))
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign token")
	}
	return &AuthResult{Token: signed, ExpiresAt: expires, User: *user}, nil
}
