package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/eventora/internal/backend/repository"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

// ErrInvalidCredentials is returned for an unknown email or wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidToken is returned for a missing, malformed or expired token.
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrInvalidCode is returned for an unknown or already used OAuth code.
var ErrInvalidCode = errors.New("invalid authorization code")

// DefaultTokenTTL is how long issued tokens stay valid.
const DefaultTokenTTL = 24 * time.Hour

// Claims are the JWT claims the backend issues.
type Claims struct {
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// OAuthIdentity is the account an authorization code stands for.
type OAuthIdentity struct {
	Email       string
	DisplayName string
}

// AuthService owns accounts and tokens.
type AuthService struct {
	repo   repository.Repository
	secret []byte
	logger *slog.Logger

	// TTL bounds token lifetime; zero means DefaultTokenTTL.
	TTL time.Duration
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
	Now  func() time.Time

	mu    sync.Mutex
	codes map[string]OAuthIdentity
}

// NewAuthService signs tokens with secret.
func NewAuthService(repo repository.Repository, secret []byte, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		repo:   repo,
		secret: secret,
		logger: logger,
		Now:    time.Now,
		codes:  map[string]OAuthIdentity{},
	}
}

// GrantCode makes code exchangeable once for id, standing in for a
// provider's authorization server.
func (a *AuthService) GrantCode(provider, code string, id OAuthIdentity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.codes[provider+"/"+code] = id
}

// Signup creates an account with a bcrypt-hashed password.
func (a *AuthService) Signup(ctx context.Context, req model.SignupRequest) (*repository.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		return nil, invalid("display name is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, invalid("email is not a valid email address")
	}
	if len(req.Password) < 6 {
		return nil, invalid("password must be at least 6 characters")
	}

	cost := a.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := a.repo.CreateUser(ctx, repository.User{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Roles:        []string{"USER"},
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("user_created", "user_id", u.ID)
	return u, nil
}

// Login checks credentials and issues a token.
func (a *AuthService) Login(ctx context.Context, creds model.Credentials) (string, error) {
	u, err := a.repo.UserByEmail(ctx, strings.TrimSpace(creds.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)) != nil {
		return "", ErrInvalidCredentials
	}
	return a.Issue(u)
}

// ExchangeCode trades a granted code for a token, creating the account on
// first use. Each code works once.
func (a *AuthService) ExchangeCode(ctx context.Context, provider, code string) (string, error) {
	a.mu.Lock()
	id, ok := a.codes[provider+"/"+code]
	delete(a.codes, provider+"/"+code)
	a.mu.Unlock()
	if !ok || code == "" {
		return "", ErrInvalidCode
	}

	u, err := a.repo.UserByEmail(ctx, id.Email)
	if errors.Is(err, repository.ErrNotFound) {
		u, err = a.repo.CreateUser(ctx, repository.User{
			Email:       strings.ToLower(id.Email),
			DisplayName: id.DisplayName,
			Roles:       []string{"USER"},
		})
	}
	if err != nil {
		return "", err
	}
	a.logger.Info("oauth_code_exchanged", "provider", provider, "user_id", u.ID)
	return a.Issue(u)
}

// Issue signs an HS256 token for u.
func (a *AuthService) Issue(u *repository.User) (string, error) {
	ttl := a.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := a.Now()
	claims := Claims{
		Email: u.Email,
		Name:  u.DisplayName,
		Roles: u.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "eventora-dev",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token.
func (a *AuthService) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.Now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Profile returns the public view of user id.
func (a *AuthService) Profile(ctx context.Context, id string) (*model.UserProfile, error) {
	u, err := a.repo.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.UserProfile{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Roles: u.Roles}, nil
}
