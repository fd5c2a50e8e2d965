package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/fixpoint/backend/internal/models"
)

// ErrInvalidCredentials covers both unknown names and wrong passwords so the
// login response does not leak which one failed.
var ErrInvalidCredentials = errors.New("invalid name or password")

// UserStore is the identity lookup the auth service needs.
type UserStore interface {
	GetUserByName(ctx context.Context, name string) (models.User, error)
}

// Service authenticates users and issues HS256 access tokens.
type Service struct {
	Users  UserStore
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

func New(users UserStore, secret string, ttl time.Duration) *Service {
	return &Service{Users: users, Secret: secret, TTL: ttl, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type claims struct {
	jwt.RegisteredClaims
	Name string      `json:"name"`
	Role models.Role `json:"role"`
}

// LoginResult is returned to the caller on successful authentication.
type LoginResult struct {
	AccessToken string            `json:"access_token"`
	User        models.UserPublic `json:"user"`
}

func (s *Service) Login(ctx context.Context, name, password string) (LoginResult, error) {
	user, err := s.Users.GetUserByName(ctx, name)
	if err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
		Name: user.Name,
		Role: user.Role,
	})
	signed, err := token.SignedString([]byte(s.Secret))
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign token: %w", err)
	}
	return LoginResult{AccessToken: signed, User: user.Public()}, nil
}

// Parse validates an access token and returns the principal it carries.
func (s *Service) Parse(token string) (models.Principal, error) {
	if strings.TrimSpace(s.Secret) == "" {
		return models.Principal{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	c := &claims{}
	parsed, err := parser.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return []byte(s.Secret), nil
	})
	if err != nil {
		return models.Principal{}, err
	}
	if !parsed.Valid {
		return models.Principal{}, errors.New("invalid token")
	}
	if c.Subject == "" {
		return models.Principal{}, errors.New("subject claim required")
	}
	return models.Principal{ID: c.Subject, Name: c.Name, Role: c.Role}, nil
}

// HashPassword produces a bcrypt hash for seeding and user provisioning.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
