// Package auth provides account registration, login, and token
// verification. It produces the stable {playerId, displayName} identity
// the game core trusts; the core itself never authenticates.
package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/lorenzboss/m321-memory/game/engine"
)

// Service issues and verifies identity tokens backed by the user store.
type Service struct {
	db     *sql.DB
	secret []byte
	ttl    time.Duration
}

// NewService creates the auth service.
func NewService(db *sql.DB, secret string, ttl time.Duration) *Service {
	return &Service{db: db, secret: []byte(secret), ttl: ttl}
}

// Register creates an account and returns the user with a fresh token.
func (s *Service) Register(username, password string) (*User, string, error) {
	username = normalizeUsername(username)
	if err := validateSignup(username, password); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := createUser(s.db, username, string(hash))
	if err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks credentials and returns the user with a fresh token.
func (s *Service) Login(username, password string) (*User, string, error) {
	user, err := findUserByUsername(s.db, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// UserByID loads an account by its id.
func (s *Service) UserByID(id string) (*User, error) {
	return findUserByID(s.db, id)
}

// Verify resolves a token into a player identity. It satisfies the
// gateway's IdentityVerifier.
func (s *Service) Verify(token string) (engine.Player, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return engine.Player{}, ErrInvalidCredentials
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return engine.Player{}, ErrInvalidCredentials
	}
	sub, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	if sub == "" || name == "" {
		return engine.Player{}, ErrInvalidCredentials
	}

	return engine.Player{ID: sub, Name: name}, nil
}

func (s *Service) issueToken(user *User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"name": user.Username,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
