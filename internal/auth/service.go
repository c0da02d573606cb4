// Package auth is the identity provider: it verifies credentials against
// bcrypt hashes and issues/parses signed tokens for the HTTP layer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadCredentials = errors.New("incorrect email or password")
	ErrEmailTaken     = errors.New("email already in use")
	ErrBadToken       = errors.New("invalid or expired token")
)

const bcryptCost = 12

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, name, email, passwordHash string, role Role) (User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error
}

type Service struct {
	Users  UserStore
	Secret []byte
	Expiry time.Duration
	Now    func() time.Time // nil means time.Now
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) Register(ctx context.Context, name, email, password string, role Role) (User, error) {
	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}
	if role == "" {
		role = RoleStaff
	}
	if !ValidRole(role) {
		return User{}, fmt.Errorf("invalid role: %q", role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return User{}, err
	}
	return s.Users.Create(ctx, name, email, string(hash), role)
}

// Authenticate resolves credentials to a user. The same error comes back for
// an unknown email and a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, err
	}
	if !u.Active {
		return User{}, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

func (s *Service) UpdatePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrBadCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return err
	}
	return s.Users.UpdatePassword(ctx, userID, string(hash), s.now())
}

type claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for the user: HS256, subject = user id,
// role carried as a private claim.
func (s *Service) IssueToken(u User) (string, error) {
	now := s.now()
	c := claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.Expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.Secret)
}

// ParseToken verifies the signature and expiry and returns the principal.
func (s *Service) ParseToken(token string) (Principal, error) {
	var c claims
	t, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.Secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !t.Valid {
		return Principal{}, ErrBadToken
	}
	var id int64
	if _, err := fmt.Sscanf(c.Subject, "%d", &id); err != nil {
		return Principal{}, ErrBadToken
	}
	return Principal{UserID: id, Role: c.Role}, nil
}
