package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memStore struct {
	byEmail map[string]User
	nextID  int64
}

func newMemStore() *memStore { return &memStore{byEmail: map[string]User{}} }

func (m *memStore) GetByEmail(ctx context.Context, email string) (User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memStore) Create(ctx context.Context, name, email, hash string, role Role) (User, error) {
	m.nextID++
	u := User{ID: m.nextID, Name: name, Email: email, PasswordHash: hash, Role: role, Active: true}
	m.byEmail[email] = u
	return u, nil
}

func (m *memStore) UpdatePassword(ctx context.Context, id int64, hash string, changedAt time.Time) error {
	for email, u := range m.byEmail {
		if u.ID == id {
			u.PasswordHash = hash
			u.PasswordChangedAt = &changedAt
			m.byEmail[email] = u
			return nil
		}
	}
	return ErrUserNotFound
}

func newService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	return &Service{Users: store, Secret: []byte("test-secret"), Expiry: time.Hour}, store
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Ana", "ana@example.com", "hunter2hunter2", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != RoleStaff {
		t.Errorf("default role = %s, want staff", u.Role)
	}
	if u.PasswordHash == "hunter2hunter2" {
		t.Error("password stored in plain text")
	}

	got, err := svc.Authenticate(ctx, "ana@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("authenticated id = %d, want %d", got.ID, u.ID)
	}

	if _, err := svc.Authenticate(ctx, "ana@example.com", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password err = %v, want ErrBadCredentials", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown email err = %v, want ErrBadCredentials", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Ana", "ana@example.com", "hunter2hunter2", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "Ana2", "ana@example.com", "hunter2hunter2", ""); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc, _ := newService(t)
	u := User{ID: 7, Role: RoleManager}

	token, err := svc.IssueToken(u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	p, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.UserID != 7 || p.Role != RoleManager {
		t.Errorf("principal = %+v", p)
	}
}

func TestTokenExpiry(t *testing.T) {
	svc, _ := newService(t)
	issued := time.Now()
	svc.Now = func() time.Time { return issued }

	token, err := svc.IssueToken(User{ID: 1, Role: RoleStaff})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	svc.Now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := svc.ParseToken(token); !errors.Is(err, ErrBadToken) {
		t.Errorf("expired token err = %v, want ErrBadToken", err)
	}
}

func TestTokenTamperedSignature(t *testing.T) {
	svc, _ := newService(t)
	token, err := svc.IssueToken(User{ID: 1, Role: RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := &Service{Secret: []byte("other-secret"), Expiry: time.Hour}
	if _, err := other.ParseToken(token); !errors.Is(err, ErrBadToken) {
		t.Errorf("foreign-key token err = %v, want ErrBadToken", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Ana", "ana@example.com", "hunter2hunter2", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.UpdatePassword(ctx, u.ID, "wrong", "newpassword99"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong current err = %v, want ErrBadCredentials", err)
	}
	if err := svc.UpdatePassword(ctx, u.ID, "hunter2hunter2", "newpassword99"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ana@example.com", "newpassword99"); err != nil {
		t.Errorf("authenticate with new password: %v", err)
	}
}
