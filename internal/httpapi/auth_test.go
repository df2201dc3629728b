package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"inventoryledger/backend/internal/domain"
)

const testSecret = "test-secret-test-secret-test-secret"

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func legacyAdminStore() *userStoreStub {
	return &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
}

func newTestAuth(t *testing.T, store UserStore) *AuthManager {
	t.Helper()
	manager, err := NewAuthManager(context.Background(), testSecret, time.Hour, store)
	if err != nil {
		t.Fatalf("new auth manager: %v", err)
	}
	return manager
}

func TestAuthManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewAuthManager(context.Background(), "short", time.Hour, nil); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := legacyAdminStore()
	manager := newTestAuth(t, store)

	_, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestCreateUserStoresPasswordHash(t *testing.T) {
	store := legacyAdminStore()
	manager := newTestAuth(t, store)

	user, err := manager.CreateUser(context.Background(), domain.UserCreateRequest{
		Username: "Gudang01",
		Password: "pass1234",
		Role:     domain.RoleCashier,
	})
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if user.Username != "gudang01" {
		t.Fatalf("expected lowercased username, got %s", user.Username)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	var found *domain.UserAccount
	for i := range users {
		if users[i].Username == "gudang01" {
			found = &users[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("expected user to be saved")
	}
	if !strings.HasPrefix(found.Password, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", found.Password)
	}

	if _, err := manager.CreateUser(context.Background(), domain.UserCreateRequest{
		Username: "gudang01", Password: "another1", Role: domain.RoleCashier,
	}); err == nil {
		t.Fatalf("expected duplicate username to fail")
	}

	resp, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "gudang01",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("login with hashed user failed: %v", err)
	}
	if resp.Role != domain.RoleCashier {
		t.Fatalf("unexpected role %s", resp.Role)
	}

	if got := len(manager.ListUsers(context.Background())); got != 2 {
		t.Fatalf("expected 2 users, got %d", got)
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	manager := newTestAuth(t, legacyAdminStore())

	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "admin" || actor.Role != domain.RoleAdmin {
		t.Fatalf("unexpected actor %+v", actor)
	}

	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "wrong"}); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestParseTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	manager := newTestAuth(t, nil)

	expired, err := manager.sign("admin", domain.RoleAdmin, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(expired); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}

	other, err := NewAuthManager(context.Background(), strings.Repeat("x", 32), time.Hour, nil)
	if err != nil {
		t.Fatalf("new auth manager: %v", err)
	}
	foreign, err := other.sign("admin", domain.RoleAdmin, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(foreign); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}

	system, err := manager.sign("ledgerctl", domain.RoleSystem, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(system); err == nil {
		t.Fatalf("expected system role tokens to be refused over HTTP")
	}
}
