package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stockpit/go-inventory-api/internal/auth"
)

func testAuthService() *auth.Service {
	return &auth.Service{Secret: []byte("test-secret"), Expiry: time.Hour}
}

func TestProtectRejectsMissingAndBadTokens(t *testing.T) {
	svc := testAuthService()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without a valid token")
	})
	h := Protect(svc)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: code = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: code = %d, want 401", rec.Code)
	}
}

func TestProtectPassesPrincipal(t *testing.T) {
	svc := testAuthService()
	token, err := svc.IssueToken(auth.User{ID: 42, Role: auth.RoleManager})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var got auth.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFrom(r.Context())
	})
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Protect(svc)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	if got.UserID != 42 || got.Role != auth.RoleManager {
		t.Errorf("principal = %+v", got)
	}
}

func TestRequireRole(t *testing.T) {
	svc := testAuthService()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := Protect(svc)(RequireRole(auth.RoleAdmin, auth.RoleManager)(next))

	for _, tc := range []struct {
		role auth.Role
		want int
	}{
		{auth.RoleAdmin, http.StatusOK},
		{auth.RoleManager, http.StatusOK},
		{auth.RoleStaff, http.StatusForbidden},
	} {
		token, err := svc.IssueToken(auth.User{ID: 1, Role: tc.role})
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("role %s: code = %d, want %d", tc.role, rec.Code, tc.want)
		}
	}
}
