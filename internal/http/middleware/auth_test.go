package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	var gotUserID int64
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotUserID, _ = UserIDFromContext(r.Context())
	})
	handler := AuthMiddleware(testSecret)(next)

	t.Run("valid token", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/sessions/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"user_id": float64(42)}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if !called {
			t.Fatal("next handler not called")
		}
		if gotUserID != 42 {
			t.Fatalf("user id = %d, want 42", gotUserID)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/sessions/me", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if called {
			t.Fatal("next handler called without auth")
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		called = false
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": float64(42)})
		signed, err := token.SignedString([]byte("other-secret"))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/sessions/me", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if called {
			t.Fatal("next handler called with bad signature")
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("missing user id claim", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/sessions/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"sub": "x"}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if called {
			t.Fatal("next handler called without user id")
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}
